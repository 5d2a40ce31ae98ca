package image

import (
	"fmt"
	"io/ioutil"
	"sort"
	"strings"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"

	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
)

// DefaultPartsFile is the parts file loaded when present.
const DefaultPartsFile = "~/.picoboot/parts.yaml"

// Parts maps part names to flash layouts.
type Parts map[string]flash.Layout

// BuiltinParts are the parts known without a parts file.
var BuiltinParts = Parts{
	"attiny25": {Size: 2048, PageSize: 32, ReservedSize: flash.DefaultReservedSize},
	"attiny45": {Size: 4096, PageSize: 64, ReservedSize: flash.DefaultReservedSize},
	"attiny85": {Size: 8192, PageSize: 64, ReservedSize: flash.DefaultReservedSize},
	"atmega88": {Size: 8192, PageSize: 64, ReservedSize: flash.DefaultReservedSize},
}

type partsFile struct {
	Parts Parts `yaml:"parts"`
}

// NewParts creates a registry with the builtin parts.
func NewParts() Parts {
	parts := make(Parts)
	for name, layout := range BuiltinParts {
		parts[name] = layout
	}
	return parts
}

// Lookup finds a part by name, case-insensitive.
func (p Parts) Lookup(name string) (flash.Layout, error) {
	layout, ok := p[strings.ToLower(name)]
	if !ok {
		return layout, fmt.Errorf("unknown part %q, known parts: %s", name, strings.Join(p.Names(), ", "))
	}
	return layout, nil
}

// Names returns sorted part names.
func (p Parts) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse adds parts from YAML content, overriding existing ones:
//
//   parts:
//     attiny85:
//       size: 8192
//       page_size: 64
//       reserved_size: 66
func (p Parts) Parse(content []byte) error {
	var f partsFile
	if err := yaml.UnmarshalStrict(content, &f); err != nil {
		return err
	}
	for name, layout := range f.Parts {
		if err := layout.Validate(); err != nil {
			return fmt.Errorf("part %s: %w", name, err)
		}
		p[strings.ToLower(name)] = layout
	}
	return nil
}

// LoadFile adds parts from a YAML file. "~" is expanded to home directory.
func (p Parts) LoadFile(path string) error {
	fn, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	content, err := ioutil.ReadFile(fn)
	if err != nil {
		return err
	}
	if err := p.Parse(content); err != nil {
		return fmt.Errorf("parse %s: %w", fn, err)
	}
	return nil
}
