// Package image loads firmware images into flash memory images.
package image

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/marcinbor85/gohex"

	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
)

// Format is the file format of a firmware image.
type Format string

// Supported formats.
const (
	FormatIntelHex Format = "ihex"
	FormatBinary   Format = "binary"
)

// FormatOf determines the format from file extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".hex", ".ihex", ".ihx":
		return FormatIntelHex
	}
	return FormatBinary
}

// RangeError reports data outside the application region.
type RangeError struct {
	Addr  int
	Size  int
	Limit int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("image data at 0x%04x+%d exceeds application region (0x%04x)", e.Addr, e.Size, e.Limit)
}

// LoadFile loads a firmware image file.
func LoadFile(path string, layout flash.Layout) (*flash.Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	mem, err := Load(f, FormatOf(path), layout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mem, nil
}

// Load reads a firmware image in the specified format.
func Load(r io.Reader, format Format, layout flash.Layout) (*flash.Memory, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	switch format {
	case FormatIntelHex:
		return LoadHex(r, layout)
	case FormatBinary:
		return LoadBinary(r, layout)
	}
	return nil, fmt.Errorf("unknown image format %q", format)
}

// LoadHex reads an Intel HEX image.
func LoadHex(r io.Reader, layout flash.Layout) (*flash.Memory, error) {
	hex := gohex.NewMemory()
	if err := hex.ParseIntelHex(r); err != nil {
		return nil, err
	}
	mem := flash.NewFlash(layout)
	for _, seg := range hex.GetDataSegments() {
		if err := load(mem, int(seg.Address), seg.Data); err != nil {
			return nil, err
		}
	}
	return mem, nil
}

// LoadBinary reads a raw binary image starting from address 0.
func LoadBinary(r io.Reader, layout flash.Layout) (*flash.Memory, error) {
	data, err := ioutil.ReadAll(io.LimitReader(r, int64(layout.Size)+1))
	if err != nil {
		return nil, err
	}
	mem := flash.NewFlash(layout)
	if err := load(mem, 0, data); err != nil {
		return nil, err
	}
	return mem, nil
}

func load(mem *flash.Memory, addr int, data []byte) error {
	if limit := mem.Layout.ReservedStart(); addr+len(data) > limit {
		return &RangeError{Addr: addr, Size: len(data), Limit: limit}
	}
	return mem.Load(addr, data)
}
