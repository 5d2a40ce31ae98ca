// Package env provides the configuration shared by picoboot commands.
package env

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picoboot.go/pkg/picoboot"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
	"github.com/robotalks/picoboot.go/pkg/picoboot/image"
	"github.com/robotalks/picoboot.go/pkg/report/mqtt"
	"github.com/robotalks/picoboot.go/pkg/transport"
)

// Config provides common options of picoboot commands.
type Config struct {
	// Port is the device port, see transport.Open.
	Port        string
	BaudRate    int
	ReadTimeout time.Duration

	// Part selects the flash layout.
	Part      string
	PartsFile string

	SkipBlankPages bool
	PageDelay      time.Duration

	// MQTTBrokerURL enables progress reports when not empty.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// Source identifies this host in reports.
	Source string
}

var defaultConfig = Config{
	BaudRate:       transport.DefaultBaudRate,
	ReadTimeout:    transport.DefaultReadTimeout,
	Part:           "attiny85",
	PartsFile:      image.DefaultPartsFile,
	SkipBlankPages: true,
}

func init() {
	if val := os.Getenv("PICOBOOT_PORT"); val != "" {
		defaultConfig.Port = val
	}
	if val := os.Getenv("PICOBOOT_BAUD"); val != "" {
		if baud, err := strconv.Atoi(val); err == nil {
			defaultConfig.BaudRate = baud
		}
	}
	if val := os.Getenv("PICOBOOT_PART"); val != "" {
		defaultConfig.Part = val
	}
	if val := os.Getenv("PICOBOOT_PARTS"); val != "" {
		defaultConfig.PartsFile = val
	}
	if val := os.Getenv("PICOBOOT_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Port, "port", defaultConfig.Port, "Device port, e.g. /dev/ttyUSB0, ws://host/path or sim://")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate")
	flag.DurationVar(&defaultConfig.ReadTimeout, "timeout", defaultConfig.ReadTimeout, "Acknowledge timeout")
	flag.StringVar(&defaultConfig.Part, "part", defaultConfig.Part, "Part name")
	flag.StringVar(&defaultConfig.PartsFile, "parts", defaultConfig.PartsFile, "Parts file")
	flag.BoolVar(&defaultConfig.SkipBlankPages, "skip-blank", defaultConfig.SkipBlankPages, "Skip pages without data")
	flag.DurationVar(&defaultConfig.PageDelay, "page-delay", defaultConfig.PageDelay, "Delay after each page")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL for progress reports")
	flag.StringVar(&defaultConfig.Source, "source", defaultConfig.Source, "Source ID in reports, machine ID by default")
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Parts loads the parts registry. A missing default parts file is ignored.
func (c *Config) Parts() (image.Parts, error) {
	parts := image.NewParts()
	if c.PartsFile == "" {
		return parts, nil
	}
	if err := parts.LoadFile(c.PartsFile); err != nil {
		if os.IsNotExist(err) && c.PartsFile == image.DefaultPartsFile {
			glog.V(2).Infof("no parts file %s", c.PartsFile)
			return parts, nil
		}
		return nil, err
	}
	return parts, nil
}

// Layout looks up the flash layout of the configured part.
func (c *Config) Layout() (flash.Layout, error) {
	parts, err := c.Parts()
	if err != nil {
		return flash.Layout{}, err
	}
	return parts.Lookup(c.Part)
}

// TransportConfig creates the config to open the port.
func (c *Config) TransportConfig(layout flash.Layout) transport.Config {
	return transport.Config{
		BaudRate:    c.BaudRate,
		ReadTimeout: c.ReadTimeout,
		SimLayout:   layout,
	}
}

// ProgrammerOptions creates the options for picoboot.New.
func (c *Config) ProgrammerOptions(opts ...picoboot.Option) []picoboot.Option {
	return append([]picoboot.Option{
		picoboot.WithSkipBlankPages(c.SkipBlankPages),
		picoboot.WithPageDelay(c.PageDelay),
	}, opts...)
}

// OpenSession opens the configured port.
func (c *Config) OpenSession(layout flash.Layout) (*picoboot.Session, error) {
	if c.Port == "" {
		return nil, fmt.Errorf("port must be specified")
	}
	return picoboot.Open(c.Port, c.TransportConfig(layout))
}

// SourceID returns Source or the machine ID.
func (c *Config) SourceID() string {
	if c.Source != "" {
		return c.Source
	}
	return MachineID()
}

// NewReporter connects to the MQTT broker and creates a reporter.
// It returns nil if no broker is configured.
func (c *Config) NewReporter() (*mqtt.Reporter, *mqtt.Queue, error) {
	if c.MQTTBrokerURL == "" {
		return nil, nil, nil
	}
	q, err := mqtt.NewQueueFromURL(c.MQTTBrokerURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create MQTT queue error: %w", err)
	}
	if err := q.Connect(); err != nil {
		return nil, nil, fmt.Errorf("connect %s error: %w", c.MQTTBrokerURL, err)
	}
	return mqtt.NewReporter(q, c.SourceID(), c.Port), q, nil
}
