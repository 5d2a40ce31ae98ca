// Package transport opens the byte links a picoboot session runs on.
package transport

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
	"github.com/robotalks/picoboot.go/pkg/picoboot/sim"
)

// DefaultBaudRate is used when no baud rate is specified.
const DefaultBaudRate = 460800

// DefaultReadTimeout bounds the wait for a single acknowledgement.
const DefaultReadTimeout = time.Second

// Config provides options to open a link.
type Config struct {
	BaudRate    int
	ReadTimeout time.Duration
	// SimLayout is the flash layout of the simulated device for sim:// ports.
	SimLayout flash.Layout
}

func (c Config) baudRate() int {
	if c.BaudRate <= 0 {
		return DefaultBaudRate
	}
	return c.BaudRate
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return c.ReadTimeout
}

// Open opens a link by port name:
//   /dev/ttyUSB0, COM3, serial:///dev/ttyUSB0  serial port
//   ws://host:port/path, wss://...             websocket serial bridge
//   sim://                                     in-process simulated device
func Open(port string, conf Config) (io.ReadWriteCloser, error) {
	if port == "" {
		return nil, fmt.Errorf("port must be specified")
	}
	if !strings.Contains(port, "://") {
		return OpenSerial(port, conf)
	}
	parsedURL, err := url.Parse(port)
	if err != nil {
		return nil, fmt.Errorf("invalid port URL: %w", err)
	}
	glog.V(1).Infof("open %s", port)
	switch parsedURL.Scheme {
	case "serial":
		return OpenSerial(parsedURL.Host+parsedURL.Path, conf)
	case "ws", "wss":
		conn, err := OpenWebsocket(port, conf)
		if err != nil {
			return nil, err
		}
		return conn, nil
	case "sim":
		if err := conf.SimLayout.Validate(); err != nil {
			return nil, err
		}
		return sim.New(conf.SimLayout), nil
	default:
		return nil, fmt.Errorf("unknown port URL scheme: %q", parsedURL.Scheme)
	}
}
