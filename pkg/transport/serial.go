package transport

import (
	"fmt"

	"github.com/golang/glog"
	"go.bug.st/serial"
)

// OpenSerial opens a serial port in 8N1 mode and drains stale input.
func OpenSerial(name string, conf Config) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: conf.baudRate(),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	if err := port.SetReadTimeout(conf.readTimeout()); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close()
		return nil, fmt.Errorf("drain serial port: %w", err)
	}
	glog.V(1).Infof("serial port %s opened at %d baud", name, mode.BaudRate)
	return port, nil
}

// Ports lists serial ports on the system.
func Ports() ([]string, error) {
	return serial.GetPortsList()
}
