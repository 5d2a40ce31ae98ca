package comm

import (
	"fmt"
	"io"
)

// Command is the command byte of a frame.
type Command byte

// Commands understood by the bootloader.
const (
	// CmdLoadData loads a data word (payload is two image bytes).
	CmdLoadData Command = 0x00
	// CmdFillTempBuffer stores the loaded word into the page buffer
	// at the address carried in the payload.
	CmdFillTempBuffer Command = 0x01
	// CmdErasePage erases the page at the address in payload.
	CmdErasePage Command = 0x03
	// CmdWritePage writes the page buffer to the page at the address in payload.
	CmdWritePage Command = 0x05
)

// String implements fmt.Stringer.
func (c Command) String() string {
	switch c {
	case CmdLoadData:
		return "load-data"
	case CmdFillTempBuffer:
		return "fill-temp-buffer"
	case CmdErasePage:
		return "erase-page"
	case CmdWritePage:
		return "write-page"
	}
	return fmt.Sprintf("cmd(0x%02x)", byte(c))
}

// FrameSize is the size of a frame on the wire.
const FrameSize = 4

// Frame is an encoded frame, in wire order.
type Frame [FrameSize]byte

// Encode builds a frame. The checksum is always computed here.
func Encode(lo, hi byte, cmd Command) Frame {
	return Frame{lo, hi, lo ^ hi ^ byte(cmd), byte(cmd)}
}

// DataFrame builds a load-data frame carrying two image bytes.
func DataFrame(lo, hi byte) Frame {
	return Encode(lo, hi, CmdLoadData)
}

// AddressFrame builds a frame whose payload is a little-endian address.
func AddressFrame(cmd Command, addr uint16) Frame {
	return Encode(byte(addr), byte(addr>>8), cmd)
}

// PayloadLow returns the low payload byte.
func (f Frame) PayloadLow() byte { return f[0] }

// PayloadHigh returns the high payload byte.
func (f Frame) PayloadHigh() byte { return f[1] }

// Checksum returns the checksum byte.
func (f Frame) Checksum() byte { return f[2] }

// Command returns the command.
func (f Frame) Command() Command { return Command(f[3]) }

// Payload returns the payload as a little-endian word.
func (f Frame) Payload() uint16 {
	return uint16(f[0]) | uint16(f[1])<<8
}

// Valid checks the checksum.
func (f Frame) Valid() bool {
	return f[2] == f[0]^f[1]^f[3]
}

// Bytes returns encoded bytes for sending.
func (f Frame) Bytes() []byte {
	return f[:]
}

// WriteTo writes encoded bytes.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(f[:])
	return int64(n), err
}

// String implements fmt.Stringer.
func (f Frame) String() string {
	return fmt.Sprintf("%s[%02x %02x %02x %02x]", f.Command(), f[0], f[1], f[2], f[3])
}

// AckSuccess is the only acknowledgement byte indicating success.
const AckSuccess byte = 0x00

// DecodeAck decodes an acknowledgement byte.
// It returns nil for success, and *AckError otherwise.
func DecodeAck(b byte) error {
	if b == AckSuccess {
		return nil
	}
	return &AckError{Got: b}
}
