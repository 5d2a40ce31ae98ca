// Package sim simulates a picoboot bootloader for testing and dry runs.
package sim

import (
	"fmt"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/picoboot.go/pkg/picoboot/comm"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
)

// NakByte is replied for rejected frames.
const NakByte byte = 0xff

// Device emulates the bootloader side of the link. Every complete frame
// written is executed and acknowledged; acks are returned by Read.
// Read returns 0 bytes without error when no ack is available, the way a
// serial port with a read timeout does.
type Device struct {
	Layout flash.Layout
	Flash  []byte

	// NakAt makes the device reply NakByte to the frame with this index
	// (counting from 1). Zero disables it.
	NakAt int
	// DropAt makes the device silently drop the frame with this index.
	DropAt int

	lock     sync.Mutex
	partial  []byte
	acks     []byte
	word     [2]byte
	pageBuf  []byte
	received int
	frames   []comm.Frame
	closed   bool
}

// New creates a device with erased flash.
func New(layout flash.Layout) *Device {
	d := &Device{
		Layout:  layout,
		Flash:   make([]byte, layout.Size),
		pageBuf: make([]byte, layout.PageSize),
	}
	fill(d.Flash, flash.ErasedByte)
	fill(d.pageBuf, flash.ErasedByte)
	return d
}

func fill(b []byte, v byte) {
	for n := range b {
		b[n] = v
	}
}

// Write implements io.Writer.
func (d *Device) Write(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.closed {
		return 0, fmt.Errorf("device closed")
	}
	d.partial = append(d.partial, p...)
	for len(d.partial) >= comm.FrameSize {
		var f comm.Frame
		copy(f[:], d.partial)
		d.partial = d.partial[comm.FrameSize:]
		d.receive(f)
	}
	return len(p), nil
}

// Read implements io.Reader.
func (d *Device) Read(p []byte) (int, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	n := copy(p, d.acks)
	d.acks = d.acks[n:]
	return n, nil
}

// Close implements io.Closer.
func (d *Device) Close() error {
	d.lock.Lock()
	d.closed = true
	d.lock.Unlock()
	return nil
}

// Frames returns all frames received.
func (d *Device) Frames() []comm.Frame {
	d.lock.Lock()
	defer d.lock.Unlock()
	return append([]comm.Frame(nil), d.frames...)
}

func (d *Device) receive(f comm.Frame) {
	d.received++
	d.frames = append(d.frames, f)
	if d.received == d.DropAt {
		glog.V(3).Infof("sim: drop %s", f)
		return
	}
	if d.received == d.NakAt || !f.Valid() {
		d.acks = append(d.acks, NakByte)
		return
	}
	if err := d.execute(f); err != nil {
		glog.Warningf("sim: %s rejected: %v", f, err)
		d.acks = append(d.acks, NakByte)
		return
	}
	d.acks = append(d.acks, comm.AckSuccess)
}

func (d *Device) execute(f comm.Frame) error {
	pageSize := d.Layout.PageSize
	switch f.Command() {
	case comm.CmdLoadData:
		d.word[0], d.word[1] = f.PayloadLow(), f.PayloadHigh()
	case comm.CmdFillTempBuffer:
		offset := int(f.Payload()) % pageSize
		if offset%2 != 0 {
			return fmt.Errorf("odd temp buffer offset 0x%02x", offset)
		}
		d.pageBuf[offset], d.pageBuf[offset+1] = d.word[0], d.word[1]
	case comm.CmdErasePage:
		page, err := d.page(f.Payload())
		if err != nil {
			return err
		}
		fill(d.Flash[page:page+pageSize], flash.ErasedByte)
	case comm.CmdWritePage:
		page, err := d.page(f.Payload())
		if err != nil {
			return err
		}
		// programming only clears bits.
		for n, b := range d.pageBuf {
			d.Flash[page+n] &= b
		}
		fill(d.pageBuf, flash.ErasedByte)
	default:
		return fmt.Errorf("unknown command")
	}
	return nil
}

// page validates a page address. Pages holding bootloader code are
// protected.
func (d *Device) page(addr uint16) (int, error) {
	page := int(addr)
	if page%d.Layout.PageSize != 0 || page+d.Layout.PageSize > d.Layout.Size {
		return 0, fmt.Errorf("invalid page address 0x%04x", page)
	}
	if page+d.Layout.PageSize > d.BootStart() {
		return 0, fmt.Errorf("page 0x%04x overlaps bootloader", page)
	}
	return page, nil
}

// BootStart is the address of the first bootloader instruction.
func (d *Device) BootStart() int {
	return d.Layout.ReservedStart() + 2
}

// RjmpTarget computes the word address an rjmp at word address pc jumps
// to, wrapping around flash.
func RjmpTarget(pc int, insn uint16, flashWords int) (int, error) {
	if insn&0xf000 != 0xc000 {
		return 0, fmt.Errorf("0x%04x is not rjmp", insn)
	}
	offset := int(insn & 0x0fff)
	if offset >= 0x800 {
		offset -= 0x1000
	}
	target := (pc + 1 + offset) % flashWords
	if target < 0 {
		target += flashWords
	}
	return target, nil
}

// Boot follows the reset vector the way the device does after power-on and
// returns the byte address reached. It also returns the byte address the
// bootloader hands off to through the virtual reset vector.
func (d *Device) Boot() (reset, app int, err error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	words := d.Layout.Size / 2
	word := func(addr int) uint16 { return uint16(d.Flash[addr]) | uint16(d.Flash[addr+1])<<8 }
	target, err := RjmpTarget(0, word(0), words)
	if err != nil {
		return 0, 0, fmt.Errorf("reset vector: %w", err)
	}
	vector := d.Layout.ReservedStart()
	appTarget, err := RjmpTarget(vector/2, word(vector), words)
	if err != nil {
		return target * 2, 0, fmt.Errorf("virtual reset vector: %w", err)
	}
	return target * 2, appTarget * 2, nil
}
