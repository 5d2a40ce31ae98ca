package flash

import (
	"github.com/golang/glog"

	"github.com/robotalks/picoboot.go/pkg/picoboot/comm"
)

// Link is the frame transport used by Writer.
// Submit and Flush go through the ack pipeline, Exchange is a single
// unbuffered request-response.
type Link interface {
	Submit(comm.Frame) error
	Flush() error
	Exchange(comm.Frame) error
}

// Writer writes flash pages through the bootloader and keeps the
// bootloader reachable by redirecting the reset vector.
type Writer struct {
	Link Link
}

// NewWriter creates a Writer.
func NewWriter(link Link) *Writer {
	return &Writer{Link: link}
}

const (
	rjmpMask   uint16 = 0xf000
	rjmpOpcode uint16 = 0xc000
	rjmpOffset uint16 = 0x0fff
)

// BootJump returns the rjmp placed at the hardware reset vector, jumping
// to the first instruction of the bootloader.
func BootJump(layout Layout) uint16 {
	codeWords := (layout.reservedSize() - 2) / 2
	return rjmpOpcode | (uint16(-(codeWords + 1)) & rjmpOffset)
}

// VirtualVector relocates the application's rjmp at address 0 so it jumps
// to the same target from the virtual reset vector.
func VirtualVector(layout Layout, appStart uint16) uint16 {
	return rjmpOpcode | ((appStart&rjmpOffset + uint16(layout.reservedSize()/2)) & rjmpOffset)
}

// WritePage writes one page at addr; n must be the page size.
// It returns n on success. Nothing is transmitted when a guard rejects the
// request. See Classify for how to treat the returned error.
func (w *Writer) WritePage(mem *Memory, addr, n int) (int, error) {
	glog.V(2).Infof("paged write address 0x%04x", addr)

	if mem.Desc != MemFlash {
		glog.V(2).Infof("no support for writing %s", mem.Desc)
		return 0, ErrUnsupportedMemory
	}
	layout := mem.Layout
	if err := layout.Validate(); err != nil {
		return 0, err
	}
	if len(mem.Buf) != layout.Size {
		return 0, &LayoutError{Layout: layout, Reason: "image size mismatch"}
	}

	reservedStart := layout.ReservedStart()
	if addr >= reservedStart {
		glog.Errorf("attempt to write to bootloader memory at 0x%04x", addr)
		return 0, &ReservedWriteError{Addr: addr, ReservedStart: reservedStart}
	}
	if addr > reservedStart-layout.PageSize {
		// virtual reset vector page written along with page 0
		glog.V(2).Infof("page 0x%04x deferred to page 0", addr)
		return n, nil
	}
	if addr < 0 || addr%layout.PageSize != 0 || n != layout.PageSize {
		return 0, &PageError{Addr: addr, Size: n, PageSize: layout.PageSize}
	}

	if addr == 0 {
		vectorPage, err := w.redirect(mem)
		if err != nil {
			return 0, err
		}
		if err := w.programPage(mem, vectorPage); err != nil {
			return 0, err
		}
	}
	if err := w.programPage(mem, addr); err != nil {
		return 0, err
	}
	return n, nil
}

// redirect saves the application reset vector into the virtual reset
// vector and points the hardware reset vector to the bootloader.
func (w *Writer) redirect(mem *Memory) (int, error) {
	layout := mem.Layout
	appStart := mem.Word(0)
	if mem.appStart != nil {
		// already redirected by an earlier write of page 0.
		appStart = *mem.appStart
	} else if appStart&rjmpMask != rjmpOpcode {
		glog.Errorf("no reset vector in flash file: 0x%04x", appStart)
		return 0, &ResetVectorError{Word: appStart}
	}
	mem.appStart = &appStart

	vector, vectorAddr := VirtualVector(layout, appStart), layout.ReservedStart()
	mem.SetWord(0, BootJump(layout))
	mem.SetWord(vectorAddr, vector)
	glog.V(1).Infof("virtual reset vector 0x%04x at 0x%04x", vector, vectorAddr)
	return layout.VectorPage(), nil
}

// programPage runs fill, erase and write for a page, in that order.
func (w *Writer) programPage(mem *Memory, page int) error {
	if err := w.fillPage(mem, page); err != nil {
		return &PageWriteError{Step: "fill", Page: page, Err: err}
	}
	if err := w.Link.Exchange(comm.AddressFrame(comm.CmdErasePage, uint16(page))); err != nil {
		return &PageWriteError{Step: "erase", Page: page, Err: err}
	}
	if err := w.Link.Exchange(comm.AddressFrame(comm.CmdWritePage, uint16(page))); err != nil {
		return &PageWriteError{Step: "write", Page: page, Err: err}
	}
	return nil
}

// fillPage loads the page buffer word by word: a load-data frame with the
// image bytes followed by a fill-temp-buffer frame with the in-page offset.
func (w *Writer) fillPage(mem *Memory, page int) error {
	glog.V(3).Infof("fill page buffer address 0x%04x", page)
	for offset := 0; offset < mem.Layout.PageSize; offset += 2 {
		addr := page + offset
		if err := w.Link.Submit(comm.DataFrame(mem.Buf[addr], mem.Buf[addr+1])); err != nil {
			return err
		}
		if err := w.Link.Submit(comm.AddressFrame(comm.CmdFillTempBuffer, uint16(offset))); err != nil {
			return err
		}
	}
	return w.Link.Flush()
}
