package flash

import (
	"fmt"
)

// MemFlash is the memory class name of program flash, the only class
// the bootloader can write.
const MemFlash = "flash"

// DefaultReservedSize is the size of the reserved region at the end of
// flash: a 2-byte virtual reset vector followed by 64 bytes of
// bootloader code.
const DefaultReservedSize = 66

// MaxSize is the largest flash supported. The reset vector redirection
// relies on rjmp wrapping around the flash, which only holds up to 8K.
const MaxSize = 0x2000

// ErasedByte is the value of an erased flash byte.
const ErasedByte byte = 0xff

// Layout describes the flash geometry of a part.
type Layout struct {
	Size         int `json:"size" yaml:"size"`
	PageSize     int `json:"page_size" yaml:"page_size"`
	ReservedSize int `json:"reserved_size,omitempty" yaml:"reserved_size,omitempty"`
}

// ReservedStart is the address of the virtual reset vector, the first
// byte of the reserved region.
func (l Layout) ReservedStart() int {
	return l.Size - l.reservedSize()
}

// VectorPage is the page holding the virtual reset vector. It is written
// together with page 0.
func (l Layout) VectorPage() int {
	return l.ReservedStart() - l.PageSize + 2
}

// Pages returns the number of pages that can hold application data.
func (l Layout) Pages() int {
	return l.VectorPage()/l.PageSize + 1
}

// Validate checks the geometry. The vector page must be page-aligned,
// i.e. the reserved region minus the vector ends on a page boundary.
func (l Layout) Validate() error {
	switch {
	case l.Size <= 0 || l.Size > MaxSize:
		return &LayoutError{Layout: l, Reason: "size must be in (0, 8K]"}
	case l.PageSize <= 0 || l.PageSize%2 != 0:
		return &LayoutError{Layout: l, Reason: "page size must be a positive even number"}
	case l.Size%l.PageSize != 0:
		return &LayoutError{Layout: l, Reason: "size must be a multiple of page size"}
	case l.reservedSize() < 4 || l.reservedSize()%2 != 0:
		return &LayoutError{Layout: l, Reason: "reserved size must be an even number of at least 4"}
	case l.VectorPage() < l.PageSize:
		return &LayoutError{Layout: l, Reason: "reserved region leaves no room for application"}
	case l.VectorPage()%l.PageSize != 0:
		return &LayoutError{Layout: l, Reason: "virtual reset vector page is not page-aligned"}
	}
	return nil
}

func (l Layout) reservedSize() int {
	if l.ReservedSize == 0 {
		return DefaultReservedSize
	}
	return l.ReservedSize
}

// String implements fmt.Stringer.
func (l Layout) String() string {
	return fmt.Sprintf("size=%d page=%d reserved=%d", l.Size, l.PageSize, l.reservedSize())
}

// Memory is a memory image to be written. It's owned by the caller and
// the page writer only mutates the reset vector and the virtual reset
// vector in place.
type Memory struct {
	Desc   string
	Layout Layout
	Buf    []byte

	loaded   []bool
	appStart *uint16
}

// NewMemory creates an erased memory image of the given class.
func NewMemory(desc string, layout Layout) *Memory {
	m := &Memory{
		Desc:   desc,
		Layout: layout,
		Buf:    make([]byte, layout.Size),
		loaded: make([]bool, layout.Size),
	}
	for n := range m.Buf {
		m.Buf[n] = ErasedByte
	}
	return m
}

// NewFlash creates an erased flash image.
func NewFlash(layout Layout) *Memory {
	return NewMemory(MemFlash, layout)
}

// Size returns the total size.
func (m *Memory) Size() int {
	return len(m.Buf)
}

// Load copies data into the image at addr and marks those bytes loaded.
func (m *Memory) Load(addr int, data []byte) error {
	if addr < 0 || addr+len(data) > len(m.Buf) {
		return fmt.Errorf("data at 0x%04x+%d out of memory range 0x%04x", addr, len(data), len(m.Buf))
	}
	copy(m.Buf[addr:], data)
	for n := range data {
		m.loaded[addr+n] = true
	}
	return nil
}

// Loaded determines if any byte in [addr, addr+n) was loaded.
func (m *Memory) Loaded(addr, n int) bool {
	if m.loaded == nil {
		return true
	}
	for i := addr; i < addr+n && i < len(m.loaded); i++ {
		if m.loaded[i] {
			return true
		}
	}
	return false
}

// Word returns the little-endian word at addr.
func (m *Memory) Word(addr int) uint16 {
	return uint16(m.Buf[addr]) | uint16(m.Buf[addr+1])<<8
}

// SetWord stores a little-endian word at addr.
func (m *Memory) SetWord(addr int, w uint16) {
	m.Buf[addr], m.Buf[addr+1] = byte(w), byte(w>>8)
}
