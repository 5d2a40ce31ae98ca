package flash

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/picoboot.go/pkg/picoboot/comm"
)

type linkOp struct {
	op    string
	frame comm.Frame
}

type recordingLink struct {
	ops     []linkOp
	failOn  comm.Command
	failErr error
}

func (l *recordingLink) Submit(f comm.Frame) error {
	l.ops = append(l.ops, linkOp{op: "submit", frame: f})
	return nil
}

func (l *recordingLink) Flush() error {
	l.ops = append(l.ops, linkOp{op: "flush"})
	return nil
}

func (l *recordingLink) Exchange(f comm.Frame) error {
	l.ops = append(l.ops, linkOp{op: "exchange", frame: f})
	if l.failErr != nil && f.Command() == l.failOn {
		return l.failErr
	}
	return nil
}

func (l *recordingLink) frames() (frames []comm.Frame) {
	for _, op := range l.ops {
		if op.op != "flush" {
			frames = append(frames, op.frame)
		}
	}
	return
}

var tiny85 = Layout{Size: 8192, PageSize: 64, ReservedSize: 66}

func newTestImage(t *testing.T) *Memory {
	mem := NewFlash(tiny85)
	data := make([]byte, 8000)
	for n := range data {
		data[n] = byte(n)
	}
	// rjmp .+0x1e
	data[0], data[1] = 0x0f, 0xc0
	require.NoError(t, mem.Load(0, data))
	return mem
}

// expectPage asserts ops describe a full fill, erase, write of page.
func expectPage(t *testing.T, mem *Memory, ops []linkOp, page int) []linkOp {
	pageSize := mem.Layout.PageSize
	require.True(t, len(ops) >= pageSize+3, "not enough ops for page 0x%04x", page)
	for offset := 0; offset < pageSize; offset += 2 {
		data, fill := ops[offset], ops[offset+1]
		require.Equal(t, "submit", data.op)
		require.Equal(t, comm.DataFrame(mem.Buf[page+offset], mem.Buf[page+offset+1]), data.frame, "page 0x%04x offset %d", page, offset)
		require.Equal(t, "submit", fill.op)
		require.Equal(t, comm.AddressFrame(comm.CmdFillTempBuffer, uint16(offset)), fill.frame)
	}
	ops = ops[pageSize:]
	require.Equal(t, "flush", ops[0].op)
	require.Equal(t, linkOp{op: "exchange", frame: comm.AddressFrame(comm.CmdErasePage, uint16(page))}, ops[1])
	require.Equal(t, linkOp{op: "exchange", frame: comm.AddressFrame(comm.CmdWritePage, uint16(page))}, ops[2])
	return ops[3:]
}

func TestLayout(t *testing.T) {
	require.NoError(t, tiny85.Validate())
	require.Equal(t, 8126, tiny85.ReservedStart())
	require.Equal(t, 8064, tiny85.VectorPage())
	require.Equal(t, 127, tiny85.Pages())

	defaulted := Layout{Size: 4096, PageSize: 64}
	require.NoError(t, defaulted.Validate())
	require.Equal(t, 4096-66, defaulted.ReservedStart())

	invalid := []Layout{
		{Size: 0, PageSize: 64},
		{Size: 0x4000, PageSize: 64},
		{Size: 8192, PageSize: 63},
		{Size: 8192, PageSize: 64, ReservedSize: 3},
		// vector page not aligned
		{Size: 8192, PageSize: 64, ReservedSize: 68},
		{Size: 128, PageSize: 64, ReservedSize: 130},
	}
	for _, l := range invalid {
		err := l.Validate()
		require.Error(t, err, "%s", l)
		require.True(t, IsFatal(err))
	}
}

func TestJumps(t *testing.T) {
	require.Equal(t, uint16(0xcfdf), BootJump(tiny85))
	require.Equal(t, uint16(0xc030), VirtualVector(tiny85, 0xc00f))
	// wraps within the 12-bit offset.
	require.Equal(t, uint16(0xc020), VirtualVector(tiny85, 0xcfff))
}

func TestWritePageUnsupportedMemory(t *testing.T) {
	link := &recordingLink{}
	mem := NewMemory("eeprom", tiny85)
	n, err := NewWriter(link).WritePage(mem, 0, 64)
	require.Equal(t, 0, n)
	require.True(t, errors.Is(err, ErrUnsupportedMemory))
	require.Equal(t, SeverityRecoverable, Classify(err))
	require.True(t, IsRecoverable(err))
	require.Empty(t, link.ops)
}

func TestWritePageReservedRegion(t *testing.T) {
	for _, addr := range []int{8126, 8127, 8128, 8191, 9000} {
		link := &recordingLink{}
		mem := newTestImage(t)
		n, err := NewWriter(link).WritePage(mem, addr, 64)
		require.Equal(t, 0, n)
		var resErr *ReservedWriteError
		require.True(t, errors.As(err, &resErr), "addr=%d", addr)
		require.Equal(t, addr, resErr.Addr)
		require.Equal(t, 8126, resErr.ReservedStart)
		require.True(t, IsFatal(err))
		require.Empty(t, link.ops)
	}
}

func TestWritePagePairedPage(t *testing.T) {
	for _, addr := range []int{8063, 8064, 8100, 8125} {
		link := &recordingLink{}
		n, err := NewWriter(link).WritePage(newTestImage(t), addr, 64)
		require.NoError(t, err)
		require.Equal(t, 64, n)
		require.Empty(t, link.ops)
	}
}

func TestWritePageNotFullPage(t *testing.T) {
	link := &recordingLink{}
	_, err := NewWriter(link).WritePage(newTestImage(t), 32, 64)
	require.True(t, IsFatal(err))
	_, err = NewWriter(link).WritePage(newTestImage(t), 64, 32)
	var pageErr *PageError
	require.True(t, errors.As(err, &pageErr))
	require.Empty(t, link.ops)
}

func TestWritePageFill(t *testing.T) {
	link := &recordingLink{}
	mem := newTestImage(t)
	n, err := NewWriter(link).WritePage(mem, 0x0100, 64)
	require.NoError(t, err)
	require.Equal(t, 64, n)

	frames := link.frames()
	require.Len(t, frames, 64+2)
	for i, f := range frames[:64] {
		if i%2 == 0 {
			require.Equal(t, comm.CmdLoadData, f.Command())
		} else {
			require.Equal(t, comm.CmdFillTempBuffer, f.Command())
			require.Equal(t, uint16(i-1), f.Payload())
		}
	}
	require.Empty(t, expectPage(t, mem, link.ops, 0x0100))
}

func TestWritePageInvalidResetVector(t *testing.T) {
	link := &recordingLink{}
	mem := newTestImage(t)
	mem.SetWord(0, 0x940c) // jmp, not rjmp
	orig := append([]byte(nil), mem.Buf...)

	n, err := NewWriter(link).WritePage(mem, 0, 64)
	require.Equal(t, 0, n)
	var vecErr *ResetVectorError
	require.True(t, errors.As(err, &vecErr))
	require.Equal(t, uint16(0x940c), vecErr.Word)
	require.True(t, IsFatal(err))
	require.Empty(t, link.ops)
	require.Equal(t, orig, mem.Buf)
}

func TestWritePageZero(t *testing.T) {
	link := &recordingLink{}
	mem := newTestImage(t)
	n, err := NewWriter(link).WritePage(mem, 0, 64)
	require.NoError(t, err)
	require.Equal(t, 64, n)

	require.Equal(t, []byte{0xdf, 0xcf}, mem.Buf[0:2])
	require.Equal(t, []byte{0x30, 0xc0}, mem.Buf[8126:8128])

	ops := expectPage(t, mem, link.ops, 8064)
	ops = expectPage(t, mem, ops, 0)
	require.Empty(t, ops)

	// the virtual vector is the last word loaded for the vector page.
	require.Equal(t, comm.DataFrame(0x30, 0xc0), link.ops[62].frame)

	// writing page 0 again keeps the original application entry.
	link.ops = nil
	_, err = NewWriter(link).WritePage(mem, 0, 64)
	require.NoError(t, err)
	require.Equal(t, []byte{0xdf, 0xcf}, mem.Buf[0:2])
	require.Equal(t, []byte{0x30, 0xc0}, mem.Buf[8126:8128])
}

func TestWritePageLinkFailure(t *testing.T) {
	for _, cmd := range []comm.Command{comm.CmdErasePage, comm.CmdWritePage} {
		link := &recordingLink{failOn: cmd, failErr: &comm.AckError{Got: 0xff}}
		n, err := NewWriter(link).WritePage(newTestImage(t), 0x40, 64)
		require.Equal(t, 0, n)
		var pageErr *PageWriteError
		require.True(t, errors.As(err, &pageErr))
		require.Equal(t, 0x40, pageErr.Page)
		require.True(t, IsLinkError(err))
		require.Equal(t, SeveritySession, Classify(err))
		require.False(t, IsFatal(err))
	}
}

func TestWritePageOverChannel(t *testing.T) {
	link := &ackingLink{}
	ch := comm.NewChannel(link)
	n, err := NewWriter(ch).WritePage(newTestImage(t), 0, 64)
	require.NoError(t, err)
	require.Equal(t, 64, n)
	stats := ch.Stats()
	// two pages of 64 pipelined frames and 2 unbuffered frames each.
	require.Equal(t, 128, stats.Pipelined)
	require.Equal(t, 4, stats.Unbuffered)
	require.Equal(t, 132, stats.Acks)
	require.Equal(t, 128/comm.MaxFrames+4, stats.Writes)
	require.Equal(t, 0, ch.Pending())
}

type ackingLink struct{}

func (ackingLink) Write(p []byte) (int, error) { return len(p), nil }
func (ackingLink) Read(p []byte) (int, error) {
	p[0] = comm.AckSuccess
	return 1, nil
}
