package sim

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/picoboot.go/pkg/picoboot/comm"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
)

var layout = flash.Layout{Size: 8192, PageSize: 64, ReservedSize: 66}

func send(t *testing.T, d *Device, frames ...comm.Frame) []byte {
	for _, f := range frames {
		_, err := f.WriteTo(d)
		require.NoError(t, err)
	}
	buf := make([]byte, len(frames))
	n, err := d.Read(buf)
	require.NoError(t, err)
	return buf[:n]
}

func TestDeviceProgramPage(t *testing.T) {
	d := New(layout)
	var frames []comm.Frame
	for offset := 0; offset < 64; offset += 2 {
		frames = append(frames,
			comm.DataFrame(byte(offset), byte(offset+1)),
			comm.AddressFrame(comm.CmdFillTempBuffer, uint16(offset)))
	}
	require.Equal(t, make([]byte, 64), send(t, d, frames...))
	require.Equal(t, []byte{0, 0}, send(t, d,
		comm.AddressFrame(comm.CmdErasePage, 0x40),
		comm.AddressFrame(comm.CmdWritePage, 0x40)))
	for n := 0; n < 64; n++ {
		require.Equal(t, byte(n), d.Flash[0x40+n])
	}
	require.Equal(t, byte(0xff), d.Flash[0x3f])
	require.Equal(t, byte(0xff), d.Flash[0x80])
	require.Len(t, d.Frames(), 66)
}

func TestDeviceSplitWrites(t *testing.T) {
	d := New(layout)
	f := comm.DataFrame(1, 2).Bytes()
	_, err := d.Write(f[:3])
	require.NoError(t, err)
	n, _ := d.Read(make([]byte, 1))
	require.Equal(t, 0, n)
	_, err = d.Write(f[3:])
	require.NoError(t, err)
	require.Len(t, d.Frames(), 1)
}

func TestDeviceRejects(t *testing.T) {
	testCases := []struct {
		name  string
		frame comm.Frame
	}{
		{"bad checksum", comm.Frame{1, 2, 0, 0}},
		{"unknown command", comm.Encode(0, 0, 0x07)},
		{"odd fill offset", comm.AddressFrame(comm.CmdFillTempBuffer, 63)},
		{"odd absolute fill offset", comm.AddressFrame(comm.CmdFillTempBuffer, 0x107)},
		{"misaligned page", comm.AddressFrame(comm.CmdErasePage, 0x41)},
		{"bootloader page", comm.AddressFrame(comm.CmdWritePage, 8128)},
		{"beyond flash", comm.AddressFrame(comm.CmdErasePage, 8192)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, []byte{NakByte}, send(t, New(layout), tc.frame))
		})
	}
}

func TestDeviceFaults(t *testing.T) {
	d := New(layout)
	d.NakAt, d.DropAt = 2, 3
	require.Equal(t, []byte{0, NakByte}, send(t, d, comm.DataFrame(0, 0), comm.DataFrame(0, 0), comm.DataFrame(0, 0)))

	require.NoError(t, d.Close())
	_, err := d.Write([]byte{0})
	require.Error(t, err)
}

func TestRjmpTarget(t *testing.T) {
	target, err := RjmpTarget(0, 0xcfdf, 4096)
	require.NoError(t, err)
	require.Equal(t, 4064, target)

	target, err = RjmpTarget(4063, 0xc030, 4096)
	require.NoError(t, err)
	require.Equal(t, 16, target)

	_, err = RjmpTarget(0, 0x940c, 4096)
	require.Error(t, err)
}
