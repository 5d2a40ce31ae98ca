package comm

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeChecksum(t *testing.T) {
	for cmd := 0; cmd < 256; cmd++ {
		for lo := 0; lo < 256; lo++ {
			for hi := 0; hi < 256; hi++ {
				f := Encode(byte(lo), byte(hi), Command(cmd))
				if f.Checksum() != byte(lo)^byte(hi)^byte(cmd) {
					t.Fatalf("checksum mismatch for %02x %02x %02x: %02x", lo, hi, cmd, f.Checksum())
				}
			}
		}
	}
}

func TestFrame(t *testing.T) {
	testCases := []struct {
		name   string
		frame  Frame
		expect []byte
	}{
		{"zero", Encode(0, 0, CmdLoadData), []byte{0, 0, 0, 0}},
		{"load data", DataFrame(0x12, 0x34), []byte{0x12, 0x34, 0x26, 0x00}},
		{"fill", AddressFrame(CmdFillTempBuffer, 0x003e), []byte{0x3e, 0x00, 0x3f, 0x01}},
		{"erase", AddressFrame(CmdErasePage, 0x1f80), []byte{0x80, 0x1f, 0x9c, 0x03}},
		{"write", AddressFrame(CmdWritePage, 0x1f80), []byte{0x80, 0x1f, 0x9a, 0x05}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, tc.frame.Bytes())
			require.True(t, tc.frame.Valid())
			var buf bytes.Buffer
			n, err := tc.frame.WriteTo(&buf)
			require.NoError(t, err)
			require.EqualValues(t, FrameSize, n)
			require.Equal(t, tc.expect, buf.Bytes())
		})
	}
}

func TestFrameAccessors(t *testing.T) {
	f := AddressFrame(CmdWritePage, 0xabcd)
	require.Equal(t, byte(0xcd), f.PayloadLow())
	require.Equal(t, byte(0xab), f.PayloadHigh())
	require.Equal(t, uint16(0xabcd), f.Payload())
	require.Equal(t, CmdWritePage, f.Command())
	require.Equal(t, "write-page[cd ab 63 05]", f.String())

	f[2]++
	require.False(t, f.Valid())
}

func TestDecodeAck(t *testing.T) {
	require.NoError(t, DecodeAck(0))
	for b := 1; b < 256; b++ {
		err := DecodeAck(byte(b))
		require.Error(t, err)
		ackErr, ok := err.(*AckError)
		require.True(t, ok)
		require.Equal(t, byte(b), ackErr.Got)
		require.True(t, IsLinkError(err))
	}
}
