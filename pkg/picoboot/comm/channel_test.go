package comm

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

// testLink records writes and serves scripted ack bytes. The log keeps
// every write and read in order, so tests can assert interleaving.
type testLink struct {
	writes   [][]byte
	acks     []byte
	log      []string
	writeErr error
	readErr  error
}

func (l *testLink) Write(p []byte) (int, error) {
	if l.writeErr != nil {
		return 0, l.writeErr
	}
	l.writes = append(l.writes, append([]byte(nil), p...))
	l.log = append(l.log, "W")
	return len(p), nil
}

func (l *testLink) Read(p []byte) (int, error) {
	if l.readErr != nil {
		return 0, l.readErr
	}
	if len(l.acks) == 0 {
		// behave like a serial port whose read timed out
		return 0, nil
	}
	p[0], l.acks = l.acks[0], l.acks[1:]
	l.log = append(l.log, "R")
	return 1, nil
}

func acks(n int) []byte {
	return make([]byte, n)
}

func TestChannelPipeline(t *testing.T) {
	link := &testLink{acks: acks(MaxFrames * 2)}
	ch := NewChannel(link)

	for i := 0; i < MaxFrames-1; i++ {
		require.NoError(t, ch.Submit(DataFrame(byte(i), 0)))
		require.Empty(t, link.writes)
		require.Equal(t, i+1, ch.Pending())
	}
	require.NoError(t, ch.Submit(DataFrame(MaxFrames-1, 0)))
	require.Equal(t, 0, ch.Pending())
	require.Len(t, link.writes, 1)
	require.Len(t, link.writes[0], MaxFrames*FrameSize)
	for i := 0; i < MaxFrames; i++ {
		require.Equal(t, DataFrame(byte(i), 0).Bytes(), link.writes[0][i*FrameSize:(i+1)*FrameSize])
	}
	require.Equal(t, []string{"W", "R", "R", "R", "R", "R", "R", "R", "R"}, link.log)
	require.Len(t, link.acks, MaxFrames)

	stats := ch.Stats()
	require.Equal(t, MaxFrames, stats.Frames)
	require.Equal(t, MaxFrames, stats.Pipelined)
	require.Equal(t, MaxFrames, stats.Acks)
	require.Equal(t, 1, stats.Writes)
}

func TestChannelFlushPartial(t *testing.T) {
	link := &testLink{acks: acks(4)}
	ch := NewChannel(link)
	require.NoError(t, ch.Flush())
	require.Empty(t, link.writes)

	require.NoError(t, ch.Submit(DataFrame(1, 2)))
	require.NoError(t, ch.Submit(AddressFrame(CmdFillTempBuffer, 0)))
	require.NoError(t, ch.Submit(DataFrame(3, 4)))
	require.NoError(t, ch.Flush())
	require.Equal(t, 0, ch.Pending())
	require.Len(t, link.writes, 1)
	require.Len(t, link.writes[0], 3*FrameSize)
	require.Equal(t, []string{"W", "R", "R", "R"}, link.log)
	require.Len(t, link.acks, 1)
}

func TestChannelExchangeFlushesFirst(t *testing.T) {
	link := &testLink{acks: acks(3)}
	ch := NewChannel(link)
	require.NoError(t, ch.Submit(DataFrame(1, 2)))
	require.NoError(t, ch.Submit(AddressFrame(CmdFillTempBuffer, 0)))
	require.NoError(t, ch.Exchange(AddressFrame(CmdErasePage, 0x40)))
	require.Equal(t, []string{"W", "R", "R", "W", "R"}, link.log)
	require.Len(t, link.writes, 2)
	require.Equal(t, AddressFrame(CmdErasePage, 0x40).Bytes(), link.writes[1])
	require.Equal(t, 1, ch.Stats().Unbuffered)
}

// eofLink delivers each ack together with io.EOF.
type eofLink struct {
	acks []byte
}

func (l *eofLink) Write(p []byte) (int, error) {
	return len(p), nil
}

func (l *eofLink) Read(p []byte) (int, error) {
	if len(l.acks) == 0 {
		return 0, io.EOF
	}
	p[0], l.acks = l.acks[0], l.acks[1:]
	return 1, io.EOF
}

func TestChannelAckWithError(t *testing.T) {
	link := &eofLink{acks: []byte{0, 0, AckSuccess + 1}}
	ch := NewChannel(link)
	require.NoError(t, ch.Exchange(Frame{}))
	require.NoError(t, ch.Exchange(AddressFrame(CmdErasePage, 0)))
	require.Equal(t, 2, ch.Stats().Acks)

	var ackErr *AckError
	require.True(t, errors.As(ch.Exchange(AddressFrame(CmdWritePage, 0)), &ackErr))
	require.Equal(t, byte(1), ackErr.Got)

	ch = NewChannel(&eofLink{})
	err := ch.Exchange(Frame{})
	var linkErr *LinkError
	require.True(t, errors.As(err, &linkErr))
	require.True(t, errors.Is(err, io.EOF))
}

func TestChannelErrors(t *testing.T) {
	ioErr := errors.New("broken pipe")
	testCases := []struct {
		name   string
		link   *testLink
		check  func(*testing.T, error)
		frames int
	}{
		{
			name:   "nak in pipeline",
			link:   &testLink{acks: []byte{0, 0, 0, 0x55, 0, 0, 0, 0}},
			frames: MaxFrames,
			check: func(t *testing.T, err error) {
				var ackErr *AckError
				require.True(t, errors.As(err, &ackErr))
				require.Equal(t, byte(0x55), ackErr.Got)
			},
		},
		{
			name:   "ack timeout",
			link:   &testLink{acks: acks(2)},
			frames: MaxFrames,
			check: func(t *testing.T, err error) {
				require.True(t, errors.Is(err, ErrAckTimeout))
			},
		},
		{
			name:   "write failure",
			link:   &testLink{writeErr: ioErr},
			frames: MaxFrames,
			check: func(t *testing.T, err error) {
				var linkErr *LinkError
				require.True(t, errors.As(err, &linkErr))
				require.Equal(t, "send", linkErr.Op)
				require.True(t, errors.Is(err, ioErr))
			},
		},
		{
			name:   "read failure",
			link:   &testLink{readErr: ioErr},
			frames: MaxFrames,
			check: func(t *testing.T, err error) {
				var linkErr *LinkError
				require.True(t, errors.As(err, &linkErr))
				require.Equal(t, "recv", linkErr.Op)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ch := NewChannel(tc.link)
			var err error
			for i := 0; i < tc.frames && err == nil; i++ {
				err = ch.Submit(DataFrame(byte(i), 0))
			}
			require.Error(t, err)
			require.True(t, IsLinkError(err))
			tc.check(t, err)
			require.Equal(t, err, ch.Err())

			// aborted channel never transmits again.
			writes := len(tc.link.writes)
			tc.link.acks = acks(MaxFrames)
			err = ch.Submit(DataFrame(0, 0))
			require.True(t, errors.Is(err, ErrAborted))
			require.True(t, errors.Is(ch.Exchange(AddressFrame(CmdWritePage, 0)), ErrAborted))
			require.True(t, errors.Is(ch.Flush(), ErrAborted))
			require.Len(t, tc.link.writes, writes)
		})
	}
}
