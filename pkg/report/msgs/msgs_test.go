package msgs

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/picoboot.go/pkg/picoboot"
	"github.com/robotalks/picoboot.go/pkg/picoboot/comm"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
	"github.com/robotalks/picoboot.go/pkg/report/msgs/pb"
)

func TestProgressEventTyped(t *testing.T) {
	progress := picoboot.Progress{
		Phase:        picoboot.PhaseWriting,
		Page:         3,
		TotalPages:   127,
		Address:      128,
		BytesWritten: 192,
		Elapsed:      1500 * time.Millisecond,
	}
	typed, err := TypedFrom(NewProgressEvent(progress))
	require.NoError(t, err)
	require.True(t, typed.IsEvent())
	data, err := typed.From("host", "/dev/ttyUSB0").Encode()
	require.NoError(t, err)

	decoded, err := DecodeTyped(data)
	require.NoError(t, err)
	require.Equal(t, "host", decoded.Source)
	require.Equal(t, "/dev/ttyUSB0", decoded.Port)
	require.Equal(t, typed.Timestamp, decoded.Time().UnixNano())
	msg, err := decoded.Decode()
	require.NoError(t, err)
	event, ok := msg.(*ProgressEvent)
	require.True(t, ok)
	got := event.Progress()
	require.Equal(t, progress.Phase, got.Phase)
	require.Equal(t, 3, got.Page)
	require.Equal(t, 128, got.Address)
	require.Equal(t, 192, got.BytesWritten)
	require.Equal(t, progress.Elapsed, got.Elapsed)
	require.NoError(t, got.Err)
}

func TestProgressEventError(t *testing.T) {
	event := NewProgressEvent(picoboot.Progress{Phase: picoboot.PhaseFailed, Err: comm.ErrAckTimeout})
	require.Equal(t, comm.ErrAckTimeout.Error(), event.Error)
	require.EqualError(t, event.Progress().Err, comm.ErrAckTimeout.Error())
}

func TestResultEvent(t *testing.T) {
	result := &picoboot.Result{Pages: 125, Skipped: 2, Bytes: 8000, Elapsed: time.Second}
	result.Stats.Frames = 8317
	event := NewResultEvent(result, nil)
	require.True(t, event.Succeeded())
	require.Equal(t, int64(8317), event.Frames)
	require.Equal(t, int64(1000), event.ElapsedMs)

	event = NewResultEvent(result, &flash.ResetVectorError{Word: 0x940c})
	require.False(t, event.Succeeded())
	require.Equal(t, "fatal", event.Severity)
	require.Empty(t, NewResultEvent(nil, errors.New("x")).Pages)
}

func TestDecodeErrors(t *testing.T) {
	_, err := TypedFrom(nil)
	require.Equal(t, ErrNotSerializable, err)

	typed := &Typed{Typed: pb.Typed{TypeId: GroupCustom | 1}}
	_, err = typed.Decode()
	var unknown *ErrUnknownType
	require.True(t, errors.As(err, &unknown))

	_, err = DecodeTyped([]byte{0xff, 0xff})
	require.Error(t, err)
}
