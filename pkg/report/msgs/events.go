package msgs

import (
	"errors"
	"time"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/picoboot.go/pkg/framework"
	"github.com/robotalks/picoboot.go/pkg/picoboot"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
	"github.com/robotalks/picoboot.go/pkg/report/msgs/pb"
)

// ProgressEvent reports programming progress.
type ProgressEvent struct {
	pb.ProgressEvent
}

// NewProgressEvent creates a ProgressEvent.
func NewProgressEvent(p picoboot.Progress) *ProgressEvent {
	m := &ProgressEvent{ProgressEvent: pb.ProgressEvent{
		Phase:        string(p.Phase),
		Page:         int32(p.Page),
		TotalPages:   int32(p.TotalPages),
		Address:      uint32(p.Address),
		BytesWritten: int64(p.BytesWritten),
		ElapsedMs:    p.Elapsed.Milliseconds(),
	}}
	if p.Err != nil {
		m.Error = p.Err.Error()
	}
	return m
}

// NewMessage implements Message.
func (m *ProgressEvent) NewMessage() fx.Message { return &ProgressEvent{} }

// TypeID implements SerializableMessage.
func (m *ProgressEvent) TypeID() uint32 { return ProgressEventTypeID }

// Serializable implements SerializableMessage.
func (m *ProgressEvent) Serializable() proto.Message { return &m.ProgressEvent }

// Progress converts back to picoboot.Progress.
func (m *ProgressEvent) Progress() picoboot.Progress {
	p := picoboot.Progress{
		Phase:        picoboot.Phase(m.Phase),
		Page:         int(m.Page),
		TotalPages:   int(m.TotalPages),
		Address:      int(m.Address),
		BytesWritten: int(m.BytesWritten),
		Elapsed:      time.Duration(m.ElapsedMs) * time.Millisecond,
	}
	if m.TotalPages > 0 {
		p.Percentage = float64(m.Page) * 100 / float64(m.TotalPages)
	}
	if m.Error != "" {
		p.Err = errors.New(m.Error)
	}
	return p
}

// ResultEvent reports the outcome of a programming run.
type ResultEvent struct {
	pb.ResultEvent
}

// NewResultEvent creates a ResultEvent, err is the error returned by
// Program.
func NewResultEvent(r *picoboot.Result, err error) *ResultEvent {
	m := &ResultEvent{}
	if r != nil {
		m.Pages = int32(r.Pages)
		m.Skipped = int32(r.Skipped)
		m.Bytes = int64(r.Bytes)
		m.ElapsedMs = r.Elapsed.Milliseconds()
		m.Frames = int64(r.Stats.Frames)
		m.Writes = int64(r.Stats.Writes)
	}
	if err != nil {
		m.Error = err.Error()
		m.Severity = flash.Classify(err).String()
	}
	return m
}

// NewMessage implements Message.
func (m *ResultEvent) NewMessage() fx.Message { return &ResultEvent{} }

// TypeID implements SerializableMessage.
func (m *ResultEvent) TypeID() uint32 { return ResultEventTypeID }

// Serializable implements SerializableMessage.
func (m *ResultEvent) Serializable() proto.Message { return &m.ResultEvent }

// Succeeded determines if the run succeeded.
func (m *ResultEvent) Succeeded() bool {
	return m.Error == ""
}
