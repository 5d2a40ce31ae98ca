// Package pb contains the wire messages of report.proto.
//
// This file is maintained by hand, not generated by protoc-gen-go. Keep the
// struct tags in sync with report.proto when changing either.
package pb

import (
	"github.com/golang/protobuf/proto"
)

// Typed wraps an encoded message with its type and origin.
type Typed struct {
	TypeId    uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Message   []byte `protobuf:"bytes,2,opt,name=message,proto3" json:"message,omitempty"`
	Source    string `protobuf:"bytes,3,opt,name=source,proto3" json:"source,omitempty"`
	Port      string `protobuf:"bytes,4,opt,name=port,proto3" json:"port,omitempty"`
	Timestamp int64  `protobuf:"varint,5,opt,name=timestamp,proto3" json:"timestamp,omitempty"`
}

func (m *Typed) Reset()         { *m = Typed{} }
func (m *Typed) String() string { return proto.CompactTextString(m) }
func (*Typed) ProtoMessage()    {}

// ProgressEvent is published while programming.
type ProgressEvent struct {
	Phase        string `protobuf:"bytes,1,opt,name=phase,proto3" json:"phase,omitempty"`
	Page         int32  `protobuf:"varint,2,opt,name=page,proto3" json:"page,omitempty"`
	TotalPages   int32  `protobuf:"varint,3,opt,name=total_pages,json=totalPages,proto3" json:"total_pages,omitempty"`
	Address      uint32 `protobuf:"varint,4,opt,name=address,proto3" json:"address,omitempty"`
	BytesWritten int64  `protobuf:"varint,5,opt,name=bytes_written,json=bytesWritten,proto3" json:"bytes_written,omitempty"`
	ElapsedMs    int64  `protobuf:"varint,6,opt,name=elapsed_ms,json=elapsedMs,proto3" json:"elapsed_ms,omitempty"`
	Error        string `protobuf:"bytes,7,opt,name=error,proto3" json:"error,omitempty"`
}

func (m *ProgressEvent) Reset()         { *m = ProgressEvent{} }
func (m *ProgressEvent) String() string { return proto.CompactTextString(m) }
func (*ProgressEvent) ProtoMessage()    {}

// ResultEvent is published when programming finishes.
type ResultEvent struct {
	Pages     int32  `protobuf:"varint,1,opt,name=pages,proto3" json:"pages,omitempty"`
	Skipped   int32  `protobuf:"varint,2,opt,name=skipped,proto3" json:"skipped,omitempty"`
	Bytes     int64  `protobuf:"varint,3,opt,name=bytes,proto3" json:"bytes,omitempty"`
	ElapsedMs int64  `protobuf:"varint,4,opt,name=elapsed_ms,json=elapsedMs,proto3" json:"elapsed_ms,omitempty"`
	Frames    int64  `protobuf:"varint,5,opt,name=frames,proto3" json:"frames,omitempty"`
	Writes    int64  `protobuf:"varint,6,opt,name=writes,proto3" json:"writes,omitempty"`
	Error     string `protobuf:"bytes,7,opt,name=error,proto3" json:"error,omitempty"`
	Severity  string `protobuf:"bytes,8,opt,name=severity,proto3" json:"severity,omitempty"`
}

func (m *ResultEvent) Reset()         { *m = ResultEvent{} }
func (m *ResultEvent) String() string { return proto.CompactTextString(m) }
func (*ResultEvent) ProtoMessage()    {}

func init() {
	proto.RegisterType((*Typed)(nil), "picoboot.report.v1.Typed")
	proto.RegisterType((*ProgressEvent)(nil), "picoboot.report.v1.ProgressEvent")
	proto.RegisterType((*ResultEvent)(nil), "picoboot.report.v1.ResultEvent")
}
