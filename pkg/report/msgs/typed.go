package msgs

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang/protobuf/proto"

	fx "github.com/robotalks/picoboot.go/pkg/framework"
	"github.com/robotalks/picoboot.go/pkg/report/msgs/pb"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
)

// Message Kinds
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

// TypeID Groups
const (
	GroupFlash  uint32 = 0x00010000
	GroupCustom uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	ProgressEventTypeID uint32 = TypeIDKindEvent | GroupFlash | 0x0001
	ResultEventTypeID   uint32 = TypeIDKindEvent | GroupFlash | 0x0002
)

// Typed wraps a message with type information.
type Typed struct {
	pb.Typed
}

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// ErrNotSerializable indicates the message is not serializable.
var ErrNotSerializable = errors.New("not serializable message")

// SerializableMessage can be serialized over the wire.
type SerializableMessage interface {
	fx.Message
	TypeID() uint32
	Serializable() proto.Message
}

// MessageTypes are predefined mapping of type ID to messages.
var MessageTypes = map[uint32]SerializableMessage{
	ProgressEventTypeID: (*ProgressEvent)(nil),
	ResultEventTypeID:   (*ResultEvent)(nil),
}

// TypedFrom creates a Typed from a serializable message.
func TypedFrom(msg fx.Message) (*Typed, error) {
	if s, ok := msg.(SerializableMessage); ok {
		data, err := proto.Marshal(s.Serializable())
		if err != nil {
			return nil, err
		}
		return &Typed{Typed: pb.Typed{
			TypeId:    s.TypeID(),
			Message:   data,
			Timestamp: time.Now().UnixNano(),
		}}, nil
	}
	return nil, ErrNotSerializable
}

// From sets the origin of the message.
func (p *Typed) From(source, port string) *Typed {
	p.Source, p.Port = source, port
	return p
}

// Time returns the time the message was created.
func (p Typed) Time() time.Time {
	return time.Unix(0, p.Timestamp)
}

// Decode decodes the packet into actual message.
func (p Typed) Decode() (fx.Message, error) {
	msgType, ok := MessageTypes[p.TypeId]
	if !ok {
		return nil, &ErrUnknownType{TypeID: p.TypeId}
	}
	msg := msgType.NewMessage()
	if err := proto.Unmarshal(p.Message, msg.(SerializableMessage).Serializable()); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the Typed to bytes.
func (p Typed) Encode() ([]byte, error) {
	return proto.Marshal(&p.Typed)
}

// IsEvent determines if the message is an event.
func (p Typed) IsEvent() bool {
	return p.TypeId&TypeIDMaskKind == TypeIDKindEvent
}

// DecodeTyped decodes bytes into Typed.
func DecodeTyped(data []byte) (*Typed, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed.Typed); err != nil {
		return nil, err
	}
	return &typed, nil
}
