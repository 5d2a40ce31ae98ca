package picoboot

import (
	"errors"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/picoboot.go/pkg/picoboot/comm"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
	"github.com/robotalks/picoboot.go/pkg/transport"
)

// ErrSessionAborted indicates the session can't be used after an earlier
// failure.
var ErrSessionAborted = errors.New("session aborted")

// ErrClosed indicates the session is closed.
var ErrClosed = errors.New("session closed")

// Signature is the device signature.
type Signature [3]byte

// String implements fmt.Stringer.
func (s Signature) String() string {
	return fmt.Sprintf("%02x %02x %02x", s[0], s[1], s[2])
}

// FakeSignature is reported for every device, as the bootloader doesn't
// support reading the signature.
var FakeSignature = Signature{0x1e, 0x2a, 0x00}

// Session is a programming session with one device. It exclusively holds
// the link until closed.
//
// Session is not safe for concurrent use.
type Session struct {
	conn        io.ReadWriteCloser
	channel     *comm.Channel
	writer      *flash.Writer
	initialized bool
	closed      bool
	err         error
}

// NewSession creates a Session over an opened link.
func NewSession(conn io.ReadWriteCloser) *Session {
	s := &Session{conn: conn, channel: comm.NewChannel(conn)}
	s.writer = flash.NewWriter(s.channel)
	return s
}

// Open opens the port and creates a Session.
func Open(port string, conf transport.Config) (*Session, error) {
	conn, err := transport.Open(port, conf)
	if err != nil {
		return nil, err
	}
	return NewSession(conn), nil
}

// Channel returns the underlying frame channel.
func (s *Session) Channel() *comm.Channel {
	return s.channel
}

// Initialized indicates the handshake succeeded.
func (s *Session) Initialized() bool {
	return s.initialized
}

// Err returns the error that aborted the session, if any.
func (s *Session) Err() error {
	return s.err
}

// Initialize performs the handshake: a frame of zeros answered by an ack.
func (s *Session) Initialize() error {
	if err := s.usable(); err != nil {
		return err
	}
	glog.V(2).Info("initialize")
	if err := s.channel.Exchange(comm.Frame{}); err != nil {
		s.err = err
		return fmt.Errorf("initialize: %w", err)
	}
	s.initialized = true
	return nil
}

// ReadSignature returns the device signature.
func (s *Session) ReadSignature() Signature {
	return FakeSignature
}

// WritePage writes one page of mem at addr, n is the page size.
// It returns n on success, see flash.Classify for errors. A link error or
// policy violation aborts the session.
func (s *Session) WritePage(mem *flash.Memory, addr, n int) (int, error) {
	if err := s.usable(); err != nil {
		return 0, err
	}
	written, err := s.writer.WritePage(mem, addr, n)
	if err != nil {
		if flash.Classify(err) != flash.SeverityRecoverable {
			s.err = err
		}
		return 0, err
	}
	return written, nil
}

// Close releases the link. It's safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	glog.V(2).Info("close")
	return s.conn.Close()
}

func (s *Session) usable() error {
	if s.closed {
		return ErrClosed
	}
	if s.err != nil {
		return fmt.Errorf("%w: %v", ErrSessionAborted, s.err)
	}
	return nil
}
