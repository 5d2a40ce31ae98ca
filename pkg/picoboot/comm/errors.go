package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrAckTimeout indicates the transport timed out waiting for an ack.
	ErrAckTimeout = errors.New("ack timeout")
	// ErrAborted indicates the channel was aborted by an earlier link error.
	ErrAborted = errors.New("channel aborted")
)

// AckError is a protocol violation: the device replied something other
// than a success acknowledgement.
type AckError struct {
	Got byte
}

// Error implements error.
func (e *AckError) Error() string {
	return fmt.Sprintf("protocol error, expect ACK=0x%02x, resp=0x%02x", AckSuccess, e.Got)
}

// LinkError wraps an I/O failure on the transport.
type LinkError struct {
	Op  string
	Err error
}

// Error implements error.
func (e *LinkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *LinkError) Unwrap() error {
	return e.Err
}

// abortedError is returned by every operation on an aborted channel.
type abortedError struct {
	cause error
}

func (e *abortedError) Error() string {
	return ErrAborted.Error() + ": " + e.cause.Error()
}

func (e *abortedError) Is(target error) bool {
	return target == ErrAborted
}

func (e *abortedError) Unwrap() error {
	return e.cause
}

// IsLinkError determines if err is a failure of the serial link, including
// unexpected acknowledgements. Link errors are always fatal to a session.
func IsLinkError(err error) bool {
	var linkErr *LinkError
	var ackErr *AckError
	return errors.As(err, &linkErr) ||
		errors.As(err, &ackErr) ||
		errors.Is(err, ErrAckTimeout) ||
		errors.Is(err, ErrAborted)
}
