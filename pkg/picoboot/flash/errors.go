package flash

import (
	"errors"
	"fmt"

	"github.com/robotalks/picoboot.go/pkg/picoboot/comm"
)

// ErrUnsupportedMemory indicates the memory class can't be written by the
// bootloader. It's recoverable: nothing was transmitted.
var ErrUnsupportedMemory = errors.New("unsupported memory")

// Severity classifies the outcome of a page write.
type Severity int

const (
	// SeverityNone means success.
	SeverityNone Severity = iota
	// SeverityRecoverable means the write was skipped and the caller decides.
	SeverityRecoverable
	// SeveritySession means the session is broken and can't be used anymore.
	// The device may hold a partially written page.
	SeveritySession
	// SeverityFatal means the firmware image is incompatible or corrupt and
	// the whole flashing operation must be aborted.
	SeverityFatal
)

// String implements fmt.Stringer.
func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityRecoverable:
		return "recoverable"
	case SeveritySession:
		return "session"
	case SeverityFatal:
		return "fatal"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

// Classify determines the severity of err.
// Unknown errors are treated as breaking the session.
func Classify(err error) Severity {
	if err == nil {
		return SeverityNone
	}
	if errors.Is(err, ErrUnsupportedMemory) {
		return SeverityRecoverable
	}
	var policyErr PolicyViolation
	if errors.As(err, &policyErr) {
		return SeverityFatal
	}
	return SeveritySession
}

// IsFatal determines if err must abort the surrounding flashing operation.
func IsFatal(err error) bool {
	return Classify(err) == SeverityFatal
}

// IsRecoverable determines if the caller may carry on after err.
func IsRecoverable(err error) bool {
	return Classify(err) == SeverityRecoverable
}

// PolicyViolation is implemented by errors signaling an incompatible or
// corrupt firmware image.
type PolicyViolation interface {
	error
	PolicyViolation()
}

// ReservedWriteError indicates an attempt to write into the bootloader.
type ReservedWriteError struct {
	Addr          int
	ReservedStart int
}

// Error implements error.
func (e *ReservedWriteError) Error() string {
	return fmt.Sprintf("attempt to write to bootloader memory at 0x%04x (reserved from 0x%04x)", e.Addr, e.ReservedStart)
}

// PolicyViolation implements PolicyViolation.
func (e *ReservedWriteError) PolicyViolation() {}

// ResetVectorError indicates the image doesn't start with an rjmp.
type ResetVectorError struct {
	Word uint16
}

// Error implements error.
func (e *ResetVectorError) Error() string {
	return fmt.Sprintf("no reset vector in flash file: word 0x%04x is not rjmp", e.Word)
}

// PolicyViolation implements PolicyViolation.
func (e *ResetVectorError) PolicyViolation() {}

// PageError indicates a page write request not covering exactly one page.
type PageError struct {
	Addr     int
	Size     int
	PageSize int
}

// Error implements error.
func (e *PageError) Error() string {
	return fmt.Sprintf("write of %d bytes at 0x%04x is not a full page of %d bytes", e.Size, e.Addr, e.PageSize)
}

// PolicyViolation implements PolicyViolation.
func (e *PageError) PolicyViolation() {}

// LayoutError indicates an invalid flash layout.
type LayoutError struct {
	Layout Layout
	Reason string
}

// Error implements error.
func (e *LayoutError) Error() string {
	return fmt.Sprintf("invalid layout (%s): %s", e.Layout, e.Reason)
}

// PolicyViolation implements PolicyViolation.
func (e *LayoutError) PolicyViolation() {}

// PageWriteError wraps a link error during a page step.
type PageWriteError struct {
	Step string
	Page int
	Err  error
}

// Error implements error.
func (e *PageWriteError) Error() string {
	return fmt.Sprintf("%s page 0x%04x: %v", e.Step, e.Page, e.Err)
}

// Unwrap returns the link error.
func (e *PageWriteError) Unwrap() error {
	return e.Err
}

// IsLinkError determines if err came from the serial link.
func IsLinkError(err error) bool {
	return comm.IsLinkError(err)
}
