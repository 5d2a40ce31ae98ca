package picoboot

import "time"

// Phase is the stage of a programming run.
type Phase string

// Phases of a programming run.
const (
	PhaseInitializing Phase = "initializing"
	PhaseWriting      Phase = "writing"
	PhaseComplete     Phase = "complete"
	PhaseFailed       Phase = "failed"
)

// Progress reports the progress of a programming run.
type Progress struct {
	Phase Phase
	// Page is the number of pages processed so far.
	Page       int
	TotalPages int
	// Address is the page address being processed.
	Address      int
	BytesWritten int
	Percentage   float64
	Elapsed      time.Duration
	// Err is set in PhaseFailed.
	Err error
}

// ProgressCallback is called during programming to report progress.
// It must return quickly.
type ProgressCallback func(Progress)
