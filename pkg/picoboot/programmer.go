package picoboot

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/picoboot.go/pkg/picoboot/comm"
	"github.com/robotalks/picoboot.go/pkg/picoboot/flash"
)

// Programmer writes whole memory images page by page over a Session.
type Programmer struct {
	session *Session
	config  Config
}

// Result summarizes a programming run.
type Result struct {
	Pages   int
	Skipped int
	Bytes   int
	Elapsed time.Duration
	Stats   comm.Stats
}

// New creates a Programmer.
func New(session *Session, opts ...Option) *Programmer {
	if session == nil {
		panic("session cannot be nil")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Programmer{session: session, config: cfg}
}

// Session returns the session used.
func (p *Programmer) Session() *Session {
	return p.session
}

// Program writes mem to the device:
//  1. initialize the session if not yet done
//  2. write every page of the application region in ascending order,
//     page 0 first which also writes the virtual reset vector page
//
// ctx is only checked between pages, a page is never interrupted.
func (p *Programmer) Program(ctx context.Context, mem *flash.Memory) (*Result, error) {
	startTime := time.Now()
	result := &Result{}
	layout := mem.Layout
	if err := layout.Validate(); err != nil {
		return result, err
	}
	totalPages := layout.Pages()

	fail := func(addr int, err error) (*Result, error) {
		result.Elapsed, result.Stats = time.Since(startTime), p.session.Channel().Stats()
		p.reportProgress(Progress{
			Phase:        PhaseFailed,
			Page:         result.Pages + result.Skipped,
			TotalPages:   totalPages,
			Address:      addr,
			BytesWritten: result.Bytes,
			Elapsed:      result.Elapsed,
			Err:          err,
		})
		return result, err
	}

	if !p.session.Initialized() {
		p.reportProgress(Progress{Phase: PhaseInitializing, TotalPages: totalPages})
		if err := p.session.Initialize(); err != nil {
			return fail(0, err)
		}
	}

	for addr, page := 0, 0; addr < layout.ReservedStart(); addr, page = addr+layout.PageSize, page+1 {
		if err := ctx.Err(); err != nil {
			return fail(addr, fmt.Errorf("cancelled: %w", err))
		}
		if addr != 0 && p.config.SkipBlankPages && !mem.Loaded(addr, layout.PageSize) {
			glog.V(3).Infof("skip blank page 0x%04x", addr)
			result.Skipped++
		} else {
			n, err := p.session.WritePage(mem, addr, layout.PageSize)
			if err != nil {
				glog.Errorf("write page 0x%04x failed (%s): %v", addr, flash.Classify(err), err)
				return fail(addr, fmt.Errorf("write page 0x%04x: %w", addr, err))
			}
			result.Pages++
			result.Bytes += n
			if p.config.PageDelay > 0 {
				time.Sleep(p.config.PageDelay)
			}
		}
		p.reportProgress(Progress{
			Phase:        PhaseWriting,
			Page:         page + 1,
			TotalPages:   totalPages,
			Address:      addr,
			BytesWritten: result.Bytes,
			Percentage:   float64(page+1) * 100 / float64(totalPages),
			Elapsed:      time.Since(startTime),
		})
	}

	result.Elapsed, result.Stats = time.Since(startTime), p.session.Channel().Stats()
	p.reportProgress(Progress{
		Phase:        PhaseComplete,
		Page:         totalPages,
		TotalPages:   totalPages,
		BytesWritten: result.Bytes,
		Percentage:   100,
		Elapsed:      result.Elapsed,
	})
	glog.Infof("programming complete: %d pages written, %d skipped, %d bytes in %s",
		result.Pages, result.Skipped, result.Bytes, result.Elapsed)
	return result, nil
}

func (p *Programmer) reportProgress(progress Progress) {
	if p.config.ProgressCallback != nil {
		p.config.ProgressCallback(progress)
	}
}
