package comm

import (
	"io"
	"os"

	"github.com/golang/glog"
)

// MaxFrames is the number of frames sent back-to-back before draining
// acknowledgements. It must not exceed the device serial receive FIFO.
const MaxFrames = 8

// Channel sends frames over a link and reconciles the acknowledgements.
// The pipeline buffer is owned by the Channel, so every session gets its
// own and unacknowledged frames never leak across sessions.
//
// Channel is not safe for concurrent use.
type Channel struct {
	ReadWriter io.ReadWriter

	buf     [MaxFrames * FrameSize]byte
	pending int
	ackBuf  [1]byte
	err     error
	stats   Stats
}

// Stats counts traffic on a Channel.
// Frames counts transmitted frames, Pipelined and Unbuffered split them by
// the path taken.
type Stats struct {
	Frames     int
	Pipelined  int
	Unbuffered int
	Writes     int
	Bytes      int
	Acks       int
}

// NewChannel creates a Channel over rw.
func NewChannel(rw io.ReadWriter) *Channel {
	return &Channel{ReadWriter: rw}
}

// Pending returns the number of buffered frames awaiting transmission.
func (c *Channel) Pending() int {
	return c.pending
}

// Err returns the error which aborted the channel, if any.
func (c *Channel) Err() error {
	return c.err
}

// Stats returns traffic counters.
func (c *Channel) Stats() Stats {
	return c.stats
}

// Submit appends a frame to the pipeline. When the pipeline is full,
// the buffered frames are transmitted in one write and one ack per frame
// is consumed in order before Submit returns.
func (c *Channel) Submit(f Frame) error {
	if c.err != nil {
		return &abortedError{cause: c.err}
	}
	copy(c.buf[c.pending*FrameSize:], f[:])
	c.pending++
	if c.pending == MaxFrames {
		return c.Flush()
	}
	return nil
}

// Flush transmits the buffered frames, even if fewer than MaxFrames, and
// waits for all their acknowledgements.
func (c *Channel) Flush() error {
	if c.err != nil {
		return &abortedError{cause: c.err}
	}
	if c.pending == 0 {
		return nil
	}
	count := c.pending
	glog.V(4).Infof("flush %d frames", count)
	// the buffer is only reset by a complete transmission.
	if err := c.write(c.buf[:count*FrameSize]); err != nil {
		return err
	}
	c.pending = 0
	c.stats.Frames += count
	c.stats.Pipelined += count
	for ; count > 0; count-- {
		if err := c.waitAck(); err != nil {
			return err
		}
	}
	return nil
}

// Exchange sends a single frame unbuffered and waits for its ack.
// Anything pending in the pipeline is flushed first.
func (c *Channel) Exchange(f Frame) error {
	if err := c.Flush(); err != nil {
		return err
	}
	glog.V(3).Infof("send %s", f)
	if err := c.write(f[:]); err != nil {
		return err
	}
	c.stats.Frames++
	c.stats.Unbuffered++
	return c.waitAck()
}

func (c *Channel) write(p []byte) error {
	n, err := c.ReadWriter.Write(p)
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return c.abort(&LinkError{Op: "send", Err: err})
	}
	c.stats.Writes++
	c.stats.Bytes += n
	return nil
}

func (c *Channel) waitAck() error {
	n, err := c.ReadWriter.Read(c.ackBuf[:])
	// an io.Reader may deliver the byte along with an error.
	if n == 0 && err != nil {
		if os.IsTimeout(err) {
			return c.abort(ErrAckTimeout)
		}
		return c.abort(&LinkError{Op: "recv", Err: err})
	}
	if n == 0 {
		// transport read timeout
		glog.V(2).Info("ack not received")
		return c.abort(ErrAckTimeout)
	}
	c.stats.Acks++
	if err := DecodeAck(c.ackBuf[0]); err != nil {
		glog.Errorf("%v", err)
		return c.abort(err)
	}
	return nil
}

func (c *Channel) abort(err error) error {
	c.err = err
	return err
}
