// Package comm provides the picoboot wire protocol.
package comm

// The picoboot bootloader speaks a fixed 4-byte frame protocol over a
// serial link:
//
//   [payload-low, payload-high, checksum, command]
//
// checksum is payload-low ^ payload-high ^ command. The device replies
// every frame with a single acknowledgement byte, 0 for success.
//
// Frames may be sent back-to-back (pipelined) up to the depth of the
// device receive FIFO, and the acknowledgements are drained afterwards
// in the same order.
