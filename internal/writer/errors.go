package writer

import "errors"

// Sentinel errors surfaced through the logger and, at shutdown, the
// process exit code. None of these are retried within a segment: an
// overrun or a short/failed write is fatal to the current segment, and
// a failed file open forces the gate back to Closed without emitting a
// GateOpen event.
var (
	// ErrOverrun indicates the realtime ringbuffer accepted fewer
	// samples than were pushed to it.
	ErrOverrun = errors.New("writer: ringbuffer overrun")
	// ErrWriteShort indicates the sound file writer wrote fewer frames
	// than requested or returned a write error (which it then wraps).
	ErrWriteShort = errors.New("writer: short write to sound file")
	// ErrOpenFailed indicates the sound file writer could not create
	// the next output file.
	ErrOpenFailed = errors.New("writer: failed to open output file")
)
