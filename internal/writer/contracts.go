package writer

import "github.com/melizalab/capturectl/internal/event"

// SoundFileWriter is the external collaborator that owns on-disk sound
// file lifecycle. TriggeredWriter borrows it for the duration of one
// segment.
type SoundFileWriter interface {
	// OpenEntry creates the next output file at path and prepares it to
	// receive Write calls. Any error it returns is wrapped in
	// ErrOpenFailed by the TriggeredWriter.
	OpenEntry(path string) error
	// Write appends samples to the currently open entry and returns the
	// number of frames actually written. A short write (n < len(samples))
	// with a nil error is treated the same as an error: fatal to the
	// segment.
	Write(samples []float32) (int, error)
	// CloseEntry finalizes and closes the currently open entry.
	CloseEntry() error
}

// TemplateExpander renders an output filename from a template string and
// a set of bound variables.
type TemplateExpander interface {
	Expand(template string, vars map[string]string) string
}

// Logger is the event sink the writer reports transitions and errors
// through: Event takes transition and error records, Errorf free-form
// error lines.
type Logger interface {
	Event(e event.Event)
	Errorf(format string, args ...any)
}
