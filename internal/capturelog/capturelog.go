// Package capturelog wraps github.com/charmbracelet/log in a Logger with
// three methods (Event, Infof, Errorf) that satisfies the writer.Logger
// and switchtracker.Logger interfaces; it has no single Log(level,
// message) method. Event renders the "[program] wall_time frame_time
// EVENT_KIND details" line shape from spec.md §6 for gate/switch
// transition events.
package capturelog

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/melizalab/capturectl/internal/event"
)

// Logger adapts charmbracelet/log to the writer.Logger and
// switchtracker.Logger interfaces.
type Logger struct {
	program string
	l       *log.Logger
}

// New builds a Logger that tags every line with program and logs at
// level (one of log.DebugLevel, log.InfoLevel, log.WarnLevel,
// log.ErrorLevel).
func New(program string, level log.Level) *Logger {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
	return &Logger{program: program, l: l}
}

// Event formats and emits one capture-engine transition event as
// "[program] wall_time frame_time EVENT_KIND details".
func (lg *Logger) Event(e event.Event) {
	line := fmt.Sprintf("[%s] %s %d %s", lg.program, e.WallTime.Format("2006-01-02T15:04:05.000"), e.SampleTime, e.Kind)
	if e.Details != "" {
		line += " " + e.Details
	}

	switch e.Kind {
	case event.Overrun, event.WriteShort, event.WriteFailed, event.OpenFailed:
		lg.l.Warn(line)
	default:
		lg.l.Info(line)
	}
}

// Infof logs a free-form informational line, used by the switch tracker
// for the non-event "NO PLAYBACK: ..." diagnostics.
func (lg *Logger) Infof(format string, args ...any) {
	lg.l.Infof(format, args...)
}

// Errorf logs a free-form error line.
func (lg *Logger) Errorf(format string, args ...any) {
	lg.l.Errorf(format, args...)
}
