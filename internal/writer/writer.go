// Package writer implements the triggered capture orchestrator: the
// realtime producer side that pushes samples into the ringbuffer, and
// the non-realtime flush loop that drains it through the gate into the
// prebuffer or the sound file writer.
package writer

import (
	"fmt"
	"sync"
	"time"

	"github.com/melizalab/capturectl/internal/event"
	"github.com/melizalab/capturectl/internal/gate"
	"github.com/melizalab/capturectl/internal/prebuffer"
	"github.com/melizalab/capturectl/internal/ring"
	"github.com/melizalab/capturectl/internal/template"
)

// Config bundles the fixed parameters of a TriggeredWriter.
type Config struct {
	RingCapacity int
	Prebuffer    int
	SampleRate   int
	Template     string
	EntryStart   int
}

// TriggeredWriter is the realtime-producer/non-realtime-consumer
// orchestrator described in the capture engine design: OnProcess runs on
// the audio callback thread and must never block or allocate; Flush runs
// on the writer thread and owns the prebuffer, the gate, and all file
// I/O. Grounded on original_source/modules/triggered_writer.hh.
type TriggeredWriter struct {
	ring   *ring.Buffer
	gate   *gate.Gate
	prebuf *prebuffer.Buffer

	sfw      SoundFileWriter
	template TemplateExpander
	logger   Logger

	templateString string
	sampleRate     int

	// timeMu guards lastFrameTime. The realtime producer uses TryLock
	// and silently skips the update on contention; the writer thread
	// uses a blocking Lock since it is not latency-sensitive.
	timeMu        sync.Mutex
	lastFrameTime uint64

	// fields below are touched only by the writer thread (Flush/CloseEntry).
	segmentOpen      bool
	currentPath      string
	entryCount       int
	totalFrames      uint64
	lastLoggedOverrun uint64
}

// New builds a TriggeredWriter wired to the given collaborators.
func New(cfg Config, openCounter, closeCounter *gate.ThresholdCounter, openCountThresh, closeCountThresh int, sfw SoundFileWriter, tmpl TemplateExpander, logger Logger) *TriggeredWriter {
	return &TriggeredWriter{
		ring:           ring.New(cfg.RingCapacity),
		gate:           gate.New(openCounter, closeCounter, openCountThresh, closeCountThresh),
		prebuf:         prebuffer.New(cfg.Prebuffer),
		sfw:            sfw,
		template:       tmpl,
		logger:         logger,
		templateString: cfg.Template,
		sampleRate:     cfg.SampleRate,
		entryCount:     cfg.EntryStart,
	}
}

// OnProcess is the realtime callback: it pushes n samples into the
// ringbuffer and records the frame time of this block under a try-lock.
// It never blocks, allocates, logs, or performs I/O.
func (w *TriggeredWriter) OnProcess(samples []float32, frameTimeStart uint64) {
	w.ring.Push(samples)

	if w.timeMu.TryLock() {
		w.lastFrameTime = frameTimeStart + uint64(len(samples))
		w.timeMu.Unlock()
	}
}

// frameTime reads the last-recorded frame time. Called only from the
// writer thread, so a normal (non-try) lock is fine here.
func (w *TriggeredWriter) frameTime() uint64 {
	w.timeMu.Lock()
	defer w.timeMu.Unlock()
	return w.lastFrameTime
}

// Flush drains the ringbuffer's currently readable region through the
// gate, returns the path of any file created or closed during this call,
// and advances the read cursor by everything it consumed. It returns
// ErrOverrun when the ringbuffer dropped samples since the previous call,
// otherwise an error from processing the drained samples, if any. It must
// be called only from the single non-realtime writer thread.
func (w *TriggeredWriter) Flush() (string, error) {
	var firstErr error
	overrunsBefore := w.lastLoggedOverrun
	w.checkOverrun()
	if w.lastLoggedOverrun != overrunsBefore {
		firstErr = ErrOverrun
	}

	first, second := w.ring.Peek2()
	total := len(first) + len(second)
	if total == 0 {
		return "", firstErr
	}

	var path string

	// tailAfter is how many readable samples follow each span before the
	// end of this flush's whole readable region (first+second); frameTime
	// always refers to the end of that whole region, so a transition's
	// sample_time must subtract the distance to the end of the region,
	// not just to the end of whichever span it falls in.
	if len(first) > 0 {
		if p, err := w.processSpan(first, len(second)); p != "" {
			path = p
		} else if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if len(second) > 0 {
		if p, err := w.processSpan(second, 0); p != "" {
			path = p
		} else if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	w.ring.ReadAdvance(total)
	return path, firstErr
}

// checkOverrun detects new ringbuffer overruns since the last Flush call
// and, if any occurred, logs an Overrun event and abandons the currently
// open entry (fatal to the segment, per the error handling design). The
// gate's own state is left untouched: an overrun is data loss on the
// realtime producer side, not a discriminator transition.
func (w *TriggeredWriter) checkOverrun() {
	current := w.ring.Overruns()
	if current <= w.lastLoggedOverrun {
		return
	}
	w.lastLoggedOverrun = current

	w.logger.Event(event.Event{
		Kind:       event.Overrun,
		SampleTime: w.frameTime(),
		WallTime:   time.Now(),
		Details:    fmt.Sprintf("ringbuffer overrun, %d samples lost", current),
	})

	if w.segmentOpen {
		_ = w.sfw.CloseEntry()
		w.segmentOpen = false
		w.currentPath = ""
	}
}

// processSpan runs one contiguous span through the gate and performs the
// side effects the resulting transition (or lack of one) calls for.
// tailAfter is the number of readable samples following span before the
// end of this Flush's whole readable region, needed to compute a
// transition's sample_time correctly when the region wraps and is
// peeked as two spans.
func (w *TriggeredWriter) processSpan(span []float32, tailAfter int) (string, error) {
	n := len(span)
	offset := w.gate.Push(span)
	nowOpen := w.gate.State() == gate.Open

	switch {
	case offset < 0 && !nowOpen:
		// Closed throughout: the whole span is pre-onset context.
		w.prebuf.Push(span)
		w.totalFrames += uint64(n)
		return "", nil

	case offset < 0 && nowOpen:
		// Open throughout. Ordinarily this writes straight to the
		// current entry; if a prior overrun abandoned the entry while
		// the discriminator's own state stayed Open, re-open a fresh
		// entry now rather than lose the rest of the segment.
		if !w.segmentOpen {
			if path, err := w.openNewEntry(); err != nil {
				w.totalFrames += uint64(n)
				return "", err
			} else {
				w.currentPath = path
				w.segmentOpen = true
			}
		}
		if err := w.writeOrAbandon(span); err != nil {
			w.totalFrames += uint64(n)
			return "", err
		}
		w.totalFrames += uint64(n)
		return "", nil

	case offset >= 0 && nowOpen:
		// Opened within this span.
		path, err := w.handleOpen(span, offset, n, tailAfter)
		w.totalFrames += uint64(n)
		return path, err

	default: // offset >= 0 && !nowOpen
		// Closed within this span.
		path, err := w.handleClose(span, offset, n, tailAfter)
		w.totalFrames += uint64(n)
		return path, err
	}
}

func (w *TriggeredWriter) handleOpen(span []float32, offset, n, tailAfter int) (string, error) {
	sampleTime := w.frameTime() - uint64(tailAfter+n-offset)

	path, err := w.openNewEntry()
	if err != nil {
		// Force the gate back closed: there is no file to represent
		// this transition, so we never emitted it.
		w.gate.ForceClosed()
		w.logger.Event(event.Event{
			Kind:       event.OpenFailed,
			SampleTime: sampleTime,
			WallTime:   time.Now(),
			Details:    err.Error(),
		})
		return "", err
	}
	w.currentPath = path
	w.segmentOpen = true

	if snap := w.prebuf.Snapshot(w.prebuf.Size()); len(snap) > 0 {
		if err := w.writeOrAbandon(snap); err != nil {
			return path, err
		}
	}
	if err := w.writeOrAbandon(span[offset:n]); err != nil {
		return path, err
	}
	w.prebuf.Reset()

	w.logger.Event(event.Event{
		Kind:       event.GateOpen,
		SampleTime: sampleTime,
		WallTime:   time.Now(),
	})
	return path, nil
}

func (w *TriggeredWriter) handleClose(span []float32, offset, n, tailAfter int) (string, error) {
	sampleTime := w.frameTime() - uint64(tailAfter+n-offset)

	if err := w.writeOrAbandon(span[0:offset]); err != nil {
		return "", err
	}

	path := w.currentPath
	if err := w.sfw.CloseEntry(); err != nil {
		w.logger.Event(event.Event{
			Kind:       event.WriteFailed,
			SampleTime: sampleTime,
			WallTime:   time.Now(),
			Details:    err.Error(),
		})
	}
	w.segmentOpen = false
	w.currentPath = ""

	w.logger.Event(event.Event{
		Kind:       event.GateClose,
		SampleTime: sampleTime,
		WallTime:   time.Now(),
	})

	// Post-close samples become future pre-onset context.
	w.prebuf.Push(span[offset:n])
	return path, nil
}

// writeOrAbandon writes samples to the currently open entry. A short
// write or a write error is fatal to the segment: the entry is closed,
// the gate is forced closed, and an event is logged.
func (w *TriggeredWriter) writeOrAbandon(samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	written, err := w.sfw.Write(samples)
	if err == nil && written == len(samples) {
		return nil
	}

	kind := event.WriteFailed
	details := ""
	if err != nil {
		details = err.Error()
	} else {
		kind = event.WriteShort
		details = fmt.Sprintf("wrote %d of %d frames", written, len(samples))
	}

	w.logger.Event(event.Event{
		Kind:       kind,
		SampleTime: w.frameTime(),
		WallTime:   time.Now(),
		Details:    details,
	})

	_ = w.sfw.CloseEntry()
	w.segmentOpen = false
	w.currentPath = ""
	w.gate.ForceClosed()

	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteShort, err)
	}
	return ErrWriteShort
}

func (w *TriggeredWriter) openNewEntry() (string, error) {
	vars := template.WallClockVars(time.Now())
	vars["entry"] = fmt.Sprintf("%d", w.entryCount)
	vars["total_msec"] = fmt.Sprintf("%d", w.totalFrames*1000/uint64(max(1, w.sampleRate)))

	path := w.template.Expand(w.templateString, vars)

	if err := w.sfw.OpenEntry(path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	w.entryCount++
	return path, nil
}

// CloseEntry closes the currently open segment, if any, and emits a
// GateClose event. Idempotent when the gate is already Closed.
func (w *TriggeredWriter) CloseEntry() error {
	if w.gate.State() != gate.Open && !w.segmentOpen {
		return nil
	}

	sampleTime := w.frameTime()
	var err error
	if w.segmentOpen {
		err = w.sfw.CloseEntry()
		w.segmentOpen = false
		w.currentPath = ""
	}
	w.gate.ForceClosed()

	w.logger.Event(event.Event{
		Kind:       event.GateClose,
		SampleTime: sampleTime,
		WallTime:   time.Now(),
	})
	return err
}
