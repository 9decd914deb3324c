package writer_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/melizalab/capturectl/internal/event"
	"github.com/melizalab/capturectl/internal/gate"
	"github.com/melizalab/capturectl/internal/writer"
)

// fakeSoundFileWriter records OpenEntry/Write/CloseEntry calls and
// concatenates every written sample into the most recently opened entry,
// keyed by path, so tests can assert on exactly what landed in each file.
type fakeSoundFileWriter struct {
	openErr  error
	writeErr error
	shortBy  int // if > 0, the next Write accepts len(samples)-shortBy frames

	open      bool
	openCalls int
	entries   map[string][]float32
	curPath   string
}

func newFakeSoundFileWriter() *fakeSoundFileWriter {
	return &fakeSoundFileWriter{entries: make(map[string][]float32)}
}

func (f *fakeSoundFileWriter) OpenEntry(path string) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	f.openCalls++
	f.curPath = path
	f.entries[path] = nil
	return nil
}

func (f *fakeSoundFileWriter) Write(samples []float32) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	n := len(samples)
	if f.shortBy > 0 {
		n -= f.shortBy
		if n < 0 {
			n = 0
		}
		f.shortBy = 0
	}
	f.entries[f.curPath] = append(f.entries[f.curPath], samples[:n]...)
	return n, nil
}

func (f *fakeSoundFileWriter) CloseEntry() error {
	f.open = false
	return nil
}

// identityTemplate returns the entry number as the path, so each opened
// file gets a distinct, predictable name.
type identityTemplate struct{}

func (identityTemplate) Expand(_ string, vars map[string]string) string {
	return fmt.Sprintf("entry-%s.wav", vars["entry"])
}

// recordingLogger captures every event emitted during a test.
type recordingLogger struct {
	events []event.Event
}

func (l *recordingLogger) Event(e event.Event)                { l.events = append(l.events, e) }
func (l *recordingLogger) Errorf(format string, args ...any) {}

func (l *recordingLogger) kinds() []event.Kind {
	out := make([]event.Kind, len(l.events))
	for i, e := range l.events {
		out[i] = e.Kind
	}
	return out
}

func newTestWriter(sfw writer.SoundFileWriter, logger writer.Logger, openThresh, closeThresh int) *writer.TriggeredWriter {
	return newTestWriterWithRing(sfw, logger, openThresh, closeThresh, 100000)
}

func newTestWriterWithRing(sfw writer.SoundFileWriter, logger writer.Logger, openThresh, closeThresh, ringCapacity int) *writer.TriggeredWriter {
	openCounter := gate.NewThresholdCounter(0.5, 10, 3)
	closeCounter := gate.NewThresholdCounter(0.5, 10, 3)
	return writer.New(writer.Config{
		RingCapacity: ringCapacity,
		Prebuffer:    200,
		SampleRate:   1000,
		Template:     "unused",
		EntryStart:   1,
	}, openCounter, closeCounter, openThresh, closeThresh, sfw, identityTemplate{}, logger)
}

// tone generates a square wave alternating +amplitude/-amplitude every
// halfPeriod samples, producing one positive-going threshold crossing
// (through 0.5) every 2*halfPeriod samples.
func tone(n int, amplitude float32, halfPeriod int) []float32 {
	out := make([]float32, n)
	high := true
	for i := range out {
		if i > 0 && i%halfPeriod == 0 {
			high = !high
		}
		if high {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
	}
	return out
}

func silence(n int) []float32 { return make([]float32, n) }

func TestFlush_SilenceNeverOpensFile(t *testing.T) {
	sfw := newFakeSoundFileWriter()
	logger := &recordingLogger{}
	w := newTestWriter(sfw, logger, 5, 5)

	w.OnProcess(silence(500), 0)
	path, err := w.Flush()

	require.NoError(t, err)
	require.Empty(t, path)
	require.Equal(t, 0, sfw.openCalls)
	require.Empty(t, logger.events)
}

func TestFlush_SustainedBurstOpensAndEventuallyClosesFile(t *testing.T) {
	sfw := newFakeSoundFileWriter()
	logger := &recordingLogger{}
	w := newTestWriter(sfw, logger, 5, 5)

	// Enough crossings to exceed the open threshold, then silence long
	// enough to fall back below the close threshold.
	w.OnProcess(tone(2000, 0.9, 1), 0)
	_, err := w.Flush()
	require.NoError(t, err)
	require.Equal(t, 1, sfw.openCalls)

	w.OnProcess(silence(2000), 2000)
	_, err = w.Flush()
	require.NoError(t, err)

	require.Contains(t, logger.kinds(), event.GateOpen)
	require.Contains(t, logger.kinds(), event.GateClose)
}

func TestFlush_ClosedSpanFeedsPrebufferOnly(t *testing.T) {
	sfw := newFakeSoundFileWriter()
	logger := &recordingLogger{}
	w := newTestWriter(sfw, logger, 5, 5)

	w.OnProcess(silence(50), 0)
	path, err := w.Flush()

	require.NoError(t, err)
	require.Empty(t, path)
	require.Empty(t, logger.events)
}

func TestFlush_OpenFailurePreventsGateOpenEvent(t *testing.T) {
	sfw := newFakeSoundFileWriter()
	sfw.openErr = fmt.Errorf("disk full")
	logger := &recordingLogger{}
	w := newTestWriter(sfw, logger, 5, 5)

	w.OnProcess(tone(2000, 0.9, 1), 0)
	_, err := w.Flush()

	require.Error(t, err)
	require.Contains(t, logger.kinds(), event.OpenFailed)
	require.NotContains(t, logger.kinds(), event.GateOpen)
}

func TestFlush_SplitAcrossTwoCallsMatchesSingleCall(t *testing.T) {
	samples := tone(2000, 0.9, 5)

	sfwA := newFakeSoundFileWriter()
	wA := newTestWriter(sfwA, &recordingLogger{}, 5, 5)
	wA.OnProcess(samples, 0)
	_, err := wA.Flush()
	require.NoError(t, err)

	sfwB := newFakeSoundFileWriter()
	wB := newTestWriter(sfwB, &recordingLogger{}, 5, 5)
	wB.OnProcess(samples[:1000], 0)
	_, err = wB.Flush()
	require.NoError(t, err)
	wB.OnProcess(samples[1000:], 1000)
	_, err = wB.Flush()
	require.NoError(t, err)

	require.Equal(t, sfwA.openCalls, sfwB.openCalls)
	var totalA, totalB int
	for _, v := range sfwA.entries {
		totalA += len(v)
	}
	for _, v := range sfwB.entries {
		totalB += len(v)
	}
	require.Equal(t, totalA, totalB)
}

// TestFlush_WrapSplitSampleTimeMatchesNonWrapped guards against
// sample_time being computed relative to a single peeked span instead of
// the whole readable region: when the ringbuffer wraps mid-Flush, Peek2
// returns the transition's span and a non-empty trailing span the
// computation must still account for.
func TestFlush_WrapSplitSampleTimeMatchesNonWrapped(t *testing.T) {
	lead := silence(550)
	burst := tone(100, 0.9, 1)

	// Baseline: a large ring never wraps, so the burst lands in a single
	// Peek2 span.
	sfwA := newFakeSoundFileWriter()
	loggerA := &recordingLogger{}
	wA := newTestWriter(sfwA, loggerA, 5, 5)
	wA.OnProcess(lead, 0)
	_, err := wA.Flush()
	require.NoError(t, err)
	wA.OnProcess(burst, 550)
	_, err = wA.Flush()
	require.NoError(t, err)

	// A 600-sample ring forces the burst push to straddle the physical
	// end of the backing array: Peek2 splits it into a 50-sample span
	// before the wrap and a 50-sample span after.
	sfwB := newFakeSoundFileWriter()
	loggerB := &recordingLogger{}
	wB := newTestWriterWithRing(sfwB, loggerB, 5, 5, 600)
	wB.OnProcess(lead, 0)
	_, err = wB.Flush()
	require.NoError(t, err)
	wB.OnProcess(burst, 550)
	_, err = wB.Flush()
	require.NoError(t, err)

	findOpen := func(l *recordingLogger) *event.Event {
		for i := range l.events {
			if l.events[i].Kind == event.GateOpen {
				return &l.events[i]
			}
		}
		return nil
	}

	openA := findOpen(loggerA)
	openB := findOpen(loggerB)
	require.NotNil(t, openA)
	require.NotNil(t, openB)
	require.Equal(t, openA.SampleTime, openB.SampleTime)
}

func TestCloseEntry_IdempotentWhenNothingOpen(t *testing.T) {
	sfw := newFakeSoundFileWriter()
	logger := &recordingLogger{}
	w := newTestWriter(sfw, logger, 5, 5)

	require.NoError(t, w.CloseEntry())
	require.Empty(t, logger.events)
}

func TestCloseEntry_ClosesOpenSegmentOnShutdown(t *testing.T) {
	sfw := newFakeSoundFileWriter()
	logger := &recordingLogger{}
	w := newTestWriter(sfw, logger, 5, 5)

	w.OnProcess(tone(2000, 0.9, 1), 0)
	_, err := w.Flush()
	require.NoError(t, err)
	require.True(t, sfw.open)

	require.NoError(t, w.CloseEntry())
	require.False(t, sfw.open)
	require.Contains(t, logger.kinds(), event.GateClose)
}
