package gate

// State is the two-state gate machine: Closed (the initial state) or
// Open.
type State int

const (
	Closed State = iota
	Open
)

func (s State) String() string {
	if s == Open {
		return "open"
	}
	return "closed"
}

// Gate is the window discriminator from spec: two ThresholdCounters
// (open and close) drive a two-state gate. It is grounded on
// original_source/modules/window_discriminator.hh's WindowDiscriminator,
// with the tail-push sign corrected per the REDESIGN note there: after a
// transition, the counter that now needs to watch for the *opposite*
// transition is armed with its own signed comparison argument, not the
// argument that just fired.
type Gate struct {
	state State

	openCounter  *ThresholdCounter
	closeCounter *ThresholdCounter

	openCountThresh  int // > 0
	closeCountThresh int // > 0; compared as negative against the close counter
}

// New builds a Gate. openCountThresh and closeCountThresh must both be
// positive; the close counter is internally compared against
// -closeCountThresh (the window must cross *below* this many crossings to
// close the gate).
func New(openCounter, closeCounter *ThresholdCounter, openCountThresh, closeCountThresh int) *Gate {
	if openCountThresh <= 0 || closeCountThresh <= 0 {
		panic("gate: open/close count thresholds must be positive")
	}
	return &Gate{
		openCounter:      openCounter,
		closeCounter:     closeCounter,
		openCountThresh:  openCountThresh,
		closeCountThresh: closeCountThresh,
	}
}

// State returns the gate's current state.
func (g *Gate) State() State { return g.state }

// Push analyzes n samples and returns the sample offset within samples at
// which the gate transitioned, or -1 if it didn't transition during this
// call. At most one transition is reported per call; if the newly-armed
// counter would also trigger within the remaining tail, that is left for
// the next Push call to discover (matching the reference discriminator,
// which only looks one level deep per call).
func (g *Gate) Push(samples []float32) int {
	if g.state == Closed {
		period := g.openCounter.Push(samples, g.openCountThresh)
		if period < 0 {
			return -1
		}
		offset := period * g.openCounter.PeriodSize()
		g.state = Open
		g.openCounter.Reset()
		g.closeCounter.Push(samples[offset:], -g.closeCountThresh)
		return offset
	}

	period := g.closeCounter.Push(samples, -g.closeCountThresh)
	if period < 0 {
		return -1
	}
	offset := period * g.closeCounter.PeriodSize()
	g.state = Closed
	g.closeCounter.Reset()
	g.openCounter.Push(samples[offset:], g.openCountThresh)
	return offset
}

// OpenThreshold and CloseThreshold expose the sample-amplitude
// thresholds of the underlying counters so callers can retune them live.
func (g *Gate) OpenThreshold() float32  { return g.openCounter.Threshold() }
func (g *Gate) CloseThreshold() float32 { return g.closeCounter.Threshold() }

func (g *Gate) SetOpenThreshold(t float32)  { g.openCounter.SetThreshold(t) }
func (g *Gate) SetCloseThreshold(t float32) { g.closeCounter.SetThreshold(t) }

// ForceClosed snaps the gate back to Closed without going through the
// normal threshold-crossing transition, resetting both counters. Used
// when an output file could not be opened on what would otherwise be a
// Closed->Open transition: the discriminator's own history of crossings
// is discarded along with the aborted transition, since there is no
// file to represent it.
func (g *Gate) ForceClosed() {
	g.state = Closed
	g.openCounter.Reset()
	g.closeCounter.Reset()
}
