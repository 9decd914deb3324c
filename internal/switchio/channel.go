package switchio

import "github.com/melizalab/capturectl/internal/gate"

// ChannelSwitch treats a secondary audio input stream as a trigger
// source by routing it through a gate.ThresholdCounter: a Push during
// which the counter's sliding window crossing sum exceeds the configured
// threshold counts as a switch assertion. Grounds spec.md's mention of "a secondary
// trigger channel" as a switch implementation.
type ChannelSwitch struct {
	counter     *gate.ThresholdCounter
	countThresh int
	asserted    bool
}

// NewChannelSwitch wraps counter, triggering when its sliding window sum
// exceeds countThresh.
func NewChannelSwitch(counter *gate.ThresholdCounter, countThresh int) *ChannelSwitch {
	return &ChannelSwitch{counter: counter, countThresh: countThresh}
}

// Push feeds the next block of the secondary channel to the underlying
// counter. Call this once per audio block before polling GetState.
func (s *ChannelSwitch) Push(samples []float32) {
	if s.counter.Push(samples, s.countThresh) >= 0 {
		s.asserted = true
	}
}

// GetState reports and clears whether Push has observed a new trigger
// since the last call, giving the same edge-triggered contract as the
// other Switch implementations.
func (s *ChannelSwitch) GetState() bool {
	v := s.asserted
	s.asserted = false
	return v
}
