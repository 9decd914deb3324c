// Package gate implements the windowed threshold-crossing discriminator
// that decides when the triggered writer's gate opens and closes.
package gate

// ThresholdCounter counts positive-going threshold crossings within a
// fixed-size analysis period and maintains a sliding sum over the last
// windowPeriods period totals. It is grounded on the jill WindowDiscriminator's
// ThresholdCounter (original_source/modules/window_discriminator.hh).
type ThresholdCounter struct {
	threshold    float32
	periodSize   int
	windowPeriods int

	lastSample       float32
	haveLastSample   bool
	crossingsInPeriod int
	samplesInPeriod   int

	periods    []int // fixed-size ring of the last <=windowPeriods period totals
	periodHead int    // index of the oldest entry
	periodLen  int    // number of valid entries
	runningSum int
}

// NewThresholdCounter builds a counter comparing against threshold,
// summing crossings over windowPeriods periods of periodSize samples each.
func NewThresholdCounter(threshold float32, periodSize, windowPeriods int) *ThresholdCounter {
	if periodSize <= 0 {
		panic("gate: periodSize must be positive")
	}
	if windowPeriods <= 0 {
		panic("gate: windowPeriods must be positive")
	}
	return &ThresholdCounter{
		threshold:     threshold,
		periodSize:    periodSize,
		windowPeriods: windowPeriods,
		periods:       make([]int, windowPeriods),
	}
}

// PeriodSize returns the configured analysis period size in samples.
func (c *ThresholdCounter) PeriodSize() int { return c.periodSize }

// Threshold returns the sample-amplitude threshold used for crossing
// detection. Open/close thresholds can be retuned live by callers that
// hold a reference to the counter.
func (c *ThresholdCounter) Threshold() float32 { return c.threshold }

// SetThreshold changes the crossing threshold.
func (c *ThresholdCounter) SetThreshold(t float32) { c.threshold = t }

// RunningSum returns the current sum over the populated window.
func (c *ThresholdCounter) RunningSum() int { return c.runningSum }

// full reports whether the window has been populated at least once,
// i.e. whether runningSum reflects a complete window.
func (c *ThresholdCounter) full() bool { return c.periodLen == c.windowPeriods }

// Reset clears in-period counters and the sliding window.
func (c *ThresholdCounter) Reset() {
	c.crossingsInPeriod = 0
	c.samplesInPeriod = 0
	c.periodHead = 0
	c.periodLen = 0
	c.runningSum = 0
	c.haveLastSample = false
}

// Push analyzes n samples, blocking them into periodSize-sample periods
// and comparing the running window sum against countThresh each time a
// period completes. countThresh may be positive (trigger when the sum
// exceeds it) or negative (trigger when the sum falls below its negation).
// It returns the index (0-based, in whole periods from the start of this
// call) of the first period, with the window full, at which the comparison
// holds, or -1 if none did. Counting and window maintenance continue for the rest of
// the call even after the first trigger is recorded.
func (c *ThresholdCounter) Push(samples []float32, countThresh int) int {
	triggeredAt := -1
	period := 0

	for i := 0; i < len(samples); i++ {
		if c.haveLastSample {
			if c.lastSample < c.threshold && samples[i] >= c.threshold {
				c.crossingsInPeriod++
			}
		}
		c.lastSample = samples[i]
		c.haveLastSample = true

		c.samplesInPeriod++
		if c.samplesInPeriod == c.periodSize {
			c.appendPeriod(c.crossingsInPeriod)
			c.samplesInPeriod = 0
			c.crossingsInPeriod = 0

			if triggeredAt < 0 && c.full() {
				if countThresh > 0 && c.runningSum > countThresh {
					triggeredAt = period
				} else if countThresh < 0 && c.runningSum < -countThresh {
					triggeredAt = period
				}
			}
			period++
		}
	}

	return triggeredAt
}

func (c *ThresholdCounter) appendPeriod(total int) {
	if c.periodLen == c.windowPeriods {
		c.runningSum -= c.periods[c.periodHead]
		c.periodHead = (c.periodHead + 1) % c.windowPeriods
		c.periodLen--
	}
	writeAt := (c.periodHead + c.periodLen) % c.windowPeriods
	c.periods[writeAt] = total
	c.periodLen++
	c.runningSum += total
}
