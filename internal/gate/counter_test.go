package gate_test

import (
	"testing"

	"github.com/melizalab/capturectl/internal/gate"
	"github.com/stretchr/testify/require"
)

func crossingTrain(periods int, periodSize int, crossingsPerPeriod int) []float32 {
	// produce at least crossingsPerPeriod positive-going crossings per
	// period by alternating below/above the threshold (0.5) evenly spaced
	// within the period; the rounded-down spacing and the toggle at each
	// period start can add a crossing or two beyond that.
	out := make([]float32, periods*periodSize)
	for p := 0; p < periods; p++ {
		base := p * periodSize
		spacing := periodSize / (crossingsPerPeriod*2 + 1)
		if spacing < 1 {
			spacing = 1
		}
		high := false
		for i := 0; i < periodSize; i++ {
			if spacing > 0 && i%spacing == 0 {
				high = !high
			}
			if high {
				out[base+i] = 1.0
			} else {
				out[base+i] = 0.0
			}
		}
	}
	return out
}

func TestThresholdCounter_NoTriggerBelowCountThresh(t *testing.T) {
	c := gate.NewThresholdCounter(0.5, 100, 4)
	samples := crossingTrain(4, 100, 1)
	require.Equal(t, -1, c.Push(samples, 1000))
}

func TestThresholdCounter_TriggersOnPositiveThresh(t *testing.T) {
	c := gate.NewThresholdCounter(0.5, 100, 4)
	samples := crossingTrain(8, 100, 5)
	period := c.Push(samples, 10)
	require.GreaterOrEqual(t, period, 3) // window not full until period 3 (0-indexed)
}

func TestThresholdCounter_TriggersOnNegativeThresh(t *testing.T) {
	c := gate.NewThresholdCounter(0.5, 100, 4)
	// fill window with small counts, under-which running_sum < -thresh
	samples := crossingTrain(8, 100, 0)
	period := c.Push(samples, -1)
	require.GreaterOrEqual(t, period, 3)
}

func TestThresholdCounter_OnlyFirstTriggerRecordedPerCall(t *testing.T) {
	c := gate.NewThresholdCounter(0.5, 50, 2)
	samples := crossingTrain(10, 50, 5)
	period := c.Push(samples, 3)
	// every period holds 6 crossings, so the window (2 periods) first
	// exceeds 3 at period 1; later periods also exceed it but are not
	// recorded.
	require.Equal(t, 1, period)
	// window should still have advanced past the trigger period
	require.Greater(t, c.RunningSum(), 0)
}

func TestThresholdCounter_ResetClearsWindow(t *testing.T) {
	c := gate.NewThresholdCounter(0.5, 50, 2)
	c.Push(crossingTrain(4, 50, 5), 1000) // won't trigger, just fills window
	require.NotZero(t, c.RunningSum())
	c.Reset()
	require.Zero(t, c.RunningSum())
}

func TestThresholdCounter_SamplesInPeriodNeverReachesPeriodSize(t *testing.T) {
	c := gate.NewThresholdCounter(0.5, 10, 3)
	for total := 1; total <= 37; total++ {
		c.Push([]float32{0, 1}, 1000)
	}
	// no direct accessor for samplesInPeriod; indirectly checked via no panic
	// and RunningSum staying bounded by period contents.
	require.True(t, c.RunningSum() >= 0)
}
