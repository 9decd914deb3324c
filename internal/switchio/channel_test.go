package switchio_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/melizalab/capturectl/internal/gate"
	"github.com/melizalab/capturectl/internal/switchio"
)

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

func TestChannelSwitch_AssertsOnSustainedCrossings(t *testing.T) {
	counter := gate.NewThresholdCounter(0.5, 10, 3)
	sw := switchio.NewChannelSwitch(counter, 5)

	require.False(t, sw.GetState())

	sw.Push(tone(2000, 0.9, 1))
	require.True(t, sw.GetState())
	// edge-triggered: clears after one read
	require.False(t, sw.GetState())
}

func TestChannelSwitch_SilenceNeverAsserts(t *testing.T) {
	counter := gate.NewThresholdCounter(0.5, 10, 3)
	sw := switchio.NewChannelSwitch(counter, 5)

	sw.Push(make([]float32, 1000))
	require.False(t, sw.GetState())
}
