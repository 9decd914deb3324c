package gate_test

import (
	"testing"

	"github.com/melizalab/capturectl/internal/gate"
	"github.com/stretchr/testify/require"
)

func newTestGate(openThresh, closeThresh int) *gate.Gate {
	oc := gate.NewThresholdCounter(0.5, 20, 3)
	cc := gate.NewThresholdCounter(0.5, 20, 3)
	return gate.New(oc, cc, openThresh, closeThresh)
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

func TestGate_StaysClosedOnSilence(t *testing.T) {
	g := newTestGate(5, 5)
	silence := make([]float32, 2000)
	offset := g.Push(silence)
	require.Equal(t, -1, offset)
	require.Equal(t, gate.Closed, g.State())
}

func TestGate_OpensOnSustainedCrossings(t *testing.T) {
	g := newTestGate(3, 3)
	loud := tone(2000, 0.9, 5)
	offset := g.Push(loud)
	require.NotEqual(t, -1, offset)
	require.Equal(t, gate.Open, g.State())
}

func TestGate_IdempotentAcrossSplit(t *testing.T) {
	loud := tone(4000, 0.9, 5)

	g1 := newTestGate(3, 3)
	off1 := g1.Push(loud)

	g2 := newTestGate(3, 3)
	mid := len(loud) / 2
	offA := g2.Push(loud[:mid])
	var offB int
	if offA == -1 {
		offB = g2.Push(loud[mid:])
		if offB >= 0 {
			offB += mid
		}
	} else {
		offB = -1
	}

	firstSplitOffset := offA
	if firstSplitOffset == -1 {
		firstSplitOffset = offB
	}

	require.Equal(t, off1, firstSplitOffset)
}

func TestGate_CloseAfterOpen(t *testing.T) {
	g := newTestGate(3, 3)
	loud := tone(1000, 0.9, 5)
	off := g.Push(loud)
	require.NotEqual(t, -1, off)
	require.Equal(t, gate.Open, g.State())

	silence := make([]float32, 4000)
	off2 := g.Push(silence)
	require.NotEqual(t, -1, off2)
	require.Equal(t, gate.Closed, g.State())
}
