package prebuffer_test

import (
	"testing"

	"github.com/melizalab/capturectl/internal/prebuffer"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPush_RetainsMostRecentWhenOverflowing(t *testing.T) {
	b := prebuffer.New(5)
	b.Push([]float32{1, 2, 3, 4, 5, 6, 7})
	require.Equal(t, 5, b.Size())
	require.Equal(t, []float32{3, 4, 5, 6, 7}, b.Snapshot(5))
}

func TestPush_IncrementalEviction(t *testing.T) {
	b := prebuffer.New(5)
	b.Push([]float32{1, 2, 3})
	b.Push([]float32{4, 5})
	require.Equal(t, []float32{1, 2, 3, 4, 5}, b.Snapshot(5))

	b.Push([]float32{6, 7})
	require.Equal(t, []float32{3, 4, 5, 6, 7}, b.Snapshot(5))
}

func TestReset_ClearsContents(t *testing.T) {
	b := prebuffer.New(4)
	b.Push([]float32{1, 2, 3})
	b.Reset()
	require.Equal(t, 0, b.Size())
	require.Empty(t, b.Snapshot(4))
}

func TestSnapshot_MatchesTailOfAnyStream(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		capacity := rapid.IntRange(1, 40).Draw(rt, "capacity")
		b := prebuffer.New(capacity)

		var stream []float32
		rounds := rapid.IntRange(0, 20).Draw(rt, "rounds")
		val := float32(0)
		for i := 0; i < rounds; i++ {
			n := rapid.IntRange(0, capacity*2).Draw(rt, "n")
			chunk := make([]float32, n)
			for j := range chunk {
				chunk[j] = val
				val++
			}
			b.Push(chunk)
			stream = append(stream, chunk...)
		}

		want := stream
		if len(want) > capacity {
			want = want[len(want)-capacity:]
		}
		require.Equal(t, want, b.Snapshot(b.Size()))
		require.Equal(t, len(want), b.Size())

		if b.Size() > 0 {
			k := rapid.IntRange(0, b.Size()).Draw(rt, "k")
			require.Equal(t, want[len(want)-k:], b.Snapshot(k))
		}
	})
}
