package bars

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRingEvictionAndAbsoluteIndexing(t *testing.T) {
	r := NewRing(3)

	base := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		r.Push(Bar{Time: base.Add(time.Duration(i) * 5 * time.Second), Close: float64(i)})
	}

	require.EqualValues(t, 5, r.TotalCount)

	// indices 0 and 1 evicted, only 2,3,4 resident
	require.True(t, r.Evicted(0))
	require.True(t, r.Evicted(1))
	require.False(t, r.Evicted(2))
	require.False(t, r.Evicted(4))
	require.True(t, r.Evicted(5))

	b, ok := r.At(2)
	require.True(t, ok)
	require.Equal(t, 2.0, b.Close)

	_, ok = r.At(0)
	require.False(t, ok)

	last, ok := r.Last()
	require.True(t, ok)
	require.Equal(t, 4.0, last.Close)
	require.EqualValues(t, 4, r.LastIndex())
}

func TestRingValidateRangeRejectsPartiallyEvictedWindow(t *testing.T) {
	r := NewRing(3)
	base := time.Now()
	for i := 0; i < 4; i++ {
		r.Push(Bar{Time: base, Close: float64(i)})
	}

	// absolute range [0,2] spans an evicted bar (0) -> rejected
	_, _, ok := r.ValidateRange(0, 2)
	require.False(t, ok)

	// fully resident range
	fo, to, ok := r.ValidateRange(1, 3)
	require.True(t, ok)
	require.Equal(t, 0, fo)
	require.Equal(t, 2, to)

	sl := r.Slice(1, 3)
	require.Len(t, sl, 3)
	require.Equal(t, 1.0, sl[0].Close)
	require.Equal(t, 3.0, sl[2].Close)
}

func TestRingSliceNilOnEvictedRange(t *testing.T) {
	r := NewRing(2)
	for i := 0; i < 5; i++ {
		r.Push(Bar{Close: float64(i)})
	}
	require.Nil(t, r.Slice(0, 1))
}
