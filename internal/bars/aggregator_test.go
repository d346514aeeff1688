package bars

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFeedTickAccumulatesUntilBoundary(t *testing.T) {
	a := NewAggregator()
	base := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)

	ev := a.FeedTick(Tick{Time: base, Price: 10.0, Size: 100})
	require.Equal(t, EventNone, ev.Kind)

	ev = a.FeedTick(Tick{Time: base.Add(2 * time.Second), Price: 10.5, Size: 50})
	require.Equal(t, EventNone, ev.Kind)

	// crosses the 5s boundary -> first sub-bar closes
	ev = a.FeedTick(Tick{Time: base.Add(5 * time.Second), Price: 10.2, Size: 25})
	require.Equal(t, EventSubBar, ev.Kind)
	require.Equal(t, 10.0, ev.SubBar.Open)
	require.Equal(t, 10.5, ev.SubBar.High)
	require.Equal(t, 10.5, ev.SubBar.Close)
	require.EqualValues(t, 150, ev.SubBar.Volume)
	require.EqualValues(t, 0, ev.AbsIdx)
}

func TestFeedTickClosesCandleOnTwelfthSubBar(t *testing.T) {
	a := NewAggregator()
	base := time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC)

	var lastEv Event
	// 13 ticks spaced 5s apart produces 12 closed sub-bars (the 13th
	// tick's arrival closes the 12th sub-bar and, since it is the last
	// of the minute, the candle too).
	for i := 0; i <= 12; i++ {
		lastEv = a.FeedTick(Tick{Time: base.Add(time.Duration(i) * 5 * time.Second), Price: 10.0 + float64(i)*0.1, Size: 10})
	}

	require.Equal(t, EventCandle, lastEv.Kind)
	require.Equal(t, base, lastEv.Candle.Bar.Time)
	require.EqualValues(t, 120, lastEv.Candle.Bar.Volume)
}

func TestFeedHistoricalMinuteSplitsIntoTwelveSubBarsPreservingVolume(t *testing.T) {
	a := NewAggregator()
	minute := Bar{
		Time:   time.Date(2026, 7, 31, 9, 31, 0, 0, time.UTC),
		Open:   20.0,
		High:   20.5,
		Low:    19.8,
		Close:  20.3,
		Volume: 1200,
	}

	ev := a.FeedHistoricalMinute(minute)
	require.Equal(t, EventCandle, ev.Kind)

	var total int64
	for i, sb := range ev.Candle.SubBars {
		total += sb.Volume
		require.Equal(t, minute.Open, sb.Open)
		require.Equal(t, minute.Close, sb.Close)
		require.Equal(t, minute.Time.Add(time.Duration(i)*5*time.Second), sb.Time)
	}
	require.Equal(t, minute.Volume, total)
	require.EqualValues(t, 12, a.Ring.TotalCount)
}

func TestFeedHistoricalMinuteAbsoluteIndexAdvancesMonotonically(t *testing.T) {
	a := NewAggregator()
	m1 := Bar{Time: time.Date(2026, 7, 31, 9, 30, 0, 0, time.UTC), Volume: 120}
	m2 := Bar{Time: time.Date(2026, 7, 31, 9, 31, 0, 0, time.UTC), Volume: 120}

	ev1 := a.FeedHistoricalMinute(m1)
	ev2 := a.FeedHistoricalMinute(m2)

	require.EqualValues(t, 11, ev1.AbsIdx)
	require.EqualValues(t, 23, ev2.AbsIdx)
	require.EqualValues(t, 24, a.Ring.TotalCount)
}
