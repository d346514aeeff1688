package bars

import "time"

// EventKind tags what, if anything, closed on this tick/minute-bar.
type EventKind int

const (
	EventNone EventKind = iota
	EventSubBar
	EventCandle
)

// Event is the result of feeding one tick (live mode) or one historical
// minute bar (backtest mode) into the Aggregator.
type Event struct {
	Kind    EventKind
	SubBar  Bar    // valid when Kind != EventNone
	Candle  Candle // valid when Kind == EventCandle
	AbsIdx  int64  // absolute sub-bar index assigned to SubBar
}

// RingCapacity is the default bounded ring buffer size: 240 sub-bars,
// i.e. 20 minutes at 5-second resolution.
const RingCapacity = 240

// Aggregator turns a tick stream (live) or 1-minute historical bars
// (backtest) into a uniform 5-second sub-bar / 1-minute candle stream.
// total_bar_count (Ring.TotalCount) is absolute and monotonic; the ring
// itself is bounded and evicts silently once full.
type Aggregator struct {
	Ring *Ring

	minuteStart time.Time
	subIdxInMin int // 0..11, position of the in-progress sub-bar within its minute
	subBars     [12]Bar

	// live-mode accumulation state for the in-progress sub-bar
	curOpen, curHigh, curLow, curClose float64
	curVolume                          int64
	curTicks                           int64
	curStart                           time.Time
	haveCur                            bool
}

// NewAggregator creates an aggregator with the default ring capacity.
func NewAggregator() *Aggregator {
	return &Aggregator{Ring: NewRing(RingCapacity)}
}

// FeedTick accumulates one live tick into the in-progress 5-second
// sub-bar, closing it (and, on minute boundaries, the enclosing
// candle) when wall-clock crosses the boundary.
func (a *Aggregator) FeedTick(t Tick) Event {
	bucket := t.Time.Truncate(5 * time.Second)

	if !a.haveCur {
		a.startSubBar(bucket, t)
		return Event{Kind: EventNone}
	}

	if bucket.Equal(a.curStart) {
		a.extendSubBar(t)
		return Event{Kind: EventNone}
	}

	// Boundary crossed: close the in-progress sub-bar, then start a new one.
	closed := a.closeSubBar()
	ev := a.emitSubBar(closed)
	a.startSubBar(bucket, t)
	return ev
}

func (a *Aggregator) startSubBar(bucket time.Time, t Tick) {
	a.curStart = bucket
	a.curOpen = t.Price
	a.curHigh = t.Price
	a.curLow = t.Price
	a.curClose = t.Price
	a.curVolume = t.Size
	a.curTicks = 1
	a.haveCur = true
}

func (a *Aggregator) extendSubBar(t Tick) {
	if t.Price > a.curHigh {
		a.curHigh = t.Price
	}
	if t.Price < a.curLow {
		a.curLow = t.Price
	}
	a.curClose = t.Price
	a.curVolume += t.Size
	a.curTicks++
}

func (a *Aggregator) closeSubBar() Bar {
	b := Bar{
		Time:      a.curStart,
		Open:      a.curOpen,
		High:      a.curHigh,
		Low:       a.curLow,
		Close:     a.curClose,
		Volume:    a.curVolume,
		TickCount: a.curTicks,
	}
	if b.Volume > 0 {
		b.VWAP = (b.High + b.Low + b.Close) / 3.0
	}
	a.haveCur = false
	return b
}

// FeedHistoricalMinute splits one historical 1-minute bar into twelve
// identical sub-bars, each carrying one-twelfth of the minute's
// volume, so the state machine's "bars into a candle" notion (0..11)
// is preserved exactly as in live mode. Returns the Candle event for
// the closed minute (backtest bars always close their own minute).
func (a *Aggregator) FeedHistoricalMinute(minute Bar) Event {
	minuteStart := minute.Time.Truncate(time.Minute)
	perSub := minute.Volume / 12
	remainder := minute.Volume % 12

	var subBars [12]Bar
	var lastIdx int64
	for i := 0; i < 12; i++ {
		vol := perSub
		if i == 11 {
			vol += remainder // keep the total exact
		}
		sb := Bar{
			Time:      minuteStart.Add(time.Duration(i) * 5 * time.Second),
			Open:      minute.Open,
			High:      minute.High,
			Low:       minute.Low,
			Close:     minute.Close,
			Volume:    vol,
			VWAP:      minute.VWAP,
			TickCount: minute.TickCount / 12,
		}
		subBars[i] = sb
		lastIdx = a.Ring.Push(sb)
	}

	candle := Candle{
		Bar:     minute,
		SubBars: subBars,
	}
	return Event{Kind: EventCandle, SubBar: subBars[11], Candle: candle, AbsIdx: lastIdx}
}

func (a *Aggregator) emitSubBar(b Bar) Event {
	idx := a.Ring.Push(b)

	minute := b.Time.Truncate(time.Minute)
	if !minute.Equal(a.minuteStart) {
		a.minuteStart = minute
		a.subIdxInMin = 0
	}
	a.subBars[a.subIdxInMin] = b
	closesMinute := a.subIdxInMin == 11 || b.Time.Add(5*time.Second).Truncate(time.Minute).After(minute)
	a.subIdxInMin++

	if !closesMinute {
		return Event{Kind: EventSubBar, SubBar: b, AbsIdx: idx}
	}

	candleBar := foldCandle(a.subBars, a.subIdxInMin, minute)
	a.subIdxInMin = 0
	return Event{
		Kind:   EventCandle,
		SubBar: b,
		AbsIdx: idx,
		Candle: Candle{Bar: candleBar, SubBars: a.subBars},
	}
}

func foldCandle(subs [12]Bar, n int, minute time.Time) Bar {
	if n == 0 {
		n = 12
	}
	c := Bar{Time: minute, Open: subs[0].Open, Low: subs[0].Low, High: subs[0].High}
	for i := 0; i < n; i++ {
		if subs[i].High > c.High {
			c.High = subs[i].High
		}
		if subs[i].Low < c.Low || c.Low == 0 {
			c.Low = subs[i].Low
		}
		c.Volume += subs[i].Volume
		c.TickCount += subs[i].TickCount
	}
	c.Close = subs[n-1].Close
	if c.Volume > 0 {
		c.VWAP = (c.High + c.Low + c.Close) / 3.0
	}
	return c
}
