package broker

import (
	"fmt"
	"time"

	"github.com/pivotbreak/engine/internal/bars"
	"github.com/pivotbreak/engine/internal/breakout"
)

// Backtest is a deterministic Broker: every order fills immediately
// at the price the scheduler supplies (the engine's own slippage
// model, internal/position, already accounts for realistic fill
// drift, so the broker layer itself stays exact). It never produces
// market-data ticks; backtest mode drives the aggregator directly from
// cached bars (internal/scanner), not through SubscribeMarketData.
type Backtest struct {
	fills  chan Fill
	nextID int
}

// NewBacktest creates a backtest broker.
func NewBacktest() *Backtest {
	return &Backtest{fills: make(chan Fill, 64)}
}

func (b *Backtest) SubscribeMarketData(symbol string) (<-chan bars.Tick, error) {
	return nil, fmt.Errorf("backtest broker does not serve market data; bars are replayed directly")
}

func (b *Backtest) id() PendingID {
	b.nextID++
	return PendingID(fmt.Sprintf("bt-%d", b.nextID))
}

func (b *Backtest) PlaceMarketOrder(symbol string, side breakout.Side, shares int) (PendingID, error) {
	return b.id(), nil
}

func (b *Backtest) PlaceStopOrder(symbol string, side breakout.Side, shares int, stopPrice float64) (PendingID, error) {
	return b.id(), nil
}

func (b *Backtest) Cancel(id PendingID) error { return nil }

func (b *Backtest) Fills() <-chan Fill { return b.fills }

func (b *Backtest) ReconcileOpenState() ([]OpenPosition, error) { return nil, nil }

// FillImmediately builds a synchronous fill at the event-clock time
// instead of delivering it on the Fills() channel. internal/scheduler
// does not call it; its backtest path uses the position manager's own
// fill prices.
func (b *Backtest) FillImmediately(id PendingID, price float64, t time.Time, shares int) Fill {
	f := Fill{PendingID: id, Price: price, Time: t, Shares: shares}
	return f
}
