// Package broker defines the four operations spec.md §6.4 requires of
// the external broker adapter, plus the deterministic backtest
// implementation and the live implementation wrapping the teacher's
// Polygon feed and SignalStack execution client.
package broker

import (
	"time"

	"github.com/pivotbreak/engine/internal/bars"
	"github.com/pivotbreak/engine/internal/breakout"
)

// PendingID identifies one outstanding order.
type PendingID string

// Fill is delivered asynchronously (live) or synchronously (backtest)
// once an order completes.
type Fill struct {
	PendingID PendingID
	Price     float64
	Time      time.Time
	Shares    int
}

// Broker is the engine's only window onto the outside trading world.
// internal/scheduler depends on this interface, never on a concrete
// implementation, so backtest and live share one code path (spec.md
// §1 "the same engine must produce bit-identical decisions").
type Broker interface {
	SubscribeMarketData(symbol string) (<-chan bars.Tick, error)
	PlaceMarketOrder(symbol string, side breakout.Side, shares int) (PendingID, error)
	PlaceStopOrder(symbol string, side breakout.Side, shares int, stopPrice float64) (PendingID, error)
	Cancel(id PendingID) error

	// Fills delivers fill callbacks for every order placed through this
	// broker; both implementations are single-producer.
	Fills() <-chan Fill

	// ReconcileOpenState queries existing positions/orders at startup
	// (spec.md §6.4 "Reconciliation hooks"). Backtest always returns
	// empty; live queries the account.
	ReconcileOpenState() ([]OpenPosition, error)
}

// OpenPosition is a position already live at the broker when the
// engine (re)starts, used by the reconciliation hooks.
type OpenPosition struct {
	Symbol string
	Side   breakout.Side
	Shares int
	Price  float64
}
