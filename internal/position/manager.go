package position

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/indicators"
	"github.com/pivotbreak/engine/pkg/risk"
)

// OpenRequest is everything the manager needs to open one position,
// built by the caller (internal/scheduler) after the filter pipeline
// passes.
type OpenRequest struct {
	Symbol       string
	Side         Side
	EntryTime    time.Time
	MidPrice     float64 // pre-slippage reference price
	Pivot        breakout.Pivot
	BreakoutType breakout.BreakoutType
	Snapshot     indicators.Snapshot
}

// SizingBlocked is returned by Open when the computed share count
// falls below the configured minimum — spec.md §4.5 "the entry is
// blocked by the sizing filter".
type SizingBlocked struct {
	Shares int
	Reason string
}

func (e SizingBlocked) Error() string { return e.Reason }

// Manager owns every open position, at most one per symbol, and
// enforces the hard concurrency cap (spec.md §3 invariants). It never
// reaches back into the indicator suite or the breakout tracker;
// snapshots are handed in at call time (DESIGN NOTES: no callbacks
// from indicators into positions).
type Manager struct {
	Cfg         Config
	positions   map[string]*Position
	BuyingPower *risk.BuyingPowerManager
}

// NewManager creates an empty position manager. Buying power starts
// pegged to the configured account equity; this engine only trades the
// regular session, so the manager's extended-hours margin divisor
// never applies here.
func NewManager(cfg Config) *Manager {
	return &Manager{
		Cfg:         cfg,
		positions:   make(map[string]*Position),
		BuyingPower: risk.NewBuyingPowerManager(cfg.AccountEquity, true),
	}
}

func sideString(s Side) string {
	if s == Short {
		return "SHORT"
	}
	return "LONG"
}

// Count returns the number of currently open positions.
func (m *Manager) Count() int { return len(m.positions) }

// Get returns the open position for symbol, if any.
func (m *Manager) Get(symbol string) (*Position, bool) {
	p, ok := m.positions[symbol]
	return p, ok
}

// Symbols returns every symbol with an open position, for the
// correlation filter and for reconciliation.
func (m *Manager) Symbols() []string {
	out := make([]string, 0, len(m.positions))
	for s := range m.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// AtCap reports whether opening another position would exceed
// trading.max_positions (spec.md §5 resource caps).
func (m *Manager) AtCap() bool {
	return len(m.positions) >= m.Cfg.MaxPositions
}

// entryPrice applies the entry slippage model: mid +/- entry_bps in
// the adverse direction (spec.md §4.5 "entries and partials at mid ±
// 0.1%").
func entryPrice(side Side, mid float64, bps float64) float64 {
	adj := mid * bps / 10000.0
	if side == Long {
		return mid + adj
	}
	return mid - adj
}

func exitPrice(side Side, mid float64, bps float64) float64 {
	adj := mid * bps / 10000.0
	if side == Long {
		return mid - adj
	}
	return mid + adj
}

func stopFillPrice(side Side, stop float64, bps float64) float64 {
	adj := stop * bps / 10000.0
	if side == Long {
		return stop - adj
	}
	return stop + adj
}

// initialStop returns the pivot ± buffer stop used at entry: just
// below the pivot for LONG, just above for SHORT.
func initialStop(side Side, pivot, bufferPct float64) float64 {
	buf := pivot * bufferPct / 100.0
	if side == Long {
		return pivot - buf
	}
	return pivot + buf
}

// Open sizes and opens a position atomically, building the partial
// ladder from the pivot's targets (and, if configured, the resampled
// hourly SMA family) per spec.md §4.5. It returns SizingBlocked if the
// computed share count is below MinShares — callers journal this as a
// BLOCKED decision, not an error.
func (m *Manager) Open(req OpenRequest) (*Position, error) {
	if _, exists := m.positions[req.Symbol]; exists {
		return nil, fmt.Errorf("position already open for %s", req.Symbol)
	}
	if m.AtCap() {
		return nil, SizingBlocked{Reason: "max_positions_reached"}
	}

	entry := entryPrice(req.Side, req.MidPrice, m.Cfg.EntrySlippageBps)
	stop := initialStop(req.Side, req.Pivot.Level(), m.Cfg.StopBufferPct)
	stopDistance := math.Abs(entry - stop)
	if stopDistance <= 0 {
		return nil, fmt.Errorf("zero stop distance for %s", req.Symbol)
	}

	riskAmount := m.Cfg.AccountEquity * m.Cfg.RiskPerTrade
	shares, err := risk.CalculatePositionSize(riskAmount, entry, stop, m.Cfg.MaxShares)
	if err != nil {
		return nil, err
	}
	if shares < m.Cfg.MinShares {
		return nil, SizingBlocked{Shares: shares, Reason: "shares_below_minimum"}
	}
	if !m.BuyingPower.CanAfford(shares, entry, sideString(req.Side)) {
		return nil, SizingBlocked{Shares: shares, Reason: "insufficient_buying_power"}
	}

	ladder := buildLadder(req, entry, stop, stopDistance, m.Cfg)

	pos := &Position{
		Symbol:            req.Symbol,
		Side:              req.Side,
		EntryPrice:        entry,
		EntryTime:         req.EntryTime,
		InitialShares:     shares,
		RemainingFraction: 1.0,
		RemainingShares:   shares,
		StopPrice:         stop,
		Ladder:            ladder,
		Pivot:             req.Pivot.Level(),
		PeakFavorable:     entry,
		TroughAdverse:     entry,
		BreakoutType:      req.BreakoutType,
		TrailPct:          m.Cfg.TrailPct,
	}
	m.positions[req.Symbol] = pos
	m.BuyingPower.ReserveBuyingPower(shares, entry, sideString(req.Side))
	return pos, nil
}

// buildLadder computes the ordered, deduplicated, favorable-direction
// ladder of partial-target levels.
func buildLadder(req OpenRequest, entry, stop, stopDistance float64, cfg Config) []Level {
	sign := 1.0
	if req.Side == Short {
		sign = -1.0
	}

	var levels []float64
	if cfg.UseSMALadder {
		for _, lvl := range []indicators.Level{req.Snapshot.SMA5, req.Snapshot.SMA10, req.Snapshot.SMA20} {
			if lvl.Ready && aheadOf(req.Side, lvl.Value, entry) {
				levels = append(levels, lvl.Value)
			}
		}
		levels = append(levels, scannerTargets(req.Pivot, req.Side, entry)...)
	} else {
		levels = append(levels, entry+sign*stopDistance)   // 1R
		levels = append(levels, entry+sign*2*stopDistance) // 2R
		levels = append(levels, scannerTargets(req.Pivot, req.Side, entry)...)
	}

	levels = dedupeSorted(levels, req.Side)

	fractions := cfg.LadderFractions
	if len(fractions) == 0 {
		fractions = []float64{1.0}
	}
	n := len(levels)
	if n == 0 {
		return nil
	}
	if n > len(fractions) {
		n = len(fractions)
		levels = levels[:n]
	}

	out := make([]Level, n)
	for i := 0; i < n; i++ {
		out[i] = Level{Price: levels[i], Fraction: fractions[i]}
	}
	return out
}

func aheadOf(side Side, level, price float64) bool {
	if side == Long {
		return level > price
	}
	return level < price
}

func scannerTargets(p breakout.Pivot, side Side, price float64) []float64 {
	var out []float64
	if side == Long {
		if p.HasTarget1 && aheadOf(side, p.Target1, price) {
			out = append(out, p.Target1)
		}
		if p.HasTarget2 && aheadOf(side, p.Target2, price) {
			out = append(out, p.Target2)
		}
		return out
	}
	if p.HasDownside1 && aheadOf(side, p.Downside1, price) {
		out = append(out, p.Downside1)
	}
	if p.HasDownside2 && aheadOf(side, p.Downside2, price) {
		out = append(out, p.Downside2)
	}
	return out
}

// dedupeSorted removes near-duplicate levels (within 0.01%) and sorts
// ascending for LONG (nearest first), descending for SHORT.
func dedupeSorted(levels []float64, side Side) []float64 {
	if side == Long {
		sort.Float64s(levels)
	} else {
		sort.Sort(sort.Reverse(sort.Float64Slice(levels)))
	}
	out := levels[:0:0]
	for _, lv := range levels {
		if len(out) > 0 {
			last := out[len(out)-1]
			if last != 0 && math.Abs(lv-last)/last < 0.0001 {
				continue
			}
		}
		out = append(out, lv)
	}
	return out
}

// EvaluatePartials checks the head of the ladder against the current
// price and fills it if reached, advancing stops per spec.md §4.5
// "Stop progression". It may fire at most one level per call since
// the scheduler evaluates every event.
func (m *Manager) EvaluatePartials(symbol string, t time.Time, price float64) *Partial {
	p, ok := m.positions[symbol]
	if !ok || p.Closed {
		return nil
	}
	idx := -1
	for i, lvl := range p.Ladder {
		if lvl.Filled {
			continue
		}
		idx = i
		break
	}
	if idx == -1 {
		m.updateTrailing(p, price)
		return nil
	}

	lvl := p.Ladder[idx]
	reached := (p.Side == Long && price >= lvl.Price) || (p.Side == Short && price <= lvl.Price)
	if !reached {
		m.updatePeak(p, price)
		return nil
	}

	fillPrice := exitPrice(p.Side, lvl.Price, m.Cfg.ExitSlippageBps)
	shares := int(math.Round(float64(p.InitialShares) * lvl.Fraction))
	if shares > p.RemainingShares {
		shares = p.RemainingShares
	}

	part := Partial{Timestamp: t, Price: fillPrice, Shares: shares, Reason: ReasonPartial}
	p.Partials = append(p.Partials, part)
	p.RemainingShares -= shares
	p.RemainingFraction = float64(p.RemainingShares) / float64(p.InitialShares)
	p.Ladder[idx].Filled = true

	m.advanceStop(p, idx, lvl.Price)

	if idx == len(p.Ladder)-1 {
		// Last discrete rung fired: enable trailing on the runner.
		p.StallWindowOrigin = t
		p.StallArmed = true
	}

	m.updatePeak(p, price)
	return &part
}

// advanceStop implements spec.md §4.5 "Stop progression": breakeven on
// the first partial, then the previously hit ladder level minus/plus a
// buffer on every subsequent one. Stops never move adverse.
func (m *Manager) advanceStop(p *Position, filledIdx int, filledPrice float64) {
	var candidate float64
	if filledIdx == 0 {
		if !m.Cfg.BreakevenAfterPartial {
			return
		}
		candidate = p.EntryPrice
	} else {
		prev := p.Ladder[filledIdx-1].Price
		buf := prev * m.Cfg.StopMoveBufferPct / 100.0
		if p.Side == Long {
			candidate = prev - buf
		} else {
			candidate = prev + buf
		}
	}
	m.raiseStop(p, candidate)
}

// raiseStop moves the stop only in the favorable direction, enforcing
// the monotonic-stop invariant (spec.md §3, §8 property 2).
func (m *Manager) raiseStop(p *Position, candidate float64) {
	if p.Side == Long && candidate > p.StopPrice {
		p.StopPrice = candidate
	} else if p.Side == Short && (p.StopPrice == 0 || candidate < p.StopPrice) {
		p.StopPrice = candidate
	}
}

func (m *Manager) updatePeak(p *Position, price float64) {
	if p.favorable(p.PeakFavorable, price) {
		p.PeakFavorable = price
	}
	if p.favorable(price, p.TroughAdverse) {
		p.TroughAdverse = price
	}
}

// updateTrailing maintains the runner's trailing stop once every
// discrete ladder rung has fired (spec.md §4.5 "Trailing on the
// runner"): stop = peak_favorable ± trail_pct * price.
func (m *Manager) updateTrailing(p *Position, price float64) {
	if len(p.Ladder) == 0 || !p.Ladder[len(p.Ladder)-1].Filled {
		return
	}
	m.updatePeak(p, price)
	buf := p.PeakFavorable * p.TrailPct / 100.0
	if p.Side == Long {
		m.raiseStop(p, p.PeakFavorable-buf)
	} else {
		m.raiseStop(p, p.PeakFavorable+buf)
	}
}

// TightenTrail is called by the stall detector (internal/exits) to
// switch the runner's trailing buffer to the tight percentage.
func (m *Manager) TightenTrail(symbol string, tightPct float64) {
	if p, ok := m.positions[symbol]; ok {
		p.TrailPct = tightPct
	}
}

// FireDynamicPartial takes an off-ladder partial triggered by the
// dynamic-resistance exit rule (spec.md §4.6 rule 3): fraction of the
// original shares, capped at what remains.
func (m *Manager) FireDynamicPartial(symbol string, t time.Time, price float64, fraction float64, reason ExitReason) *Partial {
	p, ok := m.positions[symbol]
	if !ok || p.Closed {
		return nil
	}
	fillPrice := exitPrice(p.Side, price, m.Cfg.ExitSlippageBps)
	shares := int(math.Round(float64(p.InitialShares) * fraction))
	if shares > p.RemainingShares {
		shares = p.RemainingShares
	}
	if shares <= 0 {
		return nil
	}
	part := Partial{Timestamp: t, Price: fillPrice, Shares: shares, Reason: reason}
	p.Partials = append(p.Partials, part)
	p.RemainingShares -= shares
	p.RemainingFraction = float64(p.RemainingShares) / float64(p.InitialShares)
	m.tightenStopToLastLevel(p)
	m.updatePeak(p, price)
	return &part
}

// tightenStopToLastLevel moves the stop to the most recently filled
// ladder rung, per spec.md §4.6 rule 3 ("tighten the stop to the last
// ladder level").
func (m *Manager) tightenStopToLastLevel(p *Position) {
	var last float64
	found := false
	for _, lvl := range p.Ladder {
		if lvl.Filled {
			last, found = lvl.Price, true
		}
	}
	if found {
		m.raiseStop(p, last)
	}
}

// CheckStop reports whether current price has breached the stop in
// the adverse direction, and the slippage-adjusted fill price if so.
func (m *Manager) CheckStop(symbol string, price float64) (fillPrice float64, hit bool) {
	p, ok := m.positions[symbol]
	if !ok || p.Closed {
		return 0, false
	}
	breached := (p.Side == Long && price <= p.StopPrice) || (p.Side == Short && price >= p.StopPrice)
	if !breached {
		return 0, false
	}
	return stopFillPrice(p.Side, p.StopPrice, m.Cfg.StopSlippageBps), true
}

// Close closes the entire remaining fraction at the given price and
// reason, removing the position from the open set. The caller journals
// the resulting Partial (as a CLOSE position event).
func (m *Manager) Close(symbol string, t time.Time, price float64, reason ExitReason) *Partial {
	p, ok := m.positions[symbol]
	if !ok || p.Closed {
		return nil
	}
	part := Partial{Timestamp: t, Price: price, Shares: p.RemainingShares, Reason: reason}
	p.Partials = append(p.Partials, part)
	p.RemainingShares = 0
	p.RemainingFraction = 0
	p.Closed = true
	delete(m.positions, symbol)
	m.BuyingPower.ReleaseBuyingPower(p.InitialShares, p.EntryPrice, sideString(p.Side))
	m.BuyingPower.UpdateAccountBalance(m.PnL(p))
	return &part
}

// PnL computes realised P&L across every partial recorded so far,
// including commission on both legs (spec.md §4.5 "P&L accounting").
func (m *Manager) PnL(p *Position) float64 {
	sign := 1.0
	if p.Side == Short {
		sign = -1.0
	}
	entryCommission := float64(p.InitialShares) * m.Cfg.CommissionPerShare
	total := -entryCommission
	for _, part := range p.Partials {
		gross := (part.Price - p.EntryPrice) * float64(part.Shares) * sign
		commission := float64(part.Shares) * m.Cfg.CommissionPerShare
		total += gross - commission
	}
	return total
}
