// Package scheduler implements the replay/event-loop (C7) that drives
// the bar aggregator, indicator suite, breakout state machine, filter
// pipeline, position manager, and exit policy from either a backtest
// bar set or a live tick stream, and flushes every decision to the
// journal. Engine is the only component that owns the clock: every
// other package is advanced purely by the events Engine feeds it,
// which is what makes a backtest and a live run of the same inputs
// produce the same decisions (spec.md §1, §8 property 1).
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/pivotbreak/engine/internal/bars"
	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/broker"
	"github.com/pivotbreak/engine/internal/exits"
	"github.com/pivotbreak/engine/internal/filters"
	"github.com/pivotbreak/engine/internal/indicators"
	"github.com/pivotbreak/engine/internal/journal"
	"github.com/pivotbreak/engine/internal/mlscore"
	"github.com/pivotbreak/engine/internal/position"
	"github.com/pivotbreak/engine/internal/scanner"
	"github.com/pivotbreak/engine/pkg/risk"
)

// Engine owns every symbol's per-symbol state for one trading session
// and the ordering contract spec.md §5 specifies: ingest, then
// indicators, then open-position management, then exit checks, then
// idle-symbol entry checks, then journal flush. A symbol is either
// managing an open position or evaluating entries on a given event,
// never both, since the engine permits at most one position per symbol.
type Engine struct {
	Cfg         Config
	Watchlist   *scanner.Watchlist
	BreakoutCfg breakout.Config
	FilterCfg   filters.Config
	ExitCfg     exits.Config

	Broker    broker.Broker
	Journal   *journal.Journal
	Positions *position.Manager
	Exits     *exits.Tracker
	Risk      *risk.RiskLimitsManager

	// MLScorer is the supplemented secondary scorer (SPEC_FULL.md §5).
	// Nil or disabled when no model is loaded; mlScore handles both.
	MLScorer *mlscore.Scorer

	aggregators map[string]*bars.Aggregator
	suites      map[string]*indicators.Suite
	trackers    map[string]*breakout.Tracker
	lastClose   map[string]float64
	lastMinute  map[string]time.Time
}

// NewEngine wires a fresh session. pCfg.AccountEquity is overwritten
// from cfg so the position sizer and the risk-limits manager always
// agree on the account size.
func NewEngine(cfg Config, wl *scanner.Watchlist, bCfg breakout.Config, fCfg filters.Config, eCfg exits.Config, pCfg position.Config, brk broker.Broker, jr *journal.Journal) *Engine {
	pCfg.AccountEquity = cfg.InitialAccountEquity
	return &Engine{
		Cfg:         cfg,
		Watchlist:   wl,
		BreakoutCfg: bCfg,
		FilterCfg:   fCfg,
		ExitCfg:     eCfg,
		Broker:      brk,
		Journal:     jr,
		Positions:   position.NewManager(pCfg),
		Exits:       exits.NewTracker(eCfg),
		Risk: risk.NewRiskLimitsManager(
			cfg.InitialAccountEquity,
			cfg.InitialAccountEquity*cfg.MaxDailyLossPct,
			cfg.InitialAccountEquity*cfg.HardStopLossPct,
		),
		aggregators: make(map[string]*bars.Aggregator),
		suites:      make(map[string]*indicators.Suite),
		trackers:    make(map[string]*breakout.Tracker),
		lastClose:   make(map[string]float64),
		lastMinute:  make(map[string]time.Time),
	}
}

func (e *Engine) aggregatorFor(symbol string) *bars.Aggregator {
	a, ok := e.aggregators[symbol]
	if !ok {
		a = bars.NewAggregator()
		e.aggregators[symbol] = a
	}
	return a
}

func (e *Engine) suiteFor(symbol string) *indicators.Suite {
	s, ok := e.suites[symbol]
	if !ok {
		s = indicators.NewSuite()
		e.suites[symbol] = s
	}
	return s
}

// trackerFor lazily creates the breakout tracker for a symbol's primary
// pivot the first time it's needed. Symbols absent from the watchlist
// (e.g. a gap-filtered-out symbol whose cached bars are still present)
// have no tracker and are silently skipped.
func (e *Engine) trackerFor(symbol string) (*breakout.Tracker, bool) {
	if t, ok := e.trackers[symbol]; ok {
		return t, true
	}
	setup, ok := e.Watchlist.Get(symbol)
	if !ok {
		return nil, false
	}
	t := breakout.NewTracker(setup.ToPivot(setup.Side()), e.BreakoutCfg)
	e.trackers[symbol] = t
	return t, true
}

// ResetSession resets every session-scoped indicator (VWAP) for the
// given symbols at market open.
func (e *Engine) ResetSession(symbols []string, marketOpen time.Time) {
	for _, sym := range symbols {
		e.suiteFor(sym).ResetSession(marketOpen)
	}
}

// RunBacktest replays one trading day's cached 1-minute bars across
// every symbol in strict (timestamp, symbol) order — the ascending
// symbol tie-break spec.md §5 requires when two symbols' bars share a
// timestamp.
func (e *Engine) RunBacktest(dailyBars map[string][]bars.Bar) error {
	type tsEvent struct {
		symbol string
		bar    bars.Bar
	}
	events := make([]tsEvent, 0)
	for sym, bs := range dailyBars {
		for _, b := range bs {
			events = append(events, tsEvent{sym, b})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].bar.Time.Equal(events[j].bar.Time) {
			return events[i].bar.Time.Before(events[j].bar.Time)
		}
		return events[i].symbol < events[j].symbol
	})

	var last time.Time
	for _, ev := range events {
		if err := e.processHistoricalMinute(ev.symbol, ev.bar); err != nil {
			return fmt.Errorf("%s at %s: %w", ev.symbol, ev.bar.Time, err)
		}
		last = ev.bar.Time
	}
	if !last.IsZero() {
		e.flushEOD(last)
	}
	return nil
}

// processHistoricalMinute is idempotent against a duplicate feed of
// the same closed minute (spec.md §5 "idempotent against duplicate
// events"): a minute at or before the last one already folded for this
// symbol is dropped silently rather than re-applied.
func (e *Engine) processHistoricalMinute(symbol string, minute bars.Bar) error {
	if last, ok := e.lastMinute[symbol]; ok && !minute.Time.After(last) {
		return nil
	}
	e.lastMinute[symbol] = minute.Time

	agg := e.aggregatorFor(symbol)
	ev := agg.FeedHistoricalMinute(minute)
	if ev.Kind != bars.EventCandle {
		return fmt.Errorf("historical minute did not close a candle")
	}

	baseIdx := ev.AbsIdx - 11
	for i, sub := range ev.Candle.SubBars {
		e.processSubBar(symbol, baseIdx+int64(i), sub)
	}
	e.processCandle(symbol, ev.AbsIdx, ev.Candle.Bar)
	return nil
}

// RunLive drains tick channels for the given symbols until ctx is
// cancelled, folding each tick through the same per-event pipeline the
// backtest path uses. Shutdown is cooperative: ctx cancellation stops
// the fan-in loop and the caller is expected to call Shutdown to flush
// open positions, matching spec.md §7 "graceful stop flushes open
// state rather than abandoning it".
func (e *Engine) RunLive(ctx context.Context, symbols []string) error {
	type symTick struct {
		symbol string
		tick   bars.Tick
	}
	merged := make(chan symTick, 256)

	for _, sym := range symbols {
		ch, err := e.Broker.SubscribeMarketData(sym)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", sym, err)
		}
		go func(symbol string, c <-chan bars.Tick) {
			for t := range c {
				select {
				case merged <- symTick{symbol, t}:
				case <-ctx.Done():
					return
				}
			}
		}(sym, ch)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-merged:
			e.processTick(st.symbol, st.tick)
		}
	}
}

func (e *Engine) processTick(symbol string, tick bars.Tick) {
	agg := e.aggregatorFor(symbol)
	ev := agg.FeedTick(tick)
	switch ev.Kind {
	case bars.EventSubBar:
		e.processSubBar(symbol, ev.AbsIdx, ev.SubBar)
	case bars.EventCandle:
		e.processSubBar(symbol, ev.AbsIdx, ev.SubBar)
		e.processCandle(symbol, ev.AbsIdx, ev.Candle.Bar)
	}
}

// processSubBar folds one closed 5-second sub-bar: sub-bar-resolution
// indicators, then either open-position management (stop/partials) or
// idle-symbol entry tracking, whichever applies to this symbol.
func (e *Engine) processSubBar(symbol string, absIdx int64, sub bars.Bar) {
	suite := e.suiteFor(symbol)
	suite.OnSubBar(sub)
	snap := suite.Snapshot()

	if _, hasPos := e.Positions.Get(symbol); hasPos {
		e.checkOpenPosition(symbol, sub.Time, sub.Close, snap, false)
		return
	}
	e.advanceTracker(symbol, absIdx, sub, snap, false)
}

// processCandle folds one closed 1-minute candle: candle-resolution
// indicators (including the hourly resample chain), then the same
// open-position-or-idle-entry branch as processSubBar.
func (e *Engine) processCandle(symbol string, absIdx int64, candle bars.Bar) {
	suite := e.suiteFor(symbol)
	suite.OnCandle(candle)
	snap := suite.Snapshot()
	e.lastClose[symbol] = candle.Close

	if _, hasPos := e.Positions.Get(symbol); hasPos {
		e.checkOpenPosition(symbol, candle.Time, candle.Close, snap, true)
	} else {
		e.advanceTracker(symbol, absIdx, candle, snap, true)
		if t, ok := e.trackers[symbol]; ok {
			outcome := t.CheckCVDTimeout(absIdx / breakout.SubBarsPerCandle)
			e.handleOutcome(symbol, t, outcome, candle.Time, candle.Close, snap, absIdx)
		}
	}
	e.checkEODForSymbol(symbol, candle.Time)
}

func (e *Engine) advanceTracker(symbol string, absIdx int64, b bars.Bar, snap indicators.Snapshot, candleClose bool) {
	tr, ok := e.trackerFor(symbol)
	if !ok || tr.Sealed {
		return
	}
	var outcome breakout.Outcome
	if candleClose {
		outcome = tr.AdvanceCandleClose(absIdx, b, e.aggregatorFor(symbol).Ring, snap, b.Close)
	} else {
		outcome = tr.AdvanceSubBar(absIdx, b, snap)
	}
	e.handleOutcome(symbol, tr, outcome, b.Time, b.Close, snap, absIdx)
}

func (e *Engine) handleOutcome(symbol string, tr *breakout.Tracker, outcome breakout.Outcome, t time.Time, price float64, snap indicators.Snapshot, absIdx int64) {
	if outcome.NoOp || !outcome.Transitioned {
		return
	}

	if outcome.ReadyToEnter {
		entered := e.tryEnter(symbol, tr, outcome, t, price, snap, absIdx)
		tr.Consume(entered)
		return
	}

	if outcome.State == breakout.Failed {
		if outcome.Blocked {
			e.Journal.RecordEntry(journal.EntryDecision{
				Timestamp:       t,
				Symbol:          symbol,
				Side:            tr.Pivot.Side,
				Decision:        journal.Blocked,
				ReasonCode:      outcome.ReasonCode,
				StateAtDecision: tr.State,
				Observed:        observedFrom(outcome.Observed),
				Pivot:           tr.Pivot.Level(),
				CurrentPrice:    price,
				AbsBarIndex:     absIdx,
			})
		}
		tr.Revive()
	}
}

func (e *Engine) tryEnter(symbol string, tr *breakout.Tracker, outcome breakout.Outcome, t time.Time, price float64, snap indicators.Snapshot, absIdx int64) bool {
	ctx := filters.Context{
		Symbol:              symbol,
		Side:                tr.Pivot.Side,
		EventTime:           t,
		CurrentPrice:        price,
		Pivot:               tr.Pivot,
		BreakoutType:        outcome.BreakoutType,
		Attempt:             tr.Attempt,
		Snapshot:            snap,
		Score:               tr.Pivot.Score,
		RiskReward:          tr.Pivot.RiskReward,
		OpenPositionSymbols: e.Positions.Symbols(),
		SymbolSector:        filters.Sector(symbol),
		SectorOf:            filters.Sector,
		MLScore:             e.mlScore(snap, tr.Pivot, outcome.BreakoutType, t, price),
	}
	res := filters.Run(e.FilterCfg, ctx)
	if res.Blocked {
		e.Journal.RecordEntry(journal.EntryDecision{
			Timestamp: t, Symbol: symbol, Side: tr.Pivot.Side, Decision: journal.Blocked,
			FilterName: res.Name, StateAtDecision: tr.State, Pivot: tr.Pivot.Level(),
			CurrentPrice: price, AbsBarIndex: absIdx,
		})
		return false
	}
	// spec.md §5 names exactly one halt trigger: realised + unrealised
	// P&L below -max_daily_loss x account_equity.
	if e.IsDailyLossHalted() {
		e.Journal.RecordEntry(journal.EntryDecision{
			Timestamp: t, Symbol: symbol, Side: tr.Pivot.Side, Decision: journal.Blocked,
			ReasonCode: "risk_halt", StateAtDecision: tr.State, Pivot: tr.Pivot.Level(),
			CurrentPrice: price, AbsBarIndex: absIdx,
		})
		return false
	}

	pos, err := e.Positions.Open(position.OpenRequest{
		Symbol: symbol, Side: tr.Pivot.Side, EntryTime: t, MidPrice: price,
		Pivot: tr.Pivot, BreakoutType: outcome.BreakoutType, Snapshot: snap,
	})
	if err != nil {
		reason := "open_failed"
		if sb, ok := err.(position.SizingBlocked); ok {
			reason = sb.Reason
		}
		e.Journal.RecordEntry(journal.EntryDecision{
			Timestamp: t, Symbol: symbol, Side: tr.Pivot.Side, Decision: journal.Blocked,
			ReasonCode: reason, StateAtDecision: tr.State, Pivot: tr.Pivot.Level(),
			CurrentPrice: price, AbsBarIndex: absIdx,
		})
		return false
	}

	e.Journal.RecordEntry(journal.EntryDecision{
		Timestamp: t, Symbol: symbol, Side: tr.Pivot.Side, Decision: journal.Entered,
		StateAtDecision: tr.State, Observed: observedFrom(outcome.Observed),
		Pivot: tr.Pivot.Level(), CurrentPrice: price, AbsBarIndex: absIdx,
	})
	e.Journal.RecordPosition(journal.PositionEvent{
		Timestamp: t, Symbol: symbol, Event: "OPEN", Price: pos.EntryPrice,
		Shares: pos.InitialShares, AbsBarIndex: absIdx,
	})
	e.placeOrders(symbol, pos)
	return true
}

// mlScore returns the supplemented ML scorer's probability for this
// decision, or nil when no model is configured, so filters.Context's
// MLScore stays a pure observational add-on (SPEC_FULL.md §5).
func (e *Engine) mlScore(snap indicators.Snapshot, pivot breakout.Pivot, bt breakout.BreakoutType, t time.Time, price float64) *float64 {
	if e.MLScorer == nil || !e.MLScorer.IsEnabled() {
		return nil
	}
	v := e.MLScorer.Score(snap, pivot, pivot.Side, bt, price, pivot.RiskReward, t)
	return &v
}

// placeOrders routes the entry and its protective stop to the broker.
// Order-placement failures are logged by the caller (cmd/engine), not
// treated as fatal: the engine's own books already reflect the fill.
func (e *Engine) placeOrders(symbol string, pos *position.Position) {
	if e.Broker == nil {
		return
	}
	_, _ = e.Broker.PlaceMarketOrder(symbol, pos.Side, pos.InitialShares)
	_, _ = e.Broker.PlaceStopOrder(symbol, pos.Side, pos.InitialShares, pos.StopPrice)
}

func (e *Engine) checkOpenPosition(symbol string, t time.Time, price float64, snap indicators.Snapshot, onCandleClose bool) {
	pos, ok := e.Positions.Get(symbol)
	if !ok {
		return
	}

	if fillPrice, hit := e.Positions.CheckStop(symbol, price); hit {
		e.closePosition(symbol, t, fillPrice, position.ReasonStop)
		return
	}

	if part := e.Positions.EvaluatePartials(symbol, t, price); part != nil {
		e.Journal.RecordPosition(journal.PositionEvent{
			Timestamp: t, Symbol: symbol, Event: "PARTIAL", Price: part.Price,
			Shares: part.Shares, Reason: part.Reason, PnLSoFar: e.Positions.PnL(pos),
		})
	}

	pos, ok = e.Positions.Get(symbol)
	if !ok {
		return
	}
	act := e.Exits.OnEvent(pos, snap, t, price, onCandleClose)
	switch {
	case act.Close:
		e.closePosition(symbol, t, price, act.Reason)
	case act.Partial:
		if part := e.Positions.FireDynamicPartial(symbol, t, price, act.Fraction, act.Reason); part != nil {
			e.Journal.RecordPosition(journal.PositionEvent{
				Timestamp: t, Symbol: symbol, Event: "PARTIAL", Price: part.Price,
				Shares: part.Shares, Reason: part.Reason, PnLSoFar: e.Positions.PnL(pos),
			})
		}
	case act.TightenTrail:
		e.Positions.TightenTrail(symbol, e.ExitCfg.TightTrailPct)
	}
}

func (e *Engine) closePosition(symbol string, t time.Time, price float64, reason position.ExitReason) {
	pos, ok := e.Positions.Get(symbol)
	if !ok {
		return
	}
	part := e.Positions.Close(symbol, t, price, reason)
	if part == nil {
		return
	}
	pnl := e.Positions.PnL(pos)
	e.Journal.RecordPosition(journal.PositionEvent{
		Timestamp: t, Symbol: symbol, Event: "CLOSE", Price: part.Price,
		Shares: part.Shares, Reason: reason, PnLSoFar: pnl,
	})
	e.Exits.Forget(symbol)
	e.Risk.UpdateDailyPnL(pnl, t)
}

// IsDailyLossHalted reports spec.md §5's single halt condition:
// realised + unrealised P&L at or below -max_daily_loss x
// account_equity. RiskLimitsManager only ever sees realised P&L (it is
// updated solely from closePosition), so a mark-to-market read of
// every still-open position is added in here rather than left to a
// drawdown that never gets realized.
func (e *Engine) IsDailyLossHalted() bool {
	total := e.Risk.GetDailyPnL() + e.unrealizedPnL()
	maxLoss := e.Cfg.InitialAccountEquity * e.Cfg.MaxDailyLossPct
	return total <= -maxLoss
}

func (e *Engine) unrealizedPnL() float64 {
	var total float64
	for _, symbol := range e.Positions.Symbols() {
		pos, ok := e.Positions.Get(symbol)
		if !ok {
			continue
		}
		price, ok := e.lastClose[symbol]
		if !ok {
			continue
		}
		sign := 1.0
		if pos.Side == position.Short {
			sign = -1.0
		}
		total += (price - pos.EntryPrice) * sign * float64(pos.RemainingShares)
	}
	return total
}

func (e *Engine) checkEODForSymbol(symbol string, t time.Time) {
	if !e.Exits.CheckEOD(t) {
		return
	}
	if _, ok := e.Positions.Get(symbol); !ok {
		return
	}
	price, ok := e.lastClose[symbol]
	if !ok {
		return
	}
	e.closePosition(symbol, t, price, position.ReasonEOD)
}

// flushEOD forces every symbol still open at the end of a backtest day
// to close at its last known price, covering the case where the feed
// ends before a candle at or after EODFlushTime arrives.
func (e *Engine) flushEOD(last time.Time) {
	for _, sym := range e.Positions.Symbols() {
		price, ok := e.lastClose[sym]
		if !ok {
			continue
		}
		e.closePosition(sym, last, price, position.ReasonEOD)
	}
}

// Shutdown flushes every open position at its last known price under
// ReasonShutdown, for a cooperative stop outside the normal EOD window
// (spec.md §7).
func (e *Engine) Shutdown(at time.Time) {
	for _, sym := range e.Positions.Symbols() {
		price, ok := e.lastClose[sym]
		if !ok {
			continue
		}
		e.closePosition(sym, at, price, position.ReasonShutdown)
	}
}

func observedFrom(o breakout.Observed) journal.Observed {
	return journal.Observed{
		VolumeRatio:     o.VolumeRatio,
		CandleSizePct:   o.CandleSizePct,
		RoomToTargetPct: o.RoomToTargetPct,
		CVDSlope:        o.CVDSlope,
		StochK:          o.StochK,
	}
}
