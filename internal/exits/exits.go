// Package exits implements the exit policy (C6): stall detection,
// dynamic-resistance partials, the no-progress time rule, and the
// end-of-session flush. It is evaluated every event after the position
// manager's partial/stop handling and before idle-symbol entry checks
// (spec.md §5 ordering contract).
package exits

import (
	"time"

	"github.com/pivotbreak/engine/internal/indicators"
	"github.com/pivotbreak/engine/internal/position"
)

// Action is what the caller (internal/scheduler) should do in response
// to one Evaluate call. At most one of Close/Partial/TightenTrail is
// meaningful per call.
type Action struct {
	Close        bool
	Partial      bool
	Fraction     float64
	TightenTrail bool
	Reason       position.ExitReason
}

// sample is one (time, price) observation kept for the rolling stall
// window.
type sample struct {
	t     time.Time
	price float64
}

// symbolState is the per-symbol bookkeeping the policy needs beyond
// what Position itself stores: the stall window's rolling samples and
// the favorable-excursion baseline at the moment target1 fired.
type symbolState struct {
	samples       []sample
	target1Price  float64
	target1Armed  bool
}

// Tracker owns the rolling state for every symbol with an open
// position. It holds no reference to the position.Manager; the
// scheduler passes the current Position and Snapshot at each call,
// keeping C5/C6 decoupled per DESIGN NOTES.
type Tracker struct {
	Cfg   Config
	state map[string]*symbolState
}

// NewTracker creates an exit-policy tracker.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{Cfg: cfg, state: make(map[string]*symbolState)}
}

func (tr *Tracker) get(symbol string) *symbolState {
	s, ok := tr.state[symbol]
	if !ok {
		s = &symbolState{}
		tr.state[symbol] = s
	}
	return s
}

// Forget drops a symbol's rolling state once its position closes.
func (tr *Tracker) Forget(symbol string) {
	delete(tr.state, symbol)
}

// OnEvent records one price observation for the stall window and
// evaluates rules 2-4 (stop-hit is rule 1, handled directly by
// position.Manager.CheckStop before this is called; EOD is rule 5,
// handled by CheckEOD). onCandleClose gates the dynamic-resistance
// rule, which spec.md ties to 1-minute candle closes.
func (tr *Tracker) OnEvent(p *position.Position, snap indicators.Snapshot, now time.Time, price float64, onCandleClose bool) Action {
	s := tr.get(p.Symbol)
	tr.trackStallWindow(s, p, now, price)

	if act, ok := tr.checkNoProgress(p, now, price); ok {
		return act
	}
	if onCandleClose && tr.Cfg.DynamicResistanceEnabled {
		if act, ok := tr.checkDynamicResistance(p, snap, price); ok {
			return act
		}
	}
	if tr.Cfg.StallEnabled {
		if act, ok := tr.checkStall(s, p, price); ok {
			return act
		}
	}
	return Action{}
}

// checkNoProgress implements spec.md §4.6 rule 2. Once any partial has
// fired it never applies again for that position.
func (tr *Tracker) checkNoProgress(p *position.Position, now time.Time, price float64) (Action, bool) {
	if len(p.Partials) > 0 {
		return Action{}, false
	}
	elapsed := now.Sub(p.EntryTime).Minutes()
	if elapsed < tr.Cfg.NoProgressMinutes {
		return Action{}, false
	}
	favorableExcursion := favorableDelta(p, p.EntryPrice, p.PeakFavorable)
	if favorableExcursion >= tr.Cfg.MinProgressPerShare {
		return Action{}, false
	}
	return Action{Close: true, Reason: position.ReasonTimeRule}, true
}

// checkDynamicResistance implements spec.md §4.6 rule 3: the next
// hourly technical ceiling/floor within the configured proximity, only
// once at least one partial has fired.
func (tr *Tracker) checkDynamicResistance(p *position.Position, snap indicators.Snapshot, price float64) (Action, bool) {
	if len(p.Partials) == 0 {
		return Action{}, false
	}
	level, ok := nextTechnicalLevel(p, snap, price)
	if !ok {
		return Action{}, false
	}
	distPct := favorableDelta(p, price, level) / price * 100.0
	if distPct < 0 || distPct > tr.Cfg.ResistanceProximityPct {
		return Action{}, false
	}
	return Action{Partial: true, Fraction: tr.Cfg.DynamicPartialFraction, TightenTrail: false, Reason: position.ReasonDynamicR}, true
}

// nextTechnicalLevel scans the hourly SMA/EMA family, Bollinger bands,
// and the linear-regression line for the nearest still-ahead level.
func nextTechnicalLevel(p *position.Position, snap indicators.Snapshot, price float64) (float64, bool) {
	candidates := []indicators.Level{
		snap.SMA5, snap.SMA10, snap.SMA20, snap.SMA50, snap.SMA100, snap.SMA200,
		snap.EMA9, snap.EMA20, snap.EMA50,
		snap.BollUpper, snap.BollLower, snap.LinRegValue,
	}
	best := 0.0
	found := false
	for _, c := range candidates {
		if !c.Ready {
			continue
		}
		if p.Side == position.Long {
			if c.Value <= price {
				continue
			}
			if !found || c.Value < best {
				best, found = c.Value, true
			}
		} else {
			if c.Value >= price {
				continue
			}
			if !found || c.Value > best {
				best, found = c.Value, true
			}
		}
	}
	return best, found
}

// trackStallWindow records samples and, once target1 fires, the
// favorable baseline the stall rule measures continued progress from.
func (tr *Tracker) trackStallWindow(s *symbolState, p *position.Position, now time.Time, price float64) {
	s.samples = append(s.samples, sample{t: now, price: price})
	cutoff := now.Add(-time.Duration(tr.Cfg.StallWindowMinutes) * time.Minute)
	i := 0
	for i < len(s.samples) && s.samples[i].t.Before(cutoff) {
		i++
	}
	s.samples = s.samples[i:]

	if !s.target1Armed && len(p.Ladder) > 0 && p.Ladder[0].Filled {
		s.target1Armed = true
		s.target1Price = p.Ladder[0].Price
	}
}

// checkStall implements spec.md §4.6 rule 4: after target1 has hit,
// if the realised range over the rolling window is tight and favorable
// excursion since target1 hasn't progressed, tighten the trailing
// buffer.
func (tr *Tracker) checkStall(s *symbolState, p *position.Position, price float64) (Action, bool) {
	if !s.target1Armed || p.TrailPct <= tr.Cfg.TightTrailPct {
		return Action{}, false
	}
	if len(s.samples) < 2 {
		return Action{}, false
	}
	hi, lo := s.samples[0].price, s.samples[0].price
	for _, sm := range s.samples {
		if sm.price > hi {
			hi = sm.price
		}
		if sm.price < lo {
			lo = sm.price
		}
	}
	rng := hi - lo
	if rng >= price*tr.Cfg.StallRangePct/100.0 {
		return Action{}, false
	}
	progressSinceTarget1 := favorableDelta(p, s.target1Price, p.PeakFavorable) / s.target1Price * 100.0
	if progressSinceTarget1 >= tr.Cfg.StallProgressPct {
		return Action{}, false
	}
	return Action{TightenTrail: true}, true
}

// CheckEOD implements spec.md §4.6 rule 5: flush any remaining
// fraction at the configured exchange-time cutoff.
func (tr *Tracker) CheckEOD(now time.Time) bool {
	cutoff, err := time.Parse("15:04", tr.Cfg.EODFlushTime)
	if err != nil {
		return false
	}
	cur := time.Date(0, 1, 1, now.Hour(), now.Minute(), 0, 0, time.UTC)
	return !cur.Before(cutoff)
}

// favorableDelta returns b-a for LONG, a-b for SHORT: "how much better
// is b than a", used both for excursion and distance calculations.
func favorableDelta(p *position.Position, a, b float64) float64 {
	if p.Side == position.Long {
		return b - a
	}
	return a - b
}
