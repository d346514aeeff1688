// Package journal implements the decision journal (C8): an append-only
// record of every entry attempt and every position transition. It is
// the primary interface for the analytics/validation tools spec.md §1
// treats as external collaborators.
package journal

import (
	"encoding/json"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pivotbreak/engine/internal/breakout"
	"github.com/pivotbreak/engine/internal/position"
)

// Decision is one EntryDecision record (spec.md §6.6).
type Decision string

const (
	Entered Decision = "ENTERED"
	Blocked Decision = "BLOCKED"
)

// Observed mirrors breakout.Observed plus the room-to-target reading
// filters compute independently of the tracker.
type Observed struct {
	VolumeRatio     float64 `json:"volume_ratio,omitempty"`
	CandleSizePct   float64 `json:"candle_size_pct,omitempty"`
	RoomToTargetPct float64 `json:"room_to_target_pct,omitempty"`
	CVDSlope        float64 `json:"cvd_slope,omitempty"`
	StochK          float64 `json:"stoch_k,omitempty"`
}

// EntryDecision records one pass or block of the state machine or the
// filter pipeline.
type EntryDecision struct {
	ID            string               `json:"id"`
	Timestamp     time.Time            `json:"timestamp"`
	Symbol        string               `json:"symbol"`
	Side          breakout.Side        `json:"side"`
	Decision      Decision             `json:"decision"`
	ReasonCode    string               `json:"reason_code,omitempty"`
	FilterName    string               `json:"filter_name,omitempty"`
	StateAtDecision breakout.State     `json:"state_at_decision"`
	Observed      Observed             `json:"observed"`
	Pivot         float64              `json:"pivot"`
	CurrentPrice  float64              `json:"current_price"`
	AbsBarIndex   int64                `json:"abs_bar_index"`
}

// PositionEvent records one position lifecycle transition.
type PositionEvent struct {
	ID          string              `json:"id"`
	Timestamp   time.Time           `json:"timestamp"`
	Symbol      string              `json:"symbol"`
	Event       string              `json:"event"` // OPEN | PARTIAL | STOP_MOVE | CLOSE
	Price       float64             `json:"price"`
	Shares      int                 `json:"shares"`
	Reason      position.ExitReason `json:"reason,omitempty"`
	PnLSoFar    float64             `json:"pnl_so_far"`
	AbsBarIndex int64               `json:"abs_bar_index"`
}

// Journal is the append-only sink for both record kinds. It is
// single-writer: only the event loop (internal/scheduler) calls its
// methods, matching the single-reader/single-writer queue model of
// spec.md §5.
type Journal struct {
	mu      sync.Mutex
	entries []EntryDecision
	events  []PositionEvent
	idgen   *idGenerator
	sink    io.Writer // optional line-delimited JSON mirror, nil disables it
}

// New creates a Journal that keeps every record in memory (for
// in-process invariant checks and tests) and, if sink is non-nil, also
// mirrors each record as a JSON line to it.
func New(sink io.Writer) *Journal {
	return &Journal{idgen: newIDGenerator(), sink: sink}
}

// RecordEntry appends an EntryDecision, stamping a deterministic ULID
// derived from the event timestamp so two identical replays produce
// byte-identical IDs (spec.md §8 property 8).
func (j *Journal) RecordEntry(d EntryDecision) EntryDecision {
	j.mu.Lock()
	defer j.mu.Unlock()
	d.ID = j.idgen.next(d.Timestamp)
	j.entries = append(j.entries, d)
	j.write(d)
	return d
}

// RecordPosition appends a PositionEvent under the same determinism
// rule as RecordEntry.
func (j *Journal) RecordPosition(e PositionEvent) PositionEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	e.ID = j.idgen.next(e.Timestamp)
	j.events = append(j.events, e)
	j.write(e)
	return e
}

func (j *Journal) write(rec any) {
	if j.sink == nil {
		return
	}
	enc := json.NewEncoder(j.sink)
	_ = enc.Encode(rec)
}

// Entries returns a copy of every EntryDecision recorded so far.
func (j *Journal) Entries() []EntryDecision {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]EntryDecision, len(j.entries))
	copy(out, j.entries)
	return out
}

// PositionEvents returns a copy of every PositionEvent recorded so far.
func (j *Journal) PositionEvents() []PositionEvent {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]PositionEvent, len(j.events))
	copy(out, j.events)
	return out
}

// AttemptCount returns how many ENTERED decisions have been recorded
// for (symbol, pivot), backing testable property 5.
func (j *Journal) AttemptCount(symbol string, pivot float64) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, e := range j.entries {
		if e.Symbol == symbol && e.Pivot == pivot && e.Decision == Entered {
			n++
		}
	}
	return n
}

// idGenerator produces ULIDs seeded from the event timestamp rather
// than wall-clock time, so a deterministic replay of identical events
// yields identical journal IDs (spec.md §8 property 8). Entropy is a
// fixed-seed PRNG seeded once per Journal in newIDGenerator, not crypto/rand,
// since replay determinism outranks unpredictability here.
type idGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

func newIDGenerator() *idGenerator {
	return &idGenerator{entropy: ulid.Monotonic(rand.New(rand.NewSource(1)), 0)}
}

func (g *idGenerator) next(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(t), g.entropy)
	if err != nil {
		// Timestamps can't go negative in this codebase; a failure here
		// means the entropy source itself is broken.
		panic(err)
	}
	return id.String()
}
