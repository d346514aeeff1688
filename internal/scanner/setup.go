// Package scanner loads the external scanner's watchlist and cached
// historical bar files (spec.md §6.1, §6.2, §6.3). The scanner itself
// — the process that produces the watchlist — is out of scope (spec.md
// §1); this package only reads what it emits.
package scanner

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pivotbreak/engine/internal/breakout"
)

// SetupType distinguishes a long-biased from a short-biased watchlist
// entry, spec.md §6.1's setup_type field.
type SetupType string

const (
	SetupBreakout  SetupType = "breakout"
	SetupBreakdown SetupType = "breakdown"
)

// Setup is the immutable per-(symbol, trading day) record from the
// external scanner (spec.md §3 "Setup"). Unknown JSON fields are
// preserved verbatim in UnknownFields so the engine never silently
// drops scanner-provided context it doesn't itself consume.
type Setup struct {
	Symbol        string    `json:"symbol"`
	Close         float64   `json:"close"`
	Resistance    float64   `json:"resistance"`
	Support       float64   `json:"support"`
	Target1       *float64  `json:"target1,omitempty"`
	Target2       *float64  `json:"target2,omitempty"`
	Target3       *float64  `json:"target3,omitempty"`
	Downside1     *float64  `json:"downside1,omitempty"`
	Downside2     *float64  `json:"downside2,omitempty"`
	Score         int       `json:"score"`
	RiskReward    float64   `json:"risk_reward"`
	PivotWidthPct float64   `json:"pivot_width_pct"`
	TestCount     int       `json:"test_count"`
	SetupType     SetupType `json:"setup_type"`
	PrevClose     float64   `json:"prev_close"`

	UnknownFields map[string]any `json:"-"`
}

var knownSetupFields = map[string]bool{
	"symbol": true, "close": true, "resistance": true, "support": true,
	"target1": true, "target2": true, "target3": true,
	"downside1": true, "downside2": true, "score": true, "risk_reward": true,
	"pivot_width_pct": true, "test_count": true, "setup_type": true, "prev_close": true,
}

// UnmarshalJSON decodes the named fields normally and stashes every
// other key in UnknownFields so round-tripping preserves scanner
// extensions the engine doesn't model (spec.md §6.1).
func (s *Setup) UnmarshalJSON(data []byte) error {
	type alias Setup
	aux := (*alias)(s)
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.UnknownFields = make(map[string]any)
	for k, v := range raw {
		if knownSetupFields[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err == nil {
			s.UnknownFields[k] = val
		}
	}
	return nil
}

// MarshalJSON re-emits the named fields plus every preserved unknown
// field, so passthrough round-trips.
func (s Setup) MarshalJSON() ([]byte, error) {
	type alias Setup
	base, err := json.Marshal(alias(s))
	if err != nil {
		return nil, err
	}
	if len(s.UnknownFields) == 0 {
		return base, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range s.UnknownFields {
		b, err := json.Marshal(v)
		if err != nil {
			continue
		}
		merged[k] = b
	}
	return json.Marshal(merged)
}

// Side returns the breakout side this setup's pivot is watched for:
// SHORT for a breakdown setup, LONG otherwise. The engine tracks one
// pivot per symbol, on this side only; ToPivot can project either side.
func (s Setup) Side() breakout.Side {
	if s.SetupType == SetupBreakdown {
		return breakout.Short
	}
	return breakout.Long
}

// ToPivot projects a Setup into the breakout package's read-only Pivot
// view for the given side.
func (s Setup) ToPivot(side breakout.Side) breakout.Pivot {
	p := breakout.Pivot{
		Symbol:        s.Symbol,
		Side:          side,
		Resistance:    s.Resistance,
		Support:       s.Support,
		Score:         s.Score,
		RiskReward:    s.RiskReward,
		PivotWidthPct: s.PivotWidthPct,
		TestCount:     s.TestCount,
		PrevClose:     s.PrevClose,
	}
	if s.Target1 != nil {
		p.Target1, p.HasTarget1 = *s.Target1, true
	}
	if s.Target2 != nil {
		p.Target2, p.HasTarget2 = *s.Target2, true
	}
	if s.Target3 != nil {
		p.Target3, p.HasTarget3 = *s.Target3, true
	}
	if s.Downside1 != nil {
		p.Downside1, p.HasDownside1 = *s.Downside1, true
	}
	if s.Downside2 != nil {
		p.Downside2, p.HasDownside2 = *s.Downside2, true
	}
	return p
}

// LoadWatchlist reads the scanner watchlist file, dispatching on
// extension between the JSON array and CSV encodings spec.md §6.1
// says are identical in column set.
func LoadWatchlist(path string) ([]Setup, error) {
	if strings.HasSuffix(strings.ToLower(path), ".csv") {
		return loadWatchlistCSV(path)
	}
	return loadWatchlistJSON(path)
}

func loadWatchlistJSON(path string) ([]Setup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watchlist %s: %w", path, err)
	}
	var setups []Setup
	if err := json.Unmarshal(data, &setups); err != nil {
		return nil, fmt.Errorf("parse watchlist %s: %w", path, err)
	}
	return setups, nil
}

func loadWatchlistCSV(path string) ([]Setup, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse watchlist csv %s: %w", path, err)
	}
	if len(rows) < 1 {
		return nil, nil
	}
	header := rows[0]
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}

	setups := make([]Setup, 0, len(rows)-1)
	for _, row := range rows[1:] {
		s := Setup{}
		s.Symbol = field(row, col, "symbol")
		s.Close = fieldFloat(row, col, "close")
		s.Resistance = fieldFloat(row, col, "resistance")
		s.Support = fieldFloat(row, col, "support")
		s.Target1 = fieldFloatPtr(row, col, "target1")
		s.Target2 = fieldFloatPtr(row, col, "target2")
		s.Target3 = fieldFloatPtr(row, col, "target3")
		s.Downside1 = fieldFloatPtr(row, col, "downside1")
		s.Downside2 = fieldFloatPtr(row, col, "downside2")
		s.Score = int(fieldFloat(row, col, "score"))
		s.RiskReward = fieldFloat(row, col, "risk_reward")
		s.PivotWidthPct = fieldFloat(row, col, "pivot_width_pct")
		s.TestCount = int(fieldFloat(row, col, "test_count"))
		s.SetupType = SetupType(field(row, col, "setup_type"))
		s.PrevClose = fieldFloat(row, col, "prev_close")
		setups = append(setups, s)
	}
	return setups, nil
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func fieldFloat(row []string, col map[string]int, name string) float64 {
	v, _ := strconv.ParseFloat(field(row, col, name), 64)
	return v
}

func fieldFloatPtr(row []string, col map[string]int, name string) *float64 {
	s := field(row, col, name)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
