package scanner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pivotbreak/engine/internal/bars"
)

// MinCompleteBars is the floor below which a cached day is flagged
// incomplete and the symbol-day is skipped (spec.md §6.2: "files with
// fewer than ~300 records must be flagged as incomplete").
const MinCompleteBars = 300

// FullSessionBars is the expected record count for a regular session
// (09:30-16:00, 6.5 hours x 60).
const FullSessionBars = 390

// rawBar is the on-disk shape of one cached 1-minute record.
type rawBar struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	Average  float64 `json:"average"`
	BarCount int64   `json:"barCount"`
}

// IncompleteDayError is returned when a cached bar file has fewer than
// MinCompleteBars records; callers skip the symbol-day rather than
// treating this as fatal (spec.md §7 "Data errors").
type IncompleteDayError struct {
	Path  string
	Count int
}

func (e IncompleteDayError) Error() string {
	return fmt.Sprintf("%s: only %d bars, expected at least %d", e.Path, e.Count, MinCompleteBars)
}

// BarFilePath returns the conventional path for one (symbol, day)'s
// cached 1-minute bars under dir.
func BarFilePath(dir, symbol string, day time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s_1min.json", symbol, day.Format("20060102")))
}

// LoadDailyBars reads one (symbol, day) 1-minute bar file (spec.md
// §6.2), returning IncompleteDayError if it falls short of
// MinCompleteBars rather than a generic parse error, so callers can
// distinguish "skip this symbol-day" from "the file is corrupt".
func LoadDailyBars(path string, loc *time.Location) ([]bars.Bar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bar file %s: %w", path, err)
	}
	var raw []rawBar
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse bar file %s: %w", path, err)
	}
	if len(raw) < MinCompleteBars {
		return nil, IncompleteDayError{Path: path, Count: len(raw)}
	}

	out := make([]bars.Bar, 0, len(raw))
	var prevTime time.Time
	for i, rb := range raw {
		t, err := time.Parse(time.RFC3339, rb.Date)
		if err != nil {
			return nil, fmt.Errorf("%s: bar %d: bad timestamp %q: %w", path, i, rb.Date, err)
		}
		if loc != nil {
			t = t.In(loc)
		}
		if i > 0 && !t.After(prevTime) {
			return nil, fmt.Errorf("%s: bar %d: non-monotonic timestamp", path, i)
		}
		prevTime = t
		out = append(out, bars.Bar{
			Time:      t,
			Open:      rb.Open,
			High:      rb.High,
			Low:       rb.Low,
			Close:     rb.Close,
			Volume:    rb.Volume,
			VWAP:      rb.Average,
			TickCount: rb.BarCount,
		})
	}
	return out, nil
}

// ContextIndicators is the optional per symbol-day precomputed
// indicator bundle (spec.md §6.3). When present the engine prefers
// these values over values it would compute itself.
type ContextIndicators struct {
	Daily struct {
		SMA5, SMA10, SMA20, SMA50, SMA100, SMA200 float64
		EMA9, EMA20, EMA50                        float64
		RSI14                                     float64
		ATR14                                      float64
		BBUpper, BBMiddle, BBLower                 float64
		PrevClose, PrevHigh, PrevLow                float64
	} `json:"daily"`
	Hourly    map[string]HourlyContext `json:"hourly"`
	Intraday  struct {
		VWAP               float64 `json:"vwap"`
		OpeningRangeHigh   float64 `json:"opening_range_high"`
		OpeningRangeLow    float64 `json:"opening_range_low"`
		VolumeFirstHour    float64 `json:"volume_first_hour"`
	} `json:"intraday"`
}

// HourlyContext is one hour-of-day's precomputed indicator snapshot.
type HourlyContext struct {
	Close  float64 `json:"close"`
	SMA20  float64 `json:"sma_20"`
	StochK float64 `json:"stoch_k"`
}

// LoadContextIndicators reads the optional context file for a
// symbol-day, returning (nil, nil) if it does not exist rather than an
// error, per spec.md §6.3's "when absent, it computes them from the
// 1-minute file".
func LoadContextIndicators(path string) (*ContextIndicators, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read context indicators %s: %w", path, err)
	}
	var ci ContextIndicators
	if err := json.Unmarshal(data, &ci); err != nil {
		return nil, fmt.Errorf("parse context indicators %s: %w", path, err)
	}
	return &ci, nil
}
