package filters

// Stage names the pipeline position, used only for readability in
// tests and logs.
type Stage struct {
	Name   string
	Filter Filter
}

// Pipeline is the fixed, ordered set of entry filters from spec.md
// §4.4, starting with entry-time-window and symbol-policy and ending
// with the supplemented correlation stage (gap filtering runs once at
// open via GapFilter, not here). The first block wins.
func Pipeline() []Stage {
	return []Stage{
		{"entry_time_window", EntryTimeWindow},
		{"symbol_policy", SymbolPolicy},
		{"attempt_cap", AttemptCap},
		{"choppy", Choppy},
		{"room_to_run", RoomToRun},
		{"stochastic_regime", StochasticRegime},
		{"quality_score", QualityScore},
		{"correlation", Correlation},
	}
}

// Run evaluates the pipeline in order and returns the first block, or
// a passing Result if every stage passes.
func Run(cfg Config, ctx Context) Result {
	for _, stage := range Pipeline() {
		if r := stage.Filter(cfg, ctx); r.Blocked {
			return r
		}
	}
	return pass()
}
