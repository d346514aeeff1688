// Package cmd is the cobra CLI surface for the breakout engine: one
// root command plus a run subcommand selecting backtest or live mode
// (spec.md §6.7).
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "engine",
	Short: "An intraday breakout confirmation and execution engine",
	Long: `engine watches a scanner-produced watchlist for breakout and
breakdown pivots, confirms them through a volume/candle/CVD state
machine, filters the survivors, sizes and manages the resulting
positions, and journals every decision so a backtest and a live run of
the same inputs produce identical outcomes.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
