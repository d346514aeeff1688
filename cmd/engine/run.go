package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pivotbreak/engine/internal/bars"
	"github.com/pivotbreak/engine/internal/broker"
	"github.com/pivotbreak/engine/internal/config"
	"github.com/pivotbreak/engine/internal/journal"
	"github.com/pivotbreak/engine/internal/mlscore"
	"github.com/pivotbreak/engine/internal/obslog"
	"github.com/pivotbreak/engine/internal/scanner"
	"github.com/pivotbreak/engine/internal/scheduler"
	"github.com/pivotbreak/engine/internal/telemetry"
	"github.com/pivotbreak/engine/pkg/execution"
	"github.com/pivotbreak/engine/pkg/feed"
)

// Exit codes per spec.md §7: 0 clean session, 1 configuration error, 2
// data-integrity error, 3 broker connectivity lost and not recovered,
// 4 halted by the daily-loss limit.
const (
	exitClean         = 0
	exitConfigError   = 1
	exitDataIntegrity = 2
	exitBrokerLost    = 3
	exitDailyLossHalt = 4
)

var (
	runMode       string
	runDate       string
	runConfigPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the engine for one trading day in backtest or live mode",
	RunE:  runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runMode, "mode", "backtest", "backtest or live")
	runCmd.Flags().StringVar(&runDate, "date", "", "trading day to replay, YYYY-MM-DD (backtest only)")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "path to the YAML strategy config file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(exitConfigError)
	}

	log, err := obslog.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(exitConfigError)
	}

	setups, err := scanner.LoadWatchlist(cfg.WatchlistPath)
	if err != nil {
		log.Error("watchlist load failed", obslog.Err(err))
		os.Exit(exitDataIntegrity)
	}
	watchlist := scanner.NewWatchlist(setups)

	switch runMode {
	case "backtest":
		os.Exit(runBacktest(cfg, watchlist, log))
	case "live":
		os.Exit(runLive(cfg, watchlist, log))
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", runMode)
		os.Exit(exitConfigError)
	}
	return nil
}

func runBacktest(cfg *config.Config, watchlist *scanner.Watchlist, log obslog.Logger) int {
	day, err := parseRunDate(runDate)
	if err != nil {
		log.Error("invalid --date", obslog.Err(err))
		return exitConfigError
	}
	loc := day.Location()

	dailyBars, err := loadDailyBarSet(cfg.BarDataDir, watchlist.Symbols(), day, loc)
	if err != nil {
		log.Error("bar load failed", obslog.Err(err))
		return exitDataIntegrity
	}

	openPrices := make(map[string]float64, len(dailyBars))
	for sym, bs := range dailyBars {
		if len(bs) > 0 {
			openPrices[sym] = bs[0].Open
		}
	}
	watchlist.ApplyGapFilter(cfg.GapFilter, openPrices)

	jr := journal.New(nil)
	eng := scheduler.NewEngine(cfg.Scheduler, watchlist, cfg.Breakout, cfg.Filters, cfg.Exits, cfg.Position, broker.NewBacktest(), jr)
	if scorer, err := mlscore.NewScorer(cfg.MLModelPath); err != nil {
		log.Warn("ml model load failed, scoring disabled", obslog.Err(err))
	} else {
		eng.MLScorer = scorer
	}

	marketOpen := parseSessionTime(day, cfg.Scheduler.MarketOpen, loc)
	eng.ResetSession(watchlist.Symbols(), marketOpen)

	if err := eng.RunBacktest(dailyBars); err != nil {
		log.Error("backtest run failed", obslog.Err(err))
		return exitDataIntegrity
	}

	telemetry.PositionsOpen.Set(float64(eng.Positions.Count()))
	telemetry.DailyPnL.Set(eng.Risk.GetDailyPnL())

	if eng.IsDailyLossHalted() {
		log.Warn("daily loss limit hit", obslog.String("date", runDate))
		return exitDailyLossHalt
	}
	log.Info("backtest complete", obslog.String("date", runDate), obslog.Int("entries", len(jr.Entries())))
	return exitClean
}

func runLive(cfg *config.Config, watchlist *scanner.Watchlist, log obslog.Logger) int {
	if cfg.SignalStackWebhookURL == "" {
		log.Error("SIGNALSTACK_WEBHOOK_URL is required for live trading")
		return exitConfigError
	}

	polygon := feed.NewPolygonFeed(cfg.PolygonAPIKey)
	exec := execution.NewSignalStackClient(cfg.SignalStackWebhookURL)
	brk := broker.NewLive(polygon, exec)

	jr := journal.New(nil)
	eng := scheduler.NewEngine(cfg.Scheduler, watchlist, cfg.Breakout, cfg.Filters, cfg.Exits, cfg.Position, brk, jr)
	if scorer, err := mlscore.NewScorer(cfg.MLModelPath); err != nil {
		log.Warn("ml model load failed, scoring disabled", obslog.Err(err))
	} else {
		eng.MLScorer = scorer
	}

	loc, _ := time.LoadLocation("America/New_York")
	eng.ResetSession(watchlist.Symbols(), time.Now().In(loc))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := eng.RunLive(ctx, watchlist.Symbols()); err != nil {
		log.Error("live run failed", obslog.Err(err))
		eng.Shutdown(time.Now().In(loc))
		return exitBrokerLost
	}

	eng.Shutdown(time.Now().In(loc))
	if eng.IsDailyLossHalted() {
		return exitDailyLossHalt
	}
	return exitClean
}

// loadDailyBarSet reads every symbol's cached 1-minute bar file for
// day, skipping (not failing) symbols with an IncompleteDayError per
// spec.md §7's "per-symbol skip with a journal record mid-session" —
// a missing watchlist symbol is not itself a data-integrity failure
// for the rest of the day.
func loadDailyBarSet(dir string, symbols []string, day time.Time, loc *time.Location) (map[string][]bars.Bar, error) {
	out := make(map[string][]bars.Bar, len(symbols))
	for _, sym := range symbols {
		path := scanner.BarFilePath(dir, sym, day)
		b, err := scanner.LoadDailyBars(path, loc)
		if err != nil {
			if _, incomplete := err.(scanner.IncompleteDayError); incomplete {
				continue
			}
			if os.IsNotExist(unwrapPathError(err)) {
				continue
			}
			return nil, err
		}
		out[sym] = b
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no usable bar data for %s under %s", day.Format("2006-01-02"), dir)
	}
	return out, nil
}

func unwrapPathError(err error) error {
	type unwrapper interface{ Unwrap() error }
	for {
		u, ok := err.(unwrapper)
		if !ok {
			return err
		}
		err = u.Unwrap()
	}
}

func parseRunDate(s string) (time.Time, error) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	if s == "" {
		s = time.Now().In(loc).Format("2006-01-02")
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}

func parseSessionTime(day time.Time, hhmm string, loc *time.Location) time.Time {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return day
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}
