package risk

import (
	"time"
)

// RiskLimitsManager tracks the session's realised P&L against spec.md
// §5's single halt trigger (daily loss). It does not decide when to
// halt trading itself — internal/scheduler.Engine.IsDailyLossHalted
// combines GetDailyPnL with a mark-to-market unrealised read across
// open positions, since realised P&L alone can't see an open-position
// drawdown that's never closed out.
type RiskLimitsManager struct {
	maxDailyLoss       float64
	hardStopLoss       float64
	initialAccountSize float64

	dailyPnL       float64
	lastTradeDate  time.Time
	accountBalance float64

	dailyLossHit bool
}

// NewRiskLimitsManager creates a new risk limits manager
func NewRiskLimitsManager(initialAccountSize, maxDailyLoss, hardStopLoss float64) *RiskLimitsManager {
	return &RiskLimitsManager{
		maxDailyLoss:       maxDailyLoss,
		hardStopLoss:       hardStopLoss,
		initialAccountSize: initialAccountSize,
		accountBalance:     initialAccountSize,
	}
}

// UpdateDailyPnL updates daily P&L and resets if new day
func (rlm *RiskLimitsManager) UpdateDailyPnL(pnl float64, tradeTime time.Time) {
	// Check if this is a new trading day
	tradeDate := tradeTime.Truncate(24 * time.Hour)

	if !rlm.lastTradeDate.IsZero() && !tradeDate.Equal(rlm.lastTradeDate) {
		rlm.dailyPnL = 0
		rlm.dailyLossHit = false
	}

	rlm.lastTradeDate = tradeDate
	rlm.dailyPnL += pnl
	rlm.accountBalance += pnl

	if rlm.dailyPnL <= -rlm.maxDailyLoss {
		rlm.dailyLossHit = true
	}
}

// ResetDailyPnL resets daily P&L (call at market open)
func (rlm *RiskLimitsManager) ResetDailyPnL() {
	rlm.dailyPnL = 0
	rlm.dailyLossHit = false
}

// GetDailyPnL returns current daily realised P&L
func (rlm *RiskLimitsManager) GetDailyPnL() float64 {
	return rlm.dailyPnL
}

// GetAccountBalance returns current account balance
func (rlm *RiskLimitsManager) GetAccountBalance() float64 {
	return rlm.accountBalance
}

// IsDailyLossHit returns true if realised P&L alone has hit the daily
// loss limit, independent of any open-position drawdown. Engine's
// IsDailyLossHalted is the one that should gate entries.
func (rlm *RiskLimitsManager) IsDailyLossHit() bool {
	return rlm.dailyLossHit
}

// GetHardStopLoss returns the hard stop loss amount per trade
func (rlm *RiskLimitsManager) GetHardStopLoss() float64 {
	return rlm.hardStopLoss
}
