package amm

import (
	"time"

	"shieldswap/internal/model"
)

// Journal receives one record per operation state transition.
type Journal interface {
	Append(records ...model.OperationRecord) error
}

// Observer receives stage timings and final outcomes.
type Observer interface {
	ObserveStage(kind, stage string, elapsed time.Duration)
	ObserveOutcome(kind, outcome string)
}

const (
	kindSwap      = "swap"
	kindLiquidity = "add_liquidity"
	kindRedeem    = "redeem"

	outcomeDone              = "done"
	outcomeAborted           = "aborted"
	outcomeRedemptionPending = "redemption_pending"
)

type nopJournal struct{}

func (nopJournal) Append(...model.OperationRecord) error { return nil }

type nopObserver struct{}

func (nopObserver) ObserveStage(string, string, time.Duration) {}
func (nopObserver) ObserveOutcome(string, string)              {}
