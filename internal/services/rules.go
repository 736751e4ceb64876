package services

import (
	"context"
	"time"
)

// Rules are the business constants of the draw economy.
type Rules struct {
	EntryFee            int64
	CompletionThreshold int
	DefaultCloseAfter   time.Duration
	TaskReward          int64
	SelectionAttempts   int
	LockWait            time.Duration
	OpTimeout           time.Duration
	// SelectionTimeout bounds one winner selection including its persist.
	SelectionTimeout time.Duration
}

func DefaultRules() Rules {
	return Rules{
		EntryFee:            100,
		CompletionThreshold: 2500,
		DefaultCloseAfter:   6 * time.Hour,
		TaskReward:          100,
		SelectionAttempts:   3,
		LockWait:            3 * time.Second,
		OpTimeout:           5 * time.Second,
		SelectionTimeout:    time.Minute,
	}
}

func (r Rules) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.OpTimeout)
}

func (r Rules) selectionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.SelectionTimeout <= 0 {
		return r.opContext(ctx)
	}
	return context.WithTimeout(ctx, r.SelectionTimeout)
}
