package services

import (
	"context"

	"draw-service/internal/logger"
)

type CloseTrigger string

const (
	TriggerThreshold CloseTrigger = "threshold"
	TriggerDeadline  CloseTrigger = "deadline"
)

func (t CloseTrigger) Valid() bool {
	return t == TriggerThreshold || t == TriggerDeadline
}

type CloseSignal struct {
	DrawID  string       `json:"draw_id"`
	Trigger CloseTrigger `json:"trigger"`
}

const (
	EventWinnerSelected = "winner-selected"
	EventClaimSettled   = "claim-settled"
)

type NotificationEvent struct {
	Kind    string `json:"kind"`
	UserID  string `json:"user_id"`
	DrawID  string `json:"draw_id,omitempty"`
	Place   int    `json:"place,omitempty"`
	Prize   int64  `json:"prize,omitempty"`
	ClaimID int64  `json:"claim_id,omitempty,string"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message"`
}

// Dispatcher hands close signals and notifications to the background worker.
// Implementations wired into request paths must not block on delivery.
type Dispatcher interface {
	EnqueueDrawClose(ctx context.Context, sig CloseSignal) error
	Notify(ctx context.Context, ev NotificationEvent) error
}

// LogDispatcher only logs. Lost close signals are recovered by the scanner.
type LogDispatcher struct{}

func (LogDispatcher) EnqueueDrawClose(ctx context.Context, sig CloseSignal) error {
	logger.Infof("draw %s reached close condition (%s)", sig.DrawID, sig.Trigger)
	return nil
}

func (LogDispatcher) Notify(ctx context.Context, ev NotificationEvent) error {
	logger.Infof("notify %s: %s", ev.UserID, ev.Message)
	return nil
}

// InlineDispatcher handles close signals synchronously on the calling
// goroutine. Used by one-shot tools that run without a worker.
type InlineDispatcher struct {
	Draws *DrawService
}

func (d InlineDispatcher) EnqueueDrawClose(ctx context.Context, sig CloseSignal) error {
	_, err := d.Draws.HandleCloseSignal(ctx, sig)
	return err
}

func (InlineDispatcher) Notify(ctx context.Context, ev NotificationEvent) error {
	return LogDispatcher{}.Notify(ctx, ev)
}
