package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"draw-service/internal/logger"
	"draw-service/internal/services"
)

// Dispatcher enqueues close signals and notifications on asynq.
type Dispatcher struct {
	Client *asynq.Client
}

func NewDispatcher(client *asynq.Client) *Dispatcher {
	return &Dispatcher{Client: client}
}

func (d *Dispatcher) EnqueueDrawClose(ctx context.Context, sig services.CloseSignal) error {
	task, err := NewDrawCloseTask(sig)
	if err != nil {
		return err
	}
	info, err := d.Client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debugf("close signal for draw %s already queued", sig.DrawID)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Infof("Enqueued %s for draw %s: %s", TypeDrawClose, sig.DrawID, info.ID)
	return nil
}

func (d *Dispatcher) Notify(ctx context.Context, ev services.NotificationEvent) error {
	task, err := NewNotificationTask(ev)
	if err != nil {
		return err
	}
	_, err = d.Client.EnqueueContext(ctx, task)
	return err
}
