package worker

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"

	"draw-service/internal/logger"
	"draw-service/internal/services"
	"draw-service/pkg/errorx"
)

type Worker struct {
	Draws *services.DrawService
}

func NewWorker(draws *services.DrawService) *Worker {
	return &Worker{Draws: draws}
}

func (w *Worker) HandleDrawClose(ctx context.Context, t *asynq.Task) error {
	var sig services.CloseSignal
	if err := json.Unmarshal(t.Payload(), &sig); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	winners, err := w.Draws.HandleCloseSignal(ctx, sig)
	if err != nil {
		if errorx.Retryable(err) {
			return err
		}
		// the failure is recorded on the draw; an operator retries it
		return fmt.Errorf("close draw %s: %v: %w", sig.DrawID, err, asynq.SkipRetry)
	}
	if winners != nil {
		logger.Infof("Draw %s closed by %s signal with %d winners", sig.DrawID, sig.Trigger, len(winners))
	}
	return nil
}

func (w *Worker) HandleNotification(ctx context.Context, t *asynq.Task) error {
	var ev services.NotificationEvent
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	logger.Infof("notification %s for %s: %s", ev.Kind, ev.UserID, ev.Message)
	return nil
}

func NewServeMux(w *Worker) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeDrawClose, w.HandleDrawClose)
	mux.HandleFunc(TypeNotificationSend, w.HandleNotification)
	return mux
}

func StartWorker(redisOpt asynq.RedisClientOpt, w *Worker, concurrency int) {
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				QueueCritical: 6,
				QueueDefault:  3,
				QueueLow:      1,
			},
		},
	)

	if err := srv.Run(NewServeMux(w)); err != nil {
		logger.Fatalf("could not run server: %v", err)
	}
}
