package worker

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/hibiken/asynq"

	"draw-service/internal/services"
)

// Task Types
const (
	TypeDrawClose        = "draw:close"
	TypeNotificationSend = "notification:send"
)

// Queues
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// closeUniqueFor collapses duplicate close signals for one draw.
const closeUniqueFor = time.Minute

// Task Creators

func NewDrawCloseTask(sig services.CloseSignal) (*asynq.Task, error) {
	data, err := json.Marshal(sig)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeDrawClose, data, asynq.Queue(QueueCritical), asynq.MaxRetry(5), asynq.Unique(closeUniqueFor)), nil
}

func NewNotificationTask(ev services.NotificationEvent) (*asynq.Task, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeNotificationSend, data, asynq.Queue(QueueLow), asynq.MaxRetry(3)), nil
}
