package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"draw-service/internal/models"
	"draw-service/pkg/errorx"
)

type TaskService struct {
	DB    *gorm.DB
	Locks Locker
	Rules Rules
}

func NewTaskService(db *gorm.DB, locks Locker, rules Rules) *TaskService {
	return &TaskService{DB: db, Locks: locks, Rules: rules}
}

type TaskDefinitionDTO struct {
	ID          string `json:"id" validate:"required,max=50"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description"`
	Type        string `json:"type" validate:"max=30"`
	Enabled     bool   `json:"enabled"`
	Order       int    `json:"order" validate:"min=0"`
}

// Today is the task date for now, in UTC.
func Today() string {
	return time.Now().UTC().Format(dateLayout)
}

func checkDate(date string) error {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return errorx.New(errorx.ValidationError, "date must be YYYY-MM-DD")
	}
	return nil
}

func (s *TaskService) ListTasks(ctx context.Context, enabledOnly bool) ([]models.TaskDefinition, error) {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	var tasks []models.TaskDefinition
	q := s.DB.WithContext(ctx).Order("sort_order ASC, id ASC")
	if enabledOnly {
		q = q.Where("enabled = ?", true)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) UpsertTask(ctx context.Context, data TaskDefinitionDTO) (*models.TaskDefinition, error) {
	if err := validateDTO(data); err != nil {
		return nil, err
	}
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	task := models.TaskDefinition{
		ID:          data.ID,
		Title:       data.Title,
		Description: data.Description,
		Type:        data.Type,
		Enabled:     data.Enabled,
		Order:       data.Order,
	}
	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "description", "type", "enabled", "sort_order", "updated_at"}),
	}).Create(&task).Error
	if err != nil {
		return nil, fmt.Errorf("save task: %w", err)
	}
	return &task, nil
}

func (s *TaskService) SetTaskEnabled(ctx context.Context, taskID string, enabled bool) error {
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	res := s.DB.WithContext(ctx).Model(&models.TaskDefinition{}).Where("id = ?", taskID).UpdateColumn("enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.TaskDefinition{}).Where("id = ?", taskID).Count(&count).Error; err != nil {
			return fmt.Errorf("check task: %w", err)
		}
		if count == 0 {
			return errorx.New(errorx.NotFound, "task %s", taskID)
		}
	}
	return nil
}

// progressTx loads the day's record, creating it with every enabled task open.
func progressTx(tx *gorm.DB, userID, date string) (*models.DailyTaskProgress, error) {
	id := models.ProgressID(userID, date)

	var progress models.DailyTaskProgress
	err := tx.First(&progress, "id = ?", id).Error
	if err == nil {
		return &progress, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load progress: %w", err)
	}

	var tasks []models.TaskDefinition
	if err := tx.Where("enabled = ?", true).Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	completed := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		completed[t.ID] = false
	}
	progress = models.DailyTaskProgress{
		ID:             id,
		UserID:         userID,
		Date:           date,
		CompletedTasks: completed,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&progress).Error; err != nil {
		return nil, fmt.Errorf("create progress: %w", err)
	}
	if err := tx.First(&progress, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("reload progress: %w", err)
	}
	return &progress, nil
}

func (s *TaskService) Progress(ctx context.Context, userID, date string) (*models.DailyTaskProgress, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}
	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()
	return progressTx(s.DB.WithContext(ctx), userID, date)
}

// CompleteTask marks one task done for the day. Completing a task twice is a
// no-op; nothing changes once the day's reward was claimed.
func (s *TaskService) CompleteTask(ctx context.Context, userID, date, taskID string) (*models.DailyTaskProgress, error) {
	if err := checkDate(date); err != nil {
		return nil, err
	}

	ctx, cancel := s.Rules.opContext(ctx)
	defer cancel()

	release, err := s.Locks.Acquire(ctx, userLockKey(userID), s.Rules.LockWait)
	if err != nil {
		return nil, err
	}
	defer release()

	var progress *models.DailyTaskProgress
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var task models.TaskDefinition
		err := tx.First(&task, "id = ? AND enabled = ?", taskID, true).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errorx.New(errorx.NotFound, "task %s", taskID)
		}
		if err != nil {
			return fmt.Errorf("load task: %w", err)
		}

		progress, err = progressTx(tx, userID, date)
		if err != nil {
			return err
		}
		if progress.RewardClaimed {
			return errorx.New(errorx.AlreadyClaimed, "reward for %s", date)
		}
		if progress.CompletedTasks[taskID] {
			return nil
		}

		if progress.CompletedTasks == nil {
			progress.CompletedTasks = make(map[string]bool)
		}
		progress.CompletedTasks[taskID] = true
		count := 0
		for _, done := range progress.CompletedTasks {
			if done {
				count++
			}
		}
		progress.TaskCount = count

		if err := tx.Model(progress).Select("completed_tasks", "task_count").Updates(progress).Error; err != nil {
			return fmt.Errorf("save progress: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}
