package models

import (
	"time"
)

type TaskDefinition struct {
	ID          string    `gorm:"primaryKey;size:50" json:"id"`
	Title       string    `gorm:"column:title;size:255;not null" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	Type        string    `gorm:"column:type;size:30" json:"type"`
	Enabled     bool      `gorm:"column:enabled;not null" json:"enabled"`
	Order       int       `gorm:"column:sort_order;not null;default:0" json:"order"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (TaskDefinition) TableName() string {
	return "task_definitions"
}

// DailyTaskProgress is keyed userId_date, one per user per calendar day.
type DailyTaskProgress struct {
	ID             string          `gorm:"primaryKey;size:64" json:"id"`
	UserID         string          `gorm:"column:user_id;size:36;not null;index" json:"user_id"`
	Date           string          `gorm:"column:date;size:10;not null" json:"date"`
	CompletedTasks map[string]bool `gorm:"column:completed_tasks;type:text;serializer:json" json:"completed_tasks"`
	TaskCount      int             `gorm:"column:task_count;not null;default:0" json:"task_count"`
	RewardClaimed  bool            `gorm:"column:reward_claimed;not null;default:false" json:"reward_claimed"`
	RewardClaimID  *int64          `gorm:"column:reward_claim_id" json:"reward_claim_id,omitempty,string"`
	RewardApproved bool            `gorm:"column:reward_approved;not null;default:false" json:"reward_approved"`
	RewardRejected bool            `gorm:"column:reward_rejected;not null;default:false" json:"reward_rejected"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (DailyTaskProgress) TableName() string {
	return "daily_task_progress"
}

func ProgressID(userID, date string) string {
	return userID + "_" + date
}

// DefaultTasks is the task list seeded into an empty task_definitions table.
func DefaultTasks() []TaskDefinition {
	return []TaskDefinition{
		{ID: "task1", Title: "Watch Complete YouTube Video", Description: "Watch a full YouTube video about the platform", Type: "youtube", Enabled: true, Order: 1},
		{ID: "task2", Title: "Like the YouTube Video", Description: "Give a like to our YouTube video", Type: "youtube", Enabled: true, Order: 2},
		{ID: "task3", Title: "Comment on the YouTube Video", Description: "Leave a comment on our YouTube video", Type: "youtube", Enabled: true, Order: 3},
		{ID: "task4", Title: "Share the YouTube Video", Description: "Share our YouTube video with friends", Type: "share", Enabled: true, Order: 4},
		{ID: "task5", Title: "Watch and Click on Ad", Description: "Watch and interact with an advertisement", Type: "ad", Enabled: true, Order: 5},
		{ID: "task6", Title: "Watch and Click on Ad (Second)", Description: "Watch and interact with another advertisement", Type: "ad", Enabled: true, Order: 6},
		{ID: "task7", Title: "Follow Facebook Page", Description: "Follow our official Facebook page", Type: "facebook", Enabled: true, Order: 7},
		{ID: "task8", Title: "Follow Instagram Page", Description: "Follow our official Instagram page", Type: "instagram", Enabled: true, Order: 8},
		{ID: "task9", Title: "Follow Twitter Page", Description: "Follow our official Twitter page", Type: "twitter", Enabled: true, Order: 9},
		{ID: "task10", Title: "Refer a Friend", Description: "Invite a friend to join", Type: "refer", Enabled: true, Order: 10},
	}
}
