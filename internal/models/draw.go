package models

import (
	"time"

	"gorm.io/gorm"
)

type DrawStatus string

const (
	DrawActive     DrawStatus = "active"
	DrawPaused     DrawStatus = "paused"
	DrawClosing    DrawStatus = "closing"
	DrawCompleting DrawStatus = "completing"
	DrawCompleted  DrawStatus = "completed"
)

type Draw struct {
	ID                 string         `gorm:"primaryKey;size:36" json:"id"`
	DrawNumber         int            `gorm:"column:draw_number;not null;uniqueIndex" json:"draw_number"`
	Description        string         `gorm:"column:description;type:text" json:"description,omitempty"`
	DrawTime           time.Time      `gorm:"column:draw_time;not null;index" json:"draw_time"`
	EndTime            time.Time      `gorm:"column:end_time;not null" json:"end_time"`
	Status             DrawStatus     `gorm:"column:status;size:20;not null;index" json:"status"`
	Entries            int            `gorm:"column:entries;not null;default:0" json:"entries"`
	Participants       int            `gorm:"column:participants;not null;default:0" json:"participants"`
	AutoClosingEnabled bool           `gorm:"column:auto_closing_enabled;not null" json:"auto_closing_enabled"`
	WinnersSelected    bool           `gorm:"column:winners_selected;not null;default:false" json:"winners_selected"`
	SelectionStartedAt *time.Time     `gorm:"column:selection_started_at" json:"-"`
	SelectionError     string         `gorm:"column:selection_error;type:text" json:"selection_error,omitempty"`
	CompletedAt        *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Winners            []Winner       `gorm:"foreignKey:DrawID" json:"winners"`
	CreatedAt          time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Draw) TableName() string {
	return "draws"
}

// AcceptsEntries reports whether a purchase may be attempted against the draw.
func (d Draw) AcceptsEntries() bool {
	return d.Status == DrawActive && d.SelectionStartedAt == nil && !d.WinnersSelected
}

type Winner struct {
	ID                 uint       `gorm:"primaryKey;autoIncrement" json:"-"`
	DrawID             string     `gorm:"column:draw_id;size:36;not null;uniqueIndex:idx_winner_draw_place;uniqueIndex:idx_winner_draw_user" json:"draw_id"`
	UserID             string     `gorm:"column:user_id;size:36;not null;uniqueIndex:idx_winner_draw_user;index:idx_winner_user_place" json:"user_id"`
	TicketID           string     `gorm:"column:ticket_id;size:8;not null" json:"ticket_id"`
	Place              int        `gorm:"column:place;not null;uniqueIndex:idx_winner_draw_place;index:idx_winner_user_place" json:"place"`
	Prize              int64      `gorm:"column:prize;not null" json:"prize"`
	Claimed            bool       `gorm:"column:claimed;not null;default:false" json:"claimed"`
	Approved           bool       `gorm:"column:approved;not null;default:false" json:"approved"`
	Rejected           bool       `gorm:"column:rejected;not null;default:false" json:"rejected"`
	ClaimTimestamp     *time.Time `gorm:"column:claim_timestamp" json:"claim_timestamp,omitempty"`
	ApprovedAt         *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`
	ApprovedBy         string     `gorm:"column:approved_by;size:36" json:"approved_by,omitempty"`
	ClaimTransactionID *int64     `gorm:"column:claim_transaction_id;index" json:"claim_transaction_id,omitempty,string"`
}

func (Winner) TableName() string {
	return "draw_winners"
}
