package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrEntryImmutable = errors.New("entries are immutable")

type Entry struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"column:user_id;size:36;not null;index" json:"user_id"`
	DrawID    string    `gorm:"column:draw_id;size:36;not null;uniqueIndex:idx_entry_draw_ticket" json:"draw_id"`
	TicketID  string    `gorm:"column:ticket_id;size:8;not null;uniqueIndex:idx_entry_draw_ticket" json:"ticket_id"`
	EntryFee  int64     `gorm:"column:entry_fee;not null" json:"entry_fee"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Entry) TableName() string {
	return "entries"
}

func (e *Entry) BeforeUpdate(tx *gorm.DB) error {
	return ErrEntryImmutable
}

func (e *Entry) BeforeDelete(tx *gorm.DB) error {
	return ErrEntryImmutable
}
