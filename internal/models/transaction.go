package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type TransactionType string

const (
	TrxDrawEntry    TransactionType = "draw-entry"
	TrxWinning      TransactionType = "winning"
	TrxPrizeClaim   TransactionType = "prize-claim"
	TrxTaskReward   TransactionType = "task-reward"
	TrxDeposit      TransactionType = "deposit"
	TrxWithdrawal   TransactionType = "withdrawal"
	TrxManualCredit TransactionType = "manual-credit"
	TrxManualDebit  TransactionType = "manual-debit"
	TrxRefund       TransactionType = "refund"
)

// Claimable types go through the pending -> completed|rejected workflow.
func (t TransactionType) Claimable() bool {
	switch t {
	case TrxPrizeClaim, TrxTaskReward, TrxDeposit, TrxWithdrawal:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TrxPending    TransactionStatus = "pending"
	TrxProcessing TransactionStatus = "processing"
	TrxCompleted  TransactionStatus = "completed"
	TrxRejected   TransactionStatus = "rejected"
)

var ErrLedgerAppendOnly = errors.New("ledger transactions cannot be deleted")

// Transaction is one ledger row. Amount is signed, negative for debits.
type Transaction struct {
	ID              int64             `gorm:"primaryKey;autoIncrement:false" json:"id,string"`
	UserID          string            `gorm:"column:user_id;size:36;not null;index:idx_trx_user_status" json:"user_id"`
	Type            TransactionType   `gorm:"column:type;size:30;not null;index" json:"type"`
	Amount          int64             `gorm:"column:amount;not null" json:"amount"`
	Status          TransactionStatus `gorm:"column:status;size:20;not null;index:idx_trx_user_status" json:"status"`
	Description     string            `gorm:"column:description;type:text" json:"description"`
	DrawID          *string           `gorm:"column:draw_id;size:36;index" json:"draw_id,omitempty"`
	TicketID        *string           `gorm:"column:ticket_id;size:8" json:"ticket_id,omitempty"`
	TaskDate        *string           `gorm:"column:task_date;size:10" json:"task_date,omitempty"`
	RejectionReason string            `gorm:"column:rejection_reason;type:text" json:"rejection_reason,omitempty"`
	ApprovedBy      string            `gorm:"column:approved_by;size:36" json:"approved_by,omitempty"`
	SettledAt       *time.Time        `gorm:"column:settled_at" json:"settled_at,omitempty"`
	Timestamp       time.Time         `gorm:"column:created_at;autoCreateTime" json:"timestamp"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrLedgerAppendOnly
}
