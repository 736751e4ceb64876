package models

import (
	"time"
)

// TransferDetail is the proof-of-payment or payout destination attached to a
// deposit or withdrawal transaction. Admins reconcile it by hand.
type TransferDetail struct {
	TransactionID int64     `gorm:"primaryKey;autoIncrement:false" json:"transaction_id,string"`
	Method        string    `gorm:"column:method;size:50;not null" json:"method"`
	ExternalTxnID string    `gorm:"column:external_txn_id;size:100;index" json:"external_txn_id,omitempty"`
	SenderName    string    `gorm:"column:sender_name;size:150" json:"sender_name,omitempty"`
	SenderNumber  string    `gorm:"column:sender_number;size:50" json:"sender_number,omitempty"`
	ReceiptRef    string    `gorm:"column:receipt_ref;size:255" json:"receipt_ref,omitempty"`
	AccountName   string    `gorm:"column:account_name;size:150" json:"account_name,omitempty"`
	AccountNumber string    `gorm:"column:account_number;size:50" json:"account_number,omitempty"`
	BankName      string    `gorm:"column:bank_name;size:150" json:"bank_name,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (TransferDetail) TableName() string {
	return "transfer_details"
}
