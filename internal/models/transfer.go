package models

import "time"

// TransferStatus represents the lifecycle state of a transfer
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusCompleted TransferStatus = "completed"
	TransferStatusFailed    TransferStatus = "failed"
)

// Transfer is one logical movement of money between two ledger accounts.
// A completed transfer owns exactly two non-deleted legs that sum to zero,
// plus an optional fee transaction on the source account.
type Transfer struct {
	Base
	FromAccountID     string         `gorm:"type:varchar(36);not null;index" json:"from_account_id"`
	FromKind          AccountKind    `gorm:"not null" json:"from_kind"`
	ToAccountID       string         `gorm:"type:varchar(36);not null;index" json:"to_account_id"`
	ToKind            AccountKind    `gorm:"not null" json:"to_kind"`
	Amount            int64          `gorm:"type:bigint;not null" json:"amount"`
	Fee               int64          `gorm:"type:bigint;not null;default:0" json:"fee"`
	Date              time.Time      `gorm:"not null" json:"date"`
	Description       string         `json:"description"`
	Status            TransferStatus `gorm:"not null" json:"status"`
	FromTransactionID *string        `gorm:"type:varchar(36)" json:"from_transaction_id,omitempty"`
	ToTransactionID   *string        `gorm:"type:varchar(36)" json:"to_transaction_id,omitempty"`
	FeeTransactionID  *string        `gorm:"type:varchar(36)" json:"fee_transaction_id,omitempty"`
}
