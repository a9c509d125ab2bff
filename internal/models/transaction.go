package models

import "time"

// TransactionType represents the type of a ledger transaction
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePayment    TransactionType = "payment"
	TransactionTypeCharge     TransactionType = "charge"
	TransactionTypeRefund     TransactionType = "refund"
)

// Inflow reports whether the type adds money to the owning account's ledger.
// Transfers are signed by the engine, so they are neither.
func (t TransactionType) Inflow() bool {
	switch t {
	case TransactionTypeDeposit, TransactionTypePayment, TransactionTypeRefund:
		return true
	}
	return false
}

// Outflow reports whether the type removes money from the owning account's ledger.
func (t TransactionType) Outflow() bool {
	return t == TransactionTypeWithdrawal || t == TransactionTypeCharge
}

// Transaction is one signed entry in an account's ledger. Amount is positive for
// inflows and negative for outflows; Balance is the account's reconciled balance
// right after this entry was written.
type Transaction struct {
	Base
	AccountID   string          `gorm:"type:varchar(36);not null;index" json:"account_id"`
	AccountKind AccountKind     `gorm:"not null" json:"account_kind"`
	Date        time.Time       `gorm:"not null" json:"date"`
	Amount      int64           `gorm:"type:bigint;not null" json:"amount"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Description string          `json:"description"`
	Balance     int64           `gorm:"type:bigint;not null;default:0" json:"balance"`
	Pending     bool            `gorm:"not null;default:false" json:"pending"`

	RelatedTransactionID *string `gorm:"type:varchar(36)" json:"related_transaction_id,omitempty"`
	TransferID           *string `gorm:"type:varchar(36);index" json:"transfer_id,omitempty"`
	ExpenseID            *string `gorm:"type:varchar(36)" json:"expense_id,omitempty"`
	IncomeID             *string `gorm:"type:varchar(36)" json:"income_id,omitempty"`
	InvestmentID         *string `gorm:"type:varchar(36)" json:"investment_id,omitempty"`
}
