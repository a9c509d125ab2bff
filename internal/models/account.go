package models

import "time"

// AccountType is the bank-side flavour of an account.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
)

// AccountKind tells which table a ledger account id lives in.
type AccountKind string

const (
	AccountKindBank   AccountKind = "bank"
	AccountKindCredit AccountKind = "credit"
)

// Valid reports whether k is a known kind.
func (k AccountKind) Valid() bool {
	return k == AccountKindBank || k == AccountKindCredit
}

// Account is a bank or cash account. Balance is denormalized from the
// account's non-deleted transactions and only written by the reconciler.
type Account struct {
	Base
	Name       string      `gorm:"not null" json:"name"`
	BankName   string      `json:"bank_name"`
	Type       AccountType `gorm:"not null" json:"type"`
	Currency   string      `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Balance    int64       `gorm:"type:bigint;not null;default:0" json:"balance"`
	IsActive   bool        `gorm:"not null;default:true" json:"is_active"`
	LastUpdate time.Time   `json:"last_update"`
}

// CreditCard is a revolving credit account. CurrentBalance is the debt owed
// (the negated sum of the card's transactions); AvailableCredit is always
// CreditLimit - CurrentBalance.
type CreditCard struct {
	Base
	Name            string    `gorm:"not null" json:"name"`
	BankName        string    `json:"bank_name"`
	Currency        string    `gorm:"size:3;not null;default:'USD'" json:"currency"`
	CreditLimit     int64     `gorm:"type:bigint;not null;default:0" json:"credit_limit"`
	CurrentBalance  int64     `gorm:"type:bigint;not null;default:0" json:"current_balance"`
	AvailableCredit int64     `gorm:"type:bigint;not null;default:0" json:"available_credit"`
	InterestRate    float64   `json:"interest_rate,omitempty"`
	CutoffDay       int       `json:"cutoff_day,omitempty"`
	PaymentDay      int       `json:"payment_day,omitempty"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`
	LastUpdate      time.Time `json:"last_update"`
}
