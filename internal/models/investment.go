package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvestmentType represents the kind of investment vehicle.
type InvestmentType string

const (
	InvestmentTypeFixedTerm InvestmentType = "fixed_term"
	InvestmentTypeSavings   InvestmentType = "savings"
	InvestmentTypeFund      InvestmentType = "fund"
	InvestmentTypeStock     InvestmentType = "stock"
	InvestmentTypeOther     InvestmentType = "other"
)

// Investment is money parked outside the bank ledger. SourceAccountID records
// where the initial capital came from; it carries no live balance dependency.
type Investment struct {
	Base
	Name               string          `gorm:"not null" json:"name"`
	Platform           string          `json:"platform"`
	Type               InvestmentType  `gorm:"not null" json:"type"`
	InitialCapital     int64           `gorm:"type:bigint;not null" json:"initial_capital"`
	StartDate          time.Time       `gorm:"not null" json:"start_date"`
	AnnualRate         decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0" json:"annual_rate"`
	AccumulatedReturns int64           `gorm:"type:bigint;not null;default:0" json:"accumulated_returns"`
	CurrentValue       int64           `gorm:"type:bigint;not null" json:"current_value"`
	LastUpdate         time.Time       `json:"last_update"`
	AutoReinvest       bool            `gorm:"not null;default:false" json:"auto_reinvest"`
	SourceAccountID    *string         `gorm:"type:varchar(36)" json:"source_account_id,omitempty"`
	IsActive           bool            `gorm:"not null;default:true" json:"is_active"`

	// Relationships
	Contributions []InvestmentContribution `gorm:"foreignKey:InvestmentID" json:"contributions,omitempty"`
	Withdrawals   []InvestmentWithdrawal   `gorm:"foreignKey:InvestmentID" json:"withdrawals,omitempty"`
}

// InvestmentContribution adds money to an investment, optionally drawn from a bank account.
type InvestmentContribution struct {
	Base
	InvestmentID  string    `gorm:"type:varchar(36);not null;index" json:"investment_id"`
	Date          time.Time `gorm:"not null" json:"date"`
	Amount        int64     `gorm:"type:bigint;not null" json:"amount"`
	AccountID     *string   `gorm:"type:varchar(36)" json:"account_id,omitempty"`
	TransactionID *string   `gorm:"type:varchar(36)" json:"transaction_id,omitempty"`
	Source        string    `json:"source,omitempty"`
}

// InvestmentWithdrawal takes money out of an investment, optionally into a bank account.
type InvestmentWithdrawal struct {
	Base
	InvestmentID  string    `gorm:"type:varchar(36);not null;index" json:"investment_id"`
	Date          time.Time `gorm:"not null" json:"date"`
	Amount        int64     `gorm:"type:bigint;not null" json:"amount"`
	AccountID     *string   `gorm:"type:varchar(36)" json:"account_id,omitempty"`
	TransactionID *string   `gorm:"type:varchar(36)" json:"transaction_id,omitempty"`
	Reason        string    `json:"reason,omitempty"`
}
