package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finledger/internal/models"
	"finledger/internal/pagination"
)

// TransactionUpdateFields holds the ledger columns the store may patch.
// Nil fields are left untouched.
type TransactionUpdateFields struct {
	Description          *string
	Pending              *bool
	Date                 *time.Time
	AccountID            *string
	AccountKind          *models.AccountKind
	RelatedTransactionID *string
	TransferID           *string
	Balance              *int64
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate  *time.Time
	ToDate    *time.Time
	Type      *models.TransactionType
	MinAmount *int64
	MaxAmount *int64
	Pending   *bool
}

// LedgerStorer is the append-only transaction table. Every method takes an
// optional *gorm.DB so it joins the caller's database transaction; nil means
// the store's own handle. It never touches account balances.
type LedgerStorer interface {
	Append(db *gorm.DB, txn *models.Transaction) (*models.Transaction, error)
	Update(db *gorm.DB, id string, fields TransactionUpdateFields) error
	SoftDelete(db *gorm.DB, id string) error
	ByAccount(db *gorm.DB, accountID string) ([]models.Transaction, error)
	SumByAccount(db *gorm.DB, accountID string) (int64, error)
	GetByID(db *gorm.DB, id string) (*models.Transaction, error)
	ByTransfer(db *gorm.DB, transferID string) ([]models.Transaction, error)
	ListAccount(accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	ListDeleted(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
}

// Reconciliation describes one recompute of an account's denormalized balance.
// For credit cards the values are the card's current balance (debt).
type Reconciliation struct {
	AccountID       string             `json:"account_id"`
	Kind            models.AccountKind `json:"kind"`
	Previous        int64              `json:"previous"`
	Current         int64              `json:"current"`
	Drift           int64              `json:"drift"`
	AvailableCredit *int64             `json:"available_credit,omitempty"`
}

// Reconciler is the single authority for what an account's balance should be.
type Reconciler interface {
	Recalculate(db *gorm.DB, accountID string) (*Reconciliation, error)
	Inspect(db *gorm.DB, accountID string) (*Reconciliation, error)
	Snapshot(db *gorm.DB, rec *Reconciliation, transactionIDs ...string) error
}

// CreateAccountRequest holds the fields for opening a bank or cash account.
type CreateAccountRequest struct {
	Name           string
	BankName       string
	Type           models.AccountType
	Currency       string
	InitialBalance int64
}

// CreateCreditCardRequest holds the fields for opening a credit card.
type CreateCreditCardRequest struct {
	Name         string
	BankName     string
	Currency     string
	CreditLimit  int64
	InitialDebt  int64
	InterestRate float64
	CutoffDay    int
	PaymentDay   int
}

// AccountUpdateFields holds metadata changes for a bank account. Balances are
// never accepted here.
type AccountUpdateFields struct {
	Name     *string
	BankName *string
	Type     *models.AccountType
	IsActive *bool
}

// CreditCardUpdateFields holds metadata changes for a credit card.
type CreditCardUpdateFields struct {
	Name         *string
	BankName     *string
	IsActive     *bool
	CreditLimit  *int64
	InterestRate *float64
	CutoffDay    *int
	PaymentDay   *int
}

// AccountServicer defines the contract for bank account and credit card management.
type AccountServicer interface {
	CreateAccount(req CreateAccountRequest) (*models.Account, error)
	CreateCreditCard(req CreateCreditCardRequest) (*models.CreditCard, error)
	GetAccountByID(accountID string) (*models.Account, error)
	GetCreditCardByID(cardID string) (*models.CreditCard, error)
	ListAccounts(page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.Account], error)
	ListCreditCards(page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.CreditCard], error)
	UpdateAccount(accountID string, fields AccountUpdateFields) (*models.Account, error)
	UpdateCreditCard(cardID string, fields CreditCardUpdateFields) (*models.CreditCard, error)
	DeleteAccount(accountID string) error
	DeleteCreditCard(cardID string) error
}

// RecordTransactionRequest describes an expense, income or manual movement on
// one account. Amount is the positive magnitude; the sign follows Type.
type RecordTransactionRequest struct {
	AccountID   string
	AccountKind models.AccountKind
	Type        models.TransactionType
	Amount      int64
	Description string
	Date        time.Time
	Pending     bool
	ExpenseID   *string
	IncomeID    *string
}

// TransactionEdit holds the user-editable parts of a transaction.
type TransactionEdit struct {
	Description *string
	Pending     *bool
	Date        *time.Time
	AccountID   *string
	AccountKind *models.AccountKind
}

// TransactionServicer defines the contract for single-account ledger entries.
type TransactionServicer interface {
	RecordTransaction(req RecordTransactionRequest) (*models.Transaction, error)
	AdjustBalance(accountID string, kind models.AccountKind, target int64, description string) (*models.Transaction, error)
	GetTransactionByID(transactionID string) (*models.Transaction, error)
	GetAccountTransactions(accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetDeletedTransactions(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	UpdateTransaction(transactionID string, edit TransactionEdit) (*models.Transaction, error)
	DeleteTransaction(transactionID string) error
}

// TransferRequest describes one logical transfer between two ledger accounts.
type TransferRequest struct {
	FromAccountID string
	FromKind      models.AccountKind
	ToAccountID   string
	ToKind        models.AccountKind
	Amount        int64
	Fee           int64
	Date          time.Time
	Description   string
}

// ValidationResult is the outcome of a pre-transfer funds check.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error,omitempty"`
}

// TransferFilter holds optional filter parameters for listing transfers.
type TransferFilter struct {
	AccountID *string
	FromDate  *time.Time
	ToDate    *time.Time
}

// TransferServicer defines the contract of the double-entry transfer engine.
type TransferServicer interface {
	Validate(fromAccountID string, fromKind models.AccountKind, amount int64) (*ValidationResult, error)
	CreateTransfer(req TransferRequest) (*models.Transfer, error)
	DeleteTransfer(transferID string) error
	GetTransferByID(transferID string) (*models.Transfer, error)
	GetTransferLegs(transferID string) ([]models.Transaction, error)
	ListTransfers(page pagination.PageRequest, filter TransferFilter) (*pagination.PageResponse[models.Transfer], error)
}

// CreateInvestmentRequest holds the fields for a new investment.
type CreateInvestmentRequest struct {
	Name           string
	Platform       string
	Type           models.InvestmentType
	InitialCapital int64
	StartDate      time.Time
	AnnualRate     decimal.Decimal
	AutoReinvest   bool
}

// InvestmentServicer defines the contract for moving money between bank
// accounts and investments.
type InvestmentServicer interface {
	CreateInvestment(req CreateInvestmentRequest, sourceAccountID *string) (*models.Investment, error)
	AddContribution(investmentID string, amount int64, sourceAccountID *string, source string) (*models.InvestmentContribution, error)
	ProcessWithdrawal(investmentID string, amount int64, destinationAccountID *string, reason string) (*models.InvestmentWithdrawal, error)
	DeleteContribution(investmentID, contributionID string) error
	DeleteWithdrawal(investmentID, withdrawalID string) error
	GetTotalInvested(investmentID string) (int64, error)
	AccrueReturns(investmentID string, asOf time.Time) (*models.Investment, error)
	GetInvestmentByID(investmentID string) (*models.Investment, error)
	ListInvestments(page pagination.PageRequest) (*pagination.PageResponse[models.Investment], error)
}

// Discrepancy is an account whose stored balance disagrees with its ledger.
type Discrepancy struct {
	AccountID string             `json:"account_id"`
	Kind      models.AccountKind `json:"kind"`
	Stored    int64              `json:"stored"`
	Expected  int64              `json:"expected"`
	Drift     int64              `json:"drift"`
}

// ValidationReport is the result of an integrity scan.
type ValidationReport struct {
	AccountsChecked      int           `json:"accounts_checked"`
	TransactionsChecked  int64         `json:"transactions_checked"`
	OrphanedTransactions int           `json:"orphaned_transactions"`
	BalanceDiscrepancies int           `json:"balance_discrepancies"`
	Discrepancies        []Discrepancy `json:"discrepancies"`
	OrphanIDs            []string      `json:"orphan_ids"`
	CanAutoFix           bool          `json:"can_auto_fix"`
	CheckedAt            time.Time     `json:"checked_at"`
}

// Healthy reports whether the scan found nothing to repair.
func (r *ValidationReport) Healthy() bool {
	return r.OrphanedTransactions == 0 && r.BalanceDiscrepancies == 0
}

// FixReport is the result of a reconciliation pass.
type FixReport struct {
	Checked int              `json:"checked"`
	Fixed   int              `json:"fixed"`
	Details []Reconciliation `json:"details"`
}

// ManualReconciliationReport combines every repair step for display.
type ManualReconciliationReport struct {
	Before          *ValidationReport `json:"before"`
	OrphansRemoved  int               `json:"orphans_removed"`
	TransfersFailed int               `json:"transfers_failed"`
	Reconciled      *FixReport        `json:"reconciled"`
	After           *ValidationReport `json:"after"`
	StartedAt       time.Time         `json:"started_at"`
	DurationMillis  int64             `json:"duration_ms"`
}

// IntegrityServicer defines the contract of the startup validator and auto-fixer.
type IntegrityServicer interface {
	RunValidations() (*ValidationReport, error)
	AutoFixBalanceDiscrepancies() (*FixReport, error)
	CleanupOrphanedTransactions() (int, error)
	ReconcileAllAccounts() (*FixReport, error)
	RunManualReconciliation() (*ManualReconciliationReport, error)
	RunStartupCheck(autoFix bool) (*ValidationReport, error)
	LatestReport() (*ValidationReport, bool)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(actor, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
