package services

import (
	"errors"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"gorm.io/gorm"

	apperrors "finledger/internal/errors"
	"finledger/internal/lock"
	"finledger/internal/models"
	"finledger/internal/pagination"
)

const defaultCurrency = "USD"

// accountService handles bank account and credit card management.
type accountService struct {
	db         *gorm.DB
	store      LedgerStorer
	reconciler Reconciler
	locks      *lock.Table
}

// NewAccountService creates a new AccountServicer.
func NewAccountService(db *gorm.DB, store LedgerStorer, reconciler Reconciler, locks *lock.Table) AccountServicer {
	return &accountService{
		db:         db,
		store:      store,
		reconciler: reconciler,
		locks:      locks,
	}
}

// normalizeCurrency upper-cases code, defaults it to USD and checks it is a
// known ISO 4217 code.
func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return defaultCurrency, nil
	}
	if money.GetCurrency(code) == nil {
		return "", apperrors.ErrInvalidCurrency
	}
	return code, nil
}

func validAccountType(t models.AccountType) bool {
	switch t {
	case models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCash, models.AccountTypeInvestment:
		return true
	}
	return false
}

func validDay(day int) bool {
	return day >= 0 && day <= 31
}

// CreateAccount opens a bank account. A non-zero initial balance is recorded
// as an opening transaction.
func (s *accountService) CreateAccount(req CreateAccountRequest) (*models.Account, error) {
	if req.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "account name is required")
	}
	if req.Type == "" {
		req.Type = models.AccountTypeChecking
	}
	if !validAccountType(req.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported account type")
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Name:       req.Name,
		BankName:   req.BankName,
		Type:       req.Type,
		Currency:   currency,
		IsActive:   true,
		LastUpdate: time.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(account).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if req.InitialBalance == 0 {
			return nil
		}

		txnType := models.TransactionTypeDeposit
		if req.InitialBalance < 0 {
			txnType = models.TransactionTypeWithdrawal
		}
		_, rec, err := appendReconciled(tx, s.store, s.reconciler, &models.Transaction{
			AccountID:   account.ID,
			AccountKind: models.AccountKindBank,
			Amount:      req.InitialBalance,
			Type:        txnType,
			Description: "Initial balance",
		})
		if err != nil {
			return err
		}
		account.Balance = rec.Current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return account, nil
}

// CreateCreditCard opens a credit card. Existing debt is recorded as an
// opening charge.
func (s *accountService) CreateCreditCard(req CreateCreditCardRequest) (*models.CreditCard, error) {
	if req.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "card name is required")
	}
	if req.CreditLimit < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "credit limit cannot be negative")
	}
	if req.InitialDebt < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial debt cannot be negative")
	}
	if !validDay(req.CutoffDay) || !validDay(req.PaymentDay) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cutoff and payment days must be a day of the month")
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	card := &models.CreditCard{
		Name:            req.Name,
		BankName:        req.BankName,
		Currency:        currency,
		CreditLimit:     req.CreditLimit,
		AvailableCredit: req.CreditLimit,
		InterestRate:    req.InterestRate,
		CutoffDay:       req.CutoffDay,
		PaymentDay:      req.PaymentDay,
		IsActive:        true,
		LastUpdate:      time.Now(),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(card).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if req.InitialDebt == 0 {
			return nil
		}

		_, rec, err := appendReconciled(tx, s.store, s.reconciler, &models.Transaction{
			AccountID:   card.ID,
			AccountKind: models.AccountKindCredit,
			Amount:      -req.InitialDebt,
			Type:        models.TransactionTypeCharge,
			Description: "Opening balance",
		})
		if err != nil {
			return err
		}
		card.CurrentBalance = rec.Current
		card.AvailableCredit = *rec.AvailableCredit
		return nil
	})
	if err != nil {
		return nil, err
	}

	return card, nil
}

// GetAccountByID retrieves a bank account by ID, active or not.
func (s *accountService) GetAccountByID(accountID string) (*models.Account, error) {
	var account models.Account
	if err := s.db.Where("id = ?", accountID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// GetCreditCardByID retrieves a credit card by ID, active or not.
func (s *accountService) GetCreditCardByID(cardID string) (*models.CreditCard, error) {
	var card models.CreditCard
	if err := s.db.Where("id = ?", cardID).First(&card).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCreditCardNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &card, nil
}

// ListAccounts retrieves a paginated list of bank accounts.
func (s *accountService) ListAccounts(page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.Account], error) {
	page.Defaults()

	base := s.db.Model(&models.Account{})
	if !includeInactive {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var accounts []models.Account
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&accounts).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(accounts, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ListCreditCards retrieves a paginated list of credit cards.
func (s *accountService) ListCreditCards(page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.CreditCard], error) {
	page.Defaults()

	base := s.db.Model(&models.CreditCard{})
	if !includeInactive {
		base = base.Where("is_active = ?", true)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var cards []models.CreditCard
	if err := base.Scopes(pagination.Paginate(page)).Order("name ASC").Find(&cards).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(cards, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateAccount changes account metadata. Balances are never written here.
func (s *accountService) UpdateAccount(accountID string, fields AccountUpdateFields) (*models.Account, error) {
	account, err := s.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.BankName != nil {
		updates["bank_name"] = *fields.BankName
	}
	if fields.Type != nil {
		if !validAccountType(*fields.Type) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported account type")
		}
		updates["type"] = *fields.Type
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.Model(account).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		// Reload to get fresh data
		return s.GetAccountByID(account.ID)
	}

	return account, nil
}

// UpdateCreditCard changes card metadata. A new credit limit is applied through
// the reconciler so available credit stays consistent.
func (s *accountService) UpdateCreditCard(cardID string, fields CreditCardUpdateFields) (*models.CreditCard, error) {
	card, err := s.GetCreditCardByID(cardID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if fields.Name != nil && *fields.Name != "" {
		updates["name"] = *fields.Name
	}
	if fields.BankName != nil {
		updates["bank_name"] = *fields.BankName
	}
	if fields.IsActive != nil {
		updates["is_active"] = *fields.IsActive
	}
	if fields.InterestRate != nil {
		updates["interest_rate"] = *fields.InterestRate
	}
	if fields.CutoffDay != nil {
		if !validDay(*fields.CutoffDay) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cutoff day must be a day of the month")
		}
		updates["cutoff_day"] = *fields.CutoffDay
	}
	if fields.PaymentDay != nil {
		if !validDay(*fields.PaymentDay) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "payment day must be a day of the month")
		}
		updates["payment_day"] = *fields.PaymentDay
	}
	limitChanged := false
	if fields.CreditLimit != nil {
		if *fields.CreditLimit < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "credit limit cannot be negative")
		}
		updates["credit_limit"] = *fields.CreditLimit
		limitChanged = *fields.CreditLimit != card.CreditLimit
	}

	if len(updates) == 0 {
		return card, nil
	}

	release := s.locks.Acquire(card.ID)
	defer release()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(card).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if !limitChanged {
			return nil
		}
		_, err := s.reconciler.Recalculate(tx, card.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.GetCreditCardByID(card.ID)
}

// DeleteAccount soft-deletes a bank account. Its transactions stay behind as
// orphans for the integrity validator to clean up.
func (s *accountService) DeleteAccount(accountID string) error {
	release := s.locks.Acquire(accountID)
	defer release()

	result := s.db.Where("id = ?", accountID).Delete(&models.Account{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAccountNotFound
	}
	return nil
}

// DeleteCreditCard soft-deletes a credit card.
func (s *accountService) DeleteCreditCard(cardID string) error {
	release := s.locks.Acquire(cardID)
	defer release()

	result := s.db.Where("id = ?", cardID).Delete(&models.CreditCard{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrCreditCardNotFound
	}
	return nil
}
