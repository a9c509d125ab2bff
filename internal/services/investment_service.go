package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finledger/internal/errors"
	"finledger/internal/lock"
	"finledger/internal/models"
	"finledger/internal/pagination"
)

var daysPerYear = decimal.NewFromInt(365)

// investmentService moves money between bank accounts and investments.
type investmentService struct {
	db         *gorm.DB
	store      LedgerStorer
	reconciler Reconciler
	locks      *lock.Table
	now        func() time.Time
}

// NewInvestmentService creates a new InvestmentServicer.
func NewInvestmentService(db *gorm.DB, store LedgerStorer, reconciler Reconciler, locks *lock.Table) InvestmentServicer {
	return &investmentService{
		db:         db,
		store:      store,
		reconciler: reconciler,
		locks:      locks,
		now:        time.Now,
	}
}

func validInvestmentType(t models.InvestmentType) bool {
	switch t {
	case models.InvestmentTypeFixedTerm, models.InvestmentTypeSavings, models.InvestmentTypeFund,
		models.InvestmentTypeStock, models.InvestmentTypeOther:
		return true
	}
	return false
}

// CreateInvestment opens an investment. When a source account is given the
// initial capital is drawn from it.
func (s *investmentService) CreateInvestment(req CreateInvestmentRequest, sourceAccountID *string) (*models.Investment, error) {
	if req.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "investment name is required")
	}
	if req.InitialCapital < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "initial capital cannot be negative")
	}
	if req.Type == "" {
		req.Type = models.InvestmentTypeOther
	}
	if !validInvestmentType(req.Type) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "unsupported investment type")
	}
	if req.AnnualRate.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "annual rate cannot be negative")
	}
	if req.StartDate.IsZero() {
		req.StartDate = s.now()
	}

	release := s.locks.Acquire(deref(sourceAccountID))
	defer release()

	investment := &models.Investment{
		Name:            req.Name,
		Platform:        req.Platform,
		Type:            req.Type,
		InitialCapital:  req.InitialCapital,
		StartDate:       req.StartDate,
		AnnualRate:      req.AnnualRate,
		CurrentValue:    req.InitialCapital,
		LastUpdate:      req.StartDate,
		AutoReinvest:    req.AutoReinvest,
		SourceAccountID: sourceAccountID,
		IsActive:        true,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var source *ledgerAccount
		if sourceAccountID != nil {
			var txErr error
			source, txErr = s.fundingAccount(tx, *sourceAccountID, req.InitialCapital)
			if txErr != nil {
				return txErr
			}
		}

		if txErr := tx.Create(investment).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}

		if source == nil || req.InitialCapital == 0 {
			return nil
		}
		_, _, txErr := appendReconciled(tx, s.store, s.reconciler, &models.Transaction{
			AccountID:    source.ID(),
			AccountKind:  models.AccountKindBank,
			Date:         req.StartDate,
			Amount:       -req.InitialCapital,
			Type:         models.TransactionTypeWithdrawal,
			Description:  "Investment: " + req.Name,
			InvestmentID: &investment.ID,
		})
		return txErr
	})
	if err != nil {
		return nil, err
	}

	return investment, nil
}

// AddContribution adds money to an investment, optionally drawn from a bank
// account.
func (s *investmentService) AddContribution(investmentID string, amount int64, sourceAccountID *string, source string) (*models.InvestmentContribution, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	release := s.locks.Acquire(investmentID, deref(sourceAccountID))
	defer release()

	var contribution *models.InvestmentContribution
	err := s.db.Transaction(func(tx *gorm.DB) error {
		investment, txErr := s.getInvestment(tx, investmentID)
		if txErr != nil {
			return txErr
		}
		if txErr := s.accrue(tx, investment, s.now()); txErr != nil {
			return txErr
		}

		contribution = &models.InvestmentContribution{
			InvestmentID: investment.ID,
			Date:         s.now(),
			Amount:       amount,
			AccountID:    sourceAccountID,
			Source:       source,
		}

		if sourceAccountID != nil {
			account, txErr := s.fundingAccount(tx, *sourceAccountID, amount)
			if txErr != nil {
				return txErr
			}
			txn, _, txErr := appendReconciled(tx, s.store, s.reconciler, &models.Transaction{
				AccountID:    account.ID(),
				AccountKind:  models.AccountKindBank,
				Date:         contribution.Date,
				Amount:       -amount,
				Type:         models.TransactionTypeWithdrawal,
				Description:  "Contribution: " + investment.Name,
				InvestmentID: &investment.ID,
			})
			if txErr != nil {
				return txErr
			}
			contribution.TransactionID = &txn.ID
		}

		if txErr := tx.Create(contribution).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return s.adjustValue(tx, investment.ID, amount)
	})
	if err != nil {
		return nil, err
	}

	return contribution, nil
}

// ProcessWithdrawal takes money out of an investment, optionally depositing it
// into a bank account.
func (s *investmentService) ProcessWithdrawal(investmentID string, amount int64, destinationAccountID *string, reason string) (*models.InvestmentWithdrawal, error) {
	if amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	release := s.locks.Acquire(investmentID, deref(destinationAccountID))
	defer release()

	var withdrawal *models.InvestmentWithdrawal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		investment, txErr := s.getInvestment(tx, investmentID)
		if txErr != nil {
			return txErr
		}
		if txErr := s.accrue(tx, investment, s.now()); txErr != nil {
			return txErr
		}
		if amount > investment.CurrentValue {
			return apperrors.ErrInsufficientInvestmentFunds
		}

		withdrawal = &models.InvestmentWithdrawal{
			InvestmentID: investment.ID,
			Date:         s.now(),
			Amount:       amount,
			AccountID:    destinationAccountID,
			Reason:       reason,
		}

		if destinationAccountID != nil {
			account, txErr := findLedgerAccount(tx, *destinationAccountID, models.AccountKindBank)
			if txErr != nil {
				return txErr
			}
			if !account.Active() {
				return apperrors.ErrAccountInactive
			}
			txn, _, txErr := appendReconciled(tx, s.store, s.reconciler, &models.Transaction{
				AccountID:    account.ID(),
				AccountKind:  models.AccountKindBank,
				Date:         withdrawal.Date,
				Amount:       amount,
				Type:         models.TransactionTypeDeposit,
				Description:  "Withdrawal: " + investment.Name,
				InvestmentID: &investment.ID,
			})
			if txErr != nil {
				return txErr
			}
			withdrawal.TransactionID = &txn.ID
		}

		if txErr := tx.Create(withdrawal).Error; txErr != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, txErr)
		}
		return s.adjustValue(tx, investment.ID, -amount)
	})
	if err != nil {
		return nil, err
	}

	return withdrawal, nil
}

// DeleteContribution reverses a contribution: the record and its ledger
// transaction are soft-deleted and the source account is reconciled.
func (s *investmentService) DeleteContribution(investmentID, contributionID string) error {
	var contribution models.InvestmentContribution
	if err := s.db.Where("id = ? AND investment_id = ?", contributionID, investmentID).First(&contribution).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrContributionNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	release := s.locks.Acquire(investmentID, deref(contribution.AccountID))
	defer release()

	return s.db.Transaction(func(tx *gorm.DB) error {
		investment, txErr := s.getInvestment(tx, investmentID)
		if txErr != nil {
			return txErr
		}
		if txErr := s.accrue(tx, investment, s.now()); txErr != nil {
			return txErr
		}
		if investment.CurrentValue < contribution.Amount {
			return apperrors.ErrInsufficientInvestmentFunds
		}

		result := tx.Where("id = ?", contribution.ID).Delete(&models.InvestmentContribution{})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrContributionNotFound
		}

		if txErr := s.reverseLedgerEntry(tx, contribution.TransactionID, contribution.AccountID); txErr != nil {
			return txErr
		}
		return s.adjustValue(tx, investment.ID, -contribution.Amount)
	})
}

// DeleteWithdrawal reverses a withdrawal: the record and its deposit are
// soft-deleted and the destination account is reconciled.
func (s *investmentService) DeleteWithdrawal(investmentID, withdrawalID string) error {
	var withdrawal models.InvestmentWithdrawal
	if err := s.db.Where("id = ? AND investment_id = ?", withdrawalID, investmentID).First(&withdrawal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrWithdrawalNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	release := s.locks.Acquire(investmentID, deref(withdrawal.AccountID))
	defer release()

	return s.db.Transaction(func(tx *gorm.DB) error {
		investment, txErr := s.getInvestment(tx, investmentID)
		if txErr != nil {
			return txErr
		}
		if txErr := s.accrue(tx, investment, s.now()); txErr != nil {
			return txErr
		}

		result := tx.Where("id = ?", withdrawal.ID).Delete(&models.InvestmentWithdrawal{})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrWithdrawalNotFound
		}

		if txErr := s.reverseLedgerEntry(tx, withdrawal.TransactionID, withdrawal.AccountID); txErr != nil {
			return txErr
		}
		return s.adjustValue(tx, investment.ID, withdrawal.Amount)
	})
}

// GetTotalInvested returns initial capital plus contributions minus
// withdrawals. Deleted movements are excluded.
func (s *investmentService) GetTotalInvested(investmentID string) (int64, error) {
	investment, err := s.getInvestment(s.db, investmentID)
	if err != nil {
		return 0, err
	}

	var contributed int64
	if err := s.db.Model(&models.InvestmentContribution{}).
		Where("investment_id = ?", investment.ID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&contributed).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var withdrawn int64
	if err := s.db.Model(&models.InvestmentWithdrawal{}).
		Where("investment_id = ?", investment.ID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&withdrawn).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return investment.InitialCapital + contributed - withdrawn, nil
}

// AccrueReturns compounds the annual rate daily over the whole days between
// the last update and asOf. Returns are always added to accumulated_returns and
// also to current_value when the investment reinvests automatically.
func (s *investmentService) AccrueReturns(investmentID string, asOf time.Time) (*models.Investment, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}

	release := s.locks.Acquire(investmentID)
	defer release()

	var investment *models.Investment
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		investment, txErr = s.getInvestment(tx, investmentID)
		if txErr != nil {
			return txErr
		}
		return s.accrue(tx, investment, asOf)
	})
	if err != nil {
		return nil, err
	}

	return investment, nil
}

// accrue books the returns earned up to asOf and updates investment in place.
// last_update is the accrual cursor: it only moves by whole accrued days, so
// money movements never discard interest earned before them.
func (s *investmentService) accrue(db *gorm.DB, investment *models.Investment, asOf time.Time) error {
	if !investment.IsActive || !investment.AnnualRate.IsPositive() {
		return nil
	}

	days := int64(asOf.Sub(investment.LastUpdate) / (24 * time.Hour))
	if days <= 0 {
		return nil
	}

	earned := accruedReturns(investment.CurrentValue, investment.AnnualRate, days)
	investment.AccumulatedReturns += earned
	investment.LastUpdate = investment.LastUpdate.AddDate(0, 0, int(days))
	updates := map[string]interface{}{
		"accumulated_returns": investment.AccumulatedReturns,
		"last_update":         investment.LastUpdate,
	}
	if investment.AutoReinvest {
		investment.CurrentValue += earned
		updates["current_value"] = investment.CurrentValue
	}
	if err := db.Model(&models.Investment{}).Where("id = ?", investment.ID).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// accruedReturns is principal * ((1 + rate/100/365)^days - 1), rounded to cents.
func accruedReturns(principal int64, annualRatePct decimal.Decimal, days int64) int64 {
	daily := annualRatePct.Div(decimal.NewFromInt(100)).Div(daysPerYear)
	factor := powInt(decimal.NewFromInt(1).Add(daily), days)
	return decimal.NewFromInt(principal).Mul(factor.Sub(decimal.NewFromInt(1))).Round(0).IntPart()
}

// powInt raises base to a non-negative integer power by squaring, rounding
// each step to keep the mantissa bounded.
func powInt(base decimal.Decimal, n int64) decimal.Decimal {
	result := decimal.NewFromInt(1)
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(18)
		}
		base = base.Mul(base).Round(18)
		n >>= 1
	}
	return result
}

// GetInvestmentByID retrieves an investment with its movements.
func (s *investmentService) GetInvestmentByID(investmentID string) (*models.Investment, error) {
	var investment models.Investment
	if err := s.db.Preload("Contributions", func(db *gorm.DB) *gorm.DB {
		return db.Order("date DESC")
	}).Preload("Withdrawals", func(db *gorm.DB) *gorm.DB {
		return db.Order("date DESC")
	}).Where("id = ?", investmentID).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &investment, nil
}

// ListInvestments retrieves a paginated list of investments, newest first.
func (s *investmentService) ListInvestments(page pagination.PageRequest) (*pagination.PageResponse[models.Investment], error) {
	page.Defaults()

	base := s.db.Model(&models.Investment{})

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var investments []models.Investment
	if err := base.Scopes(pagination.Paginate(page)).
		Order("start_date DESC").Order("id DESC").
		Find(&investments).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(investments, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *investmentService) getInvestment(db *gorm.DB, investmentID string) (*models.Investment, error) {
	var investment models.Investment
	if err := db.Where("id = ?", investmentID).First(&investment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvestmentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &investment, nil
}

// fundingAccount resolves a bank account and checks it can fund amount.
func (s *investmentService) fundingAccount(db *gorm.DB, accountID string, amount int64) (*ledgerAccount, error) {
	account, err := findLedgerAccount(db, accountID, models.AccountKindBank)
	if err != nil {
		return nil, err
	}
	if appErr := checkSpend(account, amount); appErr != nil {
		return nil, appErr
	}
	return account, nil
}

// reverseLedgerEntry soft-deletes the transaction a movement created and
// reconciles its account. Entries already removed by cleanup are skipped.
func (s *investmentService) reverseLedgerEntry(db *gorm.DB, transactionID, accountID *string) error {
	if transactionID != nil {
		if err := s.store.SoftDelete(db, *transactionID); err != nil && !errors.Is(err, apperrors.ErrTransactionNotFound) {
			return err
		}
	}
	if accountID == nil {
		return nil
	}
	if _, err := s.reconciler.Recalculate(db, *accountID); err != nil && !errors.Is(err, apperrors.ErrAccountNotFound) {
		return err
	}
	return nil
}

// adjustValue moves current_value by delta. Callers accrue first.
func (s *investmentService) adjustValue(db *gorm.DB, investmentID string, delta int64) error {
	if err := db.Model(&models.Investment{}).Where("id = ?", investmentID).
		Update("current_value", gorm.Expr("current_value + ?", delta)).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
