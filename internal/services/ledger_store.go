package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "finledger/internal/errors"
	"finledger/internal/models"
	"finledger/internal/pagination"
)

// ledgerStore persists ledger transactions. It performs no validation and
// never updates balances; that is the reconciler's job.
type ledgerStore struct {
	db *gorm.DB
}

// NewLedgerStore creates a new LedgerStorer.
func NewLedgerStore(db *gorm.DB) LedgerStorer {
	return &ledgerStore{db: db}
}

func (s *ledgerStore) conn(db *gorm.DB) *gorm.DB {
	if db != nil {
		return db
	}
	return s.db
}

// Append assigns an id and timestamps and persists the transaction.
func (s *ledgerStore) Append(db *gorm.DB, txn *models.Transaction) (*models.Transaction, error) {
	if txn.Date.IsZero() {
		txn.Date = time.Now()
	}
	if err := s.conn(db).Create(txn).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txn, nil
}

// Update persists the non-nil fields. Moving a transaction to another account
// leaves both balances stale until the caller reconciles them.
func (s *ledgerStore) Update(db *gorm.DB, id string, fields TransactionUpdateFields) error {
	updates := make(map[string]interface{})
	if fields.Description != nil {
		updates["description"] = *fields.Description
	}
	if fields.Pending != nil {
		updates["pending"] = *fields.Pending
	}
	if fields.Date != nil {
		updates["date"] = *fields.Date
	}
	if fields.AccountID != nil {
		updates["account_id"] = *fields.AccountID
	}
	if fields.AccountKind != nil {
		updates["account_kind"] = *fields.AccountKind
	}
	if fields.RelatedTransactionID != nil {
		updates["related_transaction_id"] = *fields.RelatedTransactionID
	}
	if fields.TransferID != nil {
		updates["transfer_id"] = *fields.TransferID
	}
	if fields.Balance != nil {
		updates["balance"] = *fields.Balance
	}
	if len(updates) == 0 {
		return nil
	}

	result := s.conn(db).Model(&models.Transaction{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// SoftDelete stamps deleted_at; the row stays for audit.
func (s *ledgerStore) SoftDelete(db *gorm.DB, id string) error {
	result := s.conn(db).Where("id = ?", id).Delete(&models.Transaction{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrTransactionNotFound
	}
	return nil
}

// ByAccount returns every non-deleted transaction of an account, unordered.
func (s *ledgerStore) ByAccount(db *gorm.DB, accountID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := s.conn(db).Where("account_id = ?", accountID).Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txns, nil
}

// SumByAccount returns the signed total of an account's non-deleted transactions.
func (s *ledgerStore) SumByAccount(db *gorm.DB, accountID string) (int64, error) {
	var total int64
	if err := s.conn(db).Model(&models.Transaction{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return total, nil
}

// GetByID retrieves a non-deleted transaction.
func (s *ledgerStore) GetByID(db *gorm.DB, id string) (*models.Transaction, error) {
	var txn models.Transaction
	if err := s.conn(db).Where("id = ?", id).First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &txn, nil
}

// ByTransfer returns the non-deleted legs (and fee) of a transfer.
func (s *ledgerStore) ByTransfer(db *gorm.DB, transferID string) ([]models.Transaction, error) {
	var txns []models.Transaction
	if err := s.conn(db).Where("transfer_id = ?", transferID).
		Order("amount ASC").
		Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txns, nil
}

// ListAccount returns a filtered page of an account's transactions, newest first.
func (s *ledgerStore) ListAccount(accountID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("account_id = ?", accountID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txns []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").Order("id DESC").
		Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(txns, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// ListDeleted returns soft-deleted transactions of an account for audit.
func (s *ledgerStore) ListDeleted(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	base := s.db.Unscoped().Model(&models.Transaction{}).
		Where("account_id = ? AND deleted_at IS NOT NULL", accountID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txns []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("deleted_at DESC").
		Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(txns, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", *f.Type)
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if f.Pending != nil {
		q = q.Where("pending = ?", *f.Pending)
	}
	return q
}
