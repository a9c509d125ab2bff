package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "finledger/internal/errors"
	"finledger/internal/lock"
	"finledger/internal/logger"
	"finledger/internal/models"
	"finledger/internal/pagination"
)

// transferService moves money between two ledger accounts as a pair of
// linked transactions.
type transferService struct {
	db         *gorm.DB
	store      LedgerStorer
	reconciler Reconciler
	locks      *lock.Table
}

// NewTransferService creates a new TransferServicer.
func NewTransferService(db *gorm.DB, store LedgerStorer, reconciler Reconciler, locks *lock.Table) TransferServicer {
	return &transferService{
		db:         db,
		store:      store,
		reconciler: reconciler,
		locks:      locks,
	}
}

// Validate checks whether the source account can fund amount. Business
// failures are reported in the result; the error is for infrastructure only.
func (s *transferService) Validate(fromAccountID string, fromKind models.AccountKind, amount int64) (*ValidationResult, error) {
	account, err := findLedgerAccount(s.db, fromAccountID, fromKind)
	if err != nil {
		if errors.Is(err, apperrors.ErrAccountNotFound) {
			return invalidResult(apperrors.ErrAccountNotFound), nil
		}
		return nil, err
	}

	if appErr := checkSpend(account, amount); appErr != nil {
		return invalidResult(appErr), nil
	}
	return &ValidationResult{Valid: true}, nil
}

func invalidResult(appErr *apperrors.AppError) *ValidationResult {
	return &ValidationResult{Valid: false, Code: appErr.Code, Error: appErr.Message}
}

// CreateTransfer writes both legs, the optional fee and the transfer record in
// one database transaction, then reconciles both accounts.
func (s *transferService) CreateTransfer(req TransferRequest) (*models.Transfer, error) {
	if req.FromAccountID == "" || req.ToAccountID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "source and destination accounts are required")
	}
	if req.FromAccountID == req.ToAccountID {
		return nil, apperrors.ErrSameAccountTransfer
	}
	if req.Amount <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}
	if req.Fee < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "fee cannot be negative")
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	release := s.locks.Acquire(req.FromAccountID, req.ToAccountID)
	defer release()

	var transfer *models.Transfer
	err := s.db.Transaction(func(tx *gorm.DB) error {
		from, err := findLedgerAccount(tx, req.FromAccountID, req.FromKind)
		if err != nil {
			return err
		}
		to, err := findLedgerAccount(tx, req.ToAccountID, req.ToKind)
		if err != nil {
			return err
		}
		if appErr := checkSpend(from, req.Amount+req.Fee); appErr != nil {
			return appErr
		}
		if !to.Active() {
			return apperrors.ErrAccountInactive
		}

		debit, err := s.store.Append(tx, &models.Transaction{
			AccountID:   from.ID(),
			AccountKind: from.Kind,
			Date:        req.Date,
			Amount:      -req.Amount,
			Type:        models.TransactionTypeTransfer,
			Description: req.Description,
		})
		if err != nil {
			return err
		}

		credit, err := s.store.Append(tx, &models.Transaction{
			AccountID:            to.ID(),
			AccountKind:          to.Kind,
			Date:                 req.Date,
			Amount:               req.Amount,
			Type:                 models.TransactionTypeTransfer,
			Description:          req.Description,
			RelatedTransactionID: &debit.ID,
		})
		if err != nil {
			return err
		}

		if err := s.store.Update(tx, debit.ID, TransactionUpdateFields{RelatedTransactionID: &credit.ID}); err != nil {
			return err
		}
		debit.RelatedTransactionID = &credit.ID

		var fee *models.Transaction
		if req.Fee > 0 {
			fee, err = s.store.Append(tx, &models.Transaction{
				AccountID:   from.ID(),
				AccountKind: from.Kind,
				Date:        req.Date,
				Amount:      -req.Fee,
				Type:        feeType(from.Kind),
				Description: "Transfer fee",
			})
			if err != nil {
				return err
			}
		}

		transfer = &models.Transfer{
			FromAccountID:     from.ID(),
			FromKind:          from.Kind,
			ToAccountID:       to.ID(),
			ToKind:            to.Kind,
			Amount:            req.Amount,
			Fee:               req.Fee,
			Date:              req.Date,
			Description:       req.Description,
			Status:            models.TransferStatusCompleted,
			FromTransactionID: &debit.ID,
			ToTransactionID:   &credit.ID,
		}
		legIDs := []string{debit.ID, credit.ID}
		if fee != nil {
			transfer.FeeTransactionID = &fee.ID
			legIDs = append(legIDs, fee.ID)
		}
		if err := tx.Create(transfer).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, id := range legIDs {
			if err := s.store.Update(tx, id, TransactionUpdateFields{TransferID: &transfer.ID}); err != nil {
				return err
			}
		}

		fromRec, err := s.reconciler.Recalculate(tx, from.ID())
		if err != nil {
			return err
		}
		toRec, err := s.reconciler.Recalculate(tx, to.ID())
		if err != nil {
			return err
		}

		sourceLegs := []string{debit.ID}
		if fee != nil {
			sourceLegs = append(sourceLegs, fee.ID)
		}
		if err := s.reconciler.Snapshot(tx, fromRec, sourceLegs...); err != nil {
			return err
		}
		return s.reconciler.Snapshot(tx, toRec, credit.ID)
	})
	if err != nil {
		return nil, err
	}

	logger.Get().Infow("transfer completed",
		"transfer_id", transfer.ID,
		"from_account_id", transfer.FromAccountID,
		"to_account_id", transfer.ToAccountID,
		"amount", transfer.Amount,
		"fee", transfer.Fee,
	)
	return transfer, nil
}

// feeType is the debit type used for a fee on an account of the given kind.
func feeType(kind models.AccountKind) models.TransactionType {
	if kind == models.AccountKindCredit {
		return models.TransactionTypeCharge
	}
	return models.TransactionTypeWithdrawal
}

// DeleteTransfer soft-deletes every leg of a transfer, removes the transfer
// record and reconciles both accounts.
func (s *transferService) DeleteTransfer(transferID string) error {
	transfer, err := s.GetTransferByID(transferID)
	if err != nil {
		return err
	}

	release := s.locks.Acquire(transfer.FromAccountID, transfer.ToAccountID)
	defer release()

	return s.db.Transaction(func(tx *gorm.DB) error {
		legs, err := s.store.ByTransfer(tx, transfer.ID)
		if err != nil {
			return err
		}
		for _, leg := range legs {
			if err := s.store.SoftDelete(tx, leg.ID); err != nil {
				return err
			}
		}

		result := tx.Unscoped().Where("id = ?", transfer.ID).Delete(&models.Transfer{})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected == 0 {
			return apperrors.ErrTransferNotFound
		}

		for _, accountID := range []string{transfer.FromAccountID, transfer.ToAccountID} {
			// A deleted account has nothing left to reconcile.
			if _, err := s.reconciler.Recalculate(tx, accountID); err != nil && !errors.Is(err, apperrors.ErrAccountNotFound) {
				return err
			}
		}
		return nil
	})
}

// GetTransferByID retrieves a transfer by ID.
func (s *transferService) GetTransferByID(transferID string) (*models.Transfer, error) {
	var transfer models.Transfer
	if err := s.db.Where("id = ?", transferID).First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransferNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transfer, nil
}

// GetTransferLegs returns the non-deleted transactions of a transfer.
func (s *transferService) GetTransferLegs(transferID string) ([]models.Transaction, error) {
	transfer, err := s.GetTransferByID(transferID)
	if err != nil {
		return nil, err
	}
	return s.store.ByTransfer(nil, transfer.ID)
}

// ListTransfers retrieves a paginated, filtered list of transfers, newest first.
func (s *transferService) ListTransfers(page pagination.PageRequest, filter TransferFilter) (*pagination.PageResponse[models.Transfer], error) {
	page.Defaults()

	base := s.db.Model(&models.Transfer{})
	if filter.AccountID != nil {
		base = base.Where("(from_account_id = ? OR to_account_id = ?)", *filter.AccountID, *filter.AccountID)
	}
	if filter.FromDate != nil {
		base = base.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("date <= ?", *filter.ToDate)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transfers []models.Transfer
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").Order("id DESC").
		Find(&transfers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transfers, page.Page, page.PageSize, totalItems)
	return &result, nil
}
