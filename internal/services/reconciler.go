package services

import (
	"time"

	"gorm.io/gorm"

	apperrors "finledger/internal/errors"
	"finledger/internal/logger"
	"finledger/internal/models"
)

// reconciler recomputes denormalized balances from the ledger.
type reconciler struct {
	db    *gorm.DB
	store LedgerStorer
	now   func() time.Time
}

// NewReconciler creates a new Reconciler.
func NewReconciler(db *gorm.DB, store LedgerStorer) Reconciler {
	return &reconciler{db: db, store: store, now: time.Now}
}

func (r *reconciler) conn(db *gorm.DB) *gorm.DB {
	if db != nil {
		return db
	}
	return r.db
}

// Inspect computes what the account's balance should be without writing.
func (r *reconciler) Inspect(db *gorm.DB, accountID string) (*Reconciliation, error) {
	db = r.conn(db)

	account, err := findLedgerAccount(db, accountID, "")
	if err != nil {
		return nil, err
	}

	total, err := r.store.SumByAccount(db, accountID)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{AccountID: accountID, Kind: account.Kind}
	switch account.Kind {
	case models.AccountKindCredit:
		// Spending is negative on the card's ledger but increases the debt.
		// No floor here: an overpaid card shows a negative balance.
		rec.Previous = account.Card.CurrentBalance
		rec.Current = -total
		available := account.Card.CreditLimit - rec.Current
		rec.AvailableCredit = &available
		if rec.Current == rec.Previous && available != account.Card.AvailableCredit {
			// Limit changed without a recompute.
			rec.Drift = available - account.Card.AvailableCredit
			return rec, nil
		}
	default:
		rec.Previous = account.Bank.Balance
		rec.Current = total
	}
	rec.Drift = rec.Current - rec.Previous
	return rec, nil
}

// Recalculate recomputes and persists the account's balance, stamping
// last_update. Running it twice in a row yields the same result.
func (r *reconciler) Recalculate(db *gorm.DB, accountID string) (*Reconciliation, error) {
	db = r.conn(db)

	rec, err := r.Inspect(db, accountID)
	if err != nil {
		return nil, err
	}

	now := r.now()
	var result *gorm.DB
	switch rec.Kind {
	case models.AccountKindCredit:
		result = db.Model(&models.CreditCard{}).Where("id = ?", accountID).Updates(map[string]interface{}{
			"current_balance":  rec.Current,
			"available_credit": *rec.AvailableCredit,
			"last_update":      now,
		})
	default:
		result = db.Model(&models.Account{}).Where("id = ?", accountID).Updates(map[string]interface{}{
			"balance":     rec.Current,
			"last_update": now,
		})
	}
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}

	if rec.Drift != 0 {
		logger.Get().Debugw("balance reconciled",
			"account_id", accountID,
			"kind", rec.Kind,
			"previous", rec.Previous,
			"current", rec.Current,
		)
	}
	return rec, nil
}

// Snapshot writes the reconciled balance into the balance column of the given
// transactions.
func (r *reconciler) Snapshot(db *gorm.DB, rec *Reconciliation, transactionIDs ...string) error {
	db = r.conn(db)
	balance := rec.Current
	for _, id := range transactionIDs {
		if id == "" {
			continue
		}
		if err := r.store.Update(db, id, TransactionUpdateFields{Balance: &balance}); err != nil {
			return err
		}
	}
	return nil
}

// appendReconciled appends txn, reconciles its account and stamps the
// resulting balance on the new transaction.
func appendReconciled(db *gorm.DB, store LedgerStorer, r Reconciler, txn *models.Transaction) (*models.Transaction, *Reconciliation, error) {
	txn, err := store.Append(db, txn)
	if err != nil {
		return nil, nil, err
	}
	rec, err := r.Recalculate(db, txn.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if err := r.Snapshot(db, rec, txn.ID); err != nil {
		return nil, nil, err
	}
	txn.Balance = rec.Current
	return txn, rec, nil
}
