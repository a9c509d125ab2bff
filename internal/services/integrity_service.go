package services

import (
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	apperrors "finledger/internal/errors"
	"finledger/internal/lock"
	"finledger/internal/logger"
	"finledger/internal/models"
)

const latestReportKey = "integrity:latest"

// orphanCondition matches live transactions whose owning account is gone.
const orphanCondition = "account_id NOT IN (SELECT id FROM accounts WHERE deleted_at IS NULL) " +
	"AND account_id NOT IN (SELECT id FROM credit_cards WHERE deleted_at IS NULL)"

// integrityService finds and repairs drift between stored balances and the
// ledger.
type integrityService struct {
	db         *gorm.DB
	reconciler Reconciler
	locks      *lock.Table
	reports    *cache.Cache
	now        func() time.Time
}

// NewIntegrityService creates a new IntegrityServicer. The latest validation
// report is kept for reportTTL.
func NewIntegrityService(db *gorm.DB, reconciler Reconciler, locks *lock.Table, reportTTL time.Duration) IntegrityServicer {
	if reportTTL <= 0 {
		reportTTL = cache.NoExpiration
	}
	return &integrityService{
		db:         db,
		reconciler: reconciler,
		locks:      locks,
		reports:    cache.New(reportTTL, 2*reportTTL),
		now:        time.Now,
	}
}

// ledgerAccountIDs returns the ids of every live bank account and credit card.
func (s *integrityService) ledgerAccountIDs() ([]string, error) {
	var bankIDs []string
	if err := s.db.Model(&models.Account{}).Order("id").Pluck("id", &bankIDs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	var cardIDs []string
	if err := s.db.Model(&models.CreditCard{}).Order("id").Pluck("id", &cardIDs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return append(bankIDs, cardIDs...), nil
}

func (s *integrityService) orphanIDs() ([]string, error) {
	var ids []string
	if err := s.db.Model(&models.Transaction{}).Where(orphanCondition).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return ids, nil
}

// RunValidations scans for orphaned transactions and balance drift without
// changing anything.
func (s *integrityService) RunValidations() (*ValidationReport, error) {
	report := &ValidationReport{
		Discrepancies: []Discrepancy{},
		OrphanIDs:     []string{},
		CheckedAt:     s.now(),
	}

	if err := s.db.Model(&models.Transaction{}).Count(&report.TransactionsChecked).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	orphans, err := s.orphanIDs()
	if err != nil {
		return nil, err
	}
	report.OrphanIDs = append(report.OrphanIDs, orphans...)
	report.OrphanedTransactions = len(orphans)

	ids, err := s.ledgerAccountIDs()
	if err != nil {
		return nil, err
	}
	report.AccountsChecked = len(ids)

	for _, id := range ids {
		rec, err := s.reconciler.Inspect(nil, id)
		if err != nil {
			// Deleted between listing and inspection.
			if errors.Is(err, apperrors.ErrAccountNotFound) {
				continue
			}
			return nil, err
		}
		if rec.Drift == 0 {
			continue
		}
		report.Discrepancies = append(report.Discrepancies, Discrepancy{
			AccountID: rec.AccountID,
			Kind:      rec.Kind,
			Stored:    rec.Previous,
			Expected:  rec.Current,
			Drift:     rec.Drift,
		})
	}
	report.BalanceDiscrepancies = len(report.Discrepancies)
	report.CanAutoFix = !report.Healthy()

	s.reports.Set(latestReportKey, report, cache.DefaultExpiration)

	log := logger.Get()
	if report.Healthy() {
		log.Infow("ledger integrity check passed",
			"accounts", report.AccountsChecked,
			"transactions", report.TransactionsChecked,
		)
	} else {
		log.Warnw("ledger integrity issues found",
			"orphaned_transactions", report.OrphanedTransactions,
			"balance_discrepancies", report.BalanceDiscrepancies,
		)
	}
	return report, nil
}

// AutoFixBalanceDiscrepancies recalculates only the accounts whose stored
// balance has drifted.
func (s *integrityService) AutoFixBalanceDiscrepancies() (*FixReport, error) {
	return s.reconcileAccounts(true)
}

// ReconcileAllAccounts recalculates every account regardless of drift.
func (s *integrityService) ReconcileAllAccounts() (*FixReport, error) {
	return s.reconcileAccounts(false)
}

func (s *integrityService) reconcileAccounts(onlyDrifted bool) (*FixReport, error) {
	ids, err := s.ledgerAccountIDs()
	if err != nil {
		return nil, err
	}

	fix := &FixReport{Details: []Reconciliation{}}
	for _, id := range ids {
		rec, err := s.reconcileOne(id, onlyDrifted)
		if err != nil {
			if errors.Is(err, apperrors.ErrAccountNotFound) {
				continue
			}
			return nil, err
		}
		fix.Checked++
		if rec == nil || rec.Drift == 0 {
			continue
		}
		fix.Fixed++
		fix.Details = append(fix.Details, *rec)
		logger.Get().Infow("balance discrepancy fixed",
			"account_id", rec.AccountID,
			"kind", rec.Kind,
			"previous", rec.Previous,
			"current", rec.Current,
		)
	}
	return fix, nil
}

// reconcileOne recalculates one account under its lock. With onlyDrifted it
// returns nil for an account that is already consistent.
func (s *integrityService) reconcileOne(accountID string, onlyDrifted bool) (*Reconciliation, error) {
	release := s.locks.Acquire(accountID)
	defer release()

	if onlyDrifted {
		rec, err := s.reconciler.Inspect(nil, accountID)
		if err != nil {
			return nil, err
		}
		if rec.Drift == 0 {
			return nil, nil
		}
	}
	return s.reconciler.Recalculate(nil, accountID)
}

// CleanupOrphanedTransactions soft-deletes transactions whose account no
// longer exists.
func (s *integrityService) CleanupOrphanedTransactions() (int, error) {
	removed, _, err := s.cleanupOrphans()
	return removed, err
}

// cleanupOrphans soft-deletes orphaned transactions and marks every completed
// transfer that lost a leg as failed. It returns both counts.
func (s *integrityService) cleanupOrphans() (removed, failedTransfers int, err error) {
	ids, err := s.orphanIDs()
	if err != nil {
		return 0, 0, err
	}
	if len(ids) == 0 {
		return 0, 0, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		var transferIDs []string
		if err := tx.Model(&models.Transaction{}).
			Where("id IN ? AND transfer_id IS NOT NULL", ids).
			Distinct().Pluck("transfer_id", &transferIDs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		result := tx.Where("id IN ?", ids).Delete(&models.Transaction{})
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		removed = int(result.RowsAffected)

		if len(transferIDs) == 0 {
			return nil
		}
		result = tx.Model(&models.Transfer{}).
			Where("id IN ? AND status = ?", transferIDs, models.TransferStatusCompleted).
			Update("status", models.TransferStatusFailed)
		if result.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		failedTransfers = int(result.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	logger.Get().Infow("orphaned transactions removed",
		"count", removed,
		"transfers_failed", failedTransfers,
	)
	return removed, failedTransfers, nil
}

// RunManualReconciliation validates, removes orphans, reconciles every account
// and validates again.
func (s *integrityService) RunManualReconciliation() (*ManualReconciliationReport, error) {
	started := s.now()

	before, err := s.RunValidations()
	if err != nil {
		return nil, err
	}
	removed, failedTransfers, err := s.cleanupOrphans()
	if err != nil {
		return nil, err
	}
	reconciled, err := s.ReconcileAllAccounts()
	if err != nil {
		return nil, err
	}
	after, err := s.RunValidations()
	if err != nil {
		return nil, err
	}

	return &ManualReconciliationReport{
		Before:          before,
		OrphansRemoved:  removed,
		TransfersFailed: failedTransfers,
		Reconciled:      reconciled,
		After:           after,
		StartedAt:       started,
		DurationMillis:  s.now().Sub(started).Milliseconds(),
	}, nil
}

// RunStartupCheck validates the ledger at boot and, when autoFix is set,
// repairs what it finds. It returns the final report.
func (s *integrityService) RunStartupCheck(autoFix bool) (*ValidationReport, error) {
	report, err := s.RunValidations()
	if err != nil {
		return nil, err
	}
	if report.Healthy() {
		return report, nil
	}
	if !autoFix {
		logger.Get().Warnw("startup auto-fix disabled; run a manual reconciliation to repair the ledger")
		return report, nil
	}

	removed, err := s.CleanupOrphanedTransactions()
	if err != nil {
		return nil, err
	}
	fix, err := s.AutoFixBalanceDiscrepancies()
	if err != nil {
		return nil, err
	}
	logger.Get().Infow("startup auto-fix complete",
		"orphans_removed", removed,
		"accounts_fixed", fix.Fixed,
	)

	return s.RunValidations()
}

// LatestReport returns the most recent validation report, if still cached.
func (s *integrityService) LatestReport() (*ValidationReport, bool) {
	v, ok := s.reports.Get(latestReportKey)
	if !ok {
		return nil, false
	}
	report, ok := v.(*ValidationReport)
	return report, ok
}
