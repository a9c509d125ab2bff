package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"finledger/internal/models"
	"finledger/internal/pagination"
	"finledger/internal/services"
	"finledger/internal/validator"
)

const (
	testAccountID = "0190a5b2-7c3d-7e4f-8a1b-2c3d4e5f6a7b"
	testCardID    = "0190a5b2-7c3d-7e4f-8a1b-2c3d4e5f6a7c"
	testTxnID     = "0190a5b2-7c3d-7e4f-8a1b-2c3d4e5f6a7d"
	testOtherID   = "0190a5b2-7c3d-7e4f-8a1b-2c3d4e5f6a7e"
)

// --- mock services ---

type mockAccountService struct {
	createAccountFn    func(req services.CreateAccountRequest) (*models.Account, error)
	createCreditCardFn func(req services.CreateCreditCardRequest) (*models.CreditCard, error)
	getAccountByIDFn   func(accountID string) (*models.Account, error)
	getCreditCardFn    func(cardID string) (*models.CreditCard, error)
	listAccountsFn     func(page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.Account], error)
	listCreditCardsFn  func(page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.CreditCard], error)
	updateAccountFn    func(accountID string, fields services.AccountUpdateFields) (*models.Account, error)
	updateCreditCardFn func(cardID string, fields services.CreditCardUpdateFields) (*models.CreditCard, error)
	deleteAccountFn    func(accountID string) error
	deleteCreditCardFn func(cardID string) error
}

func (m *mockAccountService) CreateAccount(req services.CreateAccountRequest) (*models.Account, error) {
	if m.createAccountFn != nil {
		return m.createAccountFn(req)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) CreateCreditCard(req services.CreateCreditCardRequest) (*models.CreditCard, error) {
	if m.createCreditCardFn != nil {
		return m.createCreditCardFn(req)
	}
	return &models.CreditCard{}, nil
}

func (m *mockAccountService) GetAccountByID(accountID string) (*models.Account, error) {
	if m.getAccountByIDFn != nil {
		return m.getAccountByIDFn(accountID)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) GetCreditCardByID(cardID string) (*models.CreditCard, error) {
	if m.getCreditCardFn != nil {
		return m.getCreditCardFn(cardID)
	}
	return &models.CreditCard{}, nil
}

func (m *mockAccountService) ListAccounts(page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.Account], error) {
	if m.listAccountsFn != nil {
		return m.listAccountsFn(page, includeInactive)
	}
	resp := pagination.NewPageResponse([]models.Account{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAccountService) ListCreditCards(page pagination.PageRequest, includeInactive bool) (*pagination.PageResponse[models.CreditCard], error) {
	if m.listCreditCardsFn != nil {
		return m.listCreditCardsFn(page, includeInactive)
	}
	resp := pagination.NewPageResponse([]models.CreditCard{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAccountService) UpdateAccount(accountID string, fields services.AccountUpdateFields) (*models.Account, error) {
	if m.updateAccountFn != nil {
		return m.updateAccountFn(accountID, fields)
	}
	return &models.Account{}, nil
}

func (m *mockAccountService) UpdateCreditCard(cardID string, fields services.CreditCardUpdateFields) (*models.CreditCard, error) {
	if m.updateCreditCardFn != nil {
		return m.updateCreditCardFn(cardID, fields)
	}
	return &models.CreditCard{}, nil
}

func (m *mockAccountService) DeleteAccount(accountID string) error {
	if m.deleteAccountFn != nil {
		return m.deleteAccountFn(accountID)
	}
	return nil
}

func (m *mockAccountService) DeleteCreditCard(cardID string) error {
	if m.deleteCreditCardFn != nil {
		return m.deleteCreditCardFn(cardID)
	}
	return nil
}

var _ services.AccountServicer = (*mockAccountService)(nil)

type mockTransactionService struct {
	recordTransactionFn      func(req services.RecordTransactionRequest) (*models.Transaction, error)
	adjustBalanceFn          func(accountID string, kind models.AccountKind, target int64, description string) (*models.Transaction, error)
	getTransactionByIDFn     func(transactionID string) (*models.Transaction, error)
	getAccountTransactionsFn func(accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	getDeletedTransactionsFn func(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
	updateTransactionFn      func(transactionID string, edit services.TransactionEdit) (*models.Transaction, error)
	deleteTransactionFn      func(transactionID string) error
}

func (m *mockTransactionService) RecordTransaction(req services.RecordTransactionRequest) (*models.Transaction, error) {
	if m.recordTransactionFn != nil {
		return m.recordTransactionFn(req)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) AdjustBalance(accountID string, kind models.AccountKind, target int64, description string) (*models.Transaction, error) {
	if m.adjustBalanceFn != nil {
		return m.adjustBalanceFn(accountID, kind, target, description)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetTransactionByID(transactionID string) (*models.Transaction, error) {
	if m.getTransactionByIDFn != nil {
		return m.getTransactionByIDFn(transactionID)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) GetAccountTransactions(accountID string, page pagination.PageRequest, filter services.TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if m.getAccountTransactionsFn != nil {
		return m.getAccountTransactionsFn(accountID, page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) GetDeletedTransactions(accountID string, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	if m.getDeletedTransactionsFn != nil {
		return m.getDeletedTransactionsFn(accountID, page)
	}
	resp := pagination.NewPageResponse([]models.Transaction{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockTransactionService) UpdateTransaction(transactionID string, edit services.TransactionEdit) (*models.Transaction, error) {
	if m.updateTransactionFn != nil {
		return m.updateTransactionFn(transactionID, edit)
	}
	return &models.Transaction{}, nil
}

func (m *mockTransactionService) DeleteTransaction(transactionID string) error {
	if m.deleteTransactionFn != nil {
		return m.deleteTransactionFn(transactionID)
	}
	return nil
}

var _ services.TransactionServicer = (*mockTransactionService)(nil)

type mockTransferService struct {
	validateFn        func(fromAccountID string, fromKind models.AccountKind, amount int64) (*services.ValidationResult, error)
	createTransferFn  func(req services.TransferRequest) (*models.Transfer, error)
	deleteTransferFn  func(transferID string) error
	getTransferByIDFn func(transferID string) (*models.Transfer, error)
	getTransferLegsFn func(transferID string) ([]models.Transaction, error)
	listTransfersFn   func(page pagination.PageRequest, filter services.TransferFilter) (*pagination.PageResponse[models.Transfer], error)
}

func (m *mockTransferService) Validate(fromAccountID string, fromKind models.AccountKind, amount int64) (*services.ValidationResult, error) {
	if m.validateFn != nil {
		return m.validateFn(fromAccountID, fromKind, amount)
	}
	return &services.ValidationResult{Valid: true}, nil
}

func (m *mockTransferService) CreateTransfer(req services.TransferRequest) (*models.Transfer, error) {
	if m.createTransferFn != nil {
		return m.createTransferFn(req)
	}
	return &models.Transfer{}, nil
}

func (m *mockTransferService) DeleteTransfer(transferID string) error {
	if m.deleteTransferFn != nil {
		return m.deleteTransferFn(transferID)
	}
	return nil
}

func (m *mockTransferService) GetTransferByID(transferID string) (*models.Transfer, error) {
	if m.getTransferByIDFn != nil {
		return m.getTransferByIDFn(transferID)
	}
	return &models.Transfer{}, nil
}

func (m *mockTransferService) GetTransferLegs(transferID string) ([]models.Transaction, error) {
	if m.getTransferLegsFn != nil {
		return m.getTransferLegsFn(transferID)
	}
	return []models.Transaction{}, nil
}

func (m *mockTransferService) ListTransfers(page pagination.PageRequest, filter services.TransferFilter) (*pagination.PageResponse[models.Transfer], error) {
	if m.listTransfersFn != nil {
		return m.listTransfersFn(page, filter)
	}
	resp := pagination.NewPageResponse([]models.Transfer{}, 1, 20, 0)
	return &resp, nil
}

var _ services.TransferServicer = (*mockTransferService)(nil)

type mockInvestmentService struct {
	createInvestmentFn   func(req services.CreateInvestmentRequest, sourceAccountID *string) (*models.Investment, error)
	addContributionFn    func(investmentID string, amount int64, sourceAccountID *string, source string) (*models.InvestmentContribution, error)
	processWithdrawalFn  func(investmentID string, amount int64, destinationAccountID *string, reason string) (*models.InvestmentWithdrawal, error)
	deleteContributionFn func(investmentID, contributionID string) error
	deleteWithdrawalFn   func(investmentID, withdrawalID string) error
	getTotalInvestedFn   func(investmentID string) (int64, error)
	accrueReturnsFn      func(investmentID string, asOf time.Time) (*models.Investment, error)
	getInvestmentByIDFn  func(investmentID string) (*models.Investment, error)
	listInvestmentsFn    func(page pagination.PageRequest) (*pagination.PageResponse[models.Investment], error)
}

func (m *mockInvestmentService) CreateInvestment(req services.CreateInvestmentRequest, sourceAccountID *string) (*models.Investment, error) {
	if m.createInvestmentFn != nil {
		return m.createInvestmentFn(req, sourceAccountID)
	}
	return &models.Investment{}, nil
}

func (m *mockInvestmentService) AddContribution(investmentID string, amount int64, sourceAccountID *string, source string) (*models.InvestmentContribution, error) {
	if m.addContributionFn != nil {
		return m.addContributionFn(investmentID, amount, sourceAccountID, source)
	}
	return &models.InvestmentContribution{}, nil
}

func (m *mockInvestmentService) ProcessWithdrawal(investmentID string, amount int64, destinationAccountID *string, reason string) (*models.InvestmentWithdrawal, error) {
	if m.processWithdrawalFn != nil {
		return m.processWithdrawalFn(investmentID, amount, destinationAccountID, reason)
	}
	return &models.InvestmentWithdrawal{}, nil
}

func (m *mockInvestmentService) DeleteContribution(investmentID, contributionID string) error {
	if m.deleteContributionFn != nil {
		return m.deleteContributionFn(investmentID, contributionID)
	}
	return nil
}

func (m *mockInvestmentService) DeleteWithdrawal(investmentID, withdrawalID string) error {
	if m.deleteWithdrawalFn != nil {
		return m.deleteWithdrawalFn(investmentID, withdrawalID)
	}
	return nil
}

func (m *mockInvestmentService) GetTotalInvested(investmentID string) (int64, error) {
	if m.getTotalInvestedFn != nil {
		return m.getTotalInvestedFn(investmentID)
	}
	return 0, nil
}

func (m *mockInvestmentService) AccrueReturns(investmentID string, asOf time.Time) (*models.Investment, error) {
	if m.accrueReturnsFn != nil {
		return m.accrueReturnsFn(investmentID, asOf)
	}
	return &models.Investment{}, nil
}

func (m *mockInvestmentService) GetInvestmentByID(investmentID string) (*models.Investment, error) {
	if m.getInvestmentByIDFn != nil {
		return m.getInvestmentByIDFn(investmentID)
	}
	return &models.Investment{}, nil
}

func (m *mockInvestmentService) ListInvestments(page pagination.PageRequest) (*pagination.PageResponse[models.Investment], error) {
	if m.listInvestmentsFn != nil {
		return m.listInvestmentsFn(page)
	}
	resp := pagination.NewPageResponse([]models.Investment{}, 1, 20, 0)
	return &resp, nil
}

var _ services.InvestmentServicer = (*mockInvestmentService)(nil)

type mockIntegrityService struct {
	runValidationsFn          func() (*services.ValidationReport, error)
	runManualReconciliationFn func() (*services.ManualReconciliationReport, error)
	latestReportFn            func() (*services.ValidationReport, bool)
	validations               int
}

func (m *mockIntegrityService) RunValidations() (*services.ValidationReport, error) {
	m.validations++
	if m.runValidationsFn != nil {
		return m.runValidationsFn()
	}
	return &services.ValidationReport{}, nil
}

func (m *mockIntegrityService) AutoFixBalanceDiscrepancies() (*services.FixReport, error) {
	return &services.FixReport{}, nil
}

func (m *mockIntegrityService) CleanupOrphanedTransactions() (int, error) {
	return 0, nil
}

func (m *mockIntegrityService) ReconcileAllAccounts() (*services.FixReport, error) {
	return &services.FixReport{}, nil
}

func (m *mockIntegrityService) RunManualReconciliation() (*services.ManualReconciliationReport, error) {
	if m.runManualReconciliationFn != nil {
		return m.runManualReconciliationFn()
	}
	return &services.ManualReconciliationReport{Reconciled: &services.FixReport{}}, nil
}

func (m *mockIntegrityService) RunStartupCheck(autoFix bool) (*services.ValidationReport, error) {
	return m.RunValidations()
}

func (m *mockIntegrityService) LatestReport() (*services.ValidationReport, bool) {
	if m.latestReportFn != nil {
		return m.latestReportFn()
	}
	return nil, false
}

var _ services.IntegrityServicer = (*mockIntegrityService)(nil)

type auditEntry struct {
	actor      string
	action     string
	resourceID string
	changes    map[string]interface{}
}

type mockAuditService struct {
	entries []auditEntry
}

func (m *mockAuditService) Log(actor, action, _, resourceID, _ string, changes map[string]interface{}) {
	m.entries = append(m.entries, auditEntry{actor: actor, action: action, resourceID: resourceID, changes: changes})
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func assertErrorCode(t *testing.T, result map[string]interface{}, code string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object in response, got: %v", result)
	}
	if errObj["code"] != code {
		t.Errorf("expected error code %q, got %q", code, errObj["code"])
	}
}

func assertAudited(t *testing.T, audit *mockAuditService, action string) {
	t.Helper()
	for _, e := range audit.entries {
		if e.action == action {
			return
		}
	}
	t.Errorf("expected audit action %q, got %v", action, audit.entries)
}
