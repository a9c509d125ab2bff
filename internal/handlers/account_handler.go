package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finledger/internal/errors"
	"finledger/internal/models"
	"finledger/internal/services"
)

// AccountHandler handles bank account requests.
type AccountHandler struct {
	accountService     services.AccountServicer
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountService services.AccountServicer, transactionService services.TransactionServicer, auditService services.AuditServicer) *AccountHandler {
	return &AccountHandler{
		accountService:     accountService,
		transactionService: transactionService,
		auditService:       auditService,
	}
}

// CreateAccountRequest represents the request payload for opening a bank account
type CreateAccountRequest struct {
	Name           string             `json:"name" binding:"required,min=1,max=100"`
	BankName       string             `json:"bank_name" binding:"max=100"`
	Type           models.AccountType `json:"type" binding:"omitempty,account_type"`
	Currency       string             `json:"currency" binding:"omitempty,iso4217"`
	InitialBalance int64              `json:"initial_balance"`
}

// UpdateAccountRequest represents the request payload for updating a bank account.
// Balances cannot be set here; use the adjust endpoint.
type UpdateAccountRequest struct {
	Name     *string             `json:"name" binding:"omitempty,min=1,max=100"`
	BankName *string             `json:"bank_name" binding:"omitempty,max=100"`
	Type     *models.AccountType `json:"type" binding:"omitempty,account_type"`
	IsActive *bool               `json:"is_active"`
}

// AdjustBalanceRequest represents the request payload for a balance adjustment.
type AdjustBalanceRequest struct {
	TargetBalance *int64 `json:"target_balance" binding:"required"`
	Description   string `json:"description" binding:"max=500"`
}

// CreateAccount handles opening a bank account
// @Summary     Create a bank account
// @Description Open a bank or cash account. A non-zero initial balance is recorded as an opening transaction.
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateAccountRequest true "Account details"
// @Success     201 {object} models.Account "Account created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [post]
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accountService.CreateAccount(services.CreateAccountRequest{
		Name:           req.Name,
		BankName:       req.BankName,
		Type:           req.Type,
		Currency:       req.Currency,
		InitialBalance: req.InitialBalance,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "CREATE_ACCOUNT", "account", account.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "initial_balance": req.InitialBalance})

	c.JSON(http.StatusCreated, gin.H{"account": account})
}

// ListAccounts handles listing bank accounts
// @Summary     List bank accounts
// @Description Get a paginated list of bank accounts
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       page             query int  false "Page number (default 1)"
// @Param       page_size        query int  false "Items per page (default 20, max 100)"
// @Param       include_inactive query bool false "Include deactivated accounts"
// @Success     200 {object} pagination.PageResponse[models.Account] "Paginated accounts"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /accounts [get]
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.accountService.ListAccounts(page, c.Query("include_inactive") == "true")
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAccount handles the retrieval of a bank account
// @Summary     Get bank account
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} models.Account "Account details"
// @Failure     400 {object} ErrorResponse "Invalid account ID"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [get]
func (h *AccountHandler) GetAccount(c *gin.Context) {
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	account, err := h.accountService.GetAccountByID(accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// UpdateAccount handles updating bank account metadata
// @Summary     Update bank account
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Account ID"
// @Param       request body UpdateAccountRequest true "Updated account details"
// @Success     200 {object} models.Account "Updated account"
// @Failure     400 {object} ErrorResponse "Invalid input or account ID"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [put]
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.accountService.UpdateAccount(accountID, services.AccountUpdateFields{
		Name:     req.Name,
		BankName: req.BankName,
		Type:     req.Type,
		IsActive: req.IsActive,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "UPDATE_ACCOUNT", "account", accountID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"account": account})
}

// DeleteAccount handles soft-deleting a bank account
// @Summary     Delete bank account
// @Description Soft-delete a bank account. Its transactions are left for the integrity check to clean up.
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Account ID"
// @Success     200 {object} MessageResponse "Account deleted"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.accountService.DeleteAccount(accountID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "DELETE_ACCOUNT", "account", accountID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}

// AdjustBalance handles bringing an account to a target balance
// @Summary     Adjust account balance
// @Description Record the difference between the current and target balance as an adjustment transaction.
// @Tags        accounts
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Account ID"
// @Param       request body AdjustBalanceRequest true "Target balance"
// @Success     201 {object} models.Transaction "Adjustment recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/adjust [post]
func (h *AccountHandler) AdjustBalance(c *gin.Context) {
	h.adjust(c, models.AccountKindBank)
}

// AdjustCreditCardBalance handles bringing a card's debt to a target
// @Summary     Adjust credit card debt
// @Tags        credit-cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true "Credit card ID"
// @Param       request body AdjustBalanceRequest true "Target debt"
// @Success     201 {object} models.Transaction "Adjustment recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Credit card not found"
// @Router      /credit-cards/{id}/adjust [post]
func (h *AccountHandler) AdjustCreditCardBalance(c *gin.Context) {
	h.adjust(c, models.AccountKindCredit)
}

func (h *AccountHandler) adjust(c *gin.Context, kind models.AccountKind) {
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	txn, err := h.transactionService.AdjustBalance(accountID, kind, *req.TargetBalance, req.Description)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "ADJUST_BALANCE", string(kind), accountID, c.ClientIP(),
		map[string]interface{}{"target": *req.TargetBalance, "amount": txn.Amount})

	c.JSON(http.StatusCreated, gin.H{"transaction": txn})
}

// GetAccountTransactions handles listing a bank account's transactions
// @Summary     List account transactions
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id         path  string true  "Account or credit card ID"
// @Param       page       query int    false "Page number (default 1)"
// @Param       page_size  query int    false "Items per page (default 20, max 100)"
// @Param       from_date  query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date    query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Param       type       query string false "Transaction type"
// @Param       min_amount query int    false "Minimum signed amount in cents"
// @Param       max_amount query int    false "Maximum signed amount in cents"
// @Param       pending    query bool   false "Only pending or only cleared"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated transactions"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/transactions [get]
func (h *AccountHandler) GetAccountTransactions(c *gin.Context) {
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	filter, err := parseTransactionFilter(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetAccountTransactions(accountID, page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetDeletedTransactions handles listing an account's soft-deleted transactions
// @Summary     List deleted transactions
// @Tags        accounts
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Account or credit card ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transaction] "Paginated deleted transactions"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/transactions/deleted [get]
func (h *AccountHandler) GetDeletedTransactions(c *gin.Context) {
	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.transactionService.GetDeletedTransactions(accountID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
