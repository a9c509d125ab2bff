package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finledger/internal/errors"
	"finledger/internal/logger"
	"finledger/internal/models"
	"finledger/internal/services"
)

// TransferHandler handles transfer requests.
type TransferHandler struct {
	transferService services.TransferServicer
	auditService    services.AuditServicer
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferService services.TransferServicer, auditService services.AuditServicer) *TransferHandler {
	return &TransferHandler{transferService: transferService, auditService: auditService}
}

// CreateTransferRequest represents the request payload for a transfer.
// Kinds are resolved from the ids when omitted.
type CreateTransferRequest struct {
	FromAccountID string             `json:"from_account_id" binding:"required,uuid"`
	FromKind      models.AccountKind `json:"from_kind" binding:"omitempty,account_kind"`
	ToAccountID   string             `json:"to_account_id" binding:"required,uuid"`
	ToKind        models.AccountKind `json:"to_kind" binding:"omitempty,account_kind"`
	Amount        int64              `json:"amount" binding:"required,gt=0"`
	Fee           int64              `json:"fee" binding:"gte=0"`
	Date          *string            `json:"date"`
	Description   string             `json:"description" binding:"max=500"`
}

// ValidateTransferRequest represents the request payload for a funds check.
type ValidateTransferRequest struct {
	FromAccountID string             `json:"from_account_id" binding:"required,uuid"`
	FromKind      models.AccountKind `json:"from_kind" binding:"omitempty,account_kind"`
	Amount        int64              `json:"amount" binding:"required,gt=0"`
}

// TransferResponse is a transfer together with its ledger legs.
type TransferResponse struct {
	Transfer *models.Transfer     `json:"transfer"`
	Legs     []models.Transaction `json:"legs"`
}

// ValidateTransfer handles a pre-transfer funds check
// @Summary     Validate a transfer
// @Description Check whether the source account can fund the amount. Business failures are reported in the body with 200.
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ValidateTransferRequest true "Source and amount"
// @Success     200 {object} services.ValidationResult "Validation result"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /transfers/validate [post]
func (h *TransferHandler) ValidateTransfer(c *gin.Context) {
	var req ValidateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.transferService.Validate(req.FromAccountID, req.FromKind, req.Amount)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreateTransfer handles moving money between two accounts
// @Summary     Create a transfer
// @Description Move money between bank accounts and credit cards as a balanced pair of transactions, plus an optional fee debit on the source.
// @Tags        transfers
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransferRequest true "Transfer details"
// @Success     201 {object} TransferResponse "Transfer created"
// @Failure     400 {object} ErrorResponse "Invalid input, insufficient funds or exceeds available credit"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Failure     409 {object} ErrorResponse "Account inactive"
// @Router      /transfers [post]
func (h *TransferHandler) CreateTransfer(c *gin.Context) {
	var req CreateTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := parseOptionalTime(req.Date, "date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transfer, err := h.transferService.CreateTransfer(services.TransferRequest{
		FromAccountID: req.FromAccountID,
		FromKind:      req.FromKind,
		ToAccountID:   req.ToAccountID,
		ToKind:        req.ToKind,
		Amount:        req.Amount,
		Fee:           req.Fee,
		Date:          date,
		Description:   req.Description,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "CREATE_TRANSFER", "transfer", transfer.ID, c.ClientIP(),
		map[string]interface{}{
			"from_account_id": transfer.FromAccountID,
			"to_account_id":   transfer.ToAccountID,
			"amount":          transfer.Amount,
			"fee":             transfer.Fee,
		})

	legs, err := h.transferService.GetTransferLegs(transfer.ID)
	if err != nil {
		// The transfer is committed; report it without legs.
		logger.Get().Warnw("failed to load transfer legs", "transfer_id", transfer.ID, "error", err)
		legs = []models.Transaction{}
	}

	c.JSON(http.StatusCreated, TransferResponse{Transfer: transfer, Legs: legs})
}

// ListTransfers handles listing transfers
// @Summary     List transfers
// @Tags        transfers
// @Produce     json
// @Security    BearerAuth
// @Param       account_id query string false "Only transfers touching this account"
// @Param       from_date  query string false "Start date (RFC3339 or YYYY-MM-DD)"
// @Param       to_date    query string false "End date (RFC3339 or YYYY-MM-DD)"
// @Param       page       query int    false "Page number (default 1)"
// @Param       page_size  query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Transfer] "Paginated transfers"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /transfers [get]
func (h *TransferHandler) ListTransfers(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var filter services.TransferFilter
	if v := c.Query("account_id"); v != "" {
		filter.AccountID = &v
	}
	if v := c.Query("from_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid from_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		filter.FromDate = &t
	}
	if v := c.Query("to_date"); v != "" {
		t, err := parseFlexibleTime(v)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid to_date format, use RFC3339 or YYYY-MM-DD"))
			return
		}
		filter.ToDate = &t
	}

	result, err := h.transferService.ListTransfers(page, filter)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetTransfer handles the retrieval of a transfer and its legs
// @Summary     Get transfer
// @Tags        transfers
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transfer ID"
// @Success     200 {object} TransferResponse "Transfer details"
// @Failure     404 {object} ErrorResponse "Transfer not found"
// @Router      /transfers/{id} [get]
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	transferID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	transfer, err := h.transferService.GetTransferByID(transferID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	legs, err := h.transferService.GetTransferLegs(transferID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, TransferResponse{Transfer: transfer, Legs: legs})
}

// DeleteTransfer handles reversing a transfer
// @Summary     Delete transfer
// @Description Soft-delete every leg of the transfer and reconcile both accounts.
// @Tags        transfers
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Transfer ID"
// @Success     200 {object} MessageResponse "Transfer deleted"
// @Failure     404 {object} ErrorResponse "Transfer not found"
// @Router      /transfers/{id} [delete]
func (h *TransferHandler) DeleteTransfer(c *gin.Context) {
	transferID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.transferService.DeleteTransfer(transferID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "DELETE_TRANSFER", "transfer", transferID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Transfer deleted successfully"})
}
