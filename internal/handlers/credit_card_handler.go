package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "finledger/internal/errors"
	"finledger/internal/services"
)

// CreateCreditCardRequest represents the request payload for opening a credit card.
type CreateCreditCardRequest struct {
	Name         string  `json:"name" binding:"required,min=1,max=100"`
	BankName     string  `json:"bank_name" binding:"max=100"`
	Currency     string  `json:"currency" binding:"omitempty,iso4217"`
	CreditLimit  int64   `json:"credit_limit" binding:"gte=0"`
	InitialDebt  int64   `json:"initial_debt" binding:"gte=0"`
	InterestRate float64 `json:"interest_rate" binding:"gte=0,lte=100"`
	CutoffDay    int     `json:"cutoff_day" binding:"gte=0,lte=31"`
	PaymentDay   int     `json:"payment_day" binding:"gte=0,lte=31"`
}

// UpdateCreditCardRequest represents the request payload for updating a credit card.
type UpdateCreditCardRequest struct {
	Name         *string  `json:"name" binding:"omitempty,min=1,max=100"`
	BankName     *string  `json:"bank_name" binding:"omitempty,max=100"`
	IsActive     *bool    `json:"is_active"`
	CreditLimit  *int64   `json:"credit_limit" binding:"omitempty,gte=0"`
	InterestRate *float64 `json:"interest_rate" binding:"omitempty,gte=0,lte=100"`
	CutoffDay    *int     `json:"cutoff_day" binding:"omitempty,gte=0,lte=31"`
	PaymentDay   *int     `json:"payment_day" binding:"omitempty,gte=0,lte=31"`
}

// CreateCreditCard handles opening a credit card
// @Summary     Create a credit card
// @Description Open a credit card. Existing debt is recorded as an opening charge.
// @Tags        credit-cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateCreditCardRequest true "Credit card details"
// @Success     201 {object} models.CreditCard "Credit card created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /credit-cards [post]
func (h *AccountHandler) CreateCreditCard(c *gin.Context) {
	var req CreateCreditCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	card, err := h.accountService.CreateCreditCard(services.CreateCreditCardRequest{
		Name:         req.Name,
		BankName:     req.BankName,
		Currency:     req.Currency,
		CreditLimit:  req.CreditLimit,
		InitialDebt:  req.InitialDebt,
		InterestRate: req.InterestRate,
		CutoffDay:    req.CutoffDay,
		PaymentDay:   req.PaymentDay,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "CREATE_CREDIT_CARD", "credit_card", card.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "credit_limit": req.CreditLimit})

	c.JSON(http.StatusCreated, gin.H{"credit_card": card})
}

// ListCreditCards handles listing credit cards
// @Summary     List credit cards
// @Tags        credit-cards
// @Produce     json
// @Security    BearerAuth
// @Param       page             query int  false "Page number (default 1)"
// @Param       page_size        query int  false "Items per page (default 20, max 100)"
// @Param       include_inactive query bool false "Include deactivated cards"
// @Success     200 {object} pagination.PageResponse[models.CreditCard] "Paginated credit cards"
// @Router      /credit-cards [get]
func (h *AccountHandler) ListCreditCards(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.accountService.ListCreditCards(page, c.Query("include_inactive") == "true")
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCreditCard handles the retrieval of a credit card
// @Summary     Get credit card
// @Tags        credit-cards
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Credit card ID"
// @Success     200 {object} models.CreditCard "Credit card details"
// @Failure     404 {object} ErrorResponse "Credit card not found"
// @Router      /credit-cards/{id} [get]
func (h *AccountHandler) GetCreditCard(c *gin.Context) {
	cardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	card, err := h.accountService.GetCreditCardByID(cardID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"credit_card": card})
}

// UpdateCreditCard handles updating credit card metadata and limit
// @Summary     Update credit card
// @Description A new credit limit is applied through the reconciler so available credit stays consistent.
// @Tags        credit-cards
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Credit card ID"
// @Param       request body UpdateCreditCardRequest true "Updated card details"
// @Success     200 {object} models.CreditCard "Updated credit card"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Credit card not found"
// @Router      /credit-cards/{id} [put]
func (h *AccountHandler) UpdateCreditCard(c *gin.Context) {
	cardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateCreditCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	card, err := h.accountService.UpdateCreditCard(cardID, services.CreditCardUpdateFields{
		Name:         req.Name,
		BankName:     req.BankName,
		IsActive:     req.IsActive,
		CreditLimit:  req.CreditLimit,
		InterestRate: req.InterestRate,
		CutoffDay:    req.CutoffDay,
		PaymentDay:   req.PaymentDay,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "UPDATE_CREDIT_CARD", "credit_card", cardID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"credit_card": card})
}

// DeleteCreditCard handles soft-deleting a credit card
// @Summary     Delete credit card
// @Tags        credit-cards
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Credit card ID"
// @Success     200 {object} MessageResponse "Credit card deleted"
// @Failure     404 {object} ErrorResponse "Credit card not found"
// @Router      /credit-cards/{id} [delete]
func (h *AccountHandler) DeleteCreditCard(c *gin.Context) {
	cardID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.accountService.DeleteCreditCard(cardID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "DELETE_CREDIT_CARD", "credit_card", cardID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"message": "Credit card deleted successfully"})
}
