package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finledger/internal/errors"
	"finledger/internal/models"
	"finledger/internal/services"
)

// InvestmentHandler handles investment money-movement requests.
type InvestmentHandler struct {
	investmentService services.InvestmentServicer
	auditService      services.AuditServicer
}

// NewInvestmentHandler creates a new InvestmentHandler.
func NewInvestmentHandler(investmentService services.InvestmentServicer, auditService services.AuditServicer) *InvestmentHandler {
	return &InvestmentHandler{investmentService: investmentService, auditService: auditService}
}

// CreateInvestmentRequest represents the request payload for opening an investment.
type CreateInvestmentRequest struct {
	Name            string                `json:"name" binding:"required,min=1,max=200"`
	Platform        string                `json:"platform" binding:"max=100"`
	Type            models.InvestmentType `json:"type" binding:"omitempty,investment_type"`
	InitialCapital  int64                 `json:"initial_capital" binding:"gte=0"`
	StartDate       *string               `json:"start_date"`
	AnnualRate      decimal.Decimal       `json:"annual_rate" swaggertype:"string" example:"10.5"`
	AutoReinvest    bool                  `json:"auto_reinvest"`
	SourceAccountID *string               `json:"source_account_id" binding:"omitempty,uuid"`
}

// ContributionRequest represents the request payload for adding money to an investment.
type ContributionRequest struct {
	Amount          int64   `json:"amount" binding:"required,gt=0"`
	SourceAccountID *string `json:"source_account_id" binding:"omitempty,uuid"`
	Source          string  `json:"source" binding:"max=200"`
}

// WithdrawalRequest represents the request payload for taking money out of an investment.
type WithdrawalRequest struct {
	Amount               int64   `json:"amount" binding:"required,gt=0"`
	DestinationAccountID *string `json:"destination_account_id" binding:"omitempty,uuid"`
	Reason               string  `json:"reason" binding:"max=200"`
}

// AccrueReturnsRequest represents the request payload for accruing interest.
type AccrueReturnsRequest struct {
	AsOf *string `json:"as_of"`
}

// TotalInvestedResponse reports the capital put into an investment.
type TotalInvestedResponse struct {
	InvestmentID  string `json:"investment_id"`
	TotalInvested int64  `json:"total_invested"`
}

// CreateInvestment handles opening an investment
// @Summary     Create an investment
// @Description Open an investment. When a source account is given the initial capital is withdrawn from it.
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateInvestmentRequest true "Investment details"
// @Success     201 {object} models.Investment "Investment created"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient funds"
// @Failure     404 {object} ErrorResponse "Source account not found"
// @Router      /investments [post]
func (h *InvestmentHandler) CreateInvestment(c *gin.Context) {
	var req CreateInvestmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	startDate, err := parseOptionalTime(req.StartDate, "start_date")
	if err != nil {
		respondWithError(c, err)
		return
	}

	inv, err := h.investmentService.CreateInvestment(services.CreateInvestmentRequest{
		Name:           req.Name,
		Platform:       req.Platform,
		Type:           req.Type,
		InitialCapital: req.InitialCapital,
		StartDate:      startDate,
		AnnualRate:     req.AnnualRate,
		AutoReinvest:   req.AutoReinvest,
	}, req.SourceAccountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "CREATE_INVESTMENT", "investment", inv.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "initial_capital": req.InitialCapital})

	c.JSON(http.StatusCreated, gin.H{"investment": inv})
}

// ListInvestments handles listing investments
// @Summary     List investments
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Investment] "Paginated investments"
// @Router      /investments [get]
func (h *InvestmentHandler) ListInvestments(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.investmentService.ListInvestments(page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetInvestment handles the retrieval of an investment with its movements
// @Summary     Get investment
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Investment ID"
// @Success     200 {object} models.Investment "Investment details"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Router      /investments/{id} [get]
func (h *InvestmentHandler) GetInvestment(c *gin.Context) {
	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	inv, err := h.investmentService.GetInvestmentByID(investmentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"investment": inv})
}

// GetTotalInvested handles computing the capital put into an investment
// @Summary     Get total invested
// @Description Initial capital plus contributions minus withdrawals.
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Investment ID"
// @Success     200 {object} TotalInvestedResponse "Total invested"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Router      /investments/{id}/total [get]
func (h *InvestmentHandler) GetTotalInvested(c *gin.Context) {
	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	total, err := h.investmentService.GetTotalInvested(investmentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, TotalInvestedResponse{InvestmentID: investmentID, TotalInvested: total})
}

// AddContribution handles adding money to an investment
// @Summary     Add contribution
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string              true "Investment ID"
// @Param       request body ContributionRequest true "Contribution details"
// @Success     201 {object} models.InvestmentContribution "Contribution recorded"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient funds"
// @Failure     404 {object} ErrorResponse "Investment or account not found"
// @Router      /investments/{id}/contributions [post]
func (h *InvestmentHandler) AddContribution(c *gin.Context) {
	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	contribution, err := h.investmentService.AddContribution(investmentID, req.Amount, req.SourceAccountID, req.Source)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "ADD_CONTRIBUTION", "investment", investmentID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount, "contribution_id": contribution.ID})

	c.JSON(http.StatusCreated, gin.H{"contribution": contribution})
}

// ProcessWithdrawal handles taking money out of an investment
// @Summary     Withdraw from investment
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string            true "Investment ID"
// @Param       request body WithdrawalRequest true "Withdrawal details"
// @Success     201 {object} models.InvestmentWithdrawal "Withdrawal recorded"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient investment funds"
// @Failure     404 {object} ErrorResponse "Investment or account not found"
// @Router      /investments/{id}/withdrawals [post]
func (h *InvestmentHandler) ProcessWithdrawal(c *gin.Context) {
	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	withdrawal, err := h.investmentService.ProcessWithdrawal(investmentID, req.Amount, req.DestinationAccountID, req.Reason)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "PROCESS_WITHDRAWAL", "investment", investmentID, c.ClientIP(),
		map[string]interface{}{"amount": req.Amount, "withdrawal_id": withdrawal.ID})

	c.JSON(http.StatusCreated, gin.H{"withdrawal": withdrawal})
}

// DeleteContribution handles reversing a contribution
// @Summary     Delete contribution
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id  path string true "Investment ID"
// @Param       cid path string true "Contribution ID"
// @Success     200 {object} MessageResponse "Contribution deleted"
// @Failure     400 {object} ErrorResponse "Insufficient investment funds"
// @Failure     404 {object} ErrorResponse "Contribution not found"
// @Router      /investments/{id}/contributions/{cid} [delete]
func (h *InvestmentHandler) DeleteContribution(c *gin.Context) {
	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	contributionID, err := parsePathID(c, "cid")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.investmentService.DeleteContribution(investmentID, contributionID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "DELETE_CONTRIBUTION", "investment", investmentID, c.ClientIP(),
		map[string]interface{}{"contribution_id": contributionID})

	c.JSON(http.StatusOK, gin.H{"message": "Contribution deleted successfully"})
}

// DeleteWithdrawal handles reversing a withdrawal
// @Summary     Delete withdrawal
// @Tags        investments
// @Produce     json
// @Security    BearerAuth
// @Param       id  path string true "Investment ID"
// @Param       wid path string true "Withdrawal ID"
// @Success     200 {object} MessageResponse "Withdrawal deleted"
// @Failure     404 {object} ErrorResponse "Withdrawal not found"
// @Router      /investments/{id}/withdrawals/{wid} [delete]
func (h *InvestmentHandler) DeleteWithdrawal(c *gin.Context) {
	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	withdrawalID, err := parsePathID(c, "wid")
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.investmentService.DeleteWithdrawal(investmentID, withdrawalID); err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(actor(c), "DELETE_WITHDRAWAL", "investment", investmentID, c.ClientIP(),
		map[string]interface{}{"withdrawal_id": withdrawalID})

	c.JSON(http.StatusOK, gin.H{"message": "Withdrawal deleted successfully"})
}

// AccrueReturns handles crediting daily-compounded interest
// @Summary     Accrue returns
// @Description Credit interest from the last update up to as_of (default now).
// @Tags        investments
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string               true  "Investment ID"
// @Param       request body AccrueReturnsRequest false "Accrual date"
// @Success     200 {object} models.Investment "Updated investment"
// @Failure     404 {object} ErrorResponse "Investment not found"
// @Router      /investments/{id}/accrue [post]
func (h *InvestmentHandler) AccrueReturns(c *gin.Context) {
	investmentID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AccrueReturnsRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	asOf, err := parseOptionalTime(req.AsOf, "as_of")
	if err != nil {
		respondWithError(c, err)
		return
	}

	inv, err := h.investmentService.AccrueReturns(investmentID, asOf)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"investment": inv})
}
