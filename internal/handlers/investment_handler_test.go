package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "finledger/internal/errors"
	"finledger/internal/models"
	"finledger/internal/services"
)

const testInvestmentID = "0190a5b2-7c3d-7e4f-8a1b-2c3d4e5f6a80"

func setupInvestmentRouter(handler *InvestmentHandler) *gin.Engine {
	r := gin.New()
	r.POST("/investments", handler.CreateInvestment)
	r.GET("/investments", handler.ListInvestments)
	r.GET("/investments/:id", handler.GetInvestment)
	r.GET("/investments/:id/total", handler.GetTotalInvested)
	r.POST("/investments/:id/contributions", handler.AddContribution)
	r.DELETE("/investments/:id/contributions/:cid", handler.DeleteContribution)
	r.POST("/investments/:id/withdrawals", handler.ProcessWithdrawal)
	r.DELETE("/investments/:id/withdrawals/:wid", handler.DeleteWithdrawal)
	r.POST("/investments/:id/accrue", handler.AccrueReturns)
	return r
}

func TestInvestmentHandler_CreateInvestment(t *testing.T) {
	t.Run("returns 201 and passes the source account", func(t *testing.T) {
		var captured services.CreateInvestmentRequest
		var capturedSource *string
		invSvc := &mockInvestmentService{
			createInvestmentFn: func(req services.CreateInvestmentRequest, sourceAccountID *string) (*models.Investment, error) {
				captured = req
				capturedSource = sourceAccountID
				return &models.Investment{
					Base:           models.Base{ID: testInvestmentID},
					Name:           req.Name,
					InitialCapital: req.InitialCapital,
					CurrentValue:   req.InitialCapital,
					AnnualRate:     req.AnnualRate,
				}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewInvestmentHandler(invSvc, audit)
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "POST", "/investments",
			`{"name":"CETES","type":"fixed_term","initial_capital":100000,"annual_rate":"10.5","start_date":"2024-01-01","source_account_id":"`+testAccountID+`"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !captured.AnnualRate.Equal(decimal.RequireFromString("10.5")) {
			t.Errorf("expected rate 10.5, got %s", captured.AnnualRate)
		}
		if captured.StartDate.Year() != 2024 {
			t.Errorf("expected 2024 start date, got %v", captured.StartDate)
		}
		if capturedSource == nil || *capturedSource != testAccountID {
			t.Errorf("expected source account %s, got %v", testAccountID, capturedSource)
		}
		inv := parseJSON(t, rec)["investment"].(map[string]interface{})
		if inv["current_value"].(float64) != 100000 {
			t.Errorf("expected current value 100000, got %v", inv["current_value"])
		}
		assertAudited(t, audit, "CREATE_INVESTMENT")
	})

	t.Run("accepts numeric rate without source account", func(t *testing.T) {
		var capturedSource *string
		invSvc := &mockInvestmentService{
			createInvestmentFn: func(_ services.CreateInvestmentRequest, sourceAccountID *string) (*models.Investment, error) {
				capturedSource = sourceAccountID
				return &models.Investment{}, nil
			},
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "POST", "/investments", `{"name":"Fund","initial_capital":500,"annual_rate":7}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if capturedSource != nil {
			t.Errorf("expected no source account, got %v", *capturedSource)
		}
	})

	t.Run("returns 400 on insufficient funds", func(t *testing.T) {
		invSvc := &mockInvestmentService{
			createInvestmentFn: func(_ services.CreateInvestmentRequest, _ *string) (*models.Investment, error) {
				return nil, apperrors.ErrInsufficientFunds
			},
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "POST", "/investments",
			`{"name":"CETES","initial_capital":100000,"source_account_id":"`+testAccountID+`"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_FUNDS")
	})

	t.Run("returns 400 on invalid input", func(t *testing.T) {
		handler := NewInvestmentHandler(&mockInvestmentService{}, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		for name, body := range map[string]string{
			"missing name":     `{"initial_capital":100}`,
			"negative capital": `{"name":"X","initial_capital":-1}`,
			"unknown type":     `{"name":"X","type":"crypto"}`,
			"bad start date":   `{"name":"X","start_date":"yesterday"}`,
			"bad source":       `{"name":"X","source_account_id":"abc"}`,
		} {
			rec := doRequest(r, "POST", "/investments", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", name, rec.Code)
			}
		}
	})
}

func TestInvestmentHandler_Contributions(t *testing.T) {
	t.Run("adds a contribution", func(t *testing.T) {
		var capturedAmount int64
		var capturedSource *string
		invSvc := &mockInvestmentService{
			addContributionFn: func(investmentID string, amount int64, sourceAccountID *string, _ string) (*models.InvestmentContribution, error) {
				capturedAmount = amount
				capturedSource = sourceAccountID
				return &models.InvestmentContribution{InvestmentID: investmentID, Amount: amount, AccountID: sourceAccountID}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewInvestmentHandler(invSvc, audit)
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "POST", "/investments/"+testInvestmentID+"/contributions",
			`{"amount":2500,"source_account_id":"`+testAccountID+`","source":"bonus"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if capturedAmount != 2500 || capturedSource == nil {
			t.Errorf("expected 2500 from account, got %d/%v", capturedAmount, capturedSource)
		}
		if _, ok := parseJSON(t, rec)["contribution"]; !ok {
			t.Error("expected contribution in response")
		}
		assertAudited(t, audit, "ADD_CONTRIBUTION")
	})

	t.Run("returns 400 on zero amount", func(t *testing.T) {
		handler := NewInvestmentHandler(&mockInvestmentService{}, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "POST", "/investments/"+testInvestmentID+"/contributions", `{"amount":0}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("deletes a contribution", func(t *testing.T) {
		var gotInvestment, gotContribution string
		invSvc := &mockInvestmentService{
			deleteContributionFn: func(investmentID, contributionID string) error {
				gotInvestment, gotContribution = investmentID, contributionID
				return nil
			},
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "DELETE", "/investments/"+testInvestmentID+"/contributions/"+testTxnID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotInvestment != testInvestmentID || gotContribution != testTxnID {
			t.Errorf("unexpected ids %s/%s", gotInvestment, gotContribution)
		}
	})

	t.Run("returns 400 when deleting would overdraw the investment", func(t *testing.T) {
		invSvc := &mockInvestmentService{
			deleteContributionFn: func(_, _ string) error { return apperrors.ErrInsufficientInvestmentFunds },
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "DELETE", "/investments/"+testInvestmentID+"/contributions/"+testTxnID, "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_INVESTMENT_FUNDS")
	})

	t.Run("returns 400 on invalid contribution id", func(t *testing.T) {
		handler := NewInvestmentHandler(&mockInvestmentService{}, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "DELETE", "/investments/"+testInvestmentID+"/contributions/nope", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestInvestmentHandler_Withdrawals(t *testing.T) {
	t.Run("processes a withdrawal", func(t *testing.T) {
		var capturedDest *string
		invSvc := &mockInvestmentService{
			processWithdrawalFn: func(investmentID string, amount int64, destinationAccountID *string, _ string) (*models.InvestmentWithdrawal, error) {
				capturedDest = destinationAccountID
				return &models.InvestmentWithdrawal{InvestmentID: investmentID, Amount: amount}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewInvestmentHandler(invSvc, audit)
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "POST", "/investments/"+testInvestmentID+"/withdrawals",
			`{"amount":1000,"destination_account_id":"`+testAccountID+`","reason":"rent"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if capturedDest == nil || *capturedDest != testAccountID {
			t.Errorf("expected destination %s, got %v", testAccountID, capturedDest)
		}
		assertAudited(t, audit, "PROCESS_WITHDRAWAL")
	})

	t.Run("returns 400 on insufficient investment funds", func(t *testing.T) {
		invSvc := &mockInvestmentService{
			processWithdrawalFn: func(_ string, _ int64, _ *string, _ string) (*models.InvestmentWithdrawal, error) {
				return nil, apperrors.ErrInsufficientInvestmentFunds
			},
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "POST", "/investments/"+testInvestmentID+"/withdrawals", `{"amount":999999}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INSUFFICIENT_INVESTMENT_FUNDS")
	})

	t.Run("returns 404 for unknown withdrawal", func(t *testing.T) {
		invSvc := &mockInvestmentService{
			deleteWithdrawalFn: func(_, _ string) error { return apperrors.ErrWithdrawalNotFound },
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "DELETE", "/investments/"+testInvestmentID+"/withdrawals/"+testTxnID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "WITHDRAWAL_NOT_FOUND")
	})
}

func TestInvestmentHandler_Queries(t *testing.T) {
	t.Run("returns total invested", func(t *testing.T) {
		invSvc := &mockInvestmentService{
			getTotalInvestedFn: func(_ string) (int64, error) { return 12500, nil },
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "GET", "/investments/"+testInvestmentID+"/total", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		if result["total_invested"].(float64) != 12500 {
			t.Errorf("expected 12500, got %v", result["total_invested"])
		}
		if result["investment_id"] != testInvestmentID {
			t.Errorf("expected investment id, got %v", result["investment_id"])
		}
	})

	t.Run("returns 404 for unknown investment", func(t *testing.T) {
		invSvc := &mockInvestmentService{
			getInvestmentByIDFn: func(_ string) (*models.Investment, error) { return nil, apperrors.ErrInvestmentNotFound },
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "GET", "/investments/"+testInvestmentID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVESTMENT_NOT_FOUND")
	})

	t.Run("lists investments", func(t *testing.T) {
		handler := NewInvestmentHandler(&mockInvestmentService{}, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "GET", "/investments?page=1&page_size=10", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestInvestmentHandler_AccrueReturns(t *testing.T) {
	t.Run("uses as_of when given", func(t *testing.T) {
		var capturedAsOf time.Time
		invSvc := &mockInvestmentService{
			accrueReturnsFn: func(_ string, asOf time.Time) (*models.Investment, error) {
				capturedAsOf = asOf
				return &models.Investment{AccumulatedReturns: 42}, nil
			},
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "POST", "/investments/"+testInvestmentID+"/accrue", `{"as_of":"2024-06-30"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if capturedAsOf.Month() != time.June || capturedAsOf.Day() != 30 {
			t.Errorf("expected 2024-06-30, got %v", capturedAsOf)
		}
	})

	t.Run("accepts an empty body", func(t *testing.T) {
		var capturedAsOf time.Time
		invSvc := &mockInvestmentService{
			accrueReturnsFn: func(_ string, asOf time.Time) (*models.Investment, error) {
				capturedAsOf = asOf
				return &models.Investment{}, nil
			},
		}
		handler := NewInvestmentHandler(invSvc, &mockAuditService{})
		r := setupInvestmentRouter(handler)

		rec := doRequest(r, "POST", "/investments/"+testInvestmentID+"/accrue", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !capturedAsOf.IsZero() {
			t.Errorf("expected zero as_of, got %v", capturedAsOf)
		}
	})
}
