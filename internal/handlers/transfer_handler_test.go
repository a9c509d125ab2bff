package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "finledger/internal/errors"
	"finledger/internal/models"
	"finledger/internal/pagination"
	"finledger/internal/services"
)

func setupTransferRouter(handler *TransferHandler) *gin.Engine {
	r := gin.New()
	r.POST("/transfers/validate", handler.ValidateTransfer)
	r.POST("/transfers", handler.CreateTransfer)
	r.GET("/transfers", handler.ListTransfers)
	r.GET("/transfers/:id", handler.GetTransfer)
	r.DELETE("/transfers/:id", handler.DeleteTransfer)
	return r
}

func TestTransferHandler_ValidateTransfer(t *testing.T) {
	t.Run("reports business failure with 200", func(t *testing.T) {
		trSvc := &mockTransferService{
			validateFn: func(_ string, _ models.AccountKind, _ int64) (*services.ValidationResult, error) {
				return &services.ValidationResult{Valid: false, Code: "INSUFFICIENT_FUNDS", Error: "Insufficient funds"}, nil
			},
		}
		handler := NewTransferHandler(trSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers/validate",
			`{"from_account_id":"`+testAccountID+`","amount":5000}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["valid"] != false {
			t.Errorf("expected valid=false, got %v", result["valid"])
		}
		if result["code"] != "INSUFFICIENT_FUNDS" {
			t.Errorf("expected INSUFFICIENT_FUNDS, got %v", result["code"])
		}
	})

	t.Run("returns 400 on zero amount", func(t *testing.T) {
		handler := NewTransferHandler(&mockTransferService{}, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers/validate", `{"from_account_id":"`+testAccountID+`","amount":0}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransferHandler_CreateTransfer(t *testing.T) {
	t.Run("returns 201 with legs", func(t *testing.T) {
		var captured services.TransferRequest
		trSvc := &mockTransferService{
			createTransferFn: func(req services.TransferRequest) (*models.Transfer, error) {
				captured = req
				return &models.Transfer{
					Base:          models.Base{ID: testTxnID},
					FromAccountID: req.FromAccountID,
					ToAccountID:   req.ToAccountID,
					Amount:        req.Amount,
					Fee:           req.Fee,
					Status:        models.TransferStatusCompleted,
				}, nil
			},
			getTransferLegsFn: func(_ string) ([]models.Transaction, error) {
				return []models.Transaction{
					{AccountID: testAccountID, Amount: -1000},
					{AccountID: testCardID, Amount: 1000},
				}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewTransferHandler(trSvc, audit)
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers",
			`{"from_account_id":"`+testAccountID+`","to_account_id":"`+testCardID+`","to_kind":"credit","amount":1000,"fee":25}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if len(result["legs"].([]interface{})) != 2 {
			t.Errorf("expected 2 legs, got %v", result["legs"])
		}
		transfer := result["transfer"].(map[string]interface{})
		if transfer["status"] != "completed" {
			t.Errorf("expected completed, got %v", transfer["status"])
		}
		if captured.ToKind != models.AccountKindCredit || captured.Fee != 25 {
			t.Errorf("expected credit destination with fee 25, got %s/%d", captured.ToKind, captured.Fee)
		}
		assertAudited(t, audit, "CREATE_TRANSFER")
	})

	t.Run("returns 201 with empty legs when legs fail to load", func(t *testing.T) {
		trSvc := &mockTransferService{
			createTransferFn: func(_ services.TransferRequest) (*models.Transfer, error) {
				return &models.Transfer{Base: models.Base{ID: testTxnID}}, nil
			},
			getTransferLegsFn: func(_ string) ([]models.Transaction, error) {
				return nil, errors.New("db gone")
			},
		}
		handler := NewTransferHandler(trSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers",
			`{"from_account_id":"`+testAccountID+`","to_account_id":"`+testOtherID+`","amount":10}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d", rec.Code)
		}
		if legs := parseJSON(t, rec)["legs"].([]interface{}); len(legs) != 0 {
			t.Errorf("expected no legs, got %d", len(legs))
		}
	})

	t.Run("maps engine errors", func(t *testing.T) {
		cases := []struct {
			err    error
			status int
			code   string
		}{
			{apperrors.ErrInsufficientFunds, http.StatusBadRequest, "INSUFFICIENT_FUNDS"},
			{apperrors.ErrExceedsCredit, http.StatusBadRequest, "EXCEEDS_AVAILABLE_CREDIT"},
			{apperrors.ErrSameAccountTransfer, http.StatusBadRequest, "SAME_ACCOUNT_TRANSFER"},
			{apperrors.ErrAccountInactive, http.StatusConflict, "ACCOUNT_INACTIVE"},
			{apperrors.ErrAccountNotFound, http.StatusNotFound, "ACCOUNT_NOT_FOUND"},
		}
		for _, tc := range cases {
			trSvc := &mockTransferService{
				createTransferFn: func(_ services.TransferRequest) (*models.Transfer, error) { return nil, tc.err },
			}
			handler := NewTransferHandler(trSvc, &mockAuditService{})
			r := setupTransferRouter(handler)

			rec := doRequest(r, "POST", "/transfers",
				`{"from_account_id":"`+testAccountID+`","to_account_id":"`+testOtherID+`","amount":10}`)

			if rec.Code != tc.status {
				t.Errorf("%s: expected %d, got %d", tc.code, tc.status, rec.Code)
			}
			assertErrorCode(t, parseJSON(t, rec), tc.code)
		}
	})

	t.Run("returns 400 on negative fee", func(t *testing.T) {
		handler := NewTransferHandler(&mockTransferService{}, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "POST", "/transfers",
			`{"from_account_id":"`+testAccountID+`","to_account_id":"`+testOtherID+`","amount":10,"fee":-1}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransferHandler_ListTransfers(t *testing.T) {
	t.Run("passes filter", func(t *testing.T) {
		var captured services.TransferFilter
		trSvc := &mockTransferService{
			listTransfersFn: func(_ pagination.PageRequest, filter services.TransferFilter) (*pagination.PageResponse[models.Transfer], error) {
				captured = filter
				resp := pagination.NewPageResponse([]models.Transfer{}, 1, 20, 0)
				return &resp, nil
			},
		}
		handler := NewTransferHandler(trSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "GET", "/transfers?account_id="+testAccountID+"&to_date=2024-12-31", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if captured.AccountID == nil || *captured.AccountID != testAccountID {
			t.Errorf("expected account filter, got %v", captured.AccountID)
		}
		if captured.ToDate == nil || captured.ToDate.Day() != 31 {
			t.Errorf("expected to_date, got %v", captured.ToDate)
		}
	})

	t.Run("returns 400 on bad date", func(t *testing.T) {
		handler := NewTransferHandler(&mockTransferService{}, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "GET", "/transfers?from_date=soon", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTransferHandler_GetAndDelete(t *testing.T) {
	t.Run("returns 404 for unknown transfer", func(t *testing.T) {
		trSvc := &mockTransferService{
			getTransferByIDFn: func(_ string) (*models.Transfer, error) { return nil, apperrors.ErrTransferNotFound },
		}
		handler := NewTransferHandler(trSvc, &mockAuditService{})
		r := setupTransferRouter(handler)

		rec := doRequest(r, "GET", "/transfers/"+testTxnID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "TRANSFER_NOT_FOUND")
	})

	t.Run("deletes a transfer", func(t *testing.T) {
		audit := &mockAuditService{}
		handler := NewTransferHandler(&mockTransferService{}, audit)
		r := setupTransferRouter(handler)

		rec := doRequest(r, "DELETE", "/transfers/"+testTxnID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		assertAudited(t, audit, "DELETE_TRANSFER")
	})
}
