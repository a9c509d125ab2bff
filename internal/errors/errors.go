// Package errors provides the typed error values returned by the ledger services.
// Business-rule outcomes (insufficient funds, missing account, ...) are AppErrors
// with a stable code that callers can branch on; infrastructure failures are
// wrapped in ErrInternalServer so details never leak to API clients.
package errors

import (
	"errors"
	"net/http"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is reports whether target is an AppError with the same code, so that
// errors.Is(err, ErrAccountNotFound) matches copies made by Wrap/WithMessage.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// IsBusinessError reports whether err is an AppError that describes a rule
// violation rather than an infrastructure failure.
func IsBusinessError(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code != ErrInternalServer.Code
}

// Authentication errors.
var (
	ErrUnauthorized = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrRateLimited  = &AppError{Code: "RATE_LIMITED", Message: "Too many requests, try again later", StatusCode: http.StatusTooManyRequests}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// Account errors.
var (
	ErrAccountNotFound    = &AppError{Code: "ACCOUNT_NOT_FOUND", Message: "account not found", StatusCode: http.StatusNotFound}
	ErrCreditCardNotFound = &AppError{Code: "CREDIT_CARD_NOT_FOUND", Message: "credit card not found", StatusCode: http.StatusNotFound}
	ErrAccountInactive    = &AppError{Code: "ACCOUNT_INACTIVE", Message: "account is inactive", StatusCode: http.StatusConflict}
	ErrInvalidCurrency    = &AppError{Code: "INVALID_CURRENCY", Message: "Unsupported currency code", StatusCode: http.StatusBadRequest}
)

// Ledger errors.
var (
	ErrTransactionNotFound    = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrInvalidTransactionType = &AppError{Code: "INVALID_TRANSACTION_TYPE", Message: "Unsupported transaction type", StatusCode: http.StatusBadRequest}
	ErrInsufficientFunds      = &AppError{Code: "INSUFFICIENT_FUNDS", Message: "Insufficient funds", StatusCode: http.StatusBadRequest}
	ErrExceedsCredit          = &AppError{Code: "EXCEEDS_AVAILABLE_CREDIT", Message: "Exceeds available credit", StatusCode: http.StatusBadRequest}
	ErrTransferLeg            = &AppError{Code: "TRANSFER_LEG", Message: "Transaction belongs to a transfer; delete the transfer instead", StatusCode: http.StatusConflict}
)

// Transfer errors.
var (
	ErrTransferNotFound    = &AppError{Code: "TRANSFER_NOT_FOUND", Message: "Transfer not found", StatusCode: http.StatusNotFound}
	ErrSameAccountTransfer = &AppError{Code: "SAME_ACCOUNT_TRANSFER", Message: "Cannot transfer to the same account", StatusCode: http.StatusBadRequest}
)

// Investment errors.
var (
	ErrInvestmentNotFound          = &AppError{Code: "INVESTMENT_NOT_FOUND", Message: "Investment not found", StatusCode: http.StatusNotFound}
	ErrInsufficientInvestmentFunds = &AppError{Code: "INSUFFICIENT_INVESTMENT_FUNDS", Message: "Insufficient funds in investment", StatusCode: http.StatusBadRequest}
	ErrContributionNotFound        = &AppError{Code: "CONTRIBUTION_NOT_FOUND", Message: "Contribution not found", StatusCode: http.StatusNotFound}
	ErrWithdrawalNotFound          = &AppError{Code: "WITHDRAWAL_NOT_FOUND", Message: "Withdrawal not found", StatusCode: http.StatusNotFound}
)

// ErrInvestmentLinked is returned when a ledger transaction created by an
// investment movement is edited or deleted directly.
var ErrInvestmentLinked = &AppError{Code: "INVESTMENT_LINKED", Message: "Transaction belongs to an investment movement; delete the movement instead", StatusCode: http.StatusConflict}
