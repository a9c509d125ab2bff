// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"finledger/internal/models"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterOn(v)
	}
}

// RegisterOn registers the custom validators on v.
func RegisterOn(v *validator.Validate) {
	_ = v.RegisterValidation("iso4217", validateISO4217)
	_ = v.RegisterValidation("account_kind", validateAccountKind)
	_ = v.RegisterValidation("account_type", validateAccountType)
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("investment_type", validateInvestmentType)
}

func validateISO4217(fl validator.FieldLevel) bool {
	return money.GetCurrency(strings.ToUpper(fl.Field().String())) != nil
}

func validateAccountKind(fl validator.FieldLevel) bool {
	return models.AccountKind(fl.Field().String()).Valid()
}

func validateAccountType(fl validator.FieldLevel) bool {
	switch models.AccountType(fl.Field().String()) {
	case models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCash, models.AccountTypeInvestment:
		return true
	}
	return false
}

// validateTransactionType accepts the types a caller may record directly.
// Transfer legs are written by the transfer engine only.
func validateTransactionType(fl validator.FieldLevel) bool {
	switch models.TransactionType(fl.Field().String()) {
	case models.TransactionTypeDeposit, models.TransactionTypeWithdrawal,
		models.TransactionTypePayment, models.TransactionTypeCharge, models.TransactionTypeRefund:
		return true
	}
	return false
}

func validateInvestmentType(fl validator.FieldLevel) bool {
	switch models.InvestmentType(fl.Field().String()) {
	case models.InvestmentTypeFixedTerm, models.InvestmentTypeSavings, models.InvestmentTypeFund,
		models.InvestmentTypeStock, models.InvestmentTypeOther:
		return true
	}
	return false
}
