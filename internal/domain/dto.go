package domain

import (
	"strings"
	"time"

	customError "github.com/segyhp/loanlink/pkg/errors"

	"github.com/shopspring/decimal"
)

// DTOs for requests

// LoanTerms are the negotiable fields of a loan, shared by create and edit.
type LoanTerms struct {
	CounterpartyName string `json:"counterpartyName" validate:"max=120"`

	AssetType    string          `json:"assetType" validate:"omitempty,oneof=currency item"`
	Amount       decimal.Decimal `json:"amount" validate:"gte=0"`
	Rate         decimal.Decimal `json:"rate" validate:"gte=0"`
	InterestType string          `json:"interestType" validate:"max=32"`

	ItemName        string `json:"itemName" validate:"max=120"`
	ItemDescription string `json:"itemDescription" validate:"max=2000"`
	ItemCondition   string `json:"itemCondition" validate:"max=64"`

	Months             int             `json:"months" validate:"gte=0,lte=600"`
	PaymentFrequency   string          `json:"paymentFrequency" validate:"max=32"`
	MonthlyPayment     decimal.Decimal `json:"monthly" validate:"gte=0"`
	TotalRepayment     decimal.Decimal `json:"total" validate:"gt=0"`
	LoanDate           *time.Time      `json:"loanDate"`
	RepaymentStartDate *time.Time      `json:"repaymentStartDate"`
}

// ApplyDefaults fills optional fields. It is the only place defaults live.
func (t *LoanTerms) ApplyDefaults() {
	t.AssetType = strings.ToLower(strings.TrimSpace(t.AssetType))
	if t.AssetType == "" {
		t.AssetType = AssetTypeCurrency
	}
	t.PaymentFrequency = strings.ToLower(strings.TrimSpace(t.PaymentFrequency))
	if t.PaymentFrequency == "" {
		t.PaymentFrequency = DefaultPaymentFrequency
	}
	t.CounterpartyName = strings.TrimSpace(t.CounterpartyName)
	t.ItemName = strings.TrimSpace(t.ItemName)
}

// Validate checks the terms after defaults have been applied.
func (t *LoanTerms) Validate() error {
	switch t.AssetType {
	case AssetTypeCurrency:
		if !t.Amount.IsPositive() {
			return customError.WrapInvalidRequest("amount must be greater than 0 for currency loans")
		}
		if t.Rate.IsNegative() {
			return customError.WrapInvalidRequest("rate must not be negative")
		}
	case AssetTypeItem:
		if t.ItemName == "" {
			return customError.WrapInvalidRequest("itemName is required for item loans")
		}
	default:
		return customError.WrapInvalidRequest("assetType must be currency or item")
	}
	if !t.TotalRepayment.IsPositive() {
		return customError.WrapInvalidRequest("total must be greater than 0")
	}
	if t.MonthlyPayment.IsNegative() {
		return customError.WrapInvalidRequest("monthly must not be negative")
	}
	if t.Months < 0 {
		return customError.WrapInvalidRequest("months must not be negative")
	}
	if t.LoanDate != nil && t.RepaymentStartDate != nil && t.RepaymentStartDate.Before(*t.LoanDate) {
		return customError.WrapInvalidRequest("repaymentStartDate must not be before loanDate")
	}
	return nil
}

// ApplyTo copies the terms onto loan. Currency and item fields are
// cleared when they do not belong to the asset type.
func (t *LoanTerms) ApplyTo(loan *Loan) {
	loan.CounterpartyName = t.CounterpartyName
	loan.AssetType = t.AssetType
	loan.Months = t.Months
	loan.PaymentFrequency = t.PaymentFrequency
	loan.MonthlyPayment = t.MonthlyPayment
	loan.TotalRepayment = t.TotalRepayment
	loan.LoanDate = utcPtr(t.LoanDate)
	loan.RepaymentStartDate = utcPtr(t.RepaymentStartDate)

	if t.AssetType == AssetTypeItem {
		loan.Amount, loan.Rate, loan.InterestType = decimal.Zero, decimal.Zero, ""
		loan.ItemName = t.ItemName
		loan.ItemDescription = t.ItemDescription
		loan.ItemCondition = t.ItemCondition
		return
	}
	loan.Amount = t.Amount
	loan.Rate = t.Rate
	loan.InterestType = t.InterestType
	loan.ItemName, loan.ItemDescription, loan.ItemCondition = "", "", ""
}

type CreateLoanRequest struct {
	// Role is the creator's own role on the loan.
	Role              string `json:"role" validate:"required,oneof=lender borrower"`
	CounterpartyEmail string `json:"counterpartyEmail" validate:"required,email"`
	LoanTerms
}

type UpdateLoanRequest struct {
	LoanTerms
}

type RecordPaymentRequest struct {
	Amount         decimal.Decimal `json:"amount" validate:"gt=0"`
	Date           *time.Time      `json:"date"`
	Method         string          `json:"method" validate:"max=64"`
	ProofReference string          `json:"proofReference" validate:"max=255"`
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
