package domain

import (
	customError "github.com/segyhp/loanlink/pkg/errors"
	"github.com/segyhp/loanlink/pkg/utils"

	"github.com/shopspring/decimal"
)

// PaymentOutcome is the loan progress after applying one payment.
type PaymentOutcome struct {
	PaidAmount decimal.Decimal
	Status     string
	Completed  bool // true only on the payment that crossed the threshold
}

// ApplyPayment computes the effect of paying amount against loan.
// The loan is not modified. epsilon is the completion tolerance.
func ApplyPayment(loan *Loan, amount, epsilon decimal.Decimal) (PaymentOutcome, error) {
	if !amount.IsPositive() {
		return PaymentOutcome{}, customError.WrapInvalidPaymentAmount(amount.String())
	}

	out := PaymentOutcome{
		PaidAmount: loan.PaidAmount.Add(amount),
		Status:     loan.Status,
	}
	if loan.Status == LoanStatusActive && utils.ReachesTotal(out.PaidAmount, loan.TotalRepayment, epsilon) {
		out.Status = LoanStatusCompleted
		out.Completed = true
	}
	return out, nil
}
