package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an append-only repayment entry owned by a loan.
type Payment struct {
	ID             int64           `db:"id"`
	LoanID         int64           `db:"loan_id"`
	Amount         decimal.Decimal `db:"amount"`
	PaidAt         time.Time       `db:"paid_at"`
	Method         string          `db:"method"`
	ProofReference string          `db:"proof_reference"`
	CreatedAt      time.Time       `db:"created_at"`
}
