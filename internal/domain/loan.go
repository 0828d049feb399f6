package domain

import (
	"database/sql"
	"time"

	"github.com/segyhp/loanlink/pkg/utils"
	"github.com/shopspring/decimal"
)

const (
	LoanStatusPending   = "pending"
	LoanStatusActive    = "active"
	LoanStatusCompleted = "completed"
	LoanStatusRejected  = "rejected"
	LoanStatusCancelled = "cancelled"
)

const (
	AssetTypeCurrency = "currency"
	AssetTypeItem     = "item"
)

const (
	RoleLender   = "lender"
	RoleBorrower = "borrower"
)

const DefaultPaymentFrequency = "monthly"

// Loan is the stored shape of a loan record.
type Loan struct {
	ID               int64          `db:"id"`
	Lender           string         `db:"lender"`
	Borrower         string         `db:"borrower"`
	Creator          sql.NullString `db:"creator"`
	CounterpartyName string         `db:"counterparty_name"`

	AssetType    string          `db:"asset_type"`
	Amount       decimal.Decimal `db:"amount"`
	Rate         decimal.Decimal `db:"rate"`
	InterestType string          `db:"interest_type"`

	ItemName        string `db:"item_name"`
	ItemDescription string `db:"item_description"`
	ItemCondition   string `db:"item_condition"`

	Months             int             `db:"months"`
	PaymentFrequency   string          `db:"payment_frequency"`
	MonthlyPayment     decimal.Decimal `db:"monthly_payment"`
	TotalRepayment     decimal.Decimal `db:"total_repayment"`
	LoanDate           *time.Time      `db:"loan_date"`
	RepaymentStartDate *time.Time      `db:"repayment_start_date"`

	PaidAmount decimal.Decimal `db:"paid_amount"`
	Status     string          `db:"status"`
	CreatedAt  time.Time       `db:"created_at"`
	UpdatedAt  time.Time       `db:"updated_at"`
}

// IsParty reports whether id is the lender or the borrower.
func (l *Loan) IsParty(id string) bool {
	return utils.SameParty(id, l.Lender) || utils.SameParty(id, l.Borrower)
}

// IsCreator reports whether id created the loan. Legacy rows without a
// creator have no creator at all.
func (l *Loan) IsCreator(id string) bool {
	return l.Creator.Valid && utils.SameParty(id, l.Creator.String)
}

// RoleOf returns the role id plays on this loan, or "" for outsiders.
func (l *Loan) RoleOf(id string) string {
	switch {
	case utils.SameParty(id, l.Lender):
		return RoleLender
	case utils.SameParty(id, l.Borrower):
		return RoleBorrower
	default:
		return ""
	}
}

// Counterparty returns the other party relative to id.
func (l *Loan) Counterparty(id string) string {
	if utils.SameParty(id, l.Lender) {
		return l.Borrower
	}
	return l.Lender
}
