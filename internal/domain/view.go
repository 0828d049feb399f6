package domain

import (
	"time"

	"github.com/segyhp/loanlink/pkg/utils"

	"github.com/shopspring/decimal"
)

// PaymentView is the external shape of a payment.
type PaymentView struct {
	ID             int64           `json:"id"`
	LoanID         int64           `json:"loanId"`
	Amount         decimal.Decimal `json:"amount"`
	Date           time.Time       `json:"date"`
	Method         string          `json:"method,omitempty"`
	ProofReference string          `json:"proofReference,omitempty"`
}

// LoanView is the external shape of a loan, relative to one viewer.
type LoanView struct {
	ID               int64  `json:"id"`
	Lender           string `json:"lenderEmail"`
	Borrower         string `json:"borrowerEmail"`
	Creator          string `json:"creatorEmail,omitempty"`
	CounterpartyName string `json:"counterpartyName,omitempty"`

	AssetType    string          `json:"assetType"`
	Amount       decimal.Decimal `json:"amount"`
	Rate         decimal.Decimal `json:"rate"`
	InterestType string          `json:"interestType,omitempty"`

	ItemName        string `json:"itemName,omitempty"`
	ItemDescription string `json:"itemDescription,omitempty"`
	ItemCondition   string `json:"itemCondition,omitempty"`

	Months             int             `json:"months"`
	PaymentFrequency   string          `json:"paymentFrequency"`
	Monthly            decimal.Decimal `json:"monthly"`
	Total              decimal.Decimal `json:"total"`
	Paid               decimal.Decimal `json:"paid"`
	Outstanding        decimal.Decimal `json:"outstanding"`
	LoanDate           *time.Time      `json:"loanDate,omitempty"`
	RepaymentStartDate *time.Time      `json:"repaymentStartDate,omitempty"`

	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`

	Role         string        `json:"role"`
	Counterparty string        `json:"counterparty"`
	History      []PaymentView `json:"history"`
}

// ProjectLoan maps a stored loan and its payments to the view seen by viewer.
// payments must already be ordered by date.
func ProjectLoan(l *Loan, payments []*Payment, viewer string) LoanView {
	v := LoanView{
		ID:                 l.ID,
		Lender:             l.Lender,
		Borrower:           l.Borrower,
		CounterpartyName:   l.CounterpartyName,
		AssetType:          l.AssetType,
		Amount:             l.Amount,
		Rate:               l.Rate,
		InterestType:       l.InterestType,
		ItemName:           l.ItemName,
		ItemDescription:    l.ItemDescription,
		ItemCondition:      l.ItemCondition,
		Months:             l.Months,
		PaymentFrequency:   l.PaymentFrequency,
		Monthly:            l.MonthlyPayment,
		Total:              l.TotalRepayment,
		Paid:               l.PaidAmount,
		Outstanding:        utils.Outstanding(l.TotalRepayment, l.PaidAmount),
		LoanDate:           l.LoanDate,
		RepaymentStartDate: l.RepaymentStartDate,
		Status:             l.Status,
		CreatedAt:          l.CreatedAt,
		Role:               l.RoleOf(viewer),
		Counterparty:       l.Counterparty(viewer),
		History:            make([]PaymentView, 0, len(payments)),
	}
	if l.Creator.Valid {
		v.Creator = l.Creator.String
	}
	for _, p := range payments {
		v.History = append(v.History, ProjectPayment(p))
	}
	return v
}

func ProjectPayment(p *Payment) PaymentView {
	return PaymentView{
		ID:             p.ID,
		LoanID:         p.LoanID,
		Amount:         p.Amount,
		Date:           p.PaidAt,
		Method:         p.Method,
		ProofReference: p.ProofReference,
	}
}
