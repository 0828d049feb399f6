package domain

import (
	"testing"
	"time"

	customError "github.com/segyhp/loanlink/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectLoan_RoleAndCounterparty(t *testing.T) {
	loan := newLoan(LoanStatusActive, lender)
	loan.PaidAmount = decimal.NewFromInt(600)
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	payments := []*Payment{
		{ID: 1, LoanID: loan.ID, Amount: decimal.NewFromInt(600), PaidAt: now, Method: "bank transfer"},
	}

	lenderView := ProjectLoan(loan, payments, "Lender@Example.com")
	borrowerView := ProjectLoan(loan, payments, borrower)

	assert.Equal(t, RoleLender, lenderView.Role)
	assert.Equal(t, borrower, lenderView.Counterparty)
	assert.Equal(t, RoleBorrower, borrowerView.Role)
	assert.Equal(t, lender, borrowerView.Counterparty)

	assert.Equal(t, lender, lenderView.Creator)
	assert.True(t, lenderView.Total.Equal(decimal.NewFromInt(1100)))
	assert.True(t, lenderView.Paid.Equal(decimal.NewFromInt(600)))
	assert.True(t, lenderView.Outstanding.Equal(decimal.NewFromInt(500)))
	require.Len(t, lenderView.History, 1)
	assert.Equal(t, now, lenderView.History[0].Date)
	assert.Equal(t, "bank transfer", lenderView.History[0].Method)
}

func TestProjectLoan_EmptyHistoryIsNotNil(t *testing.T) {
	v := ProjectLoan(newLoan(LoanStatusPending, ""), nil, lender)

	assert.NotNil(t, v.History)
	assert.Empty(t, v.History)
	assert.Empty(t, v.Creator)
}

func TestLoanTerms_DefaultsAndValidate(t *testing.T) {
	tests := []struct {
		name        string
		terms       LoanTerms
		expectError bool
	}{
		{
			name: "currency loan",
			terms: LoanTerms{
				Amount:         decimal.NewFromInt(1000),
				Rate:           decimal.NewFromInt(10),
				TotalRepayment: decimal.NewFromInt(1100),
			},
		},
		{
			name: "currency loan without amount",
			terms: LoanTerms{
				TotalRepayment: decimal.NewFromInt(1100),
			},
			expectError: true,
		},
		{
			name: "item loan",
			terms: LoanTerms{
				AssetType:      "Item",
				ItemName:       "Camera",
				TotalRepayment: decimal.NewFromInt(400),
			},
		},
		{
			name: "item loan without name",
			terms: LoanTerms{
				AssetType:      AssetTypeItem,
				TotalRepayment: decimal.NewFromInt(400),
			},
			expectError: true,
		},
		{
			name: "missing total",
			terms: LoanTerms{
				Amount: decimal.NewFromInt(1000),
			},
			expectError: true,
		},
		{
			name: "unknown asset type",
			terms: LoanTerms{
				AssetType:      "crypto",
				TotalRepayment: decimal.NewFromInt(1),
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.terms.ApplyDefaults()
			err := tt.terms.Validate()

			if tt.expectError {
				require.Error(t, err)
				assert.Equal(t, customError.KindValidation, customError.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultPaymentFrequency, tt.terms.PaymentFrequency)
		})
	}
}

func TestLoanTerms_ApplyToClearsForeignAssetFields(t *testing.T) {
	loan := newLoan(LoanStatusPending, lender)
	terms := LoanTerms{AssetType: AssetTypeItem, ItemName: "Drill", TotalRepayment: decimal.NewFromInt(50)}
	terms.ApplyDefaults()

	terms.ApplyTo(loan)

	assert.Equal(t, AssetTypeItem, loan.AssetType)
	assert.Equal(t, "Drill", loan.ItemName)
	assert.True(t, loan.Amount.IsZero())
	assert.True(t, loan.TotalRepayment.Equal(decimal.NewFromInt(50)))
}
