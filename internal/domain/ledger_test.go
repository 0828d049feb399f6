package domain

import (
	"errors"
	"testing"

	customError "github.com/segyhp/loanlink/pkg/errors"
	"github.com/segyhp/loanlink/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPayment(t *testing.T) {
	tests := []struct {
		name           string
		status         string
		paid           decimal.Decimal
		total          decimal.Decimal
		amount         decimal.Decimal
		expectedPaid   decimal.Decimal
		expectedStatus string
		expectedErr    error
	}{
		{
			name:           "partial payment keeps loan active",
			status:         LoanStatusActive,
			paid:           decimal.Zero,
			total:          decimal.NewFromInt(1100),
			amount:         decimal.NewFromInt(600),
			expectedPaid:   decimal.NewFromInt(600),
			expectedStatus: LoanStatusActive,
		},
		{
			name:           "final payment completes loan",
			status:         LoanStatusActive,
			paid:           decimal.NewFromInt(600),
			total:          decimal.NewFromInt(1100),
			amount:         decimal.NewFromInt(500),
			expectedPaid:   decimal.NewFromInt(1100),
			expectedStatus: LoanStatusCompleted,
		},
		{
			name:           "epsilon tolerance completes loan",
			status:         LoanStatusActive,
			paid:           decimal.Zero,
			total:          decimal.NewFromInt(100),
			amount:         decimal.RequireFromString("99.995"),
			expectedPaid:   decimal.RequireFromString("99.995"),
			expectedStatus: LoanStatusCompleted,
		},
		{
			name:           "payment after completion stays completed",
			status:         LoanStatusCompleted,
			paid:           decimal.NewFromInt(100),
			total:          decimal.NewFromInt(100),
			amount:         decimal.NewFromInt(5),
			expectedPaid:   decimal.NewFromInt(105),
			expectedStatus: LoanStatusCompleted,
		},
		{
			name:        "zero amount rejected",
			status:      LoanStatusActive,
			total:       decimal.NewFromInt(100),
			amount:      decimal.Zero,
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
		{
			name:        "negative amount rejected",
			status:      LoanStatusActive,
			total:       decimal.NewFromInt(100),
			amount:      decimal.NewFromInt(-10),
			expectedErr: customError.ErrInvalidPaymentAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := &Loan{Status: tt.status, PaidAmount: tt.paid, TotalRepayment: tt.total}

			out, err := ApplyPayment(loan, tt.amount, utils.DefaultEpsilon)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedErr))
				assert.Equal(t, customError.KindValidation, customError.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, out.PaidAmount.Equal(tt.expectedPaid), "expected %s, got %s", tt.expectedPaid, out.PaidAmount)
			assert.Equal(t, tt.expectedStatus, out.Status)
			assert.True(t, loan.PaidAmount.Equal(tt.paid), "loan must not be modified")
		})
	}
}

func TestApplyPayment_CompletesExactlyAtFirstCrossing(t *testing.T) {
	loan := &Loan{Status: LoanStatusActive, PaidAmount: decimal.Zero, TotalRepayment: decimal.NewFromInt(100)}
	amounts := []string{"33.33", "33.33", "33.33", "0.01", "10"}
	sum := decimal.Zero
	completions := 0

	for i, a := range amounts {
		amount := decimal.RequireFromString(a)
		sum = sum.Add(amount)

		out, err := ApplyPayment(loan, amount, utils.DefaultEpsilon)
		require.NoError(t, err)

		assert.True(t, out.PaidAmount.Equal(sum))
		if out.Completed {
			completions++
			// 99.99 is the first sum within epsilon of 100
			assert.Equal(t, 2, i)
		}
		loan.PaidAmount, loan.Status = out.PaidAmount, out.Status
	}

	assert.Equal(t, 1, completions)
	assert.Equal(t, LoanStatusCompleted, loan.Status)
	assert.True(t, loan.PaidAmount.Equal(decimal.RequireFromString("110")))
}
