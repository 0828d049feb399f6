package domain

import (
	"database/sql"
	"errors"
	"testing"

	customError "github.com/segyhp/loanlink/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	lender   = "lender@example.com"
	borrower = "borrower@example.com"
	outsider = "mallory@example.com"
)

func newLoan(status string, creator string) *Loan {
	l := &Loan{
		ID:             7,
		Lender:         lender,
		Borrower:       borrower,
		AssetType:      AssetTypeCurrency,
		Amount:         decimal.NewFromInt(1000),
		TotalRepayment: decimal.NewFromInt(1100),
		Status:         status,
	}
	if creator != "" {
		l.Creator = sql.NullString{String: creator, Valid: true}
	}
	return l
}

func TestTransition(t *testing.T) {
	tests := []struct {
		name         string
		status       string
		creator      string
		action       Action
		actor        string
		expectedTo   string
		expectDelete bool
		expectedErr  error
		expectedKind customError.Kind
	}{
		// accept
		{name: "counterparty accepts pending", status: LoanStatusPending, creator: lender, action: ActionAccept, actor: borrower, expectedTo: LoanStatusActive},
		{name: "creator cannot accept own request", status: LoanStatusPending, creator: lender, action: ActionAccept, actor: lender, expectedErr: customError.ErrCreatorCannotAccept, expectedKind: customError.KindAuthorization},
		{name: "creator check is case-insensitive", status: LoanStatusPending, creator: "LENDER@example.com", action: ActionAccept, actor: lender, expectedErr: customError.ErrCreatorCannotAccept, expectedKind: customError.KindAuthorization},
		{name: "legacy loan accepted by lender", status: LoanStatusPending, action: ActionAccept, actor: lender, expectedTo: LoanStatusActive},
		{name: "legacy loan accepted by borrower", status: LoanStatusPending, action: ActionAccept, actor: borrower, expectedTo: LoanStatusActive},
		{name: "accept active loan", status: LoanStatusActive, creator: lender, action: ActionAccept, actor: borrower, expectedErr: customError.ErrInvalidTransition, expectedKind: customError.KindState},
		{name: "outsider cannot accept", status: LoanStatusPending, creator: lender, action: ActionAccept, actor: outsider, expectedErr: customError.ErrNotAParty, expectedKind: customError.KindAuthorization},

		// reject
		{name: "counterparty rejects", status: LoanStatusPending, creator: lender, action: ActionReject, actor: borrower, expectedTo: LoanStatusRejected},
		{name: "creator rejects", status: LoanStatusPending, creator: lender, action: ActionReject, actor: lender, expectedTo: LoanStatusRejected},
		{name: "reject active loan", status: LoanStatusActive, creator: lender, action: ActionReject, actor: borrower, expectedErr: customError.ErrInvalidTransition, expectedKind: customError.KindState},
		{name: "outsider cannot reject", status: LoanStatusPending, creator: lender, action: ActionReject, actor: outsider, expectedErr: customError.ErrNotAParty, expectedKind: customError.KindAuthorization},

		// edit
		{name: "creator edits pending", status: LoanStatusPending, creator: borrower, action: ActionEdit, actor: borrower, expectedTo: LoanStatusPending},
		{name: "non-creator cannot edit", status: LoanStatusPending, creator: borrower, action: ActionEdit, actor: lender, expectedErr: customError.ErrCreatorOnly, expectedKind: customError.KindAuthorization},
		{name: "edit active loan", status: LoanStatusActive, creator: borrower, action: ActionEdit, actor: borrower, expectedErr: customError.ErrInvalidTransition, expectedKind: customError.KindState},
		{name: "nobody edits legacy loan", status: LoanStatusPending, action: ActionEdit, actor: lender, expectedErr: customError.ErrCreatorOnly, expectedKind: customError.KindAuthorization},

		// cancel
		{name: "creator cancels pending", status: LoanStatusPending, creator: lender, action: ActionCancel, actor: lender, expectedTo: LoanStatusCancelled},
		{name: "non-creator cannot cancel", status: LoanStatusPending, creator: lender, action: ActionCancel, actor: borrower, expectedErr: customError.ErrCreatorOnly, expectedKind: customError.KindAuthorization},
		{name: "cancel active loan", status: LoanStatusActive, creator: lender, action: ActionCancel, actor: lender, expectedErr: customError.ErrInvalidTransition, expectedKind: customError.KindState},

		// delete
		{name: "creator deletes pending", status: LoanStatusPending, creator: lender, action: ActionDelete, actor: lender, expectDelete: true},
		{name: "non-creator cannot delete pending", status: LoanStatusPending, creator: lender, action: ActionDelete, actor: borrower, expectedErr: customError.ErrCreatorOnly, expectedKind: customError.KindAuthorization},
		{name: "either party clears rejected", status: LoanStatusRejected, creator: lender, action: ActionDelete, actor: borrower, expectDelete: true},
		{name: "either party clears cancelled", status: LoanStatusCancelled, creator: lender, action: ActionDelete, actor: lender, expectDelete: true},
		{name: "delete active loan", status: LoanStatusActive, creator: lender, action: ActionDelete, actor: lender, expectedErr: customError.ErrInvalidTransition, expectedKind: customError.KindState},
		{name: "delete completed loan", status: LoanStatusCompleted, creator: lender, action: ActionDelete, actor: borrower, expectedErr: customError.ErrInvalidTransition, expectedKind: customError.KindState},
		{name: "outsider cannot clear rejected", status: LoanStatusRejected, creator: lender, action: ActionDelete, actor: outsider, expectedErr: customError.ErrNotAParty, expectedKind: customError.KindAuthorization},

		// pay
		{name: "borrower pays active", status: LoanStatusActive, creator: lender, action: ActionPay, actor: borrower, expectedTo: LoanStatusActive},
		{name: "lender records payment", status: LoanStatusActive, creator: lender, action: ActionPay, actor: lender, expectedTo: LoanStatusActive},
		{name: "payment after completion is recordable", status: LoanStatusCompleted, creator: lender, action: ActionPay, actor: borrower, expectedTo: LoanStatusCompleted},
		{name: "pay pending loan", status: LoanStatusPending, creator: lender, action: ActionPay, actor: borrower, expectedErr: customError.ErrInvalidTransition, expectedKind: customError.KindState},
		{name: "pay rejected loan", status: LoanStatusRejected, creator: lender, action: ActionPay, actor: borrower, expectedErr: customError.ErrInvalidTransition, expectedKind: customError.KindState},
		{name: "outsider cannot pay", status: LoanStatusActive, creator: lender, action: ActionPay, actor: outsider, expectedErr: customError.ErrNotAParty, expectedKind: customError.KindAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loan := newLoan(tt.status, tt.creator)

			out, err := Transition(loan, tt.action, tt.actor)

			if tt.expectedErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedErr), "got %v", err)
				assert.Equal(t, tt.expectedKind, customError.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, out.From)
			assert.Equal(t, tt.expectDelete, out.Delete)
			if !tt.expectDelete {
				assert.Equal(t, tt.expectedTo, out.To)
			}
			// the guard never mutates the loan
			assert.Equal(t, tt.status, loan.Status)
		})
	}
}

func TestTransition_CreatorAcceptMessageNamesRule(t *testing.T) {
	_, err := Transition(newLoan(LoanStatusPending, lender), ActionAccept, lender)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "other party must accept")
}

func TestTransition_UnknownAction(t *testing.T) {
	_, err := Transition(newLoan(LoanStatusPending, lender), Action("renegotiate"), lender)

	assert.Equal(t, customError.KindValidation, customError.KindOf(err))
}
