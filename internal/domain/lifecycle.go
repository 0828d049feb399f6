package domain

import (
	customError "github.com/segyhp/loanlink/pkg/errors"
)

// Action is a lifecycle operation requested by one of the parties.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
	ActionEdit   Action = "edit"
	ActionCancel Action = "cancel"
	ActionDelete Action = "delete"
	ActionPay    Action = "pay"
)

// Outcome is the result of a legal transition. Delete means the record
// must be removed together with its payments.
type Outcome struct {
	From   string
	To     string
	Delete bool
}

// Transition decides whether actor may apply action to loan and what the
// resulting status is. It only inspects the loan row and the actor.
//
// For ActionPay the returned status is the current one; the payment ledger
// decides completion.
func Transition(loan *Loan, action Action, actor string) (Outcome, error) {
	out := Outcome{From: loan.Status, To: loan.Status}

	if !loan.IsParty(actor) {
		return out, customError.WrapNotAParty(loan.ID)
	}

	switch action {
	case ActionAccept:
		if loan.Status != LoanStatusPending {
			return out, customError.WrapInvalidTransition(string(action), loan.Status)
		}
		// Rows created before the creator column existed carry no creator;
		// either party may accept those.
		legacyAnyPartyMayAccept := !loan.Creator.Valid || loan.Creator.String == ""
		if !legacyAnyPartyMayAccept && loan.IsCreator(actor) {
			return out, customError.WrapCreatorCannotAccept()
		}
		out.To = LoanStatusActive

	case ActionReject:
		if loan.Status != LoanStatusPending {
			return out, customError.WrapInvalidTransition(string(action), loan.Status)
		}
		out.To = LoanStatusRejected

	case ActionEdit:
		if loan.Status != LoanStatusPending {
			return out, customError.WrapInvalidTransition(string(action), loan.Status)
		}
		if !loan.IsCreator(actor) {
			return out, customError.WrapCreatorOnly(string(action))
		}

	case ActionCancel:
		if loan.Status != LoanStatusPending {
			return out, customError.WrapInvalidTransition(string(action), loan.Status)
		}
		if !loan.IsCreator(actor) {
			return out, customError.WrapCreatorOnly(string(action))
		}
		out.To = LoanStatusCancelled

	case ActionDelete:
		switch loan.Status {
		case LoanStatusPending:
			if !loan.IsCreator(actor) {
				return out, customError.WrapCreatorOnly(string(action))
			}
		case LoanStatusRejected, LoanStatusCancelled:
		default:
			return out, customError.WrapInvalidTransition(string(action), loan.Status)
		}
		out.To = ""
		out.Delete = true

	case ActionPay:
		if loan.Status != LoanStatusActive && loan.Status != LoanStatusCompleted {
			return out, customError.WrapInvalidTransition(string(action), loan.Status)
		}

	default:
		return out, customError.WrapInvalidRequest("unknown action " + string(action))
	}

	return out, nil
}
