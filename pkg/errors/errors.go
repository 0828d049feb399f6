package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound         = errors.New("loan not found")
	ErrSelfLoan             = errors.New("lender and borrower must be different parties")
	ErrInvalidPaymentAmount = errors.New("invalid payment amount")
	ErrInvalidRequest       = errors.New("invalid request")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrNotAParty            = errors.New("caller is not a party to this loan")
	ErrCreatorCannotAccept  = errors.New("creator cannot accept own loan request")
	ErrCreatorOnly          = errors.New("only the creator may perform this action")
	ErrInvalidTransition    = errors.New("transition not allowed from current status")
	ErrStoreBusy            = errors.New("store busy")
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindAuthorization
	KindNotFound
	KindState
	KindContention
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	case KindContention:
		return "contention"
	default:
		return "internal"
	}
}

// BusinessError represents a business logic error
type BusinessError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(kind Kind, code, message string, err error) *BusinessError {
	return &BusinessError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound         = "LOAN_NOT_FOUND"
	ErrCodeSelfLoan             = "SELF_LOAN"
	ErrCodeInvalidPaymentAmount = "INVALID_PAYMENT_AMOUNT"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
	ErrCodeUnauthenticated      = "UNAUTHENTICATED"
	ErrCodeNotAParty            = "NOT_A_PARTY"
	ErrCodeCreatorCannotAccept  = "CREATOR_CANNOT_ACCEPT"
	ErrCodeCreatorOnly          = "CREATOR_ONLY"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeStoreBusy            = "STORE_BUSY"
	ErrCodeDatabaseError        = "DATABASE_ERROR"
)

// KindOf reports the Kind of err, KindInternal when err carries none.
func KindOf(err error) Kind {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Kind
	}
	if errors.Is(err, ErrStoreBusy) {
		return KindContention
	}
	return KindInternal
}

// Wrap common errors with business context
func WrapLoanNotFound(loanID int64) *BusinessError {
	return NewBusinessError(
		KindNotFound,
		ErrCodeLoanNotFound,
		fmt.Sprintf("Loan with ID %d not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapSelfLoan() *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeSelfLoan,
		"You cannot create a loan with yourself",
		ErrSelfLoan,
	)
}

func WrapInvalidPaymentAmount(amount string) *BusinessError {
	return NewBusinessError(
		KindValidation,
		ErrCodeInvalidPaymentAmount,
		fmt.Sprintf("Invalid payment amount: %s", amount),
		ErrInvalidPaymentAmount,
	)
}

func WrapInvalidRequest(message string) *BusinessError {
	return NewBusinessError(KindValidation, ErrCodeInvalidRequest, message, ErrInvalidRequest)
}

func WrapUnauthenticated() *BusinessError {
	return NewBusinessError(KindUnauthenticated, ErrCodeUnauthenticated, "Unauthorized", ErrUnauthenticated)
}

func WrapNotAParty(loanID int64) *BusinessError {
	return NewBusinessError(
		KindAuthorization,
		ErrCodeNotAParty,
		fmt.Sprintf("Unauthorized for loan %d", loanID),
		ErrNotAParty,
	)
}

func WrapCreatorCannotAccept() *BusinessError {
	return NewBusinessError(
		KindAuthorization,
		ErrCodeCreatorCannotAccept,
		"You created this loan request. The other party must accept it.",
		ErrCreatorCannotAccept,
	)
}

func WrapCreatorOnly(action string) *BusinessError {
	return NewBusinessError(
		KindAuthorization,
		ErrCodeCreatorOnly,
		fmt.Sprintf("Only the creator can %s this loan", action),
		ErrCreatorOnly,
	)
}

func WrapInvalidTransition(action, status string) *BusinessError {
	return NewBusinessError(
		KindState,
		ErrCodeInvalidTransition,
		fmt.Sprintf("Cannot %s a loan with status %s", action, status),
		ErrInvalidTransition,
	)
}

func WrapStoreBusy(err error) *BusinessError {
	return NewBusinessError(
		KindContention,
		ErrCodeStoreBusy,
		"store is busy, please retry",
		errors.Join(ErrStoreBusy, err),
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		KindInternal,
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}
