package repository

import (
	"context"

	"github.com/segyhp/loanlink/internal/domain"
)

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create inserts a new loan and sets loan.ID
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id int64) (*domain.Loan, error)

	// GetByIDForUpdate retrieves a loan and locks it for the rest of the
	// enclosing transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Loan, error)

	// Update writes every mutable column of a loan
	Update(ctx context.Context, loan *domain.Loan) error

	// Delete removes a loan row
	Delete(ctx context.Context, id int64) error

	// ListByParty returns loans where party is lender or borrower, newest first
	ListByParty(ctx context.Context, party string) ([]*domain.Loan, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create appends a payment record and sets payment.ID
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByLoanID retrieves all payments for a loan ordered by date
	GetByLoanID(ctx context.Context, loanID int64) ([]*domain.Payment, error)

	// GetByLoanIDs retrieves payments for several loans, grouped by loan ID
	GetByLoanIDs(ctx context.Context, loanIDs []int64) (map[int64][]*domain.Payment, error)

	// DeleteByLoanID removes every payment of a loan
	DeleteByLoanID(ctx context.Context, loanID int64) error
}

// Repos are repositories bound to one transaction.
type Repos struct {
	Loans    LoanRepository
	Payments PaymentRepository
}

// UnitOfWork runs functions inside a single store transaction.
// The function may be invoked more than once when the store is busy,
// so it must not have side effects outside the repositories it is given.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinLoanTx reads and locks the loan first, then passes it in
	WithinLoanTx(ctx context.Context, loanID int64, fn func(r Repos, l *domain.Loan) error) error
}
