package mocks

import (
	"context"

	"github.com/segyhp/loanlink/internal/domain"
	"github.com/segyhp/loanlink/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockLoanRepository) ListByParty(ctx context.Context, party string) ([]*domain.Loan, error) {
	args := m.Called(ctx, party)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByLoanID(ctx context.Context, loanID int64) ([]*domain.Payment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByLoanIDs(ctx context.Context, loanIDs []int64) (map[int64][]*domain.Payment, error) {
	args := m.Called(ctx, loanIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64][]*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) DeleteByLoanID(ctx context.Context, loanID int64) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}

// MockUnitOfWork runs the transaction function directly against the mock
// repositories. An error set on the expectation is returned without running fn.
type MockUnitOfWork struct {
	mock.Mock
	Loans    *MockLoanRepository
	Payments *MockPaymentRepository
}

func (m *MockUnitOfWork) WithinTx(ctx context.Context, fn func(r repository.Repos) error) error {
	args := m.Called(ctx)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(m.repos())
}

func (m *MockUnitOfWork) WithinLoanTx(ctx context.Context, loanID int64, fn func(r repository.Repos, l *domain.Loan) error) error {
	args := m.Called(ctx, loanID)
	if err := args.Error(0); err != nil {
		return err
	}
	l, err := m.Loans.GetByIDForUpdate(ctx, loanID)
	if err != nil {
		return err
	}
	return fn(m.repos(), l)
}

func (m *MockUnitOfWork) repos() repository.Repos {
	return repository.Repos{Loans: m.Loans, Payments: m.Payments}
}

// NewMockUnitOfWork creates a unit of work over fresh repository mocks
func NewMockUnitOfWork() *MockUnitOfWork {
	return &MockUnitOfWork{
		Loans:    &MockLoanRepository{},
		Payments: &MockPaymentRepository{},
	}
}
