package handler

import (
	"context"
	"io"

	"github.com/segyhp/loanlink/internal/domain"
	"github.com/segyhp/loanlink/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockLoanService struct {
	mock.Mock
}

func (m *MockLoanService) mutation(args mock.Arguments) (*service.MutationResult, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.MutationResult), args.Error(1)
}

func (m *MockLoanService) CreateLoan(ctx context.Context, actor string, request *domain.CreateLoanRequest) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, actor, request))
}

func (m *MockLoanService) UpdateLoan(ctx context.Context, actor string, loanID int64, request *domain.UpdateLoanRequest) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, actor, loanID, request))
}

func (m *MockLoanService) AcceptLoan(ctx context.Context, actor string, loanID int64) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, actor, loanID))
}

func (m *MockLoanService) RejectLoan(ctx context.Context, actor string, loanID int64) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, actor, loanID))
}

func (m *MockLoanService) CancelLoan(ctx context.Context, actor string, loanID int64) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, actor, loanID))
}

func (m *MockLoanService) DeleteLoan(ctx context.Context, actor string, loanID int64) (*service.MutationResult, error) {
	return m.mutation(m.Called(ctx, actor, loanID))
}

func (m *MockLoanService) RecordPayment(ctx context.Context, actor string, loanID int64, request *domain.RecordPaymentRequest) (*service.PaymentResult, error) {
	args := m.Called(ctx, actor, loanID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.PaymentResult), args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, actor string) ([]domain.LoanView, error) {
	args := m.Called(ctx, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.LoanView), args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, actor string, loanID int64) (*domain.LoanView, error) {
	args := m.Called(ctx, actor, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanView), args.Error(1)
}

type fakeProofStore struct {
	filename string
	content  string
	err      error
}

func (f *fakeProofStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.filename, f.content = filename, string(b)
	return "ref-123.pdf", nil
}
