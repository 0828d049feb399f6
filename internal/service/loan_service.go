package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/loanlink/internal/domain"
	"github.com/segyhp/loanlink/internal/repository"
	customError "github.com/segyhp/loanlink/pkg/errors"
	"github.com/segyhp/loanlink/pkg/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Notifier delivers a mutation snapshot to the other party. It reports
// failures through the returned Delivery and never returns an error.
type Notifier interface {
	Notify(ctx context.Context, recipient string, n domain.Notification) domain.Delivery
}

// MutationResult is returned by every loan mutation. Loan is nil when the
// loan was deleted.
type MutationResult struct {
	Loan    *domain.LoanView `json:"loan,omitempty"`
	Deleted bool             `json:"deleted,omitempty"`
	Warning string           `json:"-"`
}

type PaymentResult struct {
	NewPaidAmount decimal.Decimal    `json:"newPaidAmount"`
	Status        string             `json:"status"`
	Payment       domain.PaymentView `json:"payment"`
	Warning       string             `json:"-"`
}

type LoanService struct {
	LoanRepo    repository.LoanRepository
	PaymentRepo repository.PaymentRepository
	uow         repository.UnitOfWork
	notifier    Notifier
	log         *logrus.Logger
	epsilon     decimal.Decimal
	now         func() time.Time
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	paymentRepo repository.PaymentRepository,
	uow repository.UnitOfWork,
	notifier Notifier,
	log *logrus.Logger,
	epsilon decimal.Decimal,
) *LoanService {
	if !epsilon.IsPositive() {
		epsilon = utils.DefaultEpsilon
	}
	return &LoanService{
		LoanRepo:    loanRepo,
		PaymentRepo: paymentRepo,
		uow:         uow,
		notifier:    notifier,
		log:         log,
		epsilon:     epsilon,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateLoan records a pending loan request made by actor.
func (s *LoanService) CreateLoan(ctx context.Context, actor string, request *domain.CreateLoanRequest) (*MutationResult, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}

	request.ApplyDefaults()
	if err := request.Validate(); err != nil {
		return nil, err
	}
	if request.Role != domain.RoleLender && request.Role != domain.RoleBorrower {
		return nil, customError.WrapInvalidRequest("role must be lender or borrower")
	}
	counterparty := utils.NormalizeParty(request.CounterpartyEmail)
	if counterparty == "" {
		return nil, customError.WrapInvalidRequest("counterpartyEmail is required")
	}
	if utils.SameParty(actor, counterparty) {
		return nil, customError.WrapSelfLoan()
	}

	now := s.now()
	loan := &domain.Loan{
		Creator:    sql.NullString{String: actor, Valid: true},
		PaidAmount: decimal.Zero,
		Status:     domain.LoanStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if request.Role == domain.RoleLender {
		loan.Lender, loan.Borrower = actor, counterparty
	} else {
		loan.Lender, loan.Borrower = counterparty, actor
	}
	request.ApplyTo(loan)

	err = s.uow.WithinTx(ctx, func(r repository.Repos) error {
		return r.Loans.Create(ctx, loan)
	})
	if err != nil {
		return nil, s.storeError("create loan", err)
	}

	s.log.WithFields(logrus.Fields{
		"loan_id": loan.ID,
		"creator": actor,
		"role":    request.Role,
	}).Info("loan request created")

	view := domain.ProjectLoan(loan, nil, actor)
	return &MutationResult{
		Loan:    &view,
		Warning: s.notify(ctx, domain.EventLoanCreated, "loan created", actor, loan, nil, nil),
	}, nil
}

// UpdateLoan replaces the terms of a pending loan. Only the creator may edit.
func (s *LoanService) UpdateLoan(ctx context.Context, actor string, loanID int64, request *domain.UpdateLoanRequest) (*MutationResult, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}

	request.ApplyDefaults()
	if err := request.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, actor, loanID, domain.ActionEdit, func(l *domain.Loan) {
		request.ApplyTo(l)
	})
}

func (s *LoanService) AcceptLoan(ctx context.Context, actor string, loanID int64) (*MutationResult, error) {
	return s.transition(ctx, actor, loanID, domain.ActionAccept)
}

func (s *LoanService) RejectLoan(ctx context.Context, actor string, loanID int64) (*MutationResult, error) {
	return s.transition(ctx, actor, loanID, domain.ActionReject)
}

func (s *LoanService) CancelLoan(ctx context.Context, actor string, loanID int64) (*MutationResult, error) {
	return s.transition(ctx, actor, loanID, domain.ActionCancel)
}

// DeleteLoan removes a pending request (creator only) or clears a rejected
// or cancelled one (either party). Payments go with the loan.
func (s *LoanService) DeleteLoan(ctx context.Context, actor string, loanID int64) (*MutationResult, error) {
	return s.transition(ctx, actor, loanID, domain.ActionDelete)
}

func (s *LoanService) transition(ctx context.Context, actor string, loanID int64, action domain.Action) (*MutationResult, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, loanID, action, nil)
}

// mutate runs the state machine for action inside a locked loan
// transaction, applies edit on the way, and notifies after commit.
func (s *LoanService) mutate(ctx context.Context, actor string, loanID int64, action domain.Action, edit func(l *domain.Loan)) (*MutationResult, error) {
	var (
		loan    domain.Loan
		history []*domain.Payment
		outcome domain.Outcome
	)

	err := s.uow.WithinLoanTx(ctx, loanID, func(r repository.Repos, l *domain.Loan) error {
		out, err := domain.Transition(l, action, actor)
		if err != nil {
			return err
		}

		if out.Delete {
			if err := r.Payments.DeleteByLoanID(ctx, l.ID); err != nil {
				return err
			}
			if err := r.Loans.Delete(ctx, l.ID); err != nil {
				return err
			}
		} else {
			if edit != nil {
				edit(l)
			}
			l.Status = out.To
			if err := r.Loans.Update(ctx, l); err != nil {
				return err
			}
			if history, err = r.Payments.GetByLoanID(ctx, l.ID); err != nil {
				return err
			}
		}

		loan, outcome = *l, out
		return nil
	})
	if err != nil {
		return nil, s.storeError(string(action)+" loan", err)
	}

	s.log.WithFields(logrus.Fields{
		"loan_id": loan.ID,
		"actor":   actor,
		"action":  action,
		"from":    outcome.From,
		"to":      outcome.To,
	}).Info("loan transition applied")

	result := &MutationResult{Deleted: outcome.Delete}
	if !outcome.Delete {
		view := domain.ProjectLoan(&loan, history, actor)
		result.Loan = &view
	}

	// Clearing a rejected or cancelled record is silent.
	if outcome.Delete && outcome.From != domain.LoanStatusPending {
		return result, nil
	}

	event, verb := actionEvent(action)
	result.Warning = s.notify(ctx, event, verb, actor, &loan, history, nil)
	return result, nil
}

// RecordPayment appends a payment to an active or completed loan and moves
// an active loan to completed once the total is reached.
func (s *LoanService) RecordPayment(ctx context.Context, actor string, loanID int64, request *domain.RecordPaymentRequest) (*PaymentResult, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}
	if !request.Amount.IsPositive() {
		return nil, customError.WrapInvalidPaymentAmount(request.Amount.String())
	}

	paidAt := s.now()
	if request.Date != nil {
		paidAt = request.Date.UTC()
	}

	var (
		loan    domain.Loan
		history []*domain.Payment
		payment *domain.Payment
		outcome domain.PaymentOutcome
	)

	err = s.uow.WithinLoanTx(ctx, loanID, func(r repository.Repos, l *domain.Loan) error {
		if _, err := domain.Transition(l, domain.ActionPay, actor); err != nil {
			return err
		}

		out, err := domain.ApplyPayment(l, request.Amount, s.epsilon)
		if err != nil {
			return err
		}

		p := &domain.Payment{
			LoanID:         l.ID,
			Amount:         request.Amount,
			PaidAt:         paidAt,
			Method:         request.Method,
			ProofReference: request.ProofReference,
			CreatedAt:      s.now(),
		}
		if err := r.Payments.Create(ctx, p); err != nil {
			return err
		}

		l.PaidAmount, l.Status = out.PaidAmount, out.Status
		if err := r.Loans.Update(ctx, l); err != nil {
			return err
		}
		if history, err = r.Payments.GetByLoanID(ctx, l.ID); err != nil {
			return err
		}

		loan, payment, outcome = *l, p, out
		return nil
	})
	if err != nil {
		return nil, s.storeError("record payment", err)
	}

	s.log.WithFields(logrus.Fields{
		"loan_id":   loan.ID,
		"actor":     actor,
		"amount":    request.Amount.String(),
		"paid":      outcome.PaidAmount.String(),
		"status":    outcome.Status,
		"completed": outcome.Completed,
	}).Info("payment recorded")

	pv := domain.ProjectPayment(payment)
	return &PaymentResult{
		NewPaidAmount: outcome.PaidAmount,
		Status:        outcome.Status,
		Payment:       pv,
		Warning:       s.notify(ctx, domain.EventPaymentRecorded, "payment recorded", actor, &loan, history, &pv),
	}, nil
}

// ListLoans returns every loan where actor is lender or borrower, newest
// first, with payment history.
func (s *LoanService) ListLoans(ctx context.Context, actor string) ([]domain.LoanView, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}

	loans, err := s.LoanRepo.ListByParty(ctx, actor)
	if err != nil {
		return nil, s.storeError("list loans", err)
	}

	views := make([]domain.LoanView, 0, len(loans))
	if len(loans) == 0 {
		return views, nil
	}

	ids := make([]int64, len(loans))
	for i, l := range loans {
		ids[i] = l.ID
	}
	payments, err := s.PaymentRepo.GetByLoanIDs(ctx, ids)
	if err != nil {
		return nil, s.storeError("list payments", err)
	}

	for _, l := range loans {
		views = append(views, domain.ProjectLoan(l, payments[l.ID], actor))
	}
	return views, nil
}

// GetLoan returns one loan as seen by actor. Only the parties may read it.
func (s *LoanService) GetLoan(ctx context.Context, actor string, loanID int64) (*domain.LoanView, error) {
	actor, err := requireActor(actor)
	if err != nil {
		return nil, err
	}

	loan, err := s.LoanRepo.GetByID(ctx, loanID)
	if err != nil {
		return nil, s.storeError("get loan", err)
	}
	if !loan.IsParty(actor) {
		return nil, customError.WrapNotAParty(loanID)
	}

	payments, err := s.PaymentRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, s.storeError("get payments", err)
	}

	view := domain.ProjectLoan(loan, payments, actor)
	return &view, nil
}

// notify sends the snapshot to the other party and returns a warning when
// delivery failed. It runs after commit and never fails the mutation.
func (s *LoanService) notify(ctx context.Context, event, verb, actor string, loan *domain.Loan, history []*domain.Payment, payment *domain.PaymentView) string {
	if s.notifier == nil {
		return ""
	}

	recipient := loan.Counterparty(actor)
	n := domain.Notification{
		Event:     event,
		Actor:     actor,
		ActorRole: loan.RoleOf(actor),
		Loan:      domain.ProjectLoan(loan, history, recipient),
		Payment:   payment,
	}

	d := s.notifier.Notify(ctx, recipient, n)
	if d.Delivered || d.Skipped {
		s.log.WithFields(logrus.Fields{
			"loan_id":   loan.ID,
			"event":     event,
			"channel":   d.Channel,
			"recipient": recipient,
		}).Debug("notification delivered")
		return ""
	}

	s.log.WithFields(logrus.Fields{
		"loan_id":   loan.ID,
		"event":     event,
		"channel":   d.Channel,
		"recipient": recipient,
	}).Warn("notification not delivered: " + d.Message)

	msg := d.Message
	if msg == "" {
		msg = "notification could not be delivered"
	}
	return fmt.Sprintf("%s, but %s", verb, msg)
}

func actionEvent(action domain.Action) (event, verb string) {
	switch action {
	case domain.ActionAccept:
		return domain.EventLoanAccepted, "loan accepted"
	case domain.ActionReject:
		return domain.EventLoanRejected, "loan rejected"
	case domain.ActionEdit:
		return domain.EventLoanUpdated, "loan updated"
	case domain.ActionCancel:
		return domain.EventLoanCancelled, "loan cancelled"
	case domain.ActionDelete:
		return domain.EventLoanDeleted, "loan deleted"
	default:
		return string(action), "loan " + string(action)
	}
}

// storeError passes business errors through and hides everything else
// behind a generic internal error.
func (s *LoanService) storeError(op string, err error) error {
	var businessErr *customError.BusinessError
	if errors.As(err, &businessErr) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	s.log.WithError(err).WithField("op", op).Error("store operation failed")
	return customError.WrapDatabaseError(err)
}

func requireActor(actor string) (string, error) {
	actor = utils.NormalizeParty(actor)
	if actor == "" {
		return "", customError.WrapUnauthenticated()
	}
	return actor, nil
}
