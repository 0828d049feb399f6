package repository

import (
	"context"
	"fmt"

	"github.com/segyhp/loanlink/internal/domain"

	"github.com/jmoiron/sqlx"
)

const paymentColumns = `id, loan_id, amount, paid_at, method, proof_reference, created_at`

type paymentRepository struct {
	db sqlx.ExtContext
}

func NewPaymentRepository(db sqlx.ExtContext) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := r.db.Rebind(`
		INSERT INTO payments (loan_id, amount, paid_at, method, proof_reference, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := sqlx.GetContext(ctx, r.db, &payment.ID, query,
		payment.LoanID,
		payment.Amount,
		payment.PaidAt,
		payment.Method,
		payment.ProofReference,
		payment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment for loan %d: %w", payment.LoanID, err)
	}

	return nil
}

func (r *paymentRepository) GetByLoanID(ctx context.Context, loanID int64) ([]*domain.Payment, error) {
	query := r.db.Rebind(`
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE loan_id = ?
		ORDER BY paid_at, id
	`)

	payments := []*domain.Payment{}
	if err := sqlx.SelectContext(ctx, r.db, &payments, query, loanID); err != nil {
		return nil, fmt.Errorf("list payments for loan %d: %w", loanID, err)
	}

	return payments, nil
}

func (r *paymentRepository) GetByLoanIDs(ctx context.Context, loanIDs []int64) (map[int64][]*domain.Payment, error) {
	grouped := make(map[int64][]*domain.Payment, len(loanIDs))
	if len(loanIDs) == 0 {
		return grouped, nil
	}

	query, args, err := sqlx.In(`
		SELECT `+paymentColumns+`
		FROM payments
		WHERE loan_id IN (?)
		ORDER BY loan_id, paid_at, id
	`, loanIDs)
	if err != nil {
		return nil, err
	}

	var payments []*domain.Payment
	if err := sqlx.SelectContext(ctx, r.db, &payments, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	for _, p := range payments {
		grouped[p.LoanID] = append(grouped[p.LoanID], p)
	}

	return grouped, nil
}

func (r *paymentRepository) DeleteByLoanID(ctx context.Context, loanID int64) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM payments WHERE loan_id = ?`), loanID)
	if err != nil {
		return fmt.Errorf("delete payments for loan %d: %w", loanID, err)
	}
	return nil
}
