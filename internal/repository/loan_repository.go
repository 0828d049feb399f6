package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/loanlink/internal/domain"
	customError "github.com/segyhp/loanlink/pkg/errors"
	"github.com/segyhp/loanlink/pkg/utils"

	"github.com/jmoiron/sqlx"
)

const loanColumns = `id, lender, borrower, creator, counterparty_name, asset_type, amount, rate, interest_type,
		item_name, item_description, item_condition, months, payment_frequency, monthly_payment,
		total_repayment, loan_date, repayment_start_date, paid_amount, status, created_at, updated_at`

type loanRepository struct {
	db sqlx.ExtContext
}

func NewLoanRepository(db sqlx.ExtContext) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := r.db.Rebind(`
		INSERT INTO loans (lender, borrower, creator, counterparty_name, asset_type, amount, rate, interest_type,
			item_name, item_description, item_condition, months, payment_frequency, monthly_payment,
			total_repayment, loan_date, repayment_start_date, paid_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`)

	err := sqlx.GetContext(ctx, r.db, &loan.ID, query,
		utils.NormalizeParty(loan.Lender),
		utils.NormalizeParty(loan.Borrower),
		normalizeCreator(loan.Creator),
		loan.CounterpartyName,
		loan.AssetType,
		loan.Amount,
		loan.Rate,
		loan.InterestType,
		loan.ItemName,
		loan.ItemDescription,
		loan.ItemCondition,
		loan.Months,
		loan.PaymentFrequency,
		loan.MonthlyPayment,
		loan.TotalRepayment,
		loan.LoanDate,
		loan.RepaymentStartDate,
		loan.PaidAmount,
		loan.Status,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}

	return nil
}

func (r *loanRepository) GetByID(ctx context.Context, id int64) (*domain.Loan, error) {
	return r.get(ctx, id, "")
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Loan, error) {
	// SQLite transactions are opened IMMEDIATE and already hold the write lock.
	lock := ""
	if r.db.DriverName() == "postgres" {
		lock = " FOR UPDATE"
	}
	return r.get(ctx, id, lock)
}

func (r *loanRepository) get(ctx context.Context, id int64, suffix string) (*domain.Loan, error) {
	query := r.db.Rebind(`SELECT ` + loanColumns + ` FROM loans WHERE id = ?` + suffix)

	var loan domain.Loan
	err := sqlx.GetContext(ctx, r.db, &loan, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapLoanNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get loan %d: %w", id, err)
	}

	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	loan.UpdatedAt = time.Now().UTC()

	query := r.db.Rebind(`
		UPDATE loans
		SET counterparty_name = ?, asset_type = ?, amount = ?, rate = ?, interest_type = ?,
			item_name = ?, item_description = ?, item_condition = ?, months = ?, payment_frequency = ?,
			monthly_payment = ?, total_repayment = ?, loan_date = ?, repayment_start_date = ?,
			paid_amount = ?, status = ?, updated_at = ?
		WHERE id = ?
	`)

	res, err := r.db.ExecContext(ctx, query,
		loan.CounterpartyName,
		loan.AssetType,
		loan.Amount,
		loan.Rate,
		loan.InterestType,
		loan.ItemName,
		loan.ItemDescription,
		loan.ItemCondition,
		loan.Months,
		loan.PaymentFrequency,
		loan.MonthlyPayment,
		loan.TotalRepayment,
		loan.LoanDate,
		loan.RepaymentStartDate,
		loan.PaidAmount,
		loan.Status,
		loan.UpdatedAt,
		loan.ID,
	)
	if err != nil {
		return fmt.Errorf("update loan %d: %w", loan.ID, err)
	}

	return expectOneRow(res, loan.ID)
}

func (r *loanRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM loans WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete loan %d: %w", id, err)
	}

	return expectOneRow(res, id)
}

func (r *loanRepository) ListByParty(ctx context.Context, party string) ([]*domain.Loan, error) {
	query := r.db.Rebind(`
		SELECT ` + loanColumns + `
		FROM loans
		WHERE lower(lender) = ? OR lower(borrower) = ?
		ORDER BY created_at DESC, id DESC
	`)

	p := utils.NormalizeParty(party)
	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, r.db, &loans, query, p, p); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}

	return loans, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return customError.WrapLoanNotFound(id)
	}
	return nil
}

func normalizeCreator(c sql.NullString) sql.NullString {
	if !c.Valid {
		return c
	}
	return sql.NullString{String: utils.NormalizeParty(c.String), Valid: true}
}
