package repository

import (
	"context"
	"errors"
	"time"

	"github.com/segyhp/loanlink/internal/domain"
	customError "github.com/segyhp/loanlink/pkg/errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

const (
	initialBackoff = 10 * time.Millisecond
	maxBackoff     = 500 * time.Millisecond
)

// WithinTx runs fn in a transaction. When the store reports contention the
// whole transaction is retried with backoff until the busy timeout elapses,
// after which a contention error is returned.
func (s *Store) WithinTx(ctx context.Context, fn func(r Repos) error) error {
	deadline := time.Now().Add(s.busyTimeout)
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil || !isBusy(err) {
			return err
		}

		if time.Now().Add(backoff).After(deadline) {
			s.log.WithError(err).WithField("attempts", attempt).Warn("store busy, giving up")
			return customError.WrapStoreBusy(err)
		}
		s.log.WithError(err).WithField("attempt", attempt).Debug("store busy, retrying transaction")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// WithinLoanTx locks the loan row first, then passes it in.
func (s *Store) WithinLoanTx(ctx context.Context, loanID int64, fn func(r Repos, l *domain.Loan) error) error {
	return s.WithinTx(ctx, func(r Repos) error {
		l, err := r.Loans.GetByIDForUpdate(ctx, loanID)
		if err != nil {
			return err
		}
		return fn(r, l)
	})
}

func (s *Store) runTx(ctx context.Context, fn func(r Repos) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	r := Repos{
		Loans:    NewLoanRepository(tx),
		Payments: NewPaymentRepository(tx),
	}
	if err := fn(r); err != nil {
		return err
	}

	return tx.Commit()
}

// isBusy reports whether err is a transient contention error worth retrying.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", // serialization_failure
			"40P01", // deadlock_detected
			"55P03": // lock_not_available
			return true
		}
	}

	return false
}
