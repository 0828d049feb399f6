package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// dialect holds the column types that differ between drivers.
type dialect struct {
	ID    string
	Money string
	Time  string
	// AddColumn is the ALTER prefix used for additive columns.
	AddColumn string
}

var dialects = map[string]dialect{
	"sqlite3": {
		ID:        "INTEGER PRIMARY KEY AUTOINCREMENT",
		Money:     "TEXT",
		Time:      "DATETIME",
		AddColumn: "ADD COLUMN",
	},
	"postgres": {
		ID:        "BIGSERIAL PRIMARY KEY",
		Money:     "NUMERIC(20,4)",
		Time:      "TIMESTAMPTZ",
		AddColumn: "ADD COLUMN IF NOT EXISTS",
	},
}

// column is a column added after the first schema version.
type column struct {
	table string
	name  string
	ddl   string // type and constraints; {time} is replaced per dialect
}

var additiveColumns = []column{
	{table: "loans", name: "creator", ddl: "TEXT"},
	{table: "loans", name: "asset_type", ddl: "TEXT NOT NULL DEFAULT 'currency'"},
	{table: "loans", name: "item_name", ddl: "TEXT NOT NULL DEFAULT ''"},
	{table: "loans", name: "item_description", ddl: "TEXT NOT NULL DEFAULT ''"},
	{table: "loans", name: "item_condition", ddl: "TEXT NOT NULL DEFAULT ''"},
	{table: "loans", name: "payment_frequency", ddl: "TEXT NOT NULL DEFAULT 'monthly'"},
	{table: "loans", name: "loan_date", ddl: "{time}"},
	{table: "loans", name: "repayment_start_date", ddl: "{time}"},
	{table: "payments", name: "method", ddl: "TEXT NOT NULL DEFAULT ''"},
	{table: "payments", name: "proof_reference", ddl: "TEXT NOT NULL DEFAULT ''"},
}

func baseSchema(d dialect) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS loans (
			id %[1]s,
			lender TEXT NOT NULL,
			borrower TEXT NOT NULL,
			counterparty_name TEXT NOT NULL DEFAULT '',
			amount %[2]s NOT NULL DEFAULT '0',
			rate %[2]s NOT NULL DEFAULT '0',
			months INTEGER NOT NULL DEFAULT 0,
			interest_type TEXT NOT NULL DEFAULT '',
			monthly_payment %[2]s NOT NULL DEFAULT '0',
			total_repayment %[2]s NOT NULL,
			paid_amount %[2]s NOT NULL DEFAULT '0',
			status TEXT NOT NULL DEFAULT 'pending',
			created_at %[3]s NOT NULL,
			updated_at %[3]s NOT NULL,
			CHECK (lower(lender) <> lower(borrower))
		)`, d.ID, d.Money, d.Time),

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS payments (
			id %[1]s,
			loan_id BIGINT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
			amount %[2]s NOT NULL,
			paid_at %[3]s NOT NULL,
			created_at %[3]s NOT NULL
		)`, d.ID, d.Money, d.Time),

		`CREATE INDEX IF NOT EXISTS idx_loans_lender ON loans (lower(lender))`,
		`CREATE INDEX IF NOT EXISTS idx_loans_borrower ON loans (lower(borrower))`,
		`CREATE INDEX IF NOT EXISTS idx_payments_loan_paid_at ON payments (loan_id, paid_at)`,
	}
}

// Migrate brings the schema up to date. Every step is safe to run again and
// safe to run from several processes starting at once: tables and indexes
// use IF NOT EXISTS, additive columns treat "already exists" as applied,
// and a locked database is taken to mean another worker is migrating.
func (s *Store) Migrate(ctx context.Context) error {
	d, ok := dialects[s.db.DriverName()]
	if !ok {
		return fmt.Errorf("no schema for driver %q", s.db.DriverName())
	}

	for _, stmt := range baseSchema(d) {
		if err := s.migrateStep(ctx, stmt); err != nil {
			return err
		}
	}

	for _, c := range additiveColumns {
		ddl := strings.ReplaceAll(c.ddl, "{time}", d.Time)
		stmt := fmt.Sprintf("ALTER TABLE %s %s %s %s", c.table, d.AddColumn, c.name, ddl)
		if err := s.migrateStep(ctx, stmt); err != nil {
			return err
		}
	}

	s.log.WithField("driver", s.db.DriverName()).Info("schema up to date")
	return nil
}

func (s *Store) migrateStep(ctx context.Context, stmt string) error {
	_, err := s.db.ExecContext(ctx, stmt)
	switch {
	case err == nil, isDuplicateColumn(err):
		return nil
	case isBusy(err):
		s.log.WithError(err).Warn("database locked during migration, assuming another worker is migrating")
		return nil
	default:
		return fmt.Errorf("migration step failed: %w", err)
	}
}

func isDuplicateColumn(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42701" // duplicate_column
	}
	return strings.Contains(err.Error(), "duplicate column name")
}
