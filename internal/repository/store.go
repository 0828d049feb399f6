package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/segyhp/loanlink/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// Store is the ledger store shared by every request handler and worker
// process. It owns the connection pool and hands out repositories bound
// either to the pool or to a transaction.
type Store struct {
	db          *sqlx.DB
	busyTimeout time.Duration
	log         *logrus.Logger
}

// Open connects to the configured database.
//
// SQLite is opened in WAL mode with a busy timeout equal to the configured
// ceiling and with IMMEDIATE transactions, so writers queue on the write
// lock instead of failing and readers are not blocked by a writer.
func Open(cfg config.DatabaseConfig, log *logrus.Logger) (*Store, error) {
	dsn := cfg.URL
	if cfg.Driver == "sqlite3" {
		dsn = sqliteDSN(cfg.URL, cfg.BusyTimeout)
	}

	db, err := sqlx.Connect(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &Store{db: db, busyTimeout: cfg.BusyTimeout, log: log}, nil
}

func sqliteDSN(path string, busy time.Duration) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on&_txlock=immediate",
		path, sep, busy.Milliseconds())
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for health checks.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Loans returns a loan repository outside any transaction.
func (s *Store) Loans() LoanRepository {
	return NewLoanRepository(s.db)
}

// Payments returns a payment repository outside any transaction.
func (s *Store) Payments() PaymentRepository {
	return NewPaymentRepository(s.db)
}
