// Package sqlrepo implements the repositories over database/sql through sqlx.
// Queries are written with ? placeholders and rebound for the connection's
// driver, so the same code serves PostgreSQL and SQLite.
package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MedTracker/internal/repository"
)

const driverSQLite = "sqlite"

type repositories struct {
	accounts    repository.AccountRepository
	medications repository.MedicationRepository
}

func newRepositories(db sqlx.ExtContext) *repositories {
	return &repositories{
		accounts:    NewAccountRepository(db),
		medications: NewMedicationRepository(db),
	}
}

func (r *repositories) Accounts() repository.AccountRepository {
	return r.accounts
}

func (r *repositories) Medications() repository.MedicationRepository {
	return r.medications
}

// Store is the sqlx implementation of repository.Store
type Store struct {
	*repositories
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewStore creates a store over an open database
func NewStore(db *sqlx.DB, logger *logrus.Logger) *Store {
	return &Store{
		repositories: newRepositories(db),
		db:           db,
		logger:       logger,
	}
}

// WithTx runs fn in a transaction with automatic commit/rollback
func (s *Store) WithTx(ctx context.Context, fn func(repository.Repositories) error) error {
	return s.runTx(ctx, nil, fn)
}

// WithReadTx runs fn in a read-only transaction so every read sees the same
// snapshot. SQLite transactions are already serializable and run with the
// driver defaults.
func (s *Store) WithReadTx(ctx context.Context, fn func(repository.Repositories) error) error {
	opts := &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	if s.db.DriverName() == driverSQLite {
		opts = nil
	}
	return s.runTx(ctx, opts, fn)
}

func (s *Store) runTx(ctx context.Context, opts *sql.TxOptions, fn func(repository.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.WithError(rbErr).Error("Failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
