package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kerhoff/MedTracker/internal/models"
	"github.com/Kerhoff/MedTracker/internal/repository"
)

type accountRow struct {
	ID           string         `db:"account_id"`
	Timezone     sql.NullString `db:"timezone"`
	LastActiveAt sql.NullInt64  `db:"last_active_at"`
	CreatedAt    int64          `db:"created_at"`
}

func (r accountRow) model() *models.Account {
	return &models.Account{
		ID:           r.ID,
		Timezone:     r.Timezone.String,
		LastActiveAt: fromNullInt64(r.LastActiveAt),
		CreatedAt:    time.Unix(r.CreatedAt, 0).UTC(),
	}
}

type accountRepository struct {
	db sqlx.ExtContext
}

// NewAccountRepository creates a new account repository over a connection or transaction
func NewAccountRepository(db sqlx.ExtContext) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, accountID string) (*models.Account, error) {
	query := r.db.Rebind(`
		SELECT account_id, timezone, last_active_at, created_at
		FROM accounts
		WHERE account_id = ?`)

	var row accountRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return row.model(), nil
}

func (r *accountRepository) CreateIfAbsent(ctx context.Context, account *models.Account) (bool, error) {
	query := r.db.Rebind(`
		INSERT INTO accounts (account_id, timezone, last_active_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id) DO NOTHING`)

	res, err := r.db.ExecContext(ctx, query,
		account.ID,
		toNullString(account.Timezone),
		toNullInt64(account.LastActiveAt),
		account.CreatedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create account: %w", err)
	}

	return n == 1, nil
}

func (r *accountRepository) Touch(ctx context.Context, accountID string, at time.Time) error {
	query := r.db.Rebind(`UPDATE accounts SET last_active_at = ? WHERE account_id = ?`)

	if _, err := r.db.ExecContext(ctx, query, at.Unix(), accountID); err != nil {
		return fmt.Errorf("failed to touch account: %w", err)
	}
	return nil
}

func (r *accountRepository) SetTimezone(ctx context.Context, accountID, zone string) error {
	query := r.db.Rebind(`UPDATE accounts SET timezone = ? WHERE account_id = ?`)

	if _, err := r.db.ExecContext(ctx, query, toNullString(zone), accountID); err != nil {
		return fmt.Errorf("failed to set account timezone: %w", err)
	}
	return nil
}

func (r *accountRepository) Lock(ctx context.Context, accountID string) (bool, error) {
	// A no-op write takes the row lock in PostgreSQL and the write lock in SQLite.
	query := r.db.Rebind(`UPDATE accounts SET timezone = timezone WHERE account_id = ?`)

	res, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to lock account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to lock account: %w", err)
	}

	return n > 0, nil
}

func (r *accountRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `
		SELECT account_id, timezone, last_active_at, created_at
		FROM accounts
		ORDER BY account_id`

	var rows []accountRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]*models.Account, 0, len(rows))
	for _, row := range rows {
		accounts = append(accounts, row.model())
	}

	return accounts, nil
}

func (r *accountRepository) Delete(ctx context.Context, accountID string) (bool, error) {
	query := r.db.Rebind(`DELETE FROM accounts WHERE account_id = ?`)

	res, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return false, fmt.Errorf("failed to delete account: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete account: %w", err)
	}

	return n > 0, nil
}
