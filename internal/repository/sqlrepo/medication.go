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

type medicationRow struct {
	AccountID   string        `db:"account_id"`
	Name        string        `db:"name"`
	LastTakenAt sql.NullInt64 `db:"last_taken_at"`
	CreatedAt   int64         `db:"created_at"`
}

func (r medicationRow) model() *models.Medication {
	return &models.Medication{
		AccountID:   r.AccountID,
		Name:        r.Name,
		LastTakenAt: fromNullInt64(r.LastTakenAt),
		CreatedAt:   time.Unix(r.CreatedAt, 0).UTC(),
	}
}

type medicationRepository struct {
	db sqlx.ExtContext
}

// NewMedicationRepository creates a new medication repository over a connection or transaction
func NewMedicationRepository(db sqlx.ExtContext) repository.MedicationRepository {
	return &medicationRepository{db: db}
}

func (r *medicationRepository) Get(ctx context.Context, accountID, name string) (*models.Medication, error) {
	query := r.db.Rebind(`
		SELECT account_id, name, last_taken_at, created_at
		FROM medications
		WHERE account_id = ? AND name = ?`)

	var row medicationRow
	if err := sqlx.GetContext(ctx, r.db, &row, query, accountID, name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}

	return row.model(), nil
}

func (r *medicationRepository) ListByAccount(ctx context.Context, accountID string) ([]*models.Medication, error) {
	query := r.db.Rebind(`
		SELECT account_id, name, last_taken_at, created_at
		FROM medications
		WHERE account_id = ?
		ORDER BY created_at, name`)

	var rows []medicationRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, accountID); err != nil {
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}

	medications := make([]*models.Medication, 0, len(rows))
	for _, row := range rows {
		medications = append(medications, row.model())
	}

	return medications, nil
}

func (r *medicationRepository) Create(ctx context.Context, medication *models.Medication) (bool, error) {
	query := r.db.Rebind(`
		INSERT INTO medications (account_id, name, last_taken_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (account_id, name) DO NOTHING`)

	res, err := r.db.ExecContext(ctx, query,
		medication.AccountID,
		medication.Name,
		toNullInt64(medication.LastTakenAt),
		medication.CreatedAt.Unix(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to create medication: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to create medication: %w", err)
	}

	return n == 1, nil
}

func (r *medicationRepository) SetLastTaken(ctx context.Context, accountID, name string, at *time.Time) error {
	query := r.db.Rebind(`
		UPDATE medications
		SET last_taken_at = ?
		WHERE account_id = ? AND name = ?`)

	if _, err := r.db.ExecContext(ctx, query, toNullInt64(at), accountID, name); err != nil {
		return fmt.Errorf("failed to set last taken: %w", err)
	}
	return nil
}

func (r *medicationRepository) Delete(ctx context.Context, accountID, name string) (bool, error) {
	query := r.db.Rebind(`DELETE FROM medications WHERE account_id = ? AND name = ?`)

	res, err := r.db.ExecContext(ctx, query, accountID, name)
	if err != nil {
		return false, fmt.Errorf("failed to delete medication: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete medication: %w", err)
	}

	return n > 0, nil
}

func (r *medicationRepository) DeleteByAccount(ctx context.Context, accountID string) (int64, error) {
	query := r.db.Rebind(`DELETE FROM medications WHERE account_id = ?`)

	res, err := r.db.ExecContext(ctx, query, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete account medications: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete account medications: %w", err)
	}

	return n, nil
}
