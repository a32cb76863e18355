package repository

import (
	"context"
	"time"

	"github.com/Kerhoff/MedTracker/internal/models"
)

// AccountRepository defines the interface for account data operations.
// Lookups return (nil, nil) when the account does not exist.
type AccountRepository interface {
	Get(ctx context.Context, accountID string) (*models.Account, error)
	// CreateIfAbsent inserts the account unless one with the same id exists and
	// reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, account *models.Account) (bool, error)
	Touch(ctx context.Context, accountID string, at time.Time) error
	SetTimezone(ctx context.Context, accountID, zone string) error
	// Lock takes the account row lock for the rest of the enclosing
	// transaction and reports whether the account exists.
	Lock(ctx context.Context, accountID string) (bool, error)
	List(ctx context.Context) ([]*models.Account, error)
	Delete(ctx context.Context, accountID string) (bool, error)
}

// MedicationRepository defines the interface for medication data operations.
// Lookups return (nil, nil) when the medication does not exist.
type MedicationRepository interface {
	Get(ctx context.Context, accountID, name string) (*models.Medication, error)
	// ListByAccount returns the account's medications in creation order.
	ListByAccount(ctx context.Context, accountID string) ([]*models.Medication, error)
	// Create inserts the medication unless the name is already tracked and
	// reports whether a row was inserted.
	Create(ctx context.Context, medication *models.Medication) (bool, error)
	// SetLastTaken stores at as the last take, nil meaning never taken.
	SetLastTaken(ctx context.Context, accountID, name string, at *time.Time) error
	Delete(ctx context.Context, accountID, name string) (bool, error)
	DeleteByAccount(ctx context.Context, accountID string) (int64, error)
}

// Repositories groups the repositories that share one connection or transaction
type Repositories interface {
	Accounts() AccountRepository
	Medications() MedicationRepository
}

// Store is the unit of work over all repositories. Repositories passed to fn
// are bound to a single transaction that is committed when fn returns nil and
// rolled back otherwise. Store's own repositories must not be used inside fn.
// WithReadTx is the same for reads that must agree with each other; writes
// inside it fail.
type Store interface {
	Repositories
	WithTx(ctx context.Context, fn func(Repositories) error) error
	WithReadTx(ctx context.Context, fn func(Repositories) error) error
}
