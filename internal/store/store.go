package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sells-group/cardscan/internal/model"
)

// Pool is the subset of pgxpool.Pool the Postgres store uses. pgxmock
// implements it, so tests can swap a mock in for the real pool.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store defines the persistence interface for the card-scan pipeline.
// Lookup methods return (nil, nil) when the row does not exist.
type Store interface {
	// Users
	GetUserByName(ctx context.Context, name string) (*model.User, error)
	EnsureUser(ctx context.Context, name, email string) (*model.User, error)

	// Contacts
	GetContactByEmail(ctx context.Context, email string) (*model.Contact, error)

	// CreateContactWithTouchpoint inserts the contact and its first
	// touchpoint in one transaction. When another request already created
	// a contact with the same primary email the insert is a no-op: nothing
	// is written, inserted is false, and the caller falls back to the
	// existing-contact path.
	CreateContactWithTouchpoint(ctx context.Context, contact *model.Contact, tp *model.Touchpoint) (inserted bool, err error)

	// Touchpoints
	AppendTouchpoint(ctx context.Context, tp *model.Touchpoint) error
	RecentTouchpoints(ctx context.Context, contactID string, limit int) ([]model.Touchpoint, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
