package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cardscan/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot-path store operations.
var preparedStatements = map[string]string{
	"get_user_by_name":     `SELECT id, name, email, created_at FROM users WHERE name = $1`,
	"get_contact_by_email": `SELECT id, name, company, industry, primary_email, secondary_email, primary_phone, secondary_phone, website, address, social, source, status, user_id, notes, created_at, updated_at FROM contacts WHERE lower(primary_email) = lower($1)`,
	"insert_touchpoint":    `INSERT INTO touchpoints (id, contact_id, note, source, added_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"recent_touchpoints":   `SELECT id, contact_id, note, source, added_by, created_at FROM touchpoints WHERE contact_id = $1 ORDER BY created_at DESC LIMIT $2`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name       TEXT NOT NULL UNIQUE,
	email      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name            TEXT NOT NULL,
	company         TEXT NOT NULL DEFAULT '',
	industry        TEXT NOT NULL DEFAULT '',
	primary_email   TEXT NOT NULL,
	secondary_email TEXT NOT NULL DEFAULT '',
	primary_phone   TEXT NOT NULL,
	secondary_phone TEXT NOT NULL DEFAULT '',
	website         TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	social          JSONB NOT NULL DEFAULT '{}'::jsonb,
	source          TEXT NOT NULL DEFAULT 'business_card',
	status          TEXT NOT NULL DEFAULT 'new',
	user_id         TEXT NOT NULL REFERENCES users(id),
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_primary_email ON contacts(lower(primary_email));
CREATE INDEX IF NOT EXISTS idx_contacts_user_id ON contacts(user_id);

CREATE TABLE IF NOT EXISTS touchpoints (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	contact_id TEXT NOT NULL REFERENCES contacts(id),
	note       TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT 'business_card',
	added_by   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_touchpoints_contact_id ON touchpoints(contact_id);
CREATE INDEX IF NOT EXISTS idx_touchpoints_contact_created ON touchpoints(contact_id, created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, email, created_at FROM users WHERE name = $1`,
		name,
	).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get user %s", name)
	}
	return &u, nil
}

func (s *PostgresStore) EnsureUser(ctx context.Context, name, email string) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	var u model.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (name) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id, name, email, created_at`,
		id, name, email, now,
	).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: ensure user %s", name)
	}
	return &u, nil
}

func (s *PostgresStore) GetContactByEmail(ctx context.Context, email string) (*model.Contact, error) {
	var c model.Contact
	var socialJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, company, industry, primary_email, secondary_email, primary_phone, secondary_phone,
		        website, address, social, source, status, user_id, notes, created_at, updated_at
		 FROM contacts WHERE lower(primary_email) = lower($1)`,
		email,
	).Scan(&c.ID, &c.Name, &c.Company, &c.Industry, &c.PrimaryEmail, &c.SecondaryEmail,
		&c.PrimaryPhone, &c.SecondaryPhone, &c.Website, &c.Address, &socialJSON,
		&c.Source, &c.Status, &c.UserID, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get contact by email")
	}
	if err := json.Unmarshal(socialJSON, &c.Social); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal social profiles")
	}
	return &c, nil
}

func (s *PostgresStore) CreateContactWithTouchpoint(ctx context.Context, contact *model.Contact, tp *model.Touchpoint) (bool, error) {
	now := time.Now().UTC()
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	contact.CreatedAt = now
	contact.UpdatedAt = now

	socialJSON, err := json.Marshal(contact.Social)
	if err != nil {
		return false, eris.Wrap(err, "postgres: marshal social profiles")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO contacts
		 (id, name, company, industry, primary_email, secondary_email, primary_phone, secondary_phone,
		  website, address, social, source, status, user_id, notes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (lower(primary_email)) DO NOTHING`,
		contact.ID, contact.Name, contact.Company, contact.Industry,
		contact.PrimaryEmail, contact.SecondaryEmail, contact.PrimaryPhone, contact.SecondaryPhone,
		contact.Website, contact.Address, socialJSON, contact.Source, string(contact.Status),
		contact.UserID, contact.Notes, contact.CreatedAt, contact.UpdatedAt,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert contact")
	}
	if tag.RowsAffected() == 0 {
		// A concurrent request won the insert. Leave the row alone and let
		// the caller take the existing-contact path.
		return false, nil
	}

	if tp.ID == "" {
		tp.ID = uuid.New().String()
	}
	tp.ContactID = contact.ID
	tp.CreatedAt = now

	_, err = tx.Exec(ctx,
		`INSERT INTO touchpoints (id, contact_id, note, source, added_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		tp.ID, tp.ContactID, tp.Note, tp.Source, tp.AddedBy, tp.CreatedAt,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert touchpoint")
	}

	if err := tx.Commit(ctx); err != nil {
		return false, eris.Wrap(err, "postgres: commit contact")
	}
	return true, nil
}

func (s *PostgresStore) AppendTouchpoint(ctx context.Context, tp *model.Touchpoint) error {
	if tp.ID == "" {
		tp.ID = uuid.New().String()
	}
	tp.CreatedAt = time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO touchpoints (id, contact_id, note, source, added_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		tp.ID, tp.ContactID, tp.Note, tp.Source, tp.AddedBy, tp.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: append touchpoint for contact %s", tp.ContactID)
}

func (s *PostgresStore) RecentTouchpoints(ctx context.Context, contactID string, limit int) ([]model.Touchpoint, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, contact_id, note, source, added_by, created_at FROM touchpoints
		 WHERE contact_id = $1 ORDER BY created_at DESC LIMIT $2`,
		contactID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: recent touchpoints")
	}
	defer rows.Close()

	var tps []model.Touchpoint
	for rows.Next() {
		var tp model.Touchpoint
		if err := rows.Scan(&tp.ID, &tp.ContactID, &tp.Note, &tp.Source, &tp.AddedBy, &tp.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan touchpoint")
		}
		tps = append(tps, tp)
	}
	return tps, eris.Wrap(rows.Err(), "postgres: recent touchpoints iterate")
}
