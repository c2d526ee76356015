package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cardscan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. It backs local
// development and the behavioral test suite; production runs on Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	email      TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contacts (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	company         TEXT NOT NULL DEFAULT '',
	industry        TEXT NOT NULL DEFAULT '',
	primary_email   TEXT NOT NULL,
	secondary_email TEXT NOT NULL DEFAULT '',
	primary_phone   TEXT NOT NULL,
	secondary_phone TEXT NOT NULL DEFAULT '',
	website         TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	social          TEXT NOT NULL DEFAULT '{}',
	source          TEXT NOT NULL DEFAULT 'business_card',
	status          TEXT NOT NULL DEFAULT 'new',
	user_id         TEXT NOT NULL REFERENCES users(id),
	notes           TEXT NOT NULL DEFAULT '',
	created_at      DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at      DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_contacts_primary_email ON contacts(lower(primary_email));
CREATE INDEX IF NOT EXISTS idx_contacts_user_id ON contacts(user_id);

CREATE TABLE IF NOT EXISTS touchpoints (
	id         TEXT PRIMARY KEY,
	contact_id TEXT NOT NULL REFERENCES contacts(id),
	note       TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT 'business_card',
	added_by   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_touchpoints_contact_id ON touchpoints(contact_id);
CREATE INDEX IF NOT EXISTS idx_touchpoints_contact_created ON touchpoints(contact_id, created_at DESC);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetUserByName(ctx context.Context, name string) (*model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE name = ?`,
		name,
	).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get user %s", name)
	}
	return &u, nil
}

func (s *SQLiteStore) EnsureUser(ctx context.Context, name, email string) (*model.User, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET email = excluded.email`,
		id, name, email, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: ensure user %s", name)
	}
	return s.GetUserByName(ctx, name)
}

func (s *SQLiteStore) GetContactByEmail(ctx context.Context, email string) (*model.Contact, error) {
	var c model.Contact
	var socialJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, company, industry, primary_email, secondary_email, primary_phone, secondary_phone,
		        website, address, social, source, status, user_id, notes, created_at, updated_at
		 FROM contacts WHERE lower(primary_email) = lower(?)`,
		email,
	).Scan(&c.ID, &c.Name, &c.Company, &c.Industry, &c.PrimaryEmail, &c.SecondaryEmail,
		&c.PrimaryPhone, &c.SecondaryPhone, &c.Website, &c.Address, &socialJSON,
		&c.Source, &c.Status, &c.UserID, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: get contact by email")
	}
	if err := json.Unmarshal([]byte(socialJSON), &c.Social); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal social profiles")
	}
	return &c, nil
}

func (s *SQLiteStore) CreateContactWithTouchpoint(ctx context.Context, contact *model.Contact, tp *model.Touchpoint) (bool, error) {
	now := time.Now().UTC()
	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	contact.CreatedAt = now
	contact.UpdatedAt = now

	socialJSON, err := json.Marshal(contact.Social)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: marshal social profiles")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO contacts
		 (id, name, company, industry, primary_email, secondary_email, primary_phone, secondary_phone,
		  website, address, social, source, status, user_id, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		contact.ID, contact.Name, contact.Company, contact.Industry,
		contact.PrimaryEmail, contact.SecondaryEmail, contact.PrimaryPhone, contact.SecondaryPhone,
		contact.Website, contact.Address, string(socialJSON), contact.Source, string(contact.Status),
		contact.UserID, contact.Notes, contact.CreatedAt, contact.UpdatedAt,
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert contact")
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	} else if n == 0 {
		return false, nil
	}

	if tp.ID == "" {
		tp.ID = uuid.New().String()
	}
	tp.ContactID = contact.ID
	tp.CreatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO touchpoints (id, contact_id, note, source, added_by, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		tp.ID, tp.ContactID, tp.Note, tp.Source, tp.AddedBy, tp.CreatedAt,
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert touchpoint")
	}

	if err := tx.Commit(); err != nil {
		return false, eris.Wrap(err, "sqlite: commit contact")
	}
	return true, nil
}

func (s *SQLiteStore) AppendTouchpoint(ctx context.Context, tp *model.Touchpoint) error {
	if tp.ID == "" {
		tp.ID = uuid.New().String()
	}
	tp.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO touchpoints (id, contact_id, note, source, added_by, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		tp.ID, tp.ContactID, tp.Note, tp.Source, tp.AddedBy, tp.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: append touchpoint for contact %s", tp.ContactID)
}

func (s *SQLiteStore) RecentTouchpoints(ctx context.Context, contactID string, limit int) ([]model.Touchpoint, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, contact_id, note, source, added_by, created_at FROM touchpoints
		 WHERE contact_id = ? ORDER BY created_at DESC LIMIT ?`,
		contactID, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: recent touchpoints")
	}
	defer rows.Close()

	var tps []model.Touchpoint
	for rows.Next() {
		var tp model.Touchpoint
		if err := rows.Scan(&tp.ID, &tp.ContactID, &tp.Note, &tp.Source, &tp.AddedBy, &tp.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan touchpoint")
		}
		tps = append(tps, tp)
	}
	return tps, eris.Wrap(rows.Err(), "sqlite: recent touchpoints iterate")
}
