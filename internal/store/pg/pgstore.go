// Package pg provides the Postgres-backed stores for accounts, incidents,
// and the audit trail. Connections go through database/sql with the pgx
// stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store owns the shared connection pool. The per-domain stores are cheap
// views over the same pool.
type Store struct {
	db *sql.DB
}

// Open connects to Postgres and applies pool tuning.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing pool (sqlmock in tests).
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Accounts returns the account store view.
func (s *Store) Accounts() *AccountStore { return &AccountStore{db: s.db} }

// Incidents returns the incident store view.
func (s *Store) Incidents() *IncidentStore { return &IncidentStore{db: s.db} }

// Audit returns the audit trail view.
func (s *Store) Audit() *AuditStore { return &AuditStore{db: s.db} }

// EnsureSchema creates the tables if they do not exist. Idempotent; runs at
// startup so a fresh database is usable without a separate migration step.
func (s *Store) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`create table if not exists users (
			id text primary key,
			email text not null unique,
			display_name text not null default '',
			role text not null,
			status text not null,
			permissions jsonb not null default '{}',
			custom_claims jsonb not null default '{}',
			password_hash text not null default '',
			token_version int not null default 0,
			last_login_at timestamptz,
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		)`,
		`create table if not exists incidents (
			id text primary key,
			reported_by text not null,
			title text not null,
			description text not null default '',
			severity text not null,
			category text not null,
			priority text not null,
			status text not null,
			occurred_at timestamptz not null,
			history jsonb not null default '[]',
			deleted boolean not null default false,
			deleted_at timestamptz,
			deleted_by text not null default '',
			created_at timestamptz not null default now(),
			updated_at timestamptz not null default now()
		)`,
		`create index if not exists incidents_reported_by_idx on incidents(reported_by)`,
		`create table if not exists audit_log (
			id text primary key,
			user_id text not null,
			action text not null,
			details jsonb not null default '{}',
			created_at timestamptz not null
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
