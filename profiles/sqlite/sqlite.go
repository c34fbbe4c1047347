// Package sqlite provides a SQLite implementation of profiles.Store.
//
// Examples:
//
//	store, err := sqlite.New("file:permit.db?_foreign_keys=on")
//
//	store, err := sqlite.New(":memory:", sqlite.WithPrefix("test_"))
//
//nolint:gosec // Reports on G202. SQL string concat used to parameterize table.
package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/tripdesk/permit/errors"
	"github.com/tripdesk/permit/profiles"
	"github.com/tripdesk/permit/rbac"

	"github.com/mattn/go-sqlite3"
)

// Option is a functional option for configuring the store.
type Option func(*Store)

// WithPrefix overrides the default prefix for table names.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithAutoCreateTables controls whether the profiles table is created on
// startup. Disable it when migrations are managed separately.
func WithAutoCreateTables(autoCreate bool) Option {
	return func(s *Store) {
		s.autoCreateTables = autoCreate
	}
}

// New opens a SQLite database and, unless disabled, creates the profiles
// table.
func New(dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.WrapPrefix(err, "failed to open sqlite connection", 0)
	}
	// SQLite serializes writers anyway, and ":memory:" databases are per
	// connection.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:               db,
		prefix:           "permit_",
		autoCreateTables: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.autoCreateTables {
		if err := s.ensureTable(); err != nil {
			db.Close()
			return nil, err
		}
	}
	return s, nil
}

// Store keeps profiles in a single SQLite table.
type Store struct {
	db               *sql.DB
	prefix           string
	autoCreateTables bool
}

var _ profiles.Store = (*Store)(nil)

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) table() string {
	return profiles.TableName(s.prefix)
}

func (s *Store) Create(ctx context.Context, p profiles.Profile) error {
	if err := profiles.Validate(p); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.table()+` (id, email, name, role, region, suspended, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.Name, string(p.Role), p.Region, p.Suspended, time.Now().UTC())
	return translateError(err)
}

func (s *Store) Get(ctx context.Context, id string) (profiles.Profile, error) {
	row := s.db.QueryRowContext(ctx, s.selectQuery()+` WHERE id = ?`, id)
	return scan(row)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (profiles.Profile, error) {
	row := s.db.QueryRowContext(ctx, s.selectQuery()+` WHERE email = ?`, email)
	return scan(row)
}

func (s *Store) UpdateRole(ctx context.Context, id string, role rbac.Role) error {
	if err := profiles.ValidateRole(role); err != nil {
		return err
	}
	return s.update(ctx, `role = ?`, string(role), id)
}

func (s *Store) SetSuspended(ctx context.Context, id string, suspended bool) error {
	return s.update(ctx, `suspended = ?`, suspended, id)
}

func (s *Store) List(ctx context.Context, f profiles.Filter) ([]profiles.Profile, error) {
	query, args := s.buildListQuery(f)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translateError(err)
	}
	defer rows.Close()

	var out []profiles.Profile
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return out, nil
}

func (s *Store) update(ctx context.Context, set string, value any, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+s.table()+` SET `+set+`, updated_at = ? WHERE id = ?`,
		value, time.Now().UTC(), id)
	if err != nil {
		return translateError(err)
	}
	if n, err := res.RowsAffected(); n == 0 || err != nil {
		return errors.Mark(profiles.ErrNotFound, 1)
	}
	return nil
}

func (s *Store) selectQuery() string {
	return `SELECT id, email, name, role, region, suspended, updated_at FROM ` + s.table()
}

func (s *Store) buildListQuery(f profiles.Filter) (string, []any) {
	var where []string
	var args []any
	if f.Role != "" {
		where = append(where, "role = ?")
		args = append(args, string(f.Role))
	}
	if f.Region != "" {
		where = append(where, "region = ?")
		args = append(args, f.Region)
	}
	if f.Suspended != nil {
		where = append(where, "suspended = ?")
		args = append(args, *f.Suspended)
	}

	query := s.selectQuery()
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY email", args
}

func (s *Store) ensureTable() error {
	table := s.table()
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + table + ` (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		region TEXT NOT NULL DEFAULT '',
		suspended BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return errors.Errorf("failed to create table [%s]: %w", table, err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_` + table + `_region ON ` + table + ` (region);`)
	if err != nil {
		return errors.Errorf("failed to create region index for [%s]: %w", table, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (profiles.Profile, error) {
	var p profiles.Profile
	var role string
	err := row.Scan(&p.ID, &p.Email, &p.Name, &role, &p.Region, &p.Suspended, &p.UpdatedAt)
	if err != nil {
		return profiles.Profile{}, translateError(err)
	}
	p.Role = rbac.Role(role)
	return p, nil
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errors.Mark(profiles.ErrNotFound, 1)
	}
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code {
		case sqlite3.ErrNotFound:
			return errors.Mark(profiles.ErrNotFound, 1)
		case sqlite3.ErrConstraint:
			return errors.Mark(profiles.ErrAlreadyExists, 1)
		}
	}
	return errors.MaybeWrap(err, 1)
}
