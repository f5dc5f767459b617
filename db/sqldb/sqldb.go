// Package sqldb implements db.Storage on top of database/sql, using pgx for
// PostgreSQL and the pure Go modernc driver for SQLite.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/apiplans/checkout-backend/db"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"go.vocdoni.io/dvote/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// pgUniqueViolation is the SQLSTATE reported by PostgreSQL on unique index conflicts.
const pgUniqueViolation = "23505"

// Store is a SQL backed account store. The users table layout is shared with
// the hosted deployment: users(id, email, api_key, is_enabled).
type Store struct {
	db     *sql.DB
	driver string
}

// NewPostgres connects to PostgreSQL using dsn. A non empty password replaces
// the one embedded in the DSN so credentials can be provided separately.
func NewPostgres(dsn, password string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is not defined")
	}
	conf, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres DSN: %w", err)
	}
	if password != "" {
		conf.Password = password
	}
	log.Infow("connecting to postgres", "host", conf.Host, "database", conf.Database, "user", conf.User)
	sqlDB := stdlib.OpenDB(*conf)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{db: sqlDB, driver: db.DriverPostgres}
	if err := s.init(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite opens (or creates) a SQLite database. ":memory:" yields a shared
// in-memory database visible to every pooled connection.
func NewSQLite(dsn string) (*Store, error) {
	if dsn == "" || dsn == ":memory:" {
		dsn = "file::memory:?cache=shared"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent webhooks
	sqlDB.SetMaxOpenConns(1)
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	s := &Store{db: sqlDB, driver: db.DriverSQLite}
	if err := s.init(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	ctx, cancel := db.WithTimeout(context.Background())
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot connect to %s: %w", s.driver, err)
	}
	for _, stmt := range s.migrations() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.driver, err)
		}
	}
	return nil
}

func (s *Store) migrations() []string {
	if s.driver == db.DriverPostgres {
		return []string{
			`CREATE TABLE IF NOT EXISTS users (
				id BIGSERIAL PRIMARY KEY,
				email TEXT UNIQUE NOT NULL,
				api_key TEXT UNIQUE NOT NULL,
				is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			// tables created by the hosted deployment lack the bookkeeping columns
			`ALTER TABLE users ADD COLUMN IF NOT EXISTS created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
			`ALTER TABLE users ADD COLUMN IF NOT EXISTS updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()`,
		}
	}
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT UNIQUE NOT NULL,
			api_key TEXT UNIQUE NOT NULL,
			is_enabled INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
}

// rebind rewrites '?' placeholders into the positional form PostgreSQL expects.
func (s *Store) rebind(query string) string {
	if s.driver != db.DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// AccountByEmail returns the account registered under email.
func (s *Store) AccountByEmail(ctx context.Context, email string) (*db.Account, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT id, email, api_key, is_enabled FROM users WHERE email = ?`), email)
	account := &db.Account{}
	if err := row.Scan(&account.ID, &account.Email, &account.APIKey, &account.Enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// CreateAccount inserts a new account and stores the assigned id in account.ID.
func (s *Store) CreateAccount(ctx context.Context, account *db.Account) error {
	if account == nil || account.Email == "" || account.APIKey == "" {
		return db.ErrInvalidData
	}
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()
	row := s.db.QueryRowContext(ctx,
		s.rebind(`INSERT INTO users (email, api_key, is_enabled) VALUES (?, ?, ?) RETURNING id`),
		account.Email, account.APIKey, account.Enabled)
	if err := row.Scan(&account.ID); err != nil {
		if s.isUniqueViolation(err) {
			return db.ErrAlreadyExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// SetAccountEnabled flips the enabled flag of the account with the given id.
func (s *Store) SetAccountEnabled(ctx context.Context, id string, enabled bool) error {
	numericID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return db.ErrInvalidData
	}
	return s.update(ctx, `UPDATE users SET is_enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		enabled, numericID)
}

// SetAccountEnabledByEmail flips the enabled flag of the account registered under email.
func (s *Store) SetAccountEnabledByEmail(ctx context.Context, email string, enabled bool) error {
	return s.update(ctx, `UPDATE users SET is_enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE email = ?`,
		enabled, email)
}

func (s *Store) update(ctx context.Context, query string, args ...any) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return db.ErrNotFound
	}
	return nil
}

func (s *Store) isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

var _ db.Storage = (*Store)(nil)
