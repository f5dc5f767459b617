// Package db defines the account model and the storage contract shared by the
// SQL and MongoDB backends.
package db

import (
	"context"
	"time"
)

// DefaultTimeout bounds every single storage operation.
const DefaultTimeout = 10 * time.Second

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMongo    = "mongo"
)

// Account is a provisioned API-key holder. There is at most one account per
// email and its APIKey never changes once issued.
type Account struct {
	ID      string `json:"id" bson:"_id,omitempty"`
	Email   string `json:"email" bson:"email"`
	APIKey  string `json:"apiKey" bson:"apiKey"`
	Enabled bool   `json:"isEnabled" bson:"isEnabled"`
}

// Storage is the account store used by the checkout and webhook flows.
type Storage interface {
	// AccountByEmail returns ErrNotFound when no account matches.
	AccountByEmail(ctx context.Context, email string) (*Account, error)
	// CreateAccount inserts the account and fills its ID. It returns
	// ErrAlreadyExists when the email (or key) is already taken.
	CreateAccount(ctx context.Context, account *Account) error
	SetAccountEnabled(ctx context.Context, id string, enabled bool) error
	// SetAccountEnabledByEmail returns ErrNotFound when no account matches.
	SetAccountEnabledByEmail(ctx context.Context, email string, enabled bool) error
	Close() error
}

// Config selects and configures a storage backend.
type Config struct {
	Driver string
	// URL is the DSN for postgres and sqlite or the connection URI for mongo.
	URL string
	// Password, when set, replaces the password embedded in a postgres DSN.
	Password string
	// Database is the MongoDB database name.
	Database string
}

// WithTimeout derives a context bounded by DefaultTimeout.
func WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, DefaultTimeout)
}
