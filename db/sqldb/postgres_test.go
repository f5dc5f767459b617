package sqldb

import (
	"context"
	"testing"

	"github.com/apiplans/checkout-backend/db"
	"github.com/apiplans/checkout-backend/test"
	qt "github.com/frankban/quicktest"
)

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	c := qt.New(t)
	ctx := context.Background()

	container, err := test.StartPostgresContainer(ctx)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := test.PostgresDSN(ctx, container)
	c.Assert(err, qt.IsNil)

	// the DSN carries no password, so the separate credential must be applied
	s, err := NewPostgres(dsn, test.PostgresPassword)
	c.Assert(err, qt.IsNil)
	c.Cleanup(func() { _ = s.Close() })

	// opening twice must not fail on the existing schema
	again, err := NewPostgres(dsn, test.PostgresPassword)
	c.Assert(err, qt.IsNil)
	c.Assert(again.Close(), qt.IsNil)

	account := &db.Account{Email: "pg@example.com", APIKey: "0123456789abcdef0123456789abcdef", Enabled: true}
	c.Assert(s.CreateAccount(ctx, account), qt.IsNil)
	c.Assert(account.ID, qt.Not(qt.Equals), "")

	err = s.CreateAccount(ctx, &db.Account{Email: "pg@example.com", APIKey: "other", Enabled: true})
	c.Assert(err, qt.ErrorIs, db.ErrAlreadyExists)

	c.Assert(s.SetAccountEnabledByEmail(ctx, "pg@example.com", false), qt.IsNil)
	got, err := s.AccountByEmail(ctx, "pg@example.com")
	c.Assert(err, qt.IsNil)
	c.Assert(got.Enabled, qt.IsFalse)
	c.Assert(got.APIKey, qt.Equals, account.APIKey)

	c.Assert(s.SetAccountEnabled(ctx, got.ID, true), qt.IsNil)
	got, err = s.AccountByEmail(ctx, "pg@example.com")
	c.Assert(err, qt.IsNil)
	c.Assert(got.Enabled, qt.IsTrue)

	c.Assert(s.SetAccountEnabledByEmail(ctx, "missing@example.com", false), qt.ErrorIs, db.ErrNotFound)
}

func TestNewPostgresRejectsBadDSN(t *testing.T) {
	c := qt.New(t)
	_, err := NewPostgres("", "")
	c.Assert(err, qt.ErrorMatches, "postgres DSN is not defined")
	_, err = NewPostgres("postgres://%zz", "")
	c.Assert(err, qt.ErrorMatches, "parse postgres DSN.*")
}
