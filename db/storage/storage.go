// Package storage builds the db.Storage backend selected by configuration.
package storage

import (
	"fmt"

	"github.com/apiplans/checkout-backend/db"
	"github.com/apiplans/checkout-backend/db/mongo"
	"github.com/apiplans/checkout-backend/db/sqldb"
	"go.vocdoni.io/dvote/log"
)

// DefaultDatabase is the MongoDB database used when none is configured.
const DefaultDatabase = "checkout"

// New opens the backend named by conf.Driver.
func New(conf *db.Config) (db.Storage, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing storage config")
	}
	switch conf.Driver {
	case db.DriverPostgres, "":
		return sqldb.NewPostgres(conf.URL, conf.Password)
	case db.DriverSQLite:
		return sqldb.NewSQLite(conf.URL)
	case db.DriverMongo:
		if conf.Password != "" {
			log.Warnw("database password is ignored by the mongo driver, embed it in the URL instead")
		}
		database := conf.Database
		if database == "" {
			database = DefaultDatabase
		}
		return mongo.New(conf.URL, database)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", conf.Driver)
	}
}
