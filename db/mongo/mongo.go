// Package mongo implements db.Storage on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apiplans/checkout-backend/db"
	"github.com/apiplans/checkout-backend/migrations"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.vocdoni.io/dvote/log"
)

// MongoStorage uses an external MongoDB service for storing the accounts.
type MongoStorage struct {
	client     *mongodriver.Client
	database   string
	users      *mongodriver.Collection
	migrations *mongodriver.Collection
}

// account is the persisted document. The id is kept as an ObjectID so the
// collection stays compatible with the default _id index.
type account struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	APIKey    string             `bson:"apiKey"`
	Enabled   bool               `bson:"isEnabled"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (a *account) toAccount() *db.Account {
	return &db.Account{
		ID:      a.ID.Hex(),
		Email:   a.Email,
		APIKey:  a.APIKey,
		Enabled: a.Enabled,
	}
}

// New connects to the MongoDB instance at url, selects database and applies
// the pending migrations.
func New(url, database string) (*MongoStorage, error) {
	if url == "" {
		return nil, fmt.Errorf("mongo URL is not defined")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database is not defined")
	}
	log.Infow("connecting to mongodb", "database", database)
	// preparing connection
	opts := options.Client()
	opts.ApplyURI(url)
	opts.SetMaxConnecting(200)
	timeout := time.Second * 10
	opts.ConnectTimeout = &timeout
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	client, err := mongodriver.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	// check if the connection is successful
	ctx, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("cannot connect to mongodb: %w", err)
	}
	ms := &MongoStorage{
		client:     client,
		database:   database,
		users:      client.Database(database).Collection(migrations.UsersCollection),
		migrations: client.Database(database).Collection("migrations"),
	}
	if err := ms.RunMigrationsUp(); err != nil {
		return nil, err
	}
	return ms, nil
}

// Close disconnects the client.
func (ms *MongoStorage) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

// Reset drops the users and migrations collections and migrates the empty
// database again.
func (ms *MongoStorage) Reset() error {
	log.Infof("resetting database")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.users.Drop(ctx); err != nil {
		return err
	}
	if err := ms.migrations.Drop(ctx); err != nil {
		return err
	}
	return ms.RunMigrationsUp()
}

// AccountByEmail returns the account registered under email.
func (ms *MongoStorage) AccountByEmail(ctx context.Context, email string) (*db.Account, error) {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()
	doc := &account{}
	if err := ms.users.FindOne(ctx, bson.M{"email": email}).Decode(doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return doc.toAccount(), nil
}

// CreateAccount inserts a new account and stores the assigned id in a.ID.
func (ms *MongoStorage) CreateAccount(ctx context.Context, a *db.Account) error {
	if a == nil || a.Email == "" || a.APIKey == "" {
		return db.ErrInvalidData
	}
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()
	now := time.Now()
	doc := &account{
		ID:        primitive.NewObjectID(),
		Email:     a.Email,
		APIKey:    a.APIKey,
		Enabled:   a.Enabled,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := ms.users.InsertOne(ctx, doc); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return db.ErrAlreadyExists
		}
		return fmt.Errorf("create account: %w", err)
	}
	a.ID = doc.ID.Hex()
	return nil
}

// SetAccountEnabled flips the enabled flag of the account with the given id.
func (ms *MongoStorage) SetAccountEnabled(ctx context.Context, id string, enabled bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return db.ErrInvalidData
	}
	return ms.setEnabled(ctx, bson.M{"_id": oid}, enabled)
}

// SetAccountEnabledByEmail flips the enabled flag of the account registered under email.
func (ms *MongoStorage) SetAccountEnabledByEmail(ctx context.Context, email string, enabled bool) error {
	return ms.setEnabled(ctx, bson.M{"email": email}, enabled)
}

func (ms *MongoStorage) setEnabled(ctx context.Context, filter bson.M, enabled bool) error {
	ctx, cancel := db.WithTimeout(ctx)
	defer cancel()
	update := bson.M{"$set": bson.M{"isEnabled": enabled, "updatedAt": time.Now()}}
	res, err := ms.users.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if res.MatchedCount == 0 {
		return db.ErrNotFound
	}
	return nil
}

var _ db.Storage = (*MongoStorage)(nil)
