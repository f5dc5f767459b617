package migrations

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func init() {
	AddMigration(1, "accounts_indexes", upAccountsIndexes, downAccountsIndexes)
}

const (
	emailIndex  = "email_unique"
	apiKeyIndex = "apiKey_unique"
)

// upAccountsIndexes makes email and apiKey unique. The email index is what
// serializes concurrent provisioning of the same customer.
func upAccountsIndexes(ctx context.Context, database *mongo.Database) error {
	users := database.Collection(UsersCollection)
	if _, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}}, // 1 for ascending order
			Options: options.Index().SetUnique(true).SetName(emailIndex),
		},
		{
			Keys:    bson.D{{Key: "apiKey", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(apiKeyIndex),
		},
	}); err != nil {
		return fmt.Errorf("failed to create indexes on users: %w", err)
	}
	return nil
}

func downAccountsIndexes(ctx context.Context, database *mongo.Database) error {
	users := database.Collection(UsersCollection)
	for _, name := range []string{emailIndex, apiKeyIndex} {
		if _, err := users.Indexes().DropOne(ctx, name); err != nil {
			return fmt.Errorf("failed to drop index %s on users: %w", name, err)
		}
	}
	return nil
}
