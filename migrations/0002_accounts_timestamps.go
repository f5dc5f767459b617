package migrations

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func init() {
	AddMigration(2, "accounts_timestamps", upAccountsTimestamps, downAccountsTimestamps)
}

// upAccountsTimestamps backfills createdAt and updatedAt on accounts written
// before the store tracked them.
func upAccountsTimestamps(ctx context.Context, database *mongo.Database) error {
	users := database.Collection(UsersCollection)
	now := time.Now()
	for _, field := range []string{"createdAt", "updatedAt"} {
		filter := bson.M{field: bson.M{"$exists": false}}
		if _, err := users.UpdateMany(ctx, filter, bson.M{"$set": bson.M{field: now}}); err != nil {
			return fmt.Errorf("failed to backfill %s on users: %w", field, err)
		}
	}
	return nil
}

// downAccountsTimestamps is a no-op, the backfilled values are harmless.
func downAccountsTimestamps(context.Context, *mongo.Database) error {
	return nil
}
