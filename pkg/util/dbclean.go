package util

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoCleanup drops dbName, used between test cases.
func MongoCleanup(ctx context.Context, mongodbClient *mongo.Client, dbName string) error {
	return mongodbClient.Database(dbName).Drop(ctx)
}
