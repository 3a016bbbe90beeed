package providerRepo

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ensureIndexes creates indexes for the candidate query.
func (r *MongoDirectory) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "locationGeo", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "offerings.serviceId", Value: 1}, {Key: "acceptingNewJobs", Value: 1}}},
		{Keys: bson.D{{Key: "serviceAreas", Value: 1}}},
		{Keys: bson.D{{Key: "radiusKm", Value: -1}}},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func regexQuote(s string) string {
	return regexp.QuoteMeta(s)
}
