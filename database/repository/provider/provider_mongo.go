package providerRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servicehub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoDirectory reads provider snapshots from the "providers" collection.
type MongoDirectory struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

func NewMongoDirectory(db *mongo.Database, logger *zap.Logger) *MongoDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	repo := &MongoDirectory{
		coll:   db.Collection("providers"),
		logger: logger.With(zap.String("repo", "provider_directory")),
	}
	if err := repo.ensureIndexes(); err != nil {
		repo.logger.Warn("failed to create provider indexes", zap.Error(err))
	}
	return repo
}

func (r *MongoDirectory) GetSnapshot(ctx context.Context, providerID string) (*models.ProviderSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var doc providerDocument
	if err := r.coll.FindOne(ctx, bson.M{"id": providerID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("provider %s: %w", providerID, ErrProviderNotFound)
		}
		return nil, fmt.Errorf("failed to fetch provider with id %s: %w", providerID, err)
	}
	snap := doc.toSnapshot(r.logger)
	return &snap, nil
}

// Upsert writes a provider snapshot for seeding. The provider-management
// service owns the real write path.
func (r *MongoDirectory) Upsert(ctx context.Context, snap models.ProviderSnapshot) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	doc := newProviderDocument(snap)
	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert provider %s: %w", doc.ID, err)
	}
	return nil
}
