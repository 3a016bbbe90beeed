package providerRepo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"servicehub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const earthRadiusKm = 6378.1

// FindCandidates returns providers offering the service that either declare
// the requested area or sit inside the search radius. Verification and
// availability are not filtered here.
func (r *MongoDirectory) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.ProviderSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{
		"acceptingNewJobs": true,
		"offerings": bson.M{"$elemMatch": bson.M{
			"serviceId":   q.ServiceID,
			"isAvailable": true,
		}},
	}

	var reach bson.A
	if q.Area != "" {
		reach = append(reach, bson.M{"serviceAreas": bson.M{"$regex": "^" + regexQuote(q.Area) + "$", "$options": "i"}})
	}
	if q.Location.Valid() {
		// The sphere must reach the provider with the widest coverage, so
		// nobody whose own radius covers the location is cut off.
		widest, err := r.widestRadiusKm(ctx, filter)
		if err != nil {
			return nil, err
		}
		if radius := math.Max(q.MaxDistanceKm, widest); radius > 0 {
			// $geoWithin works inside $or, unlike $nearSphere.
			reach = append(reach, bson.M{"locationGeo": bson.M{
				"$geoWithin": bson.M{
					"$centerSphere": bson.A{
						bson.A{q.Location.Lon(), q.Location.Lat()},
						math.Min(radius/earthRadiusKm, math.Pi),
					},
				},
			}})
		}
	}
	if len(reach) > 0 {
		filter["$or"] = reach
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "id", Value: 1}}).
		SetLimit(200)

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("candidate query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []providerDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode providers: %w", err)
	}

	snaps := make([]models.ProviderSnapshot, 0, len(docs))
	for _, d := range docs {
		snaps = append(snaps, d.toSnapshot(r.logger))
	}
	return snaps, nil
}

// widestRadiusKm is the largest coverage radius among providers matching
// base.
func (r *MongoDirectory) widestRadiusKm(ctx context.Context, base bson.M) (float64, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "radiusKm", Value: -1}}).
		SetProjection(bson.M{"radiusKm": 1})

	var doc struct {
		RadiusKm float64 `bson:"radiusKm"`
	}
	err := r.coll.FindOne(ctx, base, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("coverage radius query failed: %w", err)
	}
	return doc.RadiusKm, nil
}
