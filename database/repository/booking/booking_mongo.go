package bookingRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"servicehub/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 5 * time.Second

// MongoBookingStore implements BookingStore on MongoDB. Compare-and-set is a
// FindOneAndUpdate filtered on the expected status, so the check and the log
// append are one server-side operation.
type MongoBookingStore struct {
	bookingColl *mongo.Collection
	offerColl   *mongo.Collection
}

// NewMongoBookingStore returns a store backed by the "bookings" and
// "match_offers" collections of db.
func NewMongoBookingStore(db *mongo.Database) *MongoBookingStore {
	return &MongoBookingStore{
		bookingColl: db.Collection("bookings"),
		offerColl:   db.Collection("match_offers"),
	}
}

func (r *MongoBookingStore) Create(ctx context.Context, booking *models.Booking) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if booking.Transitions == nil {
		booking.Transitions = []models.TransitionRecord{}
	}
	if _, err := r.bookingColl.InsertOne(ctx, booking); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("booking %s: %w", booking.ID, ErrDuplicateID)
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *MongoBookingStore) Get(ctx context.Context, id string) (*models.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var b models.Booking
	if err := r.bookingColl.FindOne(ctx, bson.M{"id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("failed to fetch booking %s: %w", id, err)
	}
	return &b, nil
}

func (r *MongoBookingStore) Transition(ctx context.Context, id string, expected, next models.BookingStatus, meta TransitionMeta) (*models.Booking, error) {
	if err := models.ValidateTransition(expected, next); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	set := bson.M{"status": next, "updatedAt": meta.At}
	if next == models.BookingAssigned && meta.ProviderID != "" {
		set["providerId"] = meta.ProviderID
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"transitions": transitionRecord(expected, next, meta)},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Booking
	err := r.bookingColl.FindOneAndUpdate(ctx, bson.M{"id": id, "status": expected}, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to transition booking %s: %w", id, err)
	}

	// Nothing matched: either the booking is gone or its status moved on.
	current, getErr := r.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, &ConflictError{BookingID: id, Expected: expected, Actual: current.Status}
}

func (r *MongoBookingStore) RecordAttempt(ctx context.Context, id, outcome string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	update := bson.M{
		"$inc": bson.M{"matchAttempts": 1},
		"$set": bson.M{"lastOutcome": outcome, "updatedAt": at},
	}
	res, err := r.bookingColl.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to record match attempt for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("booking %s: %w", id, ErrBookingNotFound)
	}
	return nil
}

func (r *MongoBookingStore) SaveOffer(ctx context.Context, offer *models.MatchOffer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := r.offerColl.InsertOne(ctx, offer); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("offer %s: %w", offer.ID, ErrDuplicateID)
		}
		return fmt.Errorf("failed to save offer: %w", err)
	}
	return nil
}

func (r *MongoBookingStore) GetOffer(ctx context.Context, id string) (*models.MatchOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	var o models.MatchOffer
	if err := r.offerColl.FindOne(ctx, bson.M{"id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("offer %s: %w", id, ErrOfferNotFound)
		}
		return nil, fmt.Errorf("failed to fetch offer %s: %w", id, err)
	}
	return &o, nil
}

func (r *MongoBookingStore) ResolveOffer(ctx context.Context, id string, expected, next models.OfferState, at time.Time) (*models.MatchOffer, error) {
	if err := validateOfferMove(id, expected, next); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"state": next, "resolvedAt": at}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.MatchOffer
	err := r.offerColl.FindOneAndUpdate(ctx, bson.M{"id": id, "state": expected}, update, opts).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to resolve offer %s: %w", id, err)
	}
	current, getErr := r.GetOffer(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, &OfferConflictError{OfferID: id, Expected: expected, Actual: current.State}
}

func (r *MongoBookingStore) ListOffers(ctx context.Context, bookingID string) ([]models.MatchOffer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	opts := options.Find().SetSort(bson.D{{Key: "offeredAt", Value: 1}})
	cursor, err := r.offerColl.Find(ctx, bson.M{"bookingId": bookingID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers for %s: %w", bookingID, err)
	}
	defer cursor.Close(ctx)

	var offers []models.MatchOffer
	for cursor.Next(ctx) {
		var o models.MatchOffer
		if err := cursor.Decode(&o); err != nil {
			return nil, fmt.Errorf("failed to decode offer: %w", err)
		}
		offers = append(offers, o)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	return offers, nil
}

func (r *MongoBookingStore) PruneOffers(ctx context.Context, bookingID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if _, err := r.offerColl.DeleteMany(ctx, bson.M{"bookingId": bookingID}); err != nil {
		return fmt.Errorf("failed to prune offers for %s: %w", bookingID, err)
	}
	return nil
}
