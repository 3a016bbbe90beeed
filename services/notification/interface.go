package notification

import (
	"context"
	"fmt"
	"strconv"
	"time"

	providerRepo "servicehub/database/repository/provider"
	"servicehub/models"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// OfferNotifier delivers an offer to the provider's device. Delivery is fire
// and forget; the provider's answer comes back through the offer response API.
type OfferNotifier interface {
	NotifyOffer(ctx context.Context, offer models.MatchOffer) error
}

// MessageSender is the part of *messaging.Client the notifier uses.
type MessageSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMOfferNotifier pushes offers through Firebase Cloud Messaging.
type FCMOfferNotifier struct {
	sender    MessageSender
	directory providerRepo.Directory
	logger    *zap.Logger
}

func NewFCMOfferNotifier(sender MessageSender, directory providerRepo.Directory, logger *zap.Logger) (*FCMOfferNotifier, error) {
	if sender == nil || directory == nil {
		return nil, fmt.Errorf("notification service initialization error: sender or directory is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FCMOfferNotifier{
		sender:    sender,
		directory: directory,
		logger:    logger.With(zap.String("service", "offer_notifier")),
	}, nil
}

func (n *FCMOfferNotifier) NotifyOffer(ctx context.Context, offer models.MatchOffer) error {
	snap, err := n.directory.GetSnapshot(ctx, offer.ProviderID)
	if err != nil {
		return fmt.Errorf("NotifyOffer: could not find provider %s: %w", offer.ProviderID, err)
	}
	token := snap.Provider.DeviceToken
	if token == "" {
		return fmt.Errorf("NotifyOffer: provider %s has no FCM token", offer.ProviderID)
	}

	msg := offerMessage(token, offer)
	id, err := n.sender.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("NotifyOffer: failed to send FCM message: %w", err)
	}
	n.logger.Debug("offer pushed",
		zap.String("offerID", offer.ID),
		zap.String("providerID", offer.ProviderID),
		zap.String("messageID", id))
	return nil
}

func offerMessage(token string, offer models.MatchOffer) *messaging.Message {
	ttl := time.Until(offer.ExpiresAt)
	if ttl < 0 {
		ttl = 0
	}
	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: "New job request",
			Body:  "A customer near you needs your service. Respond before the offer expires.",
		},
		Data: map[string]string{
			"type":      "match_offer",
			"role":      "provider",
			"offerId":   offer.ID,
			"bookingId": offer.BookingID,
			"rank":      strconv.Itoa(offer.Rank),
			"expiresAt": offer.ExpiresAt.UTC().Format(time.RFC3339),
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			TTL:      &ttl,
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority":   "10",
				"apns-push-type":  "alert",
				"apns-expiration": strconv.FormatInt(offer.ExpiresAt.Unix(), 10),
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound: "default",
				},
			},
		},
	}
}

// LogNotifier only logs offers. Used when no push credentials are configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) NotifyOffer(_ context.Context, offer models.MatchOffer) error {
	if n.Logger != nil {
		n.Logger.Info("offer issued",
			zap.String("offerID", offer.ID),
			zap.String("bookingID", offer.BookingID),
			zap.String("providerID", offer.ProviderID),
			zap.Time("expiresAt", offer.ExpiresAt))
	}
	return nil
}
