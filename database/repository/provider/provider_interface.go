package providerRepo

import (
	"context"
	"errors"

	"servicehub/models"
)

var ErrProviderNotFound = errors.New("provider not found")

// CandidateQuery is the rough pre-filter used to enumerate providers for a
// booking. The matching core applies the exact qualification rules.
type CandidateQuery struct {
	ServiceID string
	Area      string
	Location  models.GeoPoint
	// MaxDistanceKm is the minimum reach of the geo pre-filter. Providers
	// whose own RadiusKm covers Location are returned even when they sit
	// further away.
	MaxDistanceKm float64
}

// Directory is the read-only view of provider, offering and availability
// records consumed by matching.
type Directory interface {
	FindCandidates(ctx context.Context, q CandidateQuery) ([]models.ProviderSnapshot, error)
	GetSnapshot(ctx context.Context, providerID string) (*models.ProviderSnapshot, error)
}
