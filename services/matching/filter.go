package matching

import (
	"servicehub/models"
	"servicehub/services/availability"

	"go.uber.org/zap"
)

// Candidate is a provider that passed every qualification filter.
type Candidate struct {
	Provider models.Provider
	Offering models.ServiceOffering
	// DistanceKm is negative when either side has no usable coordinates.
	DistanceKm float64
}

// CandidateFilter narrows a provider pool down to qualified candidates.
type CandidateFilter struct {
	Resolver *availability.Resolver
	Distance DistanceFunc
	Logger   *zap.Logger
}

func NewCandidateFilter(resolver *availability.Resolver, distance DistanceFunc, logger *zap.Logger) *CandidateFilter {
	if distance == nil {
		distance = Haversine
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CandidateFilter{
		Resolver: resolver,
		Distance: distance,
		Logger:   logger.With(zap.String("service", "candidate_filter")),
	}
}

// Filter applies the qualification checks cheapest first:
//  1. accepting new jobs, verified, meets the minimum rating
//  2. has an available offering for the requested service
//  3. serves the requested area or is within its radius of the location
//  4. the requested window lies inside one resolved availability interval
//
// The result preserves pool order and is not ranked.
func (f *CandidateFilter) Filter(req models.BookingRequest, pool []models.ProviderSnapshot) []Candidate {
	window := req.Window()
	if window.Empty() {
		return nil
	}

	var out []Candidate
	for _, snap := range pool {
		p := snap.Provider
		if !p.AcceptingNewJobs || p.Verification != models.VerificationVerified {
			continue
		}
		if req.MinRating > 0 && p.Rating < req.MinRating {
			continue
		}

		offering, ok := snap.Offering(req.ServiceID)
		if !ok {
			continue
		}

		dist := -1.0
		if p.LocationGeo.Valid() && req.Location.Point.Valid() {
			dist = f.Distance(req.Location.Point, p.LocationGeo)
		}
		inRadius := dist >= 0 && p.RadiusKm > 0 && dist <= p.RadiusKm
		if !p.ServesArea(req.Location.Area) && !inRadius {
			continue
		}

		intervals, err := f.Resolver.Resolve(snap, window.Start, window.End)
		if err != nil {
			// Bad rules only cost this provider the excluded windows.
			f.Logger.Warn("availability resolved with excluded rules",
				zap.String("providerID", p.ID), zap.Error(err))
		}
		if !availability.Available(intervals, window) {
			continue
		}

		out = append(out, Candidate{Provider: p, Offering: offering, DistanceKm: dist})
	}
	return out
}
