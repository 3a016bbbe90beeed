package matching

import (
	"math"
	"sort"

	"servicehub/models"
)

// Weights configures the ranking score. Each term is normalized to [0, 1]
// before weighting.
type Weights struct {
	Rating     float64
	Distance   float64
	Completion float64
	Acceptance float64
}

// DefaultWeights favours rating, then proximity, then experience.
func DefaultWeights() Weights {
	return Weights{Rating: 0.5, Distance: 0.3, Completion: 0.2, Acceptance: 0}
}

// RankedCandidate is a candidate with its computed score.
type RankedCandidate struct {
	Candidate
	Score float64
}

// Ranker orders candidates best first. It holds no state beyond its weights.
type Ranker struct {
	Weights Weights
}

func NewRanker(w Weights) *Ranker {
	return &Ranker{Weights: w}
}

// Rank scores and orders candidates. Ties on score go to the provider with
// more completed jobs, then to the lower provider id. The input slice is not
// modified.
func (r *Ranker) Rank(candidates []Candidate, req models.BookingRequest) []RankedCandidate {
	if len(candidates) == 0 {
		return nil
	}

	minDist, maxDist := -1.0, -1.0
	for _, c := range candidates {
		if c.DistanceKm < 0 {
			continue
		}
		if minDist < 0 || c.DistanceKm < minDist {
			minDist = c.DistanceKm
		}
		if c.DistanceKm > maxDist {
			maxDist = c.DistanceKm
		}
	}

	ranked := make([]RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedCandidate{Candidate: c, Score: r.score(c, minDist, maxDist)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Provider.CompletedJobs != b.Provider.CompletedJobs {
			return a.Provider.CompletedJobs > b.Provider.CompletedJobs
		}
		return a.Provider.ID < b.Provider.ID
	})
	return ranked
}

func (r *Ranker) score(c Candidate, minDist, maxDist float64) float64 {
	w := r.Weights
	return w.Rating*normalizeRating(c.Provider.Rating) +
		w.Distance*(1-normalizeDistance(c.DistanceKm, minDist, maxDist)) +
		w.Completion*completionProxy(c.Provider.CompletedJobs) +
		w.Acceptance*clamp01(c.Provider.AcceptanceRate)
}

func normalizeRating(rating float64) float64 {
	return clamp01(rating / 5)
}

// normalizeDistance min-max scales d across the candidate set, so the
// nearest candidate gets 0 and the farthest 1. Unknown distances count as
// farthest; equal distances all get 0.
func normalizeDistance(d, minDist, maxDist float64) float64 {
	if d < 0 {
		return 1
	}
	if maxDist <= minDist {
		return 0
	}
	return clamp01((d - minDist) / (maxDist - minDist))
}

// completionProxy grows logarithmically and saturates at 100 completed jobs.
func completionProxy(completed int) float64 {
	if completed <= 0 {
		return 0
	}
	return clamp01(math.Log10(float64(completed+1)) / math.Log10(101))
}

func clamp01(v float64) float64 {
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
