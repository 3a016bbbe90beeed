package providerRepo

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"servicehub/models"
)

// MemoryDirectory serves fixed snapshots. It applies the same rough
// pre-filter as MongoDirectory.
type MemoryDirectory struct {
	mu        sync.RWMutex
	snapshots map[string]models.ProviderSnapshot
}

func NewMemoryDirectory(snaps ...models.ProviderSnapshot) *MemoryDirectory {
	d := &MemoryDirectory{snapshots: make(map[string]models.ProviderSnapshot)}
	for _, s := range snaps {
		d.snapshots[s.Provider.ID] = s
	}
	return d
}

// Put replaces a provider snapshot, simulating the provider-management writer.
func (d *MemoryDirectory) Put(s models.ProviderSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshots[s.Provider.ID] = s
}

func (d *MemoryDirectory) GetSnapshot(ctx context.Context, providerID string) (*models.ProviderSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.snapshots[providerID]
	if !ok {
		return nil, fmt.Errorf("provider %s: %w", providerID, ErrProviderNotFound)
	}
	return &s, nil
}

func (d *MemoryDirectory) FindCandidates(ctx context.Context, q CandidateQuery) ([]models.ProviderSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []models.ProviderSnapshot
	for _, s := range d.snapshots {
		if !s.Provider.AcceptingNewJobs {
			continue
		}
		if _, ok := s.Offering(q.ServiceID); !ok {
			continue
		}
		if !inReach(s.Provider, q) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Provider.Rating != out[j].Provider.Rating {
			return out[i].Provider.Rating > out[j].Provider.Rating
		}
		return out[i].Provider.ID < out[j].Provider.ID
	})
	return out, nil
}

func inReach(p models.Provider, q CandidateQuery) bool {
	if q.Area == "" && !q.Location.Valid() {
		return true
	}
	if q.Area != "" && p.ServesArea(q.Area) {
		return true
	}
	if !q.Location.Valid() || !p.LocationGeo.Valid() {
		return false
	}
	// A provider whose own radius covers the location is in reach even
	// beyond MaxDistanceKm.
	return sphericalKm(q.Location, p.LocationGeo) <= math.Max(q.MaxDistanceKm, p.RadiusKm)
}

func sphericalKm(a, b models.GeoPoint) float64 {
	toRad := math.Pi / 180
	lat1, lat2 := a.Lat()*toRad, b.Lat()*toRad
	dLat := lat2 - lat1
	dLon := (b.Lon() - a.Lon()) * toRad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
