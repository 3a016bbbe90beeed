package models

import (
	"strings"
)

// GeoPoint represents a GeoJSON Point.
type GeoPoint struct {
	Type        string    `bson:"type" json:"type"`               // Always "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"` // [longitude, latitude]
}

// NewGeoPoint builds a GeoJSON point from latitude and longitude.
func NewGeoPoint(lat, lon float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}

func (g GeoPoint) Valid() bool {
	return len(g.Coordinates) >= 2
}

func (g GeoPoint) Lon() float64 {
	if !g.Valid() {
		return 0
	}
	return g.Coordinates[0]
}

func (g GeoPoint) Lat() float64 {
	if !g.Valid() {
		return 0
	}
	return g.Coordinates[1]
}

// VerificationStatus is the outcome of the provider document review.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// NormalizeVerificationStatus maps the free-form status stored on provider
// records onto the closed set. The second return value is false when the raw
// value was not recognised and the result defaulted to pending.
func NormalizeVerificationStatus(raw string) (VerificationStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "verified", "approved":
		return VerificationVerified, true
	case "rejected", "denied":
		return VerificationRejected, true
	case "pending", "", "in_review", "submitted":
		return VerificationPending, true
	default:
		return VerificationPending, false
	}
}

// Provider is the read-only snapshot of a provider used for matching.
type Provider struct {
	ID               string             `bson:"id" json:"id"`
	UserID           string             `bson:"userId" json:"userId"`
	DisplayName      string             `bson:"displayName" json:"displayName,omitempty"`
	Verification     VerificationStatus `bson:"verificationStatus" json:"verificationStatus"`
	AcceptingNewJobs bool               `bson:"acceptingNewJobs" json:"acceptingNewJobs"`
	ServiceAreas     []string           `bson:"serviceAreas" json:"serviceAreas,omitempty"`
	RadiusKm         float64            `bson:"radiusKm" json:"radiusKm"`
	LocationGeo      GeoPoint           `bson:"locationGeo" json:"locationGeo"`
	Rating           float64            `bson:"rating" json:"rating"`
	CompletedJobs    int                `bson:"completedJobs" json:"completedJobs"`
	AcceptanceRate   float64            `bson:"acceptanceRate" json:"acceptanceRate,omitempty"` // 0.0-1.0
	TimeZone         string             `bson:"timeZone" json:"timeZone,omitempty"`
	DeviceToken      string             `bson:"deviceToken" json:"-"`
}

// ServesArea reports whether the area is one of the provider's declared service areas.
func (p Provider) ServesArea(area string) bool {
	if area == "" {
		return false
	}
	for _, a := range p.ServiceAreas {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(area)) {
			return true
		}
	}
	return false
}

// ServiceOffering pairs a provider with a service it performs.
type ServiceOffering struct {
	ProviderID  string   `bson:"providerId" json:"providerId"`
	ServiceID   string   `bson:"serviceId" json:"serviceId"`
	CustomPrice *float64 `bson:"customPrice,omitempty" json:"customPrice,omitempty"`
	IsAvailable bool     `bson:"isAvailable" json:"isAvailable"`
}

// ProviderSnapshot bundles everything the matching core reads about one provider.
type ProviderSnapshot struct {
	Provider  Provider
	Offerings []ServiceOffering
	Rules     []AvailabilityRule
}

// Offering returns the available offering for the service, if any.
func (s ProviderSnapshot) Offering(serviceID string) (ServiceOffering, bool) {
	for _, o := range s.Offerings {
		if o.ServiceID == serviceID && o.IsAvailable {
			return o, true
		}
	}
	return ServiceOffering{}, false
}
