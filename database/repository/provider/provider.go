package providerRepo

import (
	"fmt"
	"strings"
	"time"

	"servicehub/models"

	"go.uber.org/zap"
)

const (
	ruleKindRecurring = "recurring"
	ruleKindOneOff    = "one_off"
)

// providerDocument is the stored shape of a provider. Verification status is
// kept as the raw string written by the review tooling.
type providerDocument struct {
	ID                 string             `bson:"id"`
	UserID             string             `bson:"userId"`
	DisplayName        string             `bson:"displayName"`
	VerificationStatus string             `bson:"verificationStatus"`
	AcceptingNewJobs   bool               `bson:"acceptingNewJobs"`
	ServiceAreas       []string           `bson:"serviceAreas"`
	RadiusKm           float64            `bson:"radiusKm"`
	LocationGeo        models.GeoPoint    `bson:"locationGeo"`
	Rating             float64            `bson:"rating"`
	CompletedJobs      int                `bson:"completedJobs"`
	AcceptanceRate     float64            `bson:"acceptanceRate"`
	TimeZone           string             `bson:"timeZone"`
	DeviceToken        string             `bson:"deviceToken"`
	Offerings          []offeringDocument `bson:"offerings"`
	Availability       []ruleDocument     `bson:"availability"`
}

type offeringDocument struct {
	ServiceID   string   `bson:"serviceId"`
	CustomPrice *float64 `bson:"customPrice,omitempty"`
	IsAvailable bool     `bson:"isAvailable"`
}

// ruleDocument stores both rule variants in one shape; Kind selects which
// fields apply. Times are minutes from midnight, dates are YYYY-MM-DD.
type ruleDocument struct {
	ID          string `bson:"id"`
	Kind        string `bson:"kind"`
	DayOfWeek   int    `bson:"dayOfWeek,omitempty"`
	StartMinute int    `bson:"startMinute"`
	EndMinute   int    `bson:"endMinute"`
	ValidFrom   string `bson:"validFrom,omitempty"`
	ValidUntil  string `bson:"validUntil,omitempty"`
	Date        string `bson:"date,omitempty"`
}

func (d ruleDocument) toRule() (models.AvailabilityRule, error) {
	start, end := models.TimeOfDay(d.StartMinute), models.TimeOfDay(d.EndMinute)
	switch strings.ToLower(d.Kind) {
	case ruleKindRecurring:
		if d.DayOfWeek < 0 || d.DayOfWeek > 6 {
			return nil, fmt.Errorf("rule %s: invalid dayOfWeek %d", d.ID, d.DayOfWeek)
		}
		from, err := models.ParseDate(d.ValidFrom)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", d.ID, err)
		}
		r := models.RecurringRule{ID: d.ID, Weekday: time.Weekday(d.DayOfWeek), Start: start, End: end, ValidFrom: from}
		if d.ValidUntil != "" {
			until, err := models.ParseDate(d.ValidUntil)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", d.ID, err)
			}
			r.ValidUntil = &until
		}
		return r, nil
	case ruleKindOneOff:
		date, err := models.ParseDate(d.Date)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", d.ID, err)
		}
		return models.OneOffRule{ID: d.ID, Date: date, Start: start, End: end}, nil
	default:
		return nil, fmt.Errorf("rule %s: unknown kind %q", d.ID, d.Kind)
	}
}

func fromRule(r models.AvailabilityRule) ruleDocument {
	start, end := r.Window()
	doc := ruleDocument{ID: r.RuleID(), StartMinute: int(start), EndMinute: int(end)}
	switch v := r.(type) {
	case models.RecurringRule:
		doc.Kind = ruleKindRecurring
		doc.DayOfWeek = int(v.Weekday)
		doc.ValidFrom = v.ValidFrom.String()
		if v.ValidUntil != nil {
			doc.ValidUntil = v.ValidUntil.String()
		}
	case models.OneOffRule:
		doc.Kind = ruleKindOneOff
		doc.Date = v.Date.String()
	}
	return doc
}

// toSnapshot converts a stored document into the matching view. Unknown
// verification values fall back to pending; undecodable rules are dropped.
// Both are logged.
func (d providerDocument) toSnapshot(logger *zap.Logger) models.ProviderSnapshot {
	status, ok := models.NormalizeVerificationStatus(d.VerificationStatus)
	if !ok {
		logger.Warn("unrecognised verification status, treating as pending",
			zap.String("providerID", d.ID), zap.String("raw", d.VerificationStatus))
	}

	snap := models.ProviderSnapshot{
		Provider: models.Provider{
			ID:               d.ID,
			UserID:           d.UserID,
			DisplayName:      d.DisplayName,
			Verification:     status,
			AcceptingNewJobs: d.AcceptingNewJobs,
			ServiceAreas:     d.ServiceAreas,
			RadiusKm:         d.RadiusKm,
			LocationGeo:      d.LocationGeo,
			Rating:           d.Rating,
			CompletedJobs:    d.CompletedJobs,
			AcceptanceRate:   d.AcceptanceRate,
			TimeZone:         d.TimeZone,
			DeviceToken:      d.DeviceToken,
		},
	}
	for _, o := range d.Offerings {
		snap.Offerings = append(snap.Offerings, models.ServiceOffering{
			ProviderID:  d.ID,
			ServiceID:   o.ServiceID,
			CustomPrice: o.CustomPrice,
			IsAvailable: o.IsAvailable,
		})
	}
	for _, rd := range d.Availability {
		rule, err := rd.toRule()
		if err != nil {
			logger.Warn("dropping undecodable availability rule", zap.String("providerID", d.ID), zap.Error(err))
			continue
		}
		snap.Rules = append(snap.Rules, rule)
	}
	return snap
}

// newProviderDocument is the inverse of toSnapshot, used for seeding.
func newProviderDocument(s models.ProviderSnapshot) providerDocument {
	p := s.Provider
	doc := providerDocument{
		ID:                 p.ID,
		UserID:             p.UserID,
		DisplayName:        p.DisplayName,
		VerificationStatus: string(p.Verification),
		AcceptingNewJobs:   p.AcceptingNewJobs,
		ServiceAreas:       p.ServiceAreas,
		RadiusKm:           p.RadiusKm,
		LocationGeo:        p.LocationGeo,
		Rating:             p.Rating,
		CompletedJobs:      p.CompletedJobs,
		AcceptanceRate:     p.AcceptanceRate,
		TimeZone:           p.TimeZone,
		DeviceToken:        p.DeviceToken,
	}
	for _, o := range s.Offerings {
		doc.Offerings = append(doc.Offerings, offeringDocument{ServiceID: o.ServiceID, CustomPrice: o.CustomPrice, IsAvailable: o.IsAvailable})
	}
	for _, r := range s.Rules {
		doc.Availability = append(doc.Availability, fromRule(r))
	}
	return doc
}
