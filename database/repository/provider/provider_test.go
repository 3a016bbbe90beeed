package providerRepo

import (
	"context"
	"testing"
	"time"

	"servicehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRuleDocument_RoundTrip(t *testing.T) {
	until := models.NewDate(2025, time.June, 1)
	rules := []models.AvailabilityRule{
		models.RecurringRule{ID: "r1", Weekday: time.Monday, Start: models.Clock(9, 0), End: models.Clock(12, 0),
			ValidFrom: models.NewDate(2025, time.January, 1), ValidUntil: &until},
		models.RecurringRule{ID: "r2", Weekday: time.Sunday, Start: models.Clock(22, 0), End: models.Clock(2, 0),
			ValidFrom: models.NewDate(2025, time.January, 1)},
		models.OneOffRule{ID: "o1", Date: models.NewDate(2025, time.March, 3), Start: models.Clock(11, 0), End: models.Clock(13, 0)},
	}
	for _, r := range rules {
		got, err := fromRule(r).toRule()
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestRuleDocument_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  ruleDocument
	}{
		{"unknown kind", ruleDocument{ID: "x", Kind: "fortnightly"}},
		{"bad weekday", ruleDocument{ID: "x", Kind: ruleKindRecurring, DayOfWeek: 9, ValidFrom: "2025-01-01"}},
		{"missing validFrom", ruleDocument{ID: "x", Kind: ruleKindRecurring}},
		{"bad validUntil", ruleDocument{ID: "x", Kind: ruleKindRecurring, ValidFrom: "2025-01-01", ValidUntil: "soon"}},
		{"one-off without date", ruleDocument{ID: "x", Kind: ruleKindOneOff}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.doc.toRule()
			assert.Error(t, err)
		})
	}
}

func TestProviderDocument_NormalizesVerification(t *testing.T) {
	tests := []struct {
		raw  string
		want models.VerificationStatus
	}{
		{"verified", models.VerificationVerified},
		{" Approved ", models.VerificationVerified},
		{"REJECTED", models.VerificationRejected},
		{"", models.VerificationPending},
		{"something-else", models.VerificationPending},
	}
	for _, tt := range tests {
		doc := providerDocument{ID: "p1", VerificationStatus: tt.raw}
		snap := doc.toSnapshot(zap.NewNop())
		assert.Equal(t, tt.want, snap.Provider.Verification, "raw %q", tt.raw)
	}
}

func TestProviderDocument_DropsUndecodableRules(t *testing.T) {
	doc := providerDocument{
		ID:        "p1",
		Offerings: []offeringDocument{{ServiceID: "cleaning", IsAvailable: true}},
		Availability: []ruleDocument{
			{ID: "good", Kind: ruleKindOneOff, Date: "2025-03-03", StartMinute: 540, EndMinute: 600},
			{ID: "bad", Kind: "???"},
		},
	}
	snap := doc.toSnapshot(zap.NewNop())
	require.Len(t, snap.Rules, 1)
	assert.Equal(t, "good", snap.Rules[0].RuleID())
	off, ok := snap.Offering("cleaning")
	require.True(t, ok)
	assert.Equal(t, "p1", off.ProviderID)
}

func fixture(id, area string, point models.GeoPoint, rating float64) models.ProviderSnapshot {
	return models.ProviderSnapshot{
		Provider: models.Provider{
			ID: id, AcceptingNewJobs: true, ServiceAreas: []string{area},
			LocationGeo: point, Rating: rating,
		},
		Offerings: []models.ServiceOffering{{ProviderID: id, ServiceID: "cleaning", IsAvailable: true}},
	}
}

func TestMemoryDirectory_FindCandidates(t *testing.T) {
	cbd := models.NewGeoPoint(-1.2864, 36.8172)
	dir := NewMemoryDirectory(
		fixture("near", "Kilimani", models.NewGeoPoint(-1.2921, 36.7856), 4.2),
		fixture("area", "Westlands", models.NewGeoPoint(-3.3969, 38.5561), 4.8),
		fixture("far", "Mombasa", models.NewGeoPoint(-4.0435, 39.6682), 5.0),
	)
	paused := fixture("paused", "Westlands", cbd, 4.9)
	paused.Provider.AcceptingNewJobs = false
	dir.Put(paused)

	got, err := dir.FindCandidates(context.Background(), CandidateQuery{
		ServiceID: "cleaning", Area: "westlands", Location: cbd, MaxDistanceKm: 15,
	})
	require.NoError(t, err)
	var ids []string
	for _, s := range got {
		ids = append(ids, s.Provider.ID)
	}
	assert.Equal(t, []string{"area", "near"}, ids)

	none, err := dir.FindCandidates(context.Background(), CandidateQuery{ServiceID: "plumbing"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = dir.GetSnapshot(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrProviderNotFound)
}

func TestMemoryDirectory_FindCandidates_ProviderRadiusBeyondSearchRadius(t *testing.T) {
	customer := models.NewGeoPoint(-1.2864, 36.8172)
	// About 40 km north of the customer.
	wide := fixture("wide", "Thika", models.NewGeoPoint(-0.9230, 36.8172), 4.7)
	wide.Provider.RadiusKm = 50
	narrow := fixture("narrow", "Thika", models.NewGeoPoint(-0.9230, 36.8172), 4.9)
	narrow.Provider.RadiusKm = 20
	dir := NewMemoryDirectory(wide, narrow)

	got, err := dir.FindCandidates(context.Background(), CandidateQuery{
		ServiceID: "cleaning", Area: "Westlands", Location: customer, MaxDistanceKm: 25,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "wide", got[0].Provider.ID)
}

func TestNewProviderDocument_ReadsBack(t *testing.T) {
	snap := fixture("p1", "Westlands", models.NewGeoPoint(-1.2670, 36.8030), 4.6)
	snap.Provider.Verification = models.VerificationVerified
	snap.Provider.TimeZone = "Africa/Nairobi"
	snap.Rules = []models.AvailabilityRule{
		models.OneOffRule{ID: "o1", Date: models.NewDate(2025, time.March, 3), Start: models.Clock(8, 0), End: models.Clock(10, 0)},
	}

	got := newProviderDocument(snap).toSnapshot(zap.NewNop())
	assert.Equal(t, snap, got)
}
