package availability

import (
	"errors"
	"testing"
	"time"

	"servicehub/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-03-03 is a Monday.
var monday = models.NewDate(2025, time.March, 3)

func at(d models.Date, hour, minute int) time.Time {
	return d.At(models.Clock(hour, minute), time.UTC)
}

func dayRange(d models.Date) (time.Time, time.Time) {
	return at(d, 0, 0), at(d.AddDays(1), 0, 0)
}

func snapshotWith(rules ...models.AvailabilityRule) models.ProviderSnapshot {
	return models.ProviderSnapshot{
		Provider: models.Provider{ID: "prov-1"},
		Rules:    rules,
	}
}

func recurring(id string, wd time.Weekday, start, end models.TimeOfDay) models.RecurringRule {
	return models.RecurringRule{ID: id, Weekday: wd, Start: start, End: end, ValidFrom: monday.AddDays(-30)}
}

func assertDisjointSorted(t *testing.T, ivs []models.Interval) {
	t.Helper()
	for i, iv := range ivs {
		assert.True(t, iv.End.After(iv.Start), "interval %d is empty", i)
		if i > 0 {
			assert.True(t, iv.Start.After(ivs[i-1].End), "intervals %d and %d overlap or touch", i-1, i)
		}
	}
}

func TestResolve_RecurringAndOneOffMerge(t *testing.T) {
	r := NewResolver(SplitOvernight, nil)
	snap := snapshotWith(
		recurring("weekly", time.Monday, models.Clock(9, 0), models.Clock(12, 0)),
		models.OneOffRule{ID: "extra", Date: monday, Start: models.Clock(11, 0), End: models.Clock(13, 0)},
	)

	from, to := dayRange(monday)
	ivs, err := r.Resolve(snap, from, to)
	require.NoError(t, err)
	require.Len(t, ivs, 1)
	assert.Equal(t, at(monday, 9, 0), ivs[0].Start)
	assert.Equal(t, at(monday, 13, 0), ivs[0].End)
}

func TestResolve_ZeroRules(t *testing.T) {
	r := NewResolver(SplitOvernight, nil)
	from, to := dayRange(monday)
	ivs, err := r.Resolve(snapshotWith(), from, to)
	assert.NoError(t, err)
	assert.Empty(t, ivs)
	assert.False(t, Available(ivs, models.Interval{Start: at(monday, 10, 0), End: at(monday, 11, 0)}))
}

func TestResolve_AdjacentIntervalsCoalesce(t *testing.T) {
	r := NewResolver(SplitOvernight, nil)
	snap := snapshotWith(
		recurring("a", time.Monday, models.Clock(9, 0), models.Clock(10, 0)),
		recurring("b", time.Monday, models.Clock(10, 0), models.Clock(11, 0)),
		recurring("c", time.Monday, models.Clock(14, 0), models.Clock(15, 0)),
	)
	from, to := dayRange(monday)
	ivs, err := r.Resolve(snap, from, to)
	require.NoError(t, err)
	require.Len(t, ivs, 2)
	assert.Equal(t, at(monday, 9, 0), ivs[0].Start)
	assert.Equal(t, at(monday, 11, 0), ivs[0].End)
	assert.Equal(t, at(monday, 14, 0), ivs[1].Start)
}

func TestResolve_DisjointAndSortedAcrossWeeks(t *testing.T) {
	r := NewResolver(SplitOvernight, nil)
	var rules []models.AvailabilityRule
	// Deliberately overlapping rules over every weekday plus scattered one-offs.
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		base := int(wd) * 30
		rules = append(rules,
			recurring("r1", wd, models.TimeOfDay(480+base), models.TimeOfDay(720+base)),
			recurring("r2", wd, models.TimeOfDay(700+base), models.TimeOfDay(900)),
			recurring("r3", wd, models.TimeOfDay(1000), models.TimeOfDay(1100)),
		)
	}
	for i := 0; i < 10; i++ {
		d := monday.AddDays(i * 2)
		rules = append(rules, models.OneOffRule{ID: "o", Date: d, Start: models.TimeOfDay(600 + i*40), End: models.TimeOfDay(1020 + i*10)})
	}
	rules = append(rules, recurring("night", time.Friday, models.Clock(22, 0), models.Clock(2, 0)))

	from := at(monday, 0, 0)
	to := at(monday.AddDays(21), 0, 0)
	ivs, err := r.Resolve(snapshotWith(rules...), from, to)
	require.NoError(t, err)
	require.NotEmpty(t, ivs)
	assertDisjointSorted(t, ivs)
	for _, iv := range ivs {
		assert.False(t, iv.Start.Before(from))
		assert.False(t, iv.End.After(to))
	}
}

func TestResolve_ValidityWindow(t *testing.T) {
	r := NewResolver(SplitOvernight, nil)
	until := monday.AddDays(7)
	rule := models.RecurringRule{
		ID: "bounded", Weekday: time.Monday,
		Start: models.Clock(9, 0), End: models.Clock(10, 0),
		ValidFrom: monday, ValidUntil: &until,
	}

	from := at(monday.AddDays(-7), 0, 0)
	to := at(monday.AddDays(14), 0, 0)
	ivs, err := r.Resolve(snapshotWith(rule), from, to)
	require.NoError(t, err)
	// Only the Monday on validFrom; validUntil is exclusive.
	require.Len(t, ivs, 1)
	assert.Equal(t, at(monday, 9, 0), ivs[0].Start)
}

func TestResolve_OneOffOutsideRangeIgnored(t *testing.T) {
	r := NewResolver(SplitOvernight, nil)
	rule := models.OneOffRule{ID: "later", Date: monday.AddDays(10), Start: models.Clock(9, 0), End: models.Clock(10, 0)}
	from, to := dayRange(monday)
	ivs, err := r.Resolve(snapshotWith(rule), from, to)
	require.NoError(t, err)
	assert.Empty(t, ivs)
}

func TestResolve_MalformedRuleExcludedNotFatal(t *testing.T) {
	r := NewResolver(SplitOvernight, nil)
	until := monday.AddDays(-40)
	snap := snapshotWith(
		recurring("good", time.Monday, models.Clock(9, 0), models.Clock(12, 0)),
		models.OneOffRule{ID: "zero", Date: monday, Start: models.Clock(13, 0), End: models.Clock(13, 0)},
		models.RecurringRule{ID: "backwards", Weekday: time.Monday, Start: models.Clock(14, 0), End: models.Clock(15, 0), ValidFrom: monday, ValidUntil: &until},
		models.OneOffRule{ID: "range", Date: monday, Start: models.Clock(9, 0), End: models.TimeOfDay(2000)},
	)

	from, to := dayRange(monday)
	ivs, err := r.Resolve(snap, from, to)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDataIntegrity))

	var ruleErr *RuleError
	require.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, "prov-1", ruleErr.ProviderID)

	require.Len(t, ivs, 1)
	assert.Equal(t, at(monday, 9, 0), ivs[0].Start)
	assert.Equal(t, at(monday, 12, 0), ivs[0].End)
}

func TestResolve_OvernightSplit(t *testing.T) {
	r := NewResolver(SplitOvernight, nil)
	snap := snapshotWith(recurring("night", time.Monday, models.Clock(22, 0), models.Clock(2, 0)))
	tuesday := monday.AddDays(1)

	t.Run("evening half on the rule's day", func(t *testing.T) {
		from, to := dayRange(monday)
		ivs, err := r.Resolve(snap, from, to)
		require.NoError(t, err)
		require.Len(t, ivs, 1)
		assert.Equal(t, at(monday, 22, 0), ivs[0].Start)
		assert.Equal(t, at(tuesday, 0, 0), ivs[0].End)
	})

	t.Run("morning half on the following day", func(t *testing.T) {
		from, to := dayRange(tuesday)
		ivs, err := r.Resolve(snap, from, to)
		require.NoError(t, err)
		require.Len(t, ivs, 1)
		assert.Equal(t, at(tuesday, 0, 0), ivs[0].Start)
		assert.Equal(t, at(tuesday, 2, 0), ivs[0].End)
	})

	t.Run("window across midnight is available", func(t *testing.T) {
		ivs, err := r.Resolve(snap, at(monday, 0, 0), at(tuesday.AddDays(1), 0, 0))
		require.NoError(t, err)
		require.Len(t, ivs, 1)
		assert.True(t, Available(ivs, models.Interval{Start: at(monday, 23, 30), End: at(tuesday, 0, 30)}))
	})
}

func TestResolve_OvernightRejected(t *testing.T) {
	r := NewResolver(RejectOvernight, nil)
	snap := snapshotWith(
		recurring("night", time.Monday, models.Clock(22, 0), models.Clock(2, 0)),
		recurring("day", time.Monday, models.Clock(9, 0), models.Clock(10, 0)),
	)

	from, to := at(monday, 0, 0), at(monday.AddDays(2), 0, 0)
	ivs, err := r.Resolve(snap, from, to)
	require.ErrorIs(t, err, ErrDataIntegrity)
	require.Len(t, ivs, 1)
	assert.Equal(t, at(monday, 9, 0), ivs[0].Start)

	assert.ErrorIs(t, r.Validate("prov-1", snap.Rules[0]), ErrDataIntegrity)
	assert.NoError(t, r.Validate("prov-1", snap.Rules[1]))
}

func TestAvailable(t *testing.T) {
	ivs := []models.Interval{
		{Start: at(monday, 9, 0), End: at(monday, 12, 0)},
		{Start: at(monday, 14, 0), End: at(monday, 16, 0)},
	}
	tests := []struct {
		name   string
		window models.Interval
		want   bool
	}{
		{"inside first", models.Interval{Start: at(monday, 10, 0), End: at(monday, 10, 30)}, true},
		{"exact match", models.Interval{Start: at(monday, 9, 0), End: at(monday, 12, 0)}, true},
		{"starts at close", models.Interval{Start: at(monday, 12, 0), End: at(monday, 12, 30)}, false},
		{"straddles close", models.Interval{Start: at(monday, 11, 45), End: at(monday, 12, 15)}, false},
		{"spans the gap", models.Interval{Start: at(monday, 11, 0), End: at(monday, 15, 0)}, false},
		{"inside second", models.Interval{Start: at(monday, 15, 0), End: at(monday, 16, 0)}, true},
		{"empty window", models.Interval{Start: at(monday, 10, 0), End: at(monday, 10, 0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Available(ivs, tt.window))
		})
	}
}

func TestResolve_ProviderTimeZone(t *testing.T) {
	loc, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)
	r := NewResolver(SplitOvernight, nil)
	snap := snapshotWith(recurring("weekly", time.Monday, models.Clock(9, 0), models.Clock(12, 0)))
	snap.Provider.TimeZone = "Africa/Nairobi"

	from := monday.At(0, loc)
	ivs, err := r.Resolve(snap, from, from.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, ivs, 1)
	// 09:00 in Nairobi is 06:00 UTC.
	assert.True(t, ivs[0].Start.Equal(at(monday, 6, 0)))
}
