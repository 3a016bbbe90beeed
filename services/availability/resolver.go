package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"servicehub/models"

	"go.uber.org/zap"
)

// ErrDataIntegrity marks an availability rule that cannot be expanded.
var ErrDataIntegrity = errors.New("availability data integrity error")

// RuleError describes a rule excluded from resolution.
type RuleError struct {
	ProviderID string
	RuleID     string
	Reason     string
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("provider %s rule %s: %s", e.ProviderID, e.RuleID, e.Reason)
}

func (e *RuleError) Unwrap() error { return ErrDataIntegrity }

// OvernightPolicy decides what happens to a rule whose end time is earlier
// than its start time (e.g. 22:00-02:00).
type OvernightPolicy int

const (
	// SplitOvernight expands the rule into [start, 24:00) on its day and
	// [00:00, end) on the following day.
	SplitOvernight OvernightPolicy = iota
	// RejectOvernight treats such rules as malformed.
	RejectOvernight
)

// Resolver turns availability rules into concrete open intervals.
type Resolver struct {
	Overnight OvernightPolicy
	Logger    *zap.Logger
}

func NewResolver(policy OvernightPolicy, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Overnight: policy, Logger: logger.With(zap.String("service", "availability"))}
}

// Validate checks a single rule against the resolver's policy.
func (r *Resolver) Validate(providerID string, rule models.AvailabilityRule) error {
	start, end := rule.Window()
	fail := func(reason string) error {
		return &RuleError{ProviderID: providerID, RuleID: rule.RuleID(), Reason: reason}
	}
	if !start.Valid() || !end.Valid() {
		return fail(fmt.Sprintf("time of day out of range (%d-%d)", start, end))
	}
	if start == end {
		return fail("start equals end")
	}
	if start == models.EndOfDay {
		return fail("window starts at end of day")
	}
	if end < start && r.Overnight == RejectOvernight {
		return fail(fmt.Sprintf("window %s-%s spans midnight", start, end))
	}
	switch v := rule.(type) {
	case models.RecurringRule:
		if v.Weekday < time.Sunday || v.Weekday > time.Saturday {
			return fail(fmt.Sprintf("invalid weekday %d", v.Weekday))
		}
		if v.ValidFrom.IsZero() {
			return fail("recurring rule without validFrom")
		}
		if v.ValidUntil != nil && v.ValidUntil.Before(v.ValidFrom) {
			return fail("validUntil before validFrom")
		}
	case models.OneOffRule:
		if v.Date.IsZero() {
			return fail("one-off rule without date")
		}
	default:
		return fail(fmt.Sprintf("unsupported rule type %T", rule))
	}
	return nil
}

// Resolve returns the sorted, disjoint open intervals of the provider inside
// [from, to). Malformed rules are skipped; when any were skipped the returned
// error wraps ErrDataIntegrity and the intervals reflect the remaining rules.
func (r *Resolver) Resolve(snapshot models.ProviderSnapshot, from, to time.Time) ([]models.Interval, error) {
	if !to.After(from) || len(snapshot.Rules) == 0 {
		return nil, nil
	}
	loc := providerLocation(snapshot.Provider)
	from, to = from.In(loc), to.In(loc)

	// One day of look-back picks up overnight spill from the previous day.
	first := models.DateOf(from).AddDays(-1)
	last := models.DateOf(to)

	var raw []models.Interval
	var errs []error
	for _, rule := range snapshot.Rules {
		if err := r.Validate(snapshot.Provider.ID, rule); err != nil {
			r.Logger.Warn("excluding malformed availability rule",
				zap.String("providerID", snapshot.Provider.ID),
				zap.String("ruleID", rule.RuleID()),
				zap.Error(err))
			errs = append(errs, err)
			continue
		}
		switch v := rule.(type) {
		case models.RecurringRule:
			for d := first; !d.After(last); d = d.AddDays(1) {
				if v.Covers(d) {
					raw = append(raw, expand(d, v.Start, v.End, loc)...)
				}
			}
		case models.OneOffRule:
			if !v.Date.Before(first) && !v.Date.After(last) {
				raw = append(raw, expand(v.Date, v.Start, v.End, loc)...)
			}
		}
	}

	clipped := raw[:0]
	for _, iv := range raw {
		iv = iv.Clip(from, to)
		if !iv.Empty() {
			clipped = append(clipped, iv)
		}
	}
	return Merge(clipped), errors.Join(errs...)
}

// Available reports whether window lies entirely inside one resolved interval.
func Available(intervals []models.Interval, window models.Interval) bool {
	if window.Empty() {
		return false
	}
	i := sort.Search(len(intervals), func(i int) bool {
		return intervals[i].End.After(window.Start)
	})
	return i < len(intervals) && intervals[i].Contains(window)
}

// Merge sorts intervals by start and coalesces any that overlap or touch.
func Merge(intervals []models.Interval) []models.Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := append([]models.Interval(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].End.Before(sorted[j].End)
		}
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []models.Interval{sorted[0]}
	for _, next := range sorted[1:] {
		cur := &merged[len(merged)-1]
		if !next.Start.After(cur.End) {
			if next.End.After(cur.End) {
				cur.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}

func expand(d models.Date, start, end models.TimeOfDay, loc *time.Location) []models.Interval {
	if end > start {
		return []models.Interval{{Start: d.At(start, loc), End: d.At(end, loc)}}
	}
	next := d.AddDays(1)
	out := []models.Interval{{Start: d.At(start, loc), End: next.At(0, loc)}}
	if end > 0 {
		out = append(out, models.Interval{Start: next.At(0, loc), End: next.At(end, loc)})
	}
	return out
}

func providerLocation(p models.Provider) *time.Location {
	if p.TimeZone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}
