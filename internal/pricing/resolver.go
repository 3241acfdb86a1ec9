// Package pricing selects the pricing rule that applies to a trip and
// turns it into a per-seat base fare.
package pricing

import (
	"math"
	"sort"
	"time"

	"github.com/iliyamo/train-seat-reservation/internal/config"
	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

// Query describes what is being priced.
type Query struct {
	RouteID     uint64
	TrainTypeID uint64
	RoundTrip   bool
	TravelDate  time.Time
}

// Fare is the outcome of a resolution.  RuleID is zero when the
// configured default rate was used.
type Fare struct {
	RuleID          uint64
	PricePerKmCents float64
	DistanceKm      float64
	BaseCents       int64
}

// Resolver holds the fallback rate used when no rule matches.
type Resolver struct {
	DefaultPricePerKmCents float64
}

// NewResolver builds a Resolver from the engine configuration.
func NewResolver(cfg config.EngineConfig) Resolver {
	return Resolver{DefaultPricePerKmCents: cfg.DefaultPricePerKmCents}
}

// Resolve picks the single applicable rule for q among rules and
// computes the base fare over the full route distance.  Candidates are
// ordered by ascending Priority and then by ascending ID, so equal
// priorities resolve the same way on every call.  When nothing matches
// the default rate applies; with no default configured the result is a
// ConfigurationError.
func (r Resolver) Resolve(route model.Route, q Query, rules []model.PricingRule) (Fare, error) {
	if len(route.Stations) == 0 {
		return Fare{}, domain.ConfigurationError{Msg: "route has no stations"}
	}
	distance := route.TotalDistanceKm()

	candidates := make([]model.PricingRule, 0, len(rules))
	for _, rule := range rules {
		if Matches(rule, q) {
			candidates = append(candidates, rule)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].ID < candidates[j].ID
	})

	fare := Fare{DistanceKm: distance}
	if len(candidates) > 0 {
		fare.RuleID = candidates[0].ID
		fare.PricePerKmCents = candidates[0].PricePerKmCents
	} else {
		if r.DefaultPricePerKmCents <= 0 {
			return Fare{}, domain.ConfigurationError{Msg: "no pricing rule matches and no default rate is configured"}
		}
		fare.PricePerKmCents = r.DefaultPricePerKmCents
	}

	base := fare.PricePerKmCents * distance
	if q.RoundTrip {
		base *= 2
	}
	fare.BaseCents = int64(math.Round(base))
	return fare, nil
}

// Matches reports whether rule applies to q.  Nil scoping fields are
// wildcards; both date windows are inclusive and compared by UTC day.
func Matches(rule model.PricingRule, q Query) bool {
	if !rule.IsActive {
		return false
	}
	if !within(q.TravelDate, &rule.EffectiveFrom, rule.EffectiveTo) {
		return false
	}
	if rule.RouteID != nil && *rule.RouteID != q.RouteID {
		return false
	}
	if rule.TrainTypeID != nil && *rule.TrainTypeID != q.TrainTypeID {
		return false
	}
	if rule.IsForRoundTrip != nil && *rule.IsForRoundTrip != q.RoundTrip {
		return false
	}
	return within(q.TravelDate, rule.ApplicableFrom, rule.ApplicableTo)
}

// within compares UTC calendar days: a window ending on the travel date
// still covers every departure that day.
func within(t time.Time, from, to *time.Time) bool {
	day := utcDay(t)
	if from != nil && !from.IsZero() && day.Before(utcDay(*from)) {
		return false
	}
	if to != nil && day.After(utcDay(*to)) {
		return false
	}
	return true
}

func utcDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SeatFare applies per-seat multipliers to a base fare.  Non-positive
// multipliers are treated as 1, which is what an unset reference column
// means.
func SeatFare(baseCents int64, multipliers ...float64) int64 {
	v := float64(baseCents)
	for _, m := range multipliers {
		if m > 0 {
			v *= m
		}
	}
	return int64(math.Round(v))
}
