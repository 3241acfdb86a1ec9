package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/train-seat-reservation/internal/domain"
	"github.com/iliyamo/train-seat-reservation/internal/model"
)

func u64(v uint64) *uint64 { return &v }

func ptrTime(t time.Time) *time.Time { return &t }

func boolPtr(b bool) *bool { return &b }

var travel = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func route(id uint64) model.Route {
	return model.Route{ID: id, Stations: []model.RouteStation{
		{StationID: 1, Sequence: 1, DistanceKm: 0},
		{StationID: 2, Sequence: 2, DistanceKm: 50},
		{StationID: 3, Sequence: 3, DistanceKm: 120},
	}}
}

func baseRules() []model.PricingRule {
	from := travel.AddDate(0, -1, 0)
	return []model.PricingRule{
		{ID: 10, Name: "route 7", RouteID: u64(7), EffectiveFrom: from, PricePerKmCents: 200, Priority: 1, IsActive: true},
		{ID: 11, Name: "wildcard", EffectiveFrom: from, PricePerKmCents: 100, Priority: 2, IsActive: true},
	}
}

func TestResolvePicksScopedRuleBeforeWildcard(t *testing.T) {
	r := Resolver{DefaultPricePerKmCents: 150}

	fare, err := r.Resolve(route(7), Query{RouteID: 7, TravelDate: travel}, baseRules())
	require.NoError(t, err)
	assert.Equal(t, uint64(10), fare.RuleID)
	assert.Equal(t, int64(200*120), fare.BaseCents)

	fare, err = r.Resolve(route(9), Query{RouteID: 9, TravelDate: travel}, baseRules())
	require.NoError(t, err)
	assert.Equal(t, uint64(11), fare.RuleID)
	assert.Equal(t, int64(100*120), fare.BaseCents)
}

func TestResolveRoundTripDoubles(t *testing.T) {
	fare, err := Resolver{}.Resolve(route(9), Query{RouteID: 9, RoundTrip: true, TravelDate: travel}, baseRules())
	require.NoError(t, err)
	assert.Equal(t, int64(2*100*120), fare.BaseCents)
}

func TestResolveTieBreaksOnRuleID(t *testing.T) {
	from := travel.AddDate(0, -1, 0)
	rules := []model.PricingRule{
		{ID: 30, EffectiveFrom: from, PricePerKmCents: 300, Priority: 1, IsActive: true},
		{ID: 20, EffectiveFrom: from, PricePerKmCents: 250, Priority: 1, IsActive: true},
	}
	for i := 0; i < 5; i++ {
		fare, err := Resolver{}.Resolve(route(1), Query{RouteID: 1, TravelDate: travel}, rules)
		require.NoError(t, err)
		assert.Equal(t, uint64(20), fare.RuleID)
		rules[0], rules[1] = rules[1], rules[0]
	}
}

func TestResolveFilters(t *testing.T) {
	from := travel.AddDate(0, -1, 0)
	cases := []struct {
		name string
		rule model.PricingRule
	}{
		{"inactive", model.PricingRule{ID: 1, EffectiveFrom: from, Priority: 0}},
		{"not yet effective", model.PricingRule{ID: 2, EffectiveFrom: travel.AddDate(0, 0, 1), IsActive: true}},
		{"expired", model.PricingRule{ID: 3, EffectiveFrom: from, EffectiveTo: ptrTime(travel.AddDate(0, 0, -1)), IsActive: true}},
		{"other train type", model.PricingRule{ID: 4, EffectiveFrom: from, TrainTypeID: u64(99), IsActive: true}},
		{"one way only", model.PricingRule{ID: 5, EffectiveFrom: from, IsForRoundTrip: boolPtr(false), IsActive: true}},
		{"outside applicable dates", model.PricingRule{ID: 6, EffectiveFrom: from, ApplicableTo: ptrTime(travel.AddDate(0, 0, -1)), IsActive: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.rule.PricePerKmCents = 999
			q := Query{RouteID: 1, TrainTypeID: 2, RoundTrip: true, TravelDate: travel}
			assert.False(t, Matches(tc.rule, q))

			fare, err := Resolver{DefaultPricePerKmCents: 150}.Resolve(route(1), q, []model.PricingRule{tc.rule})
			require.NoError(t, err)
			assert.Zero(t, fare.RuleID)
			assert.Equal(t, int64(2*150*120), fare.BaseCents)
		})
	}
}

func TestResolveWindowsCoverWholeTravelDay(t *testing.T) {
	day := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	rules := []model.PricingRule{
		{ID: 1, EffectiveFrom: day.AddDate(0, -1, 0), EffectiveTo: ptrTime(day), PricePerKmCents: 200, IsActive: true},
		{ID: 2, EffectiveFrom: day.Add(23 * time.Hour), ApplicableTo: ptrTime(day), PricePerKmCents: 210, IsActive: true},
	}
	for _, at := range []time.Time{day.Add(8 * time.Hour), day.Add(23*time.Hour + 59*time.Minute)} {
		q := Query{RouteID: 1, TravelDate: at}
		assert.True(t, Matches(rules[0], q), "window ending on the travel date at %s", at)
		assert.True(t, Matches(rules[1], q), "window starting later on the travel date at %s", at)
	}
	assert.False(t, Matches(rules[0], Query{RouteID: 1, TravelDate: day.AddDate(0, 0, 1)}))

	fare, err := Resolver{DefaultPricePerKmCents: 150}.Resolve(route(1), Query{RouteID: 1, TravelDate: day.Add(8 * time.Hour)}, rules[:1])
	require.NoError(t, err)
	assert.EqualValues(t, 1, fare.RuleID)
	assert.Equal(t, int64(200*120), fare.BaseCents)
}

// Editing a rule that does not match must never move the price.
func TestResolveIsolation(t *testing.T) {
	r := Resolver{DefaultPricePerKmCents: 150}
	q := Query{RouteID: 9, TravelDate: travel}

	before, err := r.Resolve(route(9), q, baseRules())
	require.NoError(t, err)

	for _, perKm := range []float64{1, 50, 10_000} {
		rules := baseRules()
		rules[0].PricePerKmCents = perKm
		rules[0].Priority = -5
		after, err := r.Resolve(route(9), q, rules)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	}
}

func TestResolveWithoutDefault(t *testing.T) {
	_, err := Resolver{}.Resolve(route(1), Query{RouteID: 1, TravelDate: travel}, nil)
	assert.True(t, domain.IsConfiguration(err))
}

func TestResolveEmptyRoute(t *testing.T) {
	_, err := Resolver{DefaultPricePerKmCents: 150}.Resolve(model.Route{ID: 1}, Query{RouteID: 1, TravelDate: travel}, baseRules())
	assert.True(t, domain.IsConfiguration(err))
}

func TestSeatFare(t *testing.T) {
	assert.Equal(t, int64(1500), SeatFare(1000, 1.5))
	assert.Equal(t, int64(1800), SeatFare(1000, 1.5, 1.2))
	assert.Equal(t, int64(1000), SeatFare(1000, 0))
	assert.Equal(t, int64(1000), SeatFare(1000))
}
