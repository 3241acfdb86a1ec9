package model

import "time"

// PricingRule is a prioritized fare formula.  Nil scoping fields are
// wildcards.  The effective window bounds when the rule exists at all;
// the applicable window further scopes it to travel dates.  Lower
// Priority values take precedence.
type PricingRule struct {
	ID              uint64     // pricing_rules.id
	Name            string     // pricing_rules.name
	RouteID         *uint64    // pricing_rules.route_id (nullable)
	TrainTypeID     *uint64    // pricing_rules.train_type_id (nullable)
	IsForRoundTrip  *bool      // pricing_rules.is_round_trip (nullable)
	ApplicableFrom  *time.Time // pricing_rules.applicable_from (nullable)
	ApplicableTo    *time.Time // pricing_rules.applicable_to (nullable)
	EffectiveFrom   time.Time  // pricing_rules.effective_from
	EffectiveTo     *time.Time // pricing_rules.effective_to (nullable, open ended)
	PricePerKmCents float64    // pricing_rules.price_per_km_cents
	Priority        int        // pricing_rules.priority
	IsActive        bool       // pricing_rules.is_active
}
