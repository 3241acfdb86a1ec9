package config

import "time"

// EngineConfig carries the tunables of the reservation core.  It is
// passed explicitly into the schedule propagator, pricing resolver and
// seat hold ledger so tests can vary each value.
type EngineConfig struct {
	// AverageSpeedKmh is the constant speed used to derive travel time
	// between consecutive stations.
	AverageSpeedKmh float64
	// DefaultPricePerKmCents is the fallback fare when no pricing rule
	// matches.  Zero means no default is configured.
	DefaultPricePerKmCents float64
	DefaultHoldTTL         time.Duration
	MaxHoldTTL             time.Duration
	// TxTimeout bounds how long a single transaction may wait on locks.
	TxTimeout     time.Duration
	SweepInterval time.Duration
}

// DefaultEngineConfig returns the values used when no environment
// override is present.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AverageSpeedKmh:        60,
		DefaultPricePerKmCents: 150,
		DefaultHoldTTL:         15 * time.Minute,
		MaxHoldTTL:             30 * time.Minute,
		TxTimeout:              5 * time.Second,
		SweepInterval:          time.Minute,
	}
}

// LoadEngineConfig overlays ENGINE_* environment variables on the
// defaults and clamps nonsensical values.
func LoadEngineConfig() EngineConfig {
	def := DefaultEngineConfig()
	cfg := EngineConfig{
		AverageSpeedKmh:        envFloat("ENGINE_AVERAGE_SPEED_KMH", def.AverageSpeedKmh),
		DefaultPricePerKmCents: envFloat("ENGINE_DEFAULT_PRICE_PER_KM_CENTS", def.DefaultPricePerKmCents),
		DefaultHoldTTL:         envDur("ENGINE_HOLD_TTL", def.DefaultHoldTTL),
		MaxHoldTTL:             envDur("ENGINE_MAX_HOLD_TTL", def.MaxHoldTTL),
		TxTimeout:              envDur("ENGINE_TX_TIMEOUT", def.TxTimeout),
		SweepInterval:          envDur("ENGINE_SWEEP_INTERVAL", def.SweepInterval),
	}
	if cfg.AverageSpeedKmh <= 0 {
		cfg.AverageSpeedKmh = def.AverageSpeedKmh
	}
	if cfg.DefaultPricePerKmCents < 0 {
		cfg.DefaultPricePerKmCents = 0
	}
	if cfg.DefaultHoldTTL <= 0 {
		cfg.DefaultHoldTTL = def.DefaultHoldTTL
	}
	if cfg.MaxHoldTTL < cfg.DefaultHoldTTL {
		cfg.MaxHoldTTL = cfg.DefaultHoldTTL
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = def.TxTimeout
	}
	if cfg.SweepInterval < 0 {
		cfg.SweepInterval = 0
	}
	return cfg
}

// HoldTTL resolves a requested time-to-live against the configured
// default and ceiling.
func (c EngineConfig) HoldTTL(requested time.Duration) time.Duration {
	if requested <= 0 {
		return c.DefaultHoldTTL
	}
	if c.MaxHoldTTL > 0 && requested > c.MaxHoldTTL {
		return c.MaxHoldTTL
	}
	return requested
}
