package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEngineConfigDefaults(t *testing.T) {
	cfg := LoadEngineConfig()
	assert.Equal(t, DefaultEngineConfig(), cfg)
}

func TestLoadEngineConfigOverridesAndClamps(t *testing.T) {
	t.Setenv("ENGINE_AVERAGE_SPEED_KMH", "-5")
	t.Setenv("ENGINE_DEFAULT_PRICE_PER_KM_CENTS", "220.5")
	t.Setenv("ENGINE_HOLD_TTL", "10m")
	t.Setenv("ENGINE_MAX_HOLD_TTL", "5m")
	t.Setenv("ENGINE_TX_TIMEOUT", "bogus")

	cfg := LoadEngineConfig()
	assert.Equal(t, 60.0, cfg.AverageSpeedKmh)
	assert.Equal(t, 220.5, cfg.DefaultPricePerKmCents)
	assert.Equal(t, 10*time.Minute, cfg.DefaultHoldTTL)
	assert.Equal(t, 10*time.Minute, cfg.MaxHoldTTL, "ceiling never below default")
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
}

func TestHoldTTL(t *testing.T) {
	cfg := DefaultEngineConfig()
	assert.Equal(t, cfg.DefaultHoldTTL, cfg.HoldTTL(0))
	assert.Equal(t, 2*time.Minute, cfg.HoldTTL(2*time.Minute))
	assert.Equal(t, cfg.MaxHoldTTL, cfg.HoldTTL(2*time.Hour))
}
