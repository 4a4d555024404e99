package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 25, cfg.Search.Patience)
	assert.Equal(t, 95.0, cfg.Search.DecayRate)
	assert.Equal(t, 1000, cfg.Search.MaxIterations)
	assert.Equal(t, 50*time.Millisecond, cfg.Search.PaceInterval)
	assert.NoError(t, cfg.SearchDefaults().Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("SEARCH_PATIENCE", "3")
	t.Setenv("SEARCH_DECAY_RATE", "80.5")
	t.Setenv("SEARCH_PACE_INTERVAL", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTP.Port)
	assert.Equal(t, 3, cfg.SearchDefaults().Patience)
	assert.Equal(t, 80.5, cfg.SearchDefaults().DecayRate)
	assert.Equal(t, time.Duration(0), cfg.Search.PaceInterval)
}

func TestLoadRejectsInvalidSearchDefaults(t *testing.T) {
	tests := map[string]string{
		"SEARCH_DECAY_RATE":     "150",
		"SEARCH_MAX_ITERATIONS": "0",
		"SEARCH_PATIENCE":       "-2",
		"SEARCH_MAX_RUNS":       "0",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("PALETTE_TEST_VALUE", "42")
	assert.Equal(t, "42", GetEnv("PALETTE_TEST_VALUE", "x"))
	assert.Equal(t, 42, GetEnvAsInt("PALETTE_TEST_VALUE", 0))
	assert.Equal(t, "x", GetEnv("PALETTE_TEST_MISSING", "x"))
	assert.Equal(t, 7, GetEnvAsInt("PALETTE_TEST_MISSING", 7))
}
