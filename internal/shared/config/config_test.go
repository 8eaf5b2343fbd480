package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("UNIVERSE_MIN_SYSTEM_DISTANCE", "")
	t.Setenv("MAINTENANCE_WRITES_PER_SECOND", "")

	cfg, err := load()
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	assert.Equal(t, 30.0, cfg.Universe.MinSystemDistance)
	assert.Equal(t, 0.1, cfg.Universe.CoordinateTolerance)
	assert.Equal(t, 7, cfg.Universe.MaxPlanetsPerSystem)
	assert.Equal(t, 500, cfg.Universe.GenerationMaxAttempts)
	assert.Equal(t, 50.0, cfg.Universe.OriginFloor)
	assert.Equal(t, 20, cfg.Universe.RelaxationMaxIterations)
	assert.Equal(t, 10, cfg.Universe.RepairMaxIterations)
	assert.Equal(t, 10*time.Minute, cfg.Maintenance.LockTTL)
	assert.Zero(t, cfg.Maintenance.WritesPerSecond)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("UNIVERSE_MIN_SYSTEM_DISTANCE", "45.5")
	t.Setenv("UNIVERSE_MAX_PLANETS_PER_SYSTEM", "9")
	t.Setenv("MAINTENANCE_WRITES_PER_SECOND", "200")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, 45.5, cfg.Universe.MinSystemDistance)
	assert.Equal(t, 9, cfg.Universe.MaxPlanetsPerSystem)
	assert.Equal(t, 200.0, cfg.Maintenance.WritesPerSecond)
	assert.True(t, cfg.Redis.Enabled)
	assert.True(t, cfg.Logging.JSONFormat)
}

func TestLoad_RedisEnabledFlag(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"1", true},
		{"TRUE", true},
		{"false", false},
		{"maybe", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("REDIS_ENABLED", tt.value)

			cfg, err := load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Redis.Enabled)
		})
	}
}

func TestLoad_InvalidNumberFallsBack(t *testing.T) {
	t.Setenv("UNIVERSE_GENERATION_MAX_ATTEMPTS", "lots")

	cfg, err := load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Universe.GenerationMaxAttempts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing db host", func(c *Config) { c.Database.Host = "" }},
		{"zero min distance", func(c *Config) { c.Universe.MinSystemDistance = 0 }},
		{"zero tolerance", func(c *Config) { c.Universe.CoordinateTolerance = 0 }},
		{"min planets above max", func(c *Config) { c.Universe.MinPlanetsPerSystem = 8 }},
		{"no attempts", func(c *Config) { c.Universe.GenerationMaxAttempts = 0 }},
		{"negative write rate", func(c *Config) { c.Maintenance.WritesPerSecond = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load()
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.validate())
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host:     "db",
		Port:     "5433",
		User:     "planets",
		Password: "p@ss",
		Name:     "universe",
		SSLMode:  "disable",
	}}

	assert.Equal(t, "postgres://planets:p%40ss@db:5433/universe?sslmode=disable", cfg.DatabaseURL())
	assert.Equal(t, "host=db port=5433 user=planets password=p@ss dbname=universe sslmode=disable", cfg.ConnectionString())
}
