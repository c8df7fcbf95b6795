package bloodliner

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	a := assert.New(t)
	cfg := testConfig(t)
	a.Equal(HabitPercent, cfg.HabitMode)
	a.Len(cfg.Bosses, 6)
	a.Equal(-20.0, cfg.Weights[Shot])
	a.Equal(0.06, cfg.Ghost.Penalties[Shot])
	a.Equal(Gym, cfg.Strava.Modes["WeightTraining"])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"habit mode", func(c *Config) { c.HabitMode = "double" }},
		{"ghost bounds", func(c *Config) { c.Ghost.Min = 3 }},
		{"tap divisor", func(c *Config) { c.Tap.Divisor = 0 }},
		{"level step", func(c *Config) { c.XP.LevelStep = 0 }},
		{"wake order", func(c *Config) { c.Wake.GraceEnd = 100 }},
		{"omni weights", func(c *Config) { c.Omni.Life = 0.5 }},
		{"strava mode", func(c *Config) { c.Strava.Modes["Kayak"] = MoveMode("Paddle") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestReadConfig(t *testing.T) {
	a := assert.New(t)
	_, err := ReadConfig(strings.NewReader("{"))
	a.Error(err)

	cfg, err := ReadConfig(strings.NewReader(`{
		"tap": {"cap": 60, "divisor": 3},
		"ghost": {"max": 3},
		"xp": {"levelStep": 100},
		"omni": {"life": 1, "energyMax": 20}
	}`))
	require.NoError(t, err)
	a.Equal(HabitPercent, cfg.HabitMode, "habit mode defaults to percent")
}

func TestDayOf(t *testing.T) {
	a := assert.New(t)
	cfg := testConfig(t)
	start := cfg.Start

	a.Equal(0, cfg.DayOf(start.Add(-time.Second)))
	a.Equal(1, cfg.DayOf(start))
	a.Equal(1, cfg.DayOf(start.Add(23*time.Hour)))
	a.Equal(2, cfg.DayOf(start.Add(36*time.Hour)))
	a.Equal(90, cfg.DayOf(cfg.Date(90).Add(12*time.Hour)))
	a.Equal(0, cfg.DayOf(cfg.Date(91)))

	a.Equal(time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC), cfg.Date(1))
	a.Equal(time.Date(2026, time.April, 4, 0, 0, 0, 0, time.UTC), cfg.Date(90))
}
