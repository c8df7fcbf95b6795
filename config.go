package bloodliner

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

//go:embed etc/bloodliner.json templates/index.html
var Content embed.FS

type Config struct {
	Start       time.Time            `json:"start"`
	HabitMode   string               `json:"habitMode"`
	HabitPoints float64              `json:"habitPoints"`
	Weights     map[Category]float64 `json:"weights"`
	Moves       map[MoveMode]float64 `json:"moves"`
	Money       map[Category]float64 `json:"money"`
	Wake        struct {
		PrimeStart int     `json:"primeStart"`
		PrimeEnd   int     `json:"primeEnd"`
		GraceEnd   int     `json:"graceEnd"`
		LateEnd    int     `json:"lateEnd"`
		Early      float64 `json:"early"`
		Prime      float64 `json:"prime"`
		Grace      float64 `json:"grace"`
		Late       float64 `json:"late"`
		Beyond     float64 `json:"beyond"`
	} `json:"wake"`
	Tap struct {
		Cap     int     `json:"cap"`
		Divisor float64 `json:"divisor"`
	} `json:"tap"`
	Goal struct {
		ScoreBonus float64 `json:"scoreBonus"`
		XPBonus    int     `json:"xpBonus"`
	} `json:"goal"`
	Ghost struct {
		Start     float64              `json:"start"`
		Min       float64              `json:"min"`
		Max       float64              `json:"max"`
		BaseRate  float64              `json:"baseRate"`
		Penalties map[Category]float64 `json:"penalties"`
	} `json:"ghost"`
	XP struct {
		LevelStep int `json:"levelStep"`
	} `json:"xp"`
	Omni struct {
		Life       float64 `json:"life"`
		Body       float64 `json:"body"`
		Ghost      float64 `json:"ghost"`
		Projection float64 `json:"projection"`
		EnergyMax  float64 `json:"energyMax"`
	} `json:"omni"`
	Bosses []BossRule `json:"bosses"`
	Strava struct {
		MinMinutes int                 `json:"minMinutes"`
		Modes      map[string]MoveMode `json:"modes"`
	} `json:"strava"`
}

type BossRule struct {
	Name     string `json:"name"`
	When     string `json:"when"`
	Weakness string `json:"weakness"`
	Goal     string `json:"goal"`
	Reward   string `json:"reward"`
}

const (
	HabitPercent = "percent"
	HabitFlat    = "flat"
)

// ReadConfig decodes and validates a configuration document.
func ReadConfig(r io.Reader) (*Config, error) {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the embedded configuration.
func DefaultConfig() (*Config, error) {
	fp, err := Content.Open("etc/bloodliner.json")
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ReadConfig(fp)
}

func (c *Config) Validate() error {
	switch c.HabitMode {
	case HabitPercent, HabitFlat:
	case "":
		c.HabitMode = HabitPercent
	default:
		return fmt.Errorf("invalid habit mode %q", c.HabitMode)
	}
	if c.Ghost.Min >= c.Ghost.Max {
		return errors.New("ghost min must be below ghost max")
	}
	if c.Tap.Divisor <= 0 || c.Tap.Cap <= 0 {
		return errors.New("tap cap and divisor must be positive")
	}
	if c.XP.LevelStep <= 0 {
		return errors.New("xp level step must be positive")
	}
	w := c.Wake
	if !(0 <= w.PrimeStart && w.PrimeStart <= w.PrimeEnd && w.PrimeEnd <= w.GraceEnd &&
		w.GraceEnd <= w.LateEnd && w.LateEnd <= MaxWakeMinutes) {
		return errors.New("wake windows must be ordered within the day")
	}
	o := c.Omni
	if math.Abs(o.Life+o.Body+o.Ghost+o.Projection-1.0) > 1e-9 {
		return errors.New("omni weights must sum to 1.0")
	}
	if o.EnergyMax <= 0 {
		return errors.New("omni energy max must be positive")
	}
	for mode := range c.Strava.Modes {
		if !c.Strava.Modes[mode].IsValid() {
			return fmt.Errorf("invalid move mode for strava type %q", mode)
		}
	}
	return nil
}

// Date returns the calendar date of day n.
func (c *Config) Date(n int) time.Time {
	return c.Start.AddDate(0, 0, n-1)
}

// DayOf returns the day number containing t or 0 if t falls outside the season.
func (c *Config) DayOf(t time.Time) int {
	start := c.Start
	end := c.Start.AddDate(0, 0, SeasonLength)
	if t.Before(start) || !t.Before(end) {
		return 0
	}
	for n := 1; n <= SeasonLength; n++ {
		if t.Before(c.Date(n + 1)) {
			return n
		}
	}
	return 0
}
