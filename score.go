package bloodliner

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxWakeMinutes is 23:59 in minutes after midnight.
const MaxWakeMinutes = 24*60 - 1

// Calculator derives a day's scores from its raw inputs. Every method is
// deterministic and leaves the day untouched.
type Calculator struct {
	config *Config
}

func NewCalculator(config *Config) *Calculator {
	return &Calculator{config: config}
}

func (c *Calculator) habit(d *Day, total int) float64 {
	done := d.habitsDone()
	if c.config.HabitMode == HabitFlat {
		return float64(done) * c.config.HabitPoints
	}
	if total == 0 {
		total = 1
	}
	return math.Round(float64(done) / float64(total) * 100)
}

func (c *Calculator) weight(ev *Event) float64 {
	if ev.Category != Move {
		return c.config.Weights[ev.Category]
	}
	mode := ev.Mode
	if mode == "" {
		mode = Walk
	}
	if w, ok := c.config.Moves[mode]; ok {
		return w
	}
	return c.config.Moves[Walk]
}

func (c *Calculator) energy(d *Day) float64 {
	var val float64
	for _, ev := range d.Events {
		val += c.weight(ev)
	}
	return round1(val)
}

func (c *Calculator) money(d *Day) float64 {
	var val float64
	for _, ev := range d.Events {
		val += c.config.Money[ev.Category]
	}
	return math.Round(val*100) / 100
}

func (c *Calculator) wake(d *Day) float64 {
	if d.WakeMinutes == nil {
		return 0
	}
	m, w := *d.WakeMinutes, c.config.Wake
	switch {
	case m < w.PrimeStart:
		return w.Early
	case m <= w.PrimeEnd:
		return w.Prime
	case m <= w.GraceEnd:
		return w.Grace
	case m <= w.LateEnd:
		return w.Late
	default:
		return w.Beyond
	}
}

func (c *Calculator) tap(d *Day) float64 {
	n := d.Taps.Total()
	if n > c.config.Tap.Cap {
		n = c.config.Tap.Cap
	}
	return round1(float64(n) / c.config.Tap.Divisor)
}

// Score computes all sub-scores for the day given the size of the habit list.
func (c *Calculator) Score(d *Day, habits int) Scores {
	s := Scores{
		Habit:  c.habit(d, habits),
		Energy: c.energy(d),
		Wake:   c.wake(d),
		Tap:    c.tap(d),
		Money:  c.money(d),
	}
	if d.Goal != nil && c.config.Goal.ScoreBonus != 0 &&
		ClassifyGoal(s.Habit+s.Energy+s.Wake+s.Tap, d.Goal) == Overdrive {
		s.Bonus = c.config.Goal.ScoreBonus
	}
	s.Total = round1(s.Habit + s.Energy + s.Wake + s.Tap + s.Bonus)
	return s
}

// PredictedEnergy is a linear forecast of tomorrow's energy from a day's total.
func PredictedEnergy(total float64) float64 {
	return clamp(50+total/2, 0, 100)
}

type Breakdown struct {
	Counts map[Category]int `json:"counts"`
	Moves  map[MoveMode]int `json:"moves"`
}

// Breakdown counts the day's events per category and movement mode.
func (d *Day) Breakdown() Breakdown {
	b := Breakdown{Counts: make(map[Category]int), Moves: make(map[MoveMode]int)}
	for _, ev := range d.Events {
		b.Counts[ev.Category]++
		if ev.Category == Move {
			mode := ev.Mode
			if mode == "" {
				mode = Walk
			}
			b.Moves[mode]++
		}
	}
	return b
}

// ParseClock parses "hh:mm" into minutes after midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) > 2 || len(parts[1]) != 2 || !digits(parts[0]) || !digits(parts[1]) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWakeTime, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWakeTime, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWakeTime, s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidWakeTime, s)
	}
	return h*60 + m, nil
}

// digits reports whether s is a non-empty run of ASCII digits.
func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatClock renders minutes after midnight as "hh:mm".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func validWake(minutes int) error {
	if minutes < 0 || minutes > MaxWakeMinutes {
		return fmt.Errorf("%w: %d", ErrInvalidWakeTime, minutes)
	}
	return nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
