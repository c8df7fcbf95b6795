package bloodliner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	return cfg
}

func newEvents(cats ...Category) []*Event {
	var evs []*Event
	for _, c := range cats {
		evs = append(evs, &Event{Category: c})
	}
	return evs
}

func TestHabitScore(t *testing.T) {
	a := assert.New(t)
	cfg := testConfig(t)
	d := &Day{Habits: map[string]bool{"A": true, "B": false}}

	calc := NewCalculator(cfg)
	s := calc.Score(d, 2)
	a.Equal(50.0, s.Habit)
	a.Equal(50.0, s.Total)

	cfg.HabitMode = HabitFlat
	s = calc.Score(d, 2)
	a.Equal(10.0, s.Habit)
	a.Equal(10.0, s.Total)
}

func TestHabitScoreNoHabits(t *testing.T) {
	calc := NewCalculator(testConfig(t))
	s := calc.Score(&Day{Habits: map[string]bool{}}, 0)
	assert.Equal(t, 0.0, s.Habit)
}

func TestWakeScore(t *testing.T) {
	calc := NewCalculator(testConfig(t))
	tests := []struct {
		name    string
		minutes *int
		score   float64
	}{
		{"unset", nil, 0},
		{"early", intp(300), 5},
		{"prime start", intp(360), 20},
		{"prime", intp(420), 20},
		{"prime end", intp(480), 20},
		{"grace", intp(500), 5},
		{"late", intp(550), -5},
		{"beyond", intp(700), -15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := calc.Score(&Day{WakeMinutes: tt.minutes}, 0)
			assert.Equal(t, tt.score, s.Wake)
			assert.Equal(t, tt.score, s.Total)
		})
	}
}

func TestTapScore(t *testing.T) {
	calc := NewCalculator(testConfig(t))
	tests := []struct {
		name             string
		morning, evening *int
		score            float64
	}{
		{"none", nil, nil, 0},
		{"morning only", intp(7), nil, 2.3},
		{"both", intp(10), intp(5), 5},
		{"capped", intp(30), intp(45), 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := calc.Score(&Day{Taps: Taps{Morning: tt.morning, Evening: tt.evening}}, 0)
			assert.Equal(t, tt.score, s.Tap)
		})
	}
}

func TestEnergyScore(t *testing.T) {
	a := assert.New(t)
	calc := NewCalculator(testConfig(t))

	d := &Day{Events: newEvents(Water, Water, Meal, Nicotine)}
	d.Events = append(d.Events, &Event{Category: Move, Mode: Gym}, &Event{Category: Move})
	s := calc.Score(d, 0)
	// 0.5*2 - 9 - 0.5 + 4 + 1
	a.Equal(-3.5, s.Energy)
	a.Equal(-3.5, s.Total)

	s = calc.Score(&Day{Events: newEvents(Shot, Shot)}, 0)
	a.Equal(-40.0, s.Energy)

	s = calc.Score(&Day{Events: newEvents(Coffee, Coffee, Coffee)}, 0)
	a.Equal(-4.5, s.Energy)
}

func TestMoneyIsInformational(t *testing.T) {
	a := assert.New(t)
	calc := NewCalculator(testConfig(t))
	s := calc.Score(&Day{Events: newEvents(Coffee, Meal, Water)}, 0)
	a.Equal(15.5, s.Money)
	a.Equal(s.Habit+s.Energy+s.Wake+s.Tap, s.Total)
}

func TestScoreIsDeterministic(t *testing.T) {
	calc := NewCalculator(testConfig(t))
	d := &Day{
		Habits:      map[string]bool{"A": true, "B": true, "C": false},
		Events:      newEvents(Water, Protein, Shot, Nicotine),
		WakeMinutes: intp(415),
		Taps:        Taps{Morning: intp(22), Evening: intp(19)},
	}
	first := calc.Score(d, 3)
	second := calc.Score(d, 3)
	assert.Equal(t, first, second)

	// order of events does not matter
	d.Events[0], d.Events[3] = d.Events[3], d.Events[0]
	assert.Equal(t, first, calc.Score(d, 3))
}

func TestGoalScoreBonus(t *testing.T) {
	cfg := testConfig(t)
	cfg.Goal.ScoreBonus = 10
	calc := NewCalculator(cfg)
	d := &Day{Habits: map[string]bool{"A": true}, Goal: intp(50)}
	s := calc.Score(d, 1)
	assert.Equal(t, 10.0, s.Bonus)
	assert.Equal(t, 110.0, s.Total)
}

func TestPredictedEnergy(t *testing.T) {
	assert.Equal(t, 50.0, PredictedEnergy(0))
	assert.Equal(t, 70.0, PredictedEnergy(40))
	assert.Equal(t, 100.0, PredictedEnergy(200))
	assert.Equal(t, 0.0, PredictedEnergy(-200))
}

func TestBreakdown(t *testing.T) {
	d := &Day{Events: newEvents(Water, Water, Shot)}
	d.Events = append(d.Events, &Event{Category: Move, Mode: Run}, &Event{Category: Move})
	b := d.Breakdown()
	assert.Equal(t, 2, b.Counts[Water])
	assert.Equal(t, 2, b.Counts[Move])
	assert.Equal(t, 1, b.Moves[Run])
	assert.Equal(t, 1, b.Moves[Walk])
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		minutes int
		err     bool
	}{
		{"07:00", 420, false},
		{"00:00", 0, false},
		{"23:59", 1439, false},
		{" 6:30 ", 390, false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"7:5", 0, true},
		{"abc", 0, true},
		{"-0:30", 0, true},
		{"+7:00", 0, true},
		{"07:+5", 0, true},
		{"007:00", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseClock(tt.in)
			if tt.err {
				require.ErrorIs(t, err, ErrInvalidWakeTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.minutes, m)
			assert.Equal(t, tt.minutes, mustParse(t, FormatClock(m)))
		})
	}
}

func mustParse(t *testing.T, s string) int {
	t.Helper()
	m, err := ParseClock(s)
	require.NoError(t, err)
	return m
}
