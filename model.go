package bloodliner

import (
	"time"
)

// SeasonLength is the number of days in a season.
const SeasonLength = 90

type Category string

const (
	Water    Category = "Water"
	Protein  Category = "Protein"
	Coffee   Category = "Coffee"
	Meal     Category = "Meal"
	Nicotine Category = "Nicotine"
	Move     Category = "Move"
	Shot     Category = "Shot"
)

// Categories lists every category in display order.
var Categories = []Category{Water, Move, Protein, Coffee, Meal, Nicotine, Shot}

func (c Category) IsValid() bool {
	switch c {
	case Water, Protein, Coffee, Meal, Nicotine, Move, Shot:
		return true
	default:
		return false
	}
}

type MoveMode string

const (
	Walk     MoveMode = "Walk"
	Run      MoveMode = "Run"
	Gym      MoveMode = "Gym"
	Sport    MoveMode = "Sport"
	Mobility MoveMode = "Mobility"
)

// MoveModes lists every movement sub-mode in display order.
var MoveModes = []MoveMode{Walk, Run, Gym, Sport, Mobility}

func (m MoveMode) IsValid() bool {
	switch m {
	case Walk, Run, Gym, Sport, Mobility:
		return true
	default:
		return false
	}
}

type TapSlot string

const (
	Morning TapSlot = "morning"
	Evening TapSlot = "evening"
)

type Status string

const (
	Open Status = "open"
	Done Status = "done"
)

type GoalResult string

const (
	NoGoal    GoalResult = "NO GOAL"
	Overdrive GoalResult = "OVERDRIVE"
	Pass      GoalResult = "PASS"
	NearMiss  GoalResult = "NEAR MISS"
	Fail      GoalResult = "FAIL"
)

type Event struct {
	ID       string    `json:"id"`
	Category Category  `json:"type"`
	Mode     MoveMode  `json:"mode,omitempty"`
	Source   string    `json:"source,omitempty"`
	Time     time.Time `json:"time"`
}

type Taps struct {
	Morning *int `json:"morning,omitempty"`
	Evening *int `json:"evening,omitempty"`
}

func (t Taps) Total() int {
	var n int
	if t.Morning != nil {
		n += *t.Morning
	}
	if t.Evening != nil {
		n += *t.Evening
	}
	return n
}

// Scores are derived from a day's raw inputs and never edited directly.
type Scores struct {
	Habit  float64 `json:"habit"`
	Energy float64 `json:"energy"`
	Wake   float64 `json:"wake"`
	Tap    float64 `json:"tap"`
	Bonus  float64 `json:"bonus"`
	Total  float64 `json:"total"`
	Money  float64 `json:"money"`
}

type Day struct {
	Number      int             `json:"number"`
	Habits      map[string]bool `json:"habits"`
	Events      []*Event        `json:"energy"`
	WakeMinutes *int            `json:"wake,omitempty"`
	Taps        Taps            `json:"taps"`
	Goal        *int            `json:"goal,omitempty"`
	GoalResult  GoalResult      `json:"goalResult,omitempty"`
	Mood        *int            `json:"mood,omitempty"`
	Focus       *int            `json:"focus,omitempty"`
	Scores      Scores          `json:"scores"`
	Status      Status          `json:"status"`
	PR          bool            `json:"pr"`
	Delta       *int            `json:"delta,omitempty"`
	GhostDelta  *float64        `json:"ghostDelta,omitempty"`
	GhostAfter  *float64        `json:"ghostDistanceAfter,omitempty"`
	XPGain      int             `json:"xpGain,omitempty"`
	FinalizedAt *time.Time      `json:"finalizedAt,omitempty"`
}

func (d *Day) Locked() bool {
	return d.Status == Done
}

// Count returns the number of events logged for the category.
func (d *Day) Count(c Category) int {
	var n int
	for _, ev := range d.Events {
		if ev.Category == c {
			n++
		}
	}
	return n
}

func (d *Day) habitsDone() int {
	var n int
	for _, done := range d.Habits {
		if done {
			n++
		}
	}
	return n
}

// Empty reports whether nothing at all was recorded for the day.
func (d *Day) Empty() bool {
	return len(d.Events) == 0 &&
		d.WakeMinutes == nil &&
		d.Taps.Morning == nil && d.Taps.Evening == nil &&
		d.habitsDone() == 0 &&
		d.Scores.Total == 0
}

func (d *Day) clone() *Day {
	c := *d
	c.Habits = make(map[string]bool, len(d.Habits))
	for k, v := range d.Habits {
		c.Habits[k] = v
	}
	c.Events = make([]*Event, len(d.Events))
	for i, ev := range d.Events {
		e := *ev
		c.Events[i] = &e
	}
	c.WakeMinutes = cloneInt(d.WakeMinutes)
	c.Taps = Taps{Morning: cloneInt(d.Taps.Morning), Evening: cloneInt(d.Taps.Evening)}
	c.Goal = cloneInt(d.Goal)
	c.Mood = cloneInt(d.Mood)
	c.Focus = cloneInt(d.Focus)
	c.Delta = cloneInt(d.Delta)
	c.GhostDelta = cloneFloat(d.GhostDelta)
	c.GhostAfter = cloneFloat(d.GhostAfter)
	if d.FinalizedAt != nil {
		t := *d.FinalizedAt
		c.FinalizedAt = &t
	}
	return &c
}

type Season struct {
	Habits        []string     `json:"habits"`
	Days          map[int]*Day `json:"days"`
	CurrentDay    int          `json:"currentDay"`
	LastCompleted *int         `json:"lastCompleted"`
	Streak        int          `json:"streak"`
	Ghost         float64      `json:"ghostDistance"`
	XP            int          `json:"xp"`
	Level         int          `json:"level"`
	GlobalShots   int          `json:"globalShots"`
	Boss          string       `json:"currentBoss,omitempty"`
}

// NewSeason returns a season with all days open and nothing recorded.
func NewSeason(cfg *Config) *Season {
	s := &Season{}
	s.backfill(cfg)
	return s
}

// Day returns the record for day n or nil if n is outside the season.
func (s *Season) Day(n int) *Day {
	if n < 1 || n > SeasonLength {
		return nil
	}
	return s.Days[n]
}

func (s *Season) HasHabit(name string) bool {
	for _, h := range s.Habits {
		if h == name {
			return true
		}
	}
	return false
}

// Complete reports whether the final day of the season has been finalized.
func (s *Season) Complete() bool {
	return s.Days[SeasonLength].Locked()
}

// advance moves the current day past locked days to the next open one.
// It stops at the last day of the season.
func (s *Season) advance() {
	for s.CurrentDay < SeasonLength && s.Days[s.CurrentDay].Locked() {
		s.CurrentDay++
	}
}

// backfill defaults any field missing from a season decoded from an older blob.
func (s *Season) backfill(cfg *Config) {
	if s.Days == nil {
		s.Days = make(map[int]*Day, SeasonLength)
	}
	if s.Habits == nil {
		s.Habits = []string{}
	}
	for i := 1; i <= SeasonLength; i++ {
		d, ok := s.Days[i]
		if !ok || d == nil {
			d = &Day{}
			s.Days[i] = d
		}
		d.Number = i
		if d.Habits == nil {
			d.Habits = make(map[string]bool)
		}
		if d.Events == nil {
			d.Events = []*Event{}
		}
		if d.Status != Done {
			d.Status = Open
		}
	}
	for n := range s.Days {
		if n < 1 || n > SeasonLength {
			delete(s.Days, n)
		}
	}
	if s.CurrentDay < 1 || s.CurrentDay > SeasonLength {
		s.CurrentDay = 1
	}
	s.advance()
	if s.Level < 1 {
		s.Level = 1
	}
	if s.LastCompleted == nil && s.Ghost == 0 && s.Streak == 0 {
		s.Ghost = cfg.Ghost.Start
	}
	s.Ghost = clamp(s.Ghost, cfg.Ghost.Min, cfg.Ghost.Max)
}

func (s *Season) clone() *Season {
	c := *s
	c.Habits = append([]string{}, s.Habits...)
	c.Days = make(map[int]*Day, len(s.Days))
	for n, d := range s.Days {
		c.Days[n] = d.clone()
	}
	c.LastCompleted = cloneInt(s.LastCompleted)
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	x := *v
	return &x
}

func intp(v int) *int { return &v }

func floatp(v float64) *float64 { return &v }
