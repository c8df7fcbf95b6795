package bloodliner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type ChangeKind string

const (
	ChangeEvent      ChangeKind = "event"
	ChangeWake       ChangeKind = "wake"
	ChangeHabit      ChangeKind = "habit"
	ChangeHabits     ChangeKind = "habits"
	ChangeTap        ChangeKind = "tap"
	ChangeGoal       ChangeKind = "goal"
	ChangeRating     ChangeKind = "rating"
	ChangeGlobalShot ChangeKind = "global-shot"
	ChangeFinalize   ChangeKind = "finalize"
)

// Change describes a mutation that has been applied and persisted.
type Change struct {
	Kind   ChangeKind
	Day    int
	Season *Season
	Result *FinalizeResult
}

type Option func(*Engine)

// WithClock sets the time source used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine owns a season and is the only way to change it. All operations are
// serialized and every successful mutation is persisted before it returns.
type Engine struct {
	mu       sync.Mutex
	config   *Config
	calc     *Calculator
	projects *Projector
	store    Store
	season   *Season
	subs     []func(Change)
	now      func() time.Time
}

// NewEngine loads the season from the store. A missing or malformed blob
// yields a fresh season.
func NewEngine(ctx context.Context, config *Config, store Store, opts ...Option) (*Engine, error) {
	bosses, err := NewBossChain(config.Bosses)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		config:   config,
		calc:     NewCalculator(config),
		projects: NewProjector(config, bosses),
		store:    store,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.load(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) load(ctx context.Context) error {
	val, err := e.store.Load(ctx, StateKey)
	switch {
	case errors.Is(err, ErrNotFound):
		log.Info().Str("key", StateKey).Msg("new season")
		e.season = NewSeason(e.config)
	case err != nil:
		return err
	default:
		var s Season
		if err := json.Unmarshal(val, &s); err != nil {
			log.Warn().Err(err).Str("key", StateKey).Msg("discarding malformed season")
			e.season = NewSeason(e.config)
		} else {
			s.backfill(e.config)
			e.season = &s
		}
	}
	for _, d := range e.season.Days {
		if !d.Locked() {
			d.Scores = e.calc.Score(d, len(e.season.Habits))
		}
	}
	return e.persist(ctx)
}

func (e *Engine) persist(ctx context.Context) error {
	val, err := json.Marshal(e.season)
	if err != nil {
		return err
	}
	return e.store.Save(ctx, StateKey, val)
}

// Subscribe registers f to be called after every persisted mutation.
func (e *Engine) Subscribe(f func(Change)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, f)
}

func (e *Engine) Config() *Config {
	return e.config
}

// Season returns a copy of the current season.
func (e *Engine) Season() *Season {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.season.clone()
}

// Day returns a copy of day n.
func (e *Engine) Day(n int) (*Day, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.season.Day(n)
	if d == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDay, n)
	}
	return d.clone(), nil
}

// update applies fn to the season. If fn fails or the result cannot be
// persisted the season is restored to its prior state.
func (e *Engine) update(ctx context.Context, fn func(*Season) (Change, error)) (Change, error) {
	e.mu.Lock()
	prev := e.season.clone()
	change, err := fn(e.season)
	if err == nil {
		if err = e.persist(ctx); err != nil {
			log.Error().Err(err).Str("kind", string(change.Kind)).Msg("persist")
		}
	}
	if err != nil {
		e.season = prev
		e.mu.Unlock()
		return Change{}, err
	}
	change.Season = e.season.clone()
	subs := append([]func(Change){}, e.subs...)
	e.mu.Unlock()

	for _, f := range subs {
		f(change)
	}
	return change, nil
}

// mutateDay is the single entry point for changes to a day's raw inputs. It
// rejects locked days and recomputes the day's scores after fn succeeds.
func (e *Engine) mutateDay(ctx context.Context, kind ChangeKind, n int, fn func(*Season, *Day) error) (*Day, error) {
	change, err := e.update(ctx, func(s *Season) (Change, error) {
		d := s.Day(n)
		if d == nil {
			return Change{}, fmt.Errorf("%w: %d", ErrInvalidDay, n)
		}
		if d.Locked() {
			return Change{}, fmt.Errorf("%w: day %d", ErrDayLocked, n)
		}
		if err := fn(s, d); err != nil {
			return Change{}, err
		}
		d.Scores = e.calc.Score(d, len(s.Habits))
		return Change{Kind: kind, Day: n}, nil
	})
	if err != nil {
		log.Warn().Err(err).Int("day", n).Str("kind", string(kind)).Msg("rejected")
		return nil, err
	}
	d := change.Season.Days[n]
	log.Debug().Int("day", n).Str("kind", string(kind)).Float64("total", d.Scores.Total).Msg("mutate")
	return d, nil
}

// LogEvent appends an energy or behavior event to day n.
func (e *Engine) LogEvent(ctx context.Context, n int, category Category, mode MoveMode) (*Day, error) {
	if !category.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if category == Move && mode == "" {
		mode = Walk
	}
	if category != Move {
		mode = ""
	}
	if mode != "" && !mode.IsValid() {
		return nil, fmt.Errorf("%w: move mode %q", ErrUnknownCategory, mode)
	}
	return e.mutateDay(ctx, ChangeEvent, n, func(_ *Season, d *Day) error {
		d.Events = append(d.Events, &Event{
			ID:       uuid.NewString(),
			Category: category,
			Mode:     mode,
			Time:     e.now(),
		})
		return nil
	})
}

// ImportEvents appends events from an external source to day n, skipping
// any whose id has already been recorded.
func (e *Engine) ImportEvents(ctx context.Context, n int, events []*Event) (*Day, int, error) {
	var added int
	d, err := e.mutateDay(ctx, ChangeEvent, n, func(_ *Season, d *Day) error {
		seen := make(map[string]bool, len(d.Events))
		for _, ev := range d.Events {
			seen[ev.ID] = true
		}
		for _, ev := range events {
			if !ev.Category.IsValid() || (ev.Mode != "" && !ev.Mode.IsValid()) {
				return fmt.Errorf("%w: %q", ErrUnknownCategory, ev.Category)
			}
			if seen[ev.ID] {
				continue
			}
			seen[ev.ID] = true
			x := *ev
			d.Events = append(d.Events, &x)
			added++
		}
		return nil
	})
	return d, added, err
}

// SetWakeTime records the wake time in minutes after midnight.
func (e *Engine) SetWakeTime(ctx context.Context, n, minutes int) (*Day, error) {
	if err := validWake(minutes); err != nil {
		log.Warn().Err(err).Int("day", n).Msg("rejected")
		return nil, err
	}
	return e.mutateDay(ctx, ChangeWake, n, func(_ *Season, d *Day) error {
		d.WakeMinutes = intp(minutes)
		return nil
	})
}

func (e *Engine) ClearWakeTime(ctx context.Context, n int) (*Day, error) {
	return e.mutateDay(ctx, ChangeWake, n, func(_ *Season, d *Day) error {
		d.WakeMinutes = nil
		return nil
	})
}

// SetHabit marks a habit done or not done for day n.
func (e *Engine) SetHabit(ctx context.Context, n int, name string, done bool) (*Day, error) {
	return e.mutateDay(ctx, ChangeHabit, n, func(s *Season, d *Day) error {
		if !s.HasHabit(name) {
			return fmt.Errorf("%w: %q", ErrUnknownHabit, name)
		}
		d.Habits[name] = done
		return nil
	})
}

// RecordTap stores the result of a timed tap test.
func (e *Engine) RecordTap(ctx context.Context, n int, slot TapSlot, count int) (*Day, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTap, count)
	}
	return e.mutateDay(ctx, ChangeTap, n, func(_ *Season, d *Day) error {
		switch slot {
		case Morning:
			d.Taps.Morning = intp(count)
		case Evening:
			d.Taps.Evening = intp(count)
		default:
			return fmt.Errorf("%w: slot %q", ErrInvalidTap, slot)
		}
		return nil
	})
}

// SetGoal sets the target score percentage for day n.
func (e *Engine) SetGoal(ctx context.Context, n, pct int) (*Day, error) {
	if pct < 1 || pct > 100 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidGoal, pct)
	}
	return e.mutateDay(ctx, ChangeGoal, n, func(_ *Season, d *Day) error {
		d.Goal = intp(pct)
		return nil
	})
}

// SetRating records mood and focus for day n. A nil value is left as is.
func (e *Engine) SetRating(ctx context.Context, n int, mood, focus *int) (*Day, error) {
	if err := validRatings(mood, focus); err != nil {
		return nil, err
	}
	return e.mutateDay(ctx, ChangeRating, n, func(_ *Season, d *Day) error {
		if mood != nil {
			d.Mood = intp(*mood)
		}
		if focus != nil {
			d.Focus = intp(*focus)
		}
		return nil
	})
}

func validRatings(vals ...*int) error {
	for _, v := range vals {
		if v != nil && (*v < 1 || *v > 10) {
			return fmt.Errorf("%w: %d", ErrInvalidRating, *v)
		}
	}
	return nil
}

// AddHabit appends a habit to the season's list. Adding an existing habit is a no-op.
func (e *Engine) AddHabit(ctx context.Context, name string) (*Season, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidHabit
	}
	change, err := e.update(ctx, func(s *Season) (Change, error) {
		if !s.HasHabit(name) {
			s.Habits = append(s.Habits, name)
			e.rescore(s)
		}
		return Change{Kind: ChangeHabits}, nil
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("habit", name).Msg("add habit")
	return change.Season, nil
}

// RemoveHabit deletes a habit from the season and from every day. Finalized
// days keep their scores.
func (e *Engine) RemoveHabit(ctx context.Context, name string) (*Season, error) {
	change, err := e.update(ctx, func(s *Season) (Change, error) {
		if !s.HasHabit(name) {
			return Change{}, fmt.Errorf("%w: %q", ErrUnknownHabit, name)
		}
		habits := s.Habits[:0]
		for _, h := range s.Habits {
			if h != name {
				habits = append(habits, h)
			}
		}
		s.Habits = habits
		for _, d := range s.Days {
			delete(d.Habits, name)
		}
		e.rescore(s)
		return Change{Kind: ChangeHabits}, nil
	})
	if err != nil {
		log.Warn().Err(err).Str("habit", name).Msg("rejected")
		return nil, err
	}
	log.Info().Str("habit", name).Msg("remove habit")
	return change.Season, nil
}

// rescore recomputes every open day, used when the habit list changes.
func (e *Engine) rescore(s *Season) {
	for _, d := range s.Days {
		if !d.Locked() {
			d.Scores = e.calc.Score(d, len(s.Habits))
		}
	}
}

// GlobalShot increments the season-wide shot counter.
func (e *Engine) GlobalShot(ctx context.Context) (int, error) {
	change, err := e.update(ctx, func(s *Season) (Change, error) {
		s.GlobalShots++
		return Change{Kind: ChangeGlobalShot}, nil
	})
	if err != nil {
		return 0, err
	}
	return change.Season.GlobalShots, nil
}

// Review derives the read-only season summary.
func (e *Engine) Review() *Review {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.projects.Review(e.season)
}
