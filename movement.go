package bloodliner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/bzimmer/activity"
	"github.com/bzimmer/activity/strava"
)

const pageSize = 200

// Workout is an activity recorded by an external tracker.
type Workout struct {
	ID      int64
	Type    string
	Name    string
	Start   time.Time
	Minutes float64
}

// WorkoutSource lists workouts started in [after, before).
type WorkoutSource interface {
	Workouts(ctx context.Context, after, before time.Time) ([]*Workout, error)
}

type StravaSource struct {
	client *strava.Client
}

// NewStravaSource creates a source for the athlete who owns the token.
func NewStravaSource(ctx context.Context, clientID, clientSecret string, token *oauth2.Token) (*StravaSource, error) {
	client, err := strava.NewClient(
		strava.WithTokenCredentials(token.AccessToken, token.RefreshToken, token.Expiry),
		strava.WithClientCredentials(clientID, clientSecret),
		strava.WithAutoRefresh(ctx))
	if err != nil {
		return nil, err
	}
	return &StravaSource{client: client}, nil
}

func (s *StravaSource) Workouts(c context.Context, after, before time.Time) ([]*Workout, error) {
	ctx, cancel := context.WithTimeout(c, 2*time.Minute)
	defer cancel()

	var res []*Workout
	// yes this order is correct
	opt := strava.WithDateRange(before, after)
	acts := s.client.Activity.Activities(ctx, activity.Pagination{Total: pageSize}, opt)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r, ok := <-acts:
			if !ok {
				return res, nil
			}
			if r.Err != nil {
				return nil, r.Err
			}
			res = append(res, &Workout{
				ID:      r.Activity.ID,
				Type:    r.Activity.Type,
				Name:    r.Activity.Name,
				Start:   r.Activity.StartDate,
				Minutes: r.Activity.MovingTime.Minutes(),
			})
		}
	}
}

// Movement turns external workouts into Move events on the matching day.
type Movement struct {
	config *Config
}

func NewMovement(config *Config) *Movement {
	return &Movement{config: config}
}

func (m *Movement) mode(w *Workout) (MoveMode, bool) {
	mode, ok := m.config.Strava.Modes[w.Type]
	return mode, ok
}

func (m *Movement) event(w *Workout) (int, *Event, bool) {
	minutes := time.Minute * time.Duration(math.Ceil(w.Minutes))
	if minutes < time.Minute*time.Duration(m.config.Strava.MinMinutes) {
		return 0, nil, false
	}
	mode, ok := m.mode(w)
	if !ok {
		return 0, nil, false
	}
	day := m.config.DayOf(w.Start)
	if day == 0 {
		return 0, nil, false
	}
	return day, &Event{
		ID:       fmt.Sprintf("strava-%d", w.ID),
		Category: Move,
		Mode:     mode,
		Source:   "strava",
		Time:     w.Start,
	}, true
}

type SyncResult struct {
	Imported int   `json:"imported"`
	Days     []int `json:"days"`
	Locked   []int `json:"locked"`
}

// Sync imports workouts from the season window into open days. Locked days
// are reported and left untouched.
func (m *Movement) Sync(ctx context.Context, e *Engine, src WorkoutSource) (*SyncResult, error) {
	after := m.config.Date(1)
	before := m.config.Date(SeasonLength + 1)
	workouts, err := src.Workouts(ctx, after, before)
	if err != nil {
		return nil, err
	}

	byDay := make(map[int][]*Event)
	for _, w := range workouts {
		day, ev, ok := m.event(w)
		if !ok {
			log.Debug().Str("name", w.Name).Int64("id", w.ID).Str("type", w.Type).Msg("skip")
			continue
		}
		byDay[day] = append(byDay[day], ev)
	}
	days := make([]int, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Ints(days)

	res := &SyncResult{}
	for _, day := range days {
		_, added, err := e.ImportEvents(ctx, day, byDay[day])
		switch {
		case err == nil:
			if added > 0 {
				res.Imported += added
				res.Days = append(res.Days, day)
			}
		case errors.Is(err, ErrDayLocked):
			res.Locked = append(res.Locked, day)
		default:
			return nil, err
		}
	}
	log.Info().Int("imported", res.Imported).Ints("days", res.Days).Msg("sync")
	return res, nil
}
