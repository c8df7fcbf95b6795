package bloodliner

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

type FinalizeOptions struct {
	// Confirm allows finalizing a day with nothing recorded.
	Confirm bool
	Mood    *int
	Focus   *int
}

type FinalizeResult struct {
	Day            *Day    `json:"day"`
	Streak         int     `json:"streak"`
	XP             int     `json:"xp"`
	Level          int     `json:"level"`
	LevelUps       int     `json:"levelUps"`
	Ghost          float64 `json:"ghostDistance"`
	Boss           string  `json:"boss"`
	CurrentDay     int     `json:"currentDay"`
	SeasonComplete bool    `json:"seasonComplete"`
}

// Finalize locks day n and folds it into the season's streak, ghost, xp and
// boss state. A finalized day never reopens.
func (e *Engine) Finalize(ctx context.Context, n int, opts FinalizeOptions) (*FinalizeResult, error) {
	if err := validRatings(opts.Mood, opts.Focus); err != nil {
		return nil, err
	}
	change, err := e.update(ctx, func(s *Season) (Change, error) {
		res, err := e.finalize(s, n, opts)
		if err != nil {
			return Change{}, err
		}
		return Change{Kind: ChangeFinalize, Day: n, Result: res}, nil
	})
	if err != nil {
		log.Warn().Err(err).Int("day", n).Msg("finalize rejected")
		return nil, err
	}
	res := change.Result
	res.Day = change.Season.Days[n]
	log.Info().
		Int("day", n).
		Float64("total", res.Day.Scores.Total).
		Bool("pr", res.Day.PR).
		Int("streak", res.Streak).
		Int("level", res.Level).
		Float64("ghost", res.Ghost).
		Msg("finalize")
	return res, nil
}

func (e *Engine) finalize(s *Season, n int, opts FinalizeOptions) (*FinalizeResult, error) {
	d := s.Day(n)
	if d == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDay, n)
	}
	if d.Locked() {
		return nil, fmt.Errorf("%w: day %d", ErrAlreadyFinalized, n)
	}
	if opts.Mood != nil {
		d.Mood = intp(*opts.Mood)
	}
	if opts.Focus != nil {
		d.Focus = intp(*opts.Focus)
	}

	d.Scores = e.calc.Score(d, len(s.Habits))
	empty := d.Empty()
	if empty && !opts.Confirm {
		return nil, fmt.Errorf("%w: day %d", ErrEmptyDay, n)
	}
	total := d.Scores.Total

	d.PR = total > 0 && total > e.best(s, n)

	delta := e.ghostDelta(d, empty)
	s.Ghost = round6(clamp(s.Ghost+delta, e.config.Ghost.Min, e.config.Ghost.Max))
	d.GhostDelta = floatp(delta)
	d.GhostAfter = floatp(s.Ghost)

	if s.LastCompleted != nil && *s.LastCompleted == n-1 {
		s.Streak++
	} else {
		s.Streak = 1
	}
	s.LastCompleted = intp(n)

	d.GoalResult = ClassifyGoal(total, d.Goal)
	d.Delta = intp(e.deltaFromAverage(s, n, total))

	gain := int(math.Round(total)) + *d.Delta
	if d.GoalResult == Overdrive {
		gain += e.config.Goal.XPBonus
	}
	if gain < 0 {
		gain = 0
	}
	d.XPGain = gain
	s.XP += gain
	var ups int
	for s.XP >= s.Level*e.config.XP.LevelStep {
		s.XP -= s.Level * e.config.XP.LevelStep
		s.Level++
		ups++
	}

	d.Status = Done
	now := e.now()
	d.FinalizedAt = &now

	s.advance()

	s.Boss = e.projects.Boss(s).Name

	return &FinalizeResult{
		Streak:         s.Streak,
		XP:             s.XP,
		Level:          s.Level,
		LevelUps:       ups,
		Ghost:          s.Ghost,
		Boss:           s.Boss,
		CurrentDay:     s.CurrentDay,
		SeasonComplete: s.Complete(),
	}, nil
}

// best returns the highest total among all days other than n, open or not.
func (e *Engine) best(s *Season, n int) float64 {
	best := math.Inf(-1)
	for i, d := range s.Days {
		if i != n && d.Scores.Total > best {
			best = d.Scores.Total
		}
	}
	return best
}

// ghostDelta moves the ghost closer on good days and further away on bad
// ones. Days with nothing recorded leave it where it is.
func (e *Engine) ghostDelta(d *Day, empty bool) float64 {
	if empty {
		return 0
	}
	g := e.config.Ghost
	normalized := clamp(d.Scores.Total/100, -1, 1)
	delta := -normalized * g.BaseRate
	for c, rate := range g.Penalties {
		delta += rate * float64(d.Count(c))
	}
	return round6(delta)
}

// deltaFromAverage compares a total with the mean of finalized days before n.
func (e *Engine) deltaFromAverage(s *Season, n int, total float64) int {
	var sum float64
	var count int
	for i := 1; i < n; i++ {
		if d := s.Days[i]; d.Locked() {
			sum += d.Scores.Total
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return int(math.Round(total - sum/float64(count)))
}
