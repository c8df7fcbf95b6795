package bloodliner

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

// ClassifyGoal grades a score against a goal percentage. Boundaries are
// inclusive and checked from strictest to loosest.
func ClassifyGoal(score float64, goal *int) GoalResult {
	if goal == nil || *goal == 0 {
		return NoGoal
	}
	g := float64(*goal)
	switch {
	case score >= g*1.15:
		return Overdrive
	case score >= g:
		return Pass
	case score >= g*0.8:
		return NearMiss
	default:
		return Fail
	}
}

type Averages struct {
	Days   int     `json:"days"`
	Score  float64 `json:"score"`
	Delta  float64 `json:"delta"`
	Energy float64 `json:"energy"`
	Mood   float64 `json:"mood"`
	Focus  float64 `json:"focus"`
	Shots  float64 `json:"shots"`
}

type GoalStats struct {
	Set       int `json:"set"`
	Accuracy  int `json:"accuracy"`
	Ambition  int `json:"ambition"`
	Realism   int `json:"realism"`
	Overdrive int `json:"overdrive"`
	Pass      int `json:"pass"`
	NearMiss  int `json:"nearMiss"`
	Fail      int `json:"fail"`
}

type Projections struct {
	Life float64 `json:"life"`
	Body float64 `json:"body"`
}

type DayScore struct {
	Day   int     `json:"day"`
	Score float64 `json:"score"`
}

type Insights struct {
	Best   *DayScore        `json:"best,omitempty"`
	Worst  *DayScore        `json:"worst,omitempty"`
	Mood   *int             `json:"mood,omitempty"`
	Focus  *int             `json:"focus,omitempty"`
	Totals map[Category]int `json:"totals"`
	Shots  int              `json:"shots"`
	Money  float64          `json:"money"`
}

type Review struct {
	CurrentDay      int         `json:"currentDay"`
	LastCompleted   *int        `json:"lastCompleted,omitempty"`
	Streak          int         `json:"streak"`
	XP              int         `json:"xp"`
	Level           int         `json:"level"`
	Ghost           float64     `json:"ghostDistance"`
	GlobalShots     int         `json:"globalShots"`
	Complete        bool        `json:"seasonComplete"`
	Averages        Averages    `json:"averages"`
	Goals           GoalStats   `json:"goals"`
	Boss            Boss        `json:"boss"`
	Omni            int         `json:"omniScore"`
	Projections     Projections `json:"projections"`
	Ticker          string      `json:"ticker"`
	Insights        Insights    `json:"insights"`
	PredictedEnergy *int        `json:"predictedEnergy,omitempty"`
	Tomorrow        *float64    `json:"tomorrow,omitempty"`
}

// Projector derives advisory figures from a season without changing it.
type Projector struct {
	config *Config
	bosses *BossChain
}

func NewProjector(config *Config, bosses *BossChain) *Projector {
	return &Projector{config: config, bosses: bosses}
}

// Averages summarizes days 1..upTo. Score, delta and energy are taken from
// finalized days; mood, focus and shots only from days where they were non-zero.
func (p *Projector) Averages(s *Season, upTo int) Averages {
	var a Averages
	var moods, focs, shots []float64
	var scores, deltas, energy []float64
	for i := 1; i <= upTo && i <= SeasonLength; i++ {
		d := s.Days[i]
		if d.Mood != nil && *d.Mood != 0 {
			moods = append(moods, float64(*d.Mood))
		}
		if d.Focus != nil && *d.Focus != 0 {
			focs = append(focs, float64(*d.Focus))
		}
		if n := d.Count(Shot); n > 0 {
			shots = append(shots, float64(n))
		}
		if d.Locked() {
			scores = append(scores, d.Scores.Total)
			energy = append(energy, d.Scores.Energy)
			if d.Delta != nil {
				deltas = append(deltas, float64(*d.Delta))
			}
		}
	}
	a.Days = len(scores)
	a.Score = mean(scores)
	a.Delta = mean(deltas)
	a.Energy = mean(energy)
	a.Mood = mean(moods)
	a.Focus = mean(focs)
	a.Shots = mean(shots)
	return a
}

// Boss selects the current boss from averages up to the last completed day.
func (p *Projector) Boss(s *Season) Boss {
	if s.LastCompleted == nil {
		return Boss{Name: CollectingData}
	}
	boss, err := p.bosses.Select(p.Averages(s, *s.LastCompleted))
	if err != nil {
		log.Error().Err(err).Msg("boss")
		return Boss{Name: CollectingData}
	}
	if boss == nil {
		return Boss{Name: CollectingData}
	}
	return *boss
}

func (p *Projector) Goals(s *Season) GoalStats {
	var g GoalStats
	for i := 1; i <= SeasonLength; i++ {
		switch s.Days[i].GoalResult {
		case Overdrive:
			g.Overdrive++
		case Pass:
			g.Pass++
		case NearMiss:
			g.NearMiss++
		case Fail:
			g.Fail++
		default:
			continue
		}
		g.Set++
	}
	if g.Set > 0 {
		pct := func(n int) int { return int(math.Round(float64(n) / float64(g.Set) * 100)) }
		g.Accuracy = pct(g.Pass + g.Overdrive)
		g.Ambition = pct(g.Overdrive)
		g.Realism = pct(g.Pass + g.NearMiss)
	}
	return g
}

// lifeRatio is the mean share of habits completed on finalized days.
func (p *Projector) lifeRatio(s *Season) float64 {
	if len(s.Habits) == 0 {
		return 0
	}
	var ratios []float64
	for i := 1; i <= SeasonLength; i++ {
		if d := s.Days[i]; d.Locked() {
			ratios = append(ratios, clamp(float64(d.habitsDone())/float64(len(s.Habits)), 0, 1))
		}
	}
	return mean(ratios)
}

// bodyIntensity is the mean energy score relative to the configured maximum.
func (p *Projector) bodyIntensity(s *Season) float64 {
	a := p.Averages(s, SeasonLength)
	return clamp(a.Energy/p.config.Omni.EnergyMax, -1, 1)
}

func probability(intensity float64) float64 {
	return clamp(40+intensity*60, 0, 100)
}

func (p *Projector) Projections(s *Season) Projections {
	return Projections{
		Life: round1(probability(p.lifeRatio(s))),
		Body: round1(probability(p.bodyIntensity(s))),
	}
}

// GhostAlignment is 1 when the ghost sits at distance 1.0 and falls off linearly.
func GhostAlignment(ghost float64) float64 {
	return clamp(1-math.Abs(ghost-1.0)/2, 0, 1)
}

// Omni blends habit, body, ghost and projection figures into a 0..1000 score.
func (p *Projector) Omni(s *Season) int {
	w := p.config.Omni
	proj := p.Projections(s)
	v := w.Life*p.lifeRatio(s) +
		w.Body*clamp(p.bodyIntensity(s), 0, 1) +
		w.Ghost*GhostAlignment(s.Ghost) +
		w.Projection*(proj.Life+proj.Body)/200
	return int(math.Round(clamp(v, 0, 1) * 1000))
}

// Ticker renders a one-line summary of the last completed day.
func (p *Projector) Ticker(s *Season) string {
	if s.LastCompleted == nil {
		return "Season ready. No games played yet."
	}
	return headline(s.Days[*s.LastCompleted])
}

// headline summarizes a finalized day on one line.
func headline(d *Day) string {
	parts := []string{fmt.Sprintf("DAY %d", d.Number)}
	if d.GoalResult != "" && d.GoalResult != NoGoal {
		parts = append(parts, string(d.GoalResult))
	}
	parts = append(parts, fmt.Sprintf("Score %g", d.Scores.Total))
	if d.PR {
		parts = append(parts, "PR")
	}
	parts = append(parts, fmt.Sprintf("Shots %d", d.Count(Shot)))
	parts = append(parts, fmt.Sprintf("BV %g", d.Scores.Energy))
	if d.Delta != nil {
		parts = append(parts, fmt.Sprintf("Δ %+d", *d.Delta))
	}
	return strings.Join(parts, " · ")
}

func (p *Projector) Insights(s *Season) Insights {
	in := Insights{Totals: make(map[Category]int)}
	for _, c := range Categories {
		in.Totals[c] = 0
	}
	var moods, focs []float64
	for i := 1; i <= SeasonLength; i++ {
		d := s.Days[i]
		if d.Locked() {
			if in.Best == nil || d.Scores.Total > in.Best.Score {
				in.Best = &DayScore{Day: i, Score: d.Scores.Total}
			}
			if in.Worst == nil || d.Scores.Total < in.Worst.Score {
				in.Worst = &DayScore{Day: i, Score: d.Scores.Total}
			}
		}
		for _, ev := range d.Events {
			in.Totals[ev.Category]++
		}
		in.Money += d.Scores.Money
		if d.Mood != nil && *d.Mood != 0 {
			moods = append(moods, float64(*d.Mood))
		}
		if d.Focus != nil && *d.Focus != 0 {
			focs = append(focs, float64(*d.Focus))
		}
	}
	in.Shots = in.Totals[Shot]
	in.Money = math.Round(in.Money*100) / 100
	if len(moods) > 0 {
		in.Mood = intp(int(math.Round(mean(moods))))
	}
	if len(focs) > 0 {
		in.Focus = intp(int(math.Round(mean(focs))))
	}
	return in
}

// PredictEnergy averages mood and focus over days where both were recorded.
func (p *Projector) PredictEnergy(s *Season) *int {
	var moods, focs []float64
	for i := 1; i <= SeasonLength; i++ {
		d := s.Days[i]
		if d.Mood != nil && d.Focus != nil && *d.Mood != 0 && *d.Focus != 0 {
			moods = append(moods, float64(*d.Mood))
			focs = append(focs, float64(*d.Focus))
		}
	}
	if len(moods) == 0 {
		return nil
	}
	return intp(int(math.Round((mean(moods) + mean(focs)) / 2)))
}

func (p *Projector) Review(s *Season) *Review {
	r := &Review{
		CurrentDay:      s.CurrentDay,
		LastCompleted:   cloneInt(s.LastCompleted),
		Streak:          s.Streak,
		XP:              s.XP,
		Level:           s.Level,
		Ghost:           s.Ghost,
		GlobalShots:     s.GlobalShots,
		Complete:        s.Complete(),
		Averages:        p.Averages(s, SeasonLength),
		Goals:           p.Goals(s),
		Boss:            p.Boss(s),
		Omni:            p.Omni(s),
		Projections:     p.Projections(s),
		Ticker:          p.Ticker(s),
		Insights:        p.Insights(s),
		PredictedEnergy: p.PredictEnergy(s),
	}
	if s.LastCompleted != nil {
		r.Tomorrow = floatp(PredictedEnergy(s.Days[*s.LastCompleted].Scores.Total))
	}
	return r
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
