package bloodliner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyGoal(t *testing.T) {
	tests := []struct {
		name   string
		score  float64
		goal   *int
		result GoalResult
	}{
		{"no goal", 90, nil, NoGoal},
		{"zero goal", 90, intp(0), NoGoal},
		{"overdrive", 70, intp(60), Overdrive},
		{"pass at goal", 60, intp(60), Pass},
		{"pass", 65, intp(60), Pass},
		{"near miss at boundary", 40, intp(50), NearMiss},
		{"near miss", 55, intp(60), NearMiss},
		{"fail", 39, intp(50), Fail},
		{"negative", -20, intp(50), Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.result, ClassifyGoal(tt.score, tt.goal))
		})
	}
}

func TestBossChain(t *testing.T) {
	cfg := testConfig(t)
	chain, err := NewBossChain(cfg.Bosses)
	require.NoError(t, err)

	tests := []struct {
		name string
		avg  Averages
		boss string
	}{
		{"shots first", Averages{Shots: 5, Mood: 2, Focus: 2, Score: 90}, "Distraction Kraken"},
		{"mood", Averages{Mood: 3, Focus: 2, Score: 90}, "Mood Serpent"},
		{"focus", Averages{Mood: 6, Focus: 3, Score: 90}, "Procrastination Specter"},
		{"glass cannon", Averages{Mood: 6, Focus: 6, Score: 81}, "Glass Cannon Mirror"},
		{"binary trap", Averages{Mood: 6, Focus: 6, Score: 49}, "Binary Trap Serpent"},
		{"fallback", Averages{Mood: 6, Focus: 6, Score: 65}, "Supernova Warden"},
		{"boundaries are strict", Averages{Shots: 4, Mood: 4, Focus: 4, Score: 80}, "Supernova Warden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			boss, err := chain.Select(tt.avg)
			require.NoError(t, err)
			require.NotNil(t, boss)
			assert.Equal(t, tt.boss, boss.Name)
			assert.NotEmpty(t, boss.Reward)
		})
	}
}

func TestBossChainErrors(t *testing.T) {
	_, err := NewBossChain([]BossRule{{Name: "bad", When: "score >"}})
	assert.Error(t, err)

	_, err = NewBossChain([]BossRule{{Name: "unknown", When: "hunger > 3.0"}})
	assert.Error(t, err)

	chain, err := NewBossChain([]BossRule{{Name: "never", When: "false"}})
	require.NoError(t, err)
	boss, err := chain.Select(Averages{})
	require.NoError(t, err)
	assert.Nil(t, boss)
}

func newTestProjector(t *testing.T) *Projector {
	t.Helper()
	cfg := testConfig(t)
	chain, err := NewBossChain(cfg.Bosses)
	require.NoError(t, err)
	return NewProjector(cfg, chain)
}

func TestFreshSeasonReview(t *testing.T) {
	a := assert.New(t)
	p := newTestProjector(t)
	s := NewSeason(p.config)

	r := p.Review(s)
	a.Equal(CollectingData, r.Boss.Name)
	a.Equal("Season ready. No games played yet.", r.Ticker)
	a.Equal(Projections{Life: 40, Body: 40}, r.Projections)
	// 0.2 ghost alignment + 0.2 * (40+40)/200
	a.Equal(280, r.Omni)
	a.Nil(r.Tomorrow)
	a.Nil(r.PredictedEnergy)
	a.Nil(r.Insights.Best)
	a.Equal(0, r.Goals.Set)
	a.False(r.Complete)
	a.Len(r.Insights.Totals, len(Categories))
}

func TestGhostAlignment(t *testing.T) {
	assert.Equal(t, 1.0, GhostAlignment(1))
	assert.Equal(t, 0.5, GhostAlignment(0))
	assert.Equal(t, 0.0, GhostAlignment(3))
	assert.Equal(t, 0.75, GhostAlignment(1.5))
}

func TestAverages(t *testing.T) {
	a := assert.New(t)
	p := newTestProjector(t)
	s := NewSeason(p.config)

	s.Days[1].Status = Done
	s.Days[1].Scores = Scores{Total: 80, Energy: 10}
	s.Days[1].Delta = intp(0)
	s.Days[1].Mood = intp(6)
	s.Days[1].Events = newEvents(Shot, Shot)
	s.Days[2].Status = Done
	s.Days[2].Scores = Scores{Total: 40, Energy: -10}
	s.Days[2].Delta = intp(-40)
	s.Days[2].Mood = intp(0)
	s.Days[3].Mood = intp(8)
	s.Days[3].Scores = Scores{Total: 500}

	avg := p.Averages(s, SeasonLength)
	a.Equal(2, avg.Days)
	a.Equal(60.0, avg.Score)
	a.Equal(0.0, avg.Energy)
	a.Equal(-20.0, avg.Delta)
	a.Equal(7.0, avg.Mood, "zero ratings are ignored")
	a.Equal(0.0, avg.Focus)
	a.Equal(2.0, avg.Shots)

	avg = p.Averages(s, 1)
	a.Equal(1, avg.Days)
	a.Equal(80.0, avg.Score)
	a.Equal(6.0, avg.Mood)
}

func TestGoalStats(t *testing.T) {
	a := assert.New(t)
	p := newTestProjector(t)
	s := NewSeason(p.config)
	for n, r := range []GoalResult{Overdrive, Pass, Pass, NearMiss, Fail, NoGoal} {
		s.Days[n+1].GoalResult = r
	}

	g := p.Goals(s)
	a.Equal(5, g.Set)
	a.Equal(1, g.Overdrive)
	a.Equal(2, g.Pass)
	a.Equal(1, g.NearMiss)
	a.Equal(1, g.Fail)
	a.Equal(60, g.Accuracy)
	a.Equal(20, g.Ambition)
	a.Equal(60, g.Realism)
}

func TestReviewAfterFinalize(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	e := engineWithHabit(t, nil)

	perfect(t, e, 1)
	_, err := e.SetGoal(ctx, 1, 70)
	require.NoError(t, err)
	logN(t, e, 1, Coffee, 2)
	logN(t, e, 1, Shot, 1)
	_, err = e.Finalize(ctx, 1, FinalizeOptions{Mood: intp(7), Focus: intp(9)})
	require.NoError(t, err)

	logN(t, e, 2, Water, 4)

	r := e.Review()
	a.Equal(2, r.CurrentDay)
	a.Equal(1, *r.LastCompleted)
	a.Equal("DAY 1 · PASS · Score 77 · PR · Shots 1 · BV -23 · Δ +0", r.Ticker)
	a.Equal("Supernova Warden", r.Boss.Name)
	a.Equal(&DayScore{Day: 1, Score: 77}, r.Insights.Best)
	a.Equal(&DayScore{Day: 1, Score: 77}, r.Insights.Worst)
	a.Equal(2, r.Insights.Totals[Coffee])
	a.Equal(4, r.Insights.Totals[Water])
	a.Equal(1, r.Insights.Shots)
	a.Equal(13.0, r.Insights.Money)
	a.Equal(7, *r.Insights.Mood)
	a.Equal(9, *r.Insights.Focus)
	a.Equal(8, *r.PredictedEnergy)
	a.InDelta(88.5, *r.Tomorrow, 1e-9)
	a.Equal(1, r.Goals.Set)
	a.Equal(100, r.Goals.Accuracy)
	a.Equal(Projections{Life: 100, Body: 0}, r.Projections)
}
