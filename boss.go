package bloodliner

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// CollectingData is the boss shown before any day has been finalized.
const CollectingData = "Collecting data..."

type Boss struct {
	Name     string `json:"name"`
	Weakness string `json:"weakness,omitempty"`
	Goal     string `json:"goal,omitempty"`
	Reward   string `json:"reward,omitempty"`
}

type bossRule struct {
	rule BossRule
	prg  cel.Program
}

// BossChain selects a boss from season averages. Rules are evaluated in
// order and the first match wins.
type BossChain struct {
	rules []bossRule
}

func NewBossChain(rules []BossRule) (*BossChain, error) {
	env, err := cel.NewEnv(
		cel.Variable("mood", cel.DoubleType),
		cel.Variable("focus", cel.DoubleType),
		cel.Variable("shots", cel.DoubleType),
		cel.Variable("score", cel.DoubleType),
		cel.Variable("delta", cel.DoubleType),
		cel.Variable("energy", cel.DoubleType),
		cel.Variable("days", cel.IntType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, err
	}
	chain := &BossChain{}
	for _, r := range rules {
		ast, iss := env.Compile(r.When)
		if iss != nil && iss.Err() != nil {
			return nil, fmt.Errorf("boss %q: %w", r.Name, iss.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("boss %q: %w", r.Name, err)
		}
		chain.rules = append(chain.rules, bossRule{rule: r, prg: prg})
	}
	return chain, nil
}

// Select returns the first boss whose rule matches or nil if none does.
func (b *BossChain) Select(avg Averages) (*Boss, error) {
	vars := map[string]interface{}{
		"mood":   avg.Mood,
		"focus":  avg.Focus,
		"shots":  avg.Shots,
		"score":  avg.Score,
		"delta":  avg.Delta,
		"energy": avg.Energy,
		"days":   int64(avg.Days),
	}
	for _, r := range b.rules {
		out, _, err := r.prg.Eval(vars)
		if err != nil {
			return nil, fmt.Errorf("boss %q: %w", r.rule.Name, err)
		}
		if ok, _ := out.Value().(bool); ok {
			return &Boss{
				Name:     r.rule.Name,
				Weakness: r.rule.Weakness,
				Goal:     r.rule.Goal,
				Reward:   r.rule.Reward,
			}, nil
		}
	}
	return nil, nil
}
