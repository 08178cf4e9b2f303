// resolve.go
package config

import (
	"errors"
	"fmt"

	"github.com/xtding233/arkgrid-toolkit/internal/optimizer"
	"github.com/xtding233/arkgrid-toolkit/internal/refine"
)

var ErrInvalidConfig = errors.New("config validation failed")

// Tables is one resolved, read-only set of game tables.
type Tables struct {
	Version   string
	Optimizer *optimizer.Tables
	Refine    *refine.Rules
	Sim       Simulation
}

// Simulation holds evaluator and advisor defaults.
type Simulation struct {
	MaxTrials     int     `json:"maxTrials"`
	TrialsLimit   int     `json:"trialsLimit"`
	Workers       int     `json:"workers"`
	AdviceTrials  int     `json:"adviceTrials"`
	AdviceSamples int     `json:"adviceSamples"`
	AdviceEpsilon float64 `json:"adviceEpsilon"`
	AdviceTau     float64 `json:"adviceTau"`
}

// Overrides carries command-line overrides applied after every file.
type Overrides struct {
	LevelMode   *string
	MaxPoolSize *int
	MaxTrials   *int
	TrialsLimit *int
	Workers     *int
}

type Resolver interface {
	// Returns merged RawConfig and the resolved Tables
	Resolve(profile, variant string, o Overrides) (RawConfig, *Tables, error)
}

var _ Resolver = (*Loader)(nil)

// Resolve merges default → profile → variant → overrides into Tables.
func (l *Loader) Resolve(profile, variant string, o Overrides) (RawConfig, *Tables, error) {
	raw, err := l.LoadMerged(profile, variant)
	if err != nil {
		return RawConfig{}, nil, err
	}
	t, err := Build(raw, o)
	if err != nil {
		return raw, nil, err
	}
	return raw, t, nil
}

// Defaults returns the built-in tables.
func Defaults() *Tables {
	t, _ := Build(RawConfig{}, Overrides{})
	return t
}

// Build validates cfg and lays it over the built-in tables.
func Build(cfg RawConfig, o Overrides) (*Tables, error) {
	if o.LevelMode != nil || o.MaxPoolSize != nil || o.MaxTrials != nil || o.TrialsLimit != nil || o.Workers != nil {
		ov := RawConfig{
			Optimizer:  &OptimizerConfig{MaxPoolSize: o.MaxPoolSize},
			Simulation: &SimulationConfig{MaxTrials: o.MaxTrials, TrialsLimit: o.TrialsLimit, Workers: o.Workers},
		}
		if o.LevelMode != nil {
			ov.Optimizer.LevelMode = *o.LevelMode
		}
		cfg = mergeRaw(cfg, ov)
	}
	if err := ValidateRaw(cfg); err != nil {
		return nil, err
	}

	out := &Tables{
		Version:   cfg.Version,
		Optimizer: optimizer.DefaultTables(),
		Refine:    refine.DefaultRules(),
		Sim: Simulation{
			MaxTrials:     refine.DefaultMaxTrials,
			TrialsLimit:   refine.DefaultMaxTrialsLimit,
			AdviceTrials:  refine.DefaultAdviceTrials,
			AdviceSamples: refine.DefaultAdviceSamples,
			AdviceEpsilon: refine.DefaultAdviceEpsilon,
			AdviceTau:     refine.DefaultAdviceTau,
		},
	}
	if out.Version == "" {
		out.Version = "builtin"
	}
	if err := applyOptimizer(out.Optimizer, cfg.Optimizer); err != nil {
		return nil, err
	}
	applyRefine(out.Refine, cfg.Refine)
	applySimulation(&out.Sim, cfg.Simulation)
	if out.Sim.MaxTrials > out.Sim.TrialsLimit {
		return nil, fmt.Errorf("%w: simulation.max_trials %d exceeds trials_limit %d",
			ErrInvalidConfig, out.Sim.MaxTrials, out.Sim.TrialsLimit)
	}
	out.Refine.MaxTrialsLimit = out.Sim.TrialsLimit
	return out, nil
}

func applyOptimizer(t *optimizer.Tables, c *OptimizerConfig) error {
	if c == nil {
		return nil
	}
	if c.LevelMode != "" {
		t.LevelMode = optimizer.LevelMode(c.LevelMode)
	}
	set(&t.MaxPoolSize, c.MaxPoolSize)
	for name, g := range c.Grades {
		spec := t.Grades[optimizer.Grade(name)]
		set(&spec.Supply, g.Supply)
		set(&spec.PointCap, g.PointCap)
		if len(g.Thresholds) > 0 {
			spec.Thresholds = append([]int(nil), g.Thresholds...)
		}
		if len(spec.Thresholds) == 0 || spec.PointCap == 0 {
			return fmt.Errorf("%w: grade %q needs thresholds and point_cap", ErrInvalidConfig, name)
		}
		t.Grades[optimizer.Grade(name)] = spec
	}
	for role, keys := range c.Curves {
		r := optimizer.Role(role)
		for key, vals := range keys {
			var curve optimizer.Curve
			copy(curve[:], vals)
			t.Curves[r][optimizer.OptionKey(key)] = curve
		}
	}
	for role, ws := range c.Presets {
		r := optimizer.Role(role)
		w := t.Presets[r]
		if w == nil {
			w = optimizer.Weights{}
		}
		for key, v := range ws {
			w[optimizer.OptionKey(key)] = v
		}
		t.Presets[r] = w
	}
	return nil
}

func applyRefine(r *refine.Rules, c *RefineConfig) {
	if c == nil {
		return
	}
	set(&r.BaseGold, c.BaseGold)
	if w := c.Weights; w != nil {
		set(&r.Weights.Plus1, w.Plus1)
		set(&r.Weights.Plus2, w.Plus2)
		set(&r.Weights.Plus3, w.Plus3)
		set(&r.Weights.Plus4, w.Plus4)
		set(&r.Weights.Minus1, w.Minus1)
		set(&r.Weights.Rename, w.Rename)
		set(&r.Weights.CostFlag, w.CostFlag)
		set(&r.Weights.Reroll1, w.Reroll1)
		set(&r.Weights.Reroll2, w.Reroll2)
		set(&r.Weights.Hold, w.Hold)
	}
	for name, rc := range c.Rarities {
		rule := r.Rarities[refine.Rarity(name)]
		set(&rule.Attempts, rc.Attempts)
		set(&rule.Rerolls, rc.Rerolls)
		r.Rarities[refine.Rarity(name)] = rule
	}
	for gem, pool := range c.GemPools {
		r.GemPools[gem] = append([]string(nil), pool...)
	}
	for pos, pool := range c.PositionPools {
		r.PositionPools[refine.Position(pos)] = append([]string(nil), pool...)
	}
}

func applySimulation(s *Simulation, c *SimulationConfig) {
	if c == nil {
		return
	}
	set(&s.MaxTrials, c.MaxTrials)
	set(&s.TrialsLimit, c.TrialsLimit)
	set(&s.Workers, c.Workers)
	set(&s.AdviceTrials, c.AdviceTrials)
	set(&s.AdviceSamples, c.AdviceSamples)
	set(&s.AdviceEpsilon, c.AdviceEpsilon)
	set(&s.AdviceTau, c.AdviceTau)
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
