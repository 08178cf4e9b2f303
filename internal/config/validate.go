package config

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/xtding233/arkgrid-toolkit/internal/optimizer"
	"github.com/xtding233/arkgrid-toolkit/internal/refine"
)

// ValidateRaw checks semantic constraints of a RawConfig.
func ValidateRaw(cfg RawConfig) error {
	var errs []string

	if o := cfg.Optimizer; o != nil {
		switch o.LevelMode {
		case "", string(optimizer.LevelCurve), string(optimizer.LevelLinear):
		default:
			errs = append(errs, "optimizer.level_mode must be one of: curve, linear")
		}
		if o.MaxPoolSize != nil && *o.MaxPoolSize < optimizer.MaxGemsPerCore {
			errs = append(errs, fmt.Sprintf("optimizer.max_pool_size must be >= %d", optimizer.MaxGemsPerCore))
		}
		for _, name := range sortedKeys(o.Grades) {
			g := o.Grades[name]
			if g.Supply != nil && *g.Supply < 0 {
				errs = append(errs, fmt.Sprintf("optimizer.grades.%s.supply must be >= 0", name))
			}
			if g.PointCap != nil && *g.PointCap <= 0 {
				errs = append(errs, fmt.Sprintf("optimizer.grades.%s.point_cap must be > 0", name))
			}
			for i, t := range g.Thresholds {
				if i > 0 && t <= g.Thresholds[i-1] {
					errs = append(errs, fmt.Sprintf("optimizer.grades.%s.thresholds must be strictly ascending", name))
					break
				}
			}
			if g.PointCap != nil && len(g.Thresholds) > 0 && g.Thresholds[len(g.Thresholds)-1] > *g.PointCap {
				errs = append(errs, fmt.Sprintf("optimizer.grades.%s: highest threshold exceeds point_cap", name))
			}
		}
		for _, role := range sortedKeys(o.Curves) {
			if !optimizer.Role(role).Valid() {
				errs = append(errs, fmt.Sprintf("optimizer.curves: unknown role %q", role))
				continue
			}
			for _, key := range sortedKeys(o.Curves[role]) {
				c := o.Curves[role][key]
				if !optimizer.Role(role).Allows(optimizer.OptionKey(key)) {
					errs = append(errs, fmt.Sprintf("optimizer.curves.%s: key %q does not belong to the role", role, key))
				}
				if len(c) != optimizer.MaxLevel+1 {
					errs = append(errs, fmt.Sprintf("optimizer.curves.%s.%s must have %d values", role, key, optimizer.MaxLevel+1))
				}
				for _, v := range c {
					if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
						errs = append(errs, fmt.Sprintf("optimizer.curves.%s.%s values must be finite and >= 0", role, key))
						break
					}
				}
			}
		}
		for _, role := range sortedKeys(o.Presets) {
			if !optimizer.Role(role).Valid() {
				errs = append(errs, fmt.Sprintf("optimizer.presets: unknown role %q", role))
			}
		}
	}

	if r := cfg.Refine; r != nil {
		if r.BaseGold != nil && *r.BaseGold < 0 {
			errs = append(errs, "refine.base_gold must be >= 0")
		}
		if w := r.Weights; w != nil {
			for name, v := range map[string]*float64{
				"plus1": w.Plus1, "plus2": w.Plus2, "plus3": w.Plus3, "plus4": w.Plus4,
				"minus1": w.Minus1, "rename": w.Rename, "cost_flag": w.CostFlag,
				"reroll1": w.Reroll1, "reroll2": w.Reroll2, "hold": w.Hold,
			} {
				if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0) {
					errs = append(errs, fmt.Sprintf("refine.weights.%s must be finite and >= 0", name))
				}
			}
		}
		for _, name := range sortedKeys(r.Rarities) {
			rc := r.Rarities[name]
			if rc.Attempts != nil && *rc.Attempts <= 0 {
				errs = append(errs, fmt.Sprintf("refine.rarities.%s.attempts must be >= 1", name))
			}
			if rc.Rerolls != nil && *rc.Rerolls < 0 {
				errs = append(errs, fmt.Sprintf("refine.rarities.%s.rerolls must be >= 0", name))
			}
		}
		for _, gem := range sortedKeys(r.GemPools) {
			pool := r.GemPools[gem]
			if len(pool) < 2 {
				errs = append(errs, fmt.Sprintf("refine.gem_pools.%s needs at least 2 effect names", gem))
			}
			if hasDuplicate(pool) {
				errs = append(errs, fmt.Sprintf("refine.gem_pools.%s has duplicate names", gem))
			}
		}
		for _, pos := range sortedKeys(r.PositionPools) {
			switch refine.Position(pos) {
			case refine.PositionAttack, refine.PositionSupport:
			default:
				errs = append(errs, fmt.Sprintf("refine.position_pools: unknown position %q", pos))
			}
		}
	}

	if s := cfg.Simulation; s != nil {
		if s.MaxTrials != nil && *s.MaxTrials <= 0 {
			errs = append(errs, "simulation.max_trials must be >= 1")
		}
		if s.TrialsLimit != nil && *s.TrialsLimit <= 0 {
			errs = append(errs, "simulation.trials_limit must be >= 1")
		}
		if s.Workers != nil && *s.Workers < 0 {
			errs = append(errs, "simulation.workers must be >= 0 (0 means GOMAXPROCS)")
		}
		if s.AdviceTrials != nil && *s.AdviceTrials <= 0 {
			errs = append(errs, "simulation.advice_trials must be >= 1")
		}
		if s.AdviceSamples != nil && *s.AdviceSamples <= 0 {
			errs = append(errs, "simulation.advice_samples must be >= 1")
		}
		if s.AdviceEpsilon != nil && !(*s.AdviceEpsilon > 0 && *s.AdviceEpsilon < 1) {
			errs = append(errs, "simulation.advice_epsilon must be in (0,1)")
		}
		if s.AdviceTau != nil && !(*s.AdviceTau >= 0 && *s.AdviceTau < 1) {
			errs = append(errs, "simulation.advice_tau must be in [0,1)")
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func hasDuplicate(xs []string) bool {
	seen := make(map[string]bool, len(xs))
	for _, x := range xs {
		if seen[x] {
			return true
		}
		seen[x] = true
	}
	return false
}
