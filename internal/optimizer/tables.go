package optimizer

import (
	"fmt"
	"sort"
)

// LevelMode selects how an option level turns into a score contribution.
type LevelMode string

const (
	// LevelCurve uses the per-role, per-key percentage curves.
	LevelCurve LevelMode = "curve"
	// LevelLinear uses the raw level number.
	LevelLinear LevelMode = "linear"
)

// MaxLevel is the highest option level.
const MaxLevel = 5

// MaxGemsPerCore bounds the subset size enumerated per core.
const MaxGemsPerCore = 4

// DefaultMaxPoolSize caps the pool handed to the enumerator. C(64,4) is
// about 635k subsets before pruning.
const DefaultMaxPoolSize = 64

// Curve holds the contribution of levels 0..5.
type Curve [MaxLevel + 1]float64

// Tables carries every game constant the optimizer reads.
type Tables struct {
	Grades      map[Grade]GradeSpec
	Curves      map[Role]map[OptionKey]Curve
	Presets     map[Role]Weights
	LevelMode   LevelMode
	MaxPoolSize int
}

// DefaultTables returns the built-in game constants.
func DefaultTables() *Tables {
	return &Tables{
		Grades: map[Grade]GradeSpec{
			GradeHero:    {Supply: 9, Thresholds: []int{10}, PointCap: 10},
			GradeLegend:  {Supply: 12, Thresholds: []int{10, 14}, PointCap: 14},
			GradeRelic:   {Supply: 15, Thresholds: []int{10, 14, 17, 18, 19, 20}, PointCap: 20},
			GradeAncient: {Supply: 17, Thresholds: []int{10, 14, 17, 18, 19, 20}, PointCap: 20},
		},
		Curves: map[Role]map[OptionKey]Curve{
			RoleDealer: {
				KeyAtk:  {0, 0.029, 0.067, 0.105, 0.134, 0.172},
				KeyAdd:  {0, 0.060, 0.119, 0.187, 0.239, 0.299},
				KeyBoss: {0, 0.078, 0.156, 0.244, 0.313, 0.391},
			},
			RoleSupport: {
				KeyBrand:   {0, 0.167, 0.334, 0.501, 0.668, 0.835},
				KeyAllyDmg: {0, 0.052, 0.104, 0.156, 0.208, 0.260},
				KeyAllyAtk: {0, 0.130, 0.260, 0.390, 0.520, 0.650},
			},
		},
		Presets: map[Role]Weights{
			RoleDealer:  uniformWeights(),
			RoleSupport: uniformWeights(),
		},
		LevelMode:   LevelCurve,
		MaxPoolSize: DefaultMaxPoolSize,
	}
}

func uniformWeights() Weights {
	w := make(Weights, 6)
	for _, k := range AllOptionKeys() {
		w[k] = 1
	}
	return w
}

// Grade returns the spec of g.
func (t *Tables) Grade(g Grade) (GradeSpec, error) {
	spec, ok := t.Grades[g]
	if !ok {
		return GradeSpec{}, fmt.Errorf("%w: %q", ErrUnknownGrade, g)
	}
	return spec, nil
}

// GradeNames returns the configured grades ordered by supply.
func (t *Tables) GradeNames() []Grade {
	out := make([]Grade, 0, len(t.Grades))
	for g := range t.Grades {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := t.Grades[out[i]], t.Grades[out[j]]
		if si.Supply != sj.Supply {
			return si.Supply < sj.Supply
		}
		return out[i] < out[j]
	})
	return out
}

// LevelValue returns the contribution of one option slot before weighting.
func (t *Tables) LevelValue(role Role, key OptionKey, level int) float64 {
	if level < 0 {
		level = 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	if t.LevelMode == LevelLinear {
		return float64(level)
	}
	curves, ok := t.Curves[role]
	if !ok {
		return float64(level)
	}
	c, ok := curves[key]
	if !ok {
		return float64(level)
	}
	return c[level]
}

func (t *Tables) maxPool() int {
	if t.MaxPoolSize <= 0 {
		return DefaultMaxPoolSize
	}
	return t.MaxPoolSize
}
