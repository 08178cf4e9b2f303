// types.go
package config

// RawConfig is one tables file as loaded from YAML. Pointer and map fields
// stay nil when absent so a later layer only overrides what it sets.
type RawConfig struct {
	Version    string            `yaml:"version"`
	Optimizer  *OptimizerConfig  `yaml:"optimizer,omitempty"`
	Refine     *RefineConfig     `yaml:"refine,omitempty"`
	Simulation *SimulationConfig `yaml:"simulation,omitempty"`
	Notes      string            `yaml:"notes,omitempty"`
}

type OptimizerConfig struct {
	LevelMode   string                          `yaml:"level_mode,omitempty"` // "curve" | "linear"
	MaxPoolSize *int                            `yaml:"max_pool_size,omitempty"`
	Grades      map[string]GradeConfig          `yaml:"grades,omitempty"`
	Curves      map[string]map[string][]float64 `yaml:"curves,omitempty"`  // role -> key -> 6 values
	Presets     map[string]map[string]float64   `yaml:"presets,omitempty"` // role -> key -> weight
}

type GradeConfig struct {
	Supply     *int  `yaml:"supply"`
	Thresholds []int `yaml:"thresholds"`
	PointCap   *int  `yaml:"point_cap"`
}

type RefineConfig struct {
	BaseGold      *int                    `yaml:"base_gold,omitempty"`
	Weights       *WeightsConfig          `yaml:"weights,omitempty"`
	Rarities      map[string]RarityConfig `yaml:"rarities,omitempty"`
	GemPools      map[string][]string     `yaml:"gem_pools,omitempty"`
	PositionPools map[string][]string     `yaml:"position_pools,omitempty"`
}

type WeightsConfig struct {
	Plus1    *float64 `yaml:"plus1,omitempty"`
	Plus2    *float64 `yaml:"plus2,omitempty"`
	Plus3    *float64 `yaml:"plus3,omitempty"`
	Plus4    *float64 `yaml:"plus4,omitempty"`
	Minus1   *float64 `yaml:"minus1,omitempty"`
	Rename   *float64 `yaml:"rename,omitempty"`
	CostFlag *float64 `yaml:"cost_flag,omitempty"`
	Reroll1  *float64 `yaml:"reroll1,omitempty"`
	Reroll2  *float64 `yaml:"reroll2,omitempty"`
	Hold     *float64 `yaml:"hold,omitempty"`
}

type RarityConfig struct {
	Attempts *int `yaml:"attempts"`
	Rerolls  *int `yaml:"rerolls"`
}

// SimulationConfig holds the server-side defaults of the evaluator and the
// advisor.
type SimulationConfig struct {
	MaxTrials     *int     `yaml:"max_trials,omitempty"`
	TrialsLimit   *int     `yaml:"trials_limit,omitempty"`
	Workers       *int     `yaml:"workers,omitempty"`
	AdviceTrials  *int     `yaml:"advice_trials,omitempty"`
	AdviceSamples *int     `yaml:"advice_samples,omitempty"`
	AdviceEpsilon *float64 `yaml:"advice_epsilon,omitempty"`
	AdviceTau     *float64 `yaml:"advice_tau,omitempty"`
}
