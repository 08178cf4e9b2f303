// Package refine simulates gem refinement (가공).
//
// A refinement session offers four weighted actions per attempt. One of the
// four is applied, chosen by a second independent draw, until the attempts
// run out. The Monte Carlo evaluator estimates the chance of reaching a
// target and the gold spent; the reroll advisor compares keeping the offered
// four against sampling a fresh four.
package refine

import (
	"fmt"
	"sort"
)

// MaxStat and MinStat bound every stat after a delta.
const (
	MaxStat = 5
	MinStat = 0
)

// Rarity fixes the starting attempts and reroll charges.
type Rarity string

const (
	RarityCommon Rarity = "고급"
	RarityRare   Rarity = "희귀"
	RarityEpic   Rarity = "영웅"
)

// RarityRule is the starting budget of a rarity.
type RarityRule struct {
	Attempts int `yaml:"attempts" json:"attempts"`
	Rerolls  int `yaml:"rerolls" json:"rerolls"`
}

// Position filters which effect names count toward a target.
type Position string

const (
	PositionNone    Position = ""
	PositionAttack  Position = "attack"
	PositionSupport Position = "support"
)

// AnyName is the wildcard effect name.
const AnyName = "상관없음"

// IsAny reports whether name is a wildcard.
func IsAny(name string) bool { return name == AnyName || name == "any" || name == "" }

// RollWeights are the nominal draw weights of each action kind.
type RollWeights struct {
	Plus1    float64 `yaml:"plus1" json:"plus1"`
	Plus2    float64 `yaml:"plus2" json:"plus2"`
	Plus3    float64 `yaml:"plus3" json:"plus3"`
	Plus4    float64 `yaml:"plus4" json:"plus4"`
	Minus1   float64 `yaml:"minus1" json:"minus1"`
	Rename   float64 `yaml:"rename" json:"rename"`
	CostFlag float64 `yaml:"cost_flag" json:"cost_flag"`
	Reroll1  float64 `yaml:"reroll1" json:"reroll1"`
	Reroll2  float64 `yaml:"reroll2" json:"reroll2"`
	Hold     float64 `yaml:"hold" json:"hold"`
}

// Rules carries the refinement game tables.
type Rules struct {
	BaseGold      int
	Weights       RollWeights
	Rarities      map[Rarity]RarityRule
	GemPools      map[string][]string   // gem type key -> effect names
	PositionPools map[Position][]string // position -> effect names

	// MaxTrialsLimit caps Options.MaxTrials; zero means DefaultMaxTrialsLimit.
	MaxTrialsLimit int
}

// DefaultRules returns the built-in refinement tables.
func DefaultRules() *Rules {
	const (
		atk     = "공격력"
		add     = "추가 피해"
		boss    = "보스 피해"
		brand   = "낙인력"
		allyDmg = "아군 피해 강화"
		allyAtk = "아군 공격 강화"
	)
	stable := []string{atk, add, brand, allyDmg}
	solid := []string{atk, boss, allyDmg, allyAtk}
	immutable := []string{add, boss, brand, allyAtk}
	return &Rules{
		BaseGold:       900,
		MaxTrialsLimit: DefaultMaxTrialsLimit,
		Weights: RollWeights{
			Plus1:    11.65,
			Plus2:    4.4,
			Plus3:    1.75,
			Plus4:    0.45,
			Minus1:   3.0,
			Rename:   3.25,
			CostFlag: 1.75,
			Reroll1:  2.5,
			Reroll2:  0.75,
			Hold:     1.75,
		},
		Rarities: map[Rarity]RarityRule{
			RarityCommon: {Attempts: 5, Rerolls: 0},
			RarityRare:   {Attempts: 7, Rerolls: 1},
			RarityEpic:   {Attempts: 9, Rerolls: 2},
		},
		GemPools: map[string][]string{
			"질서-안정": stable,
			"혼돈-침식": stable,
			"질서-견고": solid,
			"혼돈-왜곡": solid,
			"질서-불변": immutable,
			"혼돈-붕괴": immutable,
		},
		PositionPools: map[Position][]string{
			PositionAttack:  {atk, add, boss},
			PositionSupport: {brand, allyDmg, allyAtk},
		},
	}
}

func (r *Rules) trialsLimit() int {
	if r.MaxTrialsLimit <= 0 {
		return DefaultMaxTrialsLimit
	}
	return r.MaxTrialsLimit
}

// Pool returns the effect names a gem type can roll.
func (r *Rules) Pool(gemKey string) ([]string, error) {
	pool, ok := r.GemPools[gemKey]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGem, gemKey)
	}
	return pool, nil
}

// AllowedNames returns the gem pool filtered to the position's names. With
// no position the whole gem pool is allowed.
func (r *Rules) AllowedNames(gemKey string, pos Position) ([]string, error) {
	pool, err := r.Pool(gemKey)
	if err != nil {
		return nil, err
	}
	if pos == PositionNone {
		return pool, nil
	}
	filter, ok := r.PositionPools[pos]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPosition, pos)
	}
	var out []string
	for _, n := range pool {
		if contains(filter, n) {
			out = append(out, n)
		}
	}
	return out, nil
}

var rarityAliases = map[string]Rarity{
	"common": RarityCommon,
	"rare":   RarityRare,
	"epic":   RarityEpic,
}

// Rarity returns the starting budget of a rarity. English names are
// accepted as aliases.
func (r *Rules) Rarity(rarity Rarity) (RarityRule, error) {
	if alias, ok := rarityAliases[string(rarity)]; ok {
		rarity = alias
	}
	rule, ok := r.Rarities[rarity]
	if !ok {
		return RarityRule{}, fmt.Errorf("%w: %q", ErrUnknownRarity, rarity)
	}
	return rule, nil
}

// GemKeys returns the configured gem type keys in sorted order.
func (r *Rules) GemKeys() []string {
	out := make([]string, 0, len(r.GemPools))
	for k := range r.GemPools {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
