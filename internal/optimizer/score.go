package optimizer

import (
	"errors"
	"math"
)

var (
	ErrUnknownGrade  = errors.New("unknown core grade")
	ErrUnknownRole   = errors.New("unknown role")
	ErrTooManyCores  = errors.New("too many cores")
	ErrDuplicateCore = errors.New("duplicate core name")
)

// ScoreGemForRole sums the weighted level values of the gem's two slots,
// counting only keys in the role's key set.
func (t *Tables) ScoreGemForRole(gem Gem, role Role, weights Weights) float64 {
	return t.slotScore(gem.O1, role, weights) + t.slotScore(gem.O2, role, weights)
}

func (t *Tables) slotScore(o Option, role Role, weights Weights) float64 {
	if !role.Allows(o.Key) {
		return 0
	}
	w, ok := weights[o.Key]
	if !ok {
		w = 1
	}
	return t.LevelValue(role, o.Key, o.Level) * w
}

// ScoreGemForRole scores with the built-in tables.
func ScoreGemForRole(gem Gem, role Role, weights Weights) float64 {
	return defaultTables.ScoreGemForRole(gem, role, weights)
}

// ThresholdsHit returns the grade thresholds at or below totalPoint, ascending.
func ThresholdsHit(spec GradeSpec, totalPoint int) []int {
	out := make([]int, 0, len(spec.Thresholds))
	for _, thr := range spec.Thresholds {
		if thr <= totalPoint {
			out = append(out, thr)
		}
	}
	return out
}

// SanitizeWeights returns a full weight map. Missing, negative and
// non-finite entries take the role preset value, or 1 without a preset.
func (t *Tables) SanitizeWeights(role Role, w Weights) Weights {
	preset := t.Presets[role]
	out := make(Weights, 6)
	for _, k := range AllOptionKeys() {
		def := 1.0
		if pv, ok := preset[k]; ok && validWeight(pv) {
			def = pv
		}
		v, ok := w[k]
		if !ok || !validWeight(v) {
			v = def
		}
		out[k] = v
	}
	return out
}

func validWeight(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

var defaultTables = DefaultTables()
