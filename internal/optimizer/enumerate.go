package optimizer

import (
	"sort"
)

// Score weights. Each tier outranks everything below it:
// thresholds cleared, then total points, then unused willpower, then role
// score, then fewer gems.
const (
	scoreThreshold = 1e7
	scorePoint     = 1e4
	scoreWillBase  = 5000
	scoreWill      = 10
)

// ComboScore computes the composite ordering score of a subset.
func ComboScore(thrCount, totalPoint, totalWill int, roleSum float64, size int) float64 {
	return float64(thrCount)*scoreThreshold +
		float64(totalPoint)*scorePoint +
		float64(scoreWillBase-totalWill)*scoreWill +
		roleSum -
		float64(size)
}

// EnumerateCoreCombos scores every subset of 0..4 gems that fits the
// grade's willpower supply (or supplyOverride) and point cap, sorts them
// best first and filters them by the threshold policy. The result is never
// empty: when nothing qualifies it holds the single EmptyCombo sentinel.
func (t *Tables) EnumerateCoreCombos(pool []Gem, grade Grade, role Role, weights Weights, minThreshold *int, enforceMin bool, supplyOverride *int) ([]ComboInfo, error) {
	combos, _, err := t.enumerate(pool, grade, role, t.SanitizeWeights(role, weights), minThreshold, enforceMin, supplyOverride)
	return combos, err
}

// EnumerateCoreCombos enumerates with the built-in tables.
func EnumerateCoreCombos(pool []Gem, grade Grade, role Role, weights Weights, minThreshold *int, enforceMin bool, supplyOverride *int) ([]ComboInfo, error) {
	return defaultTables.EnumerateCoreCombos(pool, grade, role, weights, minThreshold, enforceMin, supplyOverride)
}

func (t *Tables) enumerate(pool []Gem, grade Grade, role Role, weights Weights, minThreshold *int, enforceMin bool, supplyOverride *int) ([]ComboInfo, int, error) {
	spec, err := t.Grade(grade)
	if err != nil {
		return nil, 0, err
	}
	supply := spec.Supply
	if supplyOverride != nil {
		supply = *supplyOverride
	}

	gems, dropped := t.CapPool(pool, role, weights)
	all := t.scoreSubsets(gems, spec, supply, role, weights)

	sort.SliceStable(all, func(i, j int) bool { return all[i].Score > all[j].Score })

	kept := filterCombos(all, spec, minThreshold, enforceMin)
	if len(kept) == 0 {
		return []ComboInfo{EmptyCombo()}, dropped, nil
	}
	return kept, dropped, nil
}

// scoreSubsets walks k-combinations (k = 0..4) in index order. Partial
// sums of will and point only grow, so a prefix over supply or over the
// cap prunes all of its extensions.
func (t *Tables) scoreSubsets(gems []Gem, spec GradeSpec, supply int, role Role, weights Weights) []ComboInfo {
	n := len(gems)
	wills := make([]int, n)
	roles := make([]float64, n)
	for i, g := range gems {
		wills[i] = g.WillValue()
		roles[i] = t.ScoreGemForRole(g, role, weights)
	}

	var out []ComboInfo
	idx := make([]int, 0, MaxGemsPerCore)

	var walk func(start, will, point int, roleSum float64)
	walk = func(start, will, point int, roleSum float64) {
		thr := ThresholdsHit(spec, point)
		list := make([]Gem, len(idx))
		for i, gi := range idx {
			list[i] = gems[gi]
		}
		out = append(out, ComboInfo{
			List:       list,
			TotalWill:  will,
			TotalPoint: point,
			Thr:        thr,
			RoleSum:    roleSum,
			Score:      ComboScore(len(thr), point, will, roleSum, len(idx)),
		})
		if len(idx) == MaxGemsPerCore {
			return
		}
		for i := start; i < n; i++ {
			w := will + wills[i]
			if w > supply {
				continue
			}
			p := point + gems[i].Point
			if p > spec.PointCap {
				continue
			}
			idx = append(idx, i)
			walk(i+1, w, p, roleSum+roles[i])
			idx = idx[:len(idx)-1]
		}
	}
	if supply >= 0 && spec.PointCap >= 0 {
		walk(0, 0, 0, 0)
	}
	return out
}

// filterCombos applies the threshold policy to combos already sorted best first.
func filterCombos(all []ComboInfo, spec GradeSpec, minThreshold *int, enforceMin bool) []ComboInfo {
	switch {
	case enforceMin:
		effMin := 0
		if minThreshold != nil {
			effMin = *minThreshold
		} else if len(spec.Thresholds) > 0 {
			effMin = spec.Thresholds[0]
		}
		return keep(all, func(c ComboInfo) bool {
			return !c.IsEmpty() && len(c.Thr) > 0 && c.MaxThreshold() >= effMin
		})

	case minThreshold != nil:
		// closest attainable point total at or above the target, never past the cap
		for p := *minThreshold; p <= spec.PointCap; p++ {
			exact := keep(all, func(c ComboInfo) bool { return c.TotalPoint == p && !c.IsEmpty() })
			if len(exact) > 0 {
				return exact
			}
		}
		return nil

	default:
		return keep(all, func(c ComboInfo) bool { return len(c.Thr) > 0 })
	}
}

func keep(all []ComboInfo, pred func(ComboInfo) bool) []ComboInfo {
	var out []ComboInfo
	for _, c := range all {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out
}

// CapPool truncates pool to the table's MaxPoolSize, keeping the gems
// ranked highest by (point desc, role score desc, will asc, id asc). The
// kept gems stay in their original relative order. It returns the kept
// gems and the number dropped.
func (t *Tables) CapPool(pool []Gem, role Role, weights Weights) ([]Gem, int) {
	limit := t.maxPool()
	if len(pool) <= limit {
		return pool, 0
	}
	order := make([]int, len(pool))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ga, gb := pool[order[a]], pool[order[b]]
		if ga.Point != gb.Point {
			return ga.Point > gb.Point
		}
		ra, rb := t.ScoreGemForRole(ga, role, weights), t.ScoreGemForRole(gb, role, weights)
		if ra != rb {
			return ra > rb
		}
		if ga.WillValue() != gb.WillValue() {
			return ga.WillValue() < gb.WillValue()
		}
		return ga.ID < gb.ID
	})
	chosen := make([]bool, len(pool))
	for _, i := range order[:limit] {
		chosen[i] = true
	}
	kept := make([]Gem, 0, limit)
	for i, g := range pool {
		if chosen[i] {
			kept = append(kept, g)
		}
	}
	return kept, len(pool) - limit
}
