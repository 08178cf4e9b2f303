package refine

import (
	"fmt"
	"strings"
)

// Kind tags an Action variant.
type Kind string

const (
	KindDelta  Kind = "delta"  // Stat += Delta, clamped
	KindRename Kind = "rename" // Line takes a new effect name
	KindCost   Kind = "cost"   // cost add rate becomes Rate
	KindReroll Kind = "reroll" // Rerolls += N
	KindHold   Kind = "hold"   // no effect
)

// Stat names a refinable field.
type Stat string

const (
	StatEff Stat = "eff"
	StatPts Stat = "pts"
	StatA   Stat = "a"
	StatB   Stat = "b"
)

// Line names one of the two effect lines.
type Line string

const (
	LineA Line = "a"
	LineB Line = "b"
)

// Action is one refinement outcome. Only the fields of its Kind are set.
type Action struct {
	Kind  Kind `json:"kind"`
	Stat  Stat `json:"stat,omitempty"`
	Delta int  `json:"delta,omitempty"`
	Line  Line `json:"line,omitempty"`
	Rate  int  `json:"rate,omitempty"`
	N     int  `json:"n,omitempty"`
}

func Delta(s Stat, d int) Action { return Action{Kind: KindDelta, Stat: s, Delta: d} }
func Rename(l Line) Action       { return Action{Kind: KindRename, Line: l} }
func CostFlag(rate int) Action   { return Action{Kind: KindCost, Rate: rate} }
func RerollGain(n int) Action    { return Action{Kind: KindReroll, N: n} }
func Hold() Action               { return Action{Kind: KindHold} }

func (a Action) String() string { return a.Key() }

var statOrder = map[Stat]int{StatEff: 0, StatPts: 1, StatA: 2, StatB: 3}

func statIndex(s Stat) (int, bool) {
	i, ok := statOrder[s]
	return i, ok
}

// Key is a stable machine identifier, e.g. "delta:eff:+2".
func (a Action) Key() string {
	switch a.Kind {
	case KindDelta:
		return fmt.Sprintf("delta:%s:%+d", a.Stat, a.Delta)
	case KindRename:
		return "rename:" + string(a.Line)
	case KindCost:
		return fmt.Sprintf("cost:%+d", a.Rate)
	case KindReroll:
		return fmt.Sprintf("reroll:+%d", a.N)
	case KindHold:
		return "hold"
	}
	return "invalid"
}

// Label renders the action for display against the current effect names.
func (a Action) Label(s State) string {
	switch a.Kind {
	case KindDelta:
		var name string
		switch a.Stat {
		case StatEff:
			name = "의지력 효율"
		case StatPts:
			name = "포인트"
		case StatA:
			name = s.AName + " Lv."
		case StatB:
			name = s.BName + " Lv."
		}
		return fmt.Sprintf("%s %+d", name, a.Delta)
	case KindRename:
		if a.Line == LineA {
			return s.AName + " 효과 변경"
		}
		return s.BName + " 효과 변경"
	case KindCost:
		return fmt.Sprintf("가공 비용 %+d%%", a.Rate*100)
	case KindReroll:
		return fmt.Sprintf("다른 항목 보기 +%d회", a.N)
	case KindHold:
		return "가공 상태 유지"
	}
	return ""
}

// ParseAction is the inverse of Key.
func ParseAction(key string) (Action, error) {
	parts := strings.Split(key, ":")
	bad := fmt.Errorf("refine: invalid action %q", key)
	switch parts[0] {
	case "hold":
		if len(parts) == 1 {
			return Hold(), nil
		}
	case "rename":
		if len(parts) == 2 && (parts[1] == "a" || parts[1] == "b") {
			return Rename(Line(parts[1])), nil
		}
	case "cost":
		var r int
		if len(parts) == 2 {
			if _, err := fmt.Sscanf(parts[1], "%d", &r); err == nil && (r == 1 || r == -1) {
				return CostFlag(r), nil
			}
		}
	case "reroll":
		var n int
		if len(parts) == 2 {
			if _, err := fmt.Sscanf(parts[1], "%d", &n); err == nil && n > 0 {
				return RerollGain(n), nil
			}
		}
	case "delta":
		var d int
		if len(parts) == 3 {
			if _, ok := statIndex(Stat(parts[1])); ok {
				if _, err := fmt.Sscanf(parts[2], "%d", &d); err == nil && d != 0 {
					return Delta(Stat(parts[1]), d), nil
				}
			}
		}
	}
	return Action{}, bad
}

// PlusAppears reports whether +d may be offered for a stat at value v.
func PlusAppears(v, d int) bool { return v+d <= MaxStat }

// MinusAppears reports whether -1 may be offered for a stat at value v.
func MinusAppears(v int) bool { return v != 1 }

// CostFlagAppears reports whether the cost flag for rate may be offered.
// It is never offered when already set or on the last attempt.
func CostFlagAppears(current, rate, attemptsLeft int) bool {
	return current != rate && attemptsLeft > 1
}

// RenameAppears reports whether the pool has a name neither line carries.
func RenameAppears(pool []string, a, b string) bool {
	return len(renameCandidates(pool, a, b)) > 0
}

// Weight returns the nominal draw weight of a.
func (w RollWeights) Weight(a Action) float64 {
	switch a.Kind {
	case KindDelta:
		switch a.Delta {
		case 1:
			return w.Plus1
		case 2:
			return w.Plus2
		case 3:
			return w.Plus3
		case 4:
			return w.Plus4
		case -1:
			return w.Minus1
		}
	case KindRename:
		return w.Rename
	case KindCost:
		return w.CostFlag
	case KindReroll:
		if a.N == 1 {
			return w.Reroll1
		}
		if a.N == 2 {
			return w.Reroll2
		}
	case KindHold:
		return w.Hold
	}
	return 0
}

// Entry is a menu action with its draw weight.
type Entry struct {
	Action Action
	Weight float64
}

// BuildMenu lists every action that may be offered from snap, with weights.
// pool is the gem type's effect names.
func BuildMenu(snap Snapshot, pool []string, w RollWeights) []Entry {
	var actions []Action
	s := snap.State
	stats := [...]struct {
		stat Stat
		v    int
	}{{StatEff, s.Eff}, {StatPts, s.Pts}, {StatA, s.ALvl}, {StatB, s.BLvl}}

	for _, st := range stats {
		for d := 1; d <= 4; d++ {
			if PlusAppears(st.v, d) {
				actions = append(actions, Delta(st.stat, d))
			}
		}
		if MinusAppears(st.v) {
			actions = append(actions, Delta(st.stat, -1))
		}
	}
	if RenameAppears(pool, s.AName, s.BName) {
		actions = append(actions, Rename(LineA), Rename(LineB))
	}
	for _, rate := range [...]int{1, -1} {
		if CostFlagAppears(snap.CostAddRate, rate, snap.AttemptsLeft) {
			actions = append(actions, CostFlag(rate))
		}
	}
	actions = append(actions, RerollGain(1), RerollGain(2), Hold())

	menu := make([]Entry, len(actions))
	for i, a := range actions {
		menu[i] = Entry{a, w.Weight(a)}
	}
	return menu
}

// SampleFour draws min(4, len(menu)) distinct actions, weighted, without
// replacement. Entries with non-positive weight are never drawn.
func SampleFour(menu []Entry, rng RandomSource) []Action {
	left := make([]Entry, 0, len(menu))
	for _, e := range menu {
		if e.Weight > 0 {
			left = append(left, e)
		}
	}
	k := min(4, len(left))
	out := make([]Action, 0, k)
	for len(out) < k {
		var total float64
		for _, e := range left {
			total += e.Weight
		}
		r := rng.Float64() * total
		idx := len(left) - 1
		for i, e := range left {
			r -= e.Weight
			if r < 0 {
				idx = i
				break
			}
		}
		out = append(out, left[idx].Action)
		left = append(left[:idx], left[idx+1:]...)
	}
	return out
}

func renameCandidates(pool []string, self, other string) []string {
	var out []string
	for _, n := range pool {
		if n != self && n != other {
			out = append(out, n)
		}
	}
	return out
}

// GoldMultiplier is the cost factor for a cost add rate.
func GoldMultiplier(rate int) int {
	switch rate {
	case 1:
		return 2
	case -1:
		return 0
	}
	return 1
}

// Apply performs one attempt: charge gold at the current rate, spend the
// attempt, then apply a. Rename draws the new name from rng.
func Apply(snap *Snapshot, a Action, pool []string, baseGold int, rng RandomSource) {
	snap.Gold += baseGold * GoldMultiplier(snap.CostAddRate)
	snap.AttemptsLeft--
	snap.Unlocked = true

	s := &snap.State
	switch a.Kind {
	case KindDelta:
		switch a.Stat {
		case StatEff:
			s.Eff = clamp(s.Eff + a.Delta)
		case StatPts:
			s.Pts = clamp(s.Pts + a.Delta)
		case StatA:
			s.ALvl = clamp(s.ALvl + a.Delta)
		case StatB:
			s.BLvl = clamp(s.BLvl + a.Delta)
		}
	case KindRename:
		cands := renameCandidates(pool, s.AName, s.BName)
		if len(cands) == 0 {
			return
		}
		name := cands[Intn(rng, len(cands))]
		if a.Line == LineA {
			s.AName = name
		} else {
			s.BName = name
		}
	case KindCost:
		snap.CostAddRate = a.Rate
	case KindReroll:
		snap.Rerolls += a.N
	case KindHold:
	}
}
