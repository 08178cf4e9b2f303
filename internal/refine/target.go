package refine

import (
	"errors"
	"math"
)

// ABMode selects how the two target effect lines are matched.
type ABMode string

const (
	ModeAnyOne ABMode = "any_one" // either line matches (AName, ALvl)
	ModeBoth   ABMode = "both"    // both targets matched, in either order
)

// Target is the desired end state.
type Target struct {
	Eff      int      `json:"eff" yaml:"eff"`
	Pts      int      `json:"pts" yaml:"pts"`
	AName    string   `json:"aName" yaml:"aName"`
	ALvl     int      `json:"aLvl" yaml:"aLvl"`
	BName    string   `json:"bName" yaml:"bName"`
	BLvl     int      `json:"bLvl" yaml:"bLvl"`
	Mode     ABMode   `json:"mode" yaml:"mode"`
	Position Position `json:"position" yaml:"position"`
}

// Validate rejects targets outside the stat range or with an unknown mode.
func (t Target) Validate() error {
	for _, v := range []int{t.Eff, t.Pts, t.ALvl, t.BLvl} {
		if v < MinStat || v > MaxStat {
			return errors.Join(ErrInvalidTarget, errors.New("level out of range [0,5]"))
		}
	}
	switch t.Mode {
	case "", ModeAnyOne, ModeBoth:
	default:
		return errors.Join(ErrInvalidTarget, errors.New("unknown mode "+string(t.Mode)))
	}
	switch t.Position {
	case PositionNone, PositionAttack, PositionSupport:
	default:
		return errors.Join(ErrInvalidTarget, ErrUnknownPosition)
	}
	return nil
}

func (t Target) mode() ABMode {
	if t.Mode == "" {
		return ModeAnyOne
	}
	return t.Mode
}

// Matcher checks states against one target. allowed is the wildcard pool
// and pool the gem type's names.
type Matcher struct {
	t       Target
	allowed []string
	pool    []string
}

func NewMatcher(t Target, allowed, pool []string) Matcher {
	return Matcher{t: t, allowed: allowed, pool: pool}
}

func (m Matcher) nameOK(have, want string) bool {
	if IsAny(want) {
		return contains(m.allowed, have)
	}
	return have == want
}

// bothUnsatisfiable: a wildcard or a repeated name cannot fill both lines.
func (m Matcher) bothUnsatisfiable() bool {
	return IsAny(m.t.AName) || IsAny(m.t.BName) || m.t.AName == m.t.BName
}

// Meets reports whether s satisfies the target.
func (m Matcher) Meets(s State) bool {
	t := m.t
	if s.Eff < t.Eff || s.Pts < t.Pts {
		return false
	}
	// Effect lines only count under a position filter.
	if t.Position == PositionNone {
		return true
	}
	line := func(name string, lvl int, wantName string, wantLvl int) bool {
		return m.nameOK(name, wantName) && lvl >= wantLvl
	}
	switch t.mode() {
	case ModeBoth:
		if m.bothUnsatisfiable() {
			return false
		}
		return (line(s.AName, s.ALvl, t.AName, t.ALvl) && line(s.BName, s.BLvl, t.BName, t.BLvl)) ||
			(line(s.AName, s.ALvl, t.BName, t.BLvl) && line(s.BName, s.BLvl, t.AName, t.ALvl))
	default:
		return line(s.AName, s.ALvl, t.AName, t.ALvl) || line(s.BName, s.BLvl, t.AName, t.ALvl)
	}
}

// Distance is a heuristic count of steps left to reach the target: level
// shortfalls plus one per line needing a rename. It is +Inf when the target
// cannot be reached from this gem.
func (m Matcher) Distance(s State) float64 {
	t := m.t
	d := float64(short(s.Eff, t.Eff) + short(s.Pts, t.Pts))
	if t.Position == PositionNone {
		return d
	}
	switch t.mode() {
	case ModeBoth:
		if m.bothUnsatisfiable() {
			return math.Inf(1)
		}
		straight := m.lineDist(s.AName, s.ALvl, t.AName, t.ALvl) + m.lineDist(s.BName, s.BLvl, t.BName, t.BLvl)
		swapped := m.lineDist(s.AName, s.ALvl, t.BName, t.BLvl) + m.lineDist(s.BName, s.BLvl, t.AName, t.ALvl)
		return d + math.Min(straight, swapped)
	default:
		return d + math.Min(
			m.lineDist(s.AName, s.ALvl, t.AName, t.ALvl),
			m.lineDist(s.BName, s.BLvl, t.AName, t.ALvl),
		)
	}
}

func (m Matcher) lineDist(name string, lvl int, want string, wantLvl int) float64 {
	d := float64(short(lvl, wantLvl))
	if m.nameOK(name, want) {
		return d
	}
	if IsAny(want) {
		if len(m.allowed) == 0 {
			return math.Inf(1)
		}
		return d + 1
	}
	if !contains(m.pool, want) {
		return math.Inf(1)
	}
	return d + 1
}

func short(have, want int) int {
	if have >= want {
		return 0
	}
	return want - have
}
