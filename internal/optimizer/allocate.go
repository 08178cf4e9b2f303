package optimizer

import "fmt"

// MaxCores is the number of cores a player can slot.
const MaxCores = 3

// Allocation is one core's share of a priority allocation.
type Allocation struct {
	Core      CoreDefinition `json:"core"`
	Combo     ComboInfo      `json:"combo"`
	Truncated int            `json:"truncated,omitempty"` // gems dropped by the pool ceiling
	Remaining int            `json:"remaining"`           // pool size after this core took its gems
}

// AllocateByPriority runs the enumerator once per core in list order
// against the gems still unassigned, removing each chosen combo's gems by
// ID before the next core. It returns one combo per core, in core order.
func (t *Tables) AllocateByPriority(cores []CoreDefinition, pool []Gem, role Role, weights Weights) ([]ComboInfo, error) {
	allocs, err := t.Allocate(cores, pool, role, weights)
	if err != nil {
		return nil, err
	}
	out := make([]ComboInfo, len(allocs))
	for i, a := range allocs {
		out[i] = a.Combo
	}
	return out, nil
}

// AllocateByPriority allocates with the built-in tables.
func AllocateByPriority(cores []CoreDefinition, pool []Gem, role Role, weights Weights) ([]ComboInfo, error) {
	return defaultTables.AllocateByPriority(cores, pool, role, weights)
}

// Allocate is AllocateByPriority with per-core diagnostics.
func (t *Tables) Allocate(cores []CoreDefinition, pool []Gem, role Role, weights Weights) ([]Allocation, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	w := t.SanitizeWeights(role, weights)

	remaining := append([]Gem(nil), pool...)
	out := make([]Allocation, 0, len(cores))
	for _, core := range cores {
		combos, dropped, err := t.enumerate(remaining, core.Grade, role, w, core.MinThreshold, core.EnforceMin, nil)
		if err != nil {
			return nil, fmt.Errorf("core %s: %w", core.ID, err)
		}
		best := EmptyCombo()
		for _, c := range combos {
			if !c.IsEmpty() {
				best = c
				break
			}
		}
		remaining = withoutGems(remaining, best.List)
		out = append(out, Allocation{
			Core:      core,
			Combo:     best,
			Truncated: dropped,
			Remaining: len(remaining),
		})
	}
	return out, nil
}

func withoutGems(pool, taken []Gem) []Gem {
	if len(taken) == 0 {
		return pool
	}
	ids := make(map[string]struct{}, len(taken))
	for _, g := range taken {
		ids[g.ID] = struct{}{}
	}
	out := pool[:0:0]
	for _, g := range pool {
		if _, ok := ids[g.ID]; !ok {
			out = append(out, g)
		}
	}
	return out
}

// ValidateCores checks the richer-variant core list rules: at most
// MaxCores entries, one per core name, known grades.
func (t *Tables) ValidateCores(cores []CoreDefinition) error {
	if len(cores) > MaxCores {
		return fmt.Errorf("%w: %d > %d", ErrTooManyCores, len(cores), MaxCores)
	}
	seen := make(map[CoreName]bool, len(cores))
	for _, c := range cores {
		if seen[c.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateCore, c.Name)
		}
		seen[c.Name] = true
		if _, err := t.Grade(c.Grade); err != nil {
			return fmt.Errorf("core %s: %w", c.ID, err)
		}
	}
	return nil
}

// ValidateGems rejects negative willpower or points and duplicate IDs.
func ValidateGems(pool []Gem) error {
	seen := make(map[string]bool, len(pool))
	for i, g := range pool {
		if g.ID == "" {
			return fmt.Errorf("gem[%d]: missing id", i)
		}
		if seen[g.ID] {
			return fmt.Errorf("gem[%d]: duplicate id %q", i, g.ID)
		}
		seen[g.ID] = true
		if g.WillValue() < 0 || g.Point < 0 {
			return fmt.Errorf("gem %q: will and point must be >= 0", g.ID)
		}
		for _, o := range []Option{g.O1, g.O2} {
			if o.Level < 0 || o.Level > MaxLevel {
				return fmt.Errorf("gem %q: option level %d out of range 0..%d", g.ID, o.Level, MaxLevel)
			}
		}
	}
	return nil
}
