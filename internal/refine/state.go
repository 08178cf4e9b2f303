package refine

import "errors"

var (
	ErrUnknownGem      = errors.New("refine: unknown gem type")
	ErrUnknownRarity   = errors.New("refine: unknown rarity")
	ErrUnknownPosition = errors.New("refine: unknown position")
	ErrInvalidState    = errors.New("refine: invalid state")
	ErrInvalidTarget   = errors.New("refine: invalid target")
	ErrNoAttempts      = errors.New("refine: no attempts left")
	ErrNoRerolls       = errors.New("refine: no reroll charges left")
	ErrRerollLocked    = errors.New("refine: reroll unavailable before the first attempt")
	ErrNotOffered      = errors.New("refine: action is not among the offered four")
	ErrInvalidProb     = errors.New("refine: probability must be within [0,1]")
)

// State is the gem's refinable stats.
type State struct {
	Eff   int    `json:"eff" yaml:"eff"`     // willpower efficiency
	Pts   int    `json:"pts" yaml:"pts"`     // order/chaos points
	AName string `json:"aName" yaml:"aName"` // effect line A
	ALvl  int    `json:"aLvl" yaml:"aLvl"`
	BName string `json:"bName" yaml:"bName"` // effect line B
	BLvl  int    `json:"bLvl" yaml:"bLvl"`
}

// Total is the stat sum that decides the gem grade.
func (s State) Total() int { return s.Eff + s.Pts + s.ALvl + s.BLvl }

// GemGrade is the refinement outcome tier.
type GemGrade string

const (
	GradeBelow   GemGrade = "below"
	GradeLegend  GemGrade = "legend"
	GradeRelic   GemGrade = "relic"
	GradeAncient GemGrade = "ancient"
)

// GradeOf maps a stat total to its grade.
func GradeOf(total int) GemGrade {
	switch {
	case total >= 19:
		return GradeAncient
	case total >= 16:
		return GradeRelic
	case total >= 4:
		return GradeLegend
	default:
		return GradeBelow
	}
}

// Snapshot is the mutable part of a refinement session.
type Snapshot struct {
	State        State `json:"state" yaml:"state"`
	AttemptsLeft int   `json:"attemptsLeft" yaml:"attemptsLeft"`
	Rerolls      int   `json:"rerolls" yaml:"rerolls"`
	Unlocked     bool  `json:"unlocked" yaml:"unlocked"` // true once an attempt has been made
	CostAddRate  int   `json:"costAddRate" yaml:"costAddRate"`
	Gold         int   `json:"gold" yaml:"gold"`
}

// NewSnapshot starts a fresh session for the given rarity.
func (r *Rules) NewSnapshot(rarity Rarity, s State) (Snapshot, error) {
	rule, err := r.Rarity(rarity)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{State: s, AttemptsLeft: rule.Attempts, Rerolls: rule.Rerolls}, nil
}

// Validate checks the snapshot against the gem type's effect pool.
func (r *Rules) Validate(gemKey string, snap Snapshot) error {
	pool, err := r.Pool(gemKey)
	if err != nil {
		return err
	}
	var errs []error
	s := snap.State
	for _, v := range []int{s.Eff, s.Pts, s.ALvl, s.BLvl} {
		if v < MinStat || v > MaxStat {
			errs = append(errs, errors.New("stat out of range [0,5]"))
			break
		}
	}
	if s.AName == s.BName {
		errs = append(errs, errors.New("effect lines must have distinct names"))
	}
	if !contains(pool, s.AName) || !contains(pool, s.BName) {
		errs = append(errs, errors.New("effect name not in gem pool"))
	}
	if snap.AttemptsLeft < 0 || snap.Rerolls < 0 {
		errs = append(errs, errors.New("negative attempts or rerolls"))
	}
	if snap.CostAddRate < -1 || snap.CostAddRate > 1 {
		errs = append(errs, errors.New("cost rate must be -1, 0 or 1"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidState}, errs...)...)
	}
	return nil
}

func clamp(v int) int {
	if v < MinStat {
		return MinStat
	}
	if v > MaxStat {
		return MaxStat
	}
	return v
}
