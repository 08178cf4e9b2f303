// Package optimizer assigns gems to Ark Grid cores.
//
// Cores are processed in priority order (index 0 first). For each core every
// subset of at most four gems from the remaining pool is scored and the best
// admissible subset is taken, after which its gems leave the pool. The
// allocation is greedy: a lower-priority core never reclaims a gem that a
// higher-priority core already consumed.
package optimizer

// OptionKey identifies one of the six gem option effects.
type OptionKey string

const (
	// dealer keys
	KeyAtk  OptionKey = "atk"  // 공격력
	KeyAdd  OptionKey = "add"  // 추가 피해
	KeyBoss OptionKey = "boss" // 보스 피해

	// support keys
	KeyBrand   OptionKey = "brand"    // 낙인력
	KeyAllyDmg OptionKey = "ally_dmg" // 아군 피해 강화
	KeyAllyAtk OptionKey = "ally_atk" // 아군 공격 강화
)

// AllOptionKeys returns the option keys in a fixed order.
func AllOptionKeys() []OptionKey {
	return []OptionKey{KeyAtk, KeyAdd, KeyBoss, KeyBrand, KeyAllyDmg, KeyAllyAtk}
}

// Role decides which three option keys count toward the role score.
type Role string

const (
	RoleDealer  Role = "dealer"
	RoleSupport Role = "support"
)

// Keys returns the option keys scored for the role.
func (r Role) Keys() []OptionKey {
	switch r {
	case RoleSupport:
		return []OptionKey{KeyBrand, KeyAllyDmg, KeyAllyAtk}
	default:
		return []OptionKey{KeyAtk, KeyAdd, KeyBoss}
	}
}

// Allows reports whether k belongs to the role's key set.
func (r Role) Allows(k OptionKey) bool {
	for _, rk := range r.Keys() {
		if rk == k {
			return true
		}
	}
	return false
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleDealer || r == RoleSupport }

// Option is one (key, level) slot of a gem.
type Option struct {
	Key   OptionKey `json:"key" yaml:"key"`
	Level int       `json:"level" yaml:"level"`
}

// Gem is an item that consumes willpower and contributes points.
// Will may be nil, meaning unspecified; it is treated as 0 while scoring.
type Gem struct {
	ID    string `json:"id" yaml:"id"`
	Will  *int   `json:"will,omitempty" yaml:"will,omitempty"`
	Point int    `json:"point" yaml:"point"`
	O1    Option `json:"o1" yaml:"o1"`
	O2    Option `json:"o2" yaml:"o2"`
}

// WillValue returns the gem's willpower cost, 0 when unset.
func (g Gem) WillValue() int {
	if g.Will == nil {
		return 0
	}
	return *g.Will
}

// CoreName is the display name of a core.
type CoreName string

const (
	CoreSun  CoreName = "order_sun"
	CoreMoon CoreName = "order_moon"
	CoreStar CoreName = "order_star"
)

// AllCoreNames returns the core names in display order.
func AllCoreNames() []CoreName { return []CoreName{CoreSun, CoreMoon, CoreStar} }

// Grade is the ordinal tier of a core.
type Grade string

const (
	GradeHero    Grade = "hero"
	GradeLegend  Grade = "legend"
	GradeRelic   Grade = "relic"
	GradeAncient Grade = "ancient"
)

// GradeSpec fixes the willpower supply, the ascending point thresholds and
// the point cap of a grade.
type GradeSpec struct {
	Supply     int   `json:"supply" yaml:"supply"`
	Thresholds []int `json:"thresholds" yaml:"thresholds"`
	PointCap   int   `json:"point_cap" yaml:"point_cap"`
}

// CoreDefinition is one entry of the user's ordered core list.
// Its index in the list is its allocation priority.
type CoreDefinition struct {
	ID           string   `json:"id" yaml:"id"`
	Name         CoreName `json:"name" yaml:"name"`
	Grade        Grade    `json:"grade" yaml:"grade"`
	MinThreshold *int     `json:"min_threshold,omitempty" yaml:"min_threshold,omitempty"`
	EnforceMin   bool     `json:"enforce_min" yaml:"enforce_min"`
}

// Weights maps each option key to a non-negative multiplier.
type Weights map[OptionKey]float64

// ComboInfo describes one scored gem subset.
type ComboInfo struct {
	List       []Gem   `json:"list"`
	TotalWill  int     `json:"total_will"`
	TotalPoint int     `json:"total_point"`
	Thr        []int   `json:"thr"`
	RoleSum    float64 `json:"role_sum"`
	Score      float64 `json:"score"`
}

// EmptyCombo is the "no feasible assignment" result.
func EmptyCombo() ComboInfo {
	return ComboInfo{List: []Gem{}, Thr: []int{}}
}

// IsEmpty reports whether the combo holds no gems.
func (c ComboInfo) IsEmpty() bool { return len(c.List) == 0 }

// MaxThreshold returns the highest threshold cleared, 0 if none.
func (c ComboInfo) MaxThreshold() int {
	if len(c.Thr) == 0 {
		return 0
	}
	return c.Thr[len(c.Thr)-1]
}
