package optimizer

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScoreGemForRoleMasksOtherRole(t *testing.T) {
	gem := Gem{ID: "g", Point: 4, O1: Option{Key: KeyAtk, Level: 3}, O2: Option{Key: KeyBrand, Level: 5}}
	tables := DefaultTables()
	w := tables.SanitizeWeights(RoleDealer, nil)

	dealer := tables.ScoreGemForRole(gem, RoleDealer, w)
	if want := tables.Curves[RoleDealer][KeyAtk][3]; dealer != want {
		t.Errorf("dealer score = %v, want only the atk slot %v", dealer, want)
	}
	support := tables.ScoreGemForRole(gem, RoleSupport, w)
	if want := tables.Curves[RoleSupport][KeyBrand][5]; support != want {
		t.Errorf("support score = %v, want only the brand slot %v", support, want)
	}
}

func TestScoreGemForRoleAppliesWeights(t *testing.T) {
	tables := DefaultTables()
	gem := Gem{ID: "g", O1: Option{Key: KeyBoss, Level: 2}, O2: Option{Key: KeyAdd, Level: 1}}
	w := Weights{KeyBoss: 2, KeyAdd: 0}

	got := tables.ScoreGemForRole(gem, RoleDealer, tables.SanitizeWeights(RoleDealer, w))
	want := 2 * tables.Curves[RoleDealer][KeyBoss][2]
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestScoreLinearMode(t *testing.T) {
	tables := DefaultTables()
	tables.LevelMode = LevelLinear
	gem := Gem{ID: "g", O1: Option{Key: KeyAtk, Level: 4}, O2: Option{Key: KeyAdd, Level: 5}}
	if got := tables.ScoreGemForRole(gem, RoleDealer, nil); got != 9 {
		t.Fatalf("linear score = %v, want 9", got)
	}
}

func TestSanitizeWeights(t *testing.T) {
	tables := DefaultTables()
	tables.Presets[RoleSupport] = Weights{KeyBrand: 3}

	got := tables.SanitizeWeights(RoleSupport, Weights{
		KeyAtk:     -1,
		KeyAdd:     math.NaN(),
		KeyBoss:    math.Inf(1),
		KeyAllyDmg: 0.5,
	})
	want := Weights{
		KeyAtk:     1,
		KeyAdd:     1,
		KeyBoss:    1,
		KeyBrand:   3,
		KeyAllyDmg: 0.5,
		KeyAllyAtk: 1,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SanitizeWeights mismatch (-want +got):\n%s", diff)
	}
}

func TestThresholdsHit(t *testing.T) {
	relic := DefaultTables().Grades[GradeRelic]
	tests := []struct {
		point int
		want  []int
	}{
		{0, []int{}},
		{9, []int{}},
		{10, []int{10}},
		{16, []int{10, 14}},
		{18, []int{10, 14, 17, 18}},
		{20, []int{10, 14, 17, 18, 19, 20}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ThresholdsHit(relic, tt.point)); diff != "" {
			t.Errorf("ThresholdsHit(%d) (-want +got):\n%s", tt.point, diff)
		}
	}
}
