package refine

import (
	"math"
	"testing"
)

func matcherFor(t *testing.T, tgt Target) Matcher {
	t.Helper()
	rules := DefaultRules()
	pool, err := rules.Pool(stableGem)
	if err != nil {
		t.Fatal(err)
	}
	allowed, err := rules.AllowedNames(stableGem, tgt.Position)
	if err != nil {
		t.Fatal(err)
	}
	return NewMatcher(tgt, allowed, pool)
}

func TestAllowedNames(t *testing.T) {
	rules := DefaultRules()
	got, err := rules.AllowedNames(stableGem, PositionAttack)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "공격력" || got[1] != "추가 피해" {
		t.Errorf("attack names for %s = %v", stableGem, got)
	}
	if _, err := rules.AllowedNames("질서-없음", PositionAttack); err == nil {
		t.Error("unknown gem accepted")
	}
}

func TestMeetsAnyOne(t *testing.T) {
	m := matcherFor(t, Target{Eff: 4, Pts: 4, AName: AnyName, ALvl: 5, Mode: ModeAnyOne, Position: PositionAttack})
	tests := []struct {
		name string
		s    State
		want bool
	}{
		{"line A attack name", State{Eff: 4, Pts: 4, AName: "공격력", ALvl: 5, BName: "낙인력", BLvl: 0}, true},
		{"line B attack name", State{Eff: 5, Pts: 5, AName: "낙인력", ALvl: 5, BName: "추가 피해", BLvl: 5}, true},
		{"support names only", State{Eff: 5, Pts: 5, AName: "낙인력", ALvl: 5, BName: "아군 피해 강화", BLvl: 5}, false},
		{"level short", State{Eff: 5, Pts: 5, AName: "공격력", ALvl: 4, BName: "낙인력", BLvl: 5}, false},
		{"eff short", State{Eff: 3, Pts: 5, AName: "공격력", ALvl: 5, BName: "낙인력", BLvl: 5}, false},
	}
	for _, tt := range tests {
		if got := m.Meets(tt.s); got != tt.want {
			t.Errorf("%s: Meets = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMeetsBoth(t *testing.T) {
	m := matcherFor(t, Target{AName: "공격력", ALvl: 3, BName: "추가 피해", BLvl: 2, Mode: ModeBoth, Position: PositionAttack})
	straight := State{AName: "공격력", ALvl: 3, BName: "추가 피해", BLvl: 2}
	swapped := State{AName: "추가 피해", ALvl: 2, BName: "공격력", BLvl: 3}
	wrongLevels := State{AName: "추가 피해", ALvl: 3, BName: "공격력", BLvl: 2}
	if !m.Meets(straight) || !m.Meets(swapped) {
		t.Error("both orders should match")
	}
	if m.Meets(wrongLevels) {
		t.Error("levels must follow their names")
	}
}

func TestBothWithWildcardIsUnsatisfiable(t *testing.T) {
	for _, tgt := range []Target{
		{AName: AnyName, BName: "공격력", Mode: ModeBoth, Position: PositionAttack},
		{AName: "공격력", BName: "공격력", Mode: ModeBoth, Position: PositionAttack},
	} {
		m := matcherFor(t, tgt)
		s := State{Eff: 5, Pts: 5, AName: "공격력", ALvl: 5, BName: "추가 피해", BLvl: 5}
		if m.Meets(s) {
			t.Errorf("%+v: Meets = true", tgt)
		}
		if d := m.Distance(s); !math.IsInf(d, 1) {
			t.Errorf("%+v: Distance = %v, want +Inf", tgt, d)
		}
	}
}

func TestMeetsWithoutPositionIgnoresLines(t *testing.T) {
	m := matcherFor(t, Target{Eff: 4, Pts: 4, ALvl: 5, BLvl: 5, AName: "낙인력", Mode: ModeBoth})
	s := State{Eff: 5, Pts: 5, AName: "공격력", ALvl: 1, BName: "추가 피해", BLvl: 1}
	if !m.Meets(s) {
		t.Error("eff and pts met: line levels and names must not matter without a position")
	}
	if d := m.Distance(s); d != 0 {
		t.Errorf("Distance = %v, want 0", d)
	}
	short := State{Eff: 3, Pts: 4, AName: "공격력", ALvl: 5, BName: "추가 피해", BLvl: 5}
	if m.Meets(short) {
		t.Error("eff below target")
	}
	if d := m.Distance(short); d != 1 {
		t.Errorf("Distance = %v, want 1", d)
	}
}

func TestDistance(t *testing.T) {
	m := matcherFor(t, Target{Eff: 5, AName: "낙인력", ALvl: 4, Mode: ModeAnyOne, Position: PositionSupport})
	s := State{Eff: 3, AName: "공격력", ALvl: 4, BName: "추가 피해", BLvl: 1}
	// eff short by 2, then line A needs a rename (+1) or line B needs
	// a rename and 3 levels.
	if got := m.Distance(s); got != 3 {
		t.Errorf("Distance = %v, want 3", got)
	}

	unreachable := matcherFor(t, Target{AName: "보스 피해", ALvl: 1, Mode: ModeAnyOne, Position: PositionAttack})
	if got := unreachable.Distance(s); !math.IsInf(got, 1) {
		t.Errorf("name outside the gem pool: Distance = %v, want +Inf", got)
	}
}

func TestTargetValidate(t *testing.T) {
	if err := (Target{Eff: 6}).Validate(); err == nil {
		t.Error("eff 6 accepted")
	}
	if err := (Target{Mode: "all"}).Validate(); err == nil {
		t.Error("unknown mode accepted")
	}
	if err := (Target{Position: "tank"}).Validate(); err == nil {
		t.Error("unknown position accepted")
	}
	if err := (Target{Eff: 5, Mode: ModeBoth, Position: PositionSupport}).Validate(); err != nil {
		t.Errorf("valid target rejected: %v", err)
	}
}
