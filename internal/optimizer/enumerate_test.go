package optimizer

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intp(v int) *int { return &v }

func gem(id string, will, point int, k1 OptionKey, l1 int, k2 OptionKey, l2 int) Gem {
	return Gem{ID: id, Will: intp(will), Point: point, O1: Option{k1, l1}, O2: Option{k2, l2}}
}

func TestEnumerateEmptyPoolReturnsSentinel(t *testing.T) {
	got, err := EnumerateCoreCombos(nil, GradeRelic, RoleDealer, nil, nil, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []ComboInfo{{List: []Gem{}, Thr: []int{}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("sentinel mismatch (-want +got):\n%s", diff)
	}
}

func TestEnumerateUnknownGrade(t *testing.T) {
	if _, err := EnumerateCoreCombos(nil, Grade("mythic"), RoleDealer, nil, nil, false, nil); err == nil {
		t.Fatal("expected error for unknown grade")
	}
}

func TestEnumerateScoreOrdering(t *testing.T) {
	pool := []Gem{
		gem("a", 5, 10, KeyAtk, 1, KeyAdd, 1),
		gem("b", 5, 10, KeyAtk, 1, KeyAdd, 1),
		gem("c", 4, 4, KeyAtk, 1, KeyAdd, 1),
	}
	combos, err := EnumerateCoreCombos(pool, GradeRelic, RoleDealer, nil, nil, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	best := combos[0]
	if len(best.List) != 2 || best.List[0].ID != "a" || best.List[1].ID != "b" {
		t.Fatalf("best combo = %+v, want gems a+b", best.List)
	}
	if best.TotalPoint != 20 || best.TotalWill != 10 {
		t.Errorf("best totals = %d pts / %d will, want 20 / 10", best.TotalPoint, best.TotalWill)
	}
	if diff := cmp.Diff([]int{10, 14, 17, 18, 19, 20}, best.Thr); diff != "" {
		t.Errorf("thresholds (-want +got):\n%s", diff)
	}
	for _, c := range combos[1:] {
		if len(c.List) == 1 && c.Score >= best.Score {
			t.Errorf("single gem combo %v outranks the pair", c.List[0].ID)
		}
	}
}

func TestEnumerateInvariants(t *testing.T) {
	tables := DefaultTables()
	pool := samplePool(14)
	for _, grade := range tables.GradeNames() {
		spec := tables.Grades[grade]
		combos, err := tables.EnumerateCoreCombos(pool, grade, RoleDealer, nil, nil, false, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(combos) == 0 {
			t.Fatalf("%s: empty result", grade)
		}
		for i, c := range combos {
			will := 0
			for _, g := range c.List {
				will += g.WillValue()
			}
			if will > spec.Supply {
				t.Errorf("%s: combo %d uses %d will > supply %d", grade, i, will, spec.Supply)
			}
			if c.TotalPoint > spec.PointCap {
				t.Errorf("%s: combo %d has %d points > cap %d", grade, i, c.TotalPoint, spec.PointCap)
			}
			if diff := cmp.Diff(ThresholdsHit(spec, c.TotalPoint), c.Thr); diff != "" {
				t.Errorf("%s: combo %d thresholds (-want +got):\n%s", grade, i, diff)
			}
			if len(c.List) > MaxGemsPerCore {
				t.Errorf("%s: combo %d has %d gems", grade, i, len(c.List))
			}
			if i > 0 && c.Score > combos[i-1].Score {
				t.Errorf("%s: combos not sorted at %d", grade, i)
			}
		}
	}
}

func TestEnumerateSupplyOverride(t *testing.T) {
	pool := []Gem{
		gem("a", 5, 10, KeyAtk, 1, KeyAdd, 1),
		gem("b", 5, 10, KeyAtk, 1, KeyAdd, 1),
	}
	combos, err := EnumerateCoreCombos(pool, GradeRelic, RoleDealer, nil, nil, false, intp(6))
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range combos {
		if c.TotalWill > 6 {
			t.Errorf("combo exceeds overridden supply: %d", c.TotalWill)
		}
	}
	if got := len(combos[0].List); got != 1 {
		t.Errorf("best combo has %d gems, want 1", got)
	}
}

func TestEnumerateUnsetWillCountsAsZero(t *testing.T) {
	pool := []Gem{{ID: "x", Point: 10, O1: Option{KeyAtk, 1}, O2: Option{KeyAdd, 1}}}
	combos, err := EnumerateCoreCombos(pool, GradeHero, RoleDealer, nil, nil, false, intp(0))
	if err != nil {
		t.Fatal(err)
	}
	if combos[0].IsEmpty() || combos[0].TotalWill != 0 {
		t.Fatalf("gem with unset will should fit a zero supply, got %+v", combos[0])
	}
}

func TestEnumerateFilterPolicies(t *testing.T) {
	pool := []Gem{
		gem("a", 4, 5, KeyAtk, 5, KeyAdd, 5),
		gem("b", 4, 5, KeyAtk, 1, KeyAdd, 1),
		gem("c", 4, 4, KeyAtk, 1, KeyAdd, 1),
		gem("d", 3, 3, KeyAtk, 1, KeyAdd, 1),
	}

	t.Run("enforce min keeps only combos reaching it", func(t *testing.T) {
		combos, err := EnumerateCoreCombos(pool, GradeRelic, RoleDealer, nil, intp(14), true, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range combos {
			if c.IsEmpty() || c.MaxThreshold() < 14 {
				t.Errorf("combo %+v below enforced minimum", c)
			}
		}
	})

	t.Run("enforce min defaults to lowest threshold", func(t *testing.T) {
		combos, err := EnumerateCoreCombos(pool, GradeRelic, RoleDealer, nil, nil, true, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range combos {
			if c.MaxThreshold() < 10 {
				t.Errorf("combo %+v below grade minimum", c)
			}
		}
	})

	t.Run("enforce min unreachable yields sentinel", func(t *testing.T) {
		combos, err := EnumerateCoreCombos(pool, GradeRelic, RoleDealer, nil, intp(20), true, nil)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff([]ComboInfo{EmptyCombo()}, combos); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	})

	t.Run("target point exact match", func(t *testing.T) {
		combos, err := EnumerateCoreCombos(pool, GradeRelic, RoleDealer, nil, intp(12), false, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range combos {
			if c.TotalPoint != 12 {
				t.Errorf("combo total %d, want exactly 12", c.TotalPoint)
			}
		}
		// a+c+d and b+c+d tie on everything but role score
		if combos[0].List[0].ID != "a" {
			t.Errorf("best 12-point combo should use the strongest gem, got %+v", combos[0].List)
		}
	})

	t.Run("target point walks upward", func(t *testing.T) {
		small := []Gem{gem("a", 4, 5, KeyAtk, 1, KeyAdd, 1), gem("b", 4, 5, KeyAtk, 1, KeyAdd, 1)}
		combos, err := EnumerateCoreCombos(small, GradeRelic, RoleDealer, nil, intp(7), false, nil)
		if err != nil {
			t.Fatal(err)
		}
		if combos[0].TotalPoint != 10 {
			t.Errorf("closest total at or above 7 should be 10, got %d", combos[0].TotalPoint)
		}
	})

	t.Run("no minimum keeps combos clearing a threshold", func(t *testing.T) {
		combos, err := EnumerateCoreCombos(pool, GradeRelic, RoleDealer, nil, nil, false, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, c := range combos {
			if len(c.Thr) == 0 {
				t.Errorf("combo %+v cleared no threshold", c)
			}
		}
	})
}

func TestCapPoolKeepsStrongestGems(t *testing.T) {
	tables := DefaultTables()
	tables.MaxPoolSize = 2
	pool := []Gem{
		gem("low", 3, 1, KeyAtk, 1, KeyAdd, 1),
		gem("high", 5, 5, KeyAtk, 1, KeyAdd, 1),
		gem("mid", 4, 4, KeyAtk, 1, KeyAdd, 1),
	}
	kept, dropped := tables.CapPool(pool, RoleDealer, nil)
	if dropped != 1 {
		t.Fatalf("dropped = %d, want 1", dropped)
	}
	if kept[0].ID != "high" || kept[1].ID != "mid" {
		t.Errorf("kept = %v, want [high mid]", []string{kept[0].ID, kept[1].ID})
	}
}

func samplePool(n int) []Gem {
	keys := AllOptionKeys()
	pool := make([]Gem, n)
	for i := range pool {
		pool[i] = gem(
			fmt.Sprintf("g%02d", i),
			3+i%5,
			1+(i*7)%5,
			keys[i%len(keys)], 1+i%5,
			keys[(i+2)%len(keys)], 1+(i+3)%5,
		)
	}
	return pool
}

func FuzzEnumerateCaps(f *testing.F) {
	f.Add(uint8(5), uint8(10), uint8(4), uint8(7), uint8(3), uint8(2))
	f.Add(uint8(9), uint8(1), uint8(9), uint8(9), uint8(0), uint8(5))

	f.Fuzz(func(t *testing.T, w1, p1, w2, p2, w3, p3 uint8) {
		pool := []Gem{
			gem("a", int(w1%12), int(p1%8), KeyAtk, 1, KeyBrand, 2),
			gem("b", int(w2%12), int(p2%8), KeyBoss, 3, KeyAdd, 4),
			gem("c", int(w3%12), int(p3%8), KeyAllyAtk, 5, KeyAtk, 5),
		}
		tables := DefaultTables()
		for _, grade := range tables.GradeNames() {
			spec := tables.Grades[grade]
			combos, err := tables.EnumerateCoreCombos(pool, grade, RoleSupport, nil, nil, false, nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(combos) == 0 {
				t.Fatal("empty result")
			}
			for _, c := range combos {
				if c.TotalWill > spec.Supply || c.TotalPoint > spec.PointCap {
					t.Errorf("%s: combo over limits: will %d pts %d", grade, c.TotalWill, c.TotalPoint)
				}
			}
		}
	})
}

func BenchmarkEnumerate40(b *testing.B) {
	tables := DefaultTables()
	pool := samplePool(40)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = tables.EnumerateCoreCombos(pool, GradeAncient, RoleDealer, nil, nil, false, nil)
	}
}
