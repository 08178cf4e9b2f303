package refine

import (
	"errors"
	"testing"
)

func newTestSession(t *testing.T, rarity Rarity) *Session {
	t.Helper()
	rules := DefaultRules()
	start, err := rules.NewSnapshot(rarity, freshState())
	if err != nil {
		t.Fatal(err)
	}
	s, err := rules.NewSession(stableGem, start, NewXorshift32(7))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestNewSnapshotRarity(t *testing.T) {
	rules := DefaultRules()
	for rarity, want := range map[Rarity][2]int{
		RarityCommon: {5, 0},
		RarityRare:   {7, 1},
		RarityEpic:   {9, 2},
	} {
		snap, err := rules.NewSnapshot(rarity, freshState())
		if err != nil {
			t.Fatal(err)
		}
		if snap.AttemptsLeft != want[0] || snap.Rerolls != want[1] {
			t.Errorf("%s: attempts %d rerolls %d, want %v", rarity, snap.AttemptsLeft, snap.Rerolls, want)
		}
	}
	if _, err := rules.NewSnapshot("전설", freshState()); !errors.Is(err, ErrUnknownRarity) {
		t.Errorf("err = %v, want ErrUnknownRarity", err)
	}
}

func TestSessionRerollLockedUntilFirstAttempt(t *testing.T) {
	s := newTestSession(t, RarityEpic)
	if _, err := s.Offer(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Reroll(); !errors.Is(err, ErrRerollLocked) {
		t.Fatalf("err = %v, want ErrRerollLocked", err)
	}
	if _, _, err := s.ApplyRandom(); err != nil {
		t.Fatal(err)
	}
	before := s.Snapshot().Rerolls
	four, err := s.Reroll()
	if err != nil {
		t.Fatal(err)
	}
	if len(four) != 4 {
		t.Errorf("reroll offered %d actions", len(four))
	}
	if got := s.Snapshot().Rerolls; got != before-1 {
		t.Errorf("rerolls = %d, want %d", got, before-1)
	}
}

func TestSessionNoRerollCharges(t *testing.T) {
	s := newTestSession(t, RarityCommon)
	if _, _, err := s.ApplyRandom(); err != nil {
		t.Fatal(err)
	}
	if s.Snapshot().Rerolls > 0 {
		t.Skip("first attempt granted a reroll")
	}
	if _, err := s.Reroll(); !errors.Is(err, ErrNoRerolls) {
		t.Fatalf("err = %v, want ErrNoRerolls", err)
	}
}

func TestSessionApplyMustBeOffered(t *testing.T) {
	s := newTestSession(t, RarityRare)
	four, err := s.Offer()
	if err != nil {
		t.Fatal(err)
	}
	offered := map[Action]bool{}
	for _, a := range four {
		offered[a] = true
	}
	var missing Action
	for _, c := range []Action{Hold(), RerollGain(1), RerollGain(2), Delta(StatEff, 1), Delta(StatPts, 1)} {
		if !offered[c] {
			missing = c
			break
		}
	}
	if _, err := s.Apply(missing); !errors.Is(err, ErrNotOffered) {
		t.Fatalf("err = %v, want ErrNotOffered", err)
	}

	snap, err := s.Apply(four[0])
	if err != nil {
		t.Fatal(err)
	}
	if snap.AttemptsLeft != 6 || !snap.Unlocked || snap.Gold != 900 {
		t.Errorf("after one attempt: %+v", snap)
	}
	if len(s.Offered()) != 0 {
		t.Error("offer not cleared after apply")
	}
}

func TestSessionRunsOutOfAttempts(t *testing.T) {
	s := newTestSession(t, RarityCommon)
	for i := 0; i < 5; i++ {
		if _, _, err := s.ApplyRandom(); err != nil {
			t.Fatalf("attempt %d: %v", i+1, err)
		}
	}
	if _, err := s.Offer(); !errors.Is(err, ErrNoAttempts) {
		t.Fatalf("err = %v, want ErrNoAttempts", err)
	}
	if g := s.Grade(); g != GradeOf(s.Snapshot().State.Total()) {
		t.Errorf("grade = %s", g)
	}
}

func TestNewSessionValidates(t *testing.T) {
	rules := DefaultRules()
	bad := Snapshot{State: State{AName: "보스 피해", BName: "공격력"}, AttemptsLeft: 5}
	if _, err := rules.NewSession(stableGem, bad, nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}
