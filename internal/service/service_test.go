package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/xtding233/arkgrid-toolkit/internal/cache"
	"github.com/xtding233/arkgrid-toolkit/internal/config"
	"github.com/xtding233/arkgrid-toolkit/internal/optimizer"
	"github.com/xtding233/arkgrid-toolkit/internal/refine"
)

func newService(t *testing.T) *Service {
	t.Helper()
	store, err := config.NewStore(nil, "", "", config.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	svc, err := New(Deps{Store: store, Cache: cache.NewMemory(16)})
	if err != nil {
		t.Fatal(err)
	}
	return svc
}

func intp(v int) *int { return &v }

func gemInput() GemInput {
	return GemInput{
		GemKey: "질서-안정",
		Rarity: refine.RarityEpic,
		State:  refine.State{Eff: 1, Pts: 1, AName: "공격력", ALvl: 1, BName: "추가 피해", BLvl: 1},
		Target: refine.Target{Eff: 4, Pts: 4},
	}
}

func TestOptimize(t *testing.T) {
	svc := newService(t)
	resp, err := svc.Optimize(context.Background(), OptimizeRequest{
		Role:  optimizer.RoleDealer,
		Cores: []optimizer.CoreDefinition{{ID: "c1", Name: optimizer.CoreSun, Grade: optimizer.GradeRelic}},
		Gems: []optimizer.Gem{
			{ID: "g1", Will: intp(5), Point: 10, O1: optimizer.Option{Key: optimizer.KeyAtk, Level: 3}},
			{ID: "g2", Will: intp(5), Point: 10, O1: optimizer.Option{Key: optimizer.KeyBoss, Level: 2}},
			{ID: "g3", Will: intp(4), Point: 4},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Allocations) != 1 {
		t.Fatalf("got %d allocations", len(resp.Allocations))
	}
	if got := resp.Allocations[0].Combo.TotalPoint; got != 20 {
		t.Errorf("TotalPoint = %d, want 20", got)
	}
	if resp.JobID == "" {
		t.Error("missing job id")
	}
}

func TestOptimizeRejectsDuplicateCores(t *testing.T) {
	svc := newService(t)
	core := optimizer.CoreDefinition{ID: "c", Name: optimizer.CoreSun, Grade: optimizer.GradeHero}
	_, err := svc.Optimize(context.Background(), OptimizeRequest{
		Role:  optimizer.RoleDealer,
		Cores: []optimizer.CoreDefinition{core, core},
	})
	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err, optimizer.ErrDuplicateCore) {
		t.Fatalf("err = %v", err)
	}
}

func TestEvaluateCachesBySeed(t *testing.T) {
	svc := newService(t)
	req := EvaluateRequest{GemInput: gemInput(), Options: refine.Options{MaxTrials: 1200}}

	first, err := svc.Evaluate(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.Cached {
		t.Fatal("first call served from cache")
	}
	second, err := svc.Evaluate(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached {
		t.Fatal("second call should hit the cache")
	}
	if diff := cmp.Diff(first.Stop, second.Stop); diff != "" {
		t.Errorf("stop differs (-first +second):\n%s", diff)
	}
	if first.Stop.ExpectedGold > first.Run.ExpectedGold {
		t.Errorf("stop gold %v > run gold %v", first.Stop.ExpectedGold, first.Run.ExpectedGold)
	}

	req.Options.MaxTrials = 1600
	third, err := svc.Evaluate(context.Background(), req, nil)
	if err != nil {
		t.Fatal(err)
	}
	if third.Cached {
		t.Error("a different trial budget must not share the cache entry")
	}
}

func TestEvaluateReportsProgress(t *testing.T) {
	svc := newService(t)
	req := EvaluateRequest{GemInput: gemInput(), Options: refine.Options{MaxTrials: 800, Epsilon: 1e-9}}
	seen := map[refine.Policy]int{}
	ch := make(chan refine.Progress, 16)
	if _, err := svc.Evaluate(context.Background(), req, func(p refine.Progress) { ch <- p }); err != nil {
		t.Fatal(err)
	}
	close(ch)
	for p := range ch {
		seen[p.Policy]++
	}
	if seen[refine.PolicyStopOnSuccess] == 0 || seen[refine.PolicyRunToEnd] == 0 {
		t.Errorf("progress per policy = %v", seen)
	}
}

func TestEvaluateStaleGeneration(t *testing.T) {
	svc := newService(t)
	newer, _ := svc.Jobs().Begin(context.Background(), "evaluate", "tab", 5)
	defer newer.Finish(nil)

	req := EvaluateRequest{Ticket: Ticket{Slot: "tab", Generation: 3}, GemInput: gemInput()}
	if _, err := svc.Evaluate(context.Background(), req, nil); !errors.Is(err, ErrStale) {
		t.Fatalf("err = %v, want ErrStale", err)
	}
}

func TestEvaluateInvalidInput(t *testing.T) {
	svc := newService(t)
	in := gemInput()
	in.GemKey = "nope"
	_, err := svc.Evaluate(context.Background(), EvaluateRequest{GemInput: in}, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
}

func TestAdviseBlockedBeforeFirstAttempt(t *testing.T) {
	svc := newService(t)
	resp, err := svc.Advise(context.Background(), AdviseRequest{
		GemInput:    gemInput(),
		CurrentFour: []refine.Action{refine.Hold()},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Blocked || resp.ShouldReroll {
		t.Errorf("advice = %+v", resp.Advice)
	}
}

func TestTablesView(t *testing.T) {
	v := newService(t).Tables()
	if v.Version != "builtin" || v.BaseGold != 900 {
		t.Errorf("view = %+v", v)
	}
	if len(v.GemPools) != 6 {
		t.Errorf("gem pools = %d", len(v.GemPools))
	}
}
