package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xtding233/arkgrid-toolkit/internal/logger"
	"github.com/xtding233/arkgrid-toolkit/internal/optimizer"
	"github.com/xtding233/arkgrid-toolkit/internal/refine"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

const defaultYAML = `
version: base
optimizer:
  max_pool_size: 40
  grades:
    relic:
      supply: 15
      thresholds: [10, 14, 17, 18, 19, 20]
      point_cap: 20
  presets:
    dealer: {atk: 1, add: 1, boss: 2}
refine:
  base_gold: 900
  weights:
    plus1: 11.65
    hold: 1.75
simulation:
  max_trials: 10000
`

func TestLoaderMergesLayers(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables", "default.yaml"), defaultYAML)
	writeFile(t, filepath.Join(dir, "tables", "kr.yaml"), `
version: kr
optimizer:
  grades:
    relic:
      supply: 16
  presets:
    dealer: {boss: 3}
refine:
  weights:
    hold: 2.5
`)
	writeFile(t, filepath.Join(dir, "tables", "kr", "season.yaml"), `
simulation:
  max_trials: 50000
`)

	l := NewLoader(dir)
	raw, err := l.LoadMerged("kr", "season")
	if err != nil {
		t.Fatal(err)
	}
	if raw.Version != "kr" {
		t.Errorf("version = %q, want kr", raw.Version)
	}
	relic := raw.Optimizer.Grades["relic"]
	if *relic.Supply != 16 || *relic.PointCap != 20 || len(relic.Thresholds) != 6 {
		t.Errorf("relic grade = supply %d cap %d thresholds %v", *relic.Supply, *relic.PointCap, relic.Thresholds)
	}
	if diff := cmp.Diff(map[string]float64{"atk": 1, "add": 1, "boss": 3}, raw.Optimizer.Presets["dealer"]); diff != "" {
		t.Errorf("dealer preset (-want +got):\n%s", diff)
	}
	if *raw.Refine.Weights.Plus1 != 11.65 || *raw.Refine.Weights.Hold != 2.5 {
		t.Errorf("weights merged wrong: plus1 %v hold %v", *raw.Refine.Weights.Plus1, *raw.Refine.Weights.Hold)
	}
	if *raw.Simulation.MaxTrials != 50000 {
		t.Errorf("max_trials = %d, want 50000", *raw.Simulation.MaxTrials)
	}
}

func TestLoaderMissingFilesAreOptional(t *testing.T) {
	l := NewLoader(t.TempDir())
	raw, err := l.LoadMerged("nowhere", "nothing")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(RawConfig{}, raw); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoaderReportsBadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "tables", "default.yaml"), "optimizer: [unclosed")
	if _, err := NewLoader(dir).LoadMerged("", ""); err == nil {
		t.Fatal("expected a parse error")
	}
}

func TestLoaderCacheAndInvalidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables", "default.yaml")
	writeFile(t, path, "version: one\n")
	l := NewLoader(dir)
	if raw, _ := l.LoadMerged("", ""); raw.Version != "one" {
		t.Fatalf("version = %q", raw.Version)
	}
	writeFile(t, path, "version: two\n")
	if raw, _ := l.LoadMerged("", ""); raw.Version != "one" {
		t.Errorf("cached version = %q, want one", raw.Version)
	}
	l.Invalidate()
	if raw, _ := l.LoadMerged("", ""); raw.Version != "two" {
		t.Errorf("version after invalidate = %q, want two", raw.Version)
	}
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func strp(v string) *string     { return &v }

func TestValidateRaw(t *testing.T) {
	tests := []struct {
		name string
		cfg  RawConfig
		want string
	}{
		{"empty is fine", RawConfig{}, ""},
		{"level mode", RawConfig{Optimizer: &OptimizerConfig{LevelMode: "cubic"}}, "level_mode"},
		{"pool too small", RawConfig{Optimizer: &OptimizerConfig{MaxPoolSize: intp(2)}}, "max_pool_size"},
		{"thresholds order", RawConfig{Optimizer: &OptimizerConfig{Grades: map[string]GradeConfig{
			"relic": {Thresholds: []int{14, 10}},
		}}}, "strictly ascending"},
		{"curve length", RawConfig{Optimizer: &OptimizerConfig{Curves: map[string]map[string][]float64{
			"dealer": {"atk": {0, 1}},
		}}}, "must have 6 values"},
		{"curve key of other role", RawConfig{Optimizer: &OptimizerConfig{Curves: map[string]map[string][]float64{
			"dealer": {"brand": {0, 1, 2, 3, 4, 5}},
		}}}, "does not belong"},
		{"negative weight", RawConfig{Refine: &RefineConfig{Weights: &WeightsConfig{Hold: floatp(-1)}}}, "weights.hold"},
		{"tiny gem pool", RawConfig{Refine: &RefineConfig{GemPools: map[string][]string{"x": {"a"}}}}, "at least 2"},
		{"position", RawConfig{Refine: &RefineConfig{PositionPools: map[string][]string{"tank": {"a"}}}}, "unknown position"},
		{"trials", RawConfig{Simulation: &SimulationConfig{MaxTrials: intp(0)}}, "max_trials"},
		{"trials limit", RawConfig{Simulation: &SimulationConfig{TrialsLimit: intp(0)}}, "trials_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRaw(tt.cfg)
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want ErrInvalidConfig mentioning %q", err, tt.want)
			}
		})
	}
}

func TestValidateRawCollectsAll(t *testing.T) {
	err := ValidateRaw(RawConfig{
		Optimizer:  &OptimizerConfig{LevelMode: "cubic"},
		Simulation: &SimulationConfig{AdviceSamples: intp(0)},
	})
	if err == nil || !strings.Contains(err.Error(), "level_mode") || !strings.Contains(err.Error(), "advice_samples") {
		t.Fatalf("err = %v, want both problems reported", err)
	}
}

func TestBuildAppliesConfigAndOverrides(t *testing.T) {
	raw := RawConfig{
		Version: "v1",
		Optimizer: &OptimizerConfig{
			Grades:  map[string]GradeConfig{"hero": {Supply: intp(10)}},
			Curves:  map[string]map[string][]float64{"support": {"brand": {0, 1, 2, 3, 4, 5}}},
			Presets: map[string]map[string]float64{"support": {"brand": 2}},
		},
		Refine: &RefineConfig{
			BaseGold: intp(1000),
			Rarities: map[string]RarityConfig{"영웅": {Attempts: intp(10)}},
		},
	}
	tables, err := Build(raw, Overrides{LevelMode: strp("linear"), MaxPoolSize: intp(20), MaxTrials: intp(5000)})
	if err != nil {
		t.Fatal(err)
	}
	if tables.Version != "v1" {
		t.Errorf("version = %q", tables.Version)
	}
	opt := tables.Optimizer
	if opt.LevelMode != optimizer.LevelLinear || opt.MaxPoolSize != 20 {
		t.Errorf("optimizer overrides not applied: mode %s pool %d", opt.LevelMode, opt.MaxPoolSize)
	}
	hero := opt.Grades[optimizer.GradeHero]
	if hero.Supply != 10 || hero.PointCap != 10 {
		t.Errorf("hero = %+v, want supply 10 and the built-in cap", hero)
	}
	if got := opt.Curves[optimizer.RoleSupport][optimizer.KeyBrand][5]; got != 5 {
		t.Errorf("brand curve[5] = %v", got)
	}
	if got := opt.Presets[optimizer.RoleSupport][optimizer.KeyBrand]; got != 2 {
		t.Errorf("brand preset = %v", got)
	}
	epic, _ := tables.Refine.Rarity(refine.RarityEpic)
	if epic.Attempts != 10 || epic.Rerolls != 2 {
		t.Errorf("epic = %+v", epic)
	}
	if tables.Refine.BaseGold != 1000 || tables.Sim.MaxTrials != 5000 {
		t.Errorf("gold %d trials %d", tables.Refine.BaseGold, tables.Sim.MaxTrials)
	}
	if tables.Sim.AdviceSamples != refine.DefaultAdviceSamples {
		t.Errorf("advice samples default lost: %d", tables.Sim.AdviceSamples)
	}
}

func TestBuildRejectsNewGradeWithoutCap(t *testing.T) {
	raw := RawConfig{Optimizer: &OptimizerConfig{Grades: map[string]GradeConfig{"mythic": {Supply: intp(20)}}}}
	if _, err := Build(raw, Overrides{}); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestDefaultsMatchBuiltins(t *testing.T) {
	d := Defaults()
	if diff := cmp.Diff(optimizer.DefaultTables(), d.Optimizer); diff != "" {
		t.Errorf("optimizer tables (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(refine.DefaultRules(), d.Refine); diff != "" {
		t.Errorf("refine rules (-want +got):\n%s", diff)
	}
}

func TestStoreReloadKeepsTablesOnError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables", "default.yaml")
	writeFile(t, path, "version: good\n")
	store, err := NewStore(NewLoader(dir), "", "", Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	var reloadErr error
	store.OnReload = func(_ *Tables, _ []string, err error) { reloadErr = err }

	writeFile(t, path, "simulation:\n  max_trials: -5\n")
	if err := store.Reload(); err == nil {
		t.Fatal("bad tables accepted")
	}
	if reloadErr == nil {
		t.Error("OnReload not told about the failure")
	}
	if got := store.Current().Version; got != "good" {
		t.Errorf("version after failed reload = %q, want good", got)
	}

	writeFile(t, path, "version: better\n")
	if err := store.Reload(); err != nil {
		t.Fatal(err)
	}
	if got := store.Current().Version; got != "better" {
		t.Errorf("version = %q, want better", got)
	}
}

func TestStoreWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables", "default.yaml")
	writeFile(t, path, "version: first\n")
	store, err := NewStore(NewLoader(dir), "", "", Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	reloaded := make(chan string, 4)
	store.OnReload = func(tb *Tables, _ []string, err error) {
		if err == nil {
			reloaded <- tb.Version
		}
	}
	w := store.Watch(10 * time.Millisecond)
	if w == nil {
		t.Fatal("no watcher for a loader-backed store")
	}
	defer w.Stop()

	writeFile(t, path, "version: second\n")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	select {
	case v := <-reloaded:
		if v != "second" {
			t.Errorf("reloaded version = %q, want second", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never reloaded")
	}
}

func TestBuildTrialsLimit(t *testing.T) {
	tables, err := Build(RawConfig{Simulation: &SimulationConfig{TrialsLimit: intp(2000000)}}, Overrides{MaxTrials: intp(1000000)})
	if err != nil {
		t.Fatal(err)
	}
	if tables.Sim.TrialsLimit != 2000000 || tables.Refine.MaxTrialsLimit != 2000000 {
		t.Errorf("limit = %d / %d, want 2000000", tables.Sim.TrialsLimit, tables.Refine.MaxTrialsLimit)
	}
	if d := Defaults(); d.Refine.MaxTrialsLimit != refine.DefaultMaxTrialsLimit {
		t.Errorf("default limit = %d", d.Refine.MaxTrialsLimit)
	}

	_, err = Build(RawConfig{}, Overrides{MaxTrials: intp(600), TrialsLimit: intp(500)})
	if !errors.Is(err, ErrInvalidConfig) || !strings.Contains(err.Error(), "trials_limit") {
		t.Fatalf("err = %v, want max_trials above trials_limit rejected", err)
	}
}

func TestStoreWatchLogsFailedReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tables", "default.yaml")
	writeFile(t, path, "version: first\n")
	store, err := NewStore(NewLoader(dir), "", "", Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	core, logs := observer.New(zap.ErrorLevel)
	store.Log = &logger.Logger{SugaredLogger: zap.New(core).Sugar()}
	w := store.Watch(10 * time.Millisecond)
	defer w.Stop()

	writeFile(t, path, "simulation: [not, a, map\n")
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for logs.FilterMessage("tables reload failed, keeping previous").Len() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("failed reload was not logged")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := store.Current().Version; got != "first" {
		t.Errorf("version = %q, want first", got)
	}
}

func TestStoreWithoutResolver(t *testing.T) {
	store, err := NewStore(nil, "", "", Overrides{MaxPoolSize: intp(12)})
	if err != nil {
		t.Fatal(err)
	}
	if store.Current().Optimizer.MaxPoolSize != 12 {
		t.Errorf("override not applied")
	}
	if store.Watch(time.Second) != nil {
		t.Error("watcher started without a directory")
	}
}
