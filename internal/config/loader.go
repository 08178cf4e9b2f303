package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Paths helper for default/profile/variant files.
type Paths struct {
	BaseDir string // base directory, e.g., /etc/arkgrid
}

func (p Paths) DefaultPath() string {
	return filepath.Join(p.BaseDir, "tables", "default.yaml")
}
func (p Paths) ProfilePath(profile string) string {
	return filepath.Join(p.BaseDir, "tables", profile+".yaml")
}
func (p Paths) VariantPath(profile, variant string) string {
	return filepath.Join(p.BaseDir, "tables", profile, variant+".yaml")
}

// Files lists the files a (profile, variant) pair reads, for the watcher.
func (p Paths) Files(profile, variant string) []string {
	out := []string{p.DefaultPath()}
	if profile != "" {
		out = append(out, p.ProfilePath(profile))
		if variant != "" {
			out = append(out, p.VariantPath(profile, variant))
		}
	}
	return out
}

// Loader reads YAML tables and merges default → profile → variant.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // key: "profile" or "profile/variant"
}

// NewLoader creates a tables loader with the given base directory. An empty
// directory means built-in tables only.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

func (l *Loader) Paths() Paths { return l.paths }

// LoadMerged loads and merges default → profile → variant. Every file is
// optional; missing files contribute nothing.
func (l *Loader) LoadMerged(profile, variant string) (RawConfig, error) {
	key := profile
	if variant != "" {
		key += "/" + variant
	}
	l.mu.RLock()
	cfg, ok := l.cache[key]
	l.mu.RUnlock()
	if ok {
		return cfg, nil
	}
	if l.paths.BaseDir == "" {
		return RawConfig{}, nil
	}

	merged, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	if profile != "" {
		p, err := readYAML(l.paths.ProfilePath(profile))
		if err != nil {
			return RawConfig{}, fmt.Errorf("read profile %s: %w", profile, err)
		}
		merged = mergeRaw(merged, p)
		if variant != "" {
			v, err := readYAML(l.paths.VariantPath(profile, variant))
			if err != nil {
				return RawConfig{}, fmt.Errorf("read variant %s/%s: %w", profile, variant, err)
			}
			merged = mergeRaw(merged, v)
		}
	}

	l.mu.Lock()
	l.cache[key] = merged
	l.mu.Unlock()
	return merged, nil
}

// Invalidate clears loader's cache. Call after hot-reload detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

// readYAML loads a YAML file into RawConfig. Missing files return zero cfg, no error.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// mergeRaw overlays b on a: set pointers and non-empty strings replace,
// maps merge per key, slices replace.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a
	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}
	out.Optimizer = mergeOptimizer(a.Optimizer, b.Optimizer)
	out.Refine = mergeRefine(a.Refine, b.Refine)
	out.Simulation = mergeSimulation(a.Simulation, b.Simulation)
	return out
}

func mergeOptimizer(a, b *OptimizerConfig) *OptimizerConfig {
	if b == nil {
		return a
	}
	if a == nil {
		c := *b
		return &c
	}
	out := *a
	if b.LevelMode != "" {
		out.LevelMode = b.LevelMode
	}
	pick(&out.MaxPoolSize, b.MaxPoolSize)
	if len(b.Grades) > 0 {
		grades := make(map[string]GradeConfig, len(a.Grades)+len(b.Grades))
		for k, v := range a.Grades {
			grades[k] = v
		}
		for k, v := range b.Grades {
			g := grades[k]
			pick(&g.Supply, v.Supply)
			pick(&g.PointCap, v.PointCap)
			if len(v.Thresholds) > 0 {
				g.Thresholds = append([]int(nil), v.Thresholds...)
			}
			grades[k] = g
		}
		out.Grades = grades
	}
	out.Curves = mergeNested(a.Curves, b.Curves)
	out.Presets = mergeNested(a.Presets, b.Presets)
	return &out
}

func mergeRefine(a, b *RefineConfig) *RefineConfig {
	if b == nil {
		return a
	}
	if a == nil {
		c := *b
		return &c
	}
	out := *a
	pick(&out.BaseGold, b.BaseGold)
	switch {
	case out.Weights == nil && b.Weights != nil:
		c := *b.Weights
		out.Weights = &c
	case out.Weights != nil && b.Weights != nil:
		w := *out.Weights
		pick(&w.Plus1, b.Weights.Plus1)
		pick(&w.Plus2, b.Weights.Plus2)
		pick(&w.Plus3, b.Weights.Plus3)
		pick(&w.Plus4, b.Weights.Plus4)
		pick(&w.Minus1, b.Weights.Minus1)
		pick(&w.Rename, b.Weights.Rename)
		pick(&w.CostFlag, b.Weights.CostFlag)
		pick(&w.Reroll1, b.Weights.Reroll1)
		pick(&w.Reroll2, b.Weights.Reroll2)
		pick(&w.Hold, b.Weights.Hold)
		out.Weights = &w
	}
	if len(b.Rarities) > 0 {
		rs := make(map[string]RarityConfig, len(a.Rarities)+len(b.Rarities))
		for k, v := range a.Rarities {
			rs[k] = v
		}
		for k, v := range b.Rarities {
			r := rs[k]
			pick(&r.Attempts, v.Attempts)
			pick(&r.Rerolls, v.Rerolls)
			rs[k] = r
		}
		out.Rarities = rs
	}
	out.GemPools = mergeMap(a.GemPools, b.GemPools)
	out.PositionPools = mergeMap(a.PositionPools, b.PositionPools)
	return &out
}

func mergeSimulation(a, b *SimulationConfig) *SimulationConfig {
	if b == nil {
		return a
	}
	if a == nil {
		c := *b
		return &c
	}
	out := *a
	pick(&out.MaxTrials, b.MaxTrials)
	pick(&out.TrialsLimit, b.TrialsLimit)
	pick(&out.Workers, b.Workers)
	pick(&out.AdviceTrials, b.AdviceTrials)
	pick(&out.AdviceSamples, b.AdviceSamples)
	pick(&out.AdviceEpsilon, b.AdviceEpsilon)
	pick(&out.AdviceTau, b.AdviceTau)
	return &out
}

func pick[T any](dst **T, src *T) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func mergeMap[V any](a, b map[string]V) map[string]V {
	if len(b) == 0 {
		return a
	}
	out := make(map[string]V, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mergeNested[V any](a, b map[string]map[string]V) map[string]map[string]V {
	if len(b) == 0 {
		return a
	}
	out := make(map[string]map[string]V, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = mergeMap(out[k], v)
	}
	return out
}
