package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtding233/arkgrid-toolkit/internal/optimizer"
	"github.com/xtding233/arkgrid-toolkit/internal/refine"
	"github.com/xtding233/arkgrid-toolkit/internal/service"
)

// Input files are YAML; JSON is accepted as well since it is a YAML subset.

type optimizeFile struct {
	Role    optimizer.Role             `yaml:"role"`
	Weights optimizer.Weights          `yaml:"weights"`
	Cores   []optimizer.CoreDefinition `yaml:"cores"`
	Gems    []optimizer.Gem            `yaml:"gems"`
}

// refineFile describes one gem for refine, advise and play. Actions are
// written by key, e.g. "delta:eff:+2" or "hold".
type refineFile struct {
	Gem         string           `yaml:"gem"`
	Rarity      refine.Rarity    `yaml:"rarity"`
	State       refine.State     `yaml:"state"`
	Session     *refine.Snapshot `yaml:"session"`
	Target      refine.Target    `yaml:"target"`
	TargetNames []string         `yaml:"target_names"`
	FirstFour   []string         `yaml:"first_four"`
	CurrentFour []string         `yaml:"current_four"`
	Seed        *uint32          `yaml:"seed"`
	Options     refine.Options   `yaml:"options"`
}

func readYAML(path string, v any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (f optimizeFile) request() service.OptimizeRequest {
	return service.OptimizeRequest{Role: f.Role, Weights: f.Weights, Cores: f.Cores, Gems: f.Gems}
}

func (f refineFile) gemInput() service.GemInput {
	return service.GemInput{
		GemKey:      f.Gem,
		Rarity:      f.Rarity,
		State:       f.State,
		Session:     f.Session,
		Target:      f.Target,
		TargetNames: f.TargetNames,
	}
}

func parseActions(keys []string) ([]refine.Action, error) {
	out := make([]refine.Action, 0, len(keys))
	for _, k := range keys {
		a, err := refine.ParseAction(k)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (f refineFile) evaluateRequest() (service.EvaluateRequest, error) {
	four, err := parseActions(f.FirstFour)
	if err != nil {
		return service.EvaluateRequest{}, err
	}
	return service.EvaluateRequest{
		GemInput:  f.gemInput(),
		FirstFour: four,
		Seed:      f.Seed,
		Options:   f.Options,
	}, nil
}

func (f refineFile) adviseRequest() (service.AdviseRequest, error) {
	four, err := parseActions(f.CurrentFour)
	if err != nil {
		return service.AdviseRequest{}, err
	}
	return service.AdviseRequest{
		GemInput:    f.gemInput(),
		CurrentFour: four,
		Seed:        f.Seed,
		Strategy:    f.Options.Strategy,
	}, nil
}
