package service

import (
	"github.com/xtding233/arkgrid-toolkit/internal/config"
	"github.com/xtding233/arkgrid-toolkit/internal/optimizer"
	"github.com/xtding233/arkgrid-toolkit/internal/refine"
)

// Ticket identifies the caller's slot. A request whose generation is older
// than the newest seen for its slot is answered with ErrStale.
type Ticket struct {
	Slot       string `json:"slot,omitempty"`
	Generation uint64 `json:"generation,omitempty"`
}

type OptimizeRequest struct {
	Ticket
	Role    optimizer.Role             `json:"role"`
	Weights optimizer.Weights          `json:"weights,omitempty"`
	Cores   []optimizer.CoreDefinition `json:"cores"`
	Gems    []optimizer.Gem            `json:"gems"`
}

type OptimizeResponse struct {
	JobID       string                 `json:"jobId"`
	Generation  uint64                 `json:"generation"`
	Allocations []optimizer.Allocation `json:"allocations"`
	Truncated   int                    `json:"truncated"`
}

// GemInput describes the gem being refined. Session, when present, is
// used as is; otherwise a fresh session of Rarity starts at State.
type GemInput struct {
	GemKey      string           `json:"gemKey"`
	Rarity      refine.Rarity    `json:"rarity,omitempty"`
	State       refine.State     `json:"state"`
	Session     *refine.Snapshot `json:"session,omitempty"`
	Target      refine.Target    `json:"target"`
	TargetNames []string         `json:"targetNames,omitempty"`
}

type EvaluateRequest struct {
	Ticket
	GemInput
	FirstFour []refine.Action `json:"firstFour,omitempty"`
	Seed      *uint32         `json:"seed,omitempty"`
	Options   refine.Options  `json:"options"`
}

type EvaluateResponse struct {
	JobID      string        `json:"jobId"`
	Generation uint64        `json:"generation"`
	Stop       refine.Result `json:"stop"`
	Run        refine.Result `json:"run"`
	Cached     bool          `json:"cached"`
}

type AdviseRequest struct {
	Ticket
	GemInput
	CurrentFour []refine.Action `json:"currentFour"`
	Seed        *uint32         `json:"seed,omitempty"`
	Samples     int             `json:"samples,omitempty"`
	Trials      int             `json:"trials,omitempty"`
	Epsilon     float64         `json:"epsilon,omitempty"`
	Tau         float64         `json:"tau,omitempty"`
	Strategy    refine.Strategy `json:"strategy,omitempty"`
}

type AdviseResponse struct {
	JobID      string `json:"jobId"`
	Generation uint64 `json:"generation"`
	refine.Advice
	Cached bool `json:"cached"`
}

// TablesView is the public summary of the active game tables.
type TablesView struct {
	Version   string                                  `json:"version"`
	LevelMode optimizer.LevelMode                     `json:"levelMode"`
	MaxPool   int                                     `json:"maxPoolSize"`
	Grades    map[optimizer.Grade]optimizer.GradeSpec `json:"grades"`
	Presets   map[optimizer.Role]optimizer.Weights    `json:"presets"`
	BaseGold  int                                     `json:"baseGold"`
	Weights   refine.RollWeights                      `json:"weights"`
	Rarities  map[refine.Rarity]refine.RarityRule     `json:"rarities"`
	GemPools  map[string][]string                     `json:"gemPools"`
	Positions map[refine.Position][]string            `json:"positionPools"`
	Sim       config.Simulation                       `json:"simulation"`
}
