package refine

import "math"

// Strategy picks which of the offered four is applied.
type Strategy string

const (
	// StrategyOfficial applies one of the four uniformly at random, as the
	// game does.
	StrategyOfficial Strategy = "official"
	// StrategyGreedy applies the action with the lowest expected distance
	// to the target. Useful as an upper bound, not as a prediction.
	StrategyGreedy Strategy = "greedy"
)

// unreachable stands in for +Inf when averaging rename outcomes.
const unreachable = 1e6

func (p *plan) choose(four []Action, snap Snapshot, rng RandomSource) Action {
	if p.strategy != StrategyGreedy || len(four) == 1 {
		return four[Intn(rng, len(four))]
	}
	best, bestD := 0, math.Inf(1)
	for i, a := range four {
		d := p.expectedDistance(snap, a)
		if d < bestD {
			best, bestD = i, d
		}
	}
	return four[best]
}

func (p *plan) expectedDistance(snap Snapshot, a Action) float64 {
	if a.Kind != KindRename {
		next := snap
		Apply(&next, a, p.pool, 0, nil)
		return finite(p.match.Distance(next.State))
	}
	s := snap.State
	cands := renameCandidates(p.pool, s.AName, s.BName)
	if len(cands) == 0 {
		return finite(p.match.Distance(s))
	}
	var sum float64
	for _, name := range cands {
		next := s
		if a.Line == LineA {
			next.AName = name
		} else {
			next.BName = name
		}
		sum += finite(p.match.Distance(next))
	}
	return sum / float64(len(cands))
}

func finite(d float64) float64 {
	if math.IsInf(d, 1) {
		return unreachable
	}
	return d
}
