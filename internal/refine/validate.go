package refine

import (
	"errors"
	"fmt"
	"math"
)

func validateProb(p float64) error {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return ErrInvalidProb
	}
	if p < 0 || p > 1 {
		return ErrInvalidProb
	}
	return nil
}

func validAction(a Action) bool {
	switch a.Kind {
	case KindDelta:
		_, ok := statIndex(a.Stat)
		return ok && a.Delta != 0
	case KindRename:
		return a.Line == LineA || a.Line == LineB
	case KindCost:
		return a.Rate == 1 || a.Rate == -1
	case KindReroll:
		return a.N > 0
	case KindHold:
		return true
	}
	return false
}

// ValidateRequest collects every problem with req into one error.
func (r *Rules) ValidateRequest(req Request) error {
	var errs []error
	if err := r.Validate(req.GemKey, req.Start); err != nil {
		errs = append(errs, err)
	}
	if err := req.Target.Validate(); err != nil {
		errs = append(errs, err)
	}
	switch req.Policy {
	case PolicyStopOnSuccess, PolicyRunToEnd:
	default:
		errs = append(errs, fmt.Errorf("unknown policy %q", req.Policy))
	}
	if len(req.FirstFour) > 4 {
		errs = append(errs, fmt.Errorf("firstFour has %d actions, at most 4", len(req.FirstFour)))
	}
	for _, a := range req.FirstFour {
		if !validAction(a) {
			errs = append(errs, fmt.Errorf("invalid action %+v", a))
		}
	}
	o := req.Options
	if limit := r.trialsLimit(); o.MaxTrials > limit {
		errs = append(errs, fmt.Errorf("maxTrials %d exceeds %d", o.MaxTrials, limit))
	}
	if o.Epsilon != 0 {
		if err := validateProb(o.Epsilon); err != nil {
			errs = append(errs, fmt.Errorf("epsilon: %w", err))
		}
	}
	switch o.Strategy {
	case "", StrategyOfficial, StrategyGreedy:
	default:
		errs = append(errs, fmt.Errorf("unknown strategy %q", o.Strategy))
	}
	return errors.Join(errs...)
}
