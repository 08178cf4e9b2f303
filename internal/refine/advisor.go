package refine

import (
	"context"
	"fmt"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultAdviceTrials  = 8000
	DefaultAdviceEpsilon = 0.01
	DefaultAdviceSamples = 16
	DefaultAdviceTau     = 0.0025
)

// AdviceRequest asks whether the offered four should be rerolled.
type AdviceRequest struct {
	GemKey      string   `json:"gemKey"`
	Session     Snapshot `json:"session"`
	Target      Target   `json:"target"`
	CurrentFour []Action `json:"currentFour"`
	TargetNames []string `json:"targetNames,omitempty"`
	Seed        *uint32  `json:"seed,omitempty"`

	Samples  int      `json:"samples,omitempty"`  // fresh four-sets sampled for the reroll branch
	Trials   int      `json:"trials,omitempty"`   // max trials per nested evaluation
	Epsilon  float64  `json:"epsilon,omitempty"`  // nested early-stop half-width
	Tau      float64  `json:"tau,omitempty"`      // gap below which the choice is negligible
	Strategy Strategy `json:"strategy,omitempty"` // selection strategy of nested trials
}

// OptionProb is the success chance after applying one offered action.
type OptionProb struct {
	Action Action  `json:"action"`
	Label  string  `json:"label"`
	Prob   float64 `json:"prob"`
}

// Advice is the reroll recommendation.
type Advice struct {
	ShouldReroll bool         `json:"shouldReroll"`
	Blocked      bool         `json:"blocked"`
	Reason       string       `json:"reason"`
	NowProb      float64      `json:"nowProb"`
	RerollProb   float64      `json:"rerollProb"`
	Delta        float64      `json:"delta"`
	Options      []OptionProb `json:"options,omitempty"`
}

func (req AdviceRequest) withDefaults() AdviceRequest {
	if req.Samples <= 0 {
		req.Samples = DefaultAdviceSamples
	}
	if req.Trials <= 0 {
		req.Trials = DefaultAdviceTrials
	}
	if req.Epsilon <= 0 {
		req.Epsilon = DefaultAdviceEpsilon
	}
	if req.Tau <= 0 {
		req.Tau = DefaultAdviceTau
	}
	return req
}

// AdviseReroll compares keeping the current four with rerolling.
//
// Both branches are scored by nested RUN_TO_END evaluations. Keeping is the
// simple mean over the current four of the success chance after applying
// each. Rerolling is the mean of the same quantity over Samples freshly
// drawn sets, starting from a session with one fewer charge.
func (r *Rules) AdviseReroll(ctx context.Context, req AdviceRequest) (Advice, error) {
	req = req.withDefaults()
	snap := req.Session
	switch {
	case snap.Rerolls <= 0:
		return Advice{Blocked: true, Reason: "no reroll charges left"}, nil
	case snap.AttemptsLeft <= 0:
		return Advice{Blocked: true, Reason: "no attempts left"}, nil
	case !snap.Unlocked:
		return Advice{Blocked: true, Reason: "reroll is unavailable before the first attempt"}, nil
	}
	if len(req.CurrentFour) == 0 || len(req.CurrentFour) > 4 {
		return Advice{}, fmt.Errorf("%w: currentFour must hold 1 to 4 actions, got %d", ErrInvalidState, len(req.CurrentFour))
	}
	for _, a := range req.CurrentFour {
		if !validAction(a) {
			return Advice{}, fmt.Errorf("%w: invalid action %+v", ErrInvalidState, a)
		}
	}
	if err := r.Validate(req.GemKey, snap); err != nil {
		return Advice{}, err
	}
	pool, err := r.Pool(req.GemKey)
	if err != nil {
		return Advice{}, err
	}

	base := req.seedFields()
	var seed uint32
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		seed = SeedOf(base...)
	}

	rerolled := snap
	rerolled.Rerolls--
	sampler := NewXorshift32(TrialSeed(seed, -1))
	sets := make([][]Action, req.Samples)
	menu := BuildMenu(rerolled, pool, r.Weights)
	for i := range sets {
		sets[i] = SampleFour(menu, sampler)
	}

	nowProbs := make([]float64, len(req.CurrentFour))
	setProbs := make([][]float64, len(sets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	eval := func(start Snapshot, a Action, salt string, out *float64) {
		g.Go(func() error {
			s := SeedOf(F("seed", seed), F("salt", salt))
			res, err := r.Evaluate(gctx, Request{
				GemKey:      req.GemKey,
				Start:       start,
				Target:      req.Target,
				Policy:      PolicyRunToEnd,
				FirstFour:   []Action{a},
				TargetNames: req.TargetNames,
				Seed:        &s,
				Options: Options{
					MaxTrials: req.Trials,
					Epsilon:   req.Epsilon,
					Workers:   1,
					Strategy:  req.Strategy,
				},
			}, nil)
			if err != nil {
				return err
			}
			*out = res.SuccessProb
			return nil
		})
	}
	for i, a := range req.CurrentFour {
		eval(snap, a, "now:"+strconv.Itoa(i), &nowProbs[i])
	}
	for j, set := range sets {
		setProbs[j] = make([]float64, len(set))
		for i, a := range set {
			eval(rerolled, a, "reroll:"+strconv.Itoa(j)+":"+strconv.Itoa(i), &setProbs[j][i])
		}
	}
	if err := g.Wait(); err != nil {
		return Advice{}, err
	}

	adv := Advice{NowProb: mean(nowProbs)}
	for i, a := range req.CurrentFour {
		adv.Options = append(adv.Options, OptionProb{Action: a, Label: a.Label(snap.State), Prob: nowProbs[i]})
	}
	var sum float64
	for _, ps := range setProbs {
		sum += mean(ps)
	}
	adv.RerollProb = sum / float64(len(setProbs))
	adv.Delta = adv.RerollProb - adv.NowProb

	switch {
	case adv.Delta > req.Tau:
		adv.ShouldReroll = true
		adv.Reason = fmt.Sprintf("rerolling raises the success chance by %.2f%%p", adv.Delta*100)
	case adv.Delta < -req.Tau:
		adv.Reason = fmt.Sprintf("keeping the current four is better by %.2f%%p", -adv.Delta*100)
	default:
		adv.Reason = "difference is negligible"
	}
	return adv, nil
}

func (req AdviceRequest) seedFields() []SeedField {
	inner := Request{
		GemKey:      req.GemKey,
		Start:       req.Session,
		Target:      req.Target,
		Policy:      PolicyRunToEnd,
		FirstFour:   req.CurrentFour,
		TargetNames: req.TargetNames,
		Salt:        "advise",
		Options:     Options{Strategy: req.Strategy},
	}
	return append(inner.SeedFields(), F("samples", req.Samples), F("trials", req.Trials))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
