package refine

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Policy decides when a trial ends.
type Policy string

const (
	// PolicyStopOnSuccess ends a trial as soon as the target is met.
	PolicyStopOnSuccess Policy = "stop_on_success"
	// PolicyRunToEnd spends every attempt and judges the final state.
	PolicyRunToEnd Policy = "run_to_end"
)

const (
	DefaultMaxTrials      = 20000
	// DefaultMaxTrialsLimit is the trial ceiling of Rules that set none.
	DefaultMaxTrialsLimit = 500000
)

// Options tunes one evaluation. Zero values pick defaults.
type Options struct {
	MaxTrials int      `json:"maxTrials,omitempty" yaml:"max_trials"`
	Epsilon   float64  `json:"epsilon,omitempty" yaml:"epsilon"`
	Batch     int      `json:"batch,omitempty" yaml:"batch"`
	Workers   int      `json:"workers,omitempty" yaml:"workers"`
	Strategy  Strategy `json:"strategy,omitempty" yaml:"strategy"`
}

func (o Options) withDefaults() Options {
	if o.MaxTrials <= 0 {
		o.MaxTrials = DefaultMaxTrials
	}
	if o.Batch <= 0 {
		o.Batch = batchFor(o.MaxTrials)
	}
	if o.Epsilon <= 0 {
		o.Epsilon = epsilonFor(o.MaxTrials)
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.Strategy == "" {
		o.Strategy = StrategyOfficial
	}
	return o
}

func batchFor(maxTrials int) int {
	switch {
	case maxTrials >= 50000:
		return 1000
	case maxTrials >= 10000:
		return 800
	case maxTrials >= 5000:
		return 600
	default:
		return 400
	}
}

func epsilonFor(maxTrials int) float64 {
	switch {
	case maxTrials >= 50000:
		return 0.002
	case maxTrials >= 10000:
		return 0.0035
	case maxTrials >= 5000:
		return 0.005
	default:
		return 0.007
	}
}

// Request describes one evaluation.
type Request struct {
	GemKey string   `json:"gemKey"`
	Start  Snapshot `json:"start"`
	Target Target   `json:"target"`
	Policy Policy   `json:"policy"`
	// FirstFour replaces the draw of the first attempt.
	FirstFour []Action `json:"firstFour,omitempty"`
	// TargetNames overrides the wildcard pool.
	TargetNames []string `json:"targetNames,omitempty"`
	// Seed pins the run. When nil it is derived from the request itself.
	Seed    *uint32 `json:"seed,omitempty"`
	Salt    string  `json:"-"`
	Options Options `json:"options"`
}

// SeedFields lists the inputs a derived seed depends on, in hash order.
func (req Request) SeedFields() []SeedField {
	s, t := req.Start.State, req.Target
	four := make([]string, len(req.FirstFour))
	for i, a := range req.FirstFour {
		four[i] = a.Key()
	}
	names := append([]string(nil), req.TargetNames...)
	sort.Strings(names)
	return []SeedField{
		F("gem", req.GemKey),
		F("eff", s.Eff), F("pts", s.Pts),
		F("aName", s.AName), F("aLvl", s.ALvl),
		F("bName", s.BName), F("bLvl", s.BLvl),
		F("attempts", req.Start.AttemptsLeft),
		F("rerolls", req.Start.Rerolls),
		F("cost", req.Start.CostAddRate),
		F("unlocked", req.Start.Unlocked),
		F("tEff", t.Eff), F("tPts", t.Pts),
		F("tAName", t.AName), F("tALvl", t.ALvl),
		F("tBName", t.BName), F("tBLvl", t.BLvl),
		F("mode", string(t.mode())),
		F("position", string(t.Position)),
		F("policy", string(req.Policy)),
		F("strategy", string(req.Options.Strategy)),
		F("first", strings.Join(four, ",")),
		F("names", strings.Join(names, ",")),
		F("salt", req.Salt),
	}
}

func (req Request) seed() uint32 {
	if req.Seed != nil {
		return *req.Seed
	}
	return SeedOf(req.SeedFields()...)
}

// CI is a confidence interval for the success probability.
type CI struct {
	Low       float64 `json:"low"`
	High      float64 `json:"high"`
	HalfWidth float64 `json:"halfWidth"`
}

// Result is the outcome of an evaluation.
type Result struct {
	Policy       Policy  `json:"policy"`
	SuccessProb  float64 `json:"successProb"`
	BelowProb    float64 `json:"belowProb"`
	LegendProb   float64 `json:"legendProb"`
	RelicProb    float64 `json:"relicProb"`
	AncientProb  float64 `json:"ancientProb"`
	ExpectedGold float64 `json:"expectedGold"`
	Gold         Stats   `json:"gold"`
	AvgAttempts  float64 `json:"avgAttempts"`
	TrialsUsed   int     `json:"trialsUsed"`
	CI           CI      `json:"ci"`
	Converged    bool    `json:"converged"`
	Seed         uint32  `json:"seed"`
}

// Progress is reported after every batch.
type Progress struct {
	Policy      Policy  `json:"policy"`
	Done        int     `json:"done"`
	Max         int     `json:"max"`
	SuccessProb float64 `json:"successProb"`
	HalfWidth   float64 `json:"halfWidth"`
}

// ProgressFunc receives batch progress. EvaluateBoth calls it from two
// goroutines.
type ProgressFunc func(Progress)

type outcome struct {
	success  bool
	grade    GemGrade
	gold     int
	attempts int
}

type plan struct {
	pool      []string
	match     Matcher
	start     Snapshot
	firstFour []Action
	policy    Policy
	strategy  Strategy
	weights   RollWeights
	baseGold  int
}

func (r *Rules) newPlan(req Request, opts Options) (*plan, error) {
	pool, err := r.Pool(req.GemKey)
	if err != nil {
		return nil, err
	}
	allowed := req.TargetNames
	if len(allowed) == 0 {
		if allowed, err = r.AllowedNames(req.GemKey, req.Target.Position); err != nil {
			return nil, err
		}
	}
	return &plan{
		pool:      pool,
		match:     NewMatcher(req.Target, allowed, pool),
		start:     req.Start,
		firstFour: req.FirstFour,
		policy:    req.Policy,
		strategy:  opts.Strategy,
		weights:   r.Weights,
		baseGold:  r.BaseGold,
	}, nil
}

func (p *plan) runTrial(rng RandomSource) outcome {
	snap := p.start
	stop := p.policy == PolicyStopOnSuccess
	met := p.match.Meets(snap.State)
	attempts := 0
	for !(stop && met) && snap.AttemptsLeft > 0 {
		var four []Action
		if attempts == 0 && len(p.firstFour) > 0 {
			four = p.firstFour
		} else {
			four = SampleFour(BuildMenu(snap, p.pool, p.weights), rng)
		}
		if len(four) == 0 {
			break
		}
		Apply(&snap, p.choose(four, snap, rng), p.pool, p.baseGold, rng)
		attempts++
		met = p.match.Meets(snap.State)
	}
	return outcome{
		success:  met,
		grade:    GradeOf(snap.State.Total()),
		gold:     snap.Gold - p.start.Gold,
		attempts: attempts,
	}
}

type tally struct {
	n, success, attempts int
	grades               map[GemGrade]int
	gold                 []int
}

func (t *tally) add(o outcome) {
	t.n++
	if o.success {
		t.success++
	}
	t.attempts += o.attempts
	t.grades[o.grade]++
	t.gold = append(t.gold, o.gold)
}

func (t *tally) prob() float64 {
	if t.n == 0 {
		return 0
	}
	return float64(t.success) / float64(t.n)
}

func (t *tally) result(policy Policy, seed uint32, converged bool) Result {
	n := float64(t.n)
	p := t.prob()
	hw := waldHalfWidth(p, t.n)
	st := calcStats(t.gold)
	return Result{
		Policy:       policy,
		SuccessProb:  p,
		BelowProb:    float64(t.grades[GradeBelow]) / n,
		LegendProb:   float64(t.grades[GradeLegend]) / n,
		RelicProb:    float64(t.grades[GradeRelic]) / n,
		AncientProb:  float64(t.grades[GradeAncient]) / n,
		ExpectedGold: st.Mean,
		Gold:         st,
		AvgAttempts:  float64(t.attempts) / n,
		TrialsUsed:   t.n,
		CI:           CI{Low: max(0, p-hw), High: min(1, p+hw), HalfWidth: hw},
		Converged:    converged,
		Seed:         seed,
	}
}

// Evaluate estimates the success probability of req by Monte Carlo.
//
// Trials run in batches; each batch is spread over Workers goroutines and
// folded in trial order, and trial i always draws from TrialSeed(seed, i),
// so a fixed seed gives the same Result for any worker count. Evaluation
// stops once the Wald half-width drops to Epsilon or MaxTrials is spent.
func (r *Rules) Evaluate(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	if req.Policy == "" {
		req.Policy = PolicyStopOnSuccess
	}
	opts := req.Options.withDefaults()
	req.Options = opts
	if err := r.ValidateRequest(req); err != nil {
		return Result{}, err
	}
	p, err := r.newPlan(req, opts)
	if err != nil {
		return Result{}, err
	}
	seed := req.seed()
	t := &tally{grades: make(map[GemGrade]int, 4)}

	// Nothing left to draw: the current state decides.
	if req.Start.AttemptsLeft <= 0 {
		t.add(p.runTrial(NewXorshift32(seed)))
		res := t.result(req.Policy, seed, true)
		res.CI = CI{Low: res.SuccessProb, High: res.SuccessProb}
		return res, nil
	}

	t.gold = make([]int, 0, opts.MaxTrials)
	batch := make([]outcome, opts.Batch)
	converged := false
	for t.n < opts.MaxTrials {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		size := min(opts.Batch, opts.MaxTrials-t.n)
		if err := p.runBatch(ctx, batch[:size], seed, t.n, opts.Workers); err != nil {
			return Result{}, err
		}
		for _, o := range batch[:size] {
			t.add(o)
		}
		prob := t.prob()
		hw := waldHalfWidth(prob, t.n)
		if progress != nil {
			progress(Progress{Policy: req.Policy, Done: t.n, Max: opts.MaxTrials, SuccessProb: prob, HalfWidth: hw})
		}
		if hw <= opts.Epsilon {
			converged = true
			break
		}
	}
	return t.result(req.Policy, seed, converged), nil
}

func (p *plan) runBatch(ctx context.Context, out []outcome, seed uint32, offset, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	chunk := (len(out) + workers - 1) / workers
	for lo := 0; lo < len(out); lo += chunk {
		hi := min(lo+chunk, len(out))
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("refine: trial panicked: %v", r)
				}
			}()
			for i := lo; i < hi; i++ {
				if i%64 == 0 && gctx.Err() != nil {
					return gctx.Err()
				}
				out[i] = p.runTrial(NewXorshift32(TrialSeed(seed, offset+i)))
			}
			return nil
		})
	}
	return g.Wait()
}

// EvaluateBoth runs the request under both policies concurrently.
func (r *Rules) EvaluateBoth(ctx context.Context, req Request, progress ProgressFunc) (stop, run Result, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q := req
		q.Policy = PolicyStopOnSuccess
		var err error
		stop, err = r.Evaluate(gctx, q, progress)
		return err
	})
	g.Go(func() error {
		q := req
		q.Policy = PolicyRunToEnd
		var err error
		run, err = r.Evaluate(gctx, q, progress)
		return err
	})
	err = g.Wait()
	return stop, run, err
}
