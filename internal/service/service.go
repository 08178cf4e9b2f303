// Package service runs toolkit requests on the active game tables. It is
// shared by the HTTP and gRPC transports: every request is tracked by slot
// generation, and simulation results are cached by their deterministic seed.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/xtding233/arkgrid-toolkit/internal/cache"
	"github.com/xtding233/arkgrid-toolkit/internal/config"
	"github.com/xtding233/arkgrid-toolkit/internal/jobs"
	"github.com/xtding233/arkgrid-toolkit/internal/logger"
	"github.com/xtding233/arkgrid-toolkit/internal/optimizer"
	"github.com/xtding233/arkgrid-toolkit/internal/refine"
)

var (
	// ErrInvalidInput marks errors caused by the request itself.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStale is returned when a newer request of the same slot began.
	ErrStale = jobs.ErrStale
)

// Deps are the collaborators of a Service. Cache may be nil.
type Deps struct {
	Store    *config.Store
	Cache    cache.Cache
	Jobs     *jobs.Tracker
	Log      *logger.Logger
	CacheTTL time.Duration
}

type Service struct {
	store *config.Store
	cache cache.Cache
	jobs  *jobs.Tracker
	log   *logger.Logger
	ttl   time.Duration
}

func New(d Deps) (*Service, error) {
	if d.Store == nil {
		return nil, errors.New("service: config store required")
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Jobs == nil {
		d.Jobs = jobs.NewTracker(d.Log, 0)
	}
	return &Service{
		store: d.Store,
		cache: d.Cache,
		jobs:  d.Jobs,
		log:   d.Log.With("service", "Toolkit"),
		ttl:   d.CacheTTL,
	}, nil
}

// Jobs exposes the tracker for status lookups.
func (s *Service) Jobs() *jobs.Tracker { return s.jobs }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidInput, err)
}

// finish closes the job and maps a stale cancellation to ErrStale.
func finish(ctx context.Context, j *jobs.Job, err error) error {
	if err != nil && errors.Is(context.Cause(ctx), jobs.ErrStale) {
		err = nil
	}
	return j.Finish(err)
}

// Optimize allocates gems to cores in priority order.
func (s *Service) Optimize(ctx context.Context, req OptimizeRequest) (OptimizeResponse, error) {
	tables := s.store.Current()
	job, ctx := s.jobs.Begin(ctx, "optimize", req.Slot, req.Generation)

	allocs, err := func() ([]optimizer.Allocation, error) {
		if err := errors.Join(tables.Optimizer.ValidateCores(req.Cores), optimizer.ValidateGems(req.Gems)); err != nil {
			return nil, invalid(err)
		}
		if !req.Role.Valid() {
			return nil, invalid(fmt.Errorf("%w: %q", optimizer.ErrUnknownRole, req.Role))
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return tables.Optimizer.Allocate(req.Cores, req.Gems, req.Role, req.Weights)
	}()
	if err := finish(ctx, job, err); err != nil {
		return OptimizeResponse{}, err
	}

	resp := OptimizeResponse{JobID: job.ID(), Generation: job.Generation(), Allocations: allocs}
	for _, a := range allocs {
		resp.Truncated += a.Truncated
	}
	if resp.Truncated > 0 {
		s.log.Warn("gem pool truncated", "job", job.ID(), "dropped", resp.Truncated,
			"max_pool_size", tables.Optimizer.MaxPoolSize)
	}
	return resp, nil
}

func (s *Service) snapshot(rules *refine.Rules, in GemInput) (refine.Snapshot, error) {
	if in.Session != nil {
		return *in.Session, nil
	}
	rarity := in.Rarity
	if rarity == "" {
		rarity = refine.RarityEpic
	}
	snap, err := rules.NewSnapshot(rarity, in.State)
	return snap, invalid(err)
}

// EvaluateProgress reports evaluation progress; it may be called from two
// goroutines at once.
type EvaluateProgress func(refine.Progress)

// Evaluate runs the request under both policies.
func (s *Service) Evaluate(ctx context.Context, req EvaluateRequest, progress EvaluateProgress) (EvaluateResponse, error) {
	tables := s.store.Current()
	job, ctx := s.jobs.Begin(ctx, "evaluate", req.Slot, req.Generation)

	base, err := s.evalRequest(tables, req)
	if err != nil {
		return EvaluateResponse{}, job.Finish(err)
	}
	key := cache.Key("eval", tables.Version, evalKey(base))
	resp := EvaluateResponse{JobID: job.ID(), Generation: job.Generation()}

	var hit struct{ Stop, Run refine.Result }
	if s.cached(ctx, key, &hit) {
		resp.Stop, resp.Run, resp.Cached = hit.Stop, hit.Run, true
		if err := job.Finish(nil); err != nil {
			return EvaluateResponse{}, err
		}
		return resp, nil
	}

	var mu sync.Mutex
	done := map[refine.Policy]refine.Progress{}
	stop, run, err := tables.Refine.EvaluateBoth(ctx, base, func(p refine.Progress) {
		mu.Lock()
		done[p.Policy] = p
		var d, m int
		for _, q := range done {
			d += q.Done
			m += q.Max
		}
		mu.Unlock()
		job.Progress(d, m)
		if progress != nil {
			progress(p)
		}
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		err = invalidIfRequest(err)
	}
	if err := finish(ctx, job, err); err != nil {
		return EvaluateResponse{}, err
	}
	resp.Stop, resp.Run = stop, run
	hit.Stop, hit.Run = stop, run
	s.remember(ctx, key, hit)
	return resp, nil
}

func (s *Service) evalRequest(tables *config.Tables, req EvaluateRequest) (refine.Request, error) {
	snap, err := s.snapshot(tables.Refine, req.GemInput)
	if err != nil {
		return refine.Request{}, err
	}
	opts := req.Options
	if opts.MaxTrials == 0 {
		opts.MaxTrials = tables.Sim.MaxTrials
	}
	if opts.Workers == 0 {
		opts.Workers = tables.Sim.Workers
	}
	q := refine.Request{
		GemKey:      req.GemKey,
		Start:       snap,
		Target:      req.Target,
		FirstFour:   req.FirstFour,
		TargetNames: req.TargetNames,
		Seed:        req.Seed,
		Salt:        "evaluate",
		Options:     opts,
	}
	check := q
	check.Policy = refine.PolicyRunToEnd
	if err := tables.Refine.ValidateRequest(check); err != nil {
		return refine.Request{}, invalid(err)
	}
	return q, nil
}

// evalKey hashes every input that changes an evaluation result.
func evalKey(q refine.Request) uint32 {
	fields := q.SeedFields()
	if q.Seed != nil {
		fields = append(fields, refine.F("seed", *q.Seed))
	}
	o := q.Options
	return refine.SeedOf(append(fields,
		refine.F("maxTrials", o.MaxTrials),
		refine.F("epsilon", strconv.FormatFloat(o.Epsilon, 'g', -1, 64)),
		refine.F("batch", o.Batch),
	)...)
}

// Advise compares keeping the offered four with rerolling.
func (s *Service) Advise(ctx context.Context, req AdviseRequest) (AdviseResponse, error) {
	tables := s.store.Current()
	job, ctx := s.jobs.Begin(ctx, "advise", req.Slot, req.Generation)

	snap, err := s.snapshot(tables.Refine, req.GemInput)
	if err != nil {
		return AdviseResponse{}, job.Finish(err)
	}
	if err := req.Target.Validate(); err != nil {
		return AdviseResponse{}, job.Finish(invalid(err))
	}
	sim := tables.Sim
	q := refine.AdviceRequest{
		GemKey:      req.GemKey,
		Session:     snap,
		Target:      req.Target,
		CurrentFour: req.CurrentFour,
		TargetNames: req.TargetNames,
		Seed:        req.Seed,
		Samples:     pick(req.Samples, sim.AdviceSamples),
		Trials:      pick(req.Trials, sim.AdviceTrials),
		Epsilon:     pick(req.Epsilon, sim.AdviceEpsilon),
		Tau:         pick(req.Tau, sim.AdviceTau),
		Strategy:    req.Strategy,
	}
	key := cache.Key("advise", tables.Version, adviceKey(q))
	resp := AdviseResponse{JobID: job.ID(), Generation: job.Generation()}
	if s.cached(ctx, key, &resp.Advice) {
		resp.Cached = true
		if err := job.Finish(nil); err != nil {
			return AdviseResponse{}, err
		}
		return resp, nil
	}

	adv, err := tables.Refine.AdviseReroll(ctx, q)
	if err != nil && !errors.Is(err, context.Canceled) {
		err = invalidIfRequest(err)
	}
	if err := finish(ctx, job, err); err != nil {
		return AdviseResponse{}, err
	}
	resp.Advice = adv
	s.remember(ctx, key, adv)
	return resp, nil
}

func adviceKey(q refine.AdviceRequest) uint32 {
	fields := refine.Request{
		GemKey:      q.GemKey,
		Start:       q.Session,
		Target:      q.Target,
		FirstFour:   q.CurrentFour,
		TargetNames: q.TargetNames,
		Salt:        "advise",
		Options:     refine.Options{Strategy: q.Strategy},
	}.SeedFields()
	if q.Seed != nil {
		fields = append(fields, refine.F("seed", *q.Seed))
	}
	return refine.SeedOf(append(fields,
		refine.F("samples", q.Samples),
		refine.F("trials", q.Trials),
		refine.F("epsilon", strconv.FormatFloat(q.Epsilon, 'g', -1, 64)),
		refine.F("tau", strconv.FormatFloat(q.Tau, 'g', -1, 64)),
	)...)
}

// invalidIfRequest tags refine errors that stem from the request.
func invalidIfRequest(err error) error {
	for _, target := range []error{
		refine.ErrUnknownGem, refine.ErrUnknownRarity, refine.ErrUnknownPosition,
		refine.ErrInvalidState, refine.ErrInvalidTarget,
	} {
		if errors.Is(err, target) {
			return invalid(err)
		}
	}
	return err
}

// Tables summarizes the active tables.
func (s *Service) Tables() TablesView {
	t := s.store.Current()
	return TablesView{
		Version:   t.Version,
		LevelMode: t.Optimizer.LevelMode,
		MaxPool:   t.Optimizer.MaxPoolSize,
		Grades:    t.Optimizer.Grades,
		Presets:   t.Optimizer.Presets,
		BaseGold:  t.Refine.BaseGold,
		Weights:   t.Refine.Weights,
		Rarities:  t.Refine.Rarities,
		GemPools:  t.Refine.GemPools,
		Positions: t.Refine.PositionPools,
		Sim:       t.Sim,
	}
}

func (s *Service) cached(ctx context.Context, key string, v any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := cache.GetJSON(ctx, s.cache, key, v)
	if err != nil {
		s.log.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if ok {
		s.log.Debug("cache hit", "key", key)
	}
	return ok
}

func (s *Service) remember(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, v, s.ttl); err != nil {
		s.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func pick[T int | float64](v, def T) T {
	if v != 0 {
		return v
	}
	return def
}
