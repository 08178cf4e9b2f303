// Package jobs tracks in-flight requests per slot so that a newer request
// supersedes an older one.
//
// Every request for a slot carries a generation. Beginning a request with a
// higher generation cancels the context of every older request of the same
// slot, and an older request finishing late is reported stale so its result
// is never served or cached in place of a fresher one.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xtding233/arkgrid-toolkit/internal/logger"
)

// ErrStale is returned for a request superseded by a newer generation.
var ErrStale = errors.New("jobs: superseded by a newer request")

// State of a job.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
	StateStale   State = "stale"
)

// Status is a point-in-time view of a job.
type Status struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	Slot       string    `json:"slot,omitempty"`
	Generation uint64    `json:"generation"`
	State      State     `json:"state"`
	Done       int64     `json:"done"`
	Max        int64     `json:"max"`
	Started    time.Time `json:"started"`
	Error      string    `json:"error,omitempty"`
}

// Job is one tracked request.
type Job struct {
	id      string
	kind    string
	slot    string
	gen     uint64
	started time.Time
	cancel  context.CancelCauseFunc
	tracker *Tracker

	done atomic.Int64
	max  atomic.Int64

	mu    sync.Mutex
	state State
	err   string
}

// Tracker hands out generations and remembers the newest one per slot.
type Tracker struct {
	mu     sync.Mutex
	latest map[string]uint64
	active map[string]*Job
	recent []*Job
	keep   int
	log    *logger.Logger
}

// NewTracker returns a tracker that remembers the last keep finished jobs.
// A nil logger discards.
func NewTracker(log *logger.Logger, keep int) *Tracker {
	if log == nil {
		log = logger.Nop()
	}
	if keep <= 0 {
		keep = 64
	}
	return &Tracker{
		latest: map[string]uint64{},
		active: map[string]*Job{},
		keep:   keep,
		log:    log,
	}
}

// Begin registers a request. A zero generation takes the slot's next one.
// An empty slot is never superseded. The returned context is cancelled with
// ErrStale as soon as a newer generation of the slot begins.
func (t *Tracker) Begin(ctx context.Context, kind, slot string, gen uint64) (*Job, context.Context) {
	ctx, cancel := context.WithCancelCause(ctx)
	j := &Job{
		id:      uuid.NewString(),
		kind:    kind,
		slot:    slot,
		started: time.Now(),
		cancel:  cancel,
		tracker: t,
		state:   StateRunning,
	}

	t.mu.Lock()
	if slot != "" {
		cur := t.latest[slot]
		if gen == 0 {
			gen = cur + 1
		}
		if gen > cur {
			t.latest[slot] = gen
			for _, old := range t.active {
				if old.slot == slot && old.gen < gen {
					old.cancel(ErrStale)
				}
			}
		}
	}
	j.gen = gen
	t.active[j.id] = j
	t.mu.Unlock()

	if slot != "" && t.isStale(j) {
		cancel(ErrStale)
	}
	t.log.Debug("job begin", "id", j.id, "kind", kind, "slot", slot, "generation", gen)
	return j, ctx
}

// Latest returns the newest generation seen for slot.
func (t *Tracker) Latest(slot string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[slot]
}

func (t *Tracker) isStale(j *Job) bool {
	if j.slot == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest[j.slot] > j.gen
}

// Get returns the status of an active or recently finished job.
func (t *Tracker) Get(id string) (Status, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if j, ok := t.active[id]; ok {
		return j.Status(), true
	}
	for _, j := range t.recent {
		if j.id == id {
			return j.Status(), true
		}
	}
	return Status{}, false
}

// Active lists running jobs, oldest first.
func (t *Tracker) Active() []Status {
	t.mu.Lock()
	out := make([]Status, 0, len(t.active))
	for _, j := range t.active {
		out = append(out, j.Status())
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, k int) bool { return out[i].Started.Before(out[k].Started) })
	return out
}

// Recent lists finished jobs, newest first.
func (t *Tracker) Recent() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Status, 0, len(t.recent))
	for i := len(t.recent) - 1; i >= 0; i-- {
		out = append(out, t.recent[i].Status())
	}
	return out
}

func (t *Tracker) finish(j *Job) {
	t.mu.Lock()
	delete(t.active, j.id)
	t.recent = append(t.recent, j)
	if len(t.recent) > t.keep {
		t.recent = t.recent[len(t.recent)-t.keep:]
	}
	t.mu.Unlock()
	j.cancel(nil)
}

func (j *Job) ID() string         { return j.id }
func (j *Job) Slot() string       { return j.slot }
func (j *Job) Generation() uint64 { return j.gen }

// Stale reports whether a newer generation of the job's slot has begun.
func (j *Job) Stale() bool { return j.tracker.isStale(j) }

// Progress records completion counters.
func (j *Job) Progress(done, total int) {
	j.done.Store(int64(done))
	j.max.Store(int64(total))
}

// Finish closes the job. It returns ErrStale when the job was superseded,
// in which case its result must be dropped, and err otherwise.
func (j *Job) Finish(err error) error {
	stale := j.Stale()
	j.mu.Lock()
	switch {
	case stale:
		j.state = StateStale
	case err != nil:
		j.state = StateFailed
		j.err = err.Error()
	default:
		j.state = StateDone
	}
	state := j.state
	j.mu.Unlock()

	j.tracker.finish(j)
	log := j.tracker.log.With("id", j.id, "kind", j.kind, "slot", j.slot, "generation", j.gen,
		"elapsed", time.Since(j.started))
	switch state {
	case StateStale:
		log.Info("job superseded")
		return ErrStale
	case StateFailed:
		log.Warn("job failed", "error", err)
		return err
	}
	log.Debug("job done")
	return nil
}

// Status returns a snapshot of the job.
func (j *Job) Status() Status {
	j.mu.Lock()
	defer j.mu.Unlock()
	return Status{
		ID:         j.id,
		Kind:       j.kind,
		Slot:       j.slot,
		Generation: j.gen,
		State:      j.state,
		Done:       j.done.Load(),
		Max:        j.max.Load(),
		Started:    j.started,
		Error:      j.err,
	}
}
