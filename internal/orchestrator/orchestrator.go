// Package orchestrator implements a persistent-job poller with per-job
// optimistic locking, at a configurable cadence and lock lifetime. Job
// documents live in persistence.Store under persistence.KindJob, encoded as
// JSON via goccy/go-json.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/coachpo/marketmaker/internal/errs"
	"github.com/coachpo/marketmaker/internal/model"
	"github.com/coachpo/marketmaker/internal/observability"
	"github.com/coachpo/marketmaker/internal/persistence"
)

// Processor is a named async job handler. It receives the job's data
// payload and runs to completion or returns an error, which the
// orchestrator records on the job document.
type Processor func(ctx context.Context, data map[string]any) error

// Options configures the orchestrator's polling cadence and lock lifetime.
type Options struct {
	PollInterval time.Duration // default 2s, recommended range 1-5s
	LockLifetime time.Duration // default 10h
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.LockLifetime <= 0 {
		o.LockLifetime = 10 * time.Hour
	}
	return o
}

// Orchestrator polls persistence.Store for due jobs and dispatches each to
// its registered Processor.
type Orchestrator struct {
	store persistence.Store
	log   observability.Logger
	opts  Options

	mu         sync.RWMutex
	processors map[string]Processor
}

// New constructs an Orchestrator bound to store. log may be nil, in which
// case observability.Log() is used.
func New(store persistence.Store, log observability.Logger, opts Options) *Orchestrator {
	if log == nil {
		log = observability.Log()
	}
	return &Orchestrator{
		store:      store,
		log:        log,
		opts:       opts.withDefaults(),
		processors: make(map[string]Processor),
	}
}

// Register binds a named Processor. Jobs created with this name are
// dispatched to it; registering twice under the same name replaces it.
func (o *Orchestrator) Register(name string, proc Processor) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.processors[name] = proc
}

// Run polls at opts.PollInterval until ctx is cancelled. It returns once the
// in-flight poll (if any) has reached a safe point; no mid-job abort is
// attempted.
func (o *Orchestrator) Run(ctx context.Context) {
	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.pollOnce(ctx)
		}
	}
}

func (o *Orchestrator) pollOnce(ctx context.Context) {
	docs, err := o.store.List(ctx, persistence.KindJob)
	if err != nil {
		o.log.Error("orchestrator: list jobs failed", observability.Field{Key: "error", Value: err.Error()})
		return
	}
	now := time.Now().UTC()
	for _, doc := range docs {
		job, err := decodeJob(doc.Data)
		if err != nil {
			o.log.Error("orchestrator: decode job failed", observability.Field{Key: "id", Value: doc.Key.ID}, observability.Field{Key: "error", Value: err.Error()})
			continue
		}
		if !job.IsDue(now) || job.IsLocked(now, o.opts.LockLifetime) {
			continue
		}
		o.claimAndRun(ctx, doc, job)
	}
}

// claimAndRun atomically claims a job by writing lockedAt, then runs its
// processor and records the outcome. A CAS conflict means another poller
// claimed it first; that is not an error.
func (o *Orchestrator) claimAndRun(ctx context.Context, doc persistence.Document, job model.Job) {
	lockedAt := time.Now().UTC()
	job.LockedAt = &lockedAt

	claimed, err := o.saveJob(ctx, doc.Key.ID, doc.Version, job)
	if err != nil {
		if !errs.Is(err, errs.CodeConflict) {
			o.log.Error("orchestrator: claim failed", observability.Field{Key: "id", Value: doc.Key.ID}, observability.Field{Key: "error", Value: err.Error()})
		}
		return
	}

	o.mu.RLock()
	proc, ok := o.processors[job.Name]
	o.mu.RUnlock()
	if !ok {
		o.log.Error("orchestrator: no processor registered", observability.Field{Key: "name", Value: job.Name})
		return
	}

	runErr := proc(ctx, job.Data)

	finished := time.Now().UTC()
	job.LastRunAt = &lockedAt
	job.LastFinishedAt = &finished
	job.LockedAt = nil
	if runErr != nil {
		job.LastError = runErr.Error()
	} else {
		job.LastError = ""
		if job.RepeatInterval > 0 {
			job.NextRunAt = job.NextRunAt.Add(job.RepeatInterval)
		}
	}

	if _, err := o.saveJob(ctx, doc.Key.ID, claimed.Version, job); err != nil {
		o.log.Error("orchestrator: finalize failed", observability.Field{Key: "id", Value: doc.Key.ID}, observability.Field{Key: "error", Value: err.Error()})
	}
}

// CreateRepeatingJob is idempotent: it does not create a job document when
// one with the same name and deep-equal data already exists.
func (o *Orchestrator) CreateRepeatingJob(ctx context.Context, interval time.Duration, name string, data map[string]any) error {
	existing, err := o.store.List(ctx, persistence.KindJob)
	if err != nil {
		return err
	}
	for _, doc := range existing {
		job, err := decodeJob(doc.Data)
		if err != nil {
			continue
		}
		if job.Name == name && mapsEqual(job.Data, data) {
			return nil
		}
	}

	job := model.Job{
		Name:           name,
		Data:           data,
		NextRunAt:      time.Now().UTC(),
		RepeatInterval: interval,
	}
	id := jobID(name)
	if len(data) > 0 {
		raw, err := json.Marshal(data)
		if err != nil {
			return errs.New("orchestrator.CreateRepeatingJob", errs.CodeInput, errs.WithCause(err))
		}
		sum := sha256.Sum256(raw)
		id += "-" + hex.EncodeToString(sum[:8])
	}
	_, err = o.saveJob(ctx, id, 0, job)
	return err
}

func (o *Orchestrator) saveJob(ctx context.Context, id string, prevVersion int64, job model.Job) (persistence.Document, error) {
	raw, err := json.Marshal(job)
	if err != nil {
		return persistence.Document{}, errs.New("orchestrator.saveJob", errs.CodeInput, errs.WithCause(err))
	}
	key := persistence.Key{Kind: persistence.KindJob, ID: id}
	doc := persistence.Document{Key: key, Data: raw}
	if prevVersion == 0 {
		return o.store.Put(ctx, doc)
	}
	return o.store.CompareAndSwap(ctx, prevVersion, doc)
}

func decodeJob(raw []byte) (model.Job, error) {
	var job model.Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return model.Job{}, errs.New("orchestrator.decodeJob", errs.CodeBadResponse, errs.WithCause(err))
	}
	return job, nil
}

func jobID(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", "-"))
}

func mapsEqual(a, b map[string]any) bool {
	if len(a) != len(b) {
		return false
	}
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return string(ab) == string(bb)
}
