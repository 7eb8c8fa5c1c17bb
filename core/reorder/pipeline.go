package reorder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
)

type (
	attempt struct {
		seq      uint64
		resolver Resolver
	}

	// flight is the commit state of one scope.
	flight struct {
		inFlight      bool
		queued        []attempt // wait for the trailing commit
		desired       []string  // latest order asked for while a call was in flight
		lastCommitted []string
		lastOK        Outcome
	}

	// Pipeline commits orders with at most one persistence call in flight per scope.
	Pipeline struct {
		persister Persister
		logger    core.Logger
		timeout   time.Duration

		mu      sync.Mutex
		flights map[Scope]*flight
		wg      sync.WaitGroup
	}

	PipelineOption func(*Pipeline)
)

var _ Committer = (*Pipeline)(nil) // interface compliance check

// WithCommitTimeout bounds each persistence call. Zero means no deadline.
func WithCommitTimeout(d time.Duration) PipelineOption {
	return func(p *Pipeline) { p.timeout = d }
}

func NewPipeline(persister Persister, logger core.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		persister: persister,
		logger:    logger,
		flights:   make(map[Scope]*flight),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit schedules ids as the wanted order of scope for attempt seq.
// It returns without waiting; r.Resolve is called once the attempt settles.
func (p *Pipeline) Submit(ctx context.Context, scope Scope, seq uint64, ids []string, r Resolver) {
	p.mu.Lock()
	f, ok := p.flights[scope]
	if !ok {
		f = &flight{}
		p.flights[scope] = f
	}
	if f.inFlight {
		f.desired = clone(ids)
		f.queued = append(f.queued, attempt{seq: seq, resolver: r})
		p.mu.Unlock()
		return
	}
	f.inFlight = true
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(ctx, scope, f, clone(ids), []attempt{{seq: seq, resolver: r}})
}

// Wait blocks until no scope has a commit in flight.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Idle reports whether scope has nothing in flight.
func (p *Pipeline) Idle(scope Scope) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.flights[scope]
	return !ok || !f.inFlight
}

func (p *Pipeline) run(ctx context.Context, scope Scope, f *flight, ids []string, batch []attempt) {
	defer p.wg.Done()

	for {
		out := p.commit(ctx, scope, ids)

		p.mu.Lock()
		if out.OK() {
			f.lastCommitted = ids
			f.lastOK = out
		}
		settled := []settlement{{batch: batch, out: out}}

		// pick the trailing commit, skipping it when it would rewrite the same order
		if len(f.queued) > 0 && f.lastCommitted != nil && equal(f.desired, f.lastCommitted) {
			settled = append(settled, settlement{batch: f.queued, out: f.lastOK})
			f.queued, f.desired = nil, nil
		}
		next := len(f.queued) > 0
		if next {
			ids, batch = f.desired, f.queued
			f.queued, f.desired = nil, nil
		} else {
			f.inFlight = false
		}
		p.mu.Unlock()

		for _, s := range settled {
			s.resolve()
		}
		if !next {
			return
		}
	}
}

type settlement struct {
	batch []attempt
	out   Outcome
}

// resolve settles the governing (highest) attempt first so stale ones arrive after it.
func (s settlement) resolve() {
	sort.Slice(s.batch, func(i, j int) bool { return s.batch[i].seq > s.batch[j].seq })
	for _, a := range s.batch {
		a.resolver.Resolve(a.seq, s.out)
	}
}

func (p *Pipeline) commit(ctx context.Context, scope Scope, ids []string) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			err := errors.Errorf("persisting %s order: %v", scope, rec)
			p.logger.Error(err.Error(), err)
			out = Failure(fmt.Sprintf("There was an error reordering %s", scope.Kind))
		}
	}()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	out = p.persister.SetFullOrder(ctx, scope, ids)
	if out.Error {
		p.logger.Warn(fmt.Sprintf("reorder %s rejected: %s", scope, out.Message))
	}
	return out
}
