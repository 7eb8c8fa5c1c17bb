package reorder

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/coursedesk/core"
)

// Store holds the confirmed and displayed order of one scope.
//
// The displayed order follows gestures immediately; the confirmed order only moves
// when a commit succeeds. Attempts are numbered, and a resolution never overrides the
// result of a newer attempt.
type Store struct {
	scope       Scope
	committer   Committer
	invalidator Invalidator
	logger      core.Logger

	mu           sync.Mutex
	confirmed    []string
	displayed    []string
	latestSeq    uint64
	confirmedSeq uint64
	pending      map[uint64]PendingReorder
	version      uint64
	unflushed    bool // confirmed moved without an Invalidate yet

	subMu     sync.Mutex
	delivered *sync.Cond // signalled on subMu after each publish
	published uint64
	subs      map[int]func(Snapshot)
	nextID    int
}

type StoreOption func(*Store)

func WithInvalidator(inv Invalidator) StoreOption {
	return func(s *Store) { s.invalidator = inv }
}

// NewStore returns a Stable store whose confirmed and displayed orders are initial.
func NewStore(scope Scope, initial []string, committer Committer, logger core.Logger, opts ...StoreOption) *Store {
	s := &Store{
		scope:     scope,
		committer: committer,
		logger:    logger,
		confirmed: clone(initial),
		displayed: clone(initial),
		pending:   make(map[uint64]PendingReorder),
		subs:      make(map[int]func(Snapshot)),
	}
	s.delivered = sync.NewCond(&s.subMu)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Scope() Scope { return s.scope }

func (s *Store) Displayed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.displayed)
}

func (s *Store) Confirmed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.confirmed)
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status()
}

// Pending returns the attempts still waiting for their outcome.
func (s *Store) Pending() []PendingReorder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PendingReorder, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	return out
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(nil)
}

// Move drops movedID onto targetID in the displayed order.
// It returns false, starting no attempt, when the move changes nothing.
func (s *Store) Move(ctx context.Context, movedID, targetID string) bool {
	s.mu.Lock()
	next := Derive(s.displayed, movedID, targetID)
	if equal(next, s.displayed) {
		s.mu.Unlock()
		return false
	}
	seq, snap := s.apply(next)
	s.committer.Submit(ctx, s.scope, seq, next, s)
	s.mu.Unlock()

	s.publish(snap)
	return true
}

// ApplyOptimistic displays newOrder at once and submits it for commit.
// An order that is not a permutation of the confirmed one is ignored and 0 returned.
func (s *Store) ApplyOptimistic(ctx context.Context, newOrder []string) uint64 {
	s.mu.Lock()
	if !isPermutation(s.confirmed, newOrder) {
		s.mu.Unlock()
		s.logger.Warn(fmt.Sprintf("reorder %s: ignoring order that is not a permutation of the current one", s.scope), newOrder)
		return 0
	}
	next := clone(newOrder)
	seq, snap := s.apply(next)
	s.committer.Submit(ctx, s.scope, seq, next, s)
	s.mu.Unlock()

	s.publish(snap)
	return seq
}

// apply must be called with s.mu held. The caller submits while still holding it,
// so the committer sees attempts in sequence order.
func (s *Store) apply(next []string) (uint64, Snapshot) {
	s.latestSeq++
	seq := s.latestSeq
	s.pending[seq] = PendingReorder{Seq: seq, Previous: clone(s.confirmed), Proposed: next}
	s.displayed = clone(next)
	s.version++
	return seq, s.snapshot(nil)
}

// Resolve settles attempt seq. It implements Resolver for the Pipeline.
func (s *Store) Resolve(seq uint64, out Outcome) {
	s.mu.Lock()
	attempt, ok := s.pending[seq]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.pending, seq)

	var (
		invalidate bool
		notice     *Notice
	)
	latest := seq == s.latestSeq
	if out.OK() && seq > s.confirmedSeq {
		if !equal(s.confirmed, attempt.Proposed) {
			s.unflushed = true
		}
		s.confirmed = clone(attempt.Proposed)
		s.confirmedSeq = seq
	} else if !out.OK() && latest {
		s.displayed = clone(s.confirmed)
	}

	// invalidate once the latest attempt has settled: always after it succeeds,
	// otherwise only when an earlier commit changed the persisted order
	_, latestPending := s.pending[s.latestSeq]
	switch {
	case latest && out.OK():
		invalidate = true
	case !latestPending && s.unflushed:
		invalidate = true
	}
	if invalidate {
		s.unflushed = false
	}
	if latest {
		notice = &Notice{Seq: seq, Error: out.Error, Message: out.Message}
	}
	s.version++
	snap := s.snapshot(notice)
	s.mu.Unlock()

	if invalidate && s.invalidator != nil {
		s.invalidator.Invalidate(s.scope)
	}
	if !latest {
		s.logger.Debug(fmt.Sprintf("reorder %s: attempt %d superseded", s.scope, seq))
	}
	s.publish(snap)
}

// Subscribe registers fn to receive a Snapshot after every transition.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// publish delivers snap after every earlier version, so subscribers see versions in order.
func (s *Store) publish(snap Snapshot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for s.published+1 < snap.Version {
		s.delivered.Wait()
	}
	s.published = snap.Version
	for _, fn := range s.subs {
		fn(snap)
	}
	s.delivered.Broadcast()
}

// status must be called with s.mu held.
func (s *Store) status() Status {
	if _, ok := s.pending[s.latestSeq]; ok {
		return StatusPending
	}
	return StatusStable
}

// snapshot must be called with s.mu held.
func (s *Store) snapshot(notice *Notice) Snapshot {
	return Snapshot{
		Version:   s.version,
		Scope:     s.scope,
		Displayed: clone(s.displayed),
		Confirmed: clone(s.confirmed),
		Status:    s.status(),
		Notice:    notice,
	}
}
