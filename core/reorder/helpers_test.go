package reorder

import (
	"context"
	"sync"
	"testing"
	"time"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// manualCommitter records submissions; tests resolve them by hand.
type manualCommitter struct {
	mu   sync.Mutex
	subs []submission
}

type submission struct {
	seq uint64
	ids []string
}

func (c *manualCommitter) Submit(_ context.Context, _ Scope, seq uint64, ids []string, _ Resolver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, submission{seq: seq, ids: clone(ids)})
}

func (c *manualCommitter) submissions() []submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]submission(nil), c.subs...)
}

// call is one blocked persistence call.
type call struct {
	scope Scope
	ids   []string
	out   chan Outcome
}

// blockingPersister hands every call to the test and waits for its outcome.
type blockingPersister struct {
	calls chan call
}

func newBlockingPersister() *blockingPersister {
	return &blockingPersister{calls: make(chan call, 16)}
}

func (p *blockingPersister) SetFullOrder(_ context.Context, scope Scope, ids []string) Outcome {
	c := call{scope: scope, ids: clone(ids), out: make(chan Outcome)}
	p.calls <- c
	return <-c.out
}

func (p *blockingPersister) next(t *testing.T) call {
	t.Helper()
	select {
	case c := <-p.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no persistence call")
		return call{}
	}
}

func (p *blockingPersister) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-p.calls:
		t.Fatalf("unexpected persistence call with %v", c.ids)
	default:
	}
}

// recorder collects the snapshots published by a Store.
type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) record(s Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder) notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Notice
	for _, s := range r.snaps {
		if s.Notice != nil {
			out = append(out, *s.Notice)
		}
	}
	return out
}

func (r *recorder) versions() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uint64, 0, len(r.snaps))
	for _, s := range r.snaps {
		out = append(out, s.Version)
	}
	return out
}

// invalidations counts Invalidate calls.
type invalidations struct {
	mu sync.Mutex
	n  int
}

func (i *invalidations) Invalidate(Scope) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.n++
}

func (i *invalidations) count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.n
}
