package reorder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resolutions records the outcomes handed to a Resolver, in order.
type resolutions struct {
	mu   sync.Mutex
	seqs []uint64
	outs []Outcome
}

func (r *resolutions) Resolve(seq uint64, out Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seqs = append(r.seqs, seq)
	r.outs = append(r.outs, out)
}

// submitLog records the order in which a Store hands attempts to its committer.
type submitLog struct {
	Committer
	mu   sync.Mutex
	seqs []uint64
}

func (l *submitLog) Submit(ctx context.Context, scope Scope, seq uint64, ids []string, r Resolver) {
	l.mu.Lock()
	l.seqs = append(l.seqs, seq)
	l.mu.Unlock()
	l.Committer.Submit(ctx, scope, seq, ids, r)
}

func TestPipeline_ConcurrentGesturesCommitLatestOrder(t *testing.T) {
	var (
		mu        sync.Mutex
		persisted []string
	)
	p := NewPipeline(PersisterFunc(func(_ context.Context, _ Scope, ids []string) Outcome {
		time.Sleep(time.Millisecond)
		mu.Lock()
		persisted = clone(ids)
		mu.Unlock()
		return Success("ok")
	}), nopLogger{})
	log := &submitLog{Committer: p}
	s := NewStore(scope, abcd, log, nopLogger{})
	ctx := context.Background()
	orders := [][]string{
		{"B", "A", "C", "D"}, {"C", "B", "A", "D"}, {"D", "C", "B", "A"}, {"A", "C", "B", "D"},
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				s.ApplyOptimistic(ctx, orders[(g+i)%len(orders)])
			}
		}(g)
	}
	wg.Wait()
	p.Wait()

	require.Len(t, log.seqs, 8*20)
	for i, seq := range log.seqs {
		require.EqualValues(t, i+1, seq, "attempt %d submitted out of order", seq)
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, s.Displayed(), persisted)
	assert.Equal(t, s.Displayed(), s.Confirmed())
	assert.Equal(t, StatusStable, s.Status())
}

func TestPipeline_CollapsesRapidGestures(t *testing.T) {
	persister := newBlockingPersister()
	p := NewPipeline(persister, nopLogger{})
	rec := new(recorder)
	s := NewStore(scope, abcd, p, nopLogger{})
	s.Subscribe(rec.record)
	ctx := context.Background()

	require.True(t, s.Move(ctx, "D", "B")) // [A D B C]
	first := persister.next(t)
	assert.Equal(t, []string{"A", "D", "B", "C"}, first.ids)

	require.True(t, s.Move(ctx, "A", "C")) // [D B C A]
	require.True(t, s.Move(ctx, "C", "D")) // [C D B A]
	persister.none(t)
	assert.False(t, p.Idle(scope))

	first.out <- Success("ok")
	trailing := persister.next(t)
	assert.Equal(t, []string{"C", "D", "B", "A"}, trailing.ids)
	trailing.out <- Success("ok")

	p.Wait()
	persister.none(t)
	assert.True(t, p.Idle(scope))
	assert.Equal(t, []string{"C", "D", "B", "A"}, s.Confirmed())
	assert.Equal(t, StatusStable, s.Status())
	assert.Equal(t, []Notice{{Seq: 3, Message: "ok"}}, rec.notices())
}

func TestPipeline_SkipsTrailingCallForCommittedOrder(t *testing.T) {
	persister := newBlockingPersister()
	p := NewPipeline(persister, nopLogger{})
	rec := new(recorder)
	inv := new(invalidations)
	s := NewStore(scope, abcd, p, nopLogger{}, WithInvalidator(inv))
	s.Subscribe(rec.record)
	ctx := context.Background()

	s.Move(ctx, "D", "B") // [A D B C]
	first := persister.next(t)
	s.Move(ctx, "A", "D") // [D A B C]
	s.Move(ctx, "D", "A") // [A D B C] again

	first.out <- Success("ok")
	p.Wait()
	persister.none(t)

	assert.Equal(t, []string{"A", "D", "B", "C"}, s.Confirmed())
	assert.Equal(t, []string{"A", "D", "B", "C"}, s.Displayed())
	assert.Equal(t, StatusStable, s.Status())
	assert.Equal(t, []Notice{{Seq: 3, Message: "ok"}}, rec.notices())
	assert.Equal(t, 1, inv.count())
}

func TestPipeline_TrailingCallAfterFailure(t *testing.T) {
	persister := newBlockingPersister()
	p := NewPipeline(persister, nopLogger{})
	rec := new(recorder)
	s := NewStore(scope, abcd, p, nopLogger{})
	s.Subscribe(rec.record)
	ctx := context.Background()

	s.Move(ctx, "D", "A") // [D A B C]
	first := persister.next(t)
	s.Move(ctx, "C", "A") // [D C A B]

	first.out <- Failure("transient")
	trailing := persister.next(t)
	assert.Equal(t, []string{"D", "C", "A", "B"}, trailing.ids)
	trailing.out <- Failure("forbidden")
	p.Wait()

	assert.Equal(t, abcd, s.Displayed())
	assert.Equal(t, abcd, s.Confirmed())
	assert.Equal(t, []Notice{{Seq: 2, Error: true, Message: "forbidden"}}, rec.notices())
}

func TestPipeline_ResolvesGoverningAttemptFirst(t *testing.T) {
	persister := newBlockingPersister()
	p := NewPipeline(persister, nopLogger{})
	res := new(resolutions)
	ctx := context.Background()

	p.Submit(ctx, scope, 1, []string{"B", "A"}, res)
	first := persister.next(t)
	p.Submit(ctx, scope, 2, []string{"A", "B"}, res)
	p.Submit(ctx, scope, 3, []string{"B", "A"}, res)
	p.Submit(ctx, scope, 4, []string{"A", "B"}, res)

	first.out <- Success("first")
	trailing := persister.next(t)
	assert.Equal(t, []string{"A", "B"}, trailing.ids)
	trailing.out <- Success("trailing")
	p.Wait()

	assert.Equal(t, []uint64{1, 4, 3, 2}, res.seqs)
	assert.Equal(t, []Outcome{Success("first"), Success("trailing"), Success("trailing"), Success("trailing")}, res.outs)
}

func TestPipeline_RecoversPanics(t *testing.T) {
	p := NewPipeline(PersisterFunc(func(context.Context, Scope, []string) Outcome {
		panic("db gone")
	}), nopLogger{})
	rec := new(recorder)
	s := NewStore(scope, abcd, p, nopLogger{})
	s.Subscribe(rec.record)

	s.Move(context.Background(), "B", "A")
	p.Wait()

	assert.Equal(t, abcd, s.Displayed())
	assert.Equal(t, []Notice{{Seq: 1, Error: true, Message: "There was an error reordering sections"}}, rec.notices())
}

func TestPipeline_CommitTimeout(t *testing.T) {
	p := NewPipeline(PersisterFunc(func(ctx context.Context, _ Scope, _ []string) Outcome {
		<-ctx.Done()
		return Failure(ctx.Err().Error())
	}), nopLogger{}, WithCommitTimeout(10*time.Millisecond))
	res := new(resolutions)

	p.Submit(context.Background(), scope, 1, abcd, res)
	p.Wait()

	assert.Equal(t, []Outcome{Failure(context.DeadlineExceeded.Error())}, res.outs)
}

func TestPipeline_ScopesAreIndependent(t *testing.T) {
	persister := newBlockingPersister()
	p := NewPipeline(persister, nopLogger{})
	res := new(resolutions)
	ctx := context.Background()
	other := Scope{Kind: "lessons", ParentID: "s1"}

	p.Submit(ctx, scope, 1, []string{"B", "A"}, res)
	p.Submit(ctx, other, 1, []string{"Y", "X"}, res)

	// both calls are in flight at once
	c1, c2 := persister.next(t), persister.next(t)
	assert.ElementsMatch(t, []Scope{scope, other}, []Scope{c1.scope, c2.scope})
	assert.False(t, p.Idle(scope))
	assert.False(t, p.Idle(other))

	c1.out <- Success("ok")
	c2.out <- Success("ok")
	p.Wait()
	assert.True(t, p.Idle(scope))
	assert.True(t, p.Idle(other))
	assert.Len(t, res.outs, 2)
}
