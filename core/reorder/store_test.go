package reorder

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	scope = Scope{Kind: "sections", ParentID: "c1"}
	abcd  = []string{"A", "B", "C", "D"}
)

func newTestStore() (*Store, *manualCommitter, *recorder, *invalidations) {
	committer := new(manualCommitter)
	inv := new(invalidations)
	rec := new(recorder)
	s := NewStore(scope, abcd, committer, nopLogger{}, WithInvalidator(inv))
	s.Subscribe(rec.record)
	return s, committer, rec, inv
}

func TestStore_MoveSuccess(t *testing.T) {
	s, committer, rec, inv := newTestStore()
	ctx := context.Background()

	require.True(t, s.Move(ctx, "D", "B"))
	assert.Equal(t, []string{"A", "D", "B", "C"}, s.Displayed())
	assert.Equal(t, abcd, s.Confirmed())
	assert.Equal(t, StatusPending, s.Status())
	require.Equal(t, []submission{{seq: 1, ids: []string{"A", "D", "B", "C"}}}, committer.submissions())

	pending := s.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, abcd, pending[0].Previous)

	s.Resolve(1, Success("Successfully reordered your sections"))
	assert.Equal(t, []string{"A", "D", "B", "C"}, s.Confirmed())
	assert.Equal(t, []string{"A", "D", "B", "C"}, s.Displayed())
	assert.Equal(t, StatusStable, s.Status())
	assert.Empty(t, s.Pending())
	assert.Equal(t, []Notice{{Seq: 1, Message: "Successfully reordered your sections"}}, rec.notices())
	assert.Equal(t, 1, inv.count())
}

func TestStore_MoveRollback(t *testing.T) {
	s, _, rec, inv := newTestStore()

	require.True(t, s.Move(context.Background(), "D", "B"))
	s.Resolve(1, Failure("forbidden"))

	assert.Equal(t, abcd, s.Displayed())
	assert.Equal(t, abcd, s.Confirmed())
	assert.Equal(t, StatusStable, s.Status())
	assert.Equal(t, []Notice{{Seq: 1, Error: true, Message: "forbidden"}}, rec.notices())
	assert.Equal(t, 0, inv.count())
}

func TestStore_StaleSuccessNeverWins(t *testing.T) {
	s, _, rec, inv := newTestStore()
	ctx := context.Background()

	o1 := []string{"B", "A", "C", "D"}
	o2 := []string{"C", "B", "A", "D"}
	o3 := []string{"D", "C", "B", "A"}
	require.EqualValues(t, 1, s.ApplyOptimistic(ctx, o1))
	require.EqualValues(t, 2, s.ApplyOptimistic(ctx, o2))
	require.EqualValues(t, 3, s.ApplyOptimistic(ctx, o3))

	s.Resolve(1, Success("ok"))
	assert.Equal(t, o1, s.Confirmed())
	assert.Equal(t, o3, s.Displayed())
	assert.Equal(t, StatusPending, s.Status())

	s.Resolve(3, Success("ok"))
	s.Resolve(2, Success("ok"))
	assert.Equal(t, o3, s.Confirmed())
	assert.Equal(t, o3, s.Displayed())
	assert.Equal(t, StatusStable, s.Status())

	assert.Equal(t, []Notice{{Seq: 3, Message: "ok"}}, rec.notices())
	assert.Equal(t, 1, inv.count())
}

func TestStore_SupersededFailureIsSwallowed(t *testing.T) {
	s, _, rec, _ := newTestStore()
	ctx := context.Background()

	o1 := []string{"B", "A", "C", "D"}
	o2 := []string{"B", "C", "A", "D"}
	s.ApplyOptimistic(ctx, o1)
	s.ApplyOptimistic(ctx, o2)

	s.Resolve(1, Failure("boom"))
	assert.Equal(t, o2, s.Displayed())
	assert.Equal(t, StatusPending, s.Status())
	assert.Empty(t, rec.notices())

	s.Resolve(2, Success("ok"))
	assert.Equal(t, o2, s.Confirmed())
	assert.Equal(t, []Notice{{Seq: 2, Message: "ok"}}, rec.notices())
}

func TestStore_LatestFailureRollsBackToLastSuccess(t *testing.T) {
	s, _, rec, inv := newTestStore()
	ctx := context.Background()

	o1 := []string{"B", "A", "C", "D"}
	o2 := []string{"B", "C", "A", "D"}
	s.ApplyOptimistic(ctx, o1)
	s.ApplyOptimistic(ctx, o2)

	s.Resolve(1, Success("ok"))
	assert.Equal(t, 0, inv.count(), "superseded success waits for the latest attempt")

	s.Resolve(2, Failure("nope"))
	assert.Equal(t, o1, s.Confirmed())
	assert.Equal(t, o1, s.Displayed())
	assert.Equal(t, []Notice{{Seq: 2, Error: true, Message: "nope"}}, rec.notices())
	assert.Equal(t, 1, inv.count(), "attempt 1 changed the persisted order")
}

func TestStore_Invalidation(t *testing.T) {
	o1 := []string{"B", "A", "C", "D"}
	o2 := []string{"B", "C", "A", "D"}

	tests := []struct {
		name    string
		orders  [][]string
		resolve []Outcome // by seq, applied last to first
		want    int
	}{
		{name: "success", orders: [][]string{o1}, resolve: []Outcome{Success("ok")}, want: 1},
		{name: "success with unchanged order", orders: [][]string{abcd}, resolve: []Outcome{Success("ok")}, want: 1},
		{name: "failure", orders: [][]string{o1}, resolve: []Outcome{Failure("no")}, want: 0},
		{name: "superseded failures", orders: [][]string{o1, o2}, resolve: []Outcome{Failure("no"), Failure("no")}, want: 0},
		{name: "late superseded success", orders: [][]string{o1, o2}, resolve: []Outcome{Success("ok"), Failure("no")}, want: 1},
		{name: "late stale success", orders: [][]string{o1, o2}, resolve: []Outcome{Success("ok"), Success("ok")}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, _, inv := newTestStore()
			ctx := context.Background()
			for _, o := range tt.orders {
				require.NotZero(t, s.ApplyOptimistic(ctx, o))
			}
			for i := len(tt.resolve) - 1; i >= 0; i-- {
				s.Resolve(uint64(i+1), tt.resolve[i])
			}
			assert.Equal(t, tt.want, inv.count())
		})
	}
}

func TestStore_ApplyOptimistic(t *testing.T) {
	s, committer, _, _ := newTestStore()
	ctx := context.Background()
	o := []string{"D", "C", "B", "A"}

	tests := []struct {
		name    string
		order   []string
		wantSeq uint64
		want    []string
	}{
		{name: "missing item", order: []string{"A", "B", "C"}, want: abcd},
		{name: "foreign item", order: []string{"A", "B", "C", "X"}, want: abcd},
		{name: "duplicate item", order: []string{"A", "B", "C", "C"}, want: abcd},
		{name: "permutation", order: o, wantSeq: 1, want: o},
		{name: "same order again", order: o, wantSeq: 2, want: o},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantSeq, s.ApplyOptimistic(ctx, tt.order))
			assert.Equal(t, tt.want, s.Displayed())
		})
	}
	assert.Len(t, committer.submissions(), 2)
}

func TestStore_MoveNoOp(t *testing.T) {
	s, committer, rec, _ := newTestStore()
	ctx := context.Background()

	assert.False(t, s.Move(ctx, "A", "A"))
	assert.False(t, s.Move(ctx, "X", "A"))
	assert.False(t, s.Move(ctx, "A", "X"))
	assert.Empty(t, committer.submissions())
	assert.Empty(t, rec.versions())
	assert.Equal(t, StatusStable, s.Status())
}

func TestStore_ResolveIsIdempotent(t *testing.T) {
	s, _, rec, inv := newTestStore()

	s.Resolve(7, Success("unknown attempt"))
	require.True(t, s.Move(context.Background(), "B", "A"))
	s.Resolve(1, Success("ok"))
	s.Resolve(1, Failure("late duplicate"))

	assert.Equal(t, []string{"B", "A", "C", "D"}, s.Displayed())
	assert.Len(t, rec.notices(), 1)
	assert.Equal(t, 1, inv.count())
}

func TestStore_Subscribe(t *testing.T) {
	s, _, rec, _ := newTestStore()
	ctx := context.Background()

	var late []Snapshot
	unsubscribe := s.Subscribe(func(snap Snapshot) { late = append(late, snap) })

	s.Move(ctx, "B", "A")
	s.Resolve(1, Success("ok"))
	unsubscribe()
	s.Move(ctx, "C", "A")

	assert.Equal(t, []uint64{1, 2, 3}, rec.versions())
	require.Len(t, late, 2)
	assert.Equal(t, StatusPending, late[0].Status)
	assert.Equal(t, StatusStable, late[1].Status)
	assert.Equal(t, scope, late[1].Scope)

	snap := s.Snapshot()
	assert.EqualValues(t, 3, snap.Version)
	assert.Nil(t, snap.Notice)
}

func TestStore_ConcurrentSnapshotsArriveInOrder(t *testing.T) {
	s, _, rec, _ := newTestStore()
	ctx := context.Background()
	orders := [][]string{
		{"B", "A", "C", "D"}, {"C", "B", "A", "D"}, {"D", "C", "B", "A"}, {"A", "C", "B", "D"},
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				seq := s.ApplyOptimistic(ctx, orders[(g+i)%len(orders)])
				s.Resolve(seq, Success("ok"))
			}
		}(g)
	}
	wg.Wait()

	versions := rec.versions()
	require.Len(t, versions, 8*25*2)
	for i, v := range versions {
		require.EqualValues(t, i+1, v, "snapshot %d delivered out of order", i)
	}
	assert.Equal(t, StatusStable, s.Status())
}
