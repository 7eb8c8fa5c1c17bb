package console

import (
	"context"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/coursedesk/core/reorder"
	"github.com/trezcool/coursedesk/tests"
)

type heldCommitter struct {
	mu   sync.Mutex
	seqs []uint64
}

func (c *heldCommitter) Submit(_ context.Context, _ reorder.Scope, seq uint64, _ []string, _ reorder.Resolver) {
	c.mu.Lock()
	c.seqs = append(c.seqs, seq)
	c.mu.Unlock()
}

var items = []Item{{ID: "a", Name: "Intro"}, {ID: "b", Name: "Basics"}, {ID: "c", Name: "Advanced"}}

func newTestModel(t *testing.T, idle func() bool) (*Model, *reorder.Store, *heldCommitter) {
	committer := new(heldCommitter)
	store := reorder.NewStore(reorder.Scope{Kind: "sections", ParentID: "c1"}, []string{"a", "b", "c"}, committer, testutil.NewLogger())
	m := New(context.Background(), "Go", items, store, idle)
	t.Cleanup(m.Close)
	return m, store, committer
}

func press(m *Model, keys ...tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(k)
	}
	return cmd
}

// drain feeds every published snapshot to the model.
func drain(m *Model) {
	for {
		select {
		case snap := <-m.updates:
			m.Update(snapshotMsg(snap))
		default:
			return
		}
	}
}

var (
	up    = tea.KeyMsg{Type: tea.KeyUp}
	down  = tea.KeyMsg{Type: tea.KeyDown}
	space = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
	quit  = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
)

func TestModel_DropSuccess(t *testing.T) {
	m, store, committer := newTestModel(t, func() bool { return true })

	press(m, down, down, space, up, up, enter)
	assert.Equal(t, []string{"c", "a", "b"}, store.Displayed())
	assert.Equal(t, 0, m.cursor)
	assert.Empty(t, m.picked)
	assert.Equal(t, []uint64{1}, committer.seqs)
	assert.Contains(t, m.View(), "saving...")

	store.Resolve(1, reorder.Success("Successfully reordered your sections"))
	drain(m)

	require.NotNil(t, m.toast)
	assert.False(t, m.toast.Error)
	view := m.View()
	assert.Contains(t, view, "Successfully reordered your sections")
	assert.NotContains(t, view, "saving...")
	assert.Equal(t, []string{"c", "a", "b"}, m.snap.Confirmed)

	m.Update(toastExpiredMsg{seq: 1})
	assert.Nil(t, m.toast)
}

func TestModel_DropFailureRollsBack(t *testing.T) {
	m, store, _ := newTestModel(t, func() bool { return true })

	press(m, space, down, enter)
	assert.Equal(t, []string{"b", "a", "c"}, m.snap.Displayed)
	assert.Equal(t, 1, m.cursor)

	store.Resolve(1, reorder.Failure("There was an error reordering your sections"))
	drain(m)

	assert.Equal(t, []string{"a", "b", "c"}, m.snap.Displayed)
	require.NotNil(t, m.toast)
	assert.True(t, m.toast.Error)
	assert.Contains(t, m.View(), "There was an error reordering your sections")
}

func TestModel_Keys(t *testing.T) {
	tests := []struct {
		name       string
		keys       []tea.KeyMsg
		wantCursor int
		wantPicked string
		wantOrder  []string
	}{
		{name: "cursor stays in bounds", keys: []tea.KeyMsg{up, down, down, down, down}, wantCursor: 2, wantOrder: []string{"a", "b", "c"}},
		{name: "pick", keys: []tea.KeyMsg{down, space}, wantCursor: 1, wantPicked: "b", wantOrder: []string{"a", "b", "c"}},
		{name: "cancel", keys: []tea.KeyMsg{space, esc, down, enter}, wantCursor: 1, wantOrder: []string{"a", "b", "c"}},
		{name: "drop on itself", keys: []tea.KeyMsg{space, enter}, wantCursor: 0, wantOrder: []string{"a", "b", "c"}},
		{name: "drop without pick", keys: []tea.KeyMsg{enter}, wantCursor: 0, wantOrder: []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store, committer := newTestModel(t, func() bool { return true })
			press(m, tt.keys...)
			assert.Equal(t, tt.wantCursor, m.cursor)
			assert.Equal(t, tt.wantPicked, m.picked)
			assert.Equal(t, tt.wantOrder, store.Displayed())
			assert.Empty(t, committer.seqs)
		})
	}
}

func TestModel_QuitWaitsForPendingCommits(t *testing.T) {
	idle := false
	m, store, _ := newTestModel(t, func() bool { return idle })

	press(m, space, down, enter)
	cmd := press(m, quit)
	require.True(t, m.quitting)
	assert.Contains(t, m.View(), "waiting for pending changes...")
	assert.Equal(t, idleCheckMsg{}, cmd())

	// gestures are ignored once quitting
	press(m, space, down, enter)
	assert.Equal(t, []string{"b", "a", "c"}, store.Displayed())

	store.Resolve(1, reorder.Success("ok"))
	idle = true
	drain(m)
	_, cmd = m.Update(idleCheckMsg{})
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestModel_IgnoresStaleSnapshots(t *testing.T) {
	m, store, _ := newTestModel(t, func() bool { return true })

	press(m, space, down, enter)
	current := m.snap
	m.Update(snapshotMsg(reorder.Snapshot{Version: 0, Displayed: []string{"x"}}))
	assert.Equal(t, current, m.snap)
	assert.Equal(t, store.Displayed(), m.snap.Displayed)
}

func TestModel_ViewUsesNames(t *testing.T) {
	m, _, _ := newTestModel(t, func() bool { return true })

	press(m, down, space)
	view := m.View()
	assert.Contains(t, view, "Go")
	assert.Contains(t, view, " 1. Intro")
	assert.Contains(t, view, "Basics  (picked)")
	assert.Contains(t, view, "pick")
}
