// Package console is the terminal UI for reordering the sections of a course
// or the lessons of a section.
package console

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/trezcool/coursedesk/core/reorder"
)

const (
	toastTTL     = 4 * time.Second
	idlePollWait = 100 * time.Millisecond
)

// Item is one row of the ordered list.
type Item struct {
	ID   string
	Name string
}

type (
	snapshotMsg     reorder.Snapshot
	toastExpiredMsg struct{ seq uint64 }
	idleCheckMsg    struct{}
)

type Model struct {
	ctx   context.Context
	title string
	names map[string]string
	store *reorder.Store
	idle  func() bool

	updates     chan reorder.Snapshot
	done        chan struct{}
	closeOnce   sync.Once
	unsubscribe func()

	snap     reorder.Snapshot
	cursor   int
	picked   string
	toast    *reorder.Notice
	quitting bool

	spinner spinner.Model
	help    help.Model
}

// New binds a Model to store. idle reports whether the store's commits are all done.
func New(ctx context.Context, title string, items []Item, store *reorder.Store, idle func() bool) *Model {
	names := make(map[string]string, len(items))
	for _, it := range items {
		names[it.ID] = it.Name
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = pickedStyle

	m := &Model{
		ctx:     ctx,
		title:   title,
		names:   names,
		store:   store,
		idle:    idle,
		updates: make(chan reorder.Snapshot, 64),
		done:    make(chan struct{}),
		snap:    store.Snapshot(),
		spinner: sp,
		help:    help.New(),
	}
	m.unsubscribe = store.Subscribe(func(snap reorder.Snapshot) {
		select {
		case m.updates <- snap:
		case <-m.done:
		}
	})
	return m
}

// Close stops listening to the store.
func (m *Model) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
		m.unsubscribe()
	})
}

func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		select {
		case snap := <-m.updates:
			return snapshotMsg(snap)
		case <-m.done:
			return nil
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForSnapshot())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case snapshotMsg:
		cmds := []tea.Cmd{m.waitForSnapshot()}
		if msg.Version > m.snap.Version {
			m.snap = reorder.Snapshot(msg)
			m.clampCursor()
		}
		if msg.Notice != nil {
			notice := *msg.Notice
			m.toast = &notice
			cmds = append(cmds, tea.Tick(toastTTL, func(time.Time) tea.Msg {
				return toastExpiredMsg{seq: notice.Seq}
			}))
		}
		if m.quitting {
			cmds = append(cmds, m.checkIdle)
		}
		return m, tea.Batch(cmds...)

	case toastExpiredMsg:
		if m.toast != nil && m.toast.Seq == msg.seq {
			m.toast = nil
		}
		return m, nil

	case idleCheckMsg:
		return m, m.checkIdle

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case msg.String() == "ctrl+c":
		return tea.Quit
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m.checkIdle
	case m.quitting:
		return nil
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.snap.Displayed)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Pick):
		if id, ok := m.current(); ok {
			m.picked = id
		}
	case key.Matches(msg, keys.Cancel):
		m.picked = ""
	case key.Matches(msg, keys.Drop):
		m.drop()
	}
	return nil
}

// drop moves the picked item onto the one under the cursor; the cursor follows it.
func (m *Model) drop() {
	target, ok := m.current()
	if !ok || m.picked == "" {
		return
	}
	moved := m.picked
	m.picked = ""
	if !m.store.Move(m.ctx, moved, target) {
		return
	}
	m.snap = m.store.Snapshot()
	for i, id := range m.snap.Displayed {
		if id == moved {
			m.cursor = i
			break
		}
	}
}

// checkIdle quits once every commit has settled, polling until then.
func (m *Model) checkIdle() tea.Msg {
	if m.idle() && m.store.Status() == reorder.StatusStable {
		return tea.Quit()
	}
	time.Sleep(idlePollWait)
	return idleCheckMsg{}
}

func (m *Model) current() (string, bool) {
	if m.cursor < 0 || m.cursor >= len(m.snap.Displayed) {
		return "", false
	}
	return m.snap.Displayed[m.cursor], true
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.snap.Displayed) {
		m.cursor = len(m.snap.Displayed) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *Model) name(id string) string {
	if name, ok := m.names[id]; ok && name != "" {
		return name
	}
	return id
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")

	for i, id := range m.snap.Displayed {
		line := fmt.Sprintf("%2d. %s", i+1, m.name(id))
		switch {
		case id == m.picked:
			line = pickedStyle.Render(line + "  (picked)")
		case i == m.cursor:
			line = cursorStyle.Render(line)
		}
		prefix := "  "
		if i == m.cursor {
			prefix = cursorStyle.Render("> ")
		}
		b.WriteString(prefix + line + "\n")
	}
	b.WriteString("\n")

	if m.snap.Status == reorder.StatusPending {
		b.WriteString(m.spinner.View() + " saving...\n")
	}
	if m.toast != nil {
		style := successStyle
		if m.toast.Error {
			style = failureStyle
		}
		b.WriteString(style.Render(m.toast.Message) + "\n")
	}
	if m.quitting {
		b.WriteString(mutedStyle.Render("waiting for pending changes...") + "\n")
	}
	b.WriteString(m.help.View(keys))
	return b.String()
}

// Run shows m until the user quits.
func Run(m *Model, opts ...tea.ProgramOption) error {
	defer m.Close()
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
