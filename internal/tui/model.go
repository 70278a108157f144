// Package tui is the interactive log viewer. It keeps the viewport pinned to
// the newest entry while the user is at the bottom and leaves it alone once
// they scroll up.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jmurray2011/skein/internal/source"
	"github.com/jmurray2011/skein/internal/stream"
	"github.com/jmurray2011/skein/internal/ui"
)

// Viewer is the part of stream.Viewer the model drives.
type Viewer interface {
	Fingerprint() source.Fingerprint
	SetFilter(fp source.Fingerprint)
	DisplaySequence() []source.LogEntry
	IsLoadingMore() bool
	HasMoreBackward() bool
	LastError() error
	LoadOlder(ctx context.Context) error
	Refresh()
	Subscribe() (<-chan stream.Update, func())
}

// chrome is the number of lines below the viewport.
const chrome = 2

type (
	updateMsg stream.Update
	closedMsg struct{}
	olderMsg  struct{ err error }
)

// Model is the bubbletea model of the viewer.
type Model struct {
	ctx    context.Context
	viewer Viewer
	opts   []ui.Option

	renderer    *ui.Renderer
	vp          viewport.Model
	search      textinput.Model
	searching   bool
	updates     <-chan stream.Update
	unsubscribe func()

	ready  bool
	width  int
	first  uuid.UUID
	count  int
	notice string
}

// New creates a model over v. ctx bounds the fetches the model starts.
func New(ctx context.Context, v Viewer, opts ...ui.Option) *Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "search"
	ti.CharLimit = 256

	vp := viewport.New(80, 20)

	updates, unsubscribe := v.Subscribe()
	m := &Model{
		ctx:         ctx,
		viewer:      v,
		opts:        opts,
		vp:          vp,
		search:      ti,
		updates:     updates,
		unsubscribe: unsubscribe,
	}
	m.setRenderer(v.Fingerprint().Search)
	return m
}

// Run starts the interactive viewer and blocks until the user quits or ctx
// is done.
func Run(ctx context.Context, v Viewer, opts ...ui.Option) error {
	m := New(ctx, v, opts...)
	defer m.unsubscribe()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) setRenderer(search string) {
	m.renderer = ui.NewRendererWithOptions(append(m.opts, ui.WithHighlight(search))...)
}

func (m *Model) Init() tea.Cmd {
	m.refresh()
	return m.waitForUpdate()
}

func (m *Model) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return updateMsg(u)
	}
}

func (m *Model) loadOlder() tea.Cmd {
	ctx, v := m.ctx, m.viewer
	return func() tea.Msg {
		return olderMsg{err: v.LoadOlder(ctx)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		follow := m.vp.AtBottom()
		m.width = msg.Width
		m.vp.Width = msg.Width
		m.vp.Height = max(msg.Height-chrome, 1)
		m.search.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refresh()
		if follow {
			m.vp.GotoBottom()
		}
		return m, nil

	case updateMsg:
		m.refresh()
		return m, m.waitForUpdate()

	case closedMsg:
		return m, tea.Quit

	case olderMsg:
		switch {
		case errors.Is(msg.err, stream.ErrNoOlderPages):
			m.notice = "start of history"
		case msg.err != nil:
			m.notice = ""
		default:
			m.notice = ""
			m.refresh()
		}
		return m, nil

	case tea.KeyMsg:
		if m.searching {
			return m.handleSearchKey(msg)
		}
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.searching = true
		m.search.SetValue(m.viewer.Fingerprint().Search)
		m.search.CursorEnd()
		return m, m.search.Focus()
	case "o":
		if !m.viewer.HasMoreBackward() {
			m.notice = "start of history"
			return m, nil
		}
		m.notice = "loading older entries..."
		return m, m.loadOlder()
	case "r":
		m.viewer.Refresh()
		return m, nil
	case "G", "end":
		m.vp.GotoBottom()
		return m, nil
	case "g", "home":
		m.vp.GotoTop()
		return m, nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()

		fp := m.viewer.Fingerprint()
		fp.Search = strings.TrimSpace(m.search.Value())
		m.setRenderer(fp.Search)
		m.notice = ""
		m.first, m.count = uuid.Nil, 0
		m.viewer.SetFilter(fp)
		m.refresh()
		m.vp.GotoBottom()
		return m, nil

	case tea.KeyEsc, tea.KeyCtrlC:
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

// refresh re-renders the display sequence. The bottom is checked before
// the content changes; a viewer that was following stays at the bottom and
// one that was reading history keeps its place even when older pages are
// added above it.
func (m *Model) refresh() {
	entries := m.viewer.DisplaySequence()
	follow := m.vp.AtBottom() || m.count == 0

	lines := make([]string, len(entries))
	shift := -1
	for i, e := range entries {
		lines[i] = m.renderer.Line(e)
		if shift < 0 && e.ID == m.first {
			shift = i
		}
	}

	if len(lines) == 0 {
		m.vp.SetContent(m.renderer.EmptyLine(m.viewer.Fingerprint().Search))
	} else {
		m.vp.SetContent(strings.Join(lines, "\n"))
	}
	switch {
	case follow:
		m.vp.GotoBottom()
	case m.count > 0 && shift > 0:
		m.vp.SetYOffset(m.vp.YOffset + shift)
	}

	m.count = len(entries)
	if len(entries) > 0 {
		m.first = entries[0].ID
	}
}

// Following reports whether the viewport is pinned to the newest entry.
func (m *Model) Following() bool {
	return m.vp.AtBottom()
}

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	if m.searching {
		b.WriteString(m.search.View())
	} else {
		b.WriteString(ui.HelpStyle.Render("/ search  o older  r refresh  g/G top/bottom  q quit"))
	}
	return b.String()
}

func (m *Model) statusLine() string {
	if err := m.viewer.LastError(); err != nil {
		return ui.ErrorBarStyle.Width(m.width).Render("error: " + err.Error())
	}

	parts := []string{m.viewer.Fingerprint().String(), fmt.Sprintf("%d entries", m.count)}
	if m.viewer.IsLoadingMore() {
		parts = append(parts, "loading")
	}
	if m.viewer.HasMoreBackward() {
		parts = append(parts, "more above")
	}
	if m.Following() {
		parts = append(parts, "following")
	}
	if m.notice != "" {
		parts = append(parts, m.notice)
	}
	return ui.StatusBarStyle.Width(m.width).Render(strings.Join(parts, " | "))
}
