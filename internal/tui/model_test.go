package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jmurray2011/skein/internal/source"
	"github.com/jmurray2011/skein/internal/stream"
	"github.com/jmurray2011/skein/internal/ui"
)

type fakeViewer struct {
	mu        sync.Mutex
	fp        source.Fingerprint
	entries   []source.LogEntry
	more      bool
	filters   []source.Fingerprint
	older     int
	refreshes int
	updates   chan stream.Update
}

func newFakeViewer(n int) *fakeViewer {
	return &fakeViewer{entries: entries(1, n), updates: make(chan stream.Update, 1)}
}

func entry(n int) source.LogEntry {
	return source.LogEntry{
		ID:        uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n)),
		Content:   fmt.Sprintf("entry %d", n),
		Time:      time.Date(2025, 12, 3, 19, 0, n, 0, time.UTC),
		Level:     source.LevelInfo,
		ServiceID: "svc",
	}
}

// entries returns from..to in ascending display order.
func entries(from, to int) []source.LogEntry {
	var out []source.LogEntry
	for n := from; n <= to; n++ {
		out = append(out, entry(n))
	}
	return out
}

func (f *fakeViewer) Fingerprint() source.Fingerprint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fp
}

func (f *fakeViewer) SetFilter(fp source.Fingerprint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fp = fp
	f.filters = append(f.filters, fp)
	f.entries = nil
}

func (f *fakeViewer) DisplaySequence() []source.LogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.LogEntry(nil), f.entries...)
}

func (f *fakeViewer) IsLoadingMore() bool   { return false }
func (f *fakeViewer) HasMoreBackward() bool { return f.more }
func (f *fakeViewer) LastError() error      { return nil }

func (f *fakeViewer) LoadOlder(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.older++
	return nil
}

func (f *fakeViewer) Refresh() { f.refreshes++ }

func (f *fakeViewer) Subscribe() (<-chan stream.Update, func()) {
	return f.updates, func() {}
}

func (f *fakeViewer) set(es []source.LogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = es
}

// newModel returns a model with a viewport of height lines.
func newModel(t *testing.T, v *fakeViewer, height int) *Model {
	t.Helper()
	m := New(context.Background(), v, ui.WithNoColor(true))
	m.Init()
	m.Update(tea.WindowSizeMsg{Width: 80, Height: height + chrome})
	return m
}

func keys(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_FollowsWhenAtBottom(t *testing.T) {
	v := newFakeViewer(20)
	m := newModel(t, v, 5)

	if !m.Following() {
		t.Fatal("a new view should start at the bottom")
	}

	v.set(entries(1, 25))
	m.Update(updateMsg{})

	if !m.Following() {
		t.Error("view at the bottom should stay at the bottom after new entries")
	}
	if m.vp.YOffset != 20 {
		t.Errorf("YOffset = %d, want 20", m.vp.YOffset)
	}
}

func TestModel_KeepsPlaceWhenScrolledUp(t *testing.T) {
	v := newFakeViewer(20)
	m := newModel(t, v, 5)
	m.vp.SetYOffset(3)

	v.set(entries(1, 25))
	m.Update(updateMsg{})

	if m.Following() {
		t.Error("view reading history should not jump to the bottom")
	}
	if m.vp.YOffset != 3 {
		t.Errorf("YOffset = %d, want 3", m.vp.YOffset)
	}
}

func TestModel_OlderPagesKeepPlace(t *testing.T) {
	v := newFakeViewer(20)
	for i := range v.entries {
		v.entries[i] = entry(i + 11)
	}
	m := newModel(t, v, 5)
	m.vp.SetYOffset(3)

	// Ten older entries arrive in front.
	v.set(entries(1, 30))
	m.Update(updateMsg{})

	if m.vp.YOffset != 13 {
		t.Errorf("YOffset = %d, want 13", m.vp.YOffset)
	}
}

func TestModel_Search(t *testing.T) {
	v := newFakeViewer(3)
	m := newModel(t, v, 5)

	m.Update(keys("/"))
	if !m.searching {
		t.Fatal("'/' should open the search prompt")
	}
	m.Update(keys("timeout"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.searching {
		t.Error("enter should close the search prompt")
	}
	if len(v.filters) != 1 || v.filters[0].Search != "timeout" {
		t.Fatalf("filters = %+v, want one with search %q", v.filters, "timeout")
	}
	if m.count != 0 {
		t.Errorf("count = %d after filter change, want 0", m.count)
	}
}

func TestModel_EmptyState(t *testing.T) {
	v := newFakeViewer(0)
	m := newModel(t, v, 5)

	if !strings.Contains(m.View(), "No logs yet") {
		t.Errorf("unfiltered empty view:\n%s", m.View())
	}

	m.Update(keys("/"))
	m.Update(keys("timeout"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if !strings.Contains(m.View(), "No logs matching filter `timeout`") {
		t.Errorf("filtered empty view:\n%s", m.View())
	}

	v.set(entries(1, 2))
	m.Update(updateMsg{})
	if view := m.View(); strings.Contains(view, "No logs") || !strings.Contains(view, "entry 2") {
		t.Errorf("view with entries:\n%s", view)
	}
}

func TestModel_SearchCancel(t *testing.T) {
	v := newFakeViewer(3)
	m := newModel(t, v, 5)

	m.Update(keys("/"))
	m.Update(keys("x"))
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if m.searching || len(v.filters) != 0 {
		t.Errorf("esc should close the prompt without filtering, filters = %+v", v.filters)
	}
}

func TestModel_LoadOlder(t *testing.T) {
	t.Run("start of history", func(t *testing.T) {
		v := newFakeViewer(3)
		m := newModel(t, v, 5)

		_, cmd := m.Update(keys("o"))
		if cmd != nil {
			t.Error("no fetch expected without older pages")
		}
		if m.notice != "start of history" {
			t.Errorf("notice = %q", m.notice)
		}
	})

	t.Run("fetches", func(t *testing.T) {
		v := newFakeViewer(3)
		v.more = true
		m := newModel(t, v, 5)

		_, cmd := m.Update(keys("o"))
		if cmd == nil {
			t.Fatal("expected a fetch command")
		}
		msg := cmd()
		if _, ok := msg.(olderMsg); !ok {
			t.Fatalf("cmd() = %T, want olderMsg", msg)
		}
		if v.older != 1 {
			t.Errorf("LoadOlder called %d times, want 1", v.older)
		}
		m.Update(msg)
		if m.notice != "" {
			t.Errorf("notice = %q after load", m.notice)
		}
	})
}

func TestModel_Keys(t *testing.T) {
	v := newFakeViewer(3)
	m := newModel(t, v, 5)

	m.Update(keys("r"))
	if v.refreshes != 1 {
		t.Errorf("refreshes = %d, want 1", v.refreshes)
	}

	_, cmd := m.Update(keys("q"))
	if cmd == nil {
		t.Fatal("q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should return tea.Quit")
	}
}

func TestModel_WaitsForUpdates(t *testing.T) {
	v := newFakeViewer(3)
	m := New(context.Background(), v, ui.WithNoColor(true))
	cmd := m.Init()

	v.updates <- stream.Update{}
	if _, ok := cmd().(updateMsg); !ok {
		t.Error("expected updateMsg from subscription")
	}

	close(v.updates)
	msg := m.waitForUpdate()()
	if _, ok := msg.(closedMsg); !ok {
		t.Fatalf("got %T after close, want closedMsg", msg)
	}
	if _, cmd := m.Update(msg); cmd == nil {
		t.Error("closed subscription should quit")
	}
}
