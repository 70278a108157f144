package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jmurray2011/skein/internal/source"
)

var baseTime = time.Date(2025, 12, 3, 19, 0, 0, 0, time.UTC)

// entry returns a deterministic entry; larger n is newer.
func entry(n int) source.LogEntry {
	return source.LogEntry{
		ID:           uuid.MustParse(fmt.Sprintf("00000000-0000-0000-0000-%012d", n)),
		Content:      fmt.Sprintf("e%d", n),
		Time:         baseTime.Add(time.Duration(n) * time.Second),
		Level:        source.LevelInfo,
		DeploymentID: "dep",
		ServiceID:    "svc",
		Source:       "stdout",
	}
}

// entries returns entries in backend order, newest first: entries(5, 3) is
// e5, e4, e3.
func entries(from, to int) []source.LogEntry {
	var out []source.LogEntry
	for n := from; n >= to; n-- {
		out = append(out, entry(n))
	}
	return out
}

func contents(es []source.LogEntry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.Content
	}
	return out
}

// fakeSource answers every fetch through respond and records the cursors it
// was asked for.
type fakeSource struct {
	mu      sync.Mutex
	respond func(ctx context.Context, req source.PageRequest) (*source.Page, error)
	calls   []source.Cursor
	closed  bool
}

func (f *fakeSource) FetchPage(ctx context.Context, req source.PageRequest) (*source.Page, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Cursor)
	respond := f.respond
	f.mu.Unlock()
	return respond(ctx, req)
}

func (f *fakeSource) Type() string { return "fake" }

func (f *fakeSource) Metadata() source.SourceMetadata {
	return source.SourceMetadata{Type: "fake", URI: "fake://"}
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) Calls() []source.Cursor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]source.Cursor(nil), f.calls...)
}

func (f *fakeSource) setResponder(fn func(ctx context.Context, req source.PageRequest) (*source.Page, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.respond = fn
}

// pages builds a responder from a table of cursor to page. Each call returns
// a fresh copy so callers may modify what they receive.
func pages(table map[source.Cursor]source.Page) func(context.Context, source.PageRequest) (*source.Page, error) {
	return func(_ context.Context, req source.PageRequest) (*source.Page, error) {
		p, ok := table[req.Cursor]
		if !ok {
			return nil, &source.TransportError{Op: "GET", URL: string(req.Cursor), Status: 404}
		}
		cp := p
		cp.Entries = append([]source.LogEntry(nil), p.Entries...)
		return &cp, nil
	}
}

func equalCursors(a, b []source.Cursor) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
