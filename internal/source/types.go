package source

import (
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a log entry as reported by the backend.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

// ParseLevel validates a wire level value.
func ParseLevel(s string) (Level, bool) {
	switch Level(s) {
	case LevelInfo, LevelError:
		return Level(s), true
	default:
		return "", false
	}
}

// LogEntry is a single log record. Entries are produced by a backend and
// never modified afterwards.
type LogEntry struct {
	ID           uuid.UUID
	Content      string
	Time         time.Time
	Level        Level
	DeploymentID string
	ServiceID    string
	Source       string // stdout, stderr, or a backend-specific origin
}

// Cursor is an opaque pagination token issued by a backend.
type Cursor string

// NoCursor is the initial position: a request without a cursor returns the
// most recent entries.
const NoCursor Cursor = ""

// Page is one backend page. Entries are in backend order (newest first).
// Next leads to older entries and Previous to newer ones.
type Page struct {
	Entries  []LogEntry
	Next     Cursor
	Previous Cursor

	// Anchor pins the start boundary of the first page of a view so that
	// refreshing it does not jump to the latest entries.
	Anchor Cursor
}

// IsNewest reports whether no newer page is known to exist.
func (p *Page) IsNewest() bool {
	return p.Previous == NoCursor
}

// Fingerprint identifies one logical log view. Two views share cached pages
// only when their fingerprints are equal.
type Fingerprint struct {
	Service    string
	Deployment string
	Search     string
	Start      time.Time // zero means unbounded
	End        time.Time // zero means unbounded
}

// Key returns the cache partition key for the fingerprint.
func (f Fingerprint) Key() string {
	parts := []string{
		f.Service,
		f.Deployment,
		f.Search,
		formatBound(f.Start),
		formatBound(f.End),
	}
	for i, p := range parts {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, "|")
}

// Apply adds the filter dimensions of the fingerprint to a backend query.
func (f Fingerprint) Apply(query url.Values) {
	if strings.TrimSpace(f.Search) != "" {
		query.Set("content", f.Search)
	}
	if !f.Start.IsZero() {
		query.Set("time_after", formatBound(f.Start))
	}
	if !f.End.IsZero() {
		query.Set("time_before", formatBound(f.End))
	}
}

// String returns a short human-readable description of the view.
func (f Fingerprint) String() string {
	var b strings.Builder
	b.WriteString(f.Service)
	if f.Deployment != "" {
		b.WriteString("/")
		b.WriteString(f.Deployment)
	}
	if f.Search != "" {
		b.WriteString(" search=")
		b.WriteString(f.Search)
	}
	if !f.Start.IsZero() {
		b.WriteString(" after=")
		b.WriteString(formatBound(f.Start))
	}
	if !f.End.IsZero() {
		b.WriteString(" before=")
		b.WriteString(formatBound(f.End))
	}
	return strings.TrimSpace(b.String())
}

func formatBound(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// PageRequest asks a backend for the page at Cursor within a view.
type PageRequest struct {
	Fingerprint Fingerprint
	Cursor      Cursor
}

// SourceMetadata describes an opened backend.
type SourceMetadata struct {
	Type      string // "http", "local", "cloudwatch"
	URI       string // Original URI used to open the source
	Profile   string // AWS profile (for cloudwatch)
	Region    string // AWS region (for cloudwatch)
	AccountID string // AWS account ID (for cloudwatch)
}
