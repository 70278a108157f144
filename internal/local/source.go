// Package local serves pages from a JSON-lines file of log entries, using
// the same cursor model as the HTTP API.
package local

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/valyala/fastjson"

	"github.com/jmurray2011/skein/internal/logging"
	"github.com/jmurray2011/skein/internal/source"
	"github.com/jmurray2011/skein/internal/wire"
)

const (
	// DefaultPageSize is the number of entries per page.
	DefaultPageSize = 100

	// MaxScanTokenSize is the maximum line size when scanning log files (1MB)
	MaxScanTokenSize = 1024 * 1024
)

func init() {
	source.Register("file", openSource)
}

// Source implements source.Source over a local file. Files ending in .zst
// are read through a zstd decoder.
type Source struct {
	path     string
	pageSize int
}

func openSource(u *url.URL, opts source.OpenOptions) (source.Source, error) {
	path := u.Path
	if path == "" {
		return nil, fmt.Errorf("file:// URI requires a path")
	}

	// Expand ~ to home directory
	if strings.HasPrefix(path, "/~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[3:])
		}
	}

	pageSize := opts.PageSize
	if v := u.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid page_size %q", v)
		}
		pageSize = n
	}

	return NewSource(path, pageSize)
}

// NewSource creates a source reading path. A pageSize of zero selects
// DefaultPageSize.
func NewSource(path string, pageSize int) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Source{path: path, pageSize: pageSize}, nil
}

// FetchPage returns the page at req.Cursor. Entries are read from disk on
// every call so appended lines show up on the next poll.
func (s *Source) FetchPage(ctx context.Context, req source.PageRequest) (*source.Page, error) {
	all, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	matched := all[:0]
	for _, e := range all {
		if matches(e, req.Fingerprint) {
			matched = append(matched, e)
		}
	}
	// Newest first.
	sort.SliceStable(matched, func(i, j int) bool {
		return positionOf(matched[j]).less(positionOf(matched[i]))
	})

	if req.Cursor == source.NoCursor {
		return s.window(matched, 0, min(s.pageSize, len(matched))), nil
	}

	dir, pos, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, &source.TransportError{Op: "read", URL: s.path, Status: 404, Err: err}
	}

	// first is the index of the newest entry older than pos.
	first := sort.Search(len(matched), func(i int) bool {
		return positionOf(matched[i]).less(pos)
	})

	if dir == before {
		return s.window(matched, first, min(first+s.pageSize, len(matched))), nil
	}
	// Entries newer than pos, closest first.
	end := first
	if end > 0 && positionOf(matched[end-1]).equal(pos) {
		end--
	}
	start := max(end-s.pageSize, 0)
	return s.window(matched, start, end), nil
}

// window returns matched[start:end] as a page with cursors to the entries
// on either side.
func (s *Source) window(matched []source.LogEntry, start, end int) *source.Page {
	page := &source.Page{Entries: append([]source.LogEntry(nil), matched[start:end]...)}
	if start >= end {
		return page
	}
	if end < len(matched) {
		page.Next = encodeCursor(before, positionOf(matched[end-1]))
	}
	if start > 0 {
		page.Previous = encodeCursor(after, positionOf(matched[start]))
	}
	return page
}

func matches(e source.LogEntry, fp source.Fingerprint) bool {
	if fp.Service != "" && e.ServiceID != fp.Service {
		return false
	}
	if fp.Deployment != "" && e.DeploymentID != fp.Deployment {
		return false
	}
	if !fp.Start.IsZero() && !e.Time.After(fp.Start) {
		return false
	}
	if !fp.End.IsZero() && !e.Time.Before(fp.End) {
		return false
	}
	if q := strings.TrimSpace(fp.Search); q != "" {
		return strings.Contains(strings.ToLower(e.Content), strings.ToLower(q))
	}
	return true
}

// load reads every valid entry of the file. Lines that fail validation are
// skipped.
func (s *Source) load(ctx context.Context) ([]source.LogEntry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, &source.TransportError{Op: "read", URL: s.path, Err: err}
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(s.path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, &source.TransportError{Op: "read", URL: s.path, Err: err}
		}
		defer dec.Close()
		r = dec
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, MaxScanTokenSize)

	var (
		p       fastjson.Parser
		entries []source.LogEntry
		lineNum int
		skipped int
	)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		v, err := p.Parse(line)
		if err != nil {
			skipped++
			continue
		}
		e, err := wire.ParseEntry(v)
		if err != nil {
			skipped++
			logging.Debug("%s:%d: %v", s.path, lineNum, err)
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, &source.TransportError{Op: "read", URL: s.path, Err: err}
	}

	if skipped > 0 {
		logging.Warn("%s: skipped %d malformed line(s)", s.path, skipped)
	}
	return entries, nil
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "local"
}

// Metadata returns source metadata.
func (s *Source) Metadata() source.SourceMetadata {
	return source.SourceMetadata{
		Type: "local",
		URI:  s.path,
	}
}

// Close releases any resources held by the source.
func (s *Source) Close() error {
	return nil
}

// Path returns the file read by this source.
func (s *Source) Path() string {
	return s.path
}
