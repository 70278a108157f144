// Package httpapi reads pages from a cursor-paginated logs API over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/jmurray2011/skein/internal/cursor"
	"github.com/jmurray2011/skein/internal/source"
	"github.com/jmurray2011/skein/internal/wire"
)

const (
	// DefaultTimeout bounds a single page request.
	DefaultTimeout = 30 * time.Second

	// MaxBodySize is the largest response body accepted (8MB).
	MaxBodySize = 8 << 20
)

func init() {
	source.Register("http", openSource)
	source.Register("https", openSource)
}

// Source implements source.Source for an HTTP logs endpoint.
//
// The endpoint may contain {service} and {deployment} placeholders, which
// are filled from the fingerprint of each request.
type Source struct {
	endpoint string
	client   *http.Client
	headers  map[string]string
}

// NewSource creates a source for endpoint. A nil client gets a default one
// with transparent response compression.
func NewSource(endpoint string, headers map[string]string, client *http.Client) *Source {
	if client == nil {
		client = &http.Client{
			Transport: gzhttp.Transport(http.DefaultTransport),
			Timeout:   DefaultTimeout,
		}
	}
	return &Source{endpoint: endpoint, client: client, headers: headers}
}

func openSource(u *url.URL, opts source.OpenOptions) (source.Source, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("%s URI requires a host", u.Scheme)
	}
	return NewSource(u.String(), opts.Headers, nil), nil
}

// FetchPage requests the page at req.Cursor.
func (s *Source) FetchPage(ctx context.Context, req source.PageRequest) (*source.Page, error) {
	target, err := s.pageURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range s.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, &source.TransportError{Op: http.MethodGet, URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &source.TransportError{Op: http.MethodGet, URL: target, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, &source.TransportError{Op: http.MethodGet, URL: target, Err: err}
	}
	if len(body) > MaxBodySize {
		return nil, &source.TransportError{Op: http.MethodGet, URL: target, Err: fmt.Errorf("response larger than %d bytes", MaxBodySize)}
	}

	parsed, err := wire.Parse(body)
	if err != nil {
		return nil, err
	}
	return parsed.Page(), nil
}

// pageURL fills the endpoint template and adds filter and cursor parameters.
func (s *Source) pageURL(req source.PageRequest) (string, error) {
	fp := req.Fingerprint
	raw := fill(s.endpoint, "service", fp.Service)
	raw = fill(raw, "deployment", fp.Deployment)

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", raw, err)
	}
	q := u.Query()
	fp.Apply(q)
	u.RawQuery = q.Encode()

	return cursor.Encode(u.String(), req.Cursor)
}

// fill replaces a {name} placeholder, raw or percent-encoded, with value.
func fill(s, name, value string) string {
	escaped := url.PathEscape(value)
	s = strings.ReplaceAll(s, "{"+name+"}", escaped)
	return strings.ReplaceAll(s, "%7B"+name+"%7D", escaped)
}

// Type returns the source type identifier.
func (s *Source) Type() string {
	return "http"
}

// Metadata returns source metadata.
func (s *Source) Metadata() source.SourceMetadata {
	return source.SourceMetadata{Type: "http", URI: s.endpoint}
}

// Close releases idle connections.
func (s *Source) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
