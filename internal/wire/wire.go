// Package wire validates logs API responses.
//
// Decoding happens in two phases. Parse checks the structure of the payload
// and converts every entry; Response.Page then derives cursors from the
// validated links. Either phase can be tested on its own.
package wire

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fastjson"

	"github.com/jmurray2011/skein/internal/cursor"
	"github.com/jmurray2011/skein/internal/source"
)

var parserPool fastjson.ParserPool

// Response is a structurally valid logs API page.
type Response struct {
	Next     *string
	Previous *string
	Results  []source.LogEntry // backend order, newest first
}

// Page derives the cursors of the response and returns it as a source.Page.
func (r *Response) Page() *source.Page {
	return &source.Page{
		Entries:  r.Results,
		Next:     cursor.Decode(r.Next),
		Previous: cursor.Decode(r.Previous),
	}
}

// Parse validates body against the logs API schema. A single invalid entry
// rejects the whole response.
func Parse(body []byte) (*Response, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, &source.SchemaError{Err: fmt.Errorf("malformed JSON: %w", err)}
	}
	if v.Type() != fastjson.TypeObject {
		return nil, &source.SchemaError{Err: fmt.Errorf("expected object, got %s", v.Type())}
	}

	next, err := linkField(v, "next")
	if err != nil {
		return nil, err
	}
	previous, err := linkField(v, "previous")
	if err != nil {
		return nil, err
	}

	results := v.Get("results")
	if results == nil {
		return nil, &source.SchemaError{Field: "results", Err: errors.New("missing")}
	}
	items, err := results.Array()
	if err != nil {
		return nil, &source.SchemaError{Field: "results", Err: fmt.Errorf("expected array, got %s", results.Type())}
	}

	resp := &Response{
		Next:     next,
		Previous: previous,
		Results:  make([]source.LogEntry, 0, len(items)),
	}
	for i, item := range items {
		entry, err := ParseEntry(item)
		if err != nil {
			var se *source.SchemaError
			if errors.As(err, &se) {
				if se.Field == "" {
					se.Field = fmt.Sprintf("results[%d]", i)
				} else {
					se.Field = fmt.Sprintf("results[%d].%s", i, se.Field)
				}
			}
			return nil, err
		}
		resp.Results = append(resp.Results, entry)
	}

	return resp, nil
}

// ParseEntry validates a single log entry object.
func ParseEntry(v *fastjson.Value) (source.LogEntry, error) {
	if v.Type() != fastjson.TypeObject {
		return source.LogEntry{}, &source.SchemaError{Err: fmt.Errorf("expected object, got %s", v.Type())}
	}

	var entry source.LogEntry

	id, err := stringField(v, "id")
	if err != nil {
		return entry, err
	}
	if entry.ID, err = parseID(id); err != nil {
		return entry, &source.SchemaError{Field: "id", Err: err}
	}

	if entry.Content, err = stringField(v, "content"); err != nil {
		return entry, err
	}

	ts, err := stringField(v, "time")
	if err != nil {
		return entry, err
	}
	if entry.Time, err = parseTime(ts); err != nil {
		return entry, &source.SchemaError{Field: "time", Err: err}
	}

	level, err := stringField(v, "level")
	if err != nil {
		return entry, err
	}
	var ok bool
	if entry.Level, ok = source.ParseLevel(level); !ok {
		return entry, &source.SchemaError{Field: "level", Err: fmt.Errorf("expected INFO or ERROR, got %q", level)}
	}

	if entry.DeploymentID, err = stringField(v, "deployment_id"); err != nil {
		return entry, err
	}
	if entry.ServiceID, err = stringField(v, "service_id"); err != nil {
		return entry, err
	}
	if entry.Source, err = stringField(v, "source"); err != nil {
		return entry, err
	}

	return entry, nil
}

// parseID accepts only the canonical 8-4-4-4-12 form. uuid.Parse alone
// also takes urn:uuid:, braced and undashed ids.
func parseID(s string) (uuid.UUID, error) {
	if len(s) != 36 {
		return uuid.Nil, fmt.Errorf("not a canonical uuid: %q", s)
	}
	return uuid.Parse(s)
}

// parseTime accepts RFC 3339 timestamps in UTC with a Z suffix and any
// fractional precision. Numeric offsets are rejected.
func parseTime(s string) (time.Time, error) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, fmt.Errorf("not a UTC datetime ending in Z: %q", s)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not an ISO-8601 datetime: %q", s)
	}
	return t, nil
}

func stringField(v *fastjson.Value, key string) (string, error) {
	f := v.Get(key)
	if f == nil {
		return "", &source.SchemaError{Field: key, Err: errors.New("missing")}
	}
	b, err := f.StringBytes()
	if err != nil {
		return "", &source.SchemaError{Field: key, Err: fmt.Errorf("expected string, got %s", f.Type())}
	}
	return string(b), nil
}

// linkField reads a nullable absolute URL. The key must be present.
func linkField(v *fastjson.Value, key string) (*string, error) {
	f := v.Get(key)
	if f == nil {
		return nil, &source.SchemaError{Field: key, Err: errors.New("missing")}
	}
	if f.Type() == fastjson.TypeNull {
		return nil, nil
	}
	b, err := f.StringBytes()
	if err != nil {
		return nil, &source.SchemaError{Field: key, Err: fmt.Errorf("expected URL or null, got %s", f.Type())}
	}
	s := string(b)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &source.SchemaError{Field: key, Err: fmt.Errorf("not an absolute URL: %q", s)}
	}
	return &s, nil
}
