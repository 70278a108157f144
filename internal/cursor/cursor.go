// Package cursor extracts pagination cursors from the absolute next/previous
// links returned by the logs API.
package cursor

import (
	"net/url"

	"github.com/jmurray2011/skein/internal/source"
)

// Param is the query parameter that carries the cursor in a page link.
const Param = "cursor"

// Decode returns the cursor carried by link. A nil link, a link that does not
// parse, and a link without a cursor parameter all mean "no further page".
// Only the query string is consulted.
func Decode(link *string) source.Cursor {
	if link == nil {
		return source.NoCursor
	}
	u, err := url.Parse(*link)
	if err != nil {
		return source.NoCursor
	}
	return source.Cursor(u.Query().Get(Param))
}

// Encode returns base with its cursor parameter set to c, or removed when c
// is NoCursor. Other query parameters are preserved.
func Encode(base string, c source.Cursor) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	if c == source.NoCursor {
		q.Del(Param)
	} else {
		q.Set(Param, string(c))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Link is Encode for callers that build links from known-good bases. It
// returns nil for NoCursor, mirroring a null link on the wire.
func Link(base string, c source.Cursor) *string {
	if c == source.NoCursor {
		return nil
	}
	s, err := Encode(base, c)
	if err != nil {
		return nil
	}
	return &s
}
