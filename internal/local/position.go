package local

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmurray2011/skein/internal/source"
)

var errInvalidCursor = errors.New("invalid cursor")

// direction says which side of a position a cursor reads.
type direction byte

const (
	before direction = 'b' // entries older than the position
	after  direction = 'a' // entries newer than the position
)

// position is a point in the (time, id) order of a file.
type position struct {
	time time.Time
	id   uuid.UUID
}

func positionOf(e source.LogEntry) position {
	return position{time: e.Time, id: e.ID}
}

// less orders positions by time, then id.
func (p position) less(o position) bool {
	if !p.time.Equal(o.time) {
		return p.time.Before(o.time)
	}
	return bytes.Compare(p.id[:], o.id[:]) < 0
}

func (p position) equal(o position) bool {
	return p.time.Equal(o.time) && p.id == o.id
}

// encodeCursor returns the opaque cursor for reading dir of p.
func encodeCursor(dir direction, p position) source.Cursor {
	raw := fmt.Sprintf("%c|%d|%s", dir, p.time.UnixNano(), p.id)
	return source.Cursor(base64.RawURLEncoding.EncodeToString([]byte(raw)))
}

// decodeCursor is the inverse of encodeCursor.
func decodeCursor(c source.Cursor) (direction, position, error) {
	raw, err := base64.RawURLEncoding.DecodeString(string(c))
	if err != nil {
		return 0, position{}, errInvalidCursor
	}
	parts := strings.SplitN(string(raw), "|", 3)
	if len(parts) != 3 || len(parts[0]) != 1 {
		return 0, position{}, errInvalidCursor
	}

	dir := direction(parts[0][0])
	if dir != before && dir != after {
		return 0, position{}, errInvalidCursor
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, position{}, errInvalidCursor
	}
	id, err := uuid.Parse(parts[2])
	if err != nil {
		return 0, position{}, errInvalidCursor
	}
	return dir, position{time: time.Unix(0, nanos).UTC(), id: id}, nil
}
