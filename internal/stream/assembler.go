package stream

import (
	"github.com/google/uuid"

	"github.com/jmurray2011/skein/internal/source"
)

// Assemble returns the entries of fp in display order: pages in cache order,
// each page reversed so the sequence ascends in time. Entries that appear in
// two pages are kept twice.
func Assemble(cache *Cache, fp source.Fingerprint) []source.LogEntry {
	pages := cache.Pages(fp)

	n := 0
	for _, p := range pages {
		n += len(p.Entries)
	}

	out := make([]source.LogEntry, 0, n)
	for _, p := range pages {
		for i := len(p.Entries) - 1; i >= 0; i-- {
			out = append(out, p.Entries[i])
		}
	}
	return out
}

// Overlaps returns the ids that occur in more than one page of fp, in order
// of first occurrence. A non-empty result means the backend returned
// overlapping pages.
func Overlaps(cache *Cache, fp source.Fingerprint) []uuid.UUID {
	pageOf := make(map[uuid.UUID]int)
	seen := make(map[uuid.UUID]bool)
	var dups []uuid.UUID

	for i, p := range cache.Pages(fp) {
		for _, e := range p.Entries {
			first, ok := pageOf[e.ID]
			if !ok {
				pageOf[e.ID] = i
				continue
			}
			if first != i && !seen[e.ID] {
				seen[e.ID] = true
				dups = append(dups, e.ID)
			}
		}
	}
	return dups
}
