// Package stream turns a cursor-paginated logs backend into a stable,
// growing, auto-tailing buffer of log entries.
package stream

import (
	"sync"

	"github.com/jmurray2011/skein/internal/source"
)

// partition holds the pages of one fingerprint in display order plus an
// index from position to page.
type partition struct {
	order []source.Cursor
	pages map[source.Cursor]*source.Page
}

func newPartition() *partition {
	return &partition{pages: make(map[source.Cursor]*source.Page)}
}

// Cache stores fetched pages keyed by fingerprint and position. A partition
// only ever grows or is dropped whole.
type Cache struct {
	mu         sync.RWMutex
	partitions map[string]*partition
}

// NewCache creates an empty page cache.
func NewCache() *Cache {
	return &Cache{partitions: make(map[string]*partition)}
}

// Get returns the page stored at pos for fp.
func (c *Cache) Get(fp source.Fingerprint, pos source.Cursor) (*source.Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.partitions[fp.Key()]
	if !ok {
		return nil, false
	}
	page, ok := p.pages[pos]
	return page, ok
}

// Put stores page at pos for fp. An existing position keeps its slot; a new
// position is appended after the newest page.
func (c *Cache) Put(fp source.Fingerprint, pos source.Cursor, page *source.Page) {
	c.PutIf(fp, pos, page, nil)
}

// PutIf is Put guarded by valid, which is evaluated under the cache lock.
// It reports whether the page was stored.
func (c *Cache) PutIf(fp source.Fingerprint, pos source.Cursor, page *source.Page, valid func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if valid != nil && !valid() {
		return false
	}
	p := c.partition(fp)
	if _, exists := p.pages[pos]; !exists {
		p.order = append(p.order, pos)
	}
	p.pages[pos] = page
	return true
}

// PrependIf stores page at pos in front of the oldest page. Positions that
// are already cached are left where they are.
func (c *Cache) PrependIf(fp source.Fingerprint, pos source.Cursor, page *source.Page, valid func() bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if valid != nil && !valid() {
		return false
	}
	p := c.partition(fp)
	if _, exists := p.pages[pos]; !exists {
		p.order = append([]source.Cursor{pos}, p.order...)
	}
	p.pages[pos] = page
	return true
}

// partition returns the partition for fp, creating it. Callers hold c.mu.
func (c *Cache) partition(fp source.Fingerprint) *partition {
	key := fp.Key()
	p, ok := c.partitions[key]
	if !ok {
		p = newPartition()
		c.partitions[key] = p
	}
	return p
}

// Pages returns the pages of fp in display order.
func (c *Cache) Pages(fp source.Fingerprint) []*source.Page {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.partitions[fp.Key()]
	if !ok {
		return nil
	}
	pages := make([]*source.Page, 0, len(p.order))
	for _, pos := range p.order {
		pages = append(pages, p.pages[pos])
	}
	return pages
}

// Positions returns the cached positions of fp in display order.
func (c *Cache) Positions(fp source.Fingerprint) []source.Cursor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.partitions[fp.Key()]
	if !ok {
		return nil
	}
	return append([]source.Cursor(nil), p.order...)
}

// Newest returns the last page of fp and its position.
func (c *Cache) Newest(fp source.Fingerprint) (source.Cursor, *source.Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.partitions[fp.Key()]
	if !ok || len(p.order) == 0 {
		return source.NoCursor, nil, false
	}
	pos := p.order[len(p.order)-1]
	return pos, p.pages[pos], true
}

// Oldest returns the first page of fp and its position.
func (c *Cache) Oldest(fp source.Fingerprint) (source.Cursor, *source.Page, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.partitions[fp.Key()]
	if !ok || len(p.order) == 0 {
		return source.NoCursor, nil, false
	}
	pos := p.order[0]
	return pos, p.pages[pos], true
}

// Len returns the number of pages cached for fp.
func (c *Cache) Len(fp source.Fingerprint) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.partitions[fp.Key()]; ok {
		return len(p.order)
	}
	return 0
}

// DropFingerprint discards every page of fp.
func (c *Cache) DropFingerprint(fp source.Fingerprint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.partitions, fp.Key())
}
