package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jmurray2011/skein/internal/logging"
	"github.com/jmurray2011/skein/internal/source"
)

// ErrNoOlderPages is returned by LoadOlder when the oldest cached page is
// the start of the backend history.
var ErrNoOlderPages = errors.New("no older pages")

// Orchestrator resolves page positions against the cache and the backend.
// It is the only writer of the cache. Resolutions are serialized, so at most
// one fetch is in flight at any time.
type Orchestrator struct {
	src   source.Source
	cache *Cache
	log   logging.Logger

	mu      sync.Mutex
	fetches atomic.Int64
	busy    atomic.Bool
}

// NewOrchestrator creates an orchestrator writing into cache.
func NewOrchestrator(src source.Source, cache *Cache, logger logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Orchestrator{src: src, cache: cache, log: logger}
}

// Busy reports whether a resolution is in progress.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Fetches returns the number of backend requests issued so far.
func (o *Orchestrator) Fetches() int64 {
	return o.fetches.Load()
}

// ResolvePage returns the page at requested for fp.
//
// A cached page that has a newer neighbour (non-empty Previous) can no
// longer change and is returned without a fetch. Any other page is fetched
// again, from its anchor when one is recorded. The first page of a view is
// anchored on its first fetch so later refreshes keep the same start.
func (o *Orchestrator) ResolvePage(ctx context.Context, fp source.Fingerprint, requested source.Cursor) (*source.Page, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cached, ok := o.cache.Get(fp, requested)
	if ok && !cached.IsNewest() {
		return cached, nil
	}

	o.busy.Store(true)
	defer o.busy.Store(false)

	effective := requested
	var anchor source.Cursor
	if ok && cached.Anchor != source.NoCursor {
		anchor = cached.Anchor
		effective = anchor
	}

	page, err := o.fetch(ctx, fp, effective)
	if err != nil {
		return nil, err
	}
	page.Anchor = anchor

	if requested == source.NoCursor && page.Next != source.NoCursor && page.Anchor == source.NoCursor {
		page.Anchor, err = o.findAnchor(ctx, fp, page.Next)
		if err != nil {
			return nil, err
		}
	}

	if !o.cache.PutIf(fp, requested, page, live(ctx)) {
		return nil, cancelled(ctx)
	}
	return page, nil
}

// findAnchor fetches the page behind next and returns the cursor that leads
// back from it, which is where the first page starts. The entries of that
// page are discarded. An empty page or a missing cursor leaves the anchor
// unset; the next resolution tries again.
func (o *Orchestrator) findAnchor(ctx context.Context, fp source.Fingerprint, next source.Cursor) (source.Cursor, error) {
	older, err := o.fetch(ctx, fp, next)
	if err != nil {
		return source.NoCursor, err
	}
	if len(older.Entries) == 0 || older.Previous == source.NoCursor {
		o.log.WithField("fingerprint", fp.Key()).Debug("anchor fetch returned no boundary, will retry")
		return source.NoCursor, nil
	}
	o.log.WithFields(map[string]interface{}{
		"fingerprint": fp.Key(),
		"anchor":      string(older.Previous),
	}).Debug("anchored initial page")
	return older.Previous, nil
}

// LoadOlder fetches the page before the oldest cached page of fp and puts it
// in front of the others.
func (o *Orchestrator) LoadOlder(ctx context.Context, fp source.Fingerprint) (*source.Page, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, oldest, ok := o.cache.Oldest(fp)
	if !ok || oldest.Next == source.NoCursor {
		return nil, ErrNoOlderPages
	}
	if cached, ok := o.cache.Get(fp, oldest.Next); ok {
		return cached, nil
	}

	o.busy.Store(true)
	defer o.busy.Store(false)

	page, err := o.fetch(ctx, fp, oldest.Next)
	if err != nil {
		return nil, err
	}
	if !o.cache.PrependIf(fp, oldest.Next, page, live(ctx)) {
		return nil, cancelled(ctx)
	}
	return page, nil
}

func (o *Orchestrator) fetch(ctx context.Context, fp source.Fingerprint, c source.Cursor) (*source.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	log := o.log.WithFields(map[string]interface{}{
		"fingerprint": fp.Key(),
		"cursor":      string(c),
	})
	log.Debug("fetching page")
	o.fetches.Add(1)

	page, err := o.src.FetchPage(ctx, source.PageRequest{Fingerprint: fp, Cursor: c})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if source.IsSchema(err) {
			log.Warn("rejected page: %v", err)
		}
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	log.Debug("fetched %d entries", len(page.Entries))
	return page, nil
}

// live returns a cache guard that fails once ctx is done.
func live(ctx context.Context) func() bool {
	return func() bool { return ctx.Err() == nil }
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return context.Canceled
}
