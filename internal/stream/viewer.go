package stream

import (
	"context"
	"sync"
	"time"

	"github.com/jmurray2011/skein/internal/logging"
	"github.com/jmurray2011/skein/internal/source"
)

// Update tells subscribers that the display sequence may have changed.
type Update struct {
	// Err is set when the update was caused by a failed fetch.
	Err error
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithLogger sets the logger used by the viewer and its pollers.
func WithLogger(l logging.Logger) Option {
	return func(v *Viewer) { v.log = l }
}

// WithInterval sets the refresh interval of the newest page.
func WithInterval(d time.Duration) Option {
	return func(v *Viewer) { v.interval = d }
}

// WithCache makes the viewer use an existing page cache.
func WithCache(c *Cache) Option {
	return func(v *Viewer) { v.cache = c }
}

// WithFingerprint sets the initial view.
func WithFingerprint(fp source.Fingerprint) Option {
	return func(v *Viewer) { v.fp = fp }
}

// Viewer is the facade a display layer talks to. It owns the page cache of
// one source, the poller of the current view and the subscriber list.
type Viewer struct {
	src      source.Source
	cache    *Cache
	orch     *Orchestrator
	interval time.Duration
	log      logging.Logger
	wake     chan struct{}

	mu      sync.Mutex
	fp      source.Fingerprint
	scope   context.Context
	cancel  context.CancelFunc
	lastErr error
	closed  bool

	subMu  sync.Mutex
	subs   map[int]chan Update
	nextID int
}

// NewViewer creates a viewer over src. Nothing is fetched until Run or Sync
// is called.
func NewViewer(src source.Source, opts ...Option) *Viewer {
	v := &Viewer{
		src:      src,
		interval: DefaultInterval,
		log:      logging.NopLogger{},
		wake:     make(chan struct{}, 1),
		subs:     make(map[int]chan Update),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.cache == nil {
		v.cache = NewCache()
	}
	v.orch = NewOrchestrator(src, v.cache, v.log)
	v.scope, v.cancel = context.WithCancel(context.Background())
	return v
}

// Fingerprint returns the current view.
func (v *Viewer) Fingerprint() source.Fingerprint {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.fp
}

// SetFilter switches to another view. Work still running for the previous
// view is cancelled and its pages are discarded, so a late response can
// never show up under the new filter.
func (v *Viewer) SetFilter(fp source.Fingerprint) {
	v.mu.Lock()
	if v.closed || fp.Key() == v.fp.Key() {
		v.mu.Unlock()
		return
	}
	old := v.fp
	v.cancel()
	v.scope, v.cancel = context.WithCancel(context.Background())
	v.fp = fp
	v.lastErr = nil
	v.mu.Unlock()

	v.cache.DropFingerprint(old)
	v.log.WithField("fingerprint", fp.Key()).Debug("filter changed")
	v.publish(Update{})
}

// DisplaySequence returns the entries of the current view in ascending time
// order.
func (v *Viewer) DisplaySequence() []source.LogEntry {
	return Assemble(v.cache, v.Fingerprint())
}

// IsLoadingMore reports whether a fetch is in flight.
func (v *Viewer) IsLoadingMore() bool {
	return v.orch.Busy()
}

// HasMoreBackward reports whether entries older than the oldest cached page
// exist.
func (v *Viewer) HasMoreBackward() bool {
	_, page, ok := v.cache.Oldest(v.Fingerprint())
	return ok && page.Next != source.NoCursor
}

// LastError returns the error of the most recent failed fetch, or nil once a
// later fetch succeeded.
func (v *Viewer) LastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// Sync runs one poll cycle for the current view and waits for it.
func (v *Viewer) Sync(ctx context.Context) error {
	fp, ctx, done := v.scoped(ctx)
	defer done()

	p := NewPoller(v.orch, v.cache, fp, v.interval, v.log)
	changed, err := p.Tick(ctx)
	if changed || err != nil {
		v.changed(fp, err)
	}
	return err
}

// LoadOlder fetches the page before the oldest cached page of the current
// view. It returns ErrNoOlderPages at the start of the history.
func (v *Viewer) LoadOlder(ctx context.Context) error {
	fp, ctx, done := v.scoped(ctx)
	defer done()

	_, err := v.orch.LoadOlder(ctx, fp)
	if err == ErrNoOlderPages {
		return err
	}
	v.changed(fp, err)
	return err
}

// Refresh asks a running viewer to poll now.
func (v *Viewer) Refresh() {
	select {
	case v.wake <- struct{}{}:
	default:
	}
}

// Run polls the current view until ctx is done or the viewer is closed,
// restarting whenever the filter changes. Sources that can report changes
// trigger a poll as soon as they do.
func (v *Viewer) Run(ctx context.Context) error {
	v.watch(ctx)

	for {
		fp, fpCtx, done := v.scoped(ctx)
		p := NewPoller(v.orch, v.cache, fp, v.interval, v.log)
		p.OnChange = func() { v.changed(fp, nil) }
		p.OnError = func(err error) { v.changed(fp, err) }
		p.Run(fpCtx, v.wake)
		done()

		if ctx.Err() != nil || v.isClosed() {
			return nil
		}
	}
}

// Subscribe returns a channel that receives an Update whenever the display
// sequence may have changed, and a function that ends the subscription.
// Updates are coalesced; a slow reader only misses duplicates.
func (v *Viewer) Subscribe() (<-chan Update, func()) {
	v.subMu.Lock()
	defer v.subMu.Unlock()

	id := v.nextID
	v.nextID++
	ch := make(chan Update, 1)
	v.subs[id] = ch

	return ch, func() {
		v.subMu.Lock()
		defer v.subMu.Unlock()
		if c, ok := v.subs[id]; ok {
			delete(v.subs, id)
			close(c)
		}
	}
}

// Close stops all work, ends every subscription and closes the source.
func (v *Viewer) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.cancel()
	v.mu.Unlock()

	v.subMu.Lock()
	for id, ch := range v.subs {
		delete(v.subs, id)
		close(ch)
	}
	v.subMu.Unlock()

	return v.src.Close()
}

// scoped returns the current view and a context that ends with ctx or with
// the next filter change, whichever comes first. The context is a child of
// the filter scope, so SetFilter has cancelled it by the time it returns and
// no cache write of the old view can pass its guard afterwards.
func (v *Viewer) scoped(ctx context.Context) (source.Fingerprint, context.Context, context.CancelFunc) {
	v.mu.Lock()
	fp, scope := v.fp, v.scope
	v.mu.Unlock()

	c, cancel := context.WithCancel(scope)
	stop := context.AfterFunc(ctx, cancel)
	return fp, c, func() {
		stop()
		cancel()
	}
}

func (v *Viewer) watch(ctx context.Context) {
	w, ok := v.src.(source.Watcher)
	if !ok {
		return
	}
	changes, err := w.Changes(ctx)
	if err != nil {
		v.log.Warn("watching source: %v", err)
		return
	}
	go func() {
		for range changes {
			v.Refresh()
		}
	}()
}

func (v *Viewer) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

func (v *Viewer) record(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastErr = err
}

// changed publishes an update for fp unless the view moved on meanwhile.
func (v *Viewer) changed(fp source.Fingerprint, err error) {
	if v.Fingerprint().Key() != fp.Key() || source.IsCancellation(err) {
		return
	}
	if err != nil {
		v.record(err)
	} else {
		v.record(nil)
		if dups := Overlaps(v.cache, fp); len(dups) > 0 {
			v.log.WithField("fingerprint", fp.Key()).Debug("%d entries appear in more than one page", len(dups))
		}
	}
	v.publish(Update{Err: err})
}

func (v *Viewer) publish(u Update) {
	v.subMu.Lock()
	defer v.subMu.Unlock()
	for _, ch := range v.subs {
		select {
		case ch <- u:
		default:
		}
	}
}
