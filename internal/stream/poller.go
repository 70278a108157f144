package stream

import (
	"context"
	"sync"
	"time"

	"github.com/jmurray2011/skein/internal/logging"
	"github.com/jmurray2011/skein/internal/source"
)

// DefaultInterval is how often an active poller refreshes the newest page.
const DefaultInterval = 5 * time.Second

// PollerState is the lifecycle state of a Poller.
type PollerState int

const (
	// Idle means no page has been resolved yet and no timer runs.
	Idle PollerState = iota
	// Active means data exists and the newest page is refreshed periodically.
	Active
)

func (s PollerState) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Poller keeps the newest page of one fingerprint fresh and follows newly
// discovered pages until the newest one is reached.
type Poller struct {
	orch     *Orchestrator
	cache    *Cache
	fp       source.Fingerprint
	interval time.Duration
	log      logging.Logger

	// OnChange is called after a tick changed the cached pages.
	OnChange func()
	// OnError is called when a tick inside Run fails.
	OnError func(error)

	mu    sync.Mutex
	state PollerState
}

// NewPoller creates an idle poller for fp.
func NewPoller(orch *Orchestrator, cache *Cache, fp source.Fingerprint, interval time.Duration, logger logging.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Poller{
		orch:     orch,
		cache:    cache,
		fp:       fp,
		interval: interval,
		log:      logger.WithField("fingerprint", fp.Key()),
	}
}

// State returns the current state.
func (p *Poller) State() PollerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Tick runs one poll cycle: it resolves the newest known page (the initial
// page when nothing is cached) and then every newer page that appears, until
// it reaches a page with no newer neighbour. It reports whether the cached
// pages changed.
func (p *Poller) Tick(ctx context.Context) (bool, error) {
	pos, before, ok := p.cache.Newest(p.fp)
	if !ok {
		pos = source.NoCursor
	}

	page, err := p.orch.ResolvePage(ctx, p.fp, pos)
	if err != nil {
		return false, err
	}
	p.activate()
	changed := !samePage(before, page)

	for !page.IsNewest() {
		if _, seen := p.cache.Get(p.fp, page.Previous); seen {
			// A cycle in the backend cursors; stop rather than spin.
			p.log.Warn("cursor %q already cached, stopping drain", page.Previous)
			break
		}
		page, err = p.orch.ResolvePage(ctx, p.fp, page.Previous)
		if err != nil {
			return changed, err
		}
		changed = true
	}
	return changed, nil
}

// Run performs the initial resolution and then polls on a timer until ctx is
// done. A value on wake triggers an immediate tick. Before the first
// successful resolution the poller stays idle and only ticks on wake.
func (p *Poller) Run(ctx context.Context, wake <-chan struct{}) {
	p.tick(ctx)

	var ticker *time.Ticker
	var tickC <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		if ticker == nil && p.State() == Active {
			ticker = time.NewTicker(p.interval)
			tickC = ticker.C
		}

		select {
		case <-ctx.Done():
			return
		case <-tickC:
			p.tick(ctx)
		case _, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	changed, err := p.Tick(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Debug("poll failed: %v", err)
		if p.OnError != nil {
			p.OnError(err)
		}
	}
	if changed && p.OnChange != nil {
		p.OnChange()
	}
}

func (p *Poller) activate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Idle {
		p.state = Active
		p.log.Debug("poller active")
	}
}

// samePage reports whether two pages carry the same cursors and entry ids.
func samePage(a, b *source.Page) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if a.Next != b.Next || a.Previous != b.Previous || len(a.Entries) != len(b.Entries) {
		return false
	}
	for i := range a.Entries {
		if a.Entries[i].ID != b.Entries[i].ID {
			return false
		}
	}
	return true
}
