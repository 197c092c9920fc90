package pricing

import (
	"context"
	"sync"

	"ipo-tracker/internal/models"
)

// Generation identifies one request for fresh data.
type Generation uint64

// Tracker discards results that belong to a superseded request. A caller
// starts a request with Begin, and the result is applied only if no newer
// Begin or Cancel happened in the meantime.
type Tracker struct {
	mu      sync.Mutex
	current Generation
}

// Begin starts a new generation, invalidating all earlier ones.
func (t *Tracker) Begin() Generation {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current++
	return t.current
}

// Cancel invalidates every outstanding generation.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current++
}

// Current reports whether gen is still the latest generation.
func (t *Tracker) Current(gen Generation) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.current
}

// Apply runs fn while holding the tracker, but only if gen is current.
// It reports whether fn ran.
func (t *Tracker) Apply(gen Generation, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.current {
		return false
	}
	fn()
	return true
}

// Resolver applies fallback price resolution to a shared view, dropping
// results that arrive after the view was replaced or cancelled.
type Resolver struct {
	Fetcher QuoteFetcher
	Tracker *Tracker

	mu   sync.RWMutex
	view models.CompanyView
}

// NewResolver creates a Resolver with its own tracker.
func NewResolver(fetcher QuoteFetcher) *Resolver {
	return &Resolver{Fetcher: fetcher, Tracker: &Tracker{}}
}

// Show replaces the current view and resolves its missing price. It reports
// whether the resolved view was applied; a concurrent Show or Cancel makes
// it stale. The fetch error, if any, is returned either way.
func (r *Resolver) Show(ctx context.Context, view models.CompanyView) (bool, error) {
	gen := r.Tracker.Begin()
	r.Tracker.Apply(gen, func() { r.set(view) })

	resolved, err := ResolveMissingPrice(ctx, view, r.Fetcher)
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	applied := r.Tracker.Apply(gen, func() { r.set(resolved) })
	return applied, err
}

// Cancel drops any outstanding resolution.
func (r *Resolver) Cancel() {
	r.Tracker.Cancel()
}

// View returns the current view.
func (r *Resolver) View() models.CompanyView {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view
}

func (r *Resolver) set(v models.CompanyView) {
	r.mu.Lock()
	r.view = v
	r.mu.Unlock()
}
