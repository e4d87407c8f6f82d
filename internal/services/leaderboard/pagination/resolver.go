package pagination

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultPageSize = 10
	defaultWindow   = 3
)

// Page is one resolved leaderboard page with its pagination metadata.
type Page struct {
	Entries     []storage.Entry
	CurrentPage int
	TotalPages  int
	HasNext     bool
	HasPrev     bool
}

// Options configures a Resolver. Zero values select the defaults: page size
// 10, prefetch window 3, no prefetch rate limit.
type Options struct {
	PageSize int
	Window   int
	// PrefetchLimit caps backend reads issued by the prefetch planner.
	// Nil means unlimited.
	PrefetchLimit *rate.Limiter
}

// Resolver serves leaderboard pages, learning boundary anchors as it goes so
// repeated and nearby navigation stays cheap.
//
// Resolve never mutates ranking state and is idempotent for a fixed backend
// state. Concurrent calls for the same context may duplicate work (there is
// no in-flight scan deduplication beyond the count lookup) but never corrupt
// the anchor cache.
type Resolver struct {
	backend       storage.Backend
	anchors       *AnchorStore
	pageSize      int
	window        int
	prefetchLimit *rate.Limiter
	counts        singleflight.Group
	tracer        trace.Tracer
}

// NewResolver creates a resolver over the given backend and anchor store.
func NewResolver(backend storage.Backend, anchors *AnchorStore, opts Options) *Resolver {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	window := opts.Window
	if window <= 0 {
		window = defaultWindow
	}
	return &Resolver{
		backend:       backend,
		anchors:       anchors,
		pageSize:      pageSize,
		window:        window,
		prefetchLimit: opts.PrefetchLimit,
		tracer:        otel.Tracer("disinformer-leaderboard/pagination"),
	}
}

// PageSize returns the configured page size.
func (r *Resolver) PageSize() int {
	return r.pageSize
}

// Resolve returns the requested leaderboard page.
//
// Out-of-range page numbers silently redirect to page 1; a request for page 1
// is treated as a fresh start and discards the context's cached anchors.
// Failures of the count lookup or the page fetch are fatal and surfaced to
// the caller; prefetch failures only degrade later requests.
func (r *Resolver) Resolve(ctx context.Context, page int, mode storage.Mode, search string) (Page, error) {
	key := NewContext(mode, search)

	ctx, span := r.tracer.Start(ctx, "pagination.resolve", trace.WithAttributes(
		attribute.String("leaderboard.mode", string(key.Mode)),
		attribute.String("leaderboard.search", key.Search),
		attribute.Int("leaderboard.requested_page", page),
	))
	defer span.End()

	totalCount, err := r.countEntries(ctx, key)
	if err != nil {
		span.SetStatus(codes.Error, "count failed")
		return Page{}, fmt.Errorf("count leaderboard entries: %w", err)
	}
	totalPages := (totalCount + r.pageSize - 1) / r.pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	// Out-of-range requests redirect to page 1, not to the nearest boundary.
	if page < 1 || page > totalPages {
		page = 1
	}
	if page == 1 {
		// Returning to the top is the caller's fresh-start cue.
		r.anchors.Invalidate(key)
	}

	lastAccessed, _ := r.anchors.LastAccessed(key)
	dir := DetectDirection(page, lastAccessed, totalPages)
	span.SetAttributes(
		attribute.Int("leaderboard.page", page),
		attribute.String("leaderboard.direction", dir.String()),
	)

	r.planPrefetch(ctx, key, dir, page, totalPages)
	r.ensureLastAnchor(ctx, key, totalPages)

	entries, cacheHit, err := r.fetchPage(ctx, key, page)
	if err != nil {
		span.SetStatus(codes.Error, "page fetch failed")
		return Page{}, fmt.Errorf("fetch leaderboard page %d: %w", page, err)
	}
	span.SetAttributes(attribute.Bool("leaderboard.anchor_hit", cacheHit))

	if len(entries) > r.pageSize {
		entries = entries[:r.pageSize]
	}
	if len(entries) > 0 {
		r.anchors.SetAnchor(key, page, entries[len(entries)-1].ID)
	}
	r.anchors.RecordAccess(key, page)

	return Page{
		Entries:     entries,
		CurrentPage: page,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}, nil
}

// countEntries fetches the context's total count, deduplicating concurrent
// lookups for the same context.
func (r *Resolver) countEntries(ctx context.Context, key Context) (int, error) {
	value, err, _ := r.counts.Do(key.flightKey(), func() (any, error) {
		return r.backend.Count(ctx, key.Mode, key.Search)
	})
	if err != nil {
		return 0, err
	}
	return value.(int), nil
}

// fetchPage issues the immediate fetch for page. On an anchor hit this is a
// single bounded read resuming just after the previous page's boundary; on a
// miss (or a stale anchor) it pays for a scan from the top and slices the
// page out client-side.
func (r *Resolver) fetchPage(ctx context.Context, key Context, page int) ([]storage.Entry, bool, error) {
	if page == 1 {
		entries, err := r.backend.FetchAfter(ctx, key.Mode, key.Search, "", r.pageSize+1)
		return entries, false, err
	}

	if anchor, ok := r.anchors.Anchor(key, page-1); ok {
		entries, err := r.backend.FetchAfter(ctx, key.Mode, key.Search, anchor, r.pageSize+1)
		if err == nil {
			return entries, true, nil
		}
		if !errors.Is(err, storage.ErrAnchorNotFound) {
			return nil, false, err
		}
		// The record behind the anchor is gone; fall through to a full scan.
		log.Printf("leaderboard stale anchor for %s %q page %d", key.Mode, key.Search, page-1)
	}

	entries, err := r.scanToPage(ctx, key, page)
	return entries, false, err
}

// scanToPage reads page*pageSize+1 entries from the top and slices out the
// requested page. The documented, expensive fallback.
func (r *Resolver) scanToPage(ctx context.Context, key Context, page int) ([]storage.Entry, error) {
	entries, err := r.backend.FetchAfter(ctx, key.Mode, key.Search, "", page*r.pageSize+1)
	if err != nil {
		return nil, err
	}
	offset := (page - 1) * r.pageSize
	if offset >= len(entries) {
		return nil, nil
	}
	return entries[offset:], nil
}

// OnBackendChanged handles an external change notification for one context
// by discarding its cached anchors. The next resolve rebuilds them against
// the new ranking.
func (r *Resolver) OnBackendChanged(mode storage.Mode, search string) {
	r.anchors.Invalidate(NewContext(mode, search))
}

// CacheStats exposes anchor-store observability data for one context.
func (r *Resolver) CacheStats(mode storage.Mode, search string) Stats {
	return r.anchors.ContextStats(NewContext(mode, search))
}
