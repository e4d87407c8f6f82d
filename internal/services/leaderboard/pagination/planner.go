package pagination

import (
	"context"
	"errors"
	"log"

	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage"
)

// planPrefetch opportunistically fills anchor gaps in the window around
// currentPage. It is best-effort: every failure is logged and swallowed, so a
// prefetch miss degrades to a slower resolve rather than a hard error.
//
// The pass is marked as attempted even when it partially fails. That bounds
// retry storms at the cost of leaving a gap unfilled until the context
// expires; a page whose anchor is still missing falls back to the resolver's
// own on-demand scan.
func (r *Resolver) planPrefetch(ctx context.Context, key Context, dir Direction, currentPage, totalPages int) {
	if r.anchors.IsPrefetchedAround(key, currentPage) {
		return
	}

	start, end := prefetchRange(dir, currentPage, totalPages, r.window)

	missing := r.missingAnchors(key, start, end)
	if len(missing) == 0 {
		r.anchors.MarkPrefetchedAround(key, currentPage)
		return
	}

	if !r.allowPrefetch() {
		// Throttled passes stay unmarked so a later request can retry.
		log.Printf("leaderboard prefetch throttled for %s %q", key.Mode, key.Search)
		return
	}

	// Narrow to the missing span; anchors already known outside it need no
	// refetch.
	lo, hi := missing[0], missing[len(missing)-1]

	var err error
	backwardCapable := dir == DirectionBackward || dir == DirectionJumpToEnd
	if backwardCapable {
		if endAnchor, ok := r.anchors.Anchor(key, end); ok && hi < end {
			err = r.fillBackward(ctx, key, lo, end, endAnchor)
			if errors.Is(err, storage.ErrAnchorNotFound) {
				// The trailing anchor went stale; fall back to a forward scan.
				err = r.fillForward(ctx, key, lo, hi)
			}
		} else {
			err = r.fillForward(ctx, key, lo, hi)
		}
	} else {
		err = r.fillForward(ctx, key, lo, hi)
	}
	if err != nil {
		log.Printf("leaderboard prefetch for %s %q pages %d-%d: %v", key.Mode, key.Search, lo, hi, err)
	}

	r.anchors.MarkPrefetchedAround(key, currentPage)
}

// prefetchRange computes the page window to fill for a direction. Backward
// movement never prefetches past the target page; a jump to the start fills
// the leading window.
func prefetchRange(dir Direction, currentPage, totalPages, window int) (start, end int) {
	switch dir {
	case DirectionBackward, DirectionJumpToEnd:
		end = currentPage
		start = max(1, currentPage-window)
	case DirectionJumpToStart:
		start = 1
		end = min(totalPages, 1+window)
	default:
		start = max(1, currentPage-window)
		end = min(totalPages, currentPage+window)
	}
	return start, end
}

// missingAnchors returns the pages in [start, end] without a stored anchor,
// in ascending order.
func (r *Resolver) missingAnchors(key Context, start, end int) []int {
	var missing []int
	for page := start; page <= end; page++ {
		if _, ok := r.anchors.Anchor(key, page); !ok {
			missing = append(missing, page)
		}
	}
	return missing
}

// fillForward scans forward and records every page boundary it crosses.
// When the anchor just before page lo is known the scan starts there;
// otherwise it pays for a scan from the top of the sequence.
func (r *Resolver) fillForward(ctx context.Context, key Context, lo, hi int) error {
	base := 0
	after := ""
	if lo > 1 {
		if anchor, ok := r.anchors.Anchor(key, lo-1); ok {
			base = lo - 1
			after = anchor
		}
	}

	limit := (hi - base) * r.pageSize
	if limit <= 0 {
		return nil
	}
	entries, err := r.backend.FetchAfter(ctx, key.Mode, key.Search, after, limit)
	if err != nil {
		if after != "" && errors.Is(err, storage.ErrAnchorNotFound) {
			// Stale resume point: retry once from the top.
			return r.fillForward(ctx, key, 1, hi)
		}
		return err
	}

	// Entry i sits at zero-based sequence position base*pageSize + i; the
	// boundary of page p is position p*pageSize - 1.
	for page := base + 1; page <= hi; page++ {
		idx := (page-base)*r.pageSize - 1
		if idx >= len(entries) {
			break
		}
		r.anchors.SetAnchor(key, page, entries[idx].ID)
	}
	return nil
}

// fillBackward scans backward from the known anchor of page end, covering the
// boundaries of pages lo-1 through end-1 in one bounded fetch.
func (r *Resolver) fillBackward(ctx context.Context, key Context, lo, end int, endAnchor string) error {
	limit := (end - lo + 1) * r.pageSize
	if limit <= 0 {
		return nil
	}
	entries, err := r.backend.FetchBefore(ctx, key.Mode, key.Search, endAnchor, limit)
	if err != nil {
		return err
	}

	// The anchor of page end sits at zero-based position end*pageSize - 1, so
	// entry i sits at position end*pageSize - 1 - len(entries) + i.
	offset := end*r.pageSize - 1 - len(entries)
	for page := max(1, lo-1); page < end; page++ {
		idx := page*r.pageSize - 1 - offset
		if idx < 0 || idx >= len(entries) {
			continue
		}
		r.anchors.SetAnchor(key, page, entries[idx].ID)
	}
	return nil
}

// ensureLastAnchor learns the final page's boundary from a single-record
// fetch, making a later jump to the end a cheap backward fill instead of a
// full forward scan. Purely an optimization; failures are logged and ignored.
func (r *Resolver) ensureLastAnchor(ctx context.Context, key Context, totalPages int) {
	if totalPages < 2 {
		return
	}
	if _, ok := r.anchors.Anchor(key, totalPages); ok {
		return
	}
	if !r.allowPrefetch() {
		return
	}
	entries, err := r.backend.FetchLast(ctx, key.Mode, key.Search, 1)
	if err != nil {
		log.Printf("leaderboard last-page anchor for %s %q: %v", key.Mode, key.Search, err)
		return
	}
	if len(entries) == 0 {
		return
	}
	r.anchors.SetAnchor(key, totalPages, entries[len(entries)-1].ID)
}

// allowPrefetch consults the optional rate limiter gating prefetch reads.
func (r *Resolver) allowPrefetch() bool {
	return r.prefetchLimit == nil || r.prefetchLimit.Allow()
}
