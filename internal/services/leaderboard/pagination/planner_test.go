package pagination

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage"
	"golang.org/x/time/rate"
)

func newTestResolver(backend storage.Backend, opts Options) (*Resolver, *AnchorStore) {
	anchors := NewAnchorStore(time.Hour, nil)
	return NewResolver(backend, anchors, opts), anchors
}

func TestPrefetchRange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name        string
		dir         Direction
		currentPage int
		totalPages  int
		window      int
		wantStart   int
		wantEnd     int
	}{
		{name: "forward centers the window", dir: DirectionForward, currentPage: 5, totalPages: 10, window: 3, wantStart: 2, wantEnd: 8},
		{name: "forward clamps at the edges", dir: DirectionForward, currentPage: 2, totalPages: 4, window: 3, wantStart: 1, wantEnd: 4},
		{name: "backward never passes the target", dir: DirectionBackward, currentPage: 8, totalPages: 10, window: 3, wantStart: 5, wantEnd: 8},
		{name: "backward clamps at page one", dir: DirectionBackward, currentPage: 2, totalPages: 10, window: 3, wantStart: 1, wantEnd: 2},
		{name: "jump to end behaves like backward", dir: DirectionJumpToEnd, currentPage: 10, totalPages: 10, window: 3, wantStart: 7, wantEnd: 10},
		{name: "jump to start fills the leading window", dir: DirectionJumpToStart, currentPage: 1, totalPages: 10, window: 3, wantStart: 1, wantEnd: 4},
		{name: "jump to start clamps to total", dir: DirectionJumpToStart, currentPage: 1, totalPages: 2, window: 3, wantStart: 1, wantEnd: 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			start, end := prefetchRange(tc.dir, tc.currentPage, tc.totalPages, tc.window)
			if start != tc.wantStart || end != tc.wantEnd {
				t.Fatalf("range = [%d, %d], want [%d, %d]", start, end, tc.wantStart, tc.wantEnd)
			}
		})
	}
}

func TestPlanPrefetchForwardFromColdContext(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{entries: makeEntries(25)}
	resolver, anchors := newTestResolver(backend, Options{PageSize: 10, Window: 3})
	key := NewContext(storage.ModeTotalScore, "")

	resolver.planPrefetch(context.Background(), key, DirectionJumpToEnd, 3, 3)

	// Cold context: the trailing anchor is unknown, so the planner fails over
	// to one forward scan from the top.
	if backend.afterCalls != 1 || backend.beforeCalls != 0 {
		t.Fatalf("calls = %d after, %d before, want 1 forward scan", backend.afterCalls, backend.beforeCalls)
	}
	if anchor, _ := anchors.Anchor(key, 1); anchor != "player-010" {
		t.Fatalf("anchor[1] = %q, want player-010", anchor)
	}
	if anchor, _ := anchors.Anchor(key, 2); anchor != "player-020" {
		t.Fatalf("anchor[2] = %q, want player-020", anchor)
	}
	// Page 3 holds only 5 records; its boundary is past the sequence end.
	if _, ok := anchors.Anchor(key, 3); ok {
		t.Fatal("anchor[3] must stay unset for a short final page")
	}
	if !anchors.IsPrefetchedAround(key, 3) {
		t.Fatal("pass must be marked as attempted")
	}
}

func TestPlanPrefetchSkipsWhenAlreadyAttempted(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{entries: makeEntries(25)}
	resolver, anchors := newTestResolver(backend, Options{PageSize: 10, Window: 3})
	key := NewContext(storage.ModeTotalScore, "")

	anchors.MarkPrefetchedAround(key, 2)
	resolver.planPrefetch(context.Background(), key, DirectionForward, 2, 3)

	if got := backend.fetchOps(); got != 0 {
		t.Fatalf("fetch ops = %d, want 0 for an already-attempted page", got)
	}
}

func TestPlanPrefetchResumesFromKnownAnchor(t *testing.T) {
	t.Parallel()

	entries := makeEntries(100)
	backend := &fakeBackend{entries: entries}
	resolver, anchors := newTestResolver(backend, Options{PageSize: 10, Window: 3})
	key := NewContext(storage.ModeTotalScore, "")

	for page := 1; page <= 4; page++ {
		anchors.SetAnchor(key, page, entries[page*10-1].ID)
	}

	resolver.planPrefetch(context.Background(), key, DirectionForward, 2, 10)

	// Only page 5 is missing in [1, 5]; the scan resumes after anchor[4].
	if backend.afterCalls != 1 {
		t.Fatalf("after calls = %d, want 1", backend.afterCalls)
	}
	if anchor, _ := anchors.Anchor(key, 5); anchor != entries[49].ID {
		t.Fatalf("anchor[5] = %q, want %q", anchor, entries[49].ID)
	}
}

func TestPlanPrefetchBackwardFromTrailingAnchor(t *testing.T) {
	t.Parallel()

	entries := makeEntries(100)
	backend := &fakeBackend{entries: entries}
	resolver, anchors := newTestResolver(backend, Options{PageSize: 10, Window: 3})
	key := NewContext(storage.ModeTotalScore, "")

	anchors.SetAnchor(key, 8, entries[79].ID)

	resolver.planPrefetch(context.Background(), key, DirectionBackward, 8, 10)

	if backend.beforeCalls != 1 || backend.afterCalls != 0 {
		t.Fatalf("calls = %d before, %d after, want one backward scan", backend.beforeCalls, backend.afterCalls)
	}
	for page := 4; page <= 7; page++ {
		anchor, ok := anchors.Anchor(key, page)
		if !ok || anchor != entries[page*10-1].ID {
			t.Fatalf("anchor[%d] = %q, %v, want %q", page, anchor, ok, entries[page*10-1].ID)
		}
	}
}

func TestPlanPrefetchBackwardFailsOverOnStaleAnchor(t *testing.T) {
	t.Parallel()

	entries := makeEntries(100)
	backend := &fakeBackend{entries: entries}
	resolver, anchors := newTestResolver(backend, Options{PageSize: 10, Window: 3})
	key := NewContext(storage.ModeTotalScore, "")

	anchors.SetAnchor(key, 8, "ghost")

	resolver.planPrefetch(context.Background(), key, DirectionBackward, 8, 10)

	if backend.beforeCalls != 1 {
		t.Fatalf("before calls = %d, want 1 stale attempt", backend.beforeCalls)
	}
	if backend.afterCalls == 0 {
		t.Fatal("expected forward failover after stale backward anchor")
	}
	if anchor, _ := anchors.Anchor(key, 5); anchor != entries[49].ID {
		t.Fatalf("anchor[5] = %q, want %q", anchor, entries[49].ID)
	}
}

func TestPlanPrefetchSwallowsBackendFailure(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{entries: makeEntries(50), fetchErr: errors.New("backend down")}
	resolver, anchors := newTestResolver(backend, Options{PageSize: 10, Window: 3})
	key := NewContext(storage.ModeTotalScore, "")

	// Must not panic or propagate; the pass is still marked as attempted.
	resolver.planPrefetch(context.Background(), key, DirectionForward, 2, 5)

	if !anchors.IsPrefetchedAround(key, 2) {
		t.Fatal("failed pass must still be marked as attempted")
	}
	if _, ok := anchors.Anchor(key, 1); ok {
		t.Fatal("no anchors should be learned from a failed scan")
	}
}

func TestPlanPrefetchThrottledPassStaysRetryable(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{entries: makeEntries(50)}
	limiter := rate.NewLimiter(0, 0) // deny everything
	resolver, anchors := newTestResolver(backend, Options{PageSize: 10, Window: 3, PrefetchLimit: limiter})
	key := NewContext(storage.ModeTotalScore, "")

	resolver.planPrefetch(context.Background(), key, DirectionForward, 2, 5)

	if got := backend.fetchOps(); got != 0 {
		t.Fatalf("fetch ops = %d, want 0 when throttled", got)
	}
	if anchors.IsPrefetchedAround(key, 2) {
		t.Fatal("throttled pass must stay retryable")
	}
}

func TestEnsureLastAnchor(t *testing.T) {
	t.Parallel()

	entries := makeEntries(95)
	backend := &fakeBackend{entries: entries}
	resolver, anchors := newTestResolver(backend, Options{PageSize: 10, Window: 3})
	key := NewContext(storage.ModeTotalScore, "")

	resolver.ensureLastAnchor(context.Background(), key, 10)
	if backend.lastCalls != 1 {
		t.Fatalf("last calls = %d, want 1", backend.lastCalls)
	}
	anchor, ok := anchors.Anchor(key, 10)
	if !ok || anchor != entries[94].ID {
		t.Fatalf("last-page anchor = %q, %v, want %q", anchor, ok, entries[94].ID)
	}

	// A second pass is a no-op once the anchor is known.
	resolver.ensureLastAnchor(context.Background(), key, 10)
	if backend.lastCalls != 1 {
		t.Fatalf("last calls after repeat = %d, want 1", backend.lastCalls)
	}
}

func TestEnsureLastAnchorSkipsSinglePage(t *testing.T) {
	t.Parallel()

	backend := &fakeBackend{entries: makeEntries(5)}
	resolver, _ := newTestResolver(backend, Options{PageSize: 10, Window: 3})

	resolver.ensureLastAnchor(context.Background(), NewContext(storage.ModeTotalScore, ""), 1)
	if backend.lastCalls != 0 {
		t.Fatalf("last calls = %d, want 0 for a single page", backend.lastCalls)
	}
}
