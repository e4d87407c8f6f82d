package pagination

import (
	"sync"
	"time"
)

// defaultTTL bounds how long learned anchors stay trustworthy. Ranks drift as
// scores change, so a whole context is discarded once it ages out.
const defaultTTL = time.Hour

// AnchorStore caches page-boundary anchors per pagination context.
//
// The anchor stored under page p is the ID of the last entry on page p, so a
// fetch starting strictly after it yields page p+1. Page 1 needs no anchor;
// it always starts from the top of the sequence.
//
// Expiry is lazy: every read checks the entry's age and treats an expired
// entry as absent. Expired entries are dropped on first touch, never swept in
// the background.
type AnchorStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[Context]*contextEntry
}

type contextEntry struct {
	anchors      map[int]string
	prefetched   map[int]bool
	lastAccessed int // 0 means no access recorded yet
	createdAt    time.Time
}

// Stats reports observability data for one context entry.
type Stats struct {
	Exists      bool
	AnchorCount int
	Age         time.Duration
	Expired     bool
}

// NewAnchorStore creates a store with the given TTL and clock. A zero ttl
// selects the default of one hour; a nil clock selects time.Now.
func NewAnchorStore(ttl time.Duration, now func() time.Time) *AnchorStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &AnchorStore{
		ttl:     ttl,
		now:     now,
		entries: make(map[Context]*contextEntry),
	}
}

// live returns the entry for key if present and unexpired. Expired entries
// are deleted so a later write starts from a fresh timestamp.
// Callers must hold s.mu.
func (s *AnchorStore) live(key Context) *contextEntry {
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	if s.now().Sub(entry.createdAt) > s.ttl {
		delete(s.entries, key)
		return nil
	}
	return entry
}

// ensure returns the live entry for key, creating one if absent or expired.
// Callers must hold s.mu.
func (s *AnchorStore) ensure(key Context) *contextEntry {
	if entry := s.live(key); entry != nil {
		return entry
	}
	entry := &contextEntry{
		anchors:    make(map[int]string),
		prefetched: make(map[int]bool),
		createdAt:  s.now(),
	}
	s.entries[key] = entry
	return entry
}

// Anchor returns the stored anchor for page, if known.
func (s *AnchorStore) Anchor(key Context, page int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return "", false
	}
	anchor, ok := entry.anchors[page]
	return anchor, ok
}

// SetAnchor records the anchor for page, creating the context entry if needed.
func (s *AnchorStore) SetAnchor(key Context, page int, anchorID string) {
	if page < 1 || anchorID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(key).anchors[page] = anchorID
}

// IsPrefetchedAround reports whether a prefetch pass already ran for page.
func (s *AnchorStore) IsPrefetchedAround(key Context, page int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil {
		return false
	}
	return entry.prefetched[page]
}

// MarkPrefetchedAround records that a prefetch pass ran for page.
func (s *AnchorStore) MarkPrefetchedAround(key Context, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(key).prefetched[page] = true
}

// LastAccessed returns the most recent page served for this context.
func (s *AnchorStore) LastAccessed(key Context) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.live(key)
	if entry == nil || entry.lastAccessed == 0 {
		return 0, false
	}
	return entry.lastAccessed, true
}

// RecordAccess notes that page was served for this context.
func (s *AnchorStore) RecordAccess(key Context, page int) {
	if page < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(key).lastAccessed = page
}

// Invalidate unconditionally drops the context entry.
func (s *AnchorStore) Invalidate(key Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// ContextStats returns observability data for one context. It never mutates
// the store, so an expired entry is reported as expired rather than dropped.
func (s *AnchorStore) ContextStats(key Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return Stats{}
	}
	age := s.now().Sub(entry.createdAt)
	return Stats{
		Exists:      true,
		AnchorCount: len(entry.anchors),
		Age:         age,
		Expired:     age > s.ttl,
	}
}
