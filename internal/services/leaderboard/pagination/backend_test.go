package pagination

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage"
)

// fakeBackend serves a fixed canonical sequence from memory and counts
// external calls, standing in for the database collaborator.
type fakeBackend struct {
	mu      sync.Mutex
	entries []storage.Entry

	countCalls  int
	afterCalls  int
	beforeCalls int
	lastCalls   int

	countErr error
	fetchErr error
}

func makeEntries(n int) []storage.Entry {
	entries := make([]storage.Entry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, storage.Entry{
			ID:          fmt.Sprintf("player-%03d", i+1),
			DisplayName: fmt.Sprintf("player-%03d", i+1),
			TotalScore:  10_000 - i,
			BestScore:   5_000 - i,
			GamesPlayed: 50,
		})
	}
	return entries
}

func (f *fakeBackend) fetchOps() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.afterCalls + f.beforeCalls + f.lastCalls
}

func (f *fakeBackend) filtered(search string) []storage.Entry {
	if search == "" {
		return f.entries
	}
	var matched []storage.Entry
	for _, entry := range f.entries {
		if strings.HasPrefix(strings.ToLower(entry.DisplayName), strings.ToLower(search)) {
			matched = append(matched, entry)
		}
	}
	return matched
}

func indexOf(entries []storage.Entry, id string) int {
	for i, entry := range entries {
		if entry.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeBackend) Count(_ context.Context, _ storage.Mode, search string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	if f.countErr != nil {
		return 0, f.countErr
	}
	return len(f.filtered(search)), nil
}

func (f *fakeBackend) FetchAfter(_ context.Context, _ storage.Mode, search, afterID string, limit int) ([]storage.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.afterCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	matched := f.filtered(search)
	start := 0
	if afterID != "" {
		idx := indexOf(matched, afterID)
		if idx < 0 {
			return nil, storage.ErrAnchorNotFound
		}
		start = idx + 1
	}
	end := min(start+limit, len(matched))
	if start >= end {
		return nil, nil
	}
	return append([]storage.Entry(nil), matched[start:end]...), nil
}

func (f *fakeBackend) FetchBefore(_ context.Context, _ storage.Mode, search, beforeID string, limit int) ([]storage.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beforeCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	matched := f.filtered(search)
	idx := indexOf(matched, beforeID)
	if idx < 0 {
		return nil, storage.ErrAnchorNotFound
	}
	start := max(0, idx-limit)
	return append([]storage.Entry(nil), matched[start:idx]...), nil
}

func (f *fakeBackend) FetchLast(_ context.Context, _ storage.Mode, search string, n int) ([]storage.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCalls++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	matched := f.filtered(search)
	start := max(0, len(matched)-n)
	return append([]storage.Entry(nil), matched[start:]...), nil
}

var _ storage.Backend = (*fakeBackend)(nil)
