// Package pagination implements the leaderboard's cursor cache and adaptive
// prefetch engine.
//
// The backend only supports sequential cursor reads, so jumping to an
// arbitrary page normally costs a linear scan from the top. This package
// keeps a sparse per-context map from page numbers to boundary anchors (the
// ID of the last entry on a page), prefetches anchors around the pages a
// client is likely to visit next, and falls back to a bounded from-the-top
// scan when no anchor is available.
package pagination

import (
	"strings"

	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage"
	"golang.org/x/text/cases"
)

var searchFolder = cases.Fold()

// NormalizeSearch trims and case-folds a search term so equivalent queries
// share one cache context.
func NormalizeSearch(search string) string {
	return searchFolder.String(strings.TrimSpace(search))
}

// Context identifies one independent paginated sequence. Two modes or two
// search terms order entries differently, so they never share anchors.
type Context struct {
	Mode   storage.Mode
	Search string
}

// NewContext builds a context from a mode and a raw search term.
func NewContext(mode storage.Mode, search string) Context {
	return Context{Mode: mode, Search: NormalizeSearch(search)}
}

// flightKey returns a collision-free string key for request deduplication.
func (c Context) flightKey() string {
	return string(c.Mode) + "\x00" + c.Search
}
