// Package storage defines persistence contracts for leaderboard data.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound indicates a requested player record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAnchorNotFound indicates a pagination anchor no longer resolves to a
	// live record (deleted or re-ranked since the anchor was learned).
	ErrAnchorNotFound = errors.New("anchor record not found")
)

// Mode selects which ranking column orders the leaderboard.
type Mode string

const (
	// ModeTotalScore ranks players by cumulative score.
	ModeTotalScore Mode = "total"
	// ModeBestScore ranks players by their single best game score.
	ModeBestScore Mode = "best"
)

// ParseMode validates a mode string, defaulting empty input to ModeTotalScore.
func ParseMode(value string) (Mode, error) {
	switch Mode(value) {
	case "":
		return ModeTotalScore, nil
	case ModeTotalScore, ModeBestScore:
		return Mode(value), nil
	}
	return "", fmt.Errorf("unknown ranking mode %q", value)
}

// Entry stores one leaderboard row.
//
// Canonical order for a mode is the mode's ranking field descending, then
// GamesPlayed descending, then DisplayName ascending. DisplayName is unique,
// so the composite key is a total order and page boundaries are unambiguous.
type Entry struct {
	ID          string
	DisplayName string
	TotalScore  int
	BestScore   int
	GamesPlayed int
	UpdatedAt   time.Time
}

// RankValue returns the entry's primary ranking field for the given mode.
func (e Entry) RankValue(mode Mode) int {
	if mode == ModeBestScore {
		return e.BestScore
	}
	return e.TotalScore
}

// Backend provides ordered, cursor-addressable access to leaderboard entries.
//
// The search term filters entries by display-name prefix, case-insensitive.
// All reads observe the same canonical order, so an entry ID returned by one
// call is a valid anchor for subsequent calls under the same (mode, search).
type Backend interface {
	// Count returns the number of entries matching the mode's filter.
	Count(ctx context.Context, mode Mode, search string) (int, error)
	// FetchAfter returns up to limit entries in canonical order, starting
	// strictly after the entry with afterID. An empty afterID starts from the
	// beginning. Returns ErrAnchorNotFound if afterID is unknown.
	FetchAfter(ctx context.Context, mode Mode, search, afterID string, limit int) ([]Entry, error)
	// FetchBefore returns the last limit entries in canonical order strictly
	// before the entry with beforeID. Returns ErrAnchorNotFound if beforeID is
	// unknown.
	FetchBefore(ctx context.Context, mode Mode, search, beforeID string, limit int) ([]Entry, error)
	// FetchLast returns the final n entries of the full ordered sequence.
	FetchLast(ctx context.Context, mode Mode, search string, n int) ([]Entry, error)
}
