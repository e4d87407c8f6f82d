// Package token provides opaque page-state token encoding/decoding for the
// leaderboard HTTP API.
package token

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Token represents the internal state of a page token.
type Token struct {
	// Page is the page number the token points at.
	Page int `json:"page"`
	// ModeHash ensures tokens are invalidated if the ranking mode changes.
	ModeHash string `json:"mode_hash,omitempty"`
	// SearchHash ensures tokens are invalidated if the search term changes.
	SearchHash string `json:"search_hash,omitempty"`
}

// New creates a token for the given page under a mode/search filter.
func New(page int, mode, search string) Token {
	return Token{
		Page:       page,
		ModeHash:   HashGuard(mode),
		SearchHash: HashGuard(search),
	}
}

// Encode encodes a token to an opaque base64 string.
func Encode(t Token) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("marshal token: %w", err)
	}
	return base64.URLEncoding.EncodeToString(data), nil
}

// Decode decodes an opaque base64 string to a token.
// Returns an error if the token is invalid or malformed.
func Decode(value string) (Token, error) {
	if value == "" {
		return Token{}, fmt.Errorf("empty token")
	}

	data, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return Token{}, fmt.Errorf("decode base64: %w", err)
	}

	var t Token
	if err := json.Unmarshal(data, &t); err != nil {
		return Token{}, fmt.Errorf("unmarshal token: %w", err)
	}

	if t.Page < 1 {
		return Token{}, fmt.Errorf("invalid token page: %d", t.Page)
	}

	return t, nil
}

// HashGuard computes a short hash of a filter value for token validation.
// Returns empty string for empty input.
func HashGuard(value string) string {
	if value == "" {
		return ""
	}
	return strconv.FormatUint(xxhash.Sum64String(value), 16)
}

// Validate checks that a token was issued under the same mode and search
// term it is being replayed against.
func Validate(t Token, mode, search string) error {
	if t.ModeHash != HashGuard(mode) {
		return fmt.Errorf("ranking mode changed since token was created")
	}
	if t.SearchHash != HashGuard(search) {
		return fmt.Errorf("search changed since token was created")
	}
	return nil
}
