// Package web serves the leaderboard JSON HTTP API.
package web

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/pagination"
	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/storage"
	"github.com/Monash-Mosaic/disinformer-leaderboard/internal/services/leaderboard/token"
)

// PageResolver serves leaderboard pages and accepts change notifications.
type PageResolver interface {
	Resolve(ctx context.Context, page int, mode storage.Mode, search string) (pagination.Page, error)
	OnBackendChanged(mode storage.Mode, search string)
	CacheStats(mode storage.Mode, search string) pagination.Stats
}

type handlers struct {
	resolver PageResolver
}

// NewHandler builds the HTTP handler for the leaderboard API.
func NewHandler(resolver PageResolver) http.Handler {
	h := handlers{resolver: resolver}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/leaderboard", h.handleLeaderboard)
	mux.HandleFunc("/api/leaderboard/refresh", h.handleRefresh)
	mux.HandleFunc("/api/leaderboard/cache", h.handleCacheStats)
	mux.HandleFunc("/healthz", h.handleHealth)
	return mux
}

type entryPayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	TotalScore  int    `json:"total_score"`
	BestScore   int    `json:"best_score"`
	GamesPlayed int    `json:"games_played"`
}

type pagePayload struct {
	Entries       []entryPayload `json:"entries"`
	CurrentPage   int            `json:"current_page"`
	TotalPages    int            `json:"total_pages"`
	HasNext       bool           `json:"has_next"`
	HasPrev       bool           `json:"has_prev"`
	NextPageToken string         `json:"next_page_token,omitempty"`
	PrevPageToken string         `json:"prev_page_token,omitempty"`
}

func (h handlers) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	mode, err := storage.ParseMode(query.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	search := query.Get("q")

	page, err := requestedPage(query.Get("page"), query.Get("page_token"), mode, search)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.resolver.Resolve(r.Context(), page, mode, search)
	if err != nil {
		log.Printf("resolve leaderboard page: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load page")
		return
	}

	writeJSON(w, http.StatusOK, toPagePayload(result, mode, search))
}

// requestedPage resolves the page number from either a numeric page parameter
// or an opaque page token. The token wins when both are present; an invalid
// or replayed-under-a-different-filter token is rejected.
func requestedPage(pageParam, tokenParam string, mode storage.Mode, search string) (int, error) {
	if tokenParam != "" {
		tok, err := token.Decode(tokenParam)
		if err != nil {
			return 0, err
		}
		if err := token.Validate(tok, string(mode), pagination.NormalizeSearch(search)); err != nil {
			return 0, err
		}
		return tok.Page, nil
	}
	if strings.TrimSpace(pageParam) == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(pageParam)
	if err != nil {
		return 0, err
	}
	return page, nil
}

func toPagePayload(page pagination.Page, mode storage.Mode, search string) pagePayload {
	payload := pagePayload{
		Entries:     make([]entryPayload, 0, len(page.Entries)),
		CurrentPage: page.CurrentPage,
		TotalPages:  page.TotalPages,
		HasNext:     page.HasNext,
		HasPrev:     page.HasPrev,
	}
	for _, entry := range page.Entries {
		payload.Entries = append(payload.Entries, entryPayload{
			ID:          entry.ID,
			DisplayName: entry.DisplayName,
			TotalScore:  entry.TotalScore,
			BestScore:   entry.BestScore,
			GamesPlayed: entry.GamesPlayed,
		})
	}

	normalized := pagination.NormalizeSearch(search)
	if page.HasNext {
		if encoded, err := token.Encode(token.New(page.CurrentPage+1, string(mode), normalized)); err == nil {
			payload.NextPageToken = encoded
		}
	}
	if page.HasPrev {
		if encoded, err := token.Encode(token.New(page.CurrentPage-1, string(mode), normalized)); err == nil {
			payload.PrevPageToken = encoded
		}
	}
	return payload
}

// handleRefresh accepts an external change notification and re-resolves the
// named page against the refreshed ranking.
func (h handlers) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	query := r.URL.Query()
	mode, err := storage.ParseMode(query.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	search := query.Get("q")

	h.resolver.OnBackendChanged(mode, search)

	page := 1
	if raw := strings.TrimSpace(query.Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	result, err := h.resolver.Resolve(r.Context(), page, mode, search)
	if err != nil {
		log.Printf("refresh leaderboard page: %v", err)
		writeError(w, http.StatusBadGateway, "failed to load page")
		return
	}
	writeJSON(w, http.StatusOK, toPagePayload(result, mode, search))
}

func (h handlers) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	query := r.URL.Query()
	mode, err := storage.ParseMode(query.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	stats := h.resolver.CacheStats(mode, query.Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{
		"exists":       stats.Exists,
		"anchor_count": stats.AnchorCount,
		"age_ms":       stats.Age.Milliseconds(),
		"expired":      stats.Expired,
	})
}

func (h handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("write json response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
