package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"textlens/internal/middleware"
	"textlens/internal/retrieval"
)

// Searcher is the slice of the retrieval service the handler needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts *retrieval.SearchOptions) ([]retrieval.SearchResult, error)
}

type Handler struct {
	searcher Searcher
}

func NewHandler(s Searcher) *Handler {
	return &Handler{searcher: s}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(ctx, w, "VALIDATION_ERROR", "Query parameter 'q' is required", http.StatusBadRequest)
		return
	}

	opts := &retrieval.SearchOptions{}
	if a := r.URL.Query().Get("alpha"); a != "" {
		if parsed, err := strconv.ParseFloat(a, 32); err == nil {
			alpha := float32(parsed)
			opts.Alpha = &alpha
		}
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			opts.Limit = &parsed
		}
	}

	filters := map[string]interface{}{}
	if id := r.URL.Query().Get("analysis_id"); id != "" {
		filters["analysisId"] = id
	}
	if lang := r.URL.Query().Get("language"); lang != "" {
		filters["language"] = lang
	}
	if len(filters) > 0 {
		opts.Filters = filters
	}

	results, err := h.searcher.Search(ctx, query, opts)
	if err != nil {
		slog.ErrorContext(ctx, "search failed", "error", err, "query", query)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Search failed", http.StatusInternalServerError)
		return
	}

	if results == nil {
		results = []retrieval.SearchResult{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"data": results,
		"meta": map[string]int{"count": len(results)},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
