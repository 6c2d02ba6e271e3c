package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"textlens/features/analysis"
	"textlens/internal/middleware"
)

// analysisStatuses are the terminal and in-flight states reported per status.
var analysisStatuses = []string{
	analysis.StatusProcessing,
	analysis.StatusCompleted,
	analysis.StatusFailed,
}

type AnalysisRepo interface {
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
	CountRows(ctx context.Context) (int, error)
	CountRowErrors(ctx context.Context) (int, error)
}

type JobRepo interface {
	Count(ctx context.Context) (int, error)
}

type VectorStore interface {
	CountDocs(ctx context.Context) (int, error)
}

type Handler struct {
	analysisRepo AnalysisRepo
	jobRepo      JobRepo
	vectorStore  VectorStore
}

func NewHandler(a AnalysisRepo, j JobRepo, v VectorStore) *Handler {
	return &Handler{analysisRepo: a, jobRepo: j, vectorStore: v}
}

type StatsResponse struct {
	Analyses         int            `json:"analyses"`
	AnalysesByStatus map[string]int `json:"analyses_by_status"`
	Rows             int            `json:"rows"`
	RowErrors        int            `json:"row_errors"`
	IndexedDocs      int            `json:"indexed_docs"`
	FailedJobs       int            `json:"failed_jobs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	aCount, err := h.analysisRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count analyses", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count analyses", http.StatusInternalServerError)
		return
	}

	byStatus := make(map[string]int, len(analysisStatuses))
	for _, status := range analysisStatuses {
		count, err := h.analysisRepo.CountByStatus(ctx, status)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count analyses by status", "status", status, "error", err)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count analyses", http.StatusInternalServerError)
			return
		}
		byStatus[status] = count
	}

	rCount, err := h.analysisRepo.CountRows(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count rows", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count rows", http.StatusInternalServerError)
		return
	}

	eCount, err := h.analysisRepo.CountRowErrors(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count row errors", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count row errors", http.StatusInternalServerError)
		return
	}

	jCount, err := h.jobRepo.Count(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count jobs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
		return
	}

	dCount, err := h.vectorStore.CountDocs(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count indexed docs", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count indexed docs", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Analyses:         aCount,
		AnalysesByStatus: byStatus,
		Rows:             rCount,
		RowErrors:        eCount,
		IndexedDocs:      dCount,
		FailedJobs:       jCount,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
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
