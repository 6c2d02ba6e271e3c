package textapi

import (
	"context"
	"log/slog"
	"strconv"
)

// reconcile restores per-row alignment from a batch result. The output
// always has exactly n entries ordered by id 0..n-1, regardless of what the
// service returned: documents win over errors, and an id present in neither
// collection becomes a silent empty placeholder. Placeholders hide potential
// data loss on the service side, so each one is logged as a correlation gap.
func reconcile(ctx context.Context, result *batchResult, n int) []RowResult {
	byID := make(map[string]documentResult, len(result.Documents))
	for _, doc := range result.Documents {
		byID[doc.ID] = doc
	}
	errByID := make(map[string]documentError, len(result.Errors))
	for _, docErr := range result.Errors {
		errByID[docErr.ID] = docErr
	}

	rows := make([]RowResult, n)
	for i := 0; i < n; i++ {
		id := strconv.Itoa(i)
		rows[i] = RowResult{ID: i}

		if doc, ok := byID[id]; ok {
			rows[i].Result = doc.Result
			continue
		}
		if docErr, ok := errByID[id]; ok {
			rows[i].Error = docErr.Error.Message
			if rows[i].Error == "" {
				rows[i].Error = docErr.Error.Code
			}
			continue
		}
		rows[i].Gap = true
		slog.WarnContext(ctx, "correlation gap: no result or error for document", "id", id)
	}
	return rows
}
