package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"textlens/internal/middleware"
)

// IndexConsumer consumes analysis.index tasks: it embeds the analyzed row
// text and stores it in the vector index so the corpus becomes searchable.
type IndexConsumer struct {
	embedder Embedder
	store    VectorStore
}

func NewIndexConsumer(e Embedder, s VectorStore) *IndexConsumer {
	return &IndexConsumer{embedder: e, store: s}
}

func (h *IndexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var task IndexTask
	if err := json.Unmarshal(m.Body, &task); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid index task", "error", err)
		return nil
	}

	ctx := context.Background()
	if task.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, task.CorrelationID)
	}

	if task.AnalysisID == "" || task.Text == "" {
		slog.ErrorContext(ctx, "dropping index task with missing fields", "analysis_id", task.AnalysisID)
		return nil
	}

	contextual := fmt.Sprintf("Analysis: %s\nLanguage: %s\n---\n%s", task.AnalysisName, task.Language, task.Text)

	embedCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	vector, err := h.embedder.Embed(embedCtx, contextual)
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err, "analysis_id", task.AnalysisID, "position", task.Position)
		return err // Retry
	}

	doc := AnalyzedDoc{
		AnalysisID:   task.AnalysisID,
		AnalysisName: task.AnalysisName,
		Position:     task.Position,
		Text:         task.Text,
		Language:     task.Language,
		Summary:      task.Summary,
		Vector:       vector,
	}

	if err := h.store.StoreDoc(embedCtx, doc); err != nil {
		slog.ErrorContext(ctx, "store doc failed", "error", err, "analysis_id", task.AnalysisID, "position", task.Position)
		return err // Retry
	}

	slog.InfoContext(ctx, "row indexed", "analysis_id", task.AnalysisID, "position", task.Position)
	return nil
}
