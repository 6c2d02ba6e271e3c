package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nsqio/go-nsq"

	"textlens/features/analysis"
	"textlens/internal/adapter/textapi"
	"textlens/internal/config"
	"textlens/internal/middleware"
)

const batchHandlerName = "analysis-worker"

// gapRowError marks rows the analytics service never returned an entry for.
const gapRowError = "no result returned for this row"

// AnalysisConsumer consumes analysis.batch tasks and drives each row-batch
// through the analytics client to a terminal, row-scoped result.
type AnalysisConsumer struct {
	client    AnalyticsClient
	store     AnalysisStore
	jobs      FailedJobSaver
	publisher TaskPublisher
}

func NewAnalysisConsumer(c AnalyticsClient, s AnalysisStore, j FailedJobSaver, p TaskPublisher) *AnalysisConsumer {
	return &AnalysisConsumer{client: c, store: s, jobs: j, publisher: p}
}

func (h *AnalysisConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var task BatchTask
	if err := json.Unmarshal(m.Body, &task); err != nil {
		// Poison pill: invalid JSON, don't retry
		slog.Error("poison pill: invalid batch task", "error", err)
		return nil
	}

	ctx := context.Background()
	if task.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, task.CorrelationID)
	}

	if task.AnalysisID == "" || len(task.Rows) == 0 {
		slog.ErrorContext(ctx, "dropping batch task with missing fields", "analysis_id", task.AnalysisID, "rows", len(task.Rows))
		return nil
	}

	rows := make([]textapi.Row, len(task.Rows))
	for i, r := range task.Rows {
		rows[i] = textapi.Row{Text: r.Text, Language: r.Language}
		// Analysis-level language applies to every row that has none of
		// its own.
		if rows[i].Language == "" {
			rows[i].Language = task.Language
		}
	}

	slog.InfoContext(ctx, "processing batch", "analysis_id", task.AnalysisID, "offset", task.Offset, "rows", len(rows), "kinds", task.Kinds)

	updates, fatal, err := h.runBatch(ctx, rows, task.Kinds)
	if err != nil {
		// Polling timeout, unknown status, transport exhaustion: fatal to
		// this batch but row-scoped for the caller. Recorded, not re-queued.
		return h.failBatch(ctx, &task, m.Body, err.Error())
	}
	if fatal != "" {
		return h.failBatch(ctx, &task, m.Body, fatal)
	}

	// Re-base batch-local positions onto analysis-wide positions.
	for i := range updates {
		updates[i].Position += task.Offset
	}

	if err := h.store.UpdateRows(ctx, task.AnalysisID, updates); err != nil {
		slog.ErrorContext(ctx, "failed to store row results", "error", err, "analysis_id", task.AnalysisID)
		return err // Retry: results are reproducible
	}

	h.publishIndexTasks(ctx, &task, updates)
	h.checkCompletion(ctx, task.AnalysisID, analysis.StatusCompleted)
	return nil
}

// runBatch dispatches the batch to the right operation. It returns the
// batch-local row updates, or a fatal remote-failure message, or an error
// from the polling machinery itself.
func (h *AnalysisConsumer) runBatch(ctx context.Context, rows []textapi.Row, kinds []string) ([]analysis.RowUpdate, string, error) {
	if len(kinds) == 1 {
		var out *textapi.BatchOutcome
		var err error
		switch textapi.TaskKind(kinds[0]) {
		case textapi.TaskSentiment:
			out, err = h.client.Sentiment(ctx, rows)
		case textapi.TaskKeyPhrases:
			out, err = h.client.KeyPhrases(ctx, rows)
		case textapi.TaskEntities:
			out, err = h.client.Entities(ctx, rows)
		default:
			return nil, "unknown task kind: " + kinds[0], nil
		}
		if err != nil {
			return nil, "", err
		}
		if out.Failed {
			return nil, out.Message, nil
		}
		return singleTaskUpdates(ctx, out.Rows), "", nil
	}

	taskKinds := make([]textapi.TaskKind, len(kinds))
	for i, k := range kinds {
		taskKinds[i] = textapi.TaskKind(k)
	}
	out, err := h.client.Analyze(ctx, rows, taskKinds)
	if err != nil {
		return nil, "", err
	}
	if out.Failed {
		return nil, out.Message, nil
	}
	if len(out.Rows) == 0 {
		return nil, "all analysis tasks failed", nil
	}
	return mergedUpdates(out.Rows), "", nil
}

func singleTaskUpdates(ctx context.Context, results []textapi.RowResult) []analysis.RowUpdate {
	updates := make([]analysis.RowUpdate, len(results))
	for i, r := range results {
		u := analysis.RowUpdate{Position: r.ID, Status: analysis.StatusCompleted}
		switch {
		case r.Error != "":
			u.Status = analysis.StatusFailed
			u.Error = r.Error
		case r.Gap:
			// The service never answered for this row. Persist the gap as a
			// row failure so API consumers can tell it apart from an empty
			// result.
			u.Status = analysis.StatusFailed
			u.Error = gapRowError
			slog.WarnContext(ctx, "row has no result, correlation gap", "position", r.ID)
		default:
			u.Result = r.Result
		}
		updates[i] = u
	}
	return updates
}

func mergedUpdates(rows []textapi.MergedRow) []analysis.RowUpdate {
	updates := make([]analysis.RowUpdate, len(rows))
	for i, row := range rows {
		payload, _ := json.Marshal(map[string]any{"tasks": row.Slots})
		updates[i] = analysis.RowUpdate{
			Position: row.ID,
			Status:   analysis.StatusCompleted,
			Result:   payload,
		}
	}
	return updates
}

func (h *AnalysisConsumer) failBatch(ctx context.Context, task *BatchTask, payload []byte, message string) error {
	from, to := task.Offset, task.Offset+len(task.Rows)
	slog.ErrorContext(ctx, "batch failed", "analysis_id", task.AnalysisID, "from", from, "to", to, "error", message)

	if err := h.store.MarkRowsFailed(ctx, task.AnalysisID, from, to, message); err != nil {
		slog.ErrorContext(ctx, "failed to mark rows failed", "error", err)
		return err // Retry: rows must not stay pending forever
	}
	if err := h.store.UpdateStatus(ctx, task.AnalysisID, analysis.StatusFailed); err != nil {
		slog.WarnContext(ctx, "failed to update analysis status", "error", err)
	}

	if err := h.jobs.SaveFailed(ctx, task.AnalysisID, batchHandlerName, payload, message); err != nil {
		slog.ErrorContext(ctx, "failed to save failed job", "error", err)
	} else {
		slog.InfoContext(ctx, "saved failed batch for retry", "analysis_id", task.AnalysisID)
	}
	return nil
}

func (h *AnalysisConsumer) publishIndexTasks(ctx context.Context, task *BatchTask, updates []analysis.RowUpdate) {
	if h.publisher == nil {
		return
	}

	name := ""
	if a, err := h.store.Get(ctx, task.AnalysisID); err == nil {
		name = a.Name
	}

	published := 0
	for i, u := range updates {
		if u.Status != analysis.StatusCompleted || len(u.Result) == 0 {
			continue
		}
		row := task.Rows[i]
		indexTask := IndexTask{
			AnalysisID:    task.AnalysisID,
			AnalysisName:  name,
			Position:      u.Position,
			Text:          row.Text,
			Language:      row.Language,
			Summary:       string(u.Result),
			CorrelationID: task.CorrelationID,
		}
		body, err := json.Marshal(indexTask)
		if err != nil {
			slog.ErrorContext(ctx, "failed to marshal index task", "error", err)
			continue
		}
		if err := h.publisher.Publish(config.TopicAnalysisIndex, body); err != nil {
			slog.ErrorContext(ctx, "failed to publish index task", "error", err, "position", u.Position)
			continue
		}
		published++
	}
	if published > 0 {
		slog.InfoContext(ctx, "published index tasks", "count", published)
	}
}

func (h *AnalysisConsumer) checkCompletion(ctx context.Context, analysisID, status string) {
	pending, err := h.store.CountPendingRows(ctx, analysisID)
	if err != nil {
		slog.WarnContext(ctx, "failed to count pending rows", "error", err)
		return
	}
	if pending == 0 {
		slog.InfoContext(ctx, "analysis completed", "analysis_id", analysisID)
		if err := h.store.UpdateStatus(ctx, analysisID, status); err != nil {
			slog.WarnContext(ctx, "failed to update analysis status", "error", err)
		}
	}
}
