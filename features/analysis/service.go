package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"textlens/internal/config"
	"textlens/internal/middleware"
	"textlens/internal/text"
)

var validTasks = map[string]bool{
	"sentiment":  true,
	"keyPhrases": true,
	"entities":   true,
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// BlobStore stages raw uploaded payloads so a failed analysis can be
// re-submitted from the original input.
type BlobStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

type Service struct {
	repo     Repository
	pub      EventPublisher
	blobs    BlobStore
	maxBatch int
	maxChars int
}

func NewService(repo Repository, pub EventPublisher, blobs BlobStore, maxBatch, maxChars int) *Service {
	return &Service{repo: repo, pub: pub, blobs: blobs, maxBatch: maxBatch, maxChars: maxChars}
}

// RowInput is one submitted document. Language overrides the analysis-level
// default for this row only.
type RowInput struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

func (s *Service) Create(ctx context.Context, a *Analysis, inputs []RowInput) error {
	if a.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(inputs) == 0 {
		return fmt.Errorf("at least one row is required")
	}
	if len(a.Tasks) == 0 {
		a.Tasks = []string{"sentiment"}
	}
	for _, task := range a.Tasks {
		if !validTasks[task] {
			return fmt.Errorf("unknown task: %s", task)
		}
	}

	a.Status = StatusProcessing
	a.RowCount = len(inputs)
	if err := s.repo.Save(ctx, a); err != nil {
		return err
	}

	rows := make([]Row, len(inputs))
	for i, in := range inputs {
		rows[i] = Row{
			AnalysisID: a.ID,
			Position:   i,
			Text:       text.Clamp(in.Text, s.maxChars),
			Language:   in.Language,
			Status:     StatusPending,
		}
	}
	if err := s.repo.BulkCreateRows(ctx, rows); err != nil {
		return fmt.Errorf("failed to create rows: %w", err)
	}

	s.publishBatches(ctx, a, rows)
	return nil
}

// CreateFromNDJSON parses one JSON object per line into rows, stages the raw
// payload in the blob store, and submits the analysis.
func (s *Service) CreateFromNDJSON(ctx context.Context, a *Analysis, data []byte) error {
	inputs, err := parseNDJSON(data)
	if err != nil {
		return err
	}

	if s.blobs != nil {
		url, err := s.blobs.Upload(ctx, a.Name+".ndjson", data)
		if err != nil {
			// Staging is best effort; the analysis still runs from the
			// parsed rows.
			slog.WarnContext(ctx, "failed to stage payload", "error", err, "name", a.Name)
		} else {
			a.PayloadURL = url
		}
	}

	return s.Create(ctx, a, inputs)
}

func parseNDJSON(data []byte) ([]RowInput, error) {
	var inputs []RowInput
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var in RowInput
		if err := json.Unmarshal([]byte(line), &in); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if in.Text == "" {
			return nil, fmt.Errorf("line %d: text is required", i+1)
		}
		inputs = append(inputs, in)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("payload contains no rows")
	}
	return inputs, nil
}

// taskRow and batchTask mirror the wire shape the batch worker consumes.
type taskRow struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type batchTask struct {
	AnalysisID    string    `json:"analysis_id"`
	Offset        int       `json:"offset"`
	Rows          []taskRow `json:"rows"`
	Kinds         []string  `json:"kinds"`
	Language      string    `json:"language,omitempty"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

func (s *Service) publishBatches(ctx context.Context, a *Analysis, rows []Row) {
	correlationID := middleware.GetCorrelationID(ctx)

	for _, span := range text.SplitSpans(len(rows), s.maxBatch) {
		taskRows := make([]taskRow, 0, span.To-span.From)
		for _, row := range rows[span.From:span.To] {
			taskRows = append(taskRows, taskRow{Text: row.Text, Language: row.Language})
		}

		payload, _ := json.Marshal(batchTask{
			AnalysisID:    a.ID,
			Offset:        span.From,
			Rows:          taskRows,
			Kinds:         a.Tasks,
			Language:      a.Language,
			CorrelationID: correlationID,
		})
		if err := s.pub.Publish(config.TopicAnalysisBatch, payload); err != nil {
			slog.ErrorContext(ctx, "failed to publish batch task", "error", err, "analysis_id", a.ID, "offset", span.From)
		} else {
			slog.InfoContext(ctx, "published batch task", "analysis_id", a.ID, "offset", span.From, "rows", len(taskRows))
		}
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Analysis, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Analysis, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetRows(ctx context.Context, id string) ([]Row, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetRows(ctx, id)
}
