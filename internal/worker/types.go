package worker

import (
	"context"

	"textlens/features/analysis"
	"textlens/internal/adapter/textapi"
)

// AnalyticsClient is the slice of the textapi client the batch consumer
// drives. Single-task batches use the synchronous endpoints; multi-task
// batches go through the long-running analyze operation.
type AnalyticsClient interface {
	Sentiment(ctx context.Context, rows []textapi.Row) (*textapi.BatchOutcome, error)
	KeyPhrases(ctx context.Context, rows []textapi.Row) (*textapi.BatchOutcome, error)
	Entities(ctx context.Context, rows []textapi.Row) (*textapi.BatchOutcome, error)
	Analyze(ctx context.Context, rows []textapi.Row, kinds []textapi.TaskKind) (*textapi.AnalyzeOutcome, error)
}

type AnalysisStore interface {
	UpdateRows(ctx context.Context, analysisID string, updates []analysis.RowUpdate) error
	MarkRowsFailed(ctx context.Context, analysisID string, from, to int, message string) error
	CountPendingRows(ctx context.Context, analysisID string) (int, error)
	UpdateStatus(ctx context.Context, id, status string) error
	Get(ctx context.Context, id string) (*analysis.Analysis, error)
}

type FailedJobSaver interface {
	SaveFailed(ctx context.Context, analysisID, handler string, payload []byte, message string) error
}

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

// AnalyzedDoc is one indexed row in the vector store.
type AnalyzedDoc struct {
	AnalysisID   string
	AnalysisName string
	Position     int
	Text         string
	Language     string
	Summary      string
	Vector       []float32
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	StoreDoc(ctx context.Context, doc AnalyzedDoc) error
	DeleteDocs(ctx context.Context, analysisID string) error
}
