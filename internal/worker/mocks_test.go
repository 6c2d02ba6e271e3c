package worker

import (
	"context"

	"github.com/stretchr/testify/mock"

	"textlens/features/analysis"
	"textlens/internal/adapter/textapi"
)

// --- Mocks ---

type MockAnalyticsClient struct {
	mock.Mock
}

func (m *MockAnalyticsClient) Sentiment(ctx context.Context, rows []textapi.Row) (*textapi.BatchOutcome, error) {
	args := m.Called(ctx, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*textapi.BatchOutcome), args.Error(1)
}

func (m *MockAnalyticsClient) KeyPhrases(ctx context.Context, rows []textapi.Row) (*textapi.BatchOutcome, error) {
	args := m.Called(ctx, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*textapi.BatchOutcome), args.Error(1)
}

func (m *MockAnalyticsClient) Entities(ctx context.Context, rows []textapi.Row) (*textapi.BatchOutcome, error) {
	args := m.Called(ctx, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*textapi.BatchOutcome), args.Error(1)
}

func (m *MockAnalyticsClient) Analyze(ctx context.Context, rows []textapi.Row, kinds []textapi.TaskKind) (*textapi.AnalyzeOutcome, error) {
	args := m.Called(ctx, rows, kinds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*textapi.AnalyzeOutcome), args.Error(1)
}

type MockAnalysisStore struct {
	mock.Mock
}

func (m *MockAnalysisStore) UpdateRows(ctx context.Context, analysisID string, updates []analysis.RowUpdate) error {
	return m.Called(ctx, analysisID, updates).Error(0)
}

func (m *MockAnalysisStore) MarkRowsFailed(ctx context.Context, analysisID string, from, to int, message string) error {
	return m.Called(ctx, analysisID, from, to, message).Error(0)
}

func (m *MockAnalysisStore) CountPendingRows(ctx context.Context, analysisID string) (int, error) {
	args := m.Called(ctx, analysisID)
	return args.Int(0), args.Error(1)
}

func (m *MockAnalysisStore) UpdateStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockAnalysisStore) Get(ctx context.Context, id string) (*analysis.Analysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Analysis), args.Error(1)
}

type MockJobSaver struct {
	mock.Mock
}

func (m *MockJobSaver) SaveFailed(ctx context.Context, analysisID, handler string, payload []byte, message string) error {
	return m.Called(ctx, analysisID, handler, payload, message).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(topic string, body []byte) error {
	return m.Called(topic, body).Error(0)
}

type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

type MockVectorStore struct {
	mock.Mock
}

func (m *MockVectorStore) StoreDoc(ctx context.Context, doc AnalyzedDoc) error {
	return m.Called(ctx, doc).Error(0)
}

func (m *MockVectorStore) DeleteDocs(ctx context.Context, analysisID string) error {
	return m.Called(ctx, analysisID).Error(0)
}
