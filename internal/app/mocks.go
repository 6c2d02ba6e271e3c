package app

import (
	"context"

	"textlens/internal/retrieval"
	"textlens/internal/worker"
)

// MockVectorStore is a configurable VectorStore for wiring tests.
type MockVectorStore struct {
	EnsureSchemaErr error
	StoreDocErr     error
	DeleteDocsErr   error
	SearchResults   []retrieval.SearchResult
	SearchErr       error
	DocCount        int
	CountErr        error
}

func (m *MockVectorStore) EnsureSchema(ctx context.Context) error { return m.EnsureSchemaErr }

func (m *MockVectorStore) StoreDoc(ctx context.Context, doc worker.AnalyzedDoc) error {
	return m.StoreDocErr
}

func (m *MockVectorStore) DeleteDocs(ctx context.Context, analysisID string) error {
	return m.DeleteDocsErr
}

func (m *MockVectorStore) Search(ctx context.Context, query string, vector []float32, alpha float32, limit int, filters map[string]interface{}) ([]retrieval.SearchResult, error) {
	return m.SearchResults, m.SearchErr
}

func (m *MockVectorStore) CountDocs(ctx context.Context) (int, error) {
	return m.DocCount, m.CountErr
}
