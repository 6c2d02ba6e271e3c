package retrieval

import (
	"context"
	"time"

	"textlens/internal/settings"
)

type SearchResult struct {
	Text         string                 `json:"text"`
	Summary      string                 `json:"summary,omitempty"`
	Score        float32                `json:"score"`
	AnalysisID   string                 `json:"analysisId,omitempty"`
	AnalysisName string                 `json:"analysisName,omitempty"`
	Position     int                    `json:"position"`
	Language     string                 `json:"language,omitempty"`
	Metadata     map[string]interface{} `json:"metadata"`
}

type SearchOptions struct {
	Alpha   *float32
	Limit   *int
	Filters map[string]interface{}
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type VectorStore interface {
	Search(ctx context.Context, query string, vector []float32, alpha float32, limit int, filters map[string]interface{}) ([]SearchResult, error)
}

type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string) ([]int, error)
}

type Service struct {
	embedder Embedder
	store    VectorStore
	reranker Reranker
	settings *settings.Service
	logger   *QueryLogger
}

func NewService(e Embedder, s VectorStore, r Reranker, set *settings.Service, l *QueryLogger) *Service {
	return &Service{embedder: e, store: s, reranker: r, settings: set, logger: l}
}

// Search runs a hybrid (BM25 + vector) query over the analyzed documents,
// optionally reranked when a reranker is configured.
func (s *Service) Search(ctx context.Context, query string, opts *SearchOptions) ([]SearchResult, error) {
	start := time.Now()
	var finalDocs []SearchResult
	var err error

	defer func() {
		if s.logger != nil && err == nil {
			s.logger.Log(QueryLogEntry{
				Query:      query,
				NumResults: len(finalDocs),
				Duration:   time.Since(start),
			})
		}
	}()

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		// Fallback defaults if settings fail
		cfg = &settings.Settings{SearchAlpha: 0.5, SearchTopK: 10}
	}

	alpha := cfg.SearchAlpha
	limit := cfg.SearchTopK
	var filters map[string]interface{}

	if opts != nil {
		if opts.Alpha != nil {
			alpha = *opts.Alpha
		}
		if opts.Limit != nil {
			limit = *opts.Limit
		}
		filters = opts.Filters
	}

	// 1. Embed Query
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	// 2. Hybrid Search (BM25 + Vector)
	docs, err := s.store.Search(ctx, query, vec, alpha, limit, filters)
	if err != nil {
		return nil, err
	}

	// 3. Rerank (if configured)
	if s.reranker != nil && len(docs) > 0 {
		contents := make([]string, len(docs))
		for i, d := range docs {
			contents[i] = d.Text
		}

		indices, err := s.reranker.Rerank(ctx, query, contents)
		if err != nil {
			return nil, err
		}

		reranked := make([]SearchResult, 0, len(indices))
		for _, idx := range indices {
			if idx < len(docs) {
				reranked = append(reranked, docs[idx])
			}
		}
		finalDocs = reranked
		return reranked, nil
	}

	finalDocs = docs
	return docs, nil
}
