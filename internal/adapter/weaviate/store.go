package weaviate

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"textlens/internal/retrieval"
	"textlens/internal/vector"
	"textlens/internal/worker"
)

const className = "AnalyzedDocument"

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// EnsureSchema creates the document class if it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.client))
}

func (s *Store) StoreDoc(ctx context.Context, doc worker.AnalyzedDoc) error {
	_, err := s.client.Data().Creator().
		WithClassName(className).
		WithProperties(map[string]interface{}{
			"text":         doc.Text,
			"summary":      doc.Summary,
			"analysisId":   doc.AnalysisID,
			"analysisName": doc.AnalysisName,
			"position":     doc.Position,
			"language":     doc.Language,
		}).
		WithVector(doc.Vector).
		Do(ctx)
	return err
}

func (s *Store) DeleteDocs(ctx context.Context, analysisID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(className).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"analysisId"}).
			WithOperator(filters.Equal).
			WithValueString(analysisID)).
		Do(ctx)
	return err
}

func (s *Store) Search(ctx context.Context, query string, vector []float32, alpha float32, limit int, searchFilters map[string]interface{}) ([]retrieval.SearchResult, error) {
	hybrid := s.client.GraphQL().HybridArgumentBuilder().
		WithQuery(query).
		WithVector(vector).
		WithAlpha(alpha)

	fields := []graphql.Field{
		{Name: "text"},
		{Name: "summary"},
		{Name: "analysisId"},
		{Name: "analysisName"},
		{Name: "position"},
		{Name: "language"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "score"}}},
	}

	builder := s.client.GraphQL().Get().
		WithClassName(className).
		WithHybrid(hybrid).
		WithLimit(limit).
		WithFields(fields...)

	if where := buildWhere(searchFilters); where != nil {
		builder = builder.WithWhere(where)
	}

	res, err := builder.Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var results []retrieval.SearchResult
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if docs, ok := data[className].([]interface{}); ok {
			for _, d := range docs {
				props, ok := d.(map[string]interface{})
				if !ok {
					continue
				}
				result := retrieval.SearchResult{
					Metadata: make(map[string]interface{}),
				}
				if text, ok := props["text"].(string); ok {
					result.Text = text
				}
				if summary, ok := props["summary"].(string); ok {
					result.Summary = summary
				}
				if id, ok := props["analysisId"].(string); ok {
					result.AnalysisID = id
				}
				if name, ok := props["analysisName"].(string); ok {
					result.AnalysisName = name
				}
				if pos, ok := props["position"].(float64); ok {
					result.Position = int(pos)
				}
				if lang, ok := props["language"].(string); ok {
					result.Language = lang
				}
				if additional, ok := props["_additional"].(map[string]interface{}); ok {
					// Score comes back as string on some server versions
					if score, ok := additional["score"].(string); ok {
						var fScore float64
						fmt.Sscanf(score, "%f", &fScore)
						result.Score = float32(fScore)
					} else if score, ok := additional["score"].(float64); ok {
						result.Score = float32(score)
					}
				}
				results = append(results, result)
			}
		}
	}

	return results, nil
}

func buildWhere(searchFilters map[string]interface{}) *filters.WhereBuilder {
	var operands []*filters.WhereBuilder
	for _, field := range []string{"analysisId", "language"} {
		if v, ok := searchFilters[field].(string); ok && v != "" {
			operands = append(operands, filters.Where().
				WithPath([]string{field}).
				WithOperator(filters.Equal).
				WithValueString(v))
		}
	}
	switch len(operands) {
	case 0:
		return nil
	case 1:
		return operands[0]
	default:
		return filters.Where().WithOperator(filters.And).WithOperands(operands)
	}
}

func (s *Store) CountDocs(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(className).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if docs, ok := data[className].([]interface{}); ok && len(docs) > 0 {
			if entry, ok := docs[0].(map[string]interface{}); ok {
				if meta, ok := entry["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}
