package weaviate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "textlens/internal/adapter/weaviate"
	"textlens/internal/testutils"
	"textlens/internal/vector"
	"textlens/internal/worker"
)

func TestWeaviateStore_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()

	store := adapter.NewStore(s.Weaviate)
	ctx := context.Background()

	err := vector.EnsureSchema(ctx, vector.NewWeaviateClientAdapter(s.Weaviate))
	require.NoError(t, err)

	// 1. Store & Search
	doc := worker.AnalyzedDoc{
		AnalysisID:   "an-1",
		AnalysisName: "reviews",
		Position:     0,
		Text:         "Postgres is a database",
		Language:     "en",
		Summary:      `{"sentiment":"neutral"}`,
		Vector:       []float32{0.1, 0.2, 0.3},
	}
	require.NoError(t, store.StoreDoc(ctx, doc))

	res, err := store.Search(ctx, "Postgres", nil, 0.0, 10, nil)
	require.NoError(t, err)
	require.NotEmpty(t, res)
	assert.Equal(t, "Postgres is a database", res[0].Text)
	assert.Equal(t, "an-1", res[0].AnalysisID)

	// 2. Filtered search misses other analyses
	res, err = store.Search(ctx, "Postgres", nil, 0.0, 10, map[string]interface{}{"analysisId": "an-other"})
	require.NoError(t, err)
	assert.Empty(t, res)

	// 3. Count & Delete
	count, err := store.CountDocs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, store.DeleteDocs(ctx, "an-1"))

	count, err = store.CountDocs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
