package worker

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func indexMessage(t *testing.T, task IndexTask) *nsq.Message {
	t.Helper()
	body, err := json.Marshal(task)
	require.NoError(t, err)
	return nsq.NewMessage(nsq.MessageID{}, body)
}

func TestIndexConsumer_Success(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)

	embedder.On("Embed", mock.Anything, mock.MatchedBy(func(text string) bool {
		return strings.Contains(text, "Analysis: reviews") && strings.Contains(text, "great product")
	})).Return([]float32{0.1, 0.2}, nil)

	store.On("StoreDoc", mock.Anything, mock.MatchedBy(func(doc AnalyzedDoc) bool {
		return doc.AnalysisID == "an-1" && doc.Position == 3 &&
			len(doc.Vector) == 2 && doc.Summary == `{"sentiment":"positive"}`
	})).Return(nil)

	consumer := NewIndexConsumer(embedder, store)

	err := consumer.HandleMessage(indexMessage(t, IndexTask{
		AnalysisID:   "an-1",
		AnalysisName: "reviews",
		Position:     3,
		Text:         "great product",
		Language:     "en",
		Summary:      `{"sentiment":"positive"}`,
	}))

	assert.NoError(t, err)
	embedder.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestIndexConsumer_EmbedFailureRequeues(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)

	embedder.On("Embed", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	consumer := NewIndexConsumer(embedder, store)

	err := consumer.HandleMessage(indexMessage(t, IndexTask{
		AnalysisID: "an-1",
		Text:       "some text",
	}))

	assert.Error(t, err)
	store.AssertNotCalled(t, "StoreDoc", mock.Anything, mock.Anything)
}

func TestIndexConsumer_StoreFailureRequeues(t *testing.T) {
	embedder := new(MockEmbedder)
	store := new(MockVectorStore)

	embedder.On("Embed", mock.Anything, mock.Anything).Return([]float32{0.5}, nil)
	store.On("StoreDoc", mock.Anything, mock.Anything).Return(assert.AnError)

	consumer := NewIndexConsumer(embedder, store)

	err := consumer.HandleMessage(indexMessage(t, IndexTask{
		AnalysisID: "an-1",
		Text:       "some text",
	}))

	assert.Error(t, err)
}

func TestIndexConsumer_PoisonPill(t *testing.T) {
	consumer := NewIndexConsumer(new(MockEmbedder), new(MockVectorStore))

	err := consumer.HandleMessage(nsq.NewMessage(nsq.MessageID{}, []byte("{broken")))
	assert.NoError(t, err)
}

func TestIndexConsumer_MissingFieldsDropped(t *testing.T) {
	consumer := NewIndexConsumer(new(MockEmbedder), new(MockVectorStore))

	err := consumer.HandleMessage(indexMessage(t, IndexTask{AnalysisID: "an-1"}))
	assert.NoError(t, err, "tasks without text are dropped, not retried")
}
