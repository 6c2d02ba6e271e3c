package stats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAnalysisRepo struct{ mock.Mock }

func (m *MockAnalysisRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAnalysisRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *MockAnalysisRepo) CountRows(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockAnalysisRepo) CountRowErrors(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockJobRepo struct{ mock.Mock }

func (m *MockJobRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockVectorStore struct{ mock.Mock }

func (m *MockVectorStore) CountDocs(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func TestHandler_GetStats_Table(t *testing.T) {
	tests := []struct {
		name       string
		setupMocks func(*MockAnalysisRepo, *MockJobRepo, *MockVectorStore)
		wantStatus int
		checkBody  func(*testing.T, map[string]interface{})
	}{
		{
			name: "Success",
			setupMocks: func(a *MockAnalysisRepo, j *MockJobRepo, v *MockVectorStore) {
				a.On("Count", mock.Anything).Return(10, nil)
				a.On("CountByStatus", mock.Anything, "processing").Return(2, nil)
				a.On("CountByStatus", mock.Anything, "completed").Return(7, nil)
				a.On("CountByStatus", mock.Anything, "failed").Return(1, nil)
				a.On("CountRows", mock.Anything).Return(250, nil)
				a.On("CountRowErrors", mock.Anything).Return(3, nil)
				j.On("Count", mock.Anything).Return(5, nil)
				v.On("CountDocs", mock.Anything).Return(100, nil)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				data := body["data"].(map[string]interface{})
				assert.EqualValues(t, 10, data["analyses"])
				assert.EqualValues(t, 250, data["rows"])
				assert.EqualValues(t, 3, data["row_errors"])
				assert.EqualValues(t, 5, data["failed_jobs"])
				assert.EqualValues(t, 100, data["indexed_docs"])

				byStatus := data["analyses_by_status"].(map[string]interface{})
				assert.EqualValues(t, 2, byStatus["processing"])
				assert.EqualValues(t, 7, byStatus["completed"])
				assert.EqualValues(t, 1, byStatus["failed"])
			},
		},
		{
			name: "AnalysisRepo Error",
			setupMocks: func(a *MockAnalysisRepo, j *MockJobRepo, v *MockVectorStore) {
				a.On("Count", mock.Anything).Return(0, errors.New("db error"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "CountByStatus Error",
			setupMocks: func(a *MockAnalysisRepo, j *MockJobRepo, v *MockVectorStore) {
				a.On("Count", mock.Anything).Return(10, nil)
				a.On("CountByStatus", mock.Anything, mock.Anything).Return(0, errors.New("db error"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "JobRepo Error",
			setupMocks: func(a *MockAnalysisRepo, j *MockJobRepo, v *MockVectorStore) {
				a.On("Count", mock.Anything).Return(10, nil)
				a.On("CountByStatus", mock.Anything, mock.Anything).Return(0, nil)
				a.On("CountRows", mock.Anything).Return(250, nil)
				a.On("CountRowErrors", mock.Anything).Return(3, nil)
				j.On("Count", mock.Anything).Return(0, errors.New("db error"))
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "VectorStore Error",
			setupMocks: func(a *MockAnalysisRepo, j *MockJobRepo, v *MockVectorStore) {
				a.On("Count", mock.Anything).Return(10, nil)
				a.On("CountByStatus", mock.Anything, mock.Anything).Return(0, nil)
				a.On("CountRows", mock.Anything).Return(250, nil)
				a.On("CountRowErrors", mock.Anything).Return(3, nil)
				j.On("Count", mock.Anything).Return(5, nil)
				v.On("CountDocs", mock.Anything).Return(0, errors.New("weaviate down"))
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysisRepo := new(MockAnalysisRepo)
			jobRepo := new(MockJobRepo)
			vectorStore := new(MockVectorStore)
			tt.setupMocks(analysisRepo, jobRepo, vectorStore)

			handler := NewHandler(analysisRepo, jobRepo, vectorStore)

			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			handler.GetStats(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.checkBody != nil {
				var body map[string]interface{}
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				tt.checkBody(t, body)
			}
		})
	}
}
