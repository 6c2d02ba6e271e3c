package analysis_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"textlens/features/analysis"
)

// --- Mocks ---

type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) Save(ctx context.Context, a *analysis.Analysis) error {
	args := m.Called(ctx, a)
	if args.Error(0) == nil && a.ID == "" {
		a.ID = "an-1"
	}
	return args.Error(0)
}

func (m *MockRepo) Get(ctx context.Context, id string) (*analysis.Analysis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*analysis.Analysis), args.Error(1)
}

func (m *MockRepo) List(ctx context.Context) ([]analysis.Analysis, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analysis.Analysis), args.Error(1)
}

func (m *MockRepo) UpdateStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	args := m.Called(ctx, status)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) BulkCreateRows(ctx context.Context, rows []analysis.Row) error {
	return m.Called(ctx, rows).Error(0)
}

func (m *MockRepo) GetRows(ctx context.Context, analysisID string) ([]analysis.Row, error) {
	args := m.Called(ctx, analysisID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]analysis.Row), args.Error(1)
}

func (m *MockRepo) UpdateRows(ctx context.Context, analysisID string, updates []analysis.RowUpdate) error {
	return m.Called(ctx, analysisID, updates).Error(0)
}

func (m *MockRepo) MarkRowsFailed(ctx context.Context, analysisID string, from, to int, message string) error {
	return m.Called(ctx, analysisID, from, to, message).Error(0)
}

func (m *MockRepo) CountPendingRows(ctx context.Context, analysisID string) (int, error) {
	args := m.Called(ctx, analysisID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) CountRows(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) CountRowErrors(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockPub struct {
	mock.Mock
}

func (m *MockPub) Publish(topic string, body []byte) error {
	return m.Called(topic, body).Error(0)
}

func newHandler(repo *MockRepo, pub *MockPub) *analysis.Handler {
	svc := analysis.NewService(repo, pub, nil, 25, 5120)
	return analysis.NewHandler(svc, 50)
}

// --- Tests ---

func TestCreateAnalysis_Success(t *testing.T) {
	repo := new(MockRepo)
	pub := new(MockPub)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	repo.On("BulkCreateRows", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	handler := newHandler(repo, pub)

	body := []byte(`{"name":"reviews","tasks":["sentiment"],"rows":[{"text":"great"},{"text":"bad"}]}`)
	req := httptest.NewRequest("POST", "/analyses", bytes.NewBuffer(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data analysis.Analysis `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "an-1", resp.Data.ID)
	assert.Equal(t, "processing", resp.Data.Status)
	assert.Equal(t, 2, resp.Data.RowCount)
}

func TestCreateAnalysis_MissingName(t *testing.T) {
	handler := newHandler(new(MockRepo), new(MockPub))

	body := []byte(`{"rows":[{"text":"great"}]}`)
	req := httptest.NewRequest("POST", "/analyses", bytes.NewBuffer(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAnalysis_NoRows(t *testing.T) {
	handler := newHandler(new(MockRepo), new(MockPub))

	body := []byte(`{"name":"reviews","rows":[]}`)
	req := httptest.NewRequest("POST", "/analyses", bytes.NewBuffer(body))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAnalysis_InvalidJSON(t *testing.T) {
	handler := newHandler(new(MockRepo), new(MockPub))

	req := httptest.NewRequest("POST", "/analyses", bytes.NewBufferString("{broken"))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartBody(t *testing.T, filename, name, tasks string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	require.NoError(t, mw.WriteField("name", name))
	if tasks != "" {
		require.NoError(t, mw.WriteField("tasks", tasks))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestUploadAnalysis_Success(t *testing.T) {
	repo := new(MockRepo)
	pub := new(MockPub)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)
	repo.On("BulkCreateRows", mock.Anything, mock.Anything).Return(nil)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil)

	handler := newHandler(repo, pub)

	buf, contentType := multipartBody(t, "rows.ndjson", "batch", `["keyPhrases"]`, []byte(`{"text":"one"}
{"text":"two"}`))
	req := httptest.NewRequest("POST", "/analyses/upload", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestUploadAnalysis_UnsupportedExtension(t *testing.T) {
	handler := newHandler(new(MockRepo), new(MockPub))

	buf, contentType := multipartBody(t, "rows.csv", "batch", "", []byte("text\none"))
	req := httptest.NewRequest("POST", "/analyses/upload", buf)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	handler.Upload(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	repo := new(MockRepo)
	repo.On("Get", mock.Anything, "missing").Return(nil, sql.ErrNoRows)

	handler := newHandler(repo, new(MockPub))

	req := httptest.NewRequest("GET", "/analyses/missing", nil)
	req.SetPathValue("id", "missing")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "error")
}

func TestListAnalyses_EmptyReturnsArray(t *testing.T) {
	repo := new(MockRepo)
	repo.On("List", mock.Anything).Return(nil, nil)

	handler := newHandler(repo, new(MockPub))

	req := httptest.NewRequest("GET", "/analyses", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[],"meta":{"count":0}}`, w.Body.String())
}

func TestGetRows_Success(t *testing.T) {
	repo := new(MockRepo)
	repo.On("Get", mock.Anything, "an-1").Return(&analysis.Analysis{ID: "an-1"}, nil)
	repo.On("GetRows", mock.Anything, "an-1").Return([]analysis.Row{
		{AnalysisID: "an-1", Position: 0, Text: "great", Status: "completed"},
	}, nil)

	handler := newHandler(repo, new(MockPub))

	req := httptest.NewRequest("GET", "/analyses/an-1/rows", nil)
	req.SetPathValue("id", "an-1")
	w := httptest.NewRecorder()

	handler.GetRows(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []analysis.Row `json:"data"`
		Meta map[string]int `json:"meta"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 1)
	assert.Equal(t, 1, resp.Meta["count"])
}
