package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signalstore/internal/config"
	"signalstore/internal/engine"
	"signalstore/internal/models"
	"signalstore/internal/storage"
	"signalstore/pkg/logging"
)

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logging.NewTextLogger(logging.ParseLevel("error"))
	sync, err := engine.NewSyncEngine(context.Background(), storage.NewTransient(), logger)
	require.NoError(t, err)
	async := engine.NewAsyncEngine(sync, 16)
	t.Cleanup(async.Stop)

	cfg := config.ServerConfig{
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST"},
		CORSAllowedHeaders: []string{"Content-Type"},
	}
	srv := NewServer(cfg, async, logger)
	return srv.router
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	r := newTestServer(t)
	rec := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPostSpanThenQuery(t *testing.T) {
	r := newTestServer(t)

	span := models.Span{
		CreatedAt:  100,
		ID:         models.FullSpanId{TraceIDLow: 1, SpanID: 7},
		Name:       "op",
		Level:      models.LevelInfo,
		Attributes: map[string]models.Value{"route": models.Str("auth-login")},
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/spans", span)
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.Span
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, models.Timestamp(100), stored.CreatedAt)

	query := engine.Query{Filter: "", End: 1 << 40}
	rec = doJSON(t, r, http.MethodPost, "/v1/query/spans", query)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Spans []*models.SpanView `json:"spans"`
		Count int                `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Spans, 1)
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, "auth-login", out.Spans[0].Attributes["route"].Str)
}

func TestPostSpanRejectsZeroID(t *testing.T) {
	r := newTestServer(t)

	span := models.Span{CreatedAt: 1, Name: "op", Level: models.LevelInfo}
	rec := doJSON(t, r, http.MethodPost, "/v1/spans", span)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostSpanDuplicateIDConflicts(t *testing.T) {
	r := newTestServer(t)

	span := models.Span{
		CreatedAt: 1,
		ID:        models.FullSpanId{TraceIDLow: 1, SpanID: 9},
		Name:      "op",
		Level:     models.LevelInfo,
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/spans", span)
	require.Equal(t, http.StatusCreated, rec.Code)

	span.CreatedAt = 2
	rec = doJSON(t, r, http.MethodPost, "/v1/spans", span)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPostEventAndQuery(t *testing.T) {
	r := newTestServer(t)

	event := models.Event{
		Timestamp:  50,
		Level:      models.LevelWarn,
		Content:    "disk usage high",
		Attributes: map[string]models.Value{"host": models.Str("node-1")},
	}
	rec := doJSON(t, r, http.MethodPost, "/v1/events", event)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/query/events", engine.Query{End: 1 << 40})
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		Events []*models.EventView `json:"events"`
		Count  int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Events, 1)
	assert.Equal(t, "disk usage high", out.Events[0].Content)
}

func TestPostResource(t *testing.T) {
	r := newTestServer(t)

	resource := models.Resource{CreatedAt: 5, Attributes: map[string]models.Value{"service": models.Str("api")}}
	rec := doJSON(t, r, http.MethodPost, "/v1/resources", resource)
	require.Equal(t, http.StatusCreated, rec.Code)

	var stored models.Resource
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, "api", stored.Attributes["service"].Str)
}

func TestPostSpanInvalidJSONIsBadRequest(t *testing.T) {
	r := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/spans", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
