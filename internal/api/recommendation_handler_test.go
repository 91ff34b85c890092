package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recolookup/app"
	"recolookup/domain/table"
	"recolookup/internal/errors"
	"recolookup/internal/profiling"
)

type staticSource struct {
	t   *table.Table
	err error
}

func (s staticSource) Name() string     { return "static" }
func (s staticSource) Location() string { return "memory://" + s.Name() }

func (s staticSource) Load(context.Context) (*table.Table, error) {
	return s.t, s.err
}

func newTestRouter(t *testing.T, contentErr error) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	collab := table.New(app.CollaborativeTable,
		[]string{"self", "a", "b", "c", "d", "e", "f", "g"},
		[][]string{{"42", "x", "y", "1", "2", "3", "4", "5"}})
	content := table.New(app.ContentTable,
		[]string{"item_id", "title", "r1", "r2", "r3", "r4", "r5"},
		[][]string{{"7", "Heat", "11", "12", "13", "14", "15"}})

	contentSrc := staticSource{t: content}
	if contentErr != nil {
		contentSrc = staticSource{err: contentErr}
	}

	svc := app.NewRecommendationService(
		app.CollaborativeBinding(staticSource{t: collab}, "self", table.DefaultSelector),
		app.ContentBinding(contentSrc, "item_id", table.DefaultSelector),
	)
	_ = svc.LoadTables(context.Background())

	return NewRouter(NewRecommendationHandler(svc))
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestLookup(t *testing.T) {
	r := newTestRouter(t, nil)

	w := get(r, "/api/lookup?item_id=42")
	require.Equal(t, http.StatusOK, w.Code)

	var res app.SearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "42", res.Key)
	assert.True(t, res.Collaborative.Found)
	assert.Equal(t, []string{"y", "1", "2", "3", "4"}, res.Collaborative.Values)
	assert.False(t, res.Content.Found)
	assert.Equal(t, []string{"Item ID not found in content filtering."}, res.Messages)
}

func TestLookupMissingParameter(t *testing.T) {
	r := newTestRouter(t, nil)

	w := get(r, "/api/lookup")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errors.CodeInvalidInput, body["code"])
	assert.NotEmpty(t, body["error"])
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		contentErr error
		status     int
		body       string
	}{
		{"both loaded", nil, http.StatusOK, "ok"},
		{"content failed", errors.LoadFailed("content.csv", fmt.Errorf("no such file")), http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(newTestRouter(t, tt.contentErr), "/api/health")
			assert.Equal(t, tt.status, w.Code)

			var resp HealthResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.body, resp.Status)
			assert.Len(t, resp.Tables, 2)
		})
	}
}

func TestListTables(t *testing.T) {
	w := get(newTestRouter(t, errors.LoadFailed("content.csv", fmt.Errorf("boom"))), "/api/tables")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tables []TableSummary `json:"tables"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Tables, 2)

	assert.Equal(t, app.CollaborativeTable, body.Tables[0].Name)
	assert.Equal(t, app.StatusLoaded, body.Tables[0].Status)
	assert.Equal(t, "self", body.Tables[0].KeyField)
	assert.Equal(t, "positions[2:7]", body.Tables[0].Features)
	assert.Equal(t, 1, body.Tables[0].Rows)

	assert.Equal(t, app.StatusFailed, body.Tables[1].Status)
	assert.NotEmpty(t, body.Tables[1].Error)
}

func TestGetTable(t *testing.T) {
	r := newTestRouter(t, errors.LoadFailed("content.csv", fmt.Errorf("boom")))

	w := get(r, "/api/tables/collaborative")
	require.Equal(t, http.StatusOK, w.Code)
	var profile profiling.TableProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(t, 1, profile.Rows)
	assert.Len(t, profile.Columns, 8)

	tests := []struct {
		path string
		code string
	}{
		{"/api/tables/content", errors.CodeUnavailable},
		{"/api/tables/ratings", errors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(r, tt.path)
			assert.Equal(t, http.StatusNotFound, w.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestGetTableNonFiniteCells(t *testing.T) {
	gin.SetMode(gin.TestMode)
	collab := table.New(app.CollaborativeTable,
		[]string{"self", "a", "b", "c", "d", "e", "f"},
		[][]string{
			{"42", "x", "NaN", "1", "2", "3", "4"},
			{"43", "x", "Inf", "1", "2", "3", "4"},
		})
	content := table.New(app.ContentTable,
		[]string{"item_id", "title", "r1", "r2", "r3", "r4", "r5"}, nil)
	svc := app.NewRecommendationService(
		app.CollaborativeBinding(staticSource{t: collab}, "self", table.DefaultSelector),
		app.ContentBinding(staticSource{t: content}, "item_id", table.DefaultSelector),
	)
	require.NoError(t, svc.LoadTables(context.Background()))
	r := NewRouter(NewRecommendationHandler(svc))

	w := get(r, "/api/tables/collaborative")
	require.Equal(t, http.StatusOK, w.Code)
	require.NotEmpty(t, w.Body.Bytes())

	var profile profiling.TableProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &profile))
	require.Len(t, profile.Columns, 7)
	assert.False(t, profile.Columns[2].Numeric)
	assert.Nil(t, profile.Columns[2].Summary)
}

func TestUnknownRoute(t *testing.T) {
	w := get(newTestRouter(t, nil), "/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
