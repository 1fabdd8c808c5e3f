package httpapi_test

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoapi/pkg/httpapi"
	"todoapi/pkg/storage/memstore"
	"todoapi/pkg/todo"
)

type errEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Fields  []struct {
			Field  string `json:"field"`
			Reason string `json:"reason"`
		} `json:"fields"`
	} `json:"error"`
}

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	service := todo.NewService(memstore.New(memstore.DefaultConfig()))
	t.Cleanup(service.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := httpapi.New(service, logger, httpapi.Options{})
	require.NoError(t, err)
	return srv.Handler()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeItem(t *testing.T, rec *httptest.ResponseRecorder) todo.Item {
	t.Helper()
	var item todo.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	return item
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errEnvelope {
	t.Helper()
	var env errEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func createItem(t *testing.T, h http.Handler, body string) todo.Item {
	t.Helper()
	rec := doRequest(t, h, http.MethodPost, "/api/items", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeItem(t, rec)
}

// TestItemLifecycle walks the canonical create, patch, delete, get sequence
// and checks the status transitions along the way.
func TestItemLifecycle(t *testing.T) {
	h := newHandler(t)

	created := createItem(t, h, `{"title": "Buy milk"}`)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.False(t, created.Completed)

	rec := doRequest(t, h, http.MethodPatch, "/api/items/"+created.ID.String(), `{"completed": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decodeItem(t, rec)
	assert.True(t, patched.Completed)
	assert.Equal(t, "Buy milk", patched.Title)

	rec = doRequest(t, h, http.MethodDelete, "/api/items/"+created.ID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = doRequest(t, h, http.MethodGet, "/api/items/"+created.ID.String(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Code)
}

func TestGetMalformedIDIsValidationFailure(t *testing.T) {
	h := newHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/api/items/not-a-uuid", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeError(t, rec)
	assert.Equal(t, "invalid_argument", env.Error.Code)
	require.Len(t, env.Error.Fields, 1)
	assert.Equal(t, "id", env.Error.Fields[0].Field)
}

func TestCreateSchemaValidation(t *testing.T) {
	h := newHandler(t)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"wrong title type", `{"title": 123}`, "title"},
		{"missing title", `{"description": "no title"}`, "body"},
		{"unknown member", `{"title": "ok", "bogus": 1}`, ""},
		{"wrong completed type", `{"title": "ok", "completed": "yes"}`, "completed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/api/items", tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			env := decodeError(t, rec)
			assert.Equal(t, "validation_failed", env.Error.Code)
			require.NotEmpty(t, env.Error.Fields)
			if tc.field != "" {
				assert.Equal(t, tc.field, env.Error.Fields[0].Field)
			}
		})
	}
}

func TestCreateMalformedJSON(t *testing.T) {
	h := newHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/api/items", `{"title": `)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_failed", decodeError(t, rec).Error.Code)
}

func TestCreateSemanticValidation(t *testing.T) {
	h := newHandler(t)

	// Structurally fine, semantically empty: the store rejects it.
	rec := doRequest(t, h, http.MethodPost, "/api/items", `{"title": "   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	env := decodeError(t, rec)
	assert.Equal(t, "invalid_argument", env.Error.Code)
	require.Len(t, env.Error.Fields, 1)
	assert.Equal(t, "title", env.Error.Fields[0].Field)
}

func TestReplaceItem(t *testing.T) {
	h := newHandler(t)
	created := createItem(t, h, `{"title": "Buy milk", "description": "two liters"}`)

	rec := doRequest(t, h, http.MethodPut, "/api/items/"+created.ID.String(),
		`{"title": "Buy bread", "completed": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	replaced := decodeItem(t, rec)
	assert.Equal(t, "Buy bread", replaced.Title)
	assert.Empty(t, replaced.Description, "replace swaps every mutable field")
	assert.True(t, replaced.Completed)
	assert.Equal(t, created.ID, replaced.ID)
}

func TestListPaginationAndFilter(t *testing.T) {
	h := newHandler(t)
	for i := 0; i < 5; i++ {
		createItem(t, h, fmt.Sprintf(`{"title": "task %d"}`, i))
	}

	rec := doRequest(t, h, http.MethodGet, "/api/items?skip=0&limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page []todo.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page, 2)
	assert.Equal(t, "task 0", page[0].Title)
	assert.Equal(t, "task 1", page[1].Title)

	rec = doRequest(t, h, http.MethodGet, "/api/items?completed=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var done []todo.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &done))
	assert.Empty(t, done)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()),
		"an empty page is a JSON array, not null")
}

func TestListParamValidation(t *testing.T) {
	h := newHandler(t)

	cases := []struct {
		name  string
		query string
		field string
	}{
		{"skip not a number", "skip=abc", "skip"},
		{"negative skip", "skip=-1", "skip"},
		{"limit not a number", "limit=ten", "limit"},
		{"limit zero", "limit=0", "limit"},
		{"limit above max", "limit=101", "limit"},
		{"completed not a bool", "completed=banana", "completed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodGet, "/api/items?"+tc.query, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)

			env := decodeError(t, rec)
			assert.Equal(t, "invalid_argument", env.Error.Code)
			require.NotEmpty(t, env.Error.Fields)
			assert.Equal(t, tc.field, env.Error.Fields[0].Field)
		})
	}
}

func TestSearchEndpoint(t *testing.T) {
	h := newHandler(t)
	createItem(t, h, `{"title": "Buy milk"}`)
	createItem(t, h, `{"title": "Buy bread"}`)

	rec := doRequest(t, h, http.MethodGet, "/api/items/search?q=milk", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var hits []todo.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "Buy milk", hits[0].Title)

	rec = doRequest(t, h, http.MethodGet, "/api/items/search", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_argument", decodeError(t, rec).Error.Code)
}

func TestStatsEndpoint(t *testing.T) {
	h := newHandler(t)
	created := createItem(t, h, `{"title": "one"}`)
	createItem(t, h, `{"title": "two"}`)

	rec := doRequest(t, h, http.MethodPatch, "/api/items/"+created.ID.String(), `{"completed": true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, h, http.MethodGet, "/api/items/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats todo.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, stats.Total, stats.Completed+stats.Pending)
}

func TestHealth(t *testing.T) {
	h := newHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status  string `json:"status"`
		Version string `json:"version"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.NotEmpty(t, body.Version)
}

func TestRootWelcome(t *testing.T) {
	h := newHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/items", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestPatchMissingItem(t *testing.T) {
	h := newHandler(t)

	rec := doRequest(t, h, http.MethodPatch,
		"/api/items/00000000-0000-0000-0000-000000000000", `{"completed": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Error.Code)
}
