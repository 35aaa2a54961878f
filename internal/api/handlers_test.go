package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/tabledef/internal/config"
	"github.com/JonMunkholm/tabledef/internal/definitions"
	"github.com/JonMunkholm/tabledef/internal/shorthand"
	"github.com/JonMunkholm/tabledef/internal/store"
)

type testServer struct {
	t       *testing.T
	handler *Handler
	mux     *http.ServeMux
}

func newTestServer(t *testing.T, rateLimit int) *testServer {
	t.Helper()

	s, err := store.OpenSQLite(filepath.Join(t.TempDir(), "mtable.db"), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))

	web := fstest.MapFS{"index.html": {Data: []byte("<form id=\"shorthand\"></form>")}}
	h, err := NewHandler(definitions.NewService(s), web, &config.Config{RateLimit: rateLimit})
	require.NoError(t, err)
	t.Cleanup(h.Stop)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return &testServer{t: t, handler: h, mux: mux}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *apiError       `json:"error"`
}

func (ts *testServer) do(method, path string, body any) (int, envelope) {
	ts.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(csrfHeader, ts.handler.csrf.Token())
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)

	var env envelope
	require.NoError(ts.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestPreview(t *testing.T) {
	ts := newTestServer(t, 1000)

	code, env := ts.do(http.MethodPost, "/api/preview", map[string]string{
		"table_name":           "posts",
		"shorthand_definition": "title:t\ndescription:tn",
	})
	require.Equal(t, http.StatusOK, code)
	require.True(t, env.Success)
	res := decodeData[definitions.PreviewResult](t, env)
	require.Equal(t, "posts", res.TableName)
	require.Equal(t, "title:t\ndescription:tn", res.ShorthandDefinition)
	require.Equal(t, "CREATE TABLE posts (\n  title TEXT NOT NULL DEFAULT '',\n  description TEXT\n);", res.GeneratedSQL)
}

func TestPreview_Errors(t *testing.T) {
	ts := newTestServer(t, 1000)

	tests := []struct {
		name   string
		body   map[string]string
		status int
		code   string
		msg    string
	}{
		{"unknown type", map[string]string{"table_name": "test", "shorthand_definition": "field:unknown_type"}, http.StatusUnprocessableEntity, ErrUnknownType, "unknown_type"},
		{"empty without grammar", map[string]string{"table_name": "test", "shorthand_definition": ""}, http.StatusUnprocessableEntity, ErrEmptyDefinition, "no valid column definitions found"},
		{"blank without grammar", map[string]string{"table_name": "test", "shorthand_definition": "  \n "}, http.StatusUnprocessableEntity, ErrEmptyDefinition, "no valid column definitions found"},
		{"empty strict", map[string]string{"table_name": "test", "shorthand_definition": "", "grammar": "colon"}, http.StatusUnprocessableEntity, ErrEmptyDefinition, "no valid column definitions found"},
		{"malformed", map[string]string{"table_name": "test", "shorthand_definition": "a:t d 'x"}, http.StatusUnprocessableEntity, ErrMalformedSegment, "single-quoted"},
		{"missing table", map[string]string{"shorthand_definition": "a t"}, http.StatusBadRequest, ErrMissingField, "Table name is required"},
		{"bad grammar", map[string]string{"table_name": "test", "shorthand_definition": "a t", "grammar": "toml"}, http.StatusBadRequest, ErrInvalidRequest, "unknown grammar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := ts.do(http.MethodPost, "/api/preview", tt.body)
			require.Equal(t, tt.status, code)
			require.False(t, env.Success)
			require.Equal(t, tt.code, env.Error.Code)
			require.Contains(t, env.Error.Message, tt.msg)
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/preview", strings.NewReader("{not json"))
	req.Header.Set(csrfHeader, ts.handler.csrf.Token())
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), ErrInvalidRequest)
}

func TestDefinitionsLifecycle(t *testing.T) {
	ts := newTestServer(t, 1000)

	code, env := ts.do(http.MethodGet, "/api/definitions", nil)
	require.Equal(t, http.StatusOK, code)
	require.Empty(t, decodeData[definitionsData](t, env).Definitions)

	code, env = ts.do(http.MethodPost, "/api/definitions", map[string]string{
		"name":                 "users",
		"shorthand_definition": "name t, email t",
	})
	require.Equal(t, http.StatusCreated, code)
	created := decodeData[store.TableDefinition](t, env)
	require.NotZero(t, created.ID)
	require.Contains(t, created.GeneratedSQL, "  id SERIAL PRIMARY KEY,\n  name TEXT NOT NULL DEFAULT '',\n  email TEXT NOT NULL DEFAULT ''")
	path := "/api/definitions/" + jsonNumber(created.ID)

	code, env = ts.do(http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, created.GeneratedSQL, decodeData[store.TableDefinition](t, env).GeneratedSQL)

	code, env = ts.do(http.MethodPatch, path, map[string]string{"name": "members"})
	require.Equal(t, http.StatusOK, code)
	renamed := decodeData[store.TableDefinition](t, env)
	require.Equal(t, "members", renamed.Name)
	require.Equal(t, created.GeneratedSQL, renamed.GeneratedSQL)

	code, env = ts.do(http.MethodPatch, path, map[string]string{"shorthand_definition": "id:id\nhandle:t"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "CREATE TABLE members (\n  id SERIAL PRIMARY KEY,\n  handle TEXT NOT NULL DEFAULT ''\n);",
		decodeData[store.TableDefinition](t, env).GeneratedSQL)

	code, env = ts.do(http.MethodPatch, path, map[string]string{"shorthand_definition": "x:bogus"})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, ErrUnknownType, env.Error.Code)

	code, env = ts.do(http.MethodGet, "/api/definitions", nil)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, decodeData[definitionsData](t, env).Definitions, 1)

	code, env = ts.do(http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, created.ID, decodeData[store.TableDefinition](t, env).ID)

	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		code, env = ts.do(method, path, map[string]string{"name": "gone"})
		require.Equal(t, http.StatusNotFound, code, method)
		require.Equal(t, ErrNotFound, env.Error.Code)
	}

	code, env = ts.do(http.MethodGet, "/api/definitions/abc", nil)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, ErrInvalidID, env.Error.Code)
}

func TestCreate_CompileFailureStoresNothing(t *testing.T) {
	ts := newTestServer(t, 1000)

	code, env := ts.do(http.MethodPost, "/api/definitions", map[string]string{
		"name":                 "bad",
		"shorthand_definition": "a:t\nb:nope",
	})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, ErrUnknownType, env.Error.Code)

	code, env = ts.do(http.MethodPost, "/api/definitions", map[string]string{
		"name":                 "blank",
		"shorthand_definition": "",
	})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	require.Equal(t, ErrEmptyDefinition, env.Error.Code)

	_, env = ts.do(http.MethodGet, "/api/definitions", nil)
	require.Empty(t, decodeData[definitionsData](t, env).Definitions)
}

func TestTypesAndHealth(t *testing.T) {
	ts := newTestServer(t, 1000)

	code, env := ts.do(http.MethodGet, "/api/types", nil)
	require.Equal(t, http.StatusOK, code)
	types := decodeData[typesData](t, env).Types
	require.Equal(t, shorthand.TypeCodes(), types)

	code, env = ts.do(http.MethodGet, "/api/healthcheck", nil)
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", decodeData[definitions.Health](t, env).Status)
}

func TestCSRFRequired(t *testing.T) {
	ts := newTestServer(t, 1000)

	req := httptest.NewRequest(http.MethodPost, "/api/preview", strings.NewReader(`{"table_name":"a","shorthand_definition":"b t"}`))
	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Contains(t, rec.Body.String(), "CSRF_ERROR")

	req = httptest.NewRequest(http.MethodGet, "/api/definitions", nil)
	rec = httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		code, _ := ts.do(http.MethodGet, "/api/types", nil)
		require.Equal(t, http.StatusOK, code)
	}
	code, env := ts.do(http.MethodGet, "/api/types", nil)
	require.Equal(t, http.StatusTooManyRequests, code)
	require.Equal(t, "RATE_LIMIT", env.Error.Code)
}

func TestStaticForm(t *testing.T) {
	ts := newTestServer(t, 1000)

	rec := httptest.NewRecorder()
	ts.mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "shorthand")
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
