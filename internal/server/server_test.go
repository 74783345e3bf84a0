package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/quiverkit/pkg/cache"
	"github.com/matzehuels/quiverkit/pkg/errors"
	"github.com/matzehuels/quiverkit/pkg/pipeline"
	"github.com/matzehuels/quiverkit/pkg/store"
)

const square = `\begin{tikzcd} A \arrow[r, "f"] & B \end{tikzcd}`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := New(Options{
		Runner: pipeline.NewRunner(cache.NewNullCache(), nil, nil),
		Store:  store.NewMemoryStore(),
	})
	t.Cleanup(func() { s.Close() })
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func jsonBody(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(t), "GET", "/healthz", "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[healthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.Version)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/healthz", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(RequestIDHeader, "7f1c3f4e-8a0b-4c39-9d8e-2b5f0c6a1d22")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.Equal(t, "7f1c3f4e-8a0b-4c39-9d8e-2b5f0c6a1d22", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest("GET", "/healthz", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	w = httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
}

func TestImport(t *testing.T) {
	w := do(t, newTestServer(t), "POST", "/v1/import", jsonBody(t, map[string]any{"source": square}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[importResponse](t, w)
	assert.JSONEq(t, `[0,2,[0,0,"A"],[1,0,"B"],[0,1,"f"]]`, string(resp.Diagram))
	assert.True(t, strings.HasPrefix(resp.URL, pipeline.DefaultBaseURL+"#q="))
	assert.Empty(t, resp.Diagnostics)
	assert.False(t, resp.Cached)
}

func TestImportReportsDiagnostics(t *testing.T) {
	source := `\begin{tikzcd} A \arrow[r, "f"] & B`
	w := do(t, newTestServer(t), "POST", "/v1/import", jsonBody(t, map[string]any{"source": source}))

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody[importResponse](t, w)
	require.NotEmpty(t, resp.Diagnostics)
	assert.True(t, resp.Diagnostics.HasFatal())
}

func TestImportStrict(t *testing.T) {
	source := `\begin{tikzcd} A \arrow[r, "f"] & B`
	w := do(t, newTestServer(t), "POST", "/v1/import", jsonBody(t, map[string]any{"source": source, "strict": true}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, string(errors.ErrCodeParseFailed), decodeBody[errorResponse](t, w).Error)
}

func TestImportBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   errors.Code
	}{
		{"empty source", `{"source": ""}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"negative cell size", jsonBody(t, map[string]any{"source": square, "cell_size": -1}), http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"malformed body", `{"source":`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
		{"unknown field", `{"src": "x"}`, http.StatusBadRequest, errors.ErrCodeInvalidInput},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, "POST", "/v1/import", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, string(tt.code), decodeBody[errorResponse](t, w).Error)
		})
	}
}

func TestImportBodyTooLarge(t *testing.T) {
	body := `{"source": "` + strings.Repeat("a", maxBodyBytes) + `"}`
	w := do(t, newTestServer(t), "POST", "/v1/import", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestExport(t *testing.T) {
	body := `{"diagram": [0,2,[0,0,"A"],[1,0,"B"],[0,1,"f"]], "formats": ["tikz-cd", "json"]}`
	w := do(t, newTestServer(t), "POST", "/v1/export", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[exportResponse](t, w)
	assert.Equal(t, "\\begin{tikzcd}\n\t{A} & {B}\n\t\\arrow[\"f\", from=1-1, to=1-2]\n\\end{tikzcd}", resp.Outputs["tikz-cd"])
	assert.Equal(t, `[0,2,[0,0,"A"],[1,0,"B"],[0,1,"f"]]`, resp.Outputs["json"])
	assert.Empty(t, resp.Incompatibilities)
	assert.NotNil(t, resp.Dependencies)
}

func TestExportUsesDefaults(t *testing.T) {
	s := New(Options{
		Runner:   pipeline.NewRunner(cache.NewNullCache(), nil, nil),
		Defaults: pipeline.Options{Centre: true},
	})
	defer s.Close()

	w := do(t, s, "POST", "/v1/export", `{"diagram": [0,1,[0,0,"A"]]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(decodeBody[exportResponse](t, w).Outputs["tikz-cd"], `\[`))

	w = do(t, s, "POST", "/v1/export", `{"diagram": [0,1,[0,0,"A"]], "centre": false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(decodeBody[exportResponse](t, w).Outputs["tikz-cd"], `\begin`))
}

func TestExportErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"missing diagram", `{}`, errors.ErrCodeInvalidInput},
		{"malformed cell", `{"diagram": [0,1,[0,0,"A"],[0,7]]}`, errors.ErrCodeInvalidCell},
		{"unknown version", `{"diagram": [1,0]}`, errors.ErrCodeInvalidVersion},
		{"unknown format", `{"diagram": [0,0], "formats": ["png"]}`, errors.ErrCodeInvalidFormat},
	}

	s := newTestServer(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, "POST", "/v1/export", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, string(tt.code), decodeBody[errorResponse](t, w).Error)
		})
	}
}

func TestDiagramLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "POST", "/v1/diagrams", `{"diagram": [0,2,[0,0,"A"],[1,0,"B"],[0,1,"f"]], "title": " Arrow "}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeBody[map[string]any](t, w)
	id, _ := created["id"].(string)
	require.Len(t, id, 36)
	assert.Equal(t, "/v1/diagrams/"+id, w.Header().Get("Location"))
	assert.Equal(t, "Arrow", created["title"])
	assert.Contains(t, created["url"], "#q=")

	w = do(t, s, "GET", "/v1/diagrams/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	fetched := decodeBody[map[string]any](t, w)
	assert.Equal(t, created["diagram"], fetched["diagram"])
	assert.Equal(t, created["url"], fetched["url"])

	w = do(t, s, "DELETE", "/v1/diagrams/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, s, "GET", "/v1/diagrams/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(errors.ErrCodeNotFound), decodeBody[errorResponse](t, w).Error)
}

func TestCreateDiagramRejectsMalformedCells(t *testing.T) {
	w := do(t, newTestServer(t), "POST", "/v1/diagrams", `{"diagram": [0,1,[0,0,"A"],[0,7]]}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeBody[errorResponse](t, w)
	assert.Equal(t, string(errors.ErrCodeInvalidCell), resp.Error)
	assert.Contains(t, resp.Message, "cell 1")
}

func TestGetDiagramInvalidID(t *testing.T) {
	w := do(t, newTestServer(t), "GET", "/v1/diagrams/nope", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(errors.ErrCodeInvalidID), decodeBody[errorResponse](t, w).Error)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, "GET", "/v2/import", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, "GET", "/v1/import", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestLogRequestsReportsRoutePattern(t *testing.T) {
	var buf bytes.Buffer
	s := newTestServer(t)
	s.logger.SetOutput(&buf)
	s.logger.SetLevel(log.InfoLevel)

	do(t, s, "GET", "/v1/diagrams/7f1c3f4e-8a0b-4c39-9d8e-2b5f0c6a1d22", "")
	assert.Contains(t, buf.String(), "/v1/diagrams/{id}")
	assert.Contains(t, buf.String(), "status=404")
}
