package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appYAML = `
name: demo
services:
  - id: wms
    protocol: wms
    url: https://example.com/wms
layers:
  - id: 1
    layerName: roads
    visible: true
    opacity: 100
    serviceId: wms
layerTree:
  - id: root
    root: true
    childrenIds: [l1]
  - id: l1
    appLayerId: 1
backgroundTree:
  - id: bg
    root: true
    childrenIds: []
`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(appYAML), 0o644))

	srv, err := New(Config{Host: "localhost", Port: "0", DataDir: dir, AppConfig: cfg})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func TestRoot(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "plat-viewer", body["service"])

	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViewerPage(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/viewer", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/api/v1/viewer/events")
}

func TestLoadsApplicationConfig(t *testing.T) {
	srv := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/layers/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "roads")
}

func TestOpenAPI(t *testing.T) {
	srv := newTestServer(t)

	spec := srv.OpenAPI()
	require.NotNil(t, spec)
	assert.Contains(t, spec.Paths, "/api/v1/layers")
	assert.Contains(t, spec.Paths, "/api/v1/viewer/events")
}
