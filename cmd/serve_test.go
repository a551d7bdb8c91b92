package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/sells-group/geostats-cli/internal/artifact"
)

func precalcDir(t *testing.T) string {
	t.Helper()
	c := testConfig(t)
	_, err := runPrecalc(context.Background(), c, nil, time.Now())
	require.NoError(t, err)
	return c.Output.Dir
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRouter_Health(t *testing.T) {
	rr := get(t, newRouter(t.TempDir()), "/health")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Stats(t *testing.T) {
	h := newRouter(precalcDir(t))

	rr := get(t, h, "/api/stats")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), gjson.GetBytes(rr.Body.Bytes(), "global.total").Int())

	rr = get(t, h, "/api/stats/meta")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), gjson.GetBytes(rr.Body.Bytes(), "records").Int())
	assert.False(t, gjson.GetBytes(rr.Body.Bytes(), "colonias").Exists())

	rr = get(t, h, "/api/vialidades")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), gjson.GetBytes(rr.Body.Bytes(), "primarias").Int())
	assert.Equal(t, int64(0), gjson.GetBytes(rr.Body.Bytes(), "intersecciones").Int())
}

func TestRouter_Entities(t *testing.T) {
	h := newRouter(precalcDir(t))

	tests := []struct {
		path    string
		status  int
		wantKey string
	}{
		{"/api/colonias/A", http.StatusOK, "A"},
		{"/api/colonias/a", http.StatusOK, "A"},
		{"/api/colonias/ROMA", http.StatusNotFound, ""},
		{"/api/secciones/14", http.StatusOK, "14"},
		// Section keys keep leading zeros, so 0014 is not 14.
		{"/api/secciones/0014", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := get(t, h, tt.path)
			require.Equal(t, tt.status, rr.Code)
			if tt.wantKey != "" {
				assert.Equal(t, tt.wantKey, gjson.GetBytes(rr.Body.Bytes(), "key").String())
				assert.Equal(t, int64(1), gjson.GetBytes(rr.Body.Bytes(), "stats.total").Int())
			}
		})
	}
}

func TestRouter_Files(t *testing.T) {
	dir := precalcDir(t)
	h := newRouter(dir)

	rr := get(t, h, "/files/"+artifact.ColoniasFile)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "A", gjson.GetBytes(rr.Body.Bytes(), "features.0.properties.STAT_KEY").String())

	rr = get(t, h, "/files/missing.geojson")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_NoStatistics(t *testing.T) {
	rr := get(t, newRouter(t.TempDir()), "/api/stats")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "not generated")
}

func TestRouter_CorruptStatistics(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, artifact.StatsFile), []byte(`{"meta":`), 0o644))

	rr := get(t, newRouter(dir), "/api/stats/meta")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRouter_CORS(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	newRouter(t.TempDir()).ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
