package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richshaffer/replay"
)

func TestHealth(t *testing.T) {
	s := newTestServer(t, replay.Options{LoadDir: t.TempDir()})
	w := serve(s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestAdminStatus(t *testing.T) {
	require, assert := require.New(t), assert.New(t)
	loadDir, recordDir := t.TempDir(), t.TempDir()
	s := newTestServer(t, replay.Options{LoadDir: loadDir, RecordDir: recordDir, Fallback: true, Repetition: true})

	w := serve(s, http.MethodGet, "/admin/status")
	require.Equal(http.StatusOK, w.Code)

	var status StatusResponse
	require.NoError(json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(StatusResponse{
		LoadDir:    loadDir,
		RecordDir:  recordDir,
		Fallback:   true,
		Recording:  true,
		Repetition: true,
	}, status)
}

func TestAdminFixtures(t *testing.T) {
	require, assert := require.New(t), assert.New(t)
	upstream := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, req *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			fmt.Fprint(w, req.URL.Path)
		},
	))
	defer upstream.Close()

	s := newTestServer(t, replay.Options{RecordDir: t.TempDir(), Fallback: true})
	for _, p := range []string{"/one", "/two/three"} {
		require.Equal(http.StatusTeapot, serve(s, http.MethodGet, upstream.URL+p).Code)
	}

	w := serve(s, http.MethodGet, "/admin/fixtures/127.0.0.1")
	require.Equal(http.StatusOK, w.Code)
	var fixtures []FixtureSummary
	require.NoError(json.Unmarshal(w.Body.Bytes(), &fixtures))
	require.Len(fixtures, 2)
	for _, f := range fixtures {
		assert.Equal(http.MethodGet, f.Method)
		assert.Equal(http.StatusTeapot, f.Status)
		assert.Equal("http", f.Kind)
		assert.Len(f.Hash, 8)
		assert.NotNil(f.RecordedAt)
	}

	w = serve(s, http.MethodGet, "/admin/fixtures/127.0.0.1/two")
	require.Equal(http.StatusOK, w.Code)
	require.NoError(json.Unmarshal(w.Body.Bytes(), &fixtures))
	require.Len(fixtures, 1)
	assert.Equal(upstream.URL+"/two/three", fixtures[0].URL)

	w = serve(s, http.MethodGet, "/admin/fixtures/unknown.host")
	require.Equal(http.StatusOK, w.Code)
	assert.JSONEq("[]", w.Body.String())

	w = serve(s, http.MethodGet, "/admin/fixtures/../outside")
	assert.Equal(http.StatusBadRequest, w.Code)
}

func TestAdminCounterReset(t *testing.T) {
	s := newTestServer(t, replay.Options{LoadDir: t.TempDir(), Repetition: true})
	b := s.RoundTripper().Bundle
	b.LoadCounter.Next("http://tasty.co/")
	b.RecordCounter.Next("http://tasty.co/")

	w := serve(s, http.MethodPost, "/admin/counter/reset")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, b.LoadCounter.Peek("http://tasty.co/"))
	assert.Zero(t, b.RecordCounter.Peek("http://tasty.co/"))

	w = serve(s, http.MethodGet, "/admin/counter/reset")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, replay.Options{LoadDir: t.TempDir()})
	serve(s, http.MethodGet, "http://www.buzzfeed.com/missing")

	w := serve(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `replay_resolutions_total{source="none"} 1`)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
