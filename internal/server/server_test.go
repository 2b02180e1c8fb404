package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *Hub, string) {
	t.Helper()
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "index.html"), []byte("<html><body><p>hi</p></body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(out, "site.css"), []byte("body{}"), 0o644))

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "kiln_test_total", Help: "test"}))

	hub := newHub(testLogger())
	srv := httptest.NewServer(newMux(hub, Options{OutputDir: out, Gatherer: reg}))
	t.Cleanup(srv.Close)
	return srv, hub, out
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestLiveReloadWrapper_InjectsScriptIntoHTML(t *testing.T) {
	srv, _, _ := newTestServer(t)

	// "/" serves index.html.
	resp, body := get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "new WebSocket")
	assert.True(t, strings.HasSuffix(body, "</script>\n</body></html>"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
}

func TestLiveReloadWrapper_PassesThroughAssets(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/site.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body{}", body)
}

func TestLiveReloadWrapper_KeepsErrorStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/missing.html")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotContains(t, body, "WebSocket")
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "kiln_test_total 0")
}

func TestHub_BroadcastsReload(t *testing.T) {
	srv, hub, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.clientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.broadcastMessage([]byte("reload"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "reload", string(msg))
}

func TestWatchSet_AddPath(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pages", "a"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "site.yaml"), nil, 0o644))

	w, err := newTestWatchSet(t)
	require.NoError(t, err)
	require.NoError(t, w.addPath(filepath.Join(root, "pages")))
	require.NoError(t, w.addPath(filepath.Join(root, "site.yaml")))
	require.NoError(t, w.addPath(filepath.Join(root, "missing")))

	assert.True(t, w.dirs[filepath.Join(root, "pages")])
	assert.True(t, w.dirs[filepath.Join(root, "pages", "a")])
	assert.True(t, w.dirs[root])
	assert.Len(t, w.dirs, 3)
}

func newTestWatchSet(t *testing.T) (*watchSet, error) {
	t.Helper()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	t.Cleanup(func() { watcher.Close() })
	return &watchSet{watcher: watcher, logger: testLogger(), dirs: make(map[string]bool)}, nil
}

func TestWatchForChanges_RebuildsEditsSavedDuringBuild(t *testing.T) {
	dir := t.TempDir()
	w, err := newTestWatchSet(t)
	require.NoError(t, err)
	require.NoError(t, w.addPath(dir))

	var started atomic.Int32
	release := make(chan struct{})
	done := make(chan struct{}, 10)
	build := func(context.Context, bool) error {
		if started.Add(1) == 1 {
			<-release
		}
		done <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watchForChanges(ctx, w, newHub(testLogger()), build, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.md"), []byte("a"), 0o644))
	require.Eventually(t, func() bool { return started.Load() == 1 }, 2*time.Second, 5*time.Millisecond)

	// Saved while the first build is still running.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("b"), 0o644))
	close(release)

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d builds, want 2", i)
		}
	}
	assert.GreaterOrEqual(t, int(started.Load()), 2)
}
