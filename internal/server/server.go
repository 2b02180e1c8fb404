// internal/server/server.go
package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"kiln/internal/logfields"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const debounceDuration = 300 * time.Millisecond

// BuildFunc rebuilds the site. clean asks for the output directory to be
// emptied first.
type BuildFunc func(ctx context.Context, clean bool) error

// Options configures the development server.
type Options struct {
	Addr       string
	OutputDir  string
	WatchPaths []string
	// Gatherer backs /metrics; nil disables the endpoint.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Run builds the site, serves the output directory with live reload and
// rebuilds on changes under the watch paths until ctx is cancelled.
func Run(ctx context.Context, opts Options, build BuildFunc) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := build(ctx, true); err != nil {
		return fmt.Errorf("initial build failed: %w", err)
	}

	hub := newHub(logger)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create file watcher: %w", err)
	}
	defer watcher.Close()

	w := &watchSet{watcher: watcher, logger: logger, dirs: make(map[string]bool)}
	for _, path := range opts.WatchPaths {
		if err := w.addPath(path); err != nil {
			return err
		}
	}

	go watchForChanges(ctx, w, hub, build, debounceDuration)

	srv := &http.Server{Addr: opts.Addr, Handler: newMux(hub, opts)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving site", slog.String("addr", "http://localhost"+displayAddr(opts.Addr)), logfields.Path(opts.OutputDir))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newMux(hub *Hub, opts Options) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.Handle("/", liveReloadWrapper(http.FileServer(http.Dir(opts.OutputDir))))
	return mux
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return addr
	}
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return addr
}

// watchSet adds directories to the watcher once each.
type watchSet struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	dirs    map[string]bool
}

func (w *watchSet) addDir(dir string) {
	dir = filepath.Clean(dir)
	if w.dirs[dir] {
		return
	}
	if err := w.watcher.Add(dir); err != nil {
		w.logger.Warn("Could not watch directory", logfields.Path(dir), logfields.Error(err))
		return
	}
	w.logger.Debug("Watching directory", logfields.Path(dir))
	w.dirs[dir] = true
}

// addPath watches a directory tree, or the parent directory of a file so that
// editors which save by rename are still seen. Missing paths are skipped.
func (w *watchSet) addPath(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not stat path %s: %w", path, err)
	}
	if !info.IsDir() {
		w.addDir(filepath.Dir(path))
		return nil
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			w.addDir(p)
		}
		return nil
	})
}

// watchForChanges rebuilds once no event has arrived for debounce. Events
// received while a build runs re-arm the timer, so they trigger another build.
func watchForChanges(ctx context.Context, w *watchSet, hub *Hub, build BuildFunc, debounce time.Duration) {
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	var changed string
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addPath(event.Name)
				}
			}
			changed = event.Name
			timer.Reset(debounce)
		case <-timer.C:
			w.logger.Info("Change detected, rebuilding", logfields.Path(changed))
			if err := build(ctx, false); err != nil {
				w.logger.Error("Rebuild failed", logfields.Error(err))
			} else {
				hub.broadcastMessage([]byte("reload"))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

// liveReloadWrapper disables caching and injects the reload script before
// </body> in successful HTML responses.
func liveReloadWrapper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		w.Header().Set("Pragma", "no-cache")
		w.Header().Set("Expires", "0")

		isHTML := strings.HasSuffix(r.URL.Path, ".html") || strings.HasSuffix(r.URL.Path, "/")
		if !isHTML {
			next.ServeHTTP(w, r)
			return
		}

		iw := newInterceptingWriter(w)
		next.ServeHTTP(iw, r)

		for key, values := range iw.Header() {
			if key == "Content-Length" {
				continue
			}
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}

		body := iw.body.Bytes()
		if iw.statusCode != http.StatusOK {
			w.WriteHeader(iw.statusCode)
			_, _ = w.Write(body)
			return
		}

		injected := bytes.Replace(body, []byte("</body>"), []byte(liveReloadScript+"</body>"), 1)
		w.Header().Set("Content-Length", fmt.Sprint(len(injected)))
		w.WriteHeader(iw.statusCode)
		_, _ = w.Write(injected)
	})
}

type interceptingWriter struct {
	http.ResponseWriter
	body       *bytes.Buffer
	statusCode int
	header     http.Header
}

func newInterceptingWriter(w http.ResponseWriter) *interceptingWriter {
	return &interceptingWriter{
		ResponseWriter: w,
		body:           new(bytes.Buffer),
		header:         make(http.Header),
		statusCode:     http.StatusOK,
	}
}

func (iw *interceptingWriter) Header() http.Header {
	return iw.header
}

func (iw *interceptingWriter) Write(b []byte) (int, error) {
	return iw.body.Write(b)
}

func (iw *interceptingWriter) WriteHeader(statusCode int) {
	iw.statusCode = statusCode
}

const liveReloadScript = `
<script>
  (function() {
    let socket = new WebSocket("ws://" + window.location.host + "/ws");
    socket.onmessage = function(event) {
      if (event.data === "reload") {
        window.location.reload();
      }
    };
    socket.onerror = function() {
      console.error("Live reload connection error. Please restart 'kiln serve'.");
    };
  })();
</script>
`
