package wired_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/junioryono/wired"
	"github.com/stretchr/testify/require"
)

// logEntry is one call recorded by captureLogger.
type logEntry struct {
	Level   string
	Message string
	Args    []any
}

// captureLogger records every message it receives.
type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) log(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{Level: level, Message: msg, Args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.log("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.log("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.log("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.log("error", msg, args) }

func (l *captureLogger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []string
	for _, e := range l.entries {
		if e.Level == level {
			out = append(out, e.Message)
		}
	}
	return out
}

// recordingAdapter records the validator compiler that was installed when
// each route was registered.
type recordingAdapter struct {
	*wired.BaseAdapter

	mu         sync.Mutex
	compilerAt []wired.ValidatorCompiler
}

func newAdapter(compiler wired.ValidatorCompiler) *recordingAdapter {
	return &recordingAdapter{BaseAdapter: wired.NewBaseAdapter(&captureLogger{}, compiler)}
}

func (a *recordingAdapter) Route(def wired.RouteDefinition) error {
	a.mu.Lock()
	a.compilerAt = append(a.compilerAt, a.ValidatorCompiler())
	a.mu.Unlock()
	return a.BaseAdapter.Route(def)
}

func (a *recordingAdapter) logger() *captureLogger {
	return a.Logger().(*captureLogger)
}

// mux mounts the recorded routes on a ServeMux.
func (a *recordingAdapter) mux() http.Handler {
	mux := http.NewServeMux()
	for _, def := range a.Routes() {
		mux.Handle(def.Method+" "+def.URL, wired.Serve(def.Handler))
	}
	return mux
}

func (a *recordingAdapter) route(t *testing.T, method, url string) wired.RouteDefinition {
	t.Helper()
	for _, def := range a.Routes() {
		if def.Method == method && def.URL == url {
			return def
		}
	}
	require.FailNow(t, fmt.Sprintf("route %s %s not registered", method, url))
	return wired.RouteDefinition{}
}

// apply registers root with a fresh adapter and fails the test on error.
func apply(t *testing.T, root *wired.Module) (*wired.Application, *recordingAdapter) {
	t.Helper()
	adapter := newAdapter(nil)
	app, err := wired.Apply(adapter, wired.Options{RootModule: root})
	require.NoError(t, err)
	return app, adapter
}

func request(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// trace is shared by middleware fixtures to record call order.
type trace struct {
	mu    sync.Mutex
	steps []string
}

func (t *trace) add(step string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.steps = append(t.steps, step)
}

func (t *trace) Steps() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.steps...)
}

const traceToken = wired.Name("trace")

func traceProvider() (*trace, wired.Provider) {
	tr := &trace{}
	return tr, wired.UseValue(traceToken, tr)
}
