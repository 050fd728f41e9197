package wired

import (
	"net/http"
	"sync"
)

// ValidateFunc validates a decoded value. It returns nil when the value is
// valid.
type ValidateFunc func(value any) error

// ValidatorCompiler builds the validation function of a schema. A nil
// ValidateFunc disables validation for that schema.
type ValidatorCompiler func(schema *Schema) ValidateFunc

// HandlerFunc handles one request. A non-nil value is written as the
// response body unless the response was already written. The returned
// error is only set when writing an error response failed.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) (any, error)

// RouteDefinition is what registration hands to the adapter for every
// route.
type RouteDefinition struct {
	Method  string
	URL     string
	Options RouteOptions
	Handler HandlerFunc
}

// Adapter connects registration to an HTTP router.
//
// Registration replaces the validator compiler with a no-op while routes
// are registered and restores the previous compiler afterwards.
type Adapter interface {
	// Route registers a route with the router.
	Route(def RouteDefinition) error

	// ValidatorCompiler returns the current validator compiler.
	ValidatorCompiler() ValidatorCompiler

	// SetValidatorCompiler replaces the validator compiler.
	SetValidatorCompiler(c ValidatorCompiler)

	// Logger returns the adapter's logger. It becomes the AppLogger
	// instance when no provider claims that token.
	Logger() Logger
}

// BaseAdapter implements the validator compiler and logger parts of
// Adapter and records every registered route. Router adapters embed it.
type BaseAdapter struct {
	mu       sync.RWMutex
	compiler ValidatorCompiler
	logger   Logger
	routes   []RouteDefinition
}

// NewBaseAdapter creates a BaseAdapter. A nil logger uses slog.Default.
func NewBaseAdapter(logger Logger, compiler ValidatorCompiler) *BaseAdapter {
	if logger == nil {
		logger = defaultLogger()
	}
	return &BaseAdapter{logger: logger, compiler: compiler}
}

// Route records def. A method and URL pair may be registered once.
func (a *BaseAdapter) Route(def RouteDefinition) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range a.routes {
		if r.Method == def.Method && r.URL == def.URL {
			return RouteConflictError{Method: def.Method, URL: def.URL}
		}
	}
	a.routes = append(a.routes, def)
	return nil
}

// Routes returns the recorded routes.
func (a *BaseAdapter) Routes() []RouteDefinition {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]RouteDefinition(nil), a.routes...)
}

func (a *BaseAdapter) ValidatorCompiler() ValidatorCompiler {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.compiler
}

func (a *BaseAdapter) SetValidatorCompiler(c ValidatorCompiler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.compiler = c
}

func (a *BaseAdapter) Logger() Logger {
	return a.logger
}

// Serve turns a HandlerFunc into an http.HandlerFunc that writes its
// result.
func Serve(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rw := NewResponseWriter(w)
		v, err := h(rw, r)
		Respond(rw, v, err)
	}
}

// noopCompiler is installed while routes are registered.
func noopCompiler(*Schema) ValidateFunc { return nil }
