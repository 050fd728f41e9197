// Package http provides a wired adapter for the standard library's
// http.ServeMux.
//
// Example usage:
//
//	adapter := wiredhttp.New(wiredhttp.WithLogger(logger))
//	if _, err := wired.Apply(adapter, wired.Options{RootModule: AppModule}); err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", adapter)
package http

import (
	"log/slog"
	"net/http"

	"github.com/junioryono/wired"
)

// Config holds the configuration of the adapter.
type Config struct {
	// Logger becomes the default AppLogger. If nil, slog.Default is used.
	Logger wired.Logger

	// ValidatorCompiler compiles the schemas of Body and Query pipes.
	ValidatorCompiler wired.ValidatorCompiler

	// Middlewares wrap the mux. The first one added is the outermost.
	Middlewares []func(http.Handler) http.Handler
}

// Option configures the adapter.
type Option func(*Config)

// WithLogger sets the adapter's logger.
func WithLogger(l wired.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithValidatorCompiler sets the validator compiler.
func WithValidatorCompiler(vc wired.ValidatorCompiler) Option {
	return func(c *Config) {
		c.ValidatorCompiler = vc
	}
}

// WithMiddleware adds a middleware wrapping every request.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		Logger: slog.Default(),
	}
}

// Adapter registers routes on an http.ServeMux.
type Adapter struct {
	*wired.BaseAdapter

	mux     *http.ServeMux
	handler http.Handler
}

// New creates an adapter with an empty mux.
func New(opts ...Option) *Adapter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	mux := http.NewServeMux()
	var handler http.Handler = mux
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		handler = cfg.Middlewares[i](handler)
	}

	return &Adapter{
		BaseAdapter: wired.NewBaseAdapter(cfg.Logger, cfg.ValidatorCompiler),
		mux:         mux,
		handler:     handler,
	}
}

// Route registers def on the mux.
func (a *Adapter) Route(def wired.RouteDefinition) error {
	if err := a.BaseAdapter.Route(def); err != nil {
		return err
	}
	a.mux.Handle(pattern(def), wired.Serve(def.Handler))
	return nil
}

// pattern returns the ServeMux pattern of def. The root URL matches only
// itself.
func pattern(def wired.RouteDefinition) string {
	if def.URL == "/" {
		return def.Method + " /{$}"
	}
	return def.Method + " " + def.URL
}

// ServeHTTP implements http.Handler.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// Mux returns the underlying mux.
func (a *Adapter) Mux() *http.ServeMux {
	return a.mux
}
