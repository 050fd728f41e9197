// Package chi provides a wired adapter for the Chi router.
//
// Example usage:
//
//	adapter := wiredchi.New(wiredchi.WithMiddleware(middleware.Logger))
//	if _, err := wired.Apply(adapter, wired.Options{RootModule: AppModule}); err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", adapter)
package chi

import (
	"log/slog"
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/junioryono/wired"
)

// Config holds the configuration of the adapter.
type Config struct {
	// Logger becomes the default AppLogger. If nil, slog.Default is used.
	Logger wired.Logger

	// ValidatorCompiler compiles the schemas of Body and Query pipes.
	ValidatorCompiler wired.ValidatorCompiler

	// Middlewares are installed on the router before any route.
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

// WithMiddleware adds Chi middleware.
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

// Adapter registers routes on a Chi router.
type Adapter struct {
	*wired.BaseAdapter

	router *gochi.Mux
}

// New creates an adapter with a new router.
func New(opts ...Option) *Adapter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	router := gochi.NewRouter()
	router.Use(cfg.Middlewares...)

	return &Adapter{
		BaseAdapter: wired.NewBaseAdapter(cfg.Logger, cfg.ValidatorCompiler),
		router:      router,
	}
}

// Route registers def on the router. Methods Chi does not know are
// registered with it first.
func (a *Adapter) Route(def wired.RouteDefinition) error {
	if err := a.BaseAdapter.Route(def); err != nil {
		return err
	}
	gochi.RegisterMethod(def.Method)
	a.router.Method(def.Method, def.URL, wired.Serve(def.Handler))
	return nil
}

// ServeHTTP implements http.Handler.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// Router returns the underlying router.
func (a *Adapter) Router() *gochi.Mux {
	return a.router
}
