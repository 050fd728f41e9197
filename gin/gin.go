// Package gin provides a wired adapter for the Gin web framework.
//
// Example usage:
//
//	adapter := wiredgin.New(wiredgin.WithMiddleware(gin.Recovery()))
//	if _, err := wired.Apply(adapter, wired.Options{RootModule: AppModule}); err != nil {
//	    log.Fatal(err)
//	}
//	adapter.Engine().Run(":8080")
package gin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/junioryono/wired"
)

// Config holds the configuration of the adapter.
type Config struct {
	// Logger becomes the default AppLogger. If nil, slog.Default is used.
	Logger wired.Logger

	// ValidatorCompiler compiles the schemas of Body and Query pipes.
	ValidatorCompiler wired.ValidatorCompiler

	// Middlewares are installed with Engine.Use before any route.
	Middlewares []gin.HandlerFunc
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

// WithMiddleware adds Gin middleware.
// Multiple middlewares are executed in the order they are added.
//
// Example:
//
//	wiredgin.New(
//	    wiredgin.WithMiddleware(gin.Logger()),
//	    wiredgin.WithMiddleware(gin.Recovery()),
//	)
func WithMiddleware(mw gin.HandlerFunc) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		Logger: slog.Default(),
	}
}

// Adapter registers routes on a Gin engine.
type Adapter struct {
	*wired.BaseAdapter

	engine *gin.Engine
}

// New creates an adapter with a new engine.
func New(opts ...Option) *Adapter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	engine := gin.New()
	engine.Use(cfg.Middlewares...)

	return &Adapter{
		BaseAdapter: wired.NewBaseAdapter(cfg.Logger, cfg.ValidatorCompiler),
		engine:      engine,
	}
}

// Route registers def with the engine.
func (a *Adapter) Route(def wired.RouteDefinition) error {
	if err := a.BaseAdapter.Route(def); err != nil {
		return err
	}
	a.engine.Handle(def.Method, def.URL, gin.WrapH(wired.Serve(def.Handler)))
	return nil
}

// ServeHTTP implements http.Handler.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.engine.ServeHTTP(w, r)
}

// Engine returns the underlying engine.
func (a *Adapter) Engine() *gin.Engine {
	return a.engine
}
