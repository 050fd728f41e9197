// Package echo provides a wired adapter for the Echo web framework.
//
// Example usage:
//
//	adapter := wiredecho.New(wiredecho.WithMiddleware(middleware.Recover()))
//	if _, err := wired.Apply(adapter, wired.Options{RootModule: AppModule}); err != nil {
//	    log.Fatal(err)
//	}
//	adapter.Echo().Start(":8080")
package echo

import (
	"log/slog"
	"net/http"

	"github.com/junioryono/wired"
	"github.com/labstack/echo/v4"
)

// Config holds the configuration of the adapter.
type Config struct {
	// Logger becomes the default AppLogger. If nil, slog.Default is used.
	Logger wired.Logger

	// ValidatorCompiler compiles the schemas of Body and Query pipes.
	ValidatorCompiler wired.ValidatorCompiler

	// Middlewares are installed with Echo.Use.
	Middlewares []echo.MiddlewareFunc
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

// WithMiddleware adds Echo middleware.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw echo.MiddlewareFunc) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		Logger: slog.Default(),
	}
}

// Adapter registers routes on an Echo instance.
type Adapter struct {
	*wired.BaseAdapter

	echo *echo.Echo
}

// New creates an adapter with a new Echo instance.
func New(opts ...Option) *Adapter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(cfg.Middlewares...)

	return &Adapter{
		BaseAdapter: wired.NewBaseAdapter(cfg.Logger, cfg.ValidatorCompiler),
		echo:        e,
	}
}

// Route registers def with Echo. The route handler writes its own
// response, so Echo's error handler only sees routing errors.
func (a *Adapter) Route(def wired.RouteDefinition) error {
	if err := a.BaseAdapter.Route(def); err != nil {
		return err
	}
	a.echo.Add(def.Method, def.URL, echo.WrapHandler(wired.Serve(def.Handler)))
	return nil
}

// ServeHTTP implements http.Handler.
func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.echo.ServeHTTP(w, r)
}

// Echo returns the underlying Echo instance.
func (a *Adapter) Echo() *echo.Echo {
	return a.echo
}
