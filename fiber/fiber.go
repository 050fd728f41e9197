// Package fiber provides a wired adapter for the Fiber web framework.
//
// Route handlers are net/http handlers; they are mounted on Fiber through
// its adaptor middleware.
//
// Example usage:
//
//	adapter := wiredfiber.New()
//	if _, err := wired.Apply(adapter, wired.Options{RootModule: AppModule}); err != nil {
//	    log.Fatal(err)
//	}
//	adapter.App().Listen(":8080")
package fiber

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/junioryono/wired"
)

// Config holds the configuration of the adapter.
type Config struct {
	// Logger becomes the default AppLogger. If nil, slog.Default is used.
	Logger wired.Logger

	// ValidatorCompiler compiles the schemas of Body and Query pipes.
	ValidatorCompiler wired.ValidatorCompiler

	// App configures the Fiber application.
	App fiber.Config

	// Middlewares are installed with App.Use before any route.
	Middlewares []fiber.Handler
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

// WithAppConfig sets the Fiber application configuration.
func WithAppConfig(app fiber.Config) Option {
	return func(c *Config) {
		c.App = app
	}
}

// WithMiddleware adds Fiber middleware.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw fiber.Handler) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func defaultConfig() *Config {
	return &Config{
		Logger: slog.Default(),
		App:    fiber.Config{DisableStartupMessage: true},
	}
}

// Adapter registers routes on a Fiber application.
type Adapter struct {
	*wired.BaseAdapter

	app *fiber.App
}

// New creates an adapter with a new Fiber application.
func New(opts ...Option) *Adapter {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	app := fiber.New(cfg.App)
	for _, mw := range cfg.Middlewares {
		app.Use(mw)
	}

	return &Adapter{
		BaseAdapter: wired.NewBaseAdapter(cfg.Logger, cfg.ValidatorCompiler),
		app:         app,
	}
}

// Route registers def with the application.
func (a *Adapter) Route(def wired.RouteDefinition) error {
	if err := a.BaseAdapter.Route(def); err != nil {
		return err
	}
	a.app.Add(def.Method, def.URL, adaptor.HTTPHandler(wired.Serve(def.Handler)))
	return nil
}

// App returns the underlying Fiber application.
func (a *Adapter) App() *fiber.App {
	return a.app
}
