package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/junioryono/wired"
	wiredchi "github.com/junioryono/wired/chi"
	wiredecho "github.com/junioryono/wired/echo"
	wiredfiber "github.com/junioryono/wired/fiber"
	wiredgin "github.com/junioryono/wired/gin"
	"github.com/junioryono/wired/guards"
	wiredhttp "github.com/junioryono/wired/http"
	"github.com/junioryono/wired/internal/config"
	"github.com/junioryono/wired/internal/demo"
	"github.com/junioryono/wired/logging"
	"github.com/junioryono/wired/validation"
)

// newAdapter creates the router adapter named by the configuration.
func newAdapter(name string, logger wired.Logger) (wired.Adapter, error) {
	compiler := validation.Compiler()

	switch name {
	case "http":
		return wiredhttp.New(wiredhttp.WithLogger(logger), wiredhttp.WithValidatorCompiler(compiler)), nil
	case "chi":
		return wiredchi.New(wiredchi.WithLogger(logger), wiredchi.WithValidatorCompiler(compiler)), nil
	case "echo":
		return wiredecho.New(wiredecho.WithLogger(logger), wiredecho.WithValidatorCompiler(compiler)), nil
	case "gin":
		return wiredgin.New(wiredgin.WithLogger(logger), wiredgin.WithValidatorCompiler(compiler)), nil
	case "fiber":
		return wiredfiber.New(wiredfiber.WithLogger(logger), wiredfiber.WithValidatorCompiler(compiler)), nil
	default:
		return nil, fmt.Errorf("unknown adapter %q", name)
	}
}

// bootstrap wires the demo application with cfg.
func bootstrap(cfg *config.Config) (wired.Adapter, *wired.Application, error) {
	logger, err := logging.New(logging.Options{
		Backend: cfg.Log.Backend,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
	})
	if err != nil {
		return nil, nil, err
	}

	adapter, err := newAdapter(cfg.Server.Adapter, logger)
	if err != nil {
		return nil, nil, err
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		logger.Warn("auth.jwt_secret is not set, using an insecure development secret")
		secret = "wired-development-secret"
	}

	app, err := wired.Apply(adapter, wired.Options{
		RootModule: demo.AppModule(demo.Options{
			Auth: guards.Config{Secret: []byte(secret), TTL: cfg.Auth.TokenTTL},
			Seed: demo.DefaultSeed,
		}),
		AllowCrossModuleCircularReference: cfg.Modules.AllowCrossModuleCircularReference,
		Logger:                            logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return adapter, app, nil
}

// listen serves adapter on addr until ctx is done.
func listen(ctx context.Context, adapter wired.Adapter, addr string) error {
	var (
		serve    func() error
		shutdown func(context.Context) error
	)

	switch a := adapter.(type) {
	case *wiredfiber.Adapter:
		serve = func() error { return a.App().Listen(addr) }
		shutdown = a.App().ShutdownWithContext
	case http.Handler:
		srv := &http.Server{Addr: addr, Handler: a, ReadHeaderTimeout: 10 * time.Second}
		serve = func() error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
		shutdown = srv.Shutdown
	default:
		return fmt.Errorf("adapter %T cannot serve", adapter)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- serve() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
