// Package demo is the sample application served by the wired CLI.
package demo

import (
	"github.com/junioryono/wired"
	"github.com/junioryono/wired/guards"
)

// Options configures AppModule.
type Options struct {
	Auth guards.Config
	Seed []Product
}

// DefaultSeed is the catalog the CLI starts with.
var DefaultSeed = []Product{
	{ID: 1, Name: "Keyboard", Price: 4900},
	{ID: 2, Name: "Mouse", Price: 1900},
	{ID: 3, Name: "Monitor", Price: 18900},
}

// AppModule returns the root module.
func AppModule(opts Options) *wired.Module {
	return wired.NewModule("app",
		wired.Prefix("api"),
		wired.Imports(
			guards.Module(opts.Auth),
			CommonModule(),
			CatalogModule(opts.Seed),
			AuthModule(),
		),
	)
}
