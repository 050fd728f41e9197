package wired_test

import (
	"bytes"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/junioryono/wired"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ping struct {
	Pong *pong `inject:""`
}

type pong struct {
	Ping *ping `inject:""`
}

var (
	pingClass = wired.Injectable[ping]()
	pongClass = wired.Injectable[pong]()
)

type appConfig struct {
	DSN string
}

type appRepo struct {
	Config *appConfig `inject:"config"`
}

type appService struct {
	Repo   *appRepo     `inject:""`
	Logger wired.Logger `inject:"APP_LOGGER"`
}

type settings struct {
	Port  int    `inject:"port"`
	Debug bool   `inject:"debug"`
	Host  string `inject:"host"`
}

var (
	appRepoClass    = wired.Injectable[appRepo]()
	appServiceClass = wired.Injectable[appService]()
	settingsClass   = wired.Injectable[settings]()
)

func TestApply(t *testing.T) {
	t.Run("nil arguments", func(t *testing.T) {
		t.Parallel()

		_, err := wired.Apply(nil, wired.Options{RootModule: wired.NewModule("app")})
		assert.ErrorIs(t, err, wired.ErrAdapterNil)

		_, err = wired.Apply(newAdapter(nil), wired.Options{})
		assert.ErrorIs(t, err, wired.ErrRootModuleNil)
	})

	t.Run("wires providers across modules", func(t *testing.T) {
		t.Parallel()

		cfg := &appConfig{DSN: "postgres://"}
		data := wired.NewModule("data",
			wired.Providers(wired.UseValue(wired.Name("config"), cfg), appRepoClass),
			wired.Exports(appRepoClass),
		)
		root := wired.NewModule("app",
			wired.Imports(data),
			wired.Providers(appServiceClass),
		)

		app, adapter := apply(t, root)

		svc, err := wired.Resolve[*appService](app, appServiceClass)
		require.NoError(t, err)
		require.NotNil(t, svc.Repo)
		assert.Same(t, cfg, svc.Repo.Config)
		assert.Same(t, adapter.Logger(), svc.Logger)

		repo, err := wired.Resolve[*appRepo](app, wired.Class[appRepo]())
		require.NoError(t, err)
		assert.Same(t, svc.Repo, repo)
	})

	t.Run("field dependencies may form cycles", func(t *testing.T) {
		t.Parallel()

		app, _ := apply(t, wired.NewModule("app", wired.Providers(pingClass, pongClass)))

		p, err := wired.Resolve[*ping](app, pingClass)
		require.NoError(t, err)
		require.NotNil(t, p.Pong)
		assert.Same(t, p, p.Pong.Ping)
	})

	t.Run("inaccessible dependency", func(t *testing.T) {
		t.Parallel()

		data := wired.NewModule("data",
			wired.Providers(wired.UseValue(wired.Name("config"), &appConfig{}), appRepoClass),
		)
		root := wired.NewModule("app",
			wired.Imports(data),
			wired.Providers(appServiceClass),
		)

		_, err := wired.Apply(newAdapter(nil), wired.Options{RootModule: root})
		require.Error(t, err)
		assert.True(t, wired.IsAccessError(err))

		var access wired.AccessError
		require.ErrorAs(t, err, &access)
		assert.Equal(t, "app", access.Module)
		assert.Equal(t, appRepoClass.Key(), access.Dependency.Key())
		assert.Contains(t, access.Accessible, appServiceClass.Key())
		assert.Contains(t, err.Error(), "accessible tokens")
	})

	t.Run("global modules are visible everywhere", func(t *testing.T) {
		t.Parallel()

		cfg := wired.NewModule("config",
			wired.Providers(wired.UseValue(wired.Name("config"), &appConfig{DSN: "x"})),
			wired.Exports(wired.Name("config")),
			wired.IsGlobal(),
		)
		data := wired.NewModule("data", wired.Providers(appRepoClass))
		root := wired.NewModule("app", wired.Imports(cfg, data))

		app, _ := apply(t, root)
		repo, err := wired.Resolve[*appRepo](app, appRepoClass)
		require.NoError(t, err)
		assert.Equal(t, "x", repo.Config.DSN)
	})

	t.Run("Global imports a module as global", func(t *testing.T) {
		t.Parallel()

		cfg := wired.NewModule("config",
			wired.Providers(wired.UseValue(wired.Name("config"), &appConfig{})),
			wired.Exports(wired.Name("config")),
		)
		data := wired.NewModule("data", wired.Providers(appRepoClass))
		root := wired.NewModule("app", wired.Imports(wired.Global(cfg), data))

		_, _ = apply(t, root)
	})
}

func TestApply_ModuleCycles(t *testing.T) {
	t.Run("import cycle", func(t *testing.T) {
		t.Parallel()

		var b *wired.Module
		a := wired.NewModule("a", wired.Imports(wired.ForwardRef(func() wired.Import { return b })))
		b = wired.NewModule("b", wired.Imports(a))

		_, err := wired.Apply(newAdapter(nil), wired.Options{RootModule: a, AllowCrossModuleCircularReference: true})
		require.Error(t, err)
		assert.True(t, wired.IsModuleCycle(err))

		var cycle wired.ModuleCycleError
		require.ErrorAs(t, err, &cycle)
		assert.False(t, cycle.Reimport)
		assert.Equal(t, []string{"a", "b", "a"}, cycle.Path)
	})

	diamond := func(counter *atomic.Int32) *wired.Module {
		d := wired.NewModule("d",
			wired.Providers(wired.UseFactory(wired.Name("d"), func(...any) (any, error) {
				return counter.Add(1), nil
			})),
			wired.Exports(wired.Name("d")),
		)
		b := wired.NewModule("b", wired.Imports(d))
		c := wired.NewModule("c", wired.Imports(d))
		return wired.NewModule("a", wired.Imports(b, c))
	}

	t.Run("re-import is rejected by default", func(t *testing.T) {
		t.Parallel()

		var counter atomic.Int32
		_, err := wired.Apply(newAdapter(nil), wired.Options{RootModule: diamond(&counter)})
		require.Error(t, err)

		var cycle wired.ModuleCycleError
		require.ErrorAs(t, err, &cycle)
		assert.True(t, cycle.Reimport)
		assert.Equal(t, []string{"a", "c", "d"}, cycle.Path)
	})

	t.Run("re-import is allowed with the option", func(t *testing.T) {
		t.Parallel()

		var counter atomic.Int32
		app, err := wired.Apply(newAdapter(nil), wired.Options{
			RootModule:                        diamond(&counter),
			AllowCrossModuleCircularReference: true,
		})
		require.NoError(t, err)
		assert.Equal(t, int32(1), counter.Load())

		v, ok := app.Get(wired.Name("d"))
		require.True(t, ok)
		assert.Equal(t, int32(1), v)
	})
}

type denyGuard struct{}

func (denyGuard) CanActivate(*wired.ExecutionContext) (bool, error) { return false, nil }

type allowGuard struct{}

func (allowGuard) CanActivate(*wired.ExecutionContext) (bool, error) { return true, nil }

var (
	denyGuardClass  = wired.GuardClass[denyGuard]()
	allowGuardClass = wired.GuardClass[allowGuard]()
)

func TestApply_ReservedTokens(t *testing.T) {
	t.Run("claimed twice", func(t *testing.T) {
		t.Parallel()

		auth := wired.NewModule("auth", wired.Providers(wired.UseClass(wired.AppGuard, denyGuardClass)))
		admin := wired.NewModule("admin", wired.Providers(wired.UseClass(wired.AppGuard, allowGuardClass)))
		root := wired.NewModule("app", wired.Imports(auth, admin))

		_, err := wired.Apply(newAdapter(nil), wired.Options{RootModule: root})
		require.Error(t, err)
		assert.ErrorIs(t, err, wired.ErrReservedTokenClaimed)

		var reserved wired.ReservedTokenError
		require.ErrorAs(t, err, &reserved)
		assert.Equal(t, "admin", reserved.Module)
	})

	t.Run("logger defaults to the adapter logger", func(t *testing.T) {
		t.Parallel()

		app, adapter := apply(t, wired.NewModule("app"))

		v, ok := app.Get(wired.AppLogger)
		require.True(t, ok)
		assert.Same(t, adapter.Logger(), v)
		assert.Same(t, adapter.Logger(), app.Logger())
		assert.Contains(t, adapter.logger().Messages("info"), "modules registered")
	})

	t.Run("options logger is used for registration", func(t *testing.T) {
		t.Parallel()

		logger := &captureLogger{}
		adapter := newAdapter(nil)
		app, err := wired.Apply(adapter, wired.Options{RootModule: wired.NewModule("app"), Logger: logger})
		require.NoError(t, err)

		assert.Same(t, logger, app.Logger())
		assert.Contains(t, logger.Messages("info"), "modules registered")
		assert.Empty(t, adapter.logger().Messages("info"))
	})

	t.Run("a provided logger wins", func(t *testing.T) {
		t.Parallel()

		logger := &captureLogger{}
		root := wired.NewModule("app",
			wired.Imports(wired.NewModule("logging", wired.Providers(wired.UseValue(wired.AppLogger, logger)))),
			wired.Providers(wired.UseValue(wired.Name("config"), &appConfig{}), appRepoClass, appServiceClass),
		)

		app, _ := apply(t, root)
		svc, err := wired.Resolve[*appService](app, appServiceClass)
		require.NoError(t, err)
		assert.Same(t, logger, svc.Logger)
		assert.Same(t, logger, app.Logger())
	})
}

type factoryDep struct{ N int }

func TestApply_Providers(t *testing.T) {
	t.Run("factory receives its dependencies in order", func(t *testing.T) {
		t.Parallel()

		root := wired.NewModule("app", wired.Providers(
			wired.UseValue(wired.Name("a"), 1),
			wired.UseValue(wired.Name("b"), 2),
			wired.UseFactory(wired.Name("sum"), func(deps ...any) (any, error) {
				return &factoryDep{N: deps[0].(int)*10 + deps[1].(int)}, nil
			}, wired.Name("a"), wired.Name("b")),
		))

		app, _ := apply(t, root)
		dep, err := wired.Resolve[*factoryDep](app, wired.Name("sum"))
		require.NoError(t, err)
		assert.Equal(t, 12, dep.N)
	})

	t.Run("factories are not reordered", func(t *testing.T) {
		t.Parallel()

		root := wired.NewModule("app", wired.Providers(
			wired.UseFactory(wired.Name("sum"), func(deps ...any) (any, error) {
				return deps[0], nil
			}, wired.Name("a")),
			wired.UseValue(wired.Name("a"), 1),
		))

		_, err := wired.Apply(newAdapter(nil), wired.Options{RootModule: root})
		require.Error(t, err)
		assert.ErrorIs(t, err, wired.ErrDependencyNotFound)
		assert.True(t, wired.IsResolutionError(err))
	})

	t.Run("factory errors and panics", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := wired.NewModule("app", wired.Providers(
			wired.UseFactory(wired.Name("x"), func(...any) (any, error) { return nil, boom }),
		))
		_, err := wired.Apply(newAdapter(nil), wired.Options{RootModule: failing})
		assert.ErrorIs(t, err, boom)

		var factoryErr wired.FactoryError
		require.ErrorAs(t, err, &factoryErr)
		assert.Equal(t, wired.Name("x").Key(), factoryErr.Token.Key())

		panicking := wired.NewModule("app", wired.Providers(
			wired.UseFactory(wired.Name("x"), func(...any) (any, error) { panic("bad factory") }),
		))
		_, err = wired.Apply(newAdapter(nil), wired.Options{RootModule: panicking})
		var panicErr *wired.PanicError
		require.ErrorAs(t, err, &panicErr)
		assert.Equal(t, "bad factory", panicErr.Value)
	})

	t.Run("existing aliases another provider", func(t *testing.T) {
		t.Parallel()

		root := wired.NewModule("app", wired.Providers(
			wired.UseValue(wired.Name("config"), &appConfig{}),
			wired.UseExisting(wired.Name("settings"), wired.Name("config")),
		))

		app, _ := apply(t, root)
		a, _ := app.Get(wired.Name("config"))
		b, _ := app.Get(wired.Name("settings"))
		assert.Same(t, a, b)
	})

	t.Run("existing without a target instance", func(t *testing.T) {
		t.Parallel()

		root := wired.NewModule("app", wired.Providers(
			wired.UseExisting(wired.Name("settings"), wired.Name("config")),
			wired.UseValue(wired.Name("config"), &appConfig{}),
		))

		_, err := wired.Apply(newAdapter(nil), wired.Options{RootModule: root})
		require.Error(t, err)
		assert.ErrorIs(t, err, wired.ErrProviderNotFound)

		var resolution wired.ResolutionError
		require.ErrorAs(t, err, &resolution)
		assert.Equal(t, wired.Name("settings").Key(), resolution.Owner.Key())
	})

	t.Run("class under another token", func(t *testing.T) {
		t.Parallel()

		root := wired.NewModule("app", wired.Providers(wired.UseClass(wired.Name("guard"), allowGuardClass)))
		app, _ := apply(t, root)

		g, err := wired.Resolve[wired.Guard](app, wired.Name("guard"))
		require.NoError(t, err)
		assert.IsType(t, &allowGuard{}, g)
	})

	t.Run("unassignable injection", func(t *testing.T) {
		t.Parallel()

		root := wired.NewModule("app", wired.Providers(
			wired.UseValue(wired.Name("config"), "not a config"),
			appRepoClass,
		))

		_, err := wired.Apply(newAdapter(nil), wired.Options{RootModule: root})
		var injErr wired.InjectionError
		require.ErrorAs(t, err, &injErr)
		assert.Equal(t, "Config", injErr.Field)
	})

	t.Run("nil value leaves the field empty", func(t *testing.T) {
		t.Parallel()

		root := wired.NewModule("app", wired.Providers(
			wired.UseValue(wired.Name("config"), nil),
			appRepoClass,
		))

		app, _ := apply(t, root)
		repo, err := wired.Resolve[*appRepo](app, appRepoClass)
		require.NoError(t, err)
		assert.Nil(t, repo.Config)
	})

	t.Run("zero values are injected", func(t *testing.T) {
		t.Parallel()

		root := wired.NewModule("app", wired.Providers(
			wired.UseValue(wired.Name("port"), 0),
			wired.UseValue(wired.Name("debug"), false),
			wired.UseValue(wired.Name("host"), ""),
			settingsClass,
		))

		app, _ := apply(t, root)
		s, err := wired.Resolve[*settings](app, settingsClass)
		require.NoError(t, err)
		assert.Equal(t, settings{}, *s)
	})

	t.Run("provided values are injected", func(t *testing.T) {
		t.Parallel()

		root := wired.NewModule("app", wired.Providers(
			wired.UseValue(wired.Name("port"), 8080),
			wired.UseValue(wired.Name("debug"), true),
			wired.UseValue(wired.Name("host"), "localhost"),
			settingsClass,
		))

		app, _ := apply(t, root)
		s, err := wired.Resolve[*settings](app, settingsClass)
		require.NoError(t, err)
		assert.Equal(t, settings{Port: 8080, Debug: true, Host: "localhost"}, *s)
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	app, _ := apply(t, wired.NewModule("app", wired.Providers(wired.UseValue(wired.Name("n"), 1))))

	n, err := wired.Resolve[int](app, wired.Name("n"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = wired.Resolve[string](app, wired.Name("n"))
	var mismatch wired.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)

	_, err = wired.Resolve[int](app, wired.Name("missing"))
	assert.ErrorIs(t, err, wired.ErrProviderNotFound)
}

type graphController struct{}

func (graphController) Index() string { return "ok" }

func TestApplication_ModuleGraph(t *testing.T) {
	t.Parallel()

	db := wired.NewModule("database")
	users := wired.NewModule("users", wired.Imports(db), wired.Prefix("users"))
	root := wired.NewModule("app",
		wired.Imports(users),
		wired.Controllers(wired.Controller[graphController]("", wired.Get("", "Index"))),
	)

	app, _ := apply(t, root)

	sorted, err := app.ModuleGraph().TopologicalSort()
	require.NoError(t, err)
	names := make([]string, len(sorted))
	for i, n := range sorted {
		names[i] = n.Key.Name
	}
	assert.Equal(t, []string{"database", "users", "app"}, names)

	var text bytes.Buffer
	require.NoError(t, app.WriteGraph(&text, false))
	assert.Contains(t, text.String(), "users")

	assert.Contains(t, text.String(), "Roots: [app]")
	assert.Contains(t, text.String(), "Leaves: [database]")

	var dot bytes.Buffer
	require.NoError(t, app.WriteGraph(&dot, true))
	assert.Contains(t, dot.String(), "digraph")

	var module bytes.Buffer
	require.NoError(t, app.WriteModule(&module, "users"))
	assert.Contains(t, module.String(), "Depth: 1")
	assert.Contains(t, module.String(), "Imports: [database]")
	assert.Contains(t, module.String(), "Imported by: [app]")
	assert.ErrorContains(t, app.WriteModule(&module, "billing"), `module "billing" is not registered`)

	routes := app.Routes()
	require.Len(t, routes, 1)
	assert.Equal(t, wired.RouteInfo{
		Method:     http.MethodGet,
		URL:        "/",
		Module:     "app",
		Controller: "graphController",
		Handler:    "Index",
	}, routes[0])
}
