package wired

import (
	"fmt"
	"io"
	"reflect"

	"github.com/junioryono/wired/internal/graph"
)

// Options configures Apply.
type Options struct {
	// RootModule is the module registration starts from.
	RootModule *Module

	// AllowCrossModuleCircularReference lets a module be imported from more
	// than one branch of the import tree. A module importing itself through
	// its own imports is an error either way.
	//
	// Without it a diamond fails: when A imports B and C and both import D,
	// registration stops at the second import of D with a ModuleCycleError
	// whose Reimport field is set. Set this flag to register D once and share
	// it between B and C.
	AllowCrossModuleCircularReference bool

	// Logger is used for registration messages and as the default AppLogger.
	// Nil uses the adapter's logger.
	Logger Logger
}

// ModuleGraph is the import graph of the registered modules.
type ModuleGraph = graph.ModuleGraph

// GraphNode is a module of a ModuleGraph.
type GraphNode = graph.Node

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method     string
	URL        string
	Module     string
	Controller string
	Handler    string

	// Number of middleware in each merged chain.
	Guards       int
	Interceptors int
	Pipes        int
	Filters      int
}

// Application is the result of a registration: the wired instances, the
// registered routes and the module graph. It is read-only.
type Application struct {
	instances map[Key]any
	routes    []RouteInfo
	graph     *graph.ModuleGraph
	logger    Logger
}

// Apply registers opts.RootModule with adapter. It resolves the module
// tree, instantiates and wires every provider and controller, and hands
// every route to the adapter.
//
// Example:
//
//	adapter := wiredhttp.New()
//	app, err := wired.Apply(adapter, wired.Options{RootModule: AppModule})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.ListenAndServe(":8080", adapter)
func Apply(adapter Adapter, opts Options) (*Application, error) {
	if adapter == nil {
		return nil, ErrAdapterNil
	}
	if opts.RootModule == nil {
		return nil, ErrRootModuleNil
	}

	logger := opts.Logger
	if logger == nil {
		logger = adapter.Logger()
	}
	if logger == nil {
		logger = defaultLogger()
	}

	previous := adapter.ValidatorCompiler()
	adapter.SetValidatorCompiler(noopCompiler)
	defer adapter.SetValidatorCompiler(previous)

	s := newSession(adapter, opts, logger)
	if err := s.register(opts.RootModule); err != nil {
		return nil, err
	}

	logger.Info("modules registered", "modules", s.graph.Size(), "routes", len(s.routes))

	return &Application{
		instances: s.injector.snapshot(),
		routes:    s.routes,
		graph:     s.graph,
		logger:    s.appLogger(),
	}, nil
}

// Get returns the instance registered under tok.
func (a *Application) Get(tok Token) (any, bool) {
	if tok == nil {
		return nil, false
	}
	v, ok := a.instances[tok.Key()]
	return v, ok
}

// Routes returns the registered routes in registration order.
func (a *Application) Routes() []RouteInfo {
	return append([]RouteInfo(nil), a.routes...)
}

// ModuleGraph returns the import graph of the registered modules.
func (a *Application) ModuleGraph() *ModuleGraph {
	return a.graph
}

// Logger returns the AppLogger instance.
func (a *Application) Logger() Logger {
	return a.logger
}

// WriteGraph writes the module graph as text, or as Graphviz DOT when dot
// is true.
func (a *Application) WriteGraph(w io.Writer, dot bool) error {
	v := graph.NewVisualizer(a.graph)
	if dot {
		return v.WriteDOT(w)
	}
	return v.WriteText(w)
}

// WriteModule writes the depth, imports and importers of the module named
// name. The first registered module with that name wins.
func (a *Application) WriteModule(w io.Writer, name string) error {
	for _, key := range a.graph.Keys() {
		if key.Name == name {
			return graph.NewVisualizer(a.graph).WriteNode(w, key)
		}
	}
	return fmt.Errorf("module %q is not registered", name)
}

// Getter is implemented by Application and by testing modules.
type Getter interface {
	Get(tok Token) (any, bool)
}

// Resolve returns the instance registered under tok as a T.
//
// Example:
//
//	svc, err := wired.Resolve[*UserService](app, UserServiceClass)
func Resolve[T any](g Getter, tok Token) (T, error) {
	var zero T
	v, ok := g.Get(tok)
	if !ok {
		return zero, ResolutionError{Token: tok, Cause: ErrProviderNotFound}
	}
	t, ok := v.(T)
	if !ok {
		return zero, TypeMismatchError{Token: tok, Expected: reflect.TypeFor[T](), Actual: reflect.TypeOf(v)}
	}
	return t, nil
}
