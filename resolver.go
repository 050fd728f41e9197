package wired

import (
	"fmt"
	"sort"

	"github.com/junioryono/wired/internal/graph"
)

// session is the state of one registration. It is created by Apply and
// discarded when Apply returns.
type session struct {
	opts    Options
	adapter Adapter
	logger  Logger

	collection *Collection
	injector   *Injector
	graph      *graph.ModuleGraph

	// collected holds the modules seen by global collection.
	collected map[*Module]bool

	// stack is the active import chain; visited holds modules whose visit
	// completed.
	stack   []*Module
	visited map[*Module]bool

	mounts []mount
	routes []RouteInfo
}

// mount is a controller waiting for its routes to be registered once all
// instances are wired.
type mount struct {
	module *Module
	class  *ClassDef
	prefix []string
}

func newSession(adapter Adapter, opts Options, logger Logger) *session {
	return &session{
		opts:       opts,
		adapter:    adapter,
		logger:     logger,
		collection: NewCollection(),
		injector:   NewInjector(),
		graph:      graph.New(),
		collected:  make(map[*Module]bool),
		visited:    make(map[*Module]bool),
	}
}

func nodeKey(m *Module) graph.NodeKey {
	return graph.NodeKey{Ref: m, Name: m.name}
}

// collectGlobal walks the import tree depth first. It records global
// modules and instantiates the providers of reserved tokens.
func (s *session) collectGlobal(imp Import) error {
	mod, global := imp.imported()
	if global && !s.collection.AddGlobalModule(mod) {
		return nil
	}
	if s.collected[mod] {
		return nil
	}
	s.collected[mod] = true

	if err := mod.validate(); err != nil {
		return err
	}

	for _, child := range mod.imports {
		if err := s.collectGlobal(child); err != nil {
			return err
		}
	}

	for _, p := range mod.providers {
		sym := reservedToken(p.Provide())
		if sym == nil {
			continue
		}
		if err := s.collection.ClaimReserved(sym, mod.name); err != nil {
			return err
		}
		if _, err := s.injector.CreateInstance(p); err != nil {
			return ModuleError{Module: mod.name, Cause: err}
		}
	}

	return nil
}

// visit registers a module after its imports: it instantiates the module's
// providers and mounts its controllers under the concatenated prefix.
func (s *session) visit(imp Import, inherited []string) error {
	mod, global := imp.imported()

	for _, m := range s.stack {
		if m == mod {
			return ModuleCycleError{Path: s.chain(mod)}
		}
	}
	if s.visited[mod] {
		if s.opts.AllowCrossModuleCircularReference {
			return nil
		}
		return ModuleCycleError{Path: s.chain(mod), Reimport: true}
	}

	s.stack = append(s.stack, mod)
	defer func() { s.stack = s.stack[:len(s.stack)-1] }()

	imports := make([]graph.NodeKey, 0, len(mod.imports))
	for _, child := range mod.imports {
		m, _ := child.imported()
		imports = append(imports, nodeKey(m))
	}
	s.graph.AddModule(nodeKey(mod), mod.prefix, global || s.collection.IsGlobalModule(mod), imports)

	prefix := append(append([]string(nil), inherited...), mod.prefix)

	for _, child := range mod.imports {
		if err := s.visit(child, prefix); err != nil {
			return err
		}
	}

	for _, p := range mod.providers {
		if reservedToken(p.Provide()) != nil {
			continue
		}
		if err := s.checkAccess(mod, p.Provide(), providerDeps(p)); err != nil {
			return err
		}
		if _, err := s.injector.CreateInstance(p); err != nil {
			return ModuleError{Module: mod.name, Cause: err}
		}
	}

	for _, c := range mod.controllers {
		if err := s.checkAccess(mod, c, c.dependencies()); err != nil {
			return err
		}
		if err := s.checkAccess(mod, c, controllerMiddleware(c)); err != nil {
			return err
		}
		if _, err := s.injector.CreateInstance(c); err != nil {
			return ModuleError{Module: mod.name, Cause: err}
		}
		s.mounts = append(s.mounts, mount{module: mod, class: c, prefix: prefix})
	}

	s.visited[mod] = true
	return nil
}

func (s *session) chain(last *Module) []string {
	names := make([]string, 0, len(s.stack)+1)
	for _, m := range s.stack {
		names = append(names, m.name)
	}
	return append(names, last.name)
}

// checkAccess verifies that every token in deps is visible from mod.
func (s *session) checkAccess(mod *Module, owner Token, deps []Token) error {
	if len(deps) == 0 {
		return nil
	}

	accessible := s.collection.accessible(mod)
	for _, dep := range deps {
		if _, ok := accessible[dep.Key()]; ok {
			continue
		}

		keys := make([]Key, 0, len(accessible))
		for k := range accessible {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

		return AccessError{Module: mod.name, Owner: owner, Dependency: dep, Accessible: keys}
	}
	return nil
}

// controllerMiddleware returns every middleware token a controller and
// its routes refer to.
func controllerMiddleware(c *ClassDef) []Token {
	var tokens []Token
	add := func(guards, interceptors, filters []Token, pipes []PipeRef) {
		tokens = append(tokens, guards...)
		tokens = append(tokens, interceptors...)
		tokens = append(tokens, filters...)
		for _, p := range pipes {
			tok, _ := p.pipe()
			tokens = append(tokens, tok)
		}
	}

	add(c.guards(), c.interceptors(), c.filters(), c.pipes())
	for _, r := range c.Routes() {
		add(r.Guards, r.Interceptors, r.Filters, r.Pipes)
	}
	return tokens
}

// register runs both passes, wires the instances and registers every
// route with the adapter.
func (s *session) register(root *Module) error {
	if err := s.collectGlobal(root); err != nil {
		return err
	}
	s.collection.Assemble()

	for _, class := range builtinPipes() {
		if _, err := s.injector.CreateInstance(class); err != nil {
			return err
		}
		s.collection.AddGlobalProvider(class)
	}

	if err := s.visit(root, nil); err != nil {
		return err
	}

	if err := s.injector.Apply(s.logger); err != nil {
		return err
	}
	if err := s.injector.CheckMissing(); err != nil {
		return err
	}

	for _, m := range s.mounts {
		if err := s.mount(m); err != nil {
			return ModuleError{Module: m.module.name, Cause: err}
		}
	}
	return nil
}

// mount registers the routes of one controller.
func (s *session) mount(m mount) error {
	controller, ok := s.injector.Get(m.class)
	if !ok {
		return ResolutionError{Token: m.class, Cause: ErrProviderNotFound}
	}

	guards, interceptors, filters, pipes := s.collection.globalMiddleware()
	guards = append(guards, m.class.guards()...)
	interceptors = append(interceptors, m.class.interceptors()...)
	filters = append(filters, m.class.filters()...)
	pipes = append(pipes, m.class.pipes()...)

	logger := s.appLogger()

	for _, route := range m.class.Routes() {
		url, err := joinPath(append(append(append([]string(nil), m.prefix...), m.class.Prefix()), route.Path)...)
		if err != nil {
			return err
		}

		mw, err := s.resolveChain(
			append(append([]Token(nil), guards...), route.Guards...),
			append(append([]Token(nil), interceptors...), route.Interceptors...),
			append(append([]Token(nil), filters...), route.Filters...),
			append(append([]PipeRef(nil), pipes...), route.Pipes...),
		)
		if err != nil {
			return err
		}

		p, err := newPipeline(m.class, route, url, controller, mw, logger, s.adapter.ValidatorCompiler)
		if err != nil {
			return err
		}

		def := RouteDefinition{Method: route.Method, URL: url, Options: route.Options, Handler: p.handle}
		if err := s.adapter.Route(def); err != nil {
			return err
		}

		s.routes = append(s.routes, RouteInfo{
			Method:       route.Method,
			URL:          url,
			Controller:   m.class.String(),
			Handler:      route.Handler,
			Module:       m.module.name,
			Guards:       len(mw.guards),
			Interceptors: len(mw.interceptors),
			Pipes:        len(mw.pipes),
			Filters:      len(mw.filters),
		})
		s.logger.Info("route registered", "method", route.Method, "url", url, "handler", m.class.String()+"."+route.Handler)
	}
	return nil
}

// resolveChain looks up the instances of middleware tokens and checks
// that they implement their role.
func (s *session) resolveChain(guards, interceptors, filters []Token, pipes []PipeRef) (chain, error) {
	var mw chain

	for _, tok := range guards {
		v, err := s.middleware(tok)
		if err != nil {
			return mw, err
		}
		g, ok := v.(Guard)
		if !ok {
			return mw, DeclarationError{Class: tok.String(), Detail: fmt.Sprintf("%T does not implement Guard", v)}
		}
		mw.guards = append(mw.guards, g)
	}

	for _, tok := range interceptors {
		v, err := s.middleware(tok)
		if err != nil {
			return mw, err
		}
		ic, ok := v.(Interceptor)
		if !ok {
			return mw, DeclarationError{Class: tok.String(), Detail: fmt.Sprintf("%T does not implement Interceptor", v)}
		}
		mw.interceptors = append(mw.interceptors, ic)
	}

	for _, ref := range pipes {
		tok, schema := ref.pipe()
		v, err := s.middleware(tok)
		if err != nil {
			return mw, err
		}
		pp, ok := v.(Pipe)
		if !ok {
			return mw, DeclarationError{Class: tok.String(), Detail: fmt.Sprintf("%T does not implement Pipe", v)}
		}
		mw.pipes = append(mw.pipes, pp)
		mw.schemas = append(mw.schemas, schema)
	}

	for _, tok := range filters {
		v, err := s.middleware(tok)
		if err != nil {
			return mw, err
		}
		f, ok := v.(Filter)
		if !ok {
			return mw, DeclarationError{Class: tok.String(), Detail: fmt.Sprintf("%T does not implement Filter", v)}
		}
		mw.filters = append(mw.filters, f)
		mw.catches = append(mw.catches, s.catchesOf(tok))
	}

	return mw, nil
}

func (s *session) middleware(tok Token) (any, error) {
	if tok == nil {
		return nil, DeclarationError{Detail: "nil middleware token"}
	}
	v, ok := s.injector.Get(tok)
	if !ok {
		return nil, ResolutionError{Token: tok, Cause: ErrProviderNotFound}
	}
	return v, nil
}

// catchesOf returns the error classes of the filter class behind tok. A
// filter registered through UseClass or UseExisting keeps the classes of
// its class.
func (s *session) catchesOf(tok Token) []ErrorClass {
	if c, ok := tok.(*ClassDef); ok {
		return c.catches()
	}
	if class := s.filterClass(tok); class != nil {
		return class.catches()
	}
	return nil
}

func (s *session) filterClass(tok Token) *ClassDef {
	var found *ClassDef
	var walk func(m *Module)
	seen := make(map[*Module]bool)
	walk = func(m *Module) {
		if found != nil || seen[m] {
			return
		}
		seen[m] = true
		for _, p := range m.providers {
			if p.Provide().Key() != tok.Key() {
				continue
			}
			switch p := p.(type) {
			case *ClassDef:
				found = p
			case ClassProvider:
				found = p.Class
			case ExistingProvider:
				found = s.filterClass(p.Existing)
			}
			return
		}
		for _, imp := range m.imports {
			child, _ := imp.imported()
			walk(child)
		}
	}
	if s.opts.RootModule != nil {
		walk(s.opts.RootModule)
	}
	return found
}

// appLogger returns the AppLogger instance when it implements Logger.
func (s *session) appLogger() Logger {
	if v, ok := s.injector.Get(AppLogger); ok {
		if l, ok := v.(Logger); ok {
			return l
		}
	}
	return s.logger
}
