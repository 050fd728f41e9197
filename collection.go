package wired

import (
	"sort"
	"sync"
)

// Collection is the per-registration registry of global modules, global
// providers and the reserved middleware tokens. A Collection is created by
// every registration and discarded when it completes.
//
// Collection is safe for concurrent reads, but it is only written during
// registration.
type Collection struct {
	mu sync.RWMutex

	// globalModules lists modules made global, in discovery order.
	globalModules []*Module
	globalSeen    map[*Module]bool

	// globalProviders holds the keys visible from every module.
	globalProviders map[Key]Token

	// reserved maps each claimed reserved token to the module claiming it.
	reserved map[*Symbol]string
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		globalSeen:      make(map[*Module]bool),
		globalProviders: make(map[Key]Token),
		reserved:        make(map[*Symbol]string),
	}
}

// AddGlobalModule records m as global. It reports false when m was already
// recorded.
func (c *Collection) AddGlobalModule(m *Module) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.globalSeen[m] {
		return false
	}
	c.globalSeen[m] = true
	c.globalModules = append(c.globalModules, m)
	return true
}

// GlobalModules returns the global modules in discovery order.
func (c *Collection) GlobalModules() []*Module {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Module(nil), c.globalModules...)
}

// IsGlobalModule reports whether m was recorded as global.
func (c *Collection) IsGlobalModule(m *Module) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.globalSeen[m]
}

// ClaimReserved records that module provides sym. A reserved token may be
// claimed once per registration.
func (c *Collection) ClaimReserved(sym *Symbol, module string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, claimed := c.reserved[sym]; claimed {
		return ReservedTokenError{Token: sym, Module: module}
	}
	c.reserved[sym] = module
	c.globalProviders[sym.Key()] = sym
	return nil
}

// Claimed reports whether sym has a provider.
func (c *Collection) Claimed(sym *Symbol) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.reserved[sym]
	return ok
}

// AddGlobalProvider makes tok visible from every module.
func (c *Collection) AddGlobalProvider(tok Token) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globalProviders[tok.Key()] = tok
}

// Assemble completes global collection: it adds the exports of every
// global module, the reserved middleware tokens and the logger token to the
// global provider set.
func (c *Collection) Assemble() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range c.globalModules {
		for _, tok := range m.exports {
			if tok != nil {
				c.globalProviders[tok.Key()] = tok
			}
		}
	}
	for _, sym := range []*Symbol{AppLogger, AppInterceptor, AppGuard, AppFilter, AppPipe} {
		c.globalProviders[sym.Key()] = sym
	}
}

// IsGlobal reports whether key is visible from every module.
func (c *Collection) IsGlobal(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.globalProviders[key]
	return ok
}

// AccessibleTokens returns the keys visible from m: its own providers, the
// exports of its imports and the global providers. The set is computed on
// every call.
func (c *Collection) AccessibleTokens(m *Module) []Key {
	set := c.accessible(m)
	keys := make([]Key, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

func (c *Collection) accessible(m *Module) map[Key]struct{} {
	set := make(map[Key]struct{})
	for k := range m.providerKeys() {
		set[k] = struct{}{}
	}
	for _, imp := range m.imports {
		if imp == nil {
			continue
		}
		mod, _ := imp.imported()
		if mod == nil {
			continue
		}
		for _, tok := range mod.exports {
			if tok != nil {
				set[tok.Key()] = struct{}{}
			}
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for k := range c.globalProviders {
		set[k] = struct{}{}
	}
	return set
}

// globalMiddleware returns the reserved middleware tokens that have a
// provider, in pipeline order.
func (c *Collection) globalMiddleware() (guards, interceptors, filters []Token, pipes []PipeRef) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.reserved[AppGuard]; ok {
		guards = []Token{AppGuard}
	}
	if _, ok := c.reserved[AppInterceptor]; ok {
		interceptors = []Token{AppInterceptor}
	}
	if _, ok := c.reserved[AppFilter]; ok {
		filters = []Token{AppFilter}
	}
	if _, ok := c.reserved[AppPipe]; ok {
		pipes = []PipeRef{AppPipe}
	}
	return guards, interceptors, filters, pipes
}
