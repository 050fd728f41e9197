package wired

import (
	"fmt"
)

// Module groups providers and controllers. A module sees its own
// providers, the exports of the modules it imports and every global
// provider.
//
// Example:
//
//	var DatabaseModule = wired.NewModule("database",
//	    wired.Providers(ConnectionClass, RepositoryClass),
//	    wired.Exports(RepositoryClass),
//	)
//
//	var UsersModule = wired.NewModule("users",
//	    wired.Imports(DatabaseModule),
//	    wired.Controllers(UsersControllerClass),
//	    wired.Prefix("api"),
//	)
type Module struct {
	name        string
	providers   []Provider
	controllers []*ClassDef
	imports     []Import
	exports     []Token
	prefix      string
	global      bool
}

// ModuleOption configures a Module.
type ModuleOption func(*Module)

// NewModule creates a module with the given name. The name is used in
// error messages and in the module graph.
func NewModule(name string, opts ...ModuleOption) *Module {
	m := &Module{name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Providers adds providers to a module.
func Providers(providers ...Provider) ModuleOption {
	return func(m *Module) {
		m.providers = append(m.providers, providers...)
	}
}

// Controllers adds controllers to a module.
func Controllers(controllers ...*ClassDef) ModuleOption {
	return func(m *Module) {
		m.controllers = append(m.controllers, controllers...)
	}
}

// Imports adds imported modules. An import is a *Module or a DynamicModule.
func Imports(imports ...Import) ModuleOption {
	return func(m *Module) {
		m.imports = append(m.imports, imports...)
	}
}

// Exports makes providers visible to importing modules. Every exported
// token must be one of the module's own providers.
func Exports(tokens ...Token) ModuleOption {
	return func(m *Module) {
		m.exports = append(m.exports, tokens...)
	}
}

// Prefix mounts the module's controllers, and those of its imports, under
// prefix.
func Prefix(prefix string) ModuleOption {
	return func(m *Module) {
		m.prefix = prefix
	}
}

// IsGlobal makes the module's exports visible to every module.
func IsGlobal() ModuleOption {
	return func(m *Module) {
		m.global = true
	}
}

// Name returns the module's name.
func (m *Module) Name() string { return m.name }

// Global reports whether the module was declared global.
func (m *Module) Global() bool { return m.global }

// ModulePrefix returns the module's route prefix.
func (m *Module) ModulePrefix() string { return m.prefix }

// Exported returns the module's exported tokens.
func (m *Module) Exported() []Token { return append([]Token(nil), m.exports...) }

func (m *Module) String() string { return m.name }

// Import is an entry of a module's import list.
type Import interface {
	imported() (mod *Module, global bool)
}

func (m *Module) imported() (*Module, bool) {
	if m == nil {
		return nil, false
	}
	return m, m.global
}

// DynamicModule imports a module with an explicit global flag.
type DynamicModule struct {
	Module   *Module
	IsGlobal bool
}

func (d DynamicModule) imported() (*Module, bool) {
	if d.Module == nil {
		return nil, d.IsGlobal
	}
	return d.Module, d.IsGlobal || d.Module.global
}

type forwardRef struct {
	fn func() Import
}

// ForwardRef imports the module returned by fn. fn is called when the
// import is resolved, so two package-level modules can refer to each other.
func ForwardRef(fn func() Import) Import {
	return forwardRef{fn: fn}
}

func (f forwardRef) imported() (*Module, bool) {
	if f.fn == nil {
		return nil, false
	}
	imp := f.fn()
	if imp == nil {
		return nil, false
	}
	return imp.imported()
}

// Global imports m as a global module regardless of its declaration.
func Global(m *Module) DynamicModule {
	return DynamicModule{Module: m, IsGlobal: true}
}

// ToModule wraps a single provider into a module that exports it, so that
// a provider declared outside any module can be imported.
func ToModule(p Provider, global bool) DynamicModule {
	name := "<nil>"
	var opts []ModuleOption
	if p != nil && p.Provide() != nil {
		name = p.Provide().String()
		opts = append(opts, Providers(p), Exports(p.Provide()))
	}
	return DynamicModule{
		Module:   NewModule(fmt.Sprintf("Dynamic(%s)", name), opts...),
		IsGlobal: global,
	}
}

// providerKeys returns the keys of the module's own providers.
func (m *Module) providerKeys() map[Key]Token {
	keys := make(map[Key]Token, len(m.providers))
	for _, p := range m.providers {
		if p == nil || p.Provide() == nil {
			continue
		}
		keys[p.Provide().Key()] = p.Provide()
	}
	return keys
}

// validate checks the module's own declarations: providers, controllers
// and that exports are a subset of providers.
func (m *Module) validate() error {
	for _, p := range m.providers {
		if err := validateProvider(p); err != nil {
			return ModuleError{Module: m.name, Cause: err}
		}
	}

	for _, c := range m.controllers {
		if c == nil {
			return ModuleError{Module: m.name, Cause: DeclarationError{Detail: "nil controller"}}
		}
		if err := c.Err(); err != nil {
			return ModuleError{Module: m.name, Cause: err}
		}
		if c.Role() != ClassController {
			return ModuleError{Module: m.name, Cause: DeclarationError{
				Class:  c.String(),
				Detail: fmt.Sprintf("declared as %s, listed as controller", c.Role()),
			}}
		}
	}

	own := m.providerKeys()
	for _, tok := range m.exports {
		if tok == nil {
			return ModuleError{Module: m.name, Cause: DeclarationError{Detail: "nil export"}}
		}
		if _, ok := own[tok.Key()]; !ok {
			return ModuleError{Module: m.name, Cause: DeclarationError{
				Detail: fmt.Sprintf("exports %s, which is not one of its providers", tok),
			}}
		}
	}

	for _, imp := range m.imports {
		if imp == nil {
			return ModuleError{Module: m.name, Cause: DeclarationError{Detail: "nil import"}}
		}
		if mod, _ := imp.imported(); mod == nil {
			return ModuleError{Module: m.name, Cause: DeclarationError{Detail: "dynamic module without a module"}}
		}
	}

	return nil
}
