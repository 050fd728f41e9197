package wired

import "fmt"

// ProviderKind is the instantiation strategy of a Provider.
type ProviderKind uint8

const (
	// ProviderClass allocates a declared class.
	ProviderClass ProviderKind = iota
	// ProviderValue stores a literal value.
	ProviderValue
	// ProviderFactory stores the result of a function.
	ProviderFactory
	// ProviderExisting aliases another token.
	ProviderExisting
)

func (k ProviderKind) String() string {
	switch k {
	case ProviderClass:
		return "class"
	case ProviderValue:
		return "value"
	case ProviderFactory:
		return "factory"
	case ProviderExisting:
		return "existing"
	default:
		return fmt.Sprintf("ProviderKind(%d)", uint8(k))
	}
}

// Provider describes how the instance registered under a token is
// produced. The implementations are *ClassDef and the values returned by
// UseClass, UseValue, UseFactory and UseExisting.
type Provider interface {
	// Provide returns the token the instance is registered under.
	Provide() Token

	// Strategy reports how the instance is produced.
	Strategy() ProviderKind

	provider()
}

// Provider implementation of a class used directly.

func (c *ClassDef) Provide() Token         { return c }
func (c *ClassDef) Strategy() ProviderKind { return ProviderClass }
func (*ClassDef) provider()                {}

// ClassProvider registers Class under a different token.
type ClassProvider struct {
	Token Token
	Class *ClassDef
}

// UseClass registers class under provide.
//
// Example:
//
//	wired.UseClass(wired.Name("cache"), RedisCacheClass)
func UseClass(provide Token, class *ClassDef) ClassProvider {
	return ClassProvider{Token: provide, Class: class}
}

func (p ClassProvider) Provide() Token         { return p.Token }
func (p ClassProvider) Strategy() ProviderKind { return ProviderClass }
func (ClassProvider) provider()                {}

// ValueProvider registers a literal value.
type ValueProvider struct {
	Token Token
	Value any
}

// UseValue registers value under provide.
func UseValue(provide Token, value any) ValueProvider {
	return ValueProvider{Token: provide, Value: value}
}

func (p ValueProvider) Provide() Token         { return p.Token }
func (p ValueProvider) Strategy() ProviderKind { return ProviderValue }
func (ValueProvider) provider()                {}

// FactoryFunc builds an instance from the instances registered under a
// factory's inject tokens, passed in the same order.
type FactoryFunc func(deps ...any) (any, error)

// FactoryProvider registers the result of Factory.
type FactoryProvider struct {
	Token   Token
	Factory FactoryFunc
	Inject  []Token
}

// UseFactory registers the value returned by factory under provide. The
// instances of inject must already exist when the factory runs: providers
// are not reordered, so list them before the factory.
//
// Example:
//
//	wired.UseFactory(wired.Name("db"), func(deps ...any) (any, error) {
//	    cfg := deps[0].(*Config)
//	    return sql.Open("postgres", cfg.DSN)
//	}, wired.Class[Config]())
func UseFactory(provide Token, factory FactoryFunc, inject ...Token) FactoryProvider {
	return FactoryProvider{Token: provide, Factory: factory, Inject: inject}
}

func (p FactoryProvider) Provide() Token         { return p.Token }
func (p FactoryProvider) Strategy() ProviderKind { return ProviderFactory }
func (FactoryProvider) provider()                {}

// ExistingProvider aliases another token.
type ExistingProvider struct {
	Token    Token
	Existing Token
}

// UseExisting registers the instance of existing under provide as well.
func UseExisting(provide, existing Token) ExistingProvider {
	return ExistingProvider{Token: provide, Existing: existing}
}

func (p ExistingProvider) Provide() Token         { return p.Token }
func (p ExistingProvider) Strategy() ProviderKind { return ProviderExisting }
func (ExistingProvider) provider()                {}

// providerDeps returns the tokens a provider needs from its module.
func providerDeps(p Provider) []Token {
	switch p := p.(type) {
	case *ClassDef:
		return p.dependencies()
	case ClassProvider:
		if p.Class == nil {
			return nil
		}
		return p.Class.dependencies()
	case FactoryProvider:
		return p.Inject
	case ExistingProvider:
		return []Token{p.Existing}
	default:
		return nil
	}
}

func validateProvider(p Provider) error {
	if p == nil {
		return DeclarationError{Detail: "nil provider"}
	}
	if p.Provide() == nil {
		return DeclarationError{Detail: fmt.Sprintf("%s provider without a token", p.Strategy())}
	}
	switch p := p.(type) {
	case *ClassDef:
		return p.Err()
	case ClassProvider:
		if p.Class == nil {
			return DeclarationError{Detail: fmt.Sprintf("UseClass(%s) without a class", tokenString(p.Token))}
		}
		return p.Class.Err()
	case FactoryProvider:
		if p.Factory == nil {
			return DeclarationError{Detail: fmt.Sprintf("UseFactory(%s) without a factory", tokenString(p.Token))}
		}
	case ExistingProvider:
		if p.Existing == nil {
			return DeclarationError{Detail: fmt.Sprintf("UseExisting(%s) without a target", tokenString(p.Token))}
		}
	}
	return nil
}
