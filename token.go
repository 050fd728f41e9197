package wired

import (
	"fmt"
	"reflect"
)

// TokenKind tells the variants of Token apart.
type TokenKind uint8

const (
	// KindName is a plain string token.
	KindName TokenKind = iota
	// KindSymbol is an identity token created by NewSymbol.
	KindSymbol
	// KindClass refers to a declared class or a Go struct type.
	KindClass
	// KindDeferred refers to a class through a function evaluated at
	// registration time.
	KindDeferred
)

func (k TokenKind) String() string {
	switch k {
	case KindName:
		return "name"
	case KindSymbol:
		return "symbol"
	case KindClass:
		return "class"
	case KindDeferred:
		return "deferred"
	default:
		return fmt.Sprintf("TokenKind(%d)", uint8(k))
	}
}

// Key is the canonical lookup key a Token reduces to. Keys are comparable
// and used as map keys by the injector and the collection.
//
// Classes reduce to their type name, so two struct types with the same
// name in different packages share a key. The namespace is flat.
type Key struct {
	name string
	sym  *Symbol
}

// String returns the key's display name.
func (k Key) String() string {
	if k.sym != nil {
		return "Symbol(" + k.name + ")"
	}
	return k.name
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k.name == "" && k.sym == nil
}

// Token identifies a provider or a dependency. The set of implementations
// is closed: Name, *Symbol, *ClassDef, class references from Class[T] and
// Deferred.
type Token interface {
	// Key returns the canonical lookup key.
	Key() Key

	// Kind reports the variant.
	Kind() TokenKind

	String() string

	token()
}

// Name is a string token.
type Name string

func (n Name) Key() Key        { return Key{name: string(n)} }
func (n Name) Kind() TokenKind { return KindName }
func (n Name) String() string  { return string(n) }
func (Name) token()            {}

// Symbol is a token compared by identity. Two symbols with the same
// description are different tokens.
type Symbol struct {
	desc string
}

// NewSymbol creates a unique symbol.
func NewSymbol(description string) *Symbol {
	return &Symbol{desc: description}
}

// Description returns the text given to NewSymbol.
func (s *Symbol) Description() string { return s.desc }

func (s *Symbol) Key() Key        { return Key{name: s.desc, sym: s} }
func (s *Symbol) Kind() TokenKind { return KindSymbol }
func (s *Symbol) String() string  { return "Symbol(" + s.desc + ")" }
func (*Symbol) token()            {}

// classRef refers to a Go type that may or may not have been declared.
type classRef struct {
	typ reflect.Type
}

// Class returns a token for the struct type T. It reduces to the same key
// as the ClassDef declared for T.
func Class[T any]() Token {
	return classRef{typ: baseType(reflect.TypeFor[T]())}
}

func (c classRef) Key() Key        { return Key{name: typeName(c.typ)} }
func (c classRef) Kind() TokenKind { return KindClass }
func (c classRef) String() string  { return typeName(c.typ) }
func (classRef) token()            {}

// deferredRef resolves its class when the key is first requested.
type deferredRef struct {
	fn func() Token
}

// Deferred returns a token resolved by calling fn. It lets a declaration
// refer to a ClassDef variable that is initialized later.
func Deferred(fn func() Token) Token {
	return deferredRef{fn: fn}
}

func (d deferredRef) Key() Key {
	tok := d.resolve()
	if tok == nil {
		return Key{}
	}
	return tok.Key()
}

func (d deferredRef) Kind() TokenKind { return KindDeferred }

func (d deferredRef) String() string {
	tok := d.resolve()
	if tok == nil {
		return "Deferred(<nil>)"
	}
	return tok.String()
}

func (deferredRef) token() {}

func (d deferredRef) resolve() Token {
	if d.fn == nil {
		return nil
	}
	tok := d.fn()
	// A deferred reference to another deferred reference is followed.
	for i := 0; i < 8; i++ {
		next, ok := tok.(deferredRef)
		if !ok {
			break
		}
		tok = next.resolve()
	}
	return tok
}

// KeyOf returns the canonical key of tok, or the zero key when tok is nil.
func KeyOf(tok Token) Key {
	if tok == nil {
		return Key{}
	}
	return tok.Key()
}

// Reserved tokens. A provider that claims one of them is instantiated
// during global collection and becomes visible to every module. Each may be
// claimed at most once per registration.
var (
	AppLogger      = NewSymbol("APP_LOGGER")
	AppInterceptor = NewSymbol("APP_INTERCEPTOR")
	AppGuard       = NewSymbol("APP_GUARD")
	AppFilter      = NewSymbol("APP_FILTER")
	AppPipe        = NewSymbol("APP_PIPE")
)

// reservedToken returns the reserved symbol tok refers to, or nil.
func reservedToken(tok Token) *Symbol {
	sym, ok := tok.(*Symbol)
	if !ok {
		return nil
	}
	switch sym {
	case AppLogger, AppInterceptor, AppGuard, AppFilter, AppPipe:
		return sym
	}
	return nil
}

func baseType(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}
