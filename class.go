package wired

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/wired/internal/metadata"
)

// ClassKind is the role a class was declared with.
type ClassKind uint8

const (
	ClassInjectable ClassKind = iota
	ClassController
	ClassGuard
	ClassInterceptor
	ClassPipe
	ClassFilter
)

func (k ClassKind) String() string {
	switch k {
	case ClassInjectable:
		return "injectable"
	case ClassController:
		return "controller"
	case ClassGuard:
		return "guard"
	case ClassInterceptor:
		return "interceptor"
	case ClassPipe:
		return "pipe"
	case ClassFilter:
		return "filter"
	default:
		return fmt.Sprintf("ClassKind(%d)", uint8(k))
	}
}

// Metadata keys written by the declaration functions.
var (
	metaKind         = metadata.NewKey[ClassKind]("kind")
	metaPrefix       = metadata.NewKey[string]("controller:prefix")
	metaInjections   = metadata.NewKey[[]InjectionEntry]("inject")
	metaRoutes       = metadata.NewKey[[]*RouteDef]("routes")
	metaGuards       = metadata.NewKey[[]Token]("middleware:guards")
	metaInterceptors = metadata.NewKey[[]Token]("middleware:interceptors")
	metaPipes        = metadata.NewKey[[]PipeRef]("middleware:pipes")
	metaFilters      = metadata.NewKey[[]Token]("middleware:filters")
	metaCatches      = metadata.NewKey[[]ErrorClass]("filter:catch")
)

func customKey(name string) metadata.Key[any] {
	return metadata.NewKey[any]("custom:" + name)
}

// InjectionEntry records that Field of the owning class receives the
// instance registered under Dependency.
type InjectionEntry struct {
	Target     Token
	Field      string
	Dependency Token
}

// ClassDef describes a declared struct type: its role, its field
// injections, its routes and its middleware. A ClassDef is a Token for its
// own type and a Provider that instantiates it.
type ClassDef struct {
	typ  reflect.Type
	meta *metadata.Store
	errs []error
}

// ClassOption configures a ClassDef at declaration time.
type ClassOption interface {
	applyClass(c *ClassDef)
}

type classOptionFunc func(c *ClassDef)

func (f classOptionFunc) applyClass(c *ClassDef) { f(c) }

// Injectable declares T as a provider class.
func Injectable[T any](opts ...ClassOption) *ClassDef {
	return declare[T](ClassInjectable, opts)
}

// Controller declares T as a controller mounted under prefix. Routes are
// added with Get, Post, Put, Patch, Delete and Route.
func Controller[T any](prefix string, opts ...ClassOption) *ClassDef {
	c := declare[T](ClassController)
	c.record(metadata.Set(c.meta, metaPrefix, prefix))
	c.apply(opts)
	return c
}

// GuardClass declares T as a guard.
func GuardClass[T any, PT interface {
	*T
	Guard
}](opts ...ClassOption) *ClassDef {
	return declare[T](ClassGuard, opts)
}

// InterceptorClass declares T as an interceptor.
func InterceptorClass[T any, PT interface {
	*T
	Interceptor
}](opts ...ClassOption) *ClassDef {
	return declare[T](ClassInterceptor, opts)
}

// PipeClass declares T as a pipe.
func PipeClass[T any, PT interface {
	*T
	Pipe
}](opts ...ClassOption) *ClassDef {
	return declare[T](ClassPipe, opts)
}

// FilterClass declares T as an error filter. A filter catches the errors
// matched by catches, or every error when catches is empty.
func FilterClass[T any, PT interface {
	*T
	Filter
}](catches []ErrorClass, opts ...ClassOption) *ClassDef {
	c := declare[T](ClassFilter)
	c.record(metadata.Set(c.meta, metaCatches, append([]ErrorClass(nil), catches...)))
	c.apply(opts)
	return c
}

func declare[T any](kind ClassKind, opts ...[]ClassOption) *ClassDef {
	t := reflect.TypeFor[T]()

	c := &ClassDef{typ: baseType(t), meta: metadata.New()}
	if c.typ.Kind() != reflect.Struct {
		c.fail(fmt.Sprintf("%s is not a struct type", t))
		return c
	}

	c.record(metadata.Set(c.meta, metaKind, kind))
	c.scanTags()
	for _, o := range opts {
		c.apply(o)
	}
	return c
}

func (c *ClassDef) apply(opts []ClassOption) {
	for _, o := range opts {
		if o != nil {
			o.applyClass(c)
		}
	}
}

// scanTags records an injection for every field tagged `inject`. An empty
// tag injects the field's own type; otherwise the tag is a token name.
func (c *ClassDef) scanTags() {
	for i := 0; i < c.typ.NumField(); i++ {
		f := c.typ.Field(i)
		tag, ok := f.Tag.Lookup("inject")
		if !ok {
			continue
		}

		var dep Token
		switch {
		case tag == "":
			dep = classRef{typ: baseType(f.Type)}
		case reservedByName(tag) != nil:
			dep = reservedByName(tag)
		default:
			dep = Name(tag)
		}
		c.addInjection(f.Name, dep)
	}
}

func (c *ClassDef) addInjection(field string, dep Token) {
	f, ok := c.typ.FieldByName(field)
	if !ok {
		c.fail(fmt.Sprintf("field %s does not exist", field))
		return
	}
	if !f.IsExported() {
		c.fail(fmt.Sprintf("field %s is not exported", field))
		return
	}
	if dep == nil {
		c.fail(fmt.Sprintf("field %s injects a nil token", field))
		return
	}

	metadata.Update(c.meta, metaInjections, func(cur []InjectionEntry, _ bool) []InjectionEntry {
		for i, e := range cur {
			if e.Field == field {
				cur[i].Dependency = dep
				return cur
			}
		}
		return append(cur, InjectionEntry{Target: c, Field: field, Dependency: dep})
	})
}

func (c *ClassDef) record(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, metadata.ErrAlreadySet) {
		c.errs = append(c.errs, DeclarationError{Class: c.String(), Detail: err.Error(), Cause: ErrAlreadyDeclared})
		return
	}
	c.errs = append(c.errs, DeclarationError{Class: c.String(), Detail: err.Error()})
}

func (c *ClassDef) fail(detail string) {
	c.errs = append(c.errs, DeclarationError{Class: c.String(), Detail: detail})
}

// Err returns the declaration errors recorded for c.
func (c *ClassDef) Err() error {
	return errors.Join(c.errs...)
}

// Type returns the declared struct type.
func (c *ClassDef) Type() reflect.Type { return c.typ }

// Role returns the kind the class was declared with.
func (c *ClassDef) Role() ClassKind {
	k, _ := metadata.Get(c.meta, metaKind)
	return k
}

// Prefix returns the controller prefix.
func (c *ClassDef) Prefix() string {
	p, _ := metadata.Get(c.meta, metaPrefix)
	return p
}

// Injections returns the field injections declared for c.
func (c *ClassDef) Injections() []InjectionEntry {
	entries, _ := metadata.Get(c.meta, metaInjections)
	return append([]InjectionEntry(nil), entries...)
}

// Routes returns the routes declared on a controller.
func (c *ClassDef) Routes() []*RouteDef {
	routes, _ := metadata.Get(c.meta, metaRoutes)
	return append([]*RouteDef(nil), routes...)
}

// Metadata returns the custom value set with SetMetadata.
func (c *ClassDef) Metadata(key string) (any, bool) {
	return metadata.Get(c.meta, customKey(key))
}

func (c *ClassDef) guards() []Token {
	v, _ := metadata.Get(c.meta, metaGuards)
	return v
}

func (c *ClassDef) interceptors() []Token {
	v, _ := metadata.Get(c.meta, metaInterceptors)
	return v
}

func (c *ClassDef) pipes() []PipeRef {
	v, _ := metadata.Get(c.meta, metaPipes)
	return v
}

func (c *ClassDef) filters() []Token {
	v, _ := metadata.Get(c.meta, metaFilters)
	return v
}

func (c *ClassDef) catches() []ErrorClass {
	v, _ := metadata.Get(c.meta, metaCatches)
	return v
}

// dependencies returns every token c needs at instantiation or request
// time, in declaration order.
func (c *ClassDef) dependencies() []Token {
	var deps []Token
	for _, e := range c.Injections() {
		deps = append(deps, e.Dependency)
	}
	return deps
}

// Token implementation.

func (c *ClassDef) Key() Key        { return Key{name: typeName(c.typ)} }
func (c *ClassDef) Kind() TokenKind { return KindClass }
func (c *ClassDef) String() string  { return typeName(c.typ) }
func (*ClassDef) token()            {}

// ========================================
// Class options
// ========================================

// Inject declares that field receives the instance registered under tok.
func Inject(field string, tok Token) ClassOption {
	return classOptionFunc(func(c *ClassDef) {
		c.addInjection(field, tok)
	})
}

// Option is accepted both at class level and at route level.
type Option interface {
	ClassOption
	RouteOption
}

type metadataOption struct {
	key   string
	value any
}

// SetMetadata attaches a custom value to a class or a route. Setting the
// same key twice on one target is a declaration error.
func SetMetadata(key string, value any) Option {
	return metadataOption{key: key, value: value}
}

func (o metadataOption) applyClass(c *ClassDef) {
	c.record(metadata.Set(c.meta, customKey(o.key), o.value))
}

func (o metadataOption) applyRoute(r *RouteDef) error {
	if r.meta == nil {
		r.meta = metadata.New()
	}
	if err := metadata.Set(r.meta, customKey(o.key), o.value); err != nil {
		return DeclarationError{Detail: err.Error(), Cause: ErrAlreadyDeclared}
	}
	return nil
}

type middlewareOption struct {
	key    metadata.Key[[]Token]
	tokens []Token
	route  func(r *RouteDef, tokens []Token)
}

func (o middlewareOption) applyClass(c *ClassDef) {
	tokens := o.tokens
	metadata.Update(c.meta, o.key, func(cur []Token, _ bool) []Token {
		return append(cur, tokens...)
	})
}

func (o middlewareOption) applyRoute(r *RouteDef) error {
	o.route(r, o.tokens)
	return nil
}

// UseGuards adds guards to a controller or a route.
func UseGuards(tokens ...Token) Option {
	return middlewareOption{key: metaGuards, tokens: tokens, route: func(r *RouteDef, t []Token) {
		r.Guards = append(r.Guards, t...)
	}}
}

// UseInterceptors adds interceptors to a controller or a route.
func UseInterceptors(tokens ...Token) Option {
	return middlewareOption{key: metaInterceptors, tokens: tokens, route: func(r *RouteDef, t []Token) {
		r.Interceptors = append(r.Interceptors, t...)
	}}
}

// UseFilters adds error filters to a controller or a route.
func UseFilters(tokens ...Token) Option {
	return middlewareOption{key: metaFilters, tokens: tokens, route: func(r *RouteDef, t []Token) {
		r.Filters = append(r.Filters, t...)
	}}
}

type pipesOption struct {
	pipes []PipeRef
}

// UsePipes adds pipes to a controller or a route. A pipe is given either
// as a token or as a PipeSpec carrying a schema.
func UsePipes(pipes ...PipeRef) Option {
	return pipesOption{pipes: pipes}
}

func (o pipesOption) applyClass(c *ClassDef) {
	metadata.Update(c.meta, metaPipes, func(cur []PipeRef, _ bool) []PipeRef {
		return append(cur, o.pipes...)
	})
}

func (o pipesOption) applyRoute(r *RouteDef) error {
	r.Pipes = append(r.Pipes, o.pipes...)
	return nil
}

// ========================================
// Pipe references
// ========================================

// PipeRef names a pipe in UsePipes. Every Token is a PipeRef; PipeSpec
// adds a schema.
type PipeRef interface {
	pipe() (Token, *Schema)
}

func (n Name) pipe() (Token, *Schema)        { return n, nil }
func (s *Symbol) pipe() (Token, *Schema)     { return s, nil }
func (c *ClassDef) pipe() (Token, *Schema)   { return c, nil }
func (c classRef) pipe() (Token, *Schema)    { return c, nil }
func (d deferredRef) pipe() (Token, *Schema) { return d, nil }

// PipeSpec pairs a pipe token with the schema it validates against.
type PipeSpec struct {
	Token  Token
	Schema *Schema
}

func (p PipeSpec) pipe() (Token, *Schema) { return p.Token, p.Schema }

// WithSchema binds schema to the pipe registered under tok.
func WithSchema(tok Token, schema *Schema) PipeSpec {
	return PipeSpec{Token: tok, Schema: schema}
}

// Schema describes the shape a pipe validates its input against. Type is
// the Go type values are decoded into; In names the request part.
type Schema struct {
	In   string
	Type reflect.Type
}

// SchemaOf returns a schema for values of type T.
func SchemaOf[T any]() *Schema {
	return &Schema{Type: reflect.TypeFor[T]()}
}

func (s *Schema) String() string {
	if s == nil {
		return "<nil>"
	}
	if s.In == "" {
		return s.Type.String()
	}
	return s.In + ":" + s.Type.String()
}

// ========================================
// Error classes
// ========================================

// ErrorClass selects the errors a filter catches.
type ErrorClass struct {
	name  string
	match func(err error) bool
}

// Catch returns the error class of E. An error matches when errors.As
// finds an E in its chain.
func Catch[E error]() ErrorClass {
	return ErrorClass{
		name: typeName(baseType(reflect.TypeFor[E]())),
		match: func(err error) bool {
			var target E
			return errors.As(err, &target)
		},
	}
}

// Matches reports whether err belongs to the class.
func (c ErrorClass) Matches(err error) bool {
	return c.match != nil && c.match(err)
}

func (c ErrorClass) String() string { return c.name }

func reservedByName(name string) *Symbol {
	for _, sym := range []*Symbol{AppLogger, AppInterceptor, AppGuard, AppFilter, AppPipe} {
		if strings.EqualFold(sym.desc, name) {
			return sym
		}
	}
	return nil
}
