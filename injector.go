package wired

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/junioryono/wired/internal/serial"
)

// Injector owns the singleton instances of one registration. Instances are
// created in a first phase and wired by Apply in a second one, so classes
// may reference each other through fields.
type Injector struct {
	mu sync.RWMutex

	instances map[Key]any
	tokens    map[Key]Token

	// pending holds the field injections queued by class instantiation and
	// not yet applied. applied holds those Apply consumed.
	pending []InjectionEntry
	applied []InjectionEntry
}

// NewInjector creates an empty injector.
func NewInjector() *Injector {
	return &Injector{
		instances: make(map[Key]any),
		tokens:    make(map[Key]Token),
	}
}

// CreateInstance creates the instance described by p and stores it under
// p's token. A token that already has an instance is returned as is.
func (in *Injector) CreateInstance(p Provider) (any, error) {
	if err := validateProvider(p); err != nil {
		return nil, err
	}

	tok := p.Provide()
	if v, ok := in.Get(tok); ok {
		return v, nil
	}

	switch p := p.(type) {
	case *ClassDef:
		return in.createClass(tok, p), nil

	case ClassProvider:
		return in.createClass(tok, p.Class), nil

	case ValueProvider:
		in.store(tok, p.Value)
		return p.Value, nil

	case FactoryProvider:
		deps := make([]any, len(p.Inject))
		for i, dep := range p.Inject {
			v, ok := in.Get(dep)
			if !ok {
				return nil, ResolutionError{Owner: tok, Token: dep, Cause: ErrDependencyNotFound}
			}
			deps[i] = v
		}

		v, err := serial.Protect("factory "+tok.String(), "factory", func() (any, error) {
			return p.Factory(deps...)
		})
		if err != nil {
			return nil, FactoryError{Token: tok, Cause: err}
		}
		in.store(tok, v)
		return v, nil

	case ExistingProvider:
		v, ok := in.Get(p.Existing)
		if !ok {
			return nil, ResolutionError{Owner: tok, Token: p.Existing, Cause: ErrProviderNotFound}
		}
		in.store(tok, v)
		return v, nil

	default:
		return nil, DeclarationError{Detail: fmt.Sprintf("unknown provider %T", p)}
	}
}

// createClass allocates a zero instance and queues its field injections.
// Constructors take no arguments; dependencies arrive through fields.
func (in *Injector) createClass(tok Token, class *ClassDef) any {
	v := reflect.New(class.typ).Interface()
	in.store(tok, v)

	in.mu.Lock()
	for _, e := range class.Injections() {
		e.Target = tok
		in.pending = append(in.pending, e)
	}
	in.mu.Unlock()

	return v
}

func (in *Injector) store(tok Token, v any) {
	in.mu.Lock()
	defer in.mu.Unlock()

	key := tok.Key()
	in.instances[key] = v
	in.tokens[key] = tok
}

// Set stores v under tok, replacing any previous instance.
func (in *Injector) Set(tok Token, v any) {
	in.store(tok, v)
}

// Get returns the instance registered under tok.
func (in *Injector) Get(tok Token) (any, bool) {
	if tok == nil {
		return nil, false
	}
	return in.lookup(tok.Key())
}

func (in *Injector) lookup(key Key) (any, bool) {
	in.mu.RLock()
	defer in.mu.RUnlock()
	v, ok := in.instances[key]
	return v, ok
}

// Has reports whether tok has an instance.
func (in *Injector) Has(tok Token) bool {
	_, ok := in.Get(tok)
	return ok
}

// Keys returns the keys of all instances, sorted by name.
func (in *Injector) Keys() []Key {
	in.mu.RLock()
	defer in.mu.RUnlock()

	keys := make([]Key, 0, len(in.instances))
	for k := range in.instances {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Pending returns the number of queued injections.
func (in *Injector) Pending() int {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return len(in.pending)
}

// Apply wires every queued injection. logger becomes the AppLogger instance
// when no provider claimed it. Each queued entry is consumed once.
func (in *Injector) Apply(logger Logger) error {
	if !in.Has(AppLogger) && logger != nil {
		in.store(AppLogger, logger)
	}

	in.mu.Lock()
	pending := in.pending
	in.pending = nil
	in.mu.Unlock()

	for i, e := range pending {
		if err := in.inject(e); err != nil {
			in.mu.Lock()
			in.pending = append(pending[i:], in.pending...)
			in.mu.Unlock()
			return err
		}
		in.mu.Lock()
		in.applied = append(in.applied, e)
		in.mu.Unlock()
	}

	return nil
}

func (in *Injector) inject(e InjectionEntry) error {
	owner, ok := in.Get(e.Target)
	if !ok {
		return ResolutionError{Token: e.Target, Cause: ErrProviderNotFound}
	}
	dep, ok := in.Get(e.Dependency)
	if !ok {
		return ResolutionError{Owner: e.Target, Token: e.Dependency, Cause: ErrDependencyNotFound}
	}

	field, err := injectableField(e, owner)
	if err != nil {
		return err
	}

	if dep == nil {
		field.SetZero()
		return nil
	}

	value := reflect.ValueOf(dep)
	if !value.Type().AssignableTo(field.Type()) {
		return InjectionError{
			Owner:  e.Target,
			Field:  e.Field,
			Detail: fmt.Sprintf("%s (%s) is not assignable to %s", e.Dependency, value.Type(), field.Type()),
		}
	}
	field.Set(value)
	return nil
}

func injectableField(e InjectionEntry, owner any) (reflect.Value, error) {
	v := reflect.ValueOf(owner)
	if v.Kind() != reflect.Pointer || v.IsNil() || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, InjectionError{Owner: e.Target, Field: e.Field, Detail: fmt.Sprintf("owner is %T, not a struct pointer", owner)}
	}

	field := v.Elem().FieldByName(e.Field)
	if !field.IsValid() || !field.CanSet() {
		return reflect.Value{}, InjectionError{Owner: e.Target, Field: e.Field, Detail: "field is missing or unexported"}
	}
	return field, nil
}

// CheckMissing re-walks the applied injections and reports the first one
// whose dependency is gone or whose field no longer holds it. Zero values
// that were provided count as populated.
func (in *Injector) CheckMissing() error {
	in.mu.RLock()
	applied := append([]InjectionEntry(nil), in.applied...)
	in.mu.RUnlock()

	for _, e := range applied {
		owner, ok := in.Get(e.Target)
		if !ok {
			return ResolutionError{Token: e.Target, Cause: ErrProviderNotFound}
		}
		dep, ok := in.Get(e.Dependency)
		if !ok {
			return ResolutionError{Owner: e.Target, Token: e.Dependency, Cause: ErrDependencyNotFound}
		}
		field, err := injectableField(e, owner)
		if err != nil {
			return err
		}
		if !holds(field, dep) {
			return InjectionError{
				Owner:  e.Target,
				Field:  e.Field,
				Detail: fmt.Sprintf("field no longer holds %s", e.Dependency),
			}
		}
	}
	return nil
}

// holds reports whether field carries dep. Values that cannot be compared
// only need a matching type.
func holds(field reflect.Value, dep any) bool {
	if dep == nil {
		return field.IsZero()
	}
	want := reflect.ValueOf(dep)
	if !want.Type().AssignableTo(field.Type()) {
		return false
	}

	got := field
	if got.Kind() == reflect.Interface {
		if got.IsNil() {
			return false
		}
		got = got.Elem()
	} else {
		want = want.Convert(field.Type())
	}
	if got.Type() != want.Type() {
		return false
	}
	if !got.Comparable() || !want.Comparable() {
		return true
	}
	return got.Equal(want)
}

// snapshot returns a copy of the instance map.
func (in *Injector) snapshot() map[Key]any {
	in.mu.RLock()
	defer in.mu.RUnlock()

	out := make(map[Key]any, len(in.instances))
	for k, v := range in.instances {
		out[k] = v
	}
	return out
}
