// Package wiredtest wires controllers and providers for unit tests without
// modules, access checks or routes.
//
//	tm, err := wiredtest.CreateTestingModule(wiredtest.Metadata{
//	    Controllers: []*wired.ClassDef{UsersController},
//	    Providers:   []wired.Provider{UsersService},
//	}).OverrideProvider(UsersService, &fakeUsers{}).Compile()
//
//	users := wiredtest.MustGet[*Users](t, tm, UsersController)
package wiredtest

import (
	"log/slog"
	"testing"

	"github.com/junioryono/wired"
	"github.com/stretchr/testify/require"
)

// Metadata lists what a testing module instantiates.
type Metadata struct {
	Controllers []*wired.ClassDef
	Providers   []wired.Provider

	// Logger becomes the AppLogger when no provider claims it. Defaults to
	// slog.Default.
	Logger wired.Logger
}

type override struct {
	tok   wired.Token
	value any
}

// Builder collects overrides before Compile.
type Builder struct {
	md        Metadata
	overrides []override
}

// CreateTestingModule starts a testing module.
func CreateTestingModule(md Metadata) *Builder {
	return &Builder{md: md}
}

// OverrideProvider replaces whatever is registered under tok with value.
// The last override of a token wins.
func (b *Builder) OverrideProvider(tok wired.Token, value any) *Builder {
	b.overrides = append(b.overrides, override{tok: tok, value: value})
	return b
}

// Compile creates every controller and provider in order and wires their
// fields. Factories see only instances created before them.
func (b *Builder) Compile() (*TestingModule, error) {
	in := wired.NewInjector()
	for _, o := range b.overrides {
		in.Set(o.tok, o.value)
	}

	list := make([]wired.Provider, 0, len(b.md.Controllers)+len(b.md.Providers))
	for _, c := range b.md.Controllers {
		list = append(list, c)
	}
	list = append(list, b.md.Providers...)

	for _, p := range list {
		if _, err := in.CreateInstance(p); err != nil {
			return nil, err
		}
	}

	logger := b.md.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := in.Apply(logger); err != nil {
		return nil, err
	}
	if err := in.CheckMissing(); err != nil {
		return nil, err
	}
	return &TestingModule{injector: in}, nil
}

// TestingModule holds the wired instances.
type TestingModule struct {
	injector *wired.Injector
}

var _ wired.Getter = (*TestingModule)(nil)

// Get returns the instance registered under tok.
func (m *TestingModule) Get(tok wired.Token) (any, bool) {
	return m.injector.Get(tok)
}

// Keys lists the keys of every instance, sorted by name.
func (m *TestingModule) Keys() []wired.Key {
	return m.injector.Keys()
}

// Get returns the instance registered under tok as a T.
func Get[T any](m *TestingModule, tok wired.Token) (T, error) {
	return wired.Resolve[T](m, tok)
}

// MustGet returns the instance registered under tok as a T and fails the
// test when it cannot.
func MustGet[T any](t testing.TB, m *TestingModule, tok wired.Token) T {
	t.Helper()
	v, err := Get[T](m, tok)
	require.NoError(t, err, "failed to resolve %v", tok)
	return v
}
