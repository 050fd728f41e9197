package wired

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/wired/internal/serial"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors that are wrapped in typed errors when returned.

var (
	// Declaration errors.
	ErrInvalidDeclaration = errors.New("invalid declaration")
	ErrAlreadyDeclared    = errors.New("metadata already declared")

	// Resolution errors.
	ErrProviderNotFound   = errors.New("provider not found")
	ErrDependencyNotFound = errors.New("dependency not found")

	// Module errors.
	ErrInaccessibleProvider = errors.New("provider is not accessible from module")
	ErrModuleCycle          = errors.New("module import cycle")
	ErrReservedTokenClaimed = errors.New("reserved token already claimed")

	// Registration errors.
	ErrRootModuleNil = errors.New("root module cannot be nil")
	ErrAdapterNil    = errors.New("adapter cannot be nil")
	ErrInvalidPath   = errors.New("invalid path segment")
	ErrRouteConflict = errors.New("route already registered")
)

var (
	_ error = DeclarationError{}
	_ error = ResolutionError{}
	_ error = AccessError{}
	_ error = ModuleCycleError{}
	_ error = ReservedTokenError{}
	_ error = ModuleError{}
	_ error = PathError{}
	_ error = InjectionError{}
	_ error = FactoryError{}
	_ error = TypeMismatchError{}
	_ error = RouteConflictError{}
)

// PanicError is returned when a middleware stage, a policy or a handler
// panics.
type PanicError = serial.PanicError

// ========================================
// Typed Errors
// ========================================

// DeclarationError reports malformed class metadata, such as a handler
// that does not exist or a metadata key set twice.
type DeclarationError struct {
	Class  string
	Detail string
	Cause  error
}

func (e DeclarationError) Error() string {
	if e.Class == "" {
		return fmt.Sprintf("invalid declaration: %s", e.Detail)
	}
	return fmt.Sprintf("invalid declaration of %s: %s", e.Class, e.Detail)
}

func (e DeclarationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{ErrInvalidDeclaration, e.Cause}
	}
	return []error{ErrInvalidDeclaration}
}

// ResolutionError reports a token that is not present in the instance map.
// Owner is set when the missing token was requested by another provider.
type ResolutionError struct {
	Owner Token
	Token Token
	Cause error
}

func (e ResolutionError) Error() string {
	var b strings.Builder

	if e.Owner != nil {
		b.WriteString(fmt.Sprintf("%s: %s requires %s", e.cause().Error(), tokenString(e.Owner), tokenString(e.Token)))
	} else {
		b.WriteString(fmt.Sprintf("%s: %s", e.cause().Error(), tokenString(e.Token)))
	}

	if errors.Is(e.cause(), ErrDependencyNotFound) {
		b.WriteString(" (maybe it was not declared or not provided by any module)")
	}

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	return e.cause()
}

func (e ResolutionError) cause() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrProviderNotFound
}

// AccessError reports a provider or controller that injects a token the
// module cannot see.
type AccessError struct {
	Module     string
	Owner      Token
	Dependency Token
	Accessible []Key
}

func (e AccessError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s injects %s, which is not accessible from module %s",
		tokenString(e.Owner), tokenString(e.Dependency), e.Module))

	if len(e.Accessible) > 0 {
		names := make([]string, len(e.Accessible))
		for i, k := range e.Accessible {
			names[i] = k.String()
		}
		b.WriteString(fmt.Sprintf("\n\naccessible tokens: %s\n", strings.Join(names, ", ")))
		b.WriteString("\nTo resolve this:\n")
		b.WriteString(fmt.Sprintf("  • Add %s to the providers of %s\n", tokenString(e.Dependency), e.Module))
		b.WriteString(fmt.Sprintf("  • Import a module that exports %s\n", tokenString(e.Dependency)))
		b.WriteString("  • Mark the providing module as global\n")
	}

	return b.String()
}

func (e AccessError) Unwrap() error {
	return ErrInaccessibleProvider
}

// ModuleCycleError reports an import cycle. Reimport is set when the module
// was not on the active import stack but had already been registered
// through another branch.
type ModuleCycleError struct {
	Path     []string
	Reimport bool
}

func (e ModuleCycleError) Error() string {
	chain := strings.Join(e.Path, " -> ")
	if e.Reimport {
		return fmt.Sprintf("module imported more than once: %s (set AllowCrossModuleCircularReference to allow it)", chain)
	}
	return fmt.Sprintf("module import cycle detected: %s", chain)
}

func (e ModuleCycleError) Unwrap() error {
	return ErrModuleCycle
}

// ReservedTokenError reports a second provider claiming a reserved token.
type ReservedTokenError struct {
	Token  *Symbol
	Module string
}

func (e ReservedTokenError) Error() string {
	return fmt.Sprintf("%s is already provided, second provider found in module %s", e.Token, e.Module)
}

func (e ReservedTokenError) Unwrap() error {
	return ErrReservedTokenClaimed
}

// ModuleError wraps an error with the module it occurred in.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %s: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// PathError reports a route or prefix segment with invalid characters.
type PathError struct {
	Path    string
	Segment string
}

func (e PathError) Error() string {
	return fmt.Sprintf("invalid path %q: segment %q may only contain letters, digits, '_' and '-'", e.Path, e.Segment)
}

func (e PathError) Unwrap() error {
	return ErrInvalidPath
}

// RouteConflictError reports a method and URL registered twice.
type RouteConflictError struct {
	Method string
	URL    string
}

func (e RouteConflictError) Error() string {
	return fmt.Sprintf("route %s %s is already registered", e.Method, e.URL)
}

func (e RouteConflictError) Unwrap() error {
	return ErrRouteConflict
}

// InjectionError reports a dependency that cannot be assigned to the
// field it was declared for.
type InjectionError struct {
	Owner  Token
	Field  string
	Detail string
}

func (e InjectionError) Error() string {
	return fmt.Sprintf("cannot inject %s.%s: %s", tokenString(e.Owner), e.Field, e.Detail)
}

// FactoryError wraps an error returned by a factory provider.
type FactoryError struct {
	Token Token
	Cause error
}

func (e FactoryError) Error() string {
	return fmt.Sprintf("factory for %s failed: %v", tokenString(e.Token), e.Cause)
}

func (e FactoryError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError reports an instance that is not of the requested type.
type TypeMismatchError struct {
	Token    Token
	Expected reflect.Type
	Actual   reflect.Type
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch for %s: expected %v, got %v", tokenString(e.Token), e.Expected, e.Actual)
}

// ========================================
// Helpers
// ========================================

// IsResolutionError reports whether err was caused by a missing provider or
// dependency.
func IsResolutionError(err error) bool {
	return errors.Is(err, ErrProviderNotFound) || errors.Is(err, ErrDependencyNotFound)
}

// IsModuleCycle reports whether err was caused by an import cycle or a
// rejected re-import.
func IsModuleCycle(err error) bool {
	return errors.Is(err, ErrModuleCycle)
}

// IsAccessError reports whether err was caused by an inaccessible provider.
func IsAccessError(err error) bool {
	return errors.Is(err, ErrInaccessibleProvider)
}

// IsDeclarationError reports whether err was caused by malformed metadata.
func IsDeclarationError(err error) bool {
	return errors.Is(err, ErrInvalidDeclaration) || errors.Is(err, ErrAlreadyDeclared)
}

func tokenString(tok Token) string {
	if tok == nil {
		return "<nil>"
	}
	return tok.String()
}
