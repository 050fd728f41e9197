// Package validation compiles route schemas into validators backed by
// go-playground/validator.
//
// Install the compiler on an adapter:
//
//	adapter := wiredchi.New(wiredchi.WithValidatorCompiler(validation.Compiler()))
//
// Struct schemas are checked with their `validate` tags. Schemas of any
// other kind are not validated.
package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/junioryono/wired"
)

// Config configures the compiler.
type Config struct {
	// Validate is the validator instance. A new one is created if nil.
	Validate *validator.Validate

	// TagName is the struct tag holding the rules. Defaults to "validate".
	TagName string
}

// Option configures the compiler.
type Option func(*Config)

// WithValidator uses v instead of a new validator, keeping any custom
// rules registered on it.
func WithValidator(v *validator.Validate) Option {
	return func(c *Config) {
		c.Validate = v
	}
}

// WithTagName changes the struct tag holding the rules.
func WithTagName(name string) Option {
	return func(c *Config) {
		c.TagName = name
	}
}

// Compiler returns a wired.ValidatorCompiler.
func Compiler(opts ...Option) wired.ValidatorCompiler {
	cfg := &Config{TagName: "validate"}
	for _, opt := range opts {
		opt(cfg)
	}

	v := cfg.Validate
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}
	v.SetTagName(cfg.TagName)
	v.RegisterTagNameFunc(fieldName)

	return func(schema *wired.Schema) wired.ValidateFunc {
		if schema == nil || schema.Type == nil {
			return nil
		}
		t := schema.Type
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			return nil
		}
		return func(value any) error {
			return check(v, value)
		}
	}
}

func check(v *validator.Validate, value any) error {
	err := v.Struct(value)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := Error{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field: fe.Field(),
			Rule:  fe.Tag(),
			Param: fe.Param(),
		})
	}
	return out
}

// fieldName reports fields by their json or query name.
func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "query"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			continue
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// FieldError is one failed rule.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e FieldError) String() string {
	if e.Param == "" {
		return fmt.Sprintf("%s failed on %s", e.Field, e.Rule)
	}
	return fmt.Sprintf("%s failed on %s=%s", e.Field, e.Rule, e.Param)
}

// Error lists every failed rule of a value.
type Error struct {
	Fields []FieldError
}

func (e Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
