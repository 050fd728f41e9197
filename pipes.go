package wired

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"reflect"
	"sync"

	"github.com/go-viper/mapstructure/v2"
)

// Built-in pipe classes. They are instantiated by every registration and
// need not be listed as providers.
var (
	BodyPipeClass  = PipeClass[BodyPipe]()
	QueryPipeClass = PipeClass[QueryPipe]()
	RawPipeClass   = PipeClass[RawPipe]()
	IPPipeClass    = PipeClass[IPPipe]()
)

func builtinPipes() []*ClassDef {
	return []*ClassDef{BodyPipeClass, QueryPipeClass, RawPipeClass, IPPipeClass}
}

// Body passes the decoded JSON request body and the response writer to the
// handler. With a schema the body is decoded into a new value of the
// schema's type and validated.
//
// Example:
//
//	wired.Post("", "Create", wired.UsePipes(wired.Body(wired.SchemaOf[CreateItem]())))
//
//	func (c *ItemsController) Create(in *CreateItem, w http.ResponseWriter) (*Item, error)
func Body(schema ...*Schema) PipeRef {
	return builtinRef(BodyPipeClass, "body", schema)
}

// Query passes the query string and the response writer to the handler.
// With a schema the query is decoded into a new value of the schema's
// type, using `query` struct tags, and validated.
func Query(schema ...*Schema) PipeRef {
	return builtinRef(QueryPipeClass, "querystring", schema)
}

// Raw passes the request and the response writer to the handler.
func Raw() PipeRef { return RawPipeClass }

// IP passes the client IP address and the response writer to the handler.
func IP() PipeRef { return IPPipeClass }

func builtinRef(class *ClassDef, in string, schema []*Schema) PipeRef {
	if len(schema) == 0 || schema[0] == nil {
		return class
	}
	s := *schema[0]
	s.In = in
	return PipeSpec{Token: class, Schema: &s}
}

// transformer decodes a request part and validates it against a schema.
// Compiled validators are cached per schema.
type transformer struct {
	validators sync.Map // *Schema -> ValidateFunc
}

func (t *transformer) validate(ctx *ExecutionContext, schema *Schema, value any) error {
	fn, ok := t.validators.Load(schema)
	if !ok {
		compiler := ctx.Validator()
		if compiler == nil {
			return nil
		}
		var compiled ValidateFunc = compiler(schema)
		fn, _ = t.validators.LoadOrStore(schema, compiled)
	}

	validate, _ := fn.(ValidateFunc)
	if validate == nil {
		return nil
	}
	if err := validate(value); err != nil {
		return BadRequest(err.Error())
	}
	return nil
}

func schemaFrom(schema []*Schema) *Schema {
	if len(schema) == 0 {
		return nil
	}
	return schema[0]
}

func newValue(schema *Schema) reflect.Value {
	return reflect.New(baseType(schema.Type))
}

// BodyPipe implements the Body pipe.
type BodyPipe struct {
	transformer
}

func (p *BodyPipe) Transform(ctx *ExecutionContext, _ []any, schema ...*Schema) ([]any, error) {
	host := ctx.SwitchToHTTP()
	r, w := host.Request(), host.Response()
	s := schemaFrom(schema)

	if s == nil {
		var data any
		if err := decodeBody(r, &data); err != nil {
			return nil, err
		}
		return []any{data, w}, nil
	}

	v := newValue(s)
	if err := decodeBody(r, v.Interface()); err != nil {
		return nil, err
	}
	if err := p.validate(ctx, s, v.Interface()); err != nil {
		return nil, err
	}
	return []any{v.Interface(), w}, nil
}

func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return BadRequest(err.Error())
	}
	return nil
}

// QueryPipe implements the Query pipe.
type QueryPipe struct {
	transformer
}

func (p *QueryPipe) Transform(ctx *ExecutionContext, _ []any, schema ...*Schema) ([]any, error) {
	host := ctx.SwitchToHTTP()
	r, w := host.Request(), host.Response()
	query := r.URL.Query()
	s := schemaFrom(schema)

	if s == nil {
		return []any{query, w}, nil
	}

	input := make(map[string]any, len(query))
	for k, vs := range query {
		if len(vs) == 1 {
			input[k] = vs[0]
		} else {
			input[k] = vs
		}
	}

	v := newValue(s)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           v.Interface(),
		TagName:          "query",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(input); err != nil {
		return nil, BadRequest(err.Error())
	}
	if err := p.validate(ctx, s, v.Interface()); err != nil {
		return nil, err
	}
	return []any{v.Interface(), w}, nil
}

// RawPipe implements the Raw pipe.
type RawPipe struct{}

func (RawPipe) Transform(ctx *ExecutionContext, _ []any, _ ...*Schema) ([]any, error) {
	host := ctx.SwitchToHTTP()
	return []any{host.Request(), host.Response()}, nil
}

// IPPipe implements the IP pipe.
type IPPipe struct{}

func (IPPipe) Transform(ctx *ExecutionContext, _ []any, _ ...*Schema) ([]any, error) {
	host := ctx.SwitchToHTTP()
	return []any{clientIP(host.Request()), host.Response()}, nil
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
