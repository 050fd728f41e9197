package wired

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"

	"github.com/junioryono/wired/internal/serial"
)

var errorType = reflect.TypeFor[error]()

// pipeCall is the input of one pipe stage.
type pipeCall struct {
	ctx    *ExecutionContext
	input  []any
	schema *Schema
}

// filterCall is the input of one filter stage.
type filterCall struct {
	ctx *ExecutionContext
	err error
}

// filterOutcome is the output of a filter that ran.
type filterOutcome struct {
	ran   bool
	value any
}

// pipeline runs the middleware chains around one controller method.
type pipeline struct {
	class     *ClassDef
	route     *RouteDef
	url       string
	logger    Logger
	validator func() ValidatorCompiler

	method reflect.Value

	intercept serial.Task[*ExecutionContext, LeaveFunc]
	guard     serial.Task[*ExecutionContext, bool]
	pipe      serial.Task[pipeCall, []any]
	filter    serial.Task[filterCall, filterOutcome]
}

// chain is the merged middleware of a route: global, then controller, then
// handler level.
type chain struct {
	guards       []Guard
	interceptors []Interceptor
	pipes        []Pipe
	schemas      []*Schema
	filters      []Filter
	catches      [][]ErrorClass
}

func newPipeline(class *ClassDef, route *RouteDef, url string, controller any, mw chain, logger Logger, validator func() ValidatorCompiler) (*pipeline, error) {
	method := reflect.ValueOf(controller).MethodByName(route.Handler)
	if !method.IsValid() {
		return nil, DeclarationError{Class: class.String(), Detail: fmt.Sprintf("handler method %s does not exist", route.Handler)}
	}
	if err := checkHandlerResults(method.Type()); err != nil {
		return nil, DeclarationError{Class: class.String(), Detail: fmt.Sprintf("handler %s: %v", route.Handler, err)}
	}

	name := fmt.Sprintf("%s %s", route.Method, url)
	p := &pipeline{
		class:     class,
		route:     route,
		url:       url,
		logger:    logger,
		validator: validator,
		method:    method,
	}

	interceptors := make([]serial.Stage[*ExecutionContext, LeaveFunc], len(mw.interceptors))
	for i, ic := range mw.interceptors {
		interceptors[i] = func(_ context.Context, ctx *ExecutionContext) (LeaveFunc, error) {
			return ic.Intercept(ctx)
		}
	}
	p.intercept = serial.New(serial.Options[*ExecutionContext, LeaveFunc]{
		Name:   name + " interceptors",
		Stages: interceptors,
	})

	guards := make([]serial.Stage[*ExecutionContext, bool], len(mw.guards))
	for i, g := range mw.guards {
		guards[i] = func(_ context.Context, ctx *ExecutionContext) (bool, error) {
			return g.CanActivate(ctx)
		}
	}
	p.guard = serial.New(serial.Options[*ExecutionContext, bool]{
		Name:   name + " guards",
		Stages: guards,
		Break: func(_ context.Context, step serial.Step[*ExecutionContext, bool]) (bool, error) {
			return step.Index > 0 && !step.Last, nil
		},
	})

	pipes := make([]serial.Stage[pipeCall, []any], len(mw.pipes))
	for i, pp := range mw.pipes {
		pipes[i] = func(_ context.Context, c pipeCall) ([]any, error) {
			if c.schema == nil {
				return pp.Transform(c.ctx, c.input)
			}
			return pp.Transform(c.ctx, c.input, c.schema)
		}
	}
	schemas := append([]*Schema(nil), mw.schemas...)
	p.pipe = serial.New(serial.Options[pipeCall, []any]{
		Name:   name + " pipes",
		Stages: pipes,
		Wrap: func(_ context.Context, step serial.Step[pipeCall, []any]) (pipeCall, error) {
			c := step.Args
			if step.Index > 0 {
				c.input = step.Last
			}
			c.schema = nil
			if step.Index < len(schemas) {
				c.schema = schemas[step.Index]
			}
			return c, nil
		},
	})

	filters := make([]serial.Stage[filterCall, filterOutcome], len(mw.filters))
	for i, f := range mw.filters {
		filters[i] = func(_ context.Context, c filterCall) (filterOutcome, error) {
			v, err := f.Catch(c.ctx, c.err)
			return filterOutcome{ran: true, value: v}, err
		}
	}
	catches := append([][]ErrorClass(nil), mw.catches...)
	p.filter = serial.New(serial.Options[filterCall, filterOutcome]{
		Name:   name + " filters",
		Stages: filters,
		// The first filter that runs decides the outcome.
		Break: func(_ context.Context, step serial.Step[filterCall, filterOutcome]) (bool, error) {
			return step.Last.ran, nil
		},
		Skip: func(_ context.Context, step serial.Step[filterCall, filterOutcome]) (bool, error) {
			return !catchesError(catches[step.Index], step.Args.err), nil
		},
	})

	return p, nil
}

func catchesError(classes []ErrorClass, err error) bool {
	if len(classes) == 0 {
		return true
	}
	for _, c := range classes {
		if c.Matches(err) {
			return true
		}
	}
	return false
}

// handle is the HandlerFunc of the route.
func (p *pipeline) handle(w http.ResponseWriter, r *http.Request) (any, error) {
	ctx := newExecutionContext(w, r, p)

	result, err := p.run(ctx)
	if err == nil {
		return result, nil
	}
	return p.catch(ctx, err)
}

// run executes interceptors, guards, pipes, the handler and the leave
// functions, in that order.
func (p *pipeline) run(ctx *ExecutionContext) (any, error) {
	rctx := ctx.Context()

	entered, err := p.intercept(rctx, ctx)
	if err != nil {
		return nil, err
	}

	guarded, err := p.guard(rctx, ctx)
	if err != nil {
		return nil, err
	}
	if !guarded.Trivial && !guarded.Value {
		return nil, Forbidden()
	}

	piped, err := p.pipe(rctx, pipeCall{ctx: ctx, input: ctx.Args()})
	if err != nil {
		return nil, err
	}
	args := piped.Value
	if piped.Trivial {
		args = ctx.Args()
	}

	result, err := p.invoke(args)
	if err != nil {
		return nil, err
	}

	for i := len(entered.Results) - 1; i >= 0; i-- {
		leave := entered.Results[i]
		if !entered.Ran[i] || leave == nil {
			continue
		}
		if _, err := serial.Protect(p.class.String()+" leave", "leave", func() (struct{}, error) {
			return struct{}{}, leave()
		}); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// invoke calls the controller method with args. Extra arguments are
// dropped; nil arguments become zero values.
func (p *pipeline) invoke(args []any) (any, error) {
	mt := p.method.Type()
	if mt.IsVariadic() {
		return nil, InternalServerError(fmt.Sprintf("handler %s cannot be variadic", p.route.Handler))
	}
	if len(args) < mt.NumIn() {
		return nil, InternalServerError(fmt.Sprintf("handler %s takes %d arguments, got %d", p.route.Handler, mt.NumIn(), len(args)))
	}

	in := make([]reflect.Value, mt.NumIn())
	for i := range in {
		want := mt.In(i)
		if args[i] == nil {
			in[i] = reflect.Zero(want)
			continue
		}
		v := reflect.ValueOf(args[i])
		if !v.Type().AssignableTo(want) {
			return nil, InternalServerError(fmt.Sprintf("handler %s argument %d: %s is not assignable to %s", p.route.Handler, i, v.Type(), want))
		}
		in[i] = v
	}

	return serial.Protect(p.class.String()+"."+p.route.Handler, "handler", func() (any, error) {
		return handlerResult(p.method.Call(in))
	})
}

func checkHandlerResults(mt reflect.Type) error {
	switch mt.NumOut() {
	case 0, 1:
		return nil
	case 2:
		if mt.Out(1) != errorType {
			return fmt.Errorf("second result must be error, got %s", mt.Out(1))
		}
		return nil
	default:
		return fmt.Errorf("returns %d values, at most 2 are supported", mt.NumOut())
	}
}

func handlerResult(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			return nil, asError(out[0])
		}
		return valueOf(out[0]), nil
	default:
		if err := asError(out[1]); err != nil {
			return nil, err
		}
		return valueOf(out[0]), nil
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

func valueOf(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

// catch hands err to the filter chain. Without a matching filter the
// default filter writes a 400 response.
func (p *pipeline) catch(ctx *ExecutionContext, err error) (any, error) {
	caught, ferr := p.filter(ctx.Context(), filterCall{ctx: ctx, err: err})
	if ferr != nil {
		return p.defaultFilter(ctx, ferr)
	}
	if !caught.Value.ran {
		return p.defaultFilter(ctx, err)
	}
	return caught.Value.value, nil
}

// defaultFilter logs err and writes {"error","message","details"} with
// status 400.
func (p *pipeline) defaultFilter(ctx *ExecutionContext, err error) (any, error) {
	r := ctx.SwitchToHTTP().Request()
	p.logger.Error(fmt.Sprintf("%s - %s", r.URL.String(), err.Error()),
		"request_id", ctx.RequestID(),
		"method", r.Method,
		"handler", p.class.String()+"."+p.route.Handler,
	)

	message := err.Error()
	var details any = message
	var exc *HTTPException
	if errors.As(err, &exc) {
		message = exc.Message
		details = exc.Response()
	}

	w := ctx.SwitchToHTTP().Response()
	if Written(w) {
		return nil, nil
	}
	return nil, WriteJSON(w, http.StatusBadRequest, map[string]any{
		"error":   "Bad Request",
		"message": message,
		"details": details,
	})
}
