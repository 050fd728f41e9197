package wired

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
)

// ContextType is the kind of call an ExecutionContext describes.
type ContextType string

// ContextHTTP is the only context type produced by the pipeline.
const ContextHTTP ContextType = "http"

// ExecutionContext describes the request being handled: its raw
// arguments, the controller class and the handler method. It is created
// once per request and shared by every middleware of that request.
type ExecutionContext struct {
	args      []any
	typ       ContextType
	class     *ClassDef
	route     *RouteDef
	handler   string
	requestID string
	validator ValidatorCompiler
	logger    Logger

	mu     sync.RWMutex
	values map[any]any
}

func newExecutionContext(w http.ResponseWriter, r *http.Request, p *pipeline) *ExecutionContext {
	return &ExecutionContext{
		args:      []any{r, w},
		typ:       ContextHTTP,
		class:     p.class,
		route:     p.route,
		handler:   p.route.Handler,
		requestID: requestID(r),
		validator: p.validator(),
		logger:    p.logger,
	}
}

// RequestIDHeader is read to obtain the request ID. When absent a new UUID
// is generated.
const RequestIDHeader = "X-Request-ID"

func requestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		return id
	}
	return uuid.NewString()
}

// Args returns the raw handler arguments: the request and the response
// writer.
func (c *ExecutionContext) Args() []any {
	return append([]any(nil), c.args...)
}

// Arg returns the raw argument at index, or nil.
func (c *ExecutionContext) Arg(index int) any {
	if index < 0 || index >= len(c.args) {
		return nil
	}
	return c.args[index]
}

// Type returns the context type.
func (c *ExecutionContext) Type() ContextType { return c.typ }

// HTTPHost gives typed access to the HTTP arguments.
type HTTPHost struct {
	r *http.Request
	w http.ResponseWriter
}

// Request returns the incoming request.
func (h HTTPHost) Request() *http.Request { return h.r }

// Response returns the response writer.
func (h HTTPHost) Response() http.ResponseWriter { return h.w }

// SwitchToHTTP returns the HTTP arguments of the context.
func (c *ExecutionContext) SwitchToHTTP() HTTPHost {
	if c.typ != ContextHTTP {
		return HTTPHost{}
	}
	r, _ := c.Arg(0).(*http.Request)
	w, _ := c.Arg(1).(http.ResponseWriter)
	return HTTPHost{r: r, w: w}
}

// Class returns the controller class handling the request.
func (c *ExecutionContext) Class() *ClassDef { return c.class }

// Handler returns the name of the controller method handling the request.
func (c *ExecutionContext) Handler() string { return c.handler }

// Route returns the route being handled.
func (c *ExecutionContext) Route() *RouteDef { return c.route }

// Context returns the request's context.
func (c *ExecutionContext) Context() context.Context {
	if r := c.SwitchToHTTP().Request(); r != nil {
		return r.Context()
	}
	return context.Background()
}

// RequestID returns the ID of the request.
func (c *ExecutionContext) RequestID() string { return c.requestID }

// Logger returns the application logger.
func (c *ExecutionContext) Logger() Logger { return c.logger }

// Validator returns the adapter's validator compiler, or nil.
func (c *ExecutionContext) Validator() ValidatorCompiler { return c.validator }

// Metadata looks key up on the handler first and then on the controller.
func (c *ExecutionContext) Metadata(key string) (any, bool) {
	if c.route != nil {
		if v, ok := c.route.Metadata(key); ok {
			return v, true
		}
	}
	if c.class != nil {
		return c.class.Metadata(key)
	}
	return nil, false
}

// Set stores a request-scoped value, for example the authenticated user.
func (c *ExecutionContext) Set(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.values == nil {
		c.values = make(map[any]any)
	}
	c.values[key] = value
}

// Value returns a value stored with Set.
func (c *ExecutionContext) Value(key any) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}
