package wired

import (
	"log/slog"
)

// Guard decides whether a request may reach its handler. Returning false
// rejects the request with a Forbidden exception; returning an error hands
// that error to the filters unchanged.
type Guard interface {
	CanActivate(ctx *ExecutionContext) (bool, error)
}

// LeaveFunc runs after the handler returned. Leave functions run in the
// reverse order of the interceptors that returned them.
type LeaveFunc func() error

// Interceptor runs before guards. The LeaveFunc it returns, if any, runs
// after the handler.
type Interceptor interface {
	Intercept(ctx *ExecutionContext) (LeaveFunc, error)
}

// Pipe transforms the handler arguments. The first pipe receives the raw
// request and response writer; each following pipe receives the output of
// the previous one. schema is only passed when the pipe was declared with
// one.
type Pipe interface {
	Transform(ctx *ExecutionContext, input []any, schema ...*Schema) ([]any, error)
}

// Filter handles an error raised anywhere in the pipeline. A non-nil result
// is written as the response body.
type Filter interface {
	Catch(ctx *ExecutionContext, err error) (any, error)
}

// Logger is the logging interface used by registration and by the default
// filter. *slog.Logger implements it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var _ Logger = (*slog.Logger)(nil)

func defaultLogger() Logger {
	return slog.Default()
}
