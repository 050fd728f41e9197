package wired

import (
	"fmt"
	"net/http"
)

// HTTPException is an error carrying an HTTP status.
type HTTPException struct {
	Status  int
	Title   string
	Message string
}

func (e *HTTPException) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Message)
}

// Response returns the JSON body describing the exception.
func (e *HTTPException) Response() map[string]any {
	return map[string]any{
		"statusCode": e.Status,
		"error":      e.Title,
		"message":    e.Message,
	}
}

// NewHTTPException creates an exception for status. An empty message
// defaults to the status text.
func NewHTTPException(status int, message string) *HTTPException {
	title := http.StatusText(status)
	if message == "" {
		message = title
	}
	return &HTTPException{Status: status, Title: title, Message: message}
}

func exception(status int, message []string) *HTTPException {
	if len(message) > 0 {
		return NewHTTPException(status, message[0])
	}
	return NewHTTPException(status, "")
}

// BadRequest returns a 400 exception.
func BadRequest(message ...string) *HTTPException {
	return exception(http.StatusBadRequest, message)
}

// Unauthorized returns a 401 exception.
func Unauthorized(message ...string) *HTTPException {
	return exception(http.StatusUnauthorized, message)
}

// Forbidden returns a 403 exception. A guard returning false produces
// Forbidden().
func Forbidden(message ...string) *HTTPException {
	return exception(http.StatusForbidden, message)
}

func NotFound(message ...string) *HTTPException {
	return exception(http.StatusNotFound, message)
}

func MethodNotAllowed(message ...string) *HTTPException {
	return exception(http.StatusMethodNotAllowed, message)
}

func NotAcceptable(message ...string) *HTTPException {
	return exception(http.StatusNotAcceptable, message)
}

func RequestTimeout(message ...string) *HTTPException {
	return exception(http.StatusRequestTimeout, message)
}

func Conflict(message ...string) *HTTPException {
	return exception(http.StatusConflict, message)
}

func Gone(message ...string) *HTTPException {
	return exception(http.StatusGone, message)
}

func PreconditionFailed(message ...string) *HTTPException {
	return exception(http.StatusPreconditionFailed, message)
}

// PayloadTooLarge returns a 413 exception.
func PayloadTooLarge(message ...string) *HTTPException {
	e := exception(http.StatusRequestEntityTooLarge, message)
	e.Title = "Payload Too Large"
	if len(message) == 0 {
		e.Message = e.Title
	}
	return e
}

func UnsupportedMediaType(message ...string) *HTTPException {
	return exception(http.StatusUnsupportedMediaType, message)
}

func UnprocessableEntity(message ...string) *HTTPException {
	return exception(http.StatusUnprocessableEntity, message)
}

func TooManyRequests(message ...string) *HTTPException {
	return exception(http.StatusTooManyRequests, message)
}

func InternalServerError(message ...string) *HTTPException {
	return exception(http.StatusInternalServerError, message)
}

func NotImplemented(message ...string) *HTTPException {
	return exception(http.StatusNotImplemented, message)
}

func BadGateway(message ...string) *HTTPException {
	return exception(http.StatusBadGateway, message)
}

func ServiceUnavailable(message ...string) *HTTPException {
	return exception(http.StatusServiceUnavailable, message)
}

func GatewayTimeout(message ...string) *HTTPException {
	return exception(http.StatusGatewayTimeout, message)
}

func HTTPVersionNotSupported(message ...string) *HTTPException {
	return exception(http.StatusHTTPVersionNotSupported, message)
}

// HTTPExceptionFilter writes an *HTTPException with its own status and
// Response body. Register it with UseFilters or as the AppFilter provider.
//
// Example:
//
//	wired.UseClass(wired.AppFilter, wired.HTTPExceptionFilterClass)
type HTTPExceptionFilter struct{}

// HTTPExceptionFilterClass declares HTTPExceptionFilter.
var HTTPExceptionFilterClass = FilterClass[HTTPExceptionFilter]([]ErrorClass{Catch[*HTTPException]()})

// Catch implements Filter.
func (HTTPExceptionFilter) Catch(ctx *ExecutionContext, err error) (any, error) {
	var exc *HTTPException
	if !asHTTPException(err, &exc) {
		return nil, err
	}

	w := ctx.SwitchToHTTP().Response()
	if err := WriteJSON(w, exc.Status, exc.Response()); err != nil {
		return nil, err
	}
	return nil, nil
}
