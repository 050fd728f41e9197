package wired

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ResponseWriter wraps http.ResponseWriter to record whether a response
// was written. Adapters use it to skip serializing a handler result after
// a filter or the handler wrote the response.
type ResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

// NewResponseWriter wraps w. A w that is already a *ResponseWriter is
// returned as is.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

// WriteHeader captures the status code.
func (rw *ResponseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

// Write captures bytes written.
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Written reports whether a status or a body was written.
func (rw *ResponseWriter) Written() bool { return rw.wroteHeader }

// Status returns the written status code.
func (rw *ResponseWriter) Status() int { return rw.statusCode }

// Unwrap returns the wrapped writer, for http.ResponseController.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Written reports whether w is a *ResponseWriter that was written to.
func Written(w http.ResponseWriter) bool {
	rw, ok := w.(*ResponseWriter)
	return ok && rw.Written()
}

// WriteJSON writes v as a JSON response with status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, err = w.Write(body)
	return err
}

// Respond writes the outcome of a HandlerFunc. A non-nil value is written
// as JSON unless the response was already written. A returned error can
// only be a failure to write the error response; it is written as 500.
func Respond(w http.ResponseWriter, value any, err error) {
	if err != nil {
		if !Written(w) {
			status := http.StatusInternalServerError
			var exc *HTTPException
			if asHTTPException(err, &exc) {
				status = exc.Status
			}
			http.Error(w, err.Error(), status)
		}
		return
	}
	if value == nil || Written(w) {
		return
	}

	switch v := value.(type) {
	case []byte:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(v)
	case string:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(v))
	default:
		if err := WriteJSON(w, http.StatusOK, v); err != nil && !Written(w) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

func asHTTPException(err error, target **HTTPException) bool {
	return errors.As(err, target)
}
