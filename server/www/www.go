// Package www holds our HTTP helper layer: panic-based error shortcuts and
// a recover wrapper around httprouter handlers.
package www

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cyclopcam/logs"
	"github.com/julienschmidt/httprouter"
)

// HTTPError is an object that can be panic'ed, and the outer HTTP handler
// will return the appropriate HTTP error message.
type HTTPError struct {
	Code    int
	Message string
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("%v %v", e.Code, e.Message)
}

func Error(code int, message string) HTTPError {
	return HTTPError{code, message}
}

// Panic creates an HTTPError object and panics it.
func Panic(code int, message string) {
	panic(HTTPError{code, message})
}

func PanicBadRequestf(format string, args ...any) {
	panic(HTTPError{http.StatusBadRequest, fmt.Sprintf(format, args...)})
}

func PanicServiceUnavailable(message string) {
	panic(HTTPError{http.StatusServiceUnavailable, message})
}

// Handle wraps an httprouter handler so that a panic'ed HTTPError becomes a
// clean HTTP response, and anything else becomes a logged 500.
func Handle(log logs.Log, handler httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
		defer func() {
			if rec := recover(); rec != nil {
				if httpErr, ok := rec.(HTTPError); ok {
					http.Error(w, httpErr.Message, httpErr.Code)
				} else {
					log.Errorf("Panic in HTTP handler %v: %v", r.URL.Path, rec)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}
		}()
		handler(w, r, params)
	}
}

// SendJSON marshals obj and writes it as an application/json response.
func SendJSON(w http.ResponseWriter, obj any) {
	b, err := json.Marshal(obj)
	if err != nil {
		Panic(http.StatusInternalServerError, err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

// SendText writes a plain text response.
func SendText(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(text))
}
