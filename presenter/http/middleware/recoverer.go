package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/omni/festival-greetings/presenter/http/render"
)

var ErrPanic = errors.New("panic in http handler")

// Recoverer turns handler panics into a JSON 500 response.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("%v: %w", rec, ErrPanic)
				}
				render.Error(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), err)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
