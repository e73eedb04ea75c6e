package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	apperrors "github.com/kbukum/riskintel/errors"
	"github.com/kbukum/riskintel/logger"
)

// Recovery turns a handler panic into a 500 with an error envelope.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.Error("panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprint(rec),
					"stack", string(debug.Stack()),
					"method", r.Method,
					"path", r.URL.Path,
					logger.FieldRequestID, r.Header.Get(RequestIDHeader),
				))
				appErr := apperrors.New(apperrors.ErrCodeUnknown, "Internal server error", http.StatusInternalServerError)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(w).Encode(appErr.ToResponse())
			}()
			next.ServeHTTP(w, r)
		})
	}
}
