package middleware

import (
	"encoding/json"
	"net/http"

	"kmz-server/logging"
	"kmz-server/utils/errors"
)

// ErrorMiddleware recovers from panics and answers with a JSON 500.
func ErrorMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logging.Ctx(r.Context()).Error().Interface("panic", rec).Msg("Panic recovered")
					WriteError(w, r, errors.ErrInternal)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// WriteError writes err as a JSON APIError. Errors that are not APIErrors are
// reported as INTERNAL_SERVER_ERROR.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := errors.Internal(err)
	// Log server errors
	if apiErr.Status >= 500 {
		logging.Ctx(r.Context()).Error().
			Str("code", apiErr.Code).
			Str("details", apiErr.Details).
			Str("path", r.URL.Path).
			Msg("Server error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	_ = json.NewEncoder(w).Encode(apiErr)
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
