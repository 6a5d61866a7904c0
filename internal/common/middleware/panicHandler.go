package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
)

// PanicHandler answers 500 when a handler panics. http.ErrAbortHandler is re-raised so the
// server still aborts the response.
func PanicHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Ctx(r.Context()).Error().
				Interface("panic", rec).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Bytes("stack", debug.Stack()).
				Msg("panic while serving request")
			httpx.ErrApplicationError("unable to process request, please try again later").Send(w)
		}()
		next.ServeHTTP(w, r)
	})
}
