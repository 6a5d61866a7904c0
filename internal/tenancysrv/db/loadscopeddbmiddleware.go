package db

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
)

// LoadScopedDBMiddleware is a middleware that loads a scoped db connection into the request context
// and closes it after the request is served. A database view already in the context is kept.
func LoadScopedDBMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if DB(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx, err := ConnCtx(r.Context())
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("unable to get db connection")
			httpx.ErrApplicationError("unable to service request at this time").Send(w)
			return
		}
		defer func() {
			if dbConn := DB(ctx); dbConn != nil {
				log.Ctx(r.Context()).Debug().Msg("closing db connection")
				dbConn.Close(context.Background()) // use background to avoid canceled context
			}
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
