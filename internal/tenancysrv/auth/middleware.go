package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/common"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

const authHeaderPrefix = "Bearer "

// IdentityMiddleware puts the acting user in the request context. Requests without a valid bearer
// token proceed as the anonymous user, which holds no roles.
func IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := log.Ctx(ctx)
		user := types.AnonymousUser

		authHeader := r.Header.Get("Authorization")
		switch {
		case authHeader == "":
			logger.Debug().Msg("no authorization header, anonymous request")
		case !strings.HasPrefix(authHeader, authHeaderPrefix):
			logger.Debug().Msg("invalid authorization header format")
		default:
			token := strings.TrimSpace(strings.TrimPrefix(authHeader, authHeaderPrefix))
			u, err := ParseToken(token, config.Config().Auth)
			if err != nil {
				logger.Info().Err(err).Msg("token validation failed")
			} else {
				user = u
			}
		}

		if user.IsAuthenticated {
			sub := logger.With().Str("user_id", user.ID.String()).Logger()
			ctx = sub.WithContext(ctx)
		}
		ctx = common.SetUserInContext(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
