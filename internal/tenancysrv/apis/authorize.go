package apis

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/authz"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/common"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/roles"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

type ctxKeyType string

const engineContextKey ctxKeyType = "AuthzEngine"

func withEngine(ctx context.Context, e *authz.Engine) context.Context {
	return context.WithValue(ctx, engineContextKey, e)
}

func engineFromContext(ctx context.Context) *authz.Engine {
	if e, ok := ctx.Value(engineContextKey).(*authz.Engine); ok {
		return e
	}
	return nil
}

// LoadAuthorization starts the authorization episode of the request. It needs the database view
// and the acting user in the context.
func LoadAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		d := db.DB(ctx)
		if d == nil {
			log.Ctx(ctx).Error().Msg("no database in request context")
			httpx.ErrApplicationError().Send(w)
			return
		}
		resolver := roles.NewResolver(d)
		ctx = roles.WithEpisode(ctx, resolver.NewEpisode(common.UserFromContext(ctx)))
		ctx = withEngine(ctx, authz.NewEngine(resolver, d, authz.NewAppRegistry(config.Config().Apps)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// authorize fails unless the engine allows perm on target.
func authorize(ctx context.Context, action types.Action, entity types.EntityType, target any) error {
	user := common.UserFromContext(ctx)
	if !user.IsAuthenticated {
		return ErrUnauthenticated
	}
	e := engineFromContext(ctx)
	if e == nil || !e.Allows(ctx, user, authz.Perm(action, entity), target) {
		return authz.ErrDisallowedByPolicy
	}
	return nil
}

func episode(ctx context.Context) (*roles.Episode, error) {
	user := common.UserFromContext(ctx)
	if !user.IsAuthenticated {
		return nil, ErrUnauthenticated
	}
	if ep := roles.EpisodeFromContext(ctx); ep != nil {
		return ep, nil
	}
	return roles.NewResolver(db.DB(ctx)).NewEpisode(user), nil
}
