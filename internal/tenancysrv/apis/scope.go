package apis

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/common"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
)

// LoadGroupScope resolves the {groupSlug} path segment. Slugs match case-insensitively and an
// unknown slug ends the request with 404.
func LoadGroupScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		slug := chi.URLParam(r, "groupSlug")
		g, err := db.DB(ctx).GetGroupBySlug(ctx, slug)
		if err != nil {
			sendLookupError(ctx, w, err, ErrGroupNotFound)
			return
		}
		tenants, err := db.DB(ctx).ListTenants(ctx, g.GroupID)
		if err != nil {
			httpx.SendErrorRsp(ctx, w, err)
			return
		}
		scope := &common.TenancyScope{
			GroupID:   g.GroupID,
			GroupSlug: g.Slug,
		}
		for _, t := range tenants {
			scope.TenantIDs = append(scope.TenantIDs, t.TenantID)
		}
		ctx = common.SetTenancyScope(ctx, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoadTenantScope narrows the group scope to the {tenantSlug} path segment and stamps the tenant
// on the database connection.
func LoadTenantScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		groupScope := common.TenancyScopeFromContext(ctx)
		if groupScope == nil {
			httpx.SendErrorRsp(ctx, w, ErrMissingScope)
			return
		}
		slug := chi.URLParam(r, "tenantSlug")
		t, err := db.DB(ctx).GetTenantBySlug(ctx, groupScope.GroupSlug, slug)
		if err != nil {
			sendLookupError(ctx, w, err, ErrTenantNotFound)
			return
		}
		scope := &common.TenancyScope{
			GroupID:    groupScope.GroupID,
			GroupSlug:  groupScope.GroupSlug,
			TenantIDs:  []uuid.UUID{t.TenantID},
			TenantSlug: t.Slug,
		}
		if err := db.DB(ctx).AddScope(ctx, db.Scope_TenantId, t.TenantID.String()); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("unable to set tenant scope on connection")
			httpx.ErrApplicationError().Send(w)
			return
		}
		defer db.DB(ctx).DropScope(context.Background(), db.Scope_TenantId)

		ctx = common.SetTenancyScope(ctx, scope)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sendLookupError(ctx context.Context, w http.ResponseWriter, err error, notFound error) {
	if errors.Is(err, dberror.ErrNotFound) {
		httpx.SendErrorRsp(ctx, w, notFound)
		return
	}
	httpx.SendErrorRsp(ctx, w, err)
}

func scopeFromContext(ctx context.Context) (*common.TenancyScope, error) {
	scope := common.TenancyScopeFromContext(ctx)
	if scope == nil {
		return nil, ErrMissingScope
	}
	return scope, nil
}
