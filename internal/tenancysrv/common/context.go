// Package common holds request context helpers shared by the tenancy server packages.
package common

import (
	"context"

	"github.com/google/uuid"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

const DefaultConfigFile = "tenancysrv.conf"

type ctxUserKeyType string

const ctxUserKey ctxUserKeyType = "TenancyUser"

// SetUserInContext stores the acting principal.
func SetUserInContext(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, ctxUserKey, user)
}

// UserFromContext returns the acting principal, or the anonymous user if none was set.
func UserFromContext(ctx context.Context) types.User {
	if user, ok := ctx.Value(ctxUserKey).(types.User); ok {
		return user
	}
	return types.AnonymousUser
}

type ctxScopeKeyType string

const ctxScopeKey ctxScopeKeyType = "TenancyScope"

// TenancyScope is the group and tenants addressed by the request path.
// Tenants holds every tenant of the group when only a group slug was given,
// and exactly one tenant when a tenant slug was given too.
type TenancyScope struct {
	GroupID    uuid.UUID
	GroupSlug  string
	TenantIDs  []uuid.UUID
	TenantSlug string
}

// Tenant returns the single addressed tenant, if the path named one.
func (s *TenancyScope) Tenant() (uuid.UUID, bool) {
	if s == nil || s.TenantSlug == "" || len(s.TenantIDs) != 1 {
		return uuid.Nil, false
	}
	return s.TenantIDs[0], true
}

func SetTenancyScope(ctx context.Context, scope *TenancyScope) context.Context {
	return context.WithValue(ctx, ctxScopeKey, scope)
}

func TenancyScopeFromContext(ctx context.Context) *TenancyScope {
	if scope, ok := ctx.Value(ctxScopeKey).(*TenancyScope); ok {
		return scope
	}
	return nil
}
