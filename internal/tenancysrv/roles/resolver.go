// Package roles resolves the role assignments of the acting user. Lookups are memoized per
// authorization episode, which lives no longer than one request.
package roles

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/metrics"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

// Store is the part of the database the resolver reads.
type Store interface {
	ListRoleAssignmentsForUser(ctx context.Context, userID uuid.UUID) ([]*models.RoleAssignment, apperrors.Error)
	ListGroups(ctx context.Context) ([]*models.TenantGroup, apperrors.Error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantGroup, apperrors.Error)
	ListTenants(ctx context.Context, groupID uuid.UUID) ([]*models.Tenant, apperrors.Error)
	ListTenantsForUser(ctx context.Context, groupID, userID uuid.UUID) ([]*models.Tenant, apperrors.Error)
}

// Grant is one role a user holds.
type Grant struct {
	GroupID  uuid.UUID
	Role     types.Role
	TenantID *uuid.UUID
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// NewEpisode starts an authorization episode for user.
func (r *Resolver) NewEpisode(user types.User) *Episode {
	return &Episode{store: r.store, user: user}
}

// Episode answers role questions for one user during one request. It is not safe for
// concurrent use.
type Episode struct {
	store  Store
	user   types.User
	grants []Grant
	loaded bool
}

func (e *Episode) User() types.User {
	return e.user
}

// Roles returns the user's grants ordered by group, role and tenant, with group-wide grants
// first. Users that are inactive or unauthenticated hold no roles.
func (e *Episode) Roles(ctx context.Context) ([]Grant, apperrors.Error) {
	if !e.user.CanHoldRoles() {
		return nil, nil
	}
	if e.loaded {
		return e.grants, nil
	}
	assignments, err := e.store.ListRoleAssignmentsForUser(ctx, e.user.ID)
	metrics.IncRoleLookup()
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("user_id", e.user.ID.String()).Msg("unable to load role assignments")
		return nil, err
	}
	grants := make([]Grant, 0, len(assignments))
	for _, ra := range assignments {
		grants = append(grants, Grant{GroupID: ra.GroupID, Role: ra.Role, TenantID: ra.TenantID})
	}
	slices.SortStableFunc(grants, compareGrants)
	e.grants = grants
	e.loaded = true
	return grants, nil
}

func compareGrants(a, b Grant) int {
	if c := strings.Compare(a.GroupID.String(), b.GroupID.String()); c != 0 {
		return c
	}
	if a.Role != b.Role {
		return int(a.Role) - int(b.Role)
	}
	switch {
	case a.TenantID == nil && b.TenantID == nil:
		return 0
	case a.TenantID == nil:
		return -1
	case b.TenantID == nil:
		return 1
	}
	return strings.Compare(a.TenantID.String(), b.TenantID.String())
}

// IsGroupManager reports whether the user manages group. A nil group matches any group.
func (e *Episode) IsGroupManager(ctx context.Context, group *uuid.UUID) (bool, apperrors.Error) {
	grants, err := e.Roles(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(grants, func(g Grant) bool {
		return g.Role == types.RoleGroupManager && (group == nil || g.GroupID == *group)
	}), nil
}

// IsTenantManager reports whether the user manages a tenant. Nil filters match anything.
func (e *Episode) IsTenantManager(ctx context.Context, group, tenant *uuid.UUID) (bool, apperrors.Error) {
	grants, err := e.Roles(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(grants, func(g Grant) bool {
		if g.Role != types.RoleTenantManager {
			return false
		}
		if group != nil && g.GroupID != *group {
			return false
		}
		return tenant == nil || (g.TenantID != nil && *g.TenantID == *tenant)
	}), nil
}

// GroupsFor returns the groups the user may see: all of them for superusers, otherwise the
// groups of the user's assignments.
func (e *Episode) GroupsFor(ctx context.Context) ([]*models.TenantGroup, apperrors.Error) {
	if !e.user.CanHoldRoles() {
		return nil, nil
	}
	if e.user.IsSuperuser {
		return e.store.ListGroups(ctx)
	}
	return e.store.ListGroupsForUser(ctx, e.user.ID)
}

// TenantsFor returns the tenants of groupID the user may see. Superusers and managers of the
// group see every tenant, tenant managers only the tenants they manage.
func (e *Episode) TenantsFor(ctx context.Context, groupID uuid.UUID) ([]*models.Tenant, apperrors.Error) {
	if !e.user.CanHoldRoles() {
		return nil, nil
	}
	if e.user.IsSuperuser {
		return e.store.ListTenants(ctx, groupID)
	}
	manager, err := e.IsGroupManager(ctx, &groupID)
	if err != nil {
		return nil, err
	}
	if manager {
		return e.store.ListTenants(ctx, groupID)
	}
	return e.store.ListTenantsForUser(ctx, groupID, e.user.ID)
}
