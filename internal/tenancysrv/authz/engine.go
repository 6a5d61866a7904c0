// Package authz decides whether a user may act on tenancy entities. Superusers may do anything,
// group managers may manage their groups and every tenant in them, and tenant managers may
// manage the tenants they are assigned to.
package authz

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/metrics"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/roles"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

// Directory resolves tenant references to their group.
type Directory interface {
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error)
}

type Engine struct {
	roles *roles.Resolver
	dir   Directory
	apps  *AppRegistry
}

var _ Authorizer = (*Engine)(nil)

func NewEngine(resolver *roles.Resolver, dir Directory, apps *AppRegistry) *Engine {
	return &Engine{roles: resolver, dir: dir, apps: apps}
}

// Allows reports whether the engine grants perm. Both Deny and Abstain yield false.
func (e *Engine) Allows(ctx context.Context, user types.User, perm string, target any) bool {
	return e.Decide(ctx, user, perm, target).Allowed()
}

// Decide answers perm for user, on target if given, or at type level if target is nil. Storage
// failures decide Deny.
func (e *Engine) Decide(ctx context.Context, user types.User, perm string, target any) Decision {
	p, perr := ParsePermission(perm)
	logger := log.Ctx(ctx).With().
		Str("event_type", "authz_decision").
		Str("permission", perm).
		Str("user_id", user.ID.String()).
		Logger()

	var (
		d      Decision
		reason string
		err    apperrors.Error
	)
	switch {
	case !user.IsActive:
		d, reason = Deny, "inactive user"
	case user.IsSuperuser:
		d, reason = Allow, "superuser"
	case perr != nil:
		d, reason = Abstain, "unparseable permission"
	case target == nil:
		d, reason, err = e.decideType(ctx, user, p)
	default:
		d, reason, err = e.decideObject(ctx, user, target)
	}
	if err != nil {
		logger.Error().Err(err).Msg("unable to resolve roles, denying")
		d, reason = Deny, "storage error"
	}

	metrics.IncDecision(string(p.Entity), d.String())
	logDecision(&logger, d, reason)
	return d
}

func logDecision(logger *zerolog.Logger, d Decision, reason string) {
	var ev *zerolog.Event
	switch d {
	case Allow:
		ev = logger.Info()
	case Deny:
		ev = logger.Warn()
	default:
		ev = logger.Debug()
	}
	ev.Str("decision", d.String()).Str("reason", reason).Msg("authorization decision")
}

// decideType answers a question about an entity type as a whole. It decides whether an
// administrative section is shown, not whether a specific change may be made.
func (e *Engine) decideType(ctx context.Context, user types.User, p Permission) (Decision, string, apperrors.Error) {
	if !p.Tenancy() {
		return Abstain, "entity type not managed by tenancy", nil
	}
	ep := roles.EpisodeFor(ctx, e.roles, user)
	groupManager, err := ep.IsGroupManager(ctx, nil)
	if err != nil {
		return Deny, "", err
	}
	switch p.Entity {
	case types.EntityTenantGroup:
		return decide(groupManager && p.Action == types.ActionChange), "type level", nil
	case types.EntityTenant:
		if groupManager {
			return Allow, "type level", nil
		}
		tenantManager, err := ep.IsTenantManager(ctx, nil, nil)
		if err != nil {
			return Deny, "", err
		}
		return decide(tenantManager && p.Action == types.ActionChange), "type level", nil
	default:
		return decide(groupManager), "type level", nil
	}
}

func (e *Engine) decideObject(ctx context.Context, user types.User, target any) (Decision, string, apperrors.Error) {
	group, tenant, err := e.owner(ctx, target)
	if err != nil {
		return Deny, "", err
	}
	if group == nil && tenant == nil {
		return Abstain, "target has no tenancy owner", nil
	}

	ep := roles.EpisodeFor(ctx, e.roles, user)
	groupManager, err := ep.IsGroupManager(ctx, group)
	if err != nil {
		return Deny, "", err
	}
	if tenant != nil {
		if groupManager {
			return Allow, "group manager of tenant", nil
		}
		tenantManager, err := ep.IsTenantManager(ctx, group, tenant)
		if err != nil {
			return Deny, "", err
		}
		return decide(tenantManager), "tenant owner", nil
	}
	return decide(groupManager), "group owner", nil
}

// owner resolves the group and tenant a target belongs to. A tenant reference is followed to its
// group, which takes precedence over a group the target names directly.
func (e *Engine) owner(ctx context.Context, target any) (group, tenant *uuid.UUID, err apperrors.Error) {
	switch t := target.(type) {
	case *models.TenantGroup:
		if t == nil {
			return nil, nil, nil
		}
		return &t.GroupID, nil, nil
	case *models.Tenant:
		if t == nil {
			return nil, nil, nil
		}
		return &t.GroupID, &t.TenantID, nil
	case models.Owner:
		own := t.Ownership()
		group, tenant = own.GroupID, own.TenantID
		if tenant == nil || e.dir == nil {
			return group, tenant, nil
		}
		tn, err := e.dir.GetTenant(ctx, *tenant)
		if err != nil {
			if err.Is(dberror.ErrNotFound) {
				return group, tenant, nil
			}
			return nil, nil, err
		}
		return &tn.GroupID, tenant, nil
	}
	return nil, nil, nil
}

// HasModuleAccess reports whether user may see the administrative section of app at all.
func (e *Engine) HasModuleAccess(ctx context.Context, user types.User, app string) bool {
	logger := log.Ctx(ctx).With().
		Str("event_type", "authz_decision").
		Str("app", app).
		Str("user_id", user.ID.String()).
		Logger()
	if !user.IsActive {
		logDecision(&logger, Deny, "inactive user")
		return false
	}
	if user.IsSuperuser {
		logDecision(&logger, Allow, "superuser")
		return true
	}
	ep := roles.EpisodeFor(ctx, e.roles, user)
	groupManager, err := ep.IsGroupManager(ctx, nil)
	if err != nil {
		logger.Error().Err(err).Msg("unable to resolve roles, denying")
		return false
	}
	tenantManager, err := ep.IsTenantManager(ctx, nil, nil)
	if err != nil {
		logger.Error().Err(err).Msg("unable to resolve roles, denying")
		return false
	}
	allowed := (groupManager || tenantManager) && e.apps.Related(app)
	logDecision(&logger, decide(allowed), "module access")
	return allowed
}
