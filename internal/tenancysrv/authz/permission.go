package authz

import (
	"strings"

	"github.com/tansive/tansive-tenancy/pkg/types"
)

// Permission is a parsed permission identifier of the form "<namespace>.<action>_<entity>".
type Permission struct {
	Namespace string
	Action    types.Action
	Entity    types.EntityType
}

// ParsePermission splits s once on "." and the remainder once on the first "_".
func ParsePermission(s string) (Permission, error) {
	ns, rest, ok := strings.Cut(s, ".")
	if !ok || ns == "" {
		return Permission{}, ErrInvalidPermission.Msg("missing namespace in " + s)
	}
	action, entity, ok := strings.Cut(rest, "_")
	if !ok || action == "" || entity == "" {
		return Permission{}, ErrInvalidPermission.Msg("missing action or entity in " + s)
	}
	return Permission{
		Namespace: ns,
		Action:    types.Action(action),
		Entity:    types.EntityType(entity),
	}, nil
}

func (p Permission) String() string {
	return p.Namespace + "." + string(p.Action) + "_" + string(p.Entity)
}

// Tenancy reports whether p names one of the tenancy entities.
func (p Permission) Tenancy() bool {
	if p.Namespace != types.AppLabel {
		return false
	}
	switch p.Entity {
	case types.EntityTenantGroup, types.EntityTenant, types.EntityRoleAssignment:
		return true
	}
	return false
}

// Perm builds the identifier for a tenancy entity.
func Perm(action types.Action, entity types.EntityType) string {
	return Permission{Namespace: types.AppLabel, Action: action, Entity: entity}.String()
}
