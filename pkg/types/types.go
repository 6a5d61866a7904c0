package types

import (
	"slices"

	"github.com/google/uuid"
)

// Role is the persisted role code of a role assignment. The integer values are stable
// and stored in the role_assignments table.
type Role int

const (
	RoleInvalid       Role = 0
	RoleGroupManager  Role = 1
	RoleTenantManager Role = 2
)

func (r Role) String() string {
	switch r {
	case RoleGroupManager:
		return "Group Manager"
	case RoleTenantManager:
		return "Tenant Manager"
	default:
		return "Invalid Role"
	}
}

func (r Role) IsValid() bool {
	return r == RoleGroupManager || r == RoleTenantManager
}

// RoleFromName maps the API spelling of a role to its code.
func RoleFromName(name string) Role {
	switch name {
	case "group_manager", "GroupManager":
		return RoleGroupManager
	case "tenant_manager", "TenantManager":
		return RoleTenantManager
	default:
		return RoleInvalid
	}
}

// Action is the verb part of a permission identifier.
type Action string

const (
	ActionCreate Action = "create"
	ActionChange Action = "change"
	ActionDelete Action = "delete"
	ActionView   Action = "view"
)

var ValidActions = []Action{
	ActionCreate,
	ActionChange,
	ActionDelete,
	ActionView,
}

func (a Action) IsValid() bool {
	return slices.Contains(ValidActions, a)
}

// EntityType is the lower-case model name used in permission identifiers.
type EntityType string

const (
	EntityTenantGroup    EntityType = "tenantgroup"
	EntityTenant         EntityType = "tenant"
	EntityRoleAssignment EntityType = "tenantrole"
	EntityBackendLink    EntityType = "backendlink"
	EntityContactLink    EntityType = "contactlink"
)

// TenancyEntityTypes are the entity types owned by the tenancy app itself. Module access
// is granted to managers only for apps that register at least one of them.
var TenancyEntityTypes = []EntityType{
	EntityTenantGroup,
	EntityTenant,
	EntityRoleAssignment,
}

const (
	// AppLabel is the namespace of permission identifiers for tenancy entities.
	AppLabel = "multitenancy"
	// MessageTesterBackendPrefix marks backends that belong to the message tester
	// rather than to an external channel.
	MessageTesterBackendPrefix = "mt_"
)

// User is the acting principal as supplied by the identity provider.
type User struct {
	ID              uuid.UUID `json:"id"`
	IsActive        bool      `json:"is_active"`
	IsAuthenticated bool      `json:"is_authenticated"`
	IsSuperuser     bool      `json:"is_superuser"`
}

// AnonymousUser is the principal of requests that carry no valid identity.
var AnonymousUser = User{}

// CanHoldRoles reports whether role lookups apply to the user at all.
func (u User) CanHoldRoles() bool {
	return u.IsActive && u.IsAuthenticated
}
