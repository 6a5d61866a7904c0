package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

/*
   Table "role_assignments"
    Column      |           Type           | Nullable
----------------+--------------------------+----------
 assignment_id  | uuid                     | not null
 user_id        | uuid                     | not null
 group_id       | uuid                     | not null
 role           | smallint                 | not null
 tenant_id      | uuid                     |
 created_at     | timestamp with time zone |
Indexes:
    "role_assignments_pkey" PRIMARY KEY, btree (assignment_id)
    "role_assignments_group_id_user_id_idx" btree (group_id, user_id)
Check constraints:
    "role_assignments_role_check" CHECK (role IN (1, 2))
    "role_assignments_tenant_required" CHECK (role <> 2 OR tenant_id IS NOT NULL)
Foreign-key constraints:
    "role_assignments_group_id_fkey" FOREIGN KEY (group_id) REFERENCES tenant_groups(group_id) ON DELETE CASCADE
    "role_assignments_tenant_id_fkey" FOREIGN KEY (tenant_id) REFERENCES tenants(tenant_id) ON DELETE CASCADE
*/

type RoleAssignment struct {
	AssignmentID uuid.UUID  `db:"assignment_id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"user_id" validate:"required"`
	GroupID      uuid.UUID  `db:"group_id" json:"group_id" validate:"required"`
	Role         types.Role `db:"role" json:"role"`
	TenantID     *uuid.UUID `db:"tenant_id" json:"tenant_id,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	// GroupName is joined in on reads.
	GroupName string `db:"-" json:"group_name,omitempty"`
}

// Validate checks the assignment against the tenant it references. tenant is the stored tenant
// identified by TenantID, or nil if TenantID is nil or names no stored tenant.
func (ra *RoleAssignment) Validate(tenant *Tenant) apperrors.Error {
	if err := Validate(ra); err != nil {
		return err
	}
	if !ra.Role.IsValid() {
		return dberror.ErrInvalidInput.Msg(fmt.Sprintf("invalid role %d", ra.Role))
	}
	if ra.Role == types.RoleTenantManager && ra.TenantID == nil {
		return dberror.ErrInvariantViolation.Msg("tenant must be provided for tenant manager roles")
	}
	if ra.TenantID == nil {
		return nil
	}
	if tenant == nil || tenant.TenantID != *ra.TenantID {
		return dberror.ErrInvariantViolation.Msg("assigned tenant does not exist")
	}
	if tenant.GroupID != ra.GroupID {
		return dberror.ErrInvariantViolation.Msg("assigned tenant must belong to the related group")
	}
	return nil
}

func (ra *RoleAssignment) Ownership() Ownership {
	if ra == nil {
		return Ownership{}
	}
	return Ownership{GroupID: &ra.GroupID, TenantID: ra.TenantID}
}

func (ra *RoleAssignment) String() string {
	return fmt.Sprintf("%s (%s) - %s", ra.GroupName, ra.UserID, ra.Role)
}
