package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	uuidv7 "github.com/tansive/tansive-tenancy/internal/common/uuid"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
)

const roleSelect = `
		SELECT r.assignment_id, r.user_id, r.group_id, r.role, r.tenant_id, r.created_at, g.name
		FROM role_assignments r JOIN tenant_groups g ON g.group_id = r.group_id`

const roleOrder = ` ORDER BY r.group_id, r.role, r.tenant_id NULLS FIRST`

func scanRole(row rowScanner) (*models.RoleAssignment, error) {
	ra := &models.RoleAssignment{}
	err := row.Scan(&ra.AssignmentID, &ra.UserID, &ra.GroupID, &ra.Role, &ra.TenantID, &ra.CreatedAt, &ra.GroupName)
	return ra, err
}

// CreateRoleAssignment validates the assignment against its tenant and inserts it.
func (h *TenancyDb) CreateRoleAssignment(ctx context.Context, ra *models.RoleAssignment) apperrors.Error {
	var tenant *models.Tenant
	if ra.TenantID != nil {
		t, err := h.GetTenant(ctx, *ra.TenantID)
		if err != nil && !err.Is(dberror.ErrNotFound) {
			return err
		}
		tenant = t
	}
	if err := ra.Validate(tenant); err != nil {
		log.Ctx(ctx).Info().Err(err).Str("user_id", ra.UserID.String()).Msg("rejected role assignment")
		return err
	}
	if ra.AssignmentID == uuid.Nil {
		ra.AssignmentID = uuidv7.New()
	}
	query := `
		INSERT INTO role_assignments (assignment_id, user_id, group_id, role, tenant_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at;`
	var tenantID any
	if ra.TenantID != nil {
		tenantID = *ra.TenantID
	}
	err := h.conn.QueryRowContext(ctx, query, ra.AssignmentID, ra.UserID, ra.GroupID, int(ra.Role), tenantID).
		Scan(&ra.CreatedAt)
	if err != nil {
		if pgErr, ok := asPgError(err); ok {
			switch pgErr.Code {
			case pgForeignKeyViolation:
				return dberror.ErrInvalidGroup
			case pgCheckViolation:
				return dberror.ErrInvariantViolation.Msg(pgErr.Message)
			case pgUniqueViolation:
				return dberror.ErrAlreadyExists.Msg("role assignment already exists")
			}
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to create role assignment")
		return dberror.ErrDatabase.Err(err)
	}
	if tenant != nil {
		ra.GroupName = tenant.GroupName
	}
	return nil
}

func (h *TenancyDb) GetRoleAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.RoleAssignment, apperrors.Error) {
	ra, err := scanRole(h.conn.QueryRowContext(ctx, roleSelect+` WHERE r.assignment_id = $1;`, assignmentID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dberror.ErrNotFound.Msg("role assignment not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to get role assignment")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return ra, nil
}

// ListRoleAssignmentsForUser returns the user's assignments ordered by group, role and tenant.
func (h *TenancyDb) ListRoleAssignmentsForUser(ctx context.Context, userID uuid.UUID) ([]*models.RoleAssignment, apperrors.Error) {
	return h.listRoles(ctx, roleSelect+` WHERE r.user_id = $1`+roleOrder+`;`, userID)
}

func (h *TenancyDb) ListRoleAssignmentsForGroup(ctx context.Context, groupID uuid.UUID) ([]*models.RoleAssignment, apperrors.Error) {
	return h.listRoles(ctx, roleSelect+` WHERE r.group_id = $1`+roleOrder+`;`, groupID)
}

func (h *TenancyDb) listRoles(ctx context.Context, query string, arg uuid.UUID) ([]*models.RoleAssignment, apperrors.Error) {
	rows, err := h.conn.QueryContext(ctx, query, arg)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list role assignments")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()
	var roles []*models.RoleAssignment
	for rows.Next() {
		ra, err := scanRole(rows)
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		roles = append(roles, ra)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return roles, nil
}

func (h *TenancyDb) DeleteRoleAssignment(ctx context.Context, assignmentID uuid.UUID) apperrors.Error {
	return h.deleteOne(ctx, `DELETE FROM role_assignments WHERE assignment_id = $1;`, assignmentID, "role assignment")
}
