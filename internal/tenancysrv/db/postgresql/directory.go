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

const groupColumns = `group_id, name, slug, description, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.TenantGroup, error) {
	g := &models.TenantGroup{}
	err := row.Scan(&g.GroupID, &g.Name, &g.Slug, &g.Description, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

func groupWriteError(ctx context.Context, g *models.TenantGroup, err error) apperrors.Error {
	if pgErr, ok := asPgError(err); ok {
		switch {
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "tenant_groups_name_key":
			log.Ctx(ctx).Info().Str("name", g.Name).Msg("group name already exists")
			return dberror.ErrAlreadyExists.Msg("group name already exists")
		case pgErr.Code == pgUniqueViolation:
			log.Ctx(ctx).Info().Str("slug", g.Slug).Msg("group slug already exists")
			return dberror.ErrAlreadyExists.Msg("group slug already exists")
		case pgErr.Code == pgCheckViolation:
			return dberror.ErrInvalidInput.Msg("invalid group slug")
		}
	}
	log.Ctx(ctx).Error().Err(err).Str("group_id", g.GroupID.String()).Msg("failed to write group")
	return dberror.ErrDatabase.Err(err)
}

// CreateGroup inserts a new group, assigning an id if none is set.
func (h *TenancyDb) CreateGroup(ctx context.Context, g *models.TenantGroup) apperrors.Error {
	if err := models.Validate(g); err != nil {
		return err
	}
	if g.GroupID == uuid.Nil {
		g.GroupID = uuidv7.New()
	}
	query := `
		INSERT INTO tenant_groups (group_id, name, slug, description)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at;`
	err := h.conn.QueryRowContext(ctx, query, g.GroupID, g.Name, g.Slug, g.Description).
		Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return groupWriteError(ctx, g, err)
	}
	return nil
}

func (h *TenancyDb) GetGroup(ctx context.Context, groupID uuid.UUID) (*models.TenantGroup, apperrors.Error) {
	query := `SELECT ` + groupColumns + ` FROM tenant_groups WHERE group_id = $1;`
	return h.getGroup(ctx, query, groupID)
}

// GetGroupBySlug matches the slug case-insensitively.
func (h *TenancyDb) GetGroupBySlug(ctx context.Context, slug string) (*models.TenantGroup, apperrors.Error) {
	query := `SELECT ` + groupColumns + ` FROM tenant_groups WHERE lower(slug) = lower($1);`
	return h.getGroup(ctx, query, slug)
}

func (h *TenancyDb) getGroup(ctx context.Context, query string, arg any) (*models.TenantGroup, apperrors.Error) {
	g, err := scanGroup(h.conn.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dberror.ErrNotFound.Msg("group not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to get group")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return g, nil
}

func (h *TenancyDb) ListGroups(ctx context.Context) ([]*models.TenantGroup, apperrors.Error) {
	query := `SELECT ` + groupColumns + ` FROM tenant_groups ORDER BY name;`
	return h.listGroups(ctx, query)
}

// ListGroupsForUser returns the distinct groups referenced by the user's role assignments.
func (h *TenancyDb) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantGroup, apperrors.Error) {
	query := `
		SELECT g.group_id, g.name, g.slug, g.description, g.created_at, g.updated_at
		FROM tenant_groups g
		WHERE EXISTS (SELECT 1 FROM role_assignments r WHERE r.group_id = g.group_id AND r.user_id = $1)
		ORDER BY g.name;`
	return h.listGroups(ctx, query, userID)
}

func (h *TenancyDb) listGroups(ctx context.Context, query string, args ...any) ([]*models.TenantGroup, apperrors.Error) {
	rows, err := h.conn.QueryContext(ctx, query, args...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list groups")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()
	var groups []*models.TenantGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return groups, nil
}

func (h *TenancyDb) UpdateGroup(ctx context.Context, g *models.TenantGroup) apperrors.Error {
	if err := models.Validate(g); err != nil {
		return err
	}
	query := `
		UPDATE tenant_groups SET name = $2, slug = $3, description = $4
		WHERE group_id = $1
		RETURNING created_at, updated_at;`
	err := h.conn.QueryRowContext(ctx, query, g.GroupID, g.Name, g.Slug, g.Description).
		Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dberror.ErrNotFound.Msg("group not found")
		}
		return groupWriteError(ctx, g, err)
	}
	return nil
}

// DeleteGroup removes a group together with its tenants and role assignments.
func (h *TenancyDb) DeleteGroup(ctx context.Context, groupID uuid.UUID) apperrors.Error {
	return h.deleteOne(ctx, `DELETE FROM tenant_groups WHERE group_id = $1;`, groupID, "group")
}

func (h *TenancyDb) deleteOne(ctx context.Context, query string, id uuid.UUID, what string) apperrors.Error {
	result, err := h.conn.ExecContext(ctx, query, id)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("id", id.String()).Msg("failed to delete " + what)
		return dberror.ErrDatabase.Err(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if n == 0 {
		log.Ctx(ctx).Info().Str("id", id.String()).Msg(what + " not found")
		return dberror.ErrNotFound.Msg(what + " not found")
	}
	return nil
}

const tenantSelect = `
		SELECT t.tenant_id, t.group_id, t.name, t.slug, t.description, t.created_at, t.updated_at,
		       g.name, g.slug
		FROM tenants t JOIN tenant_groups g ON g.group_id = t.group_id`

func scanTenant(row rowScanner) (*models.Tenant, error) {
	t := &models.Tenant{}
	err := row.Scan(&t.TenantID, &t.GroupID, &t.Name, &t.Slug, &t.Description, &t.CreatedAt, &t.UpdatedAt,
		&t.GroupName, &t.GroupSlug)
	return t, err
}

func tenantWriteError(ctx context.Context, t *models.Tenant, err error) apperrors.Error {
	if pgErr, ok := asPgError(err); ok {
		switch {
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "tenants_group_id_name_key":
			return dberror.ErrAlreadyExists.Msg("tenant name already exists in group")
		case pgErr.Code == pgUniqueViolation:
			return dberror.ErrAlreadyExists.Msg("tenant slug already exists in group")
		case pgErr.Code == pgForeignKeyViolation:
			log.Ctx(ctx).Info().Str("group_id", t.GroupID.String()).Msg("group not found")
			return dberror.ErrInvalidGroup
		case pgErr.Code == pgCheckViolation:
			return dberror.ErrInvalidInput.Msg("invalid tenant slug")
		}
	}
	log.Ctx(ctx).Error().Err(err).Str("tenant_id", t.TenantID.String()).Msg("failed to write tenant")
	return dberror.ErrDatabase.Err(err)
}

// CreateTenant inserts a tenant into its group, assigning an id if none is set.
func (h *TenancyDb) CreateTenant(ctx context.Context, t *models.Tenant) apperrors.Error {
	if err := models.Validate(t); err != nil {
		return err
	}
	if t.TenantID == uuid.Nil {
		t.TenantID = uuidv7.New()
	}
	query := `
		INSERT INTO tenants (tenant_id, group_id, name, slug, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at;`
	err := h.conn.QueryRowContext(ctx, query, t.TenantID, t.GroupID, t.Name, t.Slug, t.Description).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return tenantWriteError(ctx, t, err)
	}
	return nil
}

func (h *TenancyDb) GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error) {
	return h.getTenant(ctx, tenantSelect+` WHERE t.tenant_id = $1;`, tenantID)
}

// GetTenantBySlug looks a tenant up by group and tenant slug, both matched case-insensitively.
func (h *TenancyDb) GetTenantBySlug(ctx context.Context, groupSlug, tenantSlug string) (*models.Tenant, apperrors.Error) {
	return h.getTenant(ctx, tenantSelect+` WHERE lower(g.slug) = lower($1) AND lower(t.slug) = lower($2);`, groupSlug, tenantSlug)
}

func (h *TenancyDb) getTenant(ctx context.Context, query string, args ...any) (*models.Tenant, apperrors.Error) {
	t, err := scanTenant(h.conn.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, dberror.ErrNotFound.Msg("tenant not found")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to get tenant")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return t, nil
}

func (h *TenancyDb) ListTenants(ctx context.Context, groupID uuid.UUID) ([]*models.Tenant, apperrors.Error) {
	return h.listTenants(ctx, tenantSelect+` WHERE t.group_id = $1 ORDER BY t.name;`, groupID)
}

// ListTenantsForUser returns the distinct tenants of a group the user holds a tenant manager role for.
func (h *TenancyDb) ListTenantsForUser(ctx context.Context, groupID, userID uuid.UUID) ([]*models.Tenant, apperrors.Error) {
	query := tenantSelect + `
		WHERE t.group_id = $1 AND EXISTS (
			SELECT 1 FROM role_assignments r
			WHERE r.tenant_id = t.tenant_id AND r.user_id = $2 AND r.role = 2)
		ORDER BY t.name;`
	return h.listTenants(ctx, query, groupID, userID)
}

func (h *TenancyDb) listTenants(ctx context.Context, query string, args ...any) ([]*models.Tenant, apperrors.Error) {
	rows, err := h.conn.QueryContext(ctx, query, args...)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list tenants")
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()
	var tenants []*models.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return tenants, nil
}

// UpdateTenant changes name, slug and description. Tenants cannot move between groups.
func (h *TenancyDb) UpdateTenant(ctx context.Context, t *models.Tenant) apperrors.Error {
	if err := models.Validate(t); err != nil {
		return err
	}
	query := `
		UPDATE tenants SET name = $2, slug = $3, description = $4
		WHERE tenant_id = $1
		RETURNING group_id, created_at, updated_at;`
	err := h.conn.QueryRowContext(ctx, query, t.TenantID, t.Name, t.Slug, t.Description).
		Scan(&t.GroupID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return dberror.ErrNotFound.Msg("tenant not found")
		}
		return tenantWriteError(ctx, t, err)
	}
	return nil
}

// DeleteTenant removes a tenant. Its role assignments are removed and its tenant-owned
// records become unassigned.
func (h *TenancyDb) DeleteTenant(ctx context.Context, tenantID uuid.UUID) apperrors.Error {
	return h.deleteOne(ctx, `DELETE FROM tenants WHERE tenant_id = $1;`, tenantID, "tenant")
}
