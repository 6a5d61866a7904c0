package apis

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

type roleReq struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	// Tenant is the slug of a tenant in the group.
	Tenant string `json:"tenant"`
}

type roleRsp struct {
	ID       uuid.UUID  `json:"id"`
	UserID   uuid.UUID  `json:"user_id"`
	GroupID  uuid.UUID  `json:"group_id"`
	Role     string     `json:"role"`
	RoleCode types.Role `json:"role_code"`
	TenantID *uuid.UUID `json:"tenant_id,omitempty"`
	Display  string     `json:"display"`
}

func newRoleRsp(ra *models.RoleAssignment) roleRsp {
	return roleRsp{
		ID:       ra.AssignmentID,
		UserID:   ra.UserID,
		GroupID:  ra.GroupID,
		Role:     ra.Role.String(),
		RoleCode: ra.Role,
		TenantID: ra.TenantID,
		Display:  ra.String(),
	}
}

// roleTarget is what a change to ra is decided on. Group manager grants reach the whole group,
// so they are decided on the group even when they name a tenant.
func roleTarget(g *models.TenantGroup, ra *models.RoleAssignment) any {
	if ra.Role == types.RoleGroupManager {
		return g
	}
	return ra
}

func listRoleAssignments(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	g, err := loadGroup(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionView, types.EntityRoleAssignment, g); err != nil {
		return nil, err
	}
	assignments, aerr := db.DB(ctx).ListRoleAssignmentsForGroup(ctx, g.GroupID)
	if aerr != nil {
		return nil, aerr
	}
	rsp := make([]roleRsp, 0, len(assignments))
	for _, ra := range assignments {
		rsp = append(rsp, newRoleRsp(ra))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func createRoleAssignment(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	g, err := loadGroup(ctx)
	if err != nil {
		return nil, err
	}
	req := &roleReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	userID, perr := uuid.Parse(req.UserID)
	if perr != nil {
		return nil, ErrInvalidRequest.Msg("invalid user_id")
	}
	ra := &models.RoleAssignment{
		UserID:    userID,
		GroupID:   g.GroupID,
		Role:      types.RoleFromName(req.Role),
		GroupName: g.Name,
	}
	if req.Tenant != "" {
		t, aerr := db.DB(ctx).GetTenantBySlug(ctx, g.Slug, req.Tenant)
		if aerr != nil {
			if errors.Is(aerr, dberror.ErrNotFound) {
				return nil, ErrTenantNotFound
			}
			return nil, aerr
		}
		ra.TenantID = &t.TenantID
	}
	if err := authorize(ctx, types.ActionCreate, types.EntityRoleAssignment, roleTarget(g, ra)); err != nil {
		return nil, err
	}
	if err := db.DB(ctx).CreateRoleAssignment(ctx, ra); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   g.AbsoluteURL() + "roles/" + ra.AssignmentID.String(),
		Response:   newRoleRsp(ra),
	}, nil
}

func deleteRoleAssignment(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	g, err := loadGroup(ctx)
	if err != nil {
		return nil, err
	}
	id, perr := uuid.Parse(chi.URLParam(r, "assignmentID"))
	if perr != nil {
		return nil, ErrAssignmentNotFound
	}
	ra, aerr := db.DB(ctx).GetRoleAssignment(ctx, id)
	if aerr != nil {
		if errors.Is(aerr, dberror.ErrNotFound) {
			return nil, ErrAssignmentNotFound
		}
		return nil, aerr
	}
	if ra.GroupID != g.GroupID {
		return nil, ErrAssignmentNotFound
	}
	if err := authorize(ctx, types.ActionDelete, types.EntityRoleAssignment, roleTarget(g, ra)); err != nil {
		return nil, err
	}
	if err := db.DB(ctx).DeleteRoleAssignment(ctx, id); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}
