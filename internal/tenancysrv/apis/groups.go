package apis

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

type groupReq struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type groupRsp struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
}

func newGroupRsp(g *models.TenantGroup) groupRsp {
	return groupRsp{
		ID:          g.GroupID,
		Name:        g.Name,
		Slug:        g.Slug,
		Description: g.Description,
		URL:         g.AbsoluteURL(),
	}
}

func loadGroup(ctx context.Context) (*models.TenantGroup, error) {
	scope, err := scopeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	g, aerr := db.DB(ctx).GetGroup(ctx, scope.GroupID)
	if aerr != nil {
		return nil, aerr
	}
	return g, nil
}

func listGroups(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	ep, err := episode(ctx)
	if err != nil {
		return nil, err
	}
	groups, aerr := ep.GroupsFor(ctx)
	if aerr != nil {
		return nil, aerr
	}
	rsp := make([]groupRsp, 0, len(groups))
	for _, g := range groups {
		rsp = append(rsp, newGroupRsp(g))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func createGroup(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	if err := authorize(ctx, types.ActionCreate, types.EntityTenantGroup, nil); err != nil {
		return nil, err
	}
	req := &groupReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	g := &models.TenantGroup{Name: req.Name, Slug: req.Slug, Description: req.Description}
	if err := db.DB(ctx).CreateGroup(ctx, g); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   g.AbsoluteURL(),
		Response:   newGroupRsp(g),
	}, nil
}

// getGroup also serves tenant managers of the group, who cannot change it.
func getGroup(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	g, err := loadGroup(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionView, types.EntityTenantGroup, g); err != nil {
		ep, eerr := episode(ctx)
		if eerr != nil {
			return nil, eerr
		}
		member, aerr := ep.IsTenantManager(ctx, &g.GroupID, nil)
		if aerr != nil {
			return nil, aerr
		}
		if !member {
			return nil, err
		}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: newGroupRsp(g)}, nil
}

func updateGroup(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	g, err := loadGroup(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionChange, types.EntityTenantGroup, g); err != nil {
		return nil, err
	}
	req := &groupReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if req.Name != "" {
		g.Name = req.Name
	}
	if req.Slug != "" {
		g.Slug = req.Slug
	}
	g.Description = req.Description
	if err := db.DB(ctx).UpdateGroup(ctx, g); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: newGroupRsp(g)}, nil
}

func deleteGroup(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	g, err := loadGroup(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionDelete, types.EntityTenantGroup, g); err != nil {
		return nil, err
	}
	if err := db.DB(ctx).DeleteGroup(ctx, g.GroupID); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}
