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

type tenantReq struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type tenantRsp struct {
	ID          uuid.UUID `json:"id"`
	GroupID     uuid.UUID `json:"group_id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Display     string    `json:"display"`
	URL         string    `json:"url"`
}

func newTenantRsp(t *models.Tenant) tenantRsp {
	return tenantRsp{
		ID:          t.TenantID,
		GroupID:     t.GroupID,
		Name:        t.Name,
		Slug:        t.Slug,
		Description: t.Description,
		Display:     t.String(),
		URL:         t.AbsoluteURL(),
	}
}

// scopedTenant returns the tenant addressed by the request path.
func scopedTenant(ctx context.Context) (uuid.UUID, error) {
	scope, err := scopeFromContext(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	id, ok := scope.Tenant()
	if !ok {
		return uuid.Nil, ErrMissingScope.Msg("request is not scoped to a tenant")
	}
	return id, nil
}

func loadTenant(ctx context.Context) (*models.Tenant, error) {
	id, err := scopedTenant(ctx)
	if err != nil {
		return nil, err
	}
	t, aerr := db.DB(ctx).GetTenant(ctx, id)
	if aerr != nil {
		return nil, aerr
	}
	return t, nil
}

func listTenants(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	scope, err := scopeFromContext(ctx)
	if err != nil {
		return nil, err
	}
	ep, err := episode(ctx)
	if err != nil {
		return nil, err
	}
	tenants, aerr := ep.TenantsFor(ctx, scope.GroupID)
	if aerr != nil {
		return nil, aerr
	}
	rsp := make([]tenantRsp, 0, len(tenants))
	for _, t := range tenants {
		rsp = append(rsp, newTenantRsp(t))
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

// createTenant is decided on the group, so tenant managers cannot create sibling tenants.
func createTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	g, err := loadGroup(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionCreate, types.EntityTenant, g); err != nil {
		return nil, err
	}
	req := &tenantReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	t := &models.Tenant{
		GroupID:     g.GroupID,
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		GroupName:   g.Name,
		GroupSlug:   g.Slug,
	}
	if err := db.DB(ctx).CreateTenant(ctx, t); err != nil {
		return nil, err
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   t.AbsoluteURL(),
		Response:   newTenantRsp(t),
	}, nil
}

func getTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	t, err := loadTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionView, types.EntityTenant, t); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: newTenantRsp(t)}, nil
}

func updateTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	t, err := loadTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionChange, types.EntityTenant, t); err != nil {
		return nil, err
	}
	req := &tenantReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if req.Name != "" {
		t.Name = req.Name
	}
	if req.Slug != "" {
		t.Slug = req.Slug
	}
	t.Description = req.Description
	if err := db.DB(ctx).UpdateTenant(ctx, t); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: newTenantRsp(t)}, nil
}

func deleteTenant(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	t, err := loadTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionDelete, types.EntityTenant, t); err != nil {
		return nil, err
	}
	if err := db.DB(ctx).DeleteTenant(ctx, t.TenantID); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}
