package apis

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/backendsync"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

type backendsRsp struct {
	Backends []string `json:"backends"`
	Primary  string   `json:"primary,omitempty"`
}

type addBackendReq struct {
	Name string `json:"name"`
}

func backendsOf(tenantID uuid.UUID) *models.BackendLink {
	return &models.BackendLink{TenantID: &tenantID}
}

func tenantBackends(r *http.Request, tenantID uuid.UUID) (*backendsRsp, error) {
	ctx := r.Context()
	names, err := backendsync.Backends(ctx, db.DB(ctx), tenantID)
	if err != nil {
		return nil, err
	}
	primary, _, err := backendsync.PrimaryBackend(ctx, db.DB(ctx), tenantID)
	if err != nil {
		return nil, err
	}
	return &backendsRsp{Backends: names, Primary: primary}, nil
}

func listBackends(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	tenantID, err := scopedTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionView, types.EntityBackendLink, backendsOf(tenantID)); err != nil {
		return nil, err
	}
	rsp, err := tenantBackends(r, tenantID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}

func addBackend(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	tenantID, err := scopedTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionChange, types.EntityBackendLink, backendsOf(tenantID)); err != nil {
		return nil, err
	}
	req := &addBackendReq{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, ErrInvalidRequest.Msg("backend name is required")
	}
	if err := backendsync.AddBackend(ctx, db.DB(ctx), tenantID, req.Name); err != nil {
		return nil, err
	}
	rsp, err := tenantBackends(r, tenantID)
	if err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}
