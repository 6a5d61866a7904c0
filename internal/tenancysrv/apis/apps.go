package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/common"
)

type moduleAccessRsp struct {
	App    string `json:"app"`
	Access bool   `json:"access"`
}

// getModuleAccess tells a console whether to show the administrative section of an app.
func getModuleAccess(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	user := common.UserFromContext(ctx)
	if !user.IsAuthenticated {
		return nil, ErrUnauthenticated
	}
	app := chi.URLParam(r, "app")
	e := engineFromContext(ctx)
	rsp := moduleAccessRsp{
		App:    app,
		Access: e != nil && e.HasModuleAccess(ctx, user, app),
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: rsp}, nil
}
