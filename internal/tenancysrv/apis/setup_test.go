package apis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/auth"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/memstore"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

type harness struct {
	t      *testing.T
	mem    *memstore.DB
	router *chi.Mux

	g1, g2 *models.TenantGroup
	t1, t2 *models.Tenant

	superuser     types.User
	groupManager  types.User
	tenantManager types.User
	nobody        types.User
}

func newUser() types.User {
	return types.User{ID: uuid.New(), IsActive: true}
}

func newHarness(t *testing.T) *harness {
	prev := config.Config()
	cfg := *prev
	cfg.Auth = config.AuthConfig{SigningKey: "apis-test-key", Issuer: "tenancysrv"}
	config.SetConfig(&cfg)
	t.Cleanup(func() { config.SetConfig(prev) })

	ctx := context.Background()
	h := &harness{t: t, mem: memstore.New()}
	h.g1 = &models.TenantGroup{Name: "Group One", Slug: "g1"}
	h.g2 = &models.TenantGroup{Name: "Group Two", Slug: "g2"}
	require.Nil(t, h.mem.CreateGroup(ctx, h.g1))
	require.Nil(t, h.mem.CreateGroup(ctx, h.g2))
	h.t1 = &models.Tenant{GroupID: h.g1.GroupID, Name: "Tenant One", Slug: "t1"}
	h.t2 = &models.Tenant{GroupID: h.g1.GroupID, Name: "Tenant Two", Slug: "t2"}
	require.Nil(t, h.mem.CreateTenant(ctx, h.t1))
	require.Nil(t, h.mem.CreateTenant(ctx, h.t2))

	h.superuser = newUser()
	h.superuser.IsSuperuser = true
	h.groupManager = newUser()
	h.tenantManager = newUser()
	h.nobody = newUser()
	require.Nil(t, h.mem.CreateRoleAssignment(ctx, &models.RoleAssignment{
		UserID: h.groupManager.ID, GroupID: h.g1.GroupID, Role: types.RoleGroupManager}))
	require.Nil(t, h.mem.CreateRoleAssignment(ctx, &models.RoleAssignment{
		UserID: h.tenantManager.ID, GroupID: h.g1.GroupID, Role: types.RoleTenantManager, TenantID: &h.t1.TenantID}))

	h.router = chi.NewRouter()
	h.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(db.WithDB(r.Context(), db.NewMemoryDB(h.mem))))
		})
	})
	h.router.Use(auth.IdentityMiddleware)
	h.router.Group(Router)
	return h
}

// do sends a request as user. A nil user sends no token.
func (h *harness) do(user *types.User, method, path, body string) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != nil {
		tok, err := auth.NewToken(*user, config.Config().Auth, time.Minute)
		require.NoError(h.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rr := httptest.NewRecorder()
	h.router.ServeHTTP(rr, req)
	return rr
}
