package apis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/common"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/pkg/types"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

func TestListGroups(t *testing.T) {
	h := newHarness(t)

	rr := h.do(&h.superuser, http.MethodGet, "/groups", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(2), gjson.Get(rr.Body.String(), "#").Int())

	rr = h.do(&h.tenantManager, http.MethodGet, "/groups", "")
	require.Equal(t, http.StatusOK, rr.Code)
	groups := gjson.Parse(rr.Body.String()).Array()
	require.Len(t, groups, 1)
	assert.Equal(t, "g1", groups[0].Get("slug").String())
	assert.Equal(t, "/groups/g1/", groups[0].Get("url").String())

	rr = h.do(&h.nobody, http.MethodGet, "/groups", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())

	rr = h.do(nil, http.MethodGet, "/groups", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, int64(0), gjson.Get(rr.Body.String(), "result").Int())
}

func TestCreateGroup(t *testing.T) {
	h := newHarness(t)
	body, _ := sjson.Set(`{}`, "name", "Group Three")
	body, _ = sjson.Set(body, "slug", "g3")

	rr := h.do(&h.groupManager, http.MethodPost, "/groups", body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(&h.superuser, http.MethodPost, "/groups", body)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/groups/g3/", rr.Header().Get("Location"))

	rr = h.do(&h.superuser, http.MethodPost, "/groups", body)
	assert.Equal(t, http.StatusConflict, rr.Code)

	bad, _ := sjson.Set(body, "slug", "not a slug")
	bad, _ = sjson.Set(bad, "name", "Other")
	rr = h.do(&h.superuser, http.MethodPost, "/groups", bad)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUnknownSlugsAreNotFound(t *testing.T) {
	h := newHarness(t)

	rr := h.do(&h.superuser, http.MethodGet, "/groups/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = h.do(&h.superuser, http.MethodGet, "/groups/g1/tenants/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	// the tenant must belong to the group of the path
	rr = h.do(&h.superuser, http.MethodGet, "/groups/g2/tenants/t1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do(&h.superuser, http.MethodGet, "/groups/G1/tenants/T1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, h.t1.TenantID.String(), gjson.Get(rr.Body.String(), "id").String())
	assert.Equal(t, "Tenant One (Group One)", gjson.Get(rr.Body.String(), "display").String())
}

func TestTenantManagerAccess(t *testing.T) {
	h := newHarness(t)
	tm := &h.tenantManager
	update := `{"name":"Tenant One Renamed","description":"updated"}`

	rr := h.do(tm, http.MethodGet, "/groups/g1", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = h.do(tm, http.MethodPut, "/groups/g1", `{"description":"x"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(tm, http.MethodGet, "/groups/g1/tenants", "")
	require.Equal(t, http.StatusOK, rr.Code)
	tenants := gjson.Parse(rr.Body.String()).Array()
	require.Len(t, tenants, 1)
	assert.Equal(t, "t1", tenants[0].Get("slug").String())

	rr = h.do(tm, http.MethodPut, "/groups/g1/tenants/t1", update)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Tenant One Renamed", gjson.Get(rr.Body.String(), "name").String())

	rr = h.do(tm, http.MethodGet, "/groups/g1/tenants/t2", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = h.do(tm, http.MethodPut, "/groups/g1/tenants/t2", update)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = h.do(tm, http.MethodDelete, "/groups/g1/tenants/t2", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(tm, http.MethodPost, "/groups/g1/tenants", `{"name":"Sibling","slug":"sibling"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(tm, http.MethodDelete, "/groups/g1/tenants/t1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, err := h.mem.GetTenant(context.Background(), h.t1.TenantID)
	assert.NotNil(t, err)
}

func TestGroupManagerAccess(t *testing.T) {
	h := newHarness(t)
	gm := &h.groupManager

	rr := h.do(gm, http.MethodGet, "/groups/g1/tenants", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(2), gjson.Get(rr.Body.String(), "#").Int())

	rr = h.do(gm, http.MethodPost, "/groups/g1/tenants", `{"name":"Tenant Three","slug":"t3"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/groups/g1/tenants/t3/", rr.Header().Get("Location"))

	rr = h.do(gm, http.MethodPost, "/groups/g1/tenants", `{"name":"Tenant Three","slug":"t4"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do(gm, http.MethodPut, "/groups/g1", `{"description":"managed"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "managed", gjson.Get(rr.Body.String(), "description").String())

	rr = h.do(gm, http.MethodGet, "/groups/g2", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = h.do(gm, http.MethodPost, "/groups/g2/tenants", `{"name":"Intruder","slug":"intruder"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(&h.nobody, http.MethodGet, "/groups/g1", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestRoleAssignments(t *testing.T) {
	h := newHarness(t)
	gm := &h.groupManager
	newbie := newUser()

	rr := h.do(&h.tenantManager, http.MethodGet, "/groups/g1/roles", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	body, _ := sjson.Set(`{"role":"tenant_manager","tenant":"T2"}`, "user_id", newbie.ID.String())
	rr = h.do(gm, http.MethodPost, "/groups/g1/roles", body)
	require.Equal(t, http.StatusCreated, rr.Code)
	id := gjson.Get(rr.Body.String(), "id").String()
	assert.Equal(t, "Group One ("+newbie.ID.String()+") - Tenant Manager", gjson.Get(rr.Body.String(), "display").String())
	assert.Equal(t, h.t2.TenantID.String(), gjson.Get(rr.Body.String(), "tenant_id").String())

	// the new manager sees only the assigned tenant
	rr = h.do(&newbie, http.MethodGet, "/groups/g1/tenants", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "t2", gjson.Get(rr.Body.String(), "0.slug").String())

	body, _ = sjson.Set(`{"role":"tenant_manager"}`, "user_id", newbie.ID.String())
	rr = h.do(gm, http.MethodPost, "/groups/g1/roles", body)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	body, _ = sjson.Set(`{"role":"tenant_manager","tenant":"nope"}`, "user_id", newbie.ID.String())
	rr = h.do(gm, http.MethodPost, "/groups/g1/roles", body)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = h.do(gm, http.MethodPost, "/groups/g1/roles", `{"role":"group_manager","user_id":"bad"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = h.do(gm, http.MethodGet, "/groups/g1/roles", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(3), gjson.Get(rr.Body.String(), "#").Int())

	// assignments are only reachable through their own group
	rr = h.do(&h.superuser, http.MethodDelete, "/groups/g2/roles/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = h.do(gm, http.MethodDelete, "/groups/g1/roles/"+id, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = h.do(gm, http.MethodDelete, "/groups/g1/roles/"+id, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestTenantManagerCannotGrantGroupManager(t *testing.T) {
	h := newHarness(t)
	tm := &h.tenantManager

	body, _ := sjson.Set(`{"role":"group_manager","tenant":"t1"}`, "user_id", tm.ID.String())
	rr := h.do(tm, http.MethodPost, "/groups/g1/roles", body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	body, _ = sjson.Set(`{"role":"group_manager"}`, "user_id", tm.ID.String())
	rr = h.do(tm, http.MethodPost, "/groups/g1/roles", body)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// still confined to its own tenant
	rr = h.do(tm, http.MethodPost, "/groups/g1/tenants", `{"name":"Sibling","slug":"sib"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = h.do(tm, http.MethodDelete, "/groups/g1/tenants/t2", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// a group manager grant naming t1 cannot be revoked by the tenant manager either
	other := newUser()
	require.Nil(t, h.mem.CreateRoleAssignment(context.Background(), &models.RoleAssignment{
		UserID: other.ID, GroupID: h.g1.GroupID, Role: types.RoleGroupManager, TenantID: &h.t1.TenantID}))
	ras, aerr := h.mem.ListRoleAssignmentsForUser(context.Background(), other.ID)
	require.Nil(t, aerr)
	require.Len(t, ras, 1)
	rr = h.do(tm, http.MethodDelete, "/groups/g1/roles/"+ras[0].AssignmentID.String(), "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// tenant manager grants for its own tenant stay allowed
	body, _ = sjson.Set(`{"role":"tenant_manager","tenant":"t1"}`, "user_id", newUser().ID.String())
	rr = h.do(tm, http.MethodPost, "/groups/g1/roles", body)
	assert.Equal(t, http.StatusCreated, rr.Code)

	rr = h.do(&h.groupManager, http.MethodPost, "/groups/g1/roles", `{"role":"group_manager","user_id":"`+newUser().ID.String()+`"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestContacts(t *testing.T) {
	h := newHarness(t)
	tm := &h.tenantManager

	rr := h.do(tm, http.MethodPost, "/groups/g1/tenants/t1/contacts", `{"contact_id":"c-1","description":"first"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, h.t1.TenantID.String(), gjson.Get(rr.Body.String(), "tenant_id").String())

	foreign, _ := sjson.Set(`{"contact_id":"c-2"}`, "tenant_id", h.t2.TenantID.String())
	rr = h.do(tm, http.MethodPost, "/groups/g1/tenants/t1/contacts", foreign)
	assert.Equal(t, http.StatusConflict, rr.Code)

	bulk := `[{"contact_id":"c-3"},{"contact_id":"c-4"}]`
	bulk, _ = sjson.Set(bulk, "1.tenant_id", h.t2.TenantID.String())
	rr = h.do(tm, http.MethodPost, "/groups/g1/tenants/t1/contacts/bulk", bulk)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = h.do(tm, http.MethodPost, "/groups/g1/tenants/t1/contacts/bulk", `[{"contact_id":"c-3"},{"contact_id":"c-4","email":"c4@example.com"}]`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, int64(2), gjson.Get(rr.Body.String(), "#").Int())

	rr = h.do(tm, http.MethodGet, "/groups/g1/tenants/t1/contacts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.ElementsMatch(t, []string{"c-1", "c-3", "c-4"}, stringsOf(gjson.Get(rr.Body.String(), "#.contact_id")))

	rr = h.do(tm, http.MethodGet, "/groups/g1/tenants/t2/contacts", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = h.do(&h.groupManager, http.MethodGet, "/groups/g1/tenants/t2/contacts", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", rr.Body.String())
}

func TestBackends(t *testing.T) {
	h := newHarness(t)
	tm := &h.tenantManager

	rr := h.do(tm, http.MethodPost, "/groups/g1/tenants/t1/backends", `{"name":"mt_tester"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, gjson.Get(rr.Body.String(), "primary").Exists())

	rr = h.do(tm, http.MethodPost, "/groups/g1/tenants/t1/backends", `{"name":"kannel"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = h.do(tm, http.MethodGet, "/groups/g1/tenants/t1/backends", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "kannel", gjson.Get(rr.Body.String(), "primary").String())
	assert.Equal(t, []string{"kannel", "mt_tester"}, stringsOf(gjson.Get(rr.Body.String(), "backends")))

	rr = h.do(tm, http.MethodPost, "/groups/g1/tenants/t2/backends", `{"name":"kannel"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = h.do(tm, http.MethodPost, "/groups/g1/tenants/t1/backends", `{}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTenantScopeIsStampedOnConnection(t *testing.T) {
	h := newHarness(t)
	var seen string
	var scope *common.TenancyScope

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(db.WithDB(req.Context(), db.NewMemoryDB(h.mem))))
		})
	})
	r.Route("/groups/{groupSlug}", func(r chi.Router) {
		r.Use(LoadGroupScope)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			scope = common.TenancyScopeFromContext(req.Context())
		})
		r.Route("/tenants/{tenantSlug}", func(r chi.Router) {
			r.Use(LoadTenantScope)
			r.Get("/", func(w http.ResponseWriter, req *http.Request) {
				seen = h.mem.Scope(db.Scope_TenantId)
				scope = common.TenancyScopeFromContext(req.Context())
			})
		})
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/groups/g1", nil))
	require.NotNil(t, scope)
	assert.ElementsMatch(t, []uuid.UUID{h.t1.TenantID, h.t2.TenantID}, scope.TenantIDs)
	_, ok := scope.Tenant()
	assert.False(t, ok)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/groups/g1/tenants/T2", nil))
	assert.Equal(t, h.t2.TenantID.String(), seen)
	id, ok := scope.Tenant()
	assert.True(t, ok)
	assert.Equal(t, h.t2.TenantID, id)
	assert.Empty(t, h.mem.Scope(db.Scope_TenantId))
}

func TestModuleAccess(t *testing.T) {
	h := newHarness(t)

	rr := h.do(&h.tenantManager, http.MethodGet, "/apps/multitenancy/access", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, gjson.Get(rr.Body.String(), "access").Bool())

	rr = h.do(&h.tenantManager, http.MethodGet, "/apps/billing/access", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, gjson.Get(rr.Body.String(), "access").Bool())

	rr = h.do(&h.nobody, http.MethodGet, "/apps/multitenancy/access", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, gjson.Get(rr.Body.String(), "access").Bool())

	rr = h.do(&h.superuser, http.MethodGet, "/apps/billing/access", "")
	assert.True(t, gjson.Get(rr.Body.String(), "access").Bool())

	rr = h.do(nil, http.MethodGet, "/apps/multitenancy/access", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func stringsOf(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}
