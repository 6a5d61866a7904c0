package apis

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
)

var directoryHandlers = []httpx.ResponseHandlerParam{
	{
		Method:  http.MethodGet,
		Path:    "/groups",
		Handler: listGroups,
	},
	{
		Method:  http.MethodPost,
		Path:    "/groups",
		Handler: createGroup,
	},
	{
		Method:  http.MethodGet,
		Path:    "/apps/{app}/access",
		Handler: getModuleAccess,
	},
}

var groupHandlers = []httpx.ResponseHandlerParam{
	{
		Method:  http.MethodGet,
		Path:    "/",
		Handler: getGroup,
	},
	{
		Method:  http.MethodPut,
		Path:    "/",
		Handler: updateGroup,
	},
	{
		Method:  http.MethodDelete,
		Path:    "/",
		Handler: deleteGroup,
	},
	{
		Method:  http.MethodGet,
		Path:    "/tenants",
		Handler: listTenants,
	},
	{
		Method:  http.MethodPost,
		Path:    "/tenants",
		Handler: createTenant,
	},
	{
		Method:  http.MethodGet,
		Path:    "/roles",
		Handler: listRoleAssignments,
	},
	{
		Method:  http.MethodPost,
		Path:    "/roles",
		Handler: createRoleAssignment,
	},
	{
		Method:  http.MethodDelete,
		Path:    "/roles/{assignmentID}",
		Handler: deleteRoleAssignment,
	},
}

var tenantHandlers = []httpx.ResponseHandlerParam{
	{
		Method:  http.MethodGet,
		Path:    "/",
		Handler: getTenant,
	},
	{
		Method:  http.MethodPut,
		Path:    "/",
		Handler: updateTenant,
	},
	{
		Method:  http.MethodDelete,
		Path:    "/",
		Handler: deleteTenant,
	},
	{
		Method:  http.MethodGet,
		Path:    "/contacts",
		Handler: listContacts,
	},
	{
		Method:  http.MethodPost,
		Path:    "/contacts",
		Handler: createContact,
	},
	{
		Method:  http.MethodPost,
		Path:    "/contacts/bulk",
		Handler: bulkCreateContacts,
	},
	{
		Method:  http.MethodGet,
		Path:    "/backends",
		Handler: listBackends,
	},
	{
		Method:  http.MethodPost,
		Path:    "/backends",
		Handler: addBackend,
	},
}

// Router mounts the tenancy API. The database view and the acting user must already be in the
// request context.
func Router(r chi.Router) {
	r.Use(LoadAuthorization)
	for _, h := range directoryHandlers {
		r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
	}
	r.Route("/groups/{groupSlug}", func(r chi.Router) {
		r.Use(LoadGroupScope)
		for _, h := range groupHandlers {
			r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
		}
		r.Route("/tenants/{tenantSlug}", func(r chi.Router) {
			r.Use(LoadTenantScope)
			for _, h := range tenantHandlers {
				r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
			}
		})
	})
}
