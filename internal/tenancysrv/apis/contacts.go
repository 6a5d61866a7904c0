package apis

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/tansive/tansive-tenancy/internal/common/httpx"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

// contactsOf is the authorization target standing for the contact links of a tenant.
func contactsOf(tenantID uuid.UUID) *models.ContactLink {
	return &models.ContactLink{TenantID: &tenantID}
}

func listContacts(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	tenantID, err := scopedTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionView, types.EntityContactLink, contactsOf(tenantID)); err != nil {
		return nil, err
	}
	links, aerr := db.DB(ctx).ContactLinks().Objects().ByTenant(tenantID).All(ctx)
	if aerr != nil {
		return nil, aerr
	}
	if links == nil {
		links = []*models.ContactLink{}
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: links}, nil
}

// createContact stores the link under the tenant of the path. A link naming another tenant is
// rejected by the repository.
func createContact(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	tenantID, err := scopedTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionCreate, types.EntityContactLink, contactsOf(tenantID)); err != nil {
		return nil, err
	}
	link := &models.ContactLink{}
	if err := httpx.GetRequestData(r, link); err != nil {
		return nil, err
	}
	link.LinkID = uuid.Nil
	if err := db.DB(ctx).ContactLinks().Objects().ByTenant(tenantID).Create(ctx, link); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusCreated, Response: link}, nil
}

func bulkCreateContacts(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	tenantID, err := scopedTenant(ctx)
	if err != nil {
		return nil, err
	}
	if err := authorize(ctx, types.ActionCreate, types.EntityContactLink, contactsOf(tenantID)); err != nil {
		return nil, err
	}
	var links []*models.ContactLink
	if err := httpx.GetRequestData(r, &links); err != nil {
		return nil, err
	}
	if len(links) == 0 {
		return nil, ErrInvalidRequest.Msg("no contacts given")
	}
	for _, l := range links {
		if l == nil {
			return nil, ErrInvalidRequest.Msg("null contact")
		}
		l.LinkID = uuid.Nil
	}
	if err := db.DB(ctx).ContactLinks().Objects().ByTenant(tenantID).BulkInsert(ctx, links); err != nil {
		return nil, err
	}
	return &httpx.Response{StatusCode: http.StatusCreated, Response: links}, nil
}
