package memstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/scoped"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

func seed(t *testing.T) (*DB, *models.TenantGroup, *models.Tenant, *models.Tenant) {
	d := New()
	ctx := context.Background()
	g := &models.TenantGroup{Name: "Group One", Slug: "g1"}
	require.Nil(t, d.CreateGroup(ctx, g))
	t1 := &models.Tenant{GroupID: g.GroupID, Name: "Tenant One", Slug: "t1"}
	require.Nil(t, d.CreateTenant(ctx, t1))
	t2 := &models.Tenant{GroupID: g.GroupID, Name: "Tenant Two", Slug: "t2"}
	require.Nil(t, d.CreateTenant(ctx, t2))
	return d, g, t1, t2
}

func TestDirectoryUniqueness(t *testing.T) {
	d, g, _, t2 := seed(t)
	ctx := context.Background()

	err := d.CreateGroup(ctx, &models.TenantGroup{Name: "Group One", Slug: "other"})
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)
	err = d.CreateGroup(ctx, &models.TenantGroup{Name: "Other", Slug: "G1"})
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)

	err = d.CreateTenant(ctx, &models.Tenant{GroupID: g.GroupID, Name: "Tenant One", Slug: "t9"})
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)
	err = d.CreateTenant(ctx, &models.Tenant{GroupID: uuid.New(), Name: "Tenant One", Slug: "t1"})
	assert.ErrorIs(t, err, dberror.ErrInvalidGroup)

	// slugs collide regardless of case
	err = d.CreateTenant(ctx, &models.Tenant{GroupID: g.GroupID, Name: "Tenant Nine", Slug: "T1"})
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)
	renamed := *t2
	renamed.Slug = "T1"
	err = d.UpdateTenant(ctx, &renamed)
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)

	// names and slugs may repeat across groups
	g2 := &models.TenantGroup{Name: "Group Two", Slug: "g2"}
	require.Nil(t, d.CreateGroup(ctx, g2))
	require.Nil(t, d.CreateTenant(ctx, &models.Tenant{GroupID: g2.GroupID, Name: "Tenant One", Slug: "t1"}))
}

func TestSlugLookupIsCaseInsensitive(t *testing.T) {
	d, g, t1, _ := seed(t)
	ctx := context.Background()

	found, err := d.GetGroupBySlug(ctx, "G1")
	require.Nil(t, err)
	assert.Equal(t, g.GroupID, found.GroupID)

	tn, err := d.GetTenantBySlug(ctx, "G1", "T1")
	require.Nil(t, err)
	assert.Equal(t, t1.TenantID, tn.TenantID)
	assert.Equal(t, "Tenant One (Group One)", tn.String())

	_, err = d.GetTenantBySlug(ctx, "g1", "nope")
	assert.ErrorIs(t, err, dberror.ErrNotFound)
}

func TestDeleteTenantPreservesRoleInvariants(t *testing.T) {
	d, g, t1, t2 := seed(t)
	ctx := context.Background()
	user := uuid.New()

	require.Nil(t, d.CreateRoleAssignment(ctx, &models.RoleAssignment{UserID: user, GroupID: g.GroupID, Role: types.RoleTenantManager, TenantID: &t1.TenantID}))
	require.Nil(t, d.CreateRoleAssignment(ctx, &models.RoleAssignment{UserID: user, GroupID: g.GroupID, Role: types.RoleTenantManager, TenantID: &t2.TenantID}))
	link := &models.ContactLink{ContactID: "c-1", TenantID: &t1.TenantID}
	require.Nil(t, d.ContactLinks().Insert(ctx, link))

	require.Nil(t, d.DeleteTenant(ctx, t1.TenantID))

	roles, err := d.ListRoleAssignmentsForUser(ctx, user)
	require.Nil(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, t2.TenantID, *roles[0].TenantID)

	links, err := d.ContactLinks().Find(ctx, scoped.Where("contact_id", "c-1"))
	require.Nil(t, err)
	require.Len(t, links, 1)
	assert.Nil(t, links[0].TenantID)
}

func TestRoleAssignmentInvariants(t *testing.T) {
	d, g, t1, _ := seed(t)
	ctx := context.Background()
	other := &models.TenantGroup{Name: "Group Two", Slug: "g2"}
	require.Nil(t, d.CreateGroup(ctx, other))

	err := d.CreateRoleAssignment(ctx, &models.RoleAssignment{UserID: uuid.New(), GroupID: other.GroupID, Role: types.RoleTenantManager, TenantID: &t1.TenantID})
	assert.ErrorIs(t, err, dberror.ErrInvariantViolation)
	err = d.CreateRoleAssignment(ctx, &models.RoleAssignment{UserID: uuid.New(), GroupID: g.GroupID, Role: types.RoleTenantManager})
	assert.ErrorIs(t, err, dberror.ErrInvariantViolation)
}

func TestTableInsertManyIsAtomic(t *testing.T) {
	d, _, t1, _ := seed(t)
	ctx := context.Background()
	tbl := d.BackendLinks()

	require.Nil(t, tbl.Insert(ctx, &models.BackendLink{BackendName: "twilio"}))
	err := tbl.InsertMany(ctx, []*models.BackendLink{
		{BackendName: "kannel", TenantID: &t1.TenantID},
		{BackendName: "twilio"},
	})
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)
	n, cerr := tbl.Count(ctx, scoped.Query{})
	require.Nil(t, cerr)
	assert.Equal(t, 1, n)

	missing := uuid.New()
	err = tbl.Insert(ctx, &models.BackendLink{BackendName: "smpp", TenantID: &missing})
	assert.ErrorIs(t, err, dberror.ErrInvalidTenant)
}

func TestTableOrderingAndCopies(t *testing.T) {
	d, _, t1, _ := seed(t)
	ctx := context.Background()
	tbl := d.ContactLinks()

	for _, id := range []string{"c-2", "c-3", "c-1"} {
		require.Nil(t, tbl.Insert(ctx, &models.ContactLink{ContactID: id, TenantID: &t1.TenantID}))
	}
	recs, err := tbl.Find(ctx, scoped.Where(models.TenantColumn, t1.TenantID).Order("-contact_id").Take(2))
	require.Nil(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "c-3", recs[0].ContactID)
	assert.Equal(t, "c-2", recs[1].ContactID)

	// mutating a returned record does not touch the table
	recs[0].ContactID = "changed"
	again, err := tbl.Find(ctx, scoped.Where("contact_id", "c-3"))
	require.Nil(t, err)
	assert.Len(t, again, 1)

	n, err := tbl.Update(ctx, scoped.Where("contact_id", "c-1"), scoped.Patch{"description": "first"})
	require.Nil(t, err)
	assert.Equal(t, 1, n)
	_, err = tbl.Update(ctx, scoped.Where("contact_id", "c-1"), scoped.Patch{"contact_id": "c-2"})
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)

	n, err = tbl.Delete(ctx, scoped.Where(models.TenantColumn, t1.TenantID.String()))
	require.Nil(t, err)
	assert.Equal(t, 3, n)

	_, err = tbl.Find(ctx, scoped.Where("bogus", 1))
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)
}

func TestGetOrCreateBackend(t *testing.T) {
	d := New()
	ctx := context.Background()
	b, created, err := d.GetOrCreateBackend(ctx, "twilio")
	require.Nil(t, err)
	assert.True(t, created)
	again, created, err := d.GetOrCreateBackend(ctx, "twilio")
	require.Nil(t, err)
	assert.False(t, created)
	assert.Equal(t, b.BackendID, again.BackendID)
}
