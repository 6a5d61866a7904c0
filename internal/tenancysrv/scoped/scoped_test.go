package scoped_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/memstore"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/scoped"
)

func newRepo() (*scoped.Repository[*models.ContactLink], *memstore.Table[*models.ContactLink]) {
	tbl := memstore.NewTable("contact_links", "link_id",
		func() *models.ContactLink { return &models.ContactLink{} }, []string{"contact_id"})
	return scoped.New[*models.ContactLink](tbl), tbl
}

func TestCreateInjectsScope(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()
	t1 := uuid.New()

	rec := &models.ContactLink{ContactID: "c-1"}
	require.Nil(t, repo.Objects().ByTenant(t1).Create(ctx, rec))
	require.NotNil(t, rec.TenantID)
	assert.Equal(t, t1, *rec.TenantID)

	stored, err := repo.AllTenants().Get(ctx, scoped.Where("contact_id", "c-1"))
	require.Nil(t, err)
	assert.Equal(t, t1, *stored.TenantID)

	// the scope's own tenant may be given explicitly
	same := t1
	require.Nil(t, repo.Objects().ByTenant(t1).Create(ctx, &models.ContactLink{ContactID: "c-2", TenantID: &same}))
}

func TestCreateWithForeignTenantIsScopeViolation(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()
	t1, t2 := uuid.New(), uuid.New()

	rec := &models.ContactLink{ContactID: "c-1", TenantID: &t2}
	err := repo.Objects().ByTenant(t1).Create(ctx, rec)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrScopeViolation)
	assert.Equal(t, t2, *rec.TenantID)

	n, cerr := repo.AllTenants().Count(ctx, scoped.Query{})
	require.Nil(t, cerr)
	assert.Zero(t, n)
}

func TestUnanchoredSurfaceIsScopeViolation(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()

	var zero scoped.Scoped[*models.ContactLink]
	nilScope := repo.Objects().ByTenant(uuid.Nil)

	for name, s := range map[string]scoped.Scoped[*models.ContactLink]{"zero value": zero, "nil tenant": nilScope} {
		t.Run(name, func(t *testing.T) {
			var errs []error
			_, err := s.Filter(ctx, scoped.Query{})
			errs = append(errs, err)
			_, err = s.All(ctx)
			errs = append(errs, err)
			_, err = s.Get(ctx, scoped.Where("contact_id", "c-1"))
			errs = append(errs, err)
			_, err = s.First(ctx, scoped.Query{})
			errs = append(errs, err)
			_, err = s.Last(ctx, scoped.Query{})
			errs = append(errs, err)
			_, err = s.Earliest(ctx, scoped.Query{}, "contact_id")
			errs = append(errs, err)
			_, err = s.Latest(ctx, scoped.Query{}, "contact_id")
			errs = append(errs, err)
			_, err = s.Count(ctx, scoped.Query{})
			errs = append(errs, err)
			_, err = s.Exists(ctx, scoped.Query{})
			errs = append(errs, err)
			errs = append(errs, s.Create(ctx, &models.ContactLink{ContactID: "c-1"}))
			_, _, err = s.GetOrCreate(ctx, scoped.Where("contact_id", "c-1"), func() *models.ContactLink { return &models.ContactLink{} })
			errs = append(errs, err)
			_, err = s.Update(ctx, scoped.Query{}, scoped.Patch{"description": "x"})
			errs = append(errs, err)
			_, err = s.Delete(ctx, scoped.Query{})
			errs = append(errs, err)
			errs = append(errs, s.BulkInsert(ctx, []*models.ContactLink{{ContactID: "c-1"}}))

			for i, err := range errs {
				assert.ErrorIs(t, err, dberror.ErrScopeViolation, "operation %d", i)
			}
		})
	}

	var zeroAdmin scoped.Unscoped[*models.ContactLink]
	_, err := zeroAdmin.Filter(ctx, scoped.Query{})
	assert.ErrorIs(t, err, dberror.ErrScopeViolation)
}

func TestBulkInsertWithForeignRecordInsertsNothing(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()
	t1, t2 := uuid.New(), uuid.New()

	recs := []*models.ContactLink{
		{ContactID: "c-1"},
		{ContactID: "c-2", TenantID: &t1},
		{ContactID: "c-3", TenantID: &t2},
		{ContactID: "c-4"},
	}
	err := repo.Objects().ByTenant(t1).BulkInsert(ctx, recs)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrScopeViolation)
	assert.Nil(t, recs[0].TenantID)

	n, cerr := repo.AllTenants().Count(ctx, scoped.Query{})
	require.Nil(t, cerr)
	assert.Zero(t, n)

	ok := []*models.ContactLink{{ContactID: "c-1"}, {ContactID: "c-2", TenantID: &t1}}
	require.Nil(t, repo.Objects().ByTenant(t1).BulkInsert(ctx, ok))
	n, cerr = repo.Objects().ByTenant(t1).Count(ctx, scoped.Query{})
	require.Nil(t, cerr)
	assert.Equal(t, 2, n)
}

func TestBulkInsertWithInvalidRecordLeavesBatchUntouched(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()
	t1 := uuid.New()

	recs := []*models.ContactLink{{ContactID: "c-1"}, {ContactID: "c-2"}, {ContactID: ""}}
	err := repo.Objects().ByTenant(t1).BulkInsert(ctx, recs)
	require.NotNil(t, err)
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)
	for _, rec := range recs {
		assert.Nil(t, rec.TenantID)
	}

	n, cerr := repo.AllTenants().Count(ctx, scoped.Query{})
	require.Nil(t, cerr)
	assert.Zero(t, n)
}

func TestReadsAreFilteredByScope(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()
	t1, t2 := uuid.New(), uuid.New()

	require.Nil(t, repo.Objects().ByTenant(t1).BulkInsert(ctx, []*models.ContactLink{
		{ContactID: "a", Description: "one"},
		{ContactID: "b", Description: "two"},
	}))
	require.Nil(t, repo.Objects().ByTenant(t2).Create(ctx, &models.ContactLink{ContactID: "c", Description: "three"}))
	require.Nil(t, repo.AllTenants().Create(ctx, &models.ContactLink{ContactID: "d"}))

	s1 := repo.Objects().ByTenant(t1)
	assert.Equal(t, t1, s1.Tenant())

	all, err := s1.All(ctx)
	require.Nil(t, err)
	assert.Len(t, all, 2)

	_, err = s1.Get(ctx, scoped.Where("contact_id", "c"))
	assert.ErrorIs(t, err, dberror.ErrNotFound)
	_, err = s1.Get(ctx, scoped.Query{})
	assert.ErrorIs(t, err, dberror.ErrMultipleResults)

	first, err := s1.Earliest(ctx, scoped.Query{}, "contact_id")
	require.Nil(t, err)
	assert.Equal(t, "a", first.ContactID)
	last, err := s1.Latest(ctx, scoped.Query{}, "contact_id")
	require.Nil(t, err)
	assert.Equal(t, "b", last.ContactID)
	last, err = s1.Last(ctx, scoped.Query{}.Order("description"))
	require.Nil(t, err)
	assert.Equal(t, "b", last.ContactID)
	_, err = s1.First(ctx, scoped.Query{})
	require.Nil(t, err)

	exists, err := s1.Exists(ctx, scoped.Where("contact_id", "c"))
	require.Nil(t, err)
	assert.False(t, exists)

	n, err := s1.Delete(ctx, scoped.Query{})
	require.Nil(t, err)
	assert.Equal(t, 2, n)
	n, err = repo.AllTenants().Count(ctx, scoped.Query{})
	require.Nil(t, err)
	assert.Equal(t, 2, n)

	unassigned, err := repo.AllTenants().Filter(ctx, scoped.Where(models.TenantColumn, nil))
	require.Nil(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "d", unassigned[0].ContactID)
}

func TestGetOrCreate(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()
	t1, t2 := uuid.New(), uuid.New()
	s1 := repo.Objects().ByTenant(t1)
	build := func() *models.ContactLink { return &models.ContactLink{Description: "new"} }

	rec, created, err := s1.GetOrCreate(ctx, scoped.Where("contact_id", "c-1"), build)
	require.Nil(t, err)
	assert.True(t, created)
	assert.Equal(t, "c-1", rec.ContactID)
	assert.Equal(t, t1, *rec.TenantID)

	again, created, err := s1.GetOrCreate(ctx, scoped.Where("contact_id", "c-1").And(models.TenantColumn, t1), build)
	require.Nil(t, err)
	assert.False(t, created)
	assert.Equal(t, rec.LinkID, again.LinkID)

	_, _, err = s1.GetOrCreate(ctx, scoped.Where("contact_id", "c-2").And(models.TenantColumn, t2), build)
	assert.ErrorIs(t, err, dberror.ErrScopeViolation)
	_, _, err = s1.GetOrCreate(ctx, scoped.Where("contact_id", "c-2").And(models.TenantColumn, nil), build)
	assert.ErrorIs(t, err, dberror.ErrScopeViolation)

	foreign := func() *models.ContactLink { return &models.ContactLink{TenantID: &t2} }
	_, _, err = s1.GetOrCreate(ctx, scoped.Where("contact_id", "c-3"), foreign)
	assert.ErrorIs(t, err, dberror.ErrScopeViolation)
}

func TestUpdateCannotLeaveScope(t *testing.T) {
	repo, _ := newRepo()
	ctx := context.Background()
	t1, t2 := uuid.New(), uuid.New()
	s1 := repo.Objects().ByTenant(t1)
	require.Nil(t, s1.Create(ctx, &models.ContactLink{ContactID: "c-1"}))
	require.Nil(t, repo.Objects().ByTenant(t2).Create(ctx, &models.ContactLink{ContactID: "c-2"}))

	_, err := s1.Update(ctx, scoped.Query{}, scoped.Patch{models.TenantColumn: t2})
	assert.ErrorIs(t, err, dberror.ErrScopeViolation)
	_, err = s1.Update(ctx, scoped.Query{}, scoped.Patch{models.TenantColumn: nil})
	assert.ErrorIs(t, err, dberror.ErrScopeViolation)

	n, err := s1.Update(ctx, scoped.Query{}, scoped.Patch{"description": "updated", models.TenantColumn: t1.String()})
	require.Nil(t, err)
	assert.Equal(t, 1, n)

	other, err := repo.AllTenants().Get(ctx, scoped.Where("contact_id", "c-2"))
	require.Nil(t, err)
	assert.Empty(t, other.Description)

	// the administrative surface may reassign records
	n, err = repo.AllTenants().Update(ctx, scoped.Where("contact_id", "c-2"), scoped.Patch{models.TenantColumn: t1})
	require.Nil(t, err)
	assert.Equal(t, 1, n)
}

func TestCreateValidatesRecord(t *testing.T) {
	repo, _ := newRepo()
	err := repo.Objects().ByTenant(uuid.New()).Create(context.Background(), &models.ContactLink{})
	assert.ErrorIs(t, err, dberror.ErrInvalidInput)
}

func TestQueryBuilderCopies(t *testing.T) {
	base := scoped.Where("contact_id", "c-1")
	withTenant := base.And(models.TenantColumn, uuid.Nil)
	assert.Len(t, base.Where, 1)
	assert.Len(t, withTenant.Where, 2)

	v, ok := withTenant.Lookup("contact_id")
	assert.True(t, ok)
	assert.Equal(t, "c-1", v)
	_, ok = base.Lookup(models.TenantColumn)
	assert.False(t, ok)

	q := base.Order("-contact_id").Take(5)
	assert.Equal(t, []string{"-contact_id"}, q.OrderBy)
	assert.Equal(t, 5, q.Limit)
	assert.Zero(t, base.Limit)
}
