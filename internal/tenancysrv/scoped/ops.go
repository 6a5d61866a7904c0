package scoped

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/metrics"
)

type mode int

const (
	modeUnanchored mode = iota
	modeScoped
	modeUnscoped
)

const msgUnanchored = "queries on tenant-owned records must be anchored with ByTenant(tenant) first; use AllTenants for records of multiple tenants"

// ops implements the terminal operations shared by Scoped and Unscoped.
type ops[T models.Row] struct {
	store  Store[T]
	mode   mode
	tenant uuid.UUID
}

func (o ops[T]) violation(ctx context.Context, op, msg string) apperrors.Error {
	metrics.IncScopeViolation(op)
	log.Ctx(ctx).Error().Str("op", op).Str("scope", o.tenant.String()).Msg(msg)
	return dberror.ErrScopeViolation.Msg(msg)
}

func (o ops[T]) anchored(ctx context.Context, op string) apperrors.Error {
	if o.store == nil || o.mode == modeUnanchored || (o.mode == modeScoped && o.tenant == uuid.Nil) {
		return o.violation(ctx, op, msgUnanchored)
	}
	return nil
}

// matchesScope reports whether a caller supplied tenant value equals the scope.
func (o ops[T]) matchesScope(v any) bool {
	switch x := models.NormalizeValue(v).(type) {
	case uuid.UUID:
		return x == o.tenant
	case string:
		id, err := uuid.Parse(x)
		return err == nil && id == o.tenant
	}
	return false
}

func (o ops[T]) read(q Query) Query {
	if o.mode == modeScoped {
		return q.And(models.TenantColumn, o.tenant)
	}
	return q
}

func (o ops[T]) checkRecord(ctx context.Context, op string, rec T) apperrors.Error {
	if o.mode != modeScoped {
		return nil
	}
	if ref := rec.TenantRef(); ref != nil && *ref != o.tenant {
		return o.violation(ctx, op, "tenant "+ref.String()+" of record does not match scope "+o.tenant.String())
	}
	return nil
}

func (o ops[T]) stamp(rec T) {
	if o.mode == modeScoped {
		id := o.tenant
		rec.SetTenantRef(&id)
	}
}

// Filter returns the records matching q.
func (o ops[T]) Filter(ctx context.Context, q Query) ([]T, apperrors.Error) {
	if err := o.anchored(ctx, "filter"); err != nil {
		return nil, err
	}
	return o.store.Find(ctx, o.read(q))
}

// All returns every record visible through this surface.
func (o ops[T]) All(ctx context.Context) ([]T, apperrors.Error) {
	return o.Filter(ctx, Query{})
}

// Get returns the single record matching q.
func (o ops[T]) Get(ctx context.Context, q Query) (T, apperrors.Error) {
	var zero T
	if err := o.anchored(ctx, "get"); err != nil {
		return zero, err
	}
	return o.get(ctx, q)
}

func (o ops[T]) get(ctx context.Context, q Query) (T, apperrors.Error) {
	var zero T
	recs, err := o.store.Find(ctx, o.read(q).Take(2))
	if err != nil {
		return zero, err
	}
	switch len(recs) {
	case 0:
		return zero, dberror.ErrNotFound
	case 1:
		return recs[0], nil
	}
	return zero, dberror.ErrMultipleResults
}

// First returns the first record matching q in q's order, or by key if q is unordered.
func (o ops[T]) First(ctx context.Context, q Query) (T, apperrors.Error) {
	return o.edge(ctx, "first", q, o.ordering(q), false)
}

// Last returns the last record matching q in q's order, or by key if q is unordered.
func (o ops[T]) Last(ctx context.Context, q Query) (T, apperrors.Error) {
	return o.edge(ctx, "last", q, o.ordering(q), true)
}

// Earliest returns the matching record with the smallest value in column.
func (o ops[T]) Earliest(ctx context.Context, q Query, column string) (T, apperrors.Error) {
	return o.edge(ctx, "earliest", q, []string{column}, false)
}

// Latest returns the matching record with the largest value in column.
func (o ops[T]) Latest(ctx context.Context, q Query, column string) (T, apperrors.Error) {
	return o.edge(ctx, "latest", q, []string{column}, true)
}

func (o ops[T]) ordering(q Query) []string {
	if len(q.OrderBy) > 0 {
		return q.OrderBy
	}
	if o.store == nil {
		return nil
	}
	return []string{o.store.KeyColumn()}
}

func (o ops[T]) edge(ctx context.Context, op string, q Query, order []string, reverse bool) (T, apperrors.Error) {
	var zero T
	if err := o.anchored(ctx, op); err != nil {
		return zero, err
	}
	if reverse {
		order = reversed(order)
	}
	recs, err := o.store.Find(ctx, o.read(q).Order(order...).Take(1))
	if err != nil {
		return zero, err
	}
	if len(recs) == 0 {
		return zero, dberror.ErrNotFound
	}
	return recs[0], nil
}

func reversed(order []string) []string {
	r := make([]string, len(order))
	for i, col := range order {
		if strings.HasPrefix(col, "-") {
			r[i] = col[1:]
		} else {
			r[i] = "-" + col
		}
	}
	return r
}

// Count returns the number of records matching q.
func (o ops[T]) Count(ctx context.Context, q Query) (int, apperrors.Error) {
	if err := o.anchored(ctx, "count"); err != nil {
		return 0, err
	}
	return o.store.Count(ctx, o.read(q))
}

// Exists reports whether any record matches q.
func (o ops[T]) Exists(ctx context.Context, q Query) (bool, apperrors.Error) {
	n, err := o.Count(ctx, q)
	return n > 0, err
}

// Create stores rec. On a scoped surface a record without a tenant is assigned the scope.
func (o ops[T]) Create(ctx context.Context, rec T) apperrors.Error {
	if err := o.anchored(ctx, "create"); err != nil {
		return err
	}
	if err := o.checkRecord(ctx, "create", rec); err != nil {
		return err
	}
	if err := models.Validate(rec); err != nil {
		return err
	}
	o.stamp(rec)
	return o.store.Insert(ctx, rec)
}

// GetOrCreate returns the record matching lookup, or stores a new one built by build with the
// lookup values applied. The boolean reports whether a record was created.
func (o ops[T]) GetOrCreate(ctx context.Context, lookup Query, build func() T) (T, bool, apperrors.Error) {
	var zero T
	if err := o.anchored(ctx, "get_or_create"); err != nil {
		return zero, false, err
	}
	if v, ok := lookup.Lookup(models.TenantColumn); ok && o.mode == modeScoped && !o.matchesScope(v) {
		return zero, false, o.violation(ctx, "get_or_create", "tenant in lookup does not match scope "+o.tenant.String())
	}
	rec, err := o.get(ctx, lookup)
	if err == nil {
		return rec, false, nil
	}
	if !err.Is(dberror.ErrNotFound) {
		return zero, false, err
	}
	rec = build()
	for _, c := range lookup.Where {
		if serr := rec.SetColumn(c.Column, c.Value); serr != nil {
			return zero, false, dberror.ErrInvalidInput.Err(serr)
		}
	}
	if err := o.checkRecord(ctx, "get_or_create", rec); err != nil {
		return zero, false, err
	}
	if err := models.Validate(rec); err != nil {
		return zero, false, err
	}
	o.stamp(rec)
	if err := o.store.Insert(ctx, rec); err != nil {
		return zero, false, err
	}
	return rec, true, nil
}

// Update applies patch to the records matching q and returns how many were changed.
// A scoped update may not move records to another tenant.
func (o ops[T]) Update(ctx context.Context, q Query, patch Patch) (int, apperrors.Error) {
	if err := o.anchored(ctx, "update"); err != nil {
		return 0, err
	}
	if v, ok := patch[models.TenantColumn]; ok && o.mode == modeScoped && !o.matchesScope(v) {
		return 0, o.violation(ctx, "update", "update would move records out of scope "+o.tenant.String())
	}
	return o.store.Update(ctx, o.read(q), patch)
}

// Delete removes the records matching q and returns how many were removed.
func (o ops[T]) Delete(ctx context.Context, q Query) (int, apperrors.Error) {
	if err := o.anchored(ctx, "delete"); err != nil {
		return 0, err
	}
	return o.store.Delete(ctx, o.read(q))
}

// BulkInsert stores all records in one transaction. Every record is checked before any is
// stored, so a single record of another tenant leaves storage untouched.
func (o ops[T]) BulkInsert(ctx context.Context, recs []T) apperrors.Error {
	if err := o.anchored(ctx, "bulk_insert"); err != nil {
		return err
	}
	// the whole batch is checked before any record is stamped
	for _, rec := range recs {
		if err := o.checkRecord(ctx, "bulk_insert", rec); err != nil {
			return err
		}
		if err := models.Validate(rec); err != nil {
			return err
		}
	}
	for _, rec := range recs {
		o.stamp(rec)
	}
	if len(recs) == 0 {
		return nil
	}
	return o.store.InsertMany(ctx, recs)
}
