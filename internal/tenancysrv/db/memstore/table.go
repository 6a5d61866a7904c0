package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	uuidv7 "github.com/tansive/tansive-tenancy/internal/common/uuid"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/scoped"
)

// Table keeps tenant-owned records in memory. Records are copied in and out, so callers never
// share state with the table.
type Table[T models.Row] struct {
	mu      sync.RWMutex
	name    string
	key     string
	newRec  func() T
	columns []string
	unique  [][]string
	rows    []T
	// tenantExists enforces the tenant reference when set.
	tenantExists func(uuid.UUID) bool
}

var _ scoped.Store[*models.BackendLink] = (*Table[*models.BackendLink])(nil)

// NewTable creates a table keyed by the uuid column key. Each unique entry lists columns whose
// combined values must be unique.
func NewTable[T models.Row](name, key string, newRec func() T, unique ...[]string) *Table[T] {
	return &Table[T]{
		name:    name,
		key:     key,
		newRec:  newRec,
		columns: newRec().Columns(),
		unique:  unique,
	}
}

func (t *Table[T]) KeyColumn() string {
	return t.key
}

func (t *Table[T]) clone(rec T) T {
	c := t.newRec()
	vals := rec.Values()
	for i, col := range rec.Columns() {
		// values produced by Values are always assignable
		_ = c.SetColumn(col, vals[i])
	}
	return c
}

func (t *Table[T]) value(rec T, col string) any {
	return rec.Values()[slices.Index(t.columns, col)]
}

func (t *Table[T]) checkQuery(q scoped.Query) apperrors.Error {
	for _, c := range q.Where {
		if !slices.Contains(t.columns, c.Column) {
			return dberror.ErrInvalidInput.Msg(fmt.Sprintf("unknown column %q for %s", c.Column, t.name))
		}
	}
	for _, col := range q.OrderBy {
		if !slices.Contains(t.columns, strings.TrimPrefix(col, "-")) {
			return dberror.ErrInvalidInput.Msg(fmt.Sprintf("unknown column %q for %s", col, t.name))
		}
	}
	return nil
}

func (t *Table[T]) matches(rec T, q scoped.Query) bool {
	for _, c := range q.Where {
		if !equalValues(t.value(rec, c.Column), c.Value) {
			return false
		}
	}
	return true
}

func (t *Table[T]) Find(ctx context.Context, q scoped.Query) ([]T, apperrors.Error) {
	if err := t.checkQuery(q); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []T
	for _, rec := range t.rows {
		if t.matches(rec, q) {
			out = append(out, t.clone(rec))
		}
	}
	if len(q.OrderBy) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, col := range q.OrderBy {
				desc := strings.HasPrefix(col, "-")
				col = strings.TrimPrefix(col, "-")
				c := compareValues(t.value(out[i], col), t.value(out[j], col))
				if c == 0 {
					continue
				}
				if desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (t *Table[T]) Count(ctx context.Context, q scoped.Query) (int, apperrors.Error) {
	recs, err := t.Find(ctx, scoped.Query{Where: q.Where})
	return len(recs), err
}

// checkRow verifies references and uniqueness of rec against rows, skipping index skip.
func (t *Table[T]) checkRow(rows []T, rec T, skip int) apperrors.Error {
	if ref := rec.TenantRef(); ref != nil && t.tenantExists != nil && !t.tenantExists(*ref) {
		return dberror.ErrInvalidTenant.Msg(t.name + ": referenced record does not exist")
	}
	for _, cols := range t.unique {
		for i, other := range rows {
			if i == skip {
				continue
			}
			same := true
			for _, col := range cols {
				if !equalValues(t.value(rec, col), t.value(other, col)) {
					same = false
					break
				}
			}
			if same {
				return dberror.ErrAlreadyExists.Msg(t.name + ": " + strings.Join(cols, ", "))
			}
		}
	}
	return nil
}

func (t *Table[T]) prepare(rec T) apperrors.Error {
	if models.NormalizeValue(t.value(rec, t.key)) == uuid.Nil {
		if err := rec.SetColumn(t.key, uuidv7.New()); err != nil {
			return dberror.ErrInvalidInput.Err(err)
		}
	}
	return nil
}

func (t *Table[T]) Insert(ctx context.Context, rec T) apperrors.Error {
	return t.InsertMany(ctx, []T{rec})
}

// InsertMany checks every record against the table and each other before storing any.
func (t *Table[T]) InsertMany(ctx context.Context, recs []T) apperrors.Error {
	t.mu.Lock()
	defer t.mu.Unlock()
	staged := slices.Clone(t.rows)
	for _, rec := range recs {
		if err := t.prepare(rec); err != nil {
			return err
		}
		c := t.clone(rec)
		if err := t.checkRow(staged, c, -1); err != nil {
			return err
		}
		staged = append(staged, c)
	}
	t.rows = staged
	return nil
}

func (t *Table[T]) Update(ctx context.Context, q scoped.Query, patch scoped.Patch) (int, apperrors.Error) {
	if err := t.checkQuery(q); err != nil {
		return 0, err
	}
	if len(patch) == 0 {
		return 0, dberror.ErrInvalidInput.Msg("empty update")
	}
	if _, ok := patch[t.key]; ok {
		return 0, dberror.ErrInvalidInput.Msg("key column cannot be updated")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	staged := slices.Clone(t.rows)
	n := 0
	for i, rec := range staged {
		if !t.matches(rec, q) {
			continue
		}
		c := t.clone(rec)
		for col, v := range patch {
			if err := c.SetColumn(col, v); err != nil {
				return 0, dberror.ErrInvalidInput.Err(err)
			}
		}
		staged[i] = c
		n++
	}
	for i := range staged {
		if err := t.checkRow(staged, staged[i], i); err != nil {
			return 0, err
		}
	}
	t.rows = staged
	return n, nil
}

func (t *Table[T]) Delete(ctx context.Context, q scoped.Query) (int, apperrors.Error) {
	if err := t.checkQuery(q); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.rows[:0:0]
	for _, rec := range t.rows {
		if !t.matches(rec, q) {
			kept = append(kept, rec)
		}
	}
	n := len(t.rows) - len(kept)
	t.rows = kept
	return n, nil
}

// unassignTenant clears the tenant reference of every record of tenantID.
func (t *Table[T]) unassignTenant(tenantID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range t.rows {
		if ref := rec.TenantRef(); ref != nil && *ref == tenantID {
			rec.SetTenantRef(nil)
		}
	}
}

func equalValues(a, b any) bool {
	a, b = models.NormalizeValue(a), models.NormalizeValue(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if ua, ok := a.(uuid.UUID); ok {
		if sb, ok := b.(string); ok {
			return ua.String() == sb
		}
	}
	if ub, ok := b.(uuid.UUID); ok {
		if sa, ok := a.(string); ok {
			return ub.String() == sa
		}
	}
	return a == b
}

// compareValues orders nil first, then by the natural order of the value type.
func compareValues(a, b any) int {
	a, b = models.NormalizeValue(a), models.NormalizeValue(b)
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case uuid.UUID:
		if y, ok := b.(uuid.UUID); ok {
			return strings.Compare(x.String(), y.String())
		}
	case int:
		if y, ok := b.(int); ok {
			return x - y
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
