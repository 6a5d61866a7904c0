package scoped

import (
	"context"

	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
)

// Cond is an equality condition on a column. A nil Value matches NULL.
type Cond struct {
	Column string
	Value  any
}

// Query selects records matching all of its conditions. OrderBy columns prefixed with "-" sort
// descending. A Limit of 0 means no limit.
type Query struct {
	Where   []Cond
	OrderBy []string
	Limit   int
}

// Where starts a query with a single condition.
func Where(column string, value any) Query {
	return Query{Where: []Cond{{Column: column, Value: value}}}
}

// And returns a copy of q with one more condition.
func (q Query) And(column string, value any) Query {
	r := q.clone()
	r.Where = append(r.Where, Cond{Column: column, Value: value})
	return r
}

// Order returns a copy of q sorted by the given columns.
func (q Query) Order(columns ...string) Query {
	r := q.clone()
	r.OrderBy = append([]string(nil), columns...)
	return r
}

// Take returns a copy of q limited to n records.
func (q Query) Take(n int) Query {
	r := q.clone()
	r.Limit = n
	return r
}

// Lookup returns the value q requires for column, if any.
func (q Query) Lookup(column string) (any, bool) {
	for _, c := range q.Where {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

func (q Query) clone() Query {
	return Query{
		Where:   append([]Cond(nil), q.Where...),
		OrderBy: append([]string(nil), q.OrderBy...),
		Limit:   q.Limit,
	}
}

// Patch maps column names to their new values.
type Patch map[string]any

// Store is the storage engine behind a repository. InsertMany stores all records or none.
type Store[T models.Row] interface {
	KeyColumn() string
	Find(ctx context.Context, q Query) ([]T, apperrors.Error)
	Count(ctx context.Context, q Query) (int, apperrors.Error)
	Insert(ctx context.Context, rec T) apperrors.Error
	InsertMany(ctx context.Context, recs []T) apperrors.Error
	Update(ctx context.Context, q Query, patch Patch) (int, apperrors.Error)
	Delete(ctx context.Context, q Query) (int, apperrors.Error)
}
