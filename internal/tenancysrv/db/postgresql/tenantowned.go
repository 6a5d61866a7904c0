package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	uuidv7 "github.com/tansive/tansive-tenancy/internal/common/uuid"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/scoped"
)

// TableSpec names the table of a tenant-owned record type.
type TableSpec[T models.Row] struct {
	Name string
	Key  string
	New  func() T
}

// TenantOwnedTable stores one tenant-owned record type. Its key column holds a uuid.
type TenantOwnedTable[T models.Row] struct {
	conn    *sql.Conn
	spec    TableSpec[T]
	columns []string
}

var _ scoped.Store[*models.ContactLink] = (*TenantOwnedTable[*models.ContactLink])(nil)

func NewTenantOwnedTable[T models.Row](conn *sql.Conn, spec TableSpec[T]) *TenantOwnedTable[T] {
	return &TenantOwnedTable[T]{
		conn:    conn,
		spec:    spec,
		columns: spec.New().Columns(),
	}
}

func (t *TenantOwnedTable[T]) KeyColumn() string {
	return t.spec.Key
}

func (t *TenantOwnedTable[T]) checkColumn(col string) apperrors.Error {
	if !slices.Contains(t.columns, col) {
		return dberror.ErrInvalidInput.Msg(fmt.Sprintf("unknown column %q for %s", col, t.spec.Name))
	}
	return nil
}

// where renders the conditions of q starting at placeholder $start.
func (t *TenantOwnedTable[T]) where(q scoped.Query, start int) (string, []any, apperrors.Error) {
	if len(q.Where) == 0 {
		return "", nil, nil
	}
	var clauses []string
	var args []any
	for _, c := range q.Where {
		if err := t.checkColumn(c.Column); err != nil {
			return "", nil, err
		}
		v := models.NormalizeValue(c.Value)
		if v == nil {
			clauses = append(clauses, c.Column+" IS NULL")
			continue
		}
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf("%s = $%d", c.Column, start+len(args)-1))
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (t *TenantOwnedTable[T]) tail(q scoped.Query) (string, apperrors.Error) {
	var s string
	if len(q.OrderBy) > 0 {
		var cols []string
		for _, col := range q.OrderBy {
			dir := ""
			if strings.HasPrefix(col, "-") {
				col, dir = col[1:], " DESC"
			}
			if err := t.checkColumn(col); err != nil {
				return "", err
			}
			cols = append(cols, col+dir)
		}
		s += " ORDER BY " + strings.Join(cols, ", ")
	}
	if q.Limit > 0 {
		s += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	return s, nil
}

func (t *TenantOwnedTable[T]) Find(ctx context.Context, q scoped.Query) ([]T, apperrors.Error) {
	where, args, err := t.where(q, 1)
	if err != nil {
		return nil, err
	}
	tail, err := t.tail(q)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + strings.Join(t.columns, ", ") + " FROM " + t.spec.Name + where + tail
	rows, qerr := t.conn.QueryContext(ctx, query, args...)
	if qerr != nil {
		log.Ctx(ctx).Error().Err(qerr).Str("table", t.spec.Name).Msg("failed to query records")
		return nil, dberror.ErrDatabase.Err(qerr)
	}
	defer rows.Close()
	var recs []T
	for rows.Next() {
		rec := t.spec.New()
		if err := rows.Scan(rec.ScanDest()...); err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return recs, nil
}

func (t *TenantOwnedTable[T]) Count(ctx context.Context, q scoped.Query) (int, apperrors.Error) {
	where, args, err := t.where(q, 1)
	if err != nil {
		return 0, err
	}
	var n int
	if qerr := t.conn.QueryRowContext(ctx, "SELECT count(*) FROM "+t.spec.Name+where, args...).Scan(&n); qerr != nil {
		log.Ctx(ctx).Error().Err(qerr).Str("table", t.spec.Name).Msg("failed to count records")
		return 0, dberror.ErrDatabase.Err(qerr)
	}
	return n, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (t *TenantOwnedTable[T]) insertStmt() string {
	placeholders := make([]string, len(t.columns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return "INSERT INTO " + t.spec.Name + " (" + strings.Join(t.columns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
}

func (t *TenantOwnedTable[T]) insert(ctx context.Context, ex execer, rec T) apperrors.Error {
	keyIdx := slices.Index(t.columns, t.spec.Key)
	if keyIdx >= 0 && models.NormalizeValue(rec.Values()[keyIdx]) == uuid.Nil {
		if err := rec.SetColumn(t.spec.Key, uuidv7.New()); err != nil {
			return dberror.ErrInvalidInput.Err(err)
		}
	}
	if _, err := ex.ExecContext(ctx, t.insertStmt(), rec.Values()...); err != nil {
		return t.writeError(ctx, err)
	}
	return nil
}

func (t *TenantOwnedTable[T]) writeError(ctx context.Context, err error) apperrors.Error {
	if pgErr, ok := asPgError(err); ok {
		switch pgErr.Code {
		case pgUniqueViolation:
			return dberror.ErrAlreadyExists.Msg(t.spec.Name + ": " + pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return dberror.ErrInvalidTenant.Msg(t.spec.Name + ": referenced record does not exist")
		case pgCheckViolation:
			return dberror.ErrInvalidInput.Msg(t.spec.Name + ": " + pgErr.ConstraintName)
		}
	}
	log.Ctx(ctx).Error().Err(err).Str("table", t.spec.Name).Msg("failed to write records")
	return dberror.ErrDatabase.Err(err)
}

func (t *TenantOwnedTable[T]) Insert(ctx context.Context, rec T) apperrors.Error {
	return t.insert(ctx, t.conn, rec)
}

// InsertMany inserts all records in a single transaction.
func (t *TenantOwnedTable[T]) InsertMany(ctx context.Context, recs []T) apperrors.Error {
	tx, err := t.conn.BeginTx(ctx, nil)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to begin transaction")
		return dberror.ErrDatabase.Err(err)
	}
	for _, rec := range recs {
		if aerr := t.insert(ctx, tx, rec); aerr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Ctx(ctx).Error().Err(rbErr).Msg("failed to roll back bulk insert")
			}
			return aerr
		}
	}
	if err := tx.Commit(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to commit bulk insert")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func (t *TenantOwnedTable[T]) Update(ctx context.Context, q scoped.Query, patch scoped.Patch) (int, apperrors.Error) {
	if len(patch) == 0 {
		return 0, dberror.ErrInvalidInput.Msg("empty update")
	}
	cols := make([]string, 0, len(patch))
	for col := range patch {
		if err := t.checkColumn(col); err != nil {
			return 0, err
		}
		if col == t.spec.Key {
			return 0, dberror.ErrInvalidInput.Msg("key column cannot be updated")
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	var sets []string
	var args []any
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, models.NormalizeValue(patch[col]))
	}
	where, wargs, err := t.where(q, len(args)+1)
	if err != nil {
		return 0, err
	}
	args = append(args, wargs...)
	result, xerr := t.conn.ExecContext(ctx, "UPDATE "+t.spec.Name+" SET "+strings.Join(sets, ", ")+where, args...)
	if xerr != nil {
		return 0, t.writeError(ctx, xerr)
	}
	return rowsAffected(result)
}

func (t *TenantOwnedTable[T]) Delete(ctx context.Context, q scoped.Query) (int, apperrors.Error) {
	where, args, err := t.where(q, 1)
	if err != nil {
		return 0, err
	}
	result, xerr := t.conn.ExecContext(ctx, "DELETE FROM "+t.spec.Name+where, args...)
	if xerr != nil {
		log.Ctx(ctx).Error().Err(xerr).Str("table", t.spec.Name).Msg("failed to delete records")
		return 0, dberror.ErrDatabase.Err(xerr)
	}
	return rowsAffected(result)
}

func rowsAffected(result sql.Result) (int, apperrors.Error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, dberror.ErrDatabase.Err(err)
	}
	return int(n), nil
}
