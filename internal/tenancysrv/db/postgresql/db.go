// Package postgresql implements the tenancy stores on PostgreSQL through database/sql and the pgx driver.
package postgresql

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dbmanager"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
)

// TenancyDb serves every store over a single connection.
type TenancyDb struct {
	conn         *sql.Conn
	scoped       dbmanager.ScopedConn
	backendLinks *TenantOwnedTable[*models.BackendLink]
	contactLinks *TenantOwnedTable[*models.ContactLink]
}

// NewTenancyDb serves the stores over a pooled connection. Close returns it to the pool.
func NewTenancyDb(c dbmanager.ScopedConn) *TenancyDb {
	h := NewTenancyDbFromConn(c.Conn())
	h.scoped = c
	return h
}

// NewTenancyDbFromConn serves the stores over a plain connection. Close closes it.
func NewTenancyDbFromConn(conn *sql.Conn) *TenancyDb {
	return &TenancyDb{
		conn: conn,
		backendLinks: NewTenantOwnedTable(conn, TableSpec[*models.BackendLink]{
			Name: "backend_links",
			Key:  "link_id",
			New:  func() *models.BackendLink { return &models.BackendLink{} },
		}),
		contactLinks: NewTenantOwnedTable(conn, TableSpec[*models.ContactLink]{
			Name: "contact_links",
			Key:  "link_id",
			New:  func() *models.ContactLink { return &models.ContactLink{} },
		}),
	}
}

func (h *TenancyDb) BackendLinks() *TenantOwnedTable[*models.BackendLink] {
	return h.backendLinks
}

func (h *TenancyDb) ContactLinks() *TenantOwnedTable[*models.ContactLink] {
	return h.contactLinks
}

// AddScope sets a session scope on pooled connections. It is a no-op on plain connections.
func (h *TenancyDb) AddScope(ctx context.Context, scope, value string) error {
	if h.scoped == nil {
		return nil
	}
	return h.scoped.AddScope(ctx, scope, value)
}

func (h *TenancyDb) DropScope(ctx context.Context, scope string) error {
	if h.scoped == nil {
		return nil
	}
	return h.scoped.DropScope(ctx, scope)
}

func (h *TenancyDb) Close(ctx context.Context) {
	if h.scoped != nil {
		h.scoped.Close(ctx)
		return
	}
	if h.conn != nil {
		h.conn.Close()
	}
}

func asPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)
