package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dbmanager"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/memstore"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/postgresql"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/scoped"
)

// DB_ is the per-request view of the database. The interfaces are separate so that callers can
// depend on the narrowest one.

type DirectoryManager interface {
	// Groups
	CreateGroup(ctx context.Context, g *models.TenantGroup) apperrors.Error
	GetGroup(ctx context.Context, groupID uuid.UUID) (*models.TenantGroup, apperrors.Error)
	GetGroupBySlug(ctx context.Context, slug string) (*models.TenantGroup, apperrors.Error)
	ListGroups(ctx context.Context) ([]*models.TenantGroup, apperrors.Error)
	ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantGroup, apperrors.Error)
	UpdateGroup(ctx context.Context, g *models.TenantGroup) apperrors.Error
	DeleteGroup(ctx context.Context, groupID uuid.UUID) apperrors.Error

	// Tenants
	CreateTenant(ctx context.Context, t *models.Tenant) apperrors.Error
	GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error)
	GetTenantBySlug(ctx context.Context, groupSlug, tenantSlug string) (*models.Tenant, apperrors.Error)
	ListTenants(ctx context.Context, groupID uuid.UUID) ([]*models.Tenant, apperrors.Error)
	ListTenantsForUser(ctx context.Context, groupID, userID uuid.UUID) ([]*models.Tenant, apperrors.Error)
	UpdateTenant(ctx context.Context, t *models.Tenant) apperrors.Error
	DeleteTenant(ctx context.Context, tenantID uuid.UUID) apperrors.Error
}

type RoleManager interface {
	CreateRoleAssignment(ctx context.Context, ra *models.RoleAssignment) apperrors.Error
	GetRoleAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.RoleAssignment, apperrors.Error)
	ListRoleAssignmentsForUser(ctx context.Context, userID uuid.UUID) ([]*models.RoleAssignment, apperrors.Error)
	ListRoleAssignmentsForGroup(ctx context.Context, groupID uuid.UUID) ([]*models.RoleAssignment, apperrors.Error)
	DeleteRoleAssignment(ctx context.Context, assignmentID uuid.UUID) apperrors.Error
}

type BackendManager interface {
	GetOrCreateBackend(ctx context.Context, name string) (*models.Backend, bool, apperrors.Error)
	ListBackends(ctx context.Context) ([]*models.Backend, apperrors.Error)
}

type ConnectionManager interface {
	AddScope(ctx context.Context, scope, value string) error
	DropScope(ctx context.Context, scope string) error
	// Close the connection to the database.
	Close(ctx context.Context)
}

type DB_ interface {
	DirectoryManager
	RoleManager
	BackendManager
	ConnectionManager
	BackendLinks() *scoped.Repository[*models.BackendLink]
	ContactLinks() *scoped.Repository[*models.ContactLink]
}

const (
	Scope_TenantId string = "tenancy.curr_tenantid"
)

var configuredScopes = []string{
	Scope_TenantId,
}

var pool dbmanager.ScopedDb

// Init opens the connection pool. It must be called before ConnCtx.
func Init(ctx context.Context, dbCfg config.DBConfig) error {
	pg, err := dbmanager.NewPostgresqlDb(ctx, dbCfg, configuredScopes)
	if err != nil {
		return err
	}
	pool = pg
	return nil
}

// ClosePool closes the connection pool opened by Init.
func ClosePool() {
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

var errNoPool = errors.New("database pool is not initialized")

func Conn(ctx context.Context) (dbmanager.ScopedConn, error) {
	if pool == nil {
		return nil, errNoPool
	}
	conn, err := pool.Conn(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("unable to get db connection")
		return nil, err
	}
	return conn, nil
}

type ctxDbKeyType string

const ctxDbKey ctxDbKeyType = "TenancyDb"

// ConnCtx takes a connection from the pool and stores the database view in the returned context.
func ConnCtx(ctx context.Context) (context.Context, error) {
	conn, err := Conn(ctx)
	if err != nil {
		return ctx, err
	}
	return WithDB(ctx, wrap(postgresql.NewTenancyDb(conn))), nil
}

// WithDB stores a database view in the context.
func WithDB(ctx context.Context, d DB_) context.Context {
	return context.WithValue(ctx, ctxDbKey, d)
}

// DB returns the database view stored in the context, or nil.
func DB(ctx context.Context) DB_ {
	if d, ok := ctx.Value(ctxDbKey).(DB_); ok {
		return d
	}
	return nil
}

// linkStores is implemented by the backends that keep tenant-owned records.
type linkStores[B scoped.Store[*models.BackendLink], C scoped.Store[*models.ContactLink]] interface {
	DirectoryManager
	RoleManager
	BackendManager
	ConnectionManager
	BackendLinks() B
	ContactLinks() C
}

type tenancyDb struct {
	DirectoryManager
	RoleManager
	BackendManager
	ConnectionManager
	backendLinks *scoped.Repository[*models.BackendLink]
	contactLinks *scoped.Repository[*models.ContactLink]
}

func wrapStores[B scoped.Store[*models.BackendLink], C scoped.Store[*models.ContactLink]](s linkStores[B, C]) DB_ {
	return &tenancyDb{
		DirectoryManager:  s,
		RoleManager:       s,
		BackendManager:    s,
		ConnectionManager: s,
		backendLinks:      scoped.New[*models.BackendLink](s.BackendLinks()),
		contactLinks:      scoped.New[*models.ContactLink](s.ContactLinks()),
	}
}

func wrap(h *postgresql.TenancyDb) DB_ {
	return wrapStores[*postgresql.TenantOwnedTable[*models.BackendLink], *postgresql.TenantOwnedTable[*models.ContactLink]](h)
}

// NewMemoryDB serves a database view from an in-memory store.
func NewMemoryDB(m *memstore.DB) DB_ {
	return wrapStores[*memstore.Table[*models.BackendLink], *memstore.Table[*models.ContactLink]](m)
}

// NewDB serves a database view over an existing PostgreSQL store.
func NewDB(h *postgresql.TenancyDb) DB_ {
	return wrap(h)
}

func (d *tenancyDb) BackendLinks() *scoped.Repository[*models.BackendLink] {
	return d.backendLinks
}

func (d *tenancyDb) ContactLinks() *scoped.Repository[*models.ContactLink] {
	return d.contactLinks
}
