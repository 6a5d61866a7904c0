// Package scoped provides repositories for tenant-owned records. Every repository has an
// administrative surface spanning all tenants and a tenant surface that can only be reached by
// naming a tenant first.
package scoped

import (
	"github.com/google/uuid"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
)

type Repository[T models.Row] struct {
	store Store[T]
}

func New[T models.Row](store Store[T]) *Repository[T] {
	return &Repository[T]{store: store}
}

// AllTenants returns the administrative surface. It applies no tenant filtering.
func (r *Repository[T]) AllTenants() Unscoped[T] {
	return Unscoped[T]{ops: ops[T]{store: r.store, mode: modeUnscoped}}
}

// Objects returns the tenant surface. Records are reachable only through ByTenant.
func (r *Repository[T]) Objects() Manager[T] {
	return Manager[T]{store: r.store}
}

// Manager is the entry point of the tenant surface.
type Manager[T models.Row] struct {
	store Store[T]
}

// ByTenant anchors every following operation to tenantID.
func (m Manager[T]) ByTenant(tenantID uuid.UUID) Scoped[T] {
	return Scoped[T]{ops: ops[T]{store: m.store, mode: modeScoped, tenant: tenantID}}
}

// Scoped filters reads by its tenant and stamps its tenant on writes. The zero value is not
// anchored and rejects every operation.
type Scoped[T models.Row] struct {
	ops[T]
}

// Tenant returns the anchoring tenant.
func (s Scoped[T]) Tenant() uuid.UUID {
	return s.tenant
}

// Unscoped operates across all tenants.
type Unscoped[T models.Row] struct {
	ops[T]
}
