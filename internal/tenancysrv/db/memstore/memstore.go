// Package memstore keeps the tenancy directory, role assignments and tenant-owned records in
// memory. It serves the same methods as the PostgreSQL stores.
package memstore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	uuidv7 "github.com/tansive/tansive-tenancy/internal/common/uuid"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/pkg/types"
	"golang.org/x/text/cases"
)

type DB struct {
	mu       sync.RWMutex
	groups   map[uuid.UUID]models.TenantGroup
	tenants  map[uuid.UUID]models.Tenant
	roles    map[uuid.UUID]models.RoleAssignment
	backends map[string]models.Backend
	scopes   map[string]string

	backendLinks *Table[*models.BackendLink]
	contactLinks *Table[*models.ContactLink]

	roleReads atomic.Int64
}

func New() *DB {
	d := &DB{
		groups:   make(map[uuid.UUID]models.TenantGroup),
		tenants:  make(map[uuid.UUID]models.Tenant),
		roles:    make(map[uuid.UUID]models.RoleAssignment),
		backends: make(map[string]models.Backend),
		scopes:   make(map[string]string),
	}
	d.backendLinks = NewTable("backend_links", "link_id",
		func() *models.BackendLink { return &models.BackendLink{} }, []string{"backend_name"})
	d.contactLinks = NewTable("contact_links", "link_id",
		func() *models.ContactLink { return &models.ContactLink{} }, []string{"contact_id"})
	d.backendLinks.tenantExists = d.tenantExists
	d.contactLinks.tenantExists = d.tenantExists
	return d
}

func (d *DB) tenantExists(id uuid.UUID) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.tenants[id]
	return ok
}

func (d *DB) BackendLinks() *Table[*models.BackendLink] { return d.backendLinks }
func (d *DB) ContactLinks() *Table[*models.ContactLink] { return d.contactLinks }

// RoleReads returns how many times role assignments were read for a user.
func (d *DB) RoleReads() int64 {
	return d.roleReads.Load()
}

// sameSlug compares slugs case-insensitively. Casers are stateful, so each call folds with its own.
func (d *DB) sameSlug(a, b string) bool {
	return cases.Fold().String(a) == cases.Fold().String(b)
}

func (d *DB) withGroup(t models.Tenant) *models.Tenant {
	if g, ok := d.groups[t.GroupID]; ok {
		t.GroupName = g.Name
		t.GroupSlug = g.Slug
	}
	return &t
}

func (d *DB) CreateGroup(ctx context.Context, g *models.TenantGroup) apperrors.Error {
	if err := models.Validate(g); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if g.GroupID == uuid.Nil {
		g.GroupID = uuidv7.New()
	}
	if err := d.checkGroup(g); err != nil {
		return err
	}
	if _, ok := d.groups[g.GroupID]; ok {
		return dberror.ErrAlreadyExists.Msg("group already exists")
	}
	g.CreatedAt = time.Now()
	g.UpdatedAt = g.CreatedAt
	d.groups[g.GroupID] = *g
	return nil
}

func (d *DB) checkGroup(g *models.TenantGroup) apperrors.Error {
	for id, other := range d.groups {
		if id == g.GroupID {
			continue
		}
		if other.Name == g.Name {
			return dberror.ErrAlreadyExists.Msg("group name already exists")
		}
		if d.sameSlug(other.Slug, g.Slug) {
			return dberror.ErrAlreadyExists.Msg("group slug already exists")
		}
	}
	return nil
}

func (d *DB) GetGroup(ctx context.Context, groupID uuid.UUID) (*models.TenantGroup, apperrors.Error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	g, ok := d.groups[groupID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("group not found")
	}
	return &g, nil
}

func (d *DB) GetGroupBySlug(ctx context.Context, slug string) (*models.TenantGroup, apperrors.Error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, g := range d.groups {
		if d.sameSlug(g.Slug, slug) {
			return &g, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("group not found")
}

func (d *DB) ListGroups(ctx context.Context) ([]*models.TenantGroup, apperrors.Error) {
	return d.listGroups(func(models.TenantGroup) bool { return true }), nil
}

func (d *DB) ListGroupsForUser(ctx context.Context, userID uuid.UUID) ([]*models.TenantGroup, apperrors.Error) {
	d.mu.RLock()
	ids := make(map[uuid.UUID]bool)
	for _, ra := range d.roles {
		if ra.UserID == userID {
			ids[ra.GroupID] = true
		}
	}
	d.mu.RUnlock()
	return d.listGroups(func(g models.TenantGroup) bool { return ids[g.GroupID] }), nil
}

func (d *DB) listGroups(keep func(models.TenantGroup) bool) []*models.TenantGroup {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*models.TenantGroup
	for _, g := range d.groups {
		if keep(g) {
			g := g
			out = append(out, &g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *DB) UpdateGroup(ctx context.Context, g *models.TenantGroup) apperrors.Error {
	if err := models.Validate(g); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	old, ok := d.groups[g.GroupID]
	if !ok {
		return dberror.ErrNotFound.Msg("group not found")
	}
	if err := d.checkGroup(g); err != nil {
		return err
	}
	g.CreatedAt = old.CreatedAt
	g.UpdatedAt = time.Now()
	d.groups[g.GroupID] = *g
	return nil
}

// DeleteGroup removes a group together with its tenants and role assignments.
func (d *DB) DeleteGroup(ctx context.Context, groupID uuid.UUID) apperrors.Error {
	d.mu.Lock()
	if _, ok := d.groups[groupID]; !ok {
		d.mu.Unlock()
		return dberror.ErrNotFound.Msg("group not found")
	}
	delete(d.groups, groupID)
	var tenants []uuid.UUID
	for id, t := range d.tenants {
		if t.GroupID == groupID {
			tenants = append(tenants, id)
		}
	}
	for id, ra := range d.roles {
		if ra.GroupID == groupID {
			delete(d.roles, id)
		}
	}
	d.mu.Unlock()
	for _, id := range tenants {
		if err := d.DeleteTenant(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) checkTenant(t *models.Tenant) apperrors.Error {
	if _, ok := d.groups[t.GroupID]; !ok {
		return dberror.ErrInvalidGroup
	}
	for id, other := range d.tenants {
		if id == t.TenantID || other.GroupID != t.GroupID {
			continue
		}
		if other.Name == t.Name {
			return dberror.ErrAlreadyExists.Msg("tenant name already exists in group")
		}
		if d.sameSlug(other.Slug, t.Slug) {
			return dberror.ErrAlreadyExists.Msg("tenant slug already exists in group")
		}
	}
	return nil
}

func (d *DB) CreateTenant(ctx context.Context, t *models.Tenant) apperrors.Error {
	if err := models.Validate(t); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if t.TenantID == uuid.Nil {
		t.TenantID = uuidv7.New()
	}
	if _, ok := d.tenants[t.TenantID]; ok {
		return dberror.ErrAlreadyExists.Msg("tenant already exists")
	}
	if err := d.checkTenant(t); err != nil {
		return err
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	d.tenants[t.TenantID] = *t
	*t = *d.withGroup(*t)
	return nil
}

func (d *DB) GetTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, apperrors.Error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tenants[tenantID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("tenant not found")
	}
	return d.withGroup(t), nil
}

func (d *DB) GetTenantBySlug(ctx context.Context, groupSlug, tenantSlug string) (*models.Tenant, apperrors.Error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.tenants {
		g := d.groups[t.GroupID]
		if d.sameSlug(g.Slug, groupSlug) && d.sameSlug(t.Slug, tenantSlug) {
			return d.withGroup(t), nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("tenant not found")
}

func (d *DB) ListTenants(ctx context.Context, groupID uuid.UUID) ([]*models.Tenant, apperrors.Error) {
	return d.listTenants(func(t models.Tenant) bool { return t.GroupID == groupID }), nil
}

func (d *DB) ListTenantsForUser(ctx context.Context, groupID, userID uuid.UUID) ([]*models.Tenant, apperrors.Error) {
	d.mu.RLock()
	ids := make(map[uuid.UUID]bool)
	for _, ra := range d.roles {
		if ra.UserID == userID && ra.Role == types.RoleTenantManager && ra.TenantID != nil {
			ids[*ra.TenantID] = true
		}
	}
	d.mu.RUnlock()
	return d.listTenants(func(t models.Tenant) bool { return t.GroupID == groupID && ids[t.TenantID] }), nil
}

func (d *DB) listTenants(keep func(models.Tenant) bool) []*models.Tenant {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*models.Tenant
	for _, t := range d.tenants {
		if keep(t) {
			out = append(out, d.withGroup(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (d *DB) UpdateTenant(ctx context.Context, t *models.Tenant) apperrors.Error {
	if err := models.Validate(t); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	old, ok := d.tenants[t.TenantID]
	if !ok {
		return dberror.ErrNotFound.Msg("tenant not found")
	}
	t.GroupID = old.GroupID
	if err := d.checkTenant(t); err != nil {
		return err
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = time.Now()
	d.tenants[t.TenantID] = *t
	return nil
}

// DeleteTenant removes a tenant and its role assignments and unassigns its tenant-owned records.
func (d *DB) DeleteTenant(ctx context.Context, tenantID uuid.UUID) apperrors.Error {
	d.mu.Lock()
	if _, ok := d.tenants[tenantID]; !ok {
		d.mu.Unlock()
		return dberror.ErrNotFound.Msg("tenant not found")
	}
	delete(d.tenants, tenantID)
	for id, ra := range d.roles {
		if ra.TenantID != nil && *ra.TenantID == tenantID {
			delete(d.roles, id)
		}
	}
	d.mu.Unlock()
	d.backendLinks.unassignTenant(tenantID)
	d.contactLinks.unassignTenant(tenantID)
	return nil
}

func (d *DB) CreateRoleAssignment(ctx context.Context, ra *models.RoleAssignment) apperrors.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var tenant *models.Tenant
	if ra.TenantID != nil {
		if t, ok := d.tenants[*ra.TenantID]; ok {
			tenant = &t
		}
	}
	if err := ra.Validate(tenant); err != nil {
		return err
	}
	g, ok := d.groups[ra.GroupID]
	if !ok {
		return dberror.ErrInvalidGroup
	}
	if ra.AssignmentID == uuid.Nil {
		ra.AssignmentID = uuidv7.New()
	}
	ra.CreatedAt = time.Now()
	ra.GroupName = g.Name
	d.roles[ra.AssignmentID] = *ra
	return nil
}

func (d *DB) GetRoleAssignment(ctx context.Context, assignmentID uuid.UUID) (*models.RoleAssignment, apperrors.Error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ra, ok := d.roles[assignmentID]
	if !ok {
		return nil, dberror.ErrNotFound.Msg("role assignment not found")
	}
	return &ra, nil
}

func (d *DB) ListRoleAssignmentsForUser(ctx context.Context, userID uuid.UUID) ([]*models.RoleAssignment, apperrors.Error) {
	d.roleReads.Add(1)
	return d.listRoles(func(ra models.RoleAssignment) bool { return ra.UserID == userID }), nil
}

func (d *DB) ListRoleAssignmentsForGroup(ctx context.Context, groupID uuid.UUID) ([]*models.RoleAssignment, apperrors.Error) {
	return d.listRoles(func(ra models.RoleAssignment) bool { return ra.GroupID == groupID }), nil
}

func (d *DB) listRoles(keep func(models.RoleAssignment) bool) []*models.RoleAssignment {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*models.RoleAssignment
	for _, ra := range d.roles {
		if keep(ra) {
			ra := ra
			out = append(out, &ra)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.GroupID != b.GroupID {
			return a.GroupID.String() < b.GroupID.String()
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		if a.TenantID == nil || b.TenantID == nil {
			return a.TenantID == nil && b.TenantID != nil
		}
		return a.TenantID.String() < b.TenantID.String()
	})
	return out
}

func (d *DB) DeleteRoleAssignment(ctx context.Context, assignmentID uuid.UUID) apperrors.Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.roles[assignmentID]; !ok {
		return dberror.ErrNotFound.Msg("role assignment not found")
	}
	delete(d.roles, assignmentID)
	return nil
}

func (d *DB) GetOrCreateBackend(ctx context.Context, name string) (*models.Backend, bool, apperrors.Error) {
	b := models.Backend{Name: name}
	if err := models.Validate(&b); err != nil {
		return nil, false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.backends[name]; ok {
		return &existing, false, nil
	}
	b.BackendID = uuidv7.New()
	d.backends[name] = b
	return &b, true, nil
}

func (d *DB) ListBackends(ctx context.Context) ([]*models.Backend, apperrors.Error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*models.Backend
	for _, b := range d.backends {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *DB) AddScope(ctx context.Context, scope, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.scopes[scope] = value
	return nil
}

func (d *DB) DropScope(ctx context.Context, scope string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.scopes, scope)
	return nil
}

// Scope returns the value of a session scope set with AddScope.
func (d *DB) Scope(scope string) string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scopes[scope]
}

func (d *DB) Close(ctx context.Context) {}
