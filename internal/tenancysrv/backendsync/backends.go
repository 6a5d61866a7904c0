// Package backendsync links external message backends to tenants.
package backendsync

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/metrics"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/scoped"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

type Store interface {
	GetOrCreateBackend(ctx context.Context, name string) (*models.Backend, bool, apperrors.Error)
	BackendLinks() *scoped.Repository[*models.BackendLink]
}

// SyncBackends creates a link for every installed backend that has none yet and returns the
// names of the backends it linked. New links belong to no tenant.
func SyncBackends(ctx context.Context, store Store, installed []string) ([]string, apperrors.Error) {
	links, err := store.BackendLinks().AllTenants().All(ctx)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(links))
	for _, l := range links {
		known[l.BackendName] = true
	}

	var created []string
	for _, name := range installed {
		if known[name] {
			continue
		}
		known[name] = true
		if _, _, err := store.GetOrCreateBackend(ctx, name); err != nil {
			return created, err
		}
		link := &models.BackendLink{BackendName: name}
		if err := store.BackendLinks().AllTenants().Create(ctx, link); err != nil {
			return created, err
		}
		metrics.IncBackendLinkCreated()
		log.Ctx(ctx).Info().Str("backend", name).Str("link_id", link.LinkID.String()).Msg("added multitenant backend link")
		created = append(created, name)
	}
	return created, nil
}

// AddBackend assigns the backend to tenantID, creating the backend and its link if needed.
// A link held by another tenant moves to tenantID.
func AddBackend(ctx context.Context, store Store, tenantID uuid.UUID, name string) apperrors.Error {
	if tenantID == uuid.Nil {
		return dberror.ErrInvalidTenant
	}
	if _, _, err := store.GetOrCreateBackend(ctx, name); err != nil {
		return err
	}
	links := store.BackendLinks().AllTenants()
	link, _, err := links.GetOrCreate(ctx, scoped.Where("backend_name", name), func() *models.BackendLink {
		return &models.BackendLink{}
	})
	if err != nil {
		return err
	}
	if ref := link.TenantRef(); ref != nil && *ref == tenantID {
		return nil
	}
	_, err = links.Update(ctx, scoped.Where("link_id", link.LinkID), scoped.Patch{models.TenantColumn: tenantID})
	return err
}

// Backends returns the names of the backends linked to tenantID, in name order.
func Backends(ctx context.Context, store Store, tenantID uuid.UUID) ([]string, apperrors.Error) {
	links, err := store.BackendLinks().Objects().ByTenant(tenantID).Filter(ctx, scoped.Query{}.Order("backend_name"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.BackendName)
	}
	return names, nil
}

// PrimaryBackend returns the tenant's external backend, ignoring message tester backends.
func PrimaryBackend(ctx context.Context, store Store, tenantID uuid.UUID) (string, bool, apperrors.Error) {
	names, err := Backends(ctx, store, tenantID)
	if err != nil {
		return "", false, err
	}
	i := slices.IndexFunc(names, func(n string) bool {
		return !strings.HasPrefix(n, types.MessageTesterBackendPrefix)
	})
	if i < 0 {
		return "", false, nil
	}
	return names[i], true, nil
}
