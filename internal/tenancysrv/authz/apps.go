package authz

import (
	"slices"

	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

// AppRegistry maps application labels to the entity types they manage.
type AppRegistry struct {
	apps map[string][]types.EntityType
}

func NewAppRegistry(apps []config.AppConfig) *AppRegistry {
	r := &AppRegistry{apps: make(map[string][]types.EntityType)}
	for _, app := range apps {
		r.Register(app.Label, toEntityTypes(app.EntityTypes)...)
	}
	return r
}

func toEntityTypes(names []string) []types.EntityType {
	out := make([]types.EntityType, 0, len(names))
	for _, n := range names {
		out = append(out, types.EntityType(n))
	}
	return out
}

// Register adds entity types to an application, creating it if needed.
func (r *AppRegistry) Register(label string, entities ...types.EntityType) {
	known := r.apps[label]
	for _, e := range entities {
		if !slices.Contains(known, e) {
			known = append(known, e)
		}
	}
	r.apps[label] = known
}

// Related reports whether the application manages any tenancy entity.
func (r *AppRegistry) Related(label string) bool {
	if r == nil {
		return false
	}
	return slices.ContainsFunc(r.apps[label], func(e types.EntityType) bool {
		return slices.Contains(types.TenancyEntityTypes, e)
	})
}
