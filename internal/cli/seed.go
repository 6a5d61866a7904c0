package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tansive/tansive-tenancy/internal/common/apperrors"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/backendsync"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/dberror"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db/models"
	"github.com/tansive/tansive-tenancy/pkg/types"
	"sigs.k8s.io/yaml"
)

// Fixtures describe a directory to seed. Entries that already exist are left untouched.
type Fixtures struct {
	Groups []GroupFixture `json:"groups" validate:"dive"`
	Roles  []RoleFixture  `json:"roles" validate:"dive"`
}

type GroupFixture struct {
	Name        string          `json:"name" validate:"required,max=64"`
	Slug        string          `json:"slug" validate:"required,max=64,slug"`
	Description string          `json:"description"`
	Tenants     []TenantFixture `json:"tenants" validate:"dive"`
}

type TenantFixture struct {
	Name        string   `json:"name" validate:"required,max=64"`
	Slug        string   `json:"slug" validate:"required,max=64,slug"`
	Description string   `json:"description"`
	Backends    []string `json:"backends"`
}

type RoleFixture struct {
	User   uuid.UUID `json:"user" validate:"required"`
	Role   string    `json:"role" validate:"oneof=group_manager tenant_manager"`
	Group  string    `json:"group" validate:"required"`
	Tenant string    `json:"tenant"`
}

type SeedResult struct {
	Groups   int `json:"groups"`
	Tenants  int `json:"tenants"`
	Roles    int `json:"roles"`
	Backends int `json:"backends"`
}

// LoadFixtures parses and validates a YAML fixture file.
func LoadFixtures(data []byte) (*Fixtures, error) {
	fx := &Fixtures{}
	if err := yaml.UnmarshalStrict(data, fx); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %v", err)
	}
	if err := models.Validate(fx); err != nil {
		return nil, err
	}
	return fx, nil
}

// SeedStore is the part of the database view seeding writes through.
type SeedStore interface {
	backendsync.Store
	GetGroupBySlug(ctx context.Context, slug string) (*models.TenantGroup, apperrors.Error)
	CreateGroup(ctx context.Context, g *models.TenantGroup) apperrors.Error
	GetTenantBySlug(ctx context.Context, groupSlug, tenantSlug string) (*models.Tenant, apperrors.Error)
	CreateTenant(ctx context.Context, t *models.Tenant) apperrors.Error
	ListRoleAssignmentsForUser(ctx context.Context, userID uuid.UUID) ([]*models.RoleAssignment, apperrors.Error)
	CreateRoleAssignment(ctx context.Context, ra *models.RoleAssignment) apperrors.Error
}

// Seed creates the groups, tenants, backend links and role assignments of fx that do not exist yet.
func Seed(ctx context.Context, store SeedStore, fx *Fixtures) (SeedResult, error) {
	var res SeedResult
	for _, gf := range fx.Groups {
		g, created, err := seedGroup(ctx, store, gf)
		if err != nil {
			return res, fmt.Errorf("group %s: %w", gf.Slug, err)
		}
		if created {
			res.Groups++
		}
		for _, tf := range gf.Tenants {
			t, created, err := seedTenant(ctx, store, g, tf)
			if err != nil {
				return res, fmt.Errorf("tenant %s/%s: %w", gf.Slug, tf.Slug, err)
			}
			if created {
				res.Tenants++
			}
			for _, name := range tf.Backends {
				if err := backendsync.AddBackend(ctx, store, t.TenantID, name); err != nil {
					return res, fmt.Errorf("backend %s: %w", name, err)
				}
				res.Backends++
			}
		}
	}
	for _, rf := range fx.Roles {
		created, err := seedRole(ctx, store, rf)
		if err != nil {
			return res, fmt.Errorf("role %s for %s: %w", rf.Role, rf.User, err)
		}
		if created {
			res.Roles++
		}
	}
	log.Ctx(ctx).Info().
		Int("groups", res.Groups).
		Int("tenants", res.Tenants).
		Int("roles", res.Roles).
		Int("backends", res.Backends).
		Msg("seeded directory")
	return res, nil
}

func seedGroup(ctx context.Context, store SeedStore, gf GroupFixture) (*models.TenantGroup, bool, error) {
	g, err := store.GetGroupBySlug(ctx, gf.Slug)
	if err == nil {
		return g, false, nil
	}
	if !errors.Is(err, dberror.ErrNotFound) {
		return nil, false, err
	}
	g = &models.TenantGroup{Name: gf.Name, Slug: gf.Slug, Description: gf.Description}
	if err := store.CreateGroup(ctx, g); err != nil {
		return nil, false, err
	}
	return g, true, nil
}

func seedTenant(ctx context.Context, store SeedStore, g *models.TenantGroup, tf TenantFixture) (*models.Tenant, bool, error) {
	t, err := store.GetTenantBySlug(ctx, g.Slug, tf.Slug)
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, dberror.ErrNotFound) {
		return nil, false, err
	}
	t = &models.Tenant{GroupID: g.GroupID, Name: tf.Name, Slug: tf.Slug, Description: tf.Description}
	if err := store.CreateTenant(ctx, t); err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func seedRole(ctx context.Context, store SeedStore, rf RoleFixture) (bool, error) {
	g, err := store.GetGroupBySlug(ctx, rf.Group)
	if err != nil {
		return false, err
	}
	ra := &models.RoleAssignment{UserID: rf.User, GroupID: g.GroupID, Role: types.RoleFromName(rf.Role)}
	if rf.Tenant != "" {
		t, err := store.GetTenantBySlug(ctx, rf.Group, rf.Tenant)
		if err != nil {
			return false, err
		}
		ra.TenantID = &t.TenantID
	}
	existing, aerr := store.ListRoleAssignmentsForUser(ctx, rf.User)
	if aerr != nil {
		return false, aerr
	}
	for _, e := range existing {
		if e.GroupID == ra.GroupID && e.Role == ra.Role && sameTenant(e.TenantID, ra.TenantID) {
			return false, nil
		}
	}
	if err := store.CreateRoleAssignment(ctx, ra); err != nil {
		return false, err
	}
	return true, nil
}

func sameTenant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed -f FILENAME",
		Short: "Seed groups, tenants and role assignments from a YAML file",
		Long: `Seed groups, tenants, backend links and role assignments from a YAML file.
Entries that already exist are skipped, so the command can be rerun.

Example:
  tenancy-cli seed -f fixtures.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filename, err := cmd.Flags().GetString("filename")
			if err != nil {
				return err
			}
			data, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("failed to read file: %v", err)
			}
			fx, err := LoadFixtures(data)
			if err != nil {
				return err
			}
			return withDB(cmd, func(ctx context.Context, d db.DB_) error {
				res, err := Seed(ctx, d, fx)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(cmd.OutOrStdout(), res)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d groups, %d tenants, %d role assignments and linked %d backends\n",
					res.Groups, res.Tenants, res.Roles, res.Backends)
				return nil
			})
		},
	}
	cmd.Flags().StringP("filename", "f", "", "Fixture file to seed from")
	_ = cmd.MarkFlagRequired("filename")
	return cmd
}
