package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/authz"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/db"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/roles"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

type canOptions struct {
	group     string
	tenant    string
	superuser bool
	inactive  bool
}

type canRsp struct {
	User       string `json:"user"`
	Permission string `json:"permission"`
	Target     string `json:"target"`
	Decision   string `json:"decision"`
}

func newCanCmd() *cobra.Command {
	opts := canOptions{}
	cmd := &cobra.Command{
		Use:   "can USER_ID PERMISSION",
		Short: "Dry-run an authorization decision",
		Long: `Dry-run an authorization decision against the stored role assignments.
Without --group the permission is decided at type level. With --group, and optionally
--tenant, it is decided on that group or tenant.

Example:
  tenancy-cli can 0190c5d2-7f4e-7a1b-9c3d-2e4f5a6b7c8d multitenancy.change_tenant --group g1 --tenant t1`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %v", err)
			}
			if _, err := authz.ParsePermission(args[1]); err != nil {
				return err
			}
			if opts.tenant != "" && opts.group == "" {
				return errors.New("--tenant requires --group")
			}
			user := types.User{
				ID:              userID,
				IsActive:        !opts.inactive,
				IsAuthenticated: true,
				IsSuperuser:     opts.superuser,
			}
			return withDB(cmd, func(ctx context.Context, d db.DB_) error {
				rsp, err := decide(ctx, d, user, args[1], opts)
				if err != nil {
					return err
				}
				if jsonOutput {
					printJSON(cmd.OutOrStdout(), rsp)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s on %s: %s\n", rsp.Permission, rsp.Target, rsp.Decision)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&opts.group, "group", "", "Slug of the group to decide on")
	cmd.Flags().StringVar(&opts.tenant, "tenant", "", "Slug of the tenant to decide on")
	cmd.Flags().BoolVar(&opts.superuser, "superuser", false, "Decide as a superuser")
	cmd.Flags().BoolVar(&opts.inactive, "inactive", false, "Decide as an inactive user")
	return cmd
}

func decide(ctx context.Context, d db.DB_, user types.User, perm string, opts canOptions) (canRsp, error) {
	rsp := canRsp{User: user.ID.String(), Permission: perm, Target: "type"}
	var target any
	switch {
	case opts.tenant != "":
		t, err := d.GetTenantBySlug(ctx, opts.group, opts.tenant)
		if err != nil {
			return rsp, err
		}
		target, rsp.Target = t, "tenant "+opts.group+"/"+opts.tenant
	case opts.group != "":
		g, err := d.GetGroupBySlug(ctx, opts.group)
		if err != nil {
			return rsp, err
		}
		target, rsp.Target = g, "group "+opts.group
	}
	engine := authz.NewEngine(roles.NewResolver(d), d, authz.NewAppRegistry(config.Config().Apps))
	rsp.Decision = engine.Decide(ctx, user, perm, target).String()
	return rsp, nil
}
