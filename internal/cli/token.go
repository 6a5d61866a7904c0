package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/auth"
	"github.com/tansive/tansive-tenancy/internal/tenancysrv/config"
	"github.com/tansive/tansive-tenancy/pkg/types"
)

func newTokenCmd() *cobra.Command {
	var (
		ttl       time.Duration
		superuser bool
	)
	cmd := &cobra.Command{
		Use:   "token USER_ID",
		Short: "Sign an identity token with the configured signing key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid user id: %v", err)
			}
			user := types.User{ID: userID, IsActive: true, IsAuthenticated: true, IsSuperuser: superuser}
			tok, err := auth.NewToken(user, config.Config().Auth, ttl)
			if err != nil {
				return err
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"token":      tok,
					"expires_at": time.Now().Add(ttl).UTC().Format(time.RFC3339),
				})
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Lifetime of the token")
	cmd.Flags().BoolVar(&superuser, "superuser", false, "Mark the token as a superuser token")
	return cmd
}
