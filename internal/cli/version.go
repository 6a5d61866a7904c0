package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tansive/tansive-tenancy/pkg/api"
	"github.com/tidwall/gjson"
)

func newVersionCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version of tenancy-cli and, with --server, of a running server",
		RunE: func(cmd *cobra.Command, args []string) error {
			local := api.CurrentVersion()
			out := map[string]string{
				"server_version": local.ServerVersion,
				"api_version":    local.ApiVersion,
			}
			if serverURL != "" {
				req := api.GetVersionReq{}
				method, path := req.RequestMethod()
				body, err := NewHTTPClient(serverURL, "").DoRequest(cmd.Context(), RequestOptions{Method: method, Path: path})
				if err != nil {
					return err
				}
				out["remote_server_version"] = gjson.GetBytes(body, "server_version").String()
				out["remote_api_version"] = gjson.GetBytes(body, "api_version").String()
			}
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), out)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "tenancy-cli %s (api %s)\n", local.ServerVersion, local.ApiVersion)
			if serverURL != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "server %s (api %s)\n", out["remote_server_version"], out["remote_api_version"])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "", "URL of a running tenancy server")
	return cmd
}
