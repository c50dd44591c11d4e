package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// StatusCmd creates the status command.
// The env parameter provides injectable dependencies for testing.
func StatusCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show Depot service health",
		Long: `Show the health report of the configured Depot service.

The service is selected with DEPOT_BASE_URL; DEPOT_API_KEY is sent
when set.`,
		Example: `  depot status`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, env)
		},
	}
}

func runStatus(cmd *cobra.Command, env *Env) error {
	client, err := newClient(env)
	if err != nil {
		return err
	}

	status, err := client.Status(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(env.Stdout, "version:   %s\n", status.Version)
	fmt.Fprintf(env.Stdout, "healthy:   %t\n", status.Healthy)
	fmt.Fprintf(env.Stdout, "artifacts: %d\n", status.Artifacts)
	fmt.Fprintf(env.Stdout, "used:      %s\n", formatBytes(status.UsedBytes))
	return nil
}
