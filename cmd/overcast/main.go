// Command overcast runs the deployment operation orchestrator server.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/overcast-io/overcast/internal/apiserver"
	"github.com/overcast-io/overcast/internal/config"
)

// Build metadata, stamped via -ldflags
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	apiserver.Version = version
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "overcast",
		Short: "Deployment operation orchestrator",
		Long: `Overcast turns declarative cloud resource lists into ordered provider
calls with progress tracking, cost accumulation, rollback on failure, and
ordered teardown.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServerCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("overcast %s (commit %s, built %s)\n", version, gitCommit, buildDate)
		},
	}
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect server configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.NewServerConfig()
			cfg.LoadFromEnv()
			if err := cfg.Validate(); err != nil {
				return err
			}

			payload, err := json.MarshalIndent(cfg.GetSanitized(), "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode config: %w", err)
			}
			cmd.Println(string(payload))
			return nil
		},
	})
	return configCmd
}

func loadConfig() (*config.ServerConfig, error) {
	cfg := config.NewServerConfig()
	cfg.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.ExpandPaths(); err != nil {
		return nil, err
	}
	return cfg, nil
}
