package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
)

func buildRootCmd(ctx context.Context) *cobra.Command {
	var configDir string
	var debug bool
	var output string
	var projectID string

	cmd := &cobra.Command{
		Use:   "onboard",
		Short: "Install, verify and try the Onboard MCP server in your AI assistant",
		Long: `onboard installs the Onboard MCP server into an AI coding assistant,
verifies that the server answers with its tools and then opens the
assistant's chat with a welcome prompt.

Get started:
  onboard auth login --project-id <id> --app-key <key> --region <region> --api-key <secret>
  onboard install`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Init(debug); err != nil {
				return fmt.Errorf("failed to initialize logging: %w", err)
			}

			dir := config.GetEffectiveConfigDir(cmd.Flags().Lookup("config-dir"))
			if err := config.SetupViper(dir); err != nil {
				return fmt.Errorf("failed to set up config: %w", err)
			}

			cfg, err := config.Load()
			if err != nil {
				logging.Error("failed to load config", zap.Error(err))
				return err
			}

			logging.Debug("CLI initialized",
				zap.String("config_dir", cfg.ConfigDir),
				zap.String("output", cfg.Output),
				zap.Bool("debug", cfg.Debug),
			)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}
	cmd.SetContext(ctx)

	cmd.PersistentFlags().StringVar(&configDir, "config-dir", config.GetDefaultConfigDir(), "config directory")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "", "output format (json, yaml, table)")
	cmd.PersistentFlags().StringVar(&projectID, "project-id", "", "project ID")

	bindFlags(cmd)

	cmd.AddCommand(buildInstallCmd())
	cmd.AddCommand(buildVerifyCmd())
	cmd.AddCommand(buildChatCmd())
	cmd.AddCommand(buildClientsCmd())
	cmd.AddCommand(buildStatusCmd())
	cmd.AddCommand(buildAuthCmd())
	cmd.AddCommand(buildConfigCmd())
	cmd.AddCommand(buildVersionCmd())

	return cmd
}

func bindFlags(cmd *cobra.Command) {
	viper.BindPFlag("debug", cmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("output", cmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("project_id", cmd.PersistentFlags().Lookup("project-id"))
}

// Execute runs the root command and returns its error; callers map
// ExitCodeError values to the process exit status.
func Execute(ctx context.Context) error {
	return buildRootCmd(ctx).Execute()
}
