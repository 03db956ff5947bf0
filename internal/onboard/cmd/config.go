package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

// configOutput is the user-visible view of the configuration. Field order
// is the order keys appear in table output.
type configOutput struct {
	Domain              string                  `json:"domain" yaml:"domain"`
	ProjectID           string                  `json:"project_id" yaml:"project_id"`
	InstallerCommand    []string                `json:"installer_command" yaml:"installer_command"`
	InstallerMinVersion string                  `json:"installer_min_version" yaml:"installer_min_version"`
	EnvAPIKey           string                  `json:"env_api_key" yaml:"env_api_key"`
	EnvBaseURL          string                  `json:"env_base_url" yaml:"env_base_url"`
	WelcomePrompt       string                  `json:"welcome_prompt" yaml:"welcome_prompt"`
	VerifyTimeout       string                  `json:"verify_timeout" yaml:"verify_timeout"`
	Backup              bool                    `json:"backup" yaml:"backup"`
	Commands            []config.CommandBinding `json:"commands" yaml:"commands"`
	ContextKeys         []string                `json:"context_keys" yaml:"context_keys"`
	Output              string                  `json:"output" yaml:"output"`
	Debug               bool                    `json:"debug" yaml:"debug"`
	ConfigDir           string                  `json:"config_dir" yaml:"config_dir"`
}

func toConfigOutput(cfg *config.Config) configOutput {
	return configOutput{
		Domain:              cfg.Domain,
		ProjectID:           cfg.ProjectID,
		InstallerCommand:    cfg.InstallerCommand,
		InstallerMinVersion: cfg.InstallerMinVersion,
		EnvAPIKey:           cfg.EnvAPIKey,
		EnvBaseURL:          cfg.EnvBaseURL,
		WelcomePrompt:       cfg.WelcomePrompt,
		VerifyTimeout:       cfg.VerifyTimeout.String(),
		Backup:              cfg.Backup,
		Commands:            cfg.Commands,
		ContextKeys:         cfg.ContextKeys,
		Output:              cfg.Output,
		Debug:               cfg.Debug,
		ConfigDir:           cfg.ConfigDir,
	}
}

func buildConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long:  `Display the current CLI configuration settings`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := toConfigOutput(cfg)
			switch cfg.Output {
			case "json":
				return util.SerializeToJSON(cmd.OutOrStdout(), out)
			case "yaml":
				return util.SerializeToYAML(cmd.OutOrStdout(), out)
			default:
				return outputConfigTable(cmd, out)
			}
		},
	}
}

func buildConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set configuration value",
		Long:  `Set a configuration value and save it to ~/.config/onboard/config.yaml`,
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: completeConfigKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]

			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := cfg.Set(key, value); err != nil {
				return fmt.Errorf("failed to set config: %w", err)
			}

			logging.Info("Configuration updated", zap.String("key", key), zap.String("value", value))
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

func buildConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove configuration value",
		Long:  `Remove a configuration value and save changes to ~/.config/onboard/config.yaml`,
		Args:  cobra.ExactArgs(1),
		ValidArgsFunction: completeConfigKey,
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]

			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := cfg.Unset(key); err != nil {
				return fmt.Errorf("failed to unset config: %w", err)
			}

			logging.Info("Configuration updated", zap.String("key", key))
			fmt.Fprintf(cmd.OutOrStdout(), "Unset %s\n", key)
			return nil
		},
	}
}

func buildConfigResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset to defaults",
		Long:  `Reset all configuration settings except the project ID to their default values`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := cfg.Reset(); err != nil {
				return fmt.Errorf("failed to reset config: %w", err)
			}

			logging.Info("Configuration reset to defaults")
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration reset to defaults")
			return nil
		},
	}
}

func buildConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage CLI configuration",
		Long:  `Manage CLI configuration settings stored in ~/.config/onboard/config.yaml`,
	}

	cmd.AddCommand(buildConfigShowCmd())
	cmd.AddCommand(buildConfigSetCmd())
	cmd.AddCommand(buildConfigUnsetCmd())
	cmd.AddCommand(buildConfigResetCmd())

	return cmd
}

func outputConfigTable(cmd *cobra.Command, cfg configOutput) error {
	commands := make([]string, 0, len(cfg.Commands))
	for _, c := range cfg.Commands {
		commands = append(commands, c.Name)
	}

	rows := [][2]string{
		{"domain", cfg.Domain},
		{"project_id", valueOrEmpty(cfg.ProjectID)},
		{"installer_command", strings.Join(cfg.InstallerCommand, " ")},
		{"installer_min_version", valueOrEmpty(cfg.InstallerMinVersion)},
		{"env_api_key", cfg.EnvAPIKey},
		{"env_base_url", cfg.EnvBaseURL},
		{"welcome_prompt", cfg.WelcomePrompt},
		{"verify_timeout", cfg.VerifyTimeout},
		{"backup", fmt.Sprintf("%t", cfg.Backup)},
		{"commands", valueOrEmpty(strings.Join(commands, ", "))},
		{"context_keys", valueOrEmpty(strings.Join(cfg.ContextKeys, ", "))},
		{"output", cfg.Output},
		{"debug", fmt.Sprintf("%t", cfg.Debug)},
		{"config_dir", cfg.ConfigDir},
	}

	width := 0
	for _, row := range rows {
		width = max(width, len(row[0])+1)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Current Configuration:")
	for _, row := range rows {
		fmt.Fprintf(out, "  %-*s %s\n", width, row[0]+":", row[1])
	}
	return nil
}

func valueOrEmpty(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
