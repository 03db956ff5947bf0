package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/onboardhq/onboard-cli/internal/onboard/common"
	"github.com/onboardhq/onboard-cli/internal/onboard/config"
)

func buildLoginCmd() *cobra.Command {
	var projectIDFlag string
	var appKeyFlag string
	var regionFlag string
	var apiKeyFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store credentials for a project",
		Long: `Store the API key, app key and region for a project.

Credentials are kept in the system keyring, or in a credentials file with
restricted permissions when no keyring is available. The project ID
becomes the default project in the configuration file.

Examples:
  # Interactive login (prompts for anything not given)
  onboard auth login --project-id proj-123

  # Login with all flags
  onboard auth login --project-id proj-123 --app-key my-app --region us --api-key sk-...

  # Login using environment variables
  export ONBOARD_API_KEY="sk-..."
  onboard auth login --project-id proj-123 --app-key my-app --region us`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			creds := config.Credentials{
				APIKey: apiKeyFlag,
				AppKey: appKeyFlag,
				Region: regionFlag,
			}
			projectID := projectIDFlag

			if creds.APIKey == "" {
				creds.APIKey = os.Getenv("ONBOARD_API_KEY")
			}
			if projectID == "" {
				cfg, err := config.Load()
				if err == nil {
					projectID = cfg.ProjectID
				}
			}

			if projectID == "" || creds.APIKey == "" || creds.AppKey == "" || creds.Region == "" {
				cmd.SilenceUsage = true

				var err error
				projectID, creds, err = promptForCredentials(cmd, projectID, creds)
				if err != nil {
					return common.ExitWithCode(common.ExitAuthenticationError, fmt.Errorf("failed to get credentials: %w", err))
				}
			}

			if projectID == "" {
				return common.ExitWithCode(common.ExitInvalidParameters, errors.New("project ID is required"))
			}
			if creds.APIKey == "" || creds.AppKey == "" || creds.Region == "" {
				return common.ExitWithCode(common.ExitInvalidParameters, errors.New("API key, app key and region are all required"))
			}

			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := config.StoreCredentials(cfg.ConfigDir, projectID, creds); err != nil {
				return fmt.Errorf("failed to store credentials: %w", err)
			}
			if err := cfg.Set("project_id", projectID); err != nil {
				return fmt.Errorf("failed to store project ID: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Stored credentials for project %s (%s). Set default project ID to: %s\n",
				projectID, cfg.BaseURL(creds.AppKey, creds.Region), projectID)
			return nil
		},
	}

	cmd.Flags().StringVar(&projectIDFlag, "project-id", "", "Project ID to store credentials for")
	cmd.Flags().StringVar(&appKeyFlag, "app-key", "", "Application key used in the API base URL")
	cmd.Flags().StringVar(&regionFlag, "region", "", "Region used in the API base URL")
	cmd.Flags().StringVar(&apiKeyFlag, "api-key", "", "API key")

	return cmd
}

func buildLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored credentials",
		Long:  `Remove the stored credentials of the current project.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			projectID, err := requireProjectID(cfg)
			if err != nil {
				return err
			}

			if err := config.RemoveCredentials(cfg.ConfigDir, projectID); err != nil {
				return fmt.Errorf("failed to remove credentials: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Removed stored credentials for project %s\n", projectID)
			return nil
		},
	}
}

func buildAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether credentials are stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			projectID, err := requireProjectID(cfg)
			if err != nil {
				return err
			}

			creds, err := storedCredentials{cfg: cfg}.Credentials(cmd.Context(), projectID)
			if err != nil {
				return credentialsError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in to project %s (%s)\n", projectID, creds.BaseURL)
			return nil
		},
	}
}

func buildAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage project credentials",
		Long:  `Manage the credentials used to install and verify the MCP server.`,
	}

	cmd.AddCommand(buildLoginCmd())
	cmd.AddCommand(buildLogoutCmd())
	cmd.AddCommand(buildAuthStatusCmd())

	return cmd
}

// promptForCredentials prompts for anything still missing
func promptForCredentials(cmd *cobra.Command, projectID string, creds config.Credentials) (string, config.Credentials, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", creds, errors.New("TTY not detected - credentials required. Use flags (--project-id, --app-key, --region, --api-key) or the ONBOARD_API_KEY environment variable")
	}

	out := cmd.OutOrStdout()
	reader := bufio.NewReader(os.Stdin)
	readLine := func(label string, value *string) error {
		if *value != "" {
			return nil
		}
		fmt.Fprintf(out, "Enter your %s: ", label)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		*value = strings.TrimSpace(line)
		return nil
	}

	if err := readLine("project ID", &projectID); err != nil {
		return "", creds, err
	}
	if err := readLine("app key", &creds.AppKey); err != nil {
		return "", creds, err
	}
	if err := readLine("region", &creds.Region); err != nil {
		return "", creds, err
	}

	if creds.APIKey == "" {
		fmt.Fprint(out, "Enter your API key: ")
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", creds, err
		}
		fmt.Fprintln(out)
		creds.APIKey = strings.TrimSpace(string(secret))
	}

	return projectID, creds, nil
}
