package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
	"github.com/onboardhq/onboard-cli/internal/onboard/common"
	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/hostcli"
	"github.com/onboardhq/onboard-cli/internal/onboard/installer"
	"github.com/onboardhq/onboard-cli/internal/onboard/orchestrator"
	"github.com/onboardhq/onboard-cli/internal/onboard/status"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
	"github.com/onboardhq/onboard-cli/internal/onboard/verify"
)

// host bundles the collaborators that touch the outside world.
type host struct {
	Preflight func(ctx context.Context) error
	Installer orchestrator.Installer
	Verifier  orchestrator.Verifier
	Commands  chat.Commands
	Clipboard chat.Clipboard
	Terminals chat.Terminals
	Notifier  chat.Notifier
	Picker    orchestrator.Picker
	Status    status.Store
}

// newHost can be overridden for testing
var newHost = defaultHost

func defaultHost(cmd *cobra.Command, cfg *config.Config, workspace string) *host {
	runner := newRunner(cfg)
	return &host{
		Preflight: func(ctx context.Context) error {
			_, err := runner.Preflight(ctx)
			return err
		},
		Installer: runner,
		Verifier:  newPoller(cfg),
		Commands:  hostcli.NewCommands(cfg.Commands, cfg.ContextKeys),
		Clipboard: hostcli.Clipboard{},
		Terminals: &hostcli.Terminals{Dir: workspace, Out: cmd.OutOrStdout(), In: os.Stdin},
		Notifier: &hostcli.Notifier{
			Out:         cmd.ErrOrStderr(),
			In:          cmd.InOrStdin(),
			Interactive: util.IsInteractive() && !util.IsCI(),
		},
		Picker: &hostcli.Picker{Out: cmd.OutOrStdout()},
		Status: status.NewFileStore(cfg.ConfigDir),
	}
}

func newRunner(cfg *config.Config) *installer.Runner {
	return &installer.Runner{
		Command:    cfg.InstallerCommand,
		EnvAPIKey:  cfg.EnvAPIKey,
		EnvBaseURL: cfg.EnvBaseURL,
		MinVersion: cfg.InstallerMinVersion,
	}
}

func newPoller(cfg *config.Config) *verify.Poller {
	return verify.NewPoller(&verify.MCPBackend{Timeout: cfg.VerifyTimeout})
}

func (h *host) opener() *chat.Opener {
	return &chat.Opener{
		Registry:  clients.Default(),
		Commands:  h.Commands,
		Clipboard: h.Clipboard,
		Terminals: h.Terminals,
		Notifier:  h.Notifier,
	}
}

// storedCredentials resolves credentials from the keyring or credentials file.
type storedCredentials struct {
	cfg *config.Config
}

func (s storedCredentials) Credentials(_ context.Context, projectID string) (orchestrator.Credentials, error) {
	creds, err := config.GetCredentials(s.cfg.ConfigDir, projectID)
	if err != nil {
		return orchestrator.Credentials{}, err
	}
	return orchestrator.Credentials{
		APIKey:  creds.APIKey,
		BaseURL: s.cfg.BaseURL(creds.AppKey, creds.Region),
	}, nil
}

// requireProjectID returns the configured project ID or an invalid
// parameters error.
func requireProjectID(cfg *config.Config) (string, error) {
	if cfg.ProjectID == "" {
		return "", common.ExitWithCode(common.ExitInvalidParameters,
			errors.New("project ID is required. Set it with --project-id or 'onboard config set project_id <id>'"))
	}
	return cfg.ProjectID, nil
}

// credentialsError marks credential lookup failures as authentication errors.
func credentialsError(err error) error {
	if errors.Is(err, config.ErrNotLoggedIn) {
		return common.ExitWithCode(common.ExitAuthenticationError,
			fmt.Errorf("%w. Run 'onboard auth login' first", err))
	}
	return common.ExitWithCode(common.ExitAuthenticationError, fmt.Errorf("failed to get credentials: %w", err))
}

// waitForTerminal keeps an interactive terminal open until its shell exits.
func waitForTerminal(cmd *cobra.Command, terminal chat.Terminal) error {
	t, ok := terminal.(*hostcli.Terminal)
	if !ok || !t.Started() {
		return nil
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Attached to %s. Exit the shell to return.\n", t.Name())
	return t.Wait(cmd.Context())
}

// backupConfig returns an orchestrator hook that copies the client's
// existing config file before the installer rewrites it.
func backupConfig(cmd *cobra.Command) func(ctx context.Context, run *orchestrator.Run) error {
	return func(_ context.Context, run *orchestrator.Run) error {
		path, ok := installer.FindConfigFile(run.Client, run.WorkspacePath)
		if !ok {
			return nil
		}
		backup, err := installer.BackupConfig(path, time.Now())
		if err != nil {
			return fmt.Errorf("failed to back up %s: %w", path, err)
		}
		if backup != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "Backed up %s to %s\n", path, backup)
		}
		return nil
	}
}
