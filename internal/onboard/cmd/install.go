package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
	"github.com/onboardhq/onboard-cli/internal/onboard/common"
	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
	"github.com/onboardhq/onboard-cli/internal/onboard/orchestrator"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

// installSummary is the machine-readable result of an install run.
type installSummary struct {
	RunID     string             `json:"run_id"`
	ProjectID string             `json:"project_id"`
	Client    string             `json:"client"`
	Workspace string             `json:"workspace,omitempty"`
	State     orchestrator.State `json:"state"`
	ExitCode  *int               `json:"exit_code,omitempty"`
	Tools     []string           `json:"tools,omitempty"`
	Chat      string             `json:"chat,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func buildInstallCmd() *cobra.Command {
	var noBackup bool
	var skipPreflight bool
	var noChat bool
	var workspaces []string
	var prompt string

	registry := clients.Default()

	cmd := &cobra.Command{
		Use:   "install [client]",
		Short: "Install the MCP server into an AI assistant and verify it",
		Long: fmt.Sprintf(`Install the Onboard MCP server into an AI assistant, verify that it
answers with its tools and open the assistant's chat with a welcome prompt.

Supported clients:
%s
If no client is specified, you'll be prompted to select one interactively.
Workspace-local clients are configured in the current directory unless
--workspace is given; with several --workspace values you pick one.

Examples:
  # Interactive client selection
  onboard install

  # Install for Cursor in the current project
  onboard install cursor

  # Install for Claude Code in a specific project
  onboard install claude-code --workspace ~/src/app

  # Install without backing up the existing client configuration
  onboard install windsurf --no-backup`, supportedClientsHelp(registry)),
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: registry.ValidNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := config.ValidateOutputFormat(cfg.Output); err != nil {
				return common.ExitWithCode(common.ExitInvalidParameters, err)
			}

			projectID, err := requireProjectID(cfg)
			if err != nil {
				return err
			}

			var clientID string
			if len(args) == 1 {
				profile, err := registry.Find(args[0])
				if err != nil {
					return common.ExitWithCode(common.ExitInvalidParameters, err)
				}
				clientID = profile.ID
			} else if !util.IsInteractive() {
				return common.ExitWithCode(common.ExitInvalidParameters,
					errors.New("no client specified and no terminal to select one. Pass a client name"))
			}

			folders, err := workspaceFolders(workspaces)
			if err != nil {
				return err
			}

			h := newHost(cmd, cfg, firstOrEmpty(folders))
			if !skipPreflight {
				if err := h.Preflight(cmd.Context()); err != nil {
					return common.ExitWithCode(common.ExitInstallFailed, err)
				}
			}

			if prompt == "" {
				prompt = cfg.WelcomePrompt
			}

			orch := &orchestrator.Orchestrator{
				Registry:      registry,
				Credentials:   storedCredentials{cfg: cfg},
				Picker:        h.Picker,
				Installer:     h.Installer,
				Verifier:      h.Verifier,
				Chat:          h.opener(),
				Terminals:     h.Terminals,
				Notifier:      h.Notifier,
				Status:        h.Status,
				WelcomePrompt: prompt,
				OnTransition: func(run *orchestrator.Run, from, to orchestrator.State) {
					logging.Debug("Install state", zap.Stringer("from", from), zap.Stringer("to", to))
				},
			}
			if cfg.Backup && !noBackup {
				orch.BeforeInstall = backupConfig(cmd)
			}
			if noChat {
				orch.Chat = skipChat{}
			}

			progress := newInstallProgress(cmd, cfg.Output == "table")
			run := orch.Install(cmd.Context(), orchestrator.Request{
				ProjectID:        projectID,
				ClientID:         clientID,
				WorkspaceFolders: folders,
				Callbacks:        progress.callbacks(),
			})
			progress.stop()

			if err := outputInstallSummary(cmd, cfg.Output, run); err != nil {
				return err
			}
			if err := waitForTerminal(cmd, run.Terminal); err != nil {
				logging.Debug("Terminal session ended", zap.Error(err))
			}
			return installExitError(run)
		},
	}

	cmd.Flags().BoolVar(&noBackup, "no-backup", false, "Skip backing up the client's existing MCP configuration")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip checking the installer binary and version before running it")
	cmd.Flags().BoolVar(&noChat, "no-chat", false, "Do not open the client's chat after a successful verification")
	cmd.Flags().StringArrayVar(&workspaces, "workspace", nil, "Workspace folder for workspace-local clients (repeatable)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Welcome prompt sent to the chat (default from config)")

	return cmd
}

// workspaceFolders returns the expanded --workspace values, or the current
// directory when none were given.
func workspaceFolders(flags []string) ([]string, error) {
	if len(flags) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		return []string{wd}, nil
	}

	folders := make([]string, 0, len(flags))
	for _, f := range flags {
		path := util.ExpandPath(f)
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return nil, common.ExitWithCode(common.ExitInvalidParameters,
				fmt.Errorf("workspace %q is not a directory", f))
		}
		folders = append(folders, path)
	}
	return folders, nil
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}

// installExitError maps the final run state to the CLI exit code.
func installExitError(run *orchestrator.Run) error {
	if run.Err == nil {
		return nil
	}
	if errors.Is(run.Err, orchestrator.ErrCancelled) {
		return common.ExitWithCode(common.ExitGeneralError, errors.New("installation cancelled: nothing was selected"))
	}

	switch run.Outcome {
	case orchestrator.InstallFailed:
		return common.ExitWithCode(common.ExitInstallFailed, run.Err)
	case orchestrator.VerificationFailed:
		return common.ExitWithCode(common.ExitVerificationFailed, fmt.Errorf("verification failed: %w", run.Err))
	case orchestrator.ChatOpened:
		// The server is installed and verified; a chat failure is only a warning.
		return nil
	case orchestrator.WorkspaceResolved:
		return credentialsError(run.Err)
	case orchestrator.Idle:
		return common.ExitWithCode(common.ExitInvalidParameters, run.Err)
	default:
		return run.Err
	}
}

func supportedClientsHelp(registry *clients.Registry) string {
	var b strings.Builder
	for _, p := range registry.Sorted() {
		fmt.Fprintf(&b, "  %-16s %s\n", p.ID, p.Name)
	}
	return b.String()
}
