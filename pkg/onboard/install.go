// Package onboard provides a public API for installing the Onboard MCP server
// into an AI coding assistant and verifying that it answers with its tools.
package onboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/installer"
	"github.com/onboardhq/onboard-cli/internal/onboard/orchestrator"
	"github.com/onboardhq/onboard-cli/internal/onboard/verify"
)

var (
	// ErrInstallFailed wraps installer failures.
	ErrInstallFailed = errors.New("installation failed")
	// ErrVerificationFailed wraps verification failures.
	ErrVerificationFailed = errors.New("verification failed")
)

// Options configures an installation.
type Options struct {
	// ProjectID is recorded in logs only.
	ProjectID string
	APIKey    string
	BaseURL   string
	// WorkspacePath is the working directory for workspace-local clients.
	// Empty means the user's home directory.
	WorkspacePath string
	// InstallerCommand is the installer argv prefix. Empty uses the default
	// npx invocation.
	InstallerCommand []string
	// Output receives the installer's stdout and stderr as they arrive.
	Output io.Writer
	// VerifyTimeout bounds each verification attempt. Zero uses the default.
	VerifyTimeout time.Duration
}

// Result describes a completed installation.
type Result struct {
	Client string
	Tools  []string
	// ExitCode is the installer's exit code, nil if it never exited.
	ExitCode *int
}

// Clients returns the canonical IDs of the supported clients.
func Clients() []string {
	return clients.Default().IDs()
}

// Install runs the installer for clientName and verifies the server. The
// chat is never opened.
//
// Returns an error wrapping ErrInstallFailed or ErrVerificationFailed when
// the corresponding step fails.
func Install(ctx context.Context, clientName string, opts Options) (Result, error) {
	if opts.APIKey == "" || opts.BaseURL == "" {
		return Result{}, errors.New("APIKey and BaseURL are required")
	}

	command := opts.InstallerCommand
	if len(command) == 0 {
		command = config.DefaultInstallerCommand
	}
	timeout := opts.VerifyTimeout
	if timeout == 0 {
		timeout = config.DefaultVerifyTimeout
	}

	orch := &orchestrator.Orchestrator{
		Registry:    clients.Default(),
		Credentials: staticCredentials{APIKey: opts.APIKey, BaseURL: opts.BaseURL},
		Installer: &installer.Runner{
			Command:    command,
			EnvAPIKey:  config.DefaultEnvAPIKey,
			EnvBaseURL: config.DefaultEnvBaseURL,
		},
		Verifier: verify.NewPoller(&verify.MCPBackend{Timeout: timeout}),
		Chat:     noChat{},
	}
	if opts.Output != nil {
		orch.Terminals = outputTerminals{w: opts.Output}
	}

	req := orchestrator.Request{ProjectID: opts.ProjectID, ClientID: clientName}
	if opts.WorkspacePath != "" {
		req.WorkspaceFolders = []string{opts.WorkspacePath}
	}

	run := orch.Install(ctx, req)
	result := Result{Client: run.Client.ID, Tools: run.Tools, ExitCode: run.Install.ExitCode}

	if run.Err == nil {
		return result, nil
	}
	switch run.Outcome {
	case orchestrator.InstallFailed:
		return result, fmt.Errorf("%w: %w", ErrInstallFailed, run.Err)
	case orchestrator.VerificationFailed:
		return result, fmt.Errorf("%w: %w", ErrVerificationFailed, run.Err)
	default:
		return result, run.Err
	}
}

type staticCredentials orchestrator.Credentials

func (c staticCredentials) Credentials(context.Context, string) (orchestrator.Credentials, error) {
	return orchestrator.Credentials(c), nil
}

type noChat struct{}

func (noChat) TryOpen(context.Context, string, string, chat.Options) chat.Result {
	return chat.Result{Success: true, Method: chat.MethodNone}
}

// outputTerminals hands the orchestrator a terminal that only captures
// installer output.
type outputTerminals struct {
	w io.Writer
}

func (o outputTerminals) CreateTerminal(name, _ string) (chat.Terminal, error) {
	return &outputTerminal{name: name, Writer: o.w}, nil
}

type outputTerminal struct {
	io.Writer
	name string
}

func (t *outputTerminal) Name() string { return t.name }
func (t *outputTerminal) Show()        {}

func (t *outputTerminal) SendText(string) error {
	return errors.New("output terminal does not accept input")
}
