// Package orchestrator drives one installation run: client and workspace
// selection, the installer, verification and finally the welcome chat.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
	"github.com/onboardhq/onboard-cli/internal/onboard/installer"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
	"github.com/onboardhq/onboard-cli/internal/onboard/status"
	"github.com/onboardhq/onboard-cli/internal/onboard/verify"
)

// Notification actions.
const (
	ActionRetry             = "Retry"
	ActionViewOutput        = "View Output"
	ActionRetryVerification = "Retry Verification"
)

// ErrCancelled is recorded on a run that was abandoned at a picker.
var ErrCancelled = errors.New("cancelled by user")

// Credentials are the opaque values handed to the installer and verifier.
type Credentials struct {
	APIKey  string
	BaseURL string
}

// CredentialProvider resolves credentials for a project.
type CredentialProvider interface {
	Credentials(ctx context.Context, projectID string) (Credentials, error)
}

// Picker asks the user to choose. ok is false when the user cancelled.
type Picker interface {
	PickClient(ctx context.Context, profiles []clients.Profile) (profile clients.Profile, ok bool, err error)
	PickWorkspace(ctx context.Context, folders []string) (folder string, ok bool, err error)
}

// Installer runs the external installer.
type Installer interface {
	Run(ctx context.Context, req installer.Request) installer.Outcome
}

// Verifier confirms the installed server is live.
type Verifier interface {
	Verify(ctx context.Context, apiKey, baseURL string, cb verify.Callbacks) verify.Outcome
	Retry(ctx context.Context, apiKey, baseURL string, cb verify.Callbacks) verify.Outcome
}

// ChatOpener delivers the welcome prompt.
type ChatOpener interface {
	TryOpen(ctx context.Context, clientID, prompt string, opts chat.Options) chat.Result
}

// Callbacks report run progress to the caller. All fields are optional.
type Callbacks struct {
	OnInstallationStarting func()
	OnVerifying            func(projectID string)
	OnVerified             func(projectID string, tools []string)
	OnFailed               func(projectID string, message string)
}

// Request starts a run.
type Request struct {
	ProjectID string
	// ClientID preselects the client; empty means ask the Picker.
	ClientID string
	// WorkspaceFolders are the candidate folders for workspace-local clients.
	WorkspaceFolders []string
	// Prompt overrides the orchestrator's welcome prompt.
	Prompt    string
	Callbacks Callbacks
}

// Run is the record of one installation attempt.
type Run struct {
	ID            string
	ProjectID     string
	Client        clients.Profile
	WorkspacePath string
	Terminal      chat.Terminal
	Credentials   Credentials `json:"-" yaml:"-"`
	Install       installer.Outcome
	Tools         []string
	Chat          *chat.Result
	// State is the current state; Outcome is the last state before the run
	// returned to Idle.
	State   State
	Outcome State
	Err     error
}

// Orchestrator wires the run collaborators together. Status, Notifier,
// Terminals, BeforeInstall and OnTransition are optional.
type Orchestrator struct {
	Registry      *clients.Registry
	Credentials   CredentialProvider
	Picker        Picker
	Installer     Installer
	Verifier      Verifier
	Chat          ChatOpener
	Terminals     chat.Terminals
	Notifier      chat.Notifier
	Status        status.Store
	WelcomePrompt string
	// HomeDir is the workspace fallback when no folder is open.
	HomeDir func() (string, error)
	// BeforeInstall runs after credentials are acquired; an error aborts the
	// run before the installer starts.
	BeforeInstall func(ctx context.Context, run *Run) error
	// OnTransition observes every state change.
	OnTransition func(run *Run, from, to State)

	newRunID func() string
}

// Install performs one run. It never panics; failures are reported through
// req.Callbacks and recorded on the returned Run.
func (o *Orchestrator) Install(ctx context.Context, req Request) (run *Run) {
	run = &Run{ID: o.runID(), ProjectID: req.ProjectID}
	log := logging.Named("orchestrator").With(zap.String("run", run.ID), zap.String("project", req.ProjectID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Installation run panicked", zap.Any("panic", r))
			o.fail(ctx, run, req.Callbacks, fmt.Errorf("unexpected error: %v", r))
			o.notify(ctx, chat.LevelError, fmt.Sprintf("Onboarding failed unexpectedly: %v", r))
			o.finish(run)
		}
	}()

	profile, ok, err := o.selectClient(ctx, req)
	if err != nil {
		o.fail(ctx, run, req.Callbacks, err)
		o.notify(ctx, chat.LevelError, err.Error())
		o.finish(run)
		return run
	}
	if !ok {
		log.Debug("Client pick cancelled")
		run.Err = ErrCancelled
		o.finish(run)
		return run
	}
	run.Client = profile
	o.transition(run, ClientSelected)

	workspace, ok, err := o.resolveWorkspace(ctx, profile, req.WorkspaceFolders)
	if err != nil {
		o.fail(ctx, run, req.Callbacks, err)
		o.notify(ctx, chat.LevelError, err.Error())
		o.finish(run)
		return run
	}
	if !ok {
		log.Debug("Workspace pick cancelled")
		run.Err = ErrCancelled
		o.finish(run)
		return run
	}
	run.WorkspacePath = workspace
	o.transition(run, WorkspaceResolved)

	creds, err := o.Credentials.Credentials(ctx, req.ProjectID)
	if err != nil {
		err = fmt.Errorf("failed to get credentials: %w", err)
		o.fail(ctx, run, req.Callbacks, err)
		o.notify(ctx, chat.LevelError, err.Error())
		o.finish(run)
		return run
	}
	run.Credentials = creds
	o.transition(run, CredentialsAcquired)

	if o.BeforeInstall != nil {
		if err := o.BeforeInstall(ctx, run); err != nil {
			o.fail(ctx, run, req.Callbacks, err)
			o.notify(ctx, chat.LevelError, err.Error())
			o.finish(run)
			return run
		}
	}

	o.install(ctx, run, req)
	if run.State == InstallFailed {
		o.finish(run)
		if o.offerInstallRecovery(ctx, run) {
			log.Info("Retrying installation")
			return o.Install(ctx, req)
		}
		return run
	}

	o.verifyAndOpen(context.WithoutCancel(ctx), run, req, o.Verifier.Verify)
	o.finish(run)
	return run
}

// RetryVerification re-runs verification for a run whose verification
// failed and opens the chat on success.
func (o *Orchestrator) RetryVerification(ctx context.Context, run *Run, req Request) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Verification retry panicked", zap.Any("panic", r))
			o.fail(ctx, run, req.Callbacks, fmt.Errorf("unexpected error: %v", r))
			o.finish(run)
		}
	}()

	o.verifyAndOpen(context.WithoutCancel(ctx), run, req, o.Verifier.Retry)
	o.finish(run)
}

func (o *Orchestrator) selectClient(ctx context.Context, req Request) (clients.Profile, bool, error) {
	if req.ClientID != "" {
		profile, err := o.Registry.Find(req.ClientID)
		if err != nil {
			return clients.Profile{}, false, err
		}
		return profile, true, nil
	}
	if o.Picker == nil {
		return clients.Profile{}, false, errors.New("no client specified")
	}
	return o.Picker.PickClient(ctx, o.Registry.All())
}

// resolveWorkspace picks the working directory for workspace-local clients:
// the home directory when no folder is open, the only folder, or the
// user's pick among several.
func (o *Orchestrator) resolveWorkspace(ctx context.Context, profile clients.Profile, folders []string) (string, bool, error) {
	if !profile.WorkspaceLocal {
		return "", true, nil
	}

	switch len(folders) {
	case 0:
		home := o.HomeDir
		if home == nil {
			home = os.UserHomeDir
		}
		dir, err := home()
		if err != nil {
			return "", false, fmt.Errorf("failed to determine home directory: %w", err)
		}
		return dir, true, nil
	case 1:
		return folders[0], true, nil
	default:
		if o.Picker == nil {
			return "", false, errors.New("multiple workspace folders and no way to choose")
		}
		return o.Picker.PickWorkspace(ctx, folders)
	}
}

func (o *Orchestrator) install(ctx context.Context, run *Run, req Request) {
	if req.Callbacks.OnInstallationStarting != nil {
		req.Callbacks.OnInstallationStarting()
	}
	o.statusUpdate("reset", func(s status.Store) error {
		return s.Reset(run.ProjectID, run.ID, run.Client.ID)
	})
	o.transition(run, Installing)

	if run.Terminal == nil && o.Terminals != nil {
		terminal, err := o.Terminals.CreateTerminal("Onboard: "+run.Client.Name, run.WorkspacePath)
		if err != nil {
			logging.Warn("Failed to create installer terminal", zap.Error(err))
		} else {
			run.Terminal = terminal
		}
	}

	installReq := installer.Request{
		ClientID:      run.Client.ID,
		APIKey:        run.Credentials.APIKey,
		APIBaseURL:    run.Credentials.BaseURL,
		WorkspacePath: run.WorkspacePath,
	}
	if w, ok := run.Terminal.(io.Writer); ok {
		installReq.Output = w
	}

	run.Install = o.Installer.Run(ctx, installReq)
	if !run.Install.Success {
		o.transition(run, InstallFailed)
		o.fail(ctx, run, req.Callbacks, errors.New(run.Install.Message()))
		return
	}
	o.transition(run, InstallSucceeded)
}

// offerInstallRecovery shows the failure notification and reports whether
// the user asked to retry.
func (o *Orchestrator) offerInstallRecovery(ctx context.Context, run *Run) bool {
	action := o.notify(ctx, chat.LevelError, run.Install.Message(), ActionRetry, ActionViewOutput)
	switch action {
	case ActionRetry:
		return true
	case ActionViewOutput:
		if run.Terminal != nil {
			run.Terminal.Show()
		}
	}
	return false
}

type verifyFunc func(ctx context.Context, apiKey, baseURL string, cb verify.Callbacks) verify.Outcome

func (o *Orchestrator) verifyAndOpen(ctx context.Context, run *Run, req Request, verifyFn verifyFunc) {
	o.statusUpdate("verifying", func(s status.Store) error {
		return s.SetVerifying(run.ProjectID)
	})
	o.transition(run, Verifying)

	outcome := verifyFn(ctx, run.Credentials.APIKey, run.Credentials.BaseURL, verify.Callbacks{
		OnVerifying: func() {
			if req.Callbacks.OnVerifying != nil {
				req.Callbacks.OnVerifying(run.ProjectID)
			}
		},
		OnVerified: func(tools []string) {
			o.statusUpdate("verified", func(s status.Store) error {
				return s.SetVerified(run.ProjectID, tools)
			})
			if req.Callbacks.OnVerified != nil {
				req.Callbacks.OnVerified(run.ProjectID, tools)
			}
		},
	})

	if outcome.Err != nil {
		o.transition(run, VerificationFailed)
		o.fail(ctx, run, req.Callbacks, outcome.Err)
		action := o.notify(ctx, chat.LevelWarning,
			fmt.Sprintf("Could not verify the MCP server for %s: %v", run.Client.Name, outcome.Err),
			ActionRetryVerification)
		if action == ActionRetryVerification {
			o.RetryVerification(ctx, run, req)
		}
		return
	}

	run.Tools = outcome.Tools
	run.Err = nil
	o.transition(run, Verified)

	prompt := req.Prompt
	if prompt == "" {
		prompt = o.WelcomePrompt
	}
	result := o.Chat.TryOpen(ctx, run.Client.ID, prompt, chat.Options{Terminal: run.Terminal, Dir: run.WorkspacePath})
	run.Chat = &result
	o.transition(run, ChatOpened)

	if !result.Success {
		logging.Warn("Failed to open chat", zap.String("client", run.Client.ID), zap.String("error", result.Error))
		run.Err = errors.New(result.Error)
		if req.Callbacks.OnFailed != nil {
			req.Callbacks.OnFailed(run.ProjectID, result.Error)
		}
	}
}

func (o *Orchestrator) fail(_ context.Context, run *Run, cb Callbacks, err error) {
	run.Err = err
	o.statusUpdate("failed", func(s status.Store) error {
		return s.SetFailed(run.ProjectID, err.Error())
	})
	if cb.OnFailed != nil {
		cb.OnFailed(run.ProjectID, err.Error())
	}
}

func (o *Orchestrator) notify(ctx context.Context, level chat.Level, message string, actions ...string) string {
	if o.Notifier == nil {
		return ""
	}
	return o.Notifier.Notify(ctx, level, message, actions...)
}

func (o *Orchestrator) transition(run *Run, to State) {
	from := run.State
	run.State = to
	if to != Idle {
		run.Outcome = to
	}
	logging.Debug("State transition",
		zap.String("run", run.ID),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
	)
	if o.OnTransition != nil {
		o.OnTransition(run, from, to)
	}
}

func (o *Orchestrator) finish(run *Run) {
	if run.State != Idle {
		o.transition(run, Idle)
	}
}

func (o *Orchestrator) statusUpdate(op string, fn func(status.Store) error) {
	if o.Status == nil {
		return
	}
	if err := fn(o.Status); err != nil {
		logging.Warn("Failed to update status", zap.String("op", op), zap.Error(err))
	}
}

func (o *Orchestrator) runID() string {
	if o.newRunID != nil {
		return o.newRunID()
	}
	return uuid.NewString()
}
