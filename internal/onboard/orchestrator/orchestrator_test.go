package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	chatmocks "github.com/onboardhq/onboard-cli/internal/onboard/chat/mocks"
	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
	"github.com/onboardhq/onboard-cli/internal/onboard/installer"
	"github.com/onboardhq/onboard-cli/internal/onboard/status"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
	"github.com/onboardhq/onboard-cli/internal/onboard/verify"
	verifymocks "github.com/onboardhq/onboard-cli/internal/onboard/verify/mocks"
)

const (
	projectID = "proj-123"
	apiKey    = "sk-test"
	baseURL   = "https://app.us.onboard.dev"
	welcome   = "Welcome! List the tools you have."
)

type fakeInstaller struct {
	outcomes []installer.Outcome
	calls    []installer.Request
	panics   bool
}

func (f *fakeInstaller) Run(_ context.Context, req installer.Request) installer.Outcome {
	f.calls = append(f.calls, req)
	if f.panics {
		panic("installer exploded")
	}
	o := f.outcomes[0]
	if len(f.outcomes) > 1 {
		f.outcomes = f.outcomes[1:]
	}
	return o
}

type fakeVerifier struct {
	verifyOutcome verify.Outcome
	retryOutcome  verify.Outcome
	verifyCalls   int
	retryCalls    int
}

func report(o verify.Outcome, cb verify.Callbacks) verify.Outcome {
	if cb.OnVerifying != nil {
		cb.OnVerifying()
	}
	if o.Err != nil {
		if cb.OnFailed != nil {
			cb.OnFailed(o.Err)
		}
		return o
	}
	if cb.OnVerified != nil {
		cb.OnVerified(o.Tools)
	}
	return o
}

func (f *fakeVerifier) Verify(_ context.Context, _, _ string, cb verify.Callbacks) verify.Outcome {
	f.verifyCalls++
	return report(f.verifyOutcome, cb)
}

func (f *fakeVerifier) Retry(_ context.Context, _, _ string, cb verify.Callbacks) verify.Outcome {
	f.retryCalls++
	return report(f.retryOutcome, cb)
}

type fakeChat struct {
	result  chat.Result
	clients []string
	prompts []string
	opts    []chat.Options
}

func (f *fakeChat) TryOpen(_ context.Context, clientID, prompt string, opts chat.Options) chat.Result {
	f.clients = append(f.clients, clientID)
	f.prompts = append(f.prompts, prompt)
	f.opts = append(f.opts, opts)
	return f.result
}

type fakeCredentials struct {
	creds Credentials
	err   error
}

func (f fakeCredentials) Credentials(context.Context, string) (Credentials, error) {
	return f.creds, f.err
}

type fakePicker struct {
	client      string
	clientOK    bool
	folder      string
	folderOK    bool
	clientPicks int
	folderPicks int
	offeredDirs []string
}

func (f *fakePicker) PickClient(_ context.Context, profiles []clients.Profile) (clients.Profile, bool, error) {
	f.clientPicks++
	for _, p := range profiles {
		if p.ID == f.client {
			return p, f.clientOK, nil
		}
	}
	return clients.Profile{}, false, nil
}

func (f *fakePicker) PickWorkspace(_ context.Context, folders []string) (string, bool, error) {
	f.folderPicks++
	f.offeredDirs = folders
	return f.folder, f.folderOK, nil
}

type notification struct {
	level   chat.Level
	message string
	actions []string
}

type fakeNotifier struct {
	responses []string
	seen      []notification
}

func (f *fakeNotifier) Notify(_ context.Context, level chat.Level, message string, actions ...string) string {
	f.seen = append(f.seen, notification{level: level, message: message, actions: actions})
	if len(f.responses) == 0 {
		return ""
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r
}

type fakeTerminal struct {
	bytes.Buffer
	name  string
	dir   string
	shown int
	sent  []string
}

func (t *fakeTerminal) Name() string { return t.name }
func (t *fakeTerminal) Show()        { t.shown++ }
func (t *fakeTerminal) SendText(text string) error {
	t.sent = append(t.sent, text)
	return nil
}

type fakeTerminals struct {
	created []*fakeTerminal
}

func (f *fakeTerminals) CreateTerminal(name, dir string) (chat.Terminal, error) {
	t := &fakeTerminal{name: name, dir: dir}
	f.created = append(f.created, t)
	return t, nil
}

type recorder struct {
	transitions []State
	events      []string
	failures    []string
	tools       [][]string
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnInstallationStarting: func() { r.events = append(r.events, "starting") },
		OnVerifying: func(id string) {
			r.events = append(r.events, "verifying:"+id)
		},
		OnVerified: func(id string, tools []string) {
			r.events = append(r.events, "verified:"+id)
			r.tools = append(r.tools, tools)
		},
		OnFailed: func(id string, message string) {
			r.events = append(r.events, "failed:"+id)
			r.failures = append(r.failures, message)
		},
	}
}

type fixture struct {
	orch      *Orchestrator
	installer *fakeInstaller
	verifier  *fakeVerifier
	chat      *fakeChat
	picker    *fakePicker
	notifier  *fakeNotifier
	terminals *fakeTerminals
	status    *status.MemoryStore
	rec       *recorder
}

func newFixture() *fixture {
	f := &fixture{
		installer: &fakeInstaller{outcomes: []installer.Outcome{{Success: true, ExitCode: util.Ptr(0)}}},
		verifier:  &fakeVerifier{verifyOutcome: verify.Outcome{Tools: []string{"search_docs", "list_pages"}, Attempts: 1}},
		chat:      &fakeChat{result: chat.Result{Success: true, Method: chat.MethodCommand}},
		picker:    &fakePicker{},
		notifier:  &fakeNotifier{},
		terminals: &fakeTerminals{},
		status:    status.NewMemoryStore(),
		rec:       &recorder{},
	}
	f.orch = &Orchestrator{
		Registry:      clients.Default(),
		Credentials:   fakeCredentials{creds: Credentials{APIKey: apiKey, BaseURL: baseURL}},
		Picker:        f.picker,
		Installer:     f.installer,
		Verifier:      f.verifier,
		Chat:          f.chat,
		Terminals:     f.terminals,
		Notifier:      f.notifier,
		Status:        f.status,
		WelcomePrompt: welcome,
		HomeDir:       func() (string, error) { return "/home/dev", nil },
		OnTransition: func(_ *Run, _, to State) {
			f.rec.transitions = append(f.rec.transitions, to)
		},
		newRunID: func() string { return "run-1" },
	}
	return f
}

func (f *fixture) install(req Request) *Run {
	req.ProjectID = projectID
	req.Callbacks = f.rec.callbacks()
	return f.orch.Install(context.Background(), req)
}

func TestInstallCursorEndToEnd(t *testing.T) {
	f := newFixture()

	ctrl := gomock.NewController(t)
	backend := verifymocks.NewMockBackend(ctrl)
	backend.EXPECT().ListTools(gomock.Any(), apiKey, baseURL).Return([]string{"search_docs", "list_pages"}, nil).Times(1)
	f.orch.Verifier = verify.NewPoller(backend)

	commands := chatmocks.NewMockCommands(ctrl)
	commands.EXPECT().
		ExecuteCommand(gomock.Any(), "composer.newAgentChat", chat.Query{Query: welcome, IsPartialQuery: true}).
		Return(nil)
	f.orch.Chat = &chat.Opener{Registry: clients.Default(), Commands: commands}

	f.picker.client, f.picker.clientOK = "cursor", true

	run := f.install(Request{WorkspaceFolders: []string{"/work/app"}})

	assert.Equal(t, []State{
		ClientSelected, WorkspaceResolved, CredentialsAcquired,
		Installing, InstallSucceeded, Verifying, Verified, ChatOpened, Idle,
	}, f.rec.transitions)
	assert.Equal(t, []string{"starting", "verifying:" + projectID, "verified:" + projectID}, f.rec.events)
	assert.Equal(t, [][]string{{"search_docs", "list_pages"}}, f.rec.tools)
	assert.Empty(t, f.rec.failures)

	require.NotNil(t, run.Chat)
	assert.Equal(t, chat.MethodCommand, run.Chat.Method)
	assert.Equal(t, ChatOpened, run.Outcome)
	assert.Equal(t, Idle, run.State)
	assert.NoError(t, run.Err)
	assert.Equal(t, "run-1", run.ID)

	require.Len(t, f.installer.calls, 1)
	assert.Equal(t, installer.Request{
		ClientID:      "cursor",
		APIKey:        apiKey,
		APIBaseURL:    baseURL,
		WorkspacePath: "/work/app",
		Output:        f.terminals.created[0],
	}, f.installer.calls[0])

	entry, err := f.status.Get(projectID)
	require.NoError(t, err)
	assert.Equal(t, status.PhaseVerified, entry.Phase)
	assert.Equal(t, "cursor", entry.Client)
}

func TestInstallQoderInstallerFailure(t *testing.T) {
	f := newFixture()
	f.installer.outcomes = []installer.Outcome{{Success: false, ExitCode: util.Ptr(1), Stderr: "npm ERR!"}}

	run := f.install(Request{ClientID: "qoder"})

	assert.Equal(t, []State{
		ClientSelected, WorkspaceResolved, CredentialsAcquired,
		Installing, InstallFailed, Idle,
	}, f.rec.transitions)
	assert.Equal(t, []string{"Installation failed with exit code 1"}, f.rec.failures)
	assert.Equal(t, 0, f.verifier.verifyCalls)
	assert.Empty(t, f.chat.clients)
	assert.Equal(t, InstallFailed, run.Outcome)

	require.Len(t, f.notifier.seen, 1)
	assert.Equal(t, chat.LevelError, f.notifier.seen[0].level)
	assert.Equal(t, "Installation failed with exit code 1", f.notifier.seen[0].message)
	assert.Equal(t, []string{ActionRetry, ActionViewOutput}, f.notifier.seen[0].actions)

	entry, err := f.status.Get(projectID)
	require.NoError(t, err)
	assert.Equal(t, status.PhaseFailed, entry.Phase)
}

func TestInstallRetryAction(t *testing.T) {
	f := newFixture()
	f.installer.outcomes = []installer.Outcome{
		{Success: false, ExitCode: util.Ptr(2)},
		{Success: true, ExitCode: util.Ptr(0)},
	}
	f.notifier.responses = []string{ActionRetry}

	run := f.install(Request{ClientID: "windsurf"})

	assert.Len(t, f.installer.calls, 2)
	assert.Equal(t, 1, f.verifier.verifyCalls)
	assert.Equal(t, []string{"windsurf"}, f.chat.clients)
	assert.Equal(t, ChatOpened, run.Outcome)
	assert.Equal(t, []string{"Installation failed with exit code 2"}, f.rec.failures)
}

func TestInstallViewOutputAction(t *testing.T) {
	f := newFixture()
	f.installer.outcomes = []installer.Outcome{{Success: false, Err: installer.CancelledMessage}}
	f.notifier.responses = []string{ActionViewOutput}

	run := f.install(Request{ClientID: "codex"})

	require.Len(t, f.terminals.created, 1)
	assert.Equal(t, 1, f.terminals.created[0].shown)
	assert.Equal(t, "Onboard: Codex", f.terminals.created[0].name)
	assert.Same(t, f.terminals.created[0], run.Terminal)
	assert.Equal(t, []string{installer.CancelledMessage}, f.rec.failures)
	assert.Len(t, f.installer.calls, 1)
}

func TestInstallClientPickCancelled(t *testing.T) {
	f := newFixture()
	f.picker.client, f.picker.clientOK = "cursor", false

	run := f.install(Request{})

	assert.Equal(t, 1, f.picker.clientPicks)
	assert.Empty(t, f.rec.transitions)
	assert.Empty(t, f.rec.events)
	assert.Empty(t, f.installer.calls)
	assert.Empty(t, f.notifier.seen)
	assert.ErrorIs(t, run.Err, ErrCancelled)
	assert.Equal(t, Idle, run.State)
}

func TestInstallUnknownClient(t *testing.T) {
	f := newFixture()

	run := f.install(Request{ClientID: "notepad"})

	require.Error(t, run.Err)
	assert.Contains(t, run.Err.Error(), "unsupported client: notepad")
	assert.Len(t, f.rec.failures, 1)
	assert.Empty(t, f.installer.calls)
}

func TestInstallWorkspaceResolution(t *testing.T) {
	tests := []struct {
		name       string
		client     string
		folders    []string
		pick       string
		pickOK     bool
		wantPath   string
		wantPicks  int
		wantCancel bool
	}{
		{name: "no folders falls back to home", client: "cursor", wantPath: "/home/dev"},
		{name: "single folder", client: "kiro", folders: []string{"/work/one"}, wantPath: "/work/one"},
		{name: "multiple folders picks", client: "claude-code", folders: []string{"/a", "/b"}, pick: "/b", pickOK: true, wantPath: "/b", wantPicks: 1},
		{name: "multiple folders cancelled", client: "vscode", folders: []string{"/a", "/b"}, wantPicks: 1, wantCancel: true},
		{name: "global client ignores folders", client: "windsurf", folders: []string{"/a", "/b"}, wantPath: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.picker.folder, f.picker.folderOK = tt.pick, tt.pickOK

			run := f.install(Request{ClientID: tt.client, WorkspaceFolders: tt.folders})

			assert.Equal(t, tt.wantPicks, f.picker.folderPicks)
			if tt.wantCancel {
				assert.ErrorIs(t, run.Err, ErrCancelled)
				assert.Empty(t, f.installer.calls)
				assert.NotContains(t, f.rec.events, "starting")
				assert.Equal(t, []State{ClientSelected, Idle}, f.rec.transitions)
				return
			}
			assert.Equal(t, tt.wantPath, run.WorkspacePath)
			require.Len(t, f.installer.calls, 1)
			assert.Equal(t, tt.wantPath, f.installer.calls[0].WorkspacePath)
		})
	}
}

func TestInstallTerminalClientRunsInPickedFolder(t *testing.T) {
	f := newFixture()
	f.orch.Chat = &chat.Opener{Registry: clients.Default(), Terminals: f.terminals}
	f.picker.folder, f.picker.folderOK = "/work/second", true

	run := f.install(Request{ClientID: "claude-code", WorkspaceFolders: []string{"/work/first", "/work/second"}})

	require.NoError(t, run.Err)
	assert.Equal(t, chat.MethodTerminal, run.Chat.Method)
	require.Len(t, f.installer.calls, 1)
	assert.Equal(t, "/work/second", f.installer.calls[0].WorkspacePath)
	require.Len(t, f.terminals.created, 1)
	assert.Equal(t, "/work/second", f.terminals.created[0].dir)
	assert.Equal(t, []string{`claude "` + welcome + `"`}, f.terminals.created[0].sent)
}

func TestInstallVerificationFailureNeverOpensChat(t *testing.T) {
	f := newFixture()
	f.verifier.verifyOutcome = verify.Outcome{Err: errors.New("401 unauthorized"), Attempts: verify.MaxAttempts}

	run := f.install(Request{ClientID: "cursor", WorkspaceFolders: []string{"/w"}})

	assert.Empty(t, f.chat.clients)
	assert.Equal(t, VerificationFailed, run.Outcome)
	assert.Equal(t, []string{"401 unauthorized"}, f.rec.failures)
	assert.Equal(t, 0, f.verifier.retryCalls)

	require.Len(t, f.notifier.seen, 1)
	assert.Equal(t, []string{ActionRetryVerification}, f.notifier.seen[0].actions)
	assert.Contains(t, f.notifier.seen[0].message, "401 unauthorized")

	entry, err := f.status.Get(projectID)
	require.NoError(t, err)
	assert.Equal(t, status.PhaseFailed, entry.Phase)
}

func TestInstallRetryVerificationAction(t *testing.T) {
	f := newFixture()
	f.verifier.verifyOutcome = verify.Outcome{Err: errors.New("connection refused")}
	f.verifier.retryOutcome = verify.Outcome{Tools: []string{"search_docs"}}
	f.notifier.responses = []string{ActionRetryVerification}

	run := f.install(Request{ClientID: "gemini-cli", Prompt: "custom prompt"})

	assert.Equal(t, 1, f.verifier.verifyCalls)
	assert.Equal(t, 1, f.verifier.retryCalls)
	assert.Equal(t, []string{"gemini-cli"}, f.chat.clients)
	assert.Equal(t, []string{"custom prompt"}, f.chat.prompts)
	assert.Equal(t, ChatOpened, run.Outcome)
	assert.Equal(t, []string{"search_docs"}, run.Tools)
	assert.Same(t, f.terminals.created[0], f.chat.opts[0].Terminal)
}

func TestRetryVerificationDirect(t *testing.T) {
	f := newFixture()
	f.verifier.retryOutcome = verify.Outcome{Tools: []string{"a"}}
	run := &Run{
		ID:          "run-9",
		ProjectID:   projectID,
		Client:      clients.Profile{ID: "cursor", Name: "Cursor"},
		Credentials: Credentials{APIKey: apiKey, BaseURL: baseURL},
	}

	f.orch.RetryVerification(context.Background(), run, Request{ProjectID: projectID, Callbacks: f.rec.callbacks()})

	assert.Equal(t, []State{Verifying, Verified, ChatOpened, Idle}, f.rec.transitions)
	assert.Equal(t, []string{"verifying:" + projectID, "verified:" + projectID}, f.rec.events)
}

func TestInstallChatFailureReported(t *testing.T) {
	f := newFixture()
	f.chat.result = chat.Result{Success: false, Method: chat.MethodCommand, Error: "command not found"}

	run := f.install(Request{ClientID: "cursor"})

	assert.Equal(t, ChatOpened, run.Outcome)
	assert.Equal(t, []string{"command not found"}, f.rec.failures)
	assert.Contains(t, f.rec.events, "verified:"+projectID)
}

func TestInstallCredentialsError(t *testing.T) {
	f := newFixture()
	f.orch.Credentials = fakeCredentials{err: errors.New("not logged in")}

	run := f.install(Request{ClientID: "cursor"})

	require.Len(t, f.rec.failures, 1)
	assert.Contains(t, f.rec.failures[0], "not logged in")
	assert.Empty(t, f.installer.calls)
	assert.Equal(t, WorkspaceResolved, run.Outcome)
}

func TestInstallBeforeInstallError(t *testing.T) {
	f := newFixture()
	f.orch.BeforeInstall = func(context.Context, *Run) error { return errors.New("backup failed") }

	f.install(Request{ClientID: "cursor"})

	assert.Equal(t, []string{"backup failed"}, f.rec.failures)
	assert.Empty(t, f.installer.calls)
}

func TestInstallRecoversPanic(t *testing.T) {
	f := newFixture()
	f.installer.panics = true

	var run *Run
	require.NotPanics(t, func() {
		run = f.install(Request{ClientID: "cursor"})
	})

	require.Len(t, f.rec.failures, 1)
	assert.Contains(t, f.rec.failures[0], "installer exploded")
	assert.Equal(t, Idle, run.State)
	require.NotEmpty(t, f.notifier.seen)
	assert.Equal(t, chat.LevelError, f.notifier.seen[len(f.notifier.seen)-1].level)
}

func TestInstallResetsStaleStatus(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.status.Reset(projectID, "old-run", "windsurf"))
	require.NoError(t, f.status.SetFailed(projectID, "old failure"))

	var seenDuringInstall status.Entry
	f.orch.Installer = installerFunc(func(context.Context, installer.Request) installer.Outcome {
		seenDuringInstall, _ = f.status.Get(projectID)
		return installer.Outcome{Success: true, ExitCode: util.Ptr(0)}
	})

	f.install(Request{ClientID: "cursor"})

	assert.Equal(t, status.PhaseInstalling, seenDuringInstall.Phase)
	assert.Empty(t, seenDuringInstall.Error)
	assert.Equal(t, "run-1", seenDuringInstall.RunID)
}

type installerFunc func(context.Context, installer.Request) installer.Outcome

func (f installerFunc) Run(ctx context.Context, req installer.Request) installer.Outcome {
	return f(ctx, req)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "install-failed", InstallFailed.String())
	assert.Equal(t, "unknown", State(99).String())

	text, err := ChatOpened.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "chat-opened", string(text))

	var s State
	require.NoError(t, s.UnmarshalText([]byte("verification-failed")))
	assert.Equal(t, VerificationFailed, s)
	assert.Error(t, s.UnmarshalText([]byte("bogus")))
}
