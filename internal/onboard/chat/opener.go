// Package chat opens a client's chat surface and delivers a prompt to it.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
)

// ProbeSkipDelay replaces the paste delay when the chat input is already
// focused.
const ProbeSkipDelay = 50 * time.Millisecond

// Method is the technique that delivered (or tried to deliver) the prompt.
type Method string

const (
	MethodCommand   Method = "command"
	MethodClipboard Method = "clipboard"
	MethodTerminal  Method = "terminal"
	MethodNone      Method = "none"
)

// Degradation names why a successful result did not complete every step.
// The prompt is on the clipboard in every degraded case.
type Degradation string

const (
	NotDegraded       Degradation = ""
	OpenCommandFailed Degradation = "open-command-failed"
	PasteFailed       Degradation = "paste-failed"
)

// Result is the outcome of TryOpen.
type Result struct {
	Success  bool        `json:"success" yaml:"success"`
	Method   Method      `json:"method" yaml:"method"`
	Degraded Degradation `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	Error    string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// IsDegraded reports whether the prompt was delivered only partially.
func (r Result) IsDegraded() bool {
	return r.Success && r.Degraded != NotDegraded
}

// Options tunes a single TryOpen call.
type Options struct {
	// Terminal is reused for TerminalSend strategies so the command appears
	// next to the installer output.
	Terminal Terminal
	// Dir is the working directory of a terminal created by the opener.
	// Empty means the host default.
	Dir string
}

// Opener dispatches on a client's Strategy. Every host capability must be
// set except Sleeper, which defaults to TimerSleeper.
type Opener struct {
	Registry  *clients.Registry
	Commands  Commands
	Clipboard Clipboard
	Terminals Terminals
	Notifier  Notifier
	Sleeper   Sleeper
}

// TryOpen delivers prompt to the chat surface of clientID. It never panics;
// failures are reported in the Result.
func (o *Opener) TryOpen(ctx context.Context, clientID, prompt string, opts Options) (result Result) {
	var profile clients.Profile
	defer func() {
		if r := recover(); r != nil {
			logging.Error("Chat opening panicked",
				zap.String("client", clientID),
				zap.Any("panic", r),
			)
			result = Result{
				Success: false,
				Method:  methodFor(profile.Strategy),
				Error:   fmt.Sprintf("unexpected error opening chat: %v", r),
			}
		}
	}()

	profile, ok := o.Registry.Lookup(clientID)
	if !ok {
		logging.Debug("No chat integration for unknown client", zap.String("client", clientID))
		return Result{Success: true, Method: MethodNone}
	}

	logging.Debug("Opening chat",
		zap.String("client", profile.ID),
		zap.String("strategy", profile.Strategy.Kind()),
	)

	switch s := profile.Strategy.(type) {
	case clients.DirectInvoke:
		return o.directInvoke(ctx, s, prompt)
	case clients.ClipboardPaste:
		return o.clipboardPaste(ctx, profile, s, prompt)
	case clients.ClipboardOnly:
		return o.clipboardOnly(ctx, profile, prompt)
	case clients.TerminalSend:
		return o.terminalSend(profile, s, prompt, opts)
	default:
		return Result{Success: true, Method: MethodNone}
	}
}

func (o *Opener) directInvoke(ctx context.Context, s clients.DirectInvoke, prompt string) Result {
	err := o.Commands.ExecuteCommand(ctx, s.CommandName, Query{Query: prompt, IsPartialQuery: true})
	if err != nil {
		logging.Warn("Chat command failed", zap.String("command", s.CommandName), zap.Error(err))
		return Result{Success: false, Method: MethodCommand, Error: err.Error()}
	}
	return Result{Success: true, Method: MethodCommand}
}

func (o *Opener) clipboardPaste(ctx context.Context, profile clients.Profile, s clients.ClipboardPaste, prompt string) Result {
	if err := o.Clipboard.WriteText(ctx, prompt); err != nil {
		return clipboardFailure(err)
	}

	delay := s.Delay()
	focused := false
	if s.SkipProbeKey != "" {
		v, err := o.Commands.QueryContext(ctx, s.SkipProbeKey)
		if err != nil {
			logging.Debug("Context probe failed", zap.String("key", s.SkipProbeKey), zap.Error(err))
		}
		focused = err == nil && v
	}

	if focused {
		delay = ProbeSkipDelay
	} else if err := o.Commands.ExecuteCommand(ctx, s.CommandName); err != nil {
		logging.Warn("Open chat command failed", zap.String("command", s.CommandName), zap.Error(err))
		o.notifyManualPaste(ctx, profile)
		return Result{Success: true, Method: MethodClipboard, Degraded: OpenCommandFailed}
	}

	o.sleep(ctx, delay)

	if err := o.Commands.ExecuteCommand(ctx, PasteCommand); err != nil {
		logging.Warn("Paste command failed", zap.Error(err))
		o.notifyManualPaste(ctx, profile)
		return Result{Success: true, Method: MethodClipboard, Degraded: PasteFailed}
	}
	return Result{Success: true, Method: MethodClipboard}
}

func (o *Opener) clipboardOnly(ctx context.Context, profile clients.Profile, prompt string) Result {
	if err := o.Clipboard.WriteText(ctx, prompt); err != nil {
		return clipboardFailure(err)
	}
	o.notifyManualPaste(ctx, profile)
	return Result{Success: true, Method: MethodClipboard}
}

func (o *Opener) terminalSend(profile clients.Profile, s clients.TerminalSend, prompt string, opts Options) Result {
	terminal := opts.Terminal
	if terminal == nil {
		t, err := o.Terminals.CreateTerminal(profile.Name, opts.Dir)
		if err != nil {
			return Result{Success: false, Method: MethodTerminal, Error: fmt.Sprintf("failed to create terminal: %v", err)}
		}
		terminal = t
	}

	terminal.Show()
	if err := terminal.SendText(TerminalCommandLine(s.TerminalCommand, prompt)); err != nil {
		// Submission is not observed for success.
		logging.Debug("Terminal send failed", zap.String("terminal", terminal.Name()), zap.Error(err))
	}
	return Result{Success: true, Method: MethodTerminal}
}

func (o *Opener) notifyManualPaste(ctx context.Context, profile clients.Profile) {
	if o.Notifier == nil {
		return
	}
	o.Notifier.Notify(ctx, LevelInfo,
		fmt.Sprintf("Welcome prompt copied to clipboard. Paste it into the %s chat to get started.", profile.Name))
}

func (o *Opener) sleep(ctx context.Context, d time.Duration) {
	if o.Sleeper == nil {
		TimerSleeper{}.Sleep(ctx, d)
		return
	}
	o.Sleeper.Sleep(ctx, d)
}

// TerminalCommandLine builds `<command> "<prompt>"` with every double quote
// in prompt escaped. Nothing else is escaped.
func TerminalCommandLine(command, prompt string) string {
	return command + ` "` + strings.ReplaceAll(prompt, `"`, `\"`) + `"`
}

func clipboardFailure(err error) Result {
	logging.Warn("Clipboard write failed", zap.Error(err))
	return Result{Success: false, Method: MethodClipboard, Error: fmt.Sprintf("failed to copy prompt to clipboard: %v", err)}
}

func methodFor(s clients.Strategy) Method {
	switch s.(type) {
	case clients.DirectInvoke:
		return MethodCommand
	case clients.ClipboardPaste, clients.ClipboardOnly:
		return MethodClipboard
	case clients.TerminalSend:
		return MethodTerminal
	default:
		return MethodNone
	}
}
