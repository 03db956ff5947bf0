package clients

import (
	"errors"
	"time"
)

// DefaultPasteDelay is the wait between surfacing a chat panel and pasting
// into it when a ClipboardPaste strategy does not set its own delay.
const DefaultPasteDelay = 150 * time.Millisecond

// Strategy is the technique used to deliver a prompt into a client's chat
// surface. It is a closed set: only the types in this file implement it.
type Strategy interface {
	// Kind returns a short stable name for logs and output.
	Kind() string

	validate() error
}

// DirectInvoke passes the prompt as a structured parameter to a host command.
type DirectInvoke struct {
	CommandName string
}

// ClipboardPaste copies the prompt, surfaces the chat panel with CommandName
// (skipped when the SkipProbeKey context flag is already true), waits
// PasteDelay and then pastes.
type ClipboardPaste struct {
	CommandName  string
	PasteDelay   time.Duration
	SkipProbeKey string
}

// Delay returns the configured paste delay or DefaultPasteDelay.
func (s ClipboardPaste) Delay() time.Duration {
	if s.PasteDelay <= 0 {
		return DefaultPasteDelay
	}
	return s.PasteDelay
}

// ClipboardOnly copies the prompt and asks the user to paste it.
type ClipboardOnly struct{}

// TerminalSend runs TerminalCommand with the prompt as its only argument.
type TerminalSend struct {
	TerminalCommand string
}

// None means the client has no chat integration.
type None struct{}

func (DirectInvoke) Kind() string   { return "direct-invoke" }
func (ClipboardPaste) Kind() string { return "clipboard-paste" }
func (ClipboardOnly) Kind() string  { return "clipboard-only" }
func (TerminalSend) Kind() string   { return "terminal-send" }
func (None) Kind() string           { return "none" }

func (s DirectInvoke) validate() error {
	if s.CommandName == "" {
		return errors.New("direct invoke requires a command name")
	}
	return nil
}

func (s ClipboardPaste) validate() error {
	if s.CommandName == "" {
		return errors.New("clipboard paste requires a command name")
	}
	if s.PasteDelay < 0 {
		return errors.New("clipboard paste delay must not be negative")
	}
	return nil
}

func (ClipboardOnly) validate() error { return nil }

func (s TerminalSend) validate() error {
	if s.TerminalCommand == "" {
		return errors.New("terminal send requires a terminal command")
	}
	return nil
}

func (None) validate() error { return nil }
