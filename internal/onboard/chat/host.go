package chat

import (
	"context"
	"time"
)

// PasteCommand is the generic host command that pastes the clipboard into
// the focused input.
const PasteCommand = "editor.action.clipboardPasteAction"

//go:generate go tool mockgen -destination=mocks/mock_host.go -package=mocks . Commands,Clipboard,Terminals,Terminal,Notifier,Sleeper

// Query is the structured payload passed to DirectInvoke commands.
type Query struct {
	Query          string `json:"query"`
	IsPartialQuery bool   `json:"isPartialQuery"`
}

// Commands invokes named host commands and reads UI-state flags.
type Commands interface {
	ExecuteCommand(ctx context.Context, name string, args ...any) error
	QueryContext(ctx context.Context, key string) (bool, error)
}

// Clipboard is the single shared clipboard slot.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// Terminal is an interactive terminal that accepts input lines.
type Terminal interface {
	Name() string
	Show()
	SendText(text string) error
}

// Terminals creates labelled terminals. An empty dir uses the host default.
type Terminals interface {
	CreateTerminal(name, dir string) (Terminal, error)
}

// Level is the severity of a notification.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notifier shows a message with optional actions and returns the action the
// user picked, or "" when none was picked.
type Notifier interface {
	Notify(ctx context.Context, level Level, message string, actions ...string) string
}

// Sleeper waits for d. It exists so tests can observe delays without
// sleeping.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// TimerSleeper sleeps on a real timer and returns early if ctx is done.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
