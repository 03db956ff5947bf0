package hostcli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	gopty "github.com/aymanbagabas/go-pty"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
)

const (
	defaultCols = 120
	defaultRows = 32
)

// Terminals creates shell terminals that share the process stdout.
type Terminals struct {
	// Dir is the working directory of spawned shells.
	Dir string
	// Shell overrides the detected login shell.
	Shell string
	Out   io.Writer
	In    *os.File
}

// CreateTerminal returns a terminal whose shell starts in dir, or in t.Dir
// when dir is empty.
func (t *Terminals) CreateTerminal(name, dir string) (chat.Terminal, error) {
	if dir == "" {
		dir = t.Dir
	}
	out := t.Out
	if out == nil {
		out = os.Stdout
	}
	in := t.In
	if in == nil {
		in = os.Stdin
	}
	shell := t.Shell
	if shell == "" {
		shell = defaultShell()
	}
	return &Terminal{name: name, dir: dir, shell: shell, out: out, in: in}, nil
}

// Terminal echoes writes to the output and runs a pseudo-terminal shell the
// first time text is sent to it.
type Terminal struct {
	name  string
	dir   string
	shell string
	out   io.Writer
	in    *os.File

	mu     sync.Mutex
	shown  bool
	pty    gopty.Pty
	cmd    *gopty.Cmd
	copied chan struct{}
}

func (t *Terminal) Name() string {
	return t.name
}

// Show prints the terminal header once.
func (t *Terminal) Show() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.shown {
		return
	}
	t.shown = true
	fmt.Fprintf(t.out, "\n── %s ──\n", t.name)
}

// Write echoes installer output.
func (t *Terminal) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.out.Write(p)
}

// SendText starts the shell if needed and submits text as one input line.
func (t *Terminal) SendText(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.startLocked(); err != nil {
		return err
	}
	_, err := t.pty.Write([]byte(text + "\r"))
	return err
}

// Started reports whether the shell is running.
func (t *Terminal) Started() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cmd != nil
}

func (t *Terminal) startLocked() error {
	if t.cmd != nil {
		return nil
	}

	p, err := gopty.New()
	if err != nil {
		return fmt.Errorf("failed to open pseudo-terminal: %w", err)
	}

	cols, rows := defaultCols, defaultRows
	if w, h, err := term.GetSize(int(t.in.Fd())); err == nil {
		cols, rows = w, h
	}
	if err := p.Resize(cols, rows); err != nil {
		p.Close()
		return fmt.Errorf("failed to size pseudo-terminal: %w", err)
	}

	cmd := p.Command(t.shell)
	cmd.Dir = t.dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	if err := cmd.Start(); err != nil {
		p.Close()
		return fmt.Errorf("failed to start shell %s: %w", t.shell, err)
	}
	logging.Debug("Started terminal shell", zap.String("terminal", t.name), zap.String("shell", t.shell))

	t.pty = p
	t.cmd = cmd
	t.copied = make(chan struct{})
	go func() {
		defer close(t.copied)
		// Output ends with an error once the shell exits and the pty closes.
		_, _ = io.Copy(t.out, p)
	}()
	return nil
}

// Wait attaches stdin to the shell and blocks until the shell exits or ctx
// is done. It returns immediately when the shell was never started.
func (t *Terminal) Wait(ctx context.Context) error {
	t.mu.Lock()
	p, cmd, copied := t.pty, t.cmd, t.copied
	t.mu.Unlock()
	if cmd == nil {
		return nil
	}
	defer p.Close()

	if term.IsTerminal(int(t.in.Fd())) {
		state, err := term.MakeRaw(int(t.in.Fd()))
		if err != nil {
			return fmt.Errorf("failed to set terminal raw mode: %w", err)
		}
		defer func() {
			if err := term.Restore(int(t.in.Fd()), state); err != nil {
				logging.Debug("Failed to restore terminal", zap.Error(err))
			}
		}()
	}

	go func() {
		_, _ = io.Copy(p, t.in)
	}()

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		p.Close()
		<-copied
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			// The user's last shell command decides the exit status; not ours.
			return nil
		}
		return err
	case <-ctx.Done():
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return ctx.Err()
	}
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}
	if shell := os.Getenv("SHELL"); shell != "" {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	for _, shell := range []string{"/bin/zsh", "/bin/bash", "/bin/sh"} {
		if _, err := os.Stat(shell); err == nil {
			return shell
		}
	}
	return "/bin/sh"
}
