// Package installer supervises the external installer that writes a client's
// MCP configuration.
package installer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

// CancelledMessage is the error reported when a run is cancelled before the
// installer exits.
const CancelledMessage = "Installation cancelled"

// waitDelay bounds how long Wait keeps copying output after the installer
// exits while a descendant still holds its stdout or stderr open.
const waitDelay = 2 * time.Second

// Outcome is the result of one installer invocation.
type Outcome struct {
	Success bool `json:"success"`
	// ExitCode is nil when the process could not be started or was killed.
	ExitCode *int   `json:"exit_code,omitempty"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Err      string `json:"error,omitempty"`
}

// Message returns a human-readable failure description, or "" on success.
func (o Outcome) Message() string {
	switch {
	case o.Success:
		return ""
	case o.Err != "":
		return o.Err
	case o.ExitCode != nil:
		return fmt.Sprintf("Installation failed with exit code %d", *o.ExitCode)
	default:
		return "Installation failed"
	}
}

// Request describes one installation.
type Request struct {
	ClientID   string
	APIKey     string
	APIBaseURL string
	// WorkspacePath is the working directory for workspace-local clients.
	WorkspacePath string
	// Output receives raw stdout and stderr chunks as they arrive.
	Output io.Writer
}

// Runner launches the installer. The zero value is not usable; set Command.
type Runner struct {
	// Command is the installer argv prefix; client flags are appended to it.
	Command    []string
	EnvAPIKey  string
	EnvBaseURL string
	// MinVersion, when set, is enforced by Preflight.
	MinVersion string
	// Env is appended to the inherited process environment.
	Env []string
}

// Args returns the full installer argv for req.
func (r *Runner) Args(req Request) []string {
	args := make([]string, 0, len(r.Command)+7)
	args = append(args, r.Command...)
	return append(args,
		"--client", req.ClientID,
		"--env", fmt.Sprintf("%s=%s", r.EnvAPIKey, req.APIKey),
		"--env", fmt.Sprintf("%s=%s", r.EnvBaseURL, req.APIBaseURL),
		"-y",
	)
}

// Run starts the installer and blocks until it exits or ctx is cancelled.
// It always returns exactly one Outcome and never retries.
func (r *Runner) Run(ctx context.Context, req Request) Outcome {
	if len(r.Command) == 0 {
		return Outcome{Err: "no installer command configured"}
	}
	if ctx.Err() != nil {
		return Outcome{Err: CancelledMessage}
	}

	args := r.Args(req)
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = req.WorkspacePath
	cmd.Env = append(os.Environ(), r.Env...)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	if req.Output != nil {
		out := &syncWriter{w: req.Output}
		cmd.Stdout = io.MultiWriter(&stdout, out)
		cmd.Stderr = io.MultiWriter(&stderr, out)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	logging.Info("Starting installer",
		zap.String("client", req.ClientID),
		zap.String("command", args[0]),
		zap.String("workspace", req.WorkspacePath),
	)

	if err := cmd.Start(); err != nil {
		logging.Error("Failed to start installer", zap.Error(err))
		return Outcome{Err: err.Error()}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		if err := killProcess(cmd); err != nil {
			logging.Warn("Failed to kill installer", zap.Error(err))
		}
		<-done
		logging.Info("Installer cancelled", zap.String("client", req.ClientID))
		return Outcome{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
			Err:    CancelledMessage,
		}
	case err := <-done:
		outcome := Outcome{
			Stdout: stdout.String(),
			Stderr: stderr.String(),
		}
		if cmd.ProcessState != nil {
			if code := cmd.ProcessState.ExitCode(); code >= 0 {
				outcome.ExitCode = util.Ptr(code)
			}
		}
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			outcome.Err = err.Error()
		}
		outcome.Success = err == nil && outcome.ExitCode != nil && *outcome.ExitCode == 0

		logging.Info("Installer finished",
			zap.String("client", req.ClientID),
			zap.Bool("success", outcome.Success),
			zap.Intp("exit_code", outcome.ExitCode),
		)
		return outcome
	}
}

// syncWriter serializes writes from the stdout and stderr copy goroutines.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
