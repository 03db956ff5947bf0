// Package verify confirms that a freshly installed MCP server is reachable
// and lists its tools.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
)

const (
	// MaxAttempts bounds one verification cycle.
	MaxAttempts = 3
	// Delay is the fixed pause between attempts. The backend may need a few
	// seconds to pick up a newly written configuration.
	Delay = 2 * time.Second
)

// ErrNoTools is returned by backends that answer with an empty tool list.
var ErrNoTools = errors.New("server returned no tools")

//go:generate go tool mockgen -destination=mocks/mock_backend.go -package=mocks . Backend

// Backend lists the tools of the server configured for apiKey at baseURL.
type Backend interface {
	ListTools(ctx context.Context, apiKey, baseURL string) ([]string, error)
}

// Callbacks receive verification progress. All fields are optional.
type Callbacks struct {
	// OnVerifying is called once when a cycle starts.
	OnVerifying func()
	// OnVerified is called once with a non-empty tool list.
	OnVerified func(tools []string)
	// OnFailed is called once, after the last attempt, with its error.
	OnFailed func(err error)
}

// Outcome is the terminal result of one verification cycle: either Tools is
// non-empty or Err is set.
type Outcome struct {
	Tools    []string
	Err      error
	Attempts int
}

// Poller retries Backend.ListTools a bounded number of times.
type Poller struct {
	Backend     Backend
	MaxAttempts int
	Delay       time.Duration

	// sleep waits between attempts; tests replace it
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPoller returns a Poller using the standard attempt count and delay.
func NewPoller(backend Backend) *Poller {
	return &Poller{
		Backend:     backend,
		MaxAttempts: MaxAttempts,
		Delay:       Delay,
		sleep:       sleepContext,
	}
}

// Verify runs one verification cycle and reports through cb. The returned
// Outcome mirrors what was reported.
func (p *Poller) Verify(ctx context.Context, apiKey, baseURL string, cb Callbacks) Outcome {
	if cb.OnVerifying != nil {
		cb.OnVerifying()
	}

	outcome := p.poll(ctx, apiKey, baseURL)
	if outcome.Err != nil {
		logging.Warn("Verification failed",
			zap.Int("attempts", outcome.Attempts),
			zap.Error(outcome.Err),
		)
		if cb.OnFailed != nil {
			cb.OnFailed(outcome.Err)
		}
		return outcome
	}

	logging.Info("Verification succeeded",
		zap.Int("attempts", outcome.Attempts),
		zap.Strings("tools", outcome.Tools),
	)
	if cb.OnVerified != nil {
		cb.OnVerified(outcome.Tools)
	}
	return outcome
}

// Retry is the user-triggered manual retry. It starts a fresh cycle from the
// first attempt with the same limits.
func (p *Poller) Retry(ctx context.Context, apiKey, baseURL string, cb Callbacks) Outcome {
	logging.Debug("Manual verification retry")
	return p.Verify(ctx, apiKey, baseURL, cb)
}

func (p *Poller) poll(ctx context.Context, apiKey, baseURL string) Outcome {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = MaxAttempts
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		tools, err := p.Backend.ListTools(ctx, apiKey, baseURL)
		if err == nil && len(tools) == 0 {
			err = ErrNoTools
		}
		if err == nil {
			return Outcome{Tools: tools, Attempts: attempt}
		}

		lastErr = err
		logging.Debug("Verification attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if attempt == attempts {
			break
		}
		if err := sleep(ctx, p.Delay); err != nil {
			return Outcome{Err: fmt.Errorf("verification interrupted: %w", err), Attempts: attempt}
		}
	}

	return Outcome{Err: lastErr, Attempts: attempts}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
