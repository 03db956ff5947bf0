package hostcli

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	"github.com/onboardhq/onboard-cli/internal/onboard/config"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
)

// QueryPlaceholder is replaced with the escaped prompt in command URLs.
const QueryPlaceholder = "{{query}}"

// ErrCommandNotBound is returned for commands without a URL binding.
var ErrCommandNotBound = errors.New("command is not bound")

// Commands runs host commands by opening their configured URL and answers
// context-key probes from a fixed set.
type Commands struct {
	bindings    map[string]string
	contextKeys map[string]bool
	// open can be overridden for testing
	open func(url string) error
}

// NewCommands builds Commands from the configured bindings and context keys.
func NewCommands(bindings []config.CommandBinding, contextKeys []string) *Commands {
	c := &Commands{
		bindings:    make(map[string]string, len(bindings)),
		contextKeys: make(map[string]bool, len(contextKeys)),
		open:        openURL,
	}
	for _, b := range bindings {
		c.bindings[b.Name] = b.URL
	}
	for _, key := range contextKeys {
		c.contextKeys[key] = true
	}
	return c
}

// ExecuteCommand opens the URL bound to name. A chat.Query argument fills
// the query placeholder.
func (c *Commands) ExecuteCommand(_ context.Context, name string, args ...any) error {
	template, ok := c.bindings[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCommandNotBound, name)
	}

	target := expandQuery(template, args)
	logging.Debug("Executing command", zap.String("command", name), zap.String("url", target))

	if err := c.open(target); err != nil {
		return fmt.Errorf("failed to run command %s: %w", name, err)
	}
	return nil
}

// QueryContext reports whether key is one of the configured context keys.
func (c *Commands) QueryContext(_ context.Context, key string) (bool, error) {
	return c.contextKeys[key], nil
}

func expandQuery(template string, args []any) string {
	query := ""
	for _, arg := range args {
		switch v := arg.(type) {
		case chat.Query:
			query = v.Query
		case string:
			query = v
		}
	}
	return strings.ReplaceAll(template, QueryPlaceholder, url.QueryEscape(query))
}

func openURL(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", strings.ReplaceAll(target, "&", "^&"))
	case "darwin":
		cmd = exec.Command("open", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}

	return cmd.Start()
}
