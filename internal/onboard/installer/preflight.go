package installer

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cli/safeexec"
	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
)

const versionProbeTimeout = 30 * time.Second

var versionPattern = regexp.MustCompile(`v?\d+\.\d+\.\d+(?:-[0-9A-Za-z.-]+)?`)

// PreflightResult describes the installer found on this machine.
type PreflightResult struct {
	Path    string `json:"path"`
	Version string `json:"version,omitempty"`
}

// lookPath can be overridden in tests
var lookPath = safeexec.LookPath

// Preflight checks that the installer binary exists and, when MinVersion is
// set, that it reports a version at least that new.
func (r *Runner) Preflight(ctx context.Context) (*PreflightResult, error) {
	if len(r.Command) == 0 {
		return nil, fmt.Errorf("no installer command configured")
	}

	path, err := lookPath(r.Command[0])
	if err != nil {
		return nil, fmt.Errorf("installer %q not found in PATH: %w", r.Command[0], err)
	}
	result := &PreflightResult{Path: path}

	if r.MinVersion == "" {
		return result, nil
	}

	minVersion, err := semver.NewVersion(r.MinVersion)
	if err != nil {
		return nil, fmt.Errorf("invalid installer_min_version %q: %w", r.MinVersion, err)
	}

	ctx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	args := append(append([]string{}, r.Command[1:]...), "--version")
	output, err := exec.CommandContext(ctx, path, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("failed to query installer version: %w", err)
	}

	version, err := parseVersion(string(output))
	if err != nil {
		return nil, err
	}
	result.Version = version.String()

	logging.Debug("Installer preflight",
		zap.String("path", path),
		zap.String("version", result.Version),
		zap.String("min_version", minVersion.String()),
	)

	if version.LessThan(minVersion) {
		return result, fmt.Errorf("installer version %s is older than the required %s", version, minVersion)
	}
	return result, nil
}

// parseVersion extracts the first semantic version from installer output,
// which may include a banner or npm notices.
func parseVersion(output string) (*semver.Version, error) {
	match := versionPattern.FindString(output)
	if match == "" {
		return nil, fmt.Errorf("could not find a version in installer output: %q", strings.TrimSpace(output))
	}
	return semver.NewVersion(match)
}
