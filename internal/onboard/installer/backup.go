package installer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
	"github.com/onboardhq/onboard-cli/internal/onboard/logging"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

// FindConfigFile returns the first existing config file of profile.
// Relative paths are resolved against workspace.
func FindConfigFile(profile clients.Profile, workspace string) (string, bool) {
	for _, path := range profile.ConfigPaths {
		expanded := util.ResolvePath(workspace, path)
		if _, err := os.Stat(expanded); err == nil {
			logging.Debug("Found existing client config", zap.String("path", expanded))
			return expanded, true
		}
	}
	return "", false
}

// BackupConfig copies configPath to configPath.backup.<unix seconds> and
// returns the backup path. A missing file needs no backup and returns "".
func BackupConfig(configPath string, now time.Time) (string, error) {
	data, err := os.ReadFile(configPath)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Debug("No existing configuration file found, skipping backup")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read original config file: %w", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat config file: %w", err)
	}

	backupPath := fmt.Sprintf("%s.backup.%d", configPath, now.Unix())
	if err := os.WriteFile(backupPath, data, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("failed to write backup file: %w", err)
	}

	logging.Info("Created configuration backup", zap.String("backup_path", backupPath))
	return backupPath, nil
}
