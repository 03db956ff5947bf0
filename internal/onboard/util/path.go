package util

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands environment variables and a leading tilde, then cleans
// the result. An empty path stays empty.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}

	expanded := os.ExpandEnv(path)

	if expanded == "~" {
		homeDir, _ := os.UserHomeDir()
		return homeDir
	}

	if strings.HasPrefix(expanded, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			expanded = filepath.Join(homeDir, expanded[2:])
		}
	}

	return filepath.Clean(expanded)
}

// ResolvePath expands path and, when it is still relative, anchors it at base.
// Workspace-local client config paths are stored relative to the workspace.
func ResolvePath(base, path string) string {
	expanded := ExpandPath(path)
	if expanded == "" || filepath.IsAbs(expanded) || base == "" {
		return expanded
	}
	return filepath.Join(base, expanded)
}
