package installer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
)

func stubLookPath(t *testing.T) {
	t.Helper()
	original := lookPath
	lookPath = func(file string) (string, error) { return file, nil }
	t.Cleanup(func() { lookPath = original })
}

func TestPreflight(t *testing.T) {
	stubLookPath(t)

	tests := []struct {
		name        string
		minVersion  string
		wantVersion string
		wantErr     string
	}{
		{name: "no minimum", minVersion: ""},
		{name: "satisfied", minVersion: "1.2.0", wantVersion: "1.4.2"},
		{name: "equal", minVersion: "1.4.2", wantVersion: "1.4.2"},
		{name: "too old", minVersion: "2.0.0", wantVersion: "1.4.2", wantErr: "installer version 1.4.2 is older than the required 2.0.0"},
		{name: "bad minimum", minVersion: "latest", wantErr: `invalid installer_min_version "latest"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := helperRunner(t, "version")
			r.MinVersion = tt.minVersion
			// Preflight does not pass Runner.Env, so the helper mode comes from the environment
			t.Setenv("ONBOARD_WANT_HELPER_PROCESS", "1")
			t.Setenv("ONBOARD_HELPER_MODE", "version")

			result, err := r.Preflight(context.Background())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, os.Args[0], result.Path)
			assert.Equal(t, tt.wantVersion, result.Version)
		})
	}
}

func TestPreflightMissingBinary(t *testing.T) {
	original := lookPath
	lookPath = func(string) (string, error) { return "", errors.New("not found") }
	t.Cleanup(func() { lookPath = original })

	_, err := (&Runner{Command: []string{"npx"}}).Preflight(context.Background())
	assert.EqualError(t, err, `installer "npx" not found in PATH: not found`)
}

func TestParseVersion(t *testing.T) {
	v, err := parseVersion("npm warn exec\nv0.9.1-beta.2\n")
	require.NoError(t, err)
	assert.Equal(t, "0.9.1-beta.2", v.String())

	_, err = parseVersion("unknown")
	assert.Error(t, err)
}

func TestBackupConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "mcp.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"mcpServers":{}}`), 0600))

	now := time.Unix(1700000000, 0)
	backupPath, err := BackupConfig(configPath, now)
	require.NoError(t, err)
	assert.Equal(t, configPath+".backup.1700000000", backupPath)

	data, err := os.ReadFile(backupPath)
	require.NoError(t, err)
	assert.Equal(t, `{"mcpServers":{}}`, string(data))

	info, err := os.Stat(backupPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestBackupConfigMissingFile(t *testing.T) {
	backupPath, err := BackupConfig(filepath.Join(t.TempDir(), "absent.json"), time.Now())
	require.NoError(t, err)
	assert.Empty(t, backupPath)
}

func TestFindConfigFile(t *testing.T) {
	workspace := t.TempDir()
	profile := clients.Profile{
		ID:          "x",
		ConfigPaths: []string{".first/mcp.json", ".second/mcp.json"},
	}

	_, ok := FindConfigFile(profile, workspace)
	assert.False(t, ok)

	second := filepath.Join(workspace, ".second", "mcp.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(second), 0755))
	require.NoError(t, os.WriteFile(second, []byte("{}"), 0644))

	path, ok := FindConfigFile(profile, workspace)
	assert.True(t, ok)
	assert.Equal(t, second, path)
}
