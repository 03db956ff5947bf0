package cmd

import (
	"encoding/json"
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/onboardhq/onboard-cli/internal/onboard/config"
)

func TestConfigShow_TableOutput(t *testing.T) {
	tmpDir := setupCmdTest(t, nil)

	configContent := `domain: test.example.com
project_id: test-project
output: table
backup: false
`
	require.NoError(t, os.WriteFile(config.GetConfigFile(tmpDir), []byte(configContent), 0644))

	output, err := executeConfigCommand("config", "show")
	require.NoError(t, err)
	lines := strings.Split(output, "\n")

	expectedLines := []string{
		"  domain:                test.example.com",
		"  project_id:            test-project",
		"  installer_command:     npx -y @onboardhq/mcp-installer@latest",
		"  installer_min_version: (not set)",
		"  env_api_key:           ONBOARD_API_KEY",
		"  verify_timeout:        10s",
		"  backup:                false",
		"  commands:              composer.newAgentChat, workbench.action.chat.open",
		"  context_keys:          (not set)",
		"  output:                table",
		"  debug:                 false",
		"  config_dir:            " + tmpDir,
	}
	for _, expected := range expectedLines {
		assert.True(t, slices.Contains(lines, expected), "output should contain line %q, got:\n%s", expected, output)
	}
}

func TestConfigShow_JSONOutput(t *testing.T) {
	tmpDir := setupCmdTest(t, map[string]any{
		"project_id": "json-project",
		"output":     "json",
	})

	output, err := executeConfigCommand("config", "show")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(output), &result))
	assert.Equal(t, "json-project", result["project_id"])
	assert.Equal(t, "json", result["output"])
	assert.Equal(t, config.DefaultDomain, result["domain"])
	assert.Equal(t, "10s", result["verify_timeout"])
	assert.Equal(t, tmpDir, result["config_dir"])
}

func TestConfigShow_YAMLOutput(t *testing.T) {
	setupCmdTest(t, map[string]any{
		"project_id": "yaml-project",
		"output":     "yaml",
	})

	output, err := executeConfigCommand("config", "show")
	require.NoError(t, err)

	var result map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(output), &result))
	assert.Equal(t, "yaml-project", result["project_id"])
	assert.Equal(t, true, result["backup"])
}

func TestConfigSet(t *testing.T) {
	tests := []struct {
		key      string
		value    string
		expected string
	}{
		{key: "project_id", value: "proj-9", expected: "project_id: proj-9"},
		{key: "output", value: "json", expected: "output: json"},
		{key: "backup", value: "false", expected: "backup: false"},
		{key: "domain", value: "api.example.com", expected: "domain: api.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			tmpDir := setupCmdTest(t, nil)

			output, err := executeConfigCommand("config", "set", tt.key, tt.value)
			require.NoError(t, err)
			assert.Equal(t, "Set "+tt.key+" = "+tt.value+"\n", output)

			data, err := os.ReadFile(config.GetConfigFile(tmpDir))
			require.NoError(t, err)
			assert.Contains(t, string(data), tt.expected)
		})
	}
}

func TestConfigSet_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		err   string
	}{
		{name: "unknown key", key: "nope", value: "x", err: "unknown configuration key: nope"},
		{name: "bad output", key: "output", value: "xml", err: "invalid output format"},
		{name: "bad bool", key: "backup", value: "maybe", err: "must be true or false"},
		{name: "bad duration", key: "verify_timeout", value: "soon", err: "must be a duration"},
		{name: "domain with path", key: "domain", value: "example.com/api", err: "bare host name"},
		{name: "commands", key: "commands", value: "x", err: "can only be edited in config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCmdTest(t, nil)

			_, err := executeConfigCommand("config", "set", tt.key, tt.value)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.err)
		})
	}
}

func TestConfigUnset(t *testing.T) {
	tmpDir := setupCmdTest(t, map[string]any{
		"project_id": "proj-1",
		"output":     "json",
	})

	output, err := executeConfigCommand("config", "unset", "output")
	require.NoError(t, err)
	assert.Equal(t, "Unset output\n", output)

	data, err := os.ReadFile(config.GetConfigFile(tmpDir))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "output")
	assert.Contains(t, string(data), "project_id: proj-1")
}

func TestConfigReset_KeepsProjectID(t *testing.T) {
	tmpDir := setupCmdTest(t, map[string]any{
		"project_id": "proj-1",
		"output":     "json",
		"backup":     false,
	})

	output, err := executeConfigCommand("config", "reset")
	require.NoError(t, err)
	assert.Equal(t, "Configuration reset to defaults\n", output)

	data, err := os.ReadFile(config.GetConfigFile(tmpDir))
	require.NoError(t, err)
	assert.Contains(t, string(data), "project_id: proj-1")
	assert.NotContains(t, string(data), "output")
	assert.NotContains(t, string(data), "backup")
}

func executeConfigCommand(args ...string) (string, error) {
	return executeCommand(args...)
}
