package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

type Config struct {
	Domain              string           `mapstructure:"domain" yaml:"domain"`
	ProjectID           string           `mapstructure:"project_id" yaml:"project_id"`
	InstallerCommand    []string         `mapstructure:"installer_command" yaml:"installer_command"`
	InstallerMinVersion string           `mapstructure:"installer_min_version" yaml:"installer_min_version"`
	EnvAPIKey           string           `mapstructure:"env_api_key" yaml:"env_api_key"`
	EnvBaseURL          string           `mapstructure:"env_base_url" yaml:"env_base_url"`
	WelcomePrompt       string           `mapstructure:"welcome_prompt" yaml:"welcome_prompt"`
	VerifyTimeout       time.Duration    `mapstructure:"verify_timeout" yaml:"verify_timeout"`
	Backup              bool             `mapstructure:"backup" yaml:"backup"`
	Commands            []CommandBinding `mapstructure:"commands" yaml:"commands"`
	ContextKeys         []string         `mapstructure:"context_keys" yaml:"context_keys"`
	Output              string           `mapstructure:"output" yaml:"output"`
	Debug               bool             `mapstructure:"debug" yaml:"debug"`
	ConfigDir           string           `mapstructure:"config_dir" yaml:"-"`
}

const (
	DefaultDomain        = "api.onboardhq.com"
	DefaultEnvAPIKey     = "ONBOARD_API_KEY"
	DefaultEnvBaseURL    = "ONBOARD_API_BASE_URL"
	DefaultVerifyTimeout = 10 * time.Second
	DefaultBackup        = true
	DefaultOutput        = "table"
	DefaultDebug         = false
	DefaultWelcomePrompt = "Use the onboard MCP server to list the tools you can call for this project, then suggest a first task I could try."
	ConfigFileName       = "config.yaml"
)

// DefaultInstallerCommand is the argv prefix the installer flags are appended to.
var DefaultInstallerCommand = []string{"npx", "-y", "@onboardhq/mcp-installer@latest"}

// CommandBinding maps a host command name to a URL template opened by the
// CLI host. {{query}} in the template is replaced with the URL-escaped prompt.
// Bindings are a list rather than a map because viper splits map keys on dots.
type CommandBinding struct {
	Name string `mapstructure:"name" yaml:"name" json:"name"`
	URL  string `mapstructure:"url" yaml:"url" json:"url"`
}

var DefaultCommands = []CommandBinding{
	{Name: "composer.newAgentChat", URL: "cursor://anysphere.cursor-deeplink/prompt?text={{query}}"},
	{Name: "workbench.action.chat.open", URL: "vscode://GitHub.Copilot-Chat/chat?prompt={{query}}"},
}

var defaultValues = map[string]any{
	"domain":                DefaultDomain,
	"project_id":            "",
	"installer_command":     DefaultInstallerCommand,
	"installer_min_version": "",
	"env_api_key":           DefaultEnvAPIKey,
	"env_base_url":          DefaultEnvBaseURL,
	"welcome_prompt":        DefaultWelcomePrompt,
	"verify_timeout":        DefaultVerifyTimeout,
	"backup":                DefaultBackup,
	"commands":              DefaultCommands,
	"context_keys":          []string{},
	"output":                DefaultOutput,
	"debug":                 DefaultDebug,
}

func ApplyDefaults(v *viper.Viper) {
	for key, value := range defaultValues {
		v.SetDefault(key, value)
	}
}

func ApplyEnvOverrides(v *viper.Viper) {
	v.SetEnvPrefix("ONBOARD")
	v.AutomaticEnv()
}

func ReadInConfig(v *viper.Viper) error {
	// A missing config file is fine; defaults and env vars still apply
	if err := v.ReadInConfig(); err != nil &&
		!errors.As(err, &viper.ConfigFileNotFoundError{}) &&
		!errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SetupViper configures the global Viper instance with defaults, env vars, and config file
func SetupViper(configDir string) error {
	v := viper.GetViper()

	v.SetConfigFile(GetConfigFile(configDir))
	ApplyEnvOverrides(v)
	ApplyDefaults(v)

	return ReadInConfig(v)
}

func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ConfigDir: filepath.Dir(v.ConfigFileUsed()),
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Load creates a new Config instance from the current viper state.
// SetupViper must have been called first.
func Load() (*Config, error) {
	v := viper.GetViper()

	if err := ReadInConfig(v); err != nil {
		return nil, err
	}

	return FromViper(v)
}

func ensureConfigDir(configDir string) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("error creating config directory: %w", err)
	}
	return GetConfigFile(configDir), nil
}

func (c *Config) EnsureConfigDir() (string, error) {
	return ensureConfigDir(c.ConfigDir)
}

// BaseURL builds the verification backend URL for an app key and region.
func (c *Config) BaseURL(appKey, region string) string {
	return fmt.Sprintf("https://%s.%s.%s", appKey, region, c.Domain)
}

// UseTestConfig writes only the specified key-value pairs to the config file and
// returns a Config instance with those values set. Intended for tests.
func UseTestConfig(configDir string, values map[string]any) (*Config, error) {
	configFile, err := ensureConfigDir(configDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	for key, value := range values {
		v.Set(key, value)
	}
	if err := v.WriteConfigAs(configFile); err != nil {
		return nil, fmt.Errorf("error writing config file: %w", err)
	}

	viper.Reset()
	if err := SetupViper(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigDir: configDir,
	}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Set(key, value string) error {
	validated, err := c.updateField(key, value)
	if err != nil {
		return err
	}

	configFile, err := c.EnsureConfigDir()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	_ = v.ReadInConfig()

	v.Set(key, validated)

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

func setBool(key, val string) (bool, error) {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s value: %s (must be true or false)", key, val)
	}
	return b, nil
}

func setString(key string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s must be string, got %T", key, value)
	}
	return s, nil
}

// updateField validates value for key and stores it in both the struct and
// the global viper state. Values arrive either as strings from user input or
// as typed defaults.
func (c *Config) updateField(key string, value any) (any, error) {
	var validated any

	switch key {
	case "domain":
		s, err := setString(key, value)
		if err != nil {
			return nil, err
		}
		if s == "" || strings.Contains(s, "/") {
			return nil, fmt.Errorf("invalid domain value: %q (must be a bare host name)", s)
		}
		c.Domain = s
		validated = s

	case "project_id":
		s, err := setString(key, value)
		if err != nil {
			return nil, err
		}
		c.ProjectID = s
		validated = s

	case "installer_command":
		var argv []string
		switch v := value.(type) {
		case []string:
			argv = v
		case string:
			argv = strings.Fields(v)
		default:
			return nil, fmt.Errorf("installer_command must be string or list, got %T", value)
		}
		if len(argv) == 0 {
			return nil, errors.New("installer_command must not be empty")
		}
		c.InstallerCommand = argv
		validated = argv

	case "installer_min_version":
		s, err := setString(key, value)
		if err != nil {
			return nil, err
		}
		c.InstallerMinVersion = s
		validated = s

	case "env_api_key", "env_base_url":
		s, err := setString(key, value)
		if err != nil {
			return nil, err
		}
		if s == "" || strings.ContainsAny(s, "= ") {
			return nil, fmt.Errorf("invalid %s value: %q (must be a variable name)", key, s)
		}
		if key == "env_api_key" {
			c.EnvAPIKey = s
		} else {
			c.EnvBaseURL = s
		}
		validated = s

	case "welcome_prompt":
		s, err := setString(key, value)
		if err != nil {
			return nil, err
		}
		c.WelcomePrompt = s
		validated = s

	case "verify_timeout":
		switch v := value.(type) {
		case time.Duration:
			c.VerifyTimeout = v
			validated = v
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("invalid verify_timeout value: %s (must be a duration like '10s')", v)
			}
			if d <= 0 {
				return nil, errors.New("verify_timeout must be positive")
			}
			c.VerifyTimeout = d
			validated = d
		default:
			return nil, fmt.Errorf("verify_timeout must be string or duration, got %T", value)
		}

	case "backup", "debug":
		var b bool
		switch v := value.(type) {
		case bool:
			b = v
		case string:
			parsed, err := setBool(key, v)
			if err != nil {
				return nil, err
			}
			b = parsed
		default:
			return nil, fmt.Errorf("%s must be string or bool, got %T", key, value)
		}
		if key == "backup" {
			c.Backup = b
		} else {
			c.Debug = b
		}
		validated = b

	case "output":
		s, err := setString(key, value)
		if err != nil {
			return nil, err
		}
		if err := ValidateOutputFormat(s); err != nil {
			return nil, err
		}
		c.Output = s
		validated = s

	case "commands", "context_keys":
		// Maps are only editable in the config file; Unset/Reset still
		// restore their defaults through this path.
		switch v := value.(type) {
		case []CommandBinding:
			c.Commands = v
			validated = v
		case []string:
			c.ContextKeys = v
			validated = v
		default:
			return nil, fmt.Errorf("%s can only be edited in %s", key, ConfigFileName)
		}

	default:
		return nil, fmt.Errorf("unknown configuration key: %s", key)
	}

	viper.Set(key, validated)
	return validated, nil
}

func (c *Config) Unset(key string) error {
	configFile, err := c.EnsureConfigDir()
	if err != nil {
		return err
	}

	vCurrent := viper.New()
	vCurrent.SetConfigFile(configFile)
	_ = vCurrent.ReadInConfig()

	vNew := viper.New()
	vNew.SetConfigFile(configFile)

	_, validKey := defaultValues[key]
	for k, v := range vCurrent.AllSettings() {
		if k != key {
			vNew.Set(k, v)
		} else {
			validKey = true
		}
	}

	if !validKey {
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if def, ok := defaultValues[key]; ok {
		if _, err := c.updateField(key, def); err != nil {
			return err
		}
	}

	if err := vNew.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

func (c *Config) Reset() error {
	configFile, err := c.EnsureConfigDir()
	if err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(configFile)

	// The project id selects stored credentials, so it survives a reset
	v.Set("project_id", c.ProjectID)

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	for key, value := range defaultValues {
		if key == "project_id" {
			continue
		}
		if _, err := c.updateField(key, value); err != nil {
			return err
		}
	}

	return nil
}

func GetConfigFile(dir string) string {
	return filepath.Join(dir, ConfigFileName)
}

func (c *Config) GetConfigFile() string {
	return GetConfigFile(c.ConfigDir)
}

func GetDefaultConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.config/onboard"
	}

	return filepath.Join(homeDir, ".config", "onboard")
}

func GetEffectiveConfigDir(configDirFlag *pflag.Flag) string {
	if configDirFlag != nil && configDirFlag.Changed {
		return util.ExpandPath(configDirFlag.Value.String())
	}

	if dir := os.Getenv("ONBOARD_CONFIG_DIR"); dir != "" {
		return util.ExpandPath(dir)
	}

	return GetDefaultConfigDir()
}

// ResetGlobalConfig clears the global viper state between tests.
func ResetGlobalConfig() {
	viper.Reset()
}

// Keys returns the configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(defaultValues))
	for key := range defaultValues {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
