package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const (
	keyringServiceName  = "onboard-cli"
	credentialsFileName = "credentials.yaml"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Credentials are the per-project secrets used to reach the backend. The
// installer and the verification backend only ever see the API key and the
// base URL derived from AppKey and Region.
type Credentials struct {
	APIKey string `json:"api_key" yaml:"api_key"`
	AppKey string `json:"app_key" yaml:"app_key"`
	Region string `json:"region" yaml:"region"`
}

func (c Credentials) validate() error {
	switch {
	case c.APIKey == "":
		return errors.New("API key not found in stored credentials")
	case c.AppKey == "":
		return errors.New("app key not found in stored credentials")
	case c.Region == "":
		return errors.New("region not found in stored credentials")
	}
	return nil
}

// testServiceNameOverride allows tests to override the service name for isolation
var testServiceNameOverride string

// GetServiceName returns the keyring service name.
func GetServiceName() string {
	if testServiceNameOverride != "" {
		return testServiceNameOverride
	}

	// Catch tests that would otherwise write to the real keyring entry
	if testing.Testing() {
		panic("test must call SetTestServiceName() to set a unique keyring service name")
	}

	return keyringServiceName
}

// SetTestServiceName sets a unique keyring service name for the running test
// and restores the previous value on cleanup.
func SetTestServiceName(t *testing.T) {
	testServiceNameOverride = "onboard-test-" + t.Name()

	t.Cleanup(func() {
		testServiceNameOverride = ""
	})
}

// StoreCredentials saves credentials for projectID in the system keyring,
// falling back to a 0600 file in configDir when no keyring is available.
func StoreCredentials(configDir, projectID string, creds Credentials) error {
	if projectID == "" {
		return errors.New("project ID is required")
	}
	if err := creds.validate(); err != nil {
		return err
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := keyring.Set(GetServiceName(), projectID, string(data)); err == nil {
		return nil
	}

	return storeToFile(configDir, projectID, creds)
}

// GetCredentials loads credentials for projectID from the keyring or the
// fallback file.
func GetCredentials(configDir, projectID string) (Credentials, error) {
	if projectID == "" {
		return Credentials{}, ErrNotLoggedIn
	}

	if raw, err := keyring.Get(GetServiceName(), projectID); err == nil {
		var creds Credentials
		if err := json.Unmarshal([]byte(raw), &creds); err != nil {
			return Credentials{}, fmt.Errorf("failed to parse credentials: %w", err)
		}
		if err := creds.validate(); err != nil {
			return Credentials{}, err
		}
		return creds, nil
	}

	all, err := readCredentialsFile(configDir)
	if err != nil {
		return Credentials{}, err
	}
	creds, ok := all[projectID]
	if !ok {
		return Credentials{}, ErrNotLoggedIn
	}
	if err := creds.validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// RemoveCredentials deletes credentials for projectID from both stores.
func RemoveCredentials(configDir, projectID string) error {
	// Missing keyring entries are not an error
	_ = keyring.Delete(GetServiceName(), projectID)

	all, err := readCredentialsFile(configDir)
	if err != nil {
		return err
	}
	if _, ok := all[projectID]; !ok {
		return nil
	}
	delete(all, projectID)
	return writeCredentialsFile(configDir, all)
}

func credentialsFile(configDir string) string {
	return filepath.Join(configDir, credentialsFileName)
}

func storeToFile(configDir, projectID string, creds Credentials) error {
	all, err := readCredentialsFile(configDir)
	if err != nil {
		return err
	}
	all[projectID] = creds
	return writeCredentialsFile(configDir, all)
}

func readCredentialsFile(configDir string) (map[string]Credentials, error) {
	all := map[string]Credentials{}

	data, err := os.ReadFile(credentialsFile(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return all, nil
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	if err := yaml.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if all == nil {
		all = map[string]Credentials{}
	}
	return all, nil
}

func writeCredentialsFile(configDir string, all map[string]Credentials) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(all)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(credentialsFile(configDir), data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}
