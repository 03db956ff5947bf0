package orchestrator

import "fmt"

// State is a step of an installation run.
type State int

const (
	Idle State = iota
	ClientSelected
	WorkspaceResolved
	CredentialsAcquired
	Installing
	InstallSucceeded
	InstallFailed
	Verifying
	Verified
	VerificationFailed
	ChatOpened
)

var stateNames = map[State]string{
	Idle:                "idle",
	ClientSelected:      "client-selected",
	WorkspaceResolved:   "workspace-resolved",
	CredentialsAcquired: "credentials-acquired",
	Installing:          "installing",
	InstallSucceeded:    "install-succeeded",
	InstallFailed:       "install-failed",
	Verifying:           "verifying",
	Verified:            "verified",
	VerificationFailed:  "verification-failed",
	ChatOpened:          "chat-opened",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets states appear by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}
