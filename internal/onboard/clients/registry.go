package clients

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Profile describes one supported AI assistant.
type Profile struct {
	ID   string
	Name string
	// Aliases are additional names accepted on the command line
	Aliases []string
	// WorkspaceLocal clients keep their MCP config inside the project, so the
	// installer must run in a workspace folder.
	WorkspaceLocal bool
	// ConfigPaths are the config files the installer writes to. Relative paths
	// are resolved against the workspace. Only used for backups.
	ConfigPaths []string
	Strategy    Strategy
}

// Names returns the ID followed by any aliases.
func (p Profile) Names() []string {
	return append([]string{p.ID}, p.Aliases...)
}

// Validate checks that the profile is complete.
func (p Profile) Validate() error {
	if p.ID == "" {
		return errors.New("client profile has no id")
	}
	if p.Name == "" {
		return fmt.Errorf("client %s has no display name", p.ID)
	}
	if p.Strategy == nil {
		return fmt.Errorf("client %s has no interaction strategy", p.ID)
	}
	if err := p.Strategy.validate(); err != nil {
		return fmt.Errorf("client %s: %w", p.ID, err)
	}
	return nil
}

// Registry is an immutable lookup table of client profiles.
type Registry struct {
	profiles []Profile
	byName   map[string]int
}

// NewRegistry validates profiles and indexes them by id and alias.
func NewRegistry(profiles []Profile) (*Registry, error) {
	r := &Registry{
		profiles: make([]Profile, len(profiles)),
		byName:   make(map[string]int, len(profiles)),
	}
	copy(r.profiles, profiles)

	for i, p := range r.profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		for _, name := range p.Names() {
			key := strings.ToLower(name)
			if _, dup := r.byName[key]; dup {
				return nil, fmt.Errorf("duplicate client name: %s", name)
			}
			r.byName[key] = i
		}
	}
	return r, nil
}

// Lookup finds a profile by id or alias, ignoring case.
func (r *Registry) Lookup(name string) (Profile, bool) {
	i, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return Profile{}, false
	}
	return r.profiles[i], true
}

// Find is like Lookup but returns a descriptive error for unknown names.
func (r *Registry) Find(name string) (Profile, error) {
	if p, ok := r.Lookup(name); ok {
		return p, nil
	}
	return Profile{}, fmt.Errorf("unsupported client: %s. Supported clients: %s", name, strings.Join(r.IDs(), ", "))
}

// All returns the profiles in table order.
func (r *Registry) All() []Profile {
	out := make([]Profile, len(r.profiles))
	copy(out, r.profiles)
	return out
}

// Sorted returns the profiles ordered by display name.
func (r *Registry) Sorted() []Profile {
	out := r.All()
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// IDs returns every primary id in table order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for _, p := range r.profiles {
		ids = append(ids, p.ID)
	}
	return ids
}

// ValidNames returns every id and alias, for shell completion.
func (r *Registry) ValidNames() []string {
	var names []string
	for _, p := range r.profiles {
		names = append(names, p.Names()...)
	}
	return names
}

// Builtin is the table of supported clients. A good place to cross-check the
// global config locations is the client table in
// https://github.com/stacklok/toolhive/blob/main/pkg/client/config.go
var Builtin = []Profile{
	{
		ID:             "cursor",
		Name:           "Cursor",
		WorkspaceLocal: true,
		ConfigPaths:    []string{".cursor/mcp.json"},
		Strategy:       DirectInvoke{CommandName: "composer.newAgentChat"},
	},
	{
		ID:             "vscode",
		Name:           "VS Code",
		Aliases:        []string{"code", "vs-code"},
		WorkspaceLocal: true,
		ConfigPaths:    []string{".vscode/mcp.json"},
		Strategy:       DirectInvoke{CommandName: "workbench.action.chat.open"},
	},
	{
		ID:          "windsurf",
		Name:        "Windsurf",
		ConfigPaths: []string{"~/.codeium/windsurf/mcp_config.json"},
		Strategy:    ClipboardPaste{CommandName: "windsurf.prioritized.chat.open", PasteDelay: 150 * time.Millisecond},
	},
	{
		ID:          "trae",
		Name:        "Trae",
		ConfigPaths: []string{"~/.trae/mcp.json"},
		Strategy:    ClipboardPaste{CommandName: "workbench.action.chat.icube.open", PasteDelay: 300 * time.Millisecond},
	},
	{
		ID:             "kiro",
		Name:           "Kiro",
		WorkspaceLocal: true,
		ConfigPaths:    []string{".kiro/settings/mcp.json"},
		Strategy: ClipboardPaste{
			CommandName:  "kiroAgent.focusContinueInputWithoutClear",
			PasteDelay:   150 * time.Millisecond,
			SkipProbeKey: "kiroAgent.chatFocused",
		},
	},
	{
		ID:          "cline",
		Name:        "Cline",
		ConfigPaths: []string{"~/.cline/mcp_settings.json"},
		Strategy: ClipboardPaste{
			CommandName:  "cline.focusChatInput",
			PasteDelay:   150 * time.Millisecond,
			SkipProbeKey: "cline.chatInputFocused",
		},
	},
	{
		ID:             "roo-code",
		Name:           "Roo Code",
		Aliases:        []string{"roo"},
		WorkspaceLocal: true,
		ConfigPaths:    []string{".roo/mcp.json"},
		Strategy:       ClipboardPaste{CommandName: "roo-cline.focusInput"},
	},
	{
		ID:          "qoder",
		Name:        "Qoder",
		ConfigPaths: []string{"~/.qoder/mcp.json"},
		Strategy:    ClipboardOnly{},
	},
	{
		ID:             "claude-code",
		Name:           "Claude Code",
		Aliases:        []string{"claude"},
		WorkspaceLocal: true,
		ConfigPaths:    []string{".mcp.json"},
		Strategy:       TerminalSend{TerminalCommand: "claude"},
	},
	{
		ID:          "codex",
		Name:        "Codex",
		ConfigPaths: []string{"~/.codex/config.toml", "$CODEX_HOME/config.toml"},
		Strategy:    TerminalSend{TerminalCommand: "codex"},
	},
	{
		ID:          "gemini-cli",
		Name:        "Gemini CLI",
		Aliases:     []string{"gemini"},
		ConfigPaths: []string{"~/.gemini/settings.json"},
		Strategy:    TerminalSend{TerminalCommand: "gemini"},
	},
	{
		ID:          "claude-desktop",
		Name:        "Claude Desktop",
		ConfigPaths: []string{"~/Library/Application Support/Claude/claude_desktop_config.json", "~/.config/Claude/claude_desktop_config.json"},
		Strategy:    None{},
	},
}

// Default returns a registry over the builtin table. It panics if the table
// is invalid, which registry tests guard against.
func Default() *Registry {
	r, err := NewRegistry(Builtin)
	if err != nil {
		panic(err)
	}
	return r
}
