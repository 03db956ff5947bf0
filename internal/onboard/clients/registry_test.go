package clients

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinTableIsValid(t *testing.T) {
	r, err := NewRegistry(Builtin)
	require.NoError(t, err)
	assert.Len(t, r.All(), len(Builtin))

	kinds := map[string]int{}
	for _, p := range r.All() {
		kinds[p.Strategy.Kind()]++
	}
	// Every interaction technique is exercised by at least one client
	for _, kind := range []string{"direct-invoke", "clipboard-paste", "clipboard-only", "terminal-send", "none"} {
		assert.NotZero(t, kinds[kind], "no client uses %s", kind)
	}
}

func TestLookup(t *testing.T) {
	r := Default()

	tests := []struct {
		name   string
		wantID string
		found  bool
	}{
		{name: "cursor", wantID: "cursor", found: true},
		{name: "CURSOR", wantID: "cursor", found: true},
		{name: "code", wantID: "vscode", found: true},
		{name: "Gemini", wantID: "gemini-cli", found: true},
		{name: "claude", wantID: "claude-code", found: true},
		{name: "emacs", found: false},
		{name: "", found: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := r.Lookup(tt.name)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.wantID, p.ID)
			}
		})
	}
}

func TestFindUnknownClient(t *testing.T) {
	_, err := Default().Find("emacs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported client: emacs")
	assert.Contains(t, err.Error(), "cursor")
}

func TestStrategiesFromTable(t *testing.T) {
	r := Default()

	cursor, _ := r.Lookup("cursor")
	assert.Equal(t, DirectInvoke{CommandName: "composer.newAgentChat"}, cursor.Strategy)
	assert.True(t, cursor.WorkspaceLocal)

	qoder, _ := r.Lookup("qoder")
	assert.Equal(t, ClipboardOnly{}, qoder.Strategy)
	assert.False(t, qoder.WorkspaceLocal)

	roo, _ := r.Lookup("roo-code")
	paste, ok := roo.Strategy.(ClipboardPaste)
	require.True(t, ok)
	assert.Equal(t, DefaultPasteDelay, paste.Delay())

	trae, _ := r.Lookup("trae")
	assert.Equal(t, 300*time.Millisecond, trae.Strategy.(ClipboardPaste).Delay())
}

func TestNewRegistryRejectsInvalidProfiles(t *testing.T) {
	tests := []struct {
		name     string
		profiles []Profile
		wantErr  string
	}{
		{
			name:     "missing id",
			profiles: []Profile{{Name: "X", Strategy: None{}}},
			wantErr:  "client profile has no id",
		},
		{
			name:     "missing strategy",
			profiles: []Profile{{ID: "x", Name: "X"}},
			wantErr:  "client x has no interaction strategy",
		},
		{
			name:     "empty direct command",
			profiles: []Profile{{ID: "x", Name: "X", Strategy: DirectInvoke{}}},
			wantErr:  "client x: direct invoke requires a command name",
		},
		{
			name:     "empty paste command",
			profiles: []Profile{{ID: "x", Name: "X", Strategy: ClipboardPaste{PasteDelay: time.Second}}},
			wantErr:  "client x: clipboard paste requires a command name",
		},
		{
			name:     "empty terminal command",
			profiles: []Profile{{ID: "x", Name: "X", Strategy: TerminalSend{}}},
			wantErr:  "client x: terminal send requires a terminal command",
		},
		{
			name: "duplicate alias",
			profiles: []Profile{
				{ID: "a", Name: "A", Strategy: None{}},
				{ID: "b", Name: "B", Aliases: []string{"A"}, Strategy: None{}},
			},
			wantErr: "duplicate client name: A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.profiles)
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestSortedByName(t *testing.T) {
	sorted := Default().Sorted()
	for i := 1; i < len(sorted); i++ {
		assert.LessOrEqual(t, sorted[i-1].Name, sorted[i].Name)
	}
}
