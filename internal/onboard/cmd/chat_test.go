package cmd

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	"github.com/onboardhq/onboard-cli/internal/onboard/common"
)

func TestChatOpen(t *testing.T) {
	tests := []struct {
		name     string
		client   string
		expected string
	}{
		{name: "direct invoke", client: "cursor", expected: "Opened Cursor chat via command.\n"},
		{name: "clipboard only", client: "qoder", expected: "Opened Qoder chat via clipboard.\n"},
		{name: "terminal", client: "codex", expected: "Opened Codex chat via terminal.\n"},
		{name: "no integration", client: "claude-desktop", expected: "Claude Desktop has no chat integration; nothing to open.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupCmdTest(t, nil)
			useFakeHost(t, newFakeHost())

			output, err := executeCommand("chat", "open", tt.client, "--prompt", "hi")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, output)
		})
	}
}

func TestChatOpen_TerminalReceivesPrompt(t *testing.T) {
	setupCmdTest(t, nil)
	h := newFakeHost()
	useFakeHost(t, h)

	_, err := executeCommand("chat", "open", "claude", "--prompt", `say "hi"`)
	require.NoError(t, err)

	terminals := h.Terminals.(*fakeTerminals)
	require.Len(t, terminals.created, 1)
	assert.Equal(t, "Claude Code", terminals.created[0].name)
	assert.Equal(t, []string{`claude "say \"hi\""`}, terminals.created[0].sent)
}

func TestChatOpen_Failure(t *testing.T) {
	setupCmdTest(t, nil)
	h := newFakeHost()
	h.Commands = &fakeCommands{err: errors.New("cursor is not running")}
	useFakeHost(t, h)

	_, err := executeCommand("chat", "open", "cursor")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cursor is not running")
}

func TestChatOpen_DegradedPaste(t *testing.T) {
	setupCmdTest(t, nil)
	h := newFakeHost()
	h.Commands = &fakeCommands{err: errors.New("unknown command")}
	useFakeHost(t, h)

	output, err := executeCommand("chat", "open", "windsurf", "--prompt", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Prompt copied to the clipboard; paste it into Windsurf ("+string(chat.OpenCommandFailed)+").\n", output)
	assert.Equal(t, "hi", h.Clipboard.(*fakeClipboard).text)
	assert.Len(t, h.Notifier.(*fakeNotifier).messages, 1)
}

func TestChatOpen_UnknownClient(t *testing.T) {
	setupCmdTest(t, nil)
	useFakeHost(t, newFakeHost())

	_, err := executeCommand("chat", "open", "emacs")
	require.Error(t, err)
	assert.Equal(t, common.ExitInvalidParameters, exitCode(t, err))
}
