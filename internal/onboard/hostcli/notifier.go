package hostcli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/onboardhq/onboard-cli/internal/onboard/chat"
	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

// Notifier prints notifications to Out. When Interactive is set, actions
// are offered as a numbered prompt read from In.
type Notifier struct {
	Out         io.Writer
	In          io.Reader
	Interactive bool

	reader *bufio.Reader
}

func (n *Notifier) Notify(_ context.Context, level chat.Level, message string, actions ...string) string {
	if util.IsTerminal(n.Out) {
		original := color.NoColor
		defer func() { color.NoColor = original }()
		color.NoColor = false
	}

	fmt.Fprintf(n.Out, "%s %s\n", levelPrefix(level), message)

	if len(actions) == 0 || !n.Interactive || n.In == nil {
		return ""
	}

	for i, action := range actions {
		fmt.Fprintf(n.Out, "  %d) %s\n", i+1, action)
	}
	fmt.Fprintf(n.Out, "Choose an action (enter to skip): ")

	if n.reader == nil {
		n.reader = bufio.NewReader(n.In)
	}
	line, err := n.reader.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(n.Out)
		return ""
	}
	return pickAction(strings.TrimSpace(line), actions)
}

// pickAction accepts either a 1-based index or an action name.
func pickAction(input string, actions []string) string {
	if input == "" {
		return ""
	}
	if i, err := strconv.Atoi(input); err == nil {
		if i >= 1 && i <= len(actions) {
			return actions[i-1]
		}
		return ""
	}
	for _, action := range actions {
		if strings.EqualFold(action, input) {
			return action
		}
	}
	return ""
}

func levelPrefix(level chat.Level) string {
	switch level {
	case chat.LevelError:
		return color.RedString("✗")
	case chat.LevelWarning:
		return color.YellowString("!")
	default:
		return color.CyanString("→")
	}
}
