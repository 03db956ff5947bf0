package hostcli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/onboardhq/onboard-cli/internal/onboard/clients"
)

// Picker runs interactive selection lists on the terminal.
type Picker struct {
	Out io.Writer
	In  io.Reader
}

// PickClient lists profiles alphabetically by display name.
func (p *Picker) PickClient(ctx context.Context, profiles []clients.Profile) (clients.Profile, bool, error) {
	sorted := append([]clients.Profile(nil), profiles...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	labels := make([]string, len(sorted))
	for i, profile := range sorted {
		labels[i] = profile.Name
	}

	index, err := p.run(ctx, "Select an AI assistant to set up:", labels)
	if err != nil || index < 0 {
		return clients.Profile{}, false, err
	}
	return sorted[index], true, nil
}

// PickWorkspace lists folders in the given order.
func (p *Picker) PickWorkspace(ctx context.Context, folders []string) (string, bool, error) {
	index, err := p.run(ctx, "Select the workspace folder to configure:", folders)
	if err != nil || index < 0 {
		return "", false, err
	}
	return folders[index], true, nil
}

func (p *Picker) run(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, nil
	}

	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if p.Out != nil {
		opts = append(opts, tea.WithOutput(p.Out))
	}
	if p.In != nil {
		opts = append(opts, tea.WithInput(p.In))
	}

	program := tea.NewProgram(newSelectModel(title, options), opts...)
	finalModel, err := program.Run()
	if err != nil {
		return -1, fmt.Errorf("failed to run selection: %w", err)
	}
	return finalModel.(selectModel).selected, nil
}

// selectModel is a numbered list navigated with arrows, vi keys or digits.
type selectModel struct {
	title        string
	options      []string
	cursor       int
	selected     int
	numberBuffer string
}

func newSelectModel(title string, options []string) selectModel {
	return selectModel{title: title, options: options, selected: -1}
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key := keyMsg.String(); key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		m.numberBuffer = ""
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		m.numberBuffer = ""
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.selected = m.cursor
		return m, tea.Quit
	case "backspace":
		if len(m.numberBuffer) > 0 {
			m.updateNumberBuffer(m.numberBuffer[:len(m.numberBuffer)-1])
		}
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.updateNumberBuffer(m.numberBuffer + key)
	case "ctrl+w", "esc":
		m.numberBuffer = ""
	}
	return m, nil
}

// updateNumberBuffer moves the cursor to the 1-based option typed so far.
// Digits that would point past the list are ignored.
func (m *selectModel) updateNumberBuffer(buffer string) {
	if buffer == "" {
		m.numberBuffer = ""
		return
	}

	num, err := strconv.Atoi(buffer)
	if err != nil {
		return
	}
	if index := num - 1; index >= 0 && index < len(m.options) {
		m.numberBuffer = buffer
		m.cursor = index
	}
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

func (m selectModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title) + "\n\n")

	for i, option := range m.options {
		line := fmt.Sprintf("  %d. %s", i+1, option)
		if m.cursor == i {
			line = selectedStyle.Render(fmt.Sprintf("> %d. %s", i+1, option))
		}
		b.WriteString(line + "\n")
	}

	if m.numberBuffer != "" {
		fmt.Fprintf(&b, "\nTyping: %s", m.numberBuffer)
	}

	b.WriteString("\n" + helpStyle.Render("Use ↑/↓ arrows or number keys to navigate, enter to select, q to quit"))
	return b.String()
}
