package common

import (
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/onboardhq/onboard-cli/internal/onboard/util"
)

var spinnerFrames = []string{"⢎ ", "⠎⠁", "⠊⠑", "⠈⠱", " ⡱", "⢀⡰", "⢄⡠", "⢆⡀"}

// Spinner shows progress of a long-running step such as installer output
// settling or server verification.
type Spinner interface {
	// Update changes the displayed message.
	Update(message string)

	// Stop removes the spinner and prints final, if non-empty, on its own
	// line.
	Stop(final string)
}

// NewSpinner returns a bubbletea-driven spinner when output is a terminal,
// a line-per-message spinner for other writers and a no-op for nil or
// [io.Discard].
func NewSpinner(output io.Writer, message string) Spinner {
	if output == nil || output == io.Discard {
		return nopSpinner{}
	}
	if util.IsTerminal(output) {
		return newAnimatedSpinner(output, message)
	}
	return newLineSpinner(output, message)
}

type nopSpinner struct{}

func (nopSpinner) Update(string) {}
func (nopSpinner) Stop(string)   {}

type animatedSpinner struct {
	output  io.Writer
	program *tea.Program
}

func newAnimatedSpinner(output io.Writer, message string) *animatedSpinner {
	program := tea.NewProgram(
		spinnerModel{message: message},
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithoutSignalHandler(),
	)

	go func() {
		if _, err := program.Run(); err != nil {
			fmt.Fprintf(output, "Error displaying progress: %s\n", err)
		}
	}()

	return &animatedSpinner{output: output, program: program}
}

func (s *animatedSpinner) Update(message string) {
	s.program.Send(updateMsg(message))
}

func (s *animatedSpinner) Stop(final string) {
	s.program.Send(doneMsg{})
	s.program.Wait()
	if final != "" {
		fmt.Fprintln(s.output, final)
	}
}

type lineSpinner struct {
	output io.Writer
	model  spinnerModel
}

func newLineSpinner(output io.Writer, message string) *lineSpinner {
	s := &lineSpinner{output: output, model: spinnerModel{message: message}}
	fmt.Fprintln(s.output, s.model.View())
	return s
}

// Update prints message unless it repeats the previous one.
func (s *lineSpinner) Update(message string) {
	if message == s.model.message {
		return
	}
	s.model.message = message
	s.model.frame = (s.model.frame + 1) % len(spinnerFrames)
	fmt.Fprintln(s.output, s.model.View())
}

func (s *lineSpinner) Stop(final string) {
	if final != "" {
		fmt.Fprintln(s.output, final)
	}
}

type (
	tickMsg   struct{}
	updateMsg string
	doneMsg   struct{}
)

type spinnerModel struct {
	message string
	frame   int
	done    bool
}

func (m spinnerModel) Init() tea.Cmd {
	return tick()
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()
	case updateMsg:
		m.message = string(msg)
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders nothing once done so the final frame is cleared.
func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s %s", spinnerFrames[m.frame], m.message)
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
