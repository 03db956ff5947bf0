package common

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSpinnerNop(t *testing.T) {
	assert.IsType(t, nopSpinner{}, NewSpinner(nil, "x"))
	assert.IsType(t, nopSpinner{}, NewSpinner(io.Discard, "x"))
}

func TestLineSpinner(t *testing.T) {
	var buf bytes.Buffer

	s := NewSpinner(&buf, "Verifying MCP server")
	s.Update("Verifying MCP server")
	s.Update("Verifying MCP server (attempt 2)")
	s.Stop("Verified 2 tools")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, spinnerFrames[0]+" Verifying MCP server", lines[0])
	assert.Equal(t, spinnerFrames[1]+" Verifying MCP server (attempt 2)", lines[1])
	assert.Equal(t, "Verified 2 tools", lines[2])
}

func TestSpinnerModel(t *testing.T) {
	m := spinnerModel{message: "a"}

	next, _ := m.Update(tickMsg{})
	assert.Equal(t, 1, next.(spinnerModel).frame)

	next, _ = next.Update(updateMsg("b"))
	assert.Equal(t, "b", next.(spinnerModel).message)

	next, cmd := next.Update(doneMsg{})
	assert.NotNil(t, cmd)
	assert.Empty(t, next.View())
}
