package tui_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/aretw0/replan/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "v1.2.3")

	out := buf.String()
	assert.Contains(t, out, "plan -> execute -> replan  v1.2.3")
	assert.NotContains(t, out, "\x1b[", "no escape codes when not writing to a terminal")
}

func TestNewRenderer(t *testing.T) {
	render := tui.NewRenderer()
	out, err := render("The MVP was **Stephen Curry**.")
	require.NoError(t, err)
	assert.Contains(t, out, "Stephen Curry")
}

func TestTerminalWidth_NotATerminal(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, tui.IsTerminal(f))
	assert.Equal(t, tui.DefaultWordWrap, tui.TerminalWidth(f))
	assert.False(t, tui.IsTerminalWriter(f))
	assert.False(t, tui.IsTerminalWriter(&bytes.Buffer{}))
}
