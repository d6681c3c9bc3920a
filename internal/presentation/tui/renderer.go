package tui

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// DefaultWordWrap is used when the terminal width is unknown.
const DefaultWordWrap = 80

// NewRenderer returns a function that renders markdown using glamour,
// wrapped to the width of the terminal on stdout.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(TerminalWidth(os.Stdout)),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, err
		}
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// TerminalWidth returns the column count of f, or DefaultWordWrap when f is
// not a terminal.
func TerminalWidth(f *os.File) int {
	if !IsTerminal(f) {
		return DefaultWordWrap
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWordWrap
	}
	return width
}

// IsTerminalWriter is IsTerminal for writers that may not be files.
func IsTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && IsTerminal(f)
}
