package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the replan ASCII banner to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"  _ __ ___ _ __ | | __ _ _ __  ", "#818cf8"},
		{" | '__/ _ \\ '_ \\| |/ _` | '_ \\ ", "#a78bfa"},
		{" | | |  __/ |_) | | (_| | | | |", "#c084fc"},
		{" |_|  \\___| .__/|_|\\__,_|_| |_|", "#e879f9"},
		{"          |_|                  ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  plan -> execute -> replan  "+version).Faint())
	fmt.Fprintln(w)
}
