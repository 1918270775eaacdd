package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the Vigil ASCII art banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{" __     ___       _ _ ", "#34d399"},
		{" \\ \\   / (_) __ _(_) |", "#2dd4bf"},
		{"  \\ \\ / /| |/ _` | | |", "#22d3ee"},
		{"   \\ V / | | (_| | | |", "#38bdf8"},
		{"    \\_/  |_|\\__, |_|_|", "#60a5fa"},
		{"            |___/     ", "#818cf8"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
