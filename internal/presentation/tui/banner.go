package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the chat banner with the version underneath.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{` ___                   ___              _`, "#f59e0b"},
		{`| _ \___  ___ _ __    / __| ___ _ ___ _(_)__ ___`, "#f97316"},
		{`|   / _ \/ _ \ '  \   \__ \/ -_) '_\ V / / _/ -_)`, "#ef4444"},
		{`|_|_\___/\___/_|_|_|  |___/\___|_|  \_/|_\__\___|`, "#e11d48"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  v"+version).Faint())
	fmt.Fprintln(w)
}
