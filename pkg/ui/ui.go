// Package ui renders operator-facing terminal output.
//
// Styles carry semantic names (Success, Error, Command, ...) and adaptive
// colors that adjust to light and dark terminal themes. Styling is applied
// only when the target stream is a color-capable terminal; piped or
// NO_COLOR output stays plain.
package ui

import (
	"fmt"
	"io"
	"os"
)

// Styled renders text with the named style when w is a color-capable
// terminal, and returns it unchanged otherwise.
func Styled(w io.Writer, name, text string) string {
	f, ok := w.(*os.File)
	if !ok || DetectFormat(f) != FormatTerminal {
		return text
	}
	return Style(name).Render(text)
}

// CommandEcho prints a hook line about to run, set off from the line's own
// output with a "$ " marker.
func CommandEcho(w io.Writer, line string) {
	fmt.Fprintln(w, Styled(w, "Command", "$ "+line))
}

// Successf prints a styled status line.
func Successf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Styled(w, "Success", fmt.Sprintf(format, args...)))
}

// Errorf prints a styled error line.
func Errorf(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintln(w, Styled(w, "Error", fmt.Sprintf(format, args...)))
}
