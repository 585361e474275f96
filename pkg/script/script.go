// Package script parses and runs the small command language used by the
// pre-commands and commands config keys.
//
// A script is a newline-separated list of shell commands. Blank lines are
// skipped. Lines whose first non-space character is # are comments. A
// leading @ runs the line without echoing it first; everything else is
// echoed, then run. Lines execute sequentially through `sh -c`, and the
// first non-zero exit stops the script.
package script

import (
	"strings"
)

// Kind classifies a parsed script line.
type Kind int

const (
	// KindComment is a line starting with #. It never executes.
	KindComment Kind = iota
	// KindSilentExec is a line starting with @, run without being echoed.
	KindSilentExec
	// KindEchoExec is an ordinary line, echoed before it runs.
	KindEchoExec
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSilentExec:
		return "silent-exec"
	case KindEchoExec:
		return "echo-exec"
	default:
		return "comment"
	}
}

// Directive is one classified line of a script.
type Directive struct {
	Kind Kind

	// Line is the command text handed to the shell, with a leading @
	// already stripped. Empty for comments.
	Line string

	// LineNo is the 1-based position in the source script.
	LineNo int
}

// Parse splits a script into typed directives. Parsing never fails:
// anything that is not blank or a comment is a command.
func Parse(src string) []Directive {
	var directives []Directive

	for i, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		d := Directive{LineNo: i + 1}
		switch {
		case strings.HasPrefix(trimmed, "#"):
			d.Kind = KindComment
		case strings.HasPrefix(trimmed, "@"):
			d.Kind = KindSilentExec
			d.Line = trimmed[1:]
		default:
			d.Kind = KindEchoExec
			d.Line = trimmed
		}
		directives = append(directives, d)
	}

	return directives
}
