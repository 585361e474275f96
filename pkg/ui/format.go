package ui

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Format selects how operator output is rendered.
type Format int

const (
	// FormatText is plain text without any styling.
	FormatText Format = iota
	// FormatTerminal is rich terminal output with colors.
	FormatTerminal
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case FormatTerminal:
		return "term"
	default:
		return "text"
	}
}

// DetectFormat determines the output format for the given stream based on
// environment and terminal capabilities.
func DetectFormat(output *os.File) Format {
	// NO_COLOR always wins.
	if os.Getenv("NO_COLOR") != "" {
		return FormatText
	}

	// Piped or redirected output stays plain.
	if !isatty.IsTerminal(output.Fd()) && !isatty.IsCygwinTerminal(output.Fd()) {
		return FormatText
	}

	if termenv.ColorProfile() == termenv.Ascii {
		return FormatText
	}

	return FormatTerminal
}
