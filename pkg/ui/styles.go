package ui

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// ColorDef is an adaptive color pair in the theme file.
type ColorDef struct {
	Light string `yaml:"light"`
	Dark  string `yaml:"dark"`
}

// StyleDef is one named style in the theme file.
type StyleDef struct {
	Bold       bool   `yaml:"bold,omitempty"`
	Italic     bool   `yaml:"italic,omitempty"`
	Underline  bool   `yaml:"underline,omitempty"`
	Foreground string `yaml:"foreground,omitempty"`
	Background string `yaml:"background,omitempty"`
}

// Theme is the complete style configuration.
type Theme struct {
	Colors map[string]ColorDef `yaml:"colors"`
	Styles map[string]StyleDef `yaml:"styles"`
}

// StyleRegistry maps semantic names to lipgloss styles.
var StyleRegistry map[string]lipgloss.Style

//go:embed styles.yaml
var embeddedTheme []byte

func init() {
	if err := LoadTheme(embeddedTheme); err != nil {
		// A broken embedded theme must not take the tool down; fall back
		// to unstyled output.
		initDefaultStyles()
	}
}

// LoadTheme replaces the style registry with the styles defined in the
// YAML theme data.
func LoadTheme(data []byte) error {
	var theme Theme
	if err := yaml.Unmarshal(data, &theme); err != nil {
		return fmt.Errorf("failed to parse style theme: %w", err)
	}

	colors := make(map[string]lipgloss.AdaptiveColor)
	for name, def := range theme.Colors {
		colors[name] = lipgloss.AdaptiveColor{Light: def.Light, Dark: def.Dark}
	}

	registry := make(map[string]lipgloss.Style)
	for name, def := range theme.Styles {
		registry[name] = buildStyle(def, colors)
	}
	StyleRegistry = registry
	return nil
}

// Style returns the named style. Unknown names get an empty style so
// rendering degrades to plain text instead of failing.
func Style(name string) lipgloss.Style {
	if s, ok := StyleRegistry[name]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

func buildStyle(def StyleDef, colors map[string]lipgloss.AdaptiveColor) lipgloss.Style {
	style := lipgloss.NewStyle()

	if def.Bold {
		style = style.Bold(true)
	}
	if def.Italic {
		style = style.Italic(true)
	}
	if def.Underline {
		style = style.Underline(true)
	}

	if def.Foreground != "" {
		if color, ok := colors[def.Foreground]; ok {
			style = style.Foreground(color)
		}
	}
	if def.Background != "" {
		if color, ok := colors[def.Background]; ok {
			style = style.Background(color)
		}
	}

	return style
}

func initDefaultStyles() {
	StyleRegistry = make(map[string]lipgloss.Style)
	for _, name := range []string{
		"Header", "Success", "Error", "Warning", "Info", "Muted", "Command", "FilePath",
	} {
		StyleRegistry[name] = lipgloss.NewStyle()
	}
}
