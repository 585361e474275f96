package cli

import (
	_ "embed"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

//go:embed manual.md
var manualText string

func newManualCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "manual",
		Short: "Show the operator manual",
		Long:  `Render the embedded operator manual in the terminal.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), renderManual(manualText))
			return nil
		},
	}
}

// renderManual renders markdown for the terminal. The raw markdown is a
// perfectly readable fallback, so rendering problems are not errors.
func renderManual(content string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return content
	}

	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
