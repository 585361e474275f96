package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/landfall-sh/landfall/pkg/config"
	"github.com/landfall-sh/landfall/pkg/journal"
	"github.com/landfall-sh/landfall/pkg/paths"
)

// shortDigest abbreviates "sha256:<64 hex>" for one-line display.
func shortDigest(digest string) string {
	const keep = len("sha256:") + 12
	if len(digest) <= keep {
		return digest
	}
	return digest[:keep]
}

func statusStyle(status string) *pterm.Style {
	switch status {
	case journal.StatusOK:
		return pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	case journal.StatusFailed:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// renderProjects renders the configured project list with resolved
// destinations.
func renderProjects(cfg *config.Config, p paths.Paths) string {
	names := cfg.ProjectNames()
	if len(names) == 0 {
		return pterm.NewStyle(pterm.FgGray).Sprintf("No projects configured in %s", cfg.Path)
	}

	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.Bold).Sprintf("Projects in %s", cfg.Path))
	b.WriteString("\n\n")

	for _, name := range names {
		project := cfg.Projects[name]
		dest := project.Destination
		if dest == "" {
			dest = p.DataDir(name)
		}

		b.WriteString(fmt.Sprintf("  %s\n", pterm.NewStyle(pterm.FgCyan, pterm.Bold).Sprint(name)))
		b.WriteString(fmt.Sprintf("    destination: %s\n", dest))
		if project.Type != "" {
			b.WriteString(fmt.Sprintf("    type: %s\n", project.Type))
		}
		if project.Keep {
			b.WriteString("    keep: true\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderHistory renders journal records, newest first.
func renderHistory(records []journal.Record) string {
	if len(records) == 0 {
		return pterm.NewStyle(pterm.FgGray).Sprint("No deployments recorded yet")
	}

	var b strings.Builder
	for _, rec := range records {
		mark := statusStyle(rec.Status).Sprintf("%-6s", rec.Status)
		when := rec.StartedAt.Local().Format("2006-01-02 15:04:05")
		b.WriteString(fmt.Sprintf("%s %s  %s -> %s\n", mark, when, rec.Project, rec.Destination))

		if rec.Status == journal.StatusOK {
			took := rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond)
			line := fmt.Sprintf("       %s, %d files, %s", rec.ArchiveType, rec.Files, took)
			if rec.Digest != "" {
				line += "  " + shortDigest(rec.Digest)
			}
			b.WriteString(line + "\n")
		} else if rec.Error != "" {
			b.WriteString(fmt.Sprintf("       %s\n", rec.Error))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
