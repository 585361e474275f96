// Package cli wires the landfall commands together.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/landfall-sh/landfall/internal/version"
	"github.com/landfall-sh/landfall/pkg/config"
	"github.com/landfall-sh/landfall/pkg/deploy"
	"github.com/landfall-sh/landfall/pkg/journal"
	"github.com/landfall-sh/landfall/pkg/logging"
	"github.com/landfall-sh/landfall/pkg/paths"
	"github.com/landfall-sh/landfall/pkg/ui"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		verbosity   int
		configFiles []string
	)

	rootCmd := &cobra.Command{
		Use:   "landfall <project>",
		Short: "Deploy an artifact from stdin",
		Long: `landfall receives an artifact archive on standard input, stages it under
the project's workspace, extracts it into the configured destination, and
runs the operator-defined hook commands around the extraction.

A CI pipeline typically invokes it as the last step:

  curl -s "$ARTIFACT_URL" | landfall myapp`,
		Args:    cobra.ExactArgs(1),
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, args[0], configFiles)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file to try (repeatable, first existing wins)")

	rootCmd.AddCommand(newProjectsCmd(&configFiles))
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newGenconfigCmd())
	rootCmd.AddCommand(newManualCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig resolves the configuration from the explicit -c files when
// given, or the default search path otherwise.
func loadConfig(p paths.Paths, configFiles []string) (*config.Config, error) {
	candidates := configFiles
	if len(candidates) == 0 {
		candidates = p.ConfigCandidates()
	}
	return config.Load(candidates)
}

func runDeploy(cmd *cobra.Command, projectName string, configFiles []string) error {
	p, err := paths.New()
	if err != nil {
		return err
	}

	cfg, err := loadConfig(p, configFiles)
	if err != nil {
		return err
	}

	project, err := cfg.Project(projectName)
	if err != nil {
		return err
	}

	// History is best effort: a broken journal must not block deployments.
	j, err := journal.Open(p.JournalPath())
	if err != nil {
		log.Warn().Err(err).Msg("Cannot open deployment journal")
		j = nil
	}
	defer func() {
		_ = j.Close()
	}()

	res, err := deploy.Run(cmd.Context(), deploy.Options{
		Project: project,
		Input:   cmd.InOrStdin(),
		Paths:   p,
		Journal: j,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	ui.Successf(cmd.OutOrStdout(), "%s", res.Summary())
	return nil
}

func newProjectsCmd(configFiles *[]string) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List configured projects",
		Long:  `List the projects defined in the configuration file, with their destinations.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := paths.New()
			if err != nil {
				return err
			}
			cfg, err := loadConfig(p, *configFiles)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderProjects(cfg, p))
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [project]",
		Short: "Show recent deployments",
		Long:  `Show the most recent deployments recorded in the journal, newest first.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := paths.New()
			if err != nil {
				return err
			}

			project := ""
			if len(args) == 1 {
				project = args[0]
			}

			j, err := journal.Open(p.JournalPath())
			if err != nil {
				return err
			}
			defer func() {
				_ = j.Close()
			}()

			records, err := j.Recent(cmd.Context(), project, limit)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(records))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", journal.DefaultLimit, "Maximum number of deployments to show")
	return cmd
}

func newGenconfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genconfig [project]",
		Short: "Print a starter configuration",
		Long:  `Print a commented starter configuration for a project to stdout.`,
		Example: `  # Print a starter config for "myapp"
  landfall genconfig myapp > ~/.config/landfall/landfall.toml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			project := "myapp"
			if len(args) == 1 {
				project = args[0]
			}

			content, err := config.GenerateConfigContent(project)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), content)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including commit hash and build date`,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "landfall version %s\n", version.Version)
			if version.Commit != "" {
				fmt.Fprintf(out, "Commit: %s\n", version.Commit)
			}
			if version.Date != "" {
				fmt.Fprintf(out, "Built:  %s\n", version.Date)
			}
		},
	}
}

// Execute runs the root command and reports failures on stderr. It is the
// single entry point used by main.
func Execute() int {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		ui.Errorf(os.Stderr, "landfall: %v", err)
		return 1
	}
	return 0
}
