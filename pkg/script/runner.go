package script

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sort"

	"github.com/landfall-sh/landfall/pkg/errors"
	"github.com/landfall-sh/landfall/pkg/logging"
	"github.com/landfall-sh/landfall/pkg/ui"
)

// Runner executes script directives sequentially through the shell.
// The zero value runs through sh with the parent's environment and
// standard streams.
type Runner struct {
	// Shell overrides the shell binary. Defaults to "sh".
	Shell string

	// Env is merged over the parent environment. On key collisions the
	// Env value wins.
	Env map[string]string

	// Stdout and Stderr receive command output. They default to the
	// process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Run parses src and executes its directives in order. The first command
// with a non-zero exit aborts the run; the returned error carries the
// offending line and its exit code.
func (r *Runner) Run(ctx context.Context, src string) error {
	directives := Parse(src)
	if len(directives) == 0 {
		return nil
	}

	logger := logging.GetLogger("script")
	env := mergeEnv(os.Environ(), r.Env)

	for _, d := range directives {
		if d.Kind == KindComment {
			continue
		}
		if d.Kind == KindEchoExec {
			ui.CommandEcho(r.stdout(), d.Line)
		}

		logger.Debug().
			Str("command", d.Line).
			Stringer("kind", d.Kind).
			Int("line", d.LineNo).
			Msg("Executing command")

		cmd := exec.CommandContext(ctx, r.shell(), "-c", d.Line)
		cmd.Env = env
		cmd.Stdout = r.stdout()
		cmd.Stderr = r.stderr()

		if err := cmd.Run(); err != nil {
			exitCode := -1
			if exitErr, ok := err.(*exec.ExitError); ok {
				exitCode = exitErr.ExitCode()
			}
			return errors.Wrapf(err, errors.ErrCommandFailed, "command failed: %s", d.Line).
				WithDetail("line", d.Line).
				WithDetail("line_no", d.LineNo).
				WithDetail("exit_code", exitCode)
		}
	}

	return nil
}

func (r *Runner) shell() string {
	if r.Shell != "" {
		return r.Shell
	}
	return "sh"
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

// mergeEnv appends the extra variables after the base environment. The
// execution environment takes the last value for a duplicated key, so
// extras override the parent.
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}

	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	merged := make([]string, 0, len(base)+len(extra))
	merged = append(merged, base...)
	for _, k := range keys {
		merged = append(merged, k+"="+extra[k])
	}
	return merged
}
