// Package deploy sequences a complete deployment run.
//
// A run walks a linear pipeline: take the project lock, stage the input,
// run the pre-commands, prepare the destination, resolve the archive type,
// extract, run the post-commands, drop the staged input, release the lock.
// The first failing stage aborts the rest. The lock is released on every
// exit path; the staged input and a partially prepared destination are
// deliberately left behind on failure so they can be inspected.
package deploy

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/landfall-sh/landfall/pkg/archive"
	"github.com/landfall-sh/landfall/pkg/config"
	"github.com/landfall-sh/landfall/pkg/errors"
	"github.com/landfall-sh/landfall/pkg/journal"
	"github.com/landfall-sh/landfall/pkg/lockfile"
	"github.com/landfall-sh/landfall/pkg/logging"
	"github.com/landfall-sh/landfall/pkg/paths"
	"github.com/landfall-sh/landfall/pkg/script"
	"github.com/landfall-sh/landfall/pkg/stage"
)

// Environment variables injected into both hook stages.
const (
	EnvDestDir = "LANDFALL_DESTDIR"
	EnvProject = "LANDFALL_PROJECT"
	EnvInput   = "LANDFALL_INPUT"
)

// Options configures a single deployment run. Ambient state (workspace
// layout, the input stream, hook output) is passed in explicitly so runs
// are testable without touching process-wide state.
type Options struct {
	// Project is the validated project configuration.
	Project config.Project

	// Input is the artifact stream, normally the process's stdin. It is
	// read exactly once and staged to disk before anything examines it.
	Input io.Reader

	// Paths lays out the per-project workspace.
	Paths paths.Paths

	// Journal records the outcome when non-nil. Journal failures are
	// logged, never fatal.
	Journal *journal.Journal

	// Stdout and Stderr receive hook command output. They default to the
	// process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Result describes a finished deployment.
type Result struct {
	Project     string
	Destination string
	ArchiveType archive.Type

	// Bytes and Digest describe the staged input; Digest is the artifact's
	// sha256 in "sha256:<hex>" form.
	Bytes  int64
	Digest string

	// Entry counts from extraction.
	Files int
	Dirs  int
	Links int

	// PreLines and PostLines count the executable hook lines.
	PreLines  int
	PostLines int

	Started  time.Time
	Duration time.Duration
}

// Summary is the one-line status printed after a successful run.
func (r *Result) Summary() string {
	return fmt.Sprintf("deployed %s to %s (%s, %d files, %s)",
		r.Project, r.Destination, r.ArchiveType, r.Files, r.Duration.Round(time.Millisecond))
}

// Run executes the deployment pipeline for one project. On failure the
// returned error carries one of the deployment error codes; whatever was
// already staged or extracted stays on disk for diagnosis.
func Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logging.GetLogger("deploy")

	if err := validate(opts); err != nil {
		return nil, err
	}

	name := opts.Project.Name
	dest := opts.Project.Destination
	if dest == "" {
		dest = opts.Paths.DataDir(name)
	}

	res := &Result{
		Project:     name,
		Destination: dest,
		Started:     time.Now(),
	}

	logger.Info().
		Str("project", name).
		Str("destination", dest).
		Msg("Starting deployment")

	// 1. Serialize against other deployments of the same project. A held
	// lock fails the run immediately, it never queues.
	lock, err := lockfile.Acquire(opts.Paths.LockPath(name))
	if err != nil {
		record(ctx, opts, res, err)
		return nil, err
	}

	err = runStages(ctx, opts, res)

	// 9. The lock is released on every exit path so a failed run never
	// blocks the next one. A release failure on an otherwise successful
	// run fails it: success promises the lock file is gone.
	if relErr := lock.Release(); relErr != nil {
		if err == nil {
			err = relErr
		} else {
			logger.Warn().Err(relErr).Str("project", name).Msg("Cannot release deployment lock")
		}
	}

	record(ctx, opts, res, err)

	if err != nil {
		logger.Error().Err(err).Str("project", name).Msg("Deployment failed")
		return nil, err
	}

	logger.Info().
		Str("project", name).
		Str("type", string(res.ArchiveType)).
		Int("files", res.Files).
		Int64("bytes", res.Bytes).
		Dur("duration", res.Duration).
		Msg("Deployment finished")
	return res, nil
}

func runStages(ctx context.Context, opts Options, res *Result) error {
	name := res.Project

	// 2. Materialize the input on disk before anything examines it; the
	// stream is not assumed seekable.
	staged := opts.Paths.InputPath(name)
	n, digest, err := stage.Stage(opts.Input, staged)
	if err != nil {
		return err
	}
	res.Bytes = n
	res.Digest = digest

	runner := &script.Runner{
		Env: map[string]string{
			EnvDestDir: res.Destination,
			EnvProject: name,
			EnvInput:   staged,
		},
		Stdout: opts.Stdout,
		Stderr: opts.Stderr,
	}

	// 3. Pre-extraction hooks run before the destination is touched.
	res.PreLines = execLines(opts.Project.PreCommands)
	if err := runner.Run(ctx, opts.Project.PreCommands); err != nil {
		return err
	}

	// 4. Prepare the destination. With keep unset the old deployment is
	// cleared here, before the archive type is known; a run that fails
	// later leaves the cleared destination as is.
	if !opts.Project.Keep {
		if err := os.RemoveAll(res.Destination); err != nil {
			return errors.Wrapf(err, errors.ErrIO, "cannot clear destination %s", res.Destination)
		}
	}

	// 5. Resolve the archive type; a declared type bypasses sniffing.
	typ, err := archive.Resolve(opts.Project.Type, staged)
	if err != nil {
		return err
	}
	res.ArchiveType = typ

	// 6. Extract into the destination.
	extracted, err := archive.Extract(archive.ExtractOptions{
		Source: staged,
		Type:   typ,
		Dest:   res.Destination,
	})
	if err != nil {
		return err
	}
	res.Files, res.Dirs, res.Links = extracted.Files, extracted.Dirs, extracted.Links

	// 7. Post-extraction hooks.
	res.PostLines = execLines(opts.Project.Commands)
	if err := runner.Run(ctx, opts.Project.Commands); err != nil {
		return err
	}

	// 8. The staged input is consumed only by a fully successful run.
	return stage.Remove(staged)
}

// execLines counts the script lines that actually run a command.
func execLines(src string) int {
	n := 0
	for _, d := range script.Parse(src) {
		if d.Kind != script.KindComment {
			n++
		}
	}
	return n
}

// record writes the outcome to the journal, best effort.
func record(ctx context.Context, opts Options, res *Result, runErr error) {
	res.Duration = time.Since(res.Started)

	rec := journal.Record{
		Project:     res.Project,
		Destination: res.Destination,
		ArchiveType: string(res.ArchiveType),
		Digest:      res.Digest,
		Files:       res.Files,
		Dirs:        res.Dirs,
		Links:       res.Links,
		Status:      journal.StatusOK,
		StartedAt:   res.Started,
		FinishedAt:  res.Started.Add(res.Duration),
	}
	if runErr != nil {
		rec.Status = journal.StatusFailed
		rec.Error = runErr.Error()
	}

	if err := opts.Journal.Append(ctx, rec); err != nil {
		logging.GetLogger("deploy").Warn().Err(err).Msg("Cannot record deployment in journal")
	}
}

func validate(opts Options) error {
	if opts.Project.Name == "" {
		return errors.New(errors.ErrInvalidInput, "deployment needs a project name")
	}
	if opts.Input == nil {
		return errors.New(errors.ErrInvalidInput, "deployment needs an input stream")
	}
	if opts.Paths == nil {
		return errors.New(errors.ErrInternal, "deployment needs a workspace layout")
	}
	return nil
}
