// pkg/script/runner_test.go
// TEST TYPE: Integration Test
// DEPENDENCIES: sh on PATH
// PURPOSE: Test sequential execution, echo behavior, env merging, and aborts

package script

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landfall-sh/landfall/pkg/errors"
)

func TestRunnerEchoesBeforeExecuting(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}

	err := r.Run(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "$ echo hello\nhello\n", out.String())
}

func TestRunnerSilentLines(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}

	err := r.Run(context.Background(), "@echo quiet")
	require.NoError(t, err)
	assert.Equal(t, "quiet\n", out.String())
}

func TestRunnerRunsSequentially(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}

	err := r.Run(context.Background(), "@echo one\n@echo two\n@echo three")
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\n", out.String())
}

func TestRunnerAbortsOnFailure(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}

	err := r.Run(context.Background(), "@echo before\nfalse\n@echo after")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))

	assert.Contains(t, out.String(), "before")
	assert.NotContains(t, out.String(), "after")

	details := errors.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "false", details["line"])
	assert.Equal(t, 1, details["exit_code"])
}

func TestRunnerMixedSequence(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}

	err := r.Run(context.Background(), "echo one\n@echo two\n# comment\nfalse\necho never")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))

	// The comment produces no output and nothing after the failing line runs.
	assert.Equal(t, "$ echo one\none\ntwo\n$ false\n", out.String())

	details := errors.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, "false", details["line"])
	assert.Equal(t, 4, details["line_no"])
}

func TestRunnerReportsExitCode(t *testing.T) {
	r := &Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	err := r.Run(context.Background(), "# fail deliberately\n@exit 3")
	require.Error(t, err)

	details := errors.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, 3, details["exit_code"])
	assert.Equal(t, 2, details["line_no"])
}

func TestRunnerMergesEnvironment(t *testing.T) {
	t.Setenv("LANDFALL_TEST_PARENT", "from-parent")
	t.Setenv("LANDFALL_TEST_COLLIDE", "from-parent")

	var out bytes.Buffer
	r := &Runner{
		Stdout: &out,
		Stderr: &out,
		Env: map[string]string{
			"LANDFALL_TEST_EXTRA":   "from-extra",
			"LANDFALL_TEST_COLLIDE": "from-extra",
		},
	}

	err := r.Run(context.Background(), "@echo $LANDFALL_TEST_PARENT $LANDFALL_TEST_EXTRA $LANDFALL_TEST_COLLIDE")
	require.NoError(t, err)
	assert.Equal(t, "from-parent from-extra from-extra\n", out.String())
}

func TestRunnerEmptyScriptIsNoop(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Stdout: &out, Stderr: &out}

	require.NoError(t, r.Run(context.Background(), ""))
	require.NoError(t, r.Run(context.Background(), "# only comments\n\n"))
	assert.Empty(t, out.String())
}

func TestRunnerShellFailureToStart(t *testing.T) {
	r := &Runner{
		Shell:  "/nonexistent/landfall-test-shell",
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	}

	err := r.Run(context.Background(), "echo hi")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))

	details := errors.GetErrorDetails(err)
	require.NotNil(t, details)
	assert.Equal(t, -1, details["exit_code"])
}

func TestRunnerHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	r := &Runner{Stdout: &bytes.Buffer{}, Stderr: &bytes.Buffer{}}

	err := r.Run(ctx, "@sleep 10")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
}
