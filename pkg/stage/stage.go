// Package stage materializes the deployment input inside the project
// workspace.
//
// The artifact arrives as a stream (normally the process's stdin) and is
// not assumed seekable, so it is copied to disk in full before anything
// sniffs or extracts it. A staged input deliberately survives a failed
// deployment so it can be inspected.
package stage

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/landfall-sh/landfall/pkg/errors"
	"github.com/landfall-sh/landfall/pkg/logging"
)

// Stage copies r in full to the staged path, replacing any leftover from
// an earlier run, and syncs the file to disk. It returns the number of
// bytes staged and the artifact's digest in "sha256:<hex>" form. On error
// a partial file may remain; the next run truncates it.
func Stage(r io.Reader, staged string) (int64, string, error) {
	logger := logging.GetLogger("stage")

	if err := os.MkdirAll(filepath.Dir(staged), 0755); err != nil {
		return 0, "", errors.Wrapf(err, errors.ErrIO, "cannot create workspace for %s", staged)
	}

	f, err := os.OpenFile(staged, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return 0, "", errors.Wrapf(err, errors.ErrIO, "cannot create staged input %s", staged)
	}

	// The digest is computed while streaming so the artifact is read once.
	hash := sha256.New()
	n, err := io.Copy(io.MultiWriter(f, hash), r)
	if err != nil {
		_ = f.Close()
		return n, "", errors.Wrapf(err, errors.ErrIO, "cannot stage input to %s", staged)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return n, "", errors.Wrapf(err, errors.ErrIO, "cannot sync staged input %s", staged)
	}
	if err := f.Close(); err != nil {
		return n, "", errors.Wrapf(err, errors.ErrIO, "cannot finish staged input %s", staged)
	}

	digest := fmt.Sprintf("sha256:%x", hash.Sum(nil))
	logger.Debug().Str("staged", staged).Int64("bytes", n).Str("digest", digest).Msg("Input staged")
	return n, digest, nil
}

// Remove deletes the staged input after a successful deployment. A missing
// file is not an error, removal is idempotent.
func Remove(staged string) error {
	if err := os.Remove(staged); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrIO, "cannot remove staged input %s", staged)
	}
	return nil
}
