// Package lockfile serializes deployments per project.
//
// The lock is an advisory flock(2) on a well-known file inside the project
// workspace. The kernel drops it when the holding process dies, so a
// crashed deployment never wedges the project. The file body records the
// holder's PID for diagnostics only; the flock is what actually excludes.
package lockfile

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/landfall-sh/landfall/pkg/errors"
	"github.com/landfall-sh/landfall/pkg/logging"
)

// Lock is a held deployment lock.
type Lock struct {
	path string
	fl   *flock.Flock
}

// Acquire takes the lock at path without blocking. The parent directory is
// created if needed. When another process (or another handle in this one)
// holds the lock, the error reports the recorded holder PID.
func Acquire(path string) (*Lock, error) {
	logger := logging.GetLogger("lockfile")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "cannot create workspace for lock %s", path)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrLock, "cannot acquire lock %s", path)
	}
	if !locked {
		holder := readHolder(path)
		return nil, errors.Newf(errors.ErrAlreadyRunning, "another deployment appears to be running (pid %s)", holder).
			WithDetail("lock", path).
			WithDetail("holder_pid", holder)
	}

	// The flock is advisory, so writing through a second handle is fine.
	pid := strconv.Itoa(os.Getpid())
	if err := os.WriteFile(path, []byte(pid+"\n"), 0644); err != nil {
		_ = fl.Unlock()
		return nil, errors.Wrapf(err, errors.ErrLock, "cannot record holder in lock %s", path)
	}

	logger.Debug().Str("lock", path).Str("pid", pid).Msg("Lock acquired")
	return &Lock{path: path, fl: fl}, nil
}

// Release removes the lock file and drops the flock. Removing first keeps
// the path pointing at a locked inode or at nothing, so two waiters can
// never both succeed against a stale file.
func (l *Lock) Release() error {
	logger := logging.GetLogger("lockfile")

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrLock, "cannot remove lock %s", l.path)
	}

	if err := l.fl.Unlock(); err != nil {
		return errors.Wrapf(err, errors.ErrLock, "cannot release lock %s", l.path)
	}

	logger.Debug().Str("lock", l.path).Msg("Lock released")
	return nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// readHolder returns the PID recorded in the lock file, or "unknown" when
// it cannot be read.
func readHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "unknown"
	}

	line, _, _ := strings.Cut(string(data), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "unknown"
	}
	return line
}
