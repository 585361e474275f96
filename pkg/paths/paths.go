// Package paths provides centralized path handling for landfall.
// It implements XDG Base Directory specification compliance and
// provides a consistent API for all path operations in the codebase.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Environment variable names
const (
	// EnvConfig points at the deployment config file. It may hold a
	// colon-separated list of candidate paths; the first existing one wins.
	EnvConfig = "LANDFALL_CONFIG"

	// EnvCacheDir overrides the XDG cache directory for landfall
	EnvCacheDir = "LANDFALL_CACHE_DIR"

	// EnvConfigDir overrides the XDG config directory for landfall
	EnvConfigDir = "LANDFALL_CONFIG_DIR"

	// EnvHome is the standard home directory variable
	EnvHome = "HOME"
)

// Default directories and files
// IMPORTANT: These constants define landfall's workspace structure and are
// NOT user-configurable. They must remain consistent across installations so
// that concurrent runs agree on lock and staging locations.
const (
	// AppDirName is the directory name for landfall-specific files
	AppDirName = "landfall"

	// ConfigFileName is the default name of the deployment config file
	ConfigFileName = "landfall.toml"

	// SystemConfigDir is the system-wide fallback config directory
	SystemConfigDir = "/etc/landfall"

	// LockFileName is the per-project lock file inside a workspace
	LockFileName = "lock"

	// InputFileName is the staged input inside a workspace
	InputFileName = "input"

	// DataDirName is the scratch extraction area inside a workspace
	DataDirName = "data"

	// JournalFileName is the deployment journal database
	JournalFileName = "history.db"

	// LogFileName is the name of the log file
	LogFileName = "landfall.log"
)

// Paths provides centralized path management for landfall
type Paths interface {
	ConfigDir() string
	CacheDir() string
	ConfigCandidates() []string
	Workspace(project string) string
	LockPath(project string) string
	InputPath(project string) string
	DataDir(project string) string
	JournalPath() string
	LogFilePath() string
}

// paths provides centralized path management for landfall
type paths struct {
	// xdgConfig is the XDG config directory
	xdgConfig string

	// xdgCache is the XDG cache directory
	xdgCache string

	// xdgState is the XDG state directory
	xdgState string
}

// New creates a new Paths instance, honoring environment overrides.
func New() (Paths, error) {
	p := &paths{}
	if err := p.setupXDGDirs(); err != nil {
		return nil, err
	}
	return p, nil
}

// setupXDGDirs initializes XDG directories, respecting environment overrides
func (p *paths) setupXDGDirs() error {
	// Config directory
	if configDir := os.Getenv(EnvConfigDir); configDir != "" {
		p.xdgConfig = expandHome(configDir)
	} else {
		p.xdgConfig = filepath.Join(xdg.ConfigHome, AppDirName)
	}

	// Cache directory - workspaces and the journal live here
	if cacheDir := os.Getenv(EnvCacheDir); cacheDir != "" {
		p.xdgCache = expandHome(cacheDir)
	} else {
		p.xdgCache = filepath.Join(xdg.CacheHome, AppDirName)
	}

	// State directory - XDG doesn't provide StateHome, so we check manually
	if stateDir := os.Getenv("XDG_STATE_HOME"); stateDir != "" {
		p.xdgState = filepath.Join(stateDir, AppDirName)
	} else {
		homeDir, _ := os.UserHomeDir()
		p.xdgState = filepath.Join(homeDir, ".local", "state", AppDirName)
	}

	return nil
}

// expandHome expands ~ to the home directory
func expandHome(path string) string {
	if path == "" {
		return path
	}

	if path[0] == '~' {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to HOME env var
			homeDir = os.Getenv(EnvHome)
			if homeDir == "" {
				// Can't expand, return as-is
				return path
			}
		}

		if len(path) == 1 {
			return homeDir
		}

		// Handle both ~/ and ~
		if path[1] == '/' || path[1] == filepath.Separator {
			return filepath.Join(homeDir, path[2:])
		}

		// ~something (not the user's home)
		return path
	}

	return path
}

// ExpandHome is a utility function that expands ~ in paths.
// Config destinations are run through this before any filesystem work.
func ExpandHome(path string) string {
	return expandHome(path)
}

// ConfigDir returns the XDG config directory for landfall
func (p *paths) ConfigDir() string {
	return p.xdgConfig
}

// CacheDir returns the XDG cache directory for landfall
func (p *paths) CacheDir() string {
	return p.xdgCache
}

// ConfigCandidates returns the config file locations to try, in order.
// LANDFALL_CONFIG takes priority and may list several paths separated by
// colons; otherwise the user config dir and the system-wide dir are tried.
func (p *paths) ConfigCandidates() []string {
	if env := os.Getenv(EnvConfig); env != "" {
		var candidates []string
		for _, c := range strings.Split(env, ":") {
			if c == "" {
				continue
			}
			candidates = append(candidates, expandHome(c))
		}
		if len(candidates) > 0 {
			return candidates
		}
	}

	return []string{
		filepath.Join(p.xdgConfig, ConfigFileName),
		filepath.Join(SystemConfigDir, ConfigFileName),
	}
}

// Workspace returns the per-project workspace directory.
// The lock file, the staged input, and the extraction area all live under it.
func (p *paths) Workspace(project string) string {
	return filepath.Join(p.xdgCache, project)
}

// LockPath returns the path to a project's lock file
func (p *paths) LockPath(project string) string {
	return filepath.Join(p.Workspace(project), LockFileName)
}

// InputPath returns the path to a project's staged input
func (p *paths) InputPath(project string) string {
	return filepath.Join(p.Workspace(project), InputFileName)
}

// DataDir returns the path to a project's scratch extraction area
func (p *paths) DataDir(project string) string {
	return filepath.Join(p.Workspace(project), DataDirName)
}

// JournalPath returns the path to the deployment journal database
func (p *paths) JournalPath() string {
	return filepath.Join(p.xdgCache, JournalFileName)
}

// LogFilePath returns the path to the landfall log file
// Respects XDG_STATE_HOME if set
func (p *paths) LogFilePath() string {
	return filepath.Join(p.xdgState, LogFileName)
}
