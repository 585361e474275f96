// Package config loads and validates the deployment configuration.
//
// A config file is a TOML document with one table per project. The table
// name is the project name used on the command line; the keys describe where
// the project's input lands and what runs around it:
//
//	[myapp]
//	destination = "/srv/myapp/current"
//	keep = false
//	type = "tar"
//	pre-commands = """
//	systemctl stop myapp
//	"""
//	commands = """
//	@chmod 755 /srv/myapp/current
//	systemctl start myapp
//	"""
package config

import (
	"sort"
	"strings"

	"github.com/landfall-sh/landfall/pkg/archive"
	"github.com/landfall-sh/landfall/pkg/errors"
	"github.com/landfall-sh/landfall/pkg/logging"
)

var log = logging.GetLogger("config")

// Project holds the deployment settings of a single config section.
type Project struct {
	// Name is the section name. It is filled in by the loader, not the file.
	Name string `koanf:"-" toml:"-"`

	// Destination is the directory the input is extracted into. When empty
	// the deployment lands in the project's workspace data directory.
	Destination string `koanf:"destination" toml:"destination"`

	// Keep controls whether an existing destination is kept (extract over it)
	// or removed before extraction.
	Keep bool `koanf:"keep" toml:"keep"`

	// Type optionally pins the archive type ("tar" or "zip"). When empty the
	// staged input is sniffed.
	Type string `koanf:"type" toml:"type,omitempty"`

	// PreCommands is a script run after the lock is taken and the input is
	// staged, before the destination is touched.
	PreCommands string `koanf:"pre-commands" toml:"pre-commands,multiline,omitempty"`

	// Commands is a script run after a successful extraction.
	Commands string `koanf:"commands" toml:"commands,multiline,omitempty"`
}

// Config is a parsed deployment configuration.
type Config struct {
	// Path is the file the configuration was loaded from.
	Path string

	// Projects maps section names to their settings.
	Projects map[string]Project
}

// ProjectNames returns the configured project names in sorted order.
func (c *Config) ProjectNames() []string {
	names := make([]string, 0, len(c.Projects))
	for name := range c.Projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Project looks up a project by name and validates its settings.
func (c *Config) Project(name string) (Project, error) {
	if err := ValidateProjectName(name); err != nil {
		return Project{}, err
	}

	p, ok := c.Projects[name]
	if !ok {
		return Project{}, errors.Newf(errors.ErrProjectNotFound, "project %q is not configured in %s", name, c.Path).
			WithDetail("available", c.ProjectNames())
	}

	if p.Type != "" {
		if _, err := archive.ParseType(p.Type); err != nil {
			return Project{}, errors.Wrapf(err, errors.ErrConfigParse, "project %q declares an invalid type", name).
				WithDetail("config", c.Path)
		}
	}

	return p, nil
}

// ValidateProjectName rejects names that cannot safely name a workspace
// directory. Project names come straight from the command line and are
// joined into cache paths, so path-like names are refused.
func ValidateProjectName(name string) error {
	if name == "" {
		return errors.New(errors.ErrInvalidInput, "project name is empty")
	}
	if name == "." || name == ".." {
		return errors.Newf(errors.ErrInvalidInput, "invalid project name %q", name)
	}
	if strings.ContainsAny(name, "/\\") {
		return errors.Newf(errors.ErrInvalidInput, "project name %q must not contain path separators", name)
	}
	return nil
}
