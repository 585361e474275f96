package config

import (
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/landfall-sh/landfall/pkg/errors"
	"github.com/landfall-sh/landfall/pkg/paths"
)

// Load reads the first existing config file from the candidate list.
// Candidates usually come from Paths.ConfigCandidates, with -c flags from
// the command line taking priority.
func Load(candidates []string) (*Config, error) {
	path, found := findConfigFile(candidates)
	if !found {
		return nil, errors.New(errors.ErrConfigNotFound, "no config file found").
			WithDetail("candidates", candidates)
	}
	return LoadFile(path)
}

// LoadFile reads and parses a single config file.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "cannot parse config file %s", path)
	}

	// Use the raw nested map rather than koanf's flattened view so that
	// project names containing dots stay intact.
	raw := k.Raw()

	cfg := &Config{
		Path:     path,
		Projects: make(map[string]Project, len(raw)),
	}

	for name, v := range raw {
		section, ok := v.(map[string]interface{})
		if !ok {
			log.Warn().Str("key", name).Str("config", path).Msg("Ignoring top-level key that is not a project table")
			continue
		}

		project, err := decodeProject(name, section)
		if err != nil {
			return nil, err
		}
		cfg.Projects[name] = project
	}

	log.Debug().Str("config", path).Int("projects", len(cfg.Projects)).Msg("Config loaded")
	return cfg, nil
}

func findConfigFile(candidates []string) (string, bool) {
	for _, candidate := range candidates {
		if candidate == "" {
			continue
		}
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}

func decodeProject(name string, section map[string]interface{}) (Project, error) {
	var p Project

	// pre_commands is accepted as an alias; the hyphen spelling wins when
	// both are present.
	if v, ok := section["pre_commands"]; ok {
		if _, exists := section["pre-commands"]; !exists {
			section["pre-commands"] = v
		}
		delete(section, "pre_commands")
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		TagName:          "koanf",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Project{}, errors.Wrap(err, errors.ErrInternal, "cannot build section decoder")
	}

	if err := decoder.Decode(section); err != nil {
		return Project{}, errors.Wrapf(err, errors.ErrConfigParse, "invalid project section %q", name)
	}

	p.Name = name
	p.Destination = paths.ExpandHome(p.Destination)
	return p, nil
}
