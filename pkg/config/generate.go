package config

import (
	"fmt"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/landfall-sh/landfall/pkg/errors"
)

const generateHeader = `# landfall deployment configuration
#
# Each table configures one project. Keys:
#   destination    directory the input is extracted into
#                  (default: the project's data dir under the cache root)
#   keep           keep an existing destination and extract over it (default false)
#   type           "tar" or "zip"; leave unset to detect from the input
#   pre-commands   script run before the destination is prepared
#   commands       script run after a successful extraction
#
# Script lines starting with @ run without being echoed. Lines starting
# with # are comments. The first failing line aborts the deployment.

`

// GenerateConfigContent renders a starter config file for the given project.
func GenerateConfigContent(project string) (string, error) {
	if err := ValidateProjectName(project); err != nil {
		return "", err
	}

	example := map[string]Project{
		project: {
			Destination: fmt.Sprintf("/srv/%s/current", project),
			Keep:        false,
			PreCommands: fmt.Sprintf("systemctl stop %s\n", project),
			Commands:    fmt.Sprintf("@chmod 755 /srv/%s/current\nsystemctl start %s\n", project, project),
		},
	}

	data, err := toml.Marshal(example)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "cannot render example config")
	}

	return generateHeader + string(data), nil
}
