// pkg/compose/command.go

package compose

import (
	"os/exec"
	"strings"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
)

var lookPath = exec.LookPath

// ResolveCommand returns the argv prefix used to invoke compose. A non-empty
// override (e.g. "podman compose") is split on whitespace and used as is.
// Otherwise the standalone docker-compose binary is preferred, falling back
// to the docker CLI compose plugin.
func ResolveCommand(override string) ([]string, error) {
	if fields := strings.Fields(override); len(fields) > 0 {
		return fields, nil
	}
	if _, err := lookPath("docker-compose"); err == nil {
		return []string{"docker-compose"}, nil
	}
	if _, err := lookPath("docker"); err == nil {
		return []string{"docker", "compose"}, nil
	}
	return nil, shovel_err.NewDependencyError("docker-compose or the docker CLI with the compose plugin", "deployment",
		"Install Docker Engine with the compose plugin: https://docs.docker.com/compose/install/",
		"Or set compose-command in shovel.yaml")
}
