// pkg/compose/docker.go
//
// Preflight checks against the docker daemon and the compose CLI. All of
// them are advisory: callers log the outcome and carry on.

package compose

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/hashicorp/go-version"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// ProjectName returns the default compose project name for a root
// directory: the lowercased base name with anything outside [a-z0-9_-] dropped.
func ProjectName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	base := strings.ToLower(filepath.Base(abs))
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PingDaemon checks that the docker daemon answers and returns its API version.
func PingDaemon(ctx context.Context) (string, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return "", cerr.Wrap(err, "failed to create docker client")
	}
	defer cli.Close()

	ping, err := cli.Ping(ctx)
	if err != nil {
		return "", cerr.WithHint(cerr.Wrap(err, "docker daemon is not reachable"),
			"Start the docker service or check DOCKER_HOST")
	}
	return ping.APIVersion, nil
}

// CountProjectContainers returns how many containers (running or not)
// carry the compose project label for project.
func CountProjectContainers(ctx context.Context, project string) (running, total int, err error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return 0, 0, cerr.Wrap(err, "failed to create docker client")
	}
	defer cli.Close()

	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", "com.docker.compose.project="+project)),
	})
	if err != nil {
		return 0, 0, cerr.Wrap(err, "failed to list containers")
	}
	for _, c := range containers {
		if c.State == "running" {
			running++
		}
	}
	return running, len(containers), nil
}

// ComposeVersion asks the compose CLI for its version.
func (d *Driver) ComposeVersion(ctx context.Context) (*version.Version, error) {
	if len(d.Command) == 0 {
		return nil, shovel_err.NewInternalError("compose command not resolved", nil)
	}
	var out bytes.Buffer
	args := append(append([]string{}, d.Command[1:]...), "version", "--short")
	code, err := d.Runner.Run(ctx, Invocation{
		Dir:    d.Root,
		Name:   d.Command[0],
		Args:   args,
		Stdout: &out,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "failed to query compose version")
	}
	if code != 0 {
		return nil, cerr.Newf("compose version exited with status %d", code)
	}
	raw := strings.TrimSpace(out.String())
	v, err := version.NewVersion(raw)
	if err != nil {
		return nil, cerr.Wrapf(err, "unrecognised compose version %q", raw)
	}
	return v, nil
}

// CheckComposeVersion warns when compose is older than minimum. An empty
// minimum skips the check.
func (d *Driver) CheckComposeVersion(ctx context.Context, minimum string) (bool, error) {
	if minimum == "" {
		return true, nil
	}
	logger := otelzap.Ctx(ctx)

	want, err := version.NewVersion(minimum)
	if err != nil {
		return false, shovel_err.NewValidationError("invalid minimum compose version "+minimum,
			"Set min-compose-version to a version such as 2.20.0")
	}
	got, err := d.ComposeVersion(ctx)
	if err != nil {
		logger.Warn("Could not determine compose version", zap.Error(err))
		return false, err
	}
	if got.LessThan(want) {
		logger.Warn("Compose is older than the supported minimum",
			zap.String("version", got.String()),
			zap.String("minimum", want.String()))
		return false, nil
	}
	logger.Debug("Compose version ok", zap.String("version", got.String()))
	return true, nil
}
