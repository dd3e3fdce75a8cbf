// Package preflight runs advisory checks before a deployment starts. A failed
// optional check is logged and shown to the operator but does not stop the run.
package preflight

import (
	"context"
	"fmt"
	"time"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/compose"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/sshkey"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// checkTimeout bounds a single check.
const checkTimeout = 10 * time.Second

// Check represents a single preflight check
type Check struct {
	Name        string
	Description string
	Check       func(context.Context) error
	Required    bool
}

// CheckResult contains the result of running preflight checks
type CheckResult struct {
	Name    string
	Passed  bool
	Error   error
	Warning string
}

// RunChecks executes all checks in order. Only failed required checks
// produce an error.
func RunChecks(ctx context.Context, checks []Check) ([]CheckResult, error) {
	logger := otelzap.Ctx(ctx)
	logger.Debug("Running preflight checks", zap.Int("total_checks", len(checks)))

	results := make([]CheckResult, 0, len(checks))
	criticalFailures := 0

	for _, check := range checks {
		result := CheckResult{Name: check.Name}

		checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := check.Check(checkCtx)
		cancel()

		switch {
		case err == nil:
			result.Passed = true
			logger.Debug("Check passed", zap.String("check", check.Name))
		case check.Required:
			result.Error = err
			criticalFailures++
			logger.Error("Check failed (required)", zap.String("check", check.Name), zap.Error(err))
		default:
			result.Error = err
			result.Warning = err.Error()
			logger.Warn("Check failed (optional)", zap.String("check", check.Name), zap.Error(err))
		}
		results = append(results, result)
	}

	if criticalFailures > 0 {
		return results, cerr.Newf("%d required check(s) failed", criticalFailures)
	}
	return results, nil
}

// CheckDocker verifies the docker daemon answers.
func CheckDocker(ctx context.Context) error {
	apiVersion, err := compose.PingDaemon(ctx)
	if err != nil {
		return err
	}
	otelzap.Ctx(ctx).Debug("Docker daemon reachable", zap.String("api_version", apiVersion))
	return nil
}

// CheckComposeVersion verifies the compose CLI is at least minimum.
func CheckComposeVersion(d *compose.Driver, minimum string) func(context.Context) error {
	return func(ctx context.Context) error {
		ok, err := d.CheckComposeVersion(ctx, minimum)
		if err != nil {
			return err
		}
		if !ok {
			return cerr.Newf("compose is older than %s, some descriptor features may not work", minimum)
		}
		return nil
	}
}

// CheckSSHKey verifies the key the mode-C descriptor mounts.
func CheckSSHKey(dir string, alg runconfig.KeyAlgorithm) func(context.Context) error {
	return func(ctx context.Context) error {
		res := sshkey.CheckKey(ctx, dir, alg)
		if res.OK() {
			return nil
		}
		if res.Details != "" {
			return cerr.WithHint(cerr.New(res.Message), res.Details)
		}
		return cerr.New(res.Message)
	}
}

// CheckDiskSpace verifies minimum free space on the filesystem holding path.
func CheckDiskSpace(path string, minGB uint64) func(context.Context) error {
	return func(ctx context.Context) error {
		var stat unix.Statfs_t
		if err := unix.Statfs(path, &stat); err != nil {
			return cerr.Wrapf(err, "failed to check disk space on %s", path)
		}

		availableGB := (stat.Bavail * uint64(stat.Bsize)) / (1024 * 1024 * 1024)
		if availableGB < minGB {
			return cerr.WithHint(
				cerr.Newf("insufficient disk space: %dGB available, %dGB recommended", availableGB, minGB),
				fmt.Sprintf("Free space under %s or clear old captures with `shovel clear`", path))
		}
		return nil
	}
}

// StartChecks returns the checks run before `up`. The SSH key check is only
// included when alg is set (mode C).
func StartChecks(d *compose.Driver, minCompose string, root string, sshDir string, alg runconfig.KeyAlgorithm) []Check {
	checks := []Check{
		{
			Name:        "Docker",
			Description: "Docker daemon is running and accessible",
			Check:       CheckDocker,
		},
		{
			Name:        "Compose version",
			Description: "Compose CLI is recent enough",
			Check:       CheckComposeVersion(d, minCompose),
		},
		{
			Name:        "Disk space",
			Description: "Room for capture output",
			Check:       CheckDiskSpace(root, 5),
		},
	}
	if alg != "" && sshDir != "" {
		checks = append(checks, Check{
			Name:        "SSH key",
			Description: "Key for the remote capture host",
			Check:       CheckSSHKey(sshDir, alg),
		})
	}
	return checks
}
