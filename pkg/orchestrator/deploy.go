// pkg/orchestrator/deploy.go

package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/compose"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/descriptor"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/envstore"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/preflight"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/sshkey"
	cerr "github.com/cockroachdb/errors"
	"github.com/hashicorp/go-multierror"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func (o *Orchestrator) patch(ctx context.Context, rc runconfig.RunConfiguration) error {
	path := o.driver.DescriptorPath()
	res, err := descriptor.Patch(ctx, path, descriptor.Changes{
		Host:         rc.TargetIP,
		KeyAlgorithm: string(rc.KeyAlgorithm),
	})
	if err != nil {
		return err
	}
	if res.Changed {
		o.Out.Success("Patched %s: host %s, key %s", filepath.Base(path), rc.TargetIP, rc.KeyAlgorithm.KeyFileName())
	} else {
		o.Out.Info("%s already targets %s with %s", filepath.Base(path), rc.TargetIP, rc.KeyAlgorithm.KeyFileName())
	}
	return nil
}

func (o *Orchestrator) up(ctx context.Context, req Request, alg runconfig.KeyAlgorithm) error {
	logger := otelzap.Ctx(ctx)

	if o.Preflight {
		o.runPreflight(ctx, alg)
	}

	created, err := envstore.EnsureServicesConfig(ctx, o.Settings.ServicesConfigPath())
	if err != nil {
		return err
	}
	if created {
		o.Out.Info("Created %s", filepath.Base(o.Settings.ServicesConfigPath()))
	}

	o.Out.Info("Starting %s", o.mode)
	res, err := o.driver.Up(ctx, compose.UpOptions{Build: !req.NoBuild})
	if err != nil {
		return err
	}
	logger.Info("Deployment started", zap.Stringer("mode", o.mode), zap.Duration("duration", res.Duration))

	o.Out.Success("Deployment started in mode %s", o.mode)
	o.Out.Box("Web UI: " + o.Settings.WebURL)
	return nil
}

func (o *Orchestrator) runPreflight(ctx context.Context, alg runconfig.KeyAlgorithm) {
	logger := otelzap.Ctx(ctx)

	sshDir := o.Settings.SSHKeyDir
	if sshDir == "" && alg != "" {
		dir, err := sshkey.DefaultDir()
		if err != nil {
			logger.Debug("No SSH key directory", zap.Error(err))
		}
		sshDir = dir
	}

	checks := preflight.StartChecks(o.driver, o.Settings.MinComposeVersion, o.Settings.Root, sshDir, alg)
	results, _ := preflight.RunChecks(ctx, checks)
	for _, r := range results {
		if r.Passed {
			continue
		}
		o.Out.Warn("%s: %s", r.Name, r.Warning)
		for _, hint := range cerr.GetAllHints(r.Error) {
			o.Out.Plain("    hint: %s", hint)
		}
	}
}

func (o *Orchestrator) stop(ctx context.Context) error {
	if _, err := o.driver.Down(ctx, compose.DownOptions{}); err != nil {
		return err
	}
	o.Out.Success("Deployment stopped")
	return nil
}

func (o *Orchestrator) status(ctx context.Context) error {
	logger := otelzap.Ctx(ctx)

	if _, err := o.driver.Status(ctx); err != nil {
		if shovel_err.IsUserCancelled(err) {
			return err
		}
		logger.Warn("Status check failed", zap.Error(err))
		o.Out.Warn("Could not get service status: %s", firstLine(err.Error()))
		return nil
	}

	if o.Containers == nil {
		return nil
	}
	project := compose.ProjectName(o.Settings.Root)
	running, total, err := o.Containers(ctx, project)
	if err != nil {
		logger.Debug("Container count unavailable", zap.String("project", project), zap.Error(err))
		return nil
	}
	o.Out.Info("%d of %d containers running in project %s", running, total, project)
	return nil
}

func (o *Orchestrator) clear(ctx context.Context, req Request) error {
	logger := otelzap.Ctx(ctx)

	if !req.Yes && o.Prompter == nil {
		return shovel_err.NewValidationError("clear deletes captured data and needs confirmation",
			"Pass --yes to confirm when not running in a terminal")
	}

	// nothing, volumes included, is removed until the operator agrees
	targets := append([]string{o.Store.Path, o.Settings.ServicesConfigPath()}, o.Settings.CleanupPaths()...)
	if !req.Yes {
		o.Out.Plain("The following will be deleted:")
		o.Out.Plain("  compose volumes")
		for _, t := range targets {
			o.Out.Plain("  %s", t)
		}
		ok, err := o.Prompter.PromptYesNo(ctx, "Delete configuration and captured data?", false)
		if err != nil {
			return err
		}
		if !ok {
			if _, err := o.driver.Down(ctx, compose.DownOptions{}); err != nil {
				return err
			}
			o.Out.Success("Deployment stopped")
			o.Out.Info("Kept configuration and data")
			return nil
		}
	}

	if _, err := o.driver.Down(ctx, compose.DownOptions{Volumes: true}); err != nil {
		return err
	}
	o.Out.Success("Deployment stopped and volumes removed")

	var result error
	if err := o.Store.Remove(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := envstore.RemoveServicesConfig(o.Settings.ServicesConfigPath()); err != nil {
		result = multierror.Append(result, err)
	}
	for _, dir := range o.Settings.CleanupPaths() {
		if err := removeDataDir(o.Settings.Root, dir); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		logger.Info("Removed data directory", zap.String("path", dir))
	}
	if result != nil {
		return shovel_err.NewFilesystemError("clear did not finish", result)
	}

	o.Out.Success("Configuration and captured data removed")
	return nil
}

// removeDataDir deletes dir unless it is the root itself, one of its
// parents, or the filesystem root.
func removeDataDir(root, dir string) error {
	clean := filepath.Clean(dir)
	if clean == string(filepath.Separator) || clean == filepath.Clean(root) {
		return cerr.Newf("refusing to remove %s", clean)
	}
	if rel, err := filepath.Rel(clean, root); err == nil && !strings.HasPrefix(rel, "..") {
		return cerr.Newf("refusing to remove %s, it contains the configuration root", clean)
	}
	if err := os.RemoveAll(clean); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cerr.Wrapf(err, "remove %s", clean)
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
