// pkg/envstore/services.go

package envstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// EnsureServicesConfig creates path containing an empty JSON object if it
// does not exist. An existing file is never touched.
func EnsureServicesConfig(ctx context.Context, path string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, shovel_err.NewFilesystemError("could not stat "+path, err)
	}

	data, err := json.Marshal(map[string]any{})
	if err != nil {
		return false, err
	}
	if err := writeFileAtomic(path, data, 0o644); err != nil {
		return false, shovel_err.NewFilesystemError("could not create "+path, err)
	}
	otelzap.Ctx(ctx).Info("Created services config", zap.String("path", path))
	return true, nil
}

// RemoveServicesConfig deletes path. A missing file is not an error.
func RemoveServicesConfig(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return shovel_err.NewFilesystemError("could not remove "+path, err)
	}
	return nil
}
