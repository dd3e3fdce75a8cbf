// pkg/envstore/store.go

package envstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	cerr "github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Keys written to the environment file. Nothing else survives a rewrite.
const (
	KeyStartDate   = "CTF_START_DATE"
	KeyTickLength  = "TICK_LENGTH"
	KeyTargetIP    = "TARGET_IP"
	KeyRefreshRate = "REFRESH_RATE"
)

// Keys in the order confirmation lines are emitted.
var Keys = []string{KeyStartDate, KeyTickLength, KeyTargetIP, KeyRefreshRate}

// Record is the raw content of the environment file. Values read back from
// disk may have been hand-edited and are not validated here.
type Record struct {
	StartDate   string
	TickLength  string
	TargetIP    string
	RefreshRate string
}

// RecordFrom renders a validated configuration into its persisted form.
func RecordFrom(rc runconfig.RunConfiguration) Record {
	return Record{
		StartDate:   rc.StartDate,
		TickLength:  strconv.Itoa(rc.TickLength),
		TargetIP:    rc.TargetIP,
		RefreshRate: strconv.Itoa(rc.RefreshRate),
	}
}

func (r Record) toMap() map[string]string {
	return map[string]string{
		KeyStartDate:   r.StartDate,
		KeyTickLength:  r.TickLength,
		KeyTargetIP:    r.TargetIP,
		KeyRefreshRate: r.RefreshRate,
	}
}

// Get returns the value stored under key.
func (r Record) Get(key string) string {
	return r.toMap()[key]
}

// Store owns the environment file under a configuration root.
type Store struct {
	Path string
	// Notify receives one call per persisted field. May be nil.
	Notify func(key, value string)
}

// New returns a Store for <root>/<name>.
func New(root, name string) *Store {
	return &Store{Path: filepath.Join(root, name)}
}

// ConfigExists reports whether a record is present. Its presence means a
// previous deployment may still be running.
func (s *Store) ConfigExists() bool {
	_, err := os.Stat(s.Path)
	return err == nil
}

// WriteConfig replaces the file with exactly the four fields of rc.
func (s *Store) WriteConfig(ctx context.Context, rc runconfig.RunConfiguration) error {
	logger := otelzap.Ctx(ctx)
	rec := RecordFrom(rc)

	content, err := godotenv.Marshal(rec.toMap())
	if err != nil {
		return cerr.Wrap(err, "encode environment file")
	}

	if err := writeFileAtomic(s.Path, []byte(content+"\n"), 0o644); err != nil {
		return shovel_err.NewFilesystemError("could not write "+s.Path, err,
			"Check that the configuration root exists and is writable")
	}

	logger.Info("Configuration store written", zap.String("path", s.Path))
	for _, key := range Keys {
		logger.Debug("Persisted field", zap.String("key", key), zap.String("value", rec.Get(key)))
		if s.Notify != nil {
			s.Notify(key, rec.Get(key))
		}
	}
	return nil
}

// ReadConfig parses the file back. A missing file yields an error matching fs.ErrNotExist.
func (s *Store) ReadConfig() (Record, error) {
	env, err := godotenv.Read(s.Path)
	if err != nil {
		return Record{}, cerr.Wrapf(err, "read %s", s.Path)
	}
	return Record{
		StartDate:   env[KeyStartDate],
		TickLength:  env[KeyTickLength],
		TargetIP:    env[KeyTargetIP],
		RefreshRate: env[KeyRefreshRate],
	}, nil
}

// Previous returns the stored record for use as prompt defaults. A missing
// file is not an error; it is created on the next write.
func (s *Store) Previous(ctx context.Context) Record {
	rec, err := s.ReadConfig()
	switch {
	case err == nil:
		return rec
	case errors.Is(err, fs.ErrNotExist):
		otelzap.Ctx(ctx).Warn("Configuration store not found, it will be created", zap.String("path", s.Path))
	default:
		otelzap.Ctx(ctx).Warn("Configuration store unreadable, ignoring previous values",
			zap.String("path", s.Path), zap.Error(err))
	}
	return Record{}
}

// Remove deletes the record. A missing file is not an error.
func (s *Store) Remove() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return shovel_err.NewFilesystemError("could not remove "+s.Path, err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return cerr.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return cerr.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return cerr.Wrap(err, "write temp file")
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return cerr.Wrap(err, "chmod temp file")
	}
	if err := tmp.Close(); err != nil {
		return cerr.Wrap(err, "close temp file")
	}
	return os.Rename(tmpName, path)
}
