// pkg/settings/settings.go
//
// Operator settings. Precedence, highest first: command-line flags, SHOVEL_*
// environment variables, shovel.yaml (in the configuration root or given
// with --config), built-in defaults.

package settings

import (
	"os"
	"path/filepath"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/validate"
	cerr "github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// FileName is looked up in the configuration root when --config is not given.
const FileName = "shovel.yaml"

// Keys. Flag names match so BindFlagsToViper needs no mapping.
const (
	KeyRoot              = "root"
	KeyConfig            = "config"
	KeyComposeCommand    = "compose-command"
	KeyDescriptorA       = "descriptor-a"
	KeyDescriptorB       = "descriptor-b"
	KeyDescriptorC       = "descriptor-c"
	KeyEnvFile           = "env-file"
	KeyServicesConfig    = "services-config"
	KeyWebURL            = "web-url"
	KeyCleanupDirs       = "cleanup-dirs"
	KeySSHKeyDir         = "ssh-key-dir"
	KeyTelemetry         = "telemetry"
	KeyTelemetryPath     = "telemetry-path"
	KeyMinComposeVersion = "min-compose-version"
	KeyLogLevel          = "log-level"
	KeyLogFile           = "log-file"
)

// Settings is the resolved operator configuration.
type Settings struct {
	Root              string   `mapstructure:"root" validate:"required"`
	ComposeCommand    string   `mapstructure:"compose-command"`
	DescriptorA       string   `mapstructure:"descriptor-a" validate:"required"`
	DescriptorB       string   `mapstructure:"descriptor-b" validate:"required"`
	DescriptorC       string   `mapstructure:"descriptor-c" validate:"required"`
	EnvFile           string   `mapstructure:"env-file" validate:"required"`
	ServicesConfig    string   `mapstructure:"services-config" validate:"required"`
	WebURL            string   `mapstructure:"web-url" validate:"required,url"`
	CleanupDirs       []string `mapstructure:"cleanup-dirs" validate:"dive,required"`
	SSHKeyDir         string   `mapstructure:"ssh-key-dir"`
	Telemetry         bool     `mapstructure:"telemetry"`
	TelemetryPath     string   `mapstructure:"telemetry-path"`
	MinComposeVersion string   `mapstructure:"min-compose-version"`
	LogLevel          string   `mapstructure:"log-level"`
	LogFile           string   `mapstructure:"log-file"`

	// ConfigFile is the settings file that was read, if any.
	ConfigFile string `mapstructure:"-"`
}

// SetDefaults registers the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRoot, ".")
	v.SetDefault(KeyDescriptorA, "docker-compose-a.yml")
	v.SetDefault(KeyDescriptorB, "docker-compose-b.yml")
	v.SetDefault(KeyDescriptorC, "docker-compose-c.yml")
	v.SetDefault(KeyEnvFile, ".env")
	v.SetDefault(KeyServicesConfig, "services_config.json")
	v.SetDefault(KeyWebURL, "http://127.0.0.1:8000")
	v.SetDefault(KeyCleanupDirs, []string{"suricata/output"})
	v.SetDefault(KeyTelemetry, false)
	v.SetDefault(KeyMinComposeVersion, "2.0.0")
	v.SetDefault(KeyLogLevel, "info")
}

// New returns a Viper instance with defaults and SHOVEL_* env lookup.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	cli.SetViperEnvPrefix(v, cli.EnvPrefix)
	return v
}

// Load resolves Settings from v, reading the settings file when present.
// An explicit --config that cannot be read is an error; a missing
// shovel.yaml in the root is not.
func Load(v *viper.Viper) (*Settings, error) {
	root, err := filepath.Abs(v.GetString(KeyRoot))
	if err != nil {
		return nil, cerr.Wrap(err, "resolve configuration root")
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, shovel_err.NewFilesystemError("configuration root is not a directory: "+root, err,
			"Pass --root pointing at the directory with the docker-compose files")
	}

	configFile := v.GetString(KeyConfig)
	switch {
	case configFile != "":
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, shovel_err.WrapValidationError(err, "cannot read settings file "+configFile)
		}
	default:
		candidate := filepath.Join(root, FileName)
		if _, statErr := os.Stat(candidate); statErr == nil {
			v.SetConfigFile(candidate)
			if err := v.ReadInConfig(); err != nil {
				return nil, shovel_err.WrapValidationError(err, "cannot read settings file "+candidate)
			}
			configFile = candidate
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, shovel_err.WrapValidationError(err, "invalid settings")
	}
	s.Root = root
	s.ConfigFile = configFile

	if err := validate.Struct(s); err != nil {
		return nil, shovel_err.WrapValidationError(err, "invalid settings",
			"Check "+FileName+" and SHOVEL_* environment variables")
	}
	return &s, nil
}

// Descriptor returns the descriptor file name for mode.
func (s *Settings) Descriptor(m runconfig.Mode) string {
	switch m {
	case runconfig.ModeReplay:
		return s.DescriptorA
	case runconfig.ModeCapture:
		return s.DescriptorB
	default:
		return s.DescriptorC
	}
}

// Path resolves p against the configuration root unless it is absolute.
func (s *Settings) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(s.Root, p)
}

// DescriptorPath returns the absolute descriptor path for mode.
func (s *Settings) DescriptorPath(m runconfig.Mode) string {
	return s.Path(s.Descriptor(m))
}

// ServicesConfigPath returns the services config path.
func (s *Settings) ServicesConfigPath() string {
	return s.Path(s.ServicesConfig)
}

// CleanupPaths returns the data directories removed by clear.
func (s *Settings) CleanupPaths() []string {
	paths := make([]string, 0, len(s.CleanupDirs))
	for _, d := range s.CleanupDirs {
		paths = append(paths, s.Path(d))
	}
	return paths
}
