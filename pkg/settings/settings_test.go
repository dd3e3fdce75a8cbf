package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/cli"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/runconfig"
	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	root := t.TempDir()
	v := New()
	v.Set(KeyRoot, root)

	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, root, s.Root)
	assert.Equal(t, "docker-compose-c.yml", s.Descriptor(runconfig.ModeRemoteOverIP))
	assert.Equal(t, "docker-compose-a.yml", s.Descriptor(runconfig.ModeReplay))
	assert.Equal(t, "docker-compose-b.yml", s.Descriptor(runconfig.ModeCapture))
	assert.Equal(t, ".env", s.EnvFile)
	assert.Equal(t, filepath.Join(root, "services_config.json"), s.ServicesConfigPath())
	assert.Equal(t, []string{filepath.Join(root, "suricata/output")}, s.CleanupPaths())
	assert.Equal(t, "http://127.0.0.1:8000", s.WebURL)
	assert.Empty(t, s.ConfigFile)
}

func TestLoad_FileInRoot(t *testing.T) {
	root := t.TempDir()
	yaml := "compose-command: podman compose\ndescriptor-c: remote.yml\ncleanup-dirs:\n  - out\n  - /var/tmp/pcaps\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte(yaml), 0o644))

	v := New()
	v.Set(KeyRoot, root)
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "podman compose", s.ComposeCommand)
	assert.Equal(t, filepath.Join(root, "remote.yml"), s.DescriptorPath(runconfig.ModeRemoteOverIP))
	assert.Equal(t, []string{filepath.Join(root, "out"), "/var/tmp/pcaps"}, s.CleanupPaths())
	assert.Equal(t, filepath.Join(root, FileName), s.ConfigFile)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, FileName), []byte("web-url: http://10.0.0.1:8000\n"), 0o644))
	t.Setenv("SHOVEL_WEB_URL", "http://ctf.local:9000")

	v := New()
	v.Set(KeyRoot, root)
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "http://ctf.local:9000", s.WebURL)
}

func TestLoad_FlagsWin(t *testing.T) {
	root := t.TempDir()
	t.Setenv("SHOVEL_LOG_LEVEL", "warn")

	cmd := &cobra.Command{Use: "shovel"}
	cmd.PersistentFlags().String(KeyRoot, ".", "")
	cmd.PersistentFlags().String(KeyLogLevel, "info", "")
	require.NoError(t, cmd.PersistentFlags().Set(KeyRoot, root))
	require.NoError(t, cmd.PersistentFlags().Set(KeyLogLevel, "debug"))

	v := New()
	require.NoError(t, cli.BindFlagsToViper(cmd, v))
	s, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, root, s.Root)
	assert.Equal(t, "debug", s.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("root missing", func(t *testing.T) {
		v := New()
		v.Set(KeyRoot, filepath.Join(t.TempDir(), "nope"))
		_, err := Load(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration root is not a directory")
	})

	t.Run("explicit config missing", func(t *testing.T) {
		v := New()
		v.Set(KeyRoot, t.TempDir())
		v.Set(KeyConfig, filepath.Join(t.TempDir(), "missing.yaml"))
		_, err := Load(v)
		require.Error(t, err)
		assert.Equal(t, 2, shovel_err.GetExitCode(err))
	})

	t.Run("bad web url", func(t *testing.T) {
		v := New()
		v.Set(KeyRoot, t.TempDir())
		v.Set(KeyWebURL, "not a url")
		_, err := Load(v)
		require.Error(t, err)
		assert.Equal(t, 2, shovel_err.GetExitCode(err))
	})
}
