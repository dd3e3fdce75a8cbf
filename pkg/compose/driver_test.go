package compose

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDriver(t *testing.T, command ...string) (*Driver, *FakeRunner) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "docker-compose-c.yml"), []byte("services: {}\n"), 0o644))

	if len(command) == 0 {
		command = []string{"docker", "compose"}
	}
	fake := &FakeRunner{}
	var out, errOut bytes.Buffer
	return &Driver{
		Root:       root,
		Descriptor: "docker-compose-c.yml",
		Command:    command,
		Runner:     fake,
		Stdout:     &out,
		Stderr:     &errOut,
	}, fake
}

func TestDriver_Arguments(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(d *Driver) (Result, error)
		want []string
	}{
		{"down", func(d *Driver) (Result, error) { return d.Down(ctx, DownOptions{}) },
			[]string{"down", "--remove-orphans"}},
		{"down volumes", func(d *Driver) (Result, error) { return d.Down(ctx, DownOptions{Volumes: true}) },
			[]string{"down", "--remove-orphans", "-v"}},
		{"up", func(d *Driver) (Result, error) { return d.Up(ctx, UpOptions{}) },
			[]string{"up", "-d"}},
		{"up build", func(d *Driver) (Result, error) { return d.Up(ctx, UpOptions{Build: true}) },
			[]string{"up", "-d", "--build"}},
		{"ps", func(d *Driver) (Result, error) { return d.Status(ctx) },
			[]string{"ps"}},
		{"logs", func(d *Driver) (Result, error) { return d.Logs(ctx, "--tail", "50", "arkime") },
			[]string{"logs", "-f", "--tail", "50", "arkime"}},
		{"exec", func(d *Driver) (Result, error) { return d.Exec(ctx, "suricata", "suricata", "-V") },
			[]string{"exec", "suricata", "suricata", "-V"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, fake := newTestDriver(t)
			res, err := tt.call(d)
			require.NoError(t, err)
			assert.Equal(t, 0, res.ExitCode)

			inv, ok := fake.Last()
			require.True(t, ok)
			assert.Equal(t, "docker", inv.Name)
			assert.Equal(t, d.Root, inv.Dir)
			want := append([]string{"compose", "-f", filepath.Join(d.Root, "docker-compose-c.yml")}, tt.want...)
			assert.Equal(t, want, inv.Args)
		})
	}
}

func TestDriver_StandaloneBinary(t *testing.T) {
	d, fake := newTestDriver(t, "docker-compose")
	res, err := d.Up(context.Background(), UpOptions{})
	require.NoError(t, err)

	inv, _ := fake.Last()
	assert.Equal(t, "docker-compose", inv.Name)
	assert.Equal(t, "-f", inv.Args[0])
	assert.Contains(t, res.Command, "docker-compose -f ")
}

func TestDriver_CheckedFailuresAreNotForwarded(t *testing.T) {
	d, fake := newTestDriver(t)
	fake.ExitCodes = map[string]int{"up": 17, "down": 4}

	_, err := d.Up(context.Background(), UpOptions{})
	require.Error(t, err)
	assert.Equal(t, 1, shovel_err.GetExitCode(err))
	var exitErr *shovel_err.ExitError
	assert.False(t, errors.As(err, &exitErr))

	_, err = d.Down(context.Background(), DownOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exit status 4")
}

func TestDriver_ForwardedExitCodes(t *testing.T) {
	d, fake := newTestDriver(t)
	fake.ExitCodes = map[string]int{"exec": 42, "logs": 130}

	res, err := d.Exec(context.Background(), "arkime", "false")
	require.Error(t, err)
	assert.Equal(t, 42, res.ExitCode)
	assert.Equal(t, 42, shovel_err.GetExitCode(err))

	_, err = d.Logs(context.Background())
	assert.Equal(t, 130, shovel_err.GetExitCode(err))
}

func TestDriver_ExecNeedsService(t *testing.T) {
	d, fake := newTestDriver(t)
	_, err := d.Exec(context.Background(), " ")
	require.Error(t, err)
	assert.Equal(t, 2, shovel_err.GetExitCode(err))
	assert.Empty(t, fake.Calls)
}

func TestDriver_MissingDescriptor(t *testing.T) {
	d, fake := newTestDriver(t)
	d.Descriptor = "docker-compose-a.yml"

	_, err := d.Up(context.Background(), UpOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deployment descriptor not found")
	assert.Empty(t, fake.Calls)
}

func TestDriver_RunnerError(t *testing.T) {
	d, fake := newTestDriver(t)
	fake.Err = errors.New("exec: \"docker\": executable file not found in $PATH")

	_, err := d.Status(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run compose")
}

func TestDriver_ComposeVersion(t *testing.T) {
	d, fake := newTestDriver(t)
	fake.Output = map[string]string{"version": "v2.27.1\n"}

	v, err := d.ComposeVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2.27.1", v.String())

	inv, _ := fake.Last()
	assert.Equal(t, []string{"compose", "version", "--short"}, inv.Args)

	ok, err := d.CheckComposeVersion(context.Background(), "2.20.0")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.CheckComposeVersion(context.Background(), "2.30.0")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.CheckComposeVersion(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestResolveCommand(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	available := map[string]bool{}
	lookPath = func(file string) (string, error) {
		if available[file] {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("not found")
	}

	_, err := ResolveCommand("")
	require.Error(t, err)
	assert.Equal(t, shovel_err.CategoryDependency, shovel_err.CategoryOf(err))

	available["docker"] = true
	cmd, err := ResolveCommand("")
	require.NoError(t, err)
	assert.Equal(t, []string{"docker", "compose"}, cmd)

	available["docker-compose"] = true
	cmd, err = ResolveCommand("")
	require.NoError(t, err)
	assert.Equal(t, []string{"docker-compose"}, cmd)

	cmd, err = ResolveCommand("  podman   compose ")
	require.NoError(t, err)
	assert.Equal(t, []string{"podman", "compose"}, cmd)
}

func TestProjectName(t *testing.T) {
	assert.Equal(t, "shovel", ProjectName("/opt/Shovel"))
	assert.Equal(t, "ctf2025_a", ProjectName("/srv/CTF 2025_a."))
	assert.Equal(t, "ctf-2025", ProjectName("/srv/ctf-2025"))
	assert.Equal(t, "tulip", ProjectName("/srv/tulip/"))
}

func TestSubcommand(t *testing.T) {
	assert.Equal(t, "up", Subcommand([]string{"compose", "-f", "x.yml", "up", "-d"}))
	assert.Equal(t, "down", Subcommand([]string{"-f", "x.yml", "down"}))
	assert.Equal(t, "", Subcommand(nil))
}
