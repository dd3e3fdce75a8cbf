package process

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_AcquireRelease(t *testing.T) {
	root := t.TempDir()
	l := NewLock(root)

	require.NoError(t, l.Acquire())
	assert.True(t, l.IsHeld())
	assert.Equal(t, os.Getpid(), l.HolderPID())

	// re-acquire by the holder is a no-op
	require.NoError(t, l.Acquire())

	require.NoError(t, l.Release())
	assert.False(t, l.IsHeld())
	assert.Equal(t, 0, l.HolderPID())
	assert.NoFileExists(t, filepath.Join(root, PIDFileName))

	require.NoError(t, l.Release())
}

func TestLock_SecondHolderConflicts(t *testing.T) {
	root := t.TempDir()
	first := NewLock(root)
	require.NoError(t, first.Acquire())
	t.Cleanup(func() { _ = first.Release() })

	// flock locks belong to the open file description, so a second open
	// conflicts even within one process
	second := NewLock(root)
	err := second.Acquire()
	require.Error(t, err)
	assert.False(t, second.IsHeld())
	assert.Equal(t, shovel_err.CategoryConflict, shovel_err.CategoryOf(err))
	assert.Equal(t, 1, shovel_err.GetExitCode(err))

	var held *ErrLockHeld
	require.True(t, errors.As(err, &held))
	assert.Equal(t, os.Getpid(), held.HolderPID)
	assert.Contains(t, err.Error(), "PID "+strconv.Itoa(os.Getpid()))

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestLock_UnwritableRoot(t *testing.T) {
	l := NewLock(filepath.Join(t.TempDir(), "missing"))
	err := l.Acquire()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open lock file")
}
