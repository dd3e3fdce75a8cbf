// pkg/process/lock.go
//
// Single-writer lock for a configuration root. Mutating commands hold it so
// a second shovel cannot stop a deployment that the first is starting.

package process

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/CodeMonkeyCybersecurity/shovel/pkg/shovel_err"
	cerr "github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// LockFileName and PIDFileName live in the configuration root.
const (
	LockFileName = ".shovel.lock"
	PIDFileName  = ".shovel.pid"
)

// ErrLockHeld is returned when another process owns the lock.
type ErrLockHeld struct {
	HolderPID int
	LockPath  string
}

func (e *ErrLockHeld) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("another shovel instance is running (PID %d)", e.HolderPID)
	}
	return "another shovel instance is running"
}

// Lock is an advisory flock(2) on <root>/.shovel.lock. Not safe for use from
// several goroutines.
type Lock struct {
	lockPath string
	pidPath  string
	file     *os.File
}

// NewLock returns an unacquired lock for root.
func NewLock(root string) *Lock {
	return &Lock{
		lockPath: filepath.Join(root, LockFileName),
		pidPath:  filepath.Join(root, PIDFileName),
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.lockPath }

// IsHeld reports whether this Lock holds the flock.
func (l *Lock) IsHeld() bool { return l.file != nil }

// Acquire takes the lock without blocking. If another process holds it the
// error is a conflict carrying *ErrLockHeld.
func (l *Lock) Acquire() error {
	if l.file != nil {
		return nil
	}

	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return shovel_err.NewFilesystemError("failed to open lock file "+l.lockPath, err,
			"Check that the configuration root is writable")
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if cerr.Is(err, unix.EWOULDBLOCK) {
			held := &ErrLockHeld{HolderPID: l.HolderPID(), LockPath: l.lockPath}
			return shovel_err.NewConflictError(held.Error(), held)
		}
		return cerr.Wrap(err, "failed to acquire lock")
	}
	l.file = f

	// the PID file is informational only
	_ = os.WriteFile(l.pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	_ = os.Remove(l.pidPath)

	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		return cerr.Wrap(unlockErr, "failed to release lock")
	}
	return closeErr
}

// HolderPID reads the PID recorded by the current holder, or 0.
func (l *Lock) HolderPID() int {
	data, err := os.ReadFile(l.pidPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
