package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/gofrs/flock"
)

// ErrDaemonAlreadyRunning indicates that another daemon process holds the lock.
var ErrDaemonAlreadyRunning = errors.New("daemon already running")

// PIDFile manages the daemon's process ID file. An advisory lock on a
// sibling ".lock" file decides ownership; the PID file itself is only
// informational for stop and status.
type PIDFile struct {
	path string
	lock *flock.Flock
}

// NewPIDFile creates a new PIDFile instance with the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{
		path: path,
		lock: flock.New(path + ".lock"),
	}
}

// Path returns the path to the PID file.
func (p *PIDFile) Path() string {
	return p.path
}

// Write writes the current process's PID to the file through a temp file and rename.
func (p *PIDFile) Write() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create PID file directory; %w", err)
	}

	tmpPath := p.path + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("failed to write temporary PID file; %w", err)
	}

	if err := os.Rename(tmpPath, p.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename PID file; %w", err)
	}

	return nil
}

// Read reads and returns the PID from the file.
func (p *PIDFile) Read() (int, error) {
	content, err := os.ReadFile(p.path)
	if err != nil {
		return 0, fmt.Errorf("failed to read PID file; %w", err)
	}

	pidStr := strings.TrimSpace(string(content))
	if pidStr == "" {
		return 0, errors.New("empty PID file")
	}

	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0, fmt.Errorf("invalid PID in file; %w", err)
	}

	if pid <= 0 {
		return 0, fmt.Errorf("invalid PID %d; must be positive", pid)
	}

	return pid, nil
}

// Remove deletes the PID file and releases the lock if this process holds it.
// A missing PID file is not an error.
func (p *PIDFile) Remove() error {
	err := os.Remove(p.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file; %w", err)
	}

	if p.lock.Locked() {
		if err := p.lock.Unlock(); err != nil {
			return fmt.Errorf("failed to release PID lock; %w", err)
		}
	}

	return nil
}

// IsStale reports whether the PID file names a process that no longer exists.
// A missing file is not stale.
func (p *PIDFile) IsStale() (bool, error) {
	pid, err := p.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		if _, statErr := os.Stat(p.path); os.IsNotExist(statErr) {
			return false, nil
		}
		return false, fmt.Errorf("PID file exists but unreadable; %w", err)
	}

	// Signal 0 checks existence without delivering anything.
	err = syscall.Kill(pid, 0)
	if err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return true, nil
		}
		if errors.Is(err, syscall.EPERM) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check process; %w", err)
	}

	return false, nil
}

// CheckAndClaim takes the lock and records the current PID.
// If another process holds the lock it returns ErrDaemonAlreadyRunning.
// A PID file left behind by a crashed daemon is overwritten.
func (p *PIDFile) CheckAndClaim() error {
	if err := os.MkdirAll(filepath.Dir(p.path), 0o755); err != nil {
		return fmt.Errorf("failed to create PID file directory; %w", err)
	}

	locked, err := p.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire PID lock; %w", err)
	}
	if !locked {
		if pid, readErr := p.Read(); readErr == nil {
			return fmt.Errorf("%w; pid %d", ErrDaemonAlreadyRunning, pid)
		}
		return ErrDaemonAlreadyRunning
	}

	if err := p.Write(); err != nil {
		_ = p.lock.Unlock()
		return err
	}

	return nil
}
