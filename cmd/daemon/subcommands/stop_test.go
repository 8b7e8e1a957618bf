package subcommands

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIsProcessRunning_CurrentProcess(t *testing.T) {
	pid := os.Getpid()
	if !isProcessRunning(pid) {
		t.Errorf("isProcessRunning(%d) = false, want true for current process", pid)
	}
}

func TestIsProcessRunning_DeadProcess(t *testing.T) {
	// Very high PID that almost certainly doesn't exist
	pid := 99999999
	if isProcessRunning(pid) {
		t.Errorf("isProcessRunning(%d) = true, want false for dead process", pid)
	}
}

func TestStopDaemon_NoDaemonRunning(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "nonexistent.pid")

	err := stopDaemon(discardLogger(), pidPath, time.Second)
	if !errors.Is(err, ErrNoDaemonRunning) {
		t.Errorf("stopDaemon() error = %v, want ErrNoDaemonRunning", err)
	}
}

func TestStopDaemon_StalePIDFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "daemon.pid")

	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(99999999)), 0o644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	err := stopDaemon(discardLogger(), pidPath, time.Second)
	if !errors.Is(err, ErrStalePIDFile) {
		t.Errorf("stopDaemon() error = %v, want ErrStalePIDFile", err)
	}

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("stopDaemon() should have cleaned up stale PID file")
	}
}

func TestStopDaemon_InvalidPIDFile(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "daemon.pid")

	if err := os.WriteFile(pidPath, []byte("not-a-number"), 0o644); err != nil {
		t.Fatalf("Failed to write PID file: %v", err)
	}

	err := stopDaemon(discardLogger(), pidPath, time.Second)
	if err == nil || errors.Is(err, ErrNoDaemonRunning) {
		t.Errorf("stopDaemon() error = %v, want parse error", err)
	}
}
