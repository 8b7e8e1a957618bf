package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestPIDFile_Write(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")

	pf := NewPIDFile(pidPath)
	if err := pf.Write(); err != nil {
		t.Fatalf("PIDFile.Write() error = %v", err)
	}

	content, err := os.ReadFile(pidPath)
	if err != nil {
		t.Fatalf("failed to read PID file: %v", err)
	}

	if want := strconv.Itoa(os.Getpid()); string(content) != want {
		t.Errorf("PIDFile content = %q, want %q", string(content), want)
	}
}

func TestPIDFile_Write_CreatesParentDirectory(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.pid")

	if err := NewPIDFile(pidPath).Write(); err != nil {
		t.Fatalf("PIDFile.Write() error = %v", err)
	}

	if _, err := os.Stat(pidPath); err != nil {
		t.Errorf("PIDFile.Write() did not create file in nested directory: %v", err)
	}
}

func TestPIDFile_Read(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
		wantErr bool
	}{
		{"plain", "12345", 12345, false},
		{"trailing newline", "12345\n", 12345, false},
		{"empty", "", 0, true},
		{"non numeric", "not-a-number", 0, true},
		{"negative", "-4", 0, true},
		{"zero", "0", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pidPath := filepath.Join(t.TempDir(), "test.pid")
			if err := os.WriteFile(pidPath, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to create test PID file: %v", err)
			}

			got, err := NewPIDFile(pidPath).Read()
			if (err != nil) != tt.wantErr {
				t.Fatalf("PIDFile.Read() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("PIDFile.Read() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPIDFile_Read_NotExists(t *testing.T) {
	_, err := NewPIDFile(filepath.Join(t.TempDir(), "nonexistent.pid")).Read()
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("PIDFile.Read() error = %v, want os.ErrNotExist", err)
	}
}

func TestPIDFile_Remove_NotExists(t *testing.T) {
	if err := NewPIDFile(filepath.Join(t.TempDir(), "nonexistent.pid")).Remove(); err != nil {
		t.Errorf("PIDFile.Remove() error = %v, want nil for nonexistent file", err)
	}
}

func TestPIDFile_IsStale(t *testing.T) {
	tests := []struct {
		name  string
		write bool
		pid   int
		want  bool
	}{
		{"no file", false, 0, false},
		{"current process", true, os.Getpid(), false},
		{"dead process", true, 99999999, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pidPath := filepath.Join(t.TempDir(), "test.pid")
			if tt.write {
				if err := os.WriteFile(pidPath, []byte(strconv.Itoa(tt.pid)), 0o644); err != nil {
					t.Fatalf("failed to create test PID file: %v", err)
				}
			}

			stale, err := NewPIDFile(pidPath).IsStale()
			if err != nil {
				t.Fatalf("PIDFile.IsStale() error = %v", err)
			}
			if stale != tt.want {
				t.Errorf("PIDFile.IsStale() = %v, want %v", stale, tt.want)
			}
		})
	}
}

func TestPIDFile_CheckAndClaim_StaleFileIsOverwritten(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")
	if err := os.WriteFile(pidPath, []byte("99999999"), 0o644); err != nil {
		t.Fatalf("failed to create test PID file: %v", err)
	}

	pf := NewPIDFile(pidPath)
	if err := pf.CheckAndClaim(); err != nil {
		t.Fatalf("PIDFile.CheckAndClaim() error = %v, want nil for stale file", err)
	}
	t.Cleanup(func() { _ = pf.Remove() })

	pid, err := pf.Read()
	if err != nil {
		t.Fatalf("PIDFile.Read() error = %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("PIDFile.Read() = %d, want %d", pid, os.Getpid())
	}
}

func TestPIDFile_CheckAndClaim_LockHeld(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")

	first := NewPIDFile(pidPath)
	if err := first.CheckAndClaim(); err != nil {
		t.Fatalf("first CheckAndClaim() error = %v", err)
	}
	t.Cleanup(func() { _ = first.Remove() })

	second := NewPIDFile(pidPath)
	err := second.CheckAndClaim()
	if !errors.Is(err, ErrDaemonAlreadyRunning) {
		t.Fatalf("second CheckAndClaim() error = %v, want ErrDaemonAlreadyRunning", err)
	}
}

func TestPIDFile_Remove_ReleasesLock(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "test.pid")

	first := NewPIDFile(pidPath)
	if err := first.CheckAndClaim(); err != nil {
		t.Fatalf("CheckAndClaim() error = %v", err)
	}
	if err := first.Remove(); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PIDFile.Remove() did not remove file")
	}

	second := NewPIDFile(pidPath)
	if err := second.CheckAndClaim(); err != nil {
		t.Errorf("CheckAndClaim() after Remove error = %v", err)
	}
	_ = second.Remove()
}
