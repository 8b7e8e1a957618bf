package testutil

import (
	"os"
	"testing"

	"github.com/leefowlercu/skillsd/internal/config"
)

func TestNewTestEnv_LoadsConfig(t *testing.T) {
	env := NewTestEnv(t, Skill{Name: "Report", Pattern: "report*.txt", DocID: "DOC-R"})

	cfg := config.Get()
	if cfg == nil {
		t.Fatal("config.Get() = nil after NewTestEnv")
	}
	if cfg.WatchFolder != env.WatchFolder {
		t.Errorf("WatchFolder = %q, want %q", cfg.WatchFolder, env.WatchFolder)
	}
	if cfg.Daemon.HTTPEnabled {
		t.Error("HTTPEnabled = true, want false")
	}
	if len(cfg.Skills) != 1 || cfg.Skills[0].Name != "Report" || cfg.Skills[0].DisplayName != "Report" {
		t.Errorf("Skills = %+v, want one Report skill", cfg.Skills)
	}
	if config.ConfigFilePath() != env.ConfigPath {
		t.Errorf("ConfigFilePath() = %q, want %q", config.ConfigFilePath(), env.ConfigPath)
	}
}

func TestCreateTestFile(t *testing.T) {
	env := NewTestEnv(t)

	path := env.CreateTestFile(env.WatchFolder, "notes-1.md", "hello")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want hello", data)
	}
}
