// Package testutil provides testing utilities for isolated test environments.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/leefowlercu/skillsd/internal/config"
)

// TestEnv provides an isolated test environment with its own config file,
// watch folder, archive folder and state directory.
type TestEnv struct {
	t             *testing.T
	Dir           string
	ConfigPath    string
	WatchFolder   string
	ArchiveFolder string
}

// Skill is one entry written to the test config's skills object.
type Skill struct {
	Name    string
	Pattern string
	DocID   string
}

// NewTestEnv writes a valid config file declaring skills, points HOME and
// SKILLSD_CONFIG at the test's temp space and initializes the config package.
// The HTTP server is disabled so tests never bind a port.
// Cleanup is automatic via t.Cleanup.
func NewTestEnv(t *testing.T, skills ...Skill) *TestEnv {
	t.Helper()

	dir := t.TempDir()
	env := &TestEnv{
		t:             t,
		Dir:           dir,
		ConfigPath:    filepath.Join(dir, "skills.json"),
		WatchFolder:   filepath.Join(dir, "watch"),
		ArchiveFolder: filepath.Join(dir, "archive"),
	}

	// Keep ~ expansion and any SKILLSD_* overrides from escaping the test.
	t.Setenv("HOME", dir)
	t.Setenv(config.EnvConfigPath, env.ConfigPath)

	if len(skills) == 0 {
		skills = []Skill{{Name: "Notes", Pattern: "notes-*.md", DocID: "DOC-NOTES"}}
	}
	skillsObj := make(map[string]map[string]string, len(skills))
	for _, s := range skills {
		skillsObj[s.Name] = map[string]string{"pattern": s.Pattern, "doc_id": s.DocID}
	}

	doc := map[string]any{
		"watch_folder":         env.WatchFolder,
		"archive_folder":       env.ArchiveFolder,
		"service_account_file": filepath.Join(dir, "service-account.json"),
		"log_file":             filepath.Join(dir, "skillsd.log"),
		"skills":               skillsObj,
		"daemon": map[string]any{
			"http_enabled": false,
			"pid_file":     filepath.Join(dir, "daemon.pid"),
		},
		"history": map[string]any{
			"path": filepath.Join(dir, "history.db"),
		},
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("failed to encode test config: %v", err)
	}
	if err := os.WriteFile(env.ConfigPath, data, 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config.Reset()
	if err := config.Init(""); err != nil {
		t.Fatalf("failed to initialize test config: %v", err)
	}

	t.Cleanup(func() {
		config.Reset()
	})

	return env
}

// CreateTestFile creates a file with the given content in dir.
// Returns the absolute path to the created file.
func (e *TestEnv) CreateTestFile(dir, name, content string) string {
	e.t.Helper()

	if err := os.MkdirAll(dir, 0755); err != nil {
		e.t.Fatalf("failed to create dir %s: %v", dir, err)
	}

	filePath := filepath.Join(dir, name)
	if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
		e.t.Fatalf("failed to create test file %s: %v", filePath, err)
	}
	return filePath
}
