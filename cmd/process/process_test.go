package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/docs"
	"github.com/leefowlercu/skillsd/internal/history"
	"github.com/leefowlercu/skillsd/internal/pipeline"
)

type fakeDocs struct {
	mu      sync.Mutex
	inserts []string
	err     error
}

func (f *fakeDocs) EndIndex(ctx context.Context, docID string) (int64, error) {
	return 10, nil
}

func (f *fakeDocs) InsertText(ctx context.Context, docID string, index int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.inserts = append(f.inserts, text)
	return nil
}

func (f *fakeDocs) factory() docs.ServiceFactory {
	return func(ctx context.Context) (docs.DocumentService, error) { return f, nil }
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.NewDefaultConfig()
	cfg.WatchFolder = filepath.Join(root, "watch")
	cfg.ArchiveFolder = filepath.Join(root, "archive")
	cfg.History.Path = filepath.Join(root, "history.db")
	cfg.Readiness.InitialWaitMs = 1
	cfg.Readiness.MaxWaitMs = 5
	cfg.Reader.RetryDelayMs = 1
	cfg.Skills = []config.SkillConfig{
		{Name: "Notes", Pattern: "notes-*.md", DocID: "DOC-N", DisplayName: "Notes"},
	}
	return &cfg
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessFile_AppendsArchivesAndRecords(t *testing.T) {
	cfg := testConfig(t)
	fake := &fakeDocs{}

	path := filepath.Join(t.TempDir(), "notes-2024.md")
	require.NoError(t, os.WriteFile(path, []byte("Meeting summary"), 0o644))

	res, err := processFile(context.Background(), cfg, quietLogger(), fake.factory(), path)
	require.NoError(t, err)

	assert.Equal(t, pipeline.OutcomeArchived, res.Outcome)
	assert.Equal(t, filepath.Join(cfg.ArchiveFolder, "notes-2024.md"), res.ArchivePath)
	require.Len(t, fake.inserts, 1)
	assert.True(t, strings.HasPrefix(fake.inserts[0], "Meeting summary\n\n"))

	store, err := history.Open(context.Background(), cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "archived", entries[0].Outcome)
}

func TestProcessFile_NoMatchLeavesFile(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.Enabled = false
	fake := &fakeDocs{}

	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("data"), 0o644))

	res, err := processFile(context.Background(), cfg, quietLogger(), fake.factory(), path)
	require.NoError(t, err)

	assert.Equal(t, pipeline.OutcomeIgnored, res.Outcome)
	assert.Empty(t, fake.inserts)
	assert.FileExists(t, path)
}

func TestReport(t *testing.T) {
	tests := []struct {
		name    string
		res     pipeline.Result
		want    string
		wantErr bool
	}{
		{
			name: "archived",
			res:  pipeline.Result{Path: "/in/notes-1.md", Outcome: pipeline.OutcomeArchived, Bytes: 5, DocID: "DOC-N", Skill: "Notes", ArchivePath: "/out/notes-1.md"},
			want: "archived to /out/notes-1.md",
		},
		{
			name: "archive failed",
			res:  pipeline.Result{Path: "/in/notes-1.md", Outcome: pipeline.OutcomeArchived, ArchiveErr: errors.New("read-only")},
			want: "warning: file left in place",
		},
		{
			name: "ignored",
			res:  pipeline.Result{Path: "/in/report.txt", Outcome: pipeline.OutcomeIgnored},
			want: "no skill matches",
		},
		{
			name:    "failed",
			res:     pipeline.Result{Path: "/in/notes-1.md", Outcome: pipeline.OutcomeFailed, Err: errors.New("quota")},
			wantErr: true,
		},
		{
			name:    "abandoned",
			res:     pipeline.Result{Path: "/in/notes-1.md", Outcome: pipeline.OutcomeAbandoned},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := report(&out, tt.res)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrProcessFailed)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestMatchOnly(t *testing.T) {
	cfg := testConfig(t)

	var out bytes.Buffer
	require.NoError(t, matchOnly(&out, cfg, "/tmp/notes-7.md"))
	assert.Contains(t, out.String(), "skill Notes (document DOC-N)")

	out.Reset()
	require.NoError(t, matchOnly(&out, cfg, "/tmp/other.md"))
	assert.Contains(t, out.String(), "no skill matches")
}
