package daemon

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/docs"
	"github.com/leefowlercu/skillsd/internal/history"
)

type memoryDocs struct {
	mu      sync.Mutex
	inserts map[string][]string
}

func (m *memoryDocs) EndIndex(ctx context.Context, docID string) (int64, error) {
	return 42, nil
}

func (m *memoryDocs) InsertText(ctx context.Context, docID string, index int64, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts[docID] = append(m.inserts[docID], text)
	return nil
}

func (m *memoryDocs) texts(docID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.inserts[docID]...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := config.NewDefaultConfig()
	cfg.WatchFolder = filepath.Join(root, "watch")
	cfg.ArchiveFolder = filepath.Join(root, "archive")
	cfg.ServiceAccountFile = filepath.Join(root, "key.json")
	cfg.Daemon.HTTPEnabled = false
	cfg.Daemon.PIDFile = filepath.Join(root, "daemon.pid")
	cfg.Daemon.ShutdownTimeout = 2
	cfg.History.Path = filepath.Join(root, "history.db")
	cfg.Readiness.InitialWaitMs = 5
	cfg.Readiness.MaxWaitMs = 20
	cfg.Reader.RetryDelayMs = 1
	cfg.Skills = []config.SkillConfig{
		{Name: "Notes", Pattern: "notes-*.md", DocID: "DOC-N", DisplayName: "Notes"},
	}
	return &cfg
}

func TestOrchestrator_Initialize_InvalidPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.Skills[0].Pattern = "notes-[.md"

	d := NewDaemon(DaemonConfigFrom(cfg.Daemon), WithNotifier(nil))
	err := NewOrchestrator(d, cfg).Initialize(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Notes")
}

func TestOrchestrator_Initialize_CreatesWatchFolder(t *testing.T) {
	cfg := testConfig(t)

	d := NewDaemon(DaemonConfigFrom(cfg.Daemon), WithNotifier(nil))
	require.NoError(t, NewOrchestrator(d, cfg).Initialize(context.Background()))

	info, err := os.Stat(cfg.WatchFolder)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	fake := &memoryDocs{inserts: make(map[string][]string)}

	d := NewDaemon(DaemonConfigFrom(cfg.Daemon), WithNotifier(nil))
	o := NewOrchestrator(d, cfg, WithServiceFactory(func(ctx context.Context) (docs.DocumentService, error) {
		return fake, nil
	}))
	require.NoError(t, o.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx, o) }()

	require.Eventually(t, func() bool { return d.State() == DaemonStateRunning }, 2*time.Second, 5*time.Millisecond)

	staged := filepath.Join(t.TempDir(), "notes-2024.md")
	require.NoError(t, os.WriteFile(staged, []byte("Meeting summary"), 0o644))
	require.NoError(t, os.Rename(staged, filepath.Join(cfg.WatchFolder, "notes-2024.md")))

	archived := filepath.Join(cfg.ArchiveFolder, "notes-2024.md")
	require.Eventually(t, func() bool {
		_, err := os.Stat(archived)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	texts := fake.texts("DOC-N")
	require.Len(t, texts, 1)
	separator := strings.Repeat("=", 80)
	assert.True(t, strings.HasPrefix(texts[0], "\n\n"+separator+"\nAdded by Notes daemon at "))
	assert.True(t, strings.HasSuffix(texts[0], separator+"\nMeeting summary\n"+separator+"\n\n"))

	health := d.Health()
	assert.Equal(t, ComponentStatusRunning, health.Components["watcher"].Status)
	assert.Equal(t, ComponentStatusRunning, health.Components["docs"].Status)
	assert.Equal(t, 1, o.Stats().Counts()["archived"])

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	store, err := history.Open(context.Background(), cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "archived", entries[0].Outcome)
	assert.Equal(t, "Notes", entries[0].Skill)
}

func TestOrchestrator_InPlaceWritesRecordOneRun(t *testing.T) {
	cfg := testConfig(t)
	fake := &memoryDocs{inserts: make(map[string][]string)}

	d := NewDaemon(DaemonConfigFrom(cfg.Daemon), WithNotifier(nil))
	o := NewOrchestrator(d, cfg, WithServiceFactory(func(ctx context.Context) (docs.DocumentService, error) {
		return fake, nil
	}))
	require.NoError(t, o.Initialize(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Start(ctx, o) }()

	require.Eventually(t, func() bool { return d.State() == DaemonStateRunning }, 2*time.Second, 5*time.Millisecond)

	f, err := os.Create(filepath.Join(cfg.WatchFolder, "notes-inplace.md"))
	require.NoError(t, err)
	_, err = f.WriteString("first part\n")
	require.NoError(t, err)
	_, err = f.WriteString("second part\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	archived := filepath.Join(cfg.ArchiveFolder, "notes-inplace.md")
	require.Eventually(t, func() bool {
		_, err := os.Stat(archived)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	// Let the queued write events drain.
	time.Sleep(200 * time.Millisecond)

	assert.Len(t, fake.texts("DOC-N"), 1)
	assert.Equal(t, map[string]int{"archived": 1}, o.Stats().Counts())

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}

	store, err := history.Open(context.Background(), cfg.History.Path)
	require.NoError(t, err)
	defer store.Close()

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "archived", entries[0].Outcome)
}
