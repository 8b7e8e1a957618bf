package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leefowlercu/skillsd/internal/archive"
	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/docs"
	"github.com/leefowlercu/skillsd/internal/reader"
	"github.com/leefowlercu/skillsd/internal/readiness"
	"github.com/leefowlercu/skillsd/internal/skills"
	"github.com/leefowlercu/skillsd/internal/watcher"
)

type stubReady struct {
	ready bool
	calls int
}

func (s *stubReady) IsReady(context.Context, string) bool {
	s.calls++
	return s.ready
}

type stubReader struct {
	content string
	err     error
}

func (s *stubReader) ReadAll(context.Context, string) (string, error) {
	return s.content, s.err
}

type appendCall struct {
	docID, content, displayName string
}

type stubAppender struct {
	err   error
	calls []appendCall
}

func (s *stubAppender) Append(_ context.Context, docID, content, displayName string) error {
	if s.err != nil {
		return s.err
	}
	s.calls = append(s.calls, appendCall{docID, content, displayName})
	return nil
}

type stubArchiver struct {
	err   error
	calls int
}

func (s *stubArchiver) Archive(path string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return "/archive/" + filepath.Base(path), nil
}

type fixture struct {
	ready    *stubReady
	reader   *stubReader
	appender *stubAppender
	archiver *stubArchiver
	proc     *Processor
	path     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	matcher, err := skills.NewMatcher([]config.SkillConfig{
		{Name: "Notes", Pattern: "notes-*.md", DocID: "D1", DisplayName: "Notes"},
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "notes-2024.md")
	require.NoError(t, os.WriteFile(path, []byte("Hello"), 0644))

	f := &fixture{
		ready:    &stubReady{ready: true},
		reader:   &stubReader{content: "Hello"},
		appender: &stubAppender{},
		archiver: &stubArchiver{},
		path:     path,
	}
	f.proc = NewProcessor(f.ready, matcher, f.reader, f.appender, f.archiver)
	return f
}

func TestProcess_Success(t *testing.T) {
	f := newFixture(t)

	res := f.proc.Process(context.Background(), f.path)

	assert.Equal(t, OutcomeArchived, res.Outcome)
	assert.Equal(t, KindNone, res.Kind)
	assert.NoError(t, res.Err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "Notes", res.Skill)
	assert.Equal(t, "D1", res.DocID)
	assert.Equal(t, 5, res.Bytes)
	assert.Len(t, res.ContentHash, 64)
	assert.Equal(t, "/archive/notes-2024.md", res.ArchivePath)
	assert.True(t, res.Succeeded())

	require.Len(t, f.appender.calls, 1)
	assert.Equal(t, appendCall{"D1", "Hello", "Notes"}, f.appender.calls[0])
	assert.Equal(t, 1, f.proc.ProcessedCount())
}

func TestProcess_AtMostOncePerVersion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.proc.Process(ctx, f.path)
	require.Equal(t, OutcomeArchived, first.Outcome)

	second := f.proc.Process(ctx, f.path)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Len(t, f.appender.calls, 1)
	assert.Equal(t, 1, f.archiver.calls)

	// A new modification time is a new version.
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(f.path, later, later))

	third := f.proc.Process(ctx, f.path)
	assert.Equal(t, OutcomeArchived, third.Outcome)
	assert.Len(t, f.appender.calls, 2)
}

func TestProcess_NotReady(t *testing.T) {
	f := newFixture(t)
	f.ready.ready = false

	res := f.proc.Process(context.Background(), f.path)

	assert.Equal(t, OutcomeAbandoned, res.Outcome)
	assert.Equal(t, KindFileNotReady, res.Kind)
	assert.ErrorIs(t, res.Err, ErrFileNotReady)
	assert.Empty(t, f.appender.calls)
}

func TestProcess_NoMatchingSkill(t *testing.T) {
	f := newFixture(t)
	other := filepath.Join(filepath.Dir(f.path), "image.png")
	require.NoError(t, os.WriteFile(other, []byte("png"), 0644))

	res := f.proc.Process(context.Background(), other)

	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Empty(t, res.Skill)
	assert.Empty(t, f.appender.calls)
}

type removingReady struct {
	path string
}

func (r removingReady) IsReady(context.Context, string) bool {
	os.Remove(r.path)
	return false
}

func TestProcess_FileVanished(t *testing.T) {
	t.Run("gone before readiness", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, os.Remove(f.path))

		res := f.proc.Process(context.Background(), f.path)

		assert.Equal(t, OutcomeVanished, res.Outcome)
		assert.Equal(t, KindNone, res.Kind)
		assert.ErrorIs(t, res.Err, os.ErrNotExist)
		assert.Zero(t, f.ready.calls)
		assert.Empty(t, f.appender.calls)
	})

	t.Run("gone while polling", func(t *testing.T) {
		f := newFixture(t)
		f.proc.ready = removingReady{path: f.path}

		res := f.proc.Process(context.Background(), f.path)

		assert.Equal(t, OutcomeVanished, res.Outcome)
		assert.NotErrorIs(t, res.Err, ErrFileNotReady)
	})

	t.Run("event after archive", func(t *testing.T) {
		f := newFixture(t)
		first := f.proc.Handle(context.Background(), watcher.FileEvent{Path: f.path, Kind: watcher.Created})
		require.Equal(t, OutcomeArchived, first.Outcome)
		require.NoError(t, os.Remove(f.path))

		second := f.proc.Handle(context.Background(), watcher.FileEvent{Path: f.path, Kind: watcher.Modified})
		assert.Equal(t, OutcomeVanished, second.Outcome)
		assert.Len(t, f.appender.calls, 1)
	})
}

func TestProcess_ReadFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
		wantErr  error
	}{
		{
			name:     "permission denied",
			err:      fmt.Errorf("%w: locked", reader.ErrPermissionDenied),
			wantKind: KindReadPermissionDenied,
			wantErr:  reader.ErrPermissionDenied,
		},
		{
			name:     "other error",
			err:      reader.ErrInvalidUTF8,
			wantKind: KindRead,
			wantErr:  ErrRead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.reader.err = tt.err

			res := f.proc.Process(context.Background(), f.path)

			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.ErrorIs(t, res.Err, tt.wantErr)
			assert.Empty(t, f.appender.calls)
			assert.Zero(t, f.proc.ProcessedCount())
		})
	}
}

func TestProcess_AppendFailures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{"service init", fmt.Errorf("%w; bad key", docs.ErrServiceInit), KindServiceInit},
		{"append", fmt.Errorf("%w; 403", docs.ErrAppend), KindAppend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.appender.err = tt.err

			res := f.proc.Process(context.Background(), f.path)

			assert.Equal(t, OutcomeFailed, res.Outcome)
			assert.Equal(t, tt.wantKind, res.Kind)
			assert.Zero(t, f.archiver.calls)

			// Not marked processed, so the next event retries.
			f.appender.err = nil
			retry := f.proc.Process(context.Background(), f.path)
			assert.Equal(t, OutcomeArchived, retry.Outcome)
		})
	}
}

func TestProcess_ArchiveFailureIsSuccessWithWarning(t *testing.T) {
	f := newFixture(t)
	f.archiver.err = errors.New("read-only")

	res := f.proc.Process(context.Background(), f.path)

	assert.Equal(t, OutcomeArchived, res.Outcome)
	assert.True(t, res.Succeeded())
	assert.Equal(t, KindArchive, res.Kind)
	assert.NoError(t, res.Err)
	assert.ErrorIs(t, res.ArchiveErr, ErrArchive)
	assert.Equal(t, 1, f.proc.ProcessedCount())

	// Marked processed before archiving: the unchanged file is not appended twice.
	again := f.proc.Process(context.Background(), f.path)
	assert.Equal(t, OutcomeDuplicate, again.Outcome)
}

func TestHandle_EventRules(t *testing.T) {
	f := newFixture(t)
	dir := filepath.Dir(f.path)
	unrelated := filepath.Join(dir, "download.part")
	require.NoError(t, os.WriteFile(unrelated, []byte("x"), 0644))

	t.Run("modified without match skips readiness", func(t *testing.T) {
		f.ready.calls = 0
		res := f.proc.Handle(context.Background(), watcher.FileEvent{Path: unrelated, Kind: watcher.Modified})
		assert.Equal(t, OutcomeSkipped, res.Outcome)
		assert.Zero(t, f.ready.calls)
	})

	t.Run("created without match runs pipeline", func(t *testing.T) {
		f.ready.calls = 0
		res := f.proc.Handle(context.Background(), watcher.FileEvent{Path: unrelated, Kind: watcher.Created})
		assert.Equal(t, OutcomeIgnored, res.Outcome)
		assert.Equal(t, 1, f.ready.calls)
	})

	t.Run("modified with match runs pipeline", func(t *testing.T) {
		res := f.proc.Handle(context.Background(), watcher.FileEvent{Path: f.path, Kind: watcher.Modified})
		assert.Equal(t, OutcomeArchived, res.Outcome)
	})
}

type insertCall struct {
	docID string
	index int64
	text  string
}

type fakeDocs struct {
	endIndex int64
	inserts  []insertCall
}

func (f *fakeDocs) EndIndex(context.Context, string) (int64, error) {
	return f.endIndex, nil
}

func (f *fakeDocs) InsertText(_ context.Context, docID string, index int64, text string) error {
	f.inserts = append(f.inserts, insertCall{docID, index, text})
	return nil
}

func TestProcess_EndToEnd(t *testing.T) {
	watchDir := t.TempDir()
	archiveDir := filepath.Join(t.TempDir(), "archive")
	path := filepath.Join(watchDir, "notes-2024.md")
	require.NoError(t, os.WriteFile(path, []byte("Hello"), 0600))

	matcher, err := skills.NewMatcher([]config.SkillConfig{
		{Name: "Notes", Pattern: "notes-*.md", DocID: "D1", DisplayName: "Notes"},
	})
	require.NoError(t, err)

	svc := &fakeDocs{endIndex: 10}
	clock := func() time.Time { return time.Date(2024, 6, 1, 9, 30, 0, 0, time.Local) }

	proc := NewProcessor(
		readiness.New(readiness.WithBackoff(time.Millisecond, 5*time.Millisecond, 1.5)),
		matcher,
		reader.New(reader.WithRetry(2, time.Millisecond)),
		docs.NewAppender(nil, docs.WithService(svc), docs.WithClock(clock)),
		archive.New(archiveDir),
	)

	res := proc.Process(context.Background(), path)
	require.Equal(t, OutcomeArchived, res.Outcome, "err=%v archiveErr=%v", res.Err, res.ArchiveErr)

	require.Len(t, svc.inserts, 1)
	assert.Equal(t, "D1", svc.inserts[0].docID)
	assert.Equal(t, int64(9), svc.inserts[0].index)
	assert.Equal(t, docs.FormatEnvelope("Hello", "Notes", clock()), svc.inserts[0].text)
	assert.True(t, strings.Contains(svc.inserts[0].text, "Added by Notes daemon at 2024-06-01 09:30:00"))

	archived := filepath.Join(archiveDir, "notes-2024.md")
	assert.Equal(t, archived, res.ArchivePath)
	assert.NoFileExists(t, path)

	info, err := os.Stat(archived)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}
