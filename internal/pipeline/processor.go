// Package pipeline runs skill output files through readiness, matching,
// reading, appending and archiving, and dispatches watcher events to it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/docs"
	"github.com/leefowlercu/skillsd/internal/fsutil"
	"github.com/leefowlercu/skillsd/internal/metrics"
	"github.com/leefowlercu/skillsd/internal/reader"
	"github.com/leefowlercu/skillsd/internal/watcher"
)

// ReadinessChecker decides whether a file has finished being written.
type ReadinessChecker interface {
	IsReady(ctx context.Context, path string) bool
}

// SkillMatcher resolves a basename to a skill.
type SkillMatcher interface {
	Match(filename string) (config.SkillConfig, bool)
	MatchesAny(filename string) bool
}

// ContentReader loads file content.
type ContentReader interface {
	ReadAll(ctx context.Context, path string) (string, error)
}

// DocumentAppender appends content to a destination document.
type DocumentAppender interface {
	Append(ctx context.Context, docID, content, displayName string) error
}

// FileArchiver moves a processed file out of the watch folder.
type FileArchiver interface {
	Archive(path string) (string, error)
}

// marker identifies one version of a file.
type marker struct {
	path    string
	modTime int64
}

// Processor runs the per-file pipeline. It is not safe for concurrent use;
// the processed set is owned by the goroutine that calls Process.
type Processor struct {
	ready    ReadinessChecker
	matcher  SkillMatcher
	reader   ContentReader
	appender DocumentAppender
	archiver FileArchiver
	logger   *slog.Logger

	processed map[marker]struct{}
	stat      func(string) (os.FileInfo, error)
	newRunID  func() string
	now       func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor wires the pipeline stages.
func NewProcessor(ready ReadinessChecker, matcher SkillMatcher, rd ContentReader, appender DocumentAppender, archiver FileArchiver, opts ...Option) *Processor {
	p := &Processor{
		ready:     ready,
		matcher:   matcher,
		reader:    rd,
		appender:  appender,
		archiver:  archiver,
		logger:    slog.Default(),
		processed: make(map[marker]struct{}),
		stat:      os.Stat,
		newRunID:  uuid.NewString,
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// ProcessedCount returns the number of file versions appended so far.
func (p *Processor) ProcessedCount() int {
	return len(p.processed)
}

// Handle applies the event rules: a created file always runs the pipeline,
// a modified file runs it only if some skill pattern matches its name.
func (p *Processor) Handle(ctx context.Context, ev watcher.FileEvent) Result {
	if ev.Kind == watcher.Modified && !p.matcher.MatchesAny(filepath.Base(ev.Path)) {
		return Result{
			RunID:   p.newRunID(),
			Path:    ev.Path,
			Outcome: OutcomeSkipped,
		}
	}
	return p.Process(ctx, ev.Path)
}

// Process runs one file to a terminal state.
func (p *Processor) Process(ctx context.Context, path string) Result {
	start := p.now()
	res := p.process(ctx, path)
	res.Duration = p.now().Sub(start)
	return res
}

func (p *Processor) process(ctx context.Context, path string) Result {
	res := Result{RunID: p.newRunID(), Path: path}
	logger := p.logger.With("run_id", res.RunID, "path", path)

	if p.vanished(path) {
		res.Outcome = OutcomeVanished
		res.Err = fmt.Errorf("%w: %s", os.ErrNotExist, path)
		return res
	}

	if !p.ready.IsReady(ctx, path) {
		if p.vanished(path) {
			res.Outcome = OutcomeVanished
			res.Err = fmt.Errorf("%w: %s", os.ErrNotExist, path)
			return res
		}
		res.Outcome = OutcomeAbandoned
		res.Kind = KindFileNotReady
		res.Err = fmt.Errorf("%w: %s", ErrFileNotReady, path)
		return res
	}

	info, err := p.stat(path)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Kind = KindRead
		res.Err = fmt.Errorf("%w; %w", ErrRead, err)
		return res
	}

	id := marker{path: absPath(path), modTime: info.ModTime().UnixNano()}
	if _, seen := p.processed[id]; seen {
		res.Outcome = OutcomeDuplicate
		return res
	}

	skill, ok := p.matcher.Match(filepath.Base(path))
	if !ok {
		res.Outcome = OutcomeIgnored
		return res
	}
	res.Skill = skill.Name
	res.DocID = skill.DocID
	logger.Debug("matched skill", "skill", skill.Name)

	content, err := p.reader.ReadAll(ctx, path)
	if err != nil {
		res.Outcome = OutcomeFailed
		if errors.Is(err, reader.ErrPermissionDenied) {
			res.Kind = KindReadPermissionDenied
			res.Err = err
		} else {
			res.Kind = KindRead
			res.Err = fmt.Errorf("%w; %w", ErrRead, err)
		}
		return res
	}
	res.Bytes = len(content)
	res.ContentHash = fsutil.HashBytes([]byte(content))

	appendStart := p.now()
	err = p.appender.Append(ctx, skill.DocID, content, skill.DisplayName)
	metrics.RecordAppend(p.now().Sub(appendStart), err)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = err
		if errors.Is(err, docs.ErrServiceInit) {
			res.Kind = KindServiceInit
		} else {
			res.Kind = KindAppend
		}
		return res
	}

	p.processed[id] = struct{}{}
	metrics.UpdateProcessedFiles(len(p.processed))

	res.Outcome = OutcomeArchived
	dest, err := p.archiver.Archive(path)
	if err != nil {
		res.Kind = KindArchive
		res.ArchiveErr = fmt.Errorf("%w; %w", ErrArchive, err)
		return res
	}
	res.ArchivePath = dest

	return res
}

// vanished reports whether path no longer exists, as when a queued event
// arrives after an earlier run archived the file.
func (p *Processor) vanished(path string) bool {
	_, err := p.stat(path)
	return errors.Is(err, os.ErrNotExist)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
