// Package archive moves processed files out of the watch folder.
package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leefowlercu/skillsd/internal/fsutil"
)

// Archiver moves files into a single archive folder by base name.
type Archiver struct {
	folder string
	logger *slog.Logger
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Archiver) {
		a.logger = logger
	}
}

// New creates an Archiver targeting folder.
func New(folder string, opts ...Option) *Archiver {
	a := &Archiver{
		folder: folder,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Folder returns the archive folder.
func (a *Archiver) Folder() string {
	return a.folder
}

// Archive moves path to <folder>/<basename> and returns the destination.
// When the destination is the source itself the file is left in place.
func (a *Archiver) Archive(path string) (string, error) {
	if err := os.MkdirAll(a.folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive folder %s; %w", a.folder, err)
	}

	dest := filepath.Join(a.folder, filepath.Base(path))

	if fsutil.SamePath(path, dest) {
		a.logger.Info("file remains in place", "path", path)
		return path, nil
	}

	if err := fsutil.MoveFile(path, dest); err != nil {
		return "", err
	}

	a.logger.Info("archived file", "path", path, "archive_path", dest)
	return dest, nil
}
