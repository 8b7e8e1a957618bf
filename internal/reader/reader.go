// Package reader loads skill output files as UTF-8 text.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"
)

const (
	DefaultMaxRetries = 5
	DefaultRetryDelay = 500 * time.Millisecond

	// archivedMode is applied to a file after it has been read.
	archivedMode os.FileMode = 0644
)

var (
	// ErrPermissionDenied is returned when permission errors persist past the retry budget.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrEmptyContent is returned for files that read as zero bytes.
	ErrEmptyContent = errors.New("file is empty")

	// ErrInvalidUTF8 is returned for files that are not valid UTF-8 text.
	ErrInvalidUTF8 = errors.New("file is not valid utf-8")
)

// Reader reads files with a bounded retry on permission errors.
type Reader struct {
	logger     *slog.Logger
	maxRetries int
	retryDelay time.Duration
	readFile   func(string) ([]byte, error)
	chmod      func(string, os.FileMode) error
}

// Option configures a Reader.
type Option func(*Reader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = logger
	}
}

// WithRetry sets the attempt budget and the base delay; the delay before
// attempt n+1 is n times the base delay.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(r *Reader) {
		if maxRetries > 0 {
			r.maxRetries = maxRetries
		}
		if delay >= 0 {
			r.retryDelay = delay
		}
	}
}

// New creates a Reader.
func New(opts ...Option) *Reader {
	r := &Reader{
		logger:     slog.Default(),
		maxRetries: DefaultMaxRetries,
		retryDelay: DefaultRetryDelay,
		readFile:   os.ReadFile,
		chmod:      os.Chmod,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ReadAll returns the full file content.
// Permission errors are retried; any other failure is returned at once.
// On success the file mode is set to 0644, best effort.
func (r *Reader) ReadAll(ctx context.Context, path string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		data, err := r.readFile(path)
		if err == nil {
			return r.finish(path, data)
		}

		if !errors.Is(err, os.ErrPermission) {
			return "", fmt.Errorf("failed to read %s; %w", path, err)
		}

		lastErr = err
		if attempt == r.maxRetries {
			break
		}

		delay := r.retryDelay * time.Duration(attempt)
		r.logger.Warn("permission denied reading file; retrying",
			"path", path,
			"attempt", attempt,
			"delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", fmt.Errorf("failed to read %s; %w", path, ctx.Err())
		case <-timer.C:
		}
	}

	return "", fmt.Errorf("%w: %s after %d attempts; %w", ErrPermissionDenied, path, r.maxRetries, lastErr)
}

func (r *Reader) finish(path string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("failed to read %s; %w", path, ErrEmptyContent)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("failed to read %s; %w", path, ErrInvalidUTF8)
	}

	if err := r.chmod(path, archivedMode); err != nil {
		r.logger.Warn("failed to set file permissions", "path", path, "error", err)
	}

	return string(data), nil
}
