// Package docs appends skill output to Google Docs documents.
package docs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRequestsPerMinute paces document API calls when no limit is configured.
const DefaultRequestsPerMinute = 60

var (
	// ErrServiceInit is returned when the document service cannot be created.
	// The next Append retries initialization.
	ErrServiceInit = errors.New("document service init failed")

	// ErrAppend is returned when fetching or updating the document fails.
	ErrAppend = errors.New("append failed")
)

// Appender writes enveloped content to the end of a document.
// It is not safe for concurrent use; the pipeline calls it from one goroutine.
type Appender struct {
	logger  *slog.Logger
	factory ServiceFactory
	service DocumentService
	limiter *rate.Limiter
	now     func() time.Time

	mu      sync.Mutex
	initErr error
}

// Option configures an Appender.
type Option func(*Appender)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Appender) {
		a.logger = logger
	}
}

// WithRequestsPerMinute sets the pacing of document API calls.
// Each append issues two requests.
func WithRequestsPerMinute(rpm int) Option {
	return func(a *Appender) {
		if rpm > 0 {
			a.limiter = newLimiter(rpm)
		}
	}
}

// WithClock replaces time.Now for the envelope timestamp.
func WithClock(now func() time.Time) Option {
	return func(a *Appender) {
		a.now = now
	}
}

// WithService installs a ready service and skips lazy initialization.
func WithService(svc DocumentService) Option {
	return func(a *Appender) {
		a.service = svc
	}
}

// NewAppender creates an Appender that builds its service with factory on first use.
func NewAppender(factory ServiceFactory, opts ...Option) *Appender {
	a := &Appender{
		logger:  slog.Default(),
		factory: factory,
		limiter: newLimiter(DefaultRequestsPerMinute),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func newLimiter(rpm int) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm)
}

// InitError returns the error from the most recent failed service
// initialization, or nil once initialization succeeds. Safe for concurrent use.
func (a *Appender) InitError() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initErr
}

func (a *Appender) setInitError(err error) {
	a.mu.Lock()
	a.initErr = err
	a.mu.Unlock()
}

// Append inserts the enveloped content at the end of document docID.
func (a *Appender) Append(ctx context.Context, docID, content, displayName string) error {
	svc, err := a.ensureService(ctx)
	if err != nil {
		return err
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w; %w", ErrAppend, err)
	}
	end, err := svc.EndIndex(ctx, docID)
	if err != nil {
		return fmt.Errorf("%w; %w", ErrAppend, err)
	}

	index := end - 1
	if index < 1 {
		index = 1
	}

	text := FormatEnvelope(content, displayName, a.now())

	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w; %w", ErrAppend, err)
	}
	if err := svc.InsertText(ctx, docID, index, text); err != nil {
		return fmt.Errorf("%w; %w", ErrAppend, err)
	}

	a.logger.Debug("appended to document",
		"doc_id", docID,
		"index", index,
		"chars", len(text))

	return nil
}

func (a *Appender) ensureService(ctx context.Context) (DocumentService, error) {
	if a.service != nil {
		return a.service, nil
	}
	if a.factory == nil {
		return nil, fmt.Errorf("%w; no service factory configured", ErrServiceInit)
	}

	svc, err := a.factory(ctx)
	if err != nil {
		err = fmt.Errorf("%w; %w", ErrServiceInit, err)
		a.setInitError(err)
		return nil, err
	}

	a.logger.Info("document service initialized")
	a.setInitError(nil)
	a.service = svc
	return svc, nil
}
