package daemon

import (
	"fmt"
	"log/slog"

	"google.golang.org/api/option"

	"github.com/leefowlercu/skillsd/internal/archive"
	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/docs"
	"github.com/leefowlercu/skillsd/internal/metrics"
	"github.com/leefowlercu/skillsd/internal/pipeline"
	"github.com/leefowlercu/skillsd/internal/reader"
	"github.com/leefowlercu/skillsd/internal/readiness"
	"github.com/leefowlercu/skillsd/internal/skills"
	"github.com/leefowlercu/skillsd/internal/version"
)

// Pipeline holds the stages built from configuration.
type Pipeline struct {
	Matcher   *skills.Matcher
	Appender  *docs.Appender
	Archiver  *archive.Archiver
	Processor *pipeline.Processor
}

// BuildPipeline wires readiness, matching, reading, appending and archiving
// from cfg. A nil factory authenticates with cfg.ServiceAccountFile.
// The only error is an invalid skill pattern.
func BuildPipeline(cfg *config.Config, logger *slog.Logger, factory docs.ServiceFactory) (*Pipeline, error) {
	matcher, err := skills.NewMatcher(cfg.Skills)
	if err != nil {
		return nil, fmt.Errorf("failed to build skill matcher; %w", err)
	}

	for _, o := range matcher.Overlaps() {
		logger.Warn("skill patterns overlap; first declared wins",
			"first", o.First,
			"second", o.Second)
	}

	if factory == nil {
		factory = docs.ServiceAccountFactory(cfg.ServiceAccountFile,
			option.WithUserAgent(version.Get().UserAgent()))
	}

	detector := readiness.New(
		readiness.WithLogger(logger.With("component", "readiness")),
		readiness.WithMaxRetries(cfg.Readiness.MaxRetries),
		readiness.WithBackoff(cfg.Readiness.InitialWait(), cfg.Readiness.MaxWait(), cfg.Readiness.Multiplier),
		readiness.WithAttemptObserver(metrics.RecordReadiness),
	)

	rd := reader.New(
		reader.WithLogger(logger.With("component", "reader")),
		reader.WithRetry(cfg.Reader.MaxRetries, cfg.Reader.RetryDelay()),
	)

	appender := docs.NewAppender(factory,
		docs.WithLogger(logger.With("component", "docs")),
		docs.WithRequestsPerMinute(cfg.Docs.RequestsPerMinute),
	)

	archiver := archive.New(cfg.ArchiveFolder,
		archive.WithLogger(logger.With("component", "archive")),
	)

	processor := pipeline.NewProcessor(detector, matcher, rd, appender, archiver,
		pipeline.WithLogger(logger.With("component", "pipeline")),
	)

	return &Pipeline{
		Matcher:   matcher,
		Appender:  appender,
		Archiver:  archiver,
		Processor: processor,
	}, nil
}
