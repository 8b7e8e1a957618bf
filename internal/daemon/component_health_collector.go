package daemon

import (
	"sync"
	"time"

	"github.com/leefowlercu/skillsd/internal/pipeline"
	"github.com/leefowlercu/skillsd/internal/watcher"
)

// WatcherStats is the part of the watcher the health collector reads.
type WatcherStats interface {
	Stats() watcher.Stats
}

// DocsStatus is the part of the docs appender the health collector reads.
type DocsStatus interface {
	InitError() error
}

// ComponentBag holds the components whose health is reported.
// Nil fields are skipped.
type ComponentBag struct {
	Watcher        WatcherStats
	Docs           DocsStatus
	Pipeline       *PipelineStats
	HistoryEnabled bool
}

// PipelineStats counts dispatcher results. It is safe for concurrent use.
type PipelineStats struct {
	mu       sync.Mutex
	outcomes map[pipeline.Outcome]int
	last     time.Time
	lastErr  string
}

// NewPipelineStats creates empty pipeline statistics.
func NewPipelineStats() *PipelineStats {
	return &PipelineStats{outcomes: make(map[pipeline.Outcome]int)}
}

// Observe records one result. It is used as the dispatcher result hook.
func (s *PipelineStats) Observe(res pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.outcomes[res.Outcome]++
	s.last = time.Now()
	if res.Outcome == pipeline.OutcomeFailed && res.Err != nil {
		s.lastErr = res.Err.Error()
	}
}

// Counts returns the number of results per outcome.
func (s *PipelineStats) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int, len(s.outcomes))
	for outcome, n := range s.outcomes {
		counts[outcome.String()] = n
	}
	return counts
}

func (s *PipelineStats) details() map[string]any {
	counts := s.Counts()

	s.mu.Lock()
	defer s.mu.Unlock()

	details := map[string]any{"outcomes": counts}
	if !s.last.IsZero() {
		details["last_result"] = s.last
	}
	if s.lastErr != "" {
		details["last_error"] = s.lastErr
	}
	return details
}

// ComponentHealthCollector gathers health status from daemon components.
type ComponentHealthCollector struct {
	bag *ComponentBag
	now func() time.Time
}

// NewComponentHealthCollector creates a health collector for the given component bag.
func NewComponentHealthCollector(bag *ComponentBag) *ComponentHealthCollector {
	return &ComponentHealthCollector{
		bag: bag,
		now: time.Now,
	}
}

// Collect gathers health status from all components and returns a status map.
func (c *ComponentHealthCollector) Collect() map[string]ComponentHealth {
	statuses := make(map[string]ComponentHealth)
	checked := c.now()

	if c.bag.Watcher != nil {
		stats := c.bag.Watcher.Stats()
		status := ComponentStatusStopped
		if stats.IsRunning {
			status = ComponentStatusRunning
		}
		statuses["watcher"] = ComponentHealth{
			Status:      status,
			LastChecked: checked,
			Details: map[string]any{
				"events_received":  stats.EventsReceived,
				"events_published": stats.EventsPublished,
				"errors":           stats.Errors,
			},
		}
	}

	// The service is created lazily and retried on the next file, so an
	// initialization failure degrades rather than fails.
	if c.bag.Docs != nil {
		health := ComponentHealth{
			Status:      ComponentStatusRunning,
			LastChecked: checked,
		}
		if err := c.bag.Docs.InitError(); err != nil {
			health.Status = ComponentStatusDegraded
			health.Error = err.Error()
		}
		statuses["docs"] = health
	}

	if c.bag.Pipeline != nil {
		statuses["pipeline"] = ComponentHealth{
			Status:      ComponentStatusRunning,
			LastChecked: checked,
			Details:     c.bag.Pipeline.details(),
		}
	}

	if c.bag.HistoryEnabled {
		statuses["history"] = ComponentHealth{
			Status:      ComponentStatusRunning,
			LastChecked: checked,
		}
	}

	return statuses
}
