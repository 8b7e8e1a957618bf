package daemon

import (
	"sync"
	"time"
)

// ComponentHealth represents the health status of a single component.
type ComponentHealth struct {
	// Status is the current health state.
	Status ComponentStatus `json:"status"`

	// Error contains the error message when Status is not "running".
	Error string `json:"error,omitempty"`

	// LastChecked is when the health was last evaluated.
	LastChecked time.Time `json:"last_checked"`

	// Details carries optional, non-sensitive diagnostic data.
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy returns true if the component health indicates healthy operation.
func (h ComponentHealth) IsHealthy() bool {
	return h.Status.IsHealthy()
}

// HealthStatus is the response body for /readyz and the heartbeat log.
type HealthStatus struct {
	// Status is "healthy", "degraded" or "unhealthy".
	Status string `json:"status"`

	// Ready is false only when a critical component is not running.
	Ready bool `json:"ready"`

	// Uptime is how long the daemon has been running.
	Uptime time.Duration `json:"uptime"`

	// Components contains per-component health status.
	Components map[string]ComponentHealth `json:"components,omitempty"`
}

// HealthSource produces a fresh snapshot of component health.
type HealthSource func() map[string]ComponentHealth

// HealthManager aggregates health status from multiple components.
// It is safe for concurrent use.
type HealthManager struct {
	mu         sync.RWMutex
	components map[string]ComponentHealth
	critical   map[string]bool
	source     HealthSource
	startTime  time.Time
}

// NewHealthManager creates a new HealthManager instance.
func NewHealthManager() *HealthManager {
	return &HealthManager{
		components: make(map[string]ComponentHealth),
		critical:   make(map[string]bool),
		startTime:  time.Now(),
	}
}

// SetSource registers a source that is polled on every Status call.
func (m *HealthManager) SetSource(source HealthSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = source
}

// MarkCritical makes the named component decide readiness.
func (m *HealthManager) MarkCritical(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.critical[name] = true
}

// UpdateComponent updates the health status for a named component.
func (m *HealthManager) UpdateComponent(name string, health ComponentHealth) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components[name] = health
}

// RemoveComponent removes a component from health tracking.
func (m *HealthManager) RemoveComponent(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.components, name)
}

// Status refreshes from the source, if any, and returns the aggregate status.
func (m *HealthManager) Status() HealthStatus {
	m.mu.RLock()
	source := m.source
	m.mu.RUnlock()

	if source != nil {
		for name, health := range source() {
			m.UpdateComponent(name, health)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	status := HealthStatus{
		Status:     "healthy",
		Ready:      true,
		Uptime:     time.Since(m.startTime),
		Components: make(map[string]ComponentHealth, len(m.components)),
	}

	for name, health := range m.components {
		status.Components[name] = health
		if health.IsHealthy() {
			continue
		}
		if m.critical[name] {
			status.Status = "unhealthy"
			status.Ready = false
		} else if status.Status == "healthy" {
			status.Status = "degraded"
		}
	}

	return status
}
