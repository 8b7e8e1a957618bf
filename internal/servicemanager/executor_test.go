package servicemanager

import (
	"context"
	"strings"
	"sync"

	"github.com/leefowlercu/skillsd/internal/daemon"
)

type executedCommand struct {
	name string
	args []string
}

// mockExecutor records commands and replays canned output keyed by the
// space-joined command line.
type mockExecutor struct {
	mu       sync.Mutex
	outputs  map[string]string
	errors   map[string]error
	commands []executedCommand
}

func (m *mockExecutor) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.commands = append(m.commands, executedCommand{name: name, args: args})

	key := strings.Join(append([]string{name}, args...), " ")
	if err, ok := m.errors[key]; ok {
		return []byte(m.outputs[key]), err
	}
	return []byte(m.outputs[key]), nil
}

func (m *mockExecutor) lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.commands))
	for _, c := range m.commands {
		out = append(out, strings.Join(append([]string{c.name}, c.args...), " "))
	}
	return out
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{
		outputs: make(map[string]string),
		errors:  make(map[string]error),
	}
}

func healthyFunc(ctx context.Context) (*daemon.HealthStatus, error) {
	return &daemon.HealthStatus{Status: "healthy", Ready: true}, nil
}
