package daemon

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestDaemonState_IsTerminal(t *testing.T) {
	tests := []struct {
		state DaemonState
		want  bool
	}{
		{DaemonStateStarting, false},
		{DaemonStateRunning, false},
		{DaemonStateDegraded, false},
		{DaemonStateStopping, false},
		{DaemonStateStopped, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.want {
				t.Errorf("DaemonState.IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDaemonState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from DaemonState
		to   DaemonState
		want bool
	}{
		{"starting to running", DaemonStateStarting, DaemonStateRunning, true},
		{"starting to stopped", DaemonStateStarting, DaemonStateStopped, true},
		{"starting to degraded", DaemonStateStarting, DaemonStateDegraded, false},
		{"running to degraded", DaemonStateRunning, DaemonStateDegraded, true},
		{"running to stopping", DaemonStateRunning, DaemonStateStopping, true},
		{"running to stopped", DaemonStateRunning, DaemonStateStopped, false},
		{"degraded to running", DaemonStateDegraded, DaemonStateRunning, true},
		{"degraded to starting", DaemonStateDegraded, DaemonStateStarting, false},
		{"stopping to stopped", DaemonStateStopping, DaemonStateStopped, true},
		{"stopping to running", DaemonStateStopping, DaemonStateRunning, false},
		{"stopped to any", DaemonStateStopped, DaemonStateStarting, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("DaemonState(%v).CanTransitionTo(%v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestDaemonConfigFrom(t *testing.T) {
	cfg := DefaultDaemonConfig()

	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}
	if cfg.HeartbeatInterval != 60*time.Second {
		t.Errorf("HeartbeatInterval = %v, want 60s", cfg.HeartbeatInterval)
	}
	if cfg.HTTPPort != 7610 {
		t.Errorf("HTTPPort = %d, want 7610", cfg.HTTPPort)
	}
	if filepath.Base(cfg.PIDFile) != "daemon.pid" || cfg.PIDFile[0] == '~' {
		t.Errorf("PIDFile = %q, want expanded path", cfg.PIDFile)
	}
}

func TestDaemon_NewDaemon(t *testing.T) {
	d := NewDaemon(DaemonConfig{PIDFile: filepath.Join(t.TempDir(), "d.pid")})

	if d.State() != DaemonStateStopped {
		t.Errorf("NewDaemon().State() = %v, want %v", d.State(), DaemonStateStopped)
	}
	if d.server != nil {
		t.Error("NewDaemon() built a server with HTTP disabled")
	}
	if health := d.Health(); health.Status != "healthy" {
		t.Errorf("Daemon.Health().Status = %v, want healthy", health.Status)
	}
}

type recordingService struct {
	name     string
	startErr error
	mu       *sync.Mutex
	calls    *[]string
}

func (s recordingService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.calls = append(*s.calls, "start "+s.name)
	return s.startErr
}

func (s recordingService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	*s.calls = append(*s.calls, "stop "+s.name)
	return nil
}

type notifications struct {
	mu     sync.Mutex
	states []string
}

func (n *notifications) notify(state string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, state)
	return nil
}

func (n *notifications) snapshot() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.states...)
}

func TestDaemon_Start_LifecycleOrder(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "d.pid")
	var (
		mu    sync.Mutex
		calls []string
		notes notifications
	)

	d := NewDaemon(DaemonConfig{
		PIDFile:         pidPath,
		ShutdownTimeout: time.Second,
	}, WithNotifier(notes.notify))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Start(ctx,
			recordingService{name: "a", mu: &mu, calls: &calls},
			recordingService{name: "b", mu: &mu, calls: &calls},
		)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for d.State() != DaemonStateRunning {
		if time.Now().After(deadline) {
			t.Fatal("daemon did not reach running state")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := os.Stat(pidPath); err != nil {
		t.Errorf("PID file not written while running: %v", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Daemon.Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Daemon.Start() did not return after cancel")
	}

	want := []string{"start a", "start b", "stop b", "stop a"}
	mu.Lock()
	got := append([]string(nil), calls...)
	mu.Unlock()
	if len(got) != len(want) {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	states := notes.snapshot()
	if len(states) < 2 || states[0] != "READY=1" || states[len(states)-1] != "STOPPING=1" {
		t.Errorf("notifications = %v, want READY=1 first and STOPPING=1 last", states)
	}

	if d.State() != DaemonStateStopped {
		t.Errorf("State() after Start returns = %v, want stopped", d.State())
	}
	if _, err := os.Stat(pidPath); !os.IsNotExist(err) {
		t.Error("PID file still present after shutdown")
	}
}

func TestDaemon_Start_ServiceFailureStopsStarted(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	boom := errors.New("watch folder vanished")

	d := NewDaemon(DaemonConfig{PIDFile: filepath.Join(t.TempDir(), "d.pid")}, WithNotifier(nil))

	err := d.Start(context.Background(),
		recordingService{name: "a", mu: &mu, calls: &calls},
		recordingService{name: "b", startErr: boom, mu: &mu, calls: &calls},
	)
	if !errors.Is(err, boom) {
		t.Fatalf("Daemon.Start() error = %v, want %v", err, boom)
	}

	want := []string{"start a", "start b", "stop a"}
	if len(calls) != len(want) {
		t.Fatalf("calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("calls[%d] = %q, want %q", i, calls[i], want[i])
		}
	}
	if d.State() != DaemonStateStopped {
		t.Errorf("State() = %v, want stopped", d.State())
	}
}

func TestDaemon_Start_AlreadyRunning(t *testing.T) {
	pidPath := filepath.Join(t.TempDir(), "d.pid")

	holder := NewPIDFile(pidPath)
	if err := holder.CheckAndClaim(); err != nil {
		t.Fatalf("CheckAndClaim() error = %v", err)
	}
	t.Cleanup(func() { _ = holder.Remove() })

	d := NewDaemon(DaemonConfig{PIDFile: pidPath}, WithNotifier(nil))
	err := d.Start(context.Background())
	if !errors.Is(err, ErrDaemonAlreadyRunning) {
		t.Errorf("Daemon.Start() error = %v, want ErrDaemonAlreadyRunning", err)
	}
}

func TestDaemon_Heartbeat_TracksHealth(t *testing.T) {
	var notes notifications
	d := NewDaemon(DaemonConfig{PIDFile: filepath.Join(t.TempDir(), "d.pid")}, WithNotifier(notes.notify))
	d.setState(DaemonStateRunning)

	d.HealthManager().UpdateComponent("docs", ComponentHealth{Status: ComponentStatusDegraded})
	d.heartbeat()
	if d.State() != DaemonStateDegraded {
		t.Errorf("State() = %v, want degraded", d.State())
	}

	d.HealthManager().UpdateComponent("docs", ComponentHealth{Status: ComponentStatusRunning})
	d.heartbeat()
	if d.State() != DaemonStateRunning {
		t.Errorf("State() = %v, want running", d.State())
	}

	states := notes.snapshot()
	if len(states) != 2 || states[0] != "WATCHDOG=1" {
		t.Errorf("notifications = %v, want two watchdog pings", states)
	}
}

func TestDaemon_Start_HTTPBindFailureDegrades(t *testing.T) {
	held, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen() error = %v", err)
	}
	defer held.Close()
	port := held.Addr().(*net.TCPAddr).Port

	var (
		mu    sync.Mutex
		calls []string
	)
	d := NewDaemon(DaemonConfig{
		HTTPEnabled:     true,
		HTTPBind:        "127.0.0.1",
		HTTPPort:        port,
		PIDFile:         filepath.Join(t.TempDir(), "d.pid"),
		ShutdownTimeout: time.Second,
	}, WithNotifier(nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Start(ctx, recordingService{name: "pipeline", mu: &mu, calls: &calls})
	}()

	deadline := time.Now().Add(2 * time.Second)
	for d.Health().Components["http"].Status != ComponentStatusFailed {
		if time.Now().After(deadline) {
			t.Fatal("http component never reported failed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	select {
	case err := <-errCh:
		t.Fatalf("Daemon.Start() returned early with %v", err)
	case <-time.After(100 * time.Millisecond):
	}
	if d.State() != DaemonStateDegraded {
		t.Errorf("State() = %v, want degraded", d.State())
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Daemon.Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Daemon.Start() did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 2 || calls[1] != "stop pipeline" {
		t.Errorf("calls = %v, want pipeline started then stopped", calls)
	}
}
