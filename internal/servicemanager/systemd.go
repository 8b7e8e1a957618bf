package servicemanager

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
)

// systemdServiceName is the systemd user unit name.
const systemdServiceName = "skillsd.service"

// systemdUnitTemplate is the template for the systemd unit file.
// The daemon reports READY=1 and pings the watchdog on every heartbeat.
const systemdUnitTemplate = `[Unit]
Description=skillsd - append skill output files to Google Docs
After=network-online.target
Wants=network-online.target
StartLimitBurst=5
StartLimitIntervalSec=60

[Service]
Type=notify
NotifyAccess=main
ExecStart={{.ExecStart}}
Restart=on-failure
RestartSec=5
{{- if .WatchdogSec}}
WatchdogSec={{.WatchdogSec}}
{{- end}}

[Install]
WantedBy=default.target
`

// systemdManager implements DaemonManager for Linux using systemd user units.
type systemdManager struct {
	executor CommandExecutor
	settings Settings
}

// newSystemdManager creates a new systemd-based daemon manager.
func newSystemdManager(executor CommandExecutor, settings Settings) *systemdManager {
	return &systemdManager{
		executor: executor,
		settings: settings,
	}
}

// getUnitPath returns the path to the systemd user unit file.
func getUnitPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory; %w", err)
	}
	return filepath.Join(home, ".config", "systemd", "user", systemdServiceName), nil
}

// systemdQuote quotes an ExecStart argument when it contains whitespace or quotes.
func systemdQuote(arg string) string {
	if !strings.ContainsAny(arg, " \t\"\\") {
		return arg
	}
	return strconv.Quote(arg)
}

// generateUnitFile generates the systemd unit file content.
func generateUnitFile(settings Settings) (string, error) {
	args := []string{systemdQuote(settings.binary())}
	if settings.ConfigPath != "" {
		args = append(args, "--config", systemdQuote(settings.ConfigPath))
	}
	args = append(args, "daemon", "start")

	// Three missed heartbeats before systemd restarts the daemon.
	watchdog := 0
	if settings.HeartbeatInterval > 0 {
		watchdog = int(3 * settings.HeartbeatInterval.Seconds())
	}

	data := struct {
		ExecStart   string
		WatchdogSec int
	}{
		ExecStart:   strings.Join(args, " "),
		WatchdogSec: watchdog,
	}

	tmpl, err := template.New("unit").Parse(systemdUnitTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse unit template; %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute unit template; %w", err)
	}

	return buf.String(), nil
}

// Install writes the systemd unit file and enables auto-start.
func (m *systemdManager) Install(ctx context.Context) error {
	unitPath, err := getUnitPath()
	if err != nil {
		return err
	}

	content, err := generateUnitFile(m.settings)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
		return fmt.Errorf("failed to create systemd user directory; %w", err)
	}

	if err := os.WriteFile(unitPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write unit file; %w", err)
	}

	if _, err := m.systemctl(ctx, "daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd daemon; %w", err)
	}

	if _, err := m.systemctl(ctx, "enable", systemdServiceName); err != nil {
		return fmt.Errorf("failed to enable service; %w", err)
	}

	return nil
}

// Uninstall stops the service, disables auto-start, and removes the unit file.
func (m *systemdManager) Uninstall(ctx context.Context) error {
	unitPath, err := getUnitPath()
	if err != nil {
		return err
	}

	// Either may fail when the unit is already stopped or disabled.
	_, _ = m.systemctl(ctx, "stop", systemdServiceName)
	_, _ = m.systemctl(ctx, "disable", systemdServiceName)

	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove unit file; %w", err)
	}

	_, _ = m.systemctl(ctx, "daemon-reload")

	return nil
}

// StartDaemon starts the daemon via systemctl.
func (m *systemdManager) StartDaemon(ctx context.Context) error {
	if _, err := m.systemctl(ctx, "start", systemdServiceName); err != nil {
		return fmt.Errorf("failed to start service; %w", err)
	}
	return nil
}

// StopDaemon stops the daemon via systemctl.
func (m *systemdManager) StopDaemon(ctx context.Context) error {
	if _, err := m.systemctl(ctx, "stop", systemdServiceName); err != nil {
		return fmt.Errorf("failed to stop service; %w", err)
	}
	return nil
}

// Restart restarts the daemon via systemctl.
func (m *systemdManager) Restart(ctx context.Context) error {
	if _, err := m.systemctl(ctx, "restart", systemdServiceName); err != nil {
		return fmt.Errorf("failed to restart service; %w", err)
	}
	return nil
}

// Status returns the current daemon status.
func (m *systemdManager) Status(ctx context.Context) (DaemonStatus, error) {
	status := DaemonStatus{
		ServiceState: ServiceStateNotInstalled,
	}

	installed, err := m.IsInstalled()
	if err != nil {
		status.Error = err
		return status, nil
	}

	if !installed {
		return status, nil
	}

	output, err := m.systemctl(ctx, "show", systemdServiceName,
		"--property=ActiveState,MainPID,UnitFileState")
	if err != nil {
		status.ServiceState = ServiceStateDisabled
		return status, nil
	}

	status.ServiceState, status.PID, status.IsRunning = parseSystemctlOutput(string(output))

	if status.IsRunning {
		status.Health = fetchHealth(ctx, m.settings)
	}

	return status, nil
}

// IsInstalled checks if the unit file exists.
func (m *systemdManager) IsInstalled() (bool, error) {
	unitPath, err := getUnitPath()
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(unitPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

func (m *systemdManager) systemctl(ctx context.Context, args ...string) ([]byte, error) {
	return m.executor.Run(ctx, "systemctl", append([]string{"--user"}, args...)...)
}

// parseSystemctlOutput parses `systemctl show` key=value lines into the
// service state, main PID and whether the unit is active.
func parseSystemctlOutput(output string) (ServiceState, int, bool) {
	state := ServiceStateDisabled
	pid := 0
	running := false

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}

		switch key {
		case "ActiveState":
			running = value == "active" || value == "activating" || value == "reloading"
		case "MainPID":
			if p, err := strconv.Atoi(value); err == nil && p > 0 {
				pid = p
			}
		case "UnitFileState":
			switch value {
			case "enabled", "enabled-runtime":
				state = ServiceStateEnabled
			case "disabled":
				state = ServiceStateDisabled
			}
		}
	}

	return state, pid, running
}
