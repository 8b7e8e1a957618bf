package servicemanager

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const (
	// launchdServiceLabel is the launchd service identifier.
	launchdServiceLabel = "com.leefowlercu.skillsd"

	// launchdPlistName is the plist filename.
	launchdPlistName = launchdServiceLabel + ".plist"
)

// launchdPlistTemplate is the template for the launchd plist file.
const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <dict>
        <key>SuccessfulExit</key>
        <false/>
    </dict>
    <key>ThrottleInterval</key>
    <integer>10</integer>
</dict>
</plist>
`

// launchdManager implements DaemonManager for macOS using launchd.
type launchdManager struct {
	executor CommandExecutor
	settings Settings
}

// newLaunchdManager creates a new launchd-based daemon manager.
func newLaunchdManager(executor CommandExecutor, settings Settings) *launchdManager {
	return &launchdManager{
		executor: executor,
		settings: settings,
	}
}

// getPlistPath returns the path to the launchd plist file.
func getPlistPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory; %w", err)
	}
	return filepath.Join(home, "Library", "LaunchAgents", launchdPlistName), nil
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// generatePlist generates the launchd plist content.
func generatePlist(settings Settings) (string, error) {
	args := []string{xmlEscape(settings.binary())}
	if settings.ConfigPath != "" {
		args = append(args, "--config", xmlEscape(settings.ConfigPath))
	}
	args = append(args, "daemon", "start")

	data := struct {
		Label string
		Args  []string
	}{
		Label: launchdServiceLabel,
		Args:  args,
	}

	tmpl, err := template.New("plist").Parse(launchdPlistTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse plist template; %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute plist template; %w", err)
	}

	return buf.String(), nil
}

// Install writes the launchd plist and enables auto-start.
func (m *launchdManager) Install(ctx context.Context) error {
	plistPath, err := getPlistPath()
	if err != nil {
		return err
	}

	content, err := generatePlist(m.settings)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory; %w", err)
	}

	if err := os.WriteFile(plistPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write plist file; %w", err)
	}

	if _, err := m.executor.Run(ctx, "launchctl", "load", "-w", plistPath); err != nil {
		return fmt.Errorf("failed to load service with launchctl; %w", err)
	}

	return nil
}

// Uninstall stops the service, disables auto-start, and removes the plist.
func (m *launchdManager) Uninstall(ctx context.Context) error {
	plistPath, err := getPlistPath()
	if err != nil {
		return err
	}

	// Fails harmlessly when the job is not loaded.
	_, _ = m.executor.Run(ctx, "launchctl", "unload", plistPath)

	if err := os.Remove(plistPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist file; %w", err)
	}

	return nil
}

// StartDaemon starts the daemon via launchctl.
func (m *launchdManager) StartDaemon(ctx context.Context) error {
	if _, err := m.executor.Run(ctx, "launchctl", "start", launchdServiceLabel); err != nil {
		return fmt.Errorf("failed to start service; %w", err)
	}
	return nil
}

// StopDaemon stops the daemon via launchctl.
func (m *launchdManager) StopDaemon(ctx context.Context) error {
	if _, err := m.executor.Run(ctx, "launchctl", "stop", launchdServiceLabel); err != nil {
		return fmt.Errorf("failed to stop service; %w", err)
	}
	return nil
}

// Restart stops and starts the daemon.
func (m *launchdManager) Restart(ctx context.Context) error {
	_ = m.StopDaemon(ctx)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
	}

	return m.StartDaemon(ctx)
}

// Status returns the current daemon status.
func (m *launchdManager) Status(ctx context.Context) (DaemonStatus, error) {
	status := DaemonStatus{
		ServiceState: ServiceStateNotInstalled,
	}

	installed, err := m.IsInstalled()
	if err != nil {
		status.Error = err
		return status, nil //nolint:nilerr // Return status with error field populated
	}

	if !installed {
		return status, nil
	}

	output, err := m.executor.Run(ctx, "launchctl", "list", launchdServiceLabel)
	if err != nil {
		status.ServiceState = ServiceStateDisabled
		return status, nil //nolint:nilerr // Not loaded is a valid state, not an error
	}

	status.ServiceState = ServiceStateEnabled
	status.PID, status.IsRunning = parseLaunchctlOutput(string(output))

	if status.IsRunning {
		status.Health = fetchHealth(ctx, m.settings)
	}

	return status, nil
}

// IsInstalled checks if the plist file exists.
func (m *launchdManager) IsInstalled() (bool, error) {
	plistPath, err := getPlistPath()
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(plistPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}

	return true, nil
}

// parseLaunchctlOutput extracts the PID from `launchctl list <label>`,
// which prints either a `"PID" = 123;` dictionary or a tab-separated row.
func parseLaunchctlOutput(output string) (int, bool) {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, `"PID"`) {
			if _, value, ok := strings.Cut(line, "="); ok {
				pidStr := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), ";"))
				if pid, err := strconv.Atoi(pidStr); err == nil && pid > 0 {
					return pid, true
				}
			}
		}

		if fields := strings.Fields(line); len(fields) >= 1 {
			if pid, err := strconv.Atoi(fields[0]); err == nil && pid > 0 {
				return pid, true
			}
		}
	}

	return 0, false
}
