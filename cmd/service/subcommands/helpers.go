// Package subcommands provides the service subcommands.
package subcommands

import (
	"fmt"
	"path/filepath"

	"github.com/leefowlercu/skillsd/internal/cmdutil"
	"github.com/leefowlercu/skillsd/internal/config"
	"github.com/leefowlercu/skillsd/internal/daemon"
	"github.com/leefowlercu/skillsd/internal/daemonclient"
	"github.com/leefowlercu/skillsd/internal/servicemanager"
)

// newManager is replaced in tests.
var newManager = servicemanager.NewDaemonManager

// settingsFor describes the service for the loaded configuration.
func settingsFor(cfg *config.Config) servicemanager.Settings {
	settings := servicemanager.Settings{
		BinaryPath:        servicemanager.GetBinaryPath(),
		HeartbeatInterval: daemon.DaemonConfigFrom(cfg.Daemon).HeartbeatInterval,
	}

	if path := config.ConfigFilePath(); path != "" {
		if abs, err := filepath.Abs(path); err == nil {
			settings.ConfigPath = abs
		} else {
			settings.ConfigPath = path
		}
	}

	if client, err := daemonclient.NewFromConfig(cfg); err == nil {
		settings.Health = client.Ready
	}

	return settings
}

func manager() (servicemanager.DaemonManager, error) {
	cfg, err := cmdutil.Config()
	if err != nil {
		return nil, err
	}

	if platform := servicemanager.DetectPlatform(); !servicemanager.IsPlatformSupported(platform) {
		return nil, fmt.Errorf("service management is not supported on %s", platform)
	}

	return newManager(settingsFor(cfg))
}
