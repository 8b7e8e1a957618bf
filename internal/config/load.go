package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ErrConfigNotFound is returned when no configuration file exists at the resolved path.
var ErrConfigNotFound = errors.New("config file not found")

// EnvConfigPath names the environment variable that overrides the config file location.
const EnvConfigPath = "SKILLSD_CONFIG"

// ResolvePath returns the config file location.
// Priority: explicit path (the --config flag), SKILLSD_CONFIG, DefaultConfigFile.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return ExpandPath(explicit)
	}
	if envPath := os.Getenv(EnvConfigPath); envPath != "" {
		return ExpandPath(envPath)
	}
	return ExpandPath(DefaultConfigFile)
}

// LoadFromPath reads, expands and validates configuration from a JSON file.
// A missing file yields an error wrapping ErrConfigNotFound.
func LoadFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s; please create it", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat config %s; %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from %s; %w", path, err)
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to read config from %s; %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}

	skills, err := decodeSkills(data)
	if err != nil {
		return nil, err
	}
	cfg.Skills = skills

	expandPaths(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newViper builds a viper instance with JSON format, defaults and SKILLSD_ env binding.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("json")

	v.SetEnvPrefix("SKILLSD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setViperDefaults(v)
	return v
}

// skillEntry is the on-disk shape of one skills.<name> object.
type skillEntry struct {
	Pattern   string `json:"pattern"`
	DocID     string `json:"doc_id"`
	SkillName string `json:"skill_name"`
}

// decodeSkills extracts the skills object in declaration order.
func decodeSkills(data []byte) ([]SkillConfig, error) {
	var root map[string]json.RawMessage
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config json; %w", err)
	}

	raw, ok := root["skills"]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to parse skills; %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("failed to parse skills; must be an object keyed by skill name")
	}

	var skills []SkillConfig
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to parse skills; %w", err)
		}
		name, _ := keyTok.(string)

		var entry skillEntry
		if err := dec.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to parse skill %q; %w", name, err)
		}

		display := entry.SkillName
		if display == "" {
			display = name
		}

		skills = append(skills, SkillConfig{
			Name:        name,
			Pattern:     entry.Pattern,
			DocID:       entry.DocID,
			DisplayName: display,
		})
	}

	return skills, nil
}

// expandPaths expands a leading ~ in every path-valued setting.
func expandPaths(cfg *Config) {
	cfg.WatchFolder = ExpandPath(cfg.WatchFolder)
	cfg.ArchiveFolder = ExpandPath(cfg.ArchiveFolder)
	cfg.ServiceAccountFile = ExpandPath(cfg.ServiceAccountFile)
	cfg.LogFile = ExpandPath(cfg.LogFile)
	cfg.Daemon.PIDFile = ExpandPath(cfg.Daemon.PIDFile)
	cfg.History.Path = ExpandPath(cfg.History.Path)
}
