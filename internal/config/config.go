package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultNATPlistPath         = "/Library/Preferences/SystemConfiguration/com.apple.nat.plist"
	DefaultPreferencesPlistPath = "/Library/Preferences/SystemConfiguration/preferences.plist"
	DefaultBridgeName           = "bridge100"
	DefaultSettleDelay          = time.Second
	DefaultNetworkName          = "user's MacBook Pro"
	DefaultIfconfigPath         = "ifconfig"
	DefaultIoregPath            = "ioreg"
	DefaultLogLevel             = "info"
)

// DefaultDeviceProducts are the USB product names treated as shareable
// mobile devices.
var DefaultDeviceProducts = []string{"iPhone", "iPad"}

var DefaultSTUNServers = []string{"stun.l.google.com:19302", "stun1.l.google.com:19302"}

// Config holds every tunable of the tool. A zero Config is valid once
// ApplyDefaults has run.
type Config struct {
	NATPlistPath         string   `yaml:"nat_plist_path"`
	PreferencesPlistPath string   `yaml:"preferences_plist_path"`
	BridgeName           string   `yaml:"bridge_name"`
	SettleDelay          Duration `yaml:"settle_delay"`
	NetworkName          string   `yaml:"network_name"`
	DeviceProducts       []string `yaml:"device_products"`
	IfconfigPath         string   `yaml:"ifconfig_path"`
	IoregPath            string   `yaml:"ioreg_path"`
	STUNServers          []string `yaml:"stun_servers"`
	LogLevel             string   `yaml:"log_level"`
}

// Duration is a time.Duration that reads and writes as "1s", "500ms".
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Default returns a Config populated with defaults only.
func Default() Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return cfg
}

// Save writes a YAML config file to disk.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate performs minimal validation for required fields.
func Validate(cfg Config) error {
	if cfg.NATPlistPath == "" {
		return fmt.Errorf("nat_plist_path is required")
	}
	if cfg.PreferencesPlistPath == "" {
		return fmt.Errorf("preferences_plist_path is required")
	}
	if cfg.BridgeName == "" {
		return fmt.Errorf("bridge_name is required")
	}
	if cfg.SettleDelay < 0 {
		return fmt.Errorf("settle_delay must not be negative")
	}
	if len(cfg.DeviceProducts) == 0 {
		return fmt.Errorf("device_products must not be empty")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q must be one of debug|info|warn|error", cfg.LogLevel)
	}
	return nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.NATPlistPath == "" {
		cfg.NATPlistPath = DefaultNATPlistPath
	}
	if cfg.PreferencesPlistPath == "" {
		cfg.PreferencesPlistPath = DefaultPreferencesPlistPath
	}
	if cfg.BridgeName == "" {
		cfg.BridgeName = DefaultBridgeName
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = Duration(DefaultSettleDelay)
	}
	if cfg.NetworkName == "" {
		cfg.NetworkName = DefaultNetworkName
	}
	if len(cfg.DeviceProducts) == 0 {
		cfg.DeviceProducts = append([]string(nil), DefaultDeviceProducts...)
	}
	if cfg.IfconfigPath == "" {
		cfg.IfconfigPath = DefaultIfconfigPath
	}
	if cfg.IoregPath == "" {
		cfg.IoregPath = DefaultIoregPath
	}
	if len(cfg.STUNServers) == 0 {
		cfg.STUNServers = append([]string(nil), DefaultSTUNServers...)
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
}
