package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	var cfg Config
	ApplyDefaults(&cfg)

	if cfg.NATPlistPath != DefaultNATPlistPath || cfg.PreferencesPlistPath != DefaultPreferencesPlistPath {
		t.Fatalf("path defaults not set: %+v", cfg)
	}
	if cfg.BridgeName != "bridge100" {
		t.Fatalf("bridge_name=%q", cfg.BridgeName)
	}
	if time.Duration(cfg.SettleDelay) != time.Second {
		t.Fatalf("settle_delay=%s", time.Duration(cfg.SettleDelay))
	}
	if len(cfg.DeviceProducts) != 2 {
		t.Fatalf("device_products=%v", cfg.DeviceProducts)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.LogLevel = "loud"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_ParsesDurationAndKeepsOverrides(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "tetherctl.yaml")
	data := "bridge_name: bridge101\nsettle_delay: 250ms\ndevice_products: [iPhone]\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BridgeName != "bridge101" {
		t.Fatalf("bridge_name=%q", cfg.BridgeName)
	}
	if time.Duration(cfg.SettleDelay) != 250*time.Millisecond {
		t.Fatalf("settle_delay=%s", time.Duration(cfg.SettleDelay))
	}
	if len(cfg.DeviceProducts) != 1 || cfg.DeviceProducts[0] != "iPhone" {
		t.Fatalf("device_products=%v", cfg.DeviceProducts)
	}
	if cfg.IfconfigPath != DefaultIfconfigPath {
		t.Fatalf("ifconfig_path=%q", cfg.IfconfigPath)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("settle_delay: soon\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSave_Writes0600(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	path := filepath.Join(tmp, "nested", "tetherctl.yaml")
	if err := Save(path, Config{BridgeName: "bridge102"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%o", info.Mode().Perm())
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BridgeName != "bridge102" || time.Duration(cfg.SettleDelay) != DefaultSettleDelay {
		t.Fatalf("cfg=%+v", cfg)
	}
}
