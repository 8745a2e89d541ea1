//go:build integration && darwin

package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"howett.net/plist"
)

// This test requires:
// - macOS
// - root (writes com.apple.nat.plist copies and notifies configd)
//
// It is gated behind -tags=integration and TETHERCTL_INTEGRATION=1 because
// toggling sharing disturbs the host's network.
func TestTetherctl_StatusAndDoctor(t *testing.T) {
	requireIntegration(t)

	bin := buildBinary(t)
	out := runOut(t, bin, "status")
	if !strings.Contains(out, "Internet sharing OFF") && !strings.Contains(out, "Bridge ") {
		t.Fatalf("unexpected status output:\n%s", out)
	}

	out = runOut(t, bin, "doctor")
	for _, want := range []string{"nat_plist=", "devices count=", "bridge bridge100 present="} {
		if !strings.Contains(out, want) {
			t.Fatalf("doctor output missing %q:\n%s", want, out)
		}
	}
}

// Toggling a scratch NAT file must flip Enabled twice and leave the rest of
// the block alone. The scratch path is notified too, which configd ignores.
func TestTetherctl_ToggleScratchFile(t *testing.T) {
	requireIntegration(t)

	bin := buildBinary(t)
	dir := t.TempDir()
	natPath := filepath.Join(dir, "com.apple.nat.plist")
	writePlist(t, natPath, map[string]any{
		"NAT": map[string]any{
			"Enabled":        0,
			"SharingDevices": []any{"en99"},
		},
	})
	cfgPath := filepath.Join(dir, "config.yaml")
	mustWrite(t, cfgPath, "nat_plist_path: "+natPath+"\nbridge_name: tetherctl-test0\nsettle_delay: 10ms\n")

	runOut(t, bin, "toggle", "--config", cfgPath)
	if got := natEnabled(t, natPath); got != 1 {
		t.Fatalf("Enabled after first toggle=%d", got)
	}
	runOut(t, bin, "toggle", "--config", cfgPath)
	if got := natEnabled(t, natPath); got != 0 {
		t.Fatalf("Enabled after second toggle=%d", got)
	}
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("TETHERCTL_INTEGRATION") != "1" {
		t.Skip("set TETHERCTL_INTEGRATION=1 to run")
	}
	if os.Geteuid() != 0 {
		t.Skip("requires root")
	}
	for _, tool := range []string{"ioreg", "ifconfig"} {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("missing %s", tool)
		}
	}
}

func buildBinary(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "tetherctl")
	runOut(t, "go", "build", "-o", bin, "../../cmd/tetherctl")
	return bin
}

func natEnabled(t *testing.T, path string) int {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc struct {
		NAT struct {
			Enabled int `plist:"Enabled"`
		} `plist:"NAT"`
	}
	if _, err := plist.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return doc.NAT.Enabled
}

func writePlist(t *testing.T, path string, v any) {
	t.Helper()
	data, err := plist.Marshal(v, plist.XMLFormat)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	mustWrite(t, path, string(data))
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func runOut(t *testing.T, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, string(out))
	}
	return string(out)
}
