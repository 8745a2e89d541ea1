package plistdoc

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"howett.net/plist"
)

const natXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>NAT</key>
	<dict>
		<key>Enabled</key>
		<integer>0</integer>
		<key>SharingDevices</key>
		<array>
			<string>en5</string>
		</array>
	</dict>
</dict>
</plist>
`

func TestEdit_MissingFileStartsEmptyAndCommits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "com.apple.nat.plist")
	err := Edit(path, func(doc Document) error {
		if len(doc) != 0 {
			t.Fatalf("doc=%v", doc)
		}
		doc["NAT"] = map[string]any{"Enabled": 1}
		return nil
	})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	nat, ok := doc.Dict("NAT")
	if !ok {
		t.Fatalf("NAT missing: %v", doc)
	}
	if v, _ := AsInt(nat["Enabled"]); v != 1 {
		t.Fatalf("Enabled=%v", nat["Enabled"])
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode=%o", info.Mode().Perm())
	}
}

func TestEdit_CommitsOnCallbackError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nat.plist")
	if err := os.WriteFile(path, []byte(natXML), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	boom := errors.New("boom")
	err := Edit(path, func(doc Document) error {
		nat, _ := doc.Dict("NAT")
		nat["Enabled"] = 1
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	nat, _ := doc.Dict("NAT")
	if v, _ := AsInt(nat["Enabled"]); v != 1 {
		t.Fatalf("mutation before error was not committed: %v", nat)
	}
	if got := AsStrings(nat["SharingDevices"]); len(got) != 1 || got[0] != "en5" {
		t.Fatalf("SharingDevices=%v", got)
	}
	info, _ := os.Stat(path)
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode not preserved: %o", info.Mode().Perm())
	}
}

func TestEdit_CommitsOnPanic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nat.plist")

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = Edit(path, func(doc Document) error {
			doc["Touched"] = true
			panic("mid-edit")
		})
	}()

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc["Touched"] != true {
		t.Fatalf("doc=%v", doc)
	}
}

func TestEdit_MalformedFileAbortsWithoutWriting(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nat.plist")
	garbage := []byte("<plist><dict><key>NAT</key>")
	if err := os.WriteFile(path, garbage, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	called := false
	err := Edit(path, func(doc Document) error {
		called = true
		return nil
	})
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if called {
		t.Fatalf("callback ran on malformed input")
	}
	after, _ := os.ReadFile(path)
	if string(after) != string(garbage) {
		t.Fatalf("file was rewritten: %q", after)
	}
}

func TestEdit_NonDictionaryRoot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "array.plist")
	data, err := plist.Marshal([]any{"a", "b"}, plist.XMLFormat)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	err = Edit(path, func(Document) error { return nil })
	if !errors.Is(err, ErrNotDictionary) {
		t.Fatalf("err=%v", err)
	}
}

func TestEdit_PreservesBinaryFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nat.plist")
	data, err := plist.Marshal(map[string]any{"NAT": map[string]any{"Enabled": 0}}, plist.BinaryFormat)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := Edit(path, func(doc Document) error {
		nat, _ := doc.Dict("NAT")
		nat["Enabled"] = 1
		return nil
	}); err != nil {
		t.Fatalf("Edit: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.HasPrefix(string(after), "bplist00") {
		t.Fatalf("binary format not preserved: %q", after[:8])
	}
}

func TestAsInt(t *testing.T) {
	t.Parallel()

	for _, v := range []any{uint64(1), int64(1), 1, true, float64(1)} {
		got, ok := AsInt(v)
		if !ok || got != 1 {
			t.Fatalf("AsInt(%T)=%d,%v", v, got, ok)
		}
	}
	if _, ok := AsInt("1"); ok {
		t.Fatalf("string coerced")
	}
	if _, ok := AsInt(1.5); ok {
		t.Fatalf("fraction coerced")
	}
}
