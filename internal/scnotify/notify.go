// Package scnotify tells configd that a preferences file was rewritten so
// the change takes effect without a reboot.
package scnotify

import "errors"

var (
	// ErrStoreCreate is returned when no dynamic store session can be opened.
	ErrStoreCreate = errors.New("failed to create SCDynamicStore")
	// ErrUnsupported is returned on platforms without SystemConfiguration.
	ErrUnsupported = errors.New("configuration change notification requires macOS")
)

// DefaultStoreName names the dynamic store session.
const DefaultStoreName = "tetherctl"

// Notifier posts a "preferences committed" notification for a file.
type Notifier interface {
	NotifyConfigurationChanged(path string) error
}

// Func adapts a function to Notifier.
type Func func(path string) error

func (f Func) NotifyConfigurationChanged(path string) error { return f(path) }

// CommitKey is the dynamic store key configd watches for path.
func CommitKey(path string) string {
	return "Prefs:commit:" + path
}
