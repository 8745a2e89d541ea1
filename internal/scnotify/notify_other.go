//go:build !darwin

package scnotify

// SystemNotifier is unavailable off macOS; every call fails.
type SystemNotifier struct {
	storeName string
}

func NewSystemNotifier(storeName string) *SystemNotifier {
	if storeName == "" {
		storeName = DefaultStoreName
	}
	return &SystemNotifier{storeName: storeName}
}

func (n *SystemNotifier) NotifyConfigurationChanged(path string) error {
	return ErrUnsupported
}
