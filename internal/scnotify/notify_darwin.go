//go:build darwin

package scnotify

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

const (
	coreFoundationPath      = "/System/Library/Frameworks/CoreFoundation.framework/CoreFoundation"
	systemConfigurationPath = "/System/Library/Frameworks/SystemConfiguration.framework/SystemConfiguration"

	kCFStringEncodingUTF8 uint32 = 0x08000100
)

// SystemNotifier binds SystemConfiguration at call time via dlopen, so the
// binary builds without cgo.
type SystemNotifier struct {
	storeName string
}

func NewSystemNotifier(storeName string) *SystemNotifier {
	if storeName == "" {
		storeName = DefaultStoreName
	}
	return &SystemNotifier{storeName: storeName}
}

type scFuncs struct {
	cfStringCreateWithCString func(alloc uintptr, cStr string, encoding uint32) uintptr
	cfRelease                 func(cf uintptr)
	scDynamicStoreCreate      func(alloc, name, callout, context uintptr) uintptr
	scDynamicStoreNotifyValue func(store, key uintptr) bool
}

var (
	loadOnce  sync.Once
	loadedSC  *scFuncs
	loadSCErr error
)

// loadFuncs binds the framework symbols once. The dlopen handles stay open
// for the life of the process.
func loadFuncs() (*scFuncs, error) {
	loadOnce.Do(func() {
		loadedSC, loadSCErr = dlopenFuncs()
	})
	return loadedSC, loadSCErr
}

func dlopenFuncs() (*scFuncs, error) {
	cf, err := purego.Dlopen(coreFoundationPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen CoreFoundation: %w", err)
	}
	sc, err := purego.Dlopen(systemConfigurationPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, fmt.Errorf("dlopen SystemConfiguration: %w", err)
	}

	f := &scFuncs{}
	purego.RegisterLibFunc(&f.cfStringCreateWithCString, cf, "CFStringCreateWithCString")
	purego.RegisterLibFunc(&f.cfRelease, cf, "CFRelease")
	purego.RegisterLibFunc(&f.scDynamicStoreCreate, sc, "SCDynamicStoreCreate")
	purego.RegisterLibFunc(&f.scDynamicStoreNotifyValue, sc, "SCDynamicStoreNotifyValue")
	return f, nil
}

// NotifyConfigurationChanged posts Prefs:commit:<path> to the dynamic store.
// The notification itself is fire-and-forget.
func (n *SystemNotifier) NotifyConfigurationChanged(path string) error {
	f, err := loadFuncs()
	if err != nil {
		return err
	}

	name := f.cfStringCreateWithCString(0, n.storeName, kCFStringEncodingUTF8)
	if name == 0 {
		return fmt.Errorf("%w: cannot allocate store name", ErrStoreCreate)
	}
	defer f.cfRelease(name)

	store := f.scDynamicStoreCreate(0, name, 0, 0)
	if store == 0 {
		return ErrStoreCreate
	}
	defer f.cfRelease(store)

	key := f.cfStringCreateWithCString(0, CommitKey(path), kCFStringEncodingUTF8)
	if key == 0 {
		return fmt.Errorf("cannot allocate notification key for %s", path)
	}
	defer f.cfRelease(key)

	f.scDynamicStoreNotifyValue(store, key)
	return nil
}
