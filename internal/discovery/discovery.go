package discovery

import (
	"sort"

	"tetherctl/internal/ioreg"
	"tetherctl/internal/model"
)

// Registry classes and properties used to identify a tethered device.
const (
	ClassEthernetInterface = "IOEthernetInterface"
	ClassUSBNCMData        = "AppleUSBNCMData"
	ClassUSBHostDevice     = "IOUSBHostDevice"

	// PropWaitBSDStart marks the NCM interface used for remote service
	// discovery/recovery, which must never be bridged.
	PropWaitBSDStart = "waitBsdStart"
	PropProductName  = "USB Product Name"
	PropSerialNumber = "USB Serial Number"
	propBSDName      = "BSD Name"
)

// Interfaces returns every USB Ethernet interface that belongs to a device
// whose product name is in products. Entries that do not qualify are skipped;
// only a failure to enumerate the registry is returned.
func Interfaces(reg ioreg.Registry, products []string) ([]model.USBEthernetInterface, error) {
	entries, err := reg.ServicesByClass(ClassEthernetInterface)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(products))
	for _, p := range products {
		allowed[p] = struct{}{}
	}

	bySerial := map[string]model.USBEthernetInterface{}
	for _, entry := range entries {
		iface, ok := classify(entry, allowed)
		if !ok {
			continue
		}
		bySerial[iface.SerialNumber] = iface
	}

	out := make([]model.USBEthernetInterface, 0, len(bySerial))
	for _, iface := range bySerial {
		out = append(out, iface)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SerialNumber < out[j].SerialNumber })
	return out, nil
}

// MobileInterfaces returns serial number -> interface name for every eligible
// tethered device.
func MobileInterfaces(reg ioreg.Registry, products []string) (map[string]string, error) {
	ifaces, err := Interfaces(reg, products)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ifaces))
	for _, iface := range ifaces {
		out[iface.SerialNumber] = iface.Name
	}
	return out, nil
}

func classify(entry *ioreg.Entry, allowed map[string]struct{}) (model.USBEthernetInterface, bool) {
	ncm, ok := entry.ParentByClass(ClassUSBNCMData)
	if !ok {
		return model.USBEthernetInterface{}, false
	}
	if ncm.HasProperty(PropWaitBSDStart) {
		return model.USBEthernetInterface{}, false
	}

	host, ok := entry.ParentByClass(ClassUSBHostDevice)
	if !ok {
		return model.USBEthernetInterface{}, false
	}
	product, ok := host.StringProperty(PropProductName)
	if !ok {
		return model.USBEthernetInterface{}, false
	}
	serial, ok := host.StringProperty(PropSerialNumber)
	if !ok || serial == "" {
		return model.USBEthernetInterface{}, false
	}
	if _, ok := allowed[product]; !ok {
		return model.USBEthernetInterface{}, false
	}

	name, ok := entry.StringProperty(propBSDName)
	if !ok || name == "" {
		name = entry.Name
	}
	if name == "" {
		return model.USBEthernetInterface{}, false
	}
	return model.USBEthernetInterface{SerialNumber: serial, Name: name, ProductName: product}, true
}
