package model

import (
	"fmt"
	"strings"
)

// USBEthernetInterface is a network interface exposed by a USB-tethered
// mobile device.
type USBEthernetInterface struct {
	SerialNumber string
	Name         string // BSD interface name, e.g. en5
	ProductName  string
}

// BridgeSnapshot describes the sharing bridge as reported by ifconfig.
// Members maps device serial number -> interface name and only contains
// interfaces that are both bridge members and discovered mobile devices.
type BridgeSnapshot struct {
	Name    string
	IPv4    string
	IPv6    string
	Members map[string]string
}

// SharingState is the requested Internet Sharing state. Toggle is an intent
// and is never persisted.
type SharingState string

const (
	SharingOn     SharingState = "ON"
	SharingOff    SharingState = "OFF"
	SharingToggle SharingState = "TOGGLE"
)

// ParseSharingState accepts on/off/toggle in any case.
func ParseSharingState(value string) (SharingState, error) {
	switch SharingState(strings.ToUpper(strings.TrimSpace(value))) {
	case SharingOn:
		return SharingOn, nil
	case SharingOff:
		return SharingOff, nil
	case SharingToggle:
		return SharingToggle, nil
	}
	return "", fmt.Errorf("invalid sharing state %q", value)
}

// Apply returns the Enabled flag that results from applying s to current.
func (s SharingState) Apply(current int) (int, error) {
	switch s {
	case SharingOn:
		return 1, nil
	case SharingOff:
		return 0, nil
	case SharingToggle:
		if current != 0 {
			return 0, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("invalid sharing state %q", string(s))
}
