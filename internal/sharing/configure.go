package sharing

import (
	"errors"
	"io"
	"log/slog"

	"tetherctl/internal/netsvc"
	"tetherctl/internal/plistdoc"
)

// NATKey is the top-level key of the NAT preferences document.
const NATKey = "NAT"

// ErrNoMembers is returned when configuring sharing without any device.
var ErrNoMembers = errors.New("at least one sharing device is required")

// Configurator writes the NAT block that describes who shares with whom.
type Configurator struct {
	natPath            string
	preferencesPath    string
	defaultNetworkName string
	log                *slog.Logger
}

func NewConfigurator(natPath, preferencesPath, defaultNetworkName string, logger *slog.Logger) *Configurator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Configurator{
		natPath:            natPath,
		preferencesPath:    preferencesPath,
		defaultNetworkName: defaultNetworkName,
		log:                logger,
	}
}

// Configure shares the connection of primary (a device name such as en0, or
// a service name such as Wi-Fi) with the member interfaces. An unknown
// primary fails before the NAT file is touched. Any existing NAT block is
// replaced, not merged.
func (c *Configurator) Configure(primary string, members []string, networkName string) (netsvc.Service, error) {
	if len(members) == 0 {
		return netsvc.Service{}, ErrNoMembers
	}
	services, err := netsvc.Load(c.preferencesPath)
	if err != nil {
		return netsvc.Service{}, err
	}
	svc, err := services.Resolve(primary)
	if err != nil {
		return netsvc.Service{}, err
	}
	if networkName == "" {
		networkName = c.defaultNetworkName
	}

	err = plistdoc.Edit(c.natPath, func(doc plistdoc.Document) error {
		doc[NATKey] = NATBlock(svc, members, networkName)
		return nil
	})
	if err != nil {
		return netsvc.Service{}, err
	}
	c.log.Info("internet sharing configured",
		"primary_service", svc.Key,
		"primary_device", svc.DeviceName,
		"members", members,
		"network_name", networkName,
	)
	return svc, nil
}

// NATBlock builds the complete NAT dictionary. The block is enabled as a
// whole; the primary-interface and AirPort sub-flags stay off.
func NATBlock(svc netsvc.Service, members []string, networkName string) map[string]any {
	devices := make([]any, 0, len(members))
	for _, m := range members {
		devices = append(devices, m)
	}
	return map[string]any{
		"AirPort": map[string]any{
			"40BitEncrypt":    1,
			"Channel":         0,
			"Enabled":         0,
			"NetworkName":     networkName,
			"NetworkPassword": []byte{},
		},
		"Enabled":            1,
		"NatPortMapDisabled": false,
		"PrimaryInterface": map[string]any{
			"Device":      svc.DeviceName,
			"Enabled":     0,
			"HardwareKey": "",
		},
		"PrimaryService": svc.Key,
		"SharingDevices": devices,
	}
}
