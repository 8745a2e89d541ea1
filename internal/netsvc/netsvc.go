// Package netsvc reads the network service definitions from the system
// preferences plist.
package netsvc

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gofrs/uuid/v5"

	"tetherctl/internal/plistdoc"
)

// ErrServiceNotFound is returned when no service matches a lookup.
var ErrServiceNotFound = errors.New("network service not found")

// Service is a configured network service.
type Service struct {
	Key             string // identifier exactly as stored in the plist
	ID              uuid.UUID
	UserDefinedName string
	DeviceName      string // BSD name of the service's interface, e.g. en0
	Type            string // e.g. Ethernet, IEEE80211
}

// Services is an ordered set of services, sorted by ID.
type Services []Service

// Load reads NetworkServices from a preferences plist. Keys that are not
// UUIDs are ignored.
func Load(path string) (Services, error) {
	doc, err := plistdoc.Load(path)
	if err != nil {
		return nil, err
	}
	return FromDocument(doc), nil
}

// FromDocument extracts services from a decoded preferences document.
func FromDocument(doc plistdoc.Document) Services {
	raw, ok := doc.Dict("NetworkServices")
	if !ok {
		return nil
	}

	out := make(Services, 0, len(raw))
	for key, value := range raw {
		id, err := uuid.FromString(key)
		if err != nil {
			continue
		}
		dict, ok := plistdoc.AsDict(value)
		if !ok {
			continue
		}
		svc := Service{Key: key, ID: id}
		svc.UserDefinedName, _ = plistdoc.AsString(dict["UserDefinedName"])
		if iface, ok := plistdoc.AsDict(dict["Interface"]); ok {
			svc.DeviceName, _ = plistdoc.AsString(iface["DeviceName"])
			svc.Type, _ = plistdoc.AsString(iface["Type"])
			if svc.UserDefinedName == "" {
				svc.UserDefinedName, _ = plistdoc.AsString(iface["UserDefinedName"])
			}
		}
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// ByDeviceName finds the service bound to a BSD interface name.
func (s Services) ByDeviceName(name string) (Service, bool) {
	for _, svc := range s {
		if svc.DeviceName == name {
			return svc, true
		}
	}
	return Service{}, false
}

// ByUserDefinedName finds a service by the name shown in System Settings.
func (s Services) ByUserDefinedName(name string) (Service, bool) {
	for _, svc := range s {
		if svc.UserDefinedName == name {
			return svc, true
		}
	}
	return Service{}, false
}

// Resolve matches name against device names first, then user-defined names.
func (s Services) Resolve(name string) (Service, error) {
	if svc, ok := s.ByDeviceName(name); ok {
		return svc, nil
	}
	if svc, ok := s.ByUserDefinedName(name); ok {
		return svc, nil
	}
	return Service{}, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
}
