// Package hostnet answers questions about the host's own network interfaces,
// such as whether the interface being shared is actually up.
package hostnet

import (
	"net"
	"slices"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// Interface is the subset of interface state the tool reports on.
type Interface struct {
	Name  string
	MTU   int
	Up    bool
	Addrs []string
}

// IPv4 returns the first IPv4 address of the interface, or nil.
func (i Interface) IPv4() net.IP {
	for _, addr := range i.Addrs {
		ip, _, err := net.ParseCIDR(addr)
		if err != nil {
			ip = net.ParseIP(addr)
		}
		if v4 := ip.To4(); v4 != nil {
			return v4
		}
	}
	return nil
}

// Interfaces lists the host's interfaces.
func Interfaces() ([]Interface, error) {
	stats, err := psnet.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make([]Interface, 0, len(stats))
	for _, s := range stats {
		iface := Interface{
			Name: s.Name,
			MTU:  s.MTU,
			Up:   slices.Contains(s.Flags, "up"),
		}
		for _, a := range s.Addrs {
			iface.Addrs = append(iface.Addrs, a.Addr)
		}
		out = append(out, iface)
	}
	return out, nil
}

// Lookup finds the interface called name.
func Lookup(name string) (Interface, bool, error) {
	ifaces, err := Interfaces()
	if err != nil {
		return Interface{}, false, err
	}
	return Find(ifaces, name)
}

// Find returns the interface called name from ifaces.
func Find(ifaces []Interface, name string) (Interface, bool, error) {
	for _, iface := range ifaces {
		if iface.Name == name {
			return iface, true, nil
		}
	}
	return Interface{}, false, nil
}
