package bridge

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"

	"tetherctl/internal/execx"
	"tetherctl/internal/model"
)

// DefaultName is the bridge macOS creates for Internet Sharing.
const DefaultName = "bridge100"

// DeviceLister returns serial number -> interface name for every tethered
// mobile device currently attached.
type DeviceLister func() (map[string]string, error)

// Inspector queries the sharing bridge with ifconfig.
type Inspector struct {
	r        execx.Runner
	ifconfig string
	devices  DeviceLister
	log      *slog.Logger
}

func NewInspector(r execx.Runner, ifconfigPath string, devices DeviceLister, logger *slog.Logger) *Inspector {
	if r == nil {
		r = execx.NewOSRunner()
	}
	if ifconfigPath == "" {
		ifconfigPath = "ifconfig"
	}
	if devices == nil {
		devices = func() (map[string]string, error) { return map[string]string{}, nil }
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Inspector{r: r, ifconfig: ifconfigPath, devices: devices, log: logger}
}

// Inspect reports the bridge named name. present is false, with a nil error,
// when the interface does not exist: that is how sharing being off looks.
func (in *Inspector) Inspect(name string) (model.BridgeSnapshot, bool, error) {
	if name == "" {
		name = DefaultName
	}
	out, err := in.r.Output(in.ifconfig, name)
	if err != nil {
		if execx.OutputContains(err, fmt.Sprintf("interface %s does not exist", name)) {
			in.log.Debug("bridge absent", "bridge", name)
			return model.BridgeSnapshot{}, false, nil
		}
		return model.BridgeSnapshot{}, false, err
	}

	parsed := Parse(out)
	devices, err := in.devices()
	if err != nil {
		return model.BridgeSnapshot{}, true, err
	}
	snap := model.BridgeSnapshot{
		Name:    parsed.Name,
		IPv4:    parsed.IPv4,
		IPv6:    parsed.IPv6,
		Members: FilterMembers(devices, parsed.Members),
	}
	in.log.Debug("bridge present", "bridge", snap.Name, "members", len(parsed.Members), "devices", len(snap.Members))
	return snap, true, nil
}

// Parsed is the raw information extracted from ifconfig output.
type Parsed struct {
	Name    string
	IPv4    string
	IPv6    string
	Members []string
}

var (
	nameRe   = regexp.MustCompile(`(?m)^(\S+):`)
	ipv4Re   = regexp.MustCompile(`(?m)^\s*(inet\s+\S+\s+netmask\s+\S+\s+broadcast\s+\S+)`)
	ipv6Re   = regexp.MustCompile(`(?m)^\s*(inet6\s+\S+\s+prefixlen\s+\d+\s+scopeid\s+\S+)`)
	memberRe = regexp.MustCompile(`(?m)^\s*member:\s+(\S+)`)
)

// Parse extracts the bridge name, the first IPv4 and IPv6 configuration
// lines, and every member interface in order. Each field is best effort.
func Parse(output string) Parsed {
	p := Parsed{Name: "Unknown"}
	if m := nameRe.FindStringSubmatch(output); m != nil {
		p.Name = m[1]
	}
	if m := ipv4Re.FindStringSubmatch(output); m != nil {
		p.IPv4 = m[1]
	}
	if m := ipv6Re.FindStringSubmatch(output); m != nil {
		p.IPv6 = m[1]
	}
	for _, m := range memberRe.FindAllStringSubmatch(output, -1) {
		p.Members = append(p.Members, m[1])
	}
	return p
}

// FilterMembers keeps the devices whose interface is a bridge member.
func FilterMembers(devices map[string]string, members []string) map[string]string {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	out := map[string]string{}
	for serial, iface := range devices {
		if _, ok := set[iface]; ok {
			out[serial] = iface
		}
	}
	return out
}
