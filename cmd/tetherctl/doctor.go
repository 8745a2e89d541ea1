package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"tetherctl/internal/discovery"
	"tetherctl/internal/hostnet"
	"tetherctl/internal/netsvc"
	"tetherctl/internal/sharing"
	"tetherctl/internal/uplink"
)

func handleDoctor(args []string) {
	fs, flags := newFlagSet("doctor")
	probe := fs.Bool("probe", false, "check the uplink with STUN")
	timeout := fs.Duration("timeout", 3*time.Second, "per-server STUN timeout")
	_ = fs.Parse(args)

	a := setup(flags)
	cfg := a.cfg
	out := os.Stdout

	fmt.Fprintf(out, "nat_plist=%s\n", cfg.NATPlistPath)
	fmt.Fprintf(out, "preferences_plist=%s\n", cfg.PreferencesPlistPath)
	fmt.Fprintf(out, "bridge=%s settle_delay=%s\n", cfg.BridgeName, cfg.SettleDelay.Std())
	if os.Geteuid() != 0 {
		fmt.Fprintln(out, "warning: not running as root; on/off/toggle/configure will fail to write")
	}

	sum, configured, err := sharing.ReadSummary(cfg.NATPlistPath)
	primaryDevice := ""
	switch {
	case err != nil:
		fmt.Fprintf(out, "nat error: %v\n", err)
	case !configured:
		fmt.Fprintln(out, "nat configured=false")
	default:
		primaryDevice = sum.PrimaryDevice
		fmt.Fprintf(out, "nat configured=true enabled=%d primary_service=%s primary_device=%s members=%s network_name=%q\n",
			sum.Enabled, sum.PrimaryService, sum.PrimaryDevice, strings.Join(sum.Members, ","), sum.NetworkName)
	}

	if services, err := netsvc.Load(cfg.PreferencesPlistPath); err != nil {
		fmt.Fprintf(out, "services error: %v\n", err)
	} else {
		fmt.Fprintf(out, "services count=%d\n", len(services))
		for _, svc := range services {
			fmt.Fprintf(out, "  %s\t%s\t%s\n", svc.Key, svc.DeviceName, svc.UserDefinedName)
		}
	}

	if found, err := discovery.Interfaces(a.registry, cfg.DeviceProducts); err != nil {
		fmt.Fprintf(out, "devices error: %v\n", err)
	} else {
		fmt.Fprintf(out, "devices count=%d\n", len(found))
		for _, iface := range found {
			fmt.Fprintf(out, "  %s\n", deviceLabel(iface))
		}
	}

	var primary hostnet.Interface
	if primaryDevice != "" {
		iface, ok, err := hostnet.Lookup(primaryDevice)
		switch {
		case err != nil:
			fmt.Fprintf(out, "primary_interface error: %v\n", err)
		case !ok:
			fmt.Fprintf(out, "primary_interface %s present=false\n", primaryDevice)
		default:
			primary = iface
			fmt.Fprintf(out, "primary_interface %s present=true up=%t mtu=%d addrs=%s\n",
				iface.Name, iface.Up, iface.MTU, strings.Join(iface.Addrs, ","))
		}
	}

	if _, present, err := a.inspector.Inspect(cfg.BridgeName); err != nil {
		fmt.Fprintf(out, "bridge error: %v\n", err)
	} else {
		fmt.Fprintf(out, "bridge %s present=%t\n", cfg.BridgeName, present)
	}

	if !*probe {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout*time.Duration(len(cfg.STUNServers)+1))
	defer cancel()
	res, err := uplink.Probe(ctx, uplink.Options{
		Servers: cfg.STUNServers,
		Timeout: *timeout,
		LocalIP: primary.IPv4(),
	})
	if err != nil {
		fmt.Fprintf(out, "uplink error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "uplink public_addr=%s nat=%s responded=%d/%d\n", res.PublicAddr, res.NATType, res.Responded, res.Queried)
}
