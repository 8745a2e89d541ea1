// Package uplink checks that the host has a working internet connection to
// share, by asking public STUN servers for the host's mapped address.
package uplink

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/pion/stun/v3"
)

const (
	NATTypeUnknown          = "unknown"
	NATTypeSymmetric        = "symmetric"
	NATTypeConeOrRestricted = "cone_or_restricted"
)

// ErrUnsupportedServer is returned for servers that are not plain stun: over
// UDP.
var ErrUnsupportedServer = errors.New("only stun: servers over UDP are supported")

// Result is the outcome of a probe.
type Result struct {
	PublicAddr string
	NATType    string
	Responded  int // servers that answered
	Queried    int
}

// Options configures a probe.
type Options struct {
	Servers []string
	// Timeout bounds each server's exchange.
	Timeout time.Duration
	// LocalIP pins the source address to the interface being shared, so the
	// mapped address reflects that uplink. Nil lets the OS route.
	LocalIP net.IP
}

// Probe queries STUN servers for a public mapped address. It fails only when
// no server answers.
func Probe(ctx context.Context, opts Options) (Result, error) {
	res := Result{NATType: NATTypeUnknown, Queried: len(opts.Servers)}
	if len(opts.Servers) == 0 {
		return res, fmt.Errorf("no STUN servers provided")
	}

	addrs := make([]string, 0, len(opts.Servers))
	var lastErr error
	for _, server := range opts.Servers {
		addr, err := probeServer(ctx, server, opts.LocalIP, opts.Timeout)
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", server, err)
			continue
		}
		addrs = append(addrs, addr)
	}

	if len(addrs) == 0 {
		return res, lastErr
	}

	res.PublicAddr = addrs[0]
	res.NATType = Classify(addrs)
	res.Responded = len(addrs)
	return res, nil
}

// Classify infers NAT type by comparing mapped addresses from multiple servers.
func Classify(addrs []string) string {
	if len(addrs) < 2 {
		return NATTypeUnknown
	}
	first := addrs[0]
	for _, addr := range addrs[1:] {
		if addr != first {
			return NATTypeSymmetric
		}
	}
	return NATTypeConeOrRestricted
}

// ServerURI normalises "host:port" into a stun: URI.
func ServerURI(server string) (string, error) {
	uri := strings.TrimSpace(server)
	if uri == "" {
		return "", fmt.Errorf("empty STUN server")
	}
	if !strings.HasPrefix(uri, "stun:") && !strings.HasPrefix(uri, "stuns:") {
		uri = "stun:" + uri
	}
	return uri, nil
}

type binding struct {
	addr string
	err  error
}

func probeServer(ctx context.Context, server string, localIP net.IP, timeout time.Duration) (string, error) {
	uriStr, err := ServerURI(server)
	if err != nil {
		return "", err
	}
	uri, err := stun.ParseURI(uriStr)
	if err != nil {
		return "", err
	}
	if uri.Scheme != stun.SchemeTypeSTUN || uri.Proto != stun.ProtoTypeUDP {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedServer, uriStr)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	network := "udp"
	var dialer net.Dialer
	if localIP != nil {
		dialer.LocalAddr = &net.UDPAddr{IP: localIP}
		if localIP.To4() != nil {
			network = "udp4"
		} else {
			network = "udp6"
		}
	}
	conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(uri.Host, strconv.Itoa(uri.Port)))
	if err != nil {
		return "", err
	}
	client, err := stun.NewClient(conn)
	if err != nil {
		_ = conn.Close()
		return "", err
	}
	defer client.Close()

	done := make(chan binding, 1)
	msg := stun.MustBuild(stun.TransactionID, stun.BindingRequest)
	err = client.Start(msg, func(ev stun.Event) {
		if ev.Error != nil {
			done <- binding{err: ev.Error}
			return
		}
		var addr stun.XORMappedAddress
		if err := addr.GetFrom(ev.Message); err != nil {
			done <- binding{err: err}
			return
		}
		done <- binding{addr: addr.String()}
	})
	if err != nil {
		return "", err
	}

	select {
	case b := <-done:
		return b.addr, b.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
