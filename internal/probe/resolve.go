package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// LookupFunc resolves a host name. (*net.Resolver).LookupIP has this signature.
type LookupFunc func(ctx context.Context, network, host string) ([]net.IP, error)

var errNoIPv4 = errors.New("no IPv4 address found")

// resolveIPv4 returns target when it is an IPv4 literal, otherwise the first
// IPv4 address the lookup returns.
func resolveIPv4(ctx context.Context, lookup LookupFunc, target string) (net.IP, error) {
	if ip := net.ParseIP(target); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, fmt.Errorf("%s: %w", target, errNoIPv4)
	}
	ips, err := lookup(ctx, "ip4", target)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", target, errNoIPv4)
}
