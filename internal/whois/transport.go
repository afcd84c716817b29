package whois

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/creasty/defaults"
)

// maxResponse caps the size of a single WHOIS response
const maxResponse = 1 << 20

// LookupFunc resolves a host name. (*net.Resolver).LookupIP has this signature.
type LookupFunc func(ctx context.Context, network, host string) ([]net.IP, error)

// Transport performs single WHOIS exchanges over TCP.
type Transport struct {
	opts   Options
	lookup LookupFunc
}

func NewTransport(opts Options) *Transport {
	defaults.MustSet(&opts)
	return &Transport{
		opts:   opts,
		lookup: net.DefaultResolver.LookupIP,
	}
}

// WithLookup replaces the host name resolver.
func (t *Transport) WithLookup(fn LookupFunc) *Transport {
	t.lookup = fn
	return t
}

// Query sends target to server and returns everything the server sends
// back until it closes the connection. The exchange is bounded by the dial
// and read timeouts and by ctx. There are no retries.
func (t *Transport) Query(ctx context.Context, server, target string) ([]byte, error) {
	ip, err := t.resolve(ctx, server)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", server, err)
	}

	d := net.Dialer{Timeout: t.opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp4", net.JoinHostPort(ip.String(), strconv.Itoa(t.opts.Port)))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", server, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.DebugContext(ctx, "closing whois connection", "error", err)
		}
	}()

	deadline := time.Now().Add(t.opts.ReadTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if _, err := io.WriteString(conn, target+"\r\n"); err != nil {
		return nil, fmt.Errorf("sending query to %s: %w", server, err)
	}

	b, err := io.ReadAll(io.LimitReader(conn, maxResponse))
	if err != nil {
		if ctx.Err() != nil {
			err = errors.Join(err, ctx.Err())
		}
		return nil, fmt.Errorf("reading response from %s: %w", server, err)
	}
	return b, nil
}

func (t *Transport) resolve(ctx context.Context, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
		return nil, errors.New("not an IPv4 address")
	}
	ips, err := t.lookup(ctx, "ip4", host)
	if err != nil {
		return nil, err
	}
	for _, ip := range ips {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4, nil
		}
	}
	return nil, errors.New("no IPv4 address found")
}
