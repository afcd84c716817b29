// Package probe determines the state of a single TCP or UDP port.
//
// TCP uses a connect bounded by a timeout. UDP sends one datagram and
// listens on a raw ICMP socket for a port unreachable reply; silence within
// the budget counts as open, so UDP results are a heuristic.
package probe

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/CZERTAINLY/netprobe/internal/model"
)

var (
	// ErrPrivilege is returned when the raw ICMP socket can't be opened
	// for lack of privileges (CAP_NET_RAW or root).
	ErrPrivilege = errors.New("raw socket: operation not permitted")
	// ErrTruncated marks packets too short to decode.
	ErrTruncated = errors.New("truncated packet")
	// ErrWouldBlock is returned by ICMPSource.Recv when nothing arrived in time.
	ErrWouldBlock = errors.New("no datagram available")
)

// Dialer opens TCP connections. *net.Dialer implements it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ICMPSource delivers raw IPv4 datagrams carrying ICMP messages.
type ICMPSource interface {
	// Recv waits at most timeout for one datagram and copies it into buf.
	// It returns ErrWouldBlock when nothing arrived.
	Recv(buf []byte, timeout time.Duration) (int, error)
	Close() error
}

// ListenFunc opens an ICMPSource.
type ListenFunc func() (ICMPSource, error)

// Prober runs probes with a fixed set of Options. It holds no per probe
// state and is safe for concurrent use.
type Prober struct {
	opts       Options
	lookup     LookupFunc
	dialer     Dialer
	listenICMP ListenFunc
}

func New(opts Options) *Prober {
	return &Prober{
		opts:       opts.withDefaults(),
		lookup:     net.DefaultResolver.LookupIP,
		dialer:     &net.Dialer{},
		listenICMP: ListenICMP,
	}
}

func (p *Prober) Options() Options {
	return p.opts
}

// WithLookup replaces the host name resolver.
func (p *Prober) WithLookup(fn LookupFunc) *Prober {
	p.lookup = fn
	return p
}

// WithDialer replaces the dialer used by TCP probes.
func (p *Prober) WithDialer(d Dialer) *Prober {
	p.dialer = d
	return p
}

// WithICMPListener replaces the raw ICMP socket used by UDP probes.
func (p *Prober) WithICMPListener(fn ListenFunc) *Prober {
	p.listenICMP = fn
	return p
}

// TCP probes a TCP port using default host resolution and dialing.
func TCP(ctx context.Context, target string, port int, opts Options) model.Status {
	return New(opts).TCP(ctx, target, port)
}

// UDP probes a UDP port using a raw ICMP socket.
func UDP(ctx context.Context, target string, port int, opts Options) model.Status {
	return New(opts).UDP(ctx, target, port)
}
