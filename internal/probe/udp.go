package probe

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/CZERTAINLY/netprobe/internal/model"
)

// UDP sends one datagram to target:port and listens for an ICMP port
// unreachable reply until the budget elapses. A reply makes the port
// Closed, silence makes it Open. The raw socket requires privileges, its
// absence is reported as an Error status.
func (p *Prober) UDP(ctx context.Context, target string, port int) model.Status {
	src, err := p.listenICMP()
	if err != nil {
		if errors.Is(err, ErrPrivilege) {
			return model.StatusError("requires CAP_NET_RAW or root to use raw sockets")
		}
		return model.StatusError("cannot create raw ICMP socket: " + err.Error())
	}
	defer func() {
		if err := src.Close(); err != nil {
			slog.DebugContext(ctx, "closing raw ICMP socket", "error", err)
		}
	}()

	ip, err := resolveIPv4(ctx, p.lookup, target)
	if err != nil {
		return model.StatusError("host resolution failed: " + err.Error())
	}

	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		return model.StatusError("cannot create UDP socket: " + err.Error())
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.DebugContext(ctx, "closing UDP socket", "error", err)
		}
	}()

	if _, err := conn.Write([]byte(p.opts.Payload)); err != nil {
		return model.StatusError("sending UDP probe failed: " + err.Error())
	}

	buf := make([]byte, p.opts.ReadBuffer)
	start := time.Now()
	for time.Since(start) < p.opts.ICMPBudget {
		if err := ctx.Err(); err != nil {
			return model.StatusError("probe canceled: " + err.Error())
		}
		wait := min(p.opts.ICMPPollInterval, p.opts.ICMPBudget-time.Since(start))
		if wait <= 0 {
			break
		}
		n, err := src.Recv(buf, wait)
		switch {
		case errors.Is(err, ErrWouldBlock):
			continue
		case err != nil:
			return model.StatusError("ICMP receive failed: " + err.Error())
		}
		if portUnreachable(buf[:n], ip, port) {
			return model.StatusClosed
		}
	}
	return model.StatusOpen
}
