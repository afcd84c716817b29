package probe

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strconv"
	"syscall"

	"github.com/CZERTAINLY/netprobe/internal/model"
)

// TCP connects to target:port. An established connection is Open, a
// refusal is Closed and a timeout, unresolvable host or other dial failure
// is Filtered. Cancellation of ctx itself is an Error.
func (p *Prober) TCP(ctx context.Context, target string, port int) model.Status {
	ip, err := resolveIPv4(ctx, p.lookup, target)
	if err != nil {
		if ctx.Err() != nil {
			return model.StatusError("probe canceled: " + ctx.Err().Error())
		}
		slog.DebugContext(ctx, "host resolution failed", "error", err)
		return model.StatusFiltered
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.opts.ConnectTimeout)
	defer cancel()

	conn, err := p.dialer.DialContext(dialCtx, "tcp4", net.JoinHostPort(ip.String(), strconv.Itoa(port)))
	if err != nil {
		if ctx.Err() != nil {
			return model.StatusError("probe canceled: " + ctx.Err().Error())
		}
		return classifyDial(ctx, err)
	}
	if err := conn.Close(); err != nil {
		slog.DebugContext(ctx, "closing probe connection", "error", err)
	}
	return model.StatusOpen
}

func classifyDial(ctx context.Context, err error) model.Status {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return model.StatusClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() || errors.Is(err, context.DeadlineExceeded) {
		slog.DebugContext(ctx, "connect timed out")
	} else {
		slog.DebugContext(ctx, "connect failed", "error", err)
	}
	return model.StatusFiltered
}
