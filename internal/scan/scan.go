// Package scan probes every port of a port specification on one target.
package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/CZERTAINLY/netprobe/internal/log"
	"github.com/CZERTAINLY/netprobe/internal/model"
	"github.com/CZERTAINLY/netprobe/internal/parallel"
	"github.com/CZERTAINLY/netprobe/internal/ports"
)

// Prober determines the state of one port. *probe.Prober implements it.
type Prober interface {
	TCP(ctx context.Context, target string, port int) model.Status
	UDP(ctx context.Context, target string, port int) model.Status
}

// Scanner runs probes for a ScanRequest. With limit 1 ports are probed one
// at a time, higher limits probe up to limit ports concurrently. Either
// way results come back in the order of the port specification.
type Scanner struct {
	limit   int
	counter model.Stats
	prober  Prober
}

func New(limit int, counter model.Stats, prober Prober) *Scanner {
	return &Scanner{
		limit:   max(limit, 1),
		counter: counter,
		prober:  prober,
	}
}

// Scan parses the port specification once and probes every port. Faults
// are reported per port, a scan itself never fails. An unsupported
// protocol yields an Error result for every port without touching the
// network.
func (s *Scanner) Scan(ctx context.Context, req model.ScanRequest) []model.PortResult {
	ctx = log.ContextAttrs(ctx,
		slog.String("target", req.Target),
		slog.String("protocol", string(req.Protocol)),
	)
	set := ports.Parse(req.Ports)
	slog.InfoContext(ctx, "scan started", "ports", len(set))
	start := time.Now()

	var results []model.PortResult
	if s.limit == 1 || len(set) < 2 || !req.Protocol.Supported() {
		results = make([]model.PortResult, 0, len(set))
		for _, port := range set {
			results = append(results, s.Probe(ctx, req.Target, port, req.Protocol))
		}
	} else {
		results = s.fanOut(ctx, req, set)
	}

	slog.InfoContext(ctx, "scan finished", "ports", len(set), "elapsed", time.Since(start).String())
	return results
}

// Probe probes a single port and labels the result.
func (s *Scanner) Probe(ctx context.Context, target string, port int, proto model.Protocol) model.PortResult {
	ctx = log.ContextAttrs(ctx, slog.Int("port", port))

	var status model.Status
	switch proto {
	case model.ProtocolTCP:
		status = s.prober.TCP(ctx, target, port)
	case model.ProtocolUDP:
		status = s.prober.UDP(ctx, target, port)
	default:
		status = model.StatusError("invalid scan type")
	}
	s.count(status)
	slog.DebugContext(ctx, "probed", "status", status.String())

	return model.PortResult{
		Port:    port,
		Status:  status,
		Service: Service(port, proto, status),
	}
}

type slot struct {
	idx  int
	port int
}

type slotResult struct {
	idx    int
	result model.PortResult
}

func (s *Scanner) fanOut(ctx context.Context, req model.ScanRequest, set []int) []model.PortResult {
	seq := func(yield func(slot, error) bool) {
		for idx, port := range set {
			if !yield(slot{idx: idx, port: port}, nil) {
				return
			}
		}
	}
	probe := func(ctx context.Context, in slot) (slotResult, error) {
		return slotResult{idx: in.idx, result: s.Probe(ctx, req.Target, in.port, req.Protocol)}, nil
	}

	results := make([]model.PortResult, len(set))
	done := make([]bool, len(set))
	for res, err := range parallel.NewMap(ctx, s.limit, probe).Iter(seq) {
		if err != nil {
			continue
		}
		results[res.idx] = res.result
		done[res.idx] = true
	}

	// ports not probed before the context was canceled
	for idx, ok := range done {
		if !ok {
			results[idx] = model.PortResult{Port: set[idx], Status: model.StatusError("scan canceled")}
		}
	}
	return results
}

func (s *Scanner) count(status model.Status) {
	if s.counter == nil {
		return
	}
	s.counter.IncProbes()
	switch status.Kind {
	case model.Open:
		s.counter.IncOpen()
	case model.Closed:
		s.counter.IncClosed()
	case model.Filtered:
		s.counter.IncFiltered()
	default:
		s.counter.IncErrProbes()
	}
}

// Service returns a coarse service label for an open port, empty string
// otherwise.
func Service(port int, proto model.Protocol, status model.Status) string {
	if !status.IsOpen() {
		return ""
	}
	switch port {
	case 80:
		return "http"
	case 443:
		return "https"
	case 22:
		return "ssh"
	}
	return string(proto) + "-open"
}
