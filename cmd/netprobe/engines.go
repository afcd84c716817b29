package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/CZERTAINLY/netprobe/internal/model"
	"github.com/CZERTAINLY/netprobe/internal/ports"
	"github.com/CZERTAINLY/netprobe/internal/probe"
	"github.com/CZERTAINLY/netprobe/internal/scan"
	"github.com/CZERTAINLY/netprobe/internal/service"
	"github.com/CZERTAINLY/netprobe/internal/stats"
	"github.com/CZERTAINLY/netprobe/internal/whois"

	"github.com/spf13/cobra"
)

// counters are published once per process, expvar panics on duplicates
var counters = sync.OnceValue(func() *stats.Stats {
	return stats.New("netprobe")
})

type engines struct {
	scanner *scan.Scanner
	whois   *whois.Resolver
}

func newEngines(config model.Config) engines {
	prober := probe.New(probe.OptionsFromConfig(config.Probe))
	opts := whois.OptionsFromConfig(config.Whois)
	return engines{
		scanner: scan.New(config.Scan.Concurrency, counters(), prober),
		whois:   whois.NewResolver(opts.Server, whois.NewTransport(opts), counters()),
	}
}

func (e engines) service() service.Engine {
	return service.Engine{
		Scanner: e.scanner,
		Whois:   e.whois,
	}
}

func doScan(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if flagConcurrency > 0 {
		config.Scan.Concurrency = flagConcurrency
	}
	ctx := cmdContext(cmd, "scan")

	req := model.ScanRequest{
		Target:   args[0],
		Ports:    flagPorts,
		Protocol: model.Protocol(strings.ToLower(flagScanType)),
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if !ports.ValidChars(req.Ports) {
		return fmt.Errorf("invalid port format: %q", req.Ports)
	}

	results := newEngines(config).scanner.Scan(ctx, req)
	slog.DebugContext(ctx, "scan complete", "target", req.Target, "results", len(results))
	return writeOutput(os.Stdout, flagFormat, results)
}

func doWhois(cmd *cobra.Command, args []string) error {
	config, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	ctx := cmdContext(cmd, "whois")
	resolver := newEngines(config).whois

	if flagRaw {
		resp, err := resolver.Raw(ctx, args[0])
		if err != nil {
			return err
		}
		return writeOutput(os.Stdout, flagFormat, resp)
	}

	if strings.TrimSpace(args[0]) == "" {
		return whois.ErrEmptyTarget
	}
	return writeOutput(os.Stdout, flagFormat, resolver.Lookup(ctx, args[0]))
}

// addJobs registers the configured jobs and returns how many there are
func addJobs(ctx context.Context, supervisor *service.Supervisor, jobs []model.Job) int {
	for _, j := range jobs {
		supervisor.AddJob(ctx, j)
	}
	return len(jobs)
}
