package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/CZERTAINLY/netprobe/internal/model"
)

// Scanner executes a port scan. *scan.Scanner implements it.
type Scanner interface {
	Scan(ctx context.Context, req model.ScanRequest) []model.PortResult
}

// WhoisLookup resolves registration data. *whois.Resolver implements it.
type WhoisLookup interface {
	Lookup(ctx context.Context, target string) model.WhoisRecord
}

// Engine executes configured jobs with the scanning and WHOIS engines
type Engine struct {
	Scanner Scanner
	Whois   WhoisLookup
}

// Task returns the work of one run of job. The output is JSON: a list of
// port results for scans, a record for WHOIS lookups.
func (e Engine) Task(job model.Job) Task {
	return func(ctx context.Context) ([]byte, error) {
		var v any
		switch job.Kind {
		case model.JobKindScan:
			if e.Scanner == nil {
				return nil, fmt.Errorf("job %q: no scanner configured", job.Name)
			}
			req := job.ScanRequest()
			if err := req.Validate(); err != nil {
				return nil, err
			}
			v = e.Scanner.Scan(ctx, req)
		case model.JobKindWhois:
			if e.Whois == nil {
				return nil, fmt.Errorf("job %q: no whois resolver configured", job.Name)
			}
			v = e.Whois.Lookup(ctx, job.Target)
		default:
			return nil, fmt.Errorf("job %q: unsupported kind %q", job.Name, job.Kind)
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("job %q interrupted: %w", job.Name, err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding results of %q: %w", job.Name, err)
		}
		return b, nil
	}
}
