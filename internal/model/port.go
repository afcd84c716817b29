package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// StatusKind is the outcome class of a single port probe.
type StatusKind int

const (
	Open StatusKind = iota
	Closed
	Filtered
	Failed
)

func (k StatusKind) String() string {
	switch k {
	case Open:
		return "Open"
	case Closed:
		return "Closed"
	case Filtered:
		return "Filtered"
	case Failed:
		return "Error"
	default:
		return fmt.Sprintf("StatusKind(%d)", int(k))
	}
}

// Status is the state of a port. Reason is only meaningful for Failed.
type Status struct {
	Kind   StatusKind
	Reason string
}

var (
	StatusOpen     = Status{Kind: Open}
	StatusClosed   = Status{Kind: Closed}
	StatusFiltered = Status{Kind: Filtered}
)

// StatusError returns a Failed status carrying reason.
func StatusError(reason string) Status {
	return Status{Kind: Failed, Reason: reason}
}

func (s Status) IsOpen() bool {
	return s.Kind == Open
}

// String renders the status the way it is reported to clients, e.g.
// "Open" or "Error: invalid scan type".
func (s Status) String() string {
	if s.Kind == Failed {
		return "Error: " + s.Reason
	}
	return s.Kind.String()
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	str := string(text)
	switch str {
	case "Open":
		*s = StatusOpen
	case "Closed":
		*s = StatusClosed
	case "Filtered":
		*s = StatusFiltered
	default:
		reason, ok := strings.CutPrefix(str, "Error: ")
		if !ok {
			return fmt.Errorf("unknown port status %q", str)
		}
		*s = StatusError(reason)
	}
	return nil
}

// Protocol is the transport used to probe a port. Values other than
// ProtocolTCP and ProtocolUDP are carried as is and rejected at probe time.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

func (p Protocol) Supported() bool {
	return p == ProtocolTCP || p == ProtocolUDP
}

// PortResult is the outcome of probing one port.
type PortResult struct {
	Port    int    `json:"port" yaml:"port"`
	Status  Status `json:"status" yaml:"status"`
	Service string `json:"service" yaml:"service"`
}

// ScanRequest describes a scan of one target.
type ScanRequest struct {
	Target   string   `json:"target" yaml:"target"`
	Ports    string   `json:"ports" yaml:"ports"`
	Protocol Protocol `json:"scan_type" yaml:"scan_type"`
}

var ErrEmptyScanTarget = errors.New("target can't be empty")

// Validate checks the request can be dispatched. Port specification and
// protocol are not checked here, both degrade into per-port results.
func (r ScanRequest) Validate() error {
	if strings.TrimSpace(r.Target) == "" {
		return ErrEmptyScanTarget
	}
	return nil
}

// UnmarshalJSON defaults the protocol to tcp when scan_type is missing.
func (r *ScanRequest) UnmarshalJSON(b []byte) error {
	type plain ScanRequest
	p := plain{Protocol: ProtocolTCP}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = ScanRequest(p)
	return nil
}
