package probe

import (
	"time"

	"github.com/CZERTAINLY/netprobe/internal/model"

	"github.com/creasty/defaults"
)

// Options tunes the probes. Zero fields are replaced by the defaults from
// the struct tags.
type Options struct {
	// ConnectTimeout bounds a TCP connect.
	ConnectTimeout time.Duration `default:"500ms"`
	// ICMPPollInterval is the longest single wait on the raw ICMP socket.
	ICMPPollInterval time.Duration `default:"100ms"`
	// ICMPBudget is the total time a UDP probe listens for ICMP replies.
	ICMPBudget time.Duration `default:"2s"`
	// ReadBuffer is the size of the raw socket receive buffer.
	ReadBuffer int `default:"1500"`
	// Payload is sent in the UDP probe datagram.
	Payload string `default:"U"`
}

func DefaultOptions() Options {
	var o Options
	defaults.MustSet(&o)
	return o
}

// OptionsFromConfig converts the probe section of the configuration.
func OptionsFromConfig(cfg model.Probe) Options {
	o := Options{
		ConnectTimeout:   cfg.ConnectTimeout.Duration,
		ICMPPollInterval: cfg.ICMPPollInterval.Duration,
		ICMPBudget:       cfg.ICMPBudget.Duration,
		ReadBuffer:       cfg.ReadBuffer,
		Payload:          cfg.Payload,
	}
	return o.withDefaults()
}

func (o Options) withDefaults() Options {
	defaults.MustSet(&o)
	return o
}
