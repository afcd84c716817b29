package whois

import (
	"time"

	"github.com/CZERTAINLY/netprobe/internal/model"

	"github.com/creasty/defaults"
)

// Options configures WHOIS lookups. Zero fields are replaced by the
// defaults from the struct tags.
type Options struct {
	// Server is the root authority asked first.
	Server string `default:"whois.iana.org"`
	// Port is the WHOIS port of every server.
	Port int `default:"43"`
	// DialTimeout bounds the TCP connect.
	DialTimeout time.Duration `default:"10s"`
	// ReadTimeout bounds the whole exchange after the connect.
	ReadTimeout time.Duration `default:"30s"`
}

func DefaultOptions() Options {
	var o Options
	defaults.MustSet(&o)
	return o
}

// OptionsFromConfig converts the whois section of the configuration.
func OptionsFromConfig(cfg model.Whois) Options {
	o := Options{
		Server:      cfg.Server,
		Port:        cfg.Port,
		DialTimeout: cfg.DialTimeout.Duration,
		ReadTimeout: cfg.ReadTimeout.Duration,
	}
	defaults.MustSet(&o)
	return o
}
