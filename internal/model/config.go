package model

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"

	_ "embed"
)

const (
	ServiceModeManual = "manual"
	ServiceModeTimer  = "timer"

	JobKindScan  = "scan"
	JobKindWhois = "whois"

	LogStderr  = "stderr"
	LogStdout  = "stdout"
	LogDiscard = "discard"

	DefaultWhoisServer = "whois.iana.org"
	DefaultWhoisPort   = 43

	configFilename = "config.yaml"
)

// ErrUnsupportedConfig is returned for configurations which pass the schema,
// but can't be executed.
var ErrUnsupportedConfig = errors.New("unsupported configuration")

// Config is the netprobe configuration
type Config struct {
	Version int     `json:"version" yaml:"version"` // fixed 0 for now
	Probe   Probe   `json:"probe" yaml:"probe"`
	Scan    Scan    `json:"scan" yaml:"scan"`
	Whois   Whois   `json:"whois" yaml:"whois"`
	Service Service `json:"service" yaml:"service"`
}

// Probe tunes the per-port probes. Zero values are replaced by defaults.
type Probe struct {
	ConnectTimeout   Duration `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`
	ICMPPollInterval Duration `json:"icmp_poll_interval,omitempty" yaml:"icmp_poll_interval,omitempty"`
	ICMPBudget       Duration `json:"icmp_budget,omitempty" yaml:"icmp_budget,omitempty"`
	ReadBuffer       int      `json:"read_buffer,omitempty" yaml:"read_buffer,omitempty"`
	Payload          string   `json:"payload,omitempty" yaml:"payload,omitempty"`
}

type Scan struct {
	Concurrency int `json:"concurrency,omitempty" yaml:"concurrency,omitempty"` // 1 means sequential
}

type Whois struct {
	Server      string   `json:"server,omitempty" yaml:"server,omitempty"` // root server asked first
	Port        int      `json:"port,omitempty" yaml:"port,omitempty"`
	DialTimeout Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty"`
	ReadTimeout Duration `json:"read_timeout,omitempty" yaml:"read_timeout,omitempty"`
}

type ServiceFields struct {
	Verbose bool   `json:"verbose,omitempty" yaml:"verbose"`
	Log     string `json:"log,omitempty" yaml:"log,omitempty"` // "stderr"|"stdout"|"discard"|path - defaults to stderr
}

// Service configuration
type Service struct {
	ServiceFields `yaml:",inline"`

	Mode     string         `json:"mode" yaml:"mode"`                             // must be "manual" or "timer"
	Server   *Server        `json:"server,omitempty" yaml:"server,omitempty"`     // HTTP API
	Schedule *TimerSchedule `json:"schedule,omitempty" yaml:"schedule,omitempty"` // only for mode timer
	Jobs     []Job          `json:"jobs,omitempty" yaml:"jobs,omitempty"`
}

// TimerSchedule defines the period of a timer mode
type TimerSchedule struct {
	Cron     string `json:"cron,omitempty" yaml:"cron,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
}

// Server is the HTTP API configuration
type Server struct {
	Addr        TCPAddr  `json:"addr" yaml:"addr"` // :port or ip:port
	StateFile   string   `json:"state_file,omitempty" yaml:"state_file,omitempty"`
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`
}

// Job is a scan or a whois lookup executed by the service
type Job struct {
	Name     string   `json:"name" yaml:"name"`
	Kind     string   `json:"kind" yaml:"kind"` // "scan" | "whois"
	Target   string   `json:"target" yaml:"target"`
	Ports    string   `json:"ports,omitempty" yaml:"ports,omitempty"`
	ScanType Protocol `json:"scan_type,omitempty" yaml:"scan_type,omitempty"`
}

// ScanRequest converts a scan job into a request, tcp is the default protocol
func (j Job) ScanRequest() ScanRequest {
	proto := j.ScanType
	if proto == "" {
		proto = ProtocolTCP
	}
	return ScanRequest{
		Target:   j.Target,
		Ports:    j.Ports,
		Protocol: proto,
	}
}

func (c Config) IsZero() bool {
	return isZero(c)
}

func (p Probe) IsZero() bool {
	return isZero(p)
}

func (w Whois) IsZero() bool {
	return isZero(w)
}

func (s Service) IsZero() bool {
	return isZero(s)
}

func expandEnvRecursive(cfg *Config) {
	expandEnvValue(reflect.ValueOf(cfg).Elem())
}

func expandEnvValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	switch v.Kind() {
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandEnvValue(v.Field(i))
		}
	case reflect.Pointer:
		if !v.IsNil() {
			expandEnvValue(v.Elem())
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			expandEnvValue(v.Index(i))
		}
	default:
		// other kinds ignored
	}
}

//go:embed config.cue
var cueSource []byte

var (
	cueCtx    *cue.Context
	cueConfig cue.Value
)

func init() {
	if len(cueSource) == 0 {
		panic("variable cueSource is empty")
	}
	cueCtx = cuecontext.New()
	compiled := cueCtx.CompileBytes(cueSource)
	if compiled.Err() != nil {
		panic(compiled.Err())
	}

	if err := compiled.Validate(); err != nil {
		panic(err)
	}

	cueConfig = compiled.LookupPath(cue.ParsePath("#Config"))
	if cueConfig.Err() != nil {
		panic(cueConfig.Err())
	}
	if err := cueConfig.Validate(); err != nil {
		panic(err)
	}
}

// LoadConfig validates YAML from r against CUE schema and decodes to Config.
// NOT SAFE for multiple goroutines
// Return CueError in a case validation phase fails
func LoadConfig(r io.Reader) (Config, error) {
	var ret Config
	if err := loadConfig1(r, &ret); err != nil {
		return ret, err
	}
	if err := ret.check(); err != nil {
		return ret, err
	}
	return ret, nil
}

// LoadConfigFromPath is like LoadConfig. Path "-" means stdin.
func LoadConfigFromPath(path string) (Config, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("error opening config file: %w", err)
		}
		r = f
		defer func() {
			err := f.Close()
			if err != nil {
				slog.Error("can't close config file", "path", path, "error", err)
			}
		}()
	}
	cfg, err := LoadConfig(r)
	if err != nil {
		var cuerr CueError
		if errors.As(err, &cuerr) {
			for _, d := range cuerr.Details() {
				slog.Error("validation error", d.Attr("detail"))
			}
		}
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

func loadConfig1(r io.Reader, cfg *Config) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	yamlFile, err := yaml.Extract(configFilename, bytes.NewReader(b))
	if err != nil {
		return err
	}
	yamlValue := cueCtx.BuildFile(yamlFile)

	unified := cueConfig.Unify(yamlValue)
	if err := unified.Validate(
		cue.All(),          // all constraints
		cue.Concrete(true), // no incomplete values
	); err != nil {
		return CueError{cuerr: err, config: yamlValue, schema: cueConfig}
	}

	if err := unified.Decode(cfg); err != nil {
		return err
	}

	expandEnvRecursive(cfg)
	return nil
}

// check catches what the schema can't express
func (c Config) check() error {
	names := make(map[string]struct{}, len(c.Service.Jobs))
	for _, j := range c.Service.Jobs {
		if _, ok := names[j.Name]; ok {
			return fmt.Errorf("%w: job %q defined twice", ErrUnsupportedConfig, j.Name)
		}
		names[j.Name] = struct{}{}
	}
	if c.Service.Schedule != nil && c.Service.Mode != ServiceModeTimer {
		return fmt.Errorf("%w: service.schedule requires mode %q", ErrUnsupportedConfig, ServiceModeTimer)
	}
	return nil
}

// CueError provides more user friendly validation errors on top of
// those generated by cuelang itself
type CueError struct {
	cuerr  error
	config cue.Value // content of --config file
	schema cue.Value // loaded cue schema
}

// Error implements error interface, returns the string content of underlying
// cue error
func (e CueError) Error() string {
	return e.cuerr.Error()
}

// Unwrap allows one to get the original error via errors.As
func (e CueError) Unwrap() error {
	return e.cuerr
}

// Details provide human-friendlier error messages
func (e CueError) Details() []CueErrorDetail {
	return humanize(e.cuerr, e.config, e.schema)
}

// DefaultConfig returns a default configuration for netprobe: probe and
// whois settings spelled out, manual mode, no jobs and no HTTP server.
func DefaultConfig(ctx context.Context) Config {
	slog.DebugContext(ctx, "generating default configuration")
	return Config{
		Version: 0,
		Probe: Probe{
			ConnectTimeout:   Duration{500 * time.Millisecond},
			ICMPPollInterval: Duration{100 * time.Millisecond},
			ICMPBudget:       Duration{2 * time.Second},
			ReadBuffer:       1500,
			Payload:          "U",
		},
		Scan: Scan{
			Concurrency: 1,
		},
		Whois: Whois{
			Server:      DefaultWhoisServer,
			Port:        DefaultWhoisPort,
			DialTimeout: Duration{10 * time.Second},
			ReadTimeout: Duration{30 * time.Second},
		},
		Service: Service{
			ServiceFields: ServiceFields{
				Verbose: false,
				Log:     LogStderr,
			},
			Mode: ServiceModeManual,
		},
	}
}

func isZero[T any](v T) bool {
	return reflect.ValueOf(v).IsZero()
}
