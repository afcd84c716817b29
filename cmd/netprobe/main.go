package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/CZERTAINLY/netprobe/internal/log"
	"github.com/CZERTAINLY/netprobe/internal/model"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	userConfigPath string // /default/config/path/netprobe on given OS
	configPath     string // actual config file used (if loaded)

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag

	flagPorts       string
	flagScanType    string
	flagConcurrency int
	flagFormat      string
	flagRaw         bool
)

var rootCmd = &cobra.Command{
	Use:          "netprobe",
	Short:        "Tool probing TCP/UDP ports and looking up WHOIS records",
	SilenceUsage: true,
}

var scanCmd = &cobra.Command{
	Use:   "scan TARGET",
	Short: "scan probes ports of a target host",
	Args:  cobra.ExactArgs(1),
	RunE:  doScan,
}

var whoisCmd = &cobra.Command{
	Use:   "whois DOMAIN",
	Short: "whois looks up the registration record of a domain",
	Args:  cobra.ExactArgs(1),
	RunE:  doWhois,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run command reads the configuration and executes the configured jobs",
	RunE:  doRun,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve starts the HTTP API and the configured jobs",
	RunE:  doServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides a version of netprobe",
	RunE:  doVersion,
}

func init() {
	// user configuration
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "netprobe")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is netprobe.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	scanCmd.Flags().StringVarP(&flagPorts, "ports", "p", "", `ports to probe, e.g. "22,80,8000-8010"`)
	scanCmd.Flags().StringVarP(&flagScanType, "type", "t", string(model.ProtocolTCP), "scan type: tcp or udp")
	scanCmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "ports probed at once - default from the config file")
	scanCmd.Flags().StringVarP(&flagFormat, "format", "f", formatJSON, "output format: json, yaml or table")
	_ = scanCmd.MarkFlagRequired("ports")

	whoisCmd.Flags().BoolVar(&flagRaw, "raw", false, "print the raw server response instead of the parsed record")
	whoisCmd.Flags().StringVarP(&flagFormat, "format", "f", formatJSON, "output format: json, yaml or table")

	// never print messages and usage
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(whoisCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd, err := rootCmd.ExecuteContextC(ctx)
	stop()
	if err != nil {
		slog.Error("netprobe failed", "err", err)
		if strings.HasPrefix(err.Error(), "unknown command") {
			_ = rootCmd.Help() // ./cmd bflmp
		} else {
			_ = cmd.Help() // ./cmd scan (missing arg)
		}
		os.Exit(1)
	}
}

func doVersion(cmd *cobra.Command, args []string) error {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return fmt.Errorf("netprobe: version info not available")
	}

	if configPath != "" {
		fmt.Printf("config: %s\n", configPath)
	}
	fmt.Printf("netprobe: %s\n", info.Main.Version)
	fmt.Printf("go:       %s\n", info.GoVersion)
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			fmt.Printf("commit:   %s\n", s.Value)
		case "vcs.time":
			fmt.Printf("date:     %s\n", s.Value)
		case "vcs.modified":
			fmt.Printf("dirty:    %s\n", s.Value)
		}
	}
	fmt.Println()

	return nil
}

func cmdContext(cmd *cobra.Command, name string) context.Context {
	attrs := slog.Group("netprobe",
		slog.String("cmd", name),
		slog.Int("pid", os.Getpid()),
	)
	return log.ContextAttrs(cmd.Context(), attrs)
}

// loadConfig finds the configuration: NETPROBECONFIG, --config,
// netprobe.yaml in the user config dir or in the current directory. When
// none exists, the default one is stored in the user config dir.
func loadConfig(_ *cobra.Command, _ []string) (model.Config, error) {
	if envConfig, ok := os.LookupEnv("NETPROBECONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, "netprobe.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	var config model.Config

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig(context.Background())
		configPath = filepath.Join(userConfigPath, "netprobe.yaml")
		if err := storeConfig(configPath, config); err != nil {
			return config, err
		}
	} else {
		var err error
		config, err = model.LoadConfigFromPath(configPath)
		if err != nil {
			return config, err
		}
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.Service.Verbose = true
	}

	// initialize logging
	w, err := logWriter(config.Service.Log)
	if err != nil {
		return config, err
	}
	slog.SetDefault(log.NewWithWriter(w, config.Service.Verbose))

	slog.Debug("netprobe", "configPath", configPath)
	slog.Debug("netprobe", "config", config)
	return config, nil
}

func storeConfig(path string, config model.Config) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("creating directory %s: %w", filepath.Dir(path), err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	enc := yaml.NewEncoder(f)
	err = enc.Encode(config)
	if err != nil {
		return fmt.Errorf("storing configuration: %w", err)
	}
	return nil
}

// logWriter maps service.log to a destination. Anything other than the
// well known names is a file the logs are appended to.
func logWriter(dest string) (io.Writer, error) {
	switch dest {
	case "", model.LogStderr:
		return os.Stderr, nil
	case model.LogStdout:
		return os.Stdout, nil
	case model.LogDiscard:
		return io.Discard, nil
	default:
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		return f, nil
	}
}

func exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
