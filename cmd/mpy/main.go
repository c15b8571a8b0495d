// Command mpy is a command-line client for MicroPython boards: run code,
// move files, and inspect device identity over a serial REPL.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hirossan4049/mpy-sdk/device"
	cliconfig "github.com/hirossan4049/mpy-sdk/internal/cli/config"
	"github.com/hirossan4049/mpy-sdk/logger"
	"github.com/hirossan4049/mpy-sdk/repl"
	"github.com/hirossan4049/mpy-sdk/transport"
)

type rootOptions struct {
	port       string
	baudRate   int
	timeout    time.Duration
	configPath string
	verbose    bool
	config     *cliconfig.Config
}

func (r *rootOptions) prepare() error {
	cfg, err := cliconfig.Load(r.configPath)
	if err != nil {
		return err
	}
	r.config = cfg

	r.port = cfg.ResolvePort(r.port)
	if r.baudRate == 0 {
		if cfg != nil && cfg.BaudRate > 0 {
			r.baudRate = cfg.BaudRate
		} else {
			r.baudRate = transport.DefaultBaudRate
		}
	}
	if r.timeout == 0 && cfg != nil && cfg.TimeoutSeconds > 0 {
		r.timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	if r.verbose {
		logger.GetLogger().SetLevel(logger.DebugLevel)
	}

	return nil
}

// connect opens a REPL session on the configured port. The returned cleanup
// disconnects the session.
func (r *rootOptions) connect() (*repl.Session, func(), error) {
	if r.port == "" {
		return nil, nil, fmt.Errorf("no serial port given; use --port or set defaultPort in %s", r.configPath)
	}

	opts := []repl.SessionOption{}
	if r.timeout > 0 {
		opts = append(opts, repl.WithExecTimeout(r.timeout))
	}
	cfg, err := repl.NewSessionConfig(opts...)
	if err != nil {
		return nil, nil, err
	}

	mgr := repl.NewSessionManager(context.Background(), nil)
	session, err := mgr.Open(r.port, cfg, transport.WithBaudRate(r.baudRate))
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", r.port, err)
	}

	return session, func() { _ = mgr.CloseAll() }, nil
}

// client opens a session and wraps it in a device client.
func (r *rootOptions) client() (*device.Client, func(), error) {
	session, cleanup, err := r.connect()
	if err != nil {
		return nil, nil, err
	}

	c, err := device.NewClient(session, device.WithOpTimeout(r.timeout))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	return c, cleanup, nil
}

func main() {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "mpy",
		Short:         "Talk to MicroPython boards over a serial REPL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultConfig := os.Getenv("MPY_CONFIG")
	if defaultConfig == "" {
		defaultConfig = cliconfig.DefaultConfigPath()
	}
	rootCmd.PersistentFlags().StringVarP(&opts.port, "port", "p", "", "serial port path or config alias")
	rootCmd.PersistentFlags().IntVarP(&opts.baudRate, "baud", "b", 0, "baud rate (default from config or 115200)")
	rootCmd.PersistentFlags().DurationVarP(&opts.timeout, "timeout", "t", 0, "per-command timeout (default from config or 5s)")
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", defaultConfig, "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return opts.prepare()
	}

	rootCmd.AddCommand(newPortsCmd())
	rootCmd.AddCommand(newExecCmd(opts))
	rootCmd.AddCommand(newResetCmd(opts))
	rootCmd.AddCommand(newLsCmd(opts))
	rootCmd.AddCommand(newGetCmd(opts))
	rootCmd.AddCommand(newPutCmd(opts))
	rootCmd.AddCommand(newRmCmd(opts))
	rootCmd.AddCommand(newInfoCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
