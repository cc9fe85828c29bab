// Command relay sends one HTTP request through the relay pipeline and
// writes the response body to stdout.
//
// Usage:
//
//	relay [flags] URL
//
// Settings are read from relay.yml (or --config), RELAY_* environment
// variables and a .env file; flags override them. Run relay --help for the
// flag list.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/kbukum/relay/config"
	"github.com/kbukum/relay/httpclient"
	"github.com/kbukum/relay/logger"
	"github.com/kbukum/relay/version"
)

const serviceName = "relay"

// Exit codes.
const (
	exitFailure = 1
	exitUsage   = 2
)

type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err == nil {
		return
	}
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	fmt.Fprintln(os.Stderr, "relay:", err)
	if errors.As(err, new(usageError)) {
		os.Exit(exitUsage)
	}
	os.Exit(exitFailure)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs, opts := newFlagSet(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return err
		}
		return usageError{err}
	}
	if opts.version {
		_, err := fmt.Fprintln(stdout, version.Get().String())
		return err
	}
	if fs.NArg() != 1 {
		return usageError{errors.New("expected exactly one URL")}
	}

	s, err := loadSettings(fs, opts)
	if err != nil {
		return err
	}

	log := logger.NewWithWriter(&s.Logging, s.Name, stderr)
	logger.SetGlobalLogger(log)

	client, shutdown, err := buildClient(ctx, s, log, nil)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			log.Warn("telemetry shutdown failed", logger.ErrorFields("shutdown", err))
		}
	}()

	cfg, err := opts.requestConfig(fs.Arg(0), stdin)
	if err != nil {
		return usageError{err}
	}

	resp, err := client.Request(ctx, cfg)
	if err != nil {
		if r := httpclient.ResponseOf(err); r != nil {
			if werr := writeResponse(stdout, r, opts.include); werr != nil {
				return werr
			}
		}
		return err
	}
	return writeResponse(stdout, resp, opts.include)
}

// loadSettings layers config file, environment and flags, then applies the
// flags that have no settings key.
func loadSettings(fs *pflag.FlagSet, opts *options) (*config.Settings, error) {
	loadOpts := []config.LoaderOption{
		config.WithDefault("name", serviceName),
		config.WithFlags(fs, flagKeys),
	}
	if opts.configFile != "" {
		loadOpts = append(loadOpts, config.WithConfigFile(opts.configFile))
	}
	if opts.envFile != "" {
		loadOpts = append(loadOpts, config.WithEnvFile(opts.envFile))
	}

	var s config.Settings
	if err := config.LoadConfig(serviceName, &s, loadOpts...); err != nil {
		return nil, err
	}
	opts.applyTo(fs, &s)
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &s, nil
}
