package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gate4ai/hostbridge/client"
	"github.com/gate4ai/hostbridge/server/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// settings holds the defaults a shell may preset, e.g. BRIDGECTL_URL.
type settings struct {
	URL     string        `env:"URL" envDefault:"http://localhost:8080"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	Verbose bool          `env:"VERBOSE"`
}

type app struct {
	settings
	logger *zap.Logger
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	if err := env.ParseWithOptions(&a.settings, env.Options{Prefix: "BRIDGECTL_"}); err != nil {
		fmt.Fprintf(os.Stderr, "ignoring environment: %v\n", err)
		a.settings = settings{URL: "http://localhost:8080", Timeout: 10 * time.Second}
	}

	cmd := &cobra.Command{
		Use:           "bridgectl",
		Short:         "Drive a host bridge from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger(a.Verbose)
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			a.logger = logger
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.PersistentFlags().StringVar(&a.URL, "url", a.URL, "Base URL of the bridge host")
	cmd.PersistentFlags().DurationVar(&a.Timeout, "timeout", a.Timeout, "Timeout for a single command")
	cmd.PersistentFlags().BoolVarP(&a.Verbose, "verbose", "v", a.Verbose, "Log protocol traffic")

	cmd.AddCommand(
		newCallCommand(a),
		newPingCommand(a),
		newMusicCommand(a),
		newInstallCommand(a),
		newPipCommand(a),
		newListenCommand(a),
		newLifecycleCommand(a),
		newStatusCommand(a),
	)
	return cmd
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

func (a *app) baseURL() string {
	return strings.TrimRight(a.URL, "/")
}

// session opens a bridge session bound to ctx.
func (a *app) session(ctx context.Context, options ...client.SessionOption) (*client.Session, error) {
	backend, err := client.New(a.baseURL()+transport.BRIDGE_PATH, a.logger)
	if err != nil {
		return nil, err
	}
	options = append([]client.SessionOption{client.WithReconnectTimeout(a.Timeout)}, options...)
	s, err := backend.NewSession(ctx, options...)
	if err != nil {
		return nil, err
	}
	openCtx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()
	if err := s.WaitOpen(openCtx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
