// Command lazysentry-demo exercises the lazysentry facade against the sentry
// loader, on an event loop: telemetry, a crash boundary failure, and global
// handler events are produced before the library has loaded, then replayed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		dsn        string
		logLevel   string
		loadDelay  time.Duration
	)
	cmd := &cobra.Command{
		Use:   `lazysentry-demo`,
		Short: `Demonstrate deferred loading of the sentry client`,
		Long: `lazysentry-demo queues telemetry while the sentry client "loads" (after
--load-delay), then replays it. Events are logged as they are sent. Without a
DSN, nothing leaves the process.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed(`dsn`) {
				cfg.Sentry.Dsn = dsn
			}
			if flags.Changed(`log-level`) {
				cfg.LogLevel = logLevel
			}
			if flags.Changed(`load-delay`) {
				cfg.LoadDelay = loadDelay
			}
			if err := run(cmd.Context(), cfg, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf(`lazysentry-demo: %w`, err)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&configPath, `config`, ``, `path to a YAML config file`)
	flags.StringVar(&dsn, `dsn`, ``, `sentry DSN, overrides the config file`)
	flags.StringVar(&logLevel, `log-level`, ``, `log level, overrides the config file`)
	flags.DurationVar(&loadDelay, `load-delay`, 0, `simulated library load time, overrides the config file`)
	return cmd
}
