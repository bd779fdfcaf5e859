package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sandboxd/api"
	"sandboxd/config"
)

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.Common.LoggingColor {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// engineFlags are the flags shared by every subcommand that stands up the
// engine.
type engineFlags struct {
	configDir string
}

func (f *engineFlags) applyFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.configDir, "config-dir", "configs", "Directory of SANDBOX_CONFIG-named YAML files")
}

func (f *engineFlags) loadConfig() (config.Config, error) {
	return config.Load(config.EnvPath(f.configDir))
}

func serveCmd() *cobra.Command {
	var address string
	var flags engineFlags
	cmd := &cobra.Command{
		Use:          "serve",
		Short:        "Start the HTTP sandbox server",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			logger := newLogger(cfg)

			metrics, registry := api.NewMetrics()
			svc := api.NewService(cfg, logger, metrics)

			e := echo.New()
			e.HideBanner = true
			e.HidePort = true
			api.Mount(e, svc)
			api.MountMetrics(e, registry)

			serveErrCh := make(chan error, 1)
			go func() { serveErrCh <- e.Start(address) }()
			logger.Info().Str("address", address).Msg("serving")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
			select {
			case err := <-serveErrCh:
				if err != nil && err != http.ErrServerClosed {
					return fmt.Errorf("serving: %w", err)
				}
				return nil
			case <-sigCh:
				logger.Info().Msg("termination signal received, attempting graceful shutdown")
				ctx, cancel := context.WithTimeout(cmd.Context(), 3*time.Second)
				defer cancel()
				if err := e.Shutdown(ctx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&address, "address", ":8080", "Address to listen on")
	flags.applyFlags(cmd.Flags())
	return cmd
}
