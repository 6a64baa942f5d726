// Command pathfinderd serves the path finding HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-pathfinder/pkg/api"
	"github.com/dd0wney/cluso-pathfinder/pkg/config"
	"github.com/dd0wney/cluso-pathfinder/pkg/logging"
	"github.com/dd0wney/cluso-pathfinder/pkg/server"
	"github.com/dd0wney/cluso-pathfinder/pkg/tls"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "pathfinderd:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, logOut io.Writer) error {
	flags := flag.NewFlagSet("pathfinderd", flag.ContinueOnError)
	configFile := flags.String("config", "", "YAML configuration file")
	envFile := flags.String("env-file", ".env", "dotenv file layered under the environment (missing is ignored)")
	config.RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	loadOpts := config.LoadOptions{
		File:    *configFile,
		EnvFile: *envFile,
		Flags:   flags,
	}
	cfg, err := config.Load(loadOpts)
	if err != nil {
		return err
	}

	logger := logging.NewJSONLogger(logOut, cfg.LogLevel())
	logging.SetDefaultLogger(logger)

	logger.Info("pathfinderd starting",
		logging.String("addr", cfg.Addr()),
		logging.String("store", cfg.Store.Backend),
		logging.String("job_store", cfg.Jobs.Store),
		logging.Int("workers", cfg.Jobs.Workers),
		logging.Duration("processing_delay", cfg.Jobs.ProcessingDelay))

	tlsConfig, err := tls.ServerConfig(cfg.Server.TLS())
	if err != nil {
		return err
	}

	ctx, stop := server.SignalContext(ctx)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.NewGracefulServer(server.Config{
		Addr:            cfg.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
		TLS:             tlsConfig,
	}, a.api.Handler())

	// Only the log level is applied live; everything else needs a restart
	srv.SetConfigReloadFunc(func() error {
		next, err := config.Load(loadOpts)
		if err != nil {
			return err
		}
		logger.SetLevel(next.LogLevel())
		logger.Info("log level reloaded", logging.String("level", next.LogLevel().String()))
		return nil
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		return a.api.RunMetricsUpdater(gctx, api.DefaultMetricsInterval)
	})

	err = g.Wait()
	logger.Info("pathfinderd stopped")
	return err
}
