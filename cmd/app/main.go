package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	cliAdapter "retail-sim/internal/adapters/cli"
	"retail-sim/internal/app"
	"retail-sim/internal/config"
	"retail-sim/internal/logger"

	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.Log
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger.SetLevel(cfg.LogLevel)
	log = logger.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cleanup, err := app.Bootstrap(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup")
	}

	err = cliAdapter.Run(ctx, svc, os.Args, log)
	cleanup()
	if err == nil {
		return
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		if msg := ec.Error(); msg != "" {
			log.Error().Msg(msg)
		}
		os.Exit(ec.ExitCode())
	}
	log.Fatal().Err(err).Msg("command failed")
}
