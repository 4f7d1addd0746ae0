package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jnfrati/buzon/internal/broker"
	"github.com/jnfrati/buzon/internal/config"
	"github.com/jnfrati/buzon/internal/logger"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Global.Fatal().Err(err).Msg("couldn't load config")
	}

	if err := broker.Run(ctx, cfg); err != nil {
		logger.Global.Error().Err(err).Msg("broker failed")
		os.Exit(1)
	}
}
