package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scorbettUM/dcrx-kv/internal/app"
	"github.com/scorbettUM/dcrx-kv/internal/common"
	"github.com/scorbettUM/dcrx-kv/internal/server"
)

func main() {
	configPath := os.Getenv("DCRX_KV_CONFIG")

	a, err := app.New(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	if err := a.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start app: %v\n", err)
		os.Exit(1)
	}

	common.PrintBanner(a.Config, a.Logger)

	srv := server.New(a.Config.Server.Host, a.Config.Server.Port, a.Queue, a.Users, a.Auth, a.Config.Auth.GetTokenExpiry(), a.Logger)

	go func() {
		if err := srv.Start(); err != nil {
			a.Logger.Error().Err(err).Msg("server: HTTP listener failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	a.Logger.Info().Msg("server: shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("server: HTTP shutdown failed")
	}

	a.Close()
	common.PrintShutdownBanner(a.Logger)
}
