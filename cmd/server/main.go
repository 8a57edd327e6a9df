package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dmorgan81/decorai/internal/config"
	"github.com/dmorgan81/decorai/internal/handle"
	"github.com/dmorgan81/decorai/internal/inject"
	"github.com/dmorgan81/decorai/internal/log"
	"github.com/samber/do"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := log.New(os.Stderr, log.Options{Level: cfg.LogLevel, Text: cfg.Development(), Timestamps: true})
	ctx, stop := signal.NotifyContext(log.NewContext(context.Background(), logger), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	injector := inject.Setup(ctx, cfg)
	server := do.MustInvoke[*handle.Server](injector)
	go server.Janitor(ctx, max(cfg.SessionIdle/4, time.Minute))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Routes(ctx),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}
	_ = injector.Shutdown()
	logger.Info("server stopped")
}
