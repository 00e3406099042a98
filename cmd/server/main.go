// Package main - Entry point for the embroidery pricing HTTP server
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"embroidery-pricing/api"
	"embroidery-pricing/internal/app"
	"embroidery-pricing/internal/config"
	"embroidery-pricing/internal/logging"
)

var version = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to JSON config file")
	addr := flag.String("addr", "", "Server address (overrides server.addr)")
	origins := flag.String("cors", "", "Comma separated allowed CORS origins")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Fatal("load config", zap.Error(err))
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		logging.Fatal("initialize logging", zap.Error(err))
	}
	defer logging.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.New(ctx, cfg, logging.Logger)
	if err != nil {
		logging.Fatal("build runtime", zap.Error(err))
	}
	defer rt.Close()

	var allowed []string
	if *origins != "" {
		allowed = strings.Split(*origins, ",")
	}

	server := api.NewServer(api.Config{
		Version:        version,
		Engine:         rt.Engine,
		Store:          rt.Store,
		Gatherer:       rt.Registry,
		AllowedOrigins: allowed,
		Logger:         logging.Logger,
	})
	httpServer := server.HTTPServer(cfg.Server.Addr, cfg.Server.ReadTimeout())

	go func() {
		logging.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("version", version),
			zap.String("profiles", cfg.Profiles.Source),
			zap.String("rates", cfg.Rates.Provider))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error("server forced to shutdown", zap.Error(err))
	}
	logging.Info("server exited")
}
