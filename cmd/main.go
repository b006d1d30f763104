package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/synthsense/synthsense-backend/internal/app"
	"github.com/synthsense/synthsense-backend/internal/observability"
	"github.com/synthsense/synthsense-backend/internal/utils"
)

func main() {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load()

	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to start: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	shutdownTracing := observability.InitOTel(context.Background(), a.Log, observability.OtelConfig{
		ServiceName: a.Cfg.ServiceName,
		Environment: utils.GetEnv("ENVIRONMENT", "development", a.Log),
		Version:     utils.GetEnv("SERVICE_VERSION", "dev", a.Log),
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			a.Log.Warn("Trace exporter shutdown failed", "error", err)
		}
	}()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		a.Log.Info("Shutting down", "signal", s.String())
		a.Close()
		os.Exit(0)
	}()

	port := utils.GetEnv("PORT", "8080", a.Log)
	a.Log.Info("Server listening", "port", port)
	if err := a.Run(":" + port); err != nil {
		a.Log.Warn("Server failed", "error", err)
	}
}
