package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"consultetl/internal/config"
	"consultetl/internal/etl"
	_ "consultetl/internal/etl/sources"
	"consultetl/internal/logging"
	"consultetl/internal/service"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}
	logger := logging.New(os.Stderr, cfg.Log)

	engine := &etl.Engine{
		Dest:   &etl.CSVTableWriter{Dir: cfg.OutputDir, Extension: cfg.Extension},
		Logger: logger,
	}
	svc := service.NewETLService(cfg, engine, &service.StatusPrinter{W: os.Stdout}, logger)

	if cfg.Trigger.Type == config.TriggerManual {
		// The status line is printed by the emitter; a failed load is not a process failure.
		if err := svc.Start(context.Background()); err != nil {
			logger.Error("run failed", "error", err)
		}
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		logger.Error("start trigger", "trigger", cfg.Trigger.Type, "error", err)
		return 1
	}
	<-ctx.Done()

	logger.Info("shutting down")
	svc.Stop()
	waitCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	svc.WaitRunning(waitCtx)
	return 0
}
