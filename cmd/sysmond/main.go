package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sysmond/internal/collector"
	"sysmond/internal/config"
	"sysmond/internal/server"
	"sysmond/internal/ui"
)

var version = "1.0.0"

func main() {
	cfg, err := config.FromFlags(os.Args[1:])
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.ShowVersion {
		fmt.Printf("sysmond v%s\n", version)
		return
	}

	col := collector.New(collector.NewSystemSource(), cfg.CPUWindow)
	agg := collector.NewAggregator(col, cfg.DiskPath)

	if cfg.Watch {
		if err := ui.RunWatch(agg, cfg.WatchEvery); err != nil {
			log.Fatalf("watch mode: %v", err)
		}
		return
	}

	if sys, err := col.System(); err == nil {
		log.Printf("sysmond v%s starting", version)
		log.Printf("host: %s, os: %s %s (%s)", sys.Hostname, sys.OS, sys.OSRelease, sys.Architecture)
		log.Printf("runtime: %s", sys.GoVersion)
	}

	srv := server.New(agg, version)
	srv.Start(cfg.Addr())
	log.Printf("listening on %s", cfg.Addr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
