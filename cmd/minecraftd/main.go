package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/oriku/minecraftd/internal/autostart"
	"github.com/oriku/minecraftd/internal/config"
	"github.com/oriku/minecraftd/internal/control"
	"github.com/oriku/minecraftd/internal/javaruntime"
	"github.com/oriku/minecraftd/internal/lock"
	"github.com/oriku/minecraftd/internal/portpool"
	"github.com/oriku/minecraftd/internal/providers"
	"github.com/oriku/minecraftd/internal/providers/modrinth"
	"github.com/oriku/minecraftd/internal/providers/vanilla"
	"github.com/oriku/minecraftd/internal/proxy"
	"github.com/oriku/minecraftd/internal/supervisor"
	"github.com/oriku/minecraftd/pkg/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	configPath := flag.String("config", "", "Directory to search for config.toml")
	flag.Parse()

	log := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil && cfg == nil {
		log.Fatal("Failed to load configuration: %v", err)
	}
	if err != nil {
		log.Warn("%v", err)
	}

	if cfg.Logging.FilePath != "" {
		log = logger.NewWithConfig(&logger.Config{
			FilePath:   cfg.Logging.FilePath,
			MaxSizeMB:  cfg.Logging.MaxSizeMB,
			MaxBackups: cfg.Logging.MaxBackups,
			MaxAgeDays: cfg.Logging.MaxAgeDays,
			Compress:   cfg.Logging.Compress,
		})
	}

	lockPath := lock.Path(cfg.Daemon.RuntimeDir)
	instanceLock, err := lock.Acquire(lockPath)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			log.Fatal("Another minecraftd instance is already running (%s)", lockPath)
		}
		log.Fatal("Failed to acquire instance lock: %v", err)
	}
	defer instanceLock.Release()

	catalog := providers.NewRegistry(
		[]providers.ServerImplementation{vanilla.New()},
		[]providers.ExtensionProvider{modrinth.New()},
	)
	cache := providers.NewCache(cfg.Daemon.DataDir)

	javaRuntimesDir := filepath.Join(cfg.Daemon.DataDir, "minecraftd", "runtimes")
	javaRT := javaruntime.New(javaRuntimesDir)

	autoStart, err := autostart.Load(cfg.Daemon.DataDir)
	if err != nil {
		log.Fatal("Failed to load auto-start set: %v", err)
	}

	ports := portpool.New(cfg.Port.Min, cfg.Port.Max)

	sup := supervisor.New(ports, javaRT, catalog, cache, autoStart, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sup.StartAutoStartServers(ctx)
	stopAutoUpdate := sup.StartAutoUpdateWorker(ctx)

	controlSocket := filepath.Join(cfg.Daemon.RuntimeDir, "minecraftd.sock")
	controlServer := control.New(controlSocket, sup, catalog, log)
	go func() {
		if err := controlServer.Serve(ctx); err != nil {
			log.Error("Control server stopped: %v", err)
		}
	}()

	reverseProxy := proxy.New(cfg.ProxyServer.BindAddress, sup, log)
	if err := reverseProxy.Start(); err != nil {
		log.Fatal("Failed to start reverse proxy: %v", err)
	}

	log.Info("minecraftd started (data dir %s, runtime dir %s)", cfg.Daemon.DataDir, cfg.Daemon.RuntimeDir)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	cancel()
	controlServer.Stop()
	reverseProxy.Stop()
	stopAutoUpdate()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	sup.Shutdown(shutdownCtx)

	log.Info("Shutdown complete")
}
