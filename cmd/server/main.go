package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/shotcoach/backend/internal/config"
	"github.com/shotcoach/backend/internal/engine"
	"github.com/shotcoach/backend/internal/logger"
	"github.com/shotcoach/backend/internal/session"
	"github.com/shotcoach/backend/internal/ws"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (built-in defaults when empty)")
	port := flag.Int("port", 0, "Override server port")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logger.Init(*debug)

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Errorf("failed to load config: %v", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}

	registry := session.NewRegistry(cfg.Coordinator.GracePeriod)
	assessor := engine.NewStandardAssessor(nil, nil)
	selector := engine.NewCatalogSelector(cfg.Engine.WarmupFrames, nil)
	coordinator := ws.NewCoordinator(cfg, registry, assessor, selector, nil)
	server := ws.NewServer(cfg, registry, coordinator)

	mux := http.NewServeMux()
	server.SetupRoutes(mux)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		registry.Shutdown()
		os.Exit(0)
	}()

	if err := ws.ListenAndServe(cfg.Server.Host, cfg.Server.Port, mux); err != nil {
		logger.Errorf("server error: %v", err)
		os.Exit(1)
	}
}
