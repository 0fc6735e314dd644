// Command docintel runs the documentation retrieval and maintenance
// service: it indexes a corpus root, then serves the same nine core
// operations over HTTP and a gRPC health check until terminated.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/turtacn/docintel/internal/config"
	corecontext "github.com/turtacn/docintel/internal/core"
	"github.com/turtacn/docintel/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/docintel/internal/interfaces/grpc"
	httpserver "github.com/turtacn/docintel/internal/interfaces/http"
)

const (
	defaultConfigPath = "docintel.yaml"
	defaultShutdown   = 30 * time.Second
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	httpPort := flag.Int("http-port", 0, "HTTP server port (overrides config)")
	grpcPort := flag.Int("grpc-port", 0, "gRPC health-check server port (overrides config)")
	root := flag.String("root", "", "documentation corpus root (overrides corpus.root_path)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v; falling back to environment and defaults\n", err)
		cfg, err = config.LoadFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			os.Exit(1)
		}
	}
	if *root != "" {
		cfg.Corpus.RootPath = *root
	}
	if *httpPort > 0 {
		cfg.Server.Port = *httpPort
	}
	if *grpcPort > 0 {
		cfg.Server.GRPCPort = *grpcPort
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            cfg.Log.Level,
		Format:           cfg.Log.Format,
		OutputPaths:      cfg.Log.OutputPaths,
		ErrorOutputPaths: cfg.Log.ErrorOutputPaths,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	core, err := corecontext.New(ctx, *cfg, logger)
	if err != nil {
		logger.Error("core initialization failed", logging.Err(err))
		os.Exit(1)
	}
	defer core.Close()

	if err := core.Refresh(ctx, cfg.Corpus.RootPath); err != nil {
		logger.Error("initial corpus index failed", logging.Err(err))
		os.Exit(1)
	}

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Core:   core,
		Logger: logger,
	})
	httpSrv := httpserver.NewServer(httpserver.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, logger)

	grpcSrv, err := grpc.NewServer(cfg.Server, grpc.WithLogger(logger), grpc.WithMetrics(core.Metrics))
	if err != nil {
		logger.Error("failed to build gRPC server", logging.Err(err))
		os.Exit(1)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("http server listening", logging.Int("port", cfg.Server.Port))
		if err := httpSrv.Start(ctx); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		logger.Info("grpc server listening", logging.String("address", grpcSrv.Addr()))
		if err := grpcSrv.Start(); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", logging.String("signal", sig.String()))
	case err := <-errCh:
		logger.Error("server failed", logging.Err(err))
	}

	// Cancelling ctx makes httpSrv.Start return after its own graceful
	// shutdown; the gRPC server has no ctx-aware Start, so it is stopped
	// explicitly with its own bounded timeout.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultShutdown)
	defer shutdownCancel()

	if err := grpcSrv.Stop(shutdownCtx); err != nil {
		logger.Error("grpc server shutdown error", logging.Err(err))
	}

	logger.Info("docintel stopped")
}

// loadConfig reads configuration from path, failing fast if the file does
// not exist so the caller can decide whether to fall back to the environment.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}
	return config.Load(path)
}
