package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/lineserve/internal/lineindex"
	"github.com/marmos91/lineserve/internal/linereader"
	"github.com/marmos91/lineserve/internal/logger"
	"github.com/marmos91/lineserve/internal/server"
	auditS3 "github.com/marmos91/lineserve/pkg/audit/s3"
	"github.com/marmos91/lineserve/pkg/config"
	"github.com/marmos91/lineserve/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	listen := flag.String("listen", "", "Listen address, overrides config (e.g. :7878)")
	filePath := flag.String("file", "", "Line file to serve, overrides config")
	logLevel := flag.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR), overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath, func(c *config.Config) {
		if *listen != "" {
			c.Server.Listen = *listen
		}
		if *filePath != "" {
			c.File.Path = *filePath
		}
		if *logLevel != "" {
			c.Logging.Level = *logLevel
		}
	})
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure logger
	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	fmt.Println("lineserve - concurrent TCP line server")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	// Open and index the line file. The file stays open for the process
	// lifetime; all reads go through it by offset.
	file, err := os.Open(cfg.File.Path)
	if err != nil {
		log.Fatalf("Failed to open line file: %v", err)
	}
	defer file.Close()

	indexStart := time.Now()
	index, err := lineindex.Build(file)
	if err != nil {
		log.Fatalf("Failed to index %s: %v", cfg.File.Path, err)
	}
	logger.Info("Indexed %d lines from %s in %v", index.Count(), cfg.File.Path, time.Since(indexStart))

	reader := linereader.New(file)

	// Context cancelled on SIGINT/SIGTERM for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	archiver, err := config.CreateS3Archiver(ctx, &cfg.Audit.S3)
	if err != nil {
		log.Fatalf("Failed to create audit archiver: %v", err)
	}

	// The store is created last so no startup fault can leave it open.
	auditStore, err := config.CreateAuditStore(ctx, &cfg.Audit)
	if err != nil {
		log.Fatalf("Failed to create audit store: %v", err)
	}
	logger.Info("Audit store: %s", cfg.Audit.Type)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}
	serverMetrics := metrics.NewServerMetrics()

	logger.Info("Server configuration:")
	logger.Info("  Listen: %s", cfg.Server.Listen)
	if cfg.Server.MaxConnections > 0 {
		logger.Info("  Max connections: %d", cfg.Server.MaxConnections)
	} else {
		logger.Info("  Max connections: unlimited")
	}
	logger.Info("  Idle timeout: %v", cfg.Server.IdleTimeout)
	logger.Info("  Write timeout: %v", cfg.Server.WriteTimeout)
	logger.Info("  Shutdown timeout: %v", cfg.Server.ShutdownTimeout)
	if cfg.Server.RateLimit > 0 {
		logger.Info("  Rate limit: %d req/s (burst %d)", cfg.Server.RateLimit, cfg.Server.RateBurst)
	}

	srv := server.New(cfg.Server, index, reader, auditStore, serverMetrics)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	logger.Info("Server is running on %s. Press Ctrl+C to stop.", cfg.Server.Listen)

	serverErr := <-serverDone

	// Flush the audit store before deciding the exit code; os.Exit skips
	// deferred calls and a badger store must not be left unflushed.
	if err := auditStore.Close(); err != nil {
		logger.Warn("Failed to close audit store: %v", err)
	}

	if serverErr != nil {
		logger.Error("Server error: %v", serverErr)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")

	// Archive the finished audit log once the store is closed and flushed.
	if archiver != nil {
		if path := cfg.Audit.FSAuditPath(); path != "" {
			archiveAuditLog(archiver, path)
		} else {
			logger.Warn("S3 archival enabled but the audit store has no file to upload")
		}
	}
}

// archiveAuditLog uploads the audit log file. Failures are logged, not
// fatal: the log is still on local disk.
func archiveAuditLog(archiver *auditS3.Archiver, path string) {
	file, err := os.Open(path)
	if err != nil {
		logger.Error("Failed to open audit log for archival: %v", err)
		return
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if _, err := archiver.Archive(ctx, file); err != nil {
		logger.Error("Failed to archive audit log: %v", err)
	}
}
