package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/efris-reports/internal/async"
	"github.com/joseph-ayodele/efris-reports/internal/bootstrap"
	"github.com/joseph-ayodele/efris-reports/internal/common"
	"github.com/joseph-ayodele/efris-reports/internal/export"
	"github.com/joseph-ayodele/efris-reports/internal/ingest"
	"github.com/joseph-ayodele/efris-reports/internal/pipeline"
	"github.com/joseph-ayodele/efris-reports/internal/reports"
	"github.com/joseph-ayodele/efris-reports/internal/repository"
	"github.com/joseph-ayodele/efris-reports/internal/server"
)

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(2)
	}
	level, err := bootstrap.ParseLevel(cfg.LogLevel)
	if err != nil {
		slog.Error("invalid LOG_LEVEL", "error", err)
		os.Exit(2)
	}
	logger := bootstrap.NewLogger(os.Stdout, level, true)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	addr := cfg.Server.GRPCAddr
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenStore(ctx, cfg.Database, bootstrap.DefaultOpenTries, logger)
	if err != nil {
		logger.Error("failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	repo := repository.NewReportRepository(db, logger)
	proc := pipeline.New(logger, bootstrap.NewExtractor(cfg.Extract, logger), nil)
	queue := async.NewBatchQueue(proc, repo, logger,
		async.WithQueueSize(64),
		async.WithSlowBatchWarning(10*time.Minute),
	)

	collector := ingest.NewFSIngestor(logger)
	reportsSvc := reports.NewService(repo, logger)
	exportSvc := export.NewService(logger)

	// gRPC server
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", addr, "error", err)
		os.Exit(1)
	}
	grpcServer := grpc.NewServer()
	server.RegisterReportsServer(grpcServer, server.NewReportsService(collector, queue, reportsSvc, exportSvc, cfg.Ingest.Defaults, logger))

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	logger.Info("efrisd listening", "addr", addr, "table", db.Table(), "dialect", db.Dialect())
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	// Download endpoints
	var httpServer *http.Server
	if cfg.Server.HTTPAddr != "" {
		ping := func(ctx context.Context) error { return db.Ping(ctx, 2*time.Second) }
		h := server.NewHTTPServer(reportsSvc, exportSvc, db, ping, logger)
		httpServer = &http.Server{Addr: cfg.Server.HTTPAddr, Handler: h.Routes(), ReadHeaderTimeout: 10 * time.Second}
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http serve error", "error", err)
				stop()
			}
		}()
	}

	// Drop folder
	if cfg.Ingest.WatchDir != "" {
		batches, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
			Roots:       []string{cfg.Ingest.WatchDir},
			InitialScan: true,
			Debounce:    cfg.Ingest.WatchDebounce,
			SkipHidden:  true,
		}, logger)
		if err != nil {
			logger.Error("failed to watch directory", "dir", cfg.Ingest.WatchDir, "error", err)
			os.Exit(1)
		}
		logger.Info("watching drop folder", "dir", cfg.Ingest.WatchDir)
		go server.NewWatchFeeder(collector, queue, cfg.Ingest.Defaults, logger).Run(ctx, batches, errs)
	}

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.Shutdown()
	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = httpServer.Shutdown(shutdownCtx)
		cancel()
	}
	grpcServer.GracefulStop()
	queue.Shutdown(context.Background())
}
