// Package main wires together the NFC-e receipt scraping service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/poupacompra/nfce-scraper/internal/api"
	"github.com/poupacompra/nfce-scraper/internal/browser"
	"github.com/poupacompra/nfce-scraper/internal/cache"
	"github.com/poupacompra/nfce-scraper/internal/config"
	"github.com/poupacompra/nfce-scraper/internal/logging"
	"github.com/poupacompra/nfce-scraper/internal/metrics"
	"github.com/poupacompra/nfce-scraper/internal/nfce"
	"github.com/poupacompra/nfce-scraper/internal/publisher"
	memorypublisher "github.com/poupacompra/nfce-scraper/internal/publisher/memory"
	pubsubpublisher "github.com/poupacompra/nfce-scraper/internal/publisher/pubsub"
	"github.com/poupacompra/nfce-scraper/internal/scraper"
	"github.com/poupacompra/nfce-scraper/internal/storage"
	gcsstore "github.com/poupacompra/nfce-scraper/internal/storage/gcs"
	localstore "github.com/poupacompra/nfce-scraper/internal/storage/local"
	memorystore "github.com/poupacompra/nfce-scraper/internal/storage/memory"
	postgresstore "github.com/poupacompra/nfce-scraper/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resultCache, err := buildCache(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("cache init failed", zap.Error(err))
	}
	defer func() {
		if closer, ok := resultCache.(io.Closer); ok {
			if closeErr := closer.Close(); closeErr != nil {
				logger.Error("cache close failed", zap.Error(closeErr))
			}
		}
	}()

	receipts, err := buildReceiptStore(ctx, cfg)
	if err != nil {
		logger.Fatal("receipt store init failed", zap.Error(err))
	}
	defer receipts.Close()

	snapshots, err := buildSnapshotStore(ctx, cfg)
	if err != nil {
		logger.Fatal("snapshot store init failed", zap.Error(err))
	}

	pub, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}
	defer func() {
		if closeErr := pub.Close(); closeErr != nil {
			logger.Error("publisher close failed", zap.Error(closeErr))
		}
	}()

	// The pool is all-or-nothing: a service that cannot drive a browser
	// has nothing to offer, so fail startup outright.
	pool, err := browser.NewPool(
		cfg.Browser.PoolSize,
		browser.ChromeFactory(browser.SessionConfig{
			Headless:  cfg.Browser.Headless,
			UserAgent: cfg.Browser.UserAgent,
		}, logger.Named("browser")),
		logger.Named("pool"),
	)
	if err != nil {
		logger.Fatal("browser pool init failed", zap.Error(err))
	}
	defer pool.Shutdown()
	metrics.SetPoolAvailable(pool.Available())

	pipeline := scraper.NewPipeline(
		cfg.Browser.PageLoadTimeout(),
		cfg.Browser.ContentTimeout(),
		snapshots,
		logger.Named("pipeline"),
	)
	service := scraper.NewService(pool, resultCache, pipeline, receipts, pub,
		cfg.Browser.AcquireTimeout(), logger.Named("scraper"))

	apiServer := api.NewServer(service, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildCache(ctx context.Context, cfg config.Config, logger *zap.Logger) (nfce.Cache, error) {
	switch cfg.Cache.Provider {
	case "redis":
		return cache.NewRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.RedisKey,
			cfg.Cache.TTL(), logger.Named("cache"))
	default:
		return cache.NewMemory(cfg.Cache.TTL(), cfg.Cache.MaxEntries, logger.Named("cache")), nil
	}
}

func buildReceiptStore(ctx context.Context, cfg config.Config) (nfce.ReceiptStore, error) {
	switch cfg.Receipts.Provider {
	case "postgres":
		return postgresstore.NewReceiptStore(ctx, postgresstore.ReceiptStoreConfig{
			DSN:   cfg.Receipts.DSN,
			Table: cfg.Receipts.Table,
		})
	case "memory":
		return memorystore.NewReceiptStore(), nil
	default:
		return storage.NoOpReceiptStore{}, nil
	}
}

func buildSnapshotStore(ctx context.Context, cfg config.Config) (nfce.BlobStore, error) {
	switch cfg.Snapshots.Provider {
	case "local":
		return localstore.New(cfg.Snapshots.Dir)
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcsstore.New(client, gcsstore.Config{
			Bucket: cfg.Snapshots.GCSBucket,
			Prefix: cfg.Snapshots.Prefix,
		})
	default:
		return storage.NoOpBlobStore{}, nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (nfce.Publisher, error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		return pubsubpublisher.New(ctx, cfg.Publisher.ProjectID, cfg.Publisher.TopicName)
	case "memory":
		return memorypublisher.New(), nil
	default:
		return publisher.NoOp{}, nil
	}
}
