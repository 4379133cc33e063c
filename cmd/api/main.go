package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/imrishuroy/go-table-orders/internal/aws"
	"github.com/imrishuroy/go-table-orders/internal/config"
	"github.com/imrishuroy/go-table-orders/internal/events"
	"github.com/imrishuroy/go-table-orders/internal/handlers"
	"github.com/imrishuroy/go-table-orders/internal/idempotency"
	"github.com/imrishuroy/go-table-orders/internal/logger"
	"github.com/imrishuroy/go-table-orders/internal/menu"
	"github.com/imrishuroy/go-table-orders/internal/orders"
	"github.com/imrishuroy/go-table-orders/internal/settings"
	"github.com/imrishuroy/go-table-orders/internal/store"
)

func setupRouter(zlog *zap.Logger, cfg handlers.HandlerConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinLogger(zlog))

	// health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterOrdersRoutes(r, cfg)

	return r
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.Log.Level, cfg.Log.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
		_ = zlog.Sync()
		os.Exit(1)
	}
}

func run(cfg config.Config, zlog *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Store.DataDir, zlog)
	if err != nil {
		return fmt.Errorf("open data dir: %w", err)
	}
	settingsProvider, err := settings.Load(st)
	if err != nil {
		return err
	}
	catalog, err := menu.Load(st)
	if err != nil {
		return err
	}
	repo, err := orders.OpenRepository(st, settingsProvider, catalog, zlog)
	if err != nil {
		return err
	}

	sinks, err := eventSinks(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	dispatcher := events.NewDispatcher(context.WithoutCancel(ctx), zlog, cfg.Events.QueueSize, cfg.Events.Workers, sinks...)
	defer dispatcher.Shutdown()

	policy, err := orders.ParseArchivePolicy(cfg.Orders.ArchivePolicy)
	if err != nil {
		return err
	}
	svc := orders.NewService(repo, policy, dispatcher, zlog)

	idem, err := idempotency.NewStore(st, cfg.Orders.IdempotencyTTL,
		idempotency.WithInProgressLease(cfg.Orders.IdempotencyLease))
	if err != nil {
		return err
	}

	router := setupRouter(zlog, handlers.HandlerConfig{
		Orders:      svc,
		Menu:        catalog,
		Idempotency: idem,
		Polling: handlers.PollIntervals{
			Orders:  cfg.Polling.Orders,
			History: cfg.Polling.History,
			Stats:   cfg.Polling.Stats,
		},
		Log: zlog,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("data_dir", st.Dir()),
			zap.String("archive_policy", string(policy)),
			zap.Int("active_orders", len(repo.ListActive(""))))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// eventSinks always logs events and adds the AWS feeds that are configured.
func eventSinks(ctx context.Context, cfg config.Config, zlog *zap.Logger) ([]events.Sink, error) {
	sinks := []events.Sink{events.LogSink{Log: zlog}}
	if !cfg.AWSEnabled() {
		return sinks, nil
	}

	clients, err := aws.NewAWSClients(ctx, cfg.AWS.Region)
	if err != nil {
		return nil, fmt.Errorf("failed to init aws clients: %w", err)
	}
	if cfg.Events.SQSQueueURL != "" {
		sinks = append(sinks, aws.NewPublisher(clients.SQS, cfg.Events.SQSQueueURL))
	}
	if cfg.Events.CloudWatchNamespace != "" {
		sinks = append(sinks, aws.NewMetricsSink(clients.CloudWatch, cfg.Events.CloudWatchNamespace))
	}
	return sinks, nil
}
