package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/storefront/internal/cart/cache"
	cartrepo "github.com/fjod/storefront/internal/cart/repository"
	cartsvc "github.com/fjod/storefront/internal/cart/service"
	catalogrepo "github.com/fjod/storefront/internal/catalog/repository"
	checkoutsvc "github.com/fjod/storefront/internal/checkout/service"
	h "github.com/fjod/storefront/internal/gateway/http"
	"github.com/fjod/storefront/internal/orders/publisher"
	ordersrepo "github.com/fjod/storefront/internal/orders/repository"
	orderssvc "github.com/fjod/storefront/internal/orders/service"
	"github.com/fjod/storefront/pkg/config"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configDir := flag.String("config", ".", "directory holding an optional .env file")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		// logger is not configured yet
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		_, _ = os.Stderr.WriteString("failed to init logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Get().Fatal("storefront stopped with error", zap.Error(err))
	}
}

func run(cfg *config.AppConfig) error {
	log := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Orders (Postgres)
	cred := &ordersrepo.Credentials{
		Host:              cfg.Orders.Host,
		Port:              cfg.Orders.Port,
		User:              cfg.Orders.User,
		Password:          cfg.Orders.Password,
		DBName:            cfg.Orders.Name,
		MigrationsDirPath: cfg.Orders.MigrationsPath,
	}
	orders, err := ordersrepo.NewRepository(cred)
	if err != nil {
		return err
	}
	defer orders.Close()
	if err := orders.RunMigrations(cred); err != nil {
		return err
	}
	log.Info("orders database ready", zap.String("host", cfg.Orders.Host), zap.String("db", cfg.Orders.Name))

	// Catalog (SQLite)
	catalog, err := catalogrepo.NewRepository(cfg.Catalog.Path)
	if err != nil {
		return err
	}
	defer catalog.Close()
	if err := catalog.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
		return err
	}
	log.Info("catalog ready", zap.String("path", cfg.Catalog.Path))

	// Cart snapshots (MongoDB behind Redis)
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	carts, closeMongo, err := cartrepo.OpenCartRepository(connectCtx, cfg.Cart.MongoURI, cfg.Cart.MongoDBName)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeMongo(context.Background()); err != nil {
			log.Warn("failed to disconnect MongoDB", zap.Error(err))
		}
	}()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Cart.RedisAddr,
		Password: cfg.Cart.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// the cache is optional, carts fall back to MongoDB
		log.Warn("redis unavailable, cart cache degraded", zap.Error(err))
	}

	// Outbox publisher (Kafka)
	writer := publisher.NewKafkaWriter(cfg.Outbox.Topic, cfg.Outbox.Brokers()...)
	defer writer.Close()
	poller := publisher.NewOutboxPoller(orders, writer, cfg.Outbox.PollInterval, cfg.Outbox.BatchSize)

	// Services
	cartService := cartsvc.NewCartService(catalog, cartsvc.NewSnapshotStore(carts, cache.NewRedisCache(redisClient)))
	submission := orderssvc.NewSubmissionService(orders, catalog)
	lifecycle := orderssvc.NewLifecycleService(orders)
	tracking := orderssvc.NewTrackingService(orders)
	checkout := checkoutsvc.NewCheckoutService(cartService, submission)

	router := h.NewRouter(h.Handlers{
		Products: h.NewProductHandler(catalog, cfg.RequestTimeout),
		Cart:     h.NewCartHandler(cartService, cfg.RequestTimeout),
		Checkout: h.NewCheckoutHandler(checkout, cfg.RequestTimeout),
		Orders:   h.NewOrdersHandler(submission, tracking, cfg.RequestTimeout),
		Staff:    h.NewStaffHandler(lifecycle, tracking, cfg.RequestTimeout),
	}, cfg.StaffAPIKey, cfg.RequestTimeout)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return poller.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server exited")
	return nil
}
