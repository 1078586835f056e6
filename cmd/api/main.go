package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Syed00000/order-Management/internal/analytics"
	"github.com/Syed00000/order-Management/internal/config"
	"github.com/Syed00000/order-Management/internal/customers"
	"github.com/Syed00000/order-Management/internal/httpx"
	kafkax "github.com/Syed00000/order-Management/internal/kafka"
	"github.com/Syed00000/order-Management/internal/orders"
	"github.com/Syed00000/order-Management/internal/postgres"
	"github.com/Syed00000/order-Management/internal/redisx"
	"github.com/Syed00000/order-Management/internal/uploads"
)

func main() {
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		log.Fatal("load timezone", zap.String("tz", cfg.TimeZone), zap.Error(err))
	}
	clock := orders.NewClock(loc)

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()
	cache := redisx.NewCache(rdb)

	// Kafka event sink, one producer per order topic
	sink := kafkax.NewSink(cfg.KafkaBrokers, []string{
		orders.TopicOrderCreated,
		orders.TopicOrderStatusChanged,
		orders.TopicOrderDeleted,
	}, 1024, log)
	sink.Start(ctx)

	// Core wiring
	alloc := orders.NewAllocator(clock)
	repo := orders.NewRepository(db, alloc, clock)
	dir := customers.NewRepository(db)
	files := uploads.NewStore(cfg.UploadDir, log)
	svc := orders.NewService(repo, dir, files, sink, clock, log, cfg.ServiceName)
	engine := analytics.NewEngine(analytics.NewSource(db, repo), clock)

	router := httpx.NewRouter(log)
	httpx.NewOrdersHandler(svc, cache).Register(router)
	httpx.NewAnalyticsHandler(engine, cache).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)

	sink.Close() // close inboxes -> flush & close writers
	cancel()
	sink.WaitClosed()
}
