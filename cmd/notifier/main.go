package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Syed00000/order-Management/internal/config"
	kafkax "github.com/Syed00000/order-Management/internal/kafka"
	"github.com/Syed00000/order-Management/internal/notify"
	"github.com/Syed00000/order-Management/internal/orders"
	"github.com/Syed00000/order-Management/internal/redisx"
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

	rdb := redisx.New(cfg.RedisAddr)
	defer func() { _ = rdb.Close() }()

	svc := &notify.Service{
		Redis:       rdb,
		Log:         log,
		ServiceName: cfg.ServiceName + "-notifier",
	}

	topics := []string{
		orders.TopicOrderCreated,
		orders.TopicOrderStatusChanged,
		orders.TopicOrderDeleted,
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, topics, cfg.NotifierWorker, log)

	go func() {
		log.Info("notifier consumer started",
			zap.String("group", cfg.NotifierGroup),
			zap.Strings("topics", topics),
			zap.Int("workers", cfg.NotifierWorker))
		if err := cons.Start(ctx, svc.HandleEvent); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down notifier")
	cancel()
}
