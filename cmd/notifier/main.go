package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/worldlineout/accessories-api/internal/config"
	kafkax "github.com/worldlineout/accessories-api/internal/kafka"
	"github.com/worldlineout/accessories-api/internal/notify"
	"github.com/worldlineout/accessories-api/internal/orders"
	"github.com/worldlineout/accessories-api/internal/postgres"
	"github.com/worldlineout/accessories-api/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, _ := zap.NewProduction()
	defer func() { _ = log.Sync() }()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{
		Orders:         &orders.Repo{DB: db},
		Redis:          rdb,
		WhatsAppNumber: cfg.WhatsAppNumber,
		ServiceName:    cfg.ServiceName + "-notifier",
		Log:            log,
	}

	group := getenv("NOTIFIER_GROUP", "order-notifier")
	workers := atoiDefault(os.Getenv("NOTIFIER_WORKERS"), 4)
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicOrderPaid, workers, log)

	go func() {
		log.Info("notifier consumer started",
			zap.String("group", group),
			zap.String("topic", orders.TopicOrderPaid),
			zap.Int("workers", workers))
		if err := cons.Start(ctx, svc.HandleOrderPaid); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer")
	cancel()
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
