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

	"github.com/worldlineout/accessories-api/internal/auth"
	"github.com/worldlineout/accessories-api/internal/catalog"
	"github.com/worldlineout/accessories-api/internal/config"
	"github.com/worldlineout/accessories-api/internal/content"
	"github.com/worldlineout/accessories-api/internal/httpx"
	kafkax "github.com/worldlineout/accessories-api/internal/kafka"
	"github.com/worldlineout/accessories-api/internal/orders"
	"github.com/worldlineout/accessories-api/internal/payments"
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

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer for order.paid events
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024, log)
	prod.Start(ctx)

	// Repos & services
	productRepo := &catalog.Repo{DB: db}
	orderRepo := &orders.Repo{DB: db}
	settingsRepo := &content.Repo{DB: db}
	authMgr := auth.NewManager(cfg.JWTSecret, cfg.AdminPassword)

	paySvc := &payments.Service{
		Products: productRepo,
		Orders:   orderRepo,
		Gateway:  payments.NewRazorpayGateway(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
		Producer: prod,
		Cfg: payments.Config{
			KeySecret:            cfg.RazorpayKeySecret,
			WebhookSecret:        cfg.RazorpayWebhookSecret,
			FraudThresholdRupees: cfg.FraudThresholdRupees,
			ServiceName:          cfg.ServiceName,
		},
		Log: log,
	}

	// Router
	router := httpx.NewRouter(log, cfg.AllowedOrigin)
	admin := authMgr.Middleware
	(&httpx.AuthHandler{Manager: authMgr}).Register(router, admin)
	(&httpx.ProductsHandler{Repo: productRepo, Redis: rdb, Log: log}).Register(router, admin)
	(&httpx.OrdersHandler{Repo: orderRepo, Redis: rdb, Log: log}).Register(router, admin)
	(&httpx.SettingsHandler{Repo: settingsRepo, Log: log}).Register(router, admin)
	(&httpx.PaymentsHandler{Service: paySvc, Log: log}).Register(router, admin)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
