package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-shop-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-shop-checkout.git/internal/config"
	"github.com/ariefcatur/go-shop-checkout.git/internal/expiry"
	"github.com/ariefcatur/go-shop-checkout.git/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-shop-checkout.git/internal/logx"
	"github.com/ariefcatur/go-shop-checkout.git/internal/orders"
	"github.com/ariefcatur/go-shop-checkout.git/internal/payment"
	"github.com/ariefcatur/go-shop-checkout.git/internal/payos"
	"github.com/ariefcatur/go-shop-checkout.git/internal/postgres"
	"github.com/ariefcatur/go-shop-checkout.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logx.New(cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers, satu per topic
	pCreated := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	pCreated.Start(ctx)
	pPaid := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPaid, 1024)
	pPaid.Start(ctx)
	pCancelled := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCancelled, 1024)
	pCancelled.Start(ctx)

	// Repos & services
	repo := &orders.Repo{DB: db}
	payRepo := &orders.PaymentRepo{DB: db}
	cartRepo := &orders.CartRepo{DB: db}
	stockRepo := &orders.StockRepo{DB: db}

	checkoutSvc := &checkout.Service{
		Orders:    repo,
		Carts:     cartRepo,
		Created:   pCreated,
		Cancelled: pCancelled,
		Shipping: orders.ShippingPolicy{
			FreeThreshold: cfg.FreeShipThreshold,
			FlatFee:       cfg.ShippingFlatFee,
		},
		ServiceName: cfg.ServiceName,
		Log:         logger,
	}

	paymentSvc := &payment.Service{
		Orders: repo,
		Txs:    payRepo,
		Provider: payos.NewClient(payos.Config{
			BaseURL:     cfg.PayOSBaseURL,
			ClientID:    cfg.PayOSClientID,
			APIKey:      cfg.PayOSAPIKey,
			ChecksumKey: cfg.PayOSChecksumKey,
		}),
		Redis:       rdb,
		Paid:        pPaid,
		Cancelled:   pCancelled,
		ReturnURL:   cfg.PaymentReturnURL,
		CancelURL:   cfg.PaymentCancelURL,
		ServiceName: cfg.ServiceName,
		Log:         logger,
	}

	// Sweeper: recovery run saat start + tick periodik
	sweeper := &expiry.Sweeper{
		Store:       repo,
		Timeout:     cfg.PendingOrderTimeout,
		Interval:    cfg.ExpirySweepInterval,
		Cancelled:   pCancelled,
		ServiceName: cfg.ServiceName,
		Log:         logger,
	}
	go sweeper.Run(ctx)

	// HTTP
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Checkout: checkoutSvc,
		Payments: paymentSvc,
		Orders:   repo,
		Redis:    rdb,
		Log:      logger,
	}
	oh.Register(router)

	sh := &httpx.StockHandler{Stock: stockRepo, Log: logger}
	sh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	cancel() // stop sweeper & producer loops; producer flush inbox sebelum exit
	pCreated.WaitClosed()
	pPaid.WaitClosed()
	pCancelled.WaitClosed()
}
