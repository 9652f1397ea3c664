package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/dhinedh/mansara-nourish-hub-sub000/docs"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/catalog"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/config"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/httpx"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/inventory"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/metrics"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/notify"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/order"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/payment"
	"github.com/dhinedh/mansara-nourish-hub-sub000/internal/user"
	"github.com/dhinedh/mansara-nourish-hub-sub000/migrations"
)

// @title        Storefront Fulfillment API
// @version      1.0
// @description  Order fulfillment for the storefront: checkout, payment verification, status tracking and customer notification.
// @BasePath     /
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := migrations.Apply(ctx, pool); err != nil {
		logger.Fatal("apply migrations", zap.Error(err))
	}

	m := metrics.New()

	users := user.NewPGRepo(pool)
	products := catalog.NewPGRepo(pool)
	stock := inventory.NewPGLedger(pool)
	orders := order.NewPGRepo(pool)

	gateway := payment.NewGateway(
		cfg.PaymentGatewayURL, cfg.PaymentKeyID, cfg.PaymentKeySecret, cfg.PaymentCurrency,
		time.Duration(cfg.PaymentTimeoutSeconds)*time.Second,
	)
	verifier := payment.NewVerifier(cfg.PaymentKeySecret)

	dispatcher := notify.NewDispatcher(buildChannels(cfg, logger), cfg.NotifyQueueSize, cfg.NotifyWorkers, logger, m)
	defer dispatcher.Close()

	svc := order.NewService(orders, users, products, stock, gateway, verifier, dispatcher, logger, m, cfg.PublicBaseURL)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID(), httpx.Logger(logger), httpx.Metrics(m))

	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authed := r.Group("/", httpx.RequireUser(users))
	{
		authed.POST("/orders", placeOrderHandler(svc))
		authed.GET("/orders", listOrdersHandler(svc))
		authed.GET("/orders/:id", getOrderHandler(svc))
		authed.POST("/payments/intent", createIntentHandler(gateway))
		authed.POST("/payments/verify", verifyPaymentHandler(svc))

		admin := authed.Group("/", httpx.RequireAdmin())
		{
			admin.PUT("/orders/:id/confirm", confirmOrderHandler(svc))
			admin.PUT("/orders/:id/status", updateStatusHandler(svc))
			admin.PUT("/orders/:id/feedback", feedbackHandler(svc))
			admin.POST("/orders/:id/notify/message", notifyMessageHandler(svc))
			admin.DELETE("/orders/:id", purgeOrderHandler(svc))
		}
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		logger.Info("storefront listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

// buildChannels wires every notification transport that has credentials;
// the rest degrade to no-op loggers instead of failing startup.
func buildChannels(cfg config.Config, logger *zap.Logger) []notify.Channel {
	channels := make([]notify.Channel, 0, 3)

	if cfg.SMTPHost != "" && cfg.SMTPFrom != "" {
		channels = append(channels, notify.NewEmailChannel(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom))
	} else {
		channels = append(channels, notify.NewNoopChannel("email", logger))
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioSMSFrom != "" {
		channels = append(channels, notify.NewSMSChannel(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioSMSFrom))
	} else {
		channels = append(channels, notify.NewNoopChannel("sms", logger))
	}

	if cfg.TwilioAccountSID != "" && cfg.TwilioWhatsAppFrom != "" {
		channels = append(channels, notify.NewWhatsAppChannel(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom))
	} else {
		channels = append(channels, notify.NewNoopChannel("whatsapp", logger))
	}
	return channels
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
