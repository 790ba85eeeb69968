package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"charity-market/internal/client"
	"charity-market/internal/config"
	"charity-market/internal/events"
	"charity-market/internal/repository"
	"charity-market/internal/server"
	"charity-market/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	db, err := client.OpenDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}

	stripeClient := client.NewStripeClient(&cfg.Stripe)

	var publisher *events.Publisher
	if cfg.AMQPURL != "" {
		publisher, err = events.NewPublisher(cfg.AMQPURL, "order.events", logger)
		if err != nil {
			logger.Fatal("connect rabbitmq", zap.Error(err))
		}
		defer publisher.Close()
	}

	foundationRepo := repository.NewFoundationRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	webhookRepo := repository.NewWebhookEventRepository(db)

	checkoutCfg, err := checkoutConfig(cfg)
	if err != nil {
		logger.Fatal("parse checkout config", zap.Error(err))
	}

	userService := service.NewUserService(userRepo, cfg.JWTSecret)
	catalogService := service.NewCatalogService(foundationRepo, supplierRepo, productRepo)
	cartService := service.NewCartService(cartRepo, productRepo, cfg.Checkout.SessionCartTTL, logger)
	checkoutService := service.NewCheckoutService(db, stripeClient, checkoutCfg,
		cartRepo, productRepo, supplierRepo, orderRepo, webhookRepo, publisher, logger)
	fulfillmentService := service.NewFulfillmentService(orderRepo, supplierRepo, publisher, logger)

	srv := server.NewServer(cfg.JWTSecret,
		userService, catalogService, cartService, checkoutService, fulfillmentService, logger)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	logger.Info("starting HTTP server", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		logger.Fatal("HTTP server shutdown error", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var zapCfg zap.Config
	if cfg.Log.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	if level, err := zap.ParseAtomicLevel(cfg.Log.Level); err == nil {
		zapCfg.Level = level
	}

	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func checkoutConfig(cfg *config.Config) (service.CheckoutConfig, error) {
	taxRate, err := decimal.NewFromString(cfg.Checkout.TaxRate)
	if err != nil {
		return service.CheckoutConfig{}, fmt.Errorf("tax rate: %w", err)
	}
	shippingFee, err := decimal.NewFromString(cfg.Checkout.ShippingFee)
	if err != nil {
		return service.CheckoutConfig{}, fmt.Errorf("shipping fee: %w", err)
	}
	freeAbove, err := decimal.NewFromString(cfg.Checkout.FreeShippingAbove)
	if err != nil {
		return service.CheckoutConfig{}, fmt.Errorf("free shipping threshold: %w", err)
	}

	return service.CheckoutConfig{
		Currency:          cfg.Checkout.Currency,
		TaxRate:           taxRate,
		ShippingFee:       shippingFee,
		FreeShippingAbove: freeAbove,
	}, nil
}
