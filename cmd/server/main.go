package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medistock/config"
	"medistock/internal/api"
	"medistock/internal/broker"
	"medistock/internal/cart"
	"medistock/internal/invoice"
	"medistock/internal/redisclient"
	"medistock/internal/service"
	"medistock/internal/store"
	"medistock/internal/util"
	"medistock/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting medistock service")

	tp, err := util.InitTracer("medistock", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	presentation := invoice.Presentation{
		ClinicName:   cfg.Business.ClinicName,
		CurrencyUnit: cfg.Business.CurrencyUnit,
	}

	catalogService := service.NewCatalogService(db, redisClient, eventPublisher)
	checkoutCoordinator := service.NewCheckoutCoordinator(
		db, redisClient, eventPublisher,
		time.Duration(cfg.Business.CheckoutTimeoutSeconds)*time.Second)
	cartManager := cart.NewManager()

	ctx := context.Background()
	if err := catalogService.SyncStockMirror(ctx); err != nil {
		log.Printf("Failed to sync stock mirror: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	invoiceConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.InvoiceGroup)
	invoiceWorker := worker.NewInvoiceWorker(invoiceConsumer, db, presentation, cfg.Business.InvoiceDir)
	go func() {
		if err := invoiceWorker.Start(workerCtx); err != nil {
			log.Printf("Invoice worker error: %v", err)
		}
	}()

	alertConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicSales, cfg.Kafka.StockAlertGroup)
	alertWorker := worker.NewStockAlertWorker(alertConsumer, db)
	go func() {
		if err := alertWorker.Start(workerCtx); err != nil {
			log.Printf("Stock alert worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(catalogService, checkoutCoordinator, cartManager, presentation)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	invoiceWorker.Stop()
	alertWorker.Stop()

	log.Println("Server exited")
}
