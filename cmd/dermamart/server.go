package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/antonminaichev/dermamart/internal/logger"
	"github.com/antonminaichev/dermamart/internal/metrics"
	"github.com/antonminaichev/dermamart/internal/order"
	"github.com/antonminaichev/dermamart/internal/payment"
	"github.com/antonminaichev/dermamart/internal/product"
	"github.com/antonminaichev/dermamart/internal/router"
	"github.com/antonminaichev/dermamart/internal/shipping"
	storage "github.com/antonminaichev/dermamart/internal/storage/postgres"
	"github.com/antonminaichev/dermamart/internal/user"
)

func main() {
	if err := run(); err != nil {
		panic(err)
	}
}

func run() error {
	cfg, err := NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	store, err := storage.NewPostgresStorage(cfg.DatabaseConnection)
	if err != nil {
		log.Fatalf("Failed to initialize Postgres storage: %v", err)
	}
	if err := store.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: failed to close storage: %v", err)
		}
	}()

	m := metrics.New()

	userSvc := user.NewService(store, []byte(cfg.JWTSecret), cfg.JWTTTL)
	userHandler := user.NewHandler(userSvc)

	productSvc := product.NewService(store)
	productHandler := product.NewHandler(productSvc)

	shippingSvc := shipping.NewService(store)
	shippingHandler := shipping.NewHandler(shippingSvc)

	orderSvc := order.NewService(store, store, store, store, m)
	orderHandler := order.NewHandler(orderSvc)

	paymentSvc := payment.NewService(store, store, m)
	paymentHandler := payment.NewHandler(paymentSvc)

	r := router.NewRouter(
		userHandler,
		productHandler,
		shippingHandler,
		orderHandler,
		paymentHandler,
		[]byte(cfg.JWTSecret),
		store,
	)

	srv := &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
	return nil
}
