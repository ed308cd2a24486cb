package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/flowmazon/storefront/internal/config"
	"github.com/flowmazon/storefront/internal/db"
	"github.com/flowmazon/storefront/internal/es"
	"github.com/flowmazon/storefront/internal/httpserver"
	"github.com/flowmazon/storefront/internal/logging"
	loggingmw "github.com/flowmazon/storefront/internal/middleware/logging"
	"github.com/flowmazon/storefront/internal/mykafka"
	"github.com/flowmazon/storefront/internal/repo"
	authsvc "github.com/flowmazon/storefront/internal/service/auth"
	cartsvc "github.com/flowmazon/storefront/internal/service/cart"
	catalogsvc "github.com/flowmazon/storefront/internal/service/catalog"
	searchsvc "github.com/flowmazon/storefront/internal/service/search"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env: %v", err)
	}

	cfg := config.Load()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")
	config.MustNonEmptyBytes(cfg.JWTSecret, "JWT_SECRET")

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	var producer *mykafka.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = mykafka.NewProducer(cfg.KafkaBrokers)
	} else {
		logger.Warn("KAFKA_BROKERS not set, domain events disabled")
	}

	store := &repo.GormRepo{DB: gdb}

	var indexer catalogsvc.Indexer
	var searchHandler *httpserver.SearchHTTP
	if cfg.ESURL != "" {
		esClient, err := es.NewClient(cfg)
		if err != nil {
			log.Fatalf("es connect: %v", err)
		}
		searcher := &searchsvc.Service{ES: esClient, Index: cfg.ESIndex}
		indexer = searcher
		searchHandler = &httpserver.SearchHTTP{Svc: searcher}
	} else {
		logger.Warn("ES_URL not set, full-text search disabled")
	}

	cartService := &cartsvc.Service{Repo: store}
	catalogService := &catalogsvc.Service{Repo: store, Indexer: indexer}
	authService := &authsvc.Service{Repo: store, JWTSecret: cfg.JWTSecret}
	if producer != nil {
		cartService.Events = producer
		catalogService.Events = producer
	}

	e := echo.New()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler:    &httpserver.AuthHTTP{Svc: authService, Cart: cartService},
		CartHandler:    &httpserver.CartHTTP{Svc: cartService, JWTSecret: cfg.JWTSecret},
		CatalogHandler: &httpserver.CatalogHTTP{Svc: catalogService},
		SearchHandler:  searchHandler,
		JWTSecret:      cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := gdb.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
