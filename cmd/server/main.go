package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/fjod/go_storefront/internal/config"
	"github.com/fjod/go_storefront/internal/httpapi"
	"github.com/fjod/go_storefront/internal/publisher"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/tokens"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cred := &repository.Credentials{
		Host:              cfg.PGHost,
		Port:              cfg.PGPort,
		User:              cfg.PGUser,
		Password:          cfg.PGPassword,
		DBName:            cfg.PGDatabase,
		MigrationsDirPath: cfg.MigrationsDir,
	}
	repo, err := repository.NewRepository(cred)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(cred); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	tokenStore := tokens.NewRedisStore(rdb)

	authHandler := httpapi.NewAuthHandler(repo, tokenStore)
	ordersHandler := httpapi.NewOrdersHandler(repo)
	router := httpapi.NewRouter(authHandler, ordersHandler, tokenStore, cfg.RequestTimeout)

	poller := publisher.NewOutboxPoller(repo, cfg.KafkaBrokers...)
	go poller.Run(ctx)
	defer poller.Close()

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: otelhttp.NewHandler(router, "storefront-api"),
	}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	cancel() // stop the outbox poller
}
