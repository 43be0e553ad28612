package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"anonymizer-service/internal/config"
	"anonymizer-service/internal/repository/postgresql"
	"anonymizer-service/internal/service"
	httptransport "anonymizer-service/internal/transport/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Postgres
	pool, err := postgresql.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("pg: %v", err)
	}
	defer pool.Close()

	// Redis
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	// DI
	repo := postgresql.NewJobRepository(pool)
	queue := service.NewRedisQueue(rdb, cfg.QueueKey, cfg.ProcessingKey)

	languages := make([]string, 0, len(cfg.NERModels))
	for lang := range cfg.NERModels {
		languages = append(languages, lang)
	}

	jobSvc := service.NewJobService(repo, queue, service.Config{
		MaxTextBytes:    cfg.MaxTextBytes,
		DefaultLanguage: cfg.DefaultLanguage,
		Languages:       languages,
	})

	handler := httptransport.NewHandler(jobSvc)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httptransport.Routes(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("api started: addr=%s default_language=%s languages=%v",
			cfg.ListenAddr, cfg.DefaultLanguage, languages)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("api stopped")
}
