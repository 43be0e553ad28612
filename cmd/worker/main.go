package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"anonymizer-service/internal/anonymize"
	"anonymizer-service/internal/config"
	"anonymizer-service/internal/detector"
	"anonymizer-service/internal/detector/ner"
	"anonymizer-service/internal/detector/pattern"
	"anonymizer-service/internal/repository/postgresql"
	"anonymizer-service/internal/service"
	"anonymizer-service/internal/worker"
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

	nerClient := ner.New(cfg.NERModels)
	pipeline := anonymize.New(detector.NewComposite(nerClient, pattern.New()))

	// Recovery sweep: jobs claimed longer than JOB_LEASE ago lost their
	// worker (crash, kill mid-run). Reset their rows to pending first, then
	// move their queue entries back so the next claim re-executes them.
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := repo.ResetStale(ctx, time.Now().Add(-cfg.JobLease)); err != nil {
					log.Printf("reset stale error: %v", err)
				} else if n > 0 {
					log.Printf("reset %d stale jobs to pending", n)
				}

				n, err := queue.RequeueStale(ctx, cfg.JobLease, 100)
				if err != nil {
					log.Printf("requeue error: %v", err)
					continue
				}
				if n > 0 {
					log.Printf("requeued %d jobs from processing", n)
				}
			}
		}
	}()

	// Retention sweep: drop terminal jobs older than JOB_TTL (0 disables)
	if cfg.JobTTL > 0 {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					n, err := repo.DeleteExpired(ctx, time.Now().Add(-cfg.JobTTL))
					if err != nil {
						log.Printf("retention sweep error: %v", err)
						continue
					}
					if n > 0 {
						log.Printf("retention sweep removed %d jobs", n)
					}
				}
			}
		}()
	}

	processor := worker.NewProcessor(repo, pipeline, cfg.DetectorTimeout)
	poolWorkers := worker.NewPool(queue, processor, cfg.Workers)

	log.Printf("worker started: workers=%d languages=%v detector_timeout=%s job_lease=%s job_ttl=%s",
		cfg.Workers, nerClient.Languages(), cfg.DetectorTimeout, cfg.JobLease, cfg.JobTTL)
	poolWorkers.Run(ctx)

	log.Println("worker stopped")
}
