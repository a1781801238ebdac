package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nepsedata/nepse-data-service/internal/api"
	"github.com/nepsedata/nepse-data-service/internal/config"
	"github.com/nepsedata/nepse-data-service/internal/database"
	"github.com/nepsedata/nepse-data-service/internal/ingest"
	"github.com/nepsedata/nepse-data-service/internal/kafka"
	"github.com/nepsedata/nepse-data-service/internal/nepse"
	"github.com/nepsedata/nepse-data-service/internal/scheduler"
)

func main() {
	cfg := config.Load()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate("db/migrations"); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	client := nepse.NewClient(nepse.WithBaseURL(cfg.Nepse.BaseURL))

	var locker ingest.Locker
	if cfg.Redis.Addr != "" {
		redisLocker := ingest.NewRedisLocker(cfg.Redis.Addr)
		defer redisLocker.Close()
		locker = redisLocker
	}

	var events ingest.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		events = producer
	}

	pipeline := ingest.NewPipeline(client, db, locker, events)

	sched := scheduler.New(cfg.Scheduler.TimeZone)
	err = sched.Add(cfg.Scheduler.ScrapeSpec, "daily scrape", func(ctx context.Context) error {
		if _, err := pipeline.IngestToday(ctx); err != nil {
			return err
		}
		_, err := pipeline.IngestSectorSummary(ctx)
		return err
	})
	if err != nil {
		log.Fatalf("failed to schedule daily scrape: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	handler := api.NewHandler(pipeline, db, client, cfg.ScrapeSecret)
	router := api.SetupRoutes(handler)

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("server exited")
}
