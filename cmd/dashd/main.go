package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/avolkov/trade-dashboard/internal/config"
	"github.com/avolkov/trade-dashboard/internal/database"
	"github.com/avolkov/trade-dashboard/internal/feed"
	"github.com/avolkov/trade-dashboard/internal/kafka"
	syncsvc "github.com/avolkov/trade-dashboard/internal/sync"
	"github.com/avolkov/trade-dashboard/internal/tickdata"
	"github.com/avolkov/trade-dashboard/internal/tickstore"
	"github.com/avolkov/trade-dashboard/internal/timeutil"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if cfg.Terminal.Server == "" {
		log.Fatal("TERMINAL_SERVER must be set")
	}

	historyStart, err := time.Parse("2006-01-02", cfg.Sync.HistoryStart)
	if err != nil {
		log.Fatalf("Invalid SYNC_HISTORY_START: %v", err)
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	store, err := tickstore.Open(cfg.TickStore.DataDir, cfg.Terminal.Server, cfg.TickStore.Compressed)
	if err != nil {
		log.Fatalf("Failed to open tick store: %v", err)
	}
	defer store.Close()
	log.Printf("Tick store: %s (compressed=%v)", store.Path(), cfg.TickStore.Compressed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shift := timeutil.Shift(cfg.Terminal.LocalTimeshift)
	feedClient := feed.NewClient(cfg.Terminal.FeedURL)

	downloader := tickdata.New(store, feedClient, cfg.Terminal.Server, shift)
	if cfg.Redis.Enabled {
		cache := tickdata.NewQuoteCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := cache.Ping(ctx); err != nil {
			log.Printf("Redis unavailable, quote cache disabled: %v", err)
		} else {
			downloader.UseQuoteCache(cache)
			defer cache.Close()
		}
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SyncTopic)
	defer producer.Close()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.DealTopic, cfg.Kafka.GroupID, db)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			log.Printf("Kafka consumer stopped: %v", err)
		}
	}()

	service := syncsvc.NewService(feedClient, db, shift, historyStart.UTC())
	service.UsePublisher(producer)
	service.UseBackfiller(downloader, cfg.Sync.BackfillWorkers)
	go service.Run(ctx, time.Duration(cfg.Sync.IntervalSeconds)*time.Second)

	log.Printf("trade-dashboard started (server=%s, sync every %ds)",
		cfg.Terminal.Server, cfg.Sync.IntervalSeconds)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()
	consumer.Close()
}
