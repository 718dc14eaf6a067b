package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"ads-autopilot/internal/api"
	"ads-autopilot/internal/audit"
	"ads-autopilot/internal/config"
	"ads-autopilot/internal/engine"
	"ads-autopilot/internal/platform"
	"ads-autopilot/internal/scheduler"
	"ads-autopilot/internal/storage"
)

func Run(cfg config.Config) {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	store, err := storage.New(rootCtx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init storage")
	}
	defer store.Close()

	// Platform client, wrapped in a Redis listing cache when configured
	var client platform.Client = platform.NewGraphClient(cfg.Platform.GraphBaseURL, cfg.Platform.PageLimit)
	if cfg.Redis.Addr != "" {
		rdb, err := platform.NewRedis(rootCtx, cfg.Redis.Addr)
		if err != nil {
			log.Fatal().Err(err).Msg("init redis")
		}
		defer rdb.Close()
		client = platform.NewCachedClient(client, rdb, cfg.ListingTTL())
	}

	// Audit sink
	var sink audit.Sink = audit.LogSink{}
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.AuditTopic != "" {
		kafkaSink, err := audit.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			log.Fatal().Err(err).Msg("init kafka audit sink")
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	}

	runner := engine.NewRunner(store, client, sink, cfg.LockTTL())

	// HTTP
	h := api.NewHandler(runner, store)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.Router(h),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 65 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Interval scheduler
	go scheduler.New(store, runner, cfg.WorkerInterval()).Start(rootCtx)

	// Server goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	// Wait for signal
	waitForSignal()
	log.Info().Msg("shutdown...")

	// Graceful shutdown
	shCtx, shCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shCancel()
	cancel() // stop background goroutines
	_ = srv.Shutdown(shCtx)
}

func waitForSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
}
