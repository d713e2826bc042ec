package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiadisa/internal/config"
	"kiadisa/internal/db"
	"kiadisa/internal/game/minigames"
	"kiadisa/internal/realtime"
	"kiadisa/internal/server"
	"kiadisa/internal/session"
	"kiadisa/internal/store"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Sugar()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warnw("failed to load .env", "error", err)
	}
	cfg := config.Load()

	var st store.Store
	if os.Getenv("DATABASE_URL") != "" {
		conn, err := db.Open(cfg)
		if err != nil {
			log.Fatalw("database connection failed", "error", err)
		}
		if err := db.Migrate(conn); err != nil {
			log.Fatalw("database migration failed", "error", err)
		}
		st = store.NewPostgres(conn)
		log.Infow("using postgres store")
	} else {
		st = store.NewMemory()
		log.Infow("DATABASE_URL not set, using in-memory store")
	}

	var channel realtime.Channel
	if cfg.RedisURL != "" {
		rc, err := realtime.NewRedisFromURL(cfg.RedisURL)
		if err != nil {
			log.Fatalw("redis connection failed", "error", err)
		}
		channel = rc
		log.Infow("using redis change channel")
	} else {
		channel = realtime.NewLocal()
		log.Infow("REDIS_URL not set, using in-process change channel")
	}

	coordinator := session.New(st, channel, minigames.DefaultRegistry(), cfg, log)
	defer coordinator.Close()

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.New(coordinator, st, channel, cfg, log).Handler(),
	}

	go func() {
		log.Infow("kiadisa server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnw("shutdown incomplete", "error", err)
	}
}
