package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/PrintReady/internal/api"
	"github.com/dharsanguruparan/PrintReady/internal/blobstore"
	"github.com/dharsanguruparan/PrintReady/internal/config"
	"github.com/dharsanguruparan/PrintReady/internal/database"
	"github.com/dharsanguruparan/PrintReady/internal/logger"
	"github.com/dharsanguruparan/PrintReady/internal/prepare"
	"github.com/dharsanguruparan/PrintReady/internal/queue"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
	"github.com/dharsanguruparan/PrintReady/internal/resolver"
	"github.com/dharsanguruparan/PrintReady/internal/signing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, ServiceName: "printready-api"})

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("connect database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		log.Error("ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	docs := repository.NewPostgresStore(pool)

	blobs, err := blobstore.New(ctx, cfg)
	if err != nil {
		log.Error("init storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	queueClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer queueClient.Close()

	preparer := prepare.New(docs, resolver.New(cfg.DefaultSourceBucket), queueClient, cfg.QueueName, queue.PolicyFromConfig(cfg), log)
	server := api.New(cfg, api.Deps{
		Preparer: preparer,
		Docs:     docs,
		Blobs:    blobs,
		Signer:   signing.NewSigner(cfg.SigningSecret),
		Logger:   log,
	})
	if err := server.Run(ctx); err != nil {
		log.Error("api stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
