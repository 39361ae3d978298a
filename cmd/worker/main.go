package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dharsanguruparan/PrintReady/internal/blobstore"
	"github.com/dharsanguruparan/PrintReady/internal/config"
	"github.com/dharsanguruparan/PrintReady/internal/database"
	"github.com/dharsanguruparan/PrintReady/internal/logger"
	"github.com/dharsanguruparan/PrintReady/internal/queue"
	"github.com/dharsanguruparan/PrintReady/internal/render"
	"github.com/dharsanguruparan/PrintReady/internal/repository"
	"github.com/dharsanguruparan/PrintReady/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, ServiceName: "printready-worker"})

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}
	docs := repository.NewPostgresStore(pool)

	blobs, err := blobstore.New(ctx, cfg)
	if err != nil {
		return err
	}
	if s3, ok := blobs.(*blobstore.S3Store); ok && cfg.OutputBucket != "" {
		if err := s3.EnsureBuckets(ctx, cfg.OutputBucket); err != nil {
			return err
		}
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
	var lease queue.Lease = queue.NoopLease{}
	if cfg.LeaseTTL > 0 {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		lease = queue.NewRedisLease(rdb, cfg.LeaseTTL)
	}

	policy := queue.PolicyFromConfig(cfg)
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:    cfg.Concurrency,
		Queues:         map[string]int{cfg.QueueName: 1},
		RetryDelayFunc: policy.RetryDelayFunc,
		IsFailure: func(err error) bool {
			return !errors.Is(err, queue.ErrLeaseHeld)
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)
			if worker.IsSkipRetry(err) || retried >= maxRetry {
				log.Error("render task archived",
					slog.String("type", task.Type()),
					slog.Int("retried", retried),
					slog.String("error", err.Error()),
				)
			}
		}),
		Logger:   asynqLogger{log.WithComponent("asynq")},
		LogLevel: asynq.InfoLevel,
	})

	pipeline := render.NewPipeline(blobs, docs, cfg.OutputBucket, log)
	processor := worker.NewProcessor(pipeline, docs, lease, log)
	mux := processor.Handler()
	mux.Use(queue.RateLimit(rate.NewLimiter(rate.Limit(cfg.DispatchRate), cfg.DispatchBurst)))

	health := &http.Server{
		Addr:              cfg.Address,
		ReadHeaderTimeout: 5 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := pool.Ping(r.Context()); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok\n"))
		}),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(mux); err != nil {
			return err
		}
		<-gctx.Done()
		server.Shutdown()
		return nil
	})
	g.Go(func() error {
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return health.Shutdown(shutdownCtx)
	})
	log.Info("worker started",
		slog.String("queue", cfg.QueueName),
		slog.Int("concurrency", cfg.Concurrency),
		slog.Float64("dispatch_rate", cfg.DispatchRate),
		slog.Bool("lease", cfg.LeaseTTL > 0),
	)
	return g.Wait()
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct{ log *logger.Logger }

func (l asynqLogger) Debug(args ...any) { l.log.Debug(sprint(args)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(sprint(args)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(sprint(args)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(sprint(args)) }
func (l asynqLogger) Fatal(args ...any) {
	l.log.Error(sprint(args))
	os.Exit(1)
}

func sprint(args []any) string {
	return fmt.Sprint(args...)
}
