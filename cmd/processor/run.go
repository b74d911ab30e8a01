package processor

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	service "orderflow/internal/app/processor"
	"orderflow/internal/shared/config"
	"orderflow/internal/shared/health"
	"orderflow/internal/shared/logger"
	pg "orderflow/internal/shared/postgres"
	"orderflow/internal/shared/rabbitmq"
)

// Run wires the processor service and blocks until ctx is cancelled: the
// consumer of order.created events plus a liveness endpoint.
func Run(ctx context.Context, prefetch, healthPort int) error {
	log := logger.New("processor-service", "")

	cfg, err := config.Load(".")
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}
	log = logger.New("processor-service", cfg.LogLevel)
	if prefetch == 0 {
		prefetch = cfg.PrefetchCount
	}

	pool, err := pg.NewPool(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize Postgres pool")
		return err
	}
	defer pool.Close()

	rmq, err := rabbitmq.Connect(ctx, cfg.RabbitMQURL, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to RabbitMQ")
		return err
	}
	defer rmq.Close()

	uow := pg.NewUnitOfWork(pool)
	repo := pg.NewProcessingRepo()
	simulate := service.NewSimulator(cfg.FailureProbability, rand.New(rand.NewSource(time.Now().UnixNano())))
	svc := service.New(uow, repo, rmq, simulate, log)

	r := chi.NewRouter()
	r.Get("/health", health.Handler(map[string]health.Check{
		"database": func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
		"rabbitmq": func() error { return rmq.Ping(2 * time.Second) },
	}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", healthPort),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info().
		Int("prefetch", prefetch).
		Float64("failure_probability", cfg.FailureProbability).
		Msg("processor service started")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return rmq.Consume(gctx,
			rabbitmq.QueueOrderCreated,
			"processor-service",
			prefetch,
			createdHandler(log, svc),
		)
	})

	g.Go(func() error {
		<-gctx.Done()
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("processor service stopped")
		return err
	}

	log.Info().Msg("processor service shutdown completed")
	return nil
}
