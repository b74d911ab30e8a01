package orderservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	service "orderflow/internal/app/orderservice"
	"orderflow/internal/shared/config"
	"orderflow/internal/shared/health"
	"orderflow/internal/shared/logger"
	pg "orderflow/internal/shared/postgres"
	"orderflow/internal/shared/rabbitmq"
)

// Run wires the order service and blocks until ctx is cancelled: the HTTP API
// for creating/reading orders plus the consumer reconciling order.processed
// events.
func Run(ctx context.Context, port int) error {
	log := logger.New("order-service", "")

	cfg, err := config.Load(".")
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		return err
	}
	log = logger.New("order-service", cfg.LogLevel)
	if port == 0 {
		port = cfg.HTTPPort
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

	// explicit constructor-based composition: interface-typed collaborators in
	uow := pg.NewUnitOfWork(pool)
	repo := pg.NewOrdersRepo()
	svc := service.New(uow, repo, rmq, log)

	r := chi.NewRouter()
	service.NewHTTPHandler(svc, log).Register(r)
	r.Get("/health", health.Handler(map[string]health.Check{
		"database": func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			return pool.Ping(pingCtx)
		},
		"rabbitmq": func() error { return rmq.Ping(2 * time.Second) },
	}))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	log.Info().Int("port", port).Msg("order service started")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return rmq.Consume(gctx,
			rabbitmq.QueueOrderProcessed,
			"order-service",
			cfg.PrefetchCount,
			resultHandler(log, svc),
		)
	})

	g.Go(func() error {
		<-gctx.Done()
		// graceful HTTP shutdown (drain keep-alives / in-flight requests)
		shCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("order service stopped")
		return err
	}

	log.Info().Msg("order service shutdown completed")
	return nil
}
