package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"reitvest/internal/audit"
	"reitvest/internal/audit/outbox"
	"reitvest/internal/custody"
	fundraiserHandler "reitvest/internal/fundraiser/handler"
	fundraiserMetrics "reitvest/internal/fundraiser/metrics"
	fundraiserService "reitvest/internal/fundraiser/service"
	fundraiserStore "reitvest/internal/fundraiser/store"
	identityHandler "reitvest/internal/identity/handler"
	identityService "reitvest/internal/identity/service"
	identityStore "reitvest/internal/identity/store"
	investmentHandler "reitvest/internal/investment/handler"
	investmentMetrics "reitvest/internal/investment/metrics"
	investmentService "reitvest/internal/investment/service"
	investmentStore "reitvest/internal/investment/store"
	investorHandler "reitvest/internal/investor/handler"
	investorService "reitvest/internal/investor/service"
	investorStore "reitvest/internal/investor/store"
	"reitvest/internal/platform/config"
	"reitvest/internal/platform/httpserver"
	"reitvest/internal/platform/kafka"
	"reitvest/internal/platform/logger"
	platformMetrics "reitvest/internal/platform/metrics"
	"reitvest/internal/platform/redis"
	httptransport "reitvest/internal/transport/http"
	"reitvest/pkg/platform/tx"
)

// main wires the stores, the custody adapter, and the lifecycle services,
// then runs the HTTP server and the audit outbox relay until shutdown.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := build(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer deps.close()

	srv := httpserver.New(cfg.Addr, deps.router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting reitvest", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if deps.relay != nil {
		group.Go(func() error {
			return deps.relay.Run(groupCtx)
		})
	}

	if err := group.Wait(); err != nil {
		log.Error("shutdown with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

type dependencies struct {
	router http.Handler
	relay  *outbox.Relay

	db       *sql.DB
	cache    *redis.Client
	producer *kafka.Producer
}

func (d *dependencies) close() {
	if d.producer != nil {
		d.producer.Close()
	}
	if d.cache != nil {
		_ = d.cache.Close()
	}
	if d.db != nil {
		_ = d.db.Close()
	}
}

// build selects durable or in-memory backing by configuration and assembles
// the full service graph.
func build(ctx context.Context, cfg config.Server, log *slog.Logger) (*dependencies, error) {
	deps := &dependencies{}
	var (
		runner      tx.Runner
		fundraisers fundraiserStore.Store
		investors   investorStore.Store
		investments investmentStore.Store
		accounts    identityStore.Store
		auditStore  audit.Store
	)

	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, err
		}
		deps.db = db

		runner = tx.NewSQLRunner(db)
		fundraisers = fundraiserStore.NewPostgres(db)
		investors = investorStore.NewPostgres(db)
		investments = investmentStore.NewPostgres(db)
		accounts = identityStore.NewPostgres(db)

		outboxStore := outbox.NewPostgresStore(db)
		auditStore = outboxStore

		producer, err := kafka.NewProducer(ctx, cfg.Kafka)
		if err != nil {
			return nil, err
		}
		deps.producer = producer
		if producer != nil {
			deps.relay = outbox.NewRelay(outboxStore, producer, cfg.PostgresURL, log)
		}
	} else {
		log.Warn("POSTGRES_URL not set, using in-memory stores")
		runner = tx.NewMemoryRunner()
		fundraisers = fundraiserStore.NewInMemory()
		investors = investorStore.NewInMemory()
		investments = investmentStore.NewInMemory()
		accounts = identityStore.NewInMemory()
		auditStore = audit.NewInMemoryStore()
	}

	cache, err := redis.New(cfg.Redis)
	if err != nil {
		return nil, err
	}
	deps.cache = cache

	auditor := audit.NewPublisher(auditStore, log)
	bank := custody.NewInMemoryBank()

	identity := identityService.NewService(accounts, cfg.JWTSigningKey, cfg.TokenTTL, log)

	fundraiserOpts := []fundraiserService.Option{
		fundraiserService.WithMetrics(fundraiserMetrics.New()),
	}
	if cache != nil {
		fundraiserOpts = append(fundraiserOpts, fundraiserService.WithStatsCache(cache, cfg.Redis.StatsTTL))
	}
	fundraisersSvc := fundraiserService.NewService(fundraisers, runner, auditor, log, fundraiserOpts...)

	investorsSvc := investorService.NewService(investors, investments, runner, auditor, log)
	investmentsSvc := investmentService.NewService(
		investments, fundraisers, investors, investorsSvc,
		bank, runner, auditor, log, investmentMetrics.New(),
	)

	checks := []httptransport.HealthCheck{}
	if deps.db != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "postgres", Check: deps.db.PingContext})
	}
	if cache != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "redis", Check: cache.Health})
	}
	if deps.producer != nil {
		checks = append(checks, httptransport.HealthCheck{Name: "kafka", Check: deps.producer.Health})
	}

	deps.router = httptransport.NewRouter(log, platformMetrics.New(), checks,
		identityHandler.New(identity, log),
		fundraiserHandler.New(fundraisersSvc, log, identity),
		investorHandler.New(investorsSvc, log, identity),
		investmentHandler.New(investmentsSvc, log, identity),
	)
	return deps, nil
}
