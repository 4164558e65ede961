// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal service packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"verity/internal/audit"
	audithandler "verity/internal/audit/handler"
	auditkafka "verity/internal/audit/kafka"
	auditmetrics "verity/internal/audit/metrics"
	"verity/internal/dispute"
	disputehandler "verity/internal/dispute/handler"
	disputemetrics "verity/internal/dispute/metrics"
	"verity/internal/platform/config"
	"verity/internal/platform/httpserver"
	"verity/internal/platform/logger"
	platformredis "verity/internal/platform/redis"
	httptransport "verity/internal/transport/http"
	"verity/internal/verification"
	verificationhandler "verity/internal/verification/handler"
	verificationmetrics "verity/internal/verification/metrics"
)

const retentionSweepInterval = 24 * time.Hour

func main() {
	log := logger.New()

	cfg, err := config.Load(os.Getenv("VERITY_CONFIG"))
	if err != nil {
		log.Error("configuration failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audit trail: file partitions are the source of truth, Kafka mirrors.
	auditStore, err := audit.NewFileStore(cfg.Audit.Dir)
	if err != nil {
		log.Error("audit store init failed", "error", err, "dir", cfg.Audit.Dir)
		os.Exit(1)
	}
	if cfg.Audit.RetentionYears > 0 {
		audit.RetentionYears = cfg.Audit.RetentionYears
	}

	trailOpts := []audit.Option{
		audit.WithLogger(log),
		audit.WithMetrics(auditmetrics.New()),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := auditkafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka mirror init failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		trailOpts = append(trailOpts, audit.WithMirror(publisher))
		log.Info("audit mirror enabled", "topic", cfg.Kafka.Topic)
	}
	trail, err := audit.NewTrail(auditStore, trailOpts...)
	if err != nil {
		log.Error("audit trail init failed", "error", err)
		os.Exit(1)
	}

	// Assessment store: Redis when configured, in-memory otherwise.
	var assessments verification.AssessmentStore = verification.NewInMemoryStore()
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		var redisOpts []verification.RedisStoreOption
		if cfg.Redis.AssessmentTTL > 0 {
			redisOpts = append(redisOpts, verification.WithTTL(cfg.Redis.AssessmentTTL.Std()))
		}
		assessments = verification.NewRedisStore(redisClient.Client, redisOpts...)
		log.Info("assessment store on redis")
	}

	verifier, err := verification.NewService(assessments, trail,
		verification.WithLogger(log),
		verification.WithMetrics(verificationmetrics.New()),
	)
	if err != nil {
		log.Error("verification service init failed", "error", err)
		os.Exit(1)
	}

	// Dispute store: Postgres when configured, in-memory otherwise.
	var disputes dispute.Store = dispute.NewInMemoryStore()
	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			log.Error("postgres init failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, dispute.Schema); err != nil {
			log.Error("dispute schema init failed", "error", err)
			os.Exit(1)
		}
		disputes = dispute.NewPostgresStore(pool)
		log.Info("dispute store on postgres")
	}

	disputeManager, err := dispute.NewManager(disputes, trail,
		dispute.WithLogger(log),
		dispute.WithMetrics(disputemetrics.New()),
		dispute.WithVerificationSource(verifier),
	)
	if err != nil {
		log.Error("dispute manager init failed", "error", err)
		os.Exit(1)
	}

	health := func(r *http.Request) error {
		hctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if pool != nil {
			if err := pool.Ping(hctx); err != nil {
				return err
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(hctx); err != nil {
				return err
			}
		}
		return nil
	}

	router := httptransport.NewRouter(health,
		verificationhandler.New(verifier, log),
		disputehandler.New(disputeManager, log),
		audithandler.New(trail, log),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	// Daily retention sweep keeps the audit partitions within policy.
	go func() {
		ticker := time.NewTicker(retentionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := trail.CleanupExpired(ctx)
				if err != nil {
					log.Error("retention cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					log.Info("retention cleanup done", "removed", removed)
				}
			}
		}
	}()

	go func() {
		log.Info("starting verity", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
