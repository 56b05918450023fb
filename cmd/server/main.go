package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	leadhandler "noro/internal/lead/handler"
	leadmetrics "noro/internal/lead/metrics"
	leadservice "noro/internal/lead/service"
	leadstore "noro/internal/lead/store"
	"noro/internal/platform/config"
	"noro/internal/platform/database"
	"noro/internal/platform/health"
	"noro/internal/platform/kafka/producer"
	"noro/internal/platform/logger"
	"noro/internal/platform/redis"
	tenanthandler "noro/internal/tenant/handler"
	tenantmetrics "noro/internal/tenant/metrics"
	"noro/internal/tenant/resolver"
	tenantservice "noro/internal/tenant/service"
	tenantstore "noro/internal/tenant/store"
	"noro/internal/webhook/dedup"
	"noro/internal/webhook/forwarder"
	webhookhandler "noro/internal/webhook/handler"
	webhookmetrics "noro/internal/webhook/metrics"
	"noro/internal/webhook/provider"
	webhookservice "noro/internal/webhook/service"
	"noro/pkg/platform/audit"
	"noro/pkg/platform/audit/publisher"
	"noro/pkg/platform/audit/sinks"
	"noro/pkg/platform/middleware/admin"
	"noro/pkg/platform/middleware/auth"
	"noro/pkg/platform/middleware/request"
	tenantmw "noro/pkg/platform/middleware/tenant"
)

const (
	maxBodyBytes     = 1 << 20
	shutdownTimeout  = 15 * time.Second
	auditBufferSize  = 256
	redisStatsPeriod = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	// Infrastructure. Each piece is optional so the server can run on
	// in-memory implementations in dev and tests.
	pool, err := database.New(cfg.Database)
	if err != nil {
		return err
	}
	if pool != nil {
		defer pool.Close() //nolint:errcheck // shutting down
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck // shutting down
	}

	var (
		auditSink     audit.Sink
		kafkaProducer *producer.Producer
	)
	if cfg.Kafka.Brokers != "" {
		kafkaProducer, err = producer.New(cfg.Kafka, log)
		if err != nil {
			return err
		}
		defer kafkaProducer.Close() //nolint:errcheck // shutting down
		auditSink = sinks.NewKafkaSink(kafkaProducer)
		log.Info("audit events publishing to kafka", "topic", sinks.Topic)
	} else {
		auditSink = sinks.NewMemorySink()
		log.Warn("kafka not configured, audit events stay in memory")
	}
	auditPub := publisher.New(auditSink,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	defer auditPub.Close()

	// Stores and domain services.
	var (
		tenantStore tenantservice.Store
		provisioner tenantservice.SchemaProvisioner
		leadStore   leadservice.Store
		ledger      dedup.Ledger
	)
	if pool != nil {
		bootCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pool.Bootstrap(bootCtx); err != nil {
			cancel()
			return err
		}
		cancel()
		tenantStore = tenantstore.NewPostgres(pool)
		provisioner = database.NewProvisioner(pool)
		leadStore = leadstore.NewPostgres(pool)
	} else {
		log.Warn("database not configured, using in-memory stores")
		tenantStore = tenantstore.NewMemory()
		provisioner = tenantservice.NoopProvisioner{}
		leadStore = leadstore.NewMemory()
	}
	if redisClient != nil {
		ledger = dedup.NewRedis(redisClient, cfg.Webhooks.DedupTTL)
	} else {
		log.Warn("redis not configured, webhook dedup is per-process only")
		ledger = dedup.NewMemory()
	}

	tMetrics := tenantmetrics.New()
	tenantSvc := tenantservice.New(tenantStore, provisioner, log,
		tenantservice.WithMetrics(tMetrics),
		tenantservice.WithAuditPublisher(auditPub),
	)
	tenantResolver := resolver.New(tenantStore, log, resolver.WithMetrics(tMetrics))

	leadSvc := leadservice.New(leadStore, log,
		leadservice.WithMetrics(leadmetrics.New()),
		leadservice.WithAuditPublisher(auditPub),
	)

	webhookSvc := webhookservice.New(
		provider.NewRegistry(cfg.Webhooks.BTGSecret, cfg.Webhooks.AsaasToken),
		ledger,
		forwarder.NewHTTP(cfg.Webhooks.ProcessorURL, cfg.Webhooks.ForwardTimeout, log),
		log,
		webhookservice.WithMetrics(webhookmetrics.New()),
		webhookservice.WithAuditPublisher(auditPub),
	)

	verifier := auth.NewVerifier(cfg.JWTSigningKey)

	// Router.
	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(request.Logger(log))
	r.Use(request.LatencyMiddleware(request.NewMetrics()))
	r.Use(request.Timeout(cfg.RequestTimeout))
	r.Use(request.BodyLimit(maxBodyBytes))

	healthHandler := health.New(cfg.Environment)
	if pool != nil {
		healthHandler.RegisterCheck("database", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pool.Health(ctx)
		})
	}
	if redisClient != nil {
		healthHandler.RegisterCheck("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(ctx)
		})
	}
	if kafkaProducer != nil {
		healthHandler.RegisterCheck("kafka", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if !kafkaProducer.Healthy(ctx) {
				return errors.New("kafka brokers unreachable")
			}
			return nil
		})
	}
	healthHandler.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(admin.RequireAdminToken(cfg.AdminToken, log))
		ar.Use(request.ContentTypeJSON)
		tenanthandler.New(tenantSvc, log).Register(ar)
	})

	r.Route("/crm", func(cr chi.Router) {
		cr.Use(tenantmw.Require(tenantResolver, log))
		cr.Use(auth.OptionalAuth(verifier, log))
		cr.Use(request.ContentTypeJSON)
		leadhandler.New(leadSvc, log).Register(cr)
	})

	// Webhook deliveries skip the JSON content-type gate; providers are not
	// consistent about the header and the body is relayed as raw bytes.
	webhookhandler.New(webhookSvc, log).Register(r)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if redisClient != nil {
		go func() {
			ticker := time.NewTicker(redisStatsPeriod)
			defer ticker.Stop()
			for range ticker.C {
				redisClient.RecordPoolStats()
			}
		}()
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(ctx)
}
