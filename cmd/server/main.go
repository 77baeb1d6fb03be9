package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"maintenance-manager/console/internal/audit"
	auditrepo "maintenance-manager/console/internal/audit/repository"
	"maintenance-manager/console/internal/config"
	"maintenance-manager/console/internal/console/handler"
	"maintenance-manager/console/internal/db"
	"maintenance-manager/console/internal/gateway"
	"maintenance-manager/console/internal/health"
	"maintenance-manager/console/internal/metrics"
	"maintenance-manager/console/internal/platform/ratelimit"
	"maintenance-manager/console/internal/policy/engine"
	"maintenance-manager/console/internal/server"
	"maintenance-manager/console/internal/server/middleware"
	"maintenance-manager/console/internal/session"
	"maintenance-manager/console/internal/session/repository"
	"maintenance-manager/console/internal/telemetry/otel"
	"maintenance-manager/console/internal/toast"
)

const (
	sweepInterval  = time.Minute
	healthInterval = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, otel.Options{
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		ServiceName: health.ServiceName,
		Environment: cfg.Env,
	})
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewConsoleMetrics(reg)

	api := gateway.NewAPI(gateway.NewClient(cfg.APIBaseURL, cfg.APIRequestTimeout()).WithObserver(m.ObserveAPI))

	var database *sql.DB
	if cfg.DatabaseURL != "" {
		database, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer database.Close()
	}

	checker := health.NewChecker(2 * time.Second)
	storage, closeStorage := openStorage(ctx, cfg, database)
	defer closeStorage()
	checker.Add("session_storage", storage)
	if database != nil {
		checker.Add("database", health.PingFunc(database.PingContext))
	}

	policy, err := engine.NewOPAEvaluator(ctx)
	if err != nil {
		log.Fatalf("policy: %v", err)
	}
	checker.Add("policy", health.PingFunc(policy.HealthCheck))

	var auditLogger audit.AuditLogger
	if database != nil {
		l := audit.NewLogger(auditrepo.NewPostgresRepository(database), middleware.ClientIPFromContext).
			WithClientExtractor(middleware.ClientIDFromContext).
			WithPublisher(otel.NewAuditPublisher(providers.LoggerProvider))
		if brokers := cfg.AuditKafkaBrokersList(); len(brokers) > 0 {
			kp := audit.NewKafkaPublisher(brokers, cfg.AuditKafkaTopic)
			defer kp.Close()
			l = l.WithPublisher(kp)
			log.Printf("audit events published to kafka topic %s", cfg.AuditKafkaTopic)
		}
		auditLogger = l
	}

	sessions := session.NewManager(storage, api.Auth, auditLogger, cfg.IdleTTL())
	go sessions.Run(ctx, sweepInterval)
	m.RegisterSessionGauge(sessions.Len)

	toasts := toast.NewHub(cfg.ToastLifetime(), m.ObserveToast)
	limiter := ratelimit.PerMinute(cfg.LoginRatePerMinute, cfg.LoginRateBurst)

	h, err := handler.New(handler.Deps{
		API:                api,
		Audit:              auditLogger,
		Metrics:            m,
		LoginLimiter:       limiter,
		Policy:             policy,
		RevalidateInterval: cfg.RevalidateInterval(),
		Health:             checker.Handler(),
	})
	if err != nil {
		log.Fatalf("handler: %v", err)
	}
	go sweep(ctx, cfg.IdleTTL(), func() {
		toasts.Sweep(cfg.IdleTTL())
		limiter.Sweep()
		h.Sweep(cfg.IdleTTL())
	})

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	var root http.Handler = h.Routes()
	root = middleware.Audit(auditLogger, handler.SelfAuditedRoutes)(root)
	root = middleware.Client(middleware.ClientOptions{
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.CookieSecure,
		Sessions:   sessions,
		Toasts:     toasts,
	})(root)
	root = middleware.Logging(logger, m.ObserveRequest)(root)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("console listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
		metricsServer = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Printf("metrics listening on %s", cfg.MetricsAddr)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics serve: %v", err)
			}
		}()
	}

	var grpcServer *grpc.Server
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			log.Fatalf("listen: %v", err)
		}
		hs := health.NewServer()
		grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		server.RegisterServices(grpcServer, server.Deps{Health: hs})
		go checker.Watch(ctx, hs, healthInterval)
		go func() {
			log.Printf("gRPC health listening on %s", cfg.GRPCHealthAddr)
			if err := grpcServer.Serve(lis); err != nil {
				log.Printf("grpc serve: %v", err)
			}
		}()
	}

	<-ctx.Done()
	log.Println("shutting down console...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	log.Println("console stopped")
}

// openStorage returns the session storage selected by SESSION_STORAGE and a func releasing it.
func openStorage(ctx context.Context, cfg *config.Config, database *sql.DB) (repository.Storage, func()) {
	switch cfg.SessionStorage {
	case config.StorageRedis:
		client, err := repository.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		log.Printf("session storage: redis")
		return repository.NewRedisStorage(client, cfg.StorageTTL()), func() { _ = client.Close() }
	case config.StoragePostgres:
		pg := repository.NewPostgresStorage(database, cfg.StorageTTL())
		go sweep(ctx, sweepInterval, func() {
			if n, err := pg.DeleteExpired(ctx); err != nil {
				log.Printf("session storage: delete expired: %v", err)
			} else if n > 0 {
				log.Printf("session storage: deleted %d expired entries", n)
			}
		})
		log.Printf("session storage: postgres")
		return pg, func() {}
	default:
		log.Printf("session storage: memory (state is lost on restart)")
		return repository.NewMemoryStorage(cfg.StorageTTL()), func() {}
	}
}

// sweep calls fn every interval until ctx is done.
func sweep(ctx context.Context, interval time.Duration, fn func()) {
	if interval <= 0 {
		interval = sweepInterval
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn()
		}
	}
}
