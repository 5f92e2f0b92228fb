package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/storefront/internal/health"
	"github.com/vladislavdragonenkov/storefront/internal/httpapi"
	"github.com/vladislavdragonenkov/storefront/internal/service/cartstore"
	"github.com/vladislavdragonenkov/storefront/internal/service/payment"
	"github.com/vladislavdragonenkov/storefront/internal/service/settlement"
	"github.com/vladislavdragonenkov/storefront/internal/service/stockguard"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

// Run собирает зависимости по конфигурации и обслуживает HTTP до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := newDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(logger)

	carts := cartstore.New(
		deps.GuestCarts,
		deps.AccountCart,
		deps.Catalog,
		stockguard.New(deps.Catalog, logger.WithField("component", "stock-guard")),
		deps.MergeLedger,
		logger.WithField("component", "cart-store"),
	)

	// NOTE: платёжный шлюз замокан; в проде подключается клиент реального PSP.
	paymentGateway := payment.NewMockGateway()

	engine := settlement.New(
		carts,
		deps.Catalog,
		deps.Ledger,
		paymentGateway,
		deps.OutboxRepo,
		logger.WithField("component", "settlement"),
	)

	// Kafka и outbox worker опциональны: без брокеров события копятся в outbox,
	// но наружу не публикуются.
	kafkaProducer, outboxWorker := initOutboxWorker(cfg, deps.OutboxRepo, logger)
	if outboxWorker != nil {
		go outboxWorker.Run(ctx)
	}

	healthHandler := newHealthHandler(cfg, deps)

	apiHandler := httpapi.NewHandler(carts, engine, deps.Ledger, deps.Catalog, logger.WithField("layer", "http"))
	router := httpapi.NewRouter(apiHandler, []byte(cfg.JWTSecret))

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		shutdownHTTP(httpSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeKafka(kafkaProducer, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// newHealthHandler регистрирует проверки подключённых бэкендов.
func newHealthHandler(cfg Config, deps *Dependencies) *healthcheck.Handler {
	handler := healthcheck.NewHandler(version.String())

	if pg := deps.PostgresStore(); pg != nil {
		handler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return pg.Ping(ctx)
		}))
	}
	if rc := deps.RedisClient(); rc != nil {
		handler.RegisterChecker("redis", healthcheck.NewSimpleChecker("redis", func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return rc.Ping(ctx).Err()
		}))
	}
	handler.RegisterChecker("outbox", healthcheck.NewBacklogChecker("outbox", cfg.OutboxBacklogThreshold, func() (int, error) {
		stats, err := deps.OutboxRepo.Stats()
		if err != nil {
			return 0, err
		}
		return stats.PendingCount, nil
	}))

	return handler
}

// startMetricsServer поднимает HTTP-обработчики /metrics и health-проб.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
