// Package app собирает сервис целиком: хранилища, бизнес-слой,
// HTTP API, служебный сервер метрик и фоновые воркеры.
package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	healthcheck "github.com/pahanaedu/bookshop/internal/health"
	"github.com/pahanaedu/bookshop/internal/messaging/kafka"
	"github.com/pahanaedu/bookshop/internal/service/billing"
	"github.com/pahanaedu/bookshop/internal/service/catalog"
	"github.com/pahanaedu/bookshop/internal/service/idempotency"
	"github.com/pahanaedu/bookshop/internal/service/ledger"
	"github.com/pahanaedu/bookshop/internal/service/outbox"
	httptransport "github.com/pahanaedu/bookshop/internal/transport/http"
	"github.com/pahanaedu/bookshop/internal/version"
)

const shutdownTimeout = 5 * time.Second

// Run запускает сервис и блокируется до отмены ctx или фатальной ошибки
// HTTP-сервера. Завершение корректное: сначала останавливается приём
// запросов, затем фоновые воркеры и внешние подключения.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	kafkaProducer, _ := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)

	inventory := ledger.New(deps.Items, logger.WithField("component", "ledger"))

	var bills *billing.Coordinator
	if kafkaProducer != nil {
		bills = billing.NewCoordinatorWithKafka(
			deps.Bills, deps.Customers, deps.Items, inventory,
			deps.Outbox, deps.Timeline, kafkaProducer,
			logger.WithField("component", "billing"),
		)
	} else {
		bills = billing.NewCoordinator(
			deps.Bills, deps.Customers, deps.Items, inventory,
			deps.Outbox, deps.Timeline,
			logger.WithField("component", "billing"),
		)
	}

	items := catalog.NewItemService(deps.Items, inventory, logger.WithField("component", "catalog-items"))
	customers := catalog.NewCustomerService(deps.Customers, logger.WithField("component", "catalog-customers"))
	users := catalog.NewUserService(deps.Users, logger.WithField("component", "catalog-users"))

	server := httptransport.NewServer(
		bills, items, customers, users, deps.Idempotency,
		logger.WithField("component", "http"),
	)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	if deps.Store != nil {
		store := deps.Store
		healthHandler.Register("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return store.Ping(pingCtx)
		})
	}
	if cfg.KafkaBrokers != "" {
		producer := kafkaProducer
		healthHandler.Register("kafka", func() error {
			if producer == nil {
				return errors.New("kafka producer is not initialized")
			}
			return nil
		})
	}

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	var workers sync.WaitGroup
	startWorkers(workerCtx, &workers, cfg, deps, kafkaProducer, logger)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	apiSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("HTTP API слушает %s", cfg.HTTPAddr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP API")
		shutdownHTTP(apiSrv, logger)
		stopWorkers()
		workers.Wait()
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		stopWorkers()
		workers.Wait()
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// startWorkers запускает фоновые процессы: публикацию outbox (только при
// настроенном Kafka) и чистку протухших idempotency-ключей.
func startWorkers(
	ctx context.Context,
	wg *sync.WaitGroup,
	cfg Config,
	deps *Dependencies,
	producer *kafka.Producer,
	logger *log.Entry,
) {
	if producer != nil {
		worker := outbox.NewWorker(
			deps.Outbox,
			kafka.NewOutboxPublisher(producer, kafka.TopicBillEvents),
			outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx)
		}()
	} else {
		logger.Info("kafka is not configured, outbox events stay pending")
	}

	cleanup := idempotency.NewCleanupWorker(
		deps.Idempotency,
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithLogger(logger.WithField("component", "idempotency-cleanup")),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(ctx)
	}()
}

// startMetricsServer поднимает служебный HTTP: /metrics, /healthz,
// /livez и /readyz.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.Liveness)
	mux.HandleFunc("/readyz", healthHandler.Readiness)
	mux.HandleFunc("/versionz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})

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
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
