package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/homeserve/internal/cache"
	"github.com/vladislavdragonenkov/homeserve/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/homeserve/internal/health"
	"github.com/vladislavdragonenkov/homeserve/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/homeserve/internal/metrics"
	"github.com/vladislavdragonenkov/homeserve/internal/service/checkout"
	"github.com/vladislavdragonenkov/homeserve/internal/service/outbox"
	"github.com/vladislavdragonenkov/homeserve/internal/service/rest"
	"github.com/vladislavdragonenkov/homeserve/internal/service/settlement"
	"github.com/vladislavdragonenkov/homeserve/internal/version"
)

// Run собирает и запускает сервис: хранилище, шлюз, сервисы корзины и
// сверки, outbox worker и два HTTP-сервера (API и метрики). Блокируется
// до отмены контекста или фатальной ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	lifecycleMetrics := metrics.NewLifecycleMetrics()
	cartCache := cache.New(cfg.CartTTL)

	checkoutSvc := checkout.NewService(
		deps.Orders, deps.Payments, deps.SlogRepo, deps.Outbox,
		deps.Catalog, deps.Gateway, cartCache, deps.Locker,
		checkout.Options{
			Currency: cfg.Currency,
			TaxRate:  domain.NewCalculator(cfg.TaxRate),
			Logger:   logger.WithField("component", "checkout"),
			Metrics:  lifecycleMetrics,
		},
	)
	settlementSvc := settlement.NewService(
		deps.Orders, deps.Payments, deps.SlogRepo, deps.Outbox,
		deps.Gateway, deps.Locker,
		settlement.Options{
			Logger:  logger.WithField("component", "settlement"),
			Metrics: lifecycleMetrics,
		},
	)

	kafkaProducer := initKafkaProducer(cfg.KafkaBrokers, logger)
	defer closeKafka(kafkaProducer, logger)
	startOutboxWorker(ctx, cfg, deps.Outbox, kafkaProducer, logger)

	healthHandler := healthcheck.NewHandler(version.String())
	if deps.store != nil {
		healthHandler.RegisterChecker("postgres", healthcheck.NewSimpleChecker("postgres", func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return deps.store.Ping(pingCtx)
		}))
	}
	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)
	defer shutdownHTTP(metricsSrv, logger)

	handler := rest.NewHandler(checkoutSvc, settlementSvc, deps.Orders, deps.Payments, logger.WithField("component", "rest"))
	server := rest.NewServer(cfg.HTTPAddr, handler, logger.WithField("component", "rest"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем HTTP сервер")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Warn("HTTP shutdown with error")
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// initKafkaProducer создаёт producer, если заданы brokers. Ошибка не
// фатальна: события остаются в outbox до восстановления брокера.
func initKafkaProducer(brokers string, logger *log.Entry) *kafka.Producer {
	if brokers == "" {
		logger.Warn("no kafka brokers configured, notification events stay in outbox")
		return nil
	}
	brokerList := strings.Split(brokers, ",")
	producer, err := kafka.NewProducer(brokerList)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil
	}
	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer
}

// closeKafka закрывает producer, если он был создан.
func closeKafka(producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Info("kafka producer closed")
	}
}

// startOutboxWorker запускает воркер публикации событий уведомлений.
// Без Kafka worker не стартует: outbox продолжает накапливать события.
func startOutboxWorker(ctx context.Context, cfg Config, repo domain.OutboxRepository, producer *kafka.Producer, logger *log.Entry) {
	if producer == nil {
		return
	}
	worker := outbox.NewWorker(
		repo,
		kafka.NewOutboxPublisher(producer, kafka.TopicOrderEvents),
		outbox.WithLogger(logger.WithField("component", "outbox-worker")),
		outbox.WithDLQPublisher(kafka.NewOutboxPublisher(producer, kafka.TopicDeadLetterQueue)),
		outbox.WithPollInterval(cfg.OutboxPollEvery),
		outbox.WithBatchSize(cfg.OutboxBatchSize),
		outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
	)
	go worker.Run(ctx)
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
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
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
