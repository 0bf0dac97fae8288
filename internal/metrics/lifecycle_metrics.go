package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics содержит метрики жизненного цикла заказа и платежа.
type LifecycleMetrics struct {
	// Счётчики оформления
	checkoutStarted     prometheus.Counter
	checkoutCompleted   prometheus.Counter
	checkoutFailed      prometheus.Counter
	checkoutCompensated prometheus.Counter

	// Счётчики сверки уведомлений
	notificationsReceived  prometheus.Counter
	notificationsDuplicate prometheus.Counter
	notificationsInvalid   prometheus.Counter
	reconcileCompleted     prometheus.Counter
	reconcileFailed        prometheus.Counter

	// Кэш корзины
	cartCacheHits   prometheus.Counter
	cartCacheMisses prometheus.Counter

	// Гистограммы времени выполнения
	checkoutDuration  prometheus.Histogram
	reconcileDuration prometheus.Histogram
}

// NewLifecycleMetrics создаёт и регистрирует метрики в default registerer.
func NewLifecycleMetrics() *LifecycleMetrics {
	return newLifecycleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newLifecycleMetricsWithRegisterer(registerer prometheus.Registerer) *LifecycleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &LifecycleMetrics{
		checkoutStarted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_checkout_started_total",
			Help: "Total number of checkout attempts started",
		}),
		checkoutCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_checkout_completed_total",
			Help: "Total number of checkouts that produced a payment session",
		}),
		checkoutFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_checkout_failed_total",
			Help: "Total number of checkouts rejected or failed",
		}),
		checkoutCompensated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_checkout_compensated_total",
			Help: "Total number of checkouts reverted to draft after a gateway failure",
		}),
		notificationsReceived: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_settlement_notifications_total",
			Help: "Total number of inbound settlement notifications",
		}),
		notificationsDuplicate: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_settlement_notifications_duplicate_total",
			Help: "Total number of duplicate settlement notifications (safe no-op)",
		}),
		notificationsInvalid: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_settlement_notifications_invalid_total",
			Help: "Total number of notifications rejected by integrity checks",
		}),
		reconcileCompleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_reconcile_completed_total",
			Help: "Total number of reconciliations that moved the order forward",
		}),
		reconcileFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_reconcile_failed_total",
			Help: "Total number of reconciliations that failed",
		}),
		cartCacheHits: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_cart_cache_hits_total",
			Help: "Total number of cart reads served by the cache",
		}),
		cartCacheMisses: registerCounter(registerer, prometheus.CounterOpts{
			Name: "homeserve_cart_cache_misses_total",
			Help: "Total number of cart reads rebuilt from the draft order",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "homeserve_checkout_duration_seconds",
			Help:    "Duration of checkout operations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		reconcileDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "homeserve_reconcile_duration_seconds",
			Help:    "Duration of settlement reconciliations in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordCheckoutStarted учитывает начатое оформление.
func (m *LifecycleMetrics) RecordCheckoutStarted() {
	if m != nil {
		m.checkoutStarted.Inc()
	}
}

// RecordCheckoutCompleted учитывает успешное оформление.
func (m *LifecycleMetrics) RecordCheckoutCompleted() {
	if m != nil {
		m.checkoutCompleted.Inc()
	}
}

// RecordCheckoutFailed учитывает отклонённое или сорвавшееся оформление.
func (m *LifecycleMetrics) RecordCheckoutFailed() {
	if m != nil {
		m.checkoutFailed.Inc()
	}
}

// RecordCheckoutCompensated учитывает компенсацию после сбоя шлюза.
func (m *LifecycleMetrics) RecordCheckoutCompensated() {
	if m != nil {
		m.checkoutCompensated.Inc()
	}
}

// RecordCheckoutDuration учитывает длительность оформления.
func (m *LifecycleMetrics) RecordCheckoutDuration(d time.Duration) {
	if m != nil {
		m.checkoutDuration.Observe(d.Seconds())
	}
}

// RecordNotificationReceived учитывает входящее уведомление.
func (m *LifecycleMetrics) RecordNotificationReceived() {
	if m != nil {
		m.notificationsReceived.Inc()
	}
}

// RecordNotificationDuplicate учитывает дубликат уведомления.
func (m *LifecycleMetrics) RecordNotificationDuplicate() {
	if m != nil {
		m.notificationsDuplicate.Inc()
	}
}

// RecordNotificationInvalid учитывает уведомление, отклонённое проверками целостности.
func (m *LifecycleMetrics) RecordNotificationInvalid() {
	if m != nil {
		m.notificationsInvalid.Inc()
	}
}

// RecordReconcileCompleted учитывает завершённую сверку.
func (m *LifecycleMetrics) RecordReconcileCompleted() {
	if m != nil {
		m.reconcileCompleted.Inc()
	}
}

// RecordReconcileFailed учитывает сорвавшуюся сверку.
func (m *LifecycleMetrics) RecordReconcileFailed() {
	if m != nil {
		m.reconcileFailed.Inc()
	}
}

// RecordReconcileDuration учитывает длительность сверки.
func (m *LifecycleMetrics) RecordReconcileDuration(d time.Duration) {
	if m != nil {
		m.reconcileDuration.Observe(d.Seconds())
	}
}

// RecordCartCacheHit учитывает чтение корзины из кэша.
func (m *LifecycleMetrics) RecordCartCacheHit() {
	if m != nil {
		m.cartCacheHits.Inc()
	}
}

// RecordCartCacheMiss учитывает деградацию к чтению черновика из БД.
func (m *LifecycleMetrics) RecordCartCacheMiss() {
	if m != nil {
		m.cartCacheMisses.Inc()
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}
