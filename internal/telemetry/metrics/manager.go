package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests             *prometheus.CounterVec
	CounterHandleRequestPanic   prometheus.Counter
	CounterRateLimitedRequests  prometheus.Counter
	CounterTimerTransitions     *prometheus.CounterVec
	CounterPersistenceFailures  *prometheus.CounterVec
	CounterAchievementsUnlocked prometheus.Counter
	CounterAnalyticsCacheHits   prometheus.Counter
	CounterAnalyticsCacheMisses prometheus.Counter

	// gauges
	GaugeRequests     prometheus.Gauge
	GaugeLifeSignal   prometheus.Gauge
	GaugeActiveTimers prometheus.Gauge

	// histograms
	HistogramRequestDuration *prometheus.HistogramVec
	HistSessionDuration      prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("edgetrack", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("edgetrack", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})
	counterTimerTransitions := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "timer_transitions",
		Help:      "Timer phase transitions, by target phase",
	}, []string{"phase"})
	counterPersistenceFailures := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "persistence_failures",
		Help:      "Failed writes that did not block a timer transition, by operation",
	}, []string{"operation"})
	counterAchievementsUnlocked := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "achievements_unlocked",
		Help:      "The total number of unlocked achievements",
	})
	counterAnalyticsCacheHits := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "analytics_cache_hits",
		Help:      "Analytics served from cache",
	})
	counterAnalyticsCacheMisses := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "analytics_cache_misses",
		Help:      "Analytics recomputed from session history",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})
	gaugeActiveTimers := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "active_timers",
		Help:      "Timers currently in the active or edging phase",
	})

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})
	histSessionDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "session_duration_seconds",
		Help:      "Total duration of finished sessions in seconds",
		Buckets:   []float64{60, 180, 300, 600, 900, 1200, 1800, 2700, 3600, 5400, 7200},
	})

	return &Manager{
		CounterRequests:             counterRequests,
		CounterHandleRequestPanic:   counterHandleRequestPanic,
		CounterRateLimitedRequests:  counterRateLimitedRequests,
		CounterTimerTransitions:     counterTimerTransitions,
		CounterPersistenceFailures:  counterPersistenceFailures,
		CounterAchievementsUnlocked: counterAchievementsUnlocked,
		CounterAnalyticsCacheHits:   counterAnalyticsCacheHits,
		CounterAnalyticsCacheMisses: counterAnalyticsCacheMisses,
		GaugeRequests:               gaugeRequests,
		GaugeLifeSignal:             gaugeLifeSignal,
		GaugeActiveTimers:           gaugeActiveTimers,
		HistogramRequestDuration:    histogramRequestDuration,
		HistSessionDuration:         histSessionDuration,
	}
}
