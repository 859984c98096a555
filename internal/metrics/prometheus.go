package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ChatRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bmax_chat_requests_total",
			Help: "Chat requests by outcome",
		},
		[]string{"status"},
	)

	ChatDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bmax_chat_duration_seconds",
			Help:    "Full chat pipeline duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	RankingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bmax_ranking_duration_seconds",
			Help:    "Relevance ranking duration per request",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	RankedResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bmax_ranked_results_count",
			Help:    "Records selected per ranking pass",
			Buckets: []float64{0, 1, 2, 3, 5, 6, 10},
		},
	)

	CompletionTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bmax_completion_tokens_total",
			Help: "Completion API tokens used",
		},
		[]string{"model", "type"},
	)

	CacheRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bmax_cache_refreshes_total",
			Help: "Tender snapshot refreshes by outcome",
		},
		[]string{"status"},
	)

	RecordsCached = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bmax_records_cached",
			Help: "Tender records in the current snapshot",
		},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bmax_active_sessions",
			Help: "Sessions currently held in memory",
		},
	)

	SessionsEvicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bmax_sessions_evicted_total",
			Help: "Sessions evicted by cause",
		},
		[]string{"cause"},
	)
)

func Init() {
	prometheus.MustRegister(ChatRequests)
	prometheus.MustRegister(ChatDuration)
	prometheus.MustRegister(RankingDuration)
	prometheus.MustRegister(RankedResults)
	prometheus.MustRegister(CompletionTokens)
	prometheus.MustRegister(CacheRefreshes)
	prometheus.MustRegister(RecordsCached)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(SessionsEvicted)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
