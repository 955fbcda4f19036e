package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle
	MatchesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clicker_matches_created_total",
		Help: "Matches created, by kind",
	}, []string{"kind"})
	MatchesStartedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clicker_matches_started_total",
		Help: "Matches moved to in_progress, by kind",
	}, []string{"kind"})
	MatchesCompletedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clicker_matches_completed_total",
		Help: "Matches completed, by outcome (win or draw)",
	}, []string{"outcome"})
	FinishReplaysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicker_finish_replays_total",
		Help: "Finish calls answered from a stored result",
	})
	FinishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicker_finish_errors_total",
		Help: "Finish transactions that rolled back on a storage error",
	})
	FinishLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "clicker_finish_latency_seconds",
		Help:    "Latency of the finish-and-rate transaction",
		Buckets: prometheus.DefBuckets,
	})

	// Matchmaking
	MatchmakingPairedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicker_matchmaking_paired_total",
		Help: "Matchmaking requests that claimed a waiting opponent",
	})
	MatchmakingQueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicker_matchmaking_queued_total",
		Help: "Matchmaking requests that ended up waiting",
	})
	StaleWaitingDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicker_stale_waiting_deleted_total",
		Help: "Abandoned waiting matchmaking entries removed by the sweep",
	})

	// Battle
	ClickReportsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicker_click_reports_total",
		Help: "Accepted click count reports",
	})

	// Outbound
	ResultPublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicker_result_publish_errors_total",
		Help: "Errors publishing completed results to the results stream",
	})
	ArchivedMatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clicker_archived_matches_total",
		Help: "Completed matches exported to object storage",
	})

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "clicker_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler exposes the default registry on a fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
