package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegardener_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "codegardener_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AIFeedbackRequests counts AI feedback generations by outcome.
	AIFeedbackRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegardener_ai_feedback_requests_total",
		Help: "Total number of AI feedback generations by outcome",
	}, []string{"outcome"})

	// AIFeedbackLatency records AI feedback generation latency.
	AIFeedbackLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codegardener_ai_feedback_latency_seconds",
		Help:    "AI feedback generation latency in seconds",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
	})

	// PointsAwarded counts reputation points granted by source.
	PointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegardener_points_awarded_total",
		Help: "Total reputation points granted by source",
	}, []string{"source"})

	// AttendanceChecks counts daily attendance check-ins.
	AttendanceChecks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codegardener_attendance_checks_total",
		Help: "Total number of successful daily attendance check-ins",
	})

	// PostsCreated counts posts created by content type.
	PostsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegardener_posts_created_total",
		Help: "Total number of posts created by content type",
	}, []string{"content_type"})

	// FeedbackCreated counts feedback entries created.
	FeedbackCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codegardener_feedback_created_total",
		Help: "Total number of feedback entries created",
	})

	// FeedbackAdopted counts feedback adoptions.
	FeedbackAdopted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codegardener_feedback_adopted_total",
		Help: "Total number of feedback entries adopted by post authors",
	})

	// RateLimitRejections counts requests rejected by the write-path limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codegardener_rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter, by resource",
	}, []string{"resource"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}
