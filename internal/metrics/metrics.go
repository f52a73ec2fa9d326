package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	PostsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_posts_submitted_total",
			Help: "Total number of posts submitted",
		},
		[]string{"topic"},
	)
	RatingsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_ratings_recorded_total",
			Help: "Total number of ratings recorded",
		},
		[]string{"score"},
	)
	RatingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "community_rating_conflicts_total",
			Help: "Concurrent writes that forced a rating to be retried",
		},
	)
	BadgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_badges_awarded_total",
			Help: "Total number of badges awarded",
		},
		[]string{"badge"},
	)
	BadgeEvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "community_badge_evaluation_duration_seconds",
			Help:    "Time spent scanning workspaces to evaluate a user's badges",
			Buckets: prometheus.DefBuckets,
		},
	)
	PushNotifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "community_push_notifications_total",
			Help: "Badge push notifications by outcome",
		},
		[]string{"outcome"},
	)
)

// Register adds the community metrics to reg. Call once from main.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		PostsSubmitted,
		RatingsRecorded,
		RatingConflicts,
		BadgesAwarded,
		BadgeEvaluationDuration,
		PushNotifications,
	)
}
