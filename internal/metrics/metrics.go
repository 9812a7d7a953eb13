package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	OffersComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_offers_total",
			Help: "Number of course offers computed, by selected action",
		},
		[]string{"action"},
	)

	EnrollSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_submissions_total",
			Help: "Number of enroll/upgrade submissions, by outcome",
		},
		[]string{"outcome"},
	)

	Moderations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enrollment_moderations_total",
			Help: "Admin approve/reject decisions, by decision and outcome",
		},
		[]string{"decision", "outcome"},
	)

	UpstreamResponses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_responses_total",
			Help: "Responses received from the platform API, by status code",
		},
		[]string{"code"},
	)

	UpstreamLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name: "upstream_request_duration_seconds",
			Help: "Time taken by platform API requests",
		},
	)

	TokenRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_token_refreshes_total",
			Help: "Access token refresh attempts, by outcome",
		},
		[]string{"outcome"},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(OffersComputed, EnrollSubmissions, Moderations, UpstreamResponses, UpstreamLatency, TokenRefreshes)
}
