package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Planner metrics. Labels are bounded: outcome and method are small enums
// and day is one of five weekdays.
var (
	PlanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_runs_total",
			Help: "Planning runs by outcome (ok, invalid, error).",
		},
		[]string{"outcome"},
	)

	PlanDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "planner_run_duration_seconds",
			Help:    "Wall time of successful planning runs.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	MatchMethods = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "planner_match_method_total",
			Help: "Matched days by method and weekday.",
		},
		[]string{"method", "day"},
	)

	OptimizerFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_optimizer_fallbacks_total",
			Help: "Runs that fell back to local matching after the remote optimizer failed.",
		},
	)

	UnseatedEmployees = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "planner_unseated_employees_total",
			Help: "Scheduled employee-days left without a seat.",
		},
	)

	FeedbackSubmissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedback_submissions_total",
			Help: "Satisfaction feedback submissions by outcome (ok, invalid, error).",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		PlanRuns,
		PlanDuration,
		MatchMethods,
		OptimizerFallbacks,
		UnseatedEmployees,
		FeedbackSubmissions,
	)
}
