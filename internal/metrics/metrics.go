package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "evaluations_total", Help: "Condition evaluations dispatched"},
		[]string{"trader", "symbol"},
	)
	MatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "matches_total", Help: "Conditions evaluated to matched"},
		[]string{"trader", "symbol"},
	)
	TimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "timeouts_total", Help: "Sandbox executions killed by timeout"},
		[]string{"trader", "symbol"},
	)
	EvalErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "eval_errors_total", Help: "Condition compile/runtime errors"},
		[]string{"trader", "symbol"},
	)
	SeriesFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "series_failures_total", Help: "Series evaluation/validation failures (signal still created)"},
		[]string{"trader", "symbol"},
	)
	SignalsDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "signals_dropped_total", Help: "Signals lost after exhausting the persistence retry budget"},
	)
	EvaluationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evaluation_seconds",
			Help:    "Per (trader, symbol) evaluation unit latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trader", "symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		EvaluationsTotal, MatchesTotal, TimeoutsTotal,
		EvalErrorsTotal, SeriesFailuresTotal, SignalsDroppedTotal,
		EvaluationSeconds,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
