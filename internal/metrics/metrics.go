// Package metrics provides the centralized Prometheus metrics registry for
// the analysis pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	RacesAnalyzedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_edge",
		Name:      "races_analyzed_total",
		Help:      "Total number of races analyzed",
	})
	AnalysisFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_edge",
		Name:      "analysis_failures_total",
		Help:      "Total number of failed analysis runs",
	})
	RecommendationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "keiba_edge",
		Name:      "recommendations_total",
		Help:      "Total number of bet recommendations emitted by bet type",
	}, []string{"bet_type"})
	NoBetTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_edge",
		Name:      "no_bet_total",
		Help:      "Total number of analysis runs that produced no qualifying bet",
	})
	RecalculationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_edge",
		Name:      "recalculations_total",
		Help:      "Total number of live-triggered model recalculations",
	})
	BetsSettledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_edge",
		Name:      "bets_settled_total",
		Help:      "Total number of bets settled",
	})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "keiba_edge",
		Name:      "analysis_cache_hits_total",
		Help:      "Total number of analysis cache hits",
	})
)

// Gauge metrics
var (
	CurrentBankroll = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba_edge",
		Name:      "current_bankroll",
		Help:      "Current bankroll in yen",
	})
	CurrentDrawdown = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba_edge",
		Name:      "current_drawdown",
		Help:      "Fractional decline from the initial bankroll",
	})
	MonitoredRaces = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "keiba_edge",
		Name:      "monitored_races",
		Help:      "Number of races under live monitoring",
	})
)

// Histogram metrics
var (
	AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "keiba_edge",
		Name:      "analysis_duration_seconds",
		Help:      "Duration of full race analysis runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	SimulationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "keiba_edge",
		Name:      "simulation_duration_seconds",
		Help:      "Duration of Monte Carlo simulation runs in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(RacesAnalyzedTotal)
		registry.MustRegister(AnalysisFailuresTotal)
		registry.MustRegister(RecommendationsTotal)
		registry.MustRegister(NoBetTotal)
		registry.MustRegister(RecalculationsTotal)
		registry.MustRegister(BetsSettledTotal)
		registry.MustRegister(CacheHitsTotal)

		registry.MustRegister(CurrentBankroll)
		registry.MustRegister(CurrentDrawdown)
		registry.MustRegister(MonitoredRaces)

		registry.MustRegister(AnalysisDuration)
		registry.MustRegister(SimulationDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordAnalysis records one completed race analysis.
func RecordAnalysis(durationSeconds float64) {
	RacesAnalyzedTotal.Inc()
	AnalysisDuration.Observe(durationSeconds)
}

// RecordAnalysisFailure records one failed analysis run.
func RecordAnalysisFailure() {
	AnalysisFailuresTotal.Inc()
}

// RecordRecommendation records one emitted recommendation.
func RecordRecommendation(betType string) {
	RecommendationsTotal.WithLabelValues(betType).Inc()
}

// RecordNoBet records an analysis run with no qualifying bet.
func RecordNoBet() {
	NoBetTotal.Inc()
}

// RecordRecalculation records a live-triggered model rebuild.
func RecordRecalculation() {
	RecalculationsTotal.Inc()
}

// RecordBetSettled records a bet settlement event.
func RecordBetSettled() {
	BetsSettledTotal.Inc()
}

// RecordCacheHit records an analysis cache hit.
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordSimulation records one Monte Carlo run.
func RecordSimulation(durationSeconds float64) {
	SimulationDuration.Observe(durationSeconds)
}

// UpdateBankroll updates the current bankroll gauge.
func UpdateBankroll(amount float64) {
	CurrentBankroll.Set(amount)
}

// UpdateDrawdown updates the current drawdown gauge.
func UpdateDrawdown(drawdown float64) {
	CurrentDrawdown.Set(drawdown)
}

// UpdateMonitoredRaces updates the monitored races gauge.
func UpdateMonitoredRaces(count float64) {
	MonitoredRaces.Set(count)
}
