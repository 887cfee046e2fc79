package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var _ Collector = (*Service)(nil)

// Service is the Prometheus-backed Collector.
type Service struct {
	MatchesStarted        prometheus.Counter
	MatchesCompleted      prometheus.Counter
	RoundsResolved        *prometheus.CounterVec
	ReactionTime          prometheus.Histogram
	HistoryDropped        prometheus.Counter
	HistoryAppendFailures prometheus.Counter
}

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		MatchesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duel_matches_started_total",
			Help: "The total number of matches started.",
		}),
		MatchesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duel_matches_completed_total",
			Help: "The total number of matches played to completion.",
		}),
		RoundsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duel_rounds_resolved_total",
			Help: "The total number of resolved rounds by outcome.",
		}, []string{"outcome"}),
		ReactionTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "duel_reaction_time_seconds",
			Help:    "Valid reaction times measured from go to click.",
			Buckets: []float64{0.1, 0.15, 0.2, 0.25, 0.3, 0.4, 0.5, 0.75, 1, 2},
		}),
		HistoryDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duel_history_records_dropped_total",
			Help: "The total number of stored match records discarded as unreadable.",
		}),
		HistoryAppendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "duel_history_append_failures_total",
			Help: "The total number of match records that could not be stored.",
		}),
	}

	reg.MustRegister(
		s.MatchesStarted,
		s.MatchesCompleted,
		s.RoundsResolved,
		s.ReactionTime,
		s.HistoryDropped,
		s.HistoryAppendFailures,
	)

	return s
}

func (s *Service) MatchStarted() {
	s.MatchesStarted.Inc()
}

func (s *Service) RoundResolved(outcome string) {
	s.RoundsResolved.WithLabelValues(outcome).Inc()
}

func (s *Service) ObserveReaction(ms int64) {
	s.ReactionTime.Observe(float64(ms) / 1000)
}

func (s *Service) MatchCompleted() {
	s.MatchesCompleted.Inc()
}

func (s *Service) HistoryRecordsDropped(n int) {
	s.HistoryDropped.Add(float64(n))
}

func (s *Service) HistoryAppendFailed() {
	s.HistoryAppendFailures.Inc()
}
