package metrics

import "github.com/prometheus/client_golang/prometheus"

// PrometheusSink implements Sink with Prometheus client_golang
// counters/histograms, registered against the provided registerer.
// Exposition (mounting promhttp.Handler) is the caller's concern.
type PrometheusSink struct {
	trades         *prometheus.CounterVec
	riskBlocks     *prometheus.CounterVec
	feedReconnects prometheus.Counter
	cycleDuration  prometheus.Histogram
}

// NewPrometheusSink registers the trading core's metric families
// against reg and returns a Sink backed by them.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_trades_total",
			Help: "Trades executed, labeled by city, side, and outcome.",
		}, []string{"city", "side", "outcome"}),
		riskBlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecore_risk_blocks_total",
			Help: "Candidate trades blocked by the risk manager, labeled by reason.",
		}, []string{"reason"}),
		feedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecore_feed_reconnects_total",
			Help: "WebSocket feed reconnect attempts.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tradecore_cycle_duration_seconds",
			Help:    "Duration of one orchestration cycle.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(s.trades, s.riskBlocks, s.feedReconnects, s.cycleDuration)
	return s
}

func (s *PrometheusSink) IncTrades(city, side, outcome string) {
	s.trades.WithLabelValues(city, side, outcome).Inc()
}

func (s *PrometheusSink) IncRiskBlock(reason string) {
	s.riskBlocks.WithLabelValues(reason).Inc()
}

func (s *PrometheusSink) IncFeedReconnect() {
	s.feedReconnects.Inc()
}

func (s *PrometheusSink) ObserveCycleDuration(seconds float64) {
	s.cycleDuration.Observe(seconds)
}
