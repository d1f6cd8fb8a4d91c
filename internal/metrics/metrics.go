package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/betbot/poolhedge/internal/hedge"
)

// Metrics 对冲引擎的 Prometheus 指标，实现 hedge.Observer
type Metrics struct {
	registry *prometheus.Registry

	Cycles       *prometheus.CounterVec
	Orders       *prometheus.CounterVec
	Accumulated  *prometheus.GaugeVec
	PassDuration prometheus.Histogram
}

// New 使用独立 registry 注册全部指标（附带 Go / 进程指标）
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Cycles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hedger",
			Name:      "cycles_total",
			Help:      "Pool cycles by outcome (skip reason or reconciliation outcome)",
		}, []string{"pool", "outcome"}),
		Orders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hedger",
			Name:      "orders_total",
			Help:      "Hedge orders placed, by final order state",
		}, []string{"pool", "side", "state"}),
		Accumulated: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "hedger",
			Name:      "accumulated_delta",
			Help:      "Unhedged accumulated delta in minimal units",
		}, []string{"pool", "leg"}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hedger",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one pass over all pools",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveCycle(result hedge.CycleResult, accBase, accQuote decimal.Decimal) {
	m.Cycles.WithLabelValues(result.Pool, result.Outcome()).Inc()
	if result.Reconcile != nil && result.Plan != nil {
		m.Orders.WithLabelValues(result.Pool, result.Plan.Side.String(), result.Reconcile.FinalState.String()).Inc()
	}
	m.Accumulated.WithLabelValues(result.Pool, "base").Set(accBase.InexactFloat64())
	m.Accumulated.WithLabelValues(result.Pool, "quote").Set(accQuote.InexactFloat64())
}

func (m *Metrics) ObservePass(d time.Duration) {
	m.PassDuration.Observe(d.Seconds())
}
