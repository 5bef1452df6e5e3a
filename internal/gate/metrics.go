package gate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: полный цикл Invoke (согласование + исполнение)
	InvokeDuration *prometheus.HistogramVec

	// Traffic: общее кол-во вызовов шлюза
	TotalInvocations *prometheus.CounterVec

	// Исходы по терминальным статусам (Rejected, Timeout, Error, Executed, ExecutionFailed)
	DecisionTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - Если рег не передан, используем локальный, который никуда не подключен
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		InvokeDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "oversight_invoke_duration_seconds",
			Help:    "Histogram of gated invocation latencies.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"agent", "status"}),

		TotalInvocations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "oversight_invocations_total",
			Help: "Total number of gated invocations.",
		}, []string{"agent", "action"}),

		DecisionTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "oversight_decisions_total",
			Help: "Terminal statuses of gated invocations.",
		}, []string{"status"}),
	}
}
