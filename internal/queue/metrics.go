package queue

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	TasksEnqueuedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_enqueued_total",
			Help: "Tasks handed to the queue grouped by result",
		},
		[]string{"kind", "result"},
	)
	TasksProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_processed_total",
			Help: "Total tasks processed grouped by status",
		},
		[]string{"kind", "status"},
	)
)

// MustRegisterMetrics registers the queue collectors on reg once.
func MustRegisterMetrics(reg prometheus.Registerer) {
	metricsOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		reg.MustRegister(TasksEnqueuedTotal, TasksProcessedTotal)
	})
}

func recordProcessed(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	TasksProcessedTotal.WithLabelValues(kind, status).Inc()
}
