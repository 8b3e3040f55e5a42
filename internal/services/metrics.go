package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatePassIssuedTotal - количество попыток выдачи пропуска по результату
	GatePassIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatepass_issued_total",
			Help: "Количество попыток выдачи пропуска",
		},
		[]string{"result"},
	)

	// GatePassIssueDuration - длительность транзакции выдачи пропуска
	GatePassIssueDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gatepass_issue_duration_seconds",
			Help:    "Длительность выдачи пропуска в секундах",
			Buckets: prometheus.DefBuckets,
		},
	)

	// NotificationsTotal - уведомления после выдачи пропуска
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gatepass_notifications_total",
			Help: "Количество уведомлений о пропуске",
		},
		[]string{"channel", "status"},
	)

	// DocumentsLinkedTotal - загрузки документов по типу сущности
	DocumentsLinkedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_linked_total",
			Help: "Количество привязанных документов",
		},
		[]string{"kind", "result"},
	)
)

func trackIssue(result string, started time.Time) {
	GatePassIssuedTotal.WithLabelValues(result).Inc()
	GatePassIssueDuration.Observe(time.Since(started).Seconds())
}
