// Package metrics объявляет prometheus-метрики планировщика уведомлений
// и проверки тарифа. Метрики регистрируются в реестре по умолчанию и
// отдаются через promhttp на /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "juridico"

// Исходы обработки одной записи диспетчером.
const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

var (
	// DispatchTotal количество обработанных напоминаний по типу записи и исходу.
	DispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "dispatch_total",
		Help:      "Reminders processed by the dispatcher, by record kind and outcome.",
	}, []string{"kind", "outcome"})

	// ScanRecords количество записей, найденных сканером.
	ScanRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "scan_records_total",
		Help:      "Records returned by due-item scans.",
	}, []string{"kind"})

	// JobRuns количество запусков задач планировщика по результату.
	JobRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "job_runs_total",
		Help:      "Scheduler job runs, by job and result.",
	}, []string{"job", "result"})

	// JobDuration длительность задач планировщика.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "scheduler",
		Name:      "job_duration_seconds",
		Help:      "Scheduler job duration.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"job"})

	// FlagsReset количество сброшенных флагов напоминаний.
	FlagsReset = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "flags_reset_total",
		Help:      "Reminder flags cleared by the daily reset.",
	}, []string{"kind"})

	// EntitlementDecisions решения политики доступа по причине.
	EntitlementDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "entitlement",
		Name:      "decisions_total",
		Help:      "Plan gating decisions, by reason (ALLOWED when permitted).",
	}, []string{"reason"})
)
