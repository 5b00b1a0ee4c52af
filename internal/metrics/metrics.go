// Package metrics — prometheus-счётчики операций workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Transitions — закоммиченные смены статуса по домену и целевому статусу.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "officehub_status_transitions_total",
		Help: "Committed status transitions by domain and target status",
	}, []string{"domain", "status"})

	// Rejections — операции, отклонённые до записи в БД.
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "officehub_status_transition_rejections_total",
		Help: "Rejected status transitions by domain and reason",
	}, []string{"domain", "reason"})

	// ActivityRecorded — записи журнала по домену и типу действия.
	ActivityRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "officehub_activity_recorded_total",
		Help: "Audit entries written by domain and action",
	}, []string{"domain", "action"})

	// PublishFailures — события, которые не удалось опубликовать.
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "officehub_activity_publish_failures_total",
		Help: "Activity events that failed to publish",
	})
)
