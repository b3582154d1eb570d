// Package metrics holds the bot's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "habitbot"

// Metrics records bot activity. It satisfies the recorder interfaces of the
// logger middleware, the habit service and the reminder scheduler.
type Metrics struct {
	registry *prometheus.Registry

	updates            *prometheus.CounterVec
	habitLogs          *prometheus.CounterVec
	remindersScheduled prometheus.Counter
	remindersDelivered *prometheus.CounterVec
	reminderJobs       prometheus.Gauge
}

// New registers all collectors on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		updates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Telegram updates received, by type.",
		}, []string{"type"}),
		habitLogs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "habit_logs_total",
			Help:      "Habit log attempts, by result.",
		}, []string{"result"}),
		remindersScheduled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_scheduled_total",
			Help:      "Reminder jobs scheduled.",
		}),
		remindersDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_delivered_total",
			Help:      "Reminder deliveries, by result.",
		}, []string{"result"}),
		reminderJobs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reminder_jobs_active",
			Help:      "Reminder jobs currently pending.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveUpdate counts one incoming update.
func (m *Metrics) ObserveUpdate(kind string) {
	m.updates.WithLabelValues(kind).Inc()
}

// HabitLogged counts one log attempt.
func (m *Metrics) HabitLogged(result string) {
	m.habitLogs.WithLabelValues(result).Inc()
}

func (m *Metrics) ReminderScheduled() {
	m.remindersScheduled.Inc()
	m.reminderJobs.Inc()
}

func (m *Metrics) ReminderCancelled() {
	m.reminderJobs.Dec()
}

// ReminderDelivered counts a fired reminder. The fired job is no longer
// pending whatever the outcome.
func (m *Metrics) ReminderDelivered(ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	m.remindersDelivered.WithLabelValues(result).Inc()
	m.reminderJobs.Dec()
}
