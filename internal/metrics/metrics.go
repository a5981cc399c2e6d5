// Package metrics регистрирует счётчики Prometheus бота.
// Все методы безопасны для nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics счётчики событий, напоминаний и рассылок.
type Metrics struct {
	events    *prometheus.CounterVec
	reminders *prometheus.CounterVec
	broadcast *prometheus.CounterVec
	ticks     prometheus.Counter
}

// New создаёт счётчики и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "habit_bot",
			Name:      "events_total",
			Help:      "Inbound transport events by kind.",
		}, []string{"kind"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "habit_bot",
			Name:      "reminders_total",
			Help:      "Reminder dispatch attempts by result.",
		}, []string{"result"}),
		broadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "habit_bot",
			Name:      "broadcast_deliveries_total",
			Help:      "Broadcast deliveries by result.",
		}, []string{"result"}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "habit_bot",
			Name:      "scheduler_ticks_total",
			Help:      "Processed scheduler ticks.",
		}),
	}
	reg.MustRegister(m.events, m.reminders, m.broadcast, m.ticks)
	return m
}

// Event учитывает входящее событие вида kind (command, text, selection).
func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(kind).Inc()
}

// Reminder учитывает попытку отправки напоминания.
func (m *Metrics) Reminder(ok bool) {
	if m == nil {
		return
	}
	m.reminders.WithLabelValues(result(ok)).Inc()
}

// Broadcast учитывает доставку одного сообщения рассылки.
func (m *Metrics) Broadcast(ok bool) {
	if m == nil {
		return
	}
	m.broadcast.WithLabelValues(result(ok)).Inc()
}

// Tick учитывает обработанный тик планировщика.
func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.ticks.Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
