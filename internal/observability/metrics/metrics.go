package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulerMetrics exposes counters/gauges for the allocation and booking flows.
type SchedulerMetrics struct {
	ledgerOps        *prometheus.CounterVec
	appointments     *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	remindersPending prometheus.Gauge
}

func NewSchedulerMetrics(reg prometheus.Registerer) *SchedulerMetrics {
	m := &SchedulerMetrics{
		ledgerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "referral_scheduler",
			Name:      "ledger_operations_total",
			Help:      "Session ledger operations by op and result",
		}, []string{"op", "result"}),
		appointments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "referral_scheduler",
			Name:      "appointments_total",
			Help:      "Appointment lifecycle events",
		}, []string{"event"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "referral_scheduler",
			Name:      "notifications_total",
			Help:      "Outbound notifications by method and status",
		}, []string{"method", "status"}),
		remindersPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "referral_scheduler",
			Name:      "reminders_pending",
			Help:      "Reminders waiting to fire",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.ledgerOps, m.appointments, m.notifications, m.remindersPending)
	return m
}

func (m *SchedulerMetrics) ObserveLedger(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.ledgerOps.WithLabelValues(op, result).Inc()
}

func (m *SchedulerMetrics) ObserveAppointment(event string) {
	if m == nil {
		return
	}
	m.appointments.WithLabelValues(event).Inc()
}

func (m *SchedulerMetrics) ObserveNotification(method string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.notifications.WithLabelValues(method, status).Inc()
}

func (m *SchedulerMetrics) SetRemindersPending(n int) {
	if m == nil {
		return
	}
	m.remindersPending.Set(float64(n))
}
