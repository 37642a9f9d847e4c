package chat

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	activeConnections prometheus.Gauge
	connectsTotal     prometheus.Counter
	joinsTotal        prometheus.Counter
	sendsTotal        prometheus.Counter
	deliveriesTotal   prometheus.Counter
	rejectsTotal      *prometheus.CounterVec
	chatsCreated      prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "voluntor_chat_connections_active",
			Help: "Current number of live chat connections.",
		}),
		connectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voluntor_chat_connects_total",
			Help: "Connections accepted since start.",
		}),
		joinsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voluntor_chat_joins_total",
			Help: "Room joins handled.",
		}),
		sendsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voluntor_chat_sends_total",
			Help: "Messages persisted and broadcast.",
		}),
		deliveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voluntor_chat_deliveries_total",
			Help: "Per-recipient broadcast deliveries.",
		}),
		rejectsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voluntor_chat_rejects_total",
			Help: "Rejected sends grouped by reason.",
		}, []string{"reason"}),
		chatsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voluntor_chats_created_total",
			Help: "Durable chat records created.",
		}),
	}

	reg.MustRegister(
		m.activeConnections,
		m.connectsTotal,
		m.joinsTotal,
		m.sendsTotal,
		m.deliveriesTotal,
		m.rejectsTotal,
		m.chatsCreated,
	)
	return m
}

func (m *Metrics) connOpened() {
	if m == nil {
		return
	}
	m.activeConnections.Inc()
	m.connectsTotal.Inc()
}

func (m *Metrics) connClosed() {
	if m == nil {
		return
	}
	m.activeConnections.Dec()
}

func (m *Metrics) recordJoin() {
	if m == nil {
		return
	}
	m.joinsTotal.Inc()
}

func (m *Metrics) recordSend(delivered int) {
	if m == nil {
		return
	}
	m.sendsTotal.Inc()
	m.deliveriesTotal.Add(float64(delivered))
}

func (m *Metrics) recordReject(reason string) {
	if m == nil {
		return
	}
	m.rejectsTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) recordChatCreated() {
	if m == nil {
		return
	}
	m.chatsCreated.Inc()
}
