package metrics

import (
	"net/http"
	"strconv"

	"github.com/bnema/stars-relay/internal/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stars_relay"

type Recorder struct {
	registry        *prometheus.Registry
	monitorsActive  prometheus.Gauge
	monitorRestarts *prometheus.CounterVec
	eventsProcessed prometheus.Counter
	messagesSent    *prometheus.CounterVec
	purchases       *prometheus.CounterVec
	apiRetries      *prometheus.CounterVec
}

var _ ports.Metrics = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		monitorsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "monitors_active",
			Help:      "Thread monitors currently running.",
		}),
		monitorRestarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_restarts_total",
			Help:      "Thread monitor re-attachments after a failure.",
		}, []string{"buyer"}),
		eventsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Thread events fed through the fulfillment state machine.",
		}),
		messagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Outbound chat messages by outcome.",
		}, []string{"ok"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchase calls by outcome.",
		}, []string{"ok"}),
		apiRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_retries_total",
			Help:      "Failed API attempts that were retried or exhausted.",
		}, []string{"op"}),
	}

	r.registry.MustRegister(
		r.monitorsActive,
		r.monitorRestarts,
		r.eventsProcessed,
		r.messagesSent,
		r.purchases,
		r.apiRetries,
	)

	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) MonitorsActive(n int) {
	r.monitorsActive.Set(float64(n))
}

func (r *Recorder) MonitorRestarted(buyer string) {
	r.monitorRestarts.WithLabelValues(buyer).Inc()
}

func (r *Recorder) EventsProcessed(n int) {
	r.eventsProcessed.Add(float64(n))
}

func (r *Recorder) MessageSent(ok bool) {
	r.messagesSent.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (r *Recorder) PurchaseCompleted(ok bool) {
	r.purchases.WithLabelValues(strconv.FormatBool(ok)).Inc()
}

func (r *Recorder) APIRetry(op string) {
	r.apiRetries.WithLabelValues(op).Inc()
}
