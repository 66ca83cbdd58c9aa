package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Admission and dispatch outcome labels.
const (
	OutcomeAdmitted  = "admitted"
	OutcomeMalformed = "malformed"
	OutcomeSpoofed   = "spoofed"
	OutcomeQueueFull = "queue_full"

	ResultForwarded = "forwarded"
	ResultDropped   = "dropped"
)

var (
	registerOnce sync.Once

	packetsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admiral",
			Name:      "packets_received_total",
			Help:      "Packets read by the network loop, by codec result.",
		},
		[]string{"result"},
	)
	admissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admiral",
			Name:      "admissions_total",
			Help:      "Admission decisions by connecting endpoint.",
		},
		[]string{"endpoint", "outcome"},
	)
	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admiral",
			Name:      "dispatch_total",
			Help:      "Broker dispatch results by destination.",
		},
		[]string{"destination", "result"},
	)
	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "admiral",
			Name:      "queue_depth",
			Help:      "Messages currently held by the queue.",
		},
	)
	forwardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "admiral",
			Name:      "forward_duration_seconds",
			Help:      "Time spent forwarding one message, retries included.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"destination"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admiral",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "admiral",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			packetsReceived,
			admissions,
			dispatches,
			queueDepth,
			forwardDuration,
			httpRequests,
			httpDuration,
		)
	})
}

// RecordPacket counts one network-loop read; result is a packet.Code string.
func RecordPacket(result string) {
	RegisterMetrics()
	packetsReceived.WithLabelValues(result).Inc()
}

func RecordAdmission(endpoint, outcome string) {
	RegisterMetrics()
	admissions.WithLabelValues(endpoint, outcome).Inc()
}

func RecordDispatch(destination, result string, duration time.Duration) {
	RegisterMetrics()
	dispatches.WithLabelValues(destination, result).Inc()
	forwardDuration.WithLabelValues(destination).Observe(duration.Seconds())
}

func SetQueueDepth(depth int) {
	RegisterMetrics()
	queueDepth.Set(float64(depth))
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}
