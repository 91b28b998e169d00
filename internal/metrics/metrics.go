package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Rooms is the number of live rooms, by backend type.
	Rooms = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "proximity",
		Name:      "rooms",
		Help:      "Number of live rooms",
	}, []string{"backend"})

	// Clients is the number of connected viewers.
	Clients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "proximity",
		Name:      "clients",
		Help:      "Number of connected viewers",
	})

	Facts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proximity",
		Name:      "facts_total",
		Help:      "Facts received from upstream adapters",
	}, []string{"kind"})

	RejectedCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "proximity",
		Name:      "rejected_commands_total",
		Help:      "Viewer commands rejected with an error",
	}, []string{"reason"})

	DroppedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "proximity",
		Name:      "dropped_frames_total",
		Help:      "Frames dropped because a viewer connection was backed up",
	})
)

// Handler exposes the default Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
