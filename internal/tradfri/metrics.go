package tradfri

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradfrid_commands_total",
		Help: "The total number of commands submitted to the gateway",
	}, []string{"target", "op", "result"})

	observeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradfrid_observe_notifications_total",
		Help: "The total number of push notifications received",
	}, []string{"target"})

	observeReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradfrid_observe_reconnects_total",
		Help: "The total number of observation re-subscription attempts",
	}, []string{"target"})
)
