package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradfrid_mqtt_publishes_total",
		Help: "The total number of MQTT messages published, by message kind",
	}, []string{"kind", "result"})

	commandsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradfrid_mqtt_commands_received_total",
		Help: "The total number of set commands received over MQTT",
	}, []string{"target", "result"})
)
