package state

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lunchbot_commands_total",
		Help: "Recognized commands applied, by command.",
	}, []string{"command"})

	unrecognizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lunchbot_unrecognized_total",
		Help: "Lines that matched no command and got the usage reply.",
	})

	proposalsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lunchbot_proposals_expired_total",
		Help: "Proposals removed by the expiry sweep.",
	})

	proposalsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lunchbot_proposals",
		Help: "Proposals currently open.",
	})
)
