package maze

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	linesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mazetrack",
		Name:      "telemetry_lines_total",
		Help:      "Telemetry lines ingested, by message kind",
	}, []string{"kind"})

	treeDeltas = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mazetrack",
		Name:      "tree_deltas_total",
		Help:      "Exploration tree ingest results, by delta kind",
	}, []string{"kind"})

	treeNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mazetrack",
		Name:      "tree_nodes",
		Help:      "Nodes currently recorded in the exploration tree",
	})

	movesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mazetrack",
		Name:      "moves_total",
		Help:      "Pose transitions attempted, by source and result",
	}, []string{"source", "result"})

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mazetrack",
		Name:      "commands_sent_total",
		Help:      "Outbound commands, by transport and result",
	}, []string{"transport", "result"})

	reconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mazetrack",
		Name:      "transport_reconnects_total",
		Help:      "Telemetry stream reconnect attempts, by transport",
	}, []string{"transport"})
)

func countCommand(transport string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	commandsTotal.WithLabelValues(transport, result).Inc()
}
