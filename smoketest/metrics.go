package smoketest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	smokeTestScenarios = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smoke_test_scenarios",
		Help: "The number of smoke test scenarios run.",
	}, []string{
		"scenario",
		"status",
	})

	smokeTestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "smoke_test_latency",
		Help: "The time to build and cull a smoke test scenario, in milliseconds.",
	}, []string{
		"scenario",
	})
)

func instrumentScenario(res ScenarioResult) {
	smokeTestScenarios.
		With(prometheus.Labels{
			"scenario": res.Name,
			"status":   res.Status,
		}).
		Inc()

	smokeTestLatency.
		With(prometheus.Labels{
			"scenario": res.Name,
		}).
		Observe(res.LatencyMilliSec)
}
