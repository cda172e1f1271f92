package culling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	stateLabel  = "state"
	resultLabel = "result"
)

var (
	cullingTrackedObjects = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "culling_tracked_objects",
		Help: "The number of drawables registered for culling.",
	})

	cullingPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "culling_passes",
		Help: "The number of visibility classification passes.",
	})

	cullingSkippedPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "culling_skipped_passes",
		Help: "The number of passes skipped because no camera was set.",
	})

	cullingPassLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "culling_pass_latency",
		Help: "The time to run a visibility classification pass.",
	})

	cullingObjects = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "culling_objects",
		Help: "The number of drawables by render state after the last pass.",
	}, []string{
		stateLabel,
	})

	cullingInvalidObjects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "culling_invalid_objects",
		Help: "The number of destroyed drawables skipped by passes.",
	})

	cullingRaycasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "culling_raycasts",
		Help: "The number of occlusion rays cast.",
	}, []string{
		resultLabel,
	})
)

func instrumentTrackedObjects(count int) {
	cullingTrackedObjects.Set(float64(count))
}

func instrumentPass(res PassResult) {
	cullingPasses.Inc()
	cullingPassLatency.Observe(res.Duration.Seconds())
	cullingInvalidObjects.Add(float64(res.Skipped))

	for _, s := range []RenderState{
		RenderStateUnclassified,
		RenderStateHidden,
		RenderStateVisible,
		RenderStateShadowOnly,
	} {
		cullingObjects.
			With(prometheus.Labels{stateLabel: s.String()}).
			Set(float64(res.Counts[s]))
	}
}

func instrumentSkippedPass() {
	cullingSkippedPasses.Inc()
}

func instrumentRaycast(visible bool) {
	result := "occluded"
	if visible {
		result = "visible"
	}

	cullingRaycasts.
		With(prometheus.Labels{resultLabel: result}).
		Inc()
}
