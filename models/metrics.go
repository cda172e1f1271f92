package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sceneRendererCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scene_renderer_count",
		Help: "The number of renderers in the scene.",
	})

	sceneRendererCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_renderer_count_total",
		Help: "The total number of renderers added to the scene.",
	})

	sceneDestroyedRendererCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_destroyed_renderer_count_total",
		Help: "The total number of renderers destroyed.",
	})

	sceneMovedRendererCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scene_moved_renderer_count_total",
		Help: "The total number of renderer moves.",
	})
)

func instrumentRendererCount(count int) {
	sceneRendererCount.Set(float64(count))
}

func instrumentAddRenderer() {
	sceneRendererCountTotal.Inc()
}

func instrumentDestroyRenderer() {
	sceneDestroyedRendererCountTotal.Inc()
}

func instrumentMoveRenderer() {
	sceneMovedRendererCountTotal.Inc()
}
