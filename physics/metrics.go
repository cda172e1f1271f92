package physics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	physicsColliders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "physics_colliders",
		Help: "The number of colliders in the physics world.",
	})

	physicsRaycasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "physics_raycasts",
		Help: "The number of raycasts.",
	})

	physicsRaycastCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "physics_raycast_candidates",
		Help:    "The number of colliders tested by a raycast after the broad phase.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	physicsRaycastHits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "physics_raycast_hits",
		Help:    "The number of hits returned by a raycast.",
		Buckets: prometheus.LinearBuckets(0, 1, 8),
	})
)

func instrumentColliderCount(count int) {
	physicsColliders.Set(float64(count))
}

func instrumentRaycast(candidates int, hits int) {
	physicsRaycasts.Inc()
	physicsRaycastCandidates.Observe(float64(candidates))
	physicsRaycastHits.Observe(float64(hits))
}
