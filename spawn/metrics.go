package spawn

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
)

var (
	spawnCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spawn_count",
		Help: "The number of renderers spawned at runtime.",
	})

	spawnError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spawn_errors",
		Help: "The errors that occured while spawning a renderer.",
	}, []string{
		errTypeLabel,
	})

	spawnLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "spawn_latency",
		Help: "The time between a spawn request and the renderer registration.",
	})
)

func instrumentSpawn(createdAt time.Time, err error) {
	if err != nil {
		spawnError.
			With(prometheus.Labels{
				errTypeLabel: errors.Type(err),
			}).
			Inc()
		return
	}

	spawnCount.Inc()
	if !createdAt.IsZero() {
		spawnLatency.Observe(time.Since(createdAt).Seconds())
	}
}
