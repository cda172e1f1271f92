package culling

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sightline/featureflag"
)

const (
	DefaultCheckInterval  = 200 * time.Millisecond
	DefaultMaxRaycastHits = 4

	ErrTypeInvalidConfig = "invalid_config"
)

// Config is the static configuration of a Scheduler.
type Config struct {
	// The physics layers that block visibility. The zero value means nothing
	// occludes; use AllLayers to make every layer an occluder.
	OccluderMask LayerMask

	// The minimum elapsed time between two classification passes.
	CheckInterval time.Duration

	// The maximum number of hits considered for one occlusion ray.
	MaxRaycastHits int

	// Switches to disable individual pipeline stages.
	FeatureFlags featureflag.FeatureFlag
}

// DefaultConfig returns the configuration where every layer occludes, passes
// run every 200ms and rays consider up to 4 hits.
func DefaultConfig() Config {
	return Config{
		OccluderMask:   AllLayers,
		CheckInterval:  DefaultCheckInterval,
		MaxRaycastHits: DefaultMaxRaycastHits,
	}
}

func (c Config) Validate() error {
	if c.CheckInterval < 0 {
		return errors.New("check interval is negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("check_interval", c.CheckInterval)
	}

	if c.MaxRaycastHits < 0 {
		return errors.New("max raycast hits is negative").
			WithType(ErrTypeInvalidConfig).
			WithTag("max_raycast_hits", c.MaxRaycastHits)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.CheckInterval <= 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.MaxRaycastHits <= 0 {
		c.MaxRaycastHits = DefaultMaxRaycastHits
	}
	return c
}
