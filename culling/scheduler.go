package culling

import (
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sightline/featureflag"
	"github.com/aukilabs/sightline/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

// StateChange describes a drawable whose render state changed during a pass.
type StateChange struct {
	ID   uint32      `json:"id"`
	From RenderState `json:"from"`
	To   RenderState `json:"to"`
}

// PassResult summarizes a classification pass.
type PassResult struct {
	Tick     uint64
	Time     time.Time
	Duration time.Duration

	// The number of drawables in each render state once the pass completed.
	Counts map[RenderState]int

	// The number of destroyed drawables that were left untouched.
	Skipped int

	Changes []StateChange
}

// frustumState is the camera data shared by every object of a pass.
type frustumState struct {
	frustum  geometry.Frustum
	position mgl32.Vec3
	forward  mgl32.Vec3
}

// Scheduler periodically classifies the drawables of a VisibilitySet as
// visible or shadow only.
//
// Update is meant to be called from the host frame loop. Registration can
// happen from any goroutine.
type Scheduler struct {
	set     *VisibilitySet
	physics PhysicsQuery
	config  Config

	mutex  sync.Mutex
	camera Camera
	timer  time.Duration
	tick   uint64

	observerMutex  sync.RWMutex
	observerNextID uint32
	observers      map[uint32]func(PassResult)
}

// NewScheduler creates a scheduler classifying the drawables of set. Occlusion
// is not tested when physics is nil.
func NewScheduler(set *VisibilitySet, physics PhysicsQuery, config Config) *Scheduler {
	if set == nil {
		set = NewVisibilitySet()
	}

	return &Scheduler{
		set:       set,
		physics:   physics,
		config:    config.withDefaults(),
		observers: make(map[uint32]func(PassResult)),
	}
}

func (s *Scheduler) Set() *VisibilitySet {
	return s.set
}

func (s *Scheduler) Config() Config {
	return s.config
}

// SetCamera sets the camera used by the next passes. Passes are skipped while
// the camera is nil.
func (s *Scheduler) SetCamera(c Camera) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.camera = c
}

// RegisterInitial registers the drawables enumerated at scene start.
func (s *Scheduler) RegisterInitial(drawables ...Drawable) int {
	return s.set.RegisterInitial(drawables...)
}

// Register registers a drawable created at runtime.
func (s *Scheduler) Register(d Drawable) bool {
	return s.set.Register(d)
}

// OnPass registers a function called after each completed pass. Calling the
// returned function unregisters it.
func (s *Scheduler) OnPass(h func(PassResult)) (cancel func()) {
	s.observerMutex.Lock()
	defer s.observerMutex.Unlock()

	s.observerNextID++
	id := s.observerNextID
	s.observers[id] = h

	return func() {
		s.observerMutex.Lock()
		defer s.observerMutex.Unlock()

		delete(s.observers, id)
	}
}

// Update advances the scheduler timer by dt and runs a pass once the check
// interval is reached. It reports whether a pass ran.
func (s *Scheduler) Update(dt time.Duration) bool {
	s.mutex.Lock()

	s.timer += dt
	if s.timer < s.config.CheckInterval {
		s.mutex.Unlock()
		return false
	}

	res, ok := s.pass()
	if ok {
		s.timer = 0
	}
	s.mutex.Unlock()

	if ok {
		s.notify(res)
	}
	return ok
}

// Pass runs a classification pass immediately, regardless of the timer. It
// returns false when no camera is set.
func (s *Scheduler) Pass() (PassResult, bool) {
	s.mutex.Lock()
	res, ok := s.pass()
	s.mutex.Unlock()

	if ok {
		s.notify(res)
	}
	return res, ok
}

// Tick returns the number of completed passes.
func (s *Scheduler) Tick() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.tick
}

func (s *Scheduler) pass() (PassResult, bool) {
	if s.camera == nil {
		instrumentSkippedPass()
		logs.WithTag("tick", s.tick).Debug("no camera set, skipping visibility pass")
		return PassResult{}, false
	}

	start := time.Now()

	fs := frustumState{
		frustum:  s.camera.FrustumPlanes(),
		position: s.camera.Position(),
		forward:  s.camera.Forward(),
	}

	s.tick++
	res := PassResult{
		Tick:   s.tick,
		Time:   start,
		Counts: make(map[RenderState]int, 4),
	}

	for _, o := range s.set.Snapshot() {
		if !o.drawable.IsValid() {
			res.Skipped++
			res.Counts[o.State()]++
			continue
		}

		state := s.classify(o, fs)
		previous := s.apply(o, state)
		if previous != state {
			res.Changes = append(res.Changes, StateChange{
				ID:   o.ID(),
				From: previous,
				To:   state,
			})
		}
		res.Counts[state]++
	}

	res.Duration = time.Since(start)
	instrumentPass(res)

	logs.WithTag("tick", res.Tick).
		WithTag("visible", res.Counts[RenderStateVisible]).
		WithTag("shadow_only", res.Counts[RenderStateShadowOnly]).
		WithTag("skipped", res.Skipped).
		WithTag("changes", len(res.Changes)).
		WithTag("duration", res.Duration).
		Debug("visibility pass completed")
	return res, true
}

// classify runs the pipeline cheapest test first and stops at the first
// decisive one.
func (s *Scheduler) classify(o *TrackedObject, fs frustumState) RenderState {
	if o.exempt {
		return RenderStateVisible
	}

	flags := s.config.FeatureFlags
	bounds := o.drawable.WorldBounds()
	dir := bounds.Center().Sub(fs.position)

	if !flags.IsSet(featureflag.FlagDisableFacingTest) && fs.forward.Dot(dir) < 0 {
		return RenderStateShadowOnly
	}

	if !flags.IsSet(featureflag.FlagDisableFrustumTest) && !fs.frustum.TestAABB(bounds) {
		return RenderStateShadowOnly
	}

	if !flags.IsSet(featureflag.FlagDisableOcclusionTest) && !s.inLineOfSight(o, fs.position, dir) {
		return RenderStateShadowOnly
	}

	return RenderStateVisible
}

// inLineOfSight casts a single ray from the camera to the object bounds
// center. The object is in sight when nothing is hit or when one of the hits
// is the object itself.
func (s *Scheduler) inLineOfSight(o *TrackedObject, origin mgl32.Vec3, dir mgl32.Vec3) bool {
	dist := dir.Len()
	if dist == 0 || s.physics == nil {
		return true
	}

	maxHits := s.config.MaxRaycastHits
	hits := s.physics.Raycast(origin, dir.Mul(1/dist), dist, s.config.OccluderMask, TriggerIgnore, maxHits)
	if len(hits) > maxHits {
		hits = hits[:maxHits]
	}

	visible := len(hits) == 0
	for _, h := range hits {
		if h.OwnerID == o.ID() {
			visible = true
			break
		}
	}

	instrumentRaycast(visible)
	return visible
}

func (s *Scheduler) apply(o *TrackedObject, state RenderState) RenderState {
	switch state {
	case RenderStateVisible:
		o.drawable.SetEnabled(true)
		o.drawable.SetShadowMode(ShadowModeOn)

	case RenderStateShadowOnly:
		o.drawable.SetEnabled(true)
		o.drawable.SetShadowMode(ShadowModeShadowsOnly)
	}

	return o.setState(state)
}

func (s *Scheduler) notify(res PassResult) {
	s.observerMutex.RLock()
	observers := make([]func(PassResult), 0, len(s.observers))
	for _, h := range s.observers {
		observers = append(observers, h)
	}
	s.observerMutex.RUnlock()

	for _, h := range observers {
		h(res)
	}
}
