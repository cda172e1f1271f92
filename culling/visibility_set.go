package culling

import (
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// RenderState is the outcome of a visibility classification.
type RenderState int

const (
	// The object has not been classified and its render flags were left
	// untouched. Only exempt objects are registered in this state.
	RenderStateUnclassified RenderState = iota

	// The object is disabled. Non exempt objects are registered in this
	// state and leave it on their first classification.
	RenderStateHidden

	// The object renders and casts shadows.
	RenderStateVisible

	// The object only contributes to shadow maps.
	RenderStateShadowOnly
)

func (s RenderState) String() string {
	switch s {
	case RenderStateUnclassified:
		return "unclassified"
	case RenderStateHidden:
		return "hidden"
	case RenderStateVisible:
		return "visible"
	case RenderStateShadowOnly:
		return "shadow_only"
	default:
		return "unknown"
	}
}

func (s RenderState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RenderState) UnmarshalText(b []byte) error {
	for v := RenderStateUnclassified; v <= RenderStateShadowOnly; v++ {
		if v.String() == string(b) {
			*s = v
			return nil
		}
	}

	return errors.New("unknown render state").
		WithTag("value", string(b))
}

// TrackedObject is a drawable registered for culling.
type TrackedObject struct {
	drawable Drawable
	exempt   bool

	mutex sync.RWMutex
	state RenderState
}

func (o *TrackedObject) ID() uint32 {
	return o.drawable.ID()
}

func (o *TrackedObject) Drawable() Drawable {
	return o.drawable
}

// Exempt reports whether the drawable was tagged to always render when it was
// registered.
func (o *TrackedObject) Exempt() bool {
	return o.exempt
}

func (o *TrackedObject) State() RenderState {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	return o.state
}

func (o *TrackedObject) setState(s RenderState) RenderState {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	previous := o.state
	o.state = s
	return previous
}

// VisibilitySet is the insertion ordered set of drawables subject to culling.
// It is safe for concurrent use.
type VisibilitySet struct {
	mutex   sync.RWMutex
	objects []*TrackedObject
	index   map[uint32]*TrackedObject
}

func NewVisibilitySet() *VisibilitySet {
	return &VisibilitySet{
		index: make(map[uint32]*TrackedObject),
	}
}

// RegisterInitial registers the drawables enumerated at scene start. It
// returns the number of drawables that were added.
func (s *VisibilitySet) RegisterInitial(drawables ...Drawable) int {
	var added int
	for _, d := range drawables {
		if s.Register(d) {
			added++
		}
	}

	logs.WithTag("count", added).
		WithTag("ignored", len(drawables)-added).
		Info("initial drawables registered")
	return added
}

// Register adds a drawable created after scene start. Nil, invalid, zero id
// and already registered drawables are ignored and false is returned. Zero is
// the owner id of static geometry.
//
// Non exempt drawables are disabled right away so they stay hidden until the
// next classification pass.
func (s *VisibilitySet) Register(d Drawable) bool {
	if d == nil || !d.IsValid() || d.ID() == 0 {
		return false
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	id := d.ID()
	if _, ok := s.index[id]; ok {
		return false
	}

	o := &TrackedObject{
		drawable: d,
		exempt:   d.IsExempt(),
	}
	if !o.exempt {
		d.SetEnabled(false)
		o.state = RenderStateHidden
	}

	s.objects = append(s.objects, o)
	s.index[id] = o

	instrumentTrackedObjects(len(s.objects))
	logs.WithTag("drawable_id", id).
		WithTag("exempt", o.exempt).
		Debug("drawable registered")
	return true
}

func (s *VisibilitySet) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return len(s.objects)
}

func (s *VisibilitySet) Get(id uint32) (*TrackedObject, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	o, ok := s.index[id]
	return o, ok
}

// Snapshot returns a copy of the registered objects in registration order.
func (s *VisibilitySet) Snapshot() []*TrackedObject {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	objects := make([]*TrackedObject, len(s.objects))
	copy(objects, s.objects)
	return objects
}
