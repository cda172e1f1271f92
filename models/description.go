package models

import (
	"math"
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/sightline/culling"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeSceneNotFound    = "scene_not_found"
	ErrTypeSceneInvalidJSON = "scene_invalid_json"
	ErrTypeSceneInvalid     = "scene_invalid"

	// MaxWorldExtent is the largest distance from the origin, in meters, at
	// which a camera, renderer or collider can be centered on each axis.
	MaxWorldExtent = 2000

	// MaxObjectSize is the largest size of a renderer or collider on each
	// axis.
	MaxObjectSize = 2 * MaxWorldExtent
)

// SceneDescription describes the content of a scene when it starts.
type SceneDescription struct {
	Name      string                `json:"name"`
	Camera    CameraDescription     `json:"camera"`
	Renderers []RendererDescription `json:"renderers"`

	// Static colliders that are not attached to a renderer.
	Occluders []ColliderDescription `json:"occluders"`
}

type CameraDescription struct {
	Position mgl32.Vec3 `json:"position"`
	Target   mgl32.Vec3 `json:"target"`
	FOV      float32    `json:"fov"`
	Aspect   float32    `json:"aspect"`
	Near     float32    `json:"near"`
	Far      float32    `json:"far"`
}

type RendererDescription struct {
	Name         string     `json:"name"`
	Center       mgl32.Vec3 `json:"center"`
	Size         mgl32.Vec3 `json:"size"`
	AlwaysRender bool       `json:"always_render"`

	// When set, a collider with the renderer bounds is added to the physics
	// world.
	Collider *RendererColliderDescription `json:"collider,omitempty"`
}

type RendererColliderDescription struct {
	Layer     int  `json:"layer"`
	IsTrigger bool `json:"is_trigger"`
}

type ColliderDescription struct {
	Center    mgl32.Vec3 `json:"center"`
	Size      mgl32.Vec3 `json:"size"`
	Layer     int        `json:"layer"`
	IsTrigger bool       `json:"is_trigger"`
}

// LoadSceneDescription reads a JSON scene description from the given file.
func LoadSceneDescription(filename string) (SceneDescription, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return SceneDescription{}, errors.New("reading scene description failed").
			WithType(ErrTypeSceneNotFound).
			WithTag("filename", filename).
			Wrap(err)
	}

	desc, err := ParseSceneDescription(b)
	if err != nil {
		return SceneDescription{}, errors.New("loading scene description failed").
			WithTag("filename", filename).
			Wrap(err)
	}
	return desc, nil
}

// ParseSceneDescription decodes and validates a JSON scene description.
func ParseSceneDescription(b []byte) (SceneDescription, error) {
	var desc SceneDescription
	if err := json.Unmarshal(b, &desc); err != nil {
		return SceneDescription{}, errors.New("decoding scene description failed").
			WithType(ErrTypeSceneInvalidJSON).
			Wrap(err)
	}

	if err := desc.Validate(); err != nil {
		return SceneDescription{}, err
	}
	return desc, nil
}

func (d SceneDescription) Validate() error {
	if err := d.Camera.Validate(); err != nil {
		return err
	}

	for i, r := range d.Renderers {
		if err := validateBox(r.Center, r.Size); err != nil {
			return errors.New("invalid renderer").
				WithType(ErrTypeSceneInvalid).
				WithTag("index", i).
				WithTag("name", r.Name).
				Wrap(err)
		}

		if r.Collider != nil {
			if err := validateLayer(r.Collider.Layer); err != nil {
				return errors.New("invalid renderer collider").
					WithType(ErrTypeSceneInvalid).
					WithTag("index", i).
					WithTag("name", r.Name).
					Wrap(err)
			}
		}
	}

	for i, o := range d.Occluders {
		if err := validateBox(o.Center, o.Size); err != nil {
			return errors.New("invalid occluder").
				WithType(ErrTypeSceneInvalid).
				WithTag("index", i).
				Wrap(err)
		}

		if err := validateLayer(o.Layer); err != nil {
			return errors.New("invalid occluder").
				WithType(ErrTypeSceneInvalid).
				WithTag("index", i).
				Wrap(err)
		}
	}
	return nil
}

func (d CameraDescription) Validate() error {
	if err := validatePosition(d.Position); err != nil {
		return errors.New("invalid camera position").
			WithType(ErrTypeSceneInvalid).
			Wrap(err)
	}

	if err := validatePosition(d.Target); err != nil {
		return errors.New("invalid camera target").
			WithType(ErrTypeSceneInvalid).
			Wrap(err)
	}

	if d.FOV < 0 || d.FOV >= 180 {
		return errors.New("camera field of view must be in [0, 180[").
			WithType(ErrTypeSceneInvalid).
			WithTag("fov", d.FOV)
	}

	if d.Aspect < 0 || d.Near < 0 || d.Far < 0 {
		return errors.New("camera projection values must be positive").
			WithType(ErrTypeSceneInvalid).
			WithTag("aspect", d.Aspect).
			WithTag("near", d.Near).
			WithTag("far", d.Far)
	}

	if d.Near != 0 && d.Far != 0 && d.Far <= d.Near {
		return errors.New("camera far plane must be beyond the near plane").
			WithType(ErrTypeSceneInvalid).
			WithTag("near", d.Near).
			WithTag("far", d.Far)
	}
	return nil
}

func validateBox(center, size mgl32.Vec3) error {
	if err := validatePosition(center); err != nil {
		return err
	}
	return validateSize(size)
}

func validatePosition(p mgl32.Vec3) error {
	for _, v := range p {
		if !isFinite(v) || v < -MaxWorldExtent || v > MaxWorldExtent {
			return errors.New("position is outside of the world").
				WithTag("position", p).
				WithTag("max_extent", MaxWorldExtent)
		}
	}
	return nil
}

func validateSize(size mgl32.Vec3) error {
	for _, v := range size {
		if !isFinite(v) || v < 0 || v > MaxObjectSize {
			return errors.New("size must be positive and fit in the world").
				WithTag("size", size).
				WithTag("max_size", MaxObjectSize)
		}
	}
	return nil
}

func isFinite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func validateLayer(layer int) error {
	if layer < 0 || layer >= culling.MaxLayers {
		return errors.New("layer is out of range").
			WithTag("layer", layer).
			WithTag("max", culling.MaxLayers-1)
	}
	return nil
}

// DefaultSceneDescription returns a small scene with a wall and a rock hiding
// some of the renderers from the camera.
func DefaultSceneDescription() SceneDescription {
	return SceneDescription{
		Name: "courtyard",
		Camera: CameraDescription{
			Position: mgl32.Vec3{0, 1.6, -10},
			Target:   mgl32.Vec3{0, 1, 0},
		},
		Renderers: []RendererDescription{
			{
				Name:     "wall",
				Center:   mgl32.Vec3{0, 1.5, 0},
				Size:     mgl32.Vec3{6, 3, 0.5},
				Collider: &RendererColliderDescription{},
			},
			{
				Name:   "crate_behind_wall",
				Center: mgl32.Vec3{0, 0.5, 5},
				Size:   mgl32.Vec3{1, 1, 1},
			},
			{
				Name:     "barrel_in_sight",
				Center:   mgl32.Vec3{-5, 0.6, 2},
				Size:     mgl32.Vec3{0.8, 1.2, 0.8},
				Collider: &RendererColliderDescription{},
			},
			{
				Name:   "statue_behind_camera",
				Center: mgl32.Vec3{0, 1, -20},
				Size:   mgl32.Vec3{1, 2, 1},
			},
			{
				Name:         "lamp",
				Center:       mgl32.Vec3{3, 2, 8},
				Size:         mgl32.Vec3{0.3, 4, 0.3},
				AlwaysRender: true,
			},
			{
				Name:   "tree_far_left",
				Center: mgl32.Vec3{-60, 3, 0},
				Size:   mgl32.Vec3{2, 6, 2},
			},
			{
				Name:   "bench_behind_rock",
				Center: mgl32.Vec3{8, 0.5, 10},
				Size:   mgl32.Vec3{1, 1, 1},
			},
		},
		Occluders: []ColliderDescription{
			// rock
			{
				Center: mgl32.Vec3{8, 1, 4},
				Size:   mgl32.Vec3{4, 2, 4},
			},
		},
	}
}
