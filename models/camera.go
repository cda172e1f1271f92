package models

import (
	"math"
	"sync"

	"github.com/aukilabs/sightline/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultCameraFOV    = 60
	DefaultCameraAspect = 16.0 / 9.0
	DefaultCameraNear   = 0.1
	DefaultCameraFar    = 1000
)

var (
	worldOrigin  = mgl32.Vec3{0, 0, 0}
	worldUp      = mgl32.Vec3{0, 1, 0}
	worldForward = mgl32.Vec3{0, 0, 1}
)

// Camera is a perspective camera looking at a target. It implements
// culling.Camera.
type Camera struct {
	mutex    sync.RWMutex
	position mgl32.Vec3
	target   mgl32.Vec3
	fov      float32
	aspect   float32
	near     float32
	far      float32
}

// NewCamera creates a camera with a vertical field of view in degrees. Zero
// projection values are replaced by defaults.
func NewCamera(position mgl32.Vec3, target mgl32.Vec3, fov, aspect, near, far float32) *Camera {
	if fov == 0 {
		fov = DefaultCameraFOV
	}
	if aspect == 0 {
		aspect = DefaultCameraAspect
	}
	if near == 0 {
		near = DefaultCameraNear
	}
	if far == 0 {
		far = DefaultCameraFar
	}

	c := &Camera{
		fov:    fov,
		aspect: aspect,
		near:   near,
		far:    far,
	}
	c.LookAt(position, target)
	return c
}

// LookAt moves the camera to position and points it at target. A target equal
// to the position makes the camera look along +Z.
func (c *Camera) LookAt(position mgl32.Vec3, target mgl32.Vec3) {
	if target.Sub(position).Len() == 0 {
		target = position.Add(worldForward)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.position = position
	c.target = target
}

// Orbit places the camera on a horizontal circle around center and points it
// at center. angle is in radians.
func (c *Camera) Orbit(center mgl32.Vec3, radius float32, height float32, angle float64) {
	position := mgl32.Vec3{
		center.X() + radius*float32(math.Sin(angle)),
		center.Y() + height,
		center.Z() - radius*float32(math.Cos(angle)),
	}
	c.LookAt(position, center)
}

func (c *Camera) Position() mgl32.Vec3 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.position
}

func (c *Camera) Target() mgl32.Vec3 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.target
}

func (c *Camera) Forward() mgl32.Vec3 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.target.Sub(c.position).Normalize()
}

// ViewProjection returns the matrix transforming world space points to clip
// space.
func (c *Camera) ViewProjection() mgl32.Mat4 {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	projection := mgl32.Perspective(mgl32.DegToRad(c.fov), c.aspect, c.near, c.far)
	view := mgl32.LookAtV(c.position, c.target, c.up())
	return projection.Mul4(view)
}

func (c *Camera) FrustumPlanes() geometry.Frustum {
	return geometry.FrustumFromMatrix(c.ViewProjection())
}

// up returns a world up vector that is not colinear with the view direction.
func (c *Camera) up() mgl32.Vec3 {
	forward := c.target.Sub(c.position).Normalize()
	if math.Abs(float64(forward.Dot(worldUp))) > 0.999 {
		return worldForward
	}
	return worldUp
}

type CameraInfo struct {
	Position [3]float32 `json:"position"`
	Target   [3]float32 `json:"target"`
	Forward  [3]float32 `json:"forward"`
	FOV      float32    `json:"fov"`
}

func (c *Camera) Info() CameraInfo {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return CameraInfo{
		Position: c.position,
		Target:   c.target,
		Forward:  c.target.Sub(c.position).Normalize(),
		FOV:      c.fov,
	}
}
