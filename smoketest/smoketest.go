package smoketest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sightline/culling"
	httpcmn "github.com/aukilabs/sightline/http"
	"github.com/aukilabs/sightline/models"
	"github.com/aukilabs/sightline/physics"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	ErrTypeUnknownScenario = "unknown_scenario"

	maxRequestBodySize = 1 << 16
)

// Scenario is a small scene with the render state expected for each of its
// renderers after one culling pass.
type Scenario struct {
	Name  string
	Scene models.SceneDescription

	// The culling configuration. Defaults are used when zero.
	Config culling.Config

	// The expected render state by renderer name.
	Expected map[string]culling.RenderState
}

type ScenarioResult struct {
	Name            string                         `json:"name"`
	Status          string                         `json:"status"`
	LatencyMilliSec float64                        `json:"latency_ms"`
	States          map[string]culling.RenderState `json:"states,omitempty"`
	Failures        []string                       `json:"failures,omitempty"`
	Error           string                         `json:"error,omitempty"`
}

type SmokeTestResults struct {
	Status    string           `json:"status"`
	StartedAt time.Time        `json:"started_at"`
	Scenarios []ScenarioResult `json:"scenarios"`
}

// SmokeTestRequest selects the scenarios to run. All of them run when empty.
type SmokeTestRequest struct {
	Scenarios []string `json:"scenarios"`
}

var (
	smokeCamera = models.CameraDescription{
		Position: mgl32.Vec3{0, 1, -10},
		Target:   mgl32.Vec3{0, 1, 0},
	}

	unitSize = mgl32.Vec3{1, 1, 1}
	wallSize = mgl32.Vec3{4, 4, 0.5}
)

// Scenarios returns the built-in scenarios.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name: "visible",
			Scene: models.SceneDescription{
				Name:   "visible",
				Camera: smokeCamera,
				Renderers: []models.RendererDescription{
					{Name: "box", Center: mgl32.Vec3{0, 1, 0}, Size: unitSize},
				},
			},
			Expected: map[string]culling.RenderState{
				"box": culling.RenderStateVisible,
			},
		},
		{
			Name: "occluded",
			Scene: models.SceneDescription{
				Name:   "occluded",
				Camera: smokeCamera,
				Renderers: []models.RendererDescription{
					{Name: "box", Center: mgl32.Vec3{0, 1, 0}, Size: unitSize},
				},
				Occluders: []models.ColliderDescription{
					{Center: mgl32.Vec3{0, 1, -5}, Size: wallSize},
				},
			},
			Expected: map[string]culling.RenderState{
				"box": culling.RenderStateShadowOnly,
			},
		},
		{
			Name: "behind_camera",
			Scene: models.SceneDescription{
				Name:   "behind_camera",
				Camera: smokeCamera,
				Renderers: []models.RendererDescription{
					{Name: "box", Center: mgl32.Vec3{0, 1, -20}, Size: unitSize},
				},
			},
			Expected: map[string]culling.RenderState{
				"box": culling.RenderStateShadowOnly,
			},
		},
		{
			Name: "outside_frustum",
			Scene: models.SceneDescription{
				Name:   "outside_frustum",
				Camera: smokeCamera,
				Renderers: []models.RendererDescription{
					{Name: "box", Center: mgl32.Vec3{-60, 1, 0}, Size: unitSize},
				},
			},
			Expected: map[string]culling.RenderState{
				"box": culling.RenderStateShadowOnly,
			},
		},
		{
			Name: "self_hit",
			Scene: models.SceneDescription{
				Name:   "self_hit",
				Camera: smokeCamera,
				Renderers: []models.RendererDescription{
					{
						Name:     "box",
						Center:   mgl32.Vec3{0, 1, 0},
						Size:     unitSize,
						Collider: &models.RendererColliderDescription{},
					},
				},
			},
			Expected: map[string]culling.RenderState{
				"box": culling.RenderStateVisible,
			},
		},
		{
			Name: "trigger_ignored",
			Scene: models.SceneDescription{
				Name:   "trigger_ignored",
				Camera: smokeCamera,
				Renderers: []models.RendererDescription{
					{Name: "box", Center: mgl32.Vec3{0, 1, 0}, Size: unitSize},
				},
				Occluders: []models.ColliderDescription{
					{Center: mgl32.Vec3{0, 1, -5}, Size: wallSize, IsTrigger: true},
				},
			},
			Expected: map[string]culling.RenderState{
				"box": culling.RenderStateVisible,
			},
		},
		{
			Name: "exempt",
			Scene: models.SceneDescription{
				Name:   "exempt",
				Camera: smokeCamera,
				Renderers: []models.RendererDescription{
					{Name: "hidden_lamp", Center: mgl32.Vec3{0, 1, 0}, Size: unitSize, AlwaysRender: true},
					{Name: "lamp_behind", Center: mgl32.Vec3{0, 1, -20}, Size: unitSize, AlwaysRender: true},
				},
				Occluders: []models.ColliderDescription{
					{Center: mgl32.Vec3{0, 1, -5}, Size: wallSize},
				},
			},
			Expected: map[string]culling.RenderState{
				"hidden_lamp": culling.RenderStateVisible,
				"lamp_behind": culling.RenderStateVisible,
			},
		},
	}
}

// RunScenario builds the scenario scene, runs one culling pass and compares
// the render state of each renderer with the expected one.
func RunScenario(s Scenario) ScenarioResult {
	start := time.Now()
	res := ScenarioResult{
		Name:   s.Name,
		Status: StatusFailure,
	}

	scene, err := models.NewSceneFromDescription(s.Scene, time.Second, physics.NewWorld(physics.DefaultGridResolution))
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer scene.Close()

	config := s.Config
	if config.OccluderMask == 0 {
		config.OccluderMask = culling.AllLayers
	}

	scheduler := culling.NewScheduler(nil, scene.Physics(), config)
	scheduler.SetCamera(scene.Camera())
	scheduler.RegisterInitial(scene.Drawables()...)

	if _, ok := scheduler.Pass(); !ok {
		res.Error = "culling pass did not run"
		return res
	}

	snapshot := scene.Snapshot(scheduler.Set(), scheduler.Tick())
	res.States = make(map[string]culling.RenderState, len(snapshot.Renderers))
	for _, r := range snapshot.Renderers {
		res.States[r.Name] = r.State
	}

	for name, expected := range s.Expected {
		state, ok := res.States[name]
		switch {
		case !ok:
			res.Failures = append(res.Failures, name+": renderer not found")

		case state != expected:
			res.Failures = append(res.Failures, name+": expected "+expected.String()+", got "+state.String())
		}
	}

	if len(res.Failures) == 0 {
		res.Status = StatusSuccess
	}
	res.LatencyMilliSec = float64(time.Since(start)) / float64(time.Millisecond)
	return res
}

// Run runs the given scenarios, or all the built-in ones when names is empty.
func Run(ctx context.Context, names ...string) (SmokeTestResults, error) {
	scenarios := Scenarios()

	if len(names) != 0 {
		byName := make(map[string]Scenario, len(scenarios))
		for _, s := range scenarios {
			byName[s.Name] = s
		}

		selected := make([]Scenario, 0, len(names))
		for _, n := range names {
			s, ok := byName[n]
			if !ok {
				return SmokeTestResults{}, errors.New("unknown smoke test scenario").
					WithType(ErrTypeUnknownScenario).
					WithTag("scenario", n)
			}
			selected = append(selected, s)
		}
		scenarios = selected
	}

	results := SmokeTestResults{
		Status:    StatusSuccess,
		StartedAt: time.Now(),
		Scenarios: make([]ScenarioResult, 0, len(scenarios)),
	}

	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, errors.New("smoke test canceled").Wrap(err)
		}

		res := RunScenario(s)
		instrumentScenario(res)

		if res.Status != StatusSuccess {
			results.Status = StatusFailure
			logs.WithTag("scenario", res.Name).
				WithTag("failures", res.Failures).
				WithTag("error", res.Error).
				Warn(errors.New("smoke test scenario failed"))
		}
		results.Scenarios = append(results.Scenarios, res)
	}
	return results, nil
}

type Options struct {
	// Called with the results of each smoke test. Optional.
	SendResult func(context.Context, SmokeTestResults) error
}

// HandleSmokeTest runs the scenarios listed in the request body and responds
// with their results.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			httpcmn.MethodNotAllowed(w, http.MethodPost)
			return
		}

		b, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
		if err != nil {
			httpcmn.InternalServerError(w, errors.New("reading body failed").Wrap(err))
			return
		}

		var req SmokeTestRequest
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				httpcmn.BadRequest(w, errors.New("invalid smoke test request").
					WithType(httpcmn.ErrTypeBadRequest).
					Wrap(err))
				return
			}
		}

		res, err := Run(r.Context(), req.Scenarios...)
		switch {
		case errors.IsType(err, ErrTypeUnknownScenario):
			httpcmn.BadRequest(w, err)
			return

		case err != nil:
			httpcmn.InternalServerError(w, err)
			return
		}

		if opts.SendResult != nil {
			if err := opts.SendResult(ctx, res); err != nil {
				logs.WithTag("status", res.Status).
					Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}

		httpcmn.WriteJSON(w, http.StatusOK, res)
	}
}
