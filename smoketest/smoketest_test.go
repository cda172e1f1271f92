package smoketest

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aukilabs/sightline/culling"
	httpcmn "github.com/aukilabs/sightline/http"
	"github.com/aukilabs/sightline/models"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	for _, s := range Scenarios() {
		t.Run(s.Name, func(t *testing.T) {
			res := RunScenario(s)
			require.Empty(t, res.Error)
			require.Empty(t, res.Failures)
			require.Equal(t, StatusSuccess, res.Status)
			require.Len(t, res.States, len(s.Scene.Renderers))
		})
	}
}

func TestRunScenarioFailure(t *testing.T) {
	t.Run("unexpected state", func(t *testing.T) {
		res := RunScenario(Scenario{
			Name: "wrong_expectation",
			Scene: models.SceneDescription{
				Camera: smokeCamera,
				Renderers: []models.RendererDescription{
					{Name: "box", Center: mgl32.Vec3{0, 1, 0}, Size: unitSize},
				},
			},
			Expected: map[string]culling.RenderState{
				"box":     culling.RenderStateShadowOnly,
				"missing": culling.RenderStateVisible,
			},
		})
		require.Equal(t, StatusFailure, res.Status)
		require.Len(t, res.Failures, 2)
	})

	t.Run("invalid scene", func(t *testing.T) {
		res := RunScenario(Scenario{
			Name: "invalid",
			Scene: models.SceneDescription{
				Renderers: []models.RendererDescription{
					{Name: "box", Size: mgl32.Vec3{-1, 1, 1}},
				},
			},
		})
		require.Equal(t, StatusFailure, res.Status)
		require.NotEmpty(t, res.Error)
	})
}

func TestRun(t *testing.T) {
	t.Run("all scenarios", func(t *testing.T) {
		res, err := Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, res.Status)
		require.Len(t, res.Scenarios, len(Scenarios()))
	})

	t.Run("selected scenarios", func(t *testing.T) {
		res, err := Run(context.Background(), "occluded", "exempt")
		require.NoError(t, err)
		require.Len(t, res.Scenarios, 2)
		require.Equal(t, "occluded", res.Scenarios[0].Name)
		require.Equal(t, "exempt", res.Scenarios[1].Name)
	})

	t.Run("unknown scenario", func(t *testing.T) {
		_, err := Run(context.Background(), "teleport")
		require.Error(t, err)
	})

	t.Run("canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := Run(ctx)
		require.Error(t, err)
	})
}

func TestHandleSmokeTest(t *testing.T) {
	t.Run("smoke test success", func(t *testing.T) {
		var sent SmokeTestResults
		h := HandleSmokeTest(context.Background(), Options{
			SendResult: func(_ context.Context, res SmokeTestResults) error {
				sent = res
				return nil
			},
		})

		body, err := json.Marshal(SmokeTestRequest{Scenarios: []string{"visible", "self_hit"}})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)

		var res SmokeTestResults
		err = json.Unmarshal(rec.Body.Bytes(), &res)
		require.NoError(t, err)
		require.Equal(t, StatusSuccess, res.Status)
		require.Len(t, res.Scenarios, 2)
		require.Equal(t, culling.RenderStateVisible, res.Scenarios[1].States["box"])
		require.Equal(t, res.Status, sent.Status)
	})

	t.Run("empty body runs every scenario", func(t *testing.T) {
		h := HandleSmokeTest(context.Background(), Options{})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var res SmokeTestResults
		err := json.Unmarshal(rec.Body.Bytes(), &res)
		require.NoError(t, err)
		require.Len(t, res.Scenarios, len(Scenarios()))
	})

	t.Run("unknown scenario", func(t *testing.T) {
		h := HandleSmokeTest(context.Background(), Options{})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewBufferString(`{"scenarios":["teleport"]}`)))
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var res httpcmn.ErrorResponse
		err := json.Unmarshal(rec.Body.Bytes(), &res)
		require.NoError(t, err)
		require.Equal(t, ErrTypeUnknownScenario, res.Type)
	})

	t.Run("invalid body", func(t *testing.T) {
		h := HandleSmokeTest(context.Background(), Options{})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/smoke-test", bytes.NewBufferString(`{`)))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		h := HandleSmokeTest(context.Background(), Options{})

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/smoke-test", nil))
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
