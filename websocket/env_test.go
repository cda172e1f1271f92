package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/featureflag"
	"github.com/aukilabs/sightline/models"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

const readTimeout = 5 * time.Second

type testEnv struct {
	scene     *models.Scene
	scheduler *culling.Scheduler
	server    *httptest.Server
}

// newTestEnv starts a stream server over the default scene. The scene frames
// are not dispatched: passes are run explicitly by tests.
func newTestEnv(t *testing.T, flags ...featureflag.Flag) testEnv {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}
	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})
	errors.Encoder = json.Marshal

	scene, err := models.NewSceneFromDescription(models.DefaultSceneDescription(), time.Second, nil)
	require.NoError(t, err)

	scheduler := culling.NewScheduler(nil, scene.Physics(), culling.DefaultConfig())
	scheduler.SetCamera(scene.Camera())
	scheduler.RegisterInitial(scene.Drawables()...)

	featureFlags := make([]string, len(flags))
	for i, f := range flags {
		featureFlags[i] = string(f)
	}

	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var h Handler = &StreamHandler{
				Scene:                   scene,
				Scheduler:               scheduler,
				FeatureFlags:            featureflag.New(featureFlags),
				ClientSyncClockInterval: time.Minute,
				ClientIdleTimeout:       time.Minute,
			}
			h = HandlerWithLogs(h, time.Millisecond*100)
			h = HandlerWithMetrics(h, "http://sightline-test.local")
			defer h.Close()

			Handle(context.Background(), conn, h)
		},
	})

	t.Cleanup(func() {
		server.Close()
		scene.Close()

		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
	})

	return testEnv{
		scene:     scene,
		scheduler: scheduler,
		server:    server,
	}
}

func (e testEnv) dial(t *testing.T) *websocket.Conn {
	config, err := websocket.NewConfig(
		strings.ReplaceAll(e.server.URL, "http://", "ws://"),
		"http://localhost",
	)
	require.NoError(t, err)

	config.Header.Set("User-Agent", "ted")
	config.Header.Set(HeaderClientID, uuid.NewString())

	conn, err := websocket.DialConfig(config)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg Msg) {
	b, err := json.Marshal(msg)
	require.NoError(t, err)

	err = websocket.Message.Send(conn, string(b))
	require.NoError(t, err)
}

// receiveUntil reads messages until one of the given type is received.
// Messages of other types are returned alongside.
func receiveUntil(t *testing.T, conn *websocket.Conn, msgType MsgType) (Msg, []Msg) {
	var skipped []Msg

	for {
		err := conn.SetReadDeadline(time.Now().Add(readTimeout))
		require.NoError(t, err)

		var b []byte
		err = websocket.Message.Receive(conn, &b)
		require.NoError(t, err)

		var msg Msg
		err = json.Unmarshal(b, &msg)
		require.NoError(t, err)

		if msg.Type == msgType {
			return msg, skipped
		}
		skipped = append(skipped, msg)
	}
}
