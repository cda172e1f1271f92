package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/events"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/featureflag"
	sightlinehttp "github.com/aukilabs/sightline/http"
	"github.com/aukilabs/sightline/models"
	"github.com/aukilabs/sightline/physics"
	"github.com/aukilabs/sightline/smoketest"
	"github.com/aukilabs/sightline/spawn"
	swebsocket "github.com/aukilabs/sightline/websocket"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

var (
	// The Sightline version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "sightline_info",
		Help:        "Sightline information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// This will effectively disable obfuscation of the config struct. Without it, the keys would get obfuscated causing the cli package to generate garbled command-line options.
// https://github.com/burrowers/garble/issues/403
var _ = reflect.TypeOf(config{})

type config struct {
	Addr               string        `cli:""        env:"SIGHTLINE_ADDR"                 help:"Listening address for client connections."`
	AdminAddr          string        `cli:""        env:"SIGHTLINE_ADMIN_ADDR"           help:"Admin listening address."`
	PublicEndpoint     string        `cli:""        env:"SIGHTLINE_PUBLIC_ENDPOINT"      help:"The public endpoint where this Sightline server is reachable."`
	LogLevel           string        `cli:""        env:"SIGHTLINE_LOG_LEVEL"            help:"Log level (debug|info|warning|error)."`
	LogIndent          bool          `cli:""        env:"SIGHTLINE_LOG_INDENT"           help:"Indent logs."`
	SceneFile          string        `cli:""        env:"SIGHTLINE_SCENE_FILE"           help:"The JSON scene description to load. The built-in courtyard scene is used when empty."`
	FrameDuration      time.Duration `cli:",hidden" env:"SIGHTLINE_FRAME_DURATION"       help:"The duration of a scene frame."`
	CheckInterval      time.Duration `cli:""        env:"SIGHTLINE_CHECK_INTERVAL"       help:"The minimum duration between two visibility passes."`
	OccluderLayers     []string      `cli:""        env:"SIGHTLINE_OCCLUDER_LAYERS"      help:"Comma separated physics layers that block visibility, or \"all\"."`
	MaxRaycastHits     int           `cli:",hidden" env:"SIGHTLINE_MAX_RAYCAST_HITS"     help:"The maximum number of hits considered for one occlusion ray."`
	GridResolution     uint          `cli:",hidden" env:"SIGHTLINE_GRID_RESOLUTION"      help:"The size of a physics grid cell, in meters."`
	CameraOrbitPeriod  time.Duration `cli:""        env:"SIGHTLINE_CAMERA_ORBIT_PERIOD"  help:"The duration of a full camera orbit around its target. The camera is static when zero."`
	SpawnQueueSize     int           `cli:",hidden" env:"SIGHTLINE_SPAWN_QUEUE_SIZE"     help:"The number of pending renderer spawn requests."`
	SyncClockInterval  time.Duration `cli:",hidden" env:"SIGHTLINE_SYNC_CLOCK_INTERVAL"  help:"Client sync clock (heartbeat) message interval."`
	ClientIdleTimeout  time.Duration `cli:",hidden" env:"SIGHTLINE_CLIENT_IDLE_TIMEOUT"  help:"Time until an idle client will be disconnected"`
	LogSummaryInterval time.Duration `cli:",hidden" env:"SIGHTLINE_LOG_SUMMARY_INTERVAL" help:"The duration between each log summary by connection."`
	Events             eventsConfig  `cli:",hidden" env:"-"                              help:"Event pusher configuration."`
	FeatureFlags       []string      `cli:",hidden" env:"SIGHTLINE_FEATURE_FLAGS"        help:"Comma separated feature flags"`
	Version            bool          `cli:""        env:"-"                              help:"Show version."`
	Help               bool          `cli:""        env:"-"                              help:"Show help."`
}

type eventsConfig struct {
	Endpoint      string        `cli:",hidden" env:"SIGHTLINE_EVENTS_ENDPOINT"       help:"Endpoint to where events are pushed. Events are not pushed when empty."`
	FlushInterval time.Duration `cli:",hidden" env:"SIGHTLINE_EVENTS_FLUSH_INTERVAL" help:"The duration between each event flush."`
	BatchSize     int           `cli:",hidden" env:"SIGHTLINE_EVENTS_BATCH_SIZE"     help:"The maximum number of events sent at once."`
	QueueSize     int           `cli:",hidden" env:"SIGHTLINE_EVENTS_QUEUE_SIZE"     help:"The size of the queue where events are stored."`
}

func main() {
	conf := config{
		Addr:               ":4100",
		AdminAddr:          ":18290",
		PublicEndpoint:     "http://localhost:4100",
		LogLevel:           logs.InfoLevel.String(),
		FrameDuration:      time.Millisecond * 15,
		CheckInterval:      culling.DefaultCheckInterval,
		OccluderLayers:     []string{"all"},
		MaxRaycastHits:     culling.DefaultMaxRaycastHits,
		GridResolution:     physics.DefaultGridResolution,
		CameraOrbitPeriod:  time.Minute,
		SpawnQueueSize:     128,
		SyncClockInterval:  time.Second * 5,
		ClientIdleTimeout:  time.Minute * 5,
		LogSummaryInterval: time.Minute,
		Events: eventsConfig{
			FlushInterval: events.DefaultFlushInterval,
			BatchSize:     events.DefaultBatchSize,
			QueueSize:     events.DefaultQueueSize,
		},
	}

	// set the information gauge to 1, useful for SUM query
	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Starts Sightline server.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	occluderMask, err := parseLayerMask(conf.OccluderLayers)
	if err != nil {
		logs.Fatal(err)
	}

	cullingConfig := culling.Config{
		OccluderMask:   occluderMask,
		CheckInterval:  conf.CheckInterval,
		MaxRaycastHits: conf.MaxRaycastHits,
		FeatureFlags:   featureflag.New(conf.FeatureFlags),
	}
	if err := cullingConfig.Validate(); err != nil {
		logs.Fatal(err)
	}

	if conf.Events.Endpoint != "" {
		eventsPusher := events.Pusher{
			Endpoint:      conf.Events.Endpoint,
			FlushInterval: conf.Events.FlushInterval,
			BatchSize:     conf.Events.BatchSize,
			QueueSize:     conf.Events.QueueSize,
			Transport:     metrics.HTTPTransport(http.DefaultTransport),
		}
		go eventsPusher.Start()
		defer eventsPusher.Close()

		eventsLogger := events.Logger{
			Pusher:           &eventsPusher,
			SDKType:          "sightline",
			SDKVersionFamily: version,
		}
		logs.SetLogger(eventsLogger.Log)
	}

	sceneDesc := models.DefaultSceneDescription()
	if conf.SceneFile != "" {
		if sceneDesc, err = models.LoadSceneDescription(conf.SceneFile); err != nil {
			logs.Fatal(err)
		}
	}

	scene, err := models.NewSceneFromDescription(sceneDesc, conf.FrameDuration, physics.NewWorld(conf.GridResolution))
	if err != nil {
		logs.Fatal(errors.New("creating scene failed").Wrap(err))
	}
	defer scene.Close()

	scheduler := culling.NewScheduler(nil, scene.Physics(), cullingConfig)
	scheduler.SetCamera(scene.Camera())
	scheduler.RegisterInitial(scene.Drawables()...)

	orbit := newCameraOrbit(scene.Camera(), conf.CameraOrbitPeriod)
	scene.HandleFrame(func(dt time.Duration) {
		orbit.update(dt)
		scheduler.Update(dt)
	})
	go scene.StartDispatchFrames()

	spawner := spawn.Handler{
		Scene:       scene,
		Scheduler:   scheduler,
		RequestChan: make(chan spawn.Request, conf.SpawnQueueSize),
	}
	spawner.HandleRequests(ctx)

	readinessCheck := func() bool {
		return scheduler.Tick() > 0
	}

	var service http.ServeMux
	sightlinehttp.RegisterVisibilityRoutes(&service, scene, scheduler, spawner)

	service.Handle("/health", sightlinehttp.HandleWithCORS(http.HandlerFunc(sightlinehttp.HandleHealthCheck)))
	service.Handle("/ready", sightlinehttp.HandleWithCORS(sightlinehttp.HandleReadyCheck(readinessCheck)))
	service.Handle("/version", sightlinehttp.HandleWithCORS(sightlinehttp.HandleVersion(version)))
	service.Handle("/smoke-test", sightlinehttp.HandleWithCORS(smoketest.HandleSmokeTest(ctx, smoketest.Options{
		SendResult: func(ctx context.Context, res smoketest.SmokeTestResults) error {
			logs.WithTag("status", res.Status).
				WithTag("scenarios", len(res.Scenarios)).
				Info("smoke test completed")
			return nil
		},
	})))

	service.Handle("/stream", websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			var sh swebsocket.Handler = &swebsocket.StreamHandler{
				Scene:                   scene,
				Scheduler:               scheduler,
				FeatureFlags:            featureflag.New(conf.FeatureFlags),
				ClientSyncClockInterval: conf.SyncClockInterval,
				ClientIdleTimeout:       conf.ClientIdleTimeout,
			}
			h := swebsocket.HandlerWithLogs(sh, conf.LogSummaryInterval)
			h = swebsocket.HandlerWithMetrics(h, conf.PublicEndpoint)
			defer h.Close()

			swebsocket.Handle(ctx, conn, h)
		},
	})

	service.Handle("/ping", websocket.Server{
		Handler: func(ws *websocket.Conn) {
			defer ws.Close()
			io.Copy(ws, ws)
		},
	})

	var admin http.ServeMux
	admin.Handle("/metrics", promhttp.Handler())
	admin.HandleFunc("/health", sightlinehttp.HandleHealthCheck)
	admin.HandleFunc("/debug/pprof/", pprof.Index)
	admin.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
	admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
	admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
	admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	admin.Handle("/debug/pprof/threadcreate", pprof.Handler("threadcreate"))
	admin.Handle("/debug/pprof/block", pprof.Handler("block"))
	admin.HandleFunc("/ready", sightlinehttp.HandleReadyCheck(readinessCheck))

	logs.WithTag("version", version).
		WithTag("log_level", conf.LogLevel).
		WithTag("endpoint", conf.PublicEndpoint).
		WithTag("scene", scene.Name).
		WithTag("scene_id", scene.SceneUUID).
		WithTag("renderers", scene.RendererCount()).
		WithTag("feature_flags", conf.FeatureFlags).
		Info("starting sightline server")

	sightlinehttp.ListenAndServe(ctx,
		&http.Server{Addr: conf.Addr, Handler: metrics.HTTPHandler(&service,
			sightlinehttp.MetricsPathFormatter)},
		&http.Server{Addr: conf.AdminAddr, Handler: &admin},
	)
}

func parseLayerMask(layers []string) (culling.LayerMask, error) {
	var values []int

	for _, l := range layers {
		l = strings.TrimSpace(l)

		switch l {
		case "":
			continue

		case "all":
			return culling.AllLayers, nil
		}

		v, err := strconv.Atoi(l)
		if err != nil || v < 0 || v >= culling.MaxLayers {
			return 0, errors.New("invalid occluder layer").
				WithTag("layer", l).
				WithTag("max", culling.MaxLayers-1)
		}
		values = append(values, v)
	}

	return culling.LayerMaskOf(values...), nil
}

// cameraOrbit moves a camera around its target at a constant angular speed.
type cameraOrbit struct {
	camera *models.Camera
	period time.Duration

	center mgl32.Vec3
	radius float32
	height float32
	angle  float64
}

func newCameraOrbit(c *models.Camera, period time.Duration) *cameraOrbit {
	position := c.Position()
	center := c.Target()
	offset := position.Sub(center)

	return &cameraOrbit{
		camera: c,
		period: period,
		center: center,
		radius: mgl32.Vec2{offset.X(), offset.Z()}.Len(),
		height: offset.Y(),
		angle:  math.Atan2(float64(offset.X()), -float64(offset.Z())),
	}
}

func (o *cameraOrbit) update(dt time.Duration) {
	if o.period <= 0 || o.radius == 0 {
		return
	}

	o.angle += 2 * math.Pi * float64(dt) / float64(o.period)
	if o.angle > 2*math.Pi {
		o.angle -= 2 * math.Pi
	}
	o.camera.Orbit(o.center, o.radius, o.height, o.angle)
}
