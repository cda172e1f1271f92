package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/sightline/culling"
	"github.com/aukilabs/sightline/featureflag"
	"github.com/aukilabs/sightline/models"
	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	// HeaderClientID is the request header a client can set to identify
	// itself. A random id is generated when it is missing.
	HeaderClientID = "X-Sightline-Client-ID"

	DefaultSyncClockInterval = time.Second * 5
	DefaultIdleTimeout       = time.Minute * 5
)

// StreamHandler pushes the render state changes of a scene to a connected
// client after each culling pass.
type StreamHandler struct {
	// The scene which renderers are streamed.
	Scene *models.Scene

	// The scheduler that classifies the scene renderers.
	Scheduler *culling.Scheduler

	FeatureFlags featureflag.FeatureFlag

	// The interval between each sync clock message sent to the connected
	// client.
	ClientSyncClockInterval time.Duration

	// The time a client is idle before being disconnected.
	ClientIdleTimeout time.Duration

	conn     *websocket.Conn
	clientID string

	mutex         sync.Mutex
	stopObserving func()
}

func (h *StreamHandler) HandleConnect(conn *websocket.Conn) {
	h.conn = conn

	if req := conn.Request(); req != nil {
		h.clientID = req.Header.Get(HeaderClientID)
	}
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}
}

func (h *StreamHandler) Subscribe(ctx context.Context, respond ResponseSender) error {
	if h.FeatureFlags.IsSet(featureflag.FlagDisableVisibilityStream) {
		return nil
	}

	h.mutex.Lock()
	if h.stopObserving == nil {
		h.stopObserving = h.Scheduler.OnPass(func(res culling.PassResult) {
			if len(res.Changes) == 0 {
				return
			}

			msg, err := NewMsg(MsgTypePass, 0, newPassData(res))
			if err != nil {
				return
			}
			respond.SendMsg(msg)
		})
	}
	h.mutex.Unlock()

	// Passes completed after this snapshot are already observed.
	return h.sendSnapshot(respond, 0)
}

func (h *StreamHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	res, err := NewMsg(MsgTypePong, msg.RequestID, nil)
	if err != nil {
		return err
	}

	respond.SendMsg(res)
	return nil
}

func (h *StreamHandler) HandleSnapshotRequest(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.sendSnapshot(respond, msg.RequestID)
}

func (h *StreamHandler) HandleDisconnect(err error) {
	h.unsubscribe()
}

func (h *StreamHandler) SendSyncClock(ctx context.Context, respond ResponseSender) error {
	msg, err := NewMsg(MsgTypeSyncClock, 0, SyncClockData{
		Tick: h.Scheduler.Tick(),
	})
	if err != nil {
		return err
	}

	respond.SendMsg(msg)
	return nil
}

func (h *StreamHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		var b []byte
		if err := websocket.Message.Receive(h.conn, &b); err != nil {
			return Msg{}, 0, err
		}

		var msg Msg
		if err := json.Unmarshal(b, &msg); err != nil {
			// Undecodable messages are answered with an error by the
			// message loop.
			return Msg{}, len(b), nil
		}
		return msg, len(b), nil
	}
}

func (h *StreamHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		b, err := json.Marshal(msg)
		if err != nil {
			return 0, err
		}

		if err := websocket.Message.Send(h.conn, string(b)); err != nil {
			return 0, err
		}
		return len(b), nil
	}
}

func (h *StreamHandler) Close() {
	h.unsubscribe()
}

func (h *StreamHandler) SyncClockInterval() time.Duration {
	if h.ClientSyncClockInterval <= 0 {
		return DefaultSyncClockInterval
	}
	return h.ClientSyncClockInterval
}

func (h *StreamHandler) IdleTimeout() time.Duration {
	if h.ClientIdleTimeout <= 0 {
		return DefaultIdleTimeout
	}
	return h.ClientIdleTimeout
}

func (h *StreamHandler) GetClientID() string {
	return h.clientID
}

func (h *StreamHandler) sendSnapshot(respond ResponseSender, requestID uint32) error {
	snapshot := h.Scene.Snapshot(h.Scheduler.Set(), h.Scheduler.Tick())

	msg, err := NewMsg(MsgTypeSnapshot, requestID, snapshot)
	if err != nil {
		return err
	}

	respond.SendMsg(msg)
	return nil
}

func (h *StreamHandler) unsubscribe() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.stopObserving != nil {
		h.stopObserving()
		h.stopObserving = nil
	}
}
